package models

import (
	"crypto/sha256"
	"encoding/hex"
	"path"
	"strings"
	"time"
)

// ProjectFile is one file record in a project's file collection.
// Content is always the full file body; Checksum is the SHA-256 of Content.
type ProjectFile struct {
	ID        string    `json:"id" validate:"required,uuid4"`
	ProjectID string    `json:"projectId" validate:"required"`
	Name      string    `json:"name" validate:"required"`
	Path      string    `json:"path" validate:"required"`
	Extension string    `json:"extension,omitempty"`
	Content   string    `json:"content"`
	Checksum  string    `json:"checksum" validate:"required,len=64,hexadecimal"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"createdAt" validate:"required"`
	UpdatedAt time.Time `json:"updatedAt" validate:"required"`
}

// FileChecksum computes the SHA-256 checksum of a file body as lowercase hex.
func FileChecksum(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// NormalizePath canonicalizes a file path for use as a storage key:
// trimmed, forward slashes only, no duplicate separators, no leading "./".
// Normalizing an already-normalized path returns the same string.
func NormalizePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}
	p = strings.ReplaceAll(p, "\\", "/")
	p = path.Clean(p)
	if p == "." || p == "/" {
		return ""
	}
	p = strings.TrimPrefix(p, "./")
	p = strings.TrimPrefix(p, "/")
	return p
}

// SetContent replaces the file body and refreshes the derived fields.
func (f *ProjectFile) SetContent(content string, now time.Time) {
	f.Content = content
	f.Checksum = FileChecksum(content)
	f.Size = int64(len(content))
	f.UpdatedAt = now
}
