package models

import (
	"testing"
	"time"
)

func TestNormalizePath(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"src/main.go", "src/main.go"},
		{"./src/main.go", "src/main.go"},
		{"  src/main.go  ", "src/main.go"},
		{"src\\sub\\main.go", "src/sub/main.go"},
		{"src//sub///main.go", "src/sub/main.go"},
		{"/src/main.go", "src/main.go"},
		{"", ""},
		{"   ", ""},
		{".", ""},
		{"/", ""},
	}
	for _, tc := range cases {
		got := NormalizePath(tc.in)
		if got != tc.want {
			t.Errorf("NormalizePath(%q) = %q, want %q", tc.in, got, tc.want)
		}
		// Normalizing twice must yield the same path.
		if again := NormalizePath(got); again != got {
			t.Errorf("NormalizePath not idempotent for %q: %q then %q", tc.in, got, again)
		}
	}
}

func TestFileChecksum(t *testing.T) {
	a := FileChecksum("package main\n")
	b := FileChecksum("package main\n")
	if a != b {
		t.Errorf("checksum not deterministic: %s vs %s", a, b)
	}
	if len(a) != 64 {
		t.Errorf("expected 64 hex chars, got %d", len(a))
	}
	if a == FileChecksum("package other\n") {
		t.Error("different content produced identical checksums")
	}
}

func TestProjectFile_SetContent(t *testing.T) {
	now := time.Now().UTC()
	f := ProjectFile{
		ID:        "id",
		ProjectID: "p1",
		Name:      "main.go",
		Path:      "src/main.go",
		Content:   "old",
		Checksum:  FileChecksum("old"),
		Size:      3,
		CreatedAt: now.Add(-time.Hour),
		UpdatedAt: now.Add(-time.Hour),
	}

	f.SetContent("package main\n", now)

	if f.Content != "package main\n" {
		t.Errorf("content not replaced: %q", f.Content)
	}
	if f.Checksum != FileChecksum("package main\n") {
		t.Error("checksum not recomputed")
	}
	if f.Size != int64(len("package main\n")) {
		t.Errorf("size = %d, want %d", f.Size, len("package main\n"))
	}
	if !f.UpdatedAt.Equal(now) {
		t.Errorf("updatedAt = %v, want %v", f.UpdatedAt, now)
	}
	if !f.CreatedAt.Equal(now.Add(-time.Hour)) {
		t.Error("createdAt must not change")
	}
}
