package store

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/octoprompt/octocoder/models"
)

func setupTestStore(t *testing.T) *FileProjectStore {
	t.Helper()

	tempDir := t.TempDir()
	filePath := filepath.Join(tempDir, "files.json")

	s := NewFileProjectStore()
	err := s.Initialize(map[string]string{
		"dataFile":       filePath,
		"dataFileFormat": "json",
	})
	if err != nil {
		t.Fatalf("Failed to initialize store: %v", err)
	}
	return s
}

func TestFileProjectStore_BasicOperations(t *testing.T) {
	s := setupTestStore(t)
	defer func() { _ = s.Close() }()

	created, err := s.CreatePlaceholder("proj-1", "src/app.py")
	if err != nil {
		t.Fatalf("CreatePlaceholder failed: %v", err)
	}
	if created.ID == "" {
		t.Error("Created file should have an ID")
	}
	if created.Path != "src/app.py" {
		t.Errorf("Path mismatch: got %q, want %q", created.Path, "src/app.py")
	}
	if created.Extension != "py" {
		t.Errorf("Extension mismatch: got %q, want %q", created.Extension, "py")
	}
	if created.Checksum != models.FileChecksum("") {
		t.Errorf("Placeholder checksum should be the empty-content checksum")
	}

	retrieved, err := s.GetFile(created.ID)
	if err != nil {
		t.Fatalf("GetFile failed: %v", err)
	}
	if retrieved.ID != created.ID {
		t.Errorf("ID mismatch: got %q, want %q", retrieved.ID, created.ID)
	}

	updated, err := s.UpdateFileContent(created.ID, "print('hello')\n")
	if err != nil {
		t.Fatalf("UpdateFileContent failed: %v", err)
	}
	if updated.Content != "print('hello')\n" {
		t.Errorf("Content not updated: got %q", updated.Content)
	}
	if updated.Checksum == created.Checksum {
		t.Error("Checksum should change when content changes")
	}
	if updated.Size != int64(len("print('hello')\n")) {
		t.Errorf("Size mismatch: got %d", updated.Size)
	}

	files, err := s.ListFiles("proj-1")
	if err != nil {
		t.Fatalf("ListFiles failed: %v", err)
	}
	if len(files) != 1 {
		t.Fatalf("ListFiles returned %d files, want 1", len(files))
	}

	other, err := s.ListFiles("proj-unknown")
	if err != nil {
		t.Fatalf("ListFiles for unknown project failed: %v", err)
	}
	if len(other) != 0 {
		t.Errorf("ListFiles for unknown project returned %d files, want 0", len(other))
	}

	if err := s.DeleteFile(created.ID); err != nil {
		t.Fatalf("DeleteFile failed: %v", err)
	}
	if _, err := s.GetFile(created.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetFile after delete = %v, want ErrNotFound", err)
	}
	if err := s.DeleteFile(created.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second DeleteFile = %v, want ErrNotFound", err)
	}
}

func TestFileProjectStore_FindByPath(t *testing.T) {
	s := setupTestStore(t)
	defer func() { _ = s.Close() }()

	created, err := s.CreatePlaceholder("proj-1", "src/handlers/hello.go")
	if err != nil {
		t.Fatalf("CreatePlaceholder failed: %v", err)
	}

	// Un-normalized lookup path resolves to the same record.
	found, ok, err := s.FindByPath("proj-1", "./src//handlers/hello.go")
	if err != nil {
		t.Fatalf("FindByPath failed: %v", err)
	}
	if !ok {
		t.Fatal("FindByPath should find the created file")
	}
	if found.ID != created.ID {
		t.Errorf("FindByPath returned wrong file: got %q, want %q", found.ID, created.ID)
	}

	_, ok, err = s.FindByPath("proj-1", "src/missing.go")
	if err != nil {
		t.Fatalf("FindByPath failed: %v", err)
	}
	if ok {
		t.Error("FindByPath should not find a missing path")
	}
}

func TestFileProjectStore_DuplicatePathRejected(t *testing.T) {
	s := setupTestStore(t)
	defer func() { _ = s.Close() }()

	if _, err := s.CreatePlaceholder("proj-1", "src/new.py"); err != nil {
		t.Fatalf("first CreatePlaceholder failed: %v", err)
	}
	if _, err := s.CreatePlaceholder("proj-1", "./src/new.py"); err == nil {
		t.Error("duplicate path in the same project should be rejected")
	}
	// Same path in a different project is fine.
	if _, err := s.CreatePlaceholder("proj-2", "src/new.py"); err != nil {
		t.Errorf("same path in another project should be allowed: %v", err)
	}
}

func TestFileProjectStore_PersistenceAcrossInstances(t *testing.T) {
	tempDir := t.TempDir()
	filePath := filepath.Join(tempDir, "files.json")
	cfg := map[string]string{"dataFile": filePath, "dataFileFormat": "json"}

	s1 := NewFileProjectStore()
	if err := s1.Initialize(cfg); err != nil {
		t.Fatalf("initialize first store: %v", err)
	}
	created, err := s1.CreatePlaceholder("proj-1", "main.go")
	if err != nil {
		t.Fatalf("CreatePlaceholder failed: %v", err)
	}
	if _, err := s1.UpdateFileContent(created.ID, "package main\n"); err != nil {
		t.Fatalf("UpdateFileContent failed: %v", err)
	}
	_ = s1.Close()

	s2 := NewFileProjectStore()
	if err := s2.Initialize(cfg); err != nil {
		t.Fatalf("initialize second store: %v", err)
	}
	defer func() { _ = s2.Close() }()

	reloaded, err := s2.GetFile(created.ID)
	if err != nil {
		t.Fatalf("GetFile after reload failed: %v", err)
	}
	if reloaded.Content != "package main\n" {
		t.Errorf("reloaded content mismatch: got %q", reloaded.Content)
	}
	if reloaded.Checksum != models.FileChecksum("package main\n") {
		t.Error("reloaded checksum mismatch")
	}
}

func TestFileProjectStore_ChecksumMismatchDetected(t *testing.T) {
	tempDir := t.TempDir()
	filePath := filepath.Join(tempDir, "files.json")
	cfg := map[string]string{"dataFile": filePath, "dataFileFormat": "json"}

	s1 := NewFileProjectStore()
	if err := s1.Initialize(cfg); err != nil {
		t.Fatalf("initialize store: %v", err)
	}
	if _, err := s1.CreatePlaceholder("proj-1", "a.txt"); err != nil {
		t.Fatalf("CreatePlaceholder failed: %v", err)
	}
	_ = s1.Close()

	// Tamper with the data file without updating the sidecar checksum.
	data, err := os.ReadFile(filePath)
	if err != nil {
		t.Fatalf("read data file: %v", err)
	}
	tampered := strings.Replace(string(data), "proj-1", "proj-x", 1)
	if err := os.WriteFile(filePath, []byte(tampered), 0o644); err != nil {
		t.Fatalf("write tampered file: %v", err)
	}

	s2 := NewFileProjectStore()
	if err := s2.Initialize(cfg); err == nil {
		_ = s2.Close()
		t.Fatal("Initialize should fail on checksum mismatch")
	}
}

func TestFileProjectStore_YAMLFormat(t *testing.T) {
	tempDir := t.TempDir()
	filePath := filepath.Join(tempDir, "files.yaml")

	s := NewFileProjectStore()
	err := s.Initialize(map[string]string{
		"dataFile":       filePath,
		"dataFileFormat": "yaml",
	})
	if err != nil {
		t.Fatalf("initialize yaml store: %v", err)
	}
	defer func() { _ = s.Close() }()

	if _, err := s.CreatePlaceholder("proj-1", "notes.md"); err != nil {
		t.Fatalf("CreatePlaceholder failed: %v", err)
	}
	files, err := s.ListFiles("proj-1")
	if err != nil || len(files) != 1 {
		t.Fatalf("ListFiles after yaml create: files=%d err=%v", len(files), err)
	}
}
