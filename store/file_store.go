package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/octoprompt/octocoder/models"
	yaml "gopkg.in/yaml.v3"
)

const (
	defaultDataFile   = "files.json"
	dataFileKey       = "dataFile"
	dataFileFormatKey = "dataFileFormat"
	defaultDataFormat = "json"
	formatJSON        = "json"
	formatYAML        = "yaml"
	formatTOML        = "toml"
	checksumSuffix    = ".checksum"
)

// fileCollection is the on-disk document: the whole file table in one file.
type fileCollection struct {
	Files      []models.ProjectFile `json:"files" toml:"files" yaml:"files"`
	TotalCount int                  `json:"totalCount" toml:"totalCount" yaml:"totalCount"`
}

// FileProjectStore implements ProjectFileStore with a single-file backend.
// It supports JSON, YAML, and TOML formats and uses file-level locking so
// concurrent processes serialize their read-modify-write cycles.
type FileProjectStore struct {
	filePath string
	files    map[string]models.ProjectFile
	flk      *flock.Flock
	format   string
}

// NewFileProjectStore creates a new instance. Initialize must be called before use.
func NewFileProjectStore() *FileProjectStore {
	return &FileProjectStore{files: make(map[string]models.ProjectFile)}
}

// Initialize configures the store. It expects a 'dataFile' key with the path
// to the data file, defaulting to 'files.json', and an optional
// 'dataFileFormat' of json, yaml, or toml.
func (s *FileProjectStore) Initialize(config map[string]string) error {
	if val, ok := config[dataFileKey]; ok && val != "" {
		s.filePath = val
	} else {
		s.filePath = defaultDataFile
	}

	if val, ok := config[dataFileFormatKey]; ok && val != "" {
		formatLower := strings.ToLower(val)
		switch formatLower {
		case formatJSON, formatYAML, formatTOML:
			s.format = formatLower
		default:
			return fmt.Errorf("unsupported dataFileFormat: %s. Supported formats are json, yaml, toml", val)
		}
	} else {
		s.format = defaultDataFormat
	}

	if s.filePath == defaultDataFile && s.format != formatJSON {
		ext := filepath.Ext(s.filePath)
		s.filePath = strings.TrimSuffix(s.filePath, ext) + "." + s.format
	}

	dir := filepath.Dir(s.filePath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	s.flk = flock.New(s.filePath)

	locked, err := s.flk.TryLock()
	if err != nil {
		return fmt.Errorf("failed to acquire initial lock for %s: %w", s.filePath, err)
	}
	if !locked {
		if err := s.flk.Lock(); err != nil {
			return fmt.Errorf("failed to acquire blocking initial lock for %s: %w", s.filePath, err)
		}
	}
	defer func() { _ = s.flk.Unlock() }()

	s.files = make(map[string]models.ProjectFile)
	return s.loadInternal()
}

// loadInternal reads the collection from disk, verifies the sidecar checksum,
// and unmarshals. Assumes the flock is held.
func (s *FileProjectStore) loadInternal() error {
	checksumFilePath := s.filePath + checksumSuffix

	data, err := os.ReadFile(s.filePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.files = make(map[string]models.ProjectFile)
			_ = os.Remove(checksumFilePath)
			f, createErr := os.OpenFile(s.filePath, os.O_CREATE|os.O_RDWR, 0o644)
			if createErr != nil {
				return fmt.Errorf("failed to create data file %s: %w", s.filePath, createErr)
			}
			_ = f.Close()
			_ = os.WriteFile(checksumFilePath, []byte(models.FileChecksum("")), 0o644)
			return nil
		}
		return fmt.Errorf("failed to read data file %s: %w", s.filePath, err)
	}

	if _, err := os.Stat(checksumFilePath); err == nil {
		expected, readErr := os.ReadFile(checksumFilePath)
		if readErr != nil {
			return fmt.Errorf("failed to read checksum file %s: %w", checksumFilePath, readErr)
		}
		actual := models.FileChecksum(string(data))
		if actual != strings.TrimSpace(string(expected)) {
			return fmt.Errorf("checksum mismatch for %s - file is corrupt or tampered", s.filePath)
		}
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("error checking checksum file %s: %w", checksumFilePath, err)
	}

	if len(data) == 0 {
		s.files = make(map[string]models.ProjectFile)
		return nil
	}

	var collection fileCollection
	switch s.format {
	case formatJSON:
		if err := json.Unmarshal(data, &collection); err != nil {
			return fmt.Errorf("failed to unmarshal JSON from %s: %w", s.filePath, err)
		}
	case formatYAML:
		if err := yaml.Unmarshal(data, &collection); err != nil {
			return fmt.Errorf("failed to unmarshal YAML from %s: %w", s.filePath, err)
		}
	case formatTOML:
		if err := toml.Unmarshal(data, &collection); err != nil {
			return fmt.Errorf("failed to unmarshal TOML from %s: %w", s.filePath, err)
		}
	default:
		return fmt.Errorf("unsupported data format for loading: %s", s.format)
	}

	s.files = make(map[string]models.ProjectFile, len(collection.Files))
	for _, f := range collection.Files {
		s.files[f.ID] = f
	}
	return nil
}

// saveInternal writes the collection and its sidecar checksum atomically.
// Assumes the flock is held.
func (s *FileProjectStore) saveInternal() error {
	collection := fileCollection{
		Files:      make([]models.ProjectFile, 0, len(s.files)),
		TotalCount: len(s.files),
	}
	for _, f := range s.files {
		collection.Files = append(collection.Files, f)
	}

	var marshaled []byte
	var err error
	switch s.format {
	case formatJSON:
		marshaled, err = json.MarshalIndent(collection, "", "  ")
	case formatYAML:
		marshaled, err = yaml.Marshal(collection)
	case formatTOML:
		buf := new(bytes.Buffer)
		if encodeErr := toml.NewEncoder(buf).Encode(collection); encodeErr == nil {
			marshaled = buf.Bytes()
		} else {
			err = fmt.Errorf("failed to marshal TOML: %w", encodeErr)
		}
	default:
		return fmt.Errorf("unsupported data format for saving: %s", s.format)
	}
	if err != nil {
		return fmt.Errorf("failed to marshal files to %s: %w", s.format, err)
	}

	tempFilePath := s.filePath + ".tmp"
	checksumFilePath := s.filePath + checksumSuffix
	tempChecksumFilePath := checksumFilePath + ".tmp"

	defer func() { _ = os.Remove(tempFilePath) }()
	defer func() { _ = os.Remove(tempChecksumFilePath) }()

	if err := os.WriteFile(tempFilePath, marshaled, 0o644); err != nil {
		return fmt.Errorf("failed to write temporary data file %s: %w", tempFilePath, err)
	}
	if err := os.WriteFile(tempChecksumFilePath, []byte(models.FileChecksum(string(marshaled))), 0o644); err != nil {
		return fmt.Errorf("failed to write temporary checksum file %s: %w", tempChecksumFilePath, err)
	}
	if err := os.Rename(tempFilePath, s.filePath); err != nil {
		return fmt.Errorf("failed to rename temporary data file %s to %s: %w", tempFilePath, s.filePath, err)
	}
	if err := os.Rename(tempChecksumFilePath, checksumFilePath); err != nil {
		return fmt.Errorf("CRITICAL: data file %s updated, but failed to update checksum file %s: %w - store may be inconsistent", s.filePath, checksumFilePath, err)
	}
	return nil
}

// withLock reloads state from disk, runs fn, and persists if fn succeeded and
// asked for a save. Every public operation funnels through here.
func (s *FileProjectStore) withLock(fn func() (save bool, err error)) error {
	if err := s.flk.Lock(); err != nil {
		return fmt.Errorf("could not lock file store: %w", err)
	}
	defer func() { _ = s.flk.Unlock() }()

	if err := s.loadInternal(); err != nil {
		return fmt.Errorf("failed to reload files: %w", err)
	}

	save, err := fn()
	if err != nil {
		return err
	}
	if save {
		if err := s.saveInternal(); err != nil {
			_ = s.loadInternal()
			return fmt.Errorf("failed to save files: %w", err)
		}
	}
	return nil
}

// ListFiles returns every file record belonging to the given project.
func (s *FileProjectStore) ListFiles(projectID string) ([]models.ProjectFile, error) {
	var out []models.ProjectFile
	err := s.withLock(func() (bool, error) {
		for _, f := range s.files {
			if f.ProjectID == projectID {
				out = append(out, f)
			}
		}
		return false, nil
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []models.ProjectFile{}
	}
	return out, nil
}

// GetFile retrieves a file record by id.
func (s *FileProjectStore) GetFile(id string) (models.ProjectFile, error) {
	var out models.ProjectFile
	err := s.withLock(func() (bool, error) {
		f, ok := s.files[id]
		if !ok {
			return false, fmt.Errorf("file with ID %s: %w", id, ErrNotFound)
		}
		out = f
		return false, nil
	})
	return out, err
}

// FindByPath looks up a project's file by normalized path.
func (s *FileProjectStore) FindByPath(projectID, path string) (models.ProjectFile, bool, error) {
	normalized := models.NormalizePath(path)
	var out models.ProjectFile
	found := false
	err := s.withLock(func() (bool, error) {
		for _, f := range s.files {
			if f.ProjectID == projectID && models.NormalizePath(f.Path) == normalized {
				out = f
				found = true
				break
			}
		}
		return false, nil
	})
	return out, found, err
}

// CreatePlaceholder inserts an empty file record for the given path.
func (s *FileProjectStore) CreatePlaceholder(projectID, path string) (models.ProjectFile, error) {
	normalized := models.NormalizePath(path)
	if normalized == "" {
		return models.ProjectFile{}, fmt.Errorf("cannot create placeholder for empty path")
	}

	now := time.Now().UTC()
	file := models.ProjectFile{
		ID:        uuid.NewString(),
		ProjectID: projectID,
		Name:      filepath.Base(normalized),
		Path:      normalized,
		Extension: strings.TrimPrefix(filepath.Ext(normalized), "."),
		CreatedAt: now,
	}
	file.SetContent("", now)

	if err := models.ValidateStruct(file); err != nil {
		return models.ProjectFile{}, fmt.Errorf("validation failed for new file: %w", err)
	}

	err := s.withLock(func() (bool, error) {
		for _, existing := range s.files {
			if existing.ProjectID == projectID && models.NormalizePath(existing.Path) == normalized {
				return false, fmt.Errorf("file at path '%s' already exists in project %s", normalized, projectID)
			}
		}
		s.files[file.ID] = file
		return true, nil
	})
	if err != nil {
		return models.ProjectFile{}, err
	}
	return file, nil
}

// UpdateFileContent replaces a file's body and refreshes derived fields.
func (s *FileProjectStore) UpdateFileContent(id string, content string) (models.ProjectFile, error) {
	var out models.ProjectFile
	err := s.withLock(func() (bool, error) {
		f, ok := s.files[id]
		if !ok {
			return false, fmt.Errorf("file with ID %s: %w", id, ErrNotFound)
		}
		f.SetContent(content, time.Now().UTC())
		s.files[id] = f
		out = f
		return true, nil
	})
	return out, err
}

// DeleteFile removes a file record by id.
func (s *FileProjectStore) DeleteFile(id string) error {
	return s.withLock(func() (bool, error) {
		if _, ok := s.files[id]; !ok {
			return false, fmt.Errorf("file with ID %s: %w", id, ErrNotFound)
		}
		delete(s.files, id)
		return true, nil
	})
}

// Close releases the file lock if held.
func (s *FileProjectStore) Close() error {
	if s.flk != nil {
		return s.flk.Unlock()
	}
	return nil
}
