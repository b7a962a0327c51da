package store

import (
	"errors"

	"github.com/octoprompt/octocoder/models"
)

// ErrNotFound reports a lookup for a file id the store does not hold.
var ErrNotFound = errors.New("file not found")

// ProjectFileStore defines the interface for project-file persistence.
// The agent-coder orchestrator reads the collection once when a run's context
// is built, creates placeholder records on its file-creation path, and writes
// rewritten content through UpdateFileContent.
type ProjectFileStore interface {
	// Initialize configures the store with backend-specific settings such as
	// the data file path and serialization format. It must be called before
	// any other operation.
	Initialize(config map[string]string) error

	// ListFiles returns every file record belonging to the given project.
	// An unknown project yields an empty slice, not an error.
	ListFiles(projectID string) ([]models.ProjectFile, error)

	// GetFile retrieves a file record by its unique identifier. An unknown
	// id yields an error wrapping ErrNotFound.
	GetFile(id string) (models.ProjectFile, error)

	// FindByPath looks up a project's file by its normalized path.
	// The boolean reports whether a record was found.
	FindByPath(projectID, path string) (models.ProjectFile, bool, error)

	// CreatePlaceholder inserts an empty file record for the given path and
	// returns it with a store-generated id. The record's content is empty and
	// its checksum reflects that.
	CreatePlaceholder(projectID, path string) (models.ProjectFile, error)

	// UpdateFileContent replaces a file's body, recomputing checksum, size and
	// the update timestamp, and returns the updated record.
	UpdateFileContent(id string, content string) (models.ProjectFile, error)

	// DeleteFile removes a file record by id. An unknown id yields an error
	// wrapping ErrNotFound.
	DeleteFile(id string) error

	// Close releases any resources held by the store, such as file locks.
	Close() error
}
