package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/octoprompt/octocoder/internal/agents"
	"github.com/octoprompt/octocoder/internal/runlog"
	"github.com/octoprompt/octocoder/models"
	"github.com/octoprompt/octocoder/store"
)

// handleAgentCoder triggers one synchronous orchestrator run.
func (s *Server) handleAgentCoder(w http.ResponseWriter, r *http.Request) {
	projectID := r.PathValue("projectID")

	var req AgentCoderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.UserInput) == "" {
		http.Error(w, "userInput is required", http.StatusBadRequest)
		return
	}

	files, err := s.store.ListFiles(projectID)
	if err != nil {
		writeAPIError(w, fmt.Errorf("list project files: %w", err))
		return
	}

	rc := agents.RunContext{
		ProjectID:       projectID,
		UserInput:       req.UserInput,
		ProjectFiles:    files,
		SelectedFileIDs: req.SelectedFileIDs,
		PriorPrompts:    req.PriorPrompts,
		ProjectSummary:  req.ProjectSummary,
	}

	res, err := s.runner.Run(r.Context(), rc)
	if err != nil {
		// The run's summary is already on disk; the error response only
		// reports why the run stopped.
		writeAPIError(w, err)
		return
	}

	writeAPIJSON(w, AgentCoderResponse{
		RunID:        res.RunID,
		TaskPlan:     res.Plan,
		UpdatedFiles: res.UpdatedFiles,
	})
}

// handleListRuns returns the ids of a project's persisted runs.
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	projectID := r.PathValue("projectID")

	runs, err := runlog.ListRuns(s.runLogDir, projectID)
	if err != nil {
		writeAPIError(w, fmt.Errorf("list runs: %w", err))
		return
	}

	writeAPIJSON(w, runs)
}

// handleRunLogs returns the parsed line-log of one run.
func (s *Server) handleRunLogs(w http.ResponseWriter, r *http.Request) {
	projectID := r.PathValue("projectID")
	runID := r.PathValue("runID")

	entries, err := runlog.ReadLines(s.runLogDir, projectID, runID)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			http.Error(w, "run not found", http.StatusNotFound)
			return
		}
		writeAPIError(w, fmt.Errorf("read run logs: %w", err))
		return
	}

	writeAPIJSON(w, entries)
}

// handleRunData returns the persisted run summary.
func (s *Server) handleRunData(w http.ResponseWriter, r *http.Request) {
	projectID := r.PathValue("projectID")
	runID := r.PathValue("runID")

	rec, err := runlog.ReadSummary(s.runLogDir, projectID, runID)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			http.Error(w, "run not found", http.StatusNotFound)
			return
		}
		writeAPIError(w, fmt.Errorf("read run summary: %w", err))
		return
	}

	writeAPIJSON(w, rec)
}

// handleDeleteRun removes a run's log directory.
func (s *Server) handleDeleteRun(w http.ResponseWriter, r *http.Request) {
	projectID := r.PathValue("projectID")
	runID := r.PathValue("runID")

	if err := runlog.DeleteRun(s.runLogDir, projectID, runID); err != nil {
		writeAPIError(w, fmt.Errorf("delete run: %w", err))
		return
	}

	writeAPIJSON(w, map[string]string{"deleted": runID})
}

// handleListFiles returns the project's file records.
func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	projectID := r.PathValue("projectID")

	files, err := s.store.ListFiles(projectID)
	if err != nil {
		writeAPIError(w, fmt.Errorf("list project files: %w", err))
		return
	}

	writeAPIJSON(w, files)
}

// handleGetFile returns one file record. A record belonging to a different
// project is indistinguishable from a missing one.
func (s *Server) handleGetFile(w http.ResponseWriter, r *http.Request) {
	projectID := r.PathValue("projectID")
	fileID := r.PathValue("fileID")

	file, err := s.store.GetFile(fileID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "file not found", http.StatusNotFound)
			return
		}
		writeAPIError(w, fmt.Errorf("get file: %w", err))
		return
	}
	if file.ProjectID != projectID {
		http.Error(w, "file not found", http.StatusNotFound)
		return
	}

	writeAPIJSON(w, file)
}

// handleDeleteFile removes one file record from the store.
func (s *Server) handleDeleteFile(w http.ResponseWriter, r *http.Request) {
	projectID := r.PathValue("projectID")
	fileID := r.PathValue("fileID")

	file, err := s.store.GetFile(fileID)
	if err == nil && file.ProjectID != projectID {
		err = store.ErrNotFound
	}
	if err == nil {
		err = s.store.DeleteFile(fileID)
	}
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "file not found", http.StatusNotFound)
			return
		}
		writeAPIError(w, fmt.Errorf("delete file: %w", err))
		return
	}

	writeAPIJSON(w, map[string]string{"deleted": fileID})
}

// handleConfirmRun writes a run's updated files to the project directory,
// skipping files whose on-disk content already carries the run's checksum.
func (s *Server) handleConfirmRun(w http.ResponseWriter, r *http.Request) {
	projectID := r.PathValue("projectID")
	runID := r.PathValue("runID")

	rec, err := runlog.ReadSummary(s.runLogDir, projectID, runID)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			http.Error(w, "run not found", http.StatusNotFound)
			return
		}
		writeAPIError(w, fmt.Errorf("read run summary: %w", err))
		return
	}

	// Validate every path before touching disk so a rejected confirm leaves
	// the project directory untouched.
	rels := make([]string, len(rec.UpdatedFiles))
	for i, f := range rec.UpdatedFiles {
		rel := models.NormalizePath(f.Path)
		if rel == "" || rel == ".." || strings.HasPrefix(rel, "../") {
			http.Error(w, fmt.Sprintf("file path escapes the project directory: %s", f.Path), http.StatusBadRequest)
			return
		}
		rels[i] = rel
	}

	resp := ConfirmResponse{WrittenFiles: []string{}, SkippedFiles: []string{}}
	for i, f := range rec.UpdatedFiles {
		rel := rels[i]
		target := filepath.Join(s.projectDir, filepath.FromSlash(rel))

		if onDisk, rerr := os.ReadFile(target); rerr == nil {
			if models.FileChecksum(string(onDisk)) == f.Checksum {
				resp.SkippedFiles = append(resp.SkippedFiles, rel)
				continue
			}
		}

		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			writeAPIError(w, fmt.Errorf("create directory for %s: %w", rel, err))
			return
		}
		if err := os.WriteFile(target, []byte(f.Content), 0o644); err != nil {
			writeAPIError(w, fmt.Errorf("write %s: %w", rel, err))
			return
		}
		resp.WrittenFiles = append(resp.WrittenFiles, rel)
	}

	writeAPIJSON(w, resp)
}
