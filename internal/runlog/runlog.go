// Package runlog persists agent-coder run progress: an append-only JSONL
// line-log written while a run executes, and a single pretty-printed summary
// document written once at the end.
package runlog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/octoprompt/octocoder/models"
)

const (
	lineLogName = "run.jsonl"
	summaryName = "data.json"
)

// Level is the severity of one line-log entry.
type Level string

const (
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Entry is one parsed line of a run's line-log.
type Entry struct {
	Timestamp time.Time      `json:"timestamp"`
	Level     Level          `json:"level"`
	Message   string         `json:"message"`
	Data      map[string]any `json:"data,omitempty"`
}

// RunLogger owns the log artifacts of exactly one run. Construct it at run
// start and discard it at run end; it is never shared across runs.
type RunLogger struct {
	mu     sync.Mutex
	dir    string
	handle *os.File
}

// RunDir returns the directory holding one run's artifacts.
func RunDir(baseDir, projectID, runID string) string {
	return filepath.Join(baseDir, projectID, runID)
}

// Open ensures the run's directory exists, opens the line-log for append, and
// writes a start marker. Failure here is fatal to the run and propagates.
func Open(baseDir, projectID, runID string) (*RunLogger, error) {
	dir := RunDir(baseDir, projectID, runID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create run log directory %s: %w", dir, err)
	}

	handle, err := os.OpenFile(filepath.Join(dir, lineLogName), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open run line-log: %w", err)
	}

	l := &RunLogger{dir: dir, handle: handle}
	l.Append(LevelInfo, "run log started", map[string]any{"projectId": projectID, "runId": runID})
	return l, nil
}

// Append writes one JSON line and syncs it. Append never fails the run: a
// data value that cannot be marshaled is replaced by its error string, and a
// nil or closed handle degrades to stderr output.
func (l *RunLogger) Append(level Level, message string, data map[string]any) {
	entry := Entry{
		Timestamp: time.Now().UTC(),
		Level:     level,
		Message:   message,
		Data:      data,
	}

	line, err := json.Marshal(entry)
	if err != nil {
		fallback := Entry{
			Timestamp: entry.Timestamp,
			Level:     LevelError,
			Message:   message,
			Data:      map[string]any{"marshalError": err.Error()},
		}
		line, err = json.Marshal(fallback)
		if err != nil {
			fmt.Fprintf(os.Stderr, "[runlog] %s %s (unloggable data)\n", level, message)
			return
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.handle == nil {
		fmt.Fprintf(os.Stderr, "[runlog] %s\n", line)
		return
	}
	if _, err := l.handle.Write(append(line, '\n')); err != nil {
		fmt.Fprintf(os.Stderr, "[runlog] write failed: %v: %s\n", err, line)
		return
	}
	_ = l.handle.Sync()
}

// Info appends an informational entry.
func (l *RunLogger) Info(message string, data map[string]any) { l.Append(LevelInfo, message, data) }

// Warn appends a warning entry.
func (l *RunLogger) Warn(message string, data map[string]any) { l.Append(LevelWarn, message, data) }

// Error appends an error entry.
func (l *RunLogger) Error(message string, data map[string]any) { l.Append(LevelError, message, data) }

// WriteSummary overwrites the run's summary document with the full record,
// pretty-printed, via an atomic temp-file rename.
func (l *RunLogger) WriteSummary(rec *models.AgentRunLog) error {
	return writeSummaryTo(l.dir, rec)
}

// WriteSummaryFile persists a run summary without an open RunLogger. The
// orchestrator uses it as the best-effort record when the logger itself could
// not be opened.
func WriteSummaryFile(baseDir, projectID, runID string, rec *models.AgentRunLog) error {
	dir := RunDir(baseDir, projectID, runID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create run log directory %s: %w", dir, err)
	}
	return writeSummaryTo(dir, rec)
}

func writeSummaryTo(dir string, rec *models.AgentRunLog) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal run summary: %w", err)
	}

	path := filepath.Join(dir, summaryName)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write run summary: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename run summary: %w", err)
	}
	return nil
}

// Close closes the line-log handle. Further Appends degrade to stderr.
func (l *RunLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.handle == nil {
		return nil
	}
	err := l.handle.Close()
	l.handle = nil
	return err
}

// ListRuns returns the run ids persisted for a project, sorted. A project
// with no runs (or no run-log root at all) yields an empty list, not an error.
func ListRuns(baseDir, projectID string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(baseDir, projectID))
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("list runs for project %s: %w", projectID, err)
	}

	runs := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			runs = append(runs, e.Name())
		}
	}
	sort.Strings(runs)
	return runs, nil
}

// DeleteRun removes a run's entire directory tree.
func DeleteRun(baseDir, projectID, runID string) error {
	return os.RemoveAll(RunDir(baseDir, projectID, runID))
}

// ReadSummary loads a run's persisted summary document.
func ReadSummary(baseDir, projectID, runID string) (*models.AgentRunLog, error) {
	data, err := os.ReadFile(filepath.Join(RunDir(baseDir, projectID, runID), summaryName))
	if err != nil {
		return nil, fmt.Errorf("read run summary: %w", err)
	}
	var rec models.AgentRunLog
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("parse run summary: %w", err)
	}
	return &rec, nil
}

// ReadLines parses a run's line-log. Unparseable lines are preserved as
// error-level entries rather than dropped.
func ReadLines(baseDir, projectID, runID string) ([]Entry, error) {
	data, err := os.ReadFile(filepath.Join(RunDir(baseDir, projectID, runID), lineLogName))
	if err != nil {
		return nil, fmt.Errorf("read run line-log: %w", err)
	}

	var entries []Entry
	for _, line := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		var e Entry
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			entries = append(entries, Entry{Level: LevelError, Message: "unparseable log line", Data: map[string]any{"raw": line}})
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}
