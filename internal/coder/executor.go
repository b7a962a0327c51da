// Package coder implements the agent-coder pipeline: an LLM-planned task
// plan executed one task at a time, each task creating or rewriting exactly
// one project file.
package coder

import (
	"context"
	"fmt"
	"time"

	"github.com/octoprompt/octocoder/internal/agents"
	"github.com/octoprompt/octocoder/internal/runlog"
	"github.com/octoprompt/octocoder/models"
	"github.com/octoprompt/octocoder/store"
	"github.com/octoprompt/octocoder/types"
)

// Planner produces a validated task plan for one run.
type Planner interface {
	Plan(ctx context.Context, rc agents.RunContext) (*models.TaskPlan, error)
}

// Rewriter produces the full new body of one task's target file.
// current is nil for creation tasks.
type Rewriter interface {
	Rewrite(ctx context.Context, task models.CoderTask, current *string) (*models.FileRewriteResult, error)
}

// taskOutcome tags the result of one executed task. Failure is signaled by
// error, not by a tag.
type taskOutcome int

const (
	// outcomeSkipped: the task was not pending and was left untouched.
	outcomeSkipped taskOutcome = iota
	// outcomeCompleted: the file-state map was updated.
	outcomeCompleted
	// outcomeUnchanged: the rewrite produced content with the original
	// checksum; the file-state map entry was left untouched.
	outcomeUnchanged
)

// Executor turns a task plan into file-state changes, strictly in plan order,
// stopping at the first failure. It owns the file-state map for the duration
// of one run.
type Executor struct {
	store    store.ProjectFileStore
	rewriter Rewriter
	log      *runlog.RunLogger
}

// NewExecutor creates an executor writing through the given store and logger.
func NewExecutor(st store.ProjectFileStore, rewriter Rewriter, log *runlog.RunLogger) *Executor {
	return &Executor{store: st, rewriter: rewriter, log: log}
}

// Run executes every pending task in plan order, mutating task statuses in
// the plan and file records in the map. On the first task failure the failed
// task is marked, the error returns immediately, and later tasks keep their
// prior status. Already-applied file changes are never rolled back.
func (e *Executor) Run(ctx context.Context, plan *models.TaskPlan, files map[string]models.ProjectFile) (map[string]models.ProjectFile, error) {
	for i := range plan.Tasks {
		task := &plan.Tasks[i]

		if task.Status != models.TaskPending {
			e.log.Info("skipping task not in pending status", map[string]any{
				"taskId": task.ID, "status": string(task.Status),
			})
			continue
		}

		task.Status = models.TaskInProgress
		task.TargetFilePath = models.NormalizePath(task.TargetFilePath)
		e.log.Info("task started", map[string]any{
			"taskId": task.ID, "title": task.Title, "path": task.TargetFilePath,
		})

		outcome, err := e.step(ctx, task, plan.ProjectID, files)
		if err != nil {
			task.Status = models.TaskFailed
			e.log.Error("task failed", map[string]any{
				"taskId": task.ID, "title": task.Title, "path": task.TargetFilePath, "error": err.Error(),
			})
			return files, err
		}

		task.Status = models.TaskCompleted
		switch outcome {
		case outcomeUnchanged:
			e.log.Info("task completed with no content change", map[string]any{"taskId": task.ID})
		default:
			e.log.Info("task completed", map[string]any{"taskId": task.ID, "path": task.TargetFilePath})
		}
	}
	return files, nil
}

// step runs one pending task: resolve creation vs. modification by normalized
// path, invoke the rewrite agent, and reconcile the result into the map.
func (e *Executor) step(ctx context.Context, task *models.CoderTask, projectID string, files map[string]models.ProjectFile) (taskOutcome, error) {
	existing, found := findByPath(files, task.TargetFilePath)

	// A declared target file id that disagrees with the path lookup is
	// logged, not fatal: the path match wins.
	if task.TargetFileID != "" {
		if found && existing.ID != task.TargetFileID {
			e.log.Error("task target file id does not match the file at its path; using the path match", map[string]any{
				"taskId": task.ID, "declaredFileId": task.TargetFileID, "resolvedFileId": existing.ID,
			})
		} else if !found {
			e.log.Error("task declared a target file id but no file exists at its path; creating a new file", map[string]any{
				"taskId": task.ID, "declaredFileId": task.TargetFileID, "path": task.TargetFilePath,
			})
		}
	}

	if !found {
		return e.createFile(ctx, task, projectID, files)
	}
	return e.modifyFile(ctx, task, existing, files)
}

// createFile makes a placeholder record first so the rewrite result has a
// stable file id to land on.
func (e *Executor) createFile(ctx context.Context, task *models.CoderTask, projectID string, files map[string]models.ProjectFile) (taskOutcome, error) {
	placeholder, err := e.store.CreatePlaceholder(projectID, task.TargetFilePath)
	if err != nil {
		return 0, types.WrapCoderError(types.CodeInternal,
			fmt.Sprintf("create placeholder for task %q (%s) at %s", task.Title, task.ID, task.TargetFilePath),
			err, map[string]interface{}{"taskId": task.ID, "path": task.TargetFilePath})
	}

	result, err := e.rewriter.Rewrite(ctx, *task, nil)
	if err != nil {
		return 0, err
	}

	updated, err := e.store.UpdateFileContent(placeholder.ID, result.UpdatedContent)
	if err != nil {
		return 0, types.WrapCoderError(types.CodeInternal,
			fmt.Sprintf("persist created file for task %q (%s)", task.Title, task.ID),
			err, map[string]interface{}{"taskId": task.ID, "fileId": placeholder.ID})
	}

	files[updated.ID] = updated
	task.TargetFileID = updated.ID
	return outcomeCompleted, nil
}

// modifyFile rewrites an existing file in the in-memory map only; persisting
// modification-path content is the caller's responsibility after the run.
func (e *Executor) modifyFile(ctx context.Context, task *models.CoderTask, existing models.ProjectFile, files map[string]models.ProjectFile) (taskOutcome, error) {
	current := existing.Content
	result, err := e.rewriter.Rewrite(ctx, *task, &current)
	if err != nil {
		return 0, err
	}

	task.TargetFileID = existing.ID

	if models.FileChecksum(result.UpdatedContent) == existing.Checksum {
		return outcomeUnchanged, nil
	}

	existing.SetContent(result.UpdatedContent, time.Now().UTC())
	files[existing.ID] = existing
	return outcomeCompleted, nil
}

// findByPath scans the file-state map for a record at the given normalized path.
func findByPath(files map[string]models.ProjectFile, normalized string) (models.ProjectFile, bool) {
	for _, f := range files {
		if models.NormalizePath(f.Path) == normalized {
			return f, true
		}
	}
	return models.ProjectFile{}, false
}
