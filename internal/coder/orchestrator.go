package coder

import (
	"context"
	"runtime/debug"
	"slices"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/octoprompt/octocoder/internal/agents"
	"github.com/octoprompt/octocoder/internal/runlog"
	"github.com/octoprompt/octocoder/models"
	"github.com/octoprompt/octocoder/store"
	"github.com/octoprompt/octocoder/types"
)

// Orchestrator drives one complete agent-coder run: plan, execute, and record.
// Every run writes a summary record exactly once, whatever path it exits on.
type Orchestrator struct {
	planner  Planner
	rewriter Rewriter
	store    store.ProjectFileStore
	baseDir  string
}

// NewOrchestrator wires a planner, rewriter and file store over the run-log
// directory rooted at baseDir.
func NewOrchestrator(planner Planner, rewriter Rewriter, st store.ProjectFileStore, baseDir string) *Orchestrator {
	return &Orchestrator{planner: planner, rewriter: rewriter, store: st, baseDir: baseDir}
}

// RunResult is what a successful run hands back to the caller.
type RunResult struct {
	// UpdatedFiles holds only files whose content actually changed during
	// the run, sorted by path.
	UpdatedFiles []models.ProjectFile
	// Plan is the final plan with per-task terminal statuses.
	Plan *models.TaskPlan
	// RunID names the run's log directory.
	RunID string
	// Log is the summary record as persisted.
	Log *models.AgentRunLog
}

// Run executes the full pipeline for one request. The returned error carries
// a CoderError code; the summary on disk records the same failure.
func (o *Orchestrator) Run(ctx context.Context, rc agents.RunContext) (*RunResult, error) {
	runID := uuid.New().String()

	rec := &models.AgentRunLog{
		ProjectID:    rc.ProjectID,
		RunID:        runID,
		StartedAt:    time.Now().UTC(),
		UpdatedFiles: []models.ProjectFile{},
	}

	logger, err := runlog.Open(o.baseDir, rc.ProjectID, runID)
	if err != nil {
		initErr := types.WrapCoderError(types.CodeLoggerInit, "initialize run logger", err,
			map[string]interface{}{"runId": runID})
		rec.FinalStatus = models.RunError
		rec.ErrorMessage = initErr.Error()
		rec.FinishedAt = time.Now().UTC()
		// Best effort: the directory may be unwritable, which is the very
		// thing that failed above.
		_ = runlog.WriteSummaryFile(o.baseDir, rc.ProjectID, runID, rec)
		return nil, initErr
	}

	finalized := false
	finalize := func() {
		if finalized {
			return
		}
		finalized = true
		if rec.FinalStatus == "" {
			rec.FinalStatus = models.RunError
			rec.ErrorMessage = "run terminated without a final status"
			logger.Error(rec.ErrorMessage, nil)
		}
		rec.FinishedAt = time.Now().UTC()
		if werr := logger.WriteSummary(rec); werr != nil {
			logger.Error("failed to write run summary", map[string]any{"error": werr.Error()})
		}
		logger.Info("run finished", map[string]any{"finalStatus": string(rec.FinalStatus)})
		_ = logger.Close()
	}
	defer finalize()

	logger.Info("run started", map[string]any{
		"projectId": rc.ProjectID, "runId": runID, "userInput": rc.UserInput,
	})

	// Seed the in-memory file state from the context snapshot, making sure
	// every record carries a checksum so no-op detection works.
	files := make(map[string]models.ProjectFile, len(rc.ProjectFiles))
	originals := make(map[string]string, len(rc.ProjectFiles))
	for _, f := range rc.ProjectFiles {
		if f.Checksum == "" {
			f.Checksum = models.FileChecksum(f.Content)
		}
		files[f.ID] = f
		originals[f.ID] = f.Checksum
	}

	plan, err := o.planner.Plan(ctx, rc)
	if err != nil {
		rec.FinalStatus = models.RunError
		rec.ErrorMessage = err.Error()
		rec.ErrorStack = string(debug.Stack())
		logger.Error("planning failed", map[string]any{"error": err.Error()})
		return nil, err
	}

	rec.InitialPlan = snapshotPlan(plan)
	logger.Info("plan generated", map[string]any{
		"taskCount": len(plan.Tasks), "overallGoal": plan.OverallGoal,
	})

	if plan.ProjectID != rc.ProjectID {
		logger.Warn("plan project id differs from request context; keeping the plan's", map[string]any{
			"planProjectId": plan.ProjectID, "contextProjectId": rc.ProjectID,
		})
	}

	if len(plan.Tasks) == 0 {
		rec.FinalStatus = models.RunNoTasks
		rec.FinalPlan = snapshotPlan(plan)
		logger.Info("plan contains no tasks; nothing to execute", nil)
		return &RunResult{UpdatedFiles: []models.ProjectFile{}, Plan: plan, RunID: runID, Log: rec}, nil
	}

	executor := NewExecutor(o.store, o.rewriter, logger)
	files, execErr := executor.Run(ctx, plan, files)

	// The final plan records whatever statuses execution reached, on the
	// failure path included.
	rec.FinalPlan = snapshotPlan(plan)

	changed := changedFiles(files, originals)
	rec.UpdatedFiles = changed

	if execErr != nil {
		rec.FinalStatus = models.RunError
		rec.ErrorMessage = execErr.Error()
		rec.ErrorStack = string(debug.Stack())
		return nil, execErr
	}

	rec.FinalStatus = models.RunSuccess
	logger.Info("all tasks executed", map[string]any{"updatedFileCount": len(changed)})

	return &RunResult{UpdatedFiles: changed, Plan: plan, RunID: runID, Log: rec}, nil
}

// snapshotPlan deep-copies a plan so later task mutations cannot leak into an
// earlier snapshot.
func snapshotPlan(plan *models.TaskPlan) *models.TaskPlan {
	cp := *plan
	cp.Tasks = slices.Clone(plan.Tasks)
	for i := range cp.Tasks {
		cp.Tasks[i].Dependencies = slices.Clone(plan.Tasks[i].Dependencies)
	}
	return &cp
}

// changedFiles returns files whose checksum differs from the run-start
// snapshot, plus files created during the run, sorted by path.
func changedFiles(files map[string]models.ProjectFile, originals map[string]string) []models.ProjectFile {
	changed := make([]models.ProjectFile, 0)
	for id, f := range files {
		orig, existed := originals[id]
		if !existed || f.Checksum != orig {
			changed = append(changed, f)
		}
	}
	sort.Slice(changed, func(i, j int) bool { return changed[i].Path < changed[j].Path })
	return changed
}
