package coder

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/octoprompt/octocoder/internal/agents"
	"github.com/octoprompt/octocoder/internal/runlog"
	"github.com/octoprompt/octocoder/models"
	"github.com/octoprompt/octocoder/types"
)

type scriptedPlanner struct {
	plan *models.TaskPlan
	err  error
}

func (p *scriptedPlanner) Plan(context.Context, agents.RunContext) (*models.TaskPlan, error) {
	return p.plan, p.err
}

func newOrchestratorHarness(t *testing.T, planner Planner, rw Rewriter) (*Orchestrator, string) {
	t.Helper()
	baseDir := t.TempDir()
	return NewOrchestrator(planner, rw, newTestStore(t), baseDir), baseDir
}

func TestOrchestratorSuccessfulRun(t *testing.T) {
	planner := &scriptedPlanner{plan: &models.TaskPlan{
		ProjectID:   "p1",
		OverallGoal: "rename the helper",
		Tasks:       []models.CoderTask{pendingTask("task-1", "Rewrite helper", "lib/helper.go")},
	}}
	rw := &scriptedRewriter{results: map[string]*models.FileRewriteResult{
		"task-1": {UpdatedContent: "package lib // v2\n"},
	}}
	orch, baseDir := newOrchestratorHarness(t, planner, rw)

	rc := agents.RunContext{
		ProjectID: "p1",
		UserInput: "rename the helper",
		ProjectFiles: []models.ProjectFile{
			fileRecord("f1", "p1", "lib/helper.go", "package lib\n"),
			fileRecord("f2", "p1", "lib/other.go", "package lib\n"),
		},
	}

	res, err := orch.Run(context.Background(), rc)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Log.FinalStatus != models.RunSuccess {
		t.Errorf("final status = %q, want success", res.Log.FinalStatus)
	}
	if len(res.UpdatedFiles) != 1 || res.UpdatedFiles[0].ID != "f1" {
		t.Fatalf("updated files = %+v, want just f1", res.UpdatedFiles)
	}
	if res.UpdatedFiles[0].Content != "package lib // v2\n" {
		t.Errorf("updated content = %q", res.UpdatedFiles[0].Content)
	}

	// The persisted summary matches what the caller got.
	saved, err := runlog.ReadSummary(baseDir, "p1", res.RunID)
	if err != nil {
		t.Fatalf("ReadSummary: %v", err)
	}
	if saved.FinalStatus != models.RunSuccess {
		t.Errorf("persisted final status = %q", saved.FinalStatus)
	}
	if saved.FinishedAt.IsZero() {
		t.Errorf("persisted summary missing finishedAt")
	}
	if len(saved.UpdatedFiles) != 1 {
		t.Errorf("persisted updated files = %d, want 1", len(saved.UpdatedFiles))
	}
	if saved.InitialPlan == nil || saved.InitialPlan.Tasks[0].Status != models.TaskPending {
		t.Errorf("initial plan should keep the pre-execution pending status: %+v", saved.InitialPlan)
	}
	if saved.FinalPlan == nil || saved.FinalPlan.Tasks[0].Status != models.TaskCompleted {
		t.Errorf("final plan should carry the terminal task status: %+v", saved.FinalPlan)
	}

	lines, err := runlog.ReadLines(baseDir, "p1", res.RunID)
	if err != nil {
		t.Fatalf("ReadLines: %v", err)
	}
	if len(lines) == 0 {
		t.Errorf("run produced no line-log entries")
	}
}

func TestOrchestratorNoTasksGenerated(t *testing.T) {
	planner := &scriptedPlanner{plan: &models.TaskPlan{ProjectID: "p1", OverallGoal: "nothing to do"}}
	rw := &scriptedRewriter{}
	orch, baseDir := newOrchestratorHarness(t, planner, rw)

	res, err := orch.Run(context.Background(), agents.RunContext{ProjectID: "p1", UserInput: "noop"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Log.FinalStatus != models.RunNoTasks {
		t.Errorf("final status = %q, want no_tasks_generated", res.Log.FinalStatus)
	}
	if len(res.UpdatedFiles) != 0 {
		t.Errorf("no-task run reported updated files: %+v", res.UpdatedFiles)
	}
	if len(rw.calls) != 0 {
		t.Errorf("rewriter invoked on a no-task run")
	}

	saved, err := runlog.ReadSummary(baseDir, "p1", res.RunID)
	if err != nil {
		t.Fatalf("ReadSummary: %v", err)
	}
	if saved.FinalStatus != models.RunNoTasks {
		t.Errorf("persisted final status = %q", saved.FinalStatus)
	}
}

func TestOrchestratorPlanningFailureStillWritesSummary(t *testing.T) {
	planErr := types.NewCoderError(types.CodePlanInvalid, "model returned garbage", nil)
	planner := &scriptedPlanner{err: planErr}
	orch, baseDir := newOrchestratorHarness(t, planner, &scriptedRewriter{})

	_, err := orch.Run(context.Background(), agents.RunContext{ProjectID: "p1", UserInput: "x"})
	if types.ErrorCode(err) != types.CodePlanInvalid {
		t.Fatalf("error = %v, want plan_invalid", err)
	}

	runs, lerr := runlog.ListRuns(baseDir, "p1")
	if lerr != nil || len(runs) != 1 {
		t.Fatalf("expected one recorded run, got %v (%v)", runs, lerr)
	}
	saved, serr := runlog.ReadSummary(baseDir, "p1", runs[0])
	if serr != nil {
		t.Fatalf("ReadSummary: %v", serr)
	}
	if saved.FinalStatus != models.RunError {
		t.Errorf("final status = %q, want error", saved.FinalStatus)
	}
	if saved.ErrorMessage == "" || saved.ErrorStack == "" {
		t.Errorf("failure summary missing message or stack: %+v", saved)
	}
	if saved.InitialPlan != nil {
		t.Errorf("planning failure should not record an initial plan")
	}
}

func TestOrchestratorLoggerInitFailure(t *testing.T) {
	planner := &scriptedPlanner{plan: &models.TaskPlan{ProjectID: "p1", Tasks: []models.CoderTask{
		pendingTask("task-1", "Never reached", "a.go"),
	}}}
	rw := &scriptedRewriter{}

	// A regular file where the project's run-log directory belongs makes the
	// log directory creation fail before planning starts.
	baseDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(baseDir, "p1"), []byte("in the way"), 0o644); err != nil {
		t.Fatal(err)
	}
	orch := NewOrchestrator(planner, rw, newTestStore(t), baseDir)

	res, err := orch.Run(context.Background(), agents.RunContext{ProjectID: "p1", UserInput: "x"})
	if res != nil {
		t.Fatalf("expected no result, got %+v", res)
	}
	if types.ErrorCode(err) != types.CodeLoggerInit {
		t.Fatalf("error = %v, want logger_init_failed", err)
	}
	if len(rw.calls) != 0 {
		t.Errorf("rewriter invoked after logger init failure")
	}

	// The summary write is best-effort: with the whole project directory
	// blocked it cannot land, and it must not disturb the blocking path.
	data, rerr := os.ReadFile(filepath.Join(baseDir, "p1"))
	if rerr != nil || string(data) != "in the way" {
		t.Errorf("blocking path disturbed: %q (%v)", data, rerr)
	}
}

func TestLoggerInitFailureSummaryRoundTrips(t *testing.T) {
	// The record the orchestrator persists when the logger cannot be opened:
	// written without a RunLogger, readable back with the error status intact.
	baseDir := t.TempDir()
	rec := &models.AgentRunLog{
		ProjectID:    "p1",
		RunID:        "run-x",
		StartedAt:    time.Now().UTC(),
		FinishedAt:   time.Now().UTC(),
		FinalStatus:  models.RunError,
		ErrorMessage: "logger_init_failed: initialize run logger",
		UpdatedFiles: []models.ProjectFile{},
	}
	if err := runlog.WriteSummaryFile(baseDir, "p1", "run-x", rec); err != nil {
		t.Fatalf("WriteSummaryFile: %v", err)
	}

	saved, err := runlog.ReadSummary(baseDir, "p1", "run-x")
	if err != nil {
		t.Fatalf("ReadSummary: %v", err)
	}
	if saved.FinalStatus != models.RunError {
		t.Errorf("final status = %q, want error", saved.FinalStatus)
	}
	if saved.ErrorMessage == "" {
		t.Error("error message lost in the round trip")
	}
}

func TestOrchestratorExecutionFailureRecordsFinalPlan(t *testing.T) {
	planner := &scriptedPlanner{plan: &models.TaskPlan{ProjectID: "p1", Tasks: []models.CoderTask{
		pendingTask("task-1", "Works", "a.go"),
		pendingTask("task-2", "Breaks", "b.go"),
	}}}
	rw := &scriptedRewriter{
		results: map[string]*models.FileRewriteResult{"task-1": {UpdatedContent: "changed"}},
		errs:    map[string]error{"task-2": types.NewCoderError(types.CodeRewrite, "boom", nil)},
	}
	orch, baseDir := newOrchestratorHarness(t, planner, rw)

	rc := agents.RunContext{ProjectID: "p1", UserInput: "x", ProjectFiles: []models.ProjectFile{
		fileRecord("f1", "p1", "a.go", "a"),
		fileRecord("f2", "p1", "b.go", "b"),
	}}

	_, err := orch.Run(context.Background(), rc)
	if types.ErrorCode(err) != types.CodeRewrite {
		t.Fatalf("error = %v, want rewrite_failed", err)
	}

	runs, _ := runlog.ListRuns(baseDir, "p1")
	if len(runs) != 1 {
		t.Fatalf("expected one run, got %v", runs)
	}
	saved, serr := runlog.ReadSummary(baseDir, "p1", runs[0])
	if serr != nil {
		t.Fatalf("ReadSummary: %v", serr)
	}
	if saved.FinalStatus != models.RunError {
		t.Errorf("final status = %q, want error", saved.FinalStatus)
	}
	if saved.FinalPlan == nil {
		t.Fatal("execution failure must still record the final plan")
	}
	got := []models.CoderTaskStatus{saved.FinalPlan.Tasks[0].Status, saved.FinalPlan.Tasks[1].Status}
	if got[0] != models.TaskCompleted || got[1] != models.TaskFailed {
		t.Errorf("final plan statuses = %v", got)
	}
	// The completed task's change is reported even though the run failed.
	if len(saved.UpdatedFiles) != 1 || saved.UpdatedFiles[0].ID != "f1" {
		t.Errorf("updated files on failure = %+v, want just f1", saved.UpdatedFiles)
	}
}

func TestOrchestratorChecksumNoOpExcludedFromUpdatedFiles(t *testing.T) {
	planner := &scriptedPlanner{plan: &models.TaskPlan{ProjectID: "p1", Tasks: []models.CoderTask{
		pendingTask("task-1", "No-op", "a.go"),
	}}}
	rw := &scriptedRewriter{results: map[string]*models.FileRewriteResult{
		"task-1": {UpdatedContent: "unchanged body"},
	}}
	orch, _ := newOrchestratorHarness(t, planner, rw)

	rc := agents.RunContext{ProjectID: "p1", UserInput: "x", ProjectFiles: []models.ProjectFile{
		fileRecord("f1", "p1", "a.go", "unchanged body"),
	}}

	res, err := orch.Run(context.Background(), rc)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Log.FinalStatus != models.RunSuccess {
		t.Errorf("final status = %q", res.Log.FinalStatus)
	}
	if len(res.UpdatedFiles) != 0 {
		t.Errorf("checksum no-op leaked into updated files: %+v", res.UpdatedFiles)
	}
}

func TestOrchestratorCompletedPlanIsIdempotent(t *testing.T) {
	planner := &scriptedPlanner{plan: &models.TaskPlan{ProjectID: "p1", Tasks: []models.CoderTask{
		{ID: "task-1", Title: "Already done", TargetFilePath: "a.go", Status: models.TaskCompleted},
	}}}
	rw := &scriptedRewriter{}
	orch, _ := newOrchestratorHarness(t, planner, rw)

	rc := agents.RunContext{ProjectID: "p1", UserInput: "x", ProjectFiles: []models.ProjectFile{
		fileRecord("f1", "p1", "a.go", "a"),
	}}

	res, err := orch.Run(context.Background(), rc)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Log.FinalStatus != models.RunSuccess {
		t.Errorf("final status = %q, want success", res.Log.FinalStatus)
	}
	if len(rw.calls) != 0 {
		t.Errorf("rewriter invoked for a fully completed plan")
	}
	if len(res.UpdatedFiles) != 0 {
		t.Errorf("idempotent run reported updates: %+v", res.UpdatedFiles)
	}
}

func TestOrchestratorFilesWithoutChecksumsGetOne(t *testing.T) {
	planner := &scriptedPlanner{plan: &models.TaskPlan{ProjectID: "p1", Tasks: []models.CoderTask{
		pendingTask("task-1", "No-op", "a.go"),
	}}}
	rw := &scriptedRewriter{results: map[string]*models.FileRewriteResult{
		"task-1": {UpdatedContent: "body"},
	}}
	orch, _ := newOrchestratorHarness(t, planner, rw)

	// Snapshot record arrives without a checksum; the orchestrator fills it
	// in so no-op detection still works.
	rc := agents.RunContext{ProjectID: "p1", UserInput: "x", ProjectFiles: []models.ProjectFile{
		{ID: "f1", ProjectID: "p1", Name: "a.go", Path: "a.go", Content: "body"},
	}}

	res, err := orch.Run(context.Background(), rc)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.UpdatedFiles) != 0 {
		t.Errorf("identical rewrite counted as an update: %+v", res.UpdatedFiles)
	}
}

func TestOrchestratorProjectIDMismatchPlanWins(t *testing.T) {
	planner := &scriptedPlanner{plan: &models.TaskPlan{ProjectID: "other", Tasks: []models.CoderTask{
		pendingTask("task-1", "Create", "n.go"),
	}}}
	rw := &scriptedRewriter{results: map[string]*models.FileRewriteResult{
		"task-1": {UpdatedContent: "x"},
	}}
	orch, baseDir := newOrchestratorHarness(t, planner, rw)

	res, err := orch.Run(context.Background(), agents.RunContext{ProjectID: "p1", UserInput: "x"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Plan.ProjectID != "other" {
		t.Errorf("plan project id overridden to %q", res.Plan.ProjectID)
	}
	// The run log still lives under the requesting project.
	if _, serr := runlog.ReadSummary(baseDir, "p1", res.RunID); serr != nil {
		t.Errorf("summary not recorded under request project: %v", serr)
	}
}
