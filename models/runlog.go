package models

import "time"

// RunStatus is the terminal status of one orchestrator run.
type RunStatus string

const (
	RunSuccess RunStatus = "success"
	RunFailed  RunStatus = "failed"
	RunNoTasks RunStatus = "no_tasks_generated"
	RunError   RunStatus = "error"
)

// AgentRunLog is the persisted summary of one orchestrator invocation.
// It is written exactly once, at the end of the run, on every code path.
type AgentRunLog struct {
	ProjectID    string        `json:"projectId" validate:"required"`
	RunID        string        `json:"runId" validate:"required"`
	StartedAt    time.Time     `json:"startedAt" validate:"required"`
	FinishedAt   time.Time     `json:"finishedAt,omitzero"`
	InitialPlan  *TaskPlan     `json:"initialPlan,omitempty"`
	FinalPlan    *TaskPlan     `json:"finalPlan,omitempty"`
	FinalStatus  RunStatus     `json:"finalStatus" validate:"required,oneof=success failed no_tasks_generated error"`
	ErrorMessage string        `json:"errorMessage,omitempty"`
	ErrorStack   string        `json:"errorStack,omitempty"`
	UpdatedFiles []ProjectFile `json:"updatedFiles"`
}
