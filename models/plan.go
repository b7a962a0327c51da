package models

import "strings"

// CoderTaskStatus represents the execution state of one planned task.
type CoderTaskStatus string

const (
	TaskPending    CoderTaskStatus = "pending"
	TaskInProgress CoderTaskStatus = "in-progress"
	TaskCompleted  CoderTaskStatus = "completed"
	TaskFailed     CoderTaskStatus = "failed"
)

// TaskComplexity is the planner's rough effort estimate for a task.
type TaskComplexity string

const (
	ComplexityLow    TaskComplexity = "low"
	ComplexityMedium TaskComplexity = "medium"
	ComplexityHigh   TaskComplexity = "high"
)

// ParseComplexity maps a free-form complexity string onto the known enum.
// Unrecognized values become the empty complexity rather than failing the plan.
func ParseComplexity(s string) TaskComplexity {
	switch TaskComplexity(strings.ToLower(strings.TrimSpace(s))) {
	case ComplexityLow:
		return ComplexityLow
	case ComplexityMedium:
		return ComplexityMedium
	case ComplexityHigh:
		return ComplexityHigh
	default:
		return ""
	}
}

// CoderTask is one planned unit of work: create or rewrite exactly one file.
type CoderTask struct {
	ID                  string          `json:"id" validate:"required"`
	Title               string          `json:"title" validate:"required"`
	Description         string          `json:"description"`
	TargetFilePath      string          `json:"targetFilePath"`
	TargetFileID        string          `json:"targetFileId,omitempty"`
	RelatedTestFileID   string          `json:"relatedTestFileId,omitempty"`
	EstimatedComplexity TaskComplexity  `json:"estimatedComplexity,omitempty" validate:"omitempty,oneof=low medium high"`
	Dependencies        []string        `json:"dependencies,omitempty"`
	Status              CoderTaskStatus `json:"status" validate:"required,oneof=pending in-progress completed failed"`
}

// TaskPlan is the ordered set of tasks produced by one planning call.
// List order is execution order.
type TaskPlan struct {
	ProjectID   string      `json:"projectId" validate:"required"`
	OverallGoal string      `json:"overallGoal"`
	Tasks       []CoderTask `json:"tasks"`
}

// Normalize canonicalizes every task's target path in place.
func (p *TaskPlan) Normalize() {
	for i := range p.Tasks {
		p.Tasks[i].TargetFilePath = NormalizePath(p.Tasks[i].TargetFilePath)
	}
}

// FileRewriteResult is the LLM's response for one task: the entire new file
// body, never a diff.
type FileRewriteResult struct {
	UpdatedContent string `json:"updatedContent" validate:"required"`
	Explanation    string `json:"explanation,omitempty"`
}
