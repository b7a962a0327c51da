/*
Package agents provides the LLM-powered agents of the agent-coder pipeline:
a planning agent that decomposes a coding request into file-level tasks, and
a rewrite agent that produces the full new body of one file per task.
*/
package agents

import "github.com/octoprompt/octocoder/models"

// RunContext is the bundle of caller-supplied context one orchestrator run
// starts from.
type RunContext struct {
	// ProjectID identifies the project being changed.
	ProjectID string

	// UserInput is the user's coding request, echoed into the plan's goal.
	UserInput string

	// ProjectFiles is the project file snapshot at context-build time,
	// in the caller's order.
	ProjectFiles []models.ProjectFile

	// SelectedFileIDs is the subset of ProjectFiles the caller explicitly
	// selected for this request.
	SelectedFileIDs []string

	// PriorPrompts carries earlier prompt texts the caller wants the planner
	// to see.
	PriorPrompts []string

	// ProjectSummary is a prose summary of the project.
	ProjectSummary string
}

// SelectedFiles resolves SelectedFileIDs against ProjectFiles, preserving
// snapshot order. Unknown ids are ignored.
func (c *RunContext) SelectedFiles() []models.ProjectFile {
	if len(c.SelectedFileIDs) == 0 {
		return nil
	}
	selected := make(map[string]bool, len(c.SelectedFileIDs))
	for _, id := range c.SelectedFileIDs {
		selected[id] = true
	}
	var out []models.ProjectFile
	for _, f := range c.ProjectFiles {
		if selected[f.ID] {
			out = append(out, f)
		}
	}
	return out
}
