package agents

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"

	"github.com/octoprompt/octocoder/internal/llm"
	"github.com/octoprompt/octocoder/models"
	"github.com/octoprompt/octocoder/prompts"
	"github.com/octoprompt/octocoder/types"
)

// PlanningAgent produces a validated TaskPlan from run context.
type PlanningAgent struct {
	chatModel    model.BaseChatModel
	templatesDir string
}

// NewPlanningAgent creates a planning agent over the given chat model.
// templatesDir may be empty; when set, a custom prompt file there overrides
// the built-in planning prompt.
func NewPlanningAgent(chatModel model.BaseChatModel, templatesDir string) *PlanningAgent {
	return &PlanningAgent{chatModel: chatModel, templatesDir: templatesDir}
}

// planTaskOutput is the wire shape of one planned task as the LLM emits it.
// Status is absent on the wire; every task starts pending.
type planTaskOutput struct {
	ID                  string   `json:"id"`
	Title               string   `json:"title" validate:"required"`
	Description         string   `json:"description"`
	TargetFilePath      string   `json:"targetFilePath"`
	TargetFileID        string   `json:"targetFileId"`
	EstimatedComplexity string   `json:"estimatedComplexity"`
	Dependencies        []string `json:"dependencies"`
}

// planOutput is the wire shape of the whole planning response.
type planOutput struct {
	ProjectID   string           `json:"projectId"`
	OverallGoal string           `json:"overallGoal"`
	Tasks       []planTaskOutput `json:"tasks" validate:"dive"`
}

// Plan asks the LLM for a task plan and converts it into a validated
// models.TaskPlan with every task pending and every target path normalized.
// There is no retry: a provider failure surfaces as plan_call_failed, a
// response that does not decode as plan_invalid, and a task without a target
// path as invalid_task.
func (a *PlanningAgent) Plan(ctx context.Context, rc RunContext) (*models.TaskPlan, error) {
	systemPrompt, err := prompts.GetPrompt(prompts.KeyPlanTasks, a.templatesDir)
	if err != nil {
		return nil, types.WrapCoderError(types.CodePlanCall, "load planning prompt", err, nil)
	}

	out, err := llm.GenerateObject[planOutput](ctx, a.chatModel, systemPrompt, a.buildUserPrompt(rc))
	if err != nil {
		if errors.Is(err, llm.ErrDecode) {
			return nil, types.WrapCoderError(types.CodePlanInvalid, "planning output did not match the task plan schema", err, nil)
		}
		return nil, types.WrapCoderError(types.CodePlanCall, "planning call failed", err, nil)
	}

	plan := &models.TaskPlan{
		ProjectID:   out.ProjectID,
		OverallGoal: out.OverallGoal,
		Tasks:       make([]models.CoderTask, 0, len(out.Tasks)),
	}
	// Backfill identity the LLM omitted.
	if plan.ProjectID == "" {
		plan.ProjectID = rc.ProjectID
	}
	if plan.OverallGoal == "" {
		plan.OverallGoal = rc.UserInput
	}

	for i, t := range out.Tasks {
		target := models.NormalizePath(t.TargetFilePath)
		if target == "" {
			return nil, types.NewCoderError(types.CodeInvalidTask,
				fmt.Sprintf("task %q (%s) has no target file path", t.Title, t.ID),
				map[string]interface{}{"taskId": t.ID, "taskTitle": t.Title})
		}
		id := t.ID
		if id == "" {
			id = fmt.Sprintf("task-%d", i+1)
		}
		plan.Tasks = append(plan.Tasks, models.CoderTask{
			ID:                  id,
			Title:               t.Title,
			Description:         t.Description,
			TargetFilePath:      target,
			TargetFileID:        t.TargetFileID,
			EstimatedComplexity: models.ParseComplexity(t.EstimatedComplexity),
			Dependencies:        t.Dependencies,
			Status:              models.TaskPending,
		})
	}
	return plan, nil
}

// buildUserPrompt embeds the selected files' identity (never their content)
// and the project summary.
func (a *PlanningAgent) buildUserPrompt(rc RunContext) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Project id: %s\n\n", rc.ProjectID)
	fmt.Fprintf(&sb, "Request:\n%s\n\n", rc.UserInput)

	selected := rc.SelectedFiles()
	if len(selected) > 0 {
		sb.WriteString("Selected files (id | name | path):\n")
		for _, f := range selected {
			fmt.Fprintf(&sb, "- %s | %s | %s\n", f.ID, f.Name, f.Path)
		}
		sb.WriteString("\n")
	}

	if rc.ProjectSummary != "" {
		fmt.Fprintf(&sb, "Project summary:\n%s\n\n", rc.ProjectSummary)
	}

	if len(rc.PriorPrompts) > 0 {
		sb.WriteString("Prior prompts:\n")
		for _, p := range rc.PriorPrompts {
			fmt.Fprintf(&sb, "---\n%s\n", p)
		}
	}
	return sb.String()
}
