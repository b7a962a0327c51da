package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"

	"github.com/octoprompt/octocoder/internal/llm"
	"github.com/octoprompt/octocoder/models"
	"github.com/octoprompt/octocoder/prompts"
	"github.com/octoprompt/octocoder/types"
)

// FileRewriteAgent produces updated content for exactly one file, given one task.
type FileRewriteAgent struct {
	chatModel    model.BaseChatModel
	templatesDir string
}

// NewFileRewriteAgent creates a rewrite agent over the given chat model.
func NewFileRewriteAgent(chatModel model.BaseChatModel, templatesDir string) *FileRewriteAgent {
	return &FileRewriteAgent{chatModel: chatModel, templatesDir: templatesDir}
}

// Rewrite asks the LLM for the entire new body of the task's target file.
// current is nil for creation tasks. Every failure is task-scoped: the error
// carries the task's id, title, and target path.
func (a *FileRewriteAgent) Rewrite(ctx context.Context, task models.CoderTask, current *string) (*models.FileRewriteResult, error) {
	systemPrompt, err := prompts.GetPrompt(prompts.KeyRewriteFile, a.templatesDir)
	if err != nil {
		return nil, a.taskError(task, "load rewrite prompt", err)
	}

	result, err := llm.GenerateObject[models.FileRewriteResult](ctx, a.chatModel, systemPrompt, buildRewritePrompt(task, current))
	if err != nil {
		return nil, a.taskError(task, "file rewrite failed", err)
	}
	return &result, nil
}

func (a *FileRewriteAgent) taskError(task models.CoderTask, message string, err error) error {
	return types.WrapCoderError(types.CodeRewrite,
		fmt.Sprintf("%s for task %q (%s) targeting %s", message, task.Title, task.ID, task.TargetFilePath),
		err,
		map[string]interface{}{
			"taskId":    task.ID,
			"taskTitle": task.Title,
			"path":      task.TargetFilePath,
		})
}

// buildRewritePrompt renders one task, with the current file body included
// verbatim when the file exists.
func buildRewritePrompt(task models.CoderTask, current *string) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Target file: %s\n\n", task.TargetFilePath)
	fmt.Fprintf(&sb, "Task: %s\n%s\n\n", task.Title, task.Description)

	if current == nil {
		sb.WriteString("The file does not exist yet. Produce its initial content.\n")
	} else {
		sb.WriteString("Current file content:\n")
		sb.WriteString("<file>\n")
		sb.WriteString(*current)
		if !strings.HasSuffix(*current, "\n") {
			sb.WriteString("\n")
		}
		sb.WriteString("</file>\n")
	}
	return sb.String()
}
