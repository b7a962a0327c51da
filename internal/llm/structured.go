package llm

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/octoprompt/octocoder/internal/utils"
	"github.com/octoprompt/octocoder/models"
)

// GenerateObject sends a system/user prompt pair to the chat model and decodes
// the response into T. The decode either yields a validated T or fails — raw
// maps never cross this boundary.
//
// The two error cases are distinguishable for callers: a transport/provider
// failure wraps ErrCall, a response that cannot be decoded or validated wraps
// ErrDecode.
func GenerateObject[T any](ctx context.Context, chatModel model.BaseChatModel, systemPrompt, userPrompt string) (T, error) {
	var zero T

	messages := []*schema.Message{
		schema.SystemMessage(systemPrompt),
		schema.UserMessage(userPrompt),
	}

	resp, err := chatModel.Generate(ctx, messages)
	if err != nil {
		return zero, fmt.Errorf("%w: %w", ErrCall, err)
	}

	out, err := utils.ExtractAndParseJSON[T](resp.Content)
	if err != nil {
		return zero, fmt.Errorf("%w: %w (raw output: %.500s)", ErrDecode, err, resp.Content)
	}
	if err := models.ValidateStruct(out); err != nil {
		return zero, fmt.Errorf("%w: validation: %w (raw output: %.500s)", ErrDecode, err, resp.Content)
	}
	return out, nil
}
