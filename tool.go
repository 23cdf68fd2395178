// Package planloom - tool.go
// Defines the Tool interface the agent hands to the model.

package planloom

import (
	"context"

	"github.com/openai/openai-go"
)

type Tool interface {
	Name() string
	StatusMessage() string // shown to the user while the tool runs
	Description() string
	OpenAI() []openai.ChatCompletionToolParam
	Execute(ctx context.Context, args map[string]any) (string, error)
}

func messageWhenToolError(toolCallID string) openai.ChatCompletionMessageParamUnion {
	return openai.ToolMessage("Error occurred while running. Do not retry", toolCallID)
}

func messageWhenToolErrorWithRetry(errorString string, toolCallID string) openai.ChatCompletionMessageParamUnion {
	return openai.ToolMessage("Error: "+errorString+".\nRetry", toolCallID)
}
