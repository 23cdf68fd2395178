// Package planloom provides the planning Agent, which uses an LLM and
// external Tools to turn a free-text goal into a day-by-day plan.
package planloom

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/openai/openai-go"
)

// DefaultMaxIterations caps the tool loop. Each iteration is one completion
// call plus the tool calls it requested.
const DefaultMaxIterations = 8

// Agent orchestrates calls to the LLM, runs Tools, and produces the plan.
type Agent struct {
	prompt        string
	tools         []Tool
	maxIterations int
	logger        *slog.Logger
}

// NewAgent creates an Agent with the given system prompt and tools.
func NewAgent(prompt string, tools []Tool) *Agent {
	return &Agent{
		prompt:        prompt,
		tools:         tools,
		maxIterations: DefaultMaxIterations,
		logger:        slog.Default(),
	}
}

func (a *Agent) SetLogger(logger *slog.Logger) {
	a.logger = logger
}

func (a *Agent) SetMaxIterations(n int) {
	if n > 0 {
		a.maxIterations = n
	}
}

func (a *Agent) GetTool(name string) (Tool, error) {
	for _, tool := range a.tools {
		if tool.Name() == name {
			return tool, nil
		}
	}
	return nil, fmt.Errorf("tool %s not found", name)
}

func (a *Agent) openAITools() []openai.ChatCompletionToolParam {
	params := []openai.ChatCompletionToolParam{}
	for _, tool := range a.tools {
		params = append(params, tool.OpenAI()...)
	}
	return params
}

// Run executes the tool loop for one goal and streams Responses into out.
// It closes out when done. The final plan (or the error) is always the last
// meaningful response before the channel closes.
func (a *Agent) Run(ctx context.Context, llm LLM, model string, messages *MessageList, memory *MemoryBlock, out chan<- Response) {
	defer close(out)

	messages.AddFirstDeveloperMessage(DeveloperMessage(buildSystemPrompt(a.prompt, memory)))
	goal := messages.LastUserMessageString()

	finalAnswer, err := a.loop(ctx, llm, model, messages, out)
	if err != nil {
		out <- Response{Content: err.Error(), Type: ResponseTypeError}
		return
	}

	plan := &Plan{
		Goal:   goal,
		Output: finalAnswer,
		Model:  model,
	}
	doc, err := a.renderStructured(ctx, llm, model, messages)
	if err != nil {
		a.logger.Warn("structured rendering failed, falling back to markdown parse", "error", err)
		plan.Days = ParseDays(finalAnswer)
	} else {
		plan.Days = doc.Days
	}

	out <- Response{Plan: plan, Type: ResponseTypePlan}
}

// loop runs completion rounds until the model answers without tool calls.
func (a *Agent) loop(ctx context.Context, llm LLM, model string, messages *MessageList, out chan<- Response) (string, error) {
	toolParams := a.openAITools()

	for iteration := 0; iteration < a.maxIterations; iteration++ {
		params := openai.ChatCompletionNewParams{
			Messages:    messages.All(),
			Model:       openai.ChatModel(model),
			Temperature: openai.Float(0),
			StreamOptions: openai.ChatCompletionStreamOptionsParam{
				IncludeUsage: openai.Bool(true),
			},
		}
		if len(toolParams) > 0 {
			params.Tools = toolParams
		}

		stream := llm.NewStreaming(ctx, params)
		completion := openai.ChatCompletionAccumulator{}
		for stream.Next() {
			chunk := stream.Current()
			completion.AddChunk(chunk)
			if len(chunk.Choices) > 0 && chunk.Choices[0].Delta.Content != "" {
				out <- Response{Content: chunk.Choices[0].Delta.Content, Type: ResponseTypePartialText}
			}
		}
		if err := stream.Err(); err != nil {
			stream.Close()
			return "", fmt.Errorf("completion stream: %w", err)
		}
		stream.Close()

		if len(completion.Choices) == 0 {
			return "", fmt.Errorf("provider returned no choices")
		}
		message := completion.Choices[0].Message

		// Both tool calls and content being non-empty is not the expectation;
		// tolerate it but log.
		if len(message.ToolCalls) > 0 && message.Content != "" {
			a.logger.Error("model returned both tool calls and content")
		}

		messages.Add(message.ToParam())

		if len(message.ToolCalls) == 0 {
			return message.Content, nil
		}

		a.runToolCalls(ctx, message.ToolCalls, messages, out)
	}

	return "", ErrMaxIterations
}

// runToolCalls executes a batch of tool calls concurrently and appends the
// tool messages to the history in the order the model requested them.
func (a *Agent) runToolCalls(ctx context.Context, calls []openai.ChatCompletionMessageToolCall, messages *MessageList, out chan<- Response) {
	var wg sync.WaitGroup
	var mu sync.Mutex
	results := make(map[string]openai.ChatCompletionMessageParamUnion)

	for _, call := range calls {
		tool, err := a.GetTool(call.Function.Name)
		if err != nil {
			a.logger.Error("unknown tool requested", "tool", call.Function.Name)
			mu.Lock()
			results[call.ID] = messageWhenToolError(call.ID)
			mu.Unlock()
			continue
		}

		out <- Response{Content: tool.StatusMessage(), Type: ResponseTypeToolStatus}
		a.logger.Info("running tool", "tool", tool.Name(), "arguments", call.Function.Arguments)

		wg.Add(1)
		go func(tool Tool, callID, rawArgs string) {
			defer wg.Done()
			result := a.executeTool(ctx, tool, callID, rawArgs)
			mu.Lock()
			results[callID] = result
			mu.Unlock()
		}(tool, call.ID, call.Function.Arguments)
	}

	wg.Wait()

	for _, call := range calls {
		if result, ok := results[call.ID]; ok {
			messages.Add(result)
		}
	}
}

func (a *Agent) executeTool(ctx context.Context, tool Tool, callID, rawArgs string) openai.ChatCompletionMessageParamUnion {
	args := map[string]any{}
	if err := json.Unmarshal([]byte(rawArgs), &args); err != nil {
		a.logger.Error("unmarshalling tool arguments", "tool", tool.Name(), "error", err)
		return messageWhenToolErrorWithRetry(err.Error(), callID)
	}

	output, err := tool.Execute(ctx, args)
	if err != nil {
		a.logger.Error("tool execution failed", "tool", tool.Name(), "error", err)
		var ignErr *IgnorableError
		var retErr *RetryableError
		switch {
		case errors.As(err, &ignErr):
			return messageWhenToolError(callID)
		case errors.As(err, &retErr):
			return messageWhenToolErrorWithRetry(err.Error(), callID)
		default:
			return messageWhenToolError(callID)
		}
	}
	return openai.ToolMessage(output, callID)
}

// renderStructured asks the model to re-emit the finished plan as JSON
// matching the PlanDocument schema.
func (a *Agent) renderStructured(ctx context.Context, llm LLM, model string, messages *MessageList) (*PlanDocument, error) {
	schema := GenerateSchema[PlanDocument]()

	rendering := messages.Clone()
	rendering.Add(DeveloperMessage(renderPlanPrompt))

	completion, err := llm.New(ctx, openai.ChatCompletionNewParams{
		Messages:    rendering.All(),
		Model:       openai.ChatModel(model),
		Temperature: openai.Float(0),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:        "plan_document",
					Description: openai.String("Structured day-by-day plan"),
					Schema:      schema,
					Strict:      openai.Bool(true),
				},
			},
		},
	})
	if err != nil {
		return nil, err
	}
	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("provider returned no choices")
	}

	doc := &PlanDocument{}
	if err := json.Unmarshal([]byte(completion.Choices[0].Message.Content), doc); err != nil {
		return nil, fmt.Errorf("decoding plan document: %w", err)
	}
	if len(doc.Days) == 0 {
		return nil, fmt.Errorf("plan document has no days")
	}
	return doc, nil
}

// GenerateSummary produces a one-shot answer to the last user question from
// the accumulated conversation. Used by callers that want a compact answer
// rather than the full transcript.
func (a *Agent) GenerateSummary(ctx context.Context, llm LLM, model string, messages *MessageList) (string, error) {
	lastUserMessage := messages.LastUserMessageString()
	if lastUserMessage == "" {
		return "", fmt.Errorf("no user message found")
	}

	summary := messages.Clone()
	summary.Add(DeveloperMessage(summaryPrompt(lastUserMessage)))

	completion, err := llm.New(ctx, openai.ChatCompletionNewParams{
		Messages: summary.All(),
		Model:    openai.ChatModel(model),
	})
	if err != nil {
		return "", err
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("provider returned no choices")
	}
	return completion.Choices[0].Message.Content, nil
}
