package planloom

import (
	"context"
	"encoding/json"

	"github.com/invopop/jsonschema"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/ssestream"
)

// ContextKey is the type used for planloom values stored in a context.
type ContextKey string

// LLM defines the minimal contract required by the agent runtime to
// interact with a language-model provider. Implementations may add
// additional helper methods but only the operations below are relied
// upon by the rest of the codebase.
type LLM interface {
	// New issues a non-streaming chat completion request.
	New(ctx context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error)

	// NewStreaming issues a streaming chat completion request, returning
	// an ssestream.Stream to consume the chunks.
	NewStreaming(ctx context.Context, params openai.ChatCompletionNewParams) *ssestream.Stream[openai.ChatCompletionChunk]
}

// LLMClient talks to any OpenAI-compatible completion endpoint. Groq is the
// default provider; BaseURL switches to another compatible host.
type LLMClient struct {
	APIKey  string
	BaseURL string
	Model   string
	client  openai.Client
}

var _ LLM = &LLMClient{}

func NewLLMClient(apiKey, baseURL, model string) *LLMClient {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &LLMClient{
		APIKey:  apiKey,
		BaseURL: baseURL,
		Model:   model,
		client:  openai.NewClient(opts...),
	}
}

func optsWithIDs(ctx context.Context, opts []option.RequestOption) []option.RequestOption {
	if sessionID, ok := ctx.Value(ContextKey("sessionID")).(string); ok {
		opts = append(opts, option.WithJSONSet("custom_identifier", sessionID))
	}
	return opts
}

func (c *LLMClient) New(ctx context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error) {
	opts := optsWithIDs(ctx, nil)
	return c.client.Chat.Completions.New(ctx, params, opts...)
}

func (c *LLMClient) NewStreaming(ctx context.Context, params openai.ChatCompletionNewParams) *ssestream.Stream[openai.ChatCompletionChunk] {
	opts := optsWithIDs(ctx, nil)
	return c.client.Chat.Completions.NewStreaming(ctx, params, opts...)
}

// GenerateSchema reflects T into a JSON schema suitable for tool parameters
// and structured response formats.
func GenerateSchema[T any]() map[string]any {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	schema := reflector.Reflect(v)

	raw, err := schema.MarshalJSON()
	if err != nil {
		panic(err)
	}
	out := map[string]any{}
	if err := json.Unmarshal(raw, &out); err != nil {
		panic(err)
	}
	return out
}
