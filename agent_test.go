package planloom

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/openai/openai-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// providerStep scripts one chat-completion response from the fake provider.
type providerStep struct {
	toolName string // when set, respond with a single tool call
	toolArgs string
	content  string // otherwise, respond with this text
}

// fakeProvider is an httptest server speaking just enough of the
// chat-completions wire format for the agent loop: SSE chunks for streaming
// requests and a plain completion body otherwise.
type fakeProvider struct {
	srv *httptest.Server

	mu       sync.Mutex
	step     int
	steps    []providerStep
	requests []map[string]any
}

func newFakeProvider(t *testing.T, steps []providerStep) *fakeProvider {
	t.Helper()
	p := &fakeProvider{steps: steps}
	p.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		p.mu.Lock()
		p.requests = append(p.requests, req)
		if p.step >= len(p.steps) {
			p.mu.Unlock()
			http.Error(w, "no scripted step left", http.StatusInternalServerError)
			return
		}
		step := p.steps[p.step]
		p.step++
		p.mu.Unlock()

		if streaming, _ := req["stream"].(bool); streaming {
			p.writeStream(w, step)
			return
		}
		p.writeCompletion(w, step)
	}))
	t.Cleanup(p.srv.Close)
	return p
}

func (p *fakeProvider) url() string {
	return p.srv.URL
}

func (p *fakeProvider) requestCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.requests)
}

// lastRequestMessages returns the "messages" array of the most recent request.
func (p *fakeProvider) lastRequestMessages() []any {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.requests) == 0 {
		return nil
	}
	msgs, _ := p.requests[len(p.requests)-1]["messages"].([]any)
	return msgs
}

func (p *fakeProvider) writeStream(w http.ResponseWriter, step providerStep) {
	w.Header().Set("Content-Type", "text/event-stream")

	var chunks []string
	if step.toolName != "" {
		chunks = append(chunks,
			fmt.Sprintf(`{"id":"chatcmpl-1","object":"chat.completion.chunk","created":1,"model":"test","choices":[{"index":0,"delta":{"role":"assistant","tool_calls":[{"index":0,"id":"call_1","type":"function","function":{"name":%s,"arguments":%s}}]},"finish_reason":null}]}`,
				strconv.Quote(step.toolName), strconv.Quote(step.toolArgs)),
			`{"id":"chatcmpl-1","object":"chat.completion.chunk","created":1,"model":"test","choices":[{"index":0,"delta":{},"finish_reason":"tool_calls"}]}`,
		)
	} else {
		half := len(step.content) / 2
		chunks = append(chunks,
			fmt.Sprintf(`{"id":"chatcmpl-1","object":"chat.completion.chunk","created":1,"model":"test","choices":[{"index":0,"delta":{"role":"assistant","content":%s},"finish_reason":null}]}`,
				strconv.Quote(step.content[:half])),
			fmt.Sprintf(`{"id":"chatcmpl-1","object":"chat.completion.chunk","created":1,"model":"test","choices":[{"index":0,"delta":{"content":%s},"finish_reason":null}]}`,
				strconv.Quote(step.content[half:])),
			`{"id":"chatcmpl-1","object":"chat.completion.chunk","created":1,"model":"test","choices":[{"index":0,"delta":{},"finish_reason":"stop"}]}`,
		)
	}
	for _, chunk := range chunks {
		fmt.Fprintf(w, "data: %s\n\n", chunk)
	}
	fmt.Fprint(w, "data: [DONE]\n\n")
}

func (p *fakeProvider) writeCompletion(w http.ResponseWriter, step providerStep) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w,
		`{"id":"chatcmpl-2","object":"chat.completion","created":1,"model":"test","choices":[{"index":0,"message":{"role":"assistant","content":%s},"finish_reason":"stop"}]}`,
		strconv.Quote(step.content))
}

// fakeTool records the arguments it was called with.
type fakeTool struct {
	name    string
	execute func(ctx context.Context, args map[string]any) (string, error)

	mu      sync.Mutex
	gotArgs []map[string]any
}

func (f *fakeTool) Name() string          { return f.name }
func (f *fakeTool) StatusMessage() string { return "Running " + f.name + "..." }
func (f *fakeTool) Description() string   { return "test tool" }

func (f *fakeTool) OpenAI() []openai.ChatCompletionToolParam {
	return []openai.ChatCompletionToolParam{{
		Function: openai.FunctionDefinitionParam{
			Name:       f.name,
			Parameters: openai.FunctionParameters{"type": "object"},
		},
	}}
}

func (f *fakeTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	f.mu.Lock()
	f.gotArgs = append(f.gotArgs, args)
	f.mu.Unlock()
	if f.execute != nil {
		return f.execute(ctx, args)
	}
	return "ok", nil
}

func collectResponses(t *testing.T, run func(out chan<- Response)) []Response {
	t.Helper()
	out := make(chan Response, 128)
	run(out)
	var responses []Response
	for response := range out {
		responses = append(responses, response)
	}
	return responses
}

const finalPlanText = "Day 1:\n- Step 1: Visit Amber Fort\n- Step 2: Dinner at a rooftop restaurant\n\nDay 2:\n- Step 1: City Palace"

func TestAgentToolLoop(t *testing.T) {
	provider := newFakeProvider(t, []providerStep{
		{toolName: "get_weather", toolArgs: `{"location":"Jaipur","date":"2026-09-01"}`},
		{content: finalPlanText},
		{content: `{"days":[{"label":"Day 1","steps":["Visit Amber Fort","Dinner at a rooftop restaurant"]},{"label":"Day 2","steps":["City Palace"]}]}`},
	})

	weather := &fakeTool{name: "get_weather"}
	agent := NewAgent(PlannerPrompt, []Tool{weather})
	llm := NewLLMClient("test-key", provider.url(), "test-model")

	responses := collectResponses(t, func(out chan<- Response) {
		agent.Run(context.Background(), llm, "test-model",
			NewMessageList(UserMessage("Plan a 2-day trip to Jaipur")), NewMemoryBlock(), out)
	})

	require.NotEmpty(t, responses)
	final := responses[len(responses)-1]
	require.Equal(t, ResponseTypePlan, final.Type)
	require.NotNil(t, final.Plan)

	assert.Equal(t, "Plan a 2-day trip to Jaipur", final.Plan.Goal)
	assert.Equal(t, finalPlanText, final.Plan.Output)
	require.Len(t, final.Plan.Days, 2)
	assert.Equal(t, "Day 1", final.Plan.Days[0].Label)
	assert.Len(t, final.Plan.Days[0].Steps, 2)

	require.Len(t, weather.gotArgs, 1)
	assert.Equal(t, "Jaipur", weather.gotArgs[0]["location"])

	var sawStatus, sawPartial bool
	for _, response := range responses {
		switch response.Type {
		case ResponseTypeToolStatus:
			sawStatus = true
		case ResponseTypePartialText:
			sawPartial = true
		}
	}
	assert.True(t, sawStatus, "expected a tool status response")
	assert.True(t, sawPartial, "expected streamed partial text")
}

func TestAgentStructuredRenderFallback(t *testing.T) {
	provider := newFakeProvider(t, []providerStep{
		{content: finalPlanText},
		{content: "this is not json"},
	})

	agent := NewAgent(PlannerPrompt, nil)
	llm := NewLLMClient("test-key", provider.url(), "test-model")

	responses := collectResponses(t, func(out chan<- Response) {
		agent.Run(context.Background(), llm, "test-model",
			NewMessageList(UserMessage("Plan a trip")), NewMemoryBlock(), out)
	})

	final := responses[len(responses)-1]
	require.Equal(t, ResponseTypePlan, final.Type)
	require.Len(t, final.Plan.Days, 2)
	assert.Equal(t, []string{"Step 1: Visit Amber Fort", "Step 2: Dinner at a rooftop restaurant"}, final.Plan.Days[0].Steps)
}

func TestAgentMaxIterations(t *testing.T) {
	provider := newFakeProvider(t, []providerStep{
		{toolName: "get_weather", toolArgs: `{"location":"Jaipur"}`},
		{toolName: "get_weather", toolArgs: `{"location":"Jaipur"}`},
	})

	weather := &fakeTool{name: "get_weather"}
	agent := NewAgent(PlannerPrompt, []Tool{weather})
	agent.SetMaxIterations(2)
	llm := NewLLMClient("test-key", provider.url(), "test-model")

	responses := collectResponses(t, func(out chan<- Response) {
		agent.Run(context.Background(), llm, "test-model",
			NewMessageList(UserMessage("Plan a trip")), NewMemoryBlock(), out)
	})

	final := responses[len(responses)-1]
	require.Equal(t, ResponseTypeError, final.Type)
	assert.Contains(t, final.Content, "maximum iterations")
	assert.Equal(t, 2, provider.requestCount())
	assert.Len(t, weather.gotArgs, 2)
}

func TestAgentUnknownTool(t *testing.T) {
	provider := newFakeProvider(t, []providerStep{
		{toolName: "does_not_exist", toolArgs: `{}`},
		{content: finalPlanText},
		{content: `{"days":[{"label":"Day 1","steps":["x"]}]}`},
	})

	agent := NewAgent(PlannerPrompt, []Tool{&fakeTool{name: "get_weather"}})
	llm := NewLLMClient("test-key", provider.url(), "test-model")

	responses := collectResponses(t, func(out chan<- Response) {
		agent.Run(context.Background(), llm, "test-model",
			NewMessageList(UserMessage("Plan a trip")), NewMemoryBlock(), out)
	})

	final := responses[len(responses)-1]
	require.Equal(t, ResponseTypePlan, final.Type)

	// The model must have been told the tool call failed.
	found := false
	for _, raw := range provider.lastRequestMessages() {
		msg, _ := raw.(map[string]any)
		if msg["role"] == "tool" {
			if content, _ := msg["content"].(string); strings.Contains(content, "Do not retry") {
				found = true
			}
		}
	}
	assert.True(t, found, "expected a tool error message in the history")
}

func TestPlannerGenerate(t *testing.T) {
	provider := newFakeProvider(t, []providerStep{
		{content: finalPlanText},
		{content: `{"days":[{"label":"Day 1","steps":["Visit Amber Fort"]}]}`},
	})

	agent := NewAgent(PlannerPrompt, nil)
	llm := NewLLMClient("test-key", provider.url(), "test-model")
	planner := NewPlanner(llm, "test-model", nil, agent)

	var statuses []Response
	plan, err := planner.Generate(context.Background(), "Plan a trip to Jaipur", func(response Response) {
		statuses = append(statuses, response)
	})
	require.NoError(t, err)
	require.NotNil(t, plan)

	assert.NotEmpty(t, plan.ID)
	assert.False(t, plan.CreatedAt.IsZero())
	assert.Equal(t, "Plan a trip to Jaipur", plan.Goal)
	assert.Equal(t, "test-model", plan.Model)
	assert.NotEmpty(t, statuses)
}

func TestAgentGenerateSummary(t *testing.T) {
	provider := newFakeProvider(t, []providerStep{
		{content: "Two days in Jaipur covering forts and food."},
	})

	agent := NewAgent(PlannerPrompt, nil)
	llm := NewLLMClient("test-key", provider.url(), "test-model")

	messages := NewMessageList(
		UserMessage("Plan a trip to Jaipur"),
		AssistantMessage(finalPlanText),
	)
	summary, err := agent.GenerateSummary(context.Background(), llm, "test-model", messages)
	require.NoError(t, err)
	assert.Equal(t, "Two days in Jaipur covering forts and food.", summary)
}

func TestAgentGenerateSummaryNoUserMessage(t *testing.T) {
	provider := newFakeProvider(t, nil)

	agent := NewAgent(PlannerPrompt, nil)
	llm := NewLLMClient("test-key", provider.url(), "test-model")

	_, err := agent.GenerateSummary(context.Background(), llm, "test-model", NewMessageList())
	require.Error(t, err)
	assert.Equal(t, 0, provider.requestCount())
}

func TestPlannerGenerateEmptyGoal(t *testing.T) {
	provider := newFakeProvider(t, nil)

	agent := NewAgent(PlannerPrompt, nil)
	llm := NewLLMClient("test-key", provider.url(), "test-model")
	planner := NewPlanner(llm, "test-model", nil, agent)

	_, err := planner.Generate(context.Background(), "   ", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "goal must not be empty")
	assert.Equal(t, 0, provider.requestCount())
}
