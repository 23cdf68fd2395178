package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/openai/openai-go"
	"golang.org/x/time/rate"

	"github.com/planloom/planloom"
)

const serperEndpoint = "https://google.serper.dev/search"

// maxSearchResults caps how many organic results are forwarded to the model.
const maxSearchResults = 6

type searchArgs struct {
	Query string `json:"query" jsonschema:"required" jsonschema_description:"The search query, e.g. 'best museums in Jaipur'"`
}

// WebSearch is a Tool backed by the Serper google search API.
type WebSearch struct {
	apiKey   string
	endpoint string
	client   *http.Client
	limiter  *rate.Limiter
}

var _ planloom.Tool = &WebSearch{}

func NewWebSearch(apiKey string) *WebSearch {
	return &WebSearch{
		apiKey:   apiKey,
		endpoint: serperEndpoint,
		client:   newHTTPClient(),
		limiter:  rate.NewLimiter(DefaultRateLimit, DefaultRateBurst),
	}
}

// SetEndpoint overrides the Serper URL. Used by tests.
func (t *WebSearch) SetEndpoint(url string) {
	t.endpoint = url
}

func (t *WebSearch) Name() string {
	return "web_search"
}

func (t *WebSearch) StatusMessage() string {
	return "Searching the web..."
}

func (t *WebSearch) Description() string {
	return "Search the web for up-to-date information such as attractions, opening hours, prices and travel logistics. Input is a search query; output is a list of result titles, snippets and links."
}

func (t *WebSearch) OpenAI() []openai.ChatCompletionToolParam {
	return []openai.ChatCompletionToolParam{{
		Function: openai.FunctionDefinitionParam{
			Name:        t.Name(),
			Description: openai.String(t.Description()),
			Parameters:  openai.FunctionParameters(planloom.GenerateSchema[searchArgs]()),
		},
	}}
}

type serperRequest struct {
	Q string `json:"q"`
}

type serperResult struct {
	Organic []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
	} `json:"organic"`
	AnswerBox struct {
		Answer  string `json:"answer"`
		Snippet string `json:"snippet"`
	} `json:"answerBox"`
}

func (t *WebSearch) Execute(ctx context.Context, args map[string]any) (string, error) {
	query := strings.TrimSpace(stringArg(args, "query"))
	if query == "" {
		return "", planloom.NewIgnorableError("search query is empty")
	}
	if err := wait(ctx, t.limiter); err != nil {
		return "", planloom.NewRetryableError("rate limit wait: %v", err)
	}

	body, err := json.Marshal(serperRequest{Q: query})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("X-API-KEY", t.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return "", planloom.NewRetryableError("search request failed: %v", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return "", planloom.NewRetryableError("search returned status %d", resp.StatusCode)
	default:
		return "", planloom.NewIgnorableError("search returned status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", planloom.NewRetryableError("reading search response: %v", err)
	}
	var result serperResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return "", planloom.NewIgnorableError("decoding search response: %v", err)
	}

	return condenseSearch(result), nil
}

// condenseSearch flattens the Serper payload into the compact text the model
// sees as the tool result.
func condenseSearch(result serperResult) string {
	var b strings.Builder
	if result.AnswerBox.Answer != "" {
		fmt.Fprintf(&b, "Answer: %s\n", result.AnswerBox.Answer)
	} else if result.AnswerBox.Snippet != "" {
		fmt.Fprintf(&b, "Answer: %s\n", result.AnswerBox.Snippet)
	}
	for i, item := range result.Organic {
		if i >= maxSearchResults {
			break
		}
		fmt.Fprintf(&b, "%d. %s\n%s\n%s\n", i+1, item.Title, item.Snippet, item.Link)
	}
	if b.Len() == 0 {
		return "No results found."
	}
	return strings.TrimRight(b.String(), "\n")
}
