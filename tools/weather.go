package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"golang.org/x/time/rate"

	"github.com/planloom/planloom"
)

const openWeatherBase = "https://api.openweathermap.org/data/2.5"

type weatherArgs struct {
	Location string `json:"location" jsonschema:"required" jsonschema_description:"City name, e.g. 'Jaipur' or 'Paris,FR'"`
	Date     string `json:"date,omitempty" jsonschema_description:"Optional date in YYYY-MM-DD format. When set, returns the forecast closest to that date; otherwise current conditions."`
}

// Weather is a Tool backed by the OpenWeather API. Without a date it returns
// current conditions; with a date it picks the 5-day forecast entry closest
// to that date.
type Weather struct {
	apiKey  string
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
}

var _ planloom.Tool = &Weather{}

func NewWeather(apiKey string) *Weather {
	return &Weather{
		apiKey:  apiKey,
		baseURL: openWeatherBase,
		client:  newHTTPClient(),
		limiter: rate.NewLimiter(DefaultRateLimit, DefaultRateBurst),
	}
}

// SetBaseURL overrides the OpenWeather URL. Used by tests.
func (t *Weather) SetBaseURL(url string) {
	t.baseURL = url
}

func (t *Weather) Name() string {
	return "get_weather"
}

func (t *Weather) StatusMessage() string {
	return "Checking the weather..."
}

func (t *Weather) Description() string {
	return "Get current weather or a dated forecast for a location. Returns temperature in Celsius, conditions and humidity."
}

func (t *Weather) OpenAI() []openai.ChatCompletionToolParam {
	return []openai.ChatCompletionToolParam{{
		Function: openai.FunctionDefinitionParam{
			Name:        t.Name(),
			Description: openai.String(t.Description()),
			Parameters:  openai.FunctionParameters(planloom.GenerateSchema[weatherArgs]()),
		},
	}}
}

type owConditions struct {
	Temp     float64 `json:"temp"`
	Humidity int     `json:"humidity"`
}

type owWeatherEntry struct {
	Description string `json:"description"`
}

type owCurrent struct {
	Main    owConditions     `json:"main"`
	Weather []owWeatherEntry `json:"weather"`
}

type owForecast struct {
	List []struct {
		Dt      int64            `json:"dt"`
		Main    owConditions     `json:"main"`
		Weather []owWeatherEntry `json:"weather"`
	} `json:"list"`
}

// weatherReport is the JSON the model receives back.
type weatherReport struct {
	Date     string  `json:"date,omitempty"`
	Temp     float64 `json:"temp"`
	Weather  string  `json:"weather"`
	Humidity int     `json:"humidity"`
}

func (t *Weather) Execute(ctx context.Context, args map[string]any) (string, error) {
	location := strings.TrimSpace(stringArg(args, "location"))
	if location == "" {
		return "", planloom.NewIgnorableError("location is empty")
	}
	if err := wait(ctx, t.limiter); err != nil {
		return "", planloom.NewRetryableError("rate limit wait: %v", err)
	}

	var targetDate time.Time
	rawDate := strings.TrimSpace(stringArg(args, "date"))
	if rawDate != "" {
		parsed, err := time.Parse("2006-01-02", rawDate)
		if err == nil {
			targetDate = parsed
		}
		// An unparseable date falls back to current conditions.
	}

	if targetDate.IsZero() {
		return t.current(ctx, location)
	}
	return t.forecast(ctx, location, targetDate)
}

func (t *Weather) current(ctx context.Context, location string) (string, error) {
	var payload owCurrent
	if err := t.get(ctx, "/weather", location, &payload); err != nil {
		return "", err
	}
	report := weatherReport{
		Temp:     payload.Main.Temp,
		Humidity: payload.Main.Humidity,
	}
	if len(payload.Weather) > 0 {
		report.Weather = payload.Weather[0].Description
	}
	return marshalReport(report)
}

func (t *Weather) forecast(ctx context.Context, location string, target time.Time) (string, error) {
	var payload owForecast
	if err := t.get(ctx, "/forecast", location, &payload); err != nil {
		return "", err
	}
	if len(payload.List) == 0 {
		return "No forecast available.", nil
	}

	// Pick the forecast entry closest to the requested date.
	best := payload.List[0]
	bestDiff := absDuration(time.Unix(best.Dt, 0).Sub(target))
	for _, entry := range payload.List[1:] {
		diff := absDuration(time.Unix(entry.Dt, 0).Sub(target))
		if diff < bestDiff {
			best = entry
			bestDiff = diff
		}
	}

	report := weatherReport{
		Date:     time.Unix(best.Dt, 0).UTC().Format("2006-01-02 15:04"),
		Temp:     best.Main.Temp,
		Humidity: best.Main.Humidity,
	}
	if len(best.Weather) > 0 {
		report.Weather = best.Weather[0].Description
	}
	return marshalReport(report)
}

func (t *Weather) get(ctx context.Context, path, location string, into any) error {
	query := url.Values{}
	query.Set("q", location)
	query.Set("appid", t.apiKey)
	query.Set("units", "metric")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.baseURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return err
	}
	resp, err := t.client.Do(req)
	if err != nil {
		return planloom.NewRetryableError("weather request failed: %v", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return planloom.NewRetryableError("weather returned status %d", resp.StatusCode)
	case resp.StatusCode == http.StatusNotFound:
		return planloom.NewIgnorableError("unknown location %q", location)
	default:
		return planloom.NewIgnorableError("weather returned status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return planloom.NewRetryableError("reading weather response: %v", err)
	}
	if err := json.Unmarshal(raw, into); err != nil {
		return planloom.NewIgnorableError("decoding weather response: %v", err)
	}
	return nil
}

func marshalReport(report weatherReport) (string, error) {
	raw, err := json.Marshal(report)
	if err != nil {
		return "", fmt.Errorf("encoding weather report: %w", err)
	}
	return string(raw), nil
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
