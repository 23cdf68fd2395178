// Package tools implements the external lookup tools the planning agent can
// call: web search (Serper) and weather (OpenWeather).
package tools

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const defaultHTTPTimeout = 15 * time.Second

// DefaultRateLimit allows a small burst of lookups per run while keeping a
// misbehaving model from hammering the providers.
var DefaultRateLimit = rate.Limit(2)

const DefaultRateBurst = 4

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: defaultHTTPTimeout}
}

// wait blocks until the limiter admits the call or the context is done.
func wait(ctx context.Context, limiter *rate.Limiter) error {
	if limiter == nil {
		return nil
	}
	return limiter.Wait(ctx)
}

func stringArg(args map[string]any, key string) string {
	v, _ := args[key].(string)
	return v
}
