// Package server exposes the planning agent over HTTP: a small server-rendered
// UI for creating and browsing plans, and a JSON API with an SSE stream for
// watching a generation in progress.
package server

import (
	"context"
	"embed"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/planloom/planloom"
	"github.com/planloom/planloom/store"
)

//go:embed templates/*.html
var templateFS embed.FS

// generateTimeout bounds one agent run, tool calls included.
const generateTimeout = 5 * time.Minute

// PlanGenerator runs one goal to completion. Satisfied by *planloom.Planner;
// tests substitute a fake.
type PlanGenerator interface {
	Generate(ctx context.Context, goal string, observe func(planloom.Response)) (*planloom.Plan, error)
}

type Server struct {
	planner PlanGenerator
	store   store.Store
	logger  *slog.Logger
	limiter *rate.Limiter
	tmpl    *template.Template
}

// New constructs a Server. ratePerMinute <= 0 disables rate limiting.
func New(planner PlanGenerator, st store.Store, logger *slog.Logger, ratePerMinute, burst int) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	var limiter *rate.Limiter
	if ratePerMinute > 0 {
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(float64(ratePerMinute)/60.0), burst)
	}
	return &Server{
		planner: planner,
		store:   st,
		logger:  logger,
		limiter: limiter,
		tmpl:    template.Must(template.ParseFS(templateFS, "templates/*.html")),
	}
}

// Handler builds the full route table wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /history", s.handleHistory)
	mux.HandleFunc("GET /plans/{id}", s.handlePlanPage)
	mux.HandleFunc("POST /plans", s.handlePlanForm)

	mux.HandleFunc("POST /api/plans", s.handleCreatePlan)
	mux.HandleFunc("GET /api/plans", s.handleListPlans)
	mux.HandleFunc("GET /api/plans/stream", s.handleStreamPlan)
	mux.HandleFunc("GET /api/plans/{id}", s.handleGetPlan)
	mux.HandleFunc("DELETE /api/plans/{id}", s.handleDeletePlan)

	mux.HandleFunc("GET /healthz", s.handleHealthz)

	var handler http.Handler = mux
	handler = maxBodyMiddleware(handler)
	handler = s.rateLimitMiddleware(handler)
	handler = securityHeadersMiddleware(handler)
	handler = s.loggingMiddleware(handler)
	handler = s.recoverMiddleware(handler)
	return handler
}

// ListenAndServe runs the server until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		errc <- srv.ListenAndServe()
	}()

	s.logger.Info("server listening", "addr", addr)
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
