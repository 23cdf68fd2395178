package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/planloom/planloom"
	"github.com/planloom/planloom/store"
)

func contextWithTimeout(r *http.Request, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), d)
}

const defaultListLimit = 50

type createPlanRequest struct {
	Goal string `json:"goal"`
}

type listPlansResponse struct {
	Plans []planloom.Plan `json:"plans"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, format string, args ...any) {
	writeJSON(w, status, errorResponse{Error: fmt.Sprintf(format, args...)})
}

// generateAndSave runs the agent for a goal and persists the result.
func (s *Server) generateAndSave(r *http.Request, goal string, observe func(planloom.Response)) (*planloom.Plan, error) {
	ctx, cancel := contextWithTimeout(r, generateTimeout)
	defer cancel()

	plan, err := s.planner.Generate(ctx, goal, observe)
	if err != nil {
		return nil, err
	}
	if err := s.store.SavePlan(ctx, plan); err != nil {
		return nil, fmt.Errorf("saving plan: %w", err)
	}
	return plan, nil
}

func (s *Server) handleCreatePlan(w http.ResponseWriter, r *http.Request) {
	var req createPlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: %v", err)
		return
	}
	goal := strings.TrimSpace(req.Goal)
	if goal == "" {
		writeError(w, http.StatusBadRequest, "goal must not be empty")
		return
	}

	plan, err := s.generateAndSave(r, goal, nil)
	if err != nil {
		s.logger.Error("plan generation failed", "error", err)
		writeError(w, http.StatusBadGateway, "plan generation failed: %v", err)
		return
	}
	writeJSON(w, http.StatusCreated, plan)
}

func (s *Server) handleListPlans(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", defaultListLimit)
	offset := queryInt(r, "offset", 0)

	plans, err := s.store.ListPlans(r.Context(), limit, offset)
	if err != nil {
		s.logger.Error("listing plans failed", "error", err)
		writeError(w, http.StatusInternalServerError, "listing plans failed")
		return
	}
	if plans == nil {
		plans = []planloom.Plan{}
	}
	writeJSON(w, http.StatusOK, listPlansResponse{Plans: plans})
}

func (s *Server) handleGetPlan(w http.ResponseWriter, r *http.Request) {
	plan, err := s.store.GetPlan(r.Context(), r.PathValue("id"))
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "plan not found")
		return
	}
	if err != nil {
		s.logger.Error("loading plan failed", "error", err)
		writeError(w, http.StatusInternalServerError, "loading plan failed")
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

func (s *Server) handleDeletePlan(w http.ResponseWriter, r *http.Request) {
	err := s.store.DeletePlan(r.Context(), r.PathValue("id"))
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "plan not found")
		return
	}
	if err != nil {
		s.logger.Error("deleting plan failed", "error", err)
		writeError(w, http.StatusInternalServerError, "deleting plan failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleStreamPlan generates a plan while streaming progress over SSE. The
// event sequence is zero or more "status"/"partial" events, then exactly one
// "plan" or "error" event.
func (s *Server) handleStreamPlan(w http.ResponseWriter, r *http.Request) {
	goal := strings.TrimSpace(r.URL.Query().Get("goal"))
	if goal == "" {
		writeError(w, http.StatusBadRequest, "goal must not be empty")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	observe := func(response planloom.Response) {
		switch response.Type {
		case planloom.ResponseTypePartialText:
			writeSSE(w, flusher, "partial", map[string]string{"content": response.Content})
		case planloom.ResponseTypeToolStatus:
			writeSSE(w, flusher, "status", map[string]string{"content": response.Content})
		}
	}

	plan, err := s.generateAndSave(r, goal, observe)
	if err != nil {
		s.logger.Error("plan generation failed", "error", err)
		writeSSE(w, flusher, "error", map[string]string{"error": err.Error()})
		return
	}
	writeSSE(w, flusher, "plan", plan)
}

func writeSSE(w http.ResponseWriter, flusher http.Flusher, event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	flusher.Flush()
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- server-rendered pages ---

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.renderIndex(w, "")
}

func (s *Server) renderIndex(w http.ResponseWriter, errMsg string) {
	if err := s.tmpl.ExecuteTemplate(w, "index", map[string]any{"Error": errMsg}); err != nil {
		s.logger.Error("rendering index", "error", err)
	}
}

func (s *Server) handlePlanForm(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.renderIndex(w, "invalid form submission")
		return
	}
	goal := strings.TrimSpace(r.FormValue("goal"))
	if goal == "" {
		s.renderIndex(w, "Please enter a goal.")
		return
	}

	plan, err := s.generateAndSave(r, goal, nil)
	if err != nil {
		s.logger.Error("plan generation failed", "error", err)
		s.renderIndex(w, "Plan generation failed: "+err.Error())
		return
	}
	http.Redirect(w, r, "/plans/"+plan.ID, http.StatusSeeOther)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	plans, err := s.store.ListPlans(r.Context(), defaultListLimit, 0)
	if err != nil {
		s.logger.Error("listing plans failed", "error", err)
		http.Error(w, "listing plans failed", http.StatusInternalServerError)
		return
	}
	if err := s.tmpl.ExecuteTemplate(w, "history", map[string]any{"Plans": plans}); err != nil {
		s.logger.Error("rendering history", "error", err)
	}
}

func (s *Server) handlePlanPage(w http.ResponseWriter, r *http.Request) {
	plan, err := s.store.GetPlan(r.Context(), r.PathValue("id"))
	if errors.Is(err, store.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		s.logger.Error("loading plan failed", "error", err)
		http.Error(w, "loading plan failed", http.StatusInternalServerError)
		return
	}
	if err := s.tmpl.ExecuteTemplate(w, "plan", map[string]any{"Plan": plan}); err != nil {
		s.logger.Error("rendering plan", "error", err)
	}
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
