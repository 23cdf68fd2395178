// Package planloom - planner.go
// Planner bundles the shared resources a plan generation needs.

package planloom

import (
	"context"
	"errors"
	"log/slog"
)

// Planner holds the global resources (LLM client, memory, agent) and spawns
// a Session per goal.
type Planner struct {
	LLM    LLM
	Model  string
	Memory Memory
	Agent  *Agent

	logger *slog.Logger
}

// NewPlanner constructs a Planner with the given resources.
func NewPlanner(llm LLM, model string, mem Memory, ag *Agent) *Planner {
	if mem == nil {
		mem = NoopMemory{}
	}
	return &Planner{
		LLM:    llm,
		Model:  model,
		Memory: mem,
		Agent:  ag,
		logger: slog.Default(),
	}
}

// NewSession creates a new generation session.
func (p *Planner) NewSession(ctx context.Context) *Session {
	return NewSession(ctx, p.LLM, p.Model, p.Memory, p.Agent)
}

// Generate runs one goal to completion. observe, when non-nil, receives every
// intermediate response (partial text, tool status). The returned plan is not
// yet persisted.
func (p *Planner) Generate(ctx context.Context, goal string, observe func(Response)) (*Plan, error) {
	session := p.NewSession(ctx)
	defer session.Close()
	session.In(goal)

	var plan *Plan
	for {
		response := session.Out()
		switch response.Type {
		case ResponseTypeEnd:
			if plan == nil {
				return nil, errors.New("agent finished without a plan")
			}
			return plan, nil
		case ResponseTypeError:
			return nil, errors.New(response.Content)
		case ResponseTypePlan:
			plan = response.Plan
		default:
			if observe != nil {
				observe(response)
			}
		}
	}
}
