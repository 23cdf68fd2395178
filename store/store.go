// Package store persists generated plans. Two backends are provided: SQLite
// for the default single-binary setup and Postgres for shared deployments.
package store

import (
	"context"
	"errors"

	"github.com/planloom/planloom"
)

// ErrNotFound is returned when no plan exists for the requested ID.
var ErrNotFound = errors.New("plan not found")

// Store is the persistence contract. Plans are immutable once saved; the
// only mutation is deletion from the browser.
type Store interface {
	// SavePlan stores a plan, filling ID and CreatedAt when unset.
	SavePlan(ctx context.Context, plan *planloom.Plan) error

	// GetPlan returns the plan with the given ID or ErrNotFound.
	GetPlan(ctx context.Context, id string) (*planloom.Plan, error)

	// ListPlans returns stored plans newest-first.
	ListPlans(ctx context.Context, limit, offset int) ([]planloom.Plan, error)

	// DeletePlan removes a plan. Deleting a missing plan returns ErrNotFound.
	DeletePlan(ctx context.Context, id string) error

	// RecentGoals returns the goals of the most recent plans, newest-first.
	RecentGoals(ctx context.Context, limit int) ([]string, error)

	Close() error
}
