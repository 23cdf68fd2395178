package store

import (
	"context"
	"fmt"

	"github.com/planloom/planloom"
)

// goalContextSize is how many prior goals are surfaced to the agent.
const goalContextSize = 5

// GoalMemory implements planloom.Memory by surfacing the goals of recently
// saved plans, so a follow-up request like "same trip but cheaper" has
// something to refer to.
type GoalMemory struct {
	store Store
}

var _ planloom.Memory = &GoalMemory{}

func NewGoalMemory(s Store) *GoalMemory {
	return &GoalMemory{store: s}
}

func (m *GoalMemory) Retrieve(ctx context.Context) (*planloom.MemoryBlock, error) {
	block := planloom.NewMemoryBlock()
	goals, err := m.store.RecentGoals(ctx, goalContextSize)
	if err != nil {
		return nil, fmt.Errorf("loading recent goals: %w", err)
	}
	for i, goal := range goals {
		block.AddString(fmt.Sprintf("recent goal %d", i+1), goal)
	}
	return block, nil
}
