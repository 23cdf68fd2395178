// Package planloom - memory.go
// Memory supplies the agent with context from earlier plans.

package planloom

import (
	"context"
	"strings"
)

// Memory is an interface for retrieving prior-plan context for a run.
type Memory interface {
	Retrieve(ctx context.Context) (*MemoryBlock, error)
}

// MemoryBlock is an ordered set of labeled facts rendered into the system
// prompt.
type MemoryBlock struct {
	keys   []string
	values map[string]string
}

func NewMemoryBlock() *MemoryBlock {
	return &MemoryBlock{values: map[string]string{}}
}

func (m *MemoryBlock) AddString(key, value string) {
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
}

func (m *MemoryBlock) Len() int {
	return len(m.keys)
}

// Render formats the block for inclusion in a developer message.
func (m *MemoryBlock) Render() string {
	if m == nil || len(m.keys) == 0 {
		return ""
	}
	var b strings.Builder
	for _, k := range m.keys {
		b.WriteString(k)
		b.WriteString(": ")
		b.WriteString(m.values[k])
		b.WriteString("\n")
	}
	return b.String()
}

// NoopMemory returns an empty block. Used when no store is wired in.
type NoopMemory struct{}

func (NoopMemory) Retrieve(ctx context.Context) (*MemoryBlock, error) {
	return NewMemoryBlock(), nil
}
