// Package status holds the process-wide scouting status: one writer (the
// run coordinator), any number of concurrent readers.
package status

import (
	"sync"

	"github.com/sandlin/cma-scout/internal/domain/model"
)

// Publisher is an atomically swappable status snapshot. Publish is a
// fire-and-forget overwrite; readers always observe a complete snapshot,
// never a partially written one.
type Publisher struct {
	mu  sync.RWMutex
	cur model.AgentStatus
}

// NewPublisher creates a Publisher in the idle initial state.
func NewPublisher() *Publisher {
	return &Publisher{
		cur: model.AgentStatus{
			Phase:   model.PhaseIdle,
			Message: "Ready",
		},
	}
}

// Publish replaces the current snapshot. Last writer wins.
func (p *Publisher) Publish(s model.AgentStatus) {
	p.mu.Lock()
	p.cur = s
	p.mu.Unlock()
}

// Get returns the current snapshot.
func (p *Publisher) Get() model.AgentStatus {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.cur
}
