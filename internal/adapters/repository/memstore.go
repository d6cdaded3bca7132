package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/sandlin/cma-scout/internal/domain/model"
)

// MemStore implements Store with in-process maps. It is the default
// backend and the one integration tests run against.
type MemStore struct {
	mu          sync.RWMutex
	assignments map[string]model.Assignment
	competitors map[string]model.Competitor
	alerts      []model.Alert
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		assignments: make(map[string]model.Assignment),
		competitors: make(map[string]model.Competitor),
	}
}

// ListAssignments returns all assignments ordered by id.
func (s *MemStore) ListAssignments(ctx context.Context) ([]model.Assignment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Assignment, 0, len(s.assignments))
	for _, a := range s.assignments {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ListCompetitors returns all competitors ordered by id.
func (s *MemStore) ListCompetitors(ctx context.Context) ([]model.Competitor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Competitor, 0, len(s.competitors))
	for _, c := range s.competitors {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ListAlerts returns all alerts, newest first.
func (s *MemStore) ListAlerts(ctx context.Context) ([]model.Alert, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Alert, len(s.alerts))
	copy(out, s.alerts)
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// GetAssignment returns one assignment or ErrNotFound.
func (s *MemStore) GetAssignment(ctx context.Context, id string) (model.Assignment, error) {
	if err := ctx.Err(); err != nil {
		return model.Assignment{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.assignments[id]
	if !ok {
		return model.Assignment{}, ErrNotFound
	}
	return a, nil
}

// GetCompetitor returns one competitor or ErrNotFound.
func (s *MemStore) GetCompetitor(ctx context.Context, id string) (model.Competitor, error) {
	if err := ctx.Err(); err != nil {
		return model.Competitor{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.competitors[id]
	if !ok {
		return model.Competitor{}, ErrNotFound
	}
	return c, nil
}

// PutAssignment creates or replaces an assignment.
func (s *MemStore) PutAssignment(ctx context.Context, a model.Assignment) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.assignments[a.ID] = a
	return nil
}

// ApplyOutcome writes the assignment, competitor, and alerts under one
// lock acquisition, which is the mem store's transaction boundary.
func (s *MemStore) ApplyOutcome(ctx context.Context, out Outcome) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if out.Assignment != nil {
		s.assignments[out.Assignment.ID] = *out.Assignment
	}
	if out.Competitor != nil {
		s.competitors[out.Competitor.ID] = *out.Competitor
	}
	s.alerts = append(s.alerts, out.Alerts...)
	return nil
}

// Ping always succeeds for the in-memory store.
func (s *MemStore) Ping(ctx context.Context) error {
	return ctx.Err()
}
