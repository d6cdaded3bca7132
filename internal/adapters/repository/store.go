// Package repository defines the persistence store interface and errors.
package repository

import (
	"context"

	"github.com/sandlin/cma-scout/internal/domain/model"
)

// Outcome is the unit the alert classifier persists: the mutated
// assignment and competitor plus any alerts drafted for the pair, written
// as one atomic change.
type Outcome struct {
	Assignment *model.Assignment
	Competitor *model.Competitor
	Alerts     []model.Alert
}

// Store provides read/write access to assignments, competitors, and
// alerts. Implementations must make ApplyOutcome atomic: either every
// part of the outcome lands or none does.
type Store interface {
	// ListAssignments returns all assignments, ordered by id.
	ListAssignments(ctx context.Context) ([]model.Assignment, error)

	// ListCompetitors returns all competitors, ordered by id.
	ListCompetitors(ctx context.Context) ([]model.Competitor, error)

	// ListAlerts returns all alerts, newest first.
	ListAlerts(ctx context.Context) ([]model.Alert, error)

	// GetAssignment returns one assignment or ErrNotFound.
	GetAssignment(ctx context.Context, id string) (model.Assignment, error)

	// GetCompetitor returns one competitor or ErrNotFound.
	GetCompetitor(ctx context.Context, id string) (model.Competitor, error)

	// PutAssignment creates or replaces an assignment. Used by
	// provisioning and seeding; the engine itself mutates assignments
	// only through ApplyOutcome.
	PutAssignment(ctx context.Context, a model.Assignment) error

	// ApplyOutcome atomically writes the updated assignment, the updated
	// competitor, and any new alerts.
	ApplyOutcome(ctx context.Context, out Outcome) error

	// Ping verifies the store is reachable.
	Ping(ctx context.Context) error
}
