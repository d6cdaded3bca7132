// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"

	"github.com/sandlin/cma-scout/internal/domain/model"
)

// AssignmentLister is the slice of the coordinator the assignment
// endpoint needs.
type AssignmentLister interface {
	ListAssignments(ctx context.Context) ([]model.Assignment, error)
}

// AssignmentsHandler handles assignment listing requests.
type AssignmentsHandler struct {
	lister AssignmentLister
}

// NewAssignmentsHandler creates a new assignments handler.
func NewAssignmentsHandler(lister AssignmentLister) *AssignmentsHandler {
	return &AssignmentsHandler{lister: lister}
}

// HandleList handles GET /api/scout/assignments requests.
func (h *AssignmentsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_assignments"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	assignments, err := h.lister.ListAssignments(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	if assignments == nil {
		assignments = []model.Assignment{}
	}
	writeJSON(w, http.StatusOK, assignments)
}
