// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"

	"github.com/sandlin/cma-scout/internal/domain/model"
)

// CompetitorLister is the slice of the coordinator the competitor
// endpoint needs.
type CompetitorLister interface {
	ListCompetitors(ctx context.Context) ([]model.Competitor, error)
}

// CompetitorsHandler handles competitor listing requests.
type CompetitorsHandler struct {
	lister CompetitorLister
}

// NewCompetitorsHandler creates a new competitors handler.
func NewCompetitorsHandler(lister CompetitorLister) *CompetitorsHandler {
	return &CompetitorsHandler{lister: lister}
}

// HandleList handles GET /api/competitors requests.
func (h *CompetitorsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_competitors"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	competitors, err := h.lister.ListCompetitors(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	if competitors == nil {
		competitors = []model.Competitor{}
	}
	writeJSON(w, http.StatusOK, competitors)
}
