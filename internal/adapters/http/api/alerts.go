// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/sandlin/cma-scout/internal/domain/model"
)

// AlertLister is the slice of the coordinator the alert endpoint needs.
type AlertLister interface {
	ListAlerts(ctx context.Context) ([]model.Alert, error)
}

// AlertsHandler handles alert listing requests.
type AlertsHandler struct {
	lister AlertLister
}

// NewAlertsHandler creates a new alerts handler.
func NewAlertsHandler(lister AlertLister) *AlertsHandler {
	return &AlertsHandler{lister: lister}
}

// HandleList handles GET /api/alerts?limit=N requests. Alerts come back
// newest first; limit is optional and caps the page.
func (h *AlertsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_alerts"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		n, err := strconv.Atoi(limitStr)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
			return
		}
		limit = n
	}

	alerts, err := h.lister.ListAlerts(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	if alerts == nil {
		alerts = []model.Alert{}
	}
	if limit > 0 && len(alerts) > limit {
		alerts = alerts[:limit]
	}
	writeJSON(w, http.StatusOK, alerts)
}
