// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"
	"time"
)

// HealthPinger is the slice of the coordinator the health check needs.
type HealthPinger interface {
	PingStore(ctx context.Context) error
}

// HealthHandler handles health check requests.
type HealthHandler struct {
	pinger HealthPinger
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(pinger HealthPinger) *HealthHandler {
	return &HealthHandler{pinger: pinger}
}

type healthResponse struct {
	Status    string    `json:"status"`
	DB        string    `json:"db"`
	Timestamp time.Time `json:"timestamp"`
}

// HandleHealth handles GET /api/health requests. The response degrades to
// 503 when the persistence store is unreachable.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	now := time.Now().UTC()
	if err := h.pinger.PingStore(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "degraded", DB: "unreachable", Timestamp: now})
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", DB: "ok", Timestamp: now})
}
