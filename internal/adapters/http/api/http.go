// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/sandlin/cma-scout/internal/domain/model"
	"github.com/sandlin/cma-scout/pkg/logger"
	"github.com/sandlin/cma-scout/pkg/metrics"
)

// Coordinator bundles everything the HTTP handlers need from the run
// coordinator. Using an interface keeps the handler layer loosely coupled
// to the service implementation.
type Coordinator interface {
	// StartPass launches a scouting pass. Returns a conflict error while
	// one is already in flight.
	StartPass(ctx context.Context) error

	// StopPass asks an in-flight pass to stop after its current item.
	StopPass()

	// GetStatus returns the current pass status snapshot.
	GetStatus() model.AgentStatus

	// Read projections over the persisted entities.
	ListAssignments(ctx context.Context) ([]model.Assignment, error)
	ListCompetitors(ctx context.Context) ([]model.Competitor, error)
	ListAlerts(ctx context.Context) ([]model.Alert, error)

	// PingStore verifies the persistence store is reachable.
	PingStore(ctx context.Context) error

	// GetStats returns service statistics for monitoring.
	GetStats(ctx context.Context) map[string]interface{}
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statusHandler      *StatusHandler
	runHandler         *RunHandler
	assignmentsHandler *AssignmentsHandler
	competitorsHandler *CompetitorsHandler
	alertsHandler      *AlertsHandler
	statsHandler       *StatsHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(coord Coordinator) *Server {
	return &Server{
		healthHandler:      NewHealthHandler(coord),
		statusHandler:      NewStatusHandler(coord),
		runHandler:         NewRunHandler(coord),
		assignmentsHandler: NewAssignmentsHandler(coord),
		competitorsHandler: NewCompetitorsHandler(coord),
		alertsHandler:      NewAlertsHandler(coord),
		statsHandler:       NewStatsHandler(coord),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/api/health", MetricsMiddleware(s.healthHandler.HandleHealth, "health"))
	mux.HandleFunc("/api/agent/status", MetricsMiddleware(s.statusHandler.HandleStatus, "agent_status"))
	mux.HandleFunc("/api/agent/run", MetricsMiddleware(s.runHandler.HandleRun, "agent_run"))
	mux.HandleFunc("/api/agent/stop", MetricsMiddleware(s.runHandler.HandleStop, "agent_stop"))
	mux.HandleFunc("/api/scout/assignments", MetricsMiddleware(s.assignmentsHandler.HandleList, "assignments"))
	mux.HandleFunc("/api/competitors", MetricsMiddleware(s.competitorsHandler.HandleList, "competitors"))
	mux.HandleFunc("/api/alerts", MetricsMiddleware(s.alertsHandler.HandleList, "alerts"))
	mux.HandleFunc("/api/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.Handle("/metrics", metrics.Handler())
}

type ackResponse struct {
	Status string `json:"status"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// The status header is already out; all we can do is record the
		// truncated response.
		logger.Named("api").Error(context.Background(), "response encoding failed", logger.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
