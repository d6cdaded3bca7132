// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"errors"
	"net/http"

	service "github.com/sandlin/cma-scout/internal/app"
	"github.com/sandlin/cma-scout/internal/domain/model"
)

// StatusProvider is the slice of the coordinator the status endpoint needs.
type StatusProvider interface {
	GetStatus() model.AgentStatus
}

// StatusHandler handles agent status requests.
type StatusHandler struct {
	provider StatusProvider
}

// NewStatusHandler creates a new status handler.
func NewStatusHandler(provider StatusProvider) *StatusHandler {
	return &StatusHandler{provider: provider}
}

// HandleStatus handles GET /api/agent/status requests.
func (h *StatusHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, h.provider.GetStatus())
}

// RunControl is the slice of the coordinator the run endpoints need.
type RunControl interface {
	StartPass(ctx context.Context) error
	StopPass()
}

// RunHandler handles pass start and stop requests.
type RunHandler struct {
	control RunControl
}

// NewRunHandler creates a new run handler.
func NewRunHandler(control RunControl) *RunHandler {
	return &RunHandler{control: control}
}

// HandleRun handles POST /api/agent/run requests. A second run while one
// is in flight is rejected with 409.
func (h *RunHandler) HandleRun(w http.ResponseWriter, r *http.Request) {
	const op = "api.agent_run"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	if err := h.control.StartPass(r.Context()); err != nil {
		if errors.Is(err, service.ErrAlreadyRunning) {
			writeError(w, http.StatusConflict, "already_running", WrapKind(op, ErrConflict, err))
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "started"})
}

// HandleStop handles POST /api/agent/stop requests. Stopping is
// cooperative; work persisted so far stands.
func (h *RunHandler) HandleStop(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	h.control.StopPass()
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "stopping"})
}
