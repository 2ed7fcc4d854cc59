package handler

import (
	"net/http"

	natsclient "github.com/capitalize-ai/call-monitor/internal/nats"
	"github.com/capitalize-ai/call-monitor/internal/service"
)

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	monitor    *service.Monitor
	natsClient *natsclient.Client
}

// NewHealthHandler creates a new health handler. natsClient is nil when the
// NATS mirror is disabled.
func NewHealthHandler(monitor *service.Monitor, natsClient *natsclient.Client) *HealthHandler {
	return &HealthHandler{
		monitor:    monitor,
		natsClient: natsClient,
	}
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

// Ready handles GET /ready
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if _, err := h.monitor.Snapshot(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"reason": err.Error(),
		})
		return
	}

	if h.natsClient != nil && !h.natsClient.IsConnected() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"reason": "NATS not connected",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ready",
	})
}
