// Package handler provides HTTP handlers for the API.
package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/capitalize-ai/call-monitor/internal/middleware"
	"github.com/capitalize-ai/call-monitor/internal/model"
	"github.com/capitalize-ai/call-monitor/internal/service"
	"github.com/capitalize-ai/call-monitor/pkg/logger"
)

// CallHandler handles call state and control endpoints.
type CallHandler struct {
	monitor *service.Monitor
	logger  *logger.Logger
}

// NewCallHandler creates a new call handler.
func NewCallHandler(monitor *service.Monitor, log *logger.Logger) *CallHandler {
	return &CallHandler{
		monitor: monitor,
		logger:  log,
	}
}

// CallResponse is the snapshot plus the formatted duration.
type CallResponse struct {
	model.Snapshot
	Duration string `json:"duration"`
}

// UseScriptRequest selects a script.
type UseScriptRequest struct {
	Name string `json:"name"`
}

// Get handles GET /api/v1/call
func (h *CallHandler) Get(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r)
}

// Start handles POST /api/v1/call/start
func (h *CallHandler) Start(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, middleware.CommandStart)
}

// End handles POST /api/v1/call/end
func (h *CallHandler) End(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, middleware.CommandEnd)
}

// Toggle handles POST /api/v1/call/toggle
func (h *CallHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, middleware.CommandToggle)
}

// Reset handles POST /api/v1/call/reset
func (h *CallHandler) Reset(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, middleware.CommandReset)
}

// UseScript handles PUT /api/v1/call/script
func (h *CallHandler) UseScript(w http.ResponseWriter, r *http.Request) {
	var req UseScriptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := middleware.ValidateScriptName(req.Name); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.monitor.UseScript(r.Context(), req.Name); err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			h.logger.Error("failed to switch script", zap.String("script", req.Name), zap.Error(err))
		}
		writeError(w, status, err.Error())
		return
	}
	h.respond(w, r)
}

// Scripts handles GET /api/v1/scripts
func (h *CallHandler) Scripts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"scripts": h.monitor.Scripts(),
	})
}

// Waveform handles GET /api/v1/call/waveform
func (h *CallHandler) Waveform(w http.ResponseWriter, r *http.Request) {
	frame, ok := h.monitor.Frame()
	if !ok {
		writeError(w, http.StatusNotFound, "no waveform frame rendered yet")
		return
	}
	writeJSON(w, http.StatusOK, frame)
}

// WaveformSVG handles GET /api/v1/call/waveform.svg
func (h *CallHandler) WaveformSVG(w http.ResponseWriter, r *http.Request) {
	frame, ok := h.monitor.Frame()
	if !ok {
		writeError(w, http.StatusNotFound, "no waveform frame rendered yet")
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(frame.SVG()))
}

func (h *CallHandler) run(w http.ResponseWriter, r *http.Request, cmd middleware.Command) {
	if err := execute(r.Context(), h.monitor, cmd); err != nil {
		h.logger.WithRequest(middleware.GetCorrelationID(r.Context()), middleware.GetUserID(r.Context())).
			Warn("call command failed", zap.String("command", string(cmd)), zap.Error(err))
		writeError(w, statusFor(err), err.Error())
		return
	}
	h.respond(w, r)
}

func (h *CallHandler) respond(w http.ResponseWriter, r *http.Request) {
	snap, err := h.monitor.Snapshot(r.Context())
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, CallResponse{
		Snapshot: snap,
		Duration: snap.Session.Duration(),
	})
}

// execute dispatches a validated command to the monitor.
func execute(ctx context.Context, m *service.Monitor, cmd middleware.Command) error {
	switch cmd {
	case middleware.CommandStart:
		return m.StartCall(ctx)
	case middleware.CommandEnd:
		return m.EndCall(ctx)
	case middleware.CommandToggle:
		return m.Toggle(ctx)
	default:
		return m.Reset(ctx)
	}
}
