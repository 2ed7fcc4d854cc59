package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/capitalize-ai/call-monitor/internal/eventloop"
	"github.com/capitalize-ai/call-monitor/internal/fixture"
	"github.com/capitalize-ai/call-monitor/internal/service"
)

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{
		"error": message,
	})
}

// statusFor maps service errors onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, fixture.ErrUnknownScript):
		return http.StatusNotFound
	case errors.Is(err, service.ErrNoSession), errors.Is(err, eventloop.ErrClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
