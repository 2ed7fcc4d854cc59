package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/capitalize-ai/call-monitor/pkg/logger"
)

func TestLogging_CorrelationID(t *testing.T) {
	var fromCtx string
	var flushable bool
	h := Logging(logger.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fromCtx = GetCorrelationID(r.Context())
		_, flushable = w.(http.Flusher)
		w.WriteHeader(http.StatusAccepted)
	}))

	t.Run("generated", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		got := rec.Header().Get("X-Correlation-ID")
		if got == "" || got != fromCtx {
			t.Errorf("header = %q, context = %q", got, fromCtx)
		}
		if rec.Code != http.StatusAccepted {
			t.Errorf("status = %d", rec.Code)
		}
		if !flushable {
			t.Error("wrapped writer should still implement http.Flusher")
		}
	})

	t.Run("propagated", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set("X-Correlation-ID", "abc-123")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if fromCtx != "abc-123" || rec.Header().Get("X-Correlation-ID") != "abc-123" {
			t.Errorf("correlation id not propagated: %q", fromCtx)
		}
	})
}

func TestSecurityHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	SecurityHeaders(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("missing nosniff header")
	}
}

func TestValidateScriptName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{name: "builtin", input: "clinic-intake"},
		{name: "underscore", input: "follow_up2"},
		{name: "empty", input: "", wantErr: true},
		{name: "uppercase", input: "Clinic", wantErr: true},
		{name: "path", input: "../etc", wantErr: true},
		{name: "too long", input: strings.Repeat("a", 65), wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateScriptName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateScriptName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateCommand(t *testing.T) {
	tests := []struct {
		input   string
		want    Command
		wantErr bool
	}{
		{input: "start", want: CommandStart},
		{input: " END ", want: CommandEnd},
		{input: "toggle", want: CommandToggle},
		{input: "reset", want: CommandReset},
		{input: "pause", wantErr: true},
		{input: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ValidateCommand(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
