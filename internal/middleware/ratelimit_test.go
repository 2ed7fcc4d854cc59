package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"
)

func TestRateLimit_RetryAfterFollowsWindow(t *testing.T) {
	tests := []struct {
		name   string
		window time.Duration
		want   int
	}{
		{name: "ten seconds", window: 10 * time.Second, want: 10},
		{name: "two minutes", window: 2 * time.Minute, want: 120},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := RateLimit(1, tt.window)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

			var rec *httptest.ResponseRecorder
			for i := 0; i < 2; i++ {
				rec = httptest.NewRecorder()
				req := httptest.NewRequest(http.MethodGet, "/api/v1/call", nil)
				req.RemoteAddr = "192.0.2.1:1234"
				h.ServeHTTP(rec, req)
			}

			if rec.Code != http.StatusTooManyRequests {
				t.Fatalf("status = %d, want 429", rec.Code)
			}
			if got := rec.Header().Get("Retry-After"); got != strconv.Itoa(tt.want) {
				t.Errorf("Retry-After = %q, want %d", got, tt.want)
			}
			var body struct {
				RetryAfter int `json:"retry_after"`
			}
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.RetryAfter != tt.want {
				t.Errorf("retry_after = %d, want %d", body.RetryAfter, tt.want)
			}
		})
	}
}

func TestRetryAfterSeconds(t *testing.T) {
	tests := []struct {
		window time.Duration
		want   int
	}{
		{window: time.Minute, want: 60},
		{window: 1500 * time.Millisecond, want: 2},
		{window: 300 * time.Millisecond, want: 1},
		{window: 0, want: 1},
	}
	for _, tt := range tests {
		if got := retryAfterSeconds(tt.window); got != tt.want {
			t.Errorf("retryAfterSeconds(%v) = %d, want %d", tt.window, got, tt.want)
		}
	}
}
