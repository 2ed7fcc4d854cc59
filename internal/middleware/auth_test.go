package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret string, scopes []string, expires time.Time) string {
	t.Helper()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "operator-1",
			ExpiresAt: jwt.NewNumericDate(expires),
		},
		Scopes: scopes,
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("SignedString: %v", err)
	}
	return s
}

func TestAuth(t *testing.T) {
	valid := signToken(t, testSecret, []string{ScopeCallControl}, time.Now().Add(time.Hour))
	expired := signToken(t, testSecret, []string{ScopeCallControl}, time.Now().Add(-time.Hour))
	wrongKey := signToken(t, "other", []string{ScopeCallControl}, time.Now().Add(time.Hour))

	tests := []struct {
		name   string
		header string
		query  string
		want   int
	}{
		{name: "valid header", header: "Bearer " + valid, want: http.StatusOK},
		{name: "valid query token", query: "?access_token=" + valid, want: http.StatusOK},
		{name: "missing", want: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic " + valid, want: http.StatusUnauthorized},
		{name: "expired", header: "Bearer " + expired, want: http.StatusUnauthorized},
		{name: "wrong key", header: "Bearer " + wrongKey, want: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotUser string
			h := Auth(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotUser = GetUserID(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/api/v1/call"+tt.query, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
			if tt.want == http.StatusOK && gotUser != "operator-1" {
				t.Errorf("user = %q", gotUser)
			}
		})
	}
}

func TestRequireScope(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})

	tests := []struct {
		name   string
		scopes []string
		want   int
	}{
		{name: "granted", scopes: []string{ScopeCallRead, ScopeCallControl}, want: http.StatusOK},
		{name: "read only", scopes: []string{ScopeCallRead}, want: http.StatusForbidden},
		{name: "none", want: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := Anonymous(tt.scopes...)(RequireScope(ScopeCallControl)(ok))
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/call/start", nil))
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}
