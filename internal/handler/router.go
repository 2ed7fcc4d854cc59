package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/capitalize-ai/call-monitor/internal/middleware"
	natsclient "github.com/capitalize-ai/call-monitor/internal/nats"
	"github.com/capitalize-ai/call-monitor/internal/service"
	"github.com/capitalize-ai/call-monitor/pkg/logger"
)

// RouterConfig configures the HTTP surface.
type RouterConfig struct {
	// AuthEnabled requires a JWT on /api/v1. When disabled every request
	// holds both call scopes.
	AuthEnabled bool
	JWTSecret   string

	RateLimitRequests int
	RateLimitWindow   time.Duration

	Stream StreamConfig
}

// NewRouter builds the API router. natsClient is nil when the mirror is
// disabled.
func NewRouter(monitor *service.Monitor, natsClient *natsclient.Client, cfg RouterConfig, log *logger.Logger) http.Handler {
	healthHandler := NewHealthHandler(monitor, natsClient)
	callHandler := NewCallHandler(monitor, log)
	streamHandler := NewStreamHandler(monitor, cfg.Stream, log)
	wsHandler := NewWSHandler(monitor, cfg.Stream, log)

	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(middleware.SecurityHeaders)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS())

	// Health endpoints (no auth required)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	// Metrics endpoint
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		if cfg.AuthEnabled {
			r.Use(middleware.Auth(cfg.JWTSecret))
		} else {
			r.Use(middleware.Anonymous(middleware.ScopeCallRead, middleware.ScopeCallControl))
		}
		if cfg.RateLimitRequests > 0 {
			r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))
		}

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireScope(middleware.ScopeCallRead))
			r.Get("/scripts", callHandler.Scripts)
			r.Get("/call", callHandler.Get)
			r.Get("/call/stream", streamHandler.Stream)
			r.Get("/call/ws", wsHandler.ServeHTTP)
			r.Get("/call/waveform", callHandler.Waveform)
			r.Get("/call/waveform.svg", callHandler.WaveformSVG)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireScope(middleware.ScopeCallControl))
			r.Post("/call/start", callHandler.Start)
			r.Post("/call/end", callHandler.End)
			r.Post("/call/toggle", callHandler.Toggle)
			r.Post("/call/reset", callHandler.Reset)
			r.Put("/call/script", callHandler.UseScript)
		})
	})

	return r
}
