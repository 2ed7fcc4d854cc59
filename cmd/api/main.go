// Package main is the entry point for the call monitor API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/capitalize-ai/call-monitor/internal/config"
	"github.com/capitalize-ai/call-monitor/internal/eventloop"
	"github.com/capitalize-ai/call-monitor/internal/fixture"
	"github.com/capitalize-ai/call-monitor/internal/handler"
	natsclient "github.com/capitalize-ai/call-monitor/internal/nats"
	"github.com/capitalize-ai/call-monitor/internal/service"
	"github.com/capitalize-ai/call-monitor/internal/waveform"
	"github.com/capitalize-ai/call-monitor/pkg/logger"
	"github.com/capitalize-ai/call-monitor/pkg/tracing"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	var (
		log *logger.Logger
		err error
	)
	if os.Getenv("ENV") == "development" {
		log, err = logger.NewDevelopment()
	} else {
		log, err = logger.New(cfg.LogLevel)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger.SetGlobal(log)

	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid configuration", zap.Error(err))
	}

	log.Info("starting call monitor", zap.String("script", cfg.Script))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize tracing if enabled
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "call-monitor", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(context.Background(), tp)
		}
	}

	// Load scripts
	registry, err := fixture.Builtin()
	if err != nil {
		log.Fatal("failed to load built-in scripts", zap.Error(err))
	}
	if cfg.FixtureDir != "" {
		if err := registry.LoadDir(cfg.FixtureDir); err != nil {
			log.Fatal("failed to load scripts", zap.String("dir", cfg.FixtureDir), zap.Error(err))
		}
	}

	// Optional NATS mirror
	var (
		natsClient *natsclient.Client
		sinks      []service.Sink
	)
	if cfg.NATSEnabled {
		natsClient, err = natsclient.Connect(natsclient.Config{
			URL:      cfg.NATSURL,
			CAFile:   cfg.NATSCAFile,
			CertFile: cfg.NATSCertFile,
			KeyFile:  cfg.NATSKeyFile,
			Token:    cfg.NATSToken,
			Name:     "call-monitor",
		}, log)
		if err != nil {
			log.Fatal("failed to connect to NATS", zap.Error(err))
		}
		defer natsClient.Close()
		sinks = append(sinks, natsclient.NewPublisher(natsClient.Conn(), cfg.NATSSubjectPrefix, log))
	}

	// Event loop; it outlives ctx so shutdown can still tear the session down.
	loopCtx, stopLoop := context.WithCancel(context.Background())
	defer stopLoop()
	loop := eventloop.NewRealtime(1024)
	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		if err := loop.Run(loopCtx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("event loop stopped", zap.Error(err))
		}
	}()

	// Initialize services
	monitor := service.NewMonitor(loop, registry, service.MonitorConfig{
		AutoStart:    cfg.AutoStart,
		TickInterval: cfg.TickInterval,
		ScrollDelay:  cfg.ScrollDelay,
		Waveform: waveform.Config{
			Width:         cfg.WaveformWidth,
			Height:        cfg.WaveformHeight,
			FrameInterval: cfg.FrameInterval,
		},
	}, log, sinks...)
	if err := monitor.UseScript(ctx, cfg.Script); err != nil {
		log.Fatal("failed to open call session", zap.String("script", cfg.Script), zap.Error(err))
	}

	router := handler.NewRouter(monitor, natsClient, handler.RouterConfig{
		AuthEnabled:       cfg.AuthEnabled,
		JWTSecret:         cfg.JWTSecret,
		RateLimitRequests: cfg.RateLimitRequests,
		RateLimitWindow:   cfg.RateLimitWindow,
	}, log)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info("server listening", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", zap.Error(err))
			stop()
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Close the monitor first so open streams end and the loop is idle.
	monitor.Close()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}
	stopLoop()
	<-loopDone

	log.Info("server stopped")
}
