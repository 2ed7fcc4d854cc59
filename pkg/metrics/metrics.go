// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks HTTP request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	// RequestsTotal tracks total HTTP requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// TimelineFiringsTotal counts timeline events materialized into logs.
	TimelineFiringsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "timeline_firings_total",
			Help: "Timeline events fired into call logs",
		},
		[]string{"script", "log"},
	)

	// WaveformFramesTotal counts synthesizer steps.
	WaveformFramesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "waveform_frames_total",
			Help: "Waveform synthesizer frames executed",
		},
	)

	// WaveformFramesSkipped counts frames whose render target was unavailable.
	WaveformFramesSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "waveform_frames_skipped_total",
			Help: "Waveform frames skipped because the surface was unavailable",
		},
	)

	// AudioLevel exposes the latest normalized audio level.
	AudioLevel = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "call_audio_level",
			Help: "Latest synthesized audio level (0..1)",
		},
	)

	// CallActive is 1 while the simulated call is live.
	CallActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "call_active",
			Help: "Whether the simulated call is active",
		},
	)

	// CallTransitionsTotal counts session commands.
	CallTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "call_transitions_total",
			Help: "Call session transitions",
		},
		[]string{"script", "transition"},
	)

	// StreamConnectionsActive tracks active SSE/websocket subscribers.
	StreamConnectionsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "stream_connections_active",
			Help: "Number of active update stream connections",
		},
		[]string{"transport"},
	)

	// UpdatesDropped counts updates dropped for slow subscribers.
	UpdatesDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "updates_dropped_total",
			Help: "Updates dropped because a subscriber was not keeping up",
		},
	)

	// NATSPublishFailures counts mirror publish errors.
	NATSPublishFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nats_publish_failures_total",
			Help: "Failed NATS mirror publishes",
		},
		[]string{"type"},
	)
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordFiring records one timeline event fired into a log.
func RecordFiring(script, log string) {
	TimelineFiringsTotal.WithLabelValues(script, log).Inc()
}

// RecordTransition records a session command and the resulting call state.
func RecordTransition(script, transition string, active bool) {
	CallTransitionsTotal.WithLabelValues(script, transition).Inc()
	if active {
		CallActive.Set(1)
	} else {
		CallActive.Set(0)
	}
}

// RecordFrame records one synthesizer frame.
func RecordFrame(level float64) {
	WaveformFramesTotal.Inc()
	AudioLevel.Set(level)
}

// IncrementStreamConnections increments the active stream count.
func IncrementStreamConnections(transport string) {
	StreamConnectionsActive.WithLabelValues(transport).Inc()
}

// DecrementStreamConnections decrements the active stream count.
func DecrementStreamConnections(transport string) {
	StreamConnectionsActive.WithLabelValues(transport).Dec()
}
