package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/capitalize-ai/call-monitor/internal/model"
	"github.com/capitalize-ai/call-monitor/internal/service"
	"github.com/capitalize-ai/call-monitor/pkg/logger"
	"github.com/capitalize-ai/call-monitor/pkg/metrics"
)

// Stream event names besides the update types.
const (
	EventSnapshot  = "snapshot"
	EventHeartbeat = "heartbeat"
	EventError     = "error"
)

// StreamConfig tunes live update delivery.
type StreamConfig struct {
	// Heartbeat keeps idle connections open through proxies.
	Heartbeat time.Duration
	// LevelInterval is the minimum spacing of audio level events. Levels
	// arrive once per waveform frame and are coalesced to the latest value.
	LevelInterval time.Duration
}

func (c StreamConfig) withDefaults() StreamConfig {
	if c.Heartbeat <= 0 {
		c.Heartbeat = 30 * time.Second
	}
	if c.LevelInterval <= 0 {
		c.LevelInterval = 100 * time.Millisecond
	}
	return c
}

// HeartbeatEvent is sent periodically on idle streams.
type HeartbeatEvent struct {
	Timestamp time.Time `json:"timestamp"`
}

// ErrorEvent reports a problem on a live stream.
type ErrorEvent struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// outbound is a frame queued for a stream writer.
type outbound struct {
	event string
	data  any
}

// relay forwards updates to emit until ctx ends, the subscription closes or
// emit fails. Extra frames, if any, are interleaved in arrival order.
func relay(ctx context.Context, updates <-chan model.Update, extra <-chan outbound, cfg StreamConfig, emit func(event string, data any) error) error {
	heartbeat := time.NewTicker(cfg.Heartbeat)
	defer heartbeat.Stop()
	levels := time.NewTicker(cfg.LevelInterval)
	defer levels.Stop()

	var pendingLevel *model.Update

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case u, ok := <-updates:
			if !ok {
				return nil
			}
			if u.Type == model.UpdateLevel {
				pendingLevel = &u
				continue
			}
			if err := emit(string(u.Type), u); err != nil {
				return err
			}

		case <-levels.C:
			if pendingLevel == nil {
				continue
			}
			if err := emit(string(model.UpdateLevel), *pendingLevel); err != nil {
				return err
			}
			pendingLevel = nil

		case o := <-extra:
			if err := emit(o.event, o.data); err != nil {
				return err
			}

		case <-heartbeat.C:
			if err := emit(EventHeartbeat, HeartbeatEvent{Timestamp: time.Now()}); err != nil {
				return err
			}
		}
	}
}

// StreamHandler handles SSE streaming endpoints.
type StreamHandler struct {
	monitor *service.Monitor
	cfg     StreamConfig
	logger  *logger.Logger
}

// NewStreamHandler creates a new stream handler.
func NewStreamHandler(monitor *service.Monitor, cfg StreamConfig, log *logger.Logger) *StreamHandler {
	return &StreamHandler{
		monitor: monitor,
		cfg:     cfg.withDefaults(),
		logger:  log,
	}
}

// Stream handles GET /api/v1/call/stream
//
// The first event is a full snapshot; every later event is an incremental
// update for the same session or a new session after a script switch.
func (h *StreamHandler) Stream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	// Subscribe before the snapshot so nothing between them is lost.
	updates, cancel := h.monitor.Subscribe()
	defer cancel()

	snap, err := h.monitor.Snapshot(ctx)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	// Set SSE headers
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering
	w.WriteHeader(http.StatusOK)

	metrics.IncrementStreamConnections("sse")
	defer metrics.DecrementStreamConnections("sse")

	emit := func(event string, data any) error {
		return sendSSEEvent(w, flusher, event, data)
	}
	if err := emit(EventSnapshot, snap); err != nil {
		return
	}

	h.logger.Debug("SSE client connected", zap.String("session_id", snap.Session.ID))
	err = relay(ctx, updates, nil, h.cfg, emit)
	h.logger.Debug("SSE client disconnected", zap.String("session_id", snap.Session.ID), zap.Error(err))
}

func sendSSEEvent(w http.ResponseWriter, flusher http.Flusher, event string, data interface{}) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}

	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, jsonData); err != nil {
		return err
	}
	flusher.Flush()

	return nil
}
