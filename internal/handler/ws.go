package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/capitalize-ai/call-monitor/internal/middleware"
	"github.com/capitalize-ai/call-monitor/internal/service"
	"github.com/capitalize-ai/call-monitor/pkg/logger"
	"github.com/capitalize-ai/call-monitor/pkg/metrics"
)

const (
	wsWriteTimeout   = 5 * time.Second
	wsMaxMessageSize = 4096
)

// WSMessage is the envelope for every server to client frame.
type WSMessage struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// WSCommand is a client to server frame.
type WSCommand struct {
	Command string `json:"command"`
}

// WSHandler serves the websocket live channel.
type WSHandler struct {
	monitor  *service.Monitor
	cfg      StreamConfig
	upgrader websocket.Upgrader
	logger   *logger.Logger
}

// NewWSHandler creates a websocket handler. Origin checks are left to the
// CORS middleware.
func NewWSHandler(monitor *service.Monitor, cfg StreamConfig, log *logger.Logger) *WSHandler {
	return &WSHandler{
		monitor: monitor,
		cfg:     cfg.withDefaults(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		logger: log,
	}
}

// ServeHTTP handles GET /api/v1/call/ws
func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	updates, cancel := h.monitor.Subscribe()
	defer cancel()

	snap, err := h.monitor.Snapshot(r.Context())
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()
	conn.SetReadLimit(wsMaxMessageSize)

	metrics.IncrementStreamConnections("websocket")
	defer metrics.DecrementStreamConnections("websocket")

	// The connection outlives the request context once hijacked.
	ctx, stop := context.WithCancel(context.WithoutCancel(r.Context()))
	defer stop()

	emit := func(event string, data any) error {
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		return conn.WriteJSON(WSMessage{Event: event, Data: data})
	}
	if err := emit(EventSnapshot, snap); err != nil {
		return
	}

	replies := make(chan outbound, 8)
	go h.readCommands(ctx, stop, conn, r, replies)

	err = relay(ctx, updates, replies, h.cfg, emit)
	h.logger.Debug("websocket client disconnected", zap.String("session_id", snap.Session.ID), zap.Error(err))
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(wsWriteTimeout))
}

// readCommands applies inbound commands until the peer goes away. Only the
// relay goroutine writes to conn; replies are queued for it.
func (h *WSHandler) readCommands(ctx context.Context, stop context.CancelFunc, conn *websocket.Conn, r *http.Request, replies chan<- outbound) {
	defer stop()
	canControl := middleware.HasScope(r.Context(), middleware.ScopeCallControl)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var msg WSCommand
		if err := json.Unmarshal(data, &msg); err != nil {
			h.reply(ctx, replies, ErrorEvent{Code: "bad_request", Message: "invalid command frame"})
			continue
		}
		cmd, err := middleware.ValidateCommand(msg.Command)
		if err != nil {
			h.reply(ctx, replies, ErrorEvent{Code: "bad_request", Message: err.Error()})
			continue
		}
		if !canControl {
			h.reply(ctx, replies, ErrorEvent{Code: "forbidden", Message: "insufficient permissions"})
			continue
		}
		if err := execute(ctx, h.monitor, cmd); err != nil {
			h.reply(ctx, replies, ErrorEvent{Code: "command_failed", Message: err.Error()})
		}
	}
}

func (h *WSHandler) reply(ctx context.Context, replies chan<- outbound, e ErrorEvent) {
	select {
	case replies <- outbound{event: EventError, data: e}:
	case <-ctx.Done():
	}
}
