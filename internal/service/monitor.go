package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/capitalize-ai/call-monitor/internal/eventloop"
	"github.com/capitalize-ai/call-monitor/internal/fixture"
	"github.com/capitalize-ai/call-monitor/internal/model"
	"github.com/capitalize-ai/call-monitor/internal/waveform"
	"github.com/capitalize-ai/call-monitor/pkg/logger"
	"github.com/capitalize-ai/call-monitor/pkg/tracing"
)

// ErrNoSession is returned by commands issued before a session is open.
var ErrNoSession = errors.New("no call session")

// MonitorConfig configures the sessions a Monitor creates.
type MonitorConfig struct {
	AutoStart    bool
	TickInterval time.Duration
	ScrollDelay  time.Duration
	Waveform     waveform.Config
}

// Monitor owns the single live call session and serializes every command
// onto the event loop.
type Monitor struct {
	exec     eventloop.Executor
	registry *fixture.Registry
	cfg      MonitorConfig
	hub      *Hub
	sink     Sink
	frames   *waveform.FrameBuffer
	logger   *logger.Logger

	session *Session
}

// NewMonitor creates a monitor. Extra sinks receive every update alongside
// the subscriber hub.
func NewMonitor(exec eventloop.Executor, registry *fixture.Registry, cfg MonitorConfig, log *logger.Logger, sinks ...Sink) *Monitor {
	if log == nil {
		log = logger.NewNop()
	}
	hub := NewHub(256)
	all := multiSink{hub}
	for _, s := range sinks {
		if s != nil {
			all = append(all, s)
		}
	}
	return &Monitor{
		exec:     exec,
		registry: registry,
		cfg:      cfg,
		hub:      hub,
		sink:     all,
		frames:   waveform.NewFrameBuffer(),
		logger:   log,
	}
}

// UseScript replaces the current session with a fresh one playing the named
// script. The previous session is torn down first.
func (m *Monitor) UseScript(ctx context.Context, name string) error {
	_, span := tracing.Tracer().Start(ctx, "call.use_script")
	defer span.End()
	span.SetAttributes(attribute.String("call.script", name))

	script, err := m.registry.Lookup(name)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	err = m.exec.Do(func() {
		if m.session != nil {
			m.session.Close()
		}
		m.session = NewSession(m.exec, script, SessionOptions{
			TickInterval: m.cfg.TickInterval,
			ScrollDelay:  m.cfg.ScrollDelay,
			Waveform:     m.cfg.Waveform,
			Surface:      m.frames,
			Sink:         m.sink,
			Logger:       m.logger,
		})
		m.session.Open()
		if m.cfg.AutoStart {
			m.session.StartCall()
		} else {
			m.session.synth.Start(false)
			m.session.publishSession()
		}
		span.SetAttributes(attribute.String("call.session_id", m.session.ID()))
	})
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to open session: %w", err)
	}

	m.logger.Info("call script loaded", zap.String("script", name))
	return nil
}

// StartCall makes the call live.
func (m *Monitor) StartCall(ctx context.Context) error {
	return m.command(ctx, "start", (*Session).StartCall)
}

// EndCall ends the call.
func (m *Monitor) EndCall(ctx context.Context) error {
	return m.command(ctx, "end", (*Session).EndCall)
}

// Toggle flips the call state.
func (m *Monitor) Toggle(ctx context.Context) error {
	return m.command(ctx, "toggle", (*Session).Toggle)
}

// Reset clears the logs and duration without changing the call state.
func (m *Monitor) Reset(ctx context.Context) error {
	return m.command(ctx, "reset", (*Session).Reset)
}

// Snapshot copies the current observable state.
func (m *Monitor) Snapshot(ctx context.Context) (model.Snapshot, error) {
	var snap model.Snapshot
	err := m.command(ctx, "snapshot", func(s *Session) { snap = s.Snapshot() })
	return snap, err
}

// Subscribe streams updates until cancel is called.
func (m *Monitor) Subscribe() (<-chan model.Update, func()) {
	return m.hub.Subscribe()
}

// Frame returns the most recently rendered waveform frame.
func (m *Monitor) Frame() (waveform.Frame, bool) {
	return m.frames.Latest()
}

// Scripts lists the available scripts.
func (m *Monitor) Scripts() []model.ScriptSummary {
	return m.registry.Summaries()
}

// Close tears down the current session and disconnects subscribers.
func (m *Monitor) Close() {
	_ = m.exec.Do(func() {
		if m.session != nil {
			m.session.Close()
			m.session = nil
		}
	})
	m.frames.Detach()
	m.hub.Close()
}

func (m *Monitor) command(ctx context.Context, name string, fn func(*Session)) error {
	_, span := tracing.Tracer().Start(ctx, "call."+name)
	defer span.End()

	var err error
	doErr := m.exec.Do(func() {
		if m.session == nil {
			err = ErrNoSession
			return
		}
		fn(m.session)
		span.SetAttributes(
			attribute.String("call.session_id", m.session.ID()),
			attribute.String("call.script", m.session.Script()),
			attribute.Bool("call.active", m.session.Active()),
		)
	})
	if doErr != nil {
		err = doErr
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}
