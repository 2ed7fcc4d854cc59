// Package service owns the call session state and the facilities that mutate it.
package service

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/capitalize-ai/call-monitor/internal/eventloop"
	"github.com/capitalize-ai/call-monitor/internal/fixture"
	"github.com/capitalize-ai/call-monitor/internal/model"
	"github.com/capitalize-ai/call-monitor/internal/scheduler"
	"github.com/capitalize-ai/call-monitor/internal/waveform"
	"github.com/capitalize-ai/call-monitor/pkg/logger"
	"github.com/capitalize-ai/call-monitor/pkg/metrics"
)

// SessionOptions configures a Session.
type SessionOptions struct {
	TickInterval time.Duration
	ScrollDelay  time.Duration
	Waveform     waveform.Config
	Surface      waveform.Surface
	Sink         Sink
	Logger       *logger.Logger
}

// Session is one simulated call. Every method must run on the session's
// executor; nothing here locks.
type Session struct {
	exec   eventloop.Executor
	script *fixture.Script
	opts   SessionOptions
	logger *logger.Logger

	state        model.CallSession
	audioLevel   float64
	conversation Log[model.ConversationTurn]
	reasoning    Log[model.ReasoningStep]
	diagnostics  Log[model.DiagnosticFinding]

	handles []*scheduler.Handle
	synth   *waveform.Synthesizer

	tickTimer eventloop.Timer
	tickStart time.Time
	ticks     int64

	scrolls   map[uint64]eventloop.Timer
	scrollSeq uint64

	opened bool
	closed bool
}

// NewSession creates an inactive session for script.
func NewSession(exec eventloop.Executor, script *fixture.Script, opts SessionOptions) *Session {
	if opts.TickInterval <= 0 {
		opts.TickInterval = time.Second
	}
	if opts.ScrollDelay < 0 {
		opts.ScrollDelay = 0
	}
	if opts.Sink == nil {
		opts.Sink = SinkFunc(func(model.Update) {})
	}
	if opts.Logger == nil {
		opts.Logger = logger.NewNop()
	}

	id := uuid.Must(uuid.NewV7()).String()
	s := &Session{
		exec:   exec,
		script: script,
		opts:   opts,
		logger: opts.Logger.WithSession(id, script.Name),
		state: model.CallSession{
			ID:        id,
			Script:    script.Name,
			StartedAt: exec.Now(),
			Caller:    script.Caller,
		},
		scrolls: make(map[uint64]eventloop.Timer),
	}

	s.synth = waveform.New(exec, script.Conversation, opts.Waveform)
	s.synth.Attach(opts.Surface)
	s.synth.OnReading(s.onReading)
	s.synth.OnSkip(func(err error) {
		metrics.WaveformFramesSkipped.Inc()
		s.logger.Debug("waveform frame skipped", zap.Error(err))
	})

	return s
}

// ID returns the session id.
func (s *Session) ID() string {
	return s.state.ID
}

// Script returns the script name.
func (s *Session) Script() string {
	return s.script.Name
}

// Active reports whether the call is live.
func (s *Session) Active() bool {
	return s.state.Active
}

// Closed reports whether the session was torn down.
func (s *Session) Closed() bool {
	return s.closed
}

// Open starts the duration tick. The tick runs for the session's lifetime.
func (s *Session) Open() {
	if s.opened || s.closed {
		return
	}
	s.opened = true
	s.tickStart = s.exec.Now()
	s.armTick()
	s.logger.Info("call session opened")
}

// Toggle flips the call between active and inactive.
func (s *Session) Toggle() {
	if s.state.Active {
		s.EndCall()
	} else {
		s.StartCall()
	}
}

// StartCall makes the call live: the logs and duration are reset, then the
// three timelines and the waveform loop start from now.
func (s *Session) StartCall() {
	if s.closed || s.state.Active {
		return
	}
	s.state.Active = true
	s.reset()
	s.startSchedulers()
	s.synth.Start(true)

	metrics.RecordTransition(s.script.Name, "start", true)
	s.logger.Info("call started")
	s.publishSession()
}

// EndCall stops timeline playback. The waveform decays to flat.
func (s *Session) EndCall() {
	if s.closed || !s.state.Active {
		return
	}
	s.state.Active = false
	s.stopSchedulers()
	s.synth.Start(false)
	s.audioLevel = 0
	s.state.CurrentSpeaker = model.SpeakerNone

	metrics.RecordTransition(s.script.Name, "end", false)
	s.logger.Info("call ended", zap.Int("elapsed_seconds", s.state.ElapsedSeconds))
	s.publishLevel()
	s.publishSession()
}

// Reset clears the three logs and the duration counter. Running schedulers
// keep firing into the cleared logs.
func (s *Session) Reset() {
	if s.closed {
		return
	}
	metrics.RecordTransition(s.script.Name, "reset", s.state.Active)
	s.reset()
}

// reset is the state change shared by Reset and StartCall; only an explicit
// Reset counts as a reset transition.
func (s *Session) reset() {
	s.conversation.Clear()
	s.reasoning.Clear()
	s.diagnostics.Clear()
	s.state.ElapsedSeconds = 0
	s.state.StartedAt = s.exec.Now()

	state := s.state
	s.opts.Sink.Publish(model.Update{
		Type:      model.UpdateReset,
		SessionID: s.state.ID,
		Session:   &state,
		At:        s.exec.Now(),
	})
}

// Close tears the session down. No callback created for it runs afterwards.
func (s *Session) Close() {
	if s.closed {
		return
	}
	s.closed = true
	s.stopSchedulers()
	s.synth.Stop()
	if s.tickTimer != nil {
		s.tickTimer.Stop()
		s.tickTimer = nil
	}
	for seq, t := range s.scrolls {
		t.Stop()
		delete(s.scrolls, seq)
	}
	if s.state.Active {
		metrics.CallActive.Set(0)
	}
	s.logger.Info("call session closed")
}

// Snapshot copies the observable state.
func (s *Session) Snapshot() model.Snapshot {
	return model.Snapshot{
		Session:      s.state,
		Conversation: s.conversation.Entries(),
		Reasoning:    s.reasoning.Entries(),
		Diagnostics:  s.diagnostics.Entries(),
		AudioLevel:   s.audioLevel,
	}
}

// Synthesizer exposes the waveform loop.
func (s *Session) Synthesizer() *waveform.Synthesizer {
	return s.synth
}

// PendingEvents returns how many timeline events can still fire.
func (s *Session) PendingEvents() int {
	n := 0
	for _, h := range s.handles {
		n += h.Pending()
	}
	return n
}

func (s *Session) startSchedulers() {
	s.stopSchedulers()
	s.handles = []*scheduler.Handle{
		scheduler.Start(s.exec, s.script.Conversation, func(e model.LogEntry[model.ConversationTurn]) {
			s.conversation.Append(e)
			s.fired(model.LogConversation, e.ID, e)
		}),
		scheduler.Start(s.exec, s.script.Reasoning, func(e model.LogEntry[model.ReasoningStep]) {
			s.reasoning.Append(e)
			s.fired(model.LogReasoning, e.ID, e)
		}),
		scheduler.Start(s.exec, s.script.Diagnostics, func(e model.LogEntry[model.DiagnosticFinding]) {
			s.diagnostics.Append(e)
			s.fired(model.LogDiagnostics, e.ID, e)
		}),
	}
}

func (s *Session) stopSchedulers() {
	for _, h := range s.handles {
		h.Stop()
	}
	s.handles = nil
}

func (s *Session) fired(kind model.LogKind, id string, entry any) {
	metrics.RecordFiring(s.script.Name, string(kind))
	s.opts.Sink.Publish(model.Update{
		Type:      model.UpdateEntry,
		SessionID: s.state.ID,
		Log:       kind,
		Entry:     entry,
		EntryID:   id,
		At:        s.exec.Now(),
	})
	s.requestScroll(kind, id)
}

// requestScroll asks the view to show the newest entry once layout settles.
func (s *Session) requestScroll(kind model.LogKind, id string) {
	s.scrollSeq++
	seq := s.scrollSeq
	s.scrolls[seq] = s.exec.AfterFunc(s.opts.ScrollDelay, func() {
		delete(s.scrolls, seq)
		if s.closed {
			return
		}
		s.opts.Sink.Publish(model.Update{
			Type:      model.UpdateScroll,
			SessionID: s.state.ID,
			Log:       kind,
			EntryID:   id,
			At:        s.exec.Now(),
		})
	})
}

func (s *Session) armTick() {
	s.ticks++
	due := s.tickStart.Add(time.Duration(s.ticks) * s.opts.TickInterval)
	s.tickTimer = s.exec.AfterFunc(due.Sub(s.exec.Now()), s.tick)
}

func (s *Session) tick() {
	if s.closed {
		return
	}
	if s.state.Active {
		s.state.ElapsedSeconds++
		s.publishSession()
	}
	s.armTick()
}

func (s *Session) onReading(r waveform.Reading) {
	if s.closed {
		return
	}
	metrics.RecordFrame(r.Level)
	if !s.state.Active {
		return
	}
	s.audioLevel = r.Level
	s.state.CurrentSpeaker = r.Speaker
	s.publishLevel()
}

func (s *Session) publishLevel() {
	s.opts.Sink.Publish(model.Update{
		Type:      model.UpdateLevel,
		SessionID: s.state.ID,
		Level:     &model.AudioLevel{Level: s.audioLevel, Speaker: s.state.CurrentSpeaker},
		At:        s.exec.Now(),
	})
}

func (s *Session) publishSession() {
	state := s.state
	s.opts.Sink.Publish(model.Update{
		Type:      model.UpdateSession,
		SessionID: s.state.ID,
		Session:   &state,
		At:        s.exec.Now(),
	})
}
