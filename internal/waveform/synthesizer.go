// Package waveform synthesizes the pseudo-audio waveform shown while a call
// plays back.
package waveform

import (
	"time"

	"github.com/capitalize-ai/call-monitor/internal/eventloop"
	"github.com/capitalize-ai/call-monitor/internal/model"
)

// State is the loop state.
type State int

const (
	Stopped State = iota
	Running
)

func (s State) String() string {
	if s == Running {
		return "running"
	}
	return "stopped"
}

// Config sizes the synthesizer.
type Config struct {
	Width         int
	Height        int
	FrameInterval time.Duration
	Noise         NoiseFunc
}

// Reading is published after every frame.
type Reading struct {
	Level   float64
	Speaker model.Speaker
	Sample  float64
}

// Synthesizer runs the per-frame step on an executor. All methods must be
// called from the executor's context.
type Synthesizer struct {
	exec     eventloop.Executor
	timeline model.Timeline[model.ConversationTurn]
	cfg      Config
	scale    float64
	ring     *Ring

	state     State
	active    bool
	gen       uint64
	timer     eventloop.Timer
	loopStart time.Time
	speaker   model.Speaker

	surface   Surface
	onReading func(Reading)
	onSkip    func(error)
	frames    uint64
}

// New creates a stopped synthesizer for a conversation timeline.
func New(exec eventloop.Executor, timeline model.Timeline[model.ConversationTurn], cfg Config) *Synthesizer {
	if cfg.Width <= 0 {
		cfg.Width = 800
	}
	if cfg.Height <= 0 {
		cfg.Height = 100
	}
	if cfg.FrameInterval <= 0 {
		cfg.FrameInterval = 16 * time.Millisecond
	}
	if cfg.Noise == nil {
		cfg.Noise = RandomNoise
	}
	return &Synthesizer{
		exec:     exec,
		timeline: timeline.Sorted(),
		cfg:      cfg,
		scale:    float64(cfg.Height) * ScaleFactor,
		ring:     NewRing(cfg.Width),
	}
}

// Attach sets the render target. A nil surface skips rendering.
func (s *Synthesizer) Attach(surface Surface) {
	s.surface = surface
}

// OnReading registers the level/speaker callback.
func (s *Synthesizer) OnReading(fn func(Reading)) {
	s.onReading = fn
}

// OnSkip registers a callback for frames that could not be rendered.
func (s *Synthesizer) OnSkip(fn func(error)) {
	s.onSkip = fn
}

// Start begins a new loop. An active loop measures elapsed time from now and
// follows the conversation timeline; an inactive loop pushes zeros until the
// buffer is flat, then parks. Any previous loop is invalidated.
func (s *Synthesizer) Start(active bool) {
	s.Stop()
	s.active = active
	s.loopStart = s.exec.Now()
	s.state = Running
	if !active {
		s.speaker = model.SpeakerNone
	}
	s.step(s.gen)
}

// Stop cancels the loop. No step of a stopped loop touches the buffer again.
func (s *Synthesizer) Stop() {
	s.gen++
	s.state = Stopped
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// State returns the loop state.
func (s *Synthesizer) State() State {
	return s.state
}

// Samples returns the buffer, oldest first.
func (s *Synthesizer) Samples() []float64 {
	return s.ring.Samples()
}

// BufferLen returns the fixed ring length.
func (s *Synthesizer) BufferLen() int {
	return s.ring.Len()
}

// Frames returns the number of steps executed.
func (s *Synthesizer) Frames() uint64 {
	return s.frames
}

// Scale returns the amplitude scale in surface units.
func (s *Synthesizer) Scale() float64 {
	return s.scale
}

func (s *Synthesizer) step(gen uint64) {
	if gen != s.gen || s.state != Running {
		return
	}
	s.timer = nil
	s.frames++

	reading := Reading{}
	if s.active {
		elapsed := s.exec.Now().Sub(s.loopStart)
		var intensity float64
		speaker := model.SpeakerNone
		if turn, ok := ActiveTurn(s.timeline, elapsed); ok {
			intensity = turn.AudioIntensity
			speaker = turn.Speaker
		}
		amp := Amplitude(elapsed, intensity, s.cfg.Noise(), s.scale)
		s.ring.Push(amp)
		s.speaker = speaker
		reading = Reading{Level: Level(amp, s.scale), Speaker: speaker, Sample: amp}
	} else {
		s.ring.Push(0)
	}

	s.render(reading.Level)

	if s.onReading != nil {
		s.onReading(reading)
	}
	// The callback may have stopped or restarted the loop.
	if gen != s.gen {
		return
	}

	if !s.active && s.ring.Flat() {
		s.state = Stopped
		return
	}
	s.timer = s.exec.AfterFunc(s.cfg.FrameInterval, func() { s.step(gen) })
}

func (s *Synthesizer) render(level float64) {
	if s.surface == nil {
		return
	}
	err := s.surface.Draw(Frame{
		Width:    s.cfg.Width,
		Height:   s.cfg.Height,
		Samples:  s.ring.Samples(),
		Speaker:  s.speaker,
		Level:    level,
		Gradient: GradientFor(s.speaker),
	})
	if err != nil && s.onSkip != nil {
		s.onSkip(err)
	}
}
