package service

import (
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"

	"github.com/capitalize-ai/call-monitor/internal/eventloop"
	"github.com/capitalize-ai/call-monitor/internal/fixture"
	"github.com/capitalize-ai/call-monitor/internal/model"
	"github.com/capitalize-ai/call-monitor/internal/waveform"
	"github.com/capitalize-ai/call-monitor/pkg/metrics"
)

var epoch = time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)

type updateRecorder struct {
	updates []model.Update
}

func (r *updateRecorder) Publish(u model.Update) {
	r.updates = append(r.updates, u)
}

func (r *updateRecorder) ofType(t model.UpdateType) []model.Update {
	var out []model.Update
	for _, u := range r.updates {
		if u.Type == t {
			out = append(out, u)
		}
	}
	return out
}

func intakeScript(t *testing.T) *fixture.Script {
	t.Helper()
	r, err := fixture.Builtin()
	if err != nil {
		t.Fatalf("Builtin: %v", err)
	}
	s, err := r.Lookup("clinic-intake")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	return s
}

func newTestSession(t *testing.T) (*Session, *eventloop.Virtual, *updateRecorder) {
	t.Helper()
	clock := eventloop.NewVirtual(epoch)
	rec := &updateRecorder{}
	s := NewSession(clock, intakeScript(t), SessionOptions{
		TickInterval: time.Second,
		ScrollDelay:  100 * time.Millisecond,
		Waveform: waveform.Config{
			Width:         64,
			Height:        100,
			FrameInterval: 16 * time.Millisecond,
			Noise:         func() float64 { return 0.05 },
		},
		Sink: rec,
	})
	s.Open()
	return s, clock, rec
}

func TestSession_FullPlayback(t *testing.T) {
	s, clock, _ := newTestSession(t)
	s.StartCall()
	clock.Advance(35 * time.Second)

	snap := s.Snapshot()
	if len(snap.Conversation) != 7 || len(snap.Reasoning) != 6 || len(snap.Diagnostics) != 6 {
		t.Fatalf("log sizes = %d/%d/%d, want 7/6/6", len(snap.Conversation), len(snap.Reasoning), len(snap.Diagnostics))
	}
	for i := 1; i < len(snap.Conversation); i++ {
		if snap.Conversation[i].OffsetMs < snap.Conversation[i-1].OffsetMs {
			t.Errorf("conversation out of order at %d", i)
		}
	}
	if snap.Conversation[0].Payload.Speaker != model.SpeakerAssistant {
		t.Errorf("first speaker = %q", snap.Conversation[0].Payload.Speaker)
	}
	if snap.Session.ElapsedSeconds != 35 {
		t.Errorf("ElapsedSeconds = %d, want 35", snap.Session.ElapsedSeconds)
	}
	if s.PendingEvents() != 0 {
		t.Errorf("PendingEvents() = %d, want 0", s.PendingEvents())
	}
}

func TestSession_EntriesAppearAtOffsets(t *testing.T) {
	s, clock, _ := newTestSession(t)
	s.StartCall()

	clock.Advance(999 * time.Millisecond)
	if n := len(s.Snapshot().Reasoning); n != 0 {
		t.Fatalf("reasoning entries before 1000ms = %d", n)
	}
	clock.Advance(time.Millisecond)
	snap := s.Snapshot()
	if len(snap.Reasoning) != 1 || snap.Reasoning[0].Payload.Label != "Patient Identification" {
		t.Errorf("reasoning at 1000ms = %+v", snap.Reasoning)
	}
	if len(snap.Conversation) != 1 {
		t.Errorf("conversation at 1000ms = %d entries, want 1", len(snap.Conversation))
	}
}

func TestSession_DurationTick(t *testing.T) {
	t.Run("active", func(t *testing.T) {
		s, clock, _ := newTestSession(t)
		s.StartCall()
		clock.Advance(65 * time.Second)
		if got := s.Snapshot().Session.ElapsedSeconds; got != 65 {
			t.Errorf("ElapsedSeconds = %d, want 65", got)
		}
	})
	t.Run("inactive", func(t *testing.T) {
		s, clock, _ := newTestSession(t)
		clock.Advance(65 * time.Second)
		if got := s.Snapshot().Session.ElapsedSeconds; got != 0 {
			t.Errorf("ElapsedSeconds = %d, want 0", got)
		}
		if clock.Pending() != 1 {
			t.Errorf("clock.Pending() = %d, want only the idle tick", clock.Pending())
		}
	})
}

func TestSession_ResetClearsEverything(t *testing.T) {
	s, clock, rec := newTestSession(t)
	s.StartCall()
	clock.Advance(16 * time.Second)

	before := s.Snapshot()
	if len(before.Conversation) == 0 || before.Session.ElapsedSeconds != 16 {
		t.Fatalf("unexpected state before reset: %+v", before.Session)
	}

	s.Reset()
	snap := s.Snapshot()
	if snap.Session.ElapsedSeconds != 0 {
		t.Errorf("ElapsedSeconds = %d, want 0", snap.Session.ElapsedSeconds)
	}
	if len(snap.Conversation)+len(snap.Reasoning)+len(snap.Diagnostics) != 0 {
		t.Error("logs not empty after reset")
	}
	if !snap.Session.StartedAt.Equal(clock.Now()) {
		t.Errorf("StartedAt = %v, want %v", snap.Session.StartedAt, clock.Now())
	}
	if !snap.Session.Active {
		t.Error("reset changed the active flag")
	}
	if len(before.Conversation) == 0 {
		t.Error("earlier snapshot was mutated by reset")
	}
	if len(rec.ofType(model.UpdateReset)) < 2 {
		t.Error("expected reset updates for start and explicit reset")
	}

	// Schedulers keep running after a reset.
	clock.Advance(20 * time.Second)
	if got := len(s.Snapshot().Conversation); got != 3 {
		t.Errorf("conversation after reset = %d, want 3 remaining turns", got)
	}
}

func TestSession_RestartPerformsImplicitReset(t *testing.T) {
	s, clock, rec := newTestSession(t)
	s.StartCall()
	clock.Advance(10 * time.Second)
	s.EndCall()
	clock.Advance(5 * time.Second)

	rec.updates = nil
	s.Toggle()
	if !s.Active() {
		t.Fatal("Toggle did not start the call")
	}

	snap := s.Snapshot()
	if len(snap.Conversation)+len(snap.Reasoning)+len(snap.Diagnostics) != 0 || snap.Session.ElapsedSeconds != 0 {
		t.Fatal("restart did not reset")
	}
	if n := len(rec.ofType(model.UpdateEntry)); n != 0 {
		t.Errorf("%d entries fired before the restart completed", n)
	}
	if len(rec.updates) == 0 || rec.updates[0].Type != model.UpdateReset {
		t.Error("restart should publish the reset first")
	}

	clock.Advance(0)
	if got := len(s.Snapshot().Conversation); got != 1 {
		t.Errorf("conversation after restart = %d, want the offset-0 turn", got)
	}
}

func TestSession_EndCallStopsPlayback(t *testing.T) {
	s, clock, _ := newTestSession(t)
	s.StartCall()
	clock.Advance(6 * time.Second)
	before := s.Snapshot()

	s.EndCall()
	if s.Snapshot().AudioLevel != 0 || s.Snapshot().Session.CurrentSpeaker != model.SpeakerNone {
		t.Error("EndCall should zero the level and speaker")
	}
	clock.Advance(time.Minute)

	after := s.Snapshot()
	if len(after.Conversation) != len(before.Conversation) || len(after.Reasoning) != len(before.Reasoning) {
		t.Error("entries fired after EndCall")
	}
	if after.Session.ElapsedSeconds != 6 {
		t.Errorf("ElapsedSeconds = %d, want 6", after.Session.ElapsedSeconds)
	}
	if s.Synthesizer().State() != waveform.Stopped {
		t.Error("synthesizer should park once the waveform is flat")
	}
	for _, v := range s.Synthesizer().Samples() {
		if v != 0 {
			t.Fatal("waveform not flat after decay")
		}
	}
}

func TestSession_CurrentSpeakerAndLevel(t *testing.T) {
	s, clock, _ := newTestSession(t)
	s.StartCall()

	clock.Advance(2 * time.Second)
	snap := s.Snapshot()
	if snap.Session.CurrentSpeaker != model.SpeakerAssistant {
		t.Errorf("speaker at 2s = %q, want Assistant", snap.Session.CurrentSpeaker)
	}
	if snap.AudioLevel < 0 || snap.AudioLevel > 1 {
		t.Errorf("AudioLevel = %v", snap.AudioLevel)
	}

	clock.Advance(2500 * time.Millisecond)
	if got := s.Snapshot().Session.CurrentSpeaker; got != model.SpeakerNone {
		t.Errorf("speaker at 4.5s = %q, want none", got)
	}

	clock.Advance(1500 * time.Millisecond)
	if got := s.Snapshot().Session.CurrentSpeaker; got != model.SpeakerCaller {
		t.Errorf("speaker at 6s = %q, want Caller", got)
	}
}

func TestSession_ScrollFollowsEntry(t *testing.T) {
	s, clock, rec := newTestSession(t)
	s.StartCall()
	clock.Advance(1000 * time.Millisecond)

	var reasoningID string
	for _, u := range rec.ofType(model.UpdateEntry) {
		if u.Log == model.LogReasoning {
			reasoningID = u.EntryID
		}
	}
	if reasoningID == "" {
		t.Fatal("no reasoning entry update")
	}
	for _, u := range rec.ofType(model.UpdateScroll) {
		if u.EntryID == reasoningID {
			t.Fatal("scroll delivered together with the entry")
		}
	}

	clock.Advance(100 * time.Millisecond)
	found := false
	for _, u := range rec.ofType(model.UpdateScroll) {
		if u.EntryID == reasoningID && u.Log == model.LogReasoning {
			found = true
		}
	}
	if !found {
		t.Error("scroll update missing after delay")
	}
}

func TestSession_CloseCancelsEverything(t *testing.T) {
	s, clock, rec := newTestSession(t)
	s.StartCall()
	clock.Advance(1000 * time.Millisecond)

	s.Close()
	s.Close()
	count := len(rec.updates)
	clock.Advance(time.Minute)

	if len(rec.updates) != count {
		t.Errorf("%d updates published after Close", len(rec.updates)-count)
	}
	if clock.Pending() != 0 {
		t.Errorf("clock.Pending() = %d after Close, want 0", clock.Pending())
	}

	s.StartCall()
	s.Reset()
	if len(rec.updates) != count {
		t.Error("commands on a closed session should be no-ops")
	}
}

func TestSession_StartWhileActiveIsNoop(t *testing.T) {
	s, clock, _ := newTestSession(t)
	s.StartCall()
	clock.Advance(3 * time.Second)
	s.StartCall()

	if got := s.Snapshot().Session.ElapsedSeconds; got != 3 {
		t.Errorf("ElapsedSeconds = %d, want 3", got)
	}
	s.EndCall()
	s.EndCall()
	if s.Active() {
		t.Error("call still active")
	}
}

func TestSession_TransitionMetrics(t *testing.T) {
	s, clock, _ := newTestSession(t)
	count := func(transition string) float64 {
		var m dto.Metric
		if err := metrics.CallTransitionsTotal.WithLabelValues(s.Script(), transition).Write(&m); err != nil {
			t.Fatalf("Write: %v", err)
		}
		return m.GetCounter().GetValue()
	}
	starts, resets := count("start"), count("reset")

	s.StartCall()
	clock.Advance(2 * time.Second)
	s.EndCall()
	s.Toggle()

	if got := count("start") - starts; got != 2 {
		t.Errorf("start transitions = %v, want 2", got)
	}
	if got := count("reset") - resets; got != 0 {
		t.Errorf("reset transitions after starts = %v, want 0", got)
	}

	s.Reset()
	if got := count("reset") - resets; got != 1 {
		t.Errorf("reset transitions after Reset = %v, want 1", got)
	}
}
