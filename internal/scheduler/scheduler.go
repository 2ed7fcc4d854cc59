// Package scheduler fires timeline events into logs at their scripted offsets.
package scheduler

import (
	"time"

	"github.com/google/uuid"

	"github.com/capitalize-ai/call-monitor/internal/eventloop"
	"github.com/capitalize-ai/call-monitor/internal/model"
)

// Handle cancels every not-yet-fired event of one Start call.
type Handle struct {
	timer   eventloop.Timer
	total   int
	fired   int
	stopped bool
}

// Start arranges for onFire to receive each event of timeline once its offset
// has elapsed from now. Events fire one at a time in ascending offset order;
// only the next pending event holds a timer.
func Start[T any](exec eventloop.Executor, timeline model.Timeline[T], onFire func(model.LogEntry[T])) *Handle {
	events := timeline.Sorted()
	h := &Handle{total: len(events)}
	if len(events) == 0 {
		return h
	}

	startedAt := exec.Now()

	var arm func(i int)
	arm = func(i int) {
		if i >= len(events) {
			h.timer = nil
			return
		}
		ev := events[i]
		delay := startedAt.Add(ev.Offset()).Sub(exec.Now())
		h.timer = exec.AfterFunc(delay, func() {
			if h.stopped {
				return
			}
			h.fired++
			onFire(Materialize(ev, exec.Now()))
			if !h.stopped {
				arm(i + 1)
			}
		})
	}
	arm(0)

	return h
}

// Materialize turns a timeline event into a log entry captured at now.
func Materialize[T any](ev model.TimelineEvent[T], now time.Time) model.LogEntry[T] {
	return model.LogEntry[T]{
		ID:         uuid.Must(uuid.NewV7()).String(),
		Payload:    ev.Payload,
		OffsetMs:   ev.OffsetMs,
		CapturedAt: now,
	}
}

// Stop prevents any not-yet-fired event from firing. Safe to call repeatedly.
func (h *Handle) Stop() {
	if h == nil || h.stopped {
		return
	}
	h.stopped = true
	if h.timer != nil {
		h.timer.Stop()
		h.timer = nil
	}
}

// Stopped reports whether Stop was called.
func (h *Handle) Stopped() bool {
	return h != nil && h.stopped
}

// Done reports whether every event has fired.
func (h *Handle) Done() bool {
	return h != nil && h.fired == h.total
}

// Fired returns how many events have fired.
func (h *Handle) Fired() int {
	if h == nil {
		return 0
	}
	return h.fired
}

// Pending returns how many events can still fire.
func (h *Handle) Pending() int {
	if h == nil || h.stopped {
		return 0
	}
	return h.total - h.fired
}
