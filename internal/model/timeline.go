package model

import (
	"fmt"
	"slices"
	"time"
)

// TimelineEvent is a scripted payload tagged with its offset from call start.
type TimelineEvent[T any] struct {
	OffsetMs   int64 `json:"offset_ms" yaml:"offset_ms"`
	DurationMs int64 `json:"duration_ms,omitempty" yaml:"duration_ms,omitempty"`
	Payload    T     `json:"payload" yaml:",inline"`
}

// Offset returns the event offset as a duration.
func (e TimelineEvent[T]) Offset() time.Duration {
	return time.Duration(e.OffsetMs) * time.Millisecond
}

// Duration returns the event duration, zero when the event has none.
func (e TimelineEvent[T]) Duration() time.Duration {
	return time.Duration(e.DurationMs) * time.Millisecond
}

// Covers reports whether elapsed falls within [offset, offset+duration).
func (e TimelineEvent[T]) Covers(elapsed time.Duration) bool {
	if e.DurationMs <= 0 {
		return false
	}
	return elapsed >= e.Offset() && elapsed < e.Offset()+e.Duration()
}

// Timeline is an ordered fixture of scripted events. Declaration order carries
// no meaning; consumers use Sorted.
type Timeline[T any] []TimelineEvent[T]

// Sorted returns a copy ordered by ascending offset. Events sharing an offset
// keep their declaration order.
func (t Timeline[T]) Sorted() Timeline[T] {
	out := slices.Clone(t)
	slices.SortStableFunc(out, func(a, b TimelineEvent[T]) int {
		switch {
		case a.OffsetMs < b.OffsetMs:
			return -1
		case a.OffsetMs > b.OffsetMs:
			return 1
		}
		return 0
	})
	return out
}

// End returns the latest instant any event in the timeline reaches.
func (t Timeline[T]) End() time.Duration {
	var end time.Duration
	for _, e := range t {
		if at := e.Offset() + e.Duration(); at > end {
			end = at
		}
	}
	return end
}

// Validate checks offsets and durations.
func (t Timeline[T]) Validate() error {
	for i, e := range t {
		if e.OffsetMs < 0 {
			return fmt.Errorf("event %d: negative offset %dms", i, e.OffsetMs)
		}
		if e.DurationMs < 0 {
			return fmt.Errorf("event %d: negative duration %dms", i, e.DurationMs)
		}
	}
	return nil
}
