package eventloop

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Realtime is an Executor backed by the wall clock. Run drives it.
type Realtime struct {
	queue     chan func()
	done      chan struct{}
	closeOnce sync.Once
}

// NewRealtime creates a loop with the given queue depth.
func NewRealtime(buffer int) *Realtime {
	if buffer <= 0 {
		buffer = 256
	}
	return &Realtime{
		queue: make(chan func(), buffer),
		done:  make(chan struct{}),
	}
}

// Run executes queued callbacks until ctx is cancelled or Close is called.
func (r *Realtime) Run(ctx context.Context) error {
	defer r.Close()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.done:
			return nil
		case fn := <-r.queue:
			fn()
		}
	}
}

// Close stops the loop. Pending callbacks are dropped.
func (r *Realtime) Close() {
	r.closeOnce.Do(func() { close(r.done) })
}

// Now returns the wall clock time.
func (r *Realtime) Now() time.Time {
	return time.Now()
}

// AfterFunc runs fn on the loop after d.
func (r *Realtime) AfterFunc(d time.Duration, fn func()) Timer {
	if d < 0 {
		d = 0
	}
	t := &realTimer{}
	t.timer = time.AfterFunc(d, func() {
		r.post(func() {
			// Stop may have raced with expiry; the flag is authoritative.
			if !t.done.CompareAndSwap(false, true) {
				return
			}
			fn()
		})
	})
	return t
}

// Do runs fn on the loop and waits for it to finish.
func (r *Realtime) Do(fn func()) error {
	ran := make(chan struct{})
	select {
	case r.queue <- func() { defer close(ran); fn() }:
	case <-r.done:
		return ErrClosed
	}
	select {
	case <-ran:
		return nil
	case <-r.done:
		return ErrClosed
	}
}

func (r *Realtime) post(fn func()) {
	select {
	case r.queue <- fn:
	case <-r.done:
	}
}

type realTimer struct {
	timer *time.Timer
	done  atomic.Bool
}

func (t *realTimer) Stop() bool {
	if !t.done.CompareAndSwap(false, true) {
		return false
	}
	t.timer.Stop()
	return true
}
