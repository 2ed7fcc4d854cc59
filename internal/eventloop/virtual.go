package eventloop

import (
	"container/heap"
	"time"
)

// Virtual is an Executor with a manually advanced clock. Callbacks run on the
// goroutine calling Advance, in due order; timers due at the same instant run
// in creation order.
type Virtual struct {
	now    time.Time
	seq    uint64
	timers timerHeap
}

// NewVirtual creates a virtual clock starting at start.
func NewVirtual(start time.Time) *Virtual {
	return &Virtual{now: start}
}

// Now returns the virtual time.
func (v *Virtual) Now() time.Time {
	return v.now
}

// AfterFunc schedules fn at Now()+d.
func (v *Virtual) AfterFunc(d time.Duration, fn func()) Timer {
	if d < 0 {
		d = 0
	}
	v.seq++
	t := &virtualTimer{due: v.now.Add(d), seq: v.seq, fn: fn}
	heap.Push(&v.timers, t)
	return t
}

// Do runs fn immediately.
func (v *Virtual) Do(fn func()) error {
	fn()
	return nil
}

// Advance moves the clock forward by d, running every timer that comes due,
// including timers scheduled by callbacks during the advance.
func (v *Virtual) Advance(d time.Duration) {
	target := v.now.Add(d)
	for v.timers.Len() > 0 {
		next := v.timers[0]
		if next.due.After(target) {
			break
		}
		heap.Pop(&v.timers)
		if next.stopped {
			continue
		}
		if next.due.After(v.now) {
			v.now = next.due
		}
		next.stopped = true
		next.fn()
	}
	v.now = target
}

// Pending returns the number of live timers.
func (v *Virtual) Pending() int {
	n := 0
	for _, t := range v.timers {
		if !t.stopped {
			n++
		}
	}
	return n
}

type virtualTimer struct {
	due     time.Time
	seq     uint64
	fn      func()
	stopped bool
	index   int
}

func (t *virtualTimer) Stop() bool {
	if t.stopped {
		return false
	}
	t.stopped = true
	return true
}

type timerHeap []*virtualTimer

func (h timerHeap) Len() int { return len(h) }

func (h timerHeap) Less(i, j int) bool {
	if h[i].due.Equal(h[j].due) {
		return h[i].seq < h[j].seq
	}
	return h[i].due.Before(h[j].due)
}

func (h timerHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *timerHeap) Push(x any) {
	t := x.(*virtualTimer)
	t.index = len(*h)
	*h = append(*h, t)
}

func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return t
}
