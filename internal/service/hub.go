package service

import (
	"sync"

	"github.com/capitalize-ai/call-monitor/internal/model"
	"github.com/capitalize-ai/call-monitor/pkg/metrics"
)

// Sink receives observable state changes. Publish is called from the event
// loop and must not block.
type Sink interface {
	Publish(model.Update)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(model.Update)

// Publish calls f(u).
func (f SinkFunc) Publish(u model.Update) {
	f(u)
}

type multiSink []Sink

func (m multiSink) Publish(u model.Update) {
	for _, s := range m {
		s.Publish(u)
	}
}

// Hub fans updates out to subscribers. A subscriber that falls behind loses
// updates rather than stalling the loop.
type Hub struct {
	mu     sync.Mutex
	subs   map[uint64]chan model.Update
	next   uint64
	buffer int
	closed bool
}

// NewHub creates a hub with per-subscriber buffering.
func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = 256
	}
	return &Hub{
		subs:   make(map[uint64]chan model.Update),
		buffer: buffer,
	}
}

// Publish delivers u to every subscriber without blocking.
func (h *Hub) Publish(u model.Update) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subs {
		select {
		case ch <- u:
		default:
			metrics.UpdatesDropped.Inc()
		}
	}
}

// Subscribe registers a subscriber. The returned cancel func closes the
// channel and is safe to call more than once.
func (h *Hub) Subscribe() (<-chan model.Update, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan model.Update, h.buffer)
	if h.closed {
		close(ch)
		return ch, func() {}
	}
	id := h.next
	h.next++
	h.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if c, ok := h.subs[id]; ok {
				delete(h.subs, id)
				close(c)
			}
		})
	}
}

// Subscribers returns the number of live subscribers.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close closes every subscriber channel.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for id, ch := range h.subs {
		delete(h.subs, id)
		close(ch)
	}
}
