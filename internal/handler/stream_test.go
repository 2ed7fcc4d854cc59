package handler

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/capitalize-ai/call-monitor/internal/eventloop"
	"github.com/capitalize-ai/call-monitor/internal/fixture"
	"github.com/capitalize-ai/call-monitor/internal/model"
	"github.com/capitalize-ai/call-monitor/internal/service"
	"github.com/capitalize-ai/call-monitor/pkg/logger"
)

// newRealtimeMonitor opens an idle session on a running wall-clock loop.
func newRealtimeMonitor(t *testing.T) *service.Monitor {
	t.Helper()
	registry, err := fixture.Builtin()
	if err != nil {
		t.Fatalf("Builtin: %v", err)
	}
	loop := eventloop.NewRealtime(64)
	ctx, cancel := context.WithCancel(context.Background())
	go loop.Run(ctx)
	t.Cleanup(cancel)

	m := service.NewMonitor(loop, registry, testMonitorConfig, logger.NewNop())
	t.Cleanup(m.Close)
	if err := m.UseScript(ctx, fixture.DefaultScript); err != nil {
		t.Fatalf("UseScript: %v", err)
	}
	return m
}

func TestRelay_CoalescesLevels(t *testing.T) {
	updates := make(chan model.Update, 16)
	for _, level := range []float64{0.1, 0.2, 0.3, 0.5} {
		updates <- model.Update{Type: model.UpdateLevel, Level: &model.AudioLevel{Level: level}}
	}
	updates <- model.Update{Type: model.UpdateEntry, EntryID: "e1"}

	type emitted struct {
		event string
		data  any
	}
	out := make(chan emitted, 16)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- relay(ctx, updates, nil, StreamConfig{Heartbeat: time.Hour, LevelInterval: 50 * time.Millisecond},
			func(event string, data any) error {
				out <- emitted{event, data}
				return nil
			})
	}()

	first := <-out
	if first.event != "entry" {
		t.Fatalf("first event = %q, want entry", first.event)
	}

	select {
	case e := <-out:
		u := e.data.(model.Update)
		if e.event != "level" || u.Level.Level != 0.5 {
			t.Errorf("got %s %+v, want the latest level", e.event, u.Level)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no level event")
	}

	select {
	case e := <-out:
		t.Errorf("unexpected extra event %q", e.event)
	case <-time.After(120 * time.Millisecond):
	}

	close(updates)
	if err := <-done; err != nil {
		t.Errorf("relay() = %v, want nil on closed subscription", err)
	}
}

func TestStreamHandler_Stream(t *testing.T) {
	m := newRealtimeMonitor(t)
	h := NewStreamHandler(m, StreamConfig{}, logger.NewNop())
	srv := httptest.NewServer(http.HandlerFunc(h.Stream))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("Content-Type = %q", ct)
	}

	events := make(chan string, 64)
	go func() {
		defer close(events)
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			if name, ok := strings.CutPrefix(scanner.Text(), "event: "); ok {
				events <- name
			}
		}
	}()

	waitFor := func(want string) {
		t.Helper()
		for {
			select {
			case name, ok := <-events:
				if !ok {
					t.Fatalf("stream closed before %q", want)
				}
				if name == want {
					return
				}
			case <-ctx.Done():
				t.Fatalf("timed out waiting for %q", want)
			}
		}
	}

	waitFor(EventSnapshot)
	if err := m.Reset(ctx); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	waitFor(string(model.UpdateReset))
}
