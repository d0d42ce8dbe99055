package focus

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
)

func TestBusDeliversToEverySubscriber(t *testing.T) {
	bus := NewBus(discardLogger())
	defer bus.Close()

	var a, b atomic.Int32
	bus.Subscribe("a", func(ctx context.Context, ev Event) error { a.Add(1); return nil })
	bus.Subscribe("b", func(ctx context.Context, ev Event) error { b.Add(1); return nil })

	bus.Publish(SessionPersisted{UserID: "u"})
	bus.Publish(TaskToggled{UserID: "u"})
	bus.Wait()

	if a.Load() != 2 || b.Load() != 2 {
		t.Fatalf("deliveries a=%d b=%d, want 2 each", a.Load(), b.Load())
	}
}

// syncBuffer is a bytes.Buffer safe for the concurrent handler goroutines.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.String()
}

func TestBusIsolatesFailures(t *testing.T) {
	var logs syncBuffer
	bus := NewBus(slog.New(slog.NewTextHandler(&logs, nil)))
	defer bus.Close()

	var ok atomic.Int32
	bus.Subscribe("failing", func(ctx context.Context, ev Event) error { return errBoom })
	bus.Subscribe("panicking", func(ctx context.Context, ev Event) error { panic("kaboom") })
	bus.Subscribe("healthy", func(ctx context.Context, ev Event) error { ok.Add(1); return nil })

	if !bus.Publish(SessionPersisted{UserID: "u"}) {
		t.Fatal("publish rejected")
	}
	bus.Wait()

	if ok.Load() != 1 {
		t.Fatalf("healthy handler ran %d times, want 1", ok.Load())
	}
	out := logs.String()
	if !strings.Contains(out, "handler=failing") || !strings.Contains(out, "boom") {
		t.Fatalf("failure not logged: %s", out)
	}
	if !strings.Contains(out, "handler=panicking") || !strings.Contains(out, "kaboom") {
		t.Fatalf("panic not logged: %s", out)
	}
}

func TestBusCloseDrainsAndRejects(t *testing.T) {
	bus := NewBus(discardLogger())

	var n atomic.Int32
	bus.Subscribe("count", func(ctx context.Context, ev Event) error { n.Add(1); return nil })
	for i := 0; i < 10; i++ {
		bus.Publish(TaskToggled{UserID: "u"})
	}
	bus.Close()

	if n.Load() != 10 {
		t.Fatalf("handled %d events before close, want 10", n.Load())
	}
	if bus.Publish(TaskToggled{UserID: "u"}) {
		t.Fatal("publish after close accepted")
	}
	bus.Close()
}

func TestEventNames(t *testing.T) {
	if got := (SessionPersisted{}).Name(); got != "SessionPersisted" {
		t.Fatalf("SessionPersisted name = %q", got)
	}
	if got := (TaskToggled{}).Name(); got != "TaskToggled" {
		t.Fatalf("TaskToggled name = %q", got)
	}
}
