package focus

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/sadopc/flow/internal/store"
)

// Event is something the Bus carries from a mutation to its dependents.
type Event interface {
	Name() string
}

// SessionPersisted follows every successful CreateFocusSession.
type SessionPersisted struct {
	UserID  string
	Session store.FocusSession
}

func (SessionPersisted) Name() string { return "SessionPersisted" }

// TaskToggled follows every successful ToggleTaskCompletion. UserID is
// the task owner taken from the server result.
type TaskToggled struct {
	UserID string
	Task   store.Task
}

func (TaskToggled) Name() string { return "TaskToggled" }

// Handler reacts to an event. A returned error is logged by the Bus and
// never reaches the publisher.
type Handler func(ctx context.Context, ev Event) error

type subscriber struct {
	name string
	fn   Handler
}

// Bus queues events and delivers each one to every subscriber, with
// subscribers running concurrently and failing independently.
type Bus struct {
	logger *slog.Logger
	queue  chan Event
	done   chan struct{}
	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	subs     []subscriber
	closed   bool
	inflight sync.WaitGroup
	loop     sync.WaitGroup
}

const busQueueSize = 64

func NewBus(logger *slog.Logger) *Bus {
	ctx, cancel := context.WithCancel(context.Background())
	b := &Bus{
		logger: logger,
		queue:  make(chan Event, busQueueSize),
		done:   make(chan struct{}),
		ctx:    ctx,
		cancel: cancel,
	}
	b.loop.Add(1)
	go b.run()
	return b
}

// Subscribe registers fn under name. Subscribers added after an event
// was dispatched do not see it.
func (b *Bus) Subscribe(name string, fn Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = append(b.subs, subscriber{name: name, fn: fn})
}

// Publish enqueues ev. It reports false once the bus is closed.
func (b *Bus) Publish(ev Event) bool {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return false
	}
	b.inflight.Add(1)
	b.mu.Unlock()

	select {
	case b.queue <- ev:
		return true
	case <-b.done:
		b.inflight.Done()
		return false
	}
}

// Wait blocks until every published event has been handled.
func (b *Bus) Wait() {
	b.inflight.Wait()
}

// Close stops accepting events, waits for queued ones to finish and
// stops the dispatcher.
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	b.mu.Unlock()

	b.inflight.Wait()
	close(b.done)
	b.cancel()
	b.loop.Wait()
}

func (b *Bus) run() {
	defer b.loop.Done()
	for {
		select {
		case ev := <-b.queue:
			b.dispatch(ev)
		case <-b.done:
			return
		}
	}
}

func (b *Bus) dispatch(ev Event) {
	defer b.inflight.Done()

	b.mu.Lock()
	subs := make([]subscriber, len(b.subs))
	copy(subs, b.subs)
	b.mu.Unlock()

	b.inflight.Add(len(subs))
	for _, sub := range subs {
		go b.deliver(sub, ev)
	}
}

func (b *Bus) deliver(sub subscriber, ev Event) {
	defer b.inflight.Done()
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked",
				"event", ev.Name(), "handler", sub.name, "panic", fmt.Sprint(r))
		}
	}()

	if err := sub.fn(b.ctx, ev); err != nil {
		b.logger.Warn("event handler failed",
			"event", ev.Name(), "handler", sub.name, "error", err)
	}
}
