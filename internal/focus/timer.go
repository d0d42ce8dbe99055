package focus

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/sadopc/flow/internal/clock"
	"github.com/sadopc/flow/internal/store"
)

// OrbState is the phase of the focus timer.
type OrbState int

const (
	Idle OrbState = iota
	Forming
	Running
	Dissolving
)

var stateNames = [...]string{"idle", "forming", "running", "dissolving"}

func (s OrbState) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

const (
	FormingDelay    = 500 * time.Millisecond
	DissolvingDelay = 400 * time.Millisecond

	// TickInterval is how often a display should refresh the elapsed
	// time. Elapsed is never accumulated from ticks.
	TickInterval = 100 * time.Millisecond
)

type timerEvent int

const (
	evStart timerEvent = iota
	evSettle
	evPause
	evReset
	evComplete
)

// transitions is the whole timer state machine. Anything missing is
// rejected with ErrInvalidTransition.
var transitions = map[OrbState]map[timerEvent]OrbState{
	Idle:       {evStart: Forming, evReset: Idle, evComplete: Dissolving},
	Forming:    {evSettle: Running},
	Running:    {evPause: Dissolving, evReset: Dissolving, evComplete: Dissolving},
	Dissolving: {evSettle: Idle},
}

// Snapshot is a point-in-time view of the timer.
type Snapshot struct {
	State            OrbState
	ElapsedSeconds   int64
	SessionStartedAt *time.Time
}

// SessionCommitter persists a finished run.
type SessionCommitter interface {
	Commit(ctx context.Context, elapsedSeconds int64, startedAt, endedAt time.Time, userID string) (*store.FocusSession, error)
}

// Timer is the focus-session state machine.
type Timer struct {
	clock    clock.Clock
	recorder SessionCommitter
	users    UserSource
	logger   *slog.Logger

	mu        sync.Mutex
	state     OrbState
	elapsed   int64
	anchor    time.Time
	startedAt *time.Time
	pending   *clock.Timer
	gen       uint64
	closed    bool
}

func NewTimer(c clock.Clock, recorder SessionCommitter, users UserSource, logger *slog.Logger) *Timer {
	return &Timer{clock: c, recorder: recorder, users: users, logger: logger}
}

// Start begins a run, or resumes a paused one, from Idle. The orb forms
// for FormingDelay before the clock starts counting.
func (t *Timer) Start() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.transition(evStart); err != nil {
		return err
	}
	if t.startedAt == nil {
		now := t.clock.Now()
		t.startedAt = &now
	}
	t.after(FormingDelay, func() {
		t.state = transitions[Forming][evSettle]
		t.anchor = t.clock.Now().Add(-time.Duration(t.elapsed) * time.Second)
	})
	return nil
}

// Pause freezes a running timer. Elapsed time and the start timestamp
// survive, so a later Start resumes the same session.
func (t *Timer) Pause() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state == Running {
		t.elapsed = t.elapsedLocked()
	}
	if err := t.transition(evPause); err != nil {
		return err
	}
	t.after(DissolvingDelay, func() {
		t.state = transitions[Dissolving][evSettle]
	})
	return nil
}

// Reset discards the current run. From Idle it takes effect at once;
// from Running the orb dissolves first.
func (t *Timer) Reset() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	from := t.state
	if from == Running {
		t.elapsed = t.elapsedLocked()
	}
	if err := t.transition(evReset); err != nil {
		return err
	}
	if from == Idle {
		t.clearLocked()
		return nil
	}
	t.after(DissolvingDelay, func() {
		t.state = transitions[Dissolving][evSettle]
		t.clearLocked()
	})
	return nil
}

// Complete ends the current run and hands it to the recorder. The
// timer is back in Idle with nothing elapsed when Complete returns,
// whatever the recorder decided. An Idle timer with nothing elapsed
// returns (nil, nil) without calling the recorder.
func (t *Timer) Complete(ctx context.Context) (*store.FocusSession, error) {
	t.mu.Lock()
	if t.state == Idle && t.elapsed == 0 {
		t.mu.Unlock()
		return nil, nil
	}
	if t.state == Running {
		t.elapsed = t.elapsedLocked()
	}
	if err := t.transition(evComplete); err != nil {
		t.mu.Unlock()
		return nil, err
	}
	t.cancelLocked()

	now := t.clock.Now()
	elapsed := t.elapsed
	startedAt := now.Add(-time.Duration(elapsed) * time.Second)
	if t.startedAt != nil {
		startedAt = *t.startedAt
	}
	userID := t.users.UserID()
	t.mu.Unlock()

	fs, err := t.recorder.Commit(ctx, elapsed, startedAt, now, userID)

	t.mu.Lock()
	if !t.closed {
		t.state = transitions[Dissolving][evSettle]
		t.clearLocked()
	}
	t.mu.Unlock()

	if err != nil {
		t.logger.Debug("complete did not record a session", "elapsed", elapsed, "error", err)
	}
	return fs, err
}

// Tick recomputes elapsed time from the anchor and returns the result.
func (t *Timer) Tick() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == Running {
		t.elapsed = t.elapsedLocked()
	}
	return t.snapshotLocked()
}

func (t *Timer) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.snapshotLocked()
	if t.state == Running {
		s.ElapsedSeconds = t.elapsedLocked()
	}
	return s
}

// Close cancels any pending phase change. Callbacks that were already
// scheduled do nothing once they run.
func (t *Timer) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	t.cancelLocked()
}

func (t *Timer) transition(ev timerEvent) error {
	if t.closed {
		return ErrClosed
	}
	next, ok := transitions[t.state][ev]
	if !ok {
		return ErrInvalidTransition
	}
	t.state = next
	return nil
}

// after runs fn under the lock once d has passed, unless the timer has
// moved on or closed in the meantime. It is called with t.mu held, so it
// relies on AfterFunc never running the callback inline.
func (t *Timer) after(d time.Duration, fn func()) {
	t.cancelLocked()
	gen := t.gen
	t.pending = t.clock.AfterFunc(d, func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		if t.closed || gen != t.gen {
			return
		}
		t.pending = nil
		fn()
	})
}

func (t *Timer) cancelLocked() {
	t.gen++
	if t.pending != nil {
		t.pending.Stop()
		t.pending = nil
	}
}

func (t *Timer) elapsedLocked() int64 {
	d := t.clock.Now().Sub(t.anchor)
	if d < 0 {
		return 0
	}
	return int64(d / time.Second)
}

func (t *Timer) clearLocked() {
	t.elapsed = 0
	t.startedAt = nil
}

func (t *Timer) snapshotLocked() Snapshot {
	s := Snapshot{State: t.state, ElapsedSeconds: t.elapsed}
	if t.startedAt != nil {
		started := *t.startedAt
		s.SessionStartedAt = &started
	}
	return s
}
