// Package clock lets the focus engine read time and schedule delayed
// callbacks without calling the time package directly, so tests can
// drive transitions deterministically.
package clock

import "time"

// Clock is the time source used by the timer engine, the stats
// aggregator and the store.
type Clock interface {
	// Now returns the current local time.
	Now() time.Time

	// AfterFunc calls f once d has elapsed, never on the calling
	// goroutine before AfterFunc returns. The returned Timer cancels
	// the pending call.
	AfterFunc(d time.Duration, f func()) *Timer
}

// Timer is a pending AfterFunc call.
type Timer struct {
	stop func() bool
}

// Stop cancels the call. It reports false if the call already ran or
// was already stopped.
func (t *Timer) Stop() bool { return t.stop() }

// Real returns the wall clock.
func Real() Clock { return realClock{} }

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) *Timer {
	t := time.AfterFunc(d, f)
	return &Timer{stop: t.Stop}
}
