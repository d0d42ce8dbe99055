package clock

import (
	"sort"
	"sync"
	"time"
)

// FakeClock is a Clock whose time only moves when Advance or Set is
// called. AfterFunc callbacks run synchronously inside Advance, in
// deadline order. A callback must not call Advance.
type FakeClock struct {
	mu      sync.Mutex
	now     time.Time
	pending []*pending
}

type pending struct {
	at       time.Time
	fn       func()
	canceled bool
	done     bool
}

// Fake returns a FakeClock set to start.
func Fake(start time.Time) *FakeClock {
	return &FakeClock{now: start}
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// AfterFunc registers f to run when the clock reaches now+d. f never
// runs before AfterFunc returns; with d <= 0 it is due on the next
// Advance, so callers may schedule while holding a lock f takes.
func (c *FakeClock) AfterFunc(d time.Duration, f func()) *Timer {
	if d < 0 {
		d = 0
	}

	c.mu.Lock()
	p := &pending{at: c.now.Add(d), fn: f}
	c.pending = append(c.pending, p)
	c.mu.Unlock()

	return &Timer{stop: func() bool {
		c.mu.Lock()
		defer c.mu.Unlock()
		if p.canceled || p.done {
			return false
		}
		p.canceled = true
		return true
	}}
}

// Advance moves the clock forward by d, firing everything whose
// deadline falls at or before the new time.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	target := c.now
	c.mu.Unlock()

	for {
		due := c.takeDue(target)
		if len(due) == 0 {
			return
		}
		for _, p := range due {
			p.fn()
		}
	}
}

// Set jumps the clock to t without firing anything scheduled between
// the old and the new time until the next Advance.
func (c *FakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// Pending reports how many callbacks are still scheduled.
func (c *FakeClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, p := range c.pending {
		if !p.canceled && !p.done {
			n++
		}
	}
	return n
}

func (c *FakeClock) takeDue(target time.Time) []*pending {
	c.mu.Lock()
	defer c.mu.Unlock()

	var due, keep []*pending
	for _, p := range c.pending {
		switch {
		case p.canceled:
		case p.at.After(target):
			keep = append(keep, p)
		default:
			due = append(due, p)
		}
	}
	sort.SliceStable(due, func(i, j int) bool { return due[i].at.Before(due[j].at) })

	for _, p := range due {
		p.done = true
	}
	c.pending = keep
	return due
}
