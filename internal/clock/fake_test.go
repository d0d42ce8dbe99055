package clock

import (
	"sync"
	"testing"
	"time"
)

var epoch = time.Date(2026, 3, 14, 9, 0, 0, 0, time.Local)

func TestFakeNowStandsStill(t *testing.T) {
	c := Fake(epoch)
	if !c.Now().Equal(epoch) {
		t.Fatalf("Now = %v, want %v", c.Now(), epoch)
	}
	c.Advance(90 * time.Second)
	if want := epoch.Add(90 * time.Second); !c.Now().Equal(want) {
		t.Fatalf("Now = %v, want %v", c.Now(), want)
	}
}

func TestFakeAfterFuncFiresAtDeadline(t *testing.T) {
	c := Fake(epoch)
	fired := 0
	c.AfterFunc(500*time.Millisecond, func() { fired++ })

	c.Advance(499 * time.Millisecond)
	if fired != 0 {
		t.Fatal("fired before deadline")
	}
	c.Advance(time.Millisecond)
	if fired != 1 {
		t.Fatalf("fired = %d, want 1", fired)
	}
	c.Advance(time.Second)
	if fired != 1 {
		t.Fatalf("one-shot fired again: %d", fired)
	}
	if c.Pending() != 0 {
		t.Fatalf("Pending = %d, want 0", c.Pending())
	}
}

func TestFakeAfterFuncZeroWaitsForAdvance(t *testing.T) {
	c := Fake(epoch)
	var mu sync.Mutex
	ran := false

	// The callback takes the lock held around AfterFunc.
	mu.Lock()
	c.AfterFunc(0, func() {
		mu.Lock()
		defer mu.Unlock()
		ran = true
	})
	c.AfterFunc(-time.Second, func() {})
	mu.Unlock()

	if ran {
		t.Fatal("zero delay ran before AfterFunc returned")
	}
	if c.Pending() != 2 {
		t.Fatalf("pending = %d, want 2", c.Pending())
	}
	c.Advance(0)
	if !ran {
		t.Fatal("zero delay did not fire on Advance(0)")
	}
	if c.Pending() != 0 {
		t.Fatalf("pending = %d, want 0", c.Pending())
	}
}

func TestFakeAfterFuncStop(t *testing.T) {
	c := Fake(epoch)
	fired := false
	timer := c.AfterFunc(time.Second, func() { fired = true })
	if !timer.Stop() {
		t.Fatal("Stop on pending timer returned false")
	}
	if timer.Stop() {
		t.Fatal("second Stop returned true")
	}
	c.Advance(2 * time.Second)
	if fired {
		t.Fatal("stopped timer fired")
	}
}

func TestFakeAfterFuncOrder(t *testing.T) {
	c := Fake(epoch)
	var order []int
	c.AfterFunc(300*time.Millisecond, func() { order = append(order, 3) })
	c.AfterFunc(100*time.Millisecond, func() { order = append(order, 1) })
	c.AfterFunc(200*time.Millisecond, func() { order = append(order, 2) })
	c.Advance(time.Second)

	if len(order) != 3 || order[0] != 1 || order[1] != 2 || order[2] != 3 {
		t.Fatalf("order = %v", order)
	}
}

func TestFakeCallbackSchedulesFollowup(t *testing.T) {
	c := Fake(epoch)
	second := false
	c.AfterFunc(100*time.Millisecond, func() {
		c.AfterFunc(100*time.Millisecond, func() { second = true })
	})
	c.Advance(time.Second)
	if second {
		t.Fatal("followup is scheduled relative to the advanced time")
	}
	c.Advance(100 * time.Millisecond)
	if !second {
		t.Fatal("followup did not fire")
	}
}

func TestFakeSet(t *testing.T) {
	c := Fake(epoch)
	later := epoch.Add(24 * time.Hour)
	c.Set(later)
	if !c.Now().Equal(later) {
		t.Fatalf("Now = %v, want %v", c.Now(), later)
	}
}

func TestRealClock(t *testing.T) {
	c := Real()
	if c.Now().IsZero() {
		t.Fatal("zero time")
	}
	done := make(chan struct{})
	c.AfterFunc(time.Millisecond, func() { close(done) })
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("AfterFunc did not fire")
	}
	timer := c.AfterFunc(time.Hour, func() { t.Error("stopped timer fired") })
	if !timer.Stop() {
		t.Fatal("Stop on pending timer returned false")
	}
}
