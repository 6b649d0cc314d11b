package ratelimit

import (
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestFixedWindow_AdmitsUpToLimit(t *testing.T) {
	clk := &fakeClock{now: time.Unix(0, 0)}
	l := NewFixedWindow(clk, 20, time.Minute)

	for i := 1; i <= 20; i++ {
		if !l.Allow("10.0.0.1") {
			t.Fatalf("operation %d rejected, want admit", i)
		}
	}
	if l.Allow("10.0.0.1") {
		t.Fatalf("operation 21 admitted, want reject")
	}
}

func TestFixedWindow_ResetsAfterWindowElapses(t *testing.T) {
	clk := &fakeClock{now: time.Unix(0, 0)}
	l := NewFixedWindow(clk, 20, time.Minute)

	for i := 0; i < 20; i++ {
		l.Allow("10.0.0.1")
	}
	if l.Allow("10.0.0.1") {
		t.Fatalf("expected reject inside exhausted window")
	}

	// "now - start > window" is a strict comparison; exactly one window is
	// still inside the window.
	clk.Advance(time.Minute)
	if l.Allow("10.0.0.1") {
		t.Fatalf("expected reject exactly at the window boundary")
	}

	clk.Advance(time.Nanosecond)
	if !l.Allow("10.0.0.1") {
		t.Fatalf("expected admit after window elapsed")
	}

	// The counter restarted at 1, so 19 more fit in the new window.
	for i := 2; i <= 20; i++ {
		if !l.Allow("10.0.0.1") {
			t.Fatalf("operation %d of new window rejected, want admit", i)
		}
	}
	if l.Allow("10.0.0.1") {
		t.Fatalf("operation 21 of new window admitted, want reject")
	}
}

func TestFixedWindow_OriginsAreIndependent(t *testing.T) {
	clk := &fakeClock{now: time.Unix(0, 0)}
	l := NewFixedWindow(clk, 2, time.Minute)

	l.Allow("10.0.0.1")
	l.Allow("10.0.0.1")
	if l.Allow("10.0.0.1") {
		t.Fatalf("expected first origin exhausted")
	}
	if !l.Allow("10.0.0.2") {
		t.Fatalf("expected second origin unaffected")
	}
}

func TestFixedWindow_BoundaryBurstAdmitsTwiceTheLimit(t *testing.T) {
	clk := &fakeClock{now: time.Unix(0, 0)}
	l := NewFixedWindow(clk, 20, time.Minute)

	admitted := 0
	for i := 0; i < 20; i++ {
		if l.Allow("10.0.0.1") {
			admitted++
		}
	}
	clk.Advance(time.Minute + time.Millisecond)
	for i := 0; i < 20; i++ {
		if l.Allow("10.0.0.1") {
			admitted++
		}
	}
	if admitted != 40 {
		t.Fatalf("admitted %d across a window boundary, want 40", admitted)
	}
}

func TestFixedWindow_SweepDropsOnlyElapsedWindows(t *testing.T) {
	clk := &fakeClock{now: time.Unix(0, 0)}
	l := NewFixedWindow(clk, 20, time.Minute)

	l.Allow("stale")
	clk.Advance(30 * time.Second)
	l.Allow("fresh")

	clk.Advance(31 * time.Second) // "stale" is now past its window, "fresh" is not.
	if removed := l.Sweep(); removed != 1 {
		t.Fatalf("Sweep removed %d, want 1", removed)
	}
	if l.Len() != 1 {
		t.Fatalf("Len() = %d after sweep, want 1", l.Len())
	}

	// A swept origin behaves exactly like a reset one: next op is admitted.
	if !l.Allow("stale") {
		t.Fatalf("expected admit for swept origin")
	}
}
