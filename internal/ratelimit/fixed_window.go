package ratelimit

import (
	"sync"
	"time"
)

// FixedWindow is a fixed-window counter limiter keyed by origin address.
//
// Each origin gets an independent window of length Window; the first
// operation in a window always succeeds and starts the window. Once the
// window's count reaches the limit, further operations are rejected until
// the window has fully elapsed, at which point the next operation resets
// the window to count=1 regardless of the prior count.
//
// This is a fixed window, not a sliding one: a burst straddling a window
// boundary can admit up to 2x the limit within less than one window
// length. That is an accepted property of the algorithm.
type FixedWindow struct {
	mu sync.Mutex

	clock  Clock
	limit  int
	window time.Duration

	origins map[string]*windowEntry
}

type windowEntry struct {
	count int
	start time.Time
}

func NewFixedWindow(clock Clock, limit int, window time.Duration) *FixedWindow {
	if clock == nil {
		clock = RealClock{}
	}
	if limit < 1 {
		limit = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &FixedWindow{
		clock:   clock,
		limit:   limit,
		window:  window,
		origins: make(map[string]*windowEntry),
	}
}

// Allow reports whether one more operation from origin is admitted.
func (l *FixedWindow) Allow(origin string) bool {
	now := l.clock.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.origins[origin]
	if !ok {
		l.origins[origin] = &windowEntry{count: 1, start: now}
		return true
	}

	if now.Sub(entry.start) > l.window {
		entry.count = 1
		entry.start = now
		return true
	}

	if entry.count >= l.limit {
		return false
	}

	entry.count++
	return true
}

// Sweep removes windows that have fully elapsed and returns how many were
// dropped. A swept origin's next operation would have reset its window to
// count=1 anyway, so sweeping never changes an admit/reject outcome; it
// only bounds memory growth across many distinct origins.
func (l *FixedWindow) Sweep() int {
	now := l.clock.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for origin, entry := range l.origins {
		if now.Sub(entry.start) > l.window {
			delete(l.origins, origin)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked origins.
func (l *FixedWindow) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.origins)
}
