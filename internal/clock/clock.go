// Package clock provides a time abstraction so timer-driven behavior
// (engagement triggers, inactivity checks, session eviction) stays
// deterministic under test. Production code injects Clock and never calls
// time.Now directly.
package clock

import (
	"sync"
	"time"
)

// Clock provides time operations that can be mocked for testing.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// NowUTC returns the current time in UTC. Preferred for storage.
	NowUTC() time.Time

	// Since returns the time elapsed since t.
	Since(t time.Time) time.Duration

	// NewTicker returns a new Ticker.
	NewTicker(d time.Duration) Ticker

	// NewTimer returns a new Timer.
	NewTimer(d time.Duration) Timer
}

// Ticker wraps time.Ticker for mockability.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// Timer wraps time.Timer for mockability.
type Timer interface {
	C() <-chan time.Time
	Stop() bool
}

type realClock struct{}

// New returns a Clock backed by real system time.
func New() Clock {
	return &realClock{}
}

func (c *realClock) Now() time.Time                  { return time.Now() }
func (c *realClock) NowUTC() time.Time               { return time.Now().UTC() }
func (c *realClock) Since(t time.Time) time.Duration { return time.Since(t) }

func (c *realClock) NewTicker(d time.Duration) Ticker {
	return &realTicker{ticker: time.NewTicker(d)}
}

func (c *realClock) NewTimer(d time.Duration) Timer {
	return &realTimer{timer: time.NewTimer(d)}
}

type realTicker struct {
	ticker *time.Ticker
}

func (t *realTicker) C() <-chan time.Time { return t.ticker.C }
func (t *realTicker) Stop()               { t.ticker.Stop() }

type realTimer struct {
	timer *time.Timer
}

func (t *realTimer) C() <-chan time.Time { return t.timer.C }
func (t *realTimer) Stop() bool          { return t.timer.Stop() }

// Mock implements Clock with controllable time for testing.
type Mock struct {
	mu      sync.RWMutex
	current time.Time
}

// NewMock creates a Mock clock set to the given time.
func NewMock(t time.Time) *Mock {
	return &Mock{current: t}
}

// Now returns the mock's current time.
func (m *Mock) Now() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// NowUTC returns the mock's current time in UTC.
func (m *Mock) NowUTC() time.Time {
	return m.Now().UTC()
}

// Since returns the duration since t relative to the mock's current time.
func (m *Mock) Since(t time.Time) time.Duration {
	return m.Now().Sub(t)
}

// NewTicker returns a non-ticking ticker. Tests drive timer-dependent code
// by calling its check methods directly after Advance.
func (m *Mock) NewTicker(d time.Duration) Ticker {
	return &mockTicker{ch: make(chan time.Time)}
}

// NewTimer returns a timer that never fires on its own; tests exercise the
// consumer directly instead of waiting on the channel.
func (m *Mock) NewTimer(d time.Duration) Timer {
	return &mockTimer{ch: make(chan time.Time, 1)}
}

// Set moves the mock clock to a specific time.
func (m *Mock) Set(t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = t
}

// Advance moves the mock clock forward by d.
func (m *Mock) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = m.current.Add(d)
}

type mockTicker struct {
	ch chan time.Time
}

func (t *mockTicker) C() <-chan time.Time { return t.ch }
func (t *mockTicker) Stop()               {}

type mockTimer struct {
	ch chan time.Time
}

func (t *mockTimer) C() <-chan time.Time { return t.ch }
func (t *mockTimer) Stop() bool          { return true }
