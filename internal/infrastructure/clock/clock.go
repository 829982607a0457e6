// Package clock provides an injectable time source.
//
// The discovery protocol's heartbeat and eviction behaviour, and the
// manager's process-budget enforcement, are all driven through the Clock
// interface instead of direct wall-clock calls so they are
// deterministically testable.
package clock

import (
	"sync"
	"time"
)

// Clock is a source of current time.
type Clock interface {
	Now() time.Time
}

// systemClock reads the wall clock.
type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}

// System returns a Clock backed by the wall clock.
func System() Clock {
	return systemClock{}
}

// Fake is a manually advanced Clock for tests.
//
// All methods are safe for concurrent use.
type Fake struct {
	mu  sync.Mutex
	now time.Time
}

// NewFake creates a Fake clock frozen at the given instant.
func NewFake(now time.Time) *Fake {
	return &Fake{now: now}
}

// Now returns the fake current time.
func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// Advance moves the fake clock forward by d.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

// Set moves the fake clock to an absolute instant.
func (f *Fake) Set(now time.Time) {
	f.mu.Lock()
	f.now = now
	f.mu.Unlock()
}
