package testutil

import (
	"sync"
	"time"
)

// StepClock is a deterministic wall clock for timing tests.
//
// Every call to Now() returns the current instant and then moves the clock
// forward by the configured step. With a step of 1ms, an interval whose
// Start and Stop each read the clock once measures exactly 1ms.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type StepClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

// Epoch is the instant every StepClock starts at.
var Epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// NewStepClock creates a clock at Epoch that advances by step per read.
//
// A step of 0 produces a frozen clock that only moves via Advance().
func NewStepClock(step time.Duration) *StepClock {
	return &StepClock{now: Epoch, step: step}
}

// Now returns the current instant and advances the clock by one step.
//
// Suitable for timing.WithClock(clock.Now).
func (c *StepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now
	c.now = c.now.Add(c.step)
	return t
}

// Advance moves the clock forward by d without a read.
func (c *StepClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Reset moves the clock back to Epoch.
//
// Used for test reuse.
func (c *StepClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = Epoch
}
