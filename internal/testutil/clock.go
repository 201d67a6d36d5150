package testutil

import (
	"sync"
	"time"
)

// Epoch is the zero point of FakeClock: time.Unix(0, 0).
var Epoch = time.Unix(0, 0)

// At returns Epoch plus the given number of seconds.
func At(seconds float64) time.Time {
	return Epoch.Add(time.Duration(seconds * float64(time.Second)))
}

// FakeClock is a manually advanced wall clock for tests.
//
// Unlike the engine's system clock, FakeClock only moves when Set or Advance
// is called, so scenarios replay with identical timestamps.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type FakeClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewFakeClock creates a clock at the given number of seconds after Epoch.
func NewFakeClock(seconds float64) *FakeClock {
	return &FakeClock{now: At(seconds)}
}

// Now returns the current fake time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Set moves the clock to the given number of seconds after Epoch.
// Moving backwards is allowed; the recorders reject stale timestamps.
func (c *FakeClock) Set(seconds float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = At(seconds)
}

// Advance moves the clock forward by d.
func (c *FakeClock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}

// Seconds returns the current time as seconds after Epoch.
func (c *FakeClock) Seconds() float64 {
	return c.Now().Sub(Epoch).Seconds()
}
