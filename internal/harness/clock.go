package harness

import (
	"context"
	"sync"
	"time"

	"github.com/DoctorReid/ZenlessZoneZero-OneDragon-sub002/internal/testutil"
)

// virtualClock is a fake clock that wait ops can sleep on. Sleepers wake
// only when a step moves the clock past their deadline.
type virtualClock struct {
	*testutil.FakeClock

	mu      sync.Mutex
	waiters []*waiter
}

type waiter struct {
	ctx      context.Context
	deadline time.Time
	forever  bool
	wake     chan struct{}
}

func newVirtualClock() *virtualClock {
	return &virtualClock{FakeClock: testutil.NewFakeClock(0)}
}

// sleep parks until the clock reaches now+d or ctx is done.
func (c *virtualClock) sleep(ctx context.Context, d time.Duration) error {
	return c.park(&waiter{ctx: ctx, deadline: c.Now().Add(d), wake: make(chan struct{})})
}

// block parks until ctx is done.
func (c *virtualClock) block(ctx context.Context) error {
	return c.park(&waiter{ctx: ctx, forever: true, wake: make(chan struct{})})
}

func (c *virtualClock) park(w *waiter) error {
	c.mu.Lock()
	c.waiters = append(c.waiters, w)
	c.mu.Unlock()

	select {
	case <-w.wake:
		return nil
	case <-w.ctx.Done():
		c.remove(w)
		return w.ctx.Err()
	}
}

func (c *virtualClock) remove(w *waiter) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, other := range c.waiters {
		if other == w {
			c.waiters = append(c.waiters[:i], c.waiters[i+1:]...)
			return
		}
	}
}

// SetSeconds moves the clock and wakes due sleepers.
func (c *virtualClock) SetSeconds(seconds float64) {
	c.Set(seconds)
	c.wakeDue()
}

// AdvanceSeconds moves the clock forward and wakes due sleepers.
func (c *virtualClock) AdvanceSeconds(seconds float64) {
	c.Advance(time.Duration(seconds * float64(time.Second)))
	c.wakeDue()
}

func (c *virtualClock) wakeDue() {
	now := c.Now()
	c.mu.Lock()
	defer c.mu.Unlock()

	kept := c.waiters[:0]
	for _, w := range c.waiters {
		if !w.forever && !w.deadline.After(now) {
			close(w.wake)
			continue
		}
		kept = append(kept, w)
	}
	c.waiters = kept
}

// parked reports whether some sleeper with a live context is parked.
func (c *virtualClock) parked() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, w := range c.waiters {
		if w.ctx.Err() == nil {
			return true
		}
	}
	return false
}
