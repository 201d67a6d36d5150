package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFakeClock_StartsAtOffset(t *testing.T) {
	clock := NewFakeClock(10)
	assert.Equal(t, At(10), clock.Now())
	assert.InDelta(t, 10.0, clock.Seconds(), 1e-9)
}

func TestFakeClock_SetAndAdvance(t *testing.T) {
	clock := NewFakeClock(0)

	clock.Set(10.3)
	assert.InDelta(t, 10.3, clock.Seconds(), 1e-9)

	got := clock.Advance(700 * time.Millisecond)
	assert.Equal(t, clock.Now(), got)
	assert.InDelta(t, 11.0, clock.Seconds(), 1e-9)

	// Backwards moves are permitted.
	clock.Set(1)
	assert.InDelta(t, 1.0, clock.Seconds(), 1e-9)
}

func TestFakeClock_ThreadSafe(t *testing.T) {
	clock := NewFakeClock(0)
	const goroutines = 50

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			clock.Advance(time.Second)
			_ = clock.Now()
		}()
	}
	wg.Wait()

	assert.InDelta(t, float64(goroutines), clock.Seconds(), 1e-9)
}

func TestAt(t *testing.T) {
	assert.Equal(t, Epoch, At(0))
	assert.Equal(t, Epoch.Add(1500*time.Millisecond), At(1.5))
}
