package engine

import (
	"sync/atomic"
	"time"
)

// Clock supplies the evaluation time.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now returns time.Now().
func (SystemClock) Now() time.Time {
	return time.Now()
}

// sequence is a monotonic counter stamping engine events, so listeners can
// order events without comparing wall-clock timestamps.
//
// Thread-safety: safe for concurrent use (atomic operations).
type sequence struct {
	seq atomic.Int64
}

// Next returns the next sequence number. The first call returns 1.
func (s *sequence) Next() int64 {
	return s.seq.Add(1)
}

// Current returns the last sequence number handed out.
func (s *sequence) Current() int64 {
	return s.seq.Load()
}
