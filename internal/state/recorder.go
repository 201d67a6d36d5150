package state

import (
	"sync"
	"time"
)

// Recorder owns the latest Record for one state name.
//
// Updates are latest-timestamp-wins: a write carrying a timestamp older than
// the current latest is ignored, so out-of-order concurrent producers cannot
// move a fact backwards in time.
type Recorder struct {
	name string

	mu   sync.RWMutex
	last Record
}

// NewRecorder creates a recorder that has never observed its state.
func NewRecorder(name string) *Recorder {
	return &Recorder{name: CanonicalName(name)}
}

// Name returns the canonical state name.
func (r *Recorder) Name() string {
	return r.name
}

// Record stores an observation without a value.
// Returns false if t is older than the current latest observation.
func (r *Recorder) Record(t time.Time) bool {
	return r.store(Record{Name: r.name, Time: t})
}

// RecordValue stores an observation carrying a value.
// Returns false if t is older than the current latest observation.
func (r *Recorder) RecordValue(t time.Time, v float64) bool {
	return r.store(Record{Name: r.name, Time: t, Value: v, HasValue: true})
}

func (r *Recorder) store(rec Record) bool {
	if rec.Time.IsZero() {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.last.Observed() && rec.Time.Before(r.last.Time) {
		return false
	}
	r.last = rec
	return true
}

// Clear forgets the latest observation. The state reads as never observed
// until the next Record.
func (r *Recorder) Clear() {
	r.mu.Lock()
	r.last = Record{}
	r.mu.Unlock()
}

// Last returns the latest observation and whether there is one.
func (r *Recorder) Last() (Record, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.last, r.last.Observed()
}

// Observed reports whether the state has been recorded since creation or
// the last Clear.
func (r *Recorder) Observed() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.last.Observed()
}

// LastRecordTime returns the time of the latest observation.
// The zero time means the state was never observed.
func (r *Recorder) LastRecordTime() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.last.Time
}

// LastValue returns the value of the latest observation and whether that
// observation carried a value.
func (r *Recorder) LastValue() (float64, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.last.Value, r.last.HasValue
}
