package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/DoctorReid/ZenlessZoneZero-OneDragon-sub002/internal/operation"
)

// Log collects op events in the order they happen, across goroutines.
type Log struct {
	mu     sync.Mutex
	events []string
}

// Add appends an event.
func (l *Log) Add(event string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, event)
}

// Events returns a copy of the events.
func (l *Log) Events() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.events...)
}

// Count returns the number of events equal to event.
func (l *Log) Count(event string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, e := range l.events {
		if e == event {
			n++
		}
	}
	return n
}

// RecordingOp is an AtomicOp that logs "<name>" when Execute starts and
// "<name>.stop" on every Stop call.
//
// Delay makes Execute block until the delay passes or the op is stopped.
// Block makes Execute wait for Release or Stop. Err is returned from Execute;
// Panic makes Execute panic with its value.
type RecordingOp struct {
	OpName  string
	Log     *Log
	Delay   time.Duration
	Block   bool
	Err     error
	Panic   any
	IsAsync bool

	mu       sync.Mutex
	started  chan struct{}
	release  chan struct{}
	stopped  chan struct{}
	stops    int
	executes int
}

// NewRecordingOp creates a RecordingOp writing to log.
func NewRecordingOp(name string, log *Log) *RecordingOp {
	return &RecordingOp{OpName: name, Log: log}
}

func (o *RecordingOp) init() {
	if o.started == nil {
		o.started = make(chan struct{})
		o.release = make(chan struct{})
		o.stopped = make(chan struct{})
	}
}

// Name implements operation.AtomicOp.
func (o *RecordingOp) Name() string { return o.OpName }

// Async implements operation.AtomicOp.
func (o *RecordingOp) Async() bool { return o.IsAsync }

// Execute implements operation.AtomicOp.
func (o *RecordingOp) Execute(ctx context.Context) error {
	o.mu.Lock()
	o.init()
	o.executes++
	first := o.executes == 1
	started, release, stopped := o.started, o.release, o.stopped
	o.mu.Unlock()

	if o.Log != nil {
		o.Log.Add(o.OpName)
	}
	if first {
		close(started)
	}
	if o.Panic != nil {
		panic(o.Panic)
	}

	switch {
	case o.Block:
		select {
		case <-release:
		case <-stopped:
			return context.Canceled
		case <-ctx.Done():
			return ctx.Err()
		}
	case o.Delay > 0:
		timer := time.NewTimer(o.Delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-stopped:
			return context.Canceled
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return o.Err
}

// Stop implements operation.AtomicOp.
func (o *RecordingOp) Stop() {
	o.mu.Lock()
	o.init()
	o.stops++
	if o.stops == 1 {
		close(o.stopped)
	}
	o.mu.Unlock()

	if o.Log != nil {
		o.Log.Add(o.OpName + ".stop")
	}
}

// Started is closed once Execute has been entered.
func (o *RecordingOp) Started() <-chan struct{} {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.init()
	return o.started
}

// Release unblocks a Block op.
func (o *RecordingOp) Release() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.init()
	select {
	case <-o.release:
	default:
		close(o.release)
	}
}

// Stops returns how many times Stop was called.
func (o *RecordingOp) Stops() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.stops
}

// Executions returns how many times Execute was called.
func (o *RecordingOp) Executions() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.executes
}

var _ operation.AtomicOp = (*RecordingOp)(nil)
