package operation

import (
	"context"
	"sync"
)

// AtomicOp is one executable action.
//
// Implementations are shared: an op is resolved once at load time and may
// appear in several tasks, so Execute can be entered again while an earlier
// call is still unwinding (see Lifecycle). Ops are compared by identity and
// should be pointer types.
type AtomicOp interface {
	// Name identifies the op in logs and traces.
	Name() string

	// Execute performs the action and blocks until it is done. It may be
	// called from any executor goroutine. ctx is cancelled when the owning
	// task is stopped.
	Execute(ctx context.Context) error

	// Stop interrupts a running Execute. It must be idempotent and safe to
	// call on an op that never started or already finished. Ops that hold an
	// input must release it.
	Stop()

	// Async reports whether the op keeps acting after Execute returns (e.g.
	// press and hold). The task tracks such ops and stops them when the task
	// is stopped.
	Async() bool
}

// OpState is the state of an op's Lifecycle.
type OpState int

const (
	OpIdle OpState = iota
	OpRunning
	OpStopping
)

func (s OpState) String() string {
	switch s {
	case OpIdle:
		return "idle"
	case OpRunning:
		return "running"
	case OpStopping:
		return "stopping"
	default:
		return "unknown"
	}
}

// Lifecycle tracks the runs of a shared op. Every Begin opens an independent
// run with its own context; Stop cancels the runs open at that moment and
// never affects a run begun afterwards. A task that replaces a stopped task
// can therefore run the same op while the old run is still unwinding.
//
// The op is OpIdle with no open run, OpRunning while at least one open run
// has not been stopped, and OpStopping while every open run is unwinding.
type Lifecycle struct {
	mu   sync.Mutex
	next uint64
	runs map[uint64]*lifecycleRun
}

type lifecycleRun struct {
	cancel   context.CancelFunc
	stopping bool
}

// Begin opens a run and returns its context, which is cancelled by Stop or
// by ctx, and the function that closes the run. The end function is safe to
// call more than once.
func (l *Lifecycle) Begin(ctx context.Context) (context.Context, func()) {
	runCtx, cancel := context.WithCancel(ctx)

	l.mu.Lock()
	if l.runs == nil {
		l.runs = make(map[uint64]*lifecycleRun)
	}
	l.next++
	id := l.next
	l.runs[id] = &lifecycleRun{cancel: cancel}
	l.mu.Unlock()

	var once sync.Once
	return runCtx, func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.runs, id)
			l.mu.Unlock()
			cancel()
		})
	}
}

// Stop cancels every open run.
// Returns false if no run was waiting to be stopped.
func (l *Lifecycle) Stop() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	stopped := false
	for _, r := range l.runs {
		if r.stopping {
			continue
		}
		r.stopping = true
		r.cancel()
		stopped = true
	}
	return stopped
}

// State returns the current state.
func (l *Lifecycle) State() OpState {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.runs) == 0 {
		return OpIdle
	}
	for _, r := range l.runs {
		if !r.stopping {
			return OpRunning
		}
	}
	return OpStopping
}

// Runs returns the number of open runs.
func (l *Lifecycle) Runs() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.runs)
}
