package operation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/DoctorReid/ZenlessZoneZero-OneDragon-sub002/internal/pool"
)

// Status is the lifecycle state of a Task.
type Status int

const (
	StatusWaiting Status = iota
	StatusRunning
	StatusCompleted
	StatusStopped
)

func (s Status) String() string {
	switch s {
	case StatusWaiting:
		return "waiting"
	case StatusRunning:
		return "running"
	case StatusCompleted:
		return "completed"
	case StatusStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Terminal reports whether s is StatusCompleted or StatusStopped.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusStopped
}

// Option configures a Task.
type Option func(*Task)

// WithTrigger sets the trigger state that started the task.
// Leave unset for the main loop.
func WithTrigger(name string) Option {
	return func(t *Task) { t.trigger = name }
}

// WithPriority sets the task priority.
func WithPriority(p Priority) Option {
	return func(t *Task) { t.priority = p }
}

// WithInterruptStates sets the states whose update stops the task.
func WithInterruptStates(names ...string) Option {
	return func(t *Task) {
		for _, n := range names {
			t.interrupts[n] = struct{}{}
		}
	}
}

// WithTrace sets the matched handler path.
func WithTrace(trace []TraceEntry) Option {
	return func(t *Task) {
		t.trace = append([]TraceEntry(nil), trace...)
	}
}

// WithExecutor sets the executor for the driver loop and op executions.
// Defaults to pool.Inline, which makes RunAsync synchronous.
func WithExecutor(exec pool.Executor) Option {
	return func(t *Task) { t.exec = exec }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Task) { t.logger = logger }
}

// WithObserver sets the lifecycle observer.
func WithObserver(obs Observer) Option {
	return func(t *Task) { t.observer = obs }
}

// WithID sets the task ID. Defaults to a UUIDv7.
func WithID(id string) Option {
	return func(t *Task) { t.id = id }
}

// Task runs an ordered list of ops asynchronously.
//
// Thread-safety: all methods are safe for concurrent use. The task lock is
// never held while calling into an op or the observer.
type Task struct {
	id         string
	ops        []AtomicOp
	trigger    string
	priority   Priority
	interrupts map[string]struct{}
	trace      []TraceEntry
	exec       pool.Executor
	logger     *slog.Logger
	observer   Observer

	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
	doneOnce sync.Once

	mu       sync.Mutex
	status   Status
	running  bool
	current  AtomicOp
	asyncOps []AtomicOp
	errs     []*ExecutionError
}

// NewTask creates a task in StatusWaiting. ops is copied.
func NewTask(ops []AtomicOp, opts ...Option) *Task {
	t := &Task{
		ops:        append([]AtomicOp(nil), ops...),
		interrupts: make(map[string]struct{}),
		exec:       pool.Inline{},
		logger:     slog.Default(),
		observer:   nopObserver{},
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.id == "" {
		t.id = UUIDv7Generator{}.Generate()
	}
	t.logger = t.logger.With("task_id", t.id)
	t.ctx, t.cancel = context.WithCancel(context.Background())
	return t
}

// ID returns the task ID.
func (t *Task) ID() string { return t.id }

// Trigger returns the trigger state name, empty for the main loop.
func (t *Task) Trigger() string { return t.trigger }

// Priority returns the task priority.
func (t *Task) Priority() Priority { return t.priority }

// Ops returns a copy of the op list.
func (t *Task) Ops() []AtomicOp {
	return append([]AtomicOp(nil), t.ops...)
}

// InterruptStates returns the interrupt state names, sorted.
func (t *Task) InterruptStates() []string {
	names := make([]string, 0, len(t.interrupts))
	for n := range t.interrupts {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// InterruptedBy reports whether an update of the named state stops the task.
func (t *Task) InterruptedBy(name string) bool {
	_, ok := t.interrupts[name]
	return ok
}

// Status returns the current lifecycle state.
func (t *Task) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// Running reports whether the driver may still start ops.
func (t *Task) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

// Errors returns the execution errors recorded so far.
func (t *Task) Errors() []*ExecutionError {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]*ExecutionError(nil), t.errs...)
}

// Done is closed when the driver loop has exited, or when the task is
// stopped before it ever ran.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until Done is closed or ctx is done.
func (t *Task) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunAsync starts the task and returns without waiting for any op.
func (t *Task) RunAsync() error {
	t.mu.Lock()
	switch t.status {
	case StatusStopped:
		t.mu.Unlock()
		return ErrTaskStopped
	case StatusRunning, StatusCompleted:
		t.mu.Unlock()
		return ErrTaskAlreadyStarted
	}
	t.status = StatusRunning
	t.running = true
	t.mu.Unlock()

	t.logger.Debug("task started",
		"trigger", t.TriggerDisplay(),
		"priority", t.PriorityDisplay(),
		"expr", t.ExprDisplay(),
		"ops", len(t.ops))
	t.observer.TaskStarted(t)

	if err := pool.Spawn(t.exec, t.drive); err != nil {
		t.mu.Lock()
		t.running = false
		t.status = StatusStopped
		t.mu.Unlock()
		t.cancel()
		t.observer.TaskFinished(t, StatusStopped)
		t.closeDone()
		return fmt.Errorf("submit task %s: %w", t.id, err)
	}
	return nil
}

// Stop interrupts the task.
//
// Returns true if the task had already finished (idempotent). Otherwise it
// marks the task stopped, cancels the task context, calls Stop once on the
// current op and on every tracked async op, and returns false.
func (t *Task) Stop() bool {
	t.mu.Lock()
	switch t.status {
	case StatusCompleted, StatusStopped:
		t.mu.Unlock()
		return true
	case StatusWaiting:
		t.status = StatusStopped
		t.mu.Unlock()
		t.cancel()
		t.closeDone()
		return false
	}

	t.running = false
	t.status = StatusStopped
	var toStop []AtomicOp
	if t.current != nil {
		toStop = append(toStop, t.current)
	}
	for _, op := range t.asyncOps {
		if op != t.current {
			toStop = append(toStop, op)
		}
	}
	t.current = nil
	t.asyncOps = nil
	t.mu.Unlock()

	t.cancel()
	for _, op := range toStop {
		op.Stop()
	}
	t.logger.Debug("task stopped", "trigger", t.TriggerDisplay(), "stopped_ops", len(toStop))
	return false
}

func (t *Task) drive() {
	defer t.finish()

	for i, op := range t.ops {
		t.mu.Lock()
		if !t.running {
			t.mu.Unlock()
			return
		}
		t.current = op
		if op.Async() {
			t.asyncOps = append(t.asyncOps, op)
		}
		t.mu.Unlock()

		err := t.execute(op)

		t.mu.Lock()
		stillRunning := t.running
		if stillRunning {
			t.current = nil
		}
		t.mu.Unlock()

		if err != nil && !(interrupted(err) && !stillRunning) {
			t.fail(i, op, err)
			if errors.Is(err, pool.ErrClosed) {
				t.Stop()
				return
			}
		}
		if !stillRunning {
			return
		}
	}

	t.mu.Lock()
	if t.running {
		t.running = false
		t.status = StatusCompleted
		t.asyncOps = nil
	}
	t.mu.Unlock()
}

// execute runs op as its own executor submission and blocks until it returns.
func (t *Task) execute(op AtomicOp) error {
	result := make(chan error, 1)
	if err := t.exec.Submit(func() { result <- safeExecute(t.ctx, op) }); err != nil {
		return err
	}
	return <-result
}

func safeExecute(ctx context.Context, op AtomicOp) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r}
		}
	}()
	return op.Execute(ctx)
}

func interrupted(err error) bool {
	return errors.Is(err, context.Canceled)
}

func (t *Task) fail(index int, op AtomicOp, err error) {
	ee := &ExecutionError{TaskID: t.id, Index: index, Op: op.Name(), Err: err}
	t.mu.Lock()
	t.errs = append(t.errs, ee)
	t.mu.Unlock()

	t.logger.Error("operation failed", "index", index, "op", op.Name(), "error", err)
	t.observer.OpFailed(t, ee)
}

func (t *Task) finish() {
	status := t.Status()
	t.logger.Debug("task finished", "status", status.String())
	t.observer.TaskFinished(t, status)
	t.closeDone()
}

func (t *Task) closeDone() {
	t.doneOnce.Do(func() { close(t.done) })
}

// String renders the task for logs.
func (t *Task) String() string {
	names := make([]string, len(t.ops))
	for i, op := range t.ops {
		names[i] = op.Name()
	}
	return fmt.Sprintf("task %s trigger=%s priority=%s expr=%q ops=[%s]",
		t.id, t.TriggerDisplay(), t.PriorityDisplay(), t.ExprDisplay(), strings.Join(names, ", "))
}
