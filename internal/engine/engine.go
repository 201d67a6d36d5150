package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/DoctorReid/ZenlessZoneZero-OneDragon-sub002/internal/handler"
	"github.com/DoctorReid/ZenlessZoneZero-OneDragon-sub002/internal/operation"
	"github.com/DoctorReid/ZenlessZoneZero-OneDragon-sub002/internal/pool"
	"github.com/DoctorReid/ZenlessZoneZero-OneDragon-sub002/internal/state"
)

// DefaultTickInterval is how often Run ticks without state updates.
const DefaultTickInterval = 50 * time.Millisecond

// EventType distinguishes engine events.
type EventType int

const (
	// EventTaskStarted reports a task that was started.
	EventTaskStarted EventType = iota + 1
	// EventTaskPreempted reports a running task stopped for a new match.
	EventTaskPreempted
	// EventTaskInterrupted reports a running task stopped by an interrupt state.
	EventTaskInterrupted
	// EventMatchIgnored reports a match dropped because the running task
	// was not preemptable.
	EventMatchIgnored
	// EventStartFailed reports a match whose task could not be started.
	EventStartFailed
)

func (t EventType) String() string {
	switch t {
	case EventTaskStarted:
		return "started"
	case EventTaskPreempted:
		return "preempted"
	case EventTaskInterrupted:
		return "interrupted"
	case EventMatchIgnored:
		return "ignored"
	case EventStartFailed:
		return "start_failed"
	default:
		return "unknown"
	}
}

// Event describes a scheduling decision. Events are delivered synchronously
// from the goroutine calling Tick.
type Event struct {
	Seq     int64
	Type    EventType
	Scene   string
	Trigger string // state that fired the scene; empty for the main loop
	Task    *operation.Task
	Reason  string
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock sets the evaluation clock. Defaults to SystemClock.
func WithClock(c Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithExecutor sets the executor tasks run on. Defaults to pool.Inline.
func WithExecutor(exec pool.Executor) Option {
	return func(e *Engine) { e.exec = exec }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithObserver sets the task observer. If the observer also has a
// Preempted() method it is called for every preemption.
func WithObserver(obs operation.Observer) Option {
	return func(e *Engine) { e.observer = obs }
}

// WithIDGenerator sets the task ID generator. Defaults to UUIDv7.
func WithIDGenerator(gen operation.IDGenerator) Option {
	return func(e *Engine) { e.ids = gen }
}

// WithTickInterval sets how often Run ticks without updates.
func WithTickInterval(d time.Duration) Option {
	return func(e *Engine) { e.tickInterval = d }
}

// WithListener registers a callback for engine events.
func WithListener(fn func(Event)) Option {
	return func(e *Engine) { e.listeners = append(e.listeners, fn) }
}

type preemptionCounter interface {
	Preempted()
}

// Engine runs scenes against a state registry.
//
// Thread-safety model:
//   - Record(), RecordValue(), Clear(): safe from any goroutine
//   - Tick(): safe from any goroutine; calls are serialized
//   - Run(): must be called from exactly one goroutine
type Engine struct {
	states    *state.Registry
	main      *handler.SceneHandler
	scenes    []*handler.SceneHandler
	byTrigger map[string][]*handler.SceneHandler

	clock        Clock
	exec         pool.Executor
	logger       *slog.Logger
	observer     operation.Observer
	ids          operation.IDGenerator
	tickInterval time.Duration
	listeners    []func(Event)

	queue *updateQueue
	seq   sequence

	tickMu sync.Mutex

	mu      sync.Mutex
	current *operation.Task
}

// New creates an engine. scenes must have been compiled against states.
// At most one scene may be a main loop.
func New(states *state.Registry, scenes []*handler.SceneHandler, opts ...Option) (*Engine, error) {
	if states == nil {
		return nil, &RuntimeError{Code: ErrCodeNoStates, Message: "state registry is required"}
	}

	e := &Engine{
		states:       states,
		byTrigger:    make(map[string][]*handler.SceneHandler),
		clock:        SystemClock{},
		exec:         pool.Inline{},
		logger:       slog.Default(),
		ids:          operation.UUIDv7Generator{},
		tickInterval: DefaultTickInterval,
		queue:        newUpdateQueue(),
	}
	for _, opt := range opts {
		opt(e)
	}

	for _, sc := range scenes {
		if sc == nil {
			continue
		}
		e.scenes = append(e.scenes, sc)
		if sc.IsMainLoop() {
			if e.main != nil {
				return nil, &RuntimeError{
					Code:    ErrCodeDuplicateMainLoop,
					Message: "more than one scene without triggers, first is " + e.main.Name,
					Scene:   sc.Name,
				}
			}
			e.main = sc
			continue
		}
		for _, trigger := range sc.Triggers {
			e.byTrigger[trigger] = append(e.byTrigger[trigger], sc)
		}
	}
	return e, nil
}

// States returns the state registry.
func (e *Engine) States() *state.Registry {
	return e.states
}

// Scenes returns the scenes in declaration order.
func (e *Engine) Scenes() []*handler.SceneHandler {
	return append([]*handler.SceneHandler(nil), e.scenes...)
}

// Record marks a state as observed at t.
// Returns false if t is older than the state's latest record.
func (e *Engine) Record(name string, t time.Time) bool {
	name = state.CanonicalName(name)
	if !e.states.Get(name).Record(t) {
		e.logger.Debug("stale state update ignored", "state", name, "time", t)
		return false
	}
	e.queue.Enqueue(name)
	return true
}

// RecordValue marks a state as observed at t with value v.
func (e *Engine) RecordValue(name string, t time.Time, v float64) bool {
	name = state.CanonicalName(name)
	if !e.states.Get(name).RecordValue(t, v) {
		e.logger.Debug("stale state update ignored", "state", name, "time", t, "value", v)
		return false
	}
	e.queue.Enqueue(name)
	return true
}

// Clear forgets a state.
func (e *Engine) Clear(name string) {
	name = state.CanonicalName(name)
	e.states.Get(name).Clear()
	e.queue.Enqueue(name)
}

// CurrentTask returns the most recently started task, or nil.
func (e *Engine) CurrentTask() *operation.Task {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current
}

// activeTask returns the current task if it has not finished.
func (e *Engine) activeTask() *operation.Task {
	t := e.CurrentTask()
	if t == nil || t.Status().Terminal() {
		return nil
	}
	return t
}

// Idle reports whether no task is running.
func (e *Engine) Idle() bool {
	return e.activeTask() == nil
}

// Tick processes pending state updates and evaluates scenes once.
func (e *Engine) Tick() {
	e.tickMu.Lock()
	defer e.tickMu.Unlock()

	now := e.clock.Now()
	updated := e.queue.Drain()

	if cur := e.activeTask(); cur != nil {
		for _, name := range updated {
			if cur.InterruptedBy(name) {
				e.stopTask(cur, EventTaskInterrupted, "", "interrupt state "+name+" updated")
				break
			}
		}
	}

	startedByTrigger := false
	evaluated := make(map[*handler.SceneHandler]bool)
	for _, name := range updated {
		for _, sc := range e.byTrigger[name] {
			if evaluated[sc] {
				continue
			}
			evaluated[sc] = true

			m, ok := sc.Evaluate(now)
			if !ok {
				continue
			}
			if e.startTriggered(m, name) {
				startedByTrigger = true
			}
		}
	}

	if e.main != nil && !startedByTrigger && e.activeTask() == nil {
		if m, ok := e.main.Evaluate(now); ok {
			e.start(m, "")
		}
	}
}

func (e *Engine) startTriggered(m *handler.Match, trigger string) bool {
	if cur := e.activeTask(); cur != nil {
		if !cur.Priority().PreemptableBy(m.Scene.Priority) {
			e.logger.Debug("match ignored: running task not preemptable",
				"scene", m.Scene.Name,
				"trigger", trigger,
				"running_task", cur.ID(),
				"running_priority", cur.PriorityDisplay(),
				"priority", m.Scene.Priority.String())
			e.emit(Event{Type: EventMatchIgnored, Scene: m.Scene.Name, Trigger: trigger, Task: cur,
				Reason: "running task priority " + cur.PriorityDisplay()})
			return false
		}
		e.stopTask(cur, EventTaskPreempted, trigger, "preempted by scene "+m.Scene.Name)
		if pc, ok := e.observer.(preemptionCounter); ok {
			pc.Preempted()
		}
	}
	return e.start(m, trigger)
}

func (e *Engine) stopTask(t *operation.Task, typ EventType, trigger, reason string) {
	t.Stop()
	e.logger.Info("task stopped", "task_id", t.ID(), "reason", reason)
	e.emit(Event{Type: typ, Trigger: trigger, Task: t, Reason: reason})
}

func (e *Engine) start(m *handler.Match, trigger string) bool {
	opts := []operation.Option{
		operation.WithID(e.ids.Generate()),
		operation.WithExecutor(e.exec),
		operation.WithLogger(e.logger),
	}
	if e.observer != nil {
		opts = append(opts, operation.WithObserver(e.observer))
	}
	task := m.NewTask(trigger, opts...)

	e.mu.Lock()
	e.current = task
	e.mu.Unlock()

	e.emit(Event{Type: EventTaskStarted, Scene: m.Scene.Name, Trigger: trigger, Task: task})
	if err := task.RunAsync(); err != nil {
		rerr := NewStartError(m.Scene.Name, task.ID(), err)
		e.logger.Error("task start failed", "error", rerr)
		e.emit(Event{Type: EventStartFailed, Scene: m.Scene.Name, Trigger: trigger, Task: task, Reason: err.Error()})
		return false
	}
	return true
}

func (e *Engine) emit(ev Event) {
	ev.Seq = e.seq.Next()
	for _, fn := range e.listeners {
		fn(ev)
	}
}

// Run ticks on state updates and on the tick interval until ctx is done or
// Stop is called. The current task is stopped on return.
func (e *Engine) Run(ctx context.Context) error {
	e.logger.Info("engine starting",
		"scenes", len(e.scenes),
		"main_loop", e.main != nil,
		"tick_interval", e.tickInterval)

	ticker := time.NewTicker(e.tickInterval)
	defer ticker.Stop()
	defer e.StopCurrent()

	e.Tick()
	for {
		select {
		case <-ctx.Done():
			e.logger.Info("engine stopping: context cancelled")
			e.queue.Close()
			return ctx.Err()

		case _, open := <-e.queue.Wait():
			if !open {
				e.logger.Info("engine stopping: stopped")
				return nil
			}
			e.Tick()

		case <-ticker.C:
			e.Tick()
		}
	}
}

// Stop makes Run return. State updates after Stop are still recorded but no
// longer evaluated.
func (e *Engine) Stop() {
	e.queue.Close()
}

// StopCurrent stops the current task, if any.
func (e *Engine) StopCurrent() {
	e.tickMu.Lock()
	defer e.tickMu.Unlock()

	if cur := e.activeTask(); cur != nil {
		e.stopTask(cur, EventTaskInterrupted, "", "engine stopped")
	}
}
