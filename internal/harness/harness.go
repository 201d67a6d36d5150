package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/DoctorReid/ZenlessZoneZero-OneDragon-sub002/internal/compiler"
	"github.com/DoctorReid/ZenlessZoneZero-OneDragon-sub002/internal/engine"
	"github.com/DoctorReid/ZenlessZoneZero-OneDragon-sub002/internal/handler"
	"github.com/DoctorReid/ZenlessZoneZero-OneDragon-sub002/internal/loader"
	"github.com/DoctorReid/ZenlessZoneZero-OneDragon-sub002/internal/metrics"
	"github.com/DoctorReid/ZenlessZoneZero-OneDragon-sub002/internal/operation"
	"github.com/DoctorReid/ZenlessZoneZero-OneDragon-sub002/internal/ops"
	"github.com/DoctorReid/ZenlessZoneZero-OneDragon-sub002/internal/pool"
	"github.com/DoctorReid/ZenlessZoneZero-OneDragon-sub002/internal/scene"
	"github.com/DoctorReid/ZenlessZoneZero-OneDragon-sub002/internal/state"
	"github.com/DoctorReid/ZenlessZoneZero-OneDragon-sub002/internal/testutil"
)

// settleTimeout bounds how long a step may take to reach a quiet point.
const settleTimeout = 5 * time.Second

// poolSize leaves room for stopped tasks that are still unwinding.
const poolSize = 16

// RunOption configures a run.
type RunOption func(*runConfig)

type runConfig struct {
	logger  *slog.Logger
	metrics *metrics.Collector
}

// WithLogger sets the logger handed to the engine and ops. Runs are silent
// by default.
func WithLogger(logger *slog.Logger) RunOption {
	return func(c *runConfig) { c.logger = logger }
}

// WithMetrics records task metrics during the run.
func WithMetrics(m *metrics.Collector) RunOption {
	return func(c *runConfig) { c.metrics = m }
}

// Run executes a scenario and checks its assertions.
//
// The returned error reports a scenario that could not be run: a config that
// does not compile, or a step that never settles. Assertion failures are
// reported in Result.Errors.
func Run(s *Scenario, opts ...RunOption) (*Result, error) {
	cfg := runConfig{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(&cfg)
	}

	r, err := newRunner(s, cfg)
	if err != nil {
		return nil, err
	}
	defer r.close()

	for i, step := range s.Steps {
		if err := r.step(step); err != nil {
			return nil, fmt.Errorf("steps[%d]: %w", i, err)
		}
	}

	result := r.result()
	for _, a := range s.Assertions {
		if err := check(result, a); err != nil {
			result.AddError(err.Error())
		}
	}
	return result, nil
}

type runner struct {
	clock  *virtualClock
	trace  *tracer
	states *state.Registry
	eng    *engine.Engine
	pool   *pool.Pool
	gate   *gate
	logger *slog.Logger

	mu    sync.Mutex
	tasks []*startedTask
}

type startedTask struct {
	task  *operation.Task
	scene string
}

func newRunner(s *Scenario, cfg runConfig) (*runner, error) {
	clock := newVirtualClock()
	r := &runner{
		clock:  clock,
		trace:  &tracer{clock: clock},
		states: state.NewRegistry(),
		pool:   pool.New(poolSize),
		logger: cfg.logger,
	}
	r.gate = &gate{inner: r.pool}

	scenes, err := r.compile(s)
	if err != nil {
		return nil, err
	}

	obs := &traceObserver{trace: r.trace, metrics: cfg.metrics}
	eng, err := engine.New(r.states, scenes,
		engine.WithClock(clock),
		engine.WithExecutor(r.gate),
		engine.WithLogger(cfg.logger),
		engine.WithObserver(obs),
		engine.WithIDGenerator(operation.NewFixedGenerator()),
		engine.WithListener(r.onEvent),
	)
	if err != nil {
		return nil, err
	}
	r.eng = eng
	return r, nil
}

// compile builds the scenes with harness ops. set_state and clear_state
// write back to the engine, which exists only after compiling.
func (r *runner) compile(s *Scenario) ([]*handler.SceneHandler, error) {
	sink := &lateSink{}
	registry := ops.NewRegistry(ops.WithLogger(r.logger))
	ops.RegisterBuiltins(registry, ops.Deps{
		Sink:   sink,
		Now:    r.clock.Now,
		Logger: r.logger,
	})
	builder := &opBuilder{registry: registry, clock: r.clock, trace: r.trace}

	c := &compiler.Compiler{
		States: r.states.Get,
		Ops:    builder.build,
		Logger: r.logger,
	}

	var doc scene.Document
	if s.Config != "" {
		project, err := loader.Load(s.ConfigPath())
		if err != nil {
			return nil, err
		}
		doc = project.Document
		c.StateTemplates = project.Library.StateTemplate
		c.OperationTemplates = project.Library.OperationTemplate
	} else {
		list := make([]any, len(s.Scenes))
		for i, sc := range s.Scenes {
			list[i] = sc
		}
		var err error
		doc, err = scene.DecodeDocument(map[string]any{scene.FieldScenes: list})
		if err != nil {
			return nil, err
		}
		c.StateTemplates = inlineStateTemplates(s.StateTemplates)
		c.OperationTemplates = inlineOperationTemplates(s.OperationTemplates)
	}

	scenes, err := c.CompileDocument(doc)
	if err != nil {
		return nil, err
	}
	sink.target = func() ops.StateSink { return r.eng }
	return scenes, nil
}

func inlineStateTemplates(raw map[string]map[string]any) compiler.StateTemplateGetter {
	return func(name string) (scene.StateTemplate, error) {
		t, ok := raw[name]
		if !ok {
			return scene.StateTemplate{}, fmt.Errorf("state template %q: %w", name, compiler.ErrTemplateNotFound)
		}
		return scene.DecodeStateTemplate(name, t)
	}
}

func inlineOperationTemplates(raw map[string]map[string]any) compiler.OperationTemplateGetter {
	return func(name string) (scene.OperationTemplate, error) {
		t, ok := raw[name]
		if !ok {
			return scene.OperationTemplate{}, fmt.Errorf("operation template %q: %w", name, compiler.ErrTemplateNotFound)
		}
		return scene.DecodeOperationTemplate(name, t)
	}
}

func (r *runner) step(s Step) error {
	switch {
	case s.At != nil:
		r.clock.SetSeconds(*s.At)
	case s.Advance > 0:
		r.clock.AdvanceSeconds(s.Advance)
	}
	// Sleepers woken by the clock run before the step's own updates.
	if err := r.settle(); err != nil {
		return err
	}

	now := r.clock.Now()
	for _, u := range s.Record {
		r.record(u, now)
	}
	for _, name := range s.Clear {
		r.eng.Clear(name)
		r.trace.Addf("clear %s", state.CanonicalName(name))
	}

	if s.Stop {
		r.eng.StopCurrent()
	}
	if s.ticks() {
		r.gate.hold()
		r.eng.Tick()
		if err := r.gate.release(); err != nil {
			return err
		}
	}
	return r.settle()
}

func (r *runner) record(u Update, now time.Time) {
	name := state.CanonicalName(u.State)
	var ok bool
	var line string
	if u.Value != nil {
		ok = r.eng.RecordValue(name, now, *u.Value)
		line = fmt.Sprintf("record %s=%g", name, *u.Value)
	} else {
		ok = r.eng.Record(name, now)
		line = "record " + name
	}
	if !ok {
		line += " (stale)"
	}
	r.trace.Add(line)
}

// settle waits until the current task has finished or is parked on the
// virtual clock.
func (r *runner) settle() error {
	deadline := time.Now().Add(settleTimeout)
	for !r.quiet() {
		if time.Now().After(deadline) {
			return fmt.Errorf("scenario did not settle within %s", settleTimeout)
		}
		time.Sleep(time.Millisecond)
	}
	return nil
}

func (r *runner) quiet() bool {
	cur := r.eng.CurrentTask()
	if cur == nil {
		return true
	}
	select {
	case <-cur.Done():
		return true
	default:
	}
	return r.clock.parked()
}

func (r *runner) onEvent(ev engine.Event) {
	switch ev.Type {
	case engine.EventTaskStarted:
		r.mu.Lock()
		r.tasks = append(r.tasks, &startedTask{task: ev.Task, scene: ev.Scene})
		r.mu.Unlock()
		r.trace.Addf("%s started scene=%s trigger=%s priority=%s ops=[%s]",
			ev.Task.ID(), ev.Scene, ev.Task.TriggerDisplay(), ev.Task.PriorityDisplay(),
			strings.Join(opNames(ev.Task), ", "))
	case engine.EventMatchIgnored:
		r.trace.Addf("scene %s ignored (trigger=%s): %s %s", ev.Scene, ev.Trigger, ev.Task.ID(), ev.Reason)
	default:
		r.trace.Addf("%s %s: %s", ev.Task.ID(), ev.Type, ev.Reason)
	}
}

func (r *runner) result() *Result {
	res := NewResult()
	res.Trace = r.trace.Lines()

	r.mu.Lock()
	started := append([]*startedTask(nil), r.tasks...)
	r.mu.Unlock()
	for _, st := range started {
		res.Tasks = append(res.Tasks, TaskSummary{
			ID:      st.task.ID(),
			Scene:   st.scene,
			Trigger: st.task.TriggerDisplay(),
			Ops:     opNames(st.task),
			Status:  st.task.Status().String(),
			Errors:  len(st.task.Errors()),
		})
	}

	for name, rec := range r.states.Snapshot() {
		res.States[name] = summarizeState(rec)
	}
	return res
}

func (r *runner) close() {
	if r.eng != nil {
		r.eng.StopCurrent()
	}
	ctx, cancel := context.WithTimeout(context.Background(), settleTimeout)
	defer cancel()
	if err := r.pool.Shutdown(ctx); err != nil {
		r.logger.Warn("harness pool shutdown incomplete", "error", err)
	}
}

func opNames(t *operation.Task) []string {
	names := make([]string, 0, len(t.Ops()))
	for _, op := range t.Ops() {
		names = append(names, op.Name())
	}
	return names
}

func seconds(t time.Time) float64 {
	return t.Sub(testutil.Epoch).Seconds()
}

func secondsDuration(secs float64) time.Duration {
	return time.Duration(secs * float64(time.Second))
}

func sortedStates(m map[string]StateSummary) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// gate holds submissions while the engine ticks, so a tick's scheduling
// decisions are all traced before any op of the new task runs.
type gate struct {
	inner pool.Executor

	mu      sync.Mutex
	holding bool
	pending []func() error
}

func (g *gate) Submit(fn func()) error {
	return g.schedule(func() error { return g.inner.Submit(fn) })
}

// Spawn keeps driver loops outside the inner pool's slots.
func (g *gate) Spawn(fn func()) error {
	return g.schedule(func() error { return pool.Spawn(g.inner, fn) })
}

func (g *gate) schedule(run func() error) error {
	g.mu.Lock()
	if g.holding {
		g.pending = append(g.pending, run)
		g.mu.Unlock()
		return nil
	}
	g.mu.Unlock()
	return run()
}

func (g *gate) hold() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.holding = true
}

func (g *gate) release() error {
	g.mu.Lock()
	pending := g.pending
	g.pending = nil
	g.holding = false
	g.mu.Unlock()

	for _, run := range pending {
		if err := run(); err != nil {
			return err
		}
	}
	return nil
}

// lateSink forwards state writes to a target resolved on first use.
type lateSink struct {
	target func() ops.StateSink
}

func (s *lateSink) Record(name string, t time.Time) bool {
	return s.target().Record(name, t)
}

func (s *lateSink) RecordValue(name string, t time.Time, v float64) bool {
	return s.target().RecordValue(name, t, v)
}

func (s *lateSink) Clear(name string) {
	s.target().Clear(name)
}

// traceObserver traces failures and natural completions, and feeds metrics.
// Stops are already traced from engine events.
type traceObserver struct {
	trace   *tracer
	metrics *metrics.Collector
}

func (o *traceObserver) TaskStarted(t *operation.Task) {
	if o.metrics != nil {
		o.metrics.TaskStarted(t)
	}
}

func (o *traceObserver) TaskFinished(t *operation.Task, status operation.Status) {
	if status == operation.StatusCompleted {
		o.trace.Addf("%s completed", t.ID())
	}
	if o.metrics != nil {
		o.metrics.TaskFinished(t, status)
	}
}

func (o *traceObserver) OpFailed(t *operation.Task, err *operation.ExecutionError) {
	o.trace.Addf("%s op[%d] %s failed: %v", t.ID(), err.Index, err.Op, err.Err)
	if o.metrics != nil {
		o.metrics.OpFailed(t, err)
	}
}

func (o *traceObserver) Preempted() {
	if o.metrics != nil {
		o.metrics.Preempted()
	}
}
