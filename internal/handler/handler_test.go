package handler_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoctorReid/ZenlessZoneZero-OneDragon-sub002/internal/condition"
	"github.com/DoctorReid/ZenlessZoneZero-OneDragon-sub002/internal/handler"
	"github.com/DoctorReid/ZenlessZoneZero-OneDragon-sub002/internal/operation"
	"github.com/DoctorReid/ZenlessZoneZero-OneDragon-sub002/internal/state"
	"github.com/DoctorReid/ZenlessZoneZero-OneDragon-sub002/internal/testutil"
)

type fixture struct {
	states *state.Registry
}

func newFixture() *fixture {
	return &fixture{states: state.NewRegistry()}
}

func (f *fixture) leaf(expr string, opNames ...string) *handler.StateHandler {
	cond := condition.MustParse(expr, f.states.Get)
	ops := make([]operation.AtomicOp, len(opNames))
	for i, n := range opNames {
		ops[i] = testutil.NewRecordingOp(n, nil)
	}
	return &handler.StateHandler{Condition: cond, Expr: cond.String(), Operations: ops}
}

func (f *fixture) parent(expr string, subs ...*handler.StateHandler) *handler.StateHandler {
	cond := condition.MustParse(expr, f.states.Get)
	return &handler.StateHandler{Condition: cond, Expr: cond.String(), SubStates: subs}
}

func (f *fixture) record(name string, seconds float64) {
	f.states.Get(name).Record(testutil.At(seconds))
}

// TestSceneHandler_FirstMatchWins tests that the earliest true handler in
// declared order wins even when later handlers are also true.
func TestSceneHandler_FirstMatchWins(t *testing.T) {
	f := newFixture()
	scene := &handler.SceneHandler{
		Name: "main",
		Handlers: []*handler.StateHandler{
			f.leaf("[A]", "a"),
			f.leaf("[B]", "b"),
			f.leaf("[C]", "c"),
		},
	}
	f.record("B", 10)
	f.record("C", 10)

	m, ok := scene.Match(testutil.At(10.2))
	require.True(t, ok)
	assert.Equal(t, []string{"b"}, m.OpNames())
	assert.Same(t, scene, m.Scene)

	f.record("A", 10.1)
	m, ok = scene.Match(testutil.At(10.2))
	require.True(t, ok)
	assert.Equal(t, []string{"a"}, m.OpNames())
}

// TestSceneHandler_NoMatch tests evaluation when nothing holds.
func TestSceneHandler_NoMatch(t *testing.T) {
	f := newFixture()
	scene := &handler.SceneHandler{Handlers: []*handler.StateHandler{f.leaf("[A]", "a")}}

	_, ok := scene.Match(testutil.At(1))
	assert.False(t, ok)

	f.record("A", 1)
	_, ok = scene.Match(testutil.At(5))
	assert.False(t, ok, "stale state")
}

// TestSceneHandler_NestedMatch tests traces and interrupt states along the path.
func TestSceneHandler_NestedMatch(t *testing.T) {
	f := newFixture()
	root := f.parent("[A]",
		f.leaf("[X]", "x"),
		f.leaf("[B]", "b1", "b2"),
	)
	root.DebugName = "root"
	root.InterruptStates = []string{"I1"}
	root.SubStates[1].DebugName = "child"
	root.SubStates[1].InterruptStates = []string{"I2", "I1"}

	scene := &handler.SceneHandler{Handlers: []*handler.StateHandler{root}}
	f.record("A", 10)
	f.record("B", 10)

	m, ok := scene.Match(testutil.At(10.5))
	require.True(t, ok)
	assert.Equal(t, []string{"b1", "b2"}, m.OpNames())
	assert.Equal(t, []operation.TraceEntry{
		{Expr: "[A]", DebugName: "root"},
		{Expr: "[B]", DebugName: "child"},
	}, m.Trace)
	assert.Equal(t, []string{"I1", "I2"}, m.InterruptStates)
}

// TestSceneHandler_ParentWithoutChildMatch tests that evaluation continues
// with the next sibling when a true parent yields nothing.
func TestSceneHandler_ParentWithoutChildMatch(t *testing.T) {
	f := newFixture()
	scene := &handler.SceneHandler{Handlers: []*handler.StateHandler{
		f.parent("[A]", f.leaf("[X]", "x")),
		f.leaf("[B]", "b"),
	}}
	f.record("A", 1)
	f.record("B", 1)

	m, ok := scene.Match(testutil.At(1))
	require.True(t, ok)
	assert.Equal(t, []string{"b"}, m.OpNames())
	assert.Equal(t, []operation.TraceEntry{{Expr: "[B]"}}, m.Trace)
}

// TestSceneHandler_SiblingTracesAreIndependent tests that a failed branch
// leaves no trace entries behind.
func TestSceneHandler_SiblingTracesAreIndependent(t *testing.T) {
	f := newFixture()
	scene := &handler.SceneHandler{Handlers: []*handler.StateHandler{
		f.parent("[A]",
			f.parent("[B]", f.leaf("[X]", "x")),
			f.leaf("[C]", "c"),
		),
	}}
	for _, n := range []string{"A", "B", "C"} {
		f.record(n, 1)
	}

	m, ok := scene.Match(testutil.At(1))
	require.True(t, ok)
	assert.Equal(t, []operation.TraceEntry{{Expr: "[A]"}, {Expr: "[C]"}}, m.Trace)
}

// TestSceneHandler_RateLimit tests the evaluation interval.
func TestSceneHandler_RateLimit(t *testing.T) {
	f := newFixture()
	scene := &handler.SceneHandler{
		Interval: 500 * time.Millisecond,
		Handlers: []*handler.StateHandler{f.leaf("[A, 0, 100]", "a")},
	}
	f.record("A", 0)

	assert.True(t, scene.Ready(testutil.At(0)))
	_, ok := scene.Evaluate(testutil.At(0))
	assert.True(t, ok)

	assert.False(t, scene.Ready(testutil.At(0.4)))
	_, ok = scene.Evaluate(testutil.At(0.4))
	assert.False(t, ok, "rate limited")

	_, ok = scene.Evaluate(testutil.At(0.5))
	assert.True(t, ok)

	scene.ResetRateLimit()
	assert.True(t, scene.Ready(testutil.At(0.5)))

	scene.MarkEvaluated(testutil.At(1))
	assert.False(t, scene.Ready(testutil.At(1.1)))
}

// TestSceneHandler_Triggers tests trigger helpers.
func TestSceneHandler_Triggers(t *testing.T) {
	main := &handler.SceneHandler{Name: "main"}
	assert.True(t, main.IsMainLoop())
	assert.Equal(t, "main", main.TriggerDisplay())

	triggered := &handler.SceneHandler{Triggers: []string{"boss", "dodge"}}
	assert.False(t, triggered.IsMainLoop())
	assert.True(t, triggered.HasTrigger("dodge"))
	assert.False(t, triggered.HasTrigger("A"))
	assert.Equal(t, "boss, dodge", triggered.TriggerDisplay())
}

// TestMatch_NewTask tests that a task inherits the match metadata.
func TestMatch_NewTask(t *testing.T) {
	f := newFixture()
	h := f.leaf("[A]", "a")
	h.InterruptStates = []string{"stop"}
	scene := &handler.SceneHandler{
		Triggers: []string{"A"},
		Priority: operation.PriorityOf(3),
		Handlers: []*handler.StateHandler{h},
	}
	f.record("A", 1)

	m, ok := scene.Match(testutil.At(1))
	require.True(t, ok)

	task := m.NewTask("A", operation.WithID("t1"))
	assert.Equal(t, "t1", task.ID())
	assert.Equal(t, "A", task.TriggerDisplay())
	assert.Equal(t, "3", task.PriorityDisplay())
	assert.Equal(t, "[A]", task.ExprDisplay())
	assert.True(t, task.InterruptedBy("stop"))
	assert.Len(t, task.Ops(), 1)
}

// TestRender tests the scene outline.
func TestRender(t *testing.T) {
	f := newFixture()
	root := f.parent("[A, 0, 2]", f.leaf("[B]{1}", "press", "wait"))
	root.DebugName = "attack"
	root.InterruptStates = []string{"X"}
	scene := &handler.SceneHandler{
		Name:     "main",
		Interval: 500 * time.Millisecond,
		Handlers: []*handler.StateHandler{root, f.leaf("!([C] | [D])", "idle")},
	}

	var buf bytes.Buffer
	require.NoError(t, handler.Render(&buf, scene))
	want := `scene main (triggers: main, interval: 500ms, priority: None)
  [A, 0, 2] "attack" interrupt=[X]
    [B]{1}
      -> press, wait
  !([C] | [D])
    -> idle
`
	assert.Equal(t, want, buf.String())
}
