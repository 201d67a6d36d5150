package compiler

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoctorReid/ZenlessZoneZero-OneDragon-sub002/internal/scene"
)

type library struct {
	states map[string]scene.StateTemplate
	ops    map[string]scene.OperationTemplate
	calls  int
}

func newLibrary(states []scene.StateTemplate, ops []scene.OperationTemplate) *library {
	lib := &library{
		states: make(map[string]scene.StateTemplate),
		ops:    make(map[string]scene.OperationTemplate),
	}
	for _, s := range states {
		lib.states[s.Name] = s
	}
	for _, o := range ops {
		lib.ops[o.Name] = o
	}
	return lib
}

func (l *library) state(name string) (scene.StateTemplate, error) {
	l.calls++
	t, ok := l.states[name]
	if !ok {
		return scene.StateTemplate{}, fmt.Errorf("state template %q: %w", name, ErrTemplateNotFound)
	}
	return t, nil
}

func (l *library) operation(name string) (scene.OperationTemplate, error) {
	l.calls++
	t, ok := l.ops[name]
	if !ok {
		return scene.OperationTemplate{}, fmt.Errorf("operation template %q: %w", name, ErrTemplateNotFound)
	}
	return t, nil
}

func (l *library) resolver() *Resolver {
	return &Resolver{StateTemplates: l.state, OperationTemplates: l.operation}
}

func opNames(refs []*scene.OpRef) []string {
	names := make([]string, len(refs))
	for i, r := range refs {
		names[i] = r.Name
	}
	return names
}

// TestResolver_NoTemplates tests that plain handlers pass through.
func TestResolver_NoTemplates(t *testing.T) {
	r := &Resolver{}
	out, err := r.ResolveHandlers([]scene.HandlerNode{
		opsNode("[A]", op("a1"), op("a2")),
		subNode("[B]", opsNode("[C]", op("c"))),
	})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, []string{"a1", "a2"}, opNames(out[0].Operations))
	assert.Equal(t, "[B]", out[1].States)
	require.Len(t, out[1].SubStates, 1)
	assert.Equal(t, []string{"c"}, opNames(out[1].SubStates[0].Operations))
}

// TestResolver_SplicesStateTemplate tests in-place expansion of handler lists.
func TestResolver_SplicesStateTemplate(t *testing.T) {
	lib := newLibrary([]scene.StateTemplate{
		stateTpl("dodge", opsNode("[D1]", op("d1")), opsNode("[D2]", op("d2"))),
	}, nil)

	out, err := lib.resolver().ResolveHandlers([]scene.HandlerNode{
		opsNode("[A]", op("a")),
		tplRef("dodge"),
		opsNode("[B]", op("b")),
	})
	require.NoError(t, err)

	var states []string
	for _, h := range out {
		states = append(states, h.States)
	}
	assert.Equal(t, []string{"[A]", "[D1]", "[D2]", "[B]"}, states)
	assert.Equal(t, "dodge", out[1].Template)
	assert.Equal(t, "", out[0].Template)
}

// TestResolver_SplicesOperationTemplate tests nested operation templates.
func TestResolver_SplicesOperationTemplate(t *testing.T) {
	lib := newLibrary(nil, []scene.OperationTemplate{
		opTpl("combo", op("light"), opRef("finisher"), op("light")),
		opTpl("finisher", op("heavy"), op("wait")),
	})

	out, err := lib.resolver().ResolveOperations([]scene.OperationDef{op("start"), opRef("combo"), op("end")})
	require.NoError(t, err)
	assert.Equal(t, []string{"start", "light", "heavy", "wait", "light", "end"}, opNames(out))
}

// TestResolver_SameTemplateTwiceIsNotACycle tests that sibling references to
// one template are allowed.
func TestResolver_SameTemplateTwiceIsNotACycle(t *testing.T) {
	lib := newLibrary(nil, []scene.OperationTemplate{opTpl("tap", op("press"))})

	out, err := lib.resolver().ResolveOperations([]scene.OperationDef{opRef("tap"), opRef("tap")})
	require.NoError(t, err)
	assert.Equal(t, []string{"press", "press"}, opNames(out))
}

// TestResolver_Deterministic tests that expansion is repeatable.
func TestResolver_Deterministic(t *testing.T) {
	lib := newLibrary([]scene.StateTemplate{
		stateTpl("T", opsNode("[A]", opRef("O")), subNode("[B]", tplRef("U"))),
		stateTpl("U", opsNode("[C]", op("c"))),
	}, []scene.OperationTemplate{opTpl("O", op("o1"), op("o2"))})

	first, err := lib.resolver().ResolveHandlers([]scene.HandlerNode{tplRef("T")})
	require.NoError(t, err)
	second, err := lib.resolver().ResolveHandlers([]scene.HandlerNode{tplRef("T")})
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

// TestResolver_Cycle tests that A → B → A fails with a cycle error and the
// expansion stops.
func TestResolver_Cycle(t *testing.T) {
	lib := newLibrary([]scene.StateTemplate{
		stateTpl("A", tplRef("B")),
		stateTpl("B", subNode("[X]", tplRef("A"))),
	}, nil)

	_, err := lib.resolver().ResolveHandlers([]scene.HandlerNode{tplRef("A")})
	require.Error(t, err)
	assert.True(t, scene.IsCycleError(err))
	assert.Contains(t, err.Error(), "A → B → A")
	assert.Equal(t, 2, lib.calls, "recursion stops at the repeated template")

	var ce *scene.ConfigError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "B", ce.Template)
}

// TestResolver_SelfCycle tests a template that references itself.
func TestResolver_SelfCycle(t *testing.T) {
	lib := newLibrary(nil, []scene.OperationTemplate{opTpl("loop", op("a"), opRef("loop"))})

	_, err := lib.resolver().ResolveOperations([]scene.OperationDef{opRef("loop")})
	require.Error(t, err)
	assert.True(t, scene.IsCycleError(err))
	assert.Contains(t, err.Error(), "loop → loop")
}

// TestResolver_Errors tests the rejected shapes.
func TestResolver_Errors(t *testing.T) {
	lib := newLibrary([]scene.StateTemplate{
		stateTpl("empty"),
	}, []scene.OperationTemplate{
		opTpl("nothing"),
	})

	tests := []struct {
		name  string
		nodes []scene.HandlerNode
		code  scene.ErrorCode
	}{
		{"missing states", []scene.HandlerNode{opsNode(" ", op("a"))}, scene.ErrCodeMissingStates},
		{"empty template name", []scene.HandlerNode{tplRef("")}, scene.ErrCodeEmptyTemplateName},
		{"unknown state template", []scene.HandlerNode{tplRef("nope")}, scene.ErrCodeTemplateNotFound},
		{"unknown operation template", []scene.HandlerNode{opsNode("[A]", opRef("nope"))}, scene.ErrCodeTemplateNotFound},
		{"empty operation template name", []scene.HandlerNode{opsNode("[A]", opRef(""))}, scene.ErrCodeEmptyTemplateName},
		{"operations empty after expansion", []scene.HandlerNode{opsNode("[A]", opRef("nothing"))}, scene.ErrCodeNoOperations},
		{"sub_states empty after expansion", []scene.HandlerNode{subNode("[A]", tplRef("empty"))}, scene.ErrCodeEmptySubStates},
		{"nil node", []scene.HandlerNode{nil}, scene.ErrCodeNoOperations},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := lib.resolver().ResolveHandlers(tt.nodes)
			require.Error(t, err)
			assert.Equal(t, tt.code, scene.CodeOf(err), err.Error())
		})
	}
}

// TestResolver_MissingGetter tests template references without a source.
func TestResolver_MissingGetter(t *testing.T) {
	r := &Resolver{}
	_, err := r.ResolveHandlers([]scene.HandlerNode{tplRef("A")})
	assert.Equal(t, scene.ErrCodeTemplateNotFound, scene.CodeOf(err))

	_, err = r.ResolveOperations([]scene.OperationDef{opRef("A")})
	assert.Equal(t, scene.ErrCodeTemplateNotFound, scene.CodeOf(err))
}

// TestResolver_ErrorInsideTemplate tests that errors carry the template name.
func TestResolver_ErrorInsideTemplate(t *testing.T) {
	lib := newLibrary([]scene.StateTemplate{
		stateTpl("outer", tplRef("inner")),
		stateTpl("inner", &scene.OperationsNode{
			HandlerMeta: scene.HandlerMeta{Path: "handlers[0]"},
			Operations:  []scene.OperationDef{op("a")},
		}),
	}, nil)

	_, err := lib.resolver().ResolveHandlers([]scene.HandlerNode{tplRef("outer")})
	var ce *scene.ConfigError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, scene.ErrCodeMissingStates, ce.Code)
	assert.Equal(t, "inner", ce.Template)
	assert.Equal(t, "handlers[0].states", ce.Path)
}
