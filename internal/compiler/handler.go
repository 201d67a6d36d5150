package compiler

import (
	"fmt"
	"log/slog"

	"github.com/DoctorReid/ZenlessZoneZero-OneDragon-sub002/internal/condition"
	"github.com/DoctorReid/ZenlessZoneZero-OneDragon-sub002/internal/handler"
	"github.com/DoctorReid/ZenlessZoneZero-OneDragon-sub002/internal/operation"
	"github.com/DoctorReid/ZenlessZoneZero-OneDragon-sub002/internal/scene"
)

// StateGetter resolves a state name to its recorder, creating it on demand.
// state.Registry.Get satisfies it.
type StateGetter = condition.StateGetter

// OpGetter turns an operation reference into an executable op.
// ops.Registry.Build satisfies it.
type OpGetter func(ref *scene.OpRef) (operation.AtomicOp, error)

// Compiler builds runtime handler trees from declarative nodes.
//
// States and Ops are required. The template getters may be nil when the
// configuration uses no templates.
type Compiler struct {
	States             StateGetter
	Ops                OpGetter
	StateTemplates     StateTemplateGetter
	OperationTemplates OperationTemplateGetter
	Logger             *slog.Logger
}

func (c *Compiler) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}

func (c *Compiler) resolver() *Resolver {
	return &Resolver{StateTemplates: c.StateTemplates, OperationTemplates: c.OperationTemplates}
}

func (c *Compiler) check() error {
	if c.States == nil {
		return fmt.Errorf("compiler: state getter is required")
	}
	if c.Ops == nil {
		return fmt.Errorf("compiler: op getter is required")
	}
	return nil
}

// CompileHandlers expands and builds a handler list.
func (c *Compiler) CompileHandlers(nodes []scene.HandlerNode) ([]*handler.StateHandler, error) {
	if err := c.check(); err != nil {
		return nil, err
	}
	resolved, err := c.resolver().ResolveHandlers(nodes)
	if err != nil {
		return nil, err
	}
	return c.build(resolved)
}

// CompileScene builds one scene.
func (c *Compiler) CompileScene(sc scene.Scene) (*handler.SceneHandler, error) {
	handlers, err := c.CompileHandlers(sc.Handlers)
	if err != nil {
		return nil, err
	}
	if len(handlers) == 0 {
		return nil, configError(scene.ErrCodeInvalidSceneField, join(sc.Path, scene.FieldHandlers), "",
			"scene has no handlers after template expansion")
	}

	interval := sc.Interval
	if interval < 0 {
		interval = 0
	}
	out := &handler.SceneHandler{
		Name:     sc.Name,
		Triggers: append([]string(nil), sc.Triggers...),
		Interval: interval,
		Priority: operation.PriorityFromPtr(sc.Priority),
		Handlers: handlers,
	}
	c.logger().Debug("scene compiled",
		"scene", out.Name,
		"triggers", out.TriggerDisplay(),
		"handlers", len(handlers))
	return out, nil
}

// CompileDocument builds every scene of a document. It fails on the first
// scene with an error.
func (c *Compiler) CompileDocument(doc scene.Document) ([]*handler.SceneHandler, error) {
	out := make([]*handler.SceneHandler, 0, len(doc.Scenes))
	mainPath := ""
	for _, sc := range doc.Scenes {
		if sc.IsMainLoop() {
			if mainPath != "" {
				return nil, configError(scene.ErrCodeDuplicateMainScene, sc.Path, "",
					"scene without triggers already declared at %s", mainPath)
			}
			mainPath = sc.Path
			if mainPath == "" {
				mainPath = sc.Name
			}
		}
		compiled, err := c.CompileScene(sc)
		if err != nil {
			return nil, err
		}
		out = append(out, compiled)
	}
	return out, nil
}

func (c *Compiler) build(resolved []*Resolved) ([]*handler.StateHandler, error) {
	out := make([]*handler.StateHandler, 0, len(resolved))
	for _, r := range resolved {
		h, err := c.buildOne(r)
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, nil
}

func (c *Compiler) buildOne(r *Resolved) (*handler.StateHandler, error) {
	cond, err := condition.Parse(r.States, c.States)
	if err != nil {
		return nil, configError(scene.ErrCodeInvalidCondition, join(r.Path, scene.FieldStates), r.Template, "%v", err)
	}

	h := &handler.StateHandler{
		Condition:       cond,
		Expr:            cond.String(),
		DebugName:       r.DebugName,
		InterruptStates: append([]string(nil), r.InterruptStates...),
	}

	if len(r.SubStates) > 0 {
		h.SubStates, err = c.build(r.SubStates)
		if err != nil {
			return nil, err
		}
		return h, nil
	}

	h.Operations = make([]operation.AtomicOp, 0, len(r.Operations))
	for _, ref := range r.Operations {
		op, err := c.Ops(ref)
		if err != nil {
			return nil, annotate(err, scene.ErrCodeUnknownOperation, ref.Path, r.Template)
		}
		if op == nil {
			return nil, configError(scene.ErrCodeUnknownOperation, ref.Path, r.Template, "operation %q resolved to nothing", ref.Name)
		}
		h.Operations = append(h.Operations, op)
	}
	return h, nil
}
