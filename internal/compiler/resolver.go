package compiler

import (
	"strings"

	"github.com/DoctorReid/ZenlessZoneZero-OneDragon-sub002/internal/scene"
)

// StateTemplateGetter returns the named state template. Unknown names should
// yield an error wrapping ErrTemplateNotFound.
type StateTemplateGetter func(name string) (scene.StateTemplate, error)

// OperationTemplateGetter returns the named operation template.
type OperationTemplateGetter func(name string) (scene.OperationTemplate, error)

// Resolved is a handler with every template reference expanded.
// Exactly one of Operations and SubStates is non-empty.
type Resolved struct {
	scene.HandlerMeta
	Template   string // innermost template the handler came from, if any
	Operations []*scene.OpRef
	SubStates  []*Resolved
}

type templateKind int

const (
	stateTemplateKind templateKind = iota
	operationTemplateKind
)

func (k templateKind) String() string {
	if k == stateTemplateKind {
		return scene.FieldStateTemplate
	}
	return scene.FieldOperationTemplate
}

// expansion is the chain of templates currently being expanded. It is an
// immutable linked list: push returns a new head, so every recursion branch
// sees exactly its own ancestors.
type expansion struct {
	kind   templateKind
	name   string
	parent *expansion
}

func (e *expansion) push(kind templateKind, name string) *expansion {
	return &expansion{kind: kind, name: name, parent: e}
}

func (e *expansion) contains(kind templateKind, name string) bool {
	for f := e; f != nil; f = f.parent {
		if f.kind == kind && f.name == name {
			return true
		}
	}
	return false
}

// current returns the innermost template name, or "".
func (e *expansion) current() string {
	if e == nil {
		return ""
	}
	return e.name
}

// cyclePath renders the chain from the outermost template of the given kind
// back to name, e.g. "A → B → A".
func (e *expansion) cyclePath(kind templateKind, name string) string {
	var names []string
	for f := e; f != nil; f = f.parent {
		if f.kind == kind {
			names = append(names, f.name)
		}
	}
	// names is innermost-first; reverse and trim to start at the repeated name.
	for i, j := 0, len(names)-1; i < j; i, j = i+1, j-1 {
		names[i], names[j] = names[j], names[i]
	}
	for i, n := range names {
		if n == name {
			names = names[i:]
			break
		}
	}
	return strings.Join(append(names, name), " → ")
}

// Resolver expands template references.
type Resolver struct {
	StateTemplates     StateTemplateGetter
	OperationTemplates OperationTemplateGetter
}

// ResolveHandlers expands a handler list.
func (r *Resolver) ResolveHandlers(nodes []scene.HandlerNode) ([]*Resolved, error) {
	return r.handlers(nodes, nil)
}

// ResolveOperations expands an operation list.
func (r *Resolver) ResolveOperations(defs []scene.OperationDef) ([]*scene.OpRef, error) {
	return r.operations(defs, nil)
}

func (r *Resolver) handlers(nodes []scene.HandlerNode, stack *expansion) ([]*Resolved, error) {
	var out []*Resolved
	for _, node := range nodes {
		switch n := node.(type) {
		case *scene.TemplateRefNode:
			spliced, err := r.stateTemplate(n, stack)
			if err != nil {
				return nil, err
			}
			out = append(out, spliced...)

		case *scene.OperationsNode:
			if err := checkMeta(n.HandlerMeta, stack); err != nil {
				return nil, err
			}
			ops, err := r.operations(n.Operations, stack)
			if err != nil {
				return nil, err
			}
			if len(ops) == 0 {
				return nil, configError(scene.ErrCodeNoOperations, join(n.Path, scene.FieldOperations), stack.current(),
					"operations are empty after template expansion")
			}
			out = append(out, &Resolved{HandlerMeta: n.HandlerMeta, Template: stack.current(), Operations: ops})

		case *scene.SubStatesNode:
			if err := checkMeta(n.HandlerMeta, stack); err != nil {
				return nil, err
			}
			subs, err := r.handlers(n.SubStates, stack)
			if err != nil {
				return nil, err
			}
			if len(subs) == 0 {
				return nil, configError(scene.ErrCodeEmptySubStates, join(n.Path, scene.FieldSubStates), stack.current(),
					"sub_states are empty after template expansion")
			}
			out = append(out, &Resolved{HandlerMeta: n.HandlerMeta, Template: stack.current(), SubStates: subs})

		case nil:
			return nil, configError(scene.ErrCodeNoOperations, "", stack.current(), "nil handler")

		default:
			return nil, configError(scene.ErrCodeInvalidFieldType, node.Location(), stack.current(), "unsupported handler node %T", node)
		}
	}
	return out, nil
}

func (r *Resolver) stateTemplate(ref *scene.TemplateRefNode, stack *expansion) ([]*Resolved, error) {
	path := join(ref.Path, scene.FieldStateTemplate)
	if ref.Template == "" {
		return nil, configError(scene.ErrCodeEmptyTemplateName, path, stack.current(), "template name is empty")
	}
	if stack.contains(stateTemplateKind, ref.Template) {
		return nil, configError(scene.ErrCodeTemplateCycle, path, stack.current(),
			"state template cycle: %s", stack.cyclePath(stateTemplateKind, ref.Template))
	}
	if r.StateTemplates == nil {
		return nil, configError(scene.ErrCodeTemplateNotFound, path, stack.current(),
			"state template %q: no template source configured", ref.Template)
	}

	tpl, err := r.StateTemplates(ref.Template)
	if err != nil {
		return nil, annotate(err, scene.ErrCodeTemplateNotFound, path, stack.current())
	}
	return r.handlers(tpl.Handlers, stack.push(stateTemplateKind, ref.Template))
}

func (r *Resolver) operations(defs []scene.OperationDef, stack *expansion) ([]*scene.OpRef, error) {
	var out []*scene.OpRef
	for _, def := range defs {
		switch d := def.(type) {
		case *scene.OpRef:
			out = append(out, d)

		case *scene.OpTemplateRef:
			path := join(d.Path, scene.FieldOperationTemplate)
			if d.Template == "" {
				return nil, configError(scene.ErrCodeEmptyTemplateName, path, stack.current(), "template name is empty")
			}
			if stack.contains(operationTemplateKind, d.Template) {
				return nil, configError(scene.ErrCodeTemplateCycle, path, stack.current(),
					"operation template cycle: %s", stack.cyclePath(operationTemplateKind, d.Template))
			}
			if r.OperationTemplates == nil {
				return nil, configError(scene.ErrCodeTemplateNotFound, path, stack.current(),
					"operation template %q: no template source configured", d.Template)
			}
			tpl, err := r.OperationTemplates(d.Template)
			if err != nil {
				return nil, annotate(err, scene.ErrCodeTemplateNotFound, path, stack.current())
			}
			spliced, err := r.operations(tpl.Operations, stack.push(operationTemplateKind, d.Template))
			if err != nil {
				return nil, err
			}
			out = append(out, spliced...)

		default:
			return nil, configError(scene.ErrCodeInvalidFieldType, "", stack.current(), "unsupported operation %T", def)
		}
	}
	return out, nil
}

func checkMeta(meta scene.HandlerMeta, stack *expansion) error {
	if strings.TrimSpace(meta.States) == "" {
		return configError(scene.ErrCodeMissingStates, join(meta.Path, scene.FieldStates), stack.current(),
			"states expression is required")
	}
	return nil
}

func join(path, field string) string {
	if path == "" {
		return field
	}
	return path + "." + field
}
