package scene

import (
	"math"
	"time"
)

// Field names used in declarative scene data.
const (
	FieldScenes            = "scenes"
	FieldName              = "name"
	FieldTriggers          = "triggers"
	FieldInterval          = "interval"
	FieldPriority          = "priority"
	FieldHandlers          = "handlers"
	FieldStates            = "states"
	FieldDebugName         = "debug_name"
	FieldInterruptStates   = "interrupt_states"
	FieldOperations        = "operations"
	FieldSubStates         = "sub_states"
	FieldStateTemplate     = "state_template"
	FieldOperationTemplate = "operation_template"
	FieldOpName            = "op_name"
)

// DefaultInterval is the rate limit of a scene that does not set one.
const DefaultInterval = 500 * time.Millisecond

// MaxSeconds is the largest number of seconds a config may set for a
// duration.
const MaxSeconds = float64(math.MaxInt64 / int64(time.Second))

// Document is a whole declarative configuration: one optional main-loop scene
// and any number of trigger scenes.
type Document struct {
	Scenes []Scene
}

// Scene is one reactive unit.
type Scene struct {
	// Name is a display name. Defaults to the joined trigger names, or
	// "main" for the main loop.
	Name string

	// Triggers lists the state names whose updates evaluate this scene.
	// Empty means the scene is the unconditional main loop.
	Triggers []string

	// Interval is the minimum time between two evaluations.
	Interval time.Duration

	// Priority is nil when the scene's tasks are always preemptable.
	Priority *int

	Handlers []HandlerNode

	// Path locates the scene in its document, for error reporting.
	Path string
}

// IsMainLoop reports whether the scene has no triggers.
func (s Scene) IsMainLoop() bool {
	return len(s.Triggers) == 0
}

// HandlerNode is one declarative state handler.
type HandlerNode interface {
	handlerNode()
	// Location returns the field path of the node.
	Location() string
}

// HandlerMeta holds the fields shared by concrete handler nodes.
type HandlerMeta struct {
	States          string
	DebugName       string
	InterruptStates []string
	Path            string
}

// OperationsNode binds a condition to an operation list.
type OperationsNode struct {
	HandlerMeta
	Operations []OperationDef
}

// SubStatesNode binds a condition to nested handlers.
type SubStatesNode struct {
	HandlerMeta
	SubStates []HandlerNode
}

// TemplateRefNode splices the handlers of a named state template.
type TemplateRefNode struct {
	Template string
	Path     string
}

func (*OperationsNode) handlerNode()  {}
func (*SubStatesNode) handlerNode()   {}
func (*TemplateRefNode) handlerNode() {}

func (n *OperationsNode) Location() string  { return n.Path }
func (n *SubStatesNode) Location() string   { return n.Path }
func (n *TemplateRefNode) Location() string { return n.Path }

// OperationDef is one declarative operation entry.
type OperationDef interface {
	operationDef()
	Location() string
}

// OpRef names a concrete operation and its parameters. The operation getter
// turns it into an executable operation.
type OpRef struct {
	Name   string
	Params map[string]any
	Path   string
}

// OpTemplateRef splices the operations of a named operation template.
type OpTemplateRef struct {
	Template string
	Path     string
}

func (*OpRef) operationDef()         {}
func (*OpTemplateRef) operationDef() {}

func (o *OpRef) Location() string         { return o.Path }
func (o *OpTemplateRef) Location() string { return o.Path }

// StateTemplate is a reusable list of handlers.
type StateTemplate struct {
	Name     string
	Handlers []HandlerNode
}

// OperationTemplate is a reusable list of operations.
type OperationTemplate struct {
	Name       string
	Operations []OperationDef
}
