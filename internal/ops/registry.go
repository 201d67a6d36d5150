package ops

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/DoctorReid/ZenlessZoneZero-OneDragon-sub002/internal/operation"
	"github.com/DoctorReid/ZenlessZoneZero-OneDragon-sub002/internal/scene"
)

// Factory builds an op from a reference. Param problems should be reported
// with ParamError.
type Factory func(ref *scene.OpRef) (operation.AtomicOp, error)

// StateSink receives state writes from ops. The engine implements it so
// writes can fire triggers.
type StateSink interface {
	Record(name string, t time.Time) bool
	RecordValue(name string, t time.Time, v float64) bool
	Clear(name string)
}

// Input presses and releases named keys or buttons.
type Input interface {
	Press(key string) error
	Release(key string) error
}

// Deps are the collaborators of the builtin ops.
type Deps struct {
	Sink   StateSink
	Input  Input
	Now    func() time.Time
	Logger *slog.Logger
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithPlaceholder makes Build return a logging placeholder for unknown names
// instead of failing. Used to validate and simulate configs whose
// domain-specific ops are not available.
func WithPlaceholder() RegistryOption {
	return func(r *Registry) { r.placeholder = true }
}

// WithLogger sets the logger used by placeholder ops.
func WithLogger(logger *slog.Logger) RegistryOption {
	return func(r *Registry) { r.logger = logger }
}

// Registry maps operation names to factories.
//
// Thread-safety: safe for concurrent use.
type Registry struct {
	mu          sync.RWMutex
	factories   map[string]Factory
	placeholder bool
	logger      *slog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		factories: make(map[string]Factory),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register installs a factory, replacing any previous one with the same name.
func (r *Registry) Register(name string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = f
}

// Names returns the registered names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for n := range r.factories {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Build creates the op for ref. It satisfies compiler.OpGetter.
func (r *Registry) Build(ref *scene.OpRef) (operation.AtomicOp, error) {
	r.mu.RLock()
	f, ok := r.factories[ref.Name]
	placeholder := r.placeholder
	r.mu.RUnlock()

	if !ok {
		if placeholder {
			return NewPlaceholder(ref.Name, r.logger), nil
		}
		return nil, &scene.ConfigError{
			Code:    scene.ErrCodeUnknownOperation,
			Path:    ref.Path,
			Message: fmt.Sprintf("unknown operation %q", ref.Name),
		}
	}
	return f(ref)
}

// RegisterBuiltins installs the builtin ops.
func RegisterBuiltins(r *Registry, deps Deps) {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	r.Register(OpWait, func(ref *scene.OpRef) (operation.AtomicOp, error) {
		d, err := durationParam(ref, ParamSeconds, true)
		if err != nil {
			return nil, err
		}
		return NewWait(d), nil
	})
	r.Register(OpLog, func(ref *scene.OpRef) (operation.AtomicOp, error) {
		msg, err := stringParam(ref, ParamMessage, false)
		if err != nil {
			return nil, err
		}
		return NewLog(msg, deps.Logger), nil
	})
	r.Register(OpSetState, func(ref *scene.OpRef) (operation.AtomicOp, error) {
		if deps.Sink == nil {
			return nil, ParamError(ref, "no state sink configured")
		}
		name, err := stringParam(ref, ParamState, true)
		if err != nil {
			return nil, err
		}
		op := NewSetState(deps.Sink, name, deps.Now)
		if v, ok := scene.ParamFloat(ref.Params, ParamValue); ok {
			op.WithValue(v)
		} else if raw, present := ref.Params[ParamValue]; present && raw != nil {
			return nil, ParamError(ref, "%s must be a number", ParamValue)
		}
		return op, nil
	})
	r.Register(OpClearState, func(ref *scene.OpRef) (operation.AtomicOp, error) {
		if deps.Sink == nil {
			return nil, ParamError(ref, "no state sink configured")
		}
		name, err := stringParam(ref, ParamState, true)
		if err != nil {
			return nil, err
		}
		return NewClearState(deps.Sink, name), nil
	})
	r.Register(OpHold, func(ref *scene.OpRef) (operation.AtomicOp, error) {
		if deps.Input == nil {
			return nil, ParamError(ref, "no input configured")
		}
		key, err := stringParam(ref, ParamKey, true)
		if err != nil {
			return nil, err
		}
		d, err := durationParam(ref, ParamSeconds, true)
		if err != nil {
			return nil, err
		}
		return NewHold(deps.Input, key, d, deps.Logger), nil
	})
}
