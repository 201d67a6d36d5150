package harness

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/DoctorReid/ZenlessZoneZero-OneDragon-sub002/internal/operation"
	"github.com/DoctorReid/ZenlessZoneZero-OneDragon-sub002/internal/ops"
	"github.com/DoctorReid/ZenlessZoneZero-OneDragon-sub002/internal/scene"
)

// Params understood by scripted ops.
const (
	paramBlock = "block"
	paramFail  = "fail"
)

// opBuilder builds harness ops. Builtins come from the ops registry; wait
// and unknown names are scripted.
type opBuilder struct {
	registry *ops.Registry
	clock    *virtualClock
	trace    *tracer
}

func (b *opBuilder) build(ref *scene.OpRef) (operation.AtomicOp, error) {
	var inner operation.AtomicOp
	switch ref.Name {
	case ops.OpWait:
		secs, ok := scene.ParamFloat(ref.Params, ops.ParamSeconds)
		if !ok || secs < 0 {
			return nil, ops.ParamError(ref, "%s must be a non-negative number", ops.ParamSeconds)
		}
		inner = &sleepOp{clock: b.clock, seconds: secs}

	case ops.OpSetState, ops.OpClearState, ops.OpLog:
		op, err := b.registry.Build(ref)
		if err != nil {
			return nil, err
		}
		inner = op

	default:
		s := &scriptedOp{name: ref.Name, clock: b.clock}
		if v, ok := ref.Params[paramBlock]; ok {
			block, isBool := v.(bool)
			if !isBool {
				return nil, ops.ParamError(ref, "%s must be a boolean", paramBlock)
			}
			s.block = block
		}
		if v, ok := ref.Params[paramFail]; ok {
			msg, isString := v.(string)
			if !isString || msg == "" {
				return nil, ops.ParamError(ref, "%s must be a non-empty string", paramFail)
			}
			s.fail = msg
		}
		inner = s
	}
	return &tracedOp{AtomicOp: inner, label: label(ref), trace: b.trace}, nil
}

// label renders an op reference as "name k=v ...", keys sorted.
func label(ref *scene.OpRef) string {
	if len(ref.Params) == 0 {
		return ref.Name
	}
	keys := make([]string, 0, len(ref.Params))
	for k := range ref.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := []string{ref.Name}
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, ref.Params[k]))
	}
	return strings.Join(parts, " ")
}

// tracedOp writes a trace line when it starts and when it is stopped.
type tracedOp struct {
	operation.AtomicOp
	label string
	trace *tracer
}

func (o *tracedOp) Execute(ctx context.Context) error {
	o.trace.Add("  op " + o.label)
	return o.AtomicOp.Execute(ctx)
}

func (o *tracedOp) Stop() {
	o.trace.Add("  op " + o.label + " stopped")
	o.AtomicOp.Stop()
}

// sleepOp waits on the virtual clock.
type sleepOp struct {
	clock   *virtualClock
	seconds float64
	lc      operation.Lifecycle
}

func (o *sleepOp) Name() string { return ops.OpWait }
func (o *sleepOp) Async() bool  { return false }
func (o *sleepOp) Stop()        { o.lc.Stop() }

func (o *sleepOp) Execute(ctx context.Context) error {
	runCtx, end := o.lc.Begin(ctx)
	defer end()
	if o.seconds <= 0 {
		return nil
	}
	return o.clock.sleep(runCtx, secondsDuration(o.seconds))
}

// scriptedOp stands in for a domain op.
type scriptedOp struct {
	name  string
	clock *virtualClock
	block bool
	fail  string
	lc    operation.Lifecycle
}

func (o *scriptedOp) Name() string { return o.name }
func (o *scriptedOp) Async() bool  { return false }
func (o *scriptedOp) Stop()        { o.lc.Stop() }

func (o *scriptedOp) Execute(ctx context.Context) error {
	if o.fail != "" {
		return errors.New(o.fail)
	}
	if o.block {
		runCtx, end := o.lc.Begin(ctx)
		defer end()
		return o.clock.block(runCtx)
	}
	return nil
}
