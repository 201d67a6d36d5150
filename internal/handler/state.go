package handler

import (
	"time"

	"github.com/DoctorReid/ZenlessZoneZero-OneDragon-sub002/internal/condition"
	"github.com/DoctorReid/ZenlessZoneZero-OneDragon-sub002/internal/operation"
)

// StateHandler pairs a condition with either operations or sub handlers.
// Exactly one of Operations and SubStates is non-empty.
type StateHandler struct {
	Condition       condition.Node
	Expr            string
	DebugName       string
	InterruptStates []string
	Operations      []operation.AtomicOp
	SubStates       []*StateHandler
}

// IsLeaf reports whether the handler carries operations.
func (h *StateHandler) IsLeaf() bool {
	return len(h.SubStates) == 0
}

// Match returns the operations of the first matching path below and
// including h.
func (h *StateHandler) Match(now time.Time) (*Match, bool) {
	return h.match(now, nil, nil)
}

func (h *StateHandler) match(now time.Time, trace []operation.TraceEntry, interrupts []string) (*Match, bool) {
	if !h.Condition.Eval(now) {
		return nil, false
	}

	// Full slice expressions force a copy on append so siblings never share
	// a backing array.
	trace = append(trace[:len(trace):len(trace)], operation.TraceEntry{Expr: h.Expr, DebugName: h.DebugName})
	interrupts = append(interrupts[:len(interrupts):len(interrupts)], h.InterruptStates...)

	if h.IsLeaf() {
		return &Match{
			Operations:      h.Operations,
			Trace:           trace,
			InterruptStates: dedupe(interrupts),
		}, true
	}
	return matchFirst(h.SubStates, now, trace, interrupts)
}

func matchFirst(handlers []*StateHandler, now time.Time, trace []operation.TraceEntry, interrupts []string) (*Match, bool) {
	for _, h := range handlers {
		if m, ok := h.match(now, trace, interrupts); ok {
			return m, true
		}
	}
	return nil, false
}

func dedupe(names []string) []string {
	if len(names) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	return out
}
