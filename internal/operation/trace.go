package operation

import "strings"

// MainTrigger is the trigger display of the unconditional main loop.
const MainTrigger = "main"

const traceSeparator = " -> "

// TraceEntry is one matched handler on the path from the scene root to the
// handler whose operations the task runs.
type TraceEntry struct {
	Expr      string
	DebugName string
}

// ExprDisplay joins the matched condition expressions from root to leaf.
func (t *Task) ExprDisplay() string {
	parts := make([]string, 0, len(t.trace))
	for _, e := range t.trace {
		parts = append(parts, e.Expr)
	}
	return strings.Join(parts, traceSeparator)
}

// DebugNameDisplay joins the non-empty debug names from root to leaf.
func (t *Task) DebugNameDisplay() string {
	parts := make([]string, 0, len(t.trace))
	for _, e := range t.trace {
		if e.DebugName != "" {
			parts = append(parts, e.DebugName)
		}
	}
	return strings.Join(parts, traceSeparator)
}

// TriggerDisplay returns the trigger that started the task, or "main".
func (t *Task) TriggerDisplay() string {
	if t.trigger == "" {
		return MainTrigger
	}
	return t.trigger
}

// PriorityDisplay returns "None" or the priority number.
func (t *Task) PriorityDisplay() string {
	return t.priority.String()
}

// Trace returns a copy of the matched path.
func (t *Task) Trace() []TraceEntry {
	out := make([]TraceEntry, len(t.trace))
	copy(out, t.trace)
	return out
}
