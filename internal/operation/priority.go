package operation

import "strconv"

// Priority orders tasks for preemption. The zero value is NoPriority.
type Priority struct {
	value int
	set   bool
}

// NoPriority marks a task that any new match may preempt.
var NoPriority = Priority{}

// PriorityOf returns a set priority.
func PriorityOf(v int) Priority {
	return Priority{value: v, set: true}
}

// PriorityFromPtr converts an optional config value.
func PriorityFromPtr(p *int) Priority {
	if p == nil {
		return NoPriority
	}
	return PriorityOf(*p)
}

// Value returns the priority and whether it is set.
func (p Priority) Value() (int, bool) {
	return p.value, p.set
}

// IsSet reports whether p is not NoPriority.
func (p Priority) IsSet() bool {
	return p.set
}

// PreemptableBy reports whether a running task with priority p may be
// replaced by a new match with priority next.
//
// A task without priority is always preemptable. A task with priority P is
// preempted only by a set priority >= P.
func (p Priority) PreemptableBy(next Priority) bool {
	if !p.set {
		return true
	}
	return next.set && next.value >= p.value
}

// String renders the priority for display: "None" or the number.
func (p Priority) String() string {
	if !p.set {
		return "None"
	}
	return strconv.Itoa(p.value)
}
