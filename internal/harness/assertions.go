package harness

import (
	"fmt"
	"strings"
)

// AssertionError is returned when an assertion fails.
// It includes the full trace to help debug the failure.
type AssertionError struct {
	Type     string   // Assertion type for categorization
	Expected string   // Human-readable expected outcome
	Actual   string   // Human-readable actual outcome
	Trace    []string // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for i, line := range e.Trace {
		fmt.Fprintf(&buf, "  [%d] %s\n", i+1, line)
	}

	return buf.String()
}

// check runs one assertion against a result.
func check(r *Result, a Assertion) error {
	switch a.Type {
	case AssertTraceContains:
		return assertTraceContains(r.Trace, a)
	case AssertTraceOrder:
		return assertTraceOrder(r.Trace, a)
	case AssertTraceCount:
		return assertTraceCount(r.Trace, a)
	case AssertTaskStatus:
		return assertTaskStatus(r, a)
	case AssertFinalState:
		return assertFinalState(r, a)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

// assertTraceContains checks that some line contains the expected text.
func assertTraceContains(trace []string, a Assertion) error {
	for _, line := range trace {
		if strings.Contains(line, a.Line) {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: fmt.Sprintf("a line containing %q", a.Line),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceOrder checks that the expected texts appear in order.
// Lines don't need to be consecutive (intervening lines are allowed).
func assertTraceOrder(trace []string, a Assertion) error {
	pos := 0
	for i, want := range a.Lines {
		found := false
		for pos < len(trace) {
			line := trace[pos]
			pos++
			if strings.Contains(line, want) {
				found = true
				break
			}
		}
		if !found {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("lines in order: %q", a.Lines),
				Actual:   fmt.Sprintf("no line containing %q after %q", want, previous(a.Lines, i)),
				Trace:    trace,
			}
		}
	}
	return nil
}

func previous(lines []string, i int) string {
	if i == 0 {
		return "start of trace"
	}
	return lines[i-1]
}

// assertTraceCount checks that exactly Count lines contain the expected text.
func assertTraceCount(trace []string, a Assertion) error {
	count := 0
	for _, line := range trace {
		if strings.Contains(line, a.Line) {
			count++
		}
	}
	if count != a.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d lines containing %q", a.Count, a.Line),
			Actual:   fmt.Sprintf("%d lines", count),
			Trace:    trace,
		}
	}
	return nil
}

// assertTaskStatus checks the final status of a task.
func assertTaskStatus(r *Result, a Assertion) error {
	t, ok := r.Task(a.Task)
	if !ok {
		return &AssertionError{
			Type:     AssertTaskStatus,
			Expected: fmt.Sprintf("task %s with status %s", a.Task, a.Status),
			Actual:   "task never started",
			Trace:    r.Trace,
		}
	}
	if t.Status != a.Status {
		return &AssertionError{
			Type:     AssertTaskStatus,
			Expected: fmt.Sprintf("task %s with status %s", a.Task, a.Status),
			Actual:   "status " + t.Status,
			Trace:    r.Trace,
		}
	}
	return nil
}

// assertFinalState checks whether a state is observed and, optionally, its value.
func assertFinalState(r *Result, a Assertion) error {
	s, observed := r.States[a.State]

	wantObserved := true
	if a.Observed != nil {
		wantObserved = *a.Observed
	}
	if observed != wantObserved {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("state %s observed=%t", a.State, wantObserved),
			Actual:   fmt.Sprintf("observed=%t", observed),
			Trace:    r.Trace,
		}
	}

	if a.Value != nil {
		if s.Value == nil {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("state %s value=%g", a.State, *a.Value),
				Actual:   "no value",
				Trace:    r.Trace,
			}
		}
		if *s.Value != *a.Value {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("state %s value=%g", a.State, *a.Value),
				Actual:   fmt.Sprintf("value=%g", *s.Value),
				Trace:    r.Trace,
			}
		}
	}
	return nil
}
