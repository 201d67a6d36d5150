package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func sampleResult() *Result {
	r := NewResult()
	r.Trace = []string{
		"[0.000] record A",
		"[0.000] task-1 started scene=main trigger=main priority=None ops=[a, b]",
		"[0.000]   op a",
		"[0.000]   op b",
		"[0.000] task-1 completed",
	}
	r.Tasks = []TaskSummary{{ID: "task-1", Scene: "main", Trigger: "main", Status: "completed"}}
	v := 3.0
	r.States["A"] = StateSummary{Seconds: 0}
	r.States["hp"] = StateSummary{Seconds: 0, Value: &v}
	return r
}

func boolPtr(b bool) *bool        { return &b }
func floatPtr(f float64) *float64 { return &f }

// TestCheck tests every assertion type against a fixed result.
func TestCheck(t *testing.T) {
	tests := []struct {
		name string
		a    Assertion
		pass bool
	}{
		{"contains", Assertion{Type: AssertTraceContains, Line: "op a"}, true},
		{"contains missing", Assertion{Type: AssertTraceContains, Line: "op c"}, false},
		{"order", Assertion{Type: AssertTraceOrder, Lines: []string{"record A", "op a", "op b"}}, true},
		{"order reversed", Assertion{Type: AssertTraceOrder, Lines: []string{"op b", "op a"}}, false},
		{"order same line twice", Assertion{Type: AssertTraceOrder, Lines: []string{"completed", "completed"}}, false},
		{"count", Assertion{Type: AssertTraceCount, Line: "  op ", Count: 2}, true},
		{"count zero", Assertion{Type: AssertTraceCount, Line: "stopped", Count: 0}, true},
		{"count wrong", Assertion{Type: AssertTraceCount, Line: "op a", Count: 2}, false},
		{"status", Assertion{Type: AssertTaskStatus, Task: "task-1", Status: "completed"}, true},
		{"status wrong", Assertion{Type: AssertTaskStatus, Task: "task-1", Status: "stopped"}, false},
		{"status unknown task", Assertion{Type: AssertTaskStatus, Task: "task-9", Status: "completed"}, false},
		{"state observed", Assertion{Type: AssertFinalState, State: "A", Observed: boolPtr(true)}, true},
		{"state absent", Assertion{Type: AssertFinalState, State: "B", Observed: boolPtr(false)}, true},
		{"state value", Assertion{Type: AssertFinalState, State: "hp", Value: floatPtr(3)}, true},
		{"state value wrong", Assertion{Type: AssertFinalState, State: "hp", Value: floatPtr(4)}, false},
		{"state without value", Assertion{Type: AssertFinalState, State: "A", Value: floatPtr(1)}, false},
		{"unknown type", Assertion{Type: "nope"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := check(sampleResult(), tt.a)
			if tt.pass {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

// TestAssertionError_IncludesTrace tests that failures print the full trace.
func TestAssertionError_IncludesTrace(t *testing.T) {
	err := check(sampleResult(), Assertion{Type: AssertTraceContains, Line: "op z"})
	var ae *AssertionError
	assert.ErrorAs(t, err, &ae)
	msg := err.Error()
	assert.Contains(t, msg, "Assertion failed: trace_contains")
	assert.Contains(t, msg, `Expected: a line containing "op z"`)
	assert.Contains(t, msg, "[3] [0.000]   op a")
}
