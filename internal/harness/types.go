package harness

import (
	"fmt"
	"strings"
	"sync"

	"github.com/DoctorReid/ZenlessZoneZero-OneDragon-sub002/internal/state"
)

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true if every assertion held.
	Pass bool `json:"pass"`

	// Trace is the ordered text trace of the run.
	Trace []string `json:"trace"`

	// Tasks lists every started task in start order.
	Tasks []TaskSummary `json:"tasks"`

	// States holds the final record of every observed state.
	States map[string]StateSummary `json:"states"`

	// Errors contains assertion failures. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// TaskSummary is the final view of one task.
type TaskSummary struct {
	ID      string   `json:"id"`
	Scene   string   `json:"scene"`
	Trigger string   `json:"trigger"`
	Ops     []string `json:"ops"`
	Status  string   `json:"status"`
	Errors  int      `json:"errors"`
}

// StateSummary is the final record of one state.
type StateSummary struct {
	Seconds float64  `json:"seconds"`
	Value   *float64 `json:"value,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []string{},
		States: make(map[string]StateSummary),
	}
}

// AddError adds an assertion failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Task returns the summary of the task with the given ID.
func (r *Result) Task(id string) (TaskSummary, bool) {
	for _, t := range r.Tasks {
		if t.ID == id {
			return t, true
		}
	}
	return TaskSummary{}, false
}

func summarizeState(rec state.Record) StateSummary {
	s := StateSummary{Seconds: seconds(rec.Time)}
	if rec.HasValue {
		v := rec.Value
		s.Value = &v
	}
	return s
}

// tracer collects trace lines from the engine goroutine and the pool.
type tracer struct {
	mu    sync.Mutex
	clock *virtualClock
	lines []string
}

// Add appends a line stamped with the virtual time.
func (t *tracer) Add(line string) {
	stamp := fmt.Sprintf("[%.3f] ", t.clock.Seconds())
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lines = append(t.lines, stamp+line)
}

func (t *tracer) Addf(format string, args ...any) {
	t.Add(fmt.Sprintf(format, args...))
}

// Lines returns a copy of the trace.
func (t *tracer) Lines() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.lines...)
}

// Format renders a result as the golden text form.
func Format(name string, r *Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "scenario: %s\n", name)

	b.WriteString("trace:\n")
	for _, line := range r.Trace {
		fmt.Fprintf(&b, "  %s\n", line)
	}

	b.WriteString("tasks:\n")
	for _, t := range r.Tasks {
		fmt.Fprintf(&b, "  %s scene=%s trigger=%s status=%s errors=%d ops=[%s]\n",
			t.ID, t.Scene, t.Trigger, t.Status, t.Errors, strings.Join(t.Ops, ", "))
	}

	b.WriteString("states:\n")
	for _, name := range sortedStates(r.States) {
		s := r.States[name]
		if s.Value != nil {
			fmt.Fprintf(&b, "  %s at=%.3f value=%g\n", name, s.Seconds, *s.Value)
		} else {
			fmt.Fprintf(&b, "  %s at=%.3f\n", name, s.Seconds)
		}
	}
	return b.String()
}
