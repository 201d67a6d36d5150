package harness

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoctorReid/ZenlessZoneZero-OneDragon-sub002/internal/metrics"
	"github.com/DoctorReid/ZenlessZoneZero-OneDragon-sub002/internal/pool"
	"github.com/DoctorReid/ZenlessZoneZero-OneDragon-sub002/internal/scene"
)

func loadTestScenario(t *testing.T, name string) *Scenario {
	t.Helper()
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", name+".yaml"))
	require.NoError(t, err)
	return s
}

// TestRunWithGolden_Scenarios tests every scenario file against its golden trace.
func TestRunWithGolden_Scenarios(t *testing.T) {
	for _, name := range []string{
		"end_to_end",
		"priority_preemption",
		"interrupt_and_templates",
		"config_root",
	} {
		t.Run(name, func(t *testing.T) {
			s := loadTestScenario(t, name)
			result, err := RunWithGolden(t, s)
			require.NoError(t, err)
			assert.True(t, result.Pass, strings.Join(result.Errors, "\n"))
		})
	}
}

// TestRun_Deterministic tests that repeated runs yield identical traces.
func TestRun_Deterministic(t *testing.T) {
	s := loadTestScenario(t, "priority_preemption")

	first, err := Run(s)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := Run(s)
		require.NoError(t, err)
		assert.Equal(t, first.Trace, again.Trace)
		assert.Equal(t, first.Tasks, again.Tasks)
	}
}

// TestRun_FailedAssertions tests that failed assertions are reported, not returned.
func TestRun_FailedAssertions(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: failing
scenes:
  - handlers:
      - states: "[A]"
        operations: [a]
steps:
  - record: [A]
assertions:
  - type: trace_contains
    line: "op b"
  - type: task_status
    task: task-1
    status: stopped
  - type: final_state
    state: B
    observed: true
`))
	require.NoError(t, err)

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 3)
	assert.Contains(t, result.Errors[0], "trace_contains")
	assert.Contains(t, result.Errors[1], "status completed")
	assert.Contains(t, result.Errors[2], "observed=false")
}

// TestRun_StaleRecordTraced tests that an out-of-order record is traced and ignored.
func TestRun_StaleRecordTraced(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: stale
scenes:
  - handlers:
      - states: "[A]"
        operations: [a]
steps:
  - at: 5
    record: [A]
    tick: false
  - at: 4
    record: [A]
    tick: false
`))
	require.NoError(t, err)

	result, err := Run(s)
	require.NoError(t, err)
	assert.Equal(t, []string{"[5.000] record A", "[4.000] record A (stale)"}, result.Trace)
	assert.Equal(t, 5.0, result.States["A"].Seconds)
}

// TestRun_StopStep tests that a stop step interrupts the current task.
func TestRun_StopStep(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: stop
scenes:
  - handlers:
      - states: "[A, 0, 100]"
        operations:
          - op_name: work
            block: true
steps:
  - record: [A]
  - stop: true
    tick: false
`))
	require.NoError(t, err)

	result, err := Run(s)
	require.NoError(t, err)
	require.Len(t, result.Tasks, 1)
	assert.Equal(t, "stopped", result.Tasks[0].Status)
	assert.Contains(t, result.Trace, "[0.000] task-1 interrupted: engine stopped")
}

// TestRun_ConfigErrors tests that configs which do not compile fail the run.
func TestRun_ConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		code scene.ErrorCode
	}{
		{
			name: "bad condition",
			yaml: `
name: bad
scenes:
  - handlers:
      - states: "[A"
        operations: [a]
steps:
  - tick: true
`,
			code: scene.ErrCodeInvalidCondition,
		},
		{
			name: "unknown template",
			yaml: `
name: bad
scenes:
  - handlers:
      - state_template: missing
steps:
  - tick: true
`,
			code: scene.ErrCodeTemplateNotFound,
		},
		{
			name: "bad wait",
			yaml: `
name: bad
scenes:
  - handlers:
      - states: "[A]"
        operations:
          - op_name: wait
steps:
  - tick: true
`,
			code: scene.ErrCodeUnknownOperation,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := ParseScenario([]byte(tt.yaml))
			require.NoError(t, err)
			_, err = Run(s)
			require.Error(t, err)
			assert.Equal(t, tt.code, scene.CodeOf(err))
		})
	}
}

// TestRun_WithMetrics tests that task metrics are recorded during a run.
func TestRun_WithMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	s := loadTestScenario(t, "priority_preemption")

	_, err := Run(s, WithMetrics(m))
	require.NoError(t, err)

	families, err := reg.Gather()
	require.NoError(t, err)
	got := make(map[string]float64)
	for _, f := range families {
		for _, metric := range f.GetMetric() {
			if c := metric.GetCounter(); c != nil {
				got[f.GetName()] += c.GetValue()
			}
		}
	}
	assert.Equal(t, 4.0, got["condop_tasks_started_total"])
	assert.Equal(t, 1.0, got["condop_preemptions_total"])
}

// TestGate_HoldsSpawnedWork tests that the gate holds spawned work until
// release and keeps it outside the inner pool's slots.
func TestGate_HoldsSpawnedWork(t *testing.T) {
	p := pool.New(1)
	defer func() { _ = p.Shutdown(context.Background()) }()
	g := &gate{inner: p}

	done := make(chan struct{})
	g.hold()
	require.NoError(t, g.Spawn(func() {
		defer close(done)
		result := make(chan struct{})
		_ = g.Submit(func() { close(result) })
		<-result
	}))

	select {
	case <-done:
		t.Fatal("spawned work ran while the gate was held")
	default:
	}

	require.NoError(t, g.release())
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("spawned work did not finish on a single-slot pool")
	}
}
