package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLoadScenario_ValidFile tests loading a scenario with inline scenes.
func TestLoadScenario_ValidFile(t *testing.T) {
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", "interrupt_and_templates.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "interrupt_and_templates", s.Name)
	require.Len(t, s.Scenes, 1)
	assert.Contains(t, s.StateTemplates, "combat")
	assert.Contains(t, s.OperationTemplates, "heal")
	require.Len(t, s.Steps, 5)

	first := s.Steps[0]
	require.NotNil(t, first.At)
	assert.Equal(t, 0.0, *first.At)
	require.Len(t, first.Record, 2)
	assert.Equal(t, "hp", first.Record[0].State)
	require.NotNil(t, first.Record[0].Value)
	assert.Equal(t, 80.0, *first.Record[0].Value)
	assert.Equal(t, "enemy", first.Record[1].State)
	assert.Nil(t, first.Record[1].Value)
	assert.True(t, first.ticks())

	assert.Equal(t, 1.0, s.Steps[4].Advance)
}

// TestLoadScenario_ConfigRelativeToFile tests that config paths resolve against the scenario file.
func TestLoadScenario_ConfigRelativeToFile(t *testing.T) {
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", "config_root.yaml"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("testdata", "config"), filepath.Clean(s.ConfigPath()))
}

// TestLoadScenario_MissingConfig tests that a config root must exist.
func TestLoadScenario_MissingConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "s.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: x\nconfig: nowhere\nsteps:\n  - tick: true\n"), 0o644))

	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config not found")
}

// TestLoadScenario_MissingFile tests the error for a missing file.
func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

// TestParseScenario_Invalid tests validation of scenario documents.
func TestParseScenario_Invalid(t *testing.T) {
	const scenes = "scenes:\n  - handlers:\n      - states: \"[A]\"\n        operations: [a]\n"
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"unknown field", "name: x\n" + scenes + "steps:\n  - tick: true\nbogus: 1\n", "failed to parse YAML"},
		{"missing name", scenes + "steps:\n  - tick: true\n", "name is required"},
		{"no scenes", "name: x\nsteps:\n  - tick: true\n", "either config or scenes"},
		{"both sources", "name: x\nconfig: c\n" + scenes + "steps:\n  - tick: true\n", "mutually exclusive"},
		{"no steps", "name: x\n" + scenes, "steps list is required"},
		{"at and advance", "name: x\n" + scenes + "steps:\n  - at: 1\n    advance: 1\n", "at and advance"},
		{"negative advance", "name: x\n" + scenes + "steps:\n  - advance: -1\n", "non-negative"},
		{"empty record", "name: x\n" + scenes + "steps:\n  - record: [\"\"]\n", "state is required"},
		{"unknown assertion", "name: x\n" + scenes + "steps:\n  - tick: true\nassertions:\n  - type: nope\n", "unknown assertion type"},
		{"trace_order without lines", "name: x\n" + scenes + "steps:\n  - tick: true\nassertions:\n  - type: trace_order\n", "lines list is required"},
		{"final_state without check", "name: x\n" + scenes + "steps:\n  - tick: true\nassertions:\n  - type: final_state\n    state: A\n", "observed or value"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

// TestStep_TickDefault tests that steps tick unless told otherwise.
func TestStep_TickDefault(t *testing.T) {
	off := false
	assert.True(t, Step{}.ticks())
	assert.False(t, Step{Tick: &off}.ticks())
}
