package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario is a timeline test against a scene configuration.
type Scenario struct {
	// Name uniquely identifies this scenario. It names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Config is a config root, relative to the scenario file.
	// Mutually exclusive with Scenes.
	Config string `yaml:"config,omitempty"`

	// Scenes is an inline scene list, in the format of a scene document.
	Scenes []map[string]any `yaml:"scenes,omitempty"`

	// StateTemplates and OperationTemplates are inline templates for Scenes.
	StateTemplates     map[string]map[string]any `yaml:"state_templates,omitempty"`
	OperationTemplates map[string]map[string]any `yaml:"operation_templates,omitempty"`

	// Steps are applied in order.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final trace, tasks and states.
	Assertions []Assertion `yaml:"assertions,omitempty"`

	// baseDir resolves Config.
	baseDir string
}

// Step is one point of the timeline.
type Step struct {
	// At sets the virtual clock, in seconds.
	At *float64 `yaml:"at,omitempty"`

	// Advance moves the virtual clock forward, in seconds.
	Advance float64 `yaml:"advance,omitempty"`

	// Record observes states at the step time.
	Record []Update `yaml:"record,omitempty"`

	// Clear forgets states.
	Clear []string `yaml:"clear,omitempty"`

	// Tick runs one engine tick after the updates. Defaults to true.
	Tick *bool `yaml:"tick,omitempty"`

	// Stop stops the current task before ticking.
	Stop bool `yaml:"stop,omitempty"`
}

// ticks reports whether the step ticks the engine.
func (s Step) ticks() bool {
	return s.Tick == nil || *s.Tick
}

// Update is one state observation. In YAML it is either a bare state name or
// a mapping with state and value.
type Update struct {
	State string   `yaml:"state"`
	Value *float64 `yaml:"value,omitempty"`
}

// UnmarshalYAML accepts a scalar state name or a mapping.
func (u *Update) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		u.State = node.Value
		return nil
	}
	type plain Update
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	*u = Update(p)
	return nil
}

// Assertion validates the result of a run.
type Assertion struct {
	// Type selects the check:
	// - "trace_contains": some trace line contains Line
	// - "trace_order": Lines are found in this order
	// - "trace_count": exactly Count lines contain Line
	// - "task_status": Task ended with Status
	// - "final_state": State is (or is not) observed, with Value if set
	Type string `yaml:"type"`

	Line  string   `yaml:"line,omitempty"`
	Lines []string `yaml:"lines,omitempty"`
	Count int      `yaml:"count,omitempty"`

	Task   string `yaml:"task,omitempty"`
	Status string `yaml:"status,omitempty"`

	State    string   `yaml:"state,omitempty"`
	Observed *bool    `yaml:"observed,omitempty"`
	Value    *float64 `yaml:"value,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertTaskStatus    = "task_status"
	AssertFinalState    = "final_state"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	s, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}
	s.baseDir = filepath.Dir(path)

	if s.Config != "" {
		if _, err := os.Stat(s.ConfigPath()); os.IsNotExist(err) {
			return nil, fmt.Errorf("invalid scenario: config not found: %s", s.ConfigPath())
		}
	}
	return s, nil
}

// ParseScenario parses scenario YAML. A relative Config is resolved against
// the working directory.
func ParseScenario(data []byte) (*Scenario, error) {
	var s Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&s); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &s, nil
}

// ConfigPath returns Config resolved against the scenario file.
func (s *Scenario) ConfigPath() string {
	if s.Config == "" || filepath.IsAbs(s.Config) || s.baseDir == "" {
		return s.Config
	}
	return filepath.Join(s.baseDir, s.Config)
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	switch {
	case s.Config == "" && len(s.Scenes) == 0:
		return fmt.Errorf("either config or scenes is required")
	case s.Config != "" && len(s.Scenes) > 0:
		return fmt.Errorf("config and scenes are mutually exclusive")
	case s.Config != "" && (len(s.StateTemplates) > 0 || len(s.OperationTemplates) > 0):
		return fmt.Errorf("inline templates require inline scenes")
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if step.At != nil && step.Advance != 0 {
			return fmt.Errorf("steps[%d]: at and advance are mutually exclusive", i)
		}
		if step.Advance < 0 {
			return fmt.Errorf("steps[%d]: advance must be non-negative", i)
		}
		for j, u := range step.Record {
			if u.State == "" {
				return fmt.Errorf("steps[%d].record[%d]: state is required", i, j)
			}
		}
		for j, name := range step.Clear {
			if name == "" {
				return fmt.Errorf("steps[%d].clear[%d]: state is required", i, j)
			}
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertTraceContains:
		if a.Line == "" {
			return fmt.Errorf("assertions[%d]: line is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Lines) == 0 {
			return fmt.Errorf("assertions[%d]: lines list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Line == "" {
			return fmt.Errorf("assertions[%d]: line is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertTaskStatus:
		if a.Task == "" || a.Status == "" {
			return fmt.Errorf("assertions[%d]: task and status are required for task_status", index)
		}
	case AssertFinalState:
		if a.State == "" {
			return fmt.Errorf("assertions[%d]: state is required for final_state", index)
		}
		if a.Observed == nil && a.Value == nil {
			return fmt.Errorf("assertions[%d]: observed or value is required for final_state", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
