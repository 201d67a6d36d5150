package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/DoctorReid/ZenlessZoneZero-OneDragon-sub002/internal/harness"
	"github.com/DoctorReid/ZenlessZoneZero-OneDragon-sub002/internal/metrics"
)

// SimulationResult is the JSON form of a scenario run.
type SimulationResult struct {
	Scenario string             `json:"scenario"`
	Result   *harness.Result    `json:"result"`
	Metrics  map[string]float64 `json:"metrics,omitempty"`
}

// NewSimulateCommand creates the simulate command.
func NewSimulateCommand(rootOpts *RootOptions) *cobra.Command {
	var showMetrics bool

	cmd := &cobra.Command{
		Use:   "simulate <scenario.yml>",
		Short: "Replay a timeline scenario",
		Long: `Replay a scenario against its scenes on a virtual clock and print the
trace, the final task list and the final states.

Exits with code 1 if any scenario assertion fails.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulate(rootOpts, args[0], showMetrics, cmd)
		},
	}

	cmd.Flags().BoolVar(&showMetrics, "metrics", false, "print task metrics after the run")

	return cmd
}

func runSimulate(opts *RootOptions, path string, showMetrics bool, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	scenario, err := harness.LoadScenario(path)
	if err != nil {
		_ = formatter.Fail(issueOf(err))
		return WrapExitError(ExitCommandError, "load scenario", err)
	}

	runOpts := []harness.RunOption{harness.WithLogger(opts.Logger(cmd.ErrOrStderr()))}
	reg := prometheus.NewRegistry()
	if showMetrics {
		runOpts = append(runOpts, harness.WithMetrics(metrics.New(reg)))
	}

	formatter.VerboseLog("Running scenario %s (%d steps)", scenario.Name, len(scenario.Steps))
	result, err := harness.Run(scenario, runOpts...)
	if err != nil {
		issue := issueOf(err)
		_ = formatter.Fail(issue)
		return WrapExitError(ExitCommandError, "run scenario", err)
	}

	var values map[string]float64
	if showMetrics {
		values, err = gatherMetrics(reg)
		if err != nil {
			return WrapExitError(ExitCommandError, "gather metrics", err)
		}
	}

	if formatter.Format == "json" {
		if err := formatter.Success(SimulationResult{Scenario: scenario.Name, Result: result, Metrics: values}); err != nil {
			return err
		}
	} else {
		fmt.Fprint(formatter.Writer, harness.Format(scenario.Name, result))
		if showMetrics {
			fmt.Fprintln(formatter.Writer, "metrics:")
			for _, name := range sortedKeys(values) {
				fmt.Fprintf(formatter.Writer, "  %s %g\n", name, values[name])
			}
		}
		if result.Pass {
			fmt.Fprintf(formatter.Writer, "✓ %d assertion(s) passed\n", len(scenario.Assertions))
		} else {
			fmt.Fprintln(formatter.Writer, "✗ Assertions failed")
			for _, msg := range result.Errors {
				fmt.Fprintln(formatter.Writer, msg)
			}
		}
	}

	if !result.Pass {
		return NewExitError(ExitFailure, fmt.Sprintf("%d assertion(s) failed", len(result.Errors)))
	}
	return nil
}

// gatherMetrics flattens counters and gauges into "name{k=v,...}" keys.
func gatherMetrics(reg *prometheus.Registry) (map[string]float64, error) {
	families, err := reg.Gather()
	if err != nil {
		return nil, err
	}

	out := make(map[string]float64)
	for _, f := range families {
		for _, m := range f.GetMetric() {
			var labels []string
			for _, l := range m.GetLabel() {
				labels = append(labels, fmt.Sprintf("%s=%s", l.GetName(), l.GetValue()))
			}
			key := f.GetName()
			if len(labels) > 0 {
				key += "{" + strings.Join(labels, ",") + "}"
			}
			switch {
			case m.GetCounter() != nil:
				out[key] = m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				out[key] = m.GetGauge().GetValue()
			}
		}
	}
	return out, nil
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
