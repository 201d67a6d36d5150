package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/DoctorReid/ZenlessZoneZero-OneDragon-sub002/internal/loader"
	"github.com/DoctorReid/ZenlessZoneZero-OneDragon-sub002/internal/scene"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid              bool    `json:"valid"`
	Scenes             int     `json:"scenes"`
	StateTemplates     int     `json:"state_templates"`
	OperationTemplates int     `json:"operation_templates"`
	Errors             []Issue `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <config-dir>",
		Short: "Validate a scene configuration",
		Long: `Validate the scenes and templates of a config directory.

Loads every scene file, reports all template cycles at once, then compiles
every scene. Operations without a registered implementation are accepted.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, root string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}

	cp, err := compileProject(root, opts.Logger(cmd.ErrOrStderr()))
	if cp == nil {
		issue := issueOf(err)
		_ = formatter.Fail(issue)
		return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", issue.Code, issue.Message))
	}

	formatter.VerboseLog("Loaded %d scene(s) from %s", len(cp.project.Document.Scenes), loader.Layout{Root: root}.Dir(loader.ScenesDir))

	result := ValidationResult{
		Scenes:             len(cp.project.Document.Scenes),
		StateTemplates:     len(cp.stateTemplates),
		OperationTemplates: len(cp.operationTemplates),
	}
	for _, c := range cp.cycles {
		result.Errors = append(result.Errors, issueOf(c.Err()))
	}
	// A cycle also fails compilation; report it once.
	if err != nil && !(len(cp.cycles) > 0 && scene.IsCycleError(err)) {
		result.Errors = append(result.Errors, issueOf(err))
	}
	result.Valid = len(result.Errors) == 0

	if !result.Valid {
		return outputValidationErrors(formatter, result)
	}
	return outputValidateSuccess(formatter, result)
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, result ValidationResult) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	fmt.Fprintf(formatter.Writer, "✓ Config valid: %d scene(s), %d state template(s), %d operation template(s)\n",
		result.Scenes, result.StateTemplates, result.OperationTemplates)
	return nil
}

// outputValidationErrors outputs every validation error.
func outputValidationErrors(formatter *OutputFormatter, result ValidationResult) error {
	if err := formatter.Issues("✗ Validation failed", result, result.Errors); err != nil {
		return err
	}
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(result.Errors)))
}
