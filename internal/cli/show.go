package cli

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/DoctorReid/ZenlessZoneZero-OneDragon-sub002/internal/handler"
)

// SceneOutline is the JSON form of a compiled scene.
type SceneOutline struct {
	Name     string   `json:"name"`
	Triggers []string `json:"triggers,omitempty"`
	Interval float64  `json:"interval_seconds"`
	Priority string   `json:"priority"`
	Outline  []string `json:"outline"`
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	var sceneName string

	cmd := &cobra.Command{
		Use:   "show <config-dir>",
		Short: "Print compiled handler trees",
		Long: `Compile a config directory and print each scene's handler tree with
templates expanded and conditions in canonical form.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(rootOpts, args[0], sceneName, cmd)
		},
	}

	cmd.Flags().StringVarP(&sceneName, "scene", "s", "", "only show the named scene")

	return cmd
}

func runShow(opts *RootOptions, root, sceneName string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	cp, err := compileProject(root, opts.Logger(cmd.ErrOrStderr()))
	if err != nil {
		issue := issueOf(err)
		_ = formatter.Fail(issue)
		code := ExitFailure
		if cp == nil {
			code = ExitCommandError
		}
		return NewExitError(code, fmt.Sprintf("%s: %s", issue.Code, issue.Message))
	}

	var outlines []SceneOutline
	for _, sc := range cp.scenes {
		if sceneName != "" && sc.Name != sceneName {
			continue
		}
		var buf bytes.Buffer
		if err := handler.Render(&buf, sc); err != nil {
			return WrapExitError(ExitCommandError, "render scene", err)
		}
		outlines = append(outlines, SceneOutline{
			Name:     sc.Name,
			Triggers: sc.Triggers,
			Interval: sc.Interval.Seconds(),
			Priority: sc.Priority.String(),
			Outline:  strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n"),
		})
	}

	if sceneName != "" && len(outlines) == 0 {
		_ = formatter.Fail(Issue{Code: ErrCodeGeneric, Message: fmt.Sprintf("scene %q not found", sceneName)})
		return NewExitError(ExitCommandError, fmt.Sprintf("scene %q not found", sceneName))
	}

	if formatter.Format == "json" {
		return formatter.Success(outlines)
	}
	for i, o := range outlines {
		if i > 0 {
			fmt.Fprintln(formatter.Writer)
		}
		fmt.Fprintln(formatter.Writer, strings.Join(o.Outline, "\n"))
	}
	return nil
}
