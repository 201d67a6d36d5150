package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0
	ExitFailure      = 1 // invalid config or failed scenario assertions
	ExitCommandError = 2 // unreadable config root or scenario, unknown scene
)

// ExitError is a command error carrying the process exit code.
type ExitError struct {
	Code    int // ExitFailure or ExitCommandError
	Message string
	Err     error // optional cause
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates an ExitError.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError attaches an exit code to err.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode returns the exit code carried by err, or ExitFailure for
// errors without one.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter writes command results as text or JSON.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // verbose diagnostics; falls back to Writer
	Verbose   bool
}

// CLIResponse is the JSON envelope of every command.
type CLIResponse struct {
	Status string    `json:"status"`          // "ok" or "error"
	Data   any       `json:"data,omitempty"`  // command result
	Error  *CLIError `json:"error,omitempty"` // first problem found
}

// CLIError is the error part of a CLIResponse.
type CLIError struct {
	Code     string `json:"code"` // "E005", "E107", etc.
	Message  string `json:"message"`
	Path     string `json:"path,omitempty"`     // file and field path
	Template string `json:"template,omitempty"` // template being expanded
}

// Issue is one problem found in a config or scenario.
type Issue struct {
	Code     string `json:"code"`
	Path     string `json:"path,omitempty"`
	Template string `json:"template,omitempty"`
	Message  string `json:"message"`
}

// Location renders where the issue was found: the path, then the template
// in parentheses. Empty when neither is known.
func (i Issue) Location() string {
	switch {
	case i.Path != "" && i.Template != "":
		return fmt.Sprintf("%s (template %s)", i.Path, i.Template)
	case i.Template != "":
		return "template " + i.Template
	default:
		return i.Path
	}
}

func (i Issue) cliError() *CLIError {
	return &CLIError{Code: i.Code, Message: i.Message, Path: i.Path, Template: i.Template}
}

// Success writes data: as an "ok" response in JSON, with fmt.Println otherwise.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "ok",
			Data:   data,
		})
	}

	fmt.Fprintln(f.Writer, data)
	return nil
}

// Fail writes a single issue that ended the command.
//
//	Error [E101]: states expression is required
//	  at main.yml: handlers[0].states
func (f *OutputFormatter) Fail(issue Issue) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error:  issue.cliError(),
		})
	}

	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", issue.Code, issue.Message)
	if loc := issue.Location(); loc != "" {
		fmt.Fprintf(f.Writer, "  at %s\n", loc)
	}
	return nil
}

// Issues writes every issue found by a check under header. In JSON the
// response carries data and the first issue.
func (f *OutputFormatter) Issues(header string, data any, issues []Issue) error {
	if f.Format == "json" {
		resp := CLIResponse{Status: "error", Data: data}
		if len(issues) > 0 {
			resp.Error = issues[0].cliError()
		}
		return f.encode(resp)
	}

	fmt.Fprintln(f.Writer, header)
	for _, issue := range issues {
		fmt.Fprintln(f.Writer)
		if loc := issue.Location(); loc != "" {
			fmt.Fprintln(f.Writer, loc)
		}
		fmt.Fprintf(f.Writer, "  %s: %s\n", issue.Code, issue.Message)
	}
	return nil
}

// VerboseLog writes a diagnostic line when verbose output is on. It goes to
// ErrWriter so JSON on Writer stays parseable.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	w := f.ErrWriter
	if w == nil {
		w = f.Writer
	}
	fmt.Fprintf(w, format+"\n", args...)
}

// encode writes an indented JSON response.
func (f *OutputFormatter) encode(resp CLIResponse) error {
	encoder := json.NewEncoder(f.Writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(resp)
}
