package scene

import (
	"errors"
	"fmt"
)

// ConfigError reports a scene configuration problem found at load time.
//
// Config errors are fail-fast: the scene that produced one must not be built.
type ConfigError struct {
	// Code identifies the error category (E101-E199).
	Code ErrorCode

	// Path locates the offending field, e.g. "handlers[2].sub_states[0].states".
	Path string

	// Template names the template being expanded, if any.
	Template string

	// Message is a human-readable description.
	Message string
}

// ErrorCode categorizes config errors.
type ErrorCode string

const (
	ErrCodeMissingStates      ErrorCode = "E101" // handler without a states expression
	ErrCodeEmptySubStates     ErrorCode = "E102" // sub_states present but empty
	ErrCodeNoOperations       ErrorCode = "E103" // neither operations nor sub_states
	ErrCodeAmbiguousHandler   ErrorCode = "E104" // both operations and sub_states
	ErrCodeEmptyTemplateName  ErrorCode = "E105" // template reference with empty name
	ErrCodeTemplateNotFound   ErrorCode = "E106" // template reference that does not resolve
	ErrCodeTemplateCycle      ErrorCode = "E107" // template referenced while being expanded
	ErrCodeInvalidCondition   ErrorCode = "E108" // states expression does not parse
	ErrCodeUnknownOperation   ErrorCode = "E109" // op_getter rejected an operation
	ErrCodeInvalidFieldType   ErrorCode = "E110" // field has the wrong type
	ErrCodeInvalidSceneField  ErrorCode = "E111" // bad interval, priority, triggers
	ErrCodeDuplicateMainScene ErrorCode = "E112" // more than one scene without triggers
)

// Error implements the error interface.
func (e *ConfigError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Path != "" {
		msg = fmt.Sprintf("%s: %s: %s", e.Code, e.Path, e.Message)
	}
	if e.Template != "" {
		msg += fmt.Sprintf(" (template=%s)", e.Template)
	}
	return msg
}

// IsConfigError returns true if err is or wraps a *ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// IsCycleError returns true if err is a template cycle error.
func IsCycleError(err error) bool {
	var ce *ConfigError
	if errors.As(err, &ce) {
		return ce.Code == ErrCodeTemplateCycle
	}
	return false
}

// CodeOf returns the code of a config error, or "" if err is not one.
func CodeOf(err error) ErrorCode {
	var ce *ConfigError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ""
}

func newError(code ErrorCode, path, format string, args ...any) *ConfigError {
	return &ConfigError{Code: code, Path: path, Message: fmt.Sprintf(format, args...)}
}
