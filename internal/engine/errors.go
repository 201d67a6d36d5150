package engine

import (
	"errors"
	"fmt"
)

// RuntimeError represents an error detected while setting up or running the
// engine.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// Scene names the affected scene, if any.
	Scene string

	// TaskID identifies the affected task, if any.
	TaskID string

	// Err is the underlying cause.
	Err error
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeDuplicateMainLoop indicates more than one scene without triggers.
	ErrCodeDuplicateMainLoop RuntimeErrorCode = "DUPLICATE_MAIN_LOOP"

	// ErrCodeNoStates indicates the engine was built without a state registry.
	ErrCodeNoStates RuntimeErrorCode = "NO_STATES"

	// ErrCodeStartFailed indicates a matched task could not be started.
	ErrCodeStartFailed RuntimeErrorCode = "START_FAILED"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Scene != "" && e.TaskID != "" {
		msg = fmt.Sprintf("%s (scene=%s, task=%s)", msg, e.Scene, e.TaskID)
	} else if e.Scene != "" {
		msg = fmt.Sprintf("%s (scene=%s)", msg, e.Scene)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// IsStartError returns true if err is a task start failure.
// Uses errors.As to handle wrapped errors.
func IsStartError(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeStartFailed
	}
	return false
}

// NewStartError creates a RuntimeError for a task that failed to start.
func NewStartError(scene, taskID string, err error) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeStartFailed,
		Message: "task failed to start",
		Scene:   scene,
		TaskID:  taskID,
		Err:     err,
	}
}
