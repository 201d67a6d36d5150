package operation

import (
	"errors"
	"fmt"
)

var (
	// ErrTaskAlreadyStarted is returned by RunAsync on a task that left StatusWaiting.
	ErrTaskAlreadyStarted = errors.New("task already started")

	// ErrTaskStopped is returned by RunAsync on a task stopped before it ran.
	ErrTaskStopped = errors.New("task stopped before start")
)

// ExecutionError records the failure of one op inside a task.
//
// Execution errors are recovered locally: the driver logs them and continues
// with the next op.
type ExecutionError struct {
	TaskID string
	Index  int    // position of the op in the task's op list
	Op     string // op name
	Err    error
}

// Error implements the error interface.
func (e *ExecutionError) Error() string {
	return fmt.Sprintf("task %s: op[%d] %s: %v", e.TaskID, e.Index, e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// IsExecutionError returns true if err is or wraps an *ExecutionError.
func IsExecutionError(err error) bool {
	var ee *ExecutionError
	return errors.As(err, &ee)
}

// PanicError wraps a value recovered from a panicking op.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}
