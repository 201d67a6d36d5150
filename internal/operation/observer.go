package operation

// Observer receives task lifecycle events. Implementations must be safe for
// concurrent use and must not block: events are delivered from the driver
// goroutine.
type Observer interface {
	TaskStarted(t *Task)
	TaskFinished(t *Task, status Status)
	OpFailed(t *Task, err *ExecutionError)
}

type nopObserver struct{}

func (nopObserver) TaskStarted(*Task)               {}
func (nopObserver) TaskFinished(*Task, Status)      {}
func (nopObserver) OpFailed(*Task, *ExecutionError) {}
