// Package operation implements the scheduler's unit of execution.
//
// An AtomicOp is the smallest executable action; its vocabulary lives
// outside this package. A Task runs a resolved, ordered list of AtomicOps
// asynchronously on an injected executor and can be stopped cooperatively at
// any time.
//
// Task lifecycle:
//
//	StatusWaiting --RunAsync--> StatusRunning --last op returns--> StatusCompleted
//	      |                          |
//	      +---------Stop-------------+-------------------------> StatusStopped
//
// Scheduling: the driver loop is spawned outside the executor's bounded
// slots (see pool.Spawner) and every op's Execute is a separate submission.
// The driver blocks on its current op, never the caller of RunAsync. Ops within a task are strictly ordered; there is no
// ordering between tasks.
//
// Stop guarantee: the op executing when Stop takes the task lock is the last
// op that ever starts. The driver re-checks the running flag under the lock
// before selecting each op and right after each op returns.
//
// Failures inside an op never abort the task: they are logged, recorded as
// *ExecutionError in Task.Errors, and the driver moves on to the next op.
package operation
