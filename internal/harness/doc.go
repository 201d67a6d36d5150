// Package harness replays timeline scenarios against the engine.
//
// A scenario is a scene configuration plus a list of steps. Each step moves a
// virtual clock, records or clears states and ticks the engine. The harness
// records a text trace of scheduling decisions and op executions, then checks
// assertions against it.
//
// # Scenario Format
//
//	name: dodge_preempts_main
//	description: "A priority scene preempts the main loop"
//	scenes:
//	  - handlers:
//	      - states: "[idle]"
//	        operations:
//	          - op_name: patrol
//	            block: true
//	  - triggers: [enemy]
//	    priority: 1
//	    handlers:
//	      - states: "[enemy]"
//	        operations: [dodge]
//	steps:
//	  - at: 0
//	    record: [idle]
//	  - at: 1
//	    record:
//	      - enemy
//	      - state: hp
//	        value: 40
//	assertions:
//	  - type: trace_order
//	    lines: ["op patrol", "preempted", "op dodge"]
//	  - type: task_status
//	    task: task-2
//	    status: completed
//
// Instead of inline scenes, config names a config root (see package loader)
// relative to the scenario file.
//
// # Ops
//
// Operation names are not looked up in a real registry. The builtin state ops
// (set_state, clear_state) and log work as usual. wait sleeps on the virtual
// clock and ends when a step moves the clock past its deadline. Every other
// name is a scripted op: it returns at once, or fails with the message in
// its fail param, or with block: true parks until the task is stopped.
//
// # Deterministic Testing
//
// Task IDs are task-1, task-2, ... in start order. Work submitted while the
// engine ticks is held until the tick returns, and every step waits until
// the current task has finished or is parked on the virtual clock. The same
// scenario therefore always yields the same trace, which RunWithGolden
// compares against testdata/golden/<name>.golden.
package harness
