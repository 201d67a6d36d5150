// Package engine orchestrates scenes, states and tasks.
//
// ARCHITECTURE:
//
// State updates arrive from any goroutine through Record, RecordValue and
// Clear. Each update writes the state's recorder and enqueues the state name.
// Tick drains the queue and, in order:
//
//  1. Stops the running task if one of its interrupt states was updated.
//  2. Evaluates every trigger scene fired by an updated state (rate
//     limited). A match replaces the running task only if that task is
//     preemptable by the scene's priority.
//  3. If no task is running and no trigger scene started one in this tick,
//     evaluates the main-loop scene (rate limited) and starts its match.
//
// Tick calls are serialized. At most one task is current at a time; a
// stopped task may still be unwinding its current op while the next one
// starts. The engine lock is never held while starting or stopping a task.
//
// Run drives Tick from the update queue and a ticker until its context is
// cancelled or Stop is called.
//
// Failures to start a task are logged and the engine keeps running
// ("log and continue").
package engine
