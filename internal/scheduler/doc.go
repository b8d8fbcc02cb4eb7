// Package scheduler runs the control loop that turns schedules into
// executions. A single dedicated goroutine wakes every check interval,
// evaluates each active schedule's trigger condition against its persisted
// last-triggered time, dispatches due runs through the execution engine, and
// records an audit event for every trigger. Because all trigger bookkeeping
// happens on that one goroutine, it is race-free by construction.
package scheduler
