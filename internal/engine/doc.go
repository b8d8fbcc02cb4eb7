// Package engine executes an asset subset of a graph against a run context.
// It walks the graph in topological levels, dispatches each level onto a
// bounded worker pool, applies retry and circuit-breaking on failure,
// checkpoints completions for resume, and aggregates every per-asset outcome
// into a single immutable ExecutionResult.
package engine
