// Package app wires the application together: it loads pipeline definitions,
// registers operator modules, builds the dependency graph, constructs the
// stores and the execution engine, and runs one of the three modes (single
// execution, schedule daemon, backfill). Construction panics on fatal
// configuration errors; the CLI entrypoint recovers and turns that into a
// clean exit.
package app
