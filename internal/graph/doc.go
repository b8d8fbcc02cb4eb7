// Package graph provides the immutable asset dependency DAG: construction
// with duplicate/unknown/cycle validation, deterministic topological ordering
// restricted to target closures, and level partitioning for concurrent
// execution.
package graph
