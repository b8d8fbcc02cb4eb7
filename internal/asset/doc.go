// Package asset defines the core pipeline vocabulary: the Asset unit of data
// production, the Operator and IOManager boundary interfaces, the per-run
// PipelineContext, and the explicit Registry that binds operator type names
// to Go implementations.
package asset
