package asset

import "context"

// Operator is the executable function bound to an asset. The engine treats it
// as an opaque unit of work: a file read, an API call, a SQL query or an
// in-memory transform are all the same from the engine's point of view.
// Implementations must be safe for use across sequential runs; a single run
// never invokes the same operator concurrently with itself.
type Operator interface {
	Run(ctx context.Context, input []Record, pctx *PipelineContext) ([]Record, error)
}

// OperatorFunc adapts a plain function to the Operator interface.
type OperatorFunc func(ctx context.Context, input []Record, pctx *PipelineContext) ([]Record, error)

// Run implements Operator.
func (f OperatorFunc) Run(ctx context.Context, input []Record, pctx *PipelineContext) ([]Record, error) {
	return f(ctx, input, pctx)
}

// IOManager is the storage boundary between asset executions. The engine
// calls HandleOutput after an asset succeeds and LoadInput when upstream data
// is not carried purely in memory between levels (for example when a
// checkpointed asset was skipped on resume).
type IOManager interface {
	HandleOutput(ctx context.Context, pctx *PipelineContext, assetName string, data []Record) error
	LoadInput(ctx context.Context, pctx *PipelineContext, assetName string) ([]Record, error)
}
