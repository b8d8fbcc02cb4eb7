package engine

import (
	"time"
)

// AssetResult is the immutable outcome of one asset's execution within a run.
type AssetResult struct {
	AssetName string
	// Success is true when the asset produced output, either by running its
	// operator or by reusing a checkpointed completion.
	Success bool
	// Skipped is true when the asset never ran because an upstream
	// dependency failed.
	Skipped bool
	// SkipReason names the failed upstream asset for skipped results.
	SkipReason string
	// FromCheckpoint is true when a prior run's completion marker was reused
	// and the operator was not invoked.
	FromCheckpoint bool
	// Records is the number of output records the operator produced.
	Records int
	// Attempts counts operator invocations, including retries.
	Attempts int
	Duration time.Duration
	Err      error
}

// ExecutionResult is the immutable aggregate outcome of one Execute call.
// It is produced once per call and never mutated after return.
type ExecutionResult struct {
	RunID   string
	Success bool
	// Results maps asset name to its outcome. Assets never dispatched
	// because a FAIL_FAST abort stopped their level are absent.
	Results map[string]AssetResult
	// Errors lists every terminal asset error in topological order.
	Errors []error
	// Executed counts assets whose operator was actually invoked.
	Executed int
	// Succeeded counts successful assets, including checkpoint reuse.
	Succeeded int
	Failed    int
	Skipped   int
	Duration  time.Duration
}
