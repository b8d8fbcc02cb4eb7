package checkpoint

import (
	"context"
	"time"
)

// Status is the recorded outcome of an asset within a run. Only completions
// are checkpointed; anything absent from the store is treated as not run.
type Status string

// StatusComplete marks an asset that finished successfully within its run.
const StatusComplete Status = "complete"

// State is one durable completion marker, keyed by (run id, asset name).
type State struct {
	RunID       string    `json:"run_id"`
	AssetName   string    `json:"asset_name"`
	Status      Status    `json:"status"`
	CompletedAt time.Time `json:"completed_at"`
}

// Store persists completion markers. Implementations must serialize
// concurrent writes to the same run (single-writer-per-key); concurrent reads
// are always safe.
//
// Read failures are not fatal to a run: the engine logs them and proceeds as
// if no checkpoint existed, which safely re-runs the asset.
type Store interface {
	// MarkComplete records that the asset finished successfully in the run.
	MarkComplete(ctx context.Context, runID, assetName string) error
	// IsComplete reports whether the asset already completed in the run.
	IsComplete(ctx context.Context, runID, assetName string) (bool, error)
	// Run returns all completion markers recorded for the run.
	Run(ctx context.Context, runID string) (map[string]State, error)
	// Clear removes every marker for the run.
	Clear(ctx context.Context, runID string) error
}
