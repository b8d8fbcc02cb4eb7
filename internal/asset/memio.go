package asset

import (
	"context"
	"fmt"
	"sync"
)

// MemoryIOManager is an ephemeral IOManager keeping materialized outputs in
// memory, keyed by (pipeline, asset). It backs the default "memory" binding
// and test wiring. Storage is replace-only; accumulation for incremental
// assets is the engine's concern, not the adapter's.
type MemoryIOManager struct {
	data sync.Map // key: pipelineID + "/" + assetName, value: []Record
}

// NewMemoryIOManager creates an empty in-memory IO manager.
func NewMemoryIOManager() *MemoryIOManager {
	return &MemoryIOManager{}
}

func memKey(pctx *PipelineContext, assetName string) string {
	return pctx.PipelineID + "/" + assetName
}

// HandleOutput stores the asset's output, replacing any previous run's data.
func (m *MemoryIOManager) HandleOutput(_ context.Context, pctx *PipelineContext, assetName string, data []Record) error {
	out := make([]Record, len(data))
	copy(out, data)
	m.data.Store(memKey(pctx, assetName), out)
	return nil
}

// LoadInput returns the stored output of the named asset.
func (m *MemoryIOManager) LoadInput(_ context.Context, pctx *PipelineContext, assetName string) ([]Record, error) {
	v, ok := m.data.Load(memKey(pctx, assetName))
	if !ok {
		return nil, fmt.Errorf("no stored output for asset %q", assetName)
	}
	stored := v.([]Record)
	out := make([]Record, len(stored))
	copy(out, stored)
	return out, nil
}
