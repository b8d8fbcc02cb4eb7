package noop

import (
	"context"

	"github.com/specialistvlad/flowgridgo/internal/asset"
)

// Module implements the asset.Module interface for this package.
type Module struct{}

// OnRunNoop is the handler for the 'noop' operator. It consumes its input
// and produces nothing, which makes it useful as a synchronization point in
// a graph.
func OnRunNoop(_ context.Context, _ []asset.Record, _ *asset.PipelineContext) ([]asset.Record, error) {
	return nil, nil
}

// Register registers the operator factory with the registry.
func (m *Module) Register(r *asset.Registry) {
	r.RegisterOperator("noop", func(_ map[string]string) (asset.Operator, error) {
		return asset.OperatorFunc(OnRunNoop), nil
	})
}
