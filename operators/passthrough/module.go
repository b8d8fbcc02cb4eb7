package passthrough

import (
	"context"

	"github.com/specialistvlad/flowgridgo/internal/asset"
)

// Module implements the asset.Module interface for this package.
type Module struct{}

// OnRunPassthrough is the handler for the 'passthrough' operator. It copies
// its upstream records downstream unchanged, which makes intermediate
// materialization points cheap to declare.
func OnRunPassthrough(_ context.Context, input []asset.Record, _ *asset.PipelineContext) ([]asset.Record, error) {
	out := make([]asset.Record, len(input))
	copy(out, input)
	return out, nil
}

// Register registers the operator factory with the registry.
func (m *Module) Register(r *asset.Registry) {
	r.RegisterOperator("passthrough", func(_ map[string]string) (asset.Operator, error) {
		return asset.OperatorFunc(OnRunPassthrough), nil
	})
}
