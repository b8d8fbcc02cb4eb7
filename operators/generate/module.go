package generate

import (
	"context"
	"fmt"
	"strconv"

	"github.com/specialistvlad/flowgridgo/internal/asset"
)

// Module implements the asset.Module interface for this package.
type Module struct{}

// Generator emits a configurable number of synthetic records. It is the
// usual root of an example pipeline: no dependencies, deterministic output.
type Generator struct {
	count int
	label string
}

// NewGenerator constructs a Generator from its config block. Supported keys:
// "count" (number of records, default 1) and "label" (value stamped onto
// every record, default "generated").
func NewGenerator(config map[string]string) (*Generator, error) {
	g := &Generator{count: 1, label: "generated"}
	if raw, ok := config["count"]; ok {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid count %q", raw)
		}
		g.count = n
	}
	if label, ok := config["label"]; ok {
		g.label = label
	}
	return g, nil
}

// Run emits the configured records, ignoring any upstream input.
func (g *Generator) Run(_ context.Context, _ []asset.Record, _ *asset.PipelineContext) ([]asset.Record, error) {
	out := make([]asset.Record, g.count)
	for i := range out {
		out[i] = asset.Record{"index": i, "label": g.label}
	}
	return out, nil
}

// Register registers the operator factory with the registry.
func (m *Module) Register(r *asset.Registry) {
	r.RegisterOperator("generate", func(config map[string]string) (asset.Operator, error) {
		return NewGenerator(config)
	})
}
