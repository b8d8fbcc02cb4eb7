package app

import (
	"github.com/specialistvlad/flowgridgo/internal/asset"
	"github.com/specialistvlad/flowgridgo/operators/generate"
	"github.com/specialistvlad/flowgridgo/operators/noop"
	"github.com/specialistvlad/flowgridgo/operators/passthrough"
)

// coreModules is the definitive list of all operator modules that are
// compiled into the flowgridgo binary.
var coreModules = []asset.Module{
	&noop.Module{},
	&generate.Module{},
	&passthrough.Module{},
}
