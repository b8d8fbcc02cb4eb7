package asset

import (
	"fmt"
	"log/slog"
)

// OperatorFactory constructs an operator instance from its per-asset
// configuration block.
type OperatorFactory func(config map[string]string) (Operator, error)

// Module is implemented by operator packages that contribute their factories
// to a Registry at startup.
type Module interface {
	Register(r *Registry)
}

// Registry holds the registered operator factories and IO managers for a
// single application instance. It is constructed once at startup and passed
// by reference wherever bindings are resolved; there is deliberately no
// process-wide singleton.
type Registry struct {
	operators  map[string]OperatorFactory
	ioManagers map[string]IOManager
}

// NewRegistry creates and initializes an empty Registry instance.
func NewRegistry() *Registry {
	return &Registry{
		operators:  make(map[string]OperatorFactory),
		ioManagers: make(map[string]IOManager),
	}
}

// RegisterOperator registers a factory for the given operator type name.
// Registering the same name twice is a programmer error and panics.
func (r *Registry) RegisterOperator(name string, factory OperatorFactory) {
	if _, exists := r.operators[name]; exists {
		panic(fmt.Sprintf("operator type '%s' already registered", name))
	}
	slog.Debug("Registering operator type.", "name", name)
	r.operators[name] = factory
}

// RegisterIOManager registers a storage adapter under the given binding name.
// Registering the same name twice is a programmer error and panics.
func (r *Registry) RegisterIOManager(name string, mgr IOManager) {
	if _, exists := r.ioManagers[name]; exists {
		panic(fmt.Sprintf("io manager '%s' already registered", name))
	}
	slog.Debug("Registering io manager.", "name", name)
	r.ioManagers[name] = mgr
}

// NewOperator constructs an operator of the given type with its config.
func (r *Registry) NewOperator(name string, config map[string]string) (Operator, error) {
	factory, ok := r.operators[name]
	if !ok {
		return nil, fmt.Errorf("unknown operator type %q", name)
	}
	op, err := factory(config)
	if err != nil {
		return nil, fmt.Errorf("constructing operator %q: %w", name, err)
	}
	return op, nil
}

// IOManager resolves a registered storage adapter by binding name.
func (r *Registry) IOManager(name string) (IOManager, error) {
	mgr, ok := r.ioManagers[name]
	if !ok {
		return nil, fmt.Errorf("unknown io manager %q", name)
	}
	return mgr, nil
}

// OperatorTypes returns the number of registered operator types.
func (r *Registry) OperatorTypes() int {
	return len(r.operators)
}
