package engine

import (
	"fmt"
	"strings"
)

// ErrorStrategy governs the blast radius of a terminal asset failure within
// one run.
type ErrorStrategy int

const (
	// StrategyFailFast stops dispatching further levels after the first
	// terminal failure; already-dispatched siblings finish naturally.
	StrategyFailFast ErrorStrategy = iota
	// StrategyContinue skips the failed asset's transitive dependents and
	// lets independent branches continue normally.
	StrategyContinue
	// StrategyRetry behaves like StrategyContinue, but failures are first
	// retried per the bound retry policy before being treated as terminal.
	StrategyRetry
)

// String returns the canonical name of the strategy.
func (s ErrorStrategy) String() string {
	switch s {
	case StrategyContinue:
		return "continue"
	case StrategyRetry:
		return "retry"
	default:
		return "fail_fast"
	}
}

// ParseErrorStrategy resolves a configuration string into an ErrorStrategy,
// once, at the edge; execution dispatches on the tag.
func ParseErrorStrategy(s string) (ErrorStrategy, error) {
	switch strings.ToLower(strings.ReplaceAll(s, "-", "_")) {
	case "", "fail_fast", "failfast":
		return StrategyFailFast, nil
	case "continue":
		return StrategyContinue, nil
	case "retry":
		return StrategyRetry, nil
	default:
		return StrategyFailFast, fmt.Errorf("unknown error strategy %q", s)
	}
}

// OperatorError wraps a failure raised by an asset's operator. It is caught
// per asset and becomes that asset's terminal error; it never propagates past
// the engine boundary.
type OperatorError struct {
	AssetName string
	Err       error
}

// Error implements the error interface.
func (e *OperatorError) Error() string {
	return fmt.Sprintf("asset '%s' failed: %v", e.AssetName, e.Err)
}

// Unwrap exposes the underlying operator error.
func (e *OperatorError) Unwrap() error {
	return e.Err
}
