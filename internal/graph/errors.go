package graph

import "fmt"

// CircularDependencyError reports a dependency cycle found at build time. It
// names one asset participating in the cycle.
type CircularDependencyError struct {
	Asset string
}

// Error implements the error interface.
func (e *CircularDependencyError) Error() string {
	return fmt.Sprintf("circular dependency detected involving asset '%s'", e.Asset)
}

// UnknownAssetError reports a dependency reference to an asset that does not
// exist in the graph, or an unknown execution target.
type UnknownAssetError struct {
	Asset string
	// ReferencedBy is the asset declaring the dangling dependency. Empty when
	// the unknown name was an execution target.
	ReferencedBy string
}

// Error implements the error interface.
func (e *UnknownAssetError) Error() string {
	if e.ReferencedBy == "" {
		return fmt.Sprintf("unknown asset '%s'", e.Asset)
	}
	return fmt.Sprintf("asset '%s' depends on unknown asset '%s'", e.ReferencedBy, e.Asset)
}

// DuplicateAssetError reports two assets sharing one name at build time.
type DuplicateAssetError struct {
	Asset string
}

// Error implements the error interface.
func (e *DuplicateAssetError) Error() string {
	return fmt.Sprintf("duplicate asset name '%s'", e.Asset)
}
