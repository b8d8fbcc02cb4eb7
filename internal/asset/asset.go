// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file defines the Asset structure, the atomic unit of data production
// within a pipeline graph.
//
// Why the Asset struct?
//
// While an Operator defines the "what" (the executable unit of work), an Asset
// defines the node in the dependency graph: its name, what it depends on, how
// its output is materialized, and which IOManager persists it. Assets are
// fully resolved at construction time — operator bound, materialization tag
// parsed — so the execution engine never dispatches on raw strings.
package asset

import (
	"fmt"
	"strings"
	"time"

	"github.com/specialistvlad/flowgridgo/internal/resilience"
)

// Record is a single row of pipeline data flowing between assets.
type Record = map[string]any

// Materialization is the closed set of ways an asset's output is persisted.
type Materialization int

const (
	// MaterializationEphemeral keeps output in memory for the run only.
	MaterializationEphemeral Materialization = iota
	// MaterializationTable fully replaces the stored output on each run.
	MaterializationTable
	// MaterializationIncremental appends the run's output to the stored data.
	MaterializationIncremental
	// MaterializationView stores no data; downstream assets recompute it.
	MaterializationView
)

// String returns the canonical lower-case name of the materialization kind.
func (m Materialization) String() string {
	switch m {
	case MaterializationTable:
		return "table"
	case MaterializationIncremental:
		return "incremental"
	case MaterializationView:
		return "view"
	default:
		return "ephemeral"
	}
}

// ParseMaterialization resolves a configuration string into a Materialization
// tag. The string is matched once at construction; execution dispatches on
// the tag.
func ParseMaterialization(s string) (Materialization, error) {
	switch strings.ToLower(s) {
	case "", "ephemeral":
		return MaterializationEphemeral, nil
	case "table":
		return MaterializationTable, nil
	case "incremental":
		return MaterializationIncremental, nil
	case "view":
		return MaterializationView, nil
	default:
		return MaterializationEphemeral, fmt.Errorf("unknown materialization %q", s)
	}
}

// Asset is a named unit of data production in the pipeline graph. It is
// immutable after the graph that owns it has been built.
type Asset struct {
	// Name is the unique key of the asset within its graph.
	Name string
	// Operator is the bound executable unit of work.
	Operator Operator
	// DependsOn names the upstream assets whose outputs feed this one.
	DependsOn []string
	// Materialization selects how the asset's output is persisted.
	Materialization Materialization
	// IOManager names the registered storage adapter for this asset. Empty
	// means output is carried purely in memory between levels.
	IOManager string
	// Schema optionally maps column names to type names for documentation
	// and validation by excluded subsystems.
	Schema map[string]string
	// Timeout bounds a single operator invocation. Zero means no timeout.
	Timeout time.Duration
	// Retry overrides the run-level retry policy for this asset. Nil means
	// the asset follows the run's error strategy.
	Retry *resilience.RetryConfig
	// Breaker configures a per-asset circuit breaker. Nil disables it.
	Breaker *resilience.BreakerConfig
}

// Validate checks the construction-time invariants of a single asset.
func (a *Asset) Validate() error {
	if a.Name == "" {
		return fmt.Errorf("asset name must not be empty")
	}
	if a.Operator == nil {
		return fmt.Errorf("asset %q has no bound operator", a.Name)
	}
	for _, dep := range a.DependsOn {
		if dep == a.Name {
			return fmt.Errorf("asset %q depends on itself", a.Name)
		}
	}
	return nil
}
