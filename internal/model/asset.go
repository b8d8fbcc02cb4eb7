// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file defines the Asset structure, the atomic unit of a Pipeline. It
// represents a single node of the dependency graph: the operator that
// computes it, the assets whose outputs it consumes, and how its own output
// is materialized.
//
// Why keep duration fields as strings here?
//
// The model captures exactly what the user wrote. Durations and enum values
// are decoded as strings and validated into their runtime types when the app
// translates the model into executable assets, so a bad value is reported
// against the configuration, not as a runtime surprise.
package model

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// Asset is the format-agnostic representation of an `asset` block.
type Asset struct {
	Name            string
	Operator        string
	DependsOn       []string
	Materialization string
	IOManager       string
	Timeout         string
	Config          map[string]string
	Schema          map[string]string
	Retry           *Retry
	CircuitBreaker  *CircuitBreaker
}

// Retry is the decoded per-asset `retry` block.
type Retry struct {
	MaxAttempts int    `hcl:"max_attempts"`
	Backoff     string `hcl:"backoff,optional"`
	BaseDelay   string `hcl:"base_delay,optional"`
	MaxDelay    string `hcl:"max_delay,optional"`
	Jitter      string `hcl:"jitter,optional"`
}

// CircuitBreaker is the decoded per-asset `circuit_breaker` block.
type CircuitBreaker struct {
	FailureThreshold int    `hcl:"failure_threshold"`
	Cooldown         string `hcl:"cooldown"`
}

// hclAsset represents a single `asset` block for decoding.
type hclAsset struct {
	Name            string          `hcl:"name,label"`
	Operator        string          `hcl:"operator"`
	DependsOn       []string        `hcl:"depends_on,optional"`
	Materialization string          `hcl:"materialization,optional"`
	IOManager       string          `hcl:"io_manager,optional"`
	Timeout         string          `hcl:"timeout,optional"`
	Config          hcl.Expression  `hcl:"config,optional"`
	Schema          hcl.Expression  `hcl:"schema,optional"`
	Retry           *Retry          `hcl:"retry,block"`
	CircuitBreaker  *CircuitBreaker `hcl:"circuit_breaker,block"`
}

// decodeStringMap evaluates a config or schema expression into a string map.
// Values written as numbers or booleans are converted to their string form,
// so `count = 100` and `count = "100"` decode identically.
func decodeStringMap(expr hcl.Expression, attr string) (map[string]string, error) {
	if expr == nil {
		return nil, nil
	}
	val, diags := expr.Value(nil)
	if diags.HasErrors() {
		return nil, fmt.Errorf("evaluating %s: %w", attr, diags)
	}
	if val.IsNull() {
		return nil, nil
	}
	if !val.Type().IsObjectType() && !val.Type().IsMapType() {
		return nil, fmt.Errorf("%s must be a map of values, got %s", attr, val.Type().FriendlyName())
	}

	out := make(map[string]string, val.LengthInt())
	for it := val.ElementIterator(); it.Next(); {
		key, elem := it.Element()
		str, err := convert.Convert(elem, cty.String)
		if err != nil {
			return nil, fmt.Errorf("%s value %q: %w", attr, key.AsString(), err)
		}
		out[key.AsString()] = str.AsString()
	}
	return out, nil
}

// newAssetFromHCL creates an Asset from a decoded asset block.
func newAssetFromHCL(parsed *hclAsset) (*Asset, error) {
	if parsed.Name == "" {
		return nil, fmt.Errorf("asset block is missing a name label")
	}
	if parsed.Operator == "" {
		return nil, fmt.Errorf("asset %q does not name an operator", parsed.Name)
	}
	config, err := decodeStringMap(parsed.Config, "config")
	if err != nil {
		return nil, fmt.Errorf("asset %q: %w", parsed.Name, err)
	}
	schema, err := decodeStringMap(parsed.Schema, "schema")
	if err != nil {
		return nil, fmt.Errorf("asset %q: %w", parsed.Name, err)
	}
	return &Asset{
		Name:            parsed.Name,
		Operator:        parsed.Operator,
		DependsOn:       parsed.DependsOn,
		Materialization: parsed.Materialization,
		IOManager:       parsed.IOManager,
		Timeout:         parsed.Timeout,
		Config:          config,
		Schema:          schema,
		Retry:           parsed.Retry,
		CircuitBreaker:  parsed.CircuitBreaker,
	}, nil
}
