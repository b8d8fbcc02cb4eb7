// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file defines the Schedule structure: a trigger definition written
// inside a pipeline block. The (type, spec) pair is kept verbatim; the
// scheduler's parser is the single authority on what a valid cron
// expression, interval or event spec looks like.
package model

import "fmt"

// Schedule is the format-agnostic representation of a `schedule` block.
type Schedule struct {
	Name     string
	Type     string
	Spec     string
	Timezone string
	Targets  []string
}

// hclSchedule represents a single `schedule` block for decoding.
type hclSchedule struct {
	Name     string   `hcl:"name,label"`
	Type     string   `hcl:"type"`
	Spec     string   `hcl:"spec"`
	Timezone string   `hcl:"timezone,optional"`
	Targets  []string `hcl:"targets,optional"`
}

// newScheduleFromHCL creates a Schedule from a decoded schedule block.
func newScheduleFromHCL(parsed *hclSchedule) (*Schedule, error) {
	if parsed.Name == "" {
		return nil, fmt.Errorf("schedule block is missing a name label")
	}
	if parsed.Type == "" || parsed.Spec == "" {
		return nil, fmt.Errorf("schedule %q needs both a type and a spec", parsed.Name)
	}
	return &Schedule{
		Name:     parsed.Name,
		Type:     parsed.Type,
		Spec:     parsed.Spec,
		Timezone: parsed.Timezone,
		Targets:  parsed.Targets,
	}, nil
}
