// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// Package model provides the Go struct representation of the FlowGrid HCL
// configuration. Its core purpose is to create a strongly-typed, in-memory
// model of the user's definitions by parsing the raw HCL files.
//
// # Core Concepts
//
// The model is built around a few key structures:
//
//   - Pipeline: The root container representing one asset graph. It aggregates
//     the asset and schedule blocks parsed from one or more .hcl files.
//
//   - Asset: One node of the pipeline's dependency graph, naming the operator
//     that computes it, the assets it depends on, how its output is
//     materialized, and its per-asset resilience policy.
//
//   - Schedule: A trigger definition bound to the pipeline, given as its
//     (type, spec) pair plus timezone and target subset.
//
// Why a separate model package?
//
// This package acts as a critical intermediate layer. It organizes decoded
// HCL into a predictable structure that later stages consume: the app layer
// translates model values into runtime assets and schedules, and the graph
// builder validates the overall shape before anything executes. Keeping the
// decoded form separate from the runtime form means a malformed definition
// (bad cron string, unknown operator, unknown timezone) fails at load time
// with a file-level error, never mid-run.
package model
