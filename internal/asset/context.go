// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file defines the PipelineContext, the run-scoped mutable bag threaded
// through the call chain for a single execution.
//
// Why a mutex inside the context?
//
// A PipelineContext belongs to exactly one run, but within that run assets of
// the same topological level execute concurrently and may read or write the
// shared state map. The per-context mutex keeps that safe without any global
// locking. Contexts are never shared across concurrent runs; cross-run state
// lives only in the explicitly keyed stores (checkpoint, schedule).
package asset

import "sync"

// PipelineContext is per-run mutable state passed by reference through the
// call chain for that run only.
type PipelineContext struct {
	// PipelineID names the pipeline this run belongs to.
	PipelineID string
	// RunID uniquely identifies this execution. Re-running with the same
	// RunID resumes from the run's checkpoints.
	RunID string

	mu       sync.RWMutex
	config   map[string]string
	metadata map[string]string
	state    map[string]any
}

// NewPipelineContext creates a context for one run of the named pipeline.
func NewPipelineContext(pipelineID, runID string) *PipelineContext {
	return &PipelineContext{
		PipelineID: pipelineID,
		RunID:      runID,
		config:     make(map[string]string),
		metadata:   make(map[string]string),
		state:      make(map[string]any),
	}
}

// SetConfig stores a run-level configuration value.
func (p *PipelineContext) SetConfig(key, value string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.config[key] = value
}

// Config returns the configuration value for key, if present.
func (p *PipelineContext) Config(key string) (string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	v, ok := p.config[key]
	return v, ok
}

// SetMetadata stores a metadata value, such as the logical date of a
// backfill task.
func (p *PipelineContext) SetMetadata(key, value string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.metadata[key] = value
}

// Metadata returns the metadata value for key, if present.
func (p *PipelineContext) Metadata(key string) (string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	v, ok := p.metadata[key]
	return v, ok
}

// SetState stores an arbitrary state value shared between this run's assets.
func (p *PipelineContext) SetState(key string, value any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state[key] = value
}

// State returns the state value for key, if present.
func (p *PipelineContext) State(key string) (any, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	v, ok := p.state[key]
	return v, ok
}
