// Package testutil provides shared operator fakes for engine, scheduler and
// backfill tests.
package testutil

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/specialistvlad/flowgridgo/internal/asset"
)

// CountingOperator records how many times it ran and returns a fixed output.
type CountingOperator struct {
	calls  atomic.Int32
	Output []asset.Record
}

// Run implements asset.Operator.
func (o *CountingOperator) Run(_ context.Context, _ []asset.Record, _ *asset.PipelineContext) ([]asset.Record, error) {
	o.calls.Add(1)
	return o.Output, nil
}

// Calls returns the number of completed invocations.
func (o *CountingOperator) Calls() int {
	return int(o.calls.Load())
}

// FailingOperator always fails.
type FailingOperator struct {
	calls atomic.Int32
	Err   error
}

// Run implements asset.Operator.
func (o *FailingOperator) Run(_ context.Context, _ []asset.Record, _ *asset.PipelineContext) ([]asset.Record, error) {
	o.calls.Add(1)
	if o.Err != nil {
		return nil, o.Err
	}
	return nil, errors.New("operator failed")
}

// Calls returns the number of completed invocations.
func (o *FailingOperator) Calls() int {
	return int(o.calls.Load())
}

// FlakyOperator fails its first FailuresBeforeSuccess invocations, then
// succeeds with Output.
type FlakyOperator struct {
	calls                 atomic.Int32
	FailuresBeforeSuccess int
	Output                []asset.Record
}

// Run implements asset.Operator.
func (o *FlakyOperator) Run(_ context.Context, _ []asset.Record, _ *asset.PipelineContext) ([]asset.Record, error) {
	call := int(o.calls.Add(1))
	if call <= o.FailuresBeforeSuccess {
		return nil, errors.New("transient failure")
	}
	return o.Output, nil
}

// Calls returns the number of completed invocations.
func (o *FlakyOperator) Calls() int {
	return int(o.calls.Load())
}

// BlockingOperator blocks until its context is done.
type BlockingOperator struct{}

// Run implements asset.Operator.
func (o *BlockingOperator) Run(ctx context.Context, _ []asset.Record, _ *asset.PipelineContext) ([]asset.Record, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

// RecordingOperator appends the names it was invoked for to a shared slice,
// so tests can assert on execution order across assets.
type RecordingOperator struct {
	Name string
	Log  *RunLog
}

// Run implements asset.Operator.
func (o *RecordingOperator) Run(_ context.Context, input []asset.Record, _ *asset.PipelineContext) ([]asset.Record, error) {
	o.Log.Append(o.Name)
	out := make([]asset.Record, len(input))
	copy(out, input)
	return out, nil
}

// RunLog is a concurrency-safe record of asset execution order.
type RunLog struct {
	mu    sync.Mutex
	names []string
}

// Append records one execution.
func (l *RunLog) Append(name string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.names = append(l.names, name)
}

// Names returns a copy of the recorded order.
func (l *RunLog) Names() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.names))
	copy(out, l.names)
	return out
}

// Records builds n synthetic records.
func Records(n int) []asset.Record {
	out := make([]asset.Record, n)
	for i := range out {
		out[i] = asset.Record{"index": i}
	}
	return out
}
