package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/specialistvlad/flowgridgo/internal/asset"
	"github.com/specialistvlad/flowgridgo/internal/checkpoint"
	"github.com/specialistvlad/flowgridgo/internal/ctxlog"
	"github.com/specialistvlad/flowgridgo/internal/graph"
	"github.com/specialistvlad/flowgridgo/internal/resilience"
)

// Options configures an Engine.
type Options struct {
	// Workers bounds level-parallel asset execution. Values below 1 fall
	// back to DefaultWorkers.
	Workers int
	// Checkpoints, when set, enables resume: completed (run, asset) pairs
	// are skipped on re-execution with the same run id.
	Checkpoints checkpoint.Store
	// DeadLetters, when set, receives every permanently failed asset.
	DeadLetters *resilience.DeadLetterQueue
	// DefaultRetry is the policy applied under StrategyRetry to assets that
	// declare none of their own. Nil selects resilience.DefaultRetryConfig.
	DefaultRetry *resilience.RetryConfig
}

// DefaultWorkers is the worker pool size used when none is configured.
const DefaultWorkers = 4

// Engine orchestrates the end-to-end execution of asset graphs. A single
// Engine is safe for concurrent runs: all per-run state lives on the stack of
// Execute, and the only shared mutable state is the keyed breaker map and the
// injected stores.
type Engine struct {
	registry     *asset.Registry
	workers      int
	checkpoints  checkpoint.Store
	deadLetters  *resilience.DeadLetterQueue
	defaultRetry resilience.RetryConfig

	// breakers are shared across runs so a persistently failing operator
	// stays isolated between executions. Keyed by graph/asset.
	breakerMu sync.Mutex
	breakers  map[string]*resilience.CircuitBreaker
}

// New creates an Engine bound to the given registry.
func New(registry *asset.Registry, opts Options) *Engine {
	workers := opts.Workers
	if workers < 1 {
		workers = DefaultWorkers
	}
	retry := resilience.DefaultRetryConfig
	if opts.DefaultRetry != nil {
		retry = *opts.DefaultRetry
	}
	return &Engine{
		registry:     registry,
		workers:      workers,
		checkpoints:  opts.Checkpoints,
		deadLetters:  opts.DeadLetters,
		defaultRetry: retry,
		breakers:     make(map[string]*resilience.CircuitBreaker),
	}
}

// runState is the mutable bookkeeping for one Execute call. It is guarded by
// a single mutex; workers touch it only briefly between operator invocations.
type runState struct {
	mu      sync.Mutex
	results map[string]*AssetResult
	outputs map[string][]asset.Record
	// skipped maps an asset to the upstream failure that excluded it.
	skipped map[string]string
	failed  bool
}

func (st *runState) setResult(res *AssetResult) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.results[res.AssetName] = res
	if res.Err != nil {
		st.failed = true
	}
}

func (st *runState) setOutput(name string, data []asset.Record) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.outputs[name] = data
}

func (st *runState) output(name string) ([]asset.Record, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	data, ok := st.outputs[name]
	return data, ok
}

// Execute runs the targets' closure of the graph against the run context.
// Operator-level failures never surface as a returned error; they are
// captured in the ExecutionResult. Only graph-level errors (unknown targets)
// or engine misuse return a non-nil error.
func (e *Engine) Execute(ctx context.Context, g *graph.Graph, pctx *asset.PipelineContext, targets []string, strategy ErrorStrategy) (*ExecutionResult, error) {
	if g == nil {
		return nil, fmt.Errorf("engine: nil graph")
	}
	if pctx == nil {
		return nil, fmt.Errorf("engine: nil pipeline context")
	}
	if pctx.RunID == "" {
		pctx.RunID = uuid.NewString()
	}

	logger := ctxlog.FromContext(ctx).With("run_id", pctx.RunID, "graph", g.Name())
	ctx = ctxlog.WithLogger(ctx, logger)

	levels, err := g.Levels(targets...)
	if err != nil {
		return nil, err
	}

	logger.Info("🚀 Starting execution.", "levels", len(levels), "strategy", strategy.String(), "workers", e.workers)
	started := time.Now()

	st := &runState{
		results: make(map[string]*AssetResult),
		outputs: make(map[string][]asset.Record),
		skipped: make(map[string]string),
	}

	for i, level := range levels {
		names := e.dispatchable(g, st, level)
		if len(names) == 0 {
			continue
		}
		logger.Debug("Dispatching level.", "level", i, "assets", names)
		e.runLevel(ctx, g, pctx, st, names, strategy)

		if strategy == StrategyFailFast && st.failed {
			logger.Warn("Terminal failure under FAIL_FAST, aborting remaining levels.", "level", i)
			break
		}
		e.propagateSkips(g, st, names)
	}

	result := e.aggregate(ctx, g, pctx.RunID, st, time.Since(started))
	if result.Success {
		logger.Info("🏁 Execution finished.", "succeeded", result.Succeeded, "duration", result.Duration)
	} else {
		logger.Error("🏁 Execution finished with failures.",
			"succeeded", result.Succeeded, "failed", result.Failed, "skipped", result.Skipped, "duration", result.Duration)
	}
	return result, nil
}

// pushDeadLetter records a permanently failed asset on the dead-letter
// queue, when one is attached.
func (e *Engine) pushDeadLetter(runID, assetName string, res *AssetResult) {
	if e.deadLetters == nil {
		return
	}
	e.deadLetters.Push(resilience.DeadLetter{
		RunID:     runID,
		AssetName: assetName,
		Attempts:  res.Attempts,
		Err:       res.Err,
		FailedAt:  time.Now(),
	})
}

// dispatchable filters a level down to the assets not excluded by an
// upstream failure, recording a skip result for each excluded asset.
func (e *Engine) dispatchable(g *graph.Graph, st *runState, level []string) []string {
	st.mu.Lock()
	defer st.mu.Unlock()

	var names []string
	for _, name := range level {
		if cause, skip := st.skipped[name]; skip {
			st.results[name] = &AssetResult{
				AssetName:  name,
				Skipped:    true,
				SkipReason: cause,
			}
			continue
		}
		names = append(names, name)
	}
	return names
}

// runLevel dispatches every asset of one level onto the bounded worker pool
// and blocks until all of them reach a terminal state. No asset of the next
// level starts before that.
func (e *Engine) runLevel(ctx context.Context, g *graph.Graph, pctx *asset.PipelineContext, st *runState, names []string, strategy ErrorStrategy) {
	sem := make(chan struct{}, e.workers)
	var wg sync.WaitGroup

	for _, name := range names {
		a, ok := g.Asset(name)
		if !ok {
			// Levels come from the graph itself, so this cannot happen.
			continue
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(a *asset.Asset) {
			defer wg.Done()
			defer func() { <-sem }()
			st.setResult(e.runAsset(ctx, g, pctx, st, a, strategy))
		}(a)
	}

	wg.Wait()
}

// propagateSkips marks the transitive dependents of every newly failed asset
// as skipped so later levels exclude them.
func (e *Engine) propagateSkips(g *graph.Graph, st *runState, names []string) {
	st.mu.Lock()
	defer st.mu.Unlock()

	for _, name := range names {
		res, ok := st.results[name]
		if !ok || res.Err == nil {
			continue
		}
		for _, dependent := range g.TransitiveDependents(name) {
			if _, already := st.skipped[dependent]; !already {
				st.skipped[dependent] = name
			}
		}
	}
}

// aggregate folds all per-asset outcomes into the immutable ExecutionResult.
func (e *Engine) aggregate(ctx context.Context, g *graph.Graph, runID string, st *runState, duration time.Duration) *ExecutionResult {
	st.mu.Lock()
	defer st.mu.Unlock()

	result := &ExecutionResult{
		RunID:    runID,
		Results:  make(map[string]AssetResult, len(st.results)),
		Duration: duration,
	}

	// Walk in insertion order so the error list is deterministic; insertion
	// order is a valid topological tie-break for reporting.
	order, err := g.TopologicalOrder()
	if err != nil {
		// The graph was validated at build time; fall back to names.
		ctxlog.FromContext(ctx).Warn("Falling back to insertion order for aggregation.", "error", err)
		order = g.Names()
	}

	for _, name := range order {
		res, ok := st.results[name]
		if !ok {
			continue
		}
		result.Results[name] = *res
		switch {
		case res.Err != nil:
			result.Failed++
			result.Errors = append(result.Errors, res.Err)
		case res.Skipped:
			result.Skipped++
		case res.Success:
			result.Succeeded++
		}
		if res.Attempts > 0 {
			result.Executed++
		}
	}

	result.Success = result.Failed == 0 && result.Skipped == 0
	return result
}
