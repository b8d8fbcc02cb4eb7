package engine

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/specialistvlad/flowgridgo/internal/asset"
	"github.com/specialistvlad/flowgridgo/internal/ctxlog"
	"github.com/specialistvlad/flowgridgo/internal/graph"
	"github.com/specialistvlad/flowgridgo/internal/resilience"
)

// runAsset executes a single asset to a terminal state: checkpoint reuse,
// circuit-breaker admission, operator invocation with retry, output handling
// and checkpointing. It never panics across the boundary and never returns a
// nil result.
func (e *Engine) runAsset(ctx context.Context, g *graph.Graph, pctx *asset.PipelineContext, st *runState, a *asset.Asset, strategy ErrorStrategy) *AssetResult {
	logger := ctxlog.FromContext(ctx).With("asset", a.Name)
	started := time.Now()
	res := &AssetResult{AssetName: a.Name}

	// Resume: an asset already checkpointed complete for this run id is not
	// re-run. Its stored output is reloaded when an IO manager is bound;
	// otherwise the synthetic success alone is reused.
	if e.checkpoints != nil {
		done, err := e.checkpoints.IsComplete(ctx, pctx.RunID, a.Name)
		if err != nil {
			// Safe default: treat an unreadable checkpoint as absent.
			logger.Warn("Checkpoint read failed, re-running asset.", "error", err)
		} else if done {
			logger.Info("⏭️ Asset already complete in this run, skipping operator.")
			res.Success = true
			res.FromCheckpoint = true
			if data, err := e.loadStored(ctx, pctx, a); err == nil {
				st.setOutput(a.Name, data)
				res.Records = len(data)
			}
			res.Duration = time.Since(started)
			return res
		}
	}

	input, err := e.gatherInput(ctx, g, pctx, st, a)
	if err != nil {
		res.Err = &OperatorError{AssetName: a.Name, Err: err}
		res.Duration = time.Since(started)
		e.recordFailure(ctx, g, pctx, a, res)
		return res
	}

	// A breaker rejection is terminal immediately: no retry budget is spent
	// on a known-bad dependency.
	breaker := e.breakerFor(g.Name(), a)
	if breaker != nil {
		if err := breaker.Allow(); err != nil {
			logger.Warn("Circuit breaker rejected asset execution.", "error", err)
			res.Err = err
			res.Duration = time.Since(started)
			e.pushDeadLetter(pctx.RunID, a.Name, res)
			return res
		}
	}

	var attempts atomic.Int32
	var output []asset.Record
	invoke := func(ctx context.Context) error {
		attempts.Add(1)
		out, err := e.invokeOperator(ctx, a, input, pctx)
		if err != nil {
			return err
		}
		output = out
		return nil
	}

	var runErr error
	if cfg := e.retryConfigFor(a, strategy); cfg != nil {
		runErr = resilience.Do(ctx, *cfg, invoke)
	} else {
		runErr = invoke(ctx)
	}

	res.Attempts = int(attempts.Load())
	res.Duration = time.Since(started)

	if runErr != nil {
		logger.Error("Asset execution failed.", "attempts", res.Attempts, "error", runErr)
		res.Err = &OperatorError{AssetName: a.Name, Err: runErr}
		if breaker != nil {
			breaker.RecordFailure()
		}
		e.pushDeadLetter(pctx.RunID, a.Name, res)
		return res
	}
	if breaker != nil {
		breaker.RecordSuccess()
	}

	st.setOutput(a.Name, output)
	res.Records = len(output)

	// Materialize through the bound IO manager. A storage failure is an
	// asset failure: downstream consumers could otherwise read stale data.
	if a.IOManager != "" && a.Materialization != asset.MaterializationView {
		mgr, err := e.registry.IOManager(a.IOManager)
		if err != nil {
			res.Err = &OperatorError{AssetName: a.Name, Err: err}
			return res
		}
		stored := output
		if a.Materialization == asset.MaterializationIncremental {
			// Incremental assets accumulate: the run's records extend what
			// earlier runs materialized. The asset is the sole writer of its
			// key, so the read-modify-write needs no extra locking.
			if prev, err := mgr.LoadInput(ctx, pctx, a.Name); err == nil {
				stored = append(append(make([]asset.Record, 0, len(prev)+len(output)), prev...), output...)
			}
		}
		if err := mgr.HandleOutput(ctx, pctx, a.Name, stored); err != nil {
			res.Err = &OperatorError{AssetName: a.Name, Err: fmt.Errorf("storing output: %w", err)}
			e.pushDeadLetter(pctx.RunID, a.Name, res)
			return res
		}
	}

	if e.checkpoints != nil {
		if err := e.checkpoints.MarkComplete(ctx, pctx.RunID, a.Name); err != nil {
			// A lost marker only costs a redundant re-run on resume.
			logger.Warn("Checkpoint write failed.", "error", err)
		}
	}

	res.Success = true
	res.Duration = time.Since(started)
	logger.Info("✅ Asset finished.", "records", res.Records, "attempts", res.Attempts, "duration", res.Duration)
	return res
}

// recordFailure applies the shared failure bookkeeping for errors raised
// before the operator was ever invoked.
func (e *Engine) recordFailure(ctx context.Context, g *graph.Graph, pctx *asset.PipelineContext, a *asset.Asset, res *AssetResult) {
	ctxlog.FromContext(ctx).Error("Asset failed before operator invocation.", "asset", a.Name, "error", res.Err)
	if breaker := e.breakerFor(g.Name(), a); breaker != nil {
		breaker.RecordFailure()
	}
	e.pushDeadLetter(pctx.RunID, a.Name, res)
}

// gatherInput assembles the upstream records for an asset: in-memory outputs
// from this run where available, otherwise the upstream asset's bound IO
// manager (the resume path, where checkpointed assets never ran).
func (e *Engine) gatherInput(ctx context.Context, g *graph.Graph, pctx *asset.PipelineContext, st *runState, a *asset.Asset) ([]asset.Record, error) {
	var input []asset.Record
	for _, dep := range g.Dependencies(a.Name) {
		if data, ok := st.output(dep); ok {
			input = append(input, data...)
			continue
		}

		upstream, ok := g.Asset(dep)
		if !ok || upstream.IOManager == "" {
			// Nothing stored and nothing in memory: upstream produced no
			// reloadable output, pass nothing for it.
			continue
		}
		mgr, err := e.registry.IOManager(upstream.IOManager)
		if err != nil {
			return nil, err
		}
		data, err := mgr.LoadInput(ctx, pctx, dep)
		if err != nil {
			return nil, fmt.Errorf("loading upstream %q: %w", dep, err)
		}
		input = append(input, data...)
	}
	return input, nil
}

// loadStored reloads a checkpointed asset's materialized output, if any.
func (e *Engine) loadStored(ctx context.Context, pctx *asset.PipelineContext, a *asset.Asset) ([]asset.Record, error) {
	if a.IOManager == "" {
		return nil, fmt.Errorf("asset %q has no io manager", a.Name)
	}
	mgr, err := e.registry.IOManager(a.IOManager)
	if err != nil {
		return nil, err
	}
	return mgr.LoadInput(ctx, pctx, a.Name)
}

// invokeOperator calls the asset's operator, enforcing the asset's timeout in
// this worker wrapper rather than in the level-scheduling logic. The operator
// goroutine is left to finish naturally on timeout; its result is discarded.
func (e *Engine) invokeOperator(ctx context.Context, a *asset.Asset, input []asset.Record, pctx *asset.PipelineContext) ([]asset.Record, error) {
	runCtx := ctx
	if a.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, a.Timeout)
		defer cancel()
	}

	type outcome struct {
		out []asset.Record
		err error
	}
	ch := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- outcome{err: fmt.Errorf("operator panicked: %v", r)}
			}
		}()
		out, err := a.Operator.Run(runCtx, input, pctx)
		ch <- outcome{out: out, err: err}
	}()

	select {
	case o := <-ch:
		return o.out, o.err
	case <-runCtx.Done():
		if a.Timeout > 0 && ctx.Err() == nil {
			return nil, fmt.Errorf("operator timed out after %s: %w", a.Timeout, runCtx.Err())
		}
		return nil, runCtx.Err()
	}
}

// retryConfigFor resolves the effective retry policy for one asset: the
// asset's own policy wins; otherwise the engine default applies only under
// StrategyRetry.
func (e *Engine) retryConfigFor(a *asset.Asset, strategy ErrorStrategy) *resilience.RetryConfig {
	if a.Retry != nil {
		return a.Retry
	}
	if strategy == StrategyRetry {
		cfg := e.defaultRetry
		return &cfg
	}
	return nil
}

// breakerFor returns the shared circuit breaker for the asset, creating it
// on first use. Assets without breaker config get none.
func (e *Engine) breakerFor(graphName string, a *asset.Asset) *resilience.CircuitBreaker {
	if a.Breaker == nil {
		return nil
	}

	key := graphName + "/" + a.Name
	e.breakerMu.Lock()
	defer e.breakerMu.Unlock()

	b, ok := e.breakers[key]
	if !ok {
		b = resilience.NewCircuitBreaker(*a.Breaker)
		e.breakers[key] = b
	}
	return b
}
