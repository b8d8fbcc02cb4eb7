package app

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/specialistvlad/flowgridgo/internal/asset"
	"github.com/specialistvlad/flowgridgo/internal/backfill"
	"github.com/specialistvlad/flowgridgo/internal/ctxlog"
	"github.com/specialistvlad/flowgridgo/internal/engine"
	"github.com/specialistvlad/flowgridgo/internal/scheduler"
)

// Run executes the main application logic based on the provided
// configuration: a backfill, the schedule daemon, or a single execution.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	strategy, err := engine.ParseErrorStrategy(a.config.Strategy)
	if err != nil {
		return err
	}

	switch {
	case a.config.BackfillStart != "":
		return a.runBackfill(ctx, strategy)
	case a.config.Daemon:
		return a.runDaemon(ctx, strategy)
	default:
		return a.runOnce(ctx, strategy)
	}
}

// runOnce performs a single execution of the selected pipeline. Passing a
// run id of a previous execution resumes it: checkpointed assets are skipped.
func (a *App) runOnce(ctx context.Context, strategy engine.ErrorStrategy) error {
	pctx := asset.NewPipelineContext(a.graph.Name(), a.config.RunID)

	result, err := a.engine.Execute(ctx, a.graph, pctx, a.config.Targets, strategy)
	if err != nil {
		return fmt.Errorf("execution failed: %w", err)
	}

	fmt.Fprintf(a.outW, "run %s: %d succeeded, %d failed, %d skipped in %s\n",
		result.RunID, result.Succeeded, result.Failed, result.Skipped, result.Duration.Round(time.Millisecond))
	if !result.Success {
		return fmt.Errorf("run %s finished with %d failed and %d skipped assets", result.RunID, result.Failed, result.Skipped)
	}
	return nil
}

// runDaemon registers the pipeline's schedules and runs the trigger loop
// until the context is canceled.
func (a *App) runDaemon(ctx context.Context, strategy engine.ErrorStrategy) error {
	sched := scheduler.New(a.schedStore, a.engine, a.graph, scheduler.Options{
		CheckInterval: a.config.CheckInterval,
		Strategy:      strategy,
	})
	if err := sched.LoadPersisted(ctx); err != nil {
		return err
	}
	if err := a.registerSchedules(ctx, sched); err != nil {
		return err
	}
	if len(sched.Snapshot()) == 0 {
		a.logger.Warn("No schedules registered, daemon has nothing to do.")
	}

	if err := sched.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	sched.Stop()
	return nil
}

// registerSchedules adds the pipeline's declared schedules to the scheduler,
// skipping names already present from a previous daemon run so restarts do
// not accumulate duplicates.
func (a *App) registerSchedules(ctx context.Context, sched *scheduler.Scheduler) error {
	existing := make(map[string]bool)
	for _, info := range sched.Snapshot() {
		existing[info.Name] = true
	}

	for _, m := range a.pipeline.Schedules {
		if existing[m.Name] {
			a.logger.Debug("Schedule already registered, keeping persisted state.", "schedule", m.Name)
			continue
		}
		def, err := translateSchedule(m)
		if err != nil {
			return err
		}
		if _, err := sched.Add(ctx, m.Name, def, m.Timezone, m.Targets); err != nil {
			return fmt.Errorf("registering schedule %q: %w", m.Name, err)
		}
	}
	return nil
}

// runBackfill expands the configured date range and executes it.
func (a *App) runBackfill(ctx context.Context, strategy engine.ErrorStrategy) error {
	start, err := time.Parse(backfill.DateLayout, a.config.BackfillStart)
	if err != nil {
		return fmt.Errorf("invalid backfill start date %q: %w", a.config.BackfillStart, err)
	}
	end, err := time.Parse(backfill.DateLayout, a.config.BackfillEnd)
	if err != nil {
		return fmt.Errorf("invalid backfill end date %q: %w", a.config.BackfillEnd, err)
	}

	mgr := backfill.New(a.schedStore, a.engine, a.graph, backfill.Options{Strategy: strategy})
	summary, err := mgr.Run(ctx, a.config.BackfillTarget, start, end, a.config.BackfillParallel)
	if err != nil {
		return fmt.Errorf("backfill failed: %w", err)
	}

	fmt.Fprintf(a.outW, "backfill %s: %d/%d dates succeeded in %s\n",
		summary.BackfillID, summary.Succeeded, summary.Total, summary.Duration.Round(time.Millisecond))
	if summary.Failed > 0 {
		dates := make([]string, 0, len(summary.Failures))
		for date := range summary.Failures {
			dates = append(dates, date)
		}
		sort.Strings(dates)
		for _, date := range dates {
			fmt.Fprintf(a.outW, "  %s: %s\n", date, summary.Failures[date])
		}
		return fmt.Errorf("backfill %s finished with %d failed dates", summary.BackfillID, summary.Failed)
	}
	return nil
}
