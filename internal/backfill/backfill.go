// Package backfill re-runs an asset graph for a historical range of logical
// dates. Each date becomes an independent task with its own run id and its
// own persisted lifecycle; one date's failure never aborts the others.
package backfill

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/specialistvlad/flowgridgo/internal/asset"
	"github.com/specialistvlad/flowgridgo/internal/ctxlog"
	"github.com/specialistvlad/flowgridgo/internal/engine"
	"github.com/specialistvlad/flowgridgo/internal/graph"
	"github.com/specialistvlad/flowgridgo/internal/schedstore"
	"github.com/specialistvlad/flowgridgo/internal/schedule"
)

// DateLayout is the format of the logical date exposed to operators.
const DateLayout = "2006-01-02"

// MetadataDateKey is the pipeline-context metadata key carrying the logical
// date of a backfill run.
const MetadataDateKey = "date"

// Options configures a Manager.
type Options struct {
	// Strategy is the error strategy applied to every per-date run.
	Strategy engine.ErrorStrategy
}

// Manager expands date ranges into per-date executions and records every
// task's lifecycle in the schedule store.
type Manager struct {
	store    schedstore.Store
	engine   *engine.Engine
	graph    *graph.Graph
	strategy engine.ErrorStrategy

	// now is swappable for tests.
	now func() time.Time
}

// New creates a backfill manager bound to a store, an engine and the graph
// its runs execute against.
func New(store schedstore.Store, eng *engine.Engine, g *graph.Graph, opts Options) *Manager {
	return &Manager{
		store:    store,
		engine:   eng,
		graph:    g,
		strategy: opts.Strategy,
		now:      time.Now,
	}
}

// Summary is the aggregate outcome of one backfill.
type Summary struct {
	BackfillID string
	Total      int
	Succeeded  int
	Failed     int
	Duration   time.Duration
	// Failures maps each failed logical date to its first error.
	Failures map[string]string
}

// Run executes the graph once per calendar date in [start, end], inclusive.
// A target narrows each run to that asset's dependency closure; empty runs
// the whole graph. parallel bounds how many dates execute at once; values
// below 1 run sequentially, and sequential runs preserve date order.
func (m *Manager) Run(ctx context.Context, target string, start, end time.Time, parallel int) (*Summary, error) {
	if target != "" {
		if _, ok := m.graph.Asset(target); !ok {
			return nil, &graph.UnknownAssetError{Asset: target}
		}
	}

	dates, err := expandDates(start, end)
	if err != nil {
		return nil, err
	}
	if parallel < 1 {
		parallel = 1
	}

	backfillID := uuid.NewString()
	logger := ctxlog.FromContext(ctx).With("backfill_id", backfillID)
	logger.Info("🚀 Starting backfill.",
		"target", target, "dates", len(dates), "parallel", parallel,
		"start", dates[0].Format(DateLayout), "end", dates[len(dates)-1].Format(DateLayout))

	// Every date is registered pending before any execution starts, so the
	// store always shows the full extent of the backfill.
	tasks := make([]schedule.BackfillTask, len(dates))
	for i, date := range dates {
		tasks[i] = schedule.BackfillTask{
			ID:           uuid.NewString(),
			BackfillID:   backfillID,
			Target:       target,
			ScheduledFor: date,
			Status:       schedule.BackfillPending,
		}
		if err := m.store.SaveBackfillTask(ctx, tasks[i]); err != nil {
			return nil, fmt.Errorf("registering backfill task for %s: %w", date.Format(DateLayout), err)
		}
	}

	started := m.now()
	summary := &Summary{
		BackfillID: backfillID,
		Total:      len(tasks),
		Failures:   make(map[string]string),
	}

	var mu sync.Mutex
	sem := make(chan struct{}, parallel)
	var wg sync.WaitGroup
	for i := range tasks {
		wg.Add(1)
		sem <- struct{}{}
		go func(task schedule.BackfillTask) {
			defer wg.Done()
			defer func() { <-sem }()

			errText := m.runTask(ctx, task)

			mu.Lock()
			if errText == "" {
				summary.Succeeded++
			} else {
				summary.Failed++
				summary.Failures[task.ScheduledFor.Format(DateLayout)] = errText
			}
			mu.Unlock()
		}(tasks[i])
	}
	wg.Wait()

	summary.Duration = m.now().Sub(started)
	if summary.Failed == 0 {
		logger.Info("🏁 Backfill finished.", "succeeded", summary.Succeeded, "duration", summary.Duration)
	} else {
		logger.Error("🏁 Backfill finished with failures.",
			"succeeded", summary.Succeeded, "failed", summary.Failed, "duration", summary.Duration)
	}
	return summary, nil
}

// runTask drives one date to a terminal status, persisting each transition.
// The returned string is empty on success, else the first error.
func (m *Manager) runTask(ctx context.Context, task schedule.BackfillTask) string {
	date := task.ScheduledFor.Format(DateLayout)
	logger := ctxlog.FromContext(ctx).With("backfill_id", task.BackfillID, "date", date)

	pctx := asset.NewPipelineContext(m.graph.Name(), uuid.NewString())
	pctx.SetMetadata("backfill_id", task.BackfillID)
	pctx.SetMetadata(MetadataDateKey, date)

	task.Status = schedule.BackfillRunning
	task.RunID = pctx.RunID
	task.StartedAt = m.now()
	if err := m.store.SaveBackfillTask(ctx, task); err != nil {
		logger.Error("Failed to persist backfill task.", "error", err)
	}

	var targets []string
	if task.Target != "" {
		targets = []string{task.Target}
	}
	result, err := m.engine.Execute(ctx, m.graph, pctx, targets, m.strategy)

	errText := ""
	switch {
	case err != nil:
		errText = err.Error()
	case !result.Success:
		if len(result.Errors) > 0 {
			errText = result.Errors[0].Error()
		} else {
			errText = "execution finished with skipped assets"
		}
	}

	if errText == "" {
		task.Status = schedule.BackfillCompleted
		logger.Info("✅ Backfill date finished.", "run_id", task.RunID)
	} else {
		task.Status = schedule.BackfillFailed
		task.Error = errText
		logger.Error("Backfill date failed.", "run_id", task.RunID, "error", errText)
	}
	task.FinishedAt = m.now()
	if err := m.store.SaveBackfillTask(ctx, task); err != nil {
		logger.Error("Failed to persist backfill task.", "error", err)
	}
	return errText
}

// expandDates lists every calendar date in [start, end] inclusive, truncated
// to midnight UTC.
func expandDates(start, end time.Time) ([]time.Time, error) {
	first := truncateDate(start)
	last := truncateDate(end)
	if last.Before(first) {
		return nil, fmt.Errorf("backfill end %s is before start %s",
			last.Format(DateLayout), first.Format(DateLayout))
	}

	var dates []time.Time
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d)
	}
	return dates, nil
}

func truncateDate(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
