package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/specialistvlad/flowgridgo/internal/ctxlog"
	"github.com/specialistvlad/flowgridgo/internal/engine"
	"github.com/specialistvlad/flowgridgo/internal/graph"
	"github.com/specialistvlad/flowgridgo/internal/schedstore"
	"github.com/specialistvlad/flowgridgo/internal/schedule"
)

// DefaultCheckInterval is the tick period used when none is configured.
const DefaultCheckInterval = 15 * time.Second

// Options configures a Scheduler.
type Options struct {
	// CheckInterval is how often the tick loop wakes to evaluate triggers.
	CheckInterval time.Duration
	// Strategy is the error strategy applied to dispatched runs.
	Strategy engine.ErrorStrategy
}

// Scheduler evaluates schedule trigger conditions and dispatches runs
// through the execution engine. All mutations of schedule state go through
// its methods and are persisted after every change.
type Scheduler struct {
	store  schedstore.Store
	engine *engine.Engine
	graph  *graph.Graph

	checkInterval time.Duration
	strategy      engine.ErrorStrategy

	mu        sync.Mutex
	schedules map[string]*schedule.Schedule
	pending   []schedule.Event
	running   bool
	stop      chan struct{}
	done      chan struct{}

	// now is swappable for tests.
	now func() time.Time
}

// New creates a scheduler bound to a store, an engine and the graph its
// schedules execute against.
func New(store schedstore.Store, eng *engine.Engine, g *graph.Graph, opts Options) *Scheduler {
	interval := opts.CheckInterval
	if interval <= 0 {
		interval = DefaultCheckInterval
	}
	return &Scheduler{
		store:         store,
		engine:        eng,
		graph:         g,
		checkInterval: interval,
		strategy:      opts.Strategy,
		schedules:     make(map[string]*schedule.Schedule),
		now:           time.Now,
	}
}

// LoadPersisted rehydrates schedules from the store, skipping deleted ones.
func (s *Scheduler) LoadPersisted(ctx context.Context) error {
	stored, err := s.store.ListSchedules(ctx)
	if err != nil {
		return fmt.Errorf("loading persisted schedules: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sched := range stored {
		if sched.Status == schedule.StatusDeleted {
			continue
		}
		s.schedules[sched.ID] = sched
	}
	ctxlog.FromContext(ctx).Info("Schedules loaded from store.", "count", len(s.schedules))
	return nil
}

// Add validates and registers a new schedule, persisting it before it is
// ever evaluated. A malformed definition or unknown target fails here and
// nothing is stored.
func (s *Scheduler) Add(ctx context.Context, name string, def schedule.Definition, timezone string, targets []string) (*schedule.Schedule, error) {
	sched, err := schedule.New(name, def, timezone, targets)
	if err != nil {
		return nil, err
	}
	for _, target := range targets {
		if _, ok := s.graph.Asset(target); !ok {
			return nil, &graph.UnknownAssetError{Asset: target}
		}
	}

	if err := s.store.SaveSchedule(ctx, sched); err != nil {
		return nil, fmt.Errorf("persisting schedule %q: %w", name, err)
	}

	s.mu.Lock()
	s.schedules[sched.ID] = sched
	s.mu.Unlock()

	ctxlog.FromContext(ctx).Info("Schedule added.", "schedule", name, "kind", def.Kind().String(), "spec", def.Spec())
	return sched, nil
}

// Pause stops a schedule from triggering without touching its last-triggered
// bookkeeping, so resuming fires at most once for any backlog of missed
// ticks — never a burst.
func (s *Scheduler) Pause(ctx context.Context, id string) error {
	return s.transition(ctx, id, schedule.StatusPaused)
}

// Resume re-activates a paused schedule.
func (s *Scheduler) Resume(ctx context.Context, id string) error {
	return s.transition(ctx, id, schedule.StatusActive)
}

// Delete marks a schedule deleted. The transition is terminal; the audit
// trail under the schedule's id remains in the store.
func (s *Scheduler) Delete(ctx context.Context, id string) error {
	if err := s.transition(ctx, id, schedule.StatusDeleted); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.schedules, id)
	s.mu.Unlock()
	return nil
}

// transition applies a lifecycle change and persists the mutated schedule.
func (s *Scheduler) transition(ctx context.Context, id string, next schedule.Status) error {
	s.mu.Lock()
	sched, ok := s.schedules[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("schedule %q not found", id)
	}
	if err := sched.TransitionTo(next); err != nil {
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()

	if err := s.store.SaveSchedule(ctx, sched); err != nil {
		return fmt.Errorf("persisting schedule %q: %w", id, err)
	}
	ctxlog.FromContext(ctx).Info("Schedule transitioned.", "schedule", sched.Name, "status", next.String())
	return nil
}

// TriggerEvent feeds an external event to event-driven schedules. While the
// loop is running the event is evaluated on the next tick; otherwise it is
// evaluated immediately.
func (s *Scheduler) TriggerEvent(ctx context.Context, ev schedule.Event) {
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = s.now()
	}

	s.mu.Lock()
	loopRunning := s.running
	s.pending = append(s.pending, ev)
	s.mu.Unlock()

	if !loopRunning {
		s.Tick(ctx)
	}
}

// Start launches the tick loop on its own dedicated goroutine. It returns an
// error if the loop is already running.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("scheduler already running")
	}
	s.running = true
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	s.mu.Unlock()

	logger := ctxlog.FromContext(ctx)
	logger.Info("Scheduler started.", "check_interval", s.checkInterval)

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.checkInterval)
		defer ticker.Stop()

		for {
			select {
			case <-s.stop:
				logger.Info("Scheduler stopped.")
				return
			case <-ctx.Done():
				logger.Info("Scheduler context canceled.")
				return
			case <-ticker.C:
				s.Tick(ctx)
			}
		}
	}()
	return nil
}

// Stop terminates the tick loop and waits for it to exit.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stop)
	done := s.done
	s.mu.Unlock()

	<-done
}

// Tick runs one evaluation pass over all schedules. It is called by the loop
// goroutine and exported so tests and the idle event path can drive the
// scheduler deterministically.
func (s *Scheduler) Tick(ctx context.Context) {
	now := s.now()

	s.mu.Lock()
	events := s.pending
	s.pending = nil
	scheds := make([]*schedule.Schedule, 0, len(s.schedules))
	for _, sched := range s.schedules {
		scheds = append(scheds, sched)
	}
	s.mu.Unlock()

	// Deterministic evaluation order keeps logs and stores reproducible.
	sort.Slice(scheds, func(i, j int) bool { return scheds[i].Name < scheds[j].Name })

	for _, sched := range scheds {
		s.evaluate(ctx, sched, events, now)
	}
}

// evaluate checks one schedule's trigger condition and dispatches at most
// one run for this tick.
func (s *Scheduler) evaluate(ctx context.Context, sched *schedule.Schedule, events []schedule.Event, now time.Time) {
	s.mu.Lock()
	status := sched.Status
	s.mu.Unlock()
	if status != schedule.StatusActive {
		return
	}

	if sched.Definition.Kind() == schedule.KindEvent {
		for _, ev := range events {
			if sched.ShouldTriggerEvent(ev) {
				s.fire(ctx, sched, now)
				return
			}
		}
		return
	}

	if sched.ShouldTrigger(now) {
		s.fire(ctx, sched, now)
	}
}

// fire dispatches one execution for a due schedule, records the audit event
// and advances last-triggered. The last-triggered update happens even when
// the run fails: a trigger fired, and refiring the same instant would loop.
func (s *Scheduler) fire(ctx context.Context, sched *schedule.Schedule, now time.Time) {
	logger := ctxlog.FromContext(ctx).With("schedule", sched.Name)
	logger.Info("⏰ Schedule due, dispatching run.", "kind", sched.Definition.Kind().String())

	pctx := newRunContext(s.graph.Name(), sched, now)
	result, err := s.engine.Execute(ctx, s.graph, pctx, sched.Targets, s.strategy)

	status := schedule.EventSucceeded
	errText := ""
	runID := pctx.RunID
	switch {
	case err != nil:
		status = schedule.EventFailed
		errText = err.Error()
	case !result.Success:
		status = schedule.EventFailed
		if len(result.Errors) > 0 {
			errText = result.Errors[0].Error()
		}
	}

	ev := schedule.NewScheduleEvent(sched.ID, sched.Definition.Kind(), now, runID, status, errText)
	if err := s.store.AppendEvent(ctx, ev); err != nil {
		logger.Error("Failed to persist schedule event.", "error", err)
	}

	s.mu.Lock()
	sched.LastTriggered = now
	s.mu.Unlock()
	if err := s.store.SaveSchedule(ctx, sched); err != nil {
		logger.Error("Failed to persist schedule after trigger.", "error", err)
	}

	if status == schedule.EventSucceeded {
		logger.Info("✅ Scheduled run finished.", "run_id", runID)
	} else {
		logger.Error("Scheduled run failed.", "run_id", runID, "error", errText)
	}
}
