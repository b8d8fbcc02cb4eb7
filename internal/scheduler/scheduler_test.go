package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specialistvlad/flowgridgo/internal/asset"
	"github.com/specialistvlad/flowgridgo/internal/engine"
	"github.com/specialistvlad/flowgridgo/internal/graph"
	"github.com/specialistvlad/flowgridgo/internal/schedstore"
	"github.com/specialistvlad/flowgridgo/internal/schedule"
	"github.com/specialistvlad/flowgridgo/internal/testutil"
)

// fixture bundles a scheduler over a one-asset graph with a manual clock.
type fixture struct {
	sched *Scheduler
	store *schedstore.MemoryStore
	op    *testutil.CountingOperator
	now   time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	op := &testutil.CountingOperator{}
	g, err := graph.Build(context.Background(), "pipeline", []*asset.Asset{
		{Name: "job", Operator: op},
	})
	require.NoError(t, err)

	store := schedstore.NewMemoryStore()
	eng := engine.New(asset.NewRegistry(), engine.Options{})
	f := &fixture{
		sched: New(store, eng, g, Options{Strategy: engine.StrategyContinue}),
		store: store,
		op:    op,
		now:   time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC),
	}
	f.sched.now = func() time.Time { return f.now }
	return f
}

// addInterval registers an interval schedule that must succeed.
func (f *fixture) addInterval(t *testing.T, name, every string) *schedule.Schedule {
	t.Helper()
	def, err := schedule.ParseInterval(every)
	require.NoError(t, err)
	s, err := f.sched.Add(context.Background(), name, def, "UTC", []string{"job"})
	require.NoError(t, err)
	return s
}

func TestAdd_PersistsBeforeEvaluation(t *testing.T) {
	f := newFixture(t)
	s := f.addInterval(t, "every-minute", "1m")

	stored, err := f.store.GetSchedule(context.Background(), s.ID)
	require.NoError(t, err)
	assert.Equal(t, "every-minute", stored.Name)
	assert.Equal(t, schedule.StatusActive, stored.Status)
	assert.Zero(t, f.op.Calls())
}

func TestAdd_RejectsUnknownTarget(t *testing.T) {
	f := newFixture(t)
	def, err := schedule.ParseInterval("1m")
	require.NoError(t, err)

	_, err = f.sched.Add(context.Background(), "bad", def, "UTC", []string{"ghost"})
	require.Error(t, err)
	var unknownErr *graph.UnknownAssetError
	assert.ErrorAs(t, err, &unknownErr)

	// Nothing was persisted.
	all, err := f.store.ListSchedules(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestTick_FiresDueScheduleOnce(t *testing.T) {
	f := newFixture(t)
	s := f.addInterval(t, "every-minute", "1m")
	ctx := context.Background()

	// First evaluation fires immediately (never triggered before).
	f.sched.Tick(ctx)
	assert.Equal(t, 1, f.op.Calls())

	// Same instant again: not due.
	f.sched.Tick(ctx)
	assert.Equal(t, 1, f.op.Calls())

	f.now = f.now.Add(time.Minute)
	f.sched.Tick(ctx)
	assert.Equal(t, 2, f.op.Calls())

	events, err := f.store.Events(ctx, s.ID)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, schedule.EventSucceeded, events[0].Status)
	assert.NotEmpty(t, events[0].RunID)
	assert.NotEqual(t, events[0].RunID, events[1].RunID)
}

func TestTick_PersistsLastTriggered(t *testing.T) {
	f := newFixture(t)
	s := f.addInterval(t, "every-minute", "1m")

	f.sched.Tick(context.Background())

	stored, err := f.store.GetSchedule(context.Background(), s.ID)
	require.NoError(t, err)
	assert.True(t, stored.LastTriggered.Equal(f.now))
}

func TestPause_StopsTriggering(t *testing.T) {
	f := newFixture(t)
	s := f.addInterval(t, "every-minute", "1m")
	ctx := context.Background()

	f.sched.Tick(ctx)
	require.Equal(t, 1, f.op.Calls())

	require.NoError(t, f.sched.Pause(ctx, s.ID))
	f.now = f.now.Add(10 * time.Minute)
	f.sched.Tick(ctx)
	assert.Equal(t, 1, f.op.Calls())

	stored, err := f.store.GetSchedule(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, schedule.StatusPaused, stored.Status)
}

func TestResume_FiresAtMostOnceForBacklog(t *testing.T) {
	f := newFixture(t)
	s := f.addInterval(t, "every-minute", "1m")
	ctx := context.Background()

	f.sched.Tick(ctx)
	require.Equal(t, 1, f.op.Calls())

	// Ten intervals pass while paused; resuming must not replay them.
	require.NoError(t, f.sched.Pause(ctx, s.ID))
	f.now = f.now.Add(10 * time.Minute)
	require.NoError(t, f.sched.Resume(ctx, s.ID))

	f.sched.Tick(ctx)
	assert.Equal(t, 2, f.op.Calls())
	f.sched.Tick(ctx)
	assert.Equal(t, 2, f.op.Calls())
}

func TestDelete_IsTerminal(t *testing.T) {
	f := newFixture(t)
	s := f.addInterval(t, "every-minute", "1m")
	ctx := context.Background()

	require.NoError(t, f.sched.Delete(ctx, s.ID))
	f.sched.Tick(ctx)
	assert.Zero(t, f.op.Calls())
	assert.Empty(t, f.sched.Snapshot())

	// The store keeps the terminal record; resurrecting it is rejected.
	stored, err := f.store.GetSchedule(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, schedule.StatusDeleted, stored.Status)
	require.Error(t, f.sched.Resume(ctx, s.ID))
}

func TestTriggerEvent_MatchesTypeAndDebounce(t *testing.T) {
	f := newFixture(t)
	def, err := schedule.ParseEventTrigger("dataset-landed@30s")
	require.NoError(t, err)
	_, err = f.sched.Add(context.Background(), "on-landing", def, "UTC", []string{"job"})
	require.NoError(t, err)
	ctx := context.Background()

	// The loop is idle, so the event is evaluated immediately.
	f.sched.TriggerEvent(ctx, schedule.Event{Type: "dataset-landed", OccurredAt: f.now})
	assert.Equal(t, 1, f.op.Calls())

	// Wrong type is ignored.
	f.sched.TriggerEvent(ctx, schedule.Event{Type: "dataset-removed", OccurredAt: f.now})
	assert.Equal(t, 1, f.op.Calls())

	// Within the debounce window the event is suppressed.
	f.now = f.now.Add(10 * time.Second)
	f.sched.TriggerEvent(ctx, schedule.Event{Type: "dataset-landed", OccurredAt: f.now})
	assert.Equal(t, 1, f.op.Calls())

	f.now = f.now.Add(30 * time.Second)
	f.sched.TriggerEvent(ctx, schedule.Event{Type: "dataset-landed", OccurredAt: f.now})
	assert.Equal(t, 2, f.op.Calls())
}

func TestTick_RecordsFailedRuns(t *testing.T) {
	failing := &testutil.FailingOperator{}
	g, err := graph.Build(context.Background(), "pipeline", []*asset.Asset{
		{Name: "doomed", Operator: failing},
	})
	require.NoError(t, err)

	store := schedstore.NewMemoryStore()
	sched := New(store, engine.New(asset.NewRegistry(), engine.Options{}), g, Options{Strategy: engine.StrategyContinue})
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	sched.now = func() time.Time { return now }

	def, err := schedule.ParseInterval("1m")
	require.NoError(t, err)
	s, err := sched.Add(context.Background(), "doomed-schedule", def, "UTC", nil)
	require.NoError(t, err)

	sched.Tick(context.Background())

	events, err := store.Events(context.Background(), s.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, schedule.EventFailed, events[0].Status)
	assert.NotEmpty(t, events[0].Error)

	// A failed trigger still advances last-triggered; it must not refire in
	// a tight loop.
	sched.Tick(context.Background())
	assert.Equal(t, 1, failing.Calls())
}

func TestLoadPersisted_SkipsDeleted(t *testing.T) {
	f := newFixture(t)
	active := f.addInterval(t, "keep", "1m")
	dropped := f.addInterval(t, "drop", "1m")
	require.NoError(t, f.sched.Delete(context.Background(), dropped.ID))

	// A fresh scheduler over the same store sees only the live schedule.
	restarted := New(f.store, engine.New(asset.NewRegistry(), engine.Options{}), f.sched.graph, Options{})
	require.NoError(t, restarted.LoadPersisted(context.Background()))

	infos := restarted.Snapshot()
	require.Len(t, infos, 1)
	assert.Equal(t, active.ID, infos[0].ID)
	assert.Equal(t, "keep", infos[0].Name)
}
