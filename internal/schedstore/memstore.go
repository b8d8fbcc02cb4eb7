package schedstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/specialistvlad/flowgridgo/internal/schedule"
)

// MemoryStore is an ephemeral, thread-safe Store for tests and single-shot
// runs. Records round-trip through the same serialized layout as the durable
// store, so both implementations share invariants.
type MemoryStore struct {
	mu        sync.RWMutex
	schedules map[string]scheduleRecord
	events    map[string][]schedule.ScheduleEvent
	backfills map[string][]schedule.BackfillTask
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		schedules: make(map[string]scheduleRecord),
		events:    make(map[string][]schedule.ScheduleEvent),
		backfills: make(map[string][]schedule.BackfillTask),
	}
}

// SaveSchedule writes the schedule's current state.
func (s *MemoryStore) SaveSchedule(_ context.Context, sched *schedule.Schedule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.schedules[sched.ID] = toRecord(sched)
	return nil
}

// GetSchedule returns the stored schedule with the given id.
func (s *MemoryStore) GetSchedule(_ context.Context, id string) (*schedule.Schedule, error) {
	s.mu.RLock()
	rec, ok := s.schedules[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("schedule %q not found", id)
	}
	return fromRecord(rec)
}

// ListSchedules returns all stored schedules.
func (s *MemoryStore) ListSchedules(_ context.Context) ([]*schedule.Schedule, error) {
	s.mu.RLock()
	recs := make([]scheduleRecord, 0, len(s.schedules))
	for _, rec := range s.schedules {
		recs = append(recs, rec)
	}
	s.mu.RUnlock()

	out := make([]*schedule.Schedule, 0, len(recs))
	for _, rec := range recs {
		sched, err := fromRecord(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, sched)
	}
	return out, nil
}

// AppendEvent appends a trigger audit record.
func (s *MemoryStore) AppendEvent(_ context.Context, ev schedule.ScheduleEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[ev.ScheduleID] = append(s.events[ev.ScheduleID], ev)
	return nil
}

// Events returns the audit records for a schedule, oldest first.
func (s *MemoryStore) Events(_ context.Context, scheduleID string) ([]schedule.ScheduleEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]schedule.ScheduleEvent, len(s.events[scheduleID]))
	copy(out, s.events[scheduleID])
	return out, nil
}

// SaveBackfillTask writes a backfill task's current state, replacing any
// earlier record of the same task id.
func (s *MemoryStore) SaveBackfillTask(_ context.Context, task schedule.BackfillTask) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tasks := s.backfills[task.BackfillID]
	for i, existing := range tasks {
		if existing.ID == task.ID {
			tasks[i] = task
			return nil
		}
	}
	s.backfills[task.BackfillID] = append(tasks, task)
	return nil
}

// BackfillTasks returns the tasks recorded for a backfill in date order.
func (s *MemoryStore) BackfillTasks(_ context.Context, backfillID string) ([]schedule.BackfillTask, error) {
	s.mu.RLock()
	out := make([]schedule.BackfillTask, len(s.backfills[backfillID]))
	copy(out, s.backfills[backfillID])
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].ScheduledFor.Before(out[j].ScheduledFor)
	})
	return out, nil
}
