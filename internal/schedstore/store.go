package schedstore

import (
	"context"
	"time"

	"github.com/specialistvlad/flowgridgo/internal/schedule"
)

// Store is the persistence boundary for the schedule control plane.
type Store interface {
	// SaveSchedule writes the schedule's current state, overwriting any
	// previous record under the same id.
	SaveSchedule(ctx context.Context, s *schedule.Schedule) error
	// GetSchedule returns the stored schedule with the given id.
	GetSchedule(ctx context.Context, id string) (*schedule.Schedule, error)
	// ListSchedules returns all stored schedules, in unspecified order.
	ListSchedules(ctx context.Context) ([]*schedule.Schedule, error)
	// AppendEvent appends a trigger audit record for its schedule. Events
	// are never overwritten.
	AppendEvent(ctx context.Context, ev schedule.ScheduleEvent) error
	// Events returns the appended audit records for a schedule, oldest
	// first.
	Events(ctx context.Context, scheduleID string) ([]schedule.ScheduleEvent, error)
	// SaveBackfillTask writes a backfill task's current state.
	SaveBackfillTask(ctx context.Context, task schedule.BackfillTask) error
	// BackfillTasks returns the tasks recorded for a backfill, in scheduled
	// date order.
	BackfillTasks(ctx context.Context, backfillID string) ([]schedule.BackfillTask, error)
}

// scheduleRecord is the serialized layout of one schedule. The definition is
// stored as its (kind, spec) pair and re-parsed on load, so a record can only
// ever hold a definition that parsed successfully.
type scheduleRecord struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Kind          string    `json:"kind"`
	Spec          string    `json:"spec"`
	Status        string    `json:"status"`
	Timezone      string    `json:"timezone"`
	Targets       []string  `json:"targets,omitempty"`
	LastTriggered time.Time `json:"last_triggered,omitzero"`
	CreatedAt     time.Time `json:"created_at"`
}

// toRecord flattens a schedule into its serialized layout.
func toRecord(s *schedule.Schedule) scheduleRecord {
	return scheduleRecord{
		ID:            s.ID,
		Name:          s.Name,
		Kind:          s.Definition.Kind().String(),
		Spec:          s.Definition.Spec(),
		Status:        s.Status.String(),
		Timezone:      s.Timezone,
		Targets:       s.Targets,
		LastTriggered: s.LastTriggered,
		CreatedAt:     s.CreatedAt,
	}
}

// fromRecord rebuilds a schedule from its serialized layout.
func fromRecord(rec scheduleRecord) (*schedule.Schedule, error) {
	kind, err := schedule.ParseKind(rec.Kind)
	if err != nil {
		return nil, err
	}
	def, err := schedule.ParseDefinition(kind, rec.Spec)
	if err != nil {
		return nil, err
	}
	status, err := schedule.ParseStatus(rec.Status)
	if err != nil {
		return nil, err
	}
	return schedule.Restore(rec.ID, rec.Name, def, status, rec.Timezone, rec.Targets, rec.LastTriggered, rec.CreatedAt)
}
