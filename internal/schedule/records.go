package schedule

import (
	"time"

	"github.com/google/uuid"
)

// EventStatus is the recorded outcome of a triggered execution.
type EventStatus string

const (
	// EventSucceeded marks a trigger whose execution completed successfully.
	EventSucceeded EventStatus = "succeeded"
	// EventFailed marks a trigger whose execution finished with failures.
	EventFailed EventStatus = "failed"
)

// ScheduleEvent is the immutable, append-only audit record of one trigger.
type ScheduleEvent struct {
	ID          string      `json:"id"`
	ScheduleID  string      `json:"schedule_id"`
	TriggerKind Kind        `json:"trigger_kind"`
	TriggeredAt time.Time   `json:"triggered_at"`
	RunID       string      `json:"run_id"`
	Status      EventStatus `json:"status"`
	// Error carries the first execution error, if any.
	Error string `json:"error,omitempty"`
}

// NewScheduleEvent creates an audit record with a fresh id.
func NewScheduleEvent(scheduleID string, kind Kind, triggeredAt time.Time, runID string, status EventStatus, errText string) ScheduleEvent {
	return ScheduleEvent{
		ID:          uuid.NewString(),
		ScheduleID:  scheduleID,
		TriggerKind: kind,
		TriggeredAt: triggeredAt,
		RunID:       runID,
		Status:      status,
		Error:       errText,
	}
}

// BackfillStatus is the lifecycle state of one backfill task. Every task
// reaches a terminal status; one task's failure never aborts the others.
type BackfillStatus string

const (
	// BackfillPending tasks have been expanded but not yet dispatched.
	BackfillPending BackfillStatus = "pending"
	// BackfillRunning tasks are currently executing.
	BackfillRunning BackfillStatus = "running"
	// BackfillCompleted is the terminal success state.
	BackfillCompleted BackfillStatus = "completed"
	// BackfillFailed is the terminal failure state.
	BackfillFailed BackfillStatus = "failed"
)

// BackfillTask is one per-date execution within a backfill.
type BackfillTask struct {
	ID         string `json:"id"`
	BackfillID string `json:"backfill_id"`
	// Target names the asset subset being backfilled; empty means the whole
	// graph.
	Target string `json:"target,omitempty"`
	// ScheduledFor is the logical date the task executes for.
	ScheduledFor time.Time      `json:"scheduled_for"`
	Status       BackfillStatus `json:"status"`
	RunID        string         `json:"run_id,omitempty"`
	StartedAt    time.Time      `json:"started_at,omitzero"`
	FinishedAt   time.Time      `json:"finished_at,omitzero"`
	Error        string         `json:"error,omitempty"`
}
