// Package schedule models when pipelines run: the Schedule lifecycle, the
// closed tagged union of trigger definitions (cron, interval, event), and the
// immutable audit records the control plane persists (ScheduleEvent,
// BackfillTask).
package schedule
