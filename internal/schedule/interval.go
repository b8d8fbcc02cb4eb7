package schedule

import (
	"fmt"
	"time"
)

// IntervalSchedule triggers when at least its interval has elapsed since the
// last trigger, or immediately if it never triggered before.
type IntervalSchedule struct {
	spec  string
	every time.Duration
}

// Kind implements Definition.
func (i *IntervalSchedule) Kind() Kind { return KindInterval }

// Spec implements Definition.
func (i *IntervalSchedule) Spec() string { return i.spec }

// Every returns the parsed interval.
func (i *IntervalSchedule) Every() time.Duration { return i.every }

// ParseInterval parses a duration string like "5m", "1h" or "30m" into an
// interval definition. Sub-second intervals are rejected: the scheduler tick
// is the finest granularity the control loop supports.
func ParseInterval(spec string) (*IntervalSchedule, error) {
	d, err := time.ParseDuration(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid interval %q: %w", spec, err)
	}
	if d < time.Second {
		return nil, fmt.Errorf("interval %q must be at least one second", spec)
	}
	return &IntervalSchedule{spec: spec, every: d}, nil
}

// ShouldTrigger reports whether the interval has elapsed since the last
// trigger. A schedule that never triggered fires on its first evaluation.
// This is also why resuming a paused schedule fires at most once for any
// backlog of missed ticks: the comparison is against wall time, not against
// a queue of due instants.
func (i *IntervalSchedule) ShouldTrigger(lastTriggered, now time.Time) bool {
	if lastTriggered.IsZero() {
		return true
	}
	return now.Sub(lastTriggered) >= i.every
}
