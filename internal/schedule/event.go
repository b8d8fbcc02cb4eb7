package schedule

import (
	"fmt"
	"strings"
	"time"
)

// EventTrigger fires a schedule when an external event of a matching type
// arrives, debounced against the schedule's last trigger.
//
// The canonical spec string is "type" or "type@debounce", for example
// "dataset-landed@30s".
type EventTrigger struct {
	eventType string
	debounce  time.Duration
}

// Kind implements Definition.
func (t *EventTrigger) Kind() Kind { return KindEvent }

// Spec implements Definition.
func (t *EventTrigger) Spec() string {
	if t.debounce <= 0 {
		return t.eventType
	}
	return t.eventType + "@" + t.debounce.String()
}

// EventType returns the event type this trigger matches.
func (t *EventTrigger) EventType() string { return t.eventType }

// NewEventTrigger creates a trigger matching the given event type.
func NewEventTrigger(eventType string, debounce time.Duration) (*EventTrigger, error) {
	if eventType == "" {
		return nil, fmt.Errorf("event trigger requires an event type")
	}
	if debounce < 0 {
		return nil, fmt.Errorf("event trigger debounce must not be negative")
	}
	return &EventTrigger{eventType: eventType, debounce: debounce}, nil
}

// ParseEventTrigger parses the canonical "type@debounce" spec string.
func ParseEventTrigger(spec string) (*EventTrigger, error) {
	eventType := spec
	var debounce time.Duration
	if idx := strings.IndexByte(spec, '@'); idx >= 0 {
		eventType = spec[:idx]
		d, err := time.ParseDuration(spec[idx+1:])
		if err != nil {
			return nil, fmt.Errorf("invalid event trigger debounce in %q: %w", spec, err)
		}
		debounce = d
	}
	return NewEventTrigger(eventType, debounce)
}

// Matches reports whether the event's type is the one this trigger watches.
func (t *EventTrigger) Matches(ev Event) bool {
	return ev.Type == t.eventType
}

// ShouldTriggerEvent reports whether the event fires the schedule: the type
// must match, and the event must not fall within the debounce window of the
// schedule's last trigger.
func (t *EventTrigger) ShouldTriggerEvent(ev Event, lastTriggered time.Time) bool {
	if !t.Matches(ev) {
		return false
	}
	if lastTriggered.IsZero() || t.debounce <= 0 {
		return true
	}
	return ev.OccurredAt.Sub(lastTriggered) >= t.debounce
}
