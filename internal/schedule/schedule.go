// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file defines the Schedule structure and its lifecycle.
//
// Why a closed tagged union for definitions?
//
// The trigger type is decided once, when the definition string is parsed at
// registration time. From then on every tick dispatches on the resolved
// Definition value — never on repeated string comparison — and a malformed
// definition can never reach the store, because parsing happens before
// persistence.
package schedule

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a schedule: ACTIVE ⇄ PAUSED → DELETED,
// with DELETED terminal.
type Status int

const (
	// StatusActive schedules are evaluated on every scheduler tick.
	StatusActive Status = iota
	// StatusPaused schedules are skipped by the tick loop; their
	// last-triggered bookkeeping is untouched.
	StatusPaused
	// StatusDeleted is terminal; no further transitions are allowed.
	StatusDeleted
)

// String returns the canonical name of the status.
func (s Status) String() string {
	switch s {
	case StatusPaused:
		return "paused"
	case StatusDeleted:
		return "deleted"
	default:
		return "active"
	}
}

// ParseStatus resolves a stored status string into a Status tag.
func ParseStatus(s string) (Status, error) {
	switch strings.ToLower(s) {
	case "active":
		return StatusActive, nil
	case "paused":
		return StatusPaused, nil
	case "deleted":
		return StatusDeleted, nil
	default:
		return StatusActive, fmt.Errorf("unknown schedule status %q", s)
	}
}

// Kind tags the trigger variant of a schedule definition.
type Kind int

const (
	// KindCron triggers on matching calendar minutes.
	KindCron Kind = iota
	// KindInterval triggers on elapsed time since the last trigger.
	KindInterval
	// KindEvent triggers on matching external events.
	KindEvent
)

// String returns the canonical name of the kind.
func (k Kind) String() string {
	switch k {
	case KindInterval:
		return "interval"
	case KindEvent:
		return "event"
	default:
		return "cron"
	}
}

// ParseKind resolves a configuration string into a Kind tag.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(s) {
	case "cron":
		return KindCron, nil
	case "interval":
		return KindInterval, nil
	case "event":
		return KindEvent, nil
	default:
		return KindCron, fmt.Errorf("unknown schedule kind %q", s)
	}
}

// Definition is the closed set of trigger variants. Implementations are
// immutable after parsing.
type Definition interface {
	// Kind returns the variant tag.
	Kind() Kind
	// Spec returns the canonical definition string the variant was parsed
	// from, used for persistence.
	Spec() string
}

// ParseDefinition rebuilds a Definition from its persisted (kind, spec) pair.
func ParseDefinition(kind Kind, spec string) (Definition, error) {
	switch kind {
	case KindCron:
		return ParseCron(spec)
	case KindInterval:
		return ParseInterval(spec)
	case KindEvent:
		return ParseEventTrigger(spec)
	default:
		return nil, fmt.Errorf("unknown schedule kind %d", kind)
	}
}

// Event is an external occurrence fed to event-driven schedules.
type Event struct {
	Type       string
	Payload    map[string]string
	OccurredAt time.Time
}

// Schedule binds a trigger definition to a set of target assets. It is
// mutated only by Scheduler operations and persisted after every mutation.
type Schedule struct {
	ID         string
	Name       string
	Definition Definition
	Status     Status
	// Timezone is the IANA zone name trigger times are evaluated in.
	Timezone string
	// Targets names the assets a trigger executes; empty means the whole
	// graph.
	Targets       []string
	LastTriggered time.Time
	CreatedAt     time.Time

	loc *time.Location
}

// New creates an active schedule with a fresh id. An unknown timezone fails
// here, at registration time — a schedule is never stored in a broken state.
func New(name string, def Definition, timezone string, targets []string) (*Schedule, error) {
	if name == "" {
		return nil, fmt.Errorf("schedule name must not be empty")
	}
	if def == nil {
		return nil, fmt.Errorf("schedule %q has no trigger definition", name)
	}
	if timezone == "" {
		timezone = "UTC"
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("schedule %q: unknown timezone %q: %w", name, timezone, err)
	}

	return &Schedule{
		ID:         uuid.NewString(),
		Name:       name,
		Definition: def,
		Status:     StatusActive,
		Timezone:   timezone,
		Targets:    targets,
		CreatedAt:  time.Now().UTC(),
		loc:        loc,
	}, nil
}

// Restore rebuilds a schedule from its persisted fields.
func Restore(id, name string, def Definition, status Status, timezone string, targets []string, lastTriggered, createdAt time.Time) (*Schedule, error) {
	if timezone == "" {
		timezone = "UTC"
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("schedule %q: unknown timezone %q: %w", name, timezone, err)
	}
	return &Schedule{
		ID:            id,
		Name:          name,
		Definition:    def,
		Status:        status,
		Timezone:      timezone,
		Targets:       targets,
		LastTriggered: lastTriggered,
		CreatedAt:     createdAt,
		loc:           loc,
	}, nil
}

// Location returns the schedule's resolved timezone.
func (s *Schedule) Location() *time.Location {
	if s.loc == nil {
		return time.UTC
	}
	return s.loc
}

// TransitionTo validates and applies a lifecycle transition. DELETED is
// terminal.
func (s *Schedule) TransitionTo(next Status) error {
	if s.Status == StatusDeleted {
		return fmt.Errorf("schedule %q is deleted; no further transitions", s.Name)
	}
	s.Status = next
	return nil
}

// ShouldTrigger reports whether a time-based schedule is due at now. Event
// schedules always return false here; they are driven through
// ShouldTriggerEvent instead.
func (s *Schedule) ShouldTrigger(now time.Time) bool {
	switch def := s.Definition.(type) {
	case *CronSchedule:
		return def.ShouldTrigger(s.LastTriggered, now, s.Location())
	case *IntervalSchedule:
		return def.ShouldTrigger(s.LastTriggered, now)
	default:
		return false
	}
}

// ShouldTriggerEvent reports whether an event-driven schedule fires for the
// given event, respecting its debounce window.
func (s *Schedule) ShouldTriggerEvent(ev Event) bool {
	def, ok := s.Definition.(*EventTrigger)
	if !ok {
		return false
	}
	return def.ShouldTriggerEvent(ev, s.LastTriggered)
}
