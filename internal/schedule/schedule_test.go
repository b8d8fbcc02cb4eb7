package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mustCron is a helper parsing an expression that must be valid.
func mustCron(t *testing.T, spec string) *CronSchedule {
	t.Helper()
	c, err := ParseCron(spec)
	require.NoError(t, err)
	return c
}

func TestNew_Defaults(t *testing.T) {
	s, err := New("nightly", mustCron(t, "0 0 * * *"), "", []string{"report"})
	require.NoError(t, err)

	assert.NotEmpty(t, s.ID)
	assert.Equal(t, StatusActive, s.Status)
	assert.Equal(t, "UTC", s.Timezone)
	assert.Equal(t, time.UTC, s.Location())
	assert.True(t, s.LastTriggered.IsZero())
	assert.False(t, s.CreatedAt.IsZero())
}

func TestNew_RejectsUnknownTimezone(t *testing.T) {
	_, err := New("nightly", mustCron(t, "0 0 * * *"), "Mars/Olympus", nil)
	require.Error(t, err)
}

func TestNew_RejectsMissingNameOrDefinition(t *testing.T) {
	_, err := New("", mustCron(t, "0 0 * * *"), "", nil)
	require.Error(t, err)

	_, err = New("nameless-trigger", nil, "", nil)
	require.Error(t, err)
}

func TestTransitionTo_Lifecycle(t *testing.T) {
	s, err := New("nightly", mustCron(t, "0 0 * * *"), "", nil)
	require.NoError(t, err)

	require.NoError(t, s.TransitionTo(StatusPaused))
	assert.Equal(t, StatusPaused, s.Status)

	require.NoError(t, s.TransitionTo(StatusActive))
	assert.Equal(t, StatusActive, s.Status)

	require.NoError(t, s.TransitionTo(StatusDeleted))
	assert.Equal(t, StatusDeleted, s.Status)

	// Deleted is terminal.
	require.Error(t, s.TransitionTo(StatusActive))
	assert.Equal(t, StatusDeleted, s.Status)
}

func TestShouldTrigger_DispatchesByKind(t *testing.T) {
	interval, err := ParseInterval("1h")
	require.NoError(t, err)
	s, err := New("hourly", interval, "", nil)
	require.NoError(t, err)

	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	assert.True(t, s.ShouldTrigger(now))

	s.LastTriggered = now
	assert.False(t, s.ShouldTrigger(now.Add(30*time.Minute)))
	assert.True(t, s.ShouldTrigger(now.Add(time.Hour)))

	// Time-based evaluation never fires event schedules.
	trigger, err := ParseEventTrigger("dataset-landed")
	require.NoError(t, err)
	es, err := New("on-landing", trigger, "", nil)
	require.NoError(t, err)
	assert.False(t, es.ShouldTrigger(now))
}

func TestShouldTriggerEvent_TypeAndDebounce(t *testing.T) {
	trigger, err := ParseEventTrigger("dataset-landed@30s")
	require.NoError(t, err)
	s, err := New("on-landing", trigger, "", nil)
	require.NoError(t, err)

	base := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	landed := Event{Type: "dataset-landed", OccurredAt: base}
	other := Event{Type: "dataset-removed", OccurredAt: base}

	assert.True(t, s.ShouldTriggerEvent(landed))
	assert.False(t, s.ShouldTriggerEvent(other))

	// Inside the debounce window the same event type is suppressed.
	s.LastTriggered = base
	assert.False(t, s.ShouldTriggerEvent(Event{Type: "dataset-landed", OccurredAt: base.Add(10 * time.Second)}))
	assert.True(t, s.ShouldTriggerEvent(Event{Type: "dataset-landed", OccurredAt: base.Add(30 * time.Second)}))

	// Cron schedules never fire on events.
	cs, err := New("nightly", mustCron(t, "0 0 * * *"), "", nil)
	require.NoError(t, err)
	assert.False(t, cs.ShouldTriggerEvent(landed))
}

func TestParseInterval_Validation(t *testing.T) {
	_, err := ParseInterval("500ms")
	require.Error(t, err)

	_, err = ParseInterval("soon")
	require.Error(t, err)

	i, err := ParseInterval("90s")
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, i.Every())
	assert.Equal(t, "90s", i.Spec())
}

func TestParseEventTrigger_SpecForms(t *testing.T) {
	plain, err := ParseEventTrigger("dataset-landed")
	require.NoError(t, err)
	assert.Equal(t, "dataset-landed", plain.Spec())

	debounced, err := ParseEventTrigger("dataset-landed@1m0s")
	require.NoError(t, err)
	assert.Equal(t, "dataset-landed@1m0s", debounced.Spec())

	_, err = ParseEventTrigger("")
	require.Error(t, err)

	_, err = ParseEventTrigger("dataset-landed@eventually")
	require.Error(t, err)
}

func TestParseDefinition_RoundTripsAllKinds(t *testing.T) {
	for kind, spec := range map[Kind]string{
		KindCron:     "0 6 * * 1",
		KindInterval: "15m",
		KindEvent:    "upstream-ready@45s",
	} {
		def, err := ParseDefinition(kind, spec)
		require.NoError(t, err)
		assert.Equal(t, kind, def.Kind())
		assert.Equal(t, spec, def.Spec())
	}
}
