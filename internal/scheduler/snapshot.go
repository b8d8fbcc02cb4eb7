package scheduler

import (
	"sort"
	"time"

	"github.com/specialistvlad/flowgridgo/internal/schedule"
)

// Info is a read-only view of one registered schedule.
type Info struct {
	ID            string
	Name          string
	Kind          schedule.Kind
	Spec          string
	Status        schedule.Status
	Timezone      string
	Targets       []string
	LastTriggered time.Time
}

// Snapshot returns a point-in-time view of all registered schedules, sorted
// by name. The returned slice is detached from scheduler state.
func (s *Scheduler) Snapshot() []Info {
	s.mu.Lock()
	out := make([]Info, 0, len(s.schedules))
	for _, sched := range s.schedules {
		out = append(out, Info{
			ID:            sched.ID,
			Name:          sched.Name,
			Kind:          sched.Definition.Kind(),
			Spec:          sched.Definition.Spec(),
			Status:        sched.Status,
			Timezone:      sched.Timezone,
			Targets:       append([]string(nil), sched.Targets...),
			LastTriggered: sched.LastTriggered,
		})
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
