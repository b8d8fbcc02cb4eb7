package schedstore

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"

	"github.com/specialistvlad/flowgridgo/internal/keymutex"
	"github.com/specialistvlad/flowgridgo/internal/schedule"
)

// FileStore is a durable Store writing JSON through a billy filesystem:
// one document per schedule under schedules/, append-only JSON-lines per
// schedule under events/, and per-backfill JSON documents under backfills/.
// Per-key mutexes serialize every access to one key, so a reader never
// observes a torn write; access to different keys proceeds in parallel.
type FileStore struct {
	fs    billy.Filesystem
	dir   string
	locks *keymutex.KeyMutex
}

// NewFileStore creates a file-backed store rooted at dir within the given
// filesystem.
func NewFileStore(fs billy.Filesystem, dir string) (*FileStore, error) {
	for _, sub := range []string{"schedules", "events", "backfills"} {
		if err := fs.MkdirAll(fs.Join(dir, sub), 0o755); err != nil {
			return nil, fmt.Errorf("creating schedule store dir %s: %w", sub, err)
		}
	}
	return &FileStore{fs: fs, dir: dir, locks: keymutex.New()}, nil
}

func (s *FileStore) schedulePath(id string) string {
	return s.fs.Join(s.dir, "schedules", id+".json")
}

func (s *FileStore) eventsPath(scheduleID string) string {
	return s.fs.Join(s.dir, "events", scheduleID+".jsonl")
}

func (s *FileStore) backfillPath(backfillID string) string {
	return s.fs.Join(s.dir, "backfills", backfillID+".json")
}

// SaveSchedule writes the schedule's current state under its id.
func (s *FileStore) SaveSchedule(_ context.Context, sched *schedule.Schedule) error {
	key := "schedule/" + sched.ID
	s.locks.Lock(key)
	defer s.locks.Unlock(key)

	data, err := json.MarshalIndent(toRecord(sched), "", "  ")
	if err != nil {
		return fmt.Errorf("encoding schedule %s: %w", sched.ID, err)
	}
	if err := util.WriteFile(s.fs, s.schedulePath(sched.ID), data, 0o644); err != nil {
		return fmt.Errorf("writing schedule %s: %w", sched.ID, err)
	}
	return nil
}

// GetSchedule returns the stored schedule with the given id.
func (s *FileStore) GetSchedule(_ context.Context, id string) (*schedule.Schedule, error) {
	key := "schedule/" + id
	s.locks.Lock(key)
	defer s.locks.Unlock(key)

	data, err := util.ReadFile(s.fs, s.schedulePath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("schedule %q not found", id)
		}
		return nil, fmt.Errorf("reading schedule %s: %w", id, err)
	}

	var rec scheduleRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decoding schedule %s: %w", id, err)
	}
	return fromRecord(rec)
}

// ListSchedules returns every stored schedule.
func (s *FileStore) ListSchedules(ctx context.Context) ([]*schedule.Schedule, error) {
	infos, err := s.fs.ReadDir(s.fs.Join(s.dir, "schedules"))
	if err != nil {
		return nil, fmt.Errorf("listing schedules: %w", err)
	}

	var out []*schedule.Schedule
	for _, info := range infos {
		if info.IsDir() || !strings.HasSuffix(info.Name(), ".json") {
			continue
		}
		sched, err := s.GetSchedule(ctx, strings.TrimSuffix(info.Name(), ".json"))
		if err != nil {
			return nil, err
		}
		out = append(out, sched)
	}
	return out, nil
}

// AppendEvent appends one JSON line to the schedule's event log. Existing
// lines are never rewritten.
func (s *FileStore) AppendEvent(_ context.Context, ev schedule.ScheduleEvent) error {
	key := "events/" + ev.ScheduleID
	s.locks.Lock(key)
	defer s.locks.Unlock(key)

	line, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encoding schedule event %s: %w", ev.ID, err)
	}

	f, err := s.fs.OpenFile(s.eventsPath(ev.ScheduleID), os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening event log for schedule %s: %w", ev.ScheduleID, err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("appending event for schedule %s: %w", ev.ScheduleID, err)
	}
	return nil
}

// Events returns the appended audit records for a schedule, oldest first. It
// takes the same per-key lock as AppendEvent: without it a read racing an
// append could see a partial final line.
func (s *FileStore) Events(_ context.Context, scheduleID string) ([]schedule.ScheduleEvent, error) {
	key := "events/" + scheduleID
	s.locks.Lock(key)
	defer s.locks.Unlock(key)

	f, err := s.fs.Open(s.eventsPath(scheduleID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening event log for schedule %s: %w", scheduleID, err)
	}
	defer f.Close()

	var out []schedule.ScheduleEvent
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var ev schedule.ScheduleEvent
		if err := json.Unmarshal([]byte(line), &ev); err != nil {
			return nil, fmt.Errorf("decoding event log for schedule %s: %w", scheduleID, err)
		}
		out = append(out, ev)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading event log for schedule %s: %w", scheduleID, err)
	}
	return out, nil
}

// SaveBackfillTask upserts one task within its backfill's document.
func (s *FileStore) SaveBackfillTask(_ context.Context, task schedule.BackfillTask) error {
	key := "backfill/" + task.BackfillID
	s.locks.Lock(key)
	defer s.locks.Unlock(key)

	tasks, err := s.readBackfill(task.BackfillID)
	if err != nil {
		return err
	}

	replaced := false
	for i, existing := range tasks {
		if existing.ID == task.ID {
			tasks[i] = task
			replaced = true
			break
		}
	}
	if !replaced {
		tasks = append(tasks, task)
	}

	data, err := json.MarshalIndent(tasks, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding backfill %s: %w", task.BackfillID, err)
	}
	if err := util.WriteFile(s.fs, s.backfillPath(task.BackfillID), data, 0o644); err != nil {
		return fmt.Errorf("writing backfill %s: %w", task.BackfillID, err)
	}
	return nil
}

// BackfillTasks returns the tasks recorded for a backfill in date order.
func (s *FileStore) BackfillTasks(_ context.Context, backfillID string) ([]schedule.BackfillTask, error) {
	key := "backfill/" + backfillID
	s.locks.Lock(key)
	defer s.locks.Unlock(key)

	tasks, err := s.readBackfill(backfillID)
	if err != nil {
		return nil, err
	}
	sort.Slice(tasks, func(i, j int) bool {
		return tasks[i].ScheduledFor.Before(tasks[j].ScheduledFor)
	})
	return tasks, nil
}

// readBackfill loads a backfill document. Callers hold the backfill's key
// lock.
func (s *FileStore) readBackfill(backfillID string) ([]schedule.BackfillTask, error) {
	data, err := util.ReadFile(s.fs, s.backfillPath(backfillID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading backfill %s: %w", backfillID, err)
	}

	var tasks []schedule.BackfillTask
	if err := json.Unmarshal(data, &tasks); err != nil {
		return nil, fmt.Errorf("decoding backfill %s: %w", backfillID, err)
	}
	return tasks, nil
}
