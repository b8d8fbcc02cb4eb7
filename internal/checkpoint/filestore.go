package checkpoint

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"

	"github.com/specialistvlad/flowgridgo/internal/keymutex"
)

// FileStore is a durable Store writing one JSON document per run through a
// billy filesystem. Production wiring hands it an osfs root; tests hand it
// memfs. A per-run mutex serializes every access to a run's document, the
// discipline the flat-file layout needs.
type FileStore struct {
	fs    billy.Filesystem
	dir   string
	locks *keymutex.KeyMutex
}

// NewFileStore creates a file-backed checkpoint store rooted at dir within
// the given filesystem.
func NewFileStore(fs billy.Filesystem, dir string) (*FileStore, error) {
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating checkpoint dir %s: %w", dir, err)
	}
	return &FileStore{fs: fs, dir: dir, locks: keymutex.New()}, nil
}

func (s *FileStore) runPath(runID string) string {
	return s.fs.Join(s.dir, runID+".json")
}

// readRun loads the run's marker document. A missing file is an empty run.
func (s *FileStore) readRun(runID string) (map[string]State, error) {
	data, err := util.ReadFile(s.fs, s.runPath(runID))
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]State{}, nil
		}
		return nil, fmt.Errorf("reading checkpoints for run %s: %w", runID, err)
	}

	var states map[string]State
	if err := json.Unmarshal(data, &states); err != nil {
		return nil, fmt.Errorf("decoding checkpoints for run %s: %w", runID, err)
	}
	return states, nil
}

// writeRun persists the run's marker document atomically enough for a
// single-writer key: callers must hold the run's lock.
func (s *FileStore) writeRun(runID string, states map[string]State) error {
	data, err := json.MarshalIndent(states, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding checkpoints for run %s: %w", runID, err)
	}
	if err := util.WriteFile(s.fs, s.runPath(runID), data, 0o644); err != nil {
		return fmt.Errorf("writing checkpoints for run %s: %w", runID, err)
	}
	return nil
}

// MarkComplete records a completion marker for the (run, asset) pair.
func (s *FileStore) MarkComplete(_ context.Context, runID, assetName string) error {
	s.locks.Lock(runID)
	defer s.locks.Unlock(runID)

	states, err := s.readRun(runID)
	if err != nil {
		return err
	}
	states[assetName] = State{
		RunID:       runID,
		AssetName:   assetName,
		Status:      StatusComplete,
		CompletedAt: time.Now().UTC(),
	}
	return s.writeRun(runID, states)
}

// IsComplete reports whether a completion marker exists for the pair. It
// takes the run's lock so a read never races a rewrite of the document.
func (s *FileStore) IsComplete(_ context.Context, runID, assetName string) (bool, error) {
	s.locks.Lock(runID)
	defer s.locks.Unlock(runID)

	states, err := s.readRun(runID)
	if err != nil {
		return false, err
	}
	_, ok := states[assetName]
	return ok, nil
}

// Run returns all markers recorded for the run, keyed by asset name.
func (s *FileStore) Run(_ context.Context, runID string) (map[string]State, error) {
	s.locks.Lock(runID)
	defer s.locks.Unlock(runID)

	return s.readRun(runID)
}

// Clear removes every marker for the run.
func (s *FileStore) Clear(_ context.Context, runID string) error {
	s.locks.Lock(runID)
	defer s.locks.Unlock(runID)

	if err := s.fs.Remove(s.runPath(runID)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("clearing checkpoints for run %s: %w", runID, err)
	}
	return nil
}
