package checkpoint

import (
	"context"
	"strings"
	"sync"
	"time"
)

// MemoryStore is an ephemeral, thread-safe Store backed by sync.Map. It
// suits tests and single-process runs where resume across process restarts
// is not needed.
//
// sync.Map fits the access pattern: the key space is stable within a run
// while values are written frequently from concurrent workers, and each
// (run, asset) key is independent.
type MemoryStore struct {
	states sync.Map // key: runID + "\x00" + assetName, value: State
}

// NewMemoryStore creates an empty in-memory checkpoint store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func memStoreKey(runID, assetName string) string {
	return runID + "\x00" + assetName
}

// MarkComplete records a completion marker for the (run, asset) pair.
func (s *MemoryStore) MarkComplete(_ context.Context, runID, assetName string) error {
	s.states.Store(memStoreKey(runID, assetName), State{
		RunID:       runID,
		AssetName:   assetName,
		Status:      StatusComplete,
		CompletedAt: time.Now().UTC(),
	})
	return nil
}

// IsComplete reports whether a completion marker exists for the pair.
func (s *MemoryStore) IsComplete(_ context.Context, runID, assetName string) (bool, error) {
	_, ok := s.states.Load(memStoreKey(runID, assetName))
	return ok, nil
}

// Run returns all markers recorded for the run, keyed by asset name.
func (s *MemoryStore) Run(_ context.Context, runID string) (map[string]State, error) {
	out := make(map[string]State)
	prefix := runID + "\x00"
	s.states.Range(func(key, value any) bool {
		k := key.(string)
		if strings.HasPrefix(k, prefix) {
			st := value.(State)
			out[st.AssetName] = st
		}
		return true
	})
	return out, nil
}

// Clear removes every marker for the run.
func (s *MemoryStore) Clear(_ context.Context, runID string) error {
	prefix := runID + "\x00"
	s.states.Range(func(key, _ any) bool {
		if strings.HasPrefix(key.(string), prefix) {
			s.states.Delete(key)
		}
		return true
	})
	return nil
}
