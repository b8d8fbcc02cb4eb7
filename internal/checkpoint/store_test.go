package checkpoint

import (
	"context"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// storeFactories lets every behavior test run against both implementations.
var storeFactories = map[string]func(t *testing.T) Store{
	"memory": func(_ *testing.T) Store { return NewMemoryStore() },
	"file": func(t *testing.T) Store {
		s, err := NewFileStore(memfs.New(), "checkpoints")
		require.NoError(t, err)
		return s
	},
}

func TestStore_MarkAndCheck(t *testing.T) {
	for name, newStore := range storeFactories {
		t.Run(name, func(t *testing.T) {
			s := newStore(t)
			ctx := context.Background()

			done, err := s.IsComplete(ctx, "run-1", "raw")
			require.NoError(t, err)
			assert.False(t, done)

			require.NoError(t, s.MarkComplete(ctx, "run-1", "raw"))

			done, err = s.IsComplete(ctx, "run-1", "raw")
			require.NoError(t, err)
			assert.True(t, done)
		})
	}
}

func TestStore_RunsAreIsolated(t *testing.T) {
	for name, newStore := range storeFactories {
		t.Run(name, func(t *testing.T) {
			s := newStore(t)
			ctx := context.Background()

			require.NoError(t, s.MarkComplete(ctx, "run-1", "raw"))

			done, err := s.IsComplete(ctx, "run-2", "raw")
			require.NoError(t, err)
			assert.False(t, done)
		})
	}
}

func TestStore_RunListsMarkers(t *testing.T) {
	for name, newStore := range storeFactories {
		t.Run(name, func(t *testing.T) {
			s := newStore(t)
			ctx := context.Background()

			require.NoError(t, s.MarkComplete(ctx, "run-1", "raw"))
			require.NoError(t, s.MarkComplete(ctx, "run-1", "clean"))

			states, err := s.Run(ctx, "run-1")
			require.NoError(t, err)
			require.Len(t, states, 2)
			assert.Equal(t, StatusComplete, states["raw"].Status)
			assert.Equal(t, "clean", states["clean"].AssetName)
			assert.False(t, states["raw"].CompletedAt.IsZero())
		})
	}
}

func TestStore_ClearRemovesRun(t *testing.T) {
	for name, newStore := range storeFactories {
		t.Run(name, func(t *testing.T) {
			s := newStore(t)
			ctx := context.Background()

			require.NoError(t, s.MarkComplete(ctx, "run-1", "raw"))
			require.NoError(t, s.Clear(ctx, "run-1"))

			done, err := s.IsComplete(ctx, "run-1", "raw")
			require.NoError(t, err)
			assert.False(t, done)

			// Clearing an unknown run is not an error.
			require.NoError(t, s.Clear(ctx, "never-existed"))
		})
	}
}

func TestFileStore_SurvivesReopen(t *testing.T) {
	fs := memfs.New()
	ctx := context.Background()

	first, err := NewFileStore(fs, "checkpoints")
	require.NoError(t, err)
	require.NoError(t, first.MarkComplete(ctx, "run-1", "raw"))

	second, err := NewFileStore(fs, "checkpoints")
	require.NoError(t, err)
	done, err := second.IsComplete(ctx, "run-1", "raw")
	require.NoError(t, err)
	assert.True(t, done)
}
