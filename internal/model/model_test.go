package model

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writePipelineFile is a helper writing one .hcl file into dir.
func writePipelineFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestLoadPipelinesRecursively_FullPipeline(t *testing.T) {
	dir := t.TempDir()
	writePipelineFile(t, dir, "metrics.hcl", `
pipeline "daily_metrics" {
  description = "Daily reporting pipeline."

  asset "raw_events" {
    operator        = "generate"
    materialization = "table"
    io_manager      = "memory"
    timeout         = "30s"

    config = {
      count = 100
      label = "raw"
    }
  }

  asset "clean_events" {
    operator   = "passthrough"
    depends_on = ["raw_events"]

    retry {
      max_attempts = 5
      backoff      = "exponential"
      base_delay   = "200ms"
      jitter       = "equal"
    }

    circuit_breaker {
      failure_threshold = 3
      cooldown          = "60s"
    }
  }

  schedule "nightly" {
    type     = "cron"
    spec     = "0 0 * * *"
    timezone = "UTC"
    targets  = ["clean_events"]
  }
}
`)

	pipelines, err := LoadPipelinesRecursively(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, pipelines, 1)

	p := pipelines[0]
	assert.Equal(t, "daily_metrics", p.Name)
	assert.Equal(t, "Daily reporting pipeline.", p.Description)
	require.Len(t, p.Assets, 2)
	require.Len(t, p.Schedules, 1)

	raw := p.Assets[0]
	assert.Equal(t, "raw_events", raw.Name)
	assert.Equal(t, "generate", raw.Operator)
	assert.Equal(t, "table", raw.Materialization)
	assert.Equal(t, "memory", raw.IOManager)
	assert.Equal(t, "30s", raw.Timeout)
	assert.Equal(t, map[string]string{"count": "100", "label": "raw"}, raw.Config)
	assert.Nil(t, raw.Retry)

	clean := p.Assets[1]
	assert.Equal(t, []string{"raw_events"}, clean.DependsOn)
	require.NotNil(t, clean.Retry)
	assert.Equal(t, 5, clean.Retry.MaxAttempts)
	assert.Equal(t, "exponential", clean.Retry.Backoff)
	require.NotNil(t, clean.CircuitBreaker)
	assert.Equal(t, 3, clean.CircuitBreaker.FailureThreshold)
	assert.Equal(t, "60s", clean.CircuitBreaker.Cooldown)

	nightly := p.Schedules[0]
	assert.Equal(t, "nightly", nightly.Name)
	assert.Equal(t, "cron", nightly.Type)
	assert.Equal(t, "0 0 * * *", nightly.Spec)
	assert.Equal(t, []string{"clean_events"}, nightly.Targets)
}

func TestLoadPipelinesRecursively_MergesAcrossFiles(t *testing.T) {
	dir := t.TempDir()
	writePipelineFile(t, dir, "a.hcl", `
pipeline "shared" {
  asset "first" {
    operator = "noop"
  }
}
`)
	sub := filepath.Join(dir, "nested")
	require.NoError(t, os.MkdirAll(sub, 0o755))
	writePipelineFile(t, sub, "b.hcl", `
pipeline "shared" {
  asset "second" {
    operator = "noop"
    depends_on = ["first"]
  }
}
`)

	pipelines, err := LoadPipelinesRecursively(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, pipelines, 1)
	assert.Len(t, pipelines[0].Assets, 2)
}

func TestLoadPipelinesRecursively_EmptyDir(t *testing.T) {
	pipelines, err := LoadPipelinesRecursively(context.Background(), t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, pipelines)
}

func TestLoadPipelinesRecursively_MalformedFile(t *testing.T) {
	dir := t.TempDir()
	writePipelineFile(t, dir, "broken.hcl", `pipeline "x" {`)

	_, err := LoadPipelinesRecursively(context.Background(), dir)
	require.Error(t, err)
}

func TestLoadPipelinesRecursively_AssetWithoutOperator(t *testing.T) {
	dir := t.TempDir()
	writePipelineFile(t, dir, "bad.hcl", `
pipeline "x" {
  asset "orphan" {
    operator = ""
  }
}
`)

	_, err := LoadPipelinesRecursively(context.Background(), dir)
	require.Error(t, err)
}
