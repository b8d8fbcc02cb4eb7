package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specialistvlad/flowgridgo/internal/engine"
)

func TestParse_Defaults(t *testing.T) {
	var buf bytes.Buffer
	cfg, exit, err := Parse([]string{"pipelines/"}, &buf)
	require.NoError(t, err)
	require.False(t, exit)

	assert.Equal(t, "pipelines/", cfg.PipelinePath)
	assert.Equal(t, engine.DefaultWorkers, cfg.Workers)
	assert.Equal(t, "continue", cfg.Strategy)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Empty(t, cfg.Targets)
	assert.False(t, cfg.Daemon)
	assert.Equal(t, 1, cfg.BackfillParallel)
}

func TestParse_PathSources(t *testing.T) {
	var buf bytes.Buffer

	cfg, _, err := Parse([]string{"--pipelines", "a.hcl"}, &buf)
	require.NoError(t, err)
	assert.Equal(t, "a.hcl", cfg.PipelinePath)

	cfg, _, err = Parse([]string{"-p", "b.hcl"}, &buf)
	require.NoError(t, err)
	assert.Equal(t, "b.hcl", cfg.PipelinePath)

	// The flag wins over the positional argument.
	cfg, _, err = Parse([]string{"--pipelines", "a.hcl", "c.hcl"}, &buf)
	require.NoError(t, err)
	assert.Equal(t, "a.hcl", cfg.PipelinePath)
}

func TestParse_NoPathPrintsUsage(t *testing.T) {
	var buf bytes.Buffer
	cfg, exit, err := Parse(nil, &buf)
	require.NoError(t, err)
	assert.True(t, exit)
	assert.Nil(t, cfg)
	assert.Contains(t, buf.String(), "Usage:")
}

func TestParse_HelpExitsCleanly(t *testing.T) {
	var buf bytes.Buffer
	cfg, exit, err := Parse([]string{"--help"}, &buf)
	require.NoError(t, err)
	assert.True(t, exit)
	assert.Nil(t, cfg)
}

func TestParse_SplitsTargets(t *testing.T) {
	var buf bytes.Buffer
	cfg, _, err := Parse([]string{"--targets", "clean, report,,", "pipelines/"}, &buf)
	require.NoError(t, err)
	assert.Equal(t, []string{"clean", "report"}, cfg.Targets)
}

func TestParse_InvalidValuesAreExitErrors(t *testing.T) {
	cases := map[string][]string{
		"strategy":   {"--strategy", "panic", "pipelines/"},
		"log-format": {"--log-format", "xml", "pipelines/"},
		"log-level":  {"--log-level", "loud", "pipelines/"},
	}
	for name, args := range cases {
		t.Run(name, func(t *testing.T) {
			var buf bytes.Buffer
			_, _, err := Parse(args, &buf)
			require.Error(t, err)
			var exitErr *ExitError
			require.ErrorAs(t, err, &exitErr)
			assert.Equal(t, 2, exitErr.Code)
		})
	}
}

func TestParse_BackfillValidation(t *testing.T) {
	var buf bytes.Buffer

	_, _, err := Parse([]string{"--backfill-start", "2026-03-01", "pipelines/"}, &buf)
	require.Error(t, err)

	_, _, err = Parse([]string{"--daemon", "--backfill-start", "2026-03-01", "--backfill-end", "2026-03-05", "pipelines/"}, &buf)
	require.Error(t, err)

	cfg, _, err := Parse([]string{"--backfill-start", "2026-03-01", "--backfill-end", "2026-03-05", "pipelines/"}, &buf)
	require.NoError(t, err)
	assert.Equal(t, "2026-03-01", cfg.BackfillStart)
	assert.Equal(t, "2026-03-05", cfg.BackfillEnd)
}

func TestParse_FileConfigMerge(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(`
pipeline_path: from-file/
workers: 8
strategy: fail_fast
log_level: debug
check_interval: 30s
`), 0o644))

	var buf bytes.Buffer

	// File values fill in everything the command line left alone.
	cfg, _, err := Parse([]string{"--config", configPath}, &buf)
	require.NoError(t, err)
	assert.Equal(t, "from-file/", cfg.PipelinePath)
	assert.Equal(t, 8, cfg.Workers)
	assert.Equal(t, "fail_fast", cfg.Strategy)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 30*time.Second, cfg.CheckInterval)

	// Explicit flags win over the file.
	cfg, _, err = Parse([]string{"--config", configPath, "--workers", "2", "--strategy", "continue", "cli-path/"}, &buf)
	require.NoError(t, err)
	assert.Equal(t, "cli-path/", cfg.PipelinePath)
	assert.Equal(t, 2, cfg.Workers)
	assert.Equal(t, "continue", cfg.Strategy)
}

func TestParse_FileConfigErrors(t *testing.T) {
	var buf bytes.Buffer

	_, _, err := Parse([]string{"--config", "does-not-exist.yaml", "pipelines/"}, &buf)
	require.Error(t, err)

	dir := t.TempDir()
	badInterval := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(badInterval, []byte("check_interval: often\n"), 0o644))
	_, _, err = Parse([]string{"--config", badInterval, "pipelines/"}, &buf)
	require.Error(t, err)
	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 2, exitErr.Code)
}
