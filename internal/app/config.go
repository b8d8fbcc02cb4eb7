package app

import (
	"errors"
	"fmt"
	"time"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	PipelinePath string // hcl files
	Pipeline     string // pipeline name to run; empty selects the first one

	StorePath string // durable store root; empty keeps everything in memory
	Workers   int
	Strategy  string

	LogFormat string
	LogLevel  string

	// RunID resumes a previous execution: checkpointed assets are skipped.
	RunID   string
	Targets []string

	// Daemon runs the schedule loop instead of a single execution.
	Daemon        bool
	CheckInterval time.Duration

	// Backfill mode, selected when BackfillStart is set.
	BackfillStart    string
	BackfillEnd      string
	BackfillTarget   string
	BackfillParallel int
}

// NewConfig validates a Config.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.PipelinePath == "" {
		return nil, errors.New("PipelinePath is a required configuration field and cannot be empty")
	}
	if (cfg.BackfillStart == "") != (cfg.BackfillEnd == "") {
		return nil, errors.New("backfill requires both a start and an end date")
	}
	if cfg.Daemon && cfg.BackfillStart != "" {
		return nil, errors.New("daemon and backfill modes are mutually exclusive")
	}
	if cfg.BackfillParallel < 0 {
		return nil, fmt.Errorf("backfill parallelism must not be negative, got %d", cfg.BackfillParallel)
	}
	return &cfg, nil
}
