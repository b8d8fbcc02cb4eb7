package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/specialistvlad/flowgridgo/internal/app"
	"github.com/specialistvlad/flowgridgo/internal/engine"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Parse processes command-line arguments. It returns a populated Config, a
// boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("flowgridgo", flag.ContinueOnError)
	flagSet.SetOutput(output)

	// Custom usage/help text function
	flagSet.Usage = func() {
		fmt.Fprint(output, `
FlowGridGo - A declarative, dependency-aware data pipeline orchestrator.

Usage:
  flowgridgo [options] [PIPELINE_PATH]

Arguments:
  PIPELINE_PATH
    Path to a single .hcl file or a directory containing .hcl files.

Options:
`)
		flagSet.PrintDefaults()
	}

	pipelineFlag := flagSet.String("pipelines", "", "Path to the pipeline file or directory.")
	pFlag := flagSet.String("p", "", "Path to the pipeline file or directory (shorthand).")
	nameFlag := flagSet.String("pipeline", "", "Name of the pipeline to run. Defaults to the first one loaded.")
	configFlag := flagSet.String("config", "", "Path to an optional YAML configuration file.")
	storePathFlag := flagSet.String("store-path", "", "Directory for durable checkpoint and schedule state. Empty keeps state in memory.")
	workersFlag := flagSet.Int("workers", engine.DefaultWorkers, "Number of concurrent workers for the execution engine.")
	strategyFlag := flagSet.String("strategy", "continue", "Error strategy. Options: 'fail_fast', 'continue', 'retry'.")
	logFormatFlag := flagSet.String("log-format", "json", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	runIDFlag := flagSet.String("run-id", "", "Resume a previous run: assets already checkpointed under this id are skipped.")
	targetsFlag := flagSet.String("targets", "", "Comma-separated asset names to execute (with their upstream closure). Empty runs the whole pipeline.")
	daemonFlag := flagSet.Bool("daemon", false, "Run the schedule loop instead of a single execution.")
	checkIntervalFlag := flagSet.Duration("check-interval", 0, "How often the schedule loop evaluates triggers. 0 uses the default.")
	backfillStartFlag := flagSet.String("backfill-start", "", "First date (YYYY-MM-DD) of a backfill range.")
	backfillEndFlag := flagSet.String("backfill-end", "", "Last date (YYYY-MM-DD) of a backfill range, inclusive.")
	backfillTargetFlag := flagSet.String("backfill-target", "", "Asset to backfill. Empty backfills the whole pipeline.")
	backfillParallelFlag := flagSet.Int("backfill-parallel", 1, "How many backfill dates execute at once.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	// Flags explicitly set on the command line win over file values.
	setFlags := make(map[string]bool)
	flagSet.Visit(func(f *flag.Flag) { setFlags[f.Name] = true })

	path := ""
	if *pipelineFlag != "" {
		path = *pipelineFlag
	} else if *pFlag != "" {
		path = *pFlag
	} else if flagSet.NArg() > 0 {
		path = flagSet.Arg(0)
	}

	cfg := app.Config{
		PipelinePath:     path,
		Pipeline:         *nameFlag,
		StorePath:        *storePathFlag,
		Workers:          *workersFlag,
		Strategy:         strings.ToLower(*strategyFlag),
		LogFormat:        strings.ToLower(*logFormatFlag),
		LogLevel:         strings.ToLower(*logLevelFlag),
		RunID:            *runIDFlag,
		Targets:          splitTargets(*targetsFlag),
		Daemon:           *daemonFlag,
		CheckInterval:    *checkIntervalFlag,
		BackfillStart:    *backfillStartFlag,
		BackfillEnd:      *backfillEndFlag,
		BackfillTarget:   *backfillTargetFlag,
		BackfillParallel: *backfillParallelFlag,
	}

	if *configFlag != "" {
		fileCfg, err := app.LoadFileConfig(*configFlag)
		if err != nil {
			return nil, false, &ExitError{Code: 2, Message: err.Error()}
		}
		if err := applyFileConfig(&cfg, fileCfg, setFlags); err != nil {
			return nil, false, &ExitError{Code: 2, Message: err.Error()}
		}
	}

	if cfg.PipelinePath == "" {
		slog.Debug("No pipeline path provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}

	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}
	if _, err := engine.ParseErrorStrategy(cfg.Strategy); err != nil {
		return nil, false, &ExitError{Code: 2, Message: "invalid strategy: must be 'fail_fast', 'continue', or 'retry'"}
	}
	slog.Debug("CLI parameter validation complete.")

	config, err := app.NewConfig(cfg)
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}

// applyFileConfig fills in config fields the user did not set on the command
// line from the YAML file.
func applyFileConfig(cfg *app.Config, file *app.FileConfig, setFlags map[string]bool) error {
	if cfg.PipelinePath == "" && file.PipelinePath != "" {
		cfg.PipelinePath = file.PipelinePath
	}
	if !setFlags["pipeline"] && file.Pipeline != "" {
		cfg.Pipeline = file.Pipeline
	}
	if !setFlags["store-path"] && file.StorePath != "" {
		cfg.StorePath = file.StorePath
	}
	if !setFlags["workers"] && file.Workers > 0 {
		cfg.Workers = file.Workers
	}
	if !setFlags["strategy"] && file.Strategy != "" {
		cfg.Strategy = strings.ToLower(file.Strategy)
	}
	if !setFlags["log-format"] && file.LogFormat != "" {
		cfg.LogFormat = strings.ToLower(file.LogFormat)
	}
	if !setFlags["log-level"] && file.LogLevel != "" {
		cfg.LogLevel = strings.ToLower(file.LogLevel)
	}
	if !setFlags["check-interval"] && file.CheckInterval != "" {
		interval, err := time.ParseDuration(file.CheckInterval)
		if err != nil {
			return fmt.Errorf("invalid check_interval in config file: %w", err)
		}
		cfg.CheckInterval = interval
	}
	return nil
}

// splitTargets parses the comma-separated targets flag.
func splitTargets(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
