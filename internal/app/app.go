package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/go-git/go-billy/v5/osfs"

	"github.com/specialistvlad/flowgridgo/internal/asset"
	"github.com/specialistvlad/flowgridgo/internal/checkpoint"
	"github.com/specialistvlad/flowgridgo/internal/ctxlog"
	"github.com/specialistvlad/flowgridgo/internal/engine"
	"github.com/specialistvlad/flowgridgo/internal/graph"
	"github.com/specialistvlad/flowgridgo/internal/model"
	"github.com/specialistvlad/flowgridgo/internal/resilience"
	"github.com/specialistvlad/flowgridgo/internal/schedstore"
)

// deadLetterCapacity bounds the in-process dead-letter queue.
const deadLetterCapacity = 128

// App encapsulates the application's dependencies, configuration, and
// lifecycle.
type App struct {
	outW   io.Writer
	logger *slog.Logger
	config *Config

	registry    *asset.Registry
	pipeline    *model.Pipeline
	graph       *graph.Graph
	engine      *engine.Engine
	checkpoints checkpoint.Store
	schedStore  schedstore.Store
	deadLetters *resilience.DeadLetterQueue
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance, including its own isolated logger and registry.
// A failure to load or translate configuration is a fatal startup error and
// panics; the CLI entrypoint recovers.
func NewApp(outW io.Writer, config *Config, modules ...asset.Module) *App {
	logger := newLogger(config.LogLevel, config.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	pipelines, err := model.LoadPipelinesRecursively(ctx, config.PipelinePath)
	if err != nil {
		panic(fmt.Errorf("failed to load pipeline configuration: %w", err))
	}
	pipeline, err := selectPipeline(pipelines, config.Pipeline)
	if err != nil {
		panic(err)
	}
	logger.Debug("Pipeline selected.", "pipeline", pipeline.Name, "assets", len(pipeline.Assets), "schedules", len(pipeline.Schedules))

	registry := asset.NewRegistry()
	if len(modules) == 0 {
		modules = coreModules
	}
	for _, mod := range modules {
		mod.Register(registry)
	}
	registry.RegisterIOManager("memory", asset.NewMemoryIOManager())
	logger.Debug("All operator modules registered.", "count", len(modules))

	assets, err := buildAssets(registry, pipeline.Assets)
	if err != nil {
		panic(fmt.Errorf("failed to translate pipeline %q: %w", pipeline.Name, err))
	}

	g, err := graph.Build(ctx, pipeline.Name, assets)
	if err != nil {
		panic(fmt.Errorf("failed to build dependency graph: %w", err))
	}
	logger.Debug("Dependency graph built.", "asset_count", g.Len())

	checkpoints, schedStore, err := newStores(config.StorePath)
	if err != nil {
		panic(err)
	}

	deadLetters := resilience.NewDeadLetterQueue(deadLetterCapacity)
	eng := engine.New(registry, engine.Options{
		Workers:     config.Workers,
		Checkpoints: checkpoints,
		DeadLetters: deadLetters,
	})

	return &App{
		outW:        outW,
		logger:      logger,
		config:      config,
		registry:    registry,
		pipeline:    pipeline,
		graph:       g,
		engine:      eng,
		checkpoints: checkpoints,
		schedStore:  schedStore,
		deadLetters: deadLetters,
	}
}

// selectPipeline picks the pipeline to run: by name when one was requested,
// otherwise the first one loaded.
func selectPipeline(pipelines []*model.Pipeline, name string) (*model.Pipeline, error) {
	if len(pipelines) == 0 {
		return nil, fmt.Errorf("no pipeline definitions found")
	}
	if name == "" {
		return pipelines[0], nil
	}
	for _, p := range pipelines {
		if p.Name == name {
			return p, nil
		}
	}
	return nil, fmt.Errorf("pipeline %q not found among loaded definitions", name)
}

// newStores builds the checkpoint and schedule stores: file-backed under a
// store path, purely in-memory otherwise.
func newStores(storePath string) (checkpoint.Store, schedstore.Store, error) {
	if storePath == "" {
		return checkpoint.NewMemoryStore(), schedstore.NewMemoryStore(), nil
	}

	root := osfs.New(storePath)
	checkpoints, err := checkpoint.NewFileStore(root, "checkpoints")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open checkpoint store: %w", err)
	}
	schedStore, err := schedstore.NewFileStore(root, "schedules")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open schedule store: %w", err)
	}
	return checkpoints, schedStore, nil
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *asset.Registry {
	return a.registry
}

// Graph returns the built dependency graph. This is primarily for testing.
func (a *App) Graph() *graph.Graph {
	return a.graph
}

// DeadLetters returns the engine's dead-letter queue for inspection.
func (a *App) DeadLetters() *resilience.DeadLetterQueue {
	return a.deadLetters
}
