package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specialistvlad/flowgridgo/internal/asset"
	"github.com/specialistvlad/flowgridgo/internal/checkpoint"
	"github.com/specialistvlad/flowgridgo/internal/graph"
	"github.com/specialistvlad/flowgridgo/internal/resilience"
	"github.com/specialistvlad/flowgridgo/internal/testutil"
)

// buildTestGraph is a helper building a graph that must succeed.
func buildTestGraph(t *testing.T, assets ...*asset.Asset) *graph.Graph {
	t.Helper()
	g, err := graph.Build(context.Background(), "test", assets)
	require.NoError(t, err)
	return g
}

// newTestEngine creates an engine with an empty registry and the given
// options.
func newTestEngine(opts Options) *Engine {
	return New(asset.NewRegistry(), opts)
}

func TestExecute_LinearPipeline(t *testing.T) {
	log := &testutil.RunLog{}
	g := buildTestGraph(t,
		&asset.Asset{Name: "raw", Operator: &testutil.RecordingOperator{Name: "raw", Log: log}},
		&asset.Asset{Name: "clean", Operator: &testutil.RecordingOperator{Name: "clean", Log: log}, DependsOn: []string{"raw"}},
		&asset.Asset{Name: "report", Operator: &testutil.RecordingOperator{Name: "report", Log: log}, DependsOn: []string{"clean"}},
	)

	eng := newTestEngine(Options{})
	pctx := asset.NewPipelineContext("test", "run-1")
	result, err := eng.Execute(context.Background(), g, pctx, nil, StrategyContinue)
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, 3, result.Succeeded)
	assert.Equal(t, 3, result.Executed)
	assert.Zero(t, result.Failed)
	assert.Equal(t, []string{"raw", "clean", "report"}, log.Names())
}

func TestExecute_RecordsFlowDownstream(t *testing.T) {
	g := buildTestGraph(t,
		&asset.Asset{Name: "source", Operator: &testutil.CountingOperator{Output: testutil.Records(5)}},
		&asset.Asset{Name: "sink", Operator: asset.OperatorFunc(func(_ context.Context, input []asset.Record, _ *asset.PipelineContext) ([]asset.Record, error) {
			return input, nil
		}), DependsOn: []string{"source"}},
	)

	eng := newTestEngine(Options{})
	result, err := eng.Execute(context.Background(), g, asset.NewPipelineContext("test", "run-1"), nil, StrategyContinue)
	require.NoError(t, err)

	require.True(t, result.Success)
	assert.Equal(t, 5, result.Results["source"].Records)
	assert.Equal(t, 5, result.Results["sink"].Records)
}

func TestExecute_FailFastAbortsRemainingLevels(t *testing.T) {
	failing := &testutil.FailingOperator{}
	downstream := &testutil.CountingOperator{}
	g := buildTestGraph(t,
		&asset.Asset{Name: "a", Operator: &testutil.CountingOperator{}},
		&asset.Asset{Name: "b", Operator: failing, DependsOn: []string{"a"}},
		&asset.Asset{Name: "c", Operator: downstream, DependsOn: []string{"b"}},
	)

	eng := newTestEngine(Options{})
	result, err := eng.Execute(context.Background(), g, asset.NewPipelineContext("test", "run-1"), nil, StrategyFailFast)
	require.NoError(t, err)

	assert.False(t, result.Success)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 1, result.Succeeded)
	assert.Zero(t, downstream.Calls())
	// The aborted asset never reached a terminal state.
	_, ran := result.Results["c"]
	assert.False(t, ran)
}

func TestExecute_ContinueSkipsOnlyDependents(t *testing.T) {
	independent := &testutil.CountingOperator{}
	g := buildTestGraph(t,
		&asset.Asset{Name: "a", Operator: &testutil.CountingOperator{}},
		&asset.Asset{Name: "b", Operator: &testutil.FailingOperator{}, DependsOn: []string{"a"}},
		&asset.Asset{Name: "c", Operator: &testutil.CountingOperator{}, DependsOn: []string{"b"}},
		&asset.Asset{Name: "d", Operator: independent, DependsOn: []string{"a"}},
	)

	eng := newTestEngine(Options{})
	result, err := eng.Execute(context.Background(), g, asset.NewPipelineContext("test", "run-1"), nil, StrategyContinue)
	require.NoError(t, err)

	assert.False(t, result.Success)
	assert.Equal(t, 2, result.Succeeded)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, 1, independent.Calls())

	skipped := result.Results["c"]
	assert.True(t, skipped.Skipped)
	assert.Equal(t, "b", skipped.SkipReason)
	assert.Zero(t, skipped.Attempts)
}

func TestExecute_AssetRetryPolicyAttempts(t *testing.T) {
	flaky := &testutil.FlakyOperator{FailuresBeforeSuccess: 2}
	g := buildTestGraph(t,
		&asset.Asset{
			Name:     "flaky",
			Operator: flaky,
			Retry:    &resilience.RetryConfig{MaxAttempts: 3},
		},
	)

	eng := newTestEngine(Options{})
	result, err := eng.Execute(context.Background(), g, asset.NewPipelineContext("test", "run-1"), nil, StrategyContinue)
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, 3, result.Results["flaky"].Attempts)
	assert.Equal(t, 3, flaky.Calls())
}

func TestExecute_RetryStrategyAppliesDefaultPolicy(t *testing.T) {
	failing := &testutil.FailingOperator{}
	g := buildTestGraph(t, &asset.Asset{Name: "doomed", Operator: failing})

	eng := newTestEngine(Options{
		DefaultRetry: &resilience.RetryConfig{MaxAttempts: 3},
	})
	result, err := eng.Execute(context.Background(), g, asset.NewPipelineContext("test", "run-1"), nil, StrategyRetry)
	require.NoError(t, err)

	assert.False(t, result.Success)
	assert.Equal(t, 3, failing.Calls())
	assert.Equal(t, 3, result.Results["doomed"].Attempts)
}

func TestExecute_ContinueStrategyDoesNotRetry(t *testing.T) {
	failing := &testutil.FailingOperator{}
	g := buildTestGraph(t, &asset.Asset{Name: "doomed", Operator: failing})

	eng := newTestEngine(Options{
		DefaultRetry: &resilience.RetryConfig{MaxAttempts: 3},
	})
	_, err := eng.Execute(context.Background(), g, asset.NewPipelineContext("test", "run-1"), nil, StrategyContinue)
	require.NoError(t, err)

	// The default policy applies only under the retry strategy.
	assert.Equal(t, 1, failing.Calls())
}

func TestExecute_ResumeSkipsCheckpointedAssets(t *testing.T) {
	counting := &testutil.CountingOperator{}
	flakyDownstream := &testutil.FlakyOperator{FailuresBeforeSuccess: 1}
	g := buildTestGraph(t,
		&asset.Asset{Name: "expensive", Operator: counting},
		&asset.Asset{Name: "fragile", Operator: flakyDownstream, DependsOn: []string{"expensive"}},
	)

	eng := newTestEngine(Options{Checkpoints: checkpoint.NewMemoryStore()})
	pctx := asset.NewPipelineContext("test", "run-fixed")

	first, err := eng.Execute(context.Background(), g, pctx, nil, StrategyContinue)
	require.NoError(t, err)
	assert.False(t, first.Success)
	assert.Equal(t, 1, counting.Calls())

	// Re-running under the same run id re-executes only the failed asset.
	second, err := eng.Execute(context.Background(), g, asset.NewPipelineContext("test", "run-fixed"), nil, StrategyContinue)
	require.NoError(t, err)
	assert.True(t, second.Success)
	assert.Equal(t, 1, counting.Calls())
	assert.True(t, second.Results["expensive"].FromCheckpoint)
	assert.False(t, second.Results["fragile"].FromCheckpoint)
}

func TestExecute_FreshRunIDReExecutesEverything(t *testing.T) {
	counting := &testutil.CountingOperator{}
	g := buildTestGraph(t, &asset.Asset{Name: "expensive", Operator: counting})

	eng := newTestEngine(Options{Checkpoints: checkpoint.NewMemoryStore()})
	for _, runID := range []string{"run-1", "run-2"} {
		result, err := eng.Execute(context.Background(), g, asset.NewPipelineContext("test", runID), nil, StrategyContinue)
		require.NoError(t, err)
		assert.True(t, result.Success)
	}
	assert.Equal(t, 2, counting.Calls())
}

func TestExecute_BreakerShortCircuitsSecondRun(t *testing.T) {
	failing := &testutil.FailingOperator{}
	g := buildTestGraph(t,
		&asset.Asset{
			Name:     "guarded",
			Operator: failing,
			Breaker:  &resilience.BreakerConfig{FailureThreshold: 1, Cooldown: time.Hour},
		},
	)

	eng := newTestEngine(Options{})
	_, err := eng.Execute(context.Background(), g, asset.NewPipelineContext("test", "run-1"), nil, StrategyContinue)
	require.NoError(t, err)
	assert.Equal(t, 1, failing.Calls())

	// The breaker is shared across runs, so the second run is rejected
	// without invoking the operator.
	result, err := eng.Execute(context.Background(), g, asset.NewPipelineContext("test", "run-2"), nil, StrategyContinue)
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, 1, failing.Calls())

	rejected := result.Results["guarded"]
	assert.ErrorIs(t, rejected.Err, resilience.ErrCircuitOpen)
	assert.Zero(t, rejected.Attempts)
}

func TestExecute_TimeoutFailsAsset(t *testing.T) {
	g := buildTestGraph(t,
		&asset.Asset{
			Name:     "stuck",
			Operator: &testutil.BlockingOperator{},
			Timeout:  20 * time.Millisecond,
		},
	)

	eng := newTestEngine(Options{})
	result, err := eng.Execute(context.Background(), g, asset.NewPipelineContext("test", "run-1"), nil, StrategyContinue)
	require.NoError(t, err)

	assert.False(t, result.Success)
	require.Error(t, result.Results["stuck"].Err)
	assert.Contains(t, result.Results["stuck"].Err.Error(), "timed out")
}

func TestExecute_PanickingOperatorIsContained(t *testing.T) {
	g := buildTestGraph(t,
		&asset.Asset{
			Name: "panicky",
			Operator: asset.OperatorFunc(func(_ context.Context, _ []asset.Record, _ *asset.PipelineContext) ([]asset.Record, error) {
				panic("operator bug")
			}),
		},
		&asset.Asset{Name: "steady", Operator: &testutil.CountingOperator{}},
	)

	eng := newTestEngine(Options{})
	result, err := eng.Execute(context.Background(), g, asset.NewPipelineContext("test", "run-1"), nil, StrategyContinue)
	require.NoError(t, err)

	assert.False(t, result.Success)
	assert.Equal(t, 1, result.Succeeded)
	assert.Contains(t, result.Results["panicky"].Err.Error(), "panicked")
}

func TestExecute_DeadLetterCapturesPermanentFailures(t *testing.T) {
	dlq := resilience.NewDeadLetterQueue(10)
	g := buildTestGraph(t,
		&asset.Asset{
			Name:     "doomed",
			Operator: &testutil.FailingOperator{},
			Retry:    &resilience.RetryConfig{MaxAttempts: 2},
		},
	)

	eng := newTestEngine(Options{DeadLetters: dlq})
	_, err := eng.Execute(context.Background(), g, asset.NewPipelineContext("test", "run-1"), nil, StrategyContinue)
	require.NoError(t, err)

	items := dlq.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "doomed", items[0].AssetName)
	assert.Equal(t, "run-1", items[0].RunID)
	assert.Equal(t, 2, items[0].Attempts)
	require.Error(t, items[0].Err)
}

func TestExecute_TargetsRunOnlyClosure(t *testing.T) {
	unrelated := &testutil.CountingOperator{}
	g := buildTestGraph(t,
		&asset.Asset{Name: "raw", Operator: &testutil.CountingOperator{}},
		&asset.Asset{Name: "clean", Operator: &testutil.CountingOperator{}, DependsOn: []string{"raw"}},
		&asset.Asset{Name: "unrelated", Operator: unrelated},
	)

	eng := newTestEngine(Options{})
	result, err := eng.Execute(context.Background(), g, asset.NewPipelineContext("test", "run-1"), []string{"clean"}, StrategyContinue)
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, 2, result.Succeeded)
	assert.Zero(t, unrelated.Calls())
}

func TestExecute_UnknownTargetIsGraphError(t *testing.T) {
	g := buildTestGraph(t, &asset.Asset{Name: "a", Operator: &testutil.CountingOperator{}})

	eng := newTestEngine(Options{})
	_, err := eng.Execute(context.Background(), g, asset.NewPipelineContext("test", "run-1"), []string{"ghost"}, StrategyContinue)
	require.Error(t, err)
	var unknownErr *graph.UnknownAssetError
	assert.ErrorAs(t, err, &unknownErr)
}

func TestExecute_AssignsRunIDWhenEmpty(t *testing.T) {
	g := buildTestGraph(t, &asset.Asset{Name: "a", Operator: &testutil.CountingOperator{}})

	eng := newTestEngine(Options{})
	pctx := asset.NewPipelineContext("test", "")
	result, err := eng.Execute(context.Background(), g, pctx, nil, StrategyContinue)
	require.NoError(t, err)

	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, pctx.RunID, result.RunID)
}

func TestExecute_MaterializesThroughIOManager(t *testing.T) {
	registry := asset.NewRegistry()
	registry.RegisterIOManager("memory", asset.NewMemoryIOManager())

	g := buildTestGraph(t,
		&asset.Asset{
			Name:            "stored",
			Operator:        &testutil.CountingOperator{Output: testutil.Records(3)},
			Materialization: asset.MaterializationTable,
			IOManager:       "memory",
		},
	)

	eng := New(registry, Options{})
	pctx := asset.NewPipelineContext("test", "run-1")
	result, err := eng.Execute(context.Background(), g, pctx, nil, StrategyContinue)
	require.NoError(t, err)
	require.True(t, result.Success)

	mgr, err := registry.IOManager("memory")
	require.NoError(t, err)
	stored, err := mgr.LoadInput(context.Background(), pctx, "stored")
	require.NoError(t, err)
	assert.Len(t, stored, 3)
}

func TestExecute_IncrementalMaterializationAccumulates(t *testing.T) {
	registry := asset.NewRegistry()
	registry.RegisterIOManager("memory", asset.NewMemoryIOManager())

	g := buildTestGraph(t,
		&asset.Asset{
			Name:            "append",
			Operator:        &testutil.CountingOperator{Output: testutil.Records(2)},
			Materialization: asset.MaterializationIncremental,
			IOManager:       "memory",
		},
		&asset.Asset{
			Name:            "replace",
			Operator:        &testutil.CountingOperator{Output: testutil.Records(2)},
			Materialization: asset.MaterializationTable,
			IOManager:       "memory",
		},
	)

	eng := New(registry, Options{})
	pctx := asset.NewPipelineContext("test", "run-1")
	result, err := eng.Execute(context.Background(), g, pctx, nil, StrategyContinue)
	require.NoError(t, err)
	require.True(t, result.Success)

	result, err = eng.Execute(context.Background(), g, asset.NewPipelineContext("test", "run-2"), nil, StrategyContinue)
	require.NoError(t, err)
	require.True(t, result.Success)

	mgr, err := registry.IOManager("memory")
	require.NoError(t, err)

	// Incremental output grows run over run; table output is replaced.
	appended, err := mgr.LoadInput(context.Background(), pctx, "append")
	require.NoError(t, err)
	assert.Len(t, appended, 4)

	replaced, err := mgr.LoadInput(context.Background(), pctx, "replace")
	require.NoError(t, err)
	assert.Len(t, replaced, 2)
}

func TestExecute_FailFastRunsIndependentSameLevelAsset(t *testing.T) {
	independent := &testutil.CountingOperator{}
	downstream := &testutil.CountingOperator{}
	g := buildTestGraph(t,
		&asset.Asset{Name: "a", Operator: &testutil.CountingOperator{}},
		&asset.Asset{Name: "b", Operator: &testutil.FailingOperator{}, DependsOn: []string{"a"}},
		&asset.Asset{Name: "c", Operator: downstream, DependsOn: []string{"b"}},
		&asset.Asset{Name: "d", Operator: independent},
	)

	eng := newTestEngine(Options{})
	result, err := eng.Execute(context.Background(), g, asset.NewPipelineContext("test", "run-1"), nil, StrategyFailFast)
	require.NoError(t, err)

	// The abort stops dispatch of further levels; an independent asset that
	// shares a level with successes still runs to completion.
	assert.False(t, result.Success)
	assert.Equal(t, 1, independent.Calls())
	require.Contains(t, result.Results, "d")
	assert.True(t, result.Results["d"].Success)
	assert.Zero(t, downstream.Calls())
	assert.NotContains(t, result.Results, "c")
}

func TestParseErrorStrategy(t *testing.T) {
	for input, want := range map[string]ErrorStrategy{
		"fail_fast": StrategyFailFast,
		"continue":  StrategyContinue,
		"retry":     StrategyRetry,
		"RETRY":     StrategyRetry,
	} {
		got, err := ParseErrorStrategy(input)
		require.NoError(t, err, input)
		assert.Equal(t, want, got, input)
	}

	_, err := ParseErrorStrategy("explode")
	require.Error(t, err)
}
