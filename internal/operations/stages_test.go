package operations_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cianalysis/internal/config"
	"cianalysis/internal/dataprocessing"
	apperrors "cianalysis/internal/errors"
	"cianalysis/internal/operations"
	"cianalysis/internal/plotting"
	"cianalysis/internal/shared/testutil"
	"cianalysis/pkg/contracts/domain"
)

type discardRenderer struct{}

func (discardRenderer) Render(string, plotting.Chart) error { return nil }

// newPipeline registers the three pipeline steps over paths with real
// components
func newPipeline(t *testing.T, paths *config.ProjectPaths) *operations.Manager {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	telemetry := dataprocessing.Telemetry{}

	extractor, err := dataprocessing.NewExtractor(dataprocessing.ExtractorConfig{
		PositionT: 3,
		Policy:    dataprocessing.FirstTimepoint{},
	}, logger, telemetry, discardRenderer{})
	require.NoError(t, err)

	manager := newTestManager(t, nil,
		operations.NewBackgroundStage(dataprocessing.NewBackgroundBuilder(logger, telemetry), paths, logger),
		operations.NewExtractionStage(dataprocessing.NewBatchRunner(extractor, logger, telemetry), dataprocessing.BatchConfig{
			Paths:     paths,
			CellType:  domain.CellTypeDOCC,
			PositionT: 3,
		}),
		operations.NewMergeStage(dataprocessing.NewAggregator(logger, telemetry, discardRenderer{}), dataprocessing.MergeConfig{
			ResultsDir: paths.ResultsDir,
			PositionT:  3,
		}, logger),
	)
	return manager
}

func newPaths(t *testing.T) *config.ProjectPaths {
	t.Helper()
	paths, err := config.NewProjectPaths(t.TempDir())
	require.NoError(t, err)
	return paths
}

func TestPipeline_GeneratesBackgroundAndMerges(t *testing.T) {
	paths := newPaths(t)
	testutil.WriteBackgroundXLSX(t, paths.BackgroundInput,
		[]string{"Neurons", "Stack 1"},
		[][]interface{}{{"Neuron 0", 1.0}, {"Neuron 1", 1.0}})
	for i := 0; i < 2; i++ {
		testutil.WriteIntensityCSV(t, filepath.Join(paths.NeuronDir(i), "ch.csv"),
			testutil.Series{0: 3, 1: 5, 2: 4})
	}

	_, state, err := newPipeline(t, paths).Execute(context.Background(), operations.OperationRequest{})
	require.NoError(t, err)

	assert.FileExists(t, paths.BackgroundList)
	assert.Equal(t, "generated", state.GetStage(operations.StageIDBackground).Metadata["source"])

	batch, ok := state.GetContext(operations.ContextKeyBatch)
	require.True(t, ok)
	assert.Len(t, batch.(*domain.BatchSummary).Succeeded, 2)

	merged, ok := state.GetContext(operations.ContextKeyMerge)
	require.True(t, ok)
	assert.Equal(t, []string{"Neuron 0", "Neuron 1"}, merged.(*domain.MergeSummary).Neurons)
	assert.Equal(t, [][]string{
		{"POSITION_T", "Neuron 0", "Neuron 1", "Average", "SEM"},
		{"0", "0", "0", "0", "0"},
		{"1", "1", "1", "1", "0"},
		{"2", "0.5", "0.5", "0.5", "0"},
	}, testutil.ReadCSV(t, paths.MergedCSV()))
}

func TestPipeline_UsesExistingBackgroundList(t *testing.T) {
	paths := newPaths(t)
	testutil.WriteCSV(t, paths.BackgroundList, [][]string{{"Neuron 0"}, {"1.0"}})
	testutil.WriteIntensityCSV(t, filepath.Join(paths.NeuronDir(0), "ch.csv"), testutil.Series{0: 3, 1: 5})

	_, state, err := newPipeline(t, paths).Execute(context.Background(), operations.OperationRequest{})
	require.NoError(t, err)
	assert.Equal(t, "existing", state.GetStage(operations.StageIDBackground).Metadata["source"])
	assert.NoFileExists(t, paths.BackgroundInput)
}

func TestPipeline_MissingBackground(t *testing.T) {
	paths := newPaths(t)

	_, state, err := newPipeline(t, paths).Execute(context.Background(), operations.OperationRequest{})
	require.Error(t, err)
	assert.Equal(t, operations.ErrorTypeValidation, operations.GetErrorType(err))
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypePrecondition))
	assert.Equal(t, operations.StepStatusSkipped, state.GetStage(operations.StageIDExtraction).GetStatus())
	assert.Equal(t, operations.StepStatusSkipped, state.GetStage(operations.StageIDMerge).GetStatus())
}

func TestPipeline_AllNeuronsFail(t *testing.T) {
	paths := newPaths(t)
	// Two background values for a neuron with a single channel
	testutil.WriteCSV(t, paths.BackgroundList, [][]string{{"Neuron 0"}, {"1.0"}, {"2.0"}})
	testutil.WriteIntensityCSV(t, filepath.Join(paths.NeuronDir(0), "ch.csv"), testutil.Series{0: 3})

	_, state, err := newPipeline(t, paths).Execute(context.Background(), operations.OperationRequest{})
	require.Error(t, err)
	assert.Equal(t, operations.StepStatusFailed, state.GetStage(operations.StageIDExtraction).GetStatus())
	assert.Equal(t, operations.StepStatusSkipped, state.GetStage(operations.StageIDMerge).GetStatus())

	batch, ok := state.GetContext(operations.ContextKeyBatch)
	require.True(t, ok)
	require.Len(t, batch.(*domain.BatchSummary).Failed, 1)
	assert.Contains(t, batch.(*domain.BatchSummary).Failed[0].Error, "background")
}

type failingMerger struct{ err error }

func (f failingMerger) Merge(context.Context, dataprocessing.MergeConfig) (*domain.MergeSummary, error) {
	return nil, f.err
}

func TestMergeStage_StorageErrorsAreRetryable(t *testing.T) {
	paths := newPaths(t)
	testutil.WriteResultTable(t, paths.NeuronResultCSV("Neuron 0"), testutil.Series{0: 1})

	stage := operations.NewMergeStage(failingMerger{
		err: apperrors.NewStorageError("disk full", errors.New("ENOSPC")),
	}, dataprocessing.MergeConfig{ResultsDir: paths.ResultsDir, PositionT: 1}, nil)
	state := operations.NewOperationState("test")

	require.NoError(t, stage.Validate(state))
	err := stage.Execute(context.Background(), state)
	require.Error(t, err)
	assert.True(t, operations.IsRetryable(err))

	stage = operations.NewMergeStage(failingMerger{
		err: apperrors.NewParsingError("bad table", nil),
	}, dataprocessing.MergeConfig{ResultsDir: paths.ResultsDir, PositionT: 1}, nil)
	assert.False(t, operations.IsRetryable(stage.Execute(context.Background(), state)))
}

func TestMergeStage_ValidateEmptyResults(t *testing.T) {
	paths := newPaths(t)
	require.NoError(t, paths.EnsureDirectories())

	stage := operations.NewMergeStage(failingMerger{}, dataprocessing.MergeConfig{ResultsDir: paths.ResultsDir, PositionT: 1}, nil)
	err := stage.Validate(operations.NewOperationState("test"))
	assert.ErrorIs(t, err, apperrors.ErrNoNeuronTables)
}

type recordingRunner struct {
	cfg dataprocessing.BatchConfig
}

func (r *recordingRunner) Run(_ context.Context, cfg dataprocessing.BatchConfig) (*domain.BatchSummary, error) {
	r.cfg = cfg
	return &domain.BatchSummary{Succeeded: []domain.NeuronResult{{Label: "Neuron 0"}}}, nil
}

func TestExtractionStage_UsesLoadedBackground(t *testing.T) {
	paths := newPaths(t)
	testutil.WriteCSV(t, paths.BackgroundList, [][]string{{"Neuron 0"}, {"1.5"}})
	lists, err := dataprocessing.ReadBackgroundLists(paths.BackgroundList)
	require.NoError(t, err)

	runner := &recordingRunner{}
	stage := operations.NewExtractionStage(runner, dataprocessing.BatchConfig{Paths: paths, PositionT: 3})

	state := operations.NewOperationState("test")
	require.NoError(t, stage.Execute(context.Background(), state))
	assert.Nil(t, runner.cfg.Background, "without a background step the runner reads the file")

	state.SetContext(operations.ContextKeyBackground, lists)
	require.NoError(t, stage.Execute(context.Background(), state))
	assert.Same(t, lists, runner.cfg.Background)
	assert.Equal(t, 3, runner.cfg.PositionT)
}
