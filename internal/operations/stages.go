package operations

import (
	"context"
	"fmt"
	"log/slog"

	"cianalysis/internal/config"
	"cianalysis/internal/dataprocessing"
	apperrors "cianalysis/internal/errors"
	"cianalysis/internal/validation"
	"cianalysis/pkg/contracts/domain"
)

// BackgroundBuilder produces the background list from the workbook
type BackgroundBuilder interface {
	Build(ctx context.Context, input, output string) (*dataprocessing.BackgroundLists, error)
}

// BatchRunner extracts every neuron of a project
type BatchRunner interface {
	Run(ctx context.Context, cfg dataprocessing.BatchConfig) (*domain.BatchSummary, error)
}

// Merger aggregates the per-neuron tables
type Merger interface {
	Merge(ctx context.Context, cfg dataprocessing.MergeConfig) (*domain.MergeSummary, error)
}

// stepError marks storage failures as retryable; every other failure of the
// pipeline is deterministic
func stepError(step string, err error) *OperationError {
	return NewExecutionError(step, err, apperrors.IsType(err, apperrors.ErrTypeStorage))
}

// BackgroundStage makes sure Background_list.csv exists. An existing list is
// used as is; otherwise it is generated from background_i.xlsx.
type BackgroundStage struct {
	BaseStage
	builder BackgroundBuilder
	paths   *config.ProjectPaths
	logger  *slog.Logger
}

// NewBackgroundStage creates the background step
func NewBackgroundStage(builder BackgroundBuilder, paths *config.ProjectPaths, logger *slog.Logger) *BackgroundStage {
	if logger == nil {
		logger = slog.Default()
	}
	return &BackgroundStage{
		BaseStage: NewBaseStage(StageIDBackground, StageNameBackground, nil),
		builder:   builder,
		paths:     paths,
		logger:    logger,
	}
}

// Validate requires either the list or the workbook it is built from
func (s *BackgroundStage) Validate(*OperationState) error {
	if config.FileExists(s.paths.BackgroundList) || config.FileExists(s.paths.BackgroundInput) {
		return nil
	}
	return apperrors.NewPreconditionError(
		fmt.Sprintf("neither %s nor %s exists", s.paths.BackgroundList, s.paths.BackgroundInput), nil)
}

// Execute loads or builds the background list
func (s *BackgroundStage) Execute(ctx context.Context, state *OperationState) error {
	stepState := state.GetStage(s.ID())

	if config.FileExists(s.paths.BackgroundList) {
		lists, err := dataprocessing.ReadBackgroundLists(s.paths.BackgroundList)
		if err != nil {
			return stepError(s.ID(), err)
		}
		s.logger.InfoContext(ctx, "Using existing background list",
			slog.String("path", s.paths.BackgroundList),
			slog.Int("neurons", lists.Len()))
		state.SetContext(ContextKeyBackground, lists)
		if stepState != nil {
			stepState.SetMetadata("source", "existing")
			stepState.SetMetadata("neurons", lists.Len())
		}
		return nil
	}

	lists, err := s.builder.Build(ctx, s.paths.BackgroundInput, s.paths.BackgroundList)
	if err != nil {
		return stepError(s.ID(), err)
	}
	state.SetContext(ContextKeyBackground, lists)
	if stepState != nil {
		stepState.SetMetadata("source", "generated")
		stepState.SetMetadata("neurons", lists.Len())
	}
	return nil
}

// ExtractionStage runs the per-neuron extraction over the project
type ExtractionStage struct {
	BaseStage
	runner BatchRunner
	config dataprocessing.BatchConfig
}

// NewExtractionStage creates the extraction step
func NewExtractionStage(runner BatchRunner, cfg dataprocessing.BatchConfig) *ExtractionStage {
	return &ExtractionStage{
		BaseStage: NewBaseStage(StageIDExtraction, StageNameExtraction, []string{StageIDBackground}),
		runner:    runner,
		config:    cfg,
	}
}

// Execute runs the batch over the lists loaded by the background step.
// Individual neuron failures are recorded in the
// summary; the step fails only when nothing succeeded.
func (s *ExtractionStage) Execute(ctx context.Context, state *OperationState) error {
	cfg := s.config
	if v, ok := state.GetContext(ContextKeyBackground); ok {
		if lists, ok := v.(*dataprocessing.BackgroundLists); ok {
			cfg.Background = lists
		}
	}

	summary, err := s.runner.Run(ctx, cfg)
	if err != nil {
		return stepError(s.ID(), err)
	}
	state.SetContext(ContextKeyBatch, summary)

	if stepState := state.GetStage(s.ID()); stepState != nil {
		stepState.SetMetadata("succeeded", len(summary.Succeeded))
		stepState.SetMetadata("failed", len(summary.Failed))
	}

	if summary.AllFailed() {
		return NewExecutionError(s.ID(),
			fmt.Errorf("all %d neurons failed", summary.Total()), false)
	}
	return nil
}

// MergeStage aggregates the tables written by the extraction step
type MergeStage struct {
	BaseStage
	merger    Merger
	config    dataprocessing.MergeConfig
	validator *validation.FileValidator
}

// NewMergeStage creates the merge step
func NewMergeStage(merger Merger, cfg dataprocessing.MergeConfig, logger *slog.Logger) *MergeStage {
	return &MergeStage{
		BaseStage: NewBaseStage(StageIDMerge, StageNameMerge, []string{StageIDExtraction}),
		merger:    merger,
		config:    cfg,
		validator: validation.NewFileValidator(logger),
	}
}

// Validate requires a readable results directory
func (s *MergeStage) Validate(*OperationState) error {
	return s.validator.ValidateResultsDirectory(s.config.ResultsDir)
}

// Execute merges the tables
func (s *MergeStage) Execute(ctx context.Context, state *OperationState) error {
	summary, err := s.merger.Merge(ctx, s.config)
	if err != nil {
		return stepError(s.ID(), err)
	}
	state.SetContext(ContextKeyMerge, summary)
	if stepState := state.GetStage(s.ID()); stepState != nil {
		stepState.SetMetadata("neurons", len(summary.Neurons))
		stepState.SetMetadata("table", summary.TablePath)
	}
	return nil
}
