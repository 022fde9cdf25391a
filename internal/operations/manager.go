package operations

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"cianalysis/internal/dataprocessing"
	"cianalysis/internal/infrastructure"
)

// Manager orchestrates pipeline execution
type Manager struct {
	registry  *Registry
	config    *Config
	logger    *slog.Logger
	telemetry dataprocessing.Telemetry

	// Active operations
	mu         sync.RWMutex
	operations map[string]*OperationState
}

// NewManager creates a new pipeline manager
func NewManager(logger *slog.Logger, telemetry dataprocessing.Telemetry, registry *Registry, config *Config) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if registry == nil {
		registry = NewRegistry()
	}
	if config == nil {
		config = NewConfig()
	}

	return &Manager{
		registry:   registry,
		config:     config,
		logger:     infrastructure.WithComponent(logger, "operations"),
		telemetry:  telemetry,
		operations: make(map[string]*OperationState),
	}
}

// RegisterStage registers a step with the pipeline
func (m *Manager) RegisterStage(step Step) error {
	return m.registry.Register(step)
}

// SetConfig updates the pipeline configuration
func (m *Manager) SetConfig(config *Config) {
	if config != nil {
		m.config = config
	}
}

// GetConfig returns the current configuration
func (m *Manager) GetConfig() *Config {
	return m.config
}

// GetRegistry returns the registry of steps
func (m *Manager) GetRegistry() *Registry {
	return m.registry
}

// Execute runs every registered step in dependency order. The returned state
// is complete even when an error is returned.
func (m *Manager) Execute(ctx context.Context, req OperationRequest) (*OperationResponse, *OperationState, error) {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	ctx, span := m.telemetry.Start(ctx, "pipeline.run", attribute.String("operation_id", req.ID))
	defer span.End()

	state := NewOperationState(req.ID)
	for k, v := range req.Parameters {
		state.SetConfig(k, v)
	}

	m.storeOperation(state)
	defer m.removeOperation(req.ID)

	steps, err := m.registry.GetDependencyOrder()
	if err != nil {
		err = NewFatalError("invalid step graph", err)
		m.logger.ErrorContext(ctx, "operation_error",
			slog.String("operation_id", req.ID),
			slog.String("error", err.Error()))
		state.Fail(err)
		infrastructure.RecordError(ctx, err)
		return m.createResponse(state), state, err
	}

	for _, step := range steps {
		state.SetStage(step.ID(), NewStepState(step.ID(), step.Name()))
	}

	m.logger.InfoContext(ctx, "operation_start",
		slog.String("operation_id", req.ID),
		slog.Int("step_count", len(steps)),
		slog.Any("parameters", req.Parameters))

	state.Start()
	err = m.executeSequential(ctx, state, steps)

	switch {
	case err != nil && GetErrorType(err) == ErrorTypeCancellation:
		state.Cancel(err)
	case err != nil:
		state.Fail(err)
	default:
		state.Complete()
	}
	if err != nil {
		infrastructure.RecordError(ctx, err)
	}

	m.logger.InfoContext(ctx, "operation_complete",
		slog.String("operation_id", req.ID),
		slog.String("status", string(state.Status)),
		slog.Duration("duration", state.Duration()))
	return m.createResponse(state), state, err
}

// executeSequential executes steps one by one
func (m *Manager) executeSequential(ctx context.Context, state *OperationState, steps []Step) error {
	var firstErr error
	for i, step := range steps {
		if err := ctx.Err(); err != nil {
			m.logger.WarnContext(ctx, "operation_cancelled",
				slog.String("operation_id", state.ID),
				slog.String("step", step.ID()))
			m.skipPending(state, steps, "operation cancelled")
			return NewCancellationError(step.ID(), err)
		}

		stepState := state.GetStage(step.ID())
		if stepState.GetStatus() == StepStatusSkipped {
			m.logger.InfoContext(ctx, "stage_skipped",
				slog.String("operation_id", state.ID),
				slog.String("step", step.ID()),
				slog.String("reason", stepState.Message))
			continue
		}

		m.logger.InfoContext(ctx, "executing_stage",
			slog.String("operation_id", state.ID),
			slog.String("step", step.ID()),
			slog.Int("stage_number", i+1),
			slog.Int("total_stages", len(steps)))

		err := m.executeStage(ctx, state, step)
		if err == nil {
			continue
		}

		m.logger.ErrorContext(ctx, "stage_error",
			slog.String("operation_id", state.ID),
			slog.String("step", step.ID()),
			slog.String("error", err.Error()))
		m.skipDependentStages(state, steps, step.ID())
		if GetErrorType(err) == ErrorTypeCancellation {
			m.skipPending(state, steps, "operation cancelled")
			return err
		}
		if !m.config.ContinueOnError {
			m.skipPending(state, steps, fmt.Sprintf("operation stopped after %s failed", step.ID()))
			return err
		}
		if firstErr == nil {
			firstErr = err
		}
		m.logger.WarnContext(ctx, "stage_failed_continuing",
			slog.String("operation_id", state.ID),
			slog.String("step", step.ID()))
	}
	return firstErr
}

// executeStage executes a single step with retry logic
func (m *Manager) executeStage(ctx context.Context, state *OperationState, step Step) error {
	stepState := state.GetStage(step.ID())
	if stepState == nil {
		return NewFatalError(fmt.Sprintf("state of step %s not found", step.ID()), nil)
	}

	if err := m.checkDependencies(state, step); err != nil {
		stepState.Skip(err.Error())
		return err
	}

	if err := step.Validate(state); err != nil {
		verr := NewValidationError(step.ID(), err)
		stepState.Fail(verr)
		return verr
	}

	timeout := m.config.GetStageTimeout(step.ID())
	stageCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	retry := m.config.RetryConfig
	attempts := max(retry.MaxAttempts, 1)
	for attempt := 1; ; attempt++ {
		stepState.Start()
		m.logger.DebugContext(ctx, "stage_start",
			slog.String("operation_id", state.ID),
			slog.String("step", step.ID()),
			slog.Int("attempt", attempt))

		start := time.Now()
		err := step.Execute(stageCtx, state)
		duration := time.Since(start)
		m.telemetry.Metrics.RecordStageDuration(ctx, step.ID(), duration)

		if err == nil {
			stepState.Complete("step completed")
			m.logger.InfoContext(ctx, "stage_complete",
				slog.String("operation_id", state.ID),
				slog.String("step", step.ID()),
				slog.Duration("duration", duration))
			return nil
		}

		switch {
		case errors.Is(stageCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil:
			terr := NewTimeoutError(step.ID(), timeout.String())
			terr.Cause = err
			stepState.Fail(terr)
			return terr
		case ctx.Err() != nil:
			cerr := NewCancellationError(step.ID(), err)
			stepState.Fail(cerr)
			return cerr
		case !IsRetryable(err) || attempt >= attempts:
			werr := WrapError(err, step.ID())
			stepState.Fail(werr)
			return werr
		}

		delay := m.calculateRetryDelay(attempt, retry)
		m.logger.WarnContext(ctx, "stage_retry",
			slog.String("operation_id", state.ID),
			slog.String("step", step.ID()),
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", attempts),
			slog.Duration("delay", delay),
			slog.String("error", err.Error()))

		select {
		case <-time.After(delay):
		case <-stageCtx.Done():
			terr := NewTimeoutError(step.ID(), timeout.String())
			stepState.Fail(terr)
			return terr
		}
	}
}

// skipDependentStages marks every pending step that depends, directly or
// transitively, on failedStageID as skipped
func (m *Manager) skipDependentStages(state *OperationState, steps []Step, failedStageID string) {
	for _, step := range steps {
		for _, dep := range step.GetDependencies() {
			if dep != failedStageID {
				continue
			}
			stepState := state.GetStage(step.ID())
			if stepState != nil && stepState.GetStatus() == StepStatusPending {
				stepState.Skip(fmt.Sprintf("dependency %s did not complete", failedStageID))
				m.skipDependentStages(state, steps, step.ID())
			}
			break
		}
	}
}

// skipPending marks every step that has not run as skipped
func (m *Manager) skipPending(state *OperationState, steps []Step, reason string) {
	for _, step := range steps {
		if s := state.GetStage(step.ID()); s != nil && s.GetStatus() == StepStatusPending {
			s.Skip(reason)
		}
	}
}

// checkDependencies verifies that all dependencies are satisfied
func (m *Manager) checkDependencies(state *OperationState, step Step) error {
	for _, dep := range step.GetDependencies() {
		depState := state.GetStage(dep)
		if depState == nil {
			return NewDependencyError(step.ID(), dep, fmt.Sprintf("dependency %s not found", dep))
		}
		if status := depState.GetStatus(); status != StepStatusCompleted {
			return NewDependencyError(step.ID(), dep, fmt.Sprintf("dependency %s not completed (status: %s)", dep, status))
		}
	}
	return nil
}

// calculateRetryDelay grows the delay geometrically up to MaxDelay
func (m *Manager) calculateRetryDelay(attempt int, config RetryConfig) time.Duration {
	delay := time.Duration(float64(config.InitialDelay) * math.Pow(config.Multiplier, float64(attempt-1)))
	if config.MaxDelay > 0 && delay > config.MaxDelay {
		delay = config.MaxDelay
	}
	return delay
}

// createResponse creates a response from state
func (m *Manager) createResponse(state *OperationState) *OperationResponse {
	resp := &OperationResponse{
		ID:       state.ID,
		Status:   state.Status,
		Duration: state.Duration(),
		Steps:    state.Steps,
	}
	if state.Error != nil {
		resp.Error = state.Error.Error()
	}
	return resp
}

// GetOperation reports whether an operation is running and its status
func (m *Manager) GetOperation(id string) (OperationStatusValue, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state, exists := m.operations[id]
	if !exists {
		return "", false
	}
	state.mu.RLock()
	defer state.mu.RUnlock()
	return state.Status, true
}

func (m *Manager) storeOperation(state *OperationState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.operations[state.ID] = state
}

func (m *Manager) removeOperation(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.operations, id)
}
