package operations

import (
	"time"
)

// Step identifiers
const (
	StageIDBackground = "background"
	StageIDExtraction = "extraction"
	StageIDMerge      = "merge"
)

// Step names
const (
	StageNameBackground = "Background List"
	StageNameExtraction = "Neuron Extraction"
	StageNameMerge      = "Merge"
)

// Context keys under which steps publish their results
const (
	ContextKeyBackground = "background_lists"
	ContextKeyBatch      = "batch_summary"
	ContextKeyMerge      = "merge_summary"
)

// Default timeouts
const (
	DefaultStageTimeout      = 30 * time.Minute
	DefaultBackgroundTimeout = 5 * time.Minute
	DefaultExtractionTimeout = 60 * time.Minute
	DefaultMergeTimeout      = 10 * time.Minute
)

// RetryConfig defines retry behavior for steps
type RetryConfig struct {
	MaxAttempts  int           `json:"max_attempts"`
	InitialDelay time.Duration `json:"initial_delay"`
	MaxDelay     time.Duration `json:"max_delay"`
	Multiplier   float64       `json:"multiplier"`
}

// NewRetryConfig returns the default retry configuration. Steps are not
// retried unless they return a retryable OperationError.
func NewRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  1,
		InitialDelay: 1 * time.Second,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}
}

// OperationRequest represents a request to execute the pipeline
type OperationRequest struct {
	ID         string                 `json:"id"`
	Parameters map[string]interface{} `json:"parameters,omitempty"`
}

// OperationResponse represents the response from a pipeline execution
type OperationResponse struct {
	ID       string                `json:"id"`
	Status   OperationStatusValue  `json:"status"`
	Duration time.Duration         `json:"duration"`
	Steps    map[string]*StepState `json:"steps"`
	Error    string                `json:"error,omitempty"`
}
