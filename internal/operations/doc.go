// Package operations runs the analysis pipeline as an ordered set of steps.
//
// A Manager holds a Registry of steps. Execute orders them by their declared
// dependencies and runs them one after another, recording each step's state
// in an OperationState. When a step fails, every step that depends on it is
// skipped, and the failure is returned wrapped in an OperationError.
//
// The pipeline steps are:
//
//   - background: makes sure Background_list.csv exists, generating it from
//     the background workbook when necessary
//   - extraction: computes ΔF/F0 for every neuron listed in the background list
//   - merge: aggregates the per-neuron tables (optional)
//
// Example usage:
//
//	manager := operations.NewManager(logger, telemetry, nil, nil)
//	manager.RegisterStage(operations.NewBackgroundStage(builder, paths))
//	manager.RegisterStage(operations.NewExtractionStage(runner, batchConfig))
//	resp, err := manager.Execute(ctx, operations.OperationRequest{})
package operations
