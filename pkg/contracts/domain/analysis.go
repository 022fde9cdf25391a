// Package domain holds the value types shared between the analysis stages,
// the command drivers and the results browser.
package domain

import (
	"fmt"
	"time"
)

// CellType selects how F0 is chosen for a neuron
type CellType string

const (
	// CellTypeDOCC uses the first timepoint with a measurement as F0
	CellTypeDOCC CellType = "DOCC"
	// CellTypeDOWC uses the minimum inside an early window as F0
	CellTypeDOWC CellType = "DOWC"
)

// ParseCellType validates a cell type name
func ParseCellType(s string) (CellType, error) {
	switch CellType(s) {
	case CellTypeDOCC, CellTypeDOWC:
		return CellType(s), nil
	default:
		return "", fmt.Errorf("unknown cell type %q (want DOCC or DOWC)", s)
	}
}

// NeuronResult describes one successful extractor run
type NeuronResult struct {
	Label        string   `json:"label"`
	Channels     []string `json:"channels"`
	SkippedFiles []string `json:"skipped_files,omitempty"`
	F0           *float64 `json:"f0"`
	Rows         int      `json:"rows"`
	TablePath    string   `json:"table_path"`
	PlotPath     string   `json:"plot_path"`
}

// BaselineDefined reports whether dF/F0 could be computed
func (r *NeuronResult) BaselineDefined() bool {
	return r.F0 != nil
}

// NeuronFailure records why one neuron was not processed
type NeuronFailure struct {
	Index int    `json:"index"`
	Label string `json:"label"`
	Error string `json:"error"`
}

// BatchSummary is the outcome of a batch run over all neurons
type BatchSummary struct {
	CellType  CellType        `json:"cell_type"`
	PositionT int             `json:"position_t"`
	Succeeded []NeuronResult  `json:"succeeded"`
	Failed    []NeuronFailure `json:"failed"`
	Duration  time.Duration   `json:"duration"`
}

// Total returns the number of neurons attempted
func (s *BatchSummary) Total() int {
	return len(s.Succeeded) + len(s.Failed)
}

// AllFailed reports whether at least one neuron was attempted and none succeeded
func (s *BatchSummary) AllFailed() bool {
	return s.Total() > 0 && len(s.Succeeded) == 0
}

// MergeSummary is the outcome of the aggregation step
type MergeSummary struct {
	Neurons      []string `json:"neurons"`
	SkippedFiles []string `json:"skipped_files,omitempty"`
	Rows         int      `json:"rows"`
	TablePath    string   `json:"table_path"`
	PlotPath     string   `json:"plot_path"`
}

// AlignmentSummary is the outcome of a temperature alignment
type AlignmentSummary struct {
	Folder    string   `json:"folder"`
	Neurons   []string `json:"neurons"`
	Rows      int      `json:"rows"`
	TablePath string   `json:"table_path"`
	PlotPaths []string `json:"plot_paths"`
}
