package dataprocessing

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"cianalysis/internal/config"
	apperrors "cianalysis/internal/errors"
	"cianalysis/pkg/contracts/domain"
)

// BaselinePolicy chooses F0 from a neuron's max_value series. It returns NaN
// when no baseline can be determined.
type BaselinePolicy interface {
	Name() string
	Baseline(timepoints []int, maxValues []float64) float64
}

// FirstTimepoint uses max_value at the earliest timepoint that has one
type FirstTimepoint struct{}

// Name implements BaselinePolicy
func (FirstTimepoint) Name() string { return string(domain.CellTypeDOCC) }

// Baseline implements BaselinePolicy
func (FirstTimepoint) Baseline(_ []int, maxValues []float64) float64 {
	for _, v := range maxValues {
		if !math.IsNaN(v) {
			return v
		}
	}
	return math.NaN()
}

// WindowMinimum uses the smallest max_value among timepoints Start..End
// inclusive
type WindowMinimum struct {
	Start int
	End   int
}

// Name implements BaselinePolicy
func (WindowMinimum) Name() string { return string(domain.CellTypeDOWC) }

// Baseline implements BaselinePolicy
func (w WindowMinimum) Baseline(timepoints []int, maxValues []float64) float64 {
	var window []float64
	for i, tp := range timepoints {
		if tp < w.Start || tp > w.End || math.IsNaN(maxValues[i]) {
			continue
		}
		window = append(window, maxValues[i])
	}
	if len(window) == 0 {
		return math.NaN()
	}
	return floats.Min(window)
}

// PolicyFor returns the baseline policy of a cell type
func PolicyFor(cellType domain.CellType, cfg config.AnalysisConfig) (BaselinePolicy, error) {
	switch cellType {
	case domain.CellTypeDOCC:
		return FirstTimepoint{}, nil
	case domain.CellTypeDOWC:
		return WindowMinimum{Start: cfg.BaselineWindowStart, End: cfg.BaselineWindowEnd}, nil
	default:
		return nil, apperrors.NewValidationError(fmt.Sprintf("unknown cell type %q", cellType), nil)
	}
}

// UsableBaseline reports whether f0 can divide: finite and non-zero
func UsableBaseline(f0 float64) bool {
	return !math.IsNaN(f0) && !math.IsInf(f0, 0) && f0 != 0
}

// DeltaF computes (max - f0) / f0 per row. An unusable f0 makes every value
// missing.
func DeltaF(maxValues []float64, f0 float64) []float64 {
	out := make([]float64, len(maxValues))
	for i, v := range maxValues {
		if !UsableBaseline(f0) {
			out[i] = math.NaN()
			continue
		}
		out[i] = (v - f0) / f0
	}
	return out
}
