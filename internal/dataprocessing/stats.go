package dataprocessing

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// RowMax returns, per row, the largest value across columns. Missing values
// are ignored; a row with no values is missing.
func RowMax(columns [][]float64, rows int) []float64 {
	out := make([]float64, rows)
	for i := range out {
		out[i] = math.NaN()
		for _, col := range columns {
			v := col[i]
			if math.IsNaN(v) {
				continue
			}
			if math.IsNaN(out[i]) || v > out[i] {
				out[i] = v
			}
		}
	}
	return out
}

// MeanSEM returns the mean and the standard error of the mean of the
// non-missing values. The SEM uses the sample standard deviation (n-1), so it
// is missing for fewer than two values; both are missing for none.
func MeanSEM(values []float64) (mean, sem float64) {
	present := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			present = append(present, v)
		}
	}

	switch len(present) {
	case 0:
		return math.NaN(), math.NaN()
	case 1:
		return present[0], math.NaN()
	}

	mean, std := stat.MeanStdDev(present, nil)
	return mean, std / math.Sqrt(float64(len(present)))
}

// RowMeanSEM applies MeanSEM to every row across columns
func RowMeanSEM(columns [][]float64, rows int) (means, sems []float64) {
	means = make([]float64, rows)
	sems = make([]float64, rows)
	row := make([]float64, len(columns))
	for i := 0; i < rows; i++ {
		for j, col := range columns {
			row[j] = col[i]
		}
		means[i], sems[i] = MeanSEM(row)
	}
	return means, sems
}
