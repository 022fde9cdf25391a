package dataprocessing

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
)

func TestMeanSEM(t *testing.T) {
	tests := []struct {
		name     string
		values   []float64
		wantMean float64
		wantSEM  float64
	}{
		{name: "missing value ignored", values: []float64{1, nan, 3}, wantMean: 2, wantSEM: 1},
		{name: "identical values", values: []float64{0.5, 0.5}, wantMean: 0.5, wantSEM: 0},
		{name: "single value", values: []float64{4}, wantMean: 4, wantSEM: nan},
		{name: "all missing", values: []float64{nan, nan}, wantMean: nan, wantSEM: nan},
		{name: "empty", values: nil, wantMean: nan, wantSEM: nan},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mean, sem := MeanSEM(tt.values)
			assertFloat(t, tt.wantMean, mean)
			assertFloat(t, tt.wantSEM, sem)
		})
	}
}

func TestRowMax(t *testing.T) {
	columns := [][]float64{
		{1, nan, nan, -3},
		{2, 5, nan, -4},
	}
	got := RowMax(columns, 4)
	if diff := cmp.Diff([]float64{2, 5, nan, -3}, got, cmpopts.EquateNaNs()); diff != "" {
		t.Errorf("RowMax mismatch (-want +got):\n%s", diff)
	}
}

func TestRowMeanSEM(t *testing.T) {
	means, sems := RowMeanSEM([][]float64{{1, 2}, {3, nan}}, 2)
	if diff := cmp.Diff([]float64{2, 2}, means, cmpopts.EquateNaNs()); diff != "" {
		t.Errorf("means mismatch (-want +got):\n%s", diff)
	}
	assert.InDelta(t, 1, sems[0], 1e-12)
	assert.True(t, math.IsNaN(sems[1]))
}

func assertFloat(t *testing.T, want, got float64) {
	t.Helper()
	if math.IsNaN(want) {
		assert.True(t, math.IsNaN(got), "want NaN, got %v", got)
		return
	}
	assert.InDelta(t, want, got, 1e-12)
}
