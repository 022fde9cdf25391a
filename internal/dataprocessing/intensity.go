package dataprocessing

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"cianalysis/internal/config"
	apperrors "cianalysis/internal/errors"
)

// Channel is one tracked measurement source of a neuron, read from one raw
// intensity export
type Channel struct {
	// ID is the export's file name without extension
	ID     string
	Path   string
	Values map[int]float64
}

// ParseIntensityFile reads the POSITION_T and MEAN_INTENSITY_CH1 columns of
// a raw export. Rows without a whole-number timepoint are skipped; an empty or
// non-numeric intensity is missing. When a timepoint repeats, the largest
// intensity wins.
func ParseIntensityFile(path string) (*Channel, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperrors.NewStorageError(fmt.Sprintf("failed to open %s", path), err)
	}
	defer f.Close()

	header, rows, err := ReadRecords(f)
	if err != nil {
		return nil, apperrors.NewParsingError(fmt.Sprintf("failed to read %s", path), err)
	}

	tcol := HeaderIndex(header, config.ColumnTimepoint)
	icol := HeaderIndex(header, config.ColumnIntensity)
	if tcol < 0 || icol < 0 {
		return nil, apperrors.NewParsingError(
			fmt.Sprintf("%s must have %s and %s columns", filepath.Base(path), config.ColumnTimepoint, config.ColumnIntensity), nil).
			WithContext("file", path)
	}

	values := make(map[int]float64)
	for _, row := range rows {
		tp, ok := ParseWhole(Cell(row, tcol))
		if !ok {
			continue
		}
		v := ParseValue(Cell(row, icol))
		if prev, seen := values[tp]; seen && !(v > prev) && !math.IsNaN(prev) {
			continue
		}
		values[tp] = v
	}

	name := filepath.Base(path)
	return &Channel{
		ID:     strings.TrimSuffix(name, filepath.Ext(name)),
		Path:   path,
		Values: values,
	}, nil
}

// subtract returns the channel's values with background removed
func (c *Channel) subtract(background float64) map[int]float64 {
	out := make(map[int]float64, len(c.Values))
	for tp, v := range c.Values {
		out[tp] = v - background
	}
	return out
}
