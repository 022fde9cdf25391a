package plotting

import (
	"math"
	"strconv"

	"gonum.org/v1/plot"
)

// IntegerTicks is a plot.Ticker that only places labelled ticks on whole
// numbers. Timepoint axes use it.
type IntegerTicks struct{}

// Ticks implements plot.Ticker
func (IntegerTicks) Ticks(min, max float64) []plot.Tick {
	var ticks []plot.Tick
	labelled := 0
	for _, t := range (plot.DefaultTicks{}).Ticks(min, max) {
		if t.Value != math.Trunc(t.Value) {
			continue
		}
		if !t.IsMinor() {
			t.Label = strconv.FormatFloat(t.Value, 'f', 0, 64)
			labelled++
		}
		ticks = append(ticks, t)
	}
	if labelled > 0 {
		return ticks
	}

	// Narrow ranges: label every whole number inside
	ticks = ticks[:0]
	for v := math.Ceil(min); v <= max; v++ {
		ticks = append(ticks, plot.Tick{Value: v, Label: strconv.FormatFloat(v, 'f', 0, 64)})
	}
	return ticks
}

// fixedTicks labels exactly the given values
func fixedTicks(values []float64) plot.ConstantTicks {
	ticks := make([]plot.Tick, 0, len(values))
	for _, v := range values {
		ticks = append(ticks, plot.Tick{Value: v, Label: strconv.FormatFloat(v, 'f', -1, 64)})
	}
	return plot.ConstantTicks(ticks)
}
