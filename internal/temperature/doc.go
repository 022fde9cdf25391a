// Package temperature lines up a temperature-controller log with the
// fluorescence timeline of an experiment and draws the combined charts.
//
// The controller samples on its own clock. Each fluorescence timepoint is
// scaled onto that clock, rounded to the nearest sample and given the
// sample's elapsed time and temperature reading.
package temperature
