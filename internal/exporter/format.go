package exporter

import (
	"math"
	"strconv"
	"strings"
)

// FormatFloat formats a value in shortest round-trip decimal form; NaN and
// infinities are written as an empty field
func FormatFloat(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return ""
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// FormatDecimal is FormatFloat with a trailing ".0" on whole numbers, so a
// value never reads back as a plain digit string
func FormatDecimal(f float64) string {
	s := FormatFloat(f)
	if s == "" || strings.ContainsAny(s, ".eE") {
		return s
	}
	return s + ".0"
}

// FormatInt formats an integer column value
func FormatInt(i int) string {
	return strconv.Itoa(i)
}

// FormatRow formats an integer key followed by float values
func FormatRow(key int, values []float64) []string {
	row := make([]string, 0, len(values)+1)
	row = append(row, FormatInt(key))
	for _, v := range values {
		row = append(row, FormatFloat(v))
	}
	return row
}
