// Package shared holds code used across packages that belongs to no single
// layer. It currently has one subpackage:
//
//   - testutil: a capturing slog handler plus writers for the raw and derived
//     file formats (intensity exports, TrackMate exports, background
//     workbooks, result tables, analog temperature logs)
//
// Example usage:
//
//	func TestExtract(t *testing.T) {
//	    logger, logs := testutil.NewTestLogger(t)
//	    testutil.WriteIntensityCSV(t, filepath.Join(dir, "ch1.csv"), testutil.Series{0: 3, 1: 5})
//	    ...
//	    testutil.AssertNoErrors(t, logs)
//	}
package shared
