// Package exporter writes the pipeline's flat tables.
//
// CSVWriter writes a header and records to a temporary file in the
// destination directory and renames it into place, so readers never observe
// a half-written table. With NoOverwrite set, an existing destination is an
// error and is left untouched.
//
// FormatFloat encodes missing values (NaN) as empty fields, which is how every
// table in a project represents "no measurement".
//
// Example usage:
//
//	w := exporter.NewCSVWriter(logger)
//	err := w.WriteCSV("results/Neuron 0.csv", exporter.WriteOptions{
//	    Headers: []string{"POSITION_T", "max_value", "dF/F0"},
//	    Records: records,
//	})
package exporter
