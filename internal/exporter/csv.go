package exporter

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	apperrors "cianalysis/internal/errors"
)

// CSVWriter provides CSV export functionality
type CSVWriter struct {
	logger *slog.Logger
}

// NewCSVWriter creates a new CSV writer instance
func NewCSVWriter(logger *slog.Logger) *CSVWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CSVWriter{logger: logger.With(slog.String("component", "csv_writer"))}
}

// WriteOptions configures CSV writing behavior
type WriteOptions struct {
	Headers     []string
	Records     [][]string
	BOMPrefix   bool // Add UTF-8 BOM for Excel compatibility
	NoOverwrite bool // Fail with ErrOutputExists when the destination exists
}

// WriteCSV writes data to filePath through a temporary sibling file
func (w *CSVWriter) WriteCSV(filePath string, options WriteOptions) error {
	w.logger.Debug("Writing CSV file",
		slog.String("file_path", filePath),
		slog.Int("record_count", len(options.Records)))

	if options.NoOverwrite {
		if _, err := os.Stat(filePath); err == nil {
			return apperrors.NewPreconditionError(
				fmt.Sprintf("refusing to overwrite %s", filePath), apperrors.ErrOutputExists)
		}
	}

	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return apperrors.NewStorageError("failed to create directory", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(filePath)+".tmp-*")
	if err != nil {
		return apperrors.NewStorageError("failed to create temporary file", err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	if options.BOMPrefix {
		if _, err := tmp.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
			return apperrors.NewStorageError("failed to write BOM", err)
		}
	}

	if err := writeRecords(tmp, options.Headers, options.Records); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return apperrors.NewStorageError("failed to close temporary file", err)
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		return apperrors.NewStorageError("failed to set file mode", err)
	}
	if err := os.Rename(tmpPath, filePath); err != nil {
		return apperrors.NewStorageError(fmt.Sprintf("failed to publish %s", filePath), err)
	}
	committed = true
	return nil
}

// WriteSimpleCSV writes a CSV file with headers and records, replacing any
// existing file
func (w *CSVWriter) WriteSimpleCSV(filePath string, headers []string, records [][]string) error {
	return w.WriteCSV(filePath, WriteOptions{
		Headers: headers,
		Records: records,
	})
}

func writeRecords(f *os.File, headers []string, records [][]string) error {
	writer := csv.NewWriter(f)

	if len(headers) > 0 {
		if err := writer.Write(headers); err != nil {
			return apperrors.NewStorageError("failed to write headers", err)
		}
	}
	for i, record := range records {
		if err := writer.Write(record); err != nil {
			return apperrors.NewStorageError(fmt.Sprintf("failed to write record %d", i), err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return apperrors.NewStorageError("failed to flush CSV", err)
	}
	return nil
}
