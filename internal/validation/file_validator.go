package validation

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	apperrors "cianalysis/internal/errors"
)

// lockPrefix marks office lock files that sit next to the real workbook
const lockPrefix = "~$"

// FileValidator checks the preconditions every command has on its inputs
// and outputs before any work starts
type FileValidator struct {
	logger *slog.Logger
}

// NewFileValidator creates a new file validator
func NewFileValidator(logger *slog.Logger) *FileValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileValidator{
		logger: logger,
	}
}

// ValidateInputDirectory validates that dir exists and is a directory
func (v *FileValidator) ValidateInputDirectory(dir string) error {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		v.logger.Error("Input directory does not exist",
			slog.String("directory", dir))
		return apperrors.NewPreconditionError(
			fmt.Sprintf("input directory %s does not exist", dir), err)
	}
	if err != nil {
		v.logger.Error("Failed to stat input directory",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return apperrors.NewStorageError(
			fmt.Sprintf("failed to stat directory %s", dir), err)
	}
	if !info.IsDir() {
		v.logger.Error("Input path is not a directory",
			slog.String("path", dir))
		return apperrors.NewPreconditionError(
			fmt.Sprintf("%s is not a directory", dir), nil)
	}
	return nil
}

// ValidateResultsDirectory requires dir to hold at least one CSV table.
// The merge step has nothing to aggregate otherwise.
func (v *FileValidator) ValidateResultsDirectory(dir string) error {
	if err := v.ValidateInputDirectory(dir); err != nil {
		return err
	}
	count, err := v.CountFiles(dir, "*.csv")
	if err != nil {
		return err
	}
	if count == 0 {
		v.logger.Error("Results directory holds no tables",
			slog.String("directory", dir))
		return apperrors.NewPreconditionError(
			fmt.Sprintf("results directory %s is empty", dir), apperrors.ErrNoNeuronTables)
	}

	v.logger.Info("Results directory validated",
		slog.String("directory", dir),
		slog.Int("tables", count))
	return nil
}

// ValidateOutputDirectory ensures output directory exists or can be created
func (v *FileValidator) ValidateOutputDirectory(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		v.logger.Error("Failed to create output directory",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return apperrors.NewStorageError(
			fmt.Sprintf("failed to create output directory %s", dir), err)
	}

	// Verify it's writable by creating a test file
	testFile := filepath.Join(dir, ".write_test")
	file, err := os.Create(testFile)
	if err != nil {
		v.logger.Error("Output directory is not writable",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return apperrors.NewStorageError(
			fmt.Sprintf("output directory %s is not writable", dir), err)
	}
	file.Close()
	os.Remove(testFile)

	v.logger.Debug("Output directory validated",
		slog.String("directory", dir))
	return nil
}

// ValidateFile checks that path exists and is a regular file
func (v *FileValidator) ValidateFile(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		v.logger.Error("File does not exist",
			slog.String("file", path))
		return apperrors.NewPreconditionError(
			fmt.Sprintf("file %s does not exist", path), err)
	}
	if err != nil {
		v.logger.Error("Failed to stat file",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return apperrors.NewStorageError(
			fmt.Sprintf("failed to stat file %s", path), err)
	}
	if info.IsDir() {
		v.logger.Error("Path is a directory, not a file",
			slog.String("path", path))
		return apperrors.NewPreconditionError(
			fmt.Sprintf("%s is a directory, not a file", path), nil)
	}
	return nil
}

// ValidateNoOverwrite fails when path already exists. Generated files that
// users may have edited by hand are never replaced.
func (v *FileValidator) ValidateNoOverwrite(path string) error {
	_, err := os.Stat(path)
	if err == nil {
		v.logger.Error("Refusing to overwrite existing output",
			slog.String("file", path))
		return apperrors.NewPreconditionError(
			fmt.Sprintf("%s already exists", path), apperrors.ErrOutputExists)
	}
	if !os.IsNotExist(err) {
		return apperrors.NewStorageError(
			fmt.Sprintf("failed to stat %s", path), err)
	}
	return nil
}

// CountFiles counts files matching pattern in directory
func (v *FileValidator) CountFiles(dir string, pattern string) (int, error) {
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		v.logger.Error("Failed to count files",
			slog.String("directory", dir),
			slog.String("pattern", pattern),
			slog.String("error", err.Error()))
		return 0, apperrors.NewValidationError(
			fmt.Sprintf("invalid file pattern %q", pattern), err)
	}

	fileCount := 0
	for _, match := range matches {
		if info, err := os.Stat(match); err == nil && !info.IsDir() {
			fileCount++
		}
	}

	v.logger.Debug("Counted files",
		slog.String("directory", dir),
		slog.String("pattern", pattern),
		slog.Int("count", fileCount))
	return fileCount, nil
}

// ValidateExcelFile checks that path is a readable workbook rather than an
// office lock file
func (v *FileValidator) ValidateExcelFile(path string) error {
	if strings.HasPrefix(filepath.Base(path), lockPrefix) {
		v.logger.Warn("Rejecting temporary Excel file",
			slog.String("file", path))
		return apperrors.NewPreconditionError(
			fmt.Sprintf("file %s is a temporary Excel file", path), nil)
	}

	if err := v.ValidateFile(path); err != nil {
		return err
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".xlsx" {
		v.logger.Error("File is not an Excel workbook",
			slog.String("file", path),
			slog.String("extension", ext))
		return apperrors.NewPreconditionError(
			fmt.Sprintf("file %s is not an .xlsx workbook (extension: %s)", path, ext), nil)
	}
	return nil
}

// ValidateCSVFile checks that path exists and carries a .csv extension
func (v *FileValidator) ValidateCSVFile(path string) error {
	if err := v.ValidateFile(path); err != nil {
		return err
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".csv" {
		v.logger.Error("File is not a CSV file",
			slog.String("file", path),
			slog.String("extension", ext))
		return apperrors.NewPreconditionError(
			fmt.Sprintf("file %s is not a CSV file (extension: %s)", path, ext), nil)
	}
	return nil
}
