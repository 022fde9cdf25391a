package files

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Manager provides staged output directories
type Manager struct {
	logger *slog.Logger
}

// NewManager creates a new file manager
func NewManager(logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{logger: logger.With(slog.String("component", "file_manager"))}
}

// FileExists checks if a path exists
func (m *Manager) FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// EnsureDirectory creates a directory if it doesn't exist
func (m *Manager) EnsureDirectory(path string) error {
	if err := os.MkdirAll(path, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", path, err)
	}
	return nil
}

// RemoveFiles deletes each path; paths that do not exist are ignored
func (m *Manager) RemoveFiles(paths ...string) error {
	for _, path := range paths {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove %s: %w", path, err)
		}
	}
	return nil
}

// StageDirectory creates an empty hidden directory beside dest. Output is
// written there and then handed to PublishDirectory or Discard.
func (m *Manager) StageDirectory(dest string) (string, error) {
	parent := filepath.Dir(dest)
	if err := m.EnsureDirectory(parent); err != nil {
		return "", err
	}
	staged, err := os.MkdirTemp(parent, "."+filepath.Base(dest)+".staging-*")
	if err != nil {
		return "", fmt.Errorf("failed to create staging directory for %s: %w", dest, err)
	}
	if err := os.Chmod(staged, 0755); err != nil {
		os.RemoveAll(staged)
		return "", fmt.Errorf("failed to set staging directory mode: %w", err)
	}
	return staged, nil
}

// PublishDirectory replaces dest with staged. The previous dest is moved
// aside first and restored if the final rename fails.
func (m *Manager) PublishDirectory(staged, dest string) error {
	var backup string
	if _, err := os.Stat(dest); err == nil {
		backup = filepath.Join(filepath.Dir(dest), "."+filepath.Base(dest)+".previous")
		if err := os.RemoveAll(backup); err != nil {
			return fmt.Errorf("failed to clear %s: %w", backup, err)
		}
		if err := os.Rename(dest, backup); err != nil {
			return fmt.Errorf("failed to move aside %s: %w", dest, err)
		}
	}

	if err := os.Rename(staged, dest); err != nil {
		if backup != "" {
			if restoreErr := os.Rename(backup, dest); restoreErr != nil {
				m.logger.Error("Failed to restore previous output",
					slog.String("dir", dest),
					slog.String("error", restoreErr.Error()))
			}
		}
		return fmt.Errorf("failed to publish %s: %w", dest, err)
	}

	if backup != "" {
		if err := os.RemoveAll(backup); err != nil {
			m.logger.Warn("Failed to remove previous output",
				slog.String("dir", backup),
				slog.String("error", err.Error()))
		}
	}

	m.logger.Debug("Published directory", slog.String("dir", dest))
	return nil
}

// Discard removes a staged directory that will not be published
func (m *Manager) Discard(staged string) {
	if staged == "" {
		return
	}
	if err := os.RemoveAll(staged); err != nil {
		m.logger.Warn("Failed to remove staging directory",
			slog.String("dir", staged),
			slog.String("error", err.Error()))
	}
}
