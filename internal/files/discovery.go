package files

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// LockFilePrefix marks editor lock files that sit next to real data files
const LockFilePrefix = "~$"

// FileInfo represents information about a discovered file
type FileInfo struct {
	Path    string
	Name    string
	Size    int64
	ModTime time.Time
	IsDir   bool
}

// Stem returns the file name without its extension
func (f FileInfo) Stem() string {
	return strings.TrimSuffix(f.Name, filepath.Ext(f.Name))
}

// Discovery provides file discovery operations
type Discovery struct{}

// NewDiscovery creates a new file discovery instance
func NewDiscovery() *Discovery {
	return &Discovery{}
}

// FindCSVFiles finds the CSV data files directly inside dir
func (d *Discovery) FindCSVFiles(dir string) ([]FileInfo, error) {
	return d.FindDataFiles(dir, "", ".csv")
}

// FindDataFiles lists regular files in dir whose name starts with prefix and
// ends with ext (case-insensitive). Lock files are skipped. The result is
// sorted by name.
func (d *Discovery) FindDataFiles(dir, prefix, ext string) ([]FileInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	ext = strings.ToLower(ext)
	var files []FileInfo
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}

		name := entry.Name()
		if strings.HasPrefix(name, LockFilePrefix) {
			continue
		}
		if !strings.HasPrefix(name, prefix) || !strings.HasSuffix(strings.ToLower(name), ext) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, FileInfo{
			Path:    filepath.Join(dir, name),
			Name:    name,
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].Name < files[j].Name
	})
	return files, nil
}

// ListDirectories lists all subdirectories in dir, sorted by name
func (d *Discovery) ListDirectories(dir string) ([]FileInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	var dirs []FileInfo
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		dirs = append(dirs, FileInfo{
			Path:    filepath.Join(dir, entry.Name()),
			Name:    entry.Name(),
			ModTime: info.ModTime(),
			IsDir:   true,
		})
	}

	sort.Slice(dirs, func(i, j int) bool {
		return dirs[i].Name < dirs[j].Name
	})
	return dirs, nil
}
