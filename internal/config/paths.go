package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
)

// ProjectPaths contains every location the pipeline reads or writes for one
// experiment. It is the single source of truth for project file paths.
type ProjectPaths struct {
	Root            string
	ResultsDir      string
	NeuronPlotsDir  string
	MergedDir       string
	BackgroundList  string
	BackgroundInput string
	MetricsFile     string
	TraceFile       string
}

// NewProjectPaths resolves the layout below root
func NewProjectPaths(root string) (*ProjectPaths, error) {
	if root == "" {
		return nil, fmt.Errorf("project root must not be empty")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve project root %s: %w", root, err)
	}

	results := filepath.Join(abs, ResultsDirName)
	return &ProjectPaths{
		Root:            abs,
		ResultsDir:      results,
		NeuronPlotsDir:  filepath.Join(results, NeuronPlotsDirName),
		MergedDir:       filepath.Join(results, MergedDirName),
		BackgroundList:  filepath.Join(abs, BackgroundListFile),
		BackgroundInput: filepath.Join(abs, BackgroundInputFile),
		MetricsFile:     filepath.Join(results, MetricsFile),
		TraceFile:       filepath.Join(results, TraceFile),
	}, nil
}

// NeuronLabel returns the label used for neuron i in tables and file names
func NeuronLabel(i int) string {
	return NeuronPrefix + " " + strconv.Itoa(i)
}

// NeuronDir returns the raw-data directory of neuron i
func (p *ProjectPaths) NeuronDir(i int) string {
	return filepath.Join(p.Root, NeuronLabel(i))
}

// NeuronResultCSV returns the per-neuron ΔF/F0 table path for label
func (p *ProjectPaths) NeuronResultCSV(label string) string {
	return filepath.Join(p.ResultsDir, label+".csv")
}

// NeuronPlot returns the per-neuron chart path for label
func (p *ProjectPaths) NeuronPlot(label string) string {
	return filepath.Join(p.NeuronPlotsDir, label+".png")
}

// MergedCSV returns the merged table path
func (p *ProjectPaths) MergedCSV() string {
	return filepath.Join(p.MergedDir, MergedCSVFile)
}

// MergedPlot returns the merged chart path
func (p *ProjectPaths) MergedPlot() string {
	return filepath.Join(p.MergedDir, MergedPlotFile)
}

// EnsureDirectories creates the results tree. It never creates the project
// root itself; a missing root is a precondition failure reported by callers.
func (p *ProjectPaths) EnsureDirectories() error {
	directories := []string{
		p.ResultsDir,
		p.NeuronPlotsDir,
	}

	logger := slog.Default()
	for _, dir := range directories {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %v", dir, err)
		}
		logger.Debug("Ensured directory exists", slog.String("directory", dir))
	}
	return nil
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
