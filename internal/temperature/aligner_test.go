package temperature

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cianalysis/internal/dataprocessing"
	apperrors "cianalysis/internal/errors"
	"cianalysis/internal/plotting"
	"cianalysis/internal/shared/testutil"
)

type recordingStacks struct {
	stacks map[string]plotting.Stack
}

func (r *recordingStacks) RenderStacked(path string, stack plotting.Stack) error {
	if r.stacks == nil {
		r.stacks = make(map[string]plotting.Stack)
	}
	r.stacks[path] = stack
	return nil
}

// newExperiment writes merged_data.csv with POSITION_T 0..4 plus two footer
// rows, and an analog log with samples 0..9
func newExperiment(t *testing.T) string {
	t.Helper()
	folder := filepath.Join(t.TempDir(), "exp-01")
	testutil.WriteCSV(t, filepath.Join(folder, "merged_data.csv"), [][]string{
		{"POSITION_T", "Neuron 0", "Neuron 1", "Neuron 2", "Average", "SEM"},
		{"0", "0", "0", "0", "0", "0"},
		{"1", "0.5", "1", "", "0.75", "0.25"},
		{"2", "1", "2", "3", "2", "0.5"},
		{"3", "1.5", "", "4", "2.75", "1.25"},
		{"4", "2", "4", "5", "3.67", "0.9"},
		{"5", "9", "9", "9", "9", "0"},
		{"6", "9", "9", "9", "9", "0"},
	})
	testutil.WriteAnalogLog(t, filepath.Join(folder, "Analog - 1.csv"), 10)
	return folder
}

func TestAligner_Align(t *testing.T) {
	folder := newExperiment(t)
	renderer := &recordingStacks{}
	aligner := NewAligner(nil, dataprocessing.Telemetry{}, renderer)

	summary, err := aligner.Align(context.Background(), AlignConfig{
		Folder:     folder,
		Neurons:    2,
		FooterRows: 2,
		SkipRows:   6,
	})
	require.NoError(t, err)

	assert.Equal(t, "exp-01", summary.Folder)
	assert.Equal(t, []string{"Neuron 0", "Neuron 1"}, summary.Neurons)
	assert.Equal(t, 5, summary.Rows)

	// tmax 9 over POSITION_T 4: 2.25 -> 2, 4.5 -> 4 (half to even), 6.75 -> 7
	assert.Equal(t, [][]string{
		{"POSITION_T", "tt", "Time (s)", "Temperature(°C)", "Neuron 0", "Neuron 1"},
		{"0", "0", "0", "20", "0", "0"},
		{"1", "2", "30", "21", "0.5", "1"},
		{"2", "4", "60", "22", "1", "2"},
		{"3", "7", "105", "23.5", "1.5", ""},
		{"4", "9", "135", "24.5", "2", "4"},
	}, testutil.ReadCSV(t, filepath.Join(folder, "exp-01-cbind.csv")))

	require.Len(t, summary.PlotPaths, 2)
	full := renderer.stacks[filepath.Join(folder, "exp-01-cbind0.pdf")]
	zoom := renderer.stacks[filepath.Join(folder, "exp-01-cbind1.pdf")]
	assert.Nil(t, full.Top.YRange)
	require.NotNil(t, zoom.Top.YRange)
	assert.Equal(t, plotting.Range{Min: -1, Max: 10}, *zoom.Top.YRange)
	assert.Equal(t, plotting.Range{Min: 0, Max: 135}, *full.Top.XRange)
	assert.Equal(t, "exp-01", full.Top.Title)
	assert.Len(t, full.Top.Series, 2)
	assert.Equal(t, plotting.Range{Min: 10, Max: 30}, *full.Bottom.YRange)

	// inputs stay where they were
	assert.FileExists(t, filepath.Join(folder, "merged_data.csv"))
	assert.FileExists(t, filepath.Join(folder, "Analog - 1.csv"))
}

func TestAligner_Errors(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(t *testing.T, folder string)
		cfg      AlignConfig
		wantType apperrors.ErrorType
	}{
		{
			name:     "too many neurons",
			cfg:      AlignConfig{Neurons: 4, FooterRows: 2, SkipRows: 6},
			wantType: apperrors.ErrTypeValidation,
		},
		{
			name:     "zero neurons",
			cfg:      AlignConfig{Neurons: 0, SkipRows: 6},
			wantType: apperrors.ErrTypeValidation,
		},
		{
			name:     "footer swallows table",
			cfg:      AlignConfig{Neurons: 1, FooterRows: 7, SkipRows: 6},
			wantType: apperrors.ErrTypeValidation,
		},
		{
			name: "missing analog log",
			mutate: func(t *testing.T, folder string) {
				require.NoError(t, os.Remove(filepath.Join(folder, "Analog - 1.csv")))
			},
			cfg:      AlignConfig{Neurons: 1, FooterRows: 2, SkipRows: 6},
			wantType: apperrors.ErrTypePrecondition,
		},
		{
			name: "missing merged table",
			mutate: func(t *testing.T, folder string) {
				require.NoError(t, os.Remove(filepath.Join(folder, "merged_data.csv")))
			},
			cfg:      AlignConfig{Neurons: 1, FooterRows: 2, SkipRows: 6},
			wantType: apperrors.ErrTypePrecondition,
		},
		{
			name: "sample not logged",
			mutate: func(t *testing.T, folder string) {
				testutil.WriteAnalogLog(t, filepath.Join(folder, "Analog - 1.csv"), 10)
				data, err := os.ReadFile(filepath.Join(folder, "Analog - 1.csv"))
				require.NoError(t, err)
				// drop sample 4
				lines := strings.Split(string(data), "\n")
				var kept []string
				for _, l := range lines {
					if len(l) > 2 && l[:2] == "4," {
						continue
					}
					kept = append(kept, l)
				}
				require.NoError(t, os.WriteFile(filepath.Join(folder, "Analog - 1.csv"), []byte(strings.Join(kept, "\n")), 0644))
			},
			cfg:      AlignConfig{Neurons: 1, FooterRows: 2, SkipRows: 6},
			wantType: apperrors.ErrTypeParsing,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			folder := newExperiment(t)
			if tt.mutate != nil {
				tt.mutate(t, folder)
			}
			tt.cfg.Folder = folder

			_, err := NewAligner(nil, dataprocessing.Telemetry{}, &recordingStacks{}).Align(context.Background(), tt.cfg)
			require.Error(t, err)
			assert.Equal(t, tt.wantType, apperrors.TypeOf(err))
			assert.NoFileExists(t, filepath.Join(folder, "exp-01-cbind.csv"))
		})
	}
}

func TestAligner_WritesPDF(t *testing.T) {
	folder := newExperiment(t)
	summary, err := NewAligner(nil, dataprocessing.Telemetry{}, nil).Align(context.Background(), AlignConfig{
		Folder: folder, Neurons: 3, FooterRows: 2, SkipRows: 6,
	})
	require.NoError(t, err)

	for _, path := range summary.PlotPaths {
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "%PDF", string(data[:4]), path)
	}
}
