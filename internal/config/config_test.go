package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFrom(t *testing.T) {
	tests := []struct {
		name        string
		env         map[string]string
		yaml        string
		wantErr     bool
		validateCfg func(*testing.T, *Config)
	}{
		{
			name: "defaults without file or env",
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 100, cfg.Analysis.PositionT)
				assert.Equal(t, 0, cfg.Analysis.BaselineWindowStart)
				assert.Equal(t, 50, cfg.Analysis.BaselineWindowEnd)
				assert.Equal(t, "Average ΔF/F0", cfg.Analysis.MergePlotTitle)
				assert.True(t, cfg.Analysis.WriteIntermediates)
				assert.Equal(t, "console", cfg.Logging.Output)
				assert.Equal(t, 8080, cfg.Server.Port)
				assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
			},
		},
		{
			name: "file overrides defaults",
			yaml: "analysis:\n  position_t: 240\n  cell_type: DOWC\nserver:\n  port: 9000\n",
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 240, cfg.Analysis.PositionT)
				assert.Equal(t, CellTypeDOWC, cfg.Analysis.CellType)
				assert.Equal(t, 9000, cfg.Server.Port)
				assert.Equal(t, 50, cfg.Analysis.BaselineWindowEnd)
			},
		},
		{
			name: "env overrides file",
			env:  map[string]string{"CIA_ANALYSIS_POSITION_T": "60", "CIA_LOGGING_LEVEL": "debug"},
			yaml: "analysis:\n  position_t: 240\n",
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 60, cfg.Analysis.PositionT)
				assert.Equal(t, "debug", cfg.Logging.Level)
			},
		},
		{
			name:    "unknown cell type rejected",
			env:     map[string]string{"CIA_ANALYSIS_CELL_TYPE": "XYZ"},
			wantErr: true,
		},
		{
			name:    "zero position t rejected",
			yaml:    "analysis:\n  position_t: 0\n",
			wantErr: true,
		},
		{
			name:    "window end before start rejected",
			yaml:    "analysis:\n  baseline_window_start: 20\n  baseline_window_end: 10\n",
			wantErr: true,
		},
		{
			name:    "malformed yaml",
			yaml:    "analysis: [",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			path := filepath.Join(t.TempDir(), "config.yaml")
			if tt.yaml != "" {
				require.NoError(t, os.WriteFile(path, []byte(tt.yaml), 0644))
			}

			cfg, err := LoadFrom(path)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.validateCfg(t, cfg)
		})
	}
}

func TestLoad_UsesConfigEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("analysis:\n  position_t: 33\n"), 0644))
	t.Setenv(ConfigFileEnv, path)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 33, cfg.Analysis.PositionT)
}
