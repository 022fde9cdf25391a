package config

import "time"

// Application constants
const (
	AppName    = "cianalysis"
	AppVersion = "1.0.0"

	// EnvPrefix namespaces every environment variable, e.g. CIA_ANALYSIS_POSITION_T
	EnvPrefix = "CIA"
	// ConfigFileEnv names the variable holding an explicit YAML config path
	ConfigFileEnv     = "CIA_CONFIG"
	DefaultConfigFile = "config.yaml"
)

// Project layout. Every path is derived from the project root passed on the
// command line; nothing depends on the process working directory.
const (
	ResultsDirName      = "results"
	NeuronPlotsDirName  = "Neuron Plots"
	MergedDirName       = "merged_data"
	IntermediateDirName = "intermediate"

	BackgroundListFile  = "Background_list.csv"
	BackgroundInputFile = "background_i.xlsx"
	MergedCSVFile       = "merged_data.csv"
	MergedPlotFile      = "Average_dF_F0.png"
	MetricsFile         = "metrics.prom"
	TraceFile           = "trace.jsonl"
	AnalogLogPrefix     = "Analog"
	SummaryPlotFile     = "combined_gradient_plot.png"

	NeuronPrefix = "Neuron"
	LockPrefix   = "~$"
)

// Column names of the raw and derived tables
const (
	ColumnTimepoint    = "POSITION_T"
	ColumnIntensity    = "MEAN_INTENSITY_CH1"
	ColumnMaxValue     = "max_value"
	ColumnDeltaF       = "dF/F0"
	ColumnAverage      = "Average"
	ColumnSEM          = "SEM"
	ColumnNeuronsGroup = "Neurons"
)

// Cell types select the baseline policy
const (
	CellTypeDOCC = "DOCC"
	CellTypeDOWC = "DOWC"
)

// Analysis defaults
const (
	DefaultPositionT           = 100
	DefaultBaselineWindowStart = 0
	DefaultBaselineWindowEnd   = 50
	DefaultMergePlotTitle      = "Average ΔF/F0"
	DefaultCbindFooterRows     = 12
	DefaultAnalogSkipRows      = 6
)

// Server defaults
const (
	DefaultPort            = 8080
	DefaultRateLimit       = 100
	DefaultBurstSize       = 50
	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 10 * time.Second
)
