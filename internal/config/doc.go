// Package config provides configuration management for the calcium-imaging
// analysis tools.
//
// # Configuration Sources
//
// Configuration is assembled in three layers, later layers winning:
//
//	1. Built-in defaults (Default)
//	2. A YAML file, named by CIA_CONFIG or ./config.yaml when present
//	3. Environment variables prefixed with CIA_
//
// Command-line flags are applied by each command on top of the loaded value.
//
// # Environment Variables
//
//	CIA_ANALYSIS_POSITION_T=120
//	CIA_ANALYSIS_CELL_TYPE=DOWC
//	CIA_LOGGING_LEVEL=debug
//	CIA_TELEMETRY_TRACING_ENABLED=true
//	CIA_SERVER_PORT=9090
//
// # Project Layout
//
// ProjectPaths derives every input and output location from a project root:
//
//	<root>/
//	  ├── background_i.xlsx
//	  ├── Background_list.csv
//	  ├── Neuron 0/ ... Neuron N/     raw TrackMate exports per neuron
//	  └── results/
//	        ├── Neuron 0.csv ...
//	        ├── Neuron Plots/
//	        └── merged_data/
package config
