// Package dataprocessing implements the ΔF/F0 pipeline: from raw per-channel
// intensity exports to per-neuron tables and the merged cross-neuron summary.
//
// # Architecture
//
// The package is organized into these components:
//
// 1. Table: a timeline of integer timepoints 0..T-1 with named float columns
// 2. Background: builds Background_list.csv from the background workbook and
// reads it back into per-neuron background lists
// 3. Extractor: joins one neuron's channels, subtracts background, computes
// max_value and dF/F0 under a BaselinePolicy
// 4. BatchRunner: runs the extractor for every neuron with failure isolation
// 5. Aggregator: merges per-neuron dF/F0 into Average and SEM
//
// # Data Flow
//
//	background_i.xlsx → BackgroundBuilder → Background_list.csv
//	Neuron i/*.csv + background list → Extractor → results/Neuron i.csv
//	results/*.csv → Aggregator → results/merged_data/merged_data.csv
//
// # Missing Values
//
// A missing measurement is NaN in memory and an empty field on disk. It is
// never treated as zero: joins keep it, row statistics exclude it, and an
// undefined baseline turns the whole dF/F0 column missing.
package dataprocessing
