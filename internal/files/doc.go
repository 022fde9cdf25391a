// Package files provides file discovery and output publishing for the
// analysis pipeline.
//
// This package contains two main components:
//
// Discovery: lists data files in a directory (lock files such as "~$a.csv"
// and subdirectories excluded, name order) and neuron subdirectories.
//
// Manager: builds output directories out of sight and publishes them with a
// rename, so an interrupted run leaves either the previous output or the new
// one, never a mix.
//
// Example usage:
//
//	discovery := files.NewDiscovery()
//	channels, err := discovery.FindCSVFiles("/data/exp1/Neuron 0")
//
//	manager := files.NewManager(logger)
//	staged, err := manager.StageDirectory("/data/exp1/results/merged_data")
//	// ... write into staged ...
//	err = manager.PublishDirectory(staged, "/data/exp1/results/merged_data")
package files
