package http

import (
	"context"

	"cianalysis/internal/dataprocessing"
	"cianalysis/internal/services"
)

// ResultsServiceInterface defines the catalogue the handlers read from
type ResultsServiceInterface interface {
	ResultsDir() string
	Health(ctx context.Context) error
	ListNeurons(ctx context.Context) ([]services.NeuronEntry, error)
	NeuronTable(ctx context.Context, label string) (*dataprocessing.Table, error)
	MergedTable(ctx context.Context) (*dataprocessing.Table, error)
}
