// Package api contains the JSON contracts of the results browser.
// Version v1 represents the current stable API version.
package api

// NeuronSummary is one entry of GET /api/v1/neurons
type NeuronSummary struct {
	Label    string `json:"label"`
	Rows     int    `json:"rows"`
	Channels int    `json:"channels"`
	PlotURL  string `json:"plot_url,omitempty"`
	TableURL string `json:"table_url"`
	ChartURL string `json:"chart_url"`
}

// NeuronListResponse is returned by GET /api/v1/neurons
type NeuronListResponse struct {
	Neurons []NeuronSummary `json:"neurons"`
	Count   int             `json:"count"`
}

// TableResponse carries a timeline table. Missing values are encoded as null.
type TableResponse struct {
	Name       string                `json:"name"`
	Timepoints []int                 `json:"timepoints"`
	Columns    []string              `json:"columns"`
	Values     map[string][]*float64 `json:"values"`
}

// HealthResponse is returned by GET /healthz
type HealthResponse struct {
	Status     string `json:"status"`
	Version    string `json:"version"`
	ResultsDir string `json:"results_dir"`
}
