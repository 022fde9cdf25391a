package app

import (
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cianalysis/internal/config"
	"cianalysis/internal/shared/testutil"
	api "cianalysis/pkg/contracts/api/v1"
)

func newTestApplication(t *testing.T) *Application {
	t.Helper()
	paths, err := config.NewProjectPaths(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, paths.EnsureDirectories())

	testutil.WriteResultTable(t, paths.NeuronResultCSV("Neuron 0"), testutil.Series{0: 0, 1: 0.5, 2: math.NaN()})
	require.NoError(t, os.WriteFile(paths.NeuronPlot("Neuron 0"), []byte("\x89PNG"), 0644))
	testutil.WriteCSV(t, filepath.Join(paths.ResultsDir, "notes.csv"), [][]string{{"free text"}})

	cfg := config.Default()
	cfg.Server.RateLimit.Enabled = false

	logger, _ := testutil.NewTestLogger(t)
	a, err := NewApplication(&cfg, paths, logger, nil)
	require.NoError(t, err)
	return a
}

func get(a *Application, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	a.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestNewApplication_RequiresConfig(t *testing.T) {
	_, err := NewApplication(nil, nil, nil, nil)
	assert.Error(t, err)
}

func TestApplication_Routes(t *testing.T) {
	a := newTestApplication(t)

	tests := []struct {
		name   string
		target string
		want   int
	}{
		{"health", "/healthz", http.StatusOK},
		{"neuron list", "/api/v1/neurons", http.StatusOK},
		{"neuron table", "/api/v1/neurons/Neuron%200", http.StatusOK},
		{"unknown neuron", "/api/v1/neurons/Neuron%205", http.StatusNotFound},
		{"path separator", "/api/v1/neurons/..%2Fsecret", http.StatusBadRequest},
		{"merged before merge", "/api/v1/merged", http.StatusNotFound},
		{"neuron chart", "/charts/neurons/Neuron%200", http.StatusOK},
		{"plot", "/plots/Neuron%20Plots/Neuron%200.png", http.StatusOK},
		{"plot dir only serves png", "/plots/Neuron%200.csv", http.StatusNotFound},
		{"unknown route", "/nope", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(a, tt.target)
			assert.Equal(t, tt.want, rec.Code)
			assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
			assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
		})
	}
}

func TestApplication_NeuronList(t *testing.T) {
	a := newTestApplication(t)

	rec := get(a, "/api/v1/neurons")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp api.NeuronListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, 1, resp.Count)
	assert.Equal(t, "Neuron 0", resp.Neurons[0].Label)
	assert.Equal(t, 3, resp.Neurons[0].Rows)
	assert.Equal(t, "/plots/Neuron%20Plots/Neuron%200.png", resp.Neurons[0].PlotURL)

	// the advertised plot URL is served
	assert.Equal(t, http.StatusOK, get(a, resp.Neurons[0].PlotURL).Code)
}

func TestApplication_MethodNotAllowed(t *testing.T) {
	a := newTestApplication(t)

	rec := httptest.NewRecorder()
	a.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/healthz", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestApplication_Metrics(t *testing.T) {
	a := newTestApplication(t)
	get(a, "/healthz")

	rec := get(a, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "cia_http_requests_total")
}
