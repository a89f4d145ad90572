package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChicagoDave/siteplanner/internal/metrics"
	"github.com/ChicagoDave/siteplanner/internal/store"
	"github.com/ChicagoDave/siteplanner/pkg/dataset"
	"github.com/ChicagoDave/siteplanner/pkg/simulator"
	"github.com/ChicagoDave/siteplanner/pkg/spec"
)

func demoProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.CopyFS(dir, os.DirFS("../../pkg/pipeline/testdata/demo")))
	return dir
}

func testConfig() simulator.Config {
	cfg := simulator.DefaultConfig()
	cfg.MinPolygonArea = 5
	cfg.MaxIterations = 50
	cfg.Workers = 2
	return cfg
}

func do(t *testing.T, h http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	require.NoError(t, json.NewDecoder(rec.Body).Decode(v))
}

func TestProjectEndpoint(t *testing.T) {
	h := New(demoProject(t), 0, testConfig()).Handler()

	rec := do(t, h, http.MethodGet, "/api/project")
	require.Equal(t, http.StatusOK, rec.Code)
	var p spec.Project
	decode(t, rec, &p)
	assert.Equal(t, "demo", p.Name)
	assert.Equal(t, "sites.geojson", p.Site.Polygons)
}

func TestValidationEndpoint(t *testing.T) {
	dir := demoProject(t)
	h := New(dir, 0, testConfig()).Handler()

	var report struct {
		Valid  bool              `json:"valid"`
		Errors []json.RawMessage `json:"errors"`
	}
	rec := do(t, h, http.MethodGet, "/api/validation")
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &report)
	assert.True(t, report.Valid)

	require.NoError(t, os.Remove(filepath.Join(dir, "sites.geojson")))
	rec = do(t, h, http.MethodGet, "/api/validation")
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &report)
	assert.False(t, report.Valid)
	assert.NotEmpty(t, report.Errors)
}

func TestGenerateAndFetchRun(t *testing.T) {
	dir := demoProject(t)
	st, err := store.Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer st.Close()
	h := New(dir, 0, testConfig(), WithStore(st), WithMetrics(metrics.New())).Handler()

	rec := do(t, h, http.MethodPost, "/api/generate?run_id=first")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var gen generateResponse
	decode(t, rec, &gen)
	assert.Equal(t, "first", gen.RunID)
	require.NotNil(t, gen.Summary)
	assert.Len(t, gen.Summary.Sites, 1)
	assert.FileExists(t, filepath.Join(dir, "runs", "first", dataset.ManifestFile))

	rec = do(t, h, http.MethodGet, "/api/runs")
	require.Equal(t, http.StatusOK, rec.Code)
	var runs []store.Run
	decode(t, rec, &runs)
	require.Len(t, runs, 1)
	assert.Equal(t, "first", runs[0].ID)

	rec = do(t, h, http.MethodGet, "/api/runs/first")
	require.Equal(t, http.StatusOK, rec.Code)
	var run struct {
		ID          string             `json:"id"`
		Generations []store.Generation `json:"generations"`
	}
	decode(t, rec, &run)
	assert.Equal(t, "first", run.ID)
	assert.NotEmpty(t, run.Generations)

	rec = do(t, h, http.MethodGet, "/api/runs/missing")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `siteplanner_runs_total{status="ok"} 1`)
}

func TestGenerateInvalidProject(t *testing.T) {
	dir := demoProject(t)
	require.NoError(t, os.Remove(filepath.Join(dir, "site_points.geojson")))
	h := New(dir, 0, testConfig()).Handler()

	rec := do(t, h, http.MethodPost, "/api/generate")
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var gen generateResponse
	decode(t, rec, &gen)
	require.NotNil(t, gen.Report)
	assert.False(t, gen.Report.Valid)
	assert.NoDirExists(t, filepath.Join(dir, "runs"))
}

func TestRunsWithoutStore(t *testing.T) {
	h := New(demoProject(t), 0, testConfig()).Handler()
	assert.Equal(t, http.StatusNotImplemented, do(t, h, http.MethodGet, "/api/runs").Code)
	assert.Equal(t, http.StatusNotImplemented, do(t, h, http.MethodGet, "/api/runs/x").Code)
}

func TestMethodNotAllowed(t *testing.T) {
	h := New(demoProject(t), 0, testConfig()).Handler()
	assert.Equal(t, http.StatusMethodNotAllowed, do(t, h, http.MethodGet, "/api/generate").Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/metrics").Code, "metrics are opt-in")
}
