package ui

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"datalyst/app"
	"datalyst/domain/core"
	"datalyst/domain/dataset"
	"datalyst/internal/config"
)

const employeesCSV = "name,age,salary\nAnn,25,50000\nBob,30,-1000\nCat,200,60000\n"

type fakeDatasets struct {
	rows  map[core.ID]*dataset.Dataset
	order []core.ID
}

func (f *fakeDatasets) Create(_ context.Context, ds *dataset.Dataset) error {
	f.rows[ds.ID] = ds
	f.order = append(f.order, ds.ID)
	return nil
}

func (f *fakeDatasets) GetByID(_ context.Context, id core.ID) (*dataset.Dataset, error) {
	ds, ok := f.rows[id]
	if !ok {
		return nil, core.ErrDatasetNotFound
	}
	return ds, nil
}

func (f *fakeDatasets) List(_ context.Context, limit, offset int) ([]*dataset.Dataset, error) {
	out := make([]*dataset.Dataset, 0, len(f.order))
	for i := len(f.order) - 1; i >= 0; i-- {
		out = append(out, f.rows[f.order[i]])
	}
	if offset >= len(out) {
		return []*dataset.Dataset{}, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeDatasets) Delete(_ context.Context, id core.ID) error {
	if _, ok := f.rows[id]; !ok {
		return core.ErrDatasetNotFound
	}
	delete(f.rows, id)
	for i, existing := range f.order {
		if existing == id {
			f.order = append(f.order[:i], f.order[i+1:]...)
			break
		}
	}
	return nil
}

type fakeAnalyses struct {
	rows map[core.ID]*dataset.Analysis
}

func (f *fakeAnalyses) Create(_ context.Context, a *dataset.Analysis) error {
	copied := *a
	f.rows[a.ID] = &copied
	return nil
}

func (f *fakeAnalyses) Update(_ context.Context, a *dataset.Analysis) error {
	copied := *a
	f.rows[a.ID] = &copied
	return nil
}

func (f *fakeAnalyses) GetByID(_ context.Context, id core.ID) (*dataset.Analysis, error) {
	a, ok := f.rows[id]
	if !ok {
		return nil, core.ErrAnalysisNotFound
	}
	return a, nil
}

func (f *fakeAnalyses) GetByDatasetID(_ context.Context, datasetID core.ID) ([]*dataset.Analysis, error) {
	var out []*dataset.Analysis
	for _, a := range f.rows {
		if a.DatasetID == datasetID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeAnalyses) UpdateStatus(_ context.Context, id core.ID, status dataset.AnalysisStatus, errorMsg string) error {
	a, ok := f.rows[id]
	if !ok {
		return core.ErrAnalysisNotFound
	}
	a.Status = status
	a.ErrorMessage = errorMsg
	return nil
}

type fakeCharts struct {
	rows []*dataset.Visualization
}

func (f *fakeCharts) Create(_ context.Context, v *dataset.Visualization) error {
	f.rows = append(f.rows, v)
	return nil
}

func (f *fakeCharts) GetByAnalysisID(_ context.Context, analysisID core.ID) ([]*dataset.Visualization, error) {
	var out []*dataset.Visualization
	for _, v := range f.rows {
		if v.AnalysisID == analysisID {
			out = append(out, v)
		}
	}
	return out, nil
}

func newTestApp(t *testing.T) *App {
	t.Helper()

	dir := t.TempDir()
	cfg := &config.Config{
		LLM: config.LLMConfig{
			Model:     "gpt-4o-mini",
			MaxTokens: 512,
			Timeout:   time.Second,
		},
		Server: config.ServerConfig{
			Port:           "0",
			MaxUploadBytes: 10 << 20,
			MaxConcurrent:  2,
		},
		Storage: config.StorageConfig{
			UploadDir:         filepath.Join(dir, "uploads"),
			VisualizationsDir: filepath.Join(dir, "visualizations"),
		},
	}

	service := app.NewAnalysisService(
		cfg,
		&fakeDatasets{rows: make(map[core.ID]*dataset.Dataset)},
		&fakeAnalyses{rows: make(map[core.ID]*dataset.Analysis)},
		&fakeCharts{},
		nil,
		nil,
	)
	return NewApp(cfg, service)
}

func multipartBody(t *testing.T, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = io.WriteString(part, content)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body io.Reader, contentType string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	var decoded map[string]interface{}
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	}
	return rec, decoded
}

func uploadCSV(t *testing.T, handler http.Handler, filename, content string) string {
	t.Helper()
	body, contentType := multipartBody(t, filename, content)
	rec, resp := doJSON(t, handler, http.MethodPost, "/api/upload", body, contentType)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	id, _ := resp["dataset_id"].(string)
	require.NotEmpty(t, id)
	return id
}

func TestHealthEndpoint(t *testing.T) {
	handler := newTestApp(t).Router()

	rec, resp := doJSON(t, handler, http.MethodGet, "/", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", resp["status"])
}

func TestUploadEndpoint(t *testing.T) {
	handler := newTestApp(t).Router()

	body, contentType := multipartBody(t, "employees.csv", employeesCSV)
	rec, resp := doJSON(t, handler, http.MethodPost, "/api/upload", body, contentType)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "employees.csv", resp["filename"])
	assert.Equal(t, float64(3), resp["rows"])
	assert.Equal(t, float64(3), resp["columns"])
	assert.NotEmpty(t, resp["dataset_id"])
}

func TestUploadRejectsUnsupportedFile(t *testing.T) {
	handler := newTestApp(t).Router()

	body, contentType := multipartBody(t, "notes.txt", "hello")
	rec, resp := doJSON(t, handler, http.MethodPost, "/api/upload", body, contentType)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid file type. Please upload CSV or Excel files only.", resp["detail"])
}

func TestAnalyzeAndFetchResults(t *testing.T) {
	handler := newTestApp(t).Router()
	datasetID := uploadCSV(t, handler, "employees.csv", employeesCSV)

	rec, resp := doJSON(t, handler, http.MethodPost, "/api/analyze/"+datasetID, nil, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "completed", resp["status"])
	analysisID, _ := resp["analysis_id"].(string)
	require.NotEmpty(t, analysisID)

	rec, resp = doJSON(t, handler, http.MethodGet, "/api/analysis/"+analysisID, nil, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	assert.Equal(t, datasetID, resp["dataset_id"])
	assert.NotNil(t, resp["cleaning_report"])
	assert.NotNil(t, resp["statistics"])
	assert.NotNil(t, resp["anomalies"])
	assert.Contains(t, resp["insights"], "Mock Mode")
	assert.Contains(t, resp["insights_html"], "<h3")
	assert.Contains(t, resp["sql_queries"], "CREATE TABLE")

	charts, ok := resp["visualizations"].([]interface{})
	require.True(t, ok)
	require.NotEmpty(t, charts)
	first, ok := charts[0].(map[string]interface{})
	require.True(t, ok)
	url, _ := first["url"].(string)
	assert.True(t, strings.HasPrefix(url, "/visualizations/"))
}

func TestAnalyzeUnknownDataset(t *testing.T) {
	handler := newTestApp(t).Router()

	rec, resp := doJSON(t, handler, http.MethodPost, "/api/analyze/"+core.NewID().String(), nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Dataset not found", resp["detail"])
}

func TestGetAnalysisUnknown(t *testing.T) {
	handler := newTestApp(t).Router()

	rec, resp := doJSON(t, handler, http.MethodGet, "/api/analysis/"+core.NewID().String(), nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Analysis not found", resp["detail"])
}

func TestListAndDeleteDatasets(t *testing.T) {
	handler := newTestApp(t).Router()
	datasetID := uploadCSV(t, handler, "employees.csv", employeesCSV)

	rec, resp := doJSON(t, handler, http.MethodGet, "/api/datasets", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	datasets, ok := resp["datasets"].([]interface{})
	require.True(t, ok)
	assert.Len(t, datasets, 1)

	rec, _ = doJSON(t, handler, http.MethodDelete, "/api/datasets/"+datasetID, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec, resp = doJSON(t, handler, http.MethodGet, "/api/datasets", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	datasets, ok = resp["datasets"].([]interface{})
	require.True(t, ok)
	assert.Empty(t, datasets)
}

func TestQuestionRequiresText(t *testing.T) {
	handler := newTestApp(t).Router()

	payload := fmt.Sprintf(`{"dataset_id":%q,"question":"  "}`, core.NewID())
	rec, resp := doJSON(t, handler, http.MethodPost, "/api/question", strings.NewReader(payload), "application/json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "question is required", resp["detail"])
}

func TestTextToSQLWithoutProvider(t *testing.T) {
	handler := newTestApp(t).Router()
	datasetID := uploadCSV(t, handler, "employees.csv", employeesCSV)

	payload := fmt.Sprintf(`{"dataset_id":%q,"question":"show all rows"}`, datasetID)
	rec, resp := doJSON(t, handler, http.MethodPost, "/api/text-to-sql", strings.NewReader(payload), "application/json")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, resp["needs_clarification"])
	assert.Contains(t, resp["clarification_message"], "Mock Mode")
}
