package main

import (
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/itr-cli/internal/cache"
	"github.com/sells-group/itr-cli/internal/model"
	"github.com/sells-group/itr-cli/internal/processor"
)

func newServerProcessor(t *testing.T) *processor.Processor {
	t.Helper()
	dir := t.TempDir()
	source := filepath.Join(dir, "pcos.xlsx")

	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Sheet1")
	require.NoError(t, err)
	rows := [][]string{
		{"System", "System Descr.", "SubSystem", "SubSystem Descr.", "ITR", "End Cert.", "ITEM", "Rule", "Test", "Form"},
		{"SYS-1", "Pump System", "A-1", "Primary Pump", "ITR-A", "Y", "P001", "R001", "T001", "F001"},
		{"SYS-1", "Pump System", "A-1", "Primary Pump", "ITR-B", "N", "P002", "R002", "T002", "F002"},
		{"SYS-2", "Valve System", "B-1", "Control Valve", "ITR-A", "", "P003", "R003", "T003", "F003"},
	}
	for _, rowData := range rows {
		row := sheet.AddRow()
		for _, cellData := range rowData {
			row.AddCell().SetString(cellData)
		}
	}
	require.NoError(t, f.Save(source))

	store, err := cache.OpenStore(filepath.Join(dir, ".cache"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return processor.New(processor.Config{SourcePath: source}, cache.NewManager(store))
}

func doRequest(t *testing.T, handler http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestServeHealth(t *testing.T) {
	router := newRouter(newServerProcessor(t))

	rec := doRequest(t, router, http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestServeSubsystemITRs(t *testing.T) {
	router := newRouter(newServerProcessor(t))

	rec := doRequest(t, router, http.MethodGet, "/subsystems/A-1/itrs")
	require.Equal(t, http.StatusOK, rec.Code)

	var breakdown model.StatusBreakdown
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &breakdown))
	assert.Equal(t, "A-1", breakdown.SubsystemID)
	assert.Equal(t, 2, breakdown.Total)
	assert.Equal(t, 1, breakdown.Completed)
	assert.Equal(t, 1, breakdown.Open)
}

func TestServeSubsystemNotFound(t *testing.T) {
	router := newRouter(newServerProcessor(t))

	rec := doRequest(t, router, http.MethodGet, "/subsystems/A-99/itrs")
	require.Equal(t, http.StatusNotFound, rec.Code)

	var body struct {
		Error       string   `json:"error"`
		Suggestions []string `json:"suggestions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body.Error, "A-99")
	assert.Contains(t, body.Suggestions, "A-1")
}

func TestServeSearchSubsystems(t *testing.T) {
	router := newRouter(newServerProcessor(t))

	rec := doRequest(t, router, http.MethodGet, "/search/subsystems?pattern=pump")
	require.Equal(t, http.StatusOK, rec.Code)

	var matches []model.SubsystemMatch
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &matches))
	require.Len(t, matches, 1)
	assert.Equal(t, "A-1", matches[0].SubsystemID)
}

func TestServeSearchSystemsEmptyPattern(t *testing.T) {
	router := newRouter(newServerProcessor(t))

	rec := doRequest(t, router, http.MethodGet, "/search/systems")
	require.Equal(t, http.StatusOK, rec.Code)

	var matches []model.SystemMatch
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &matches))
	require.Len(t, matches, 2)
	assert.Equal(t, "SYS-1", matches[0].SystemID)
	assert.Equal(t, []string{"A-1"}, matches[0].SubsystemIDs)
}

func TestServeCacheActions(t *testing.T) {
	router := newRouter(newServerProcessor(t))

	rec := doRequest(t, router, http.MethodPost, "/cache/status")
	require.Equal(t, http.StatusOK, rec.Code)

	var status model.CacheStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, "status", status.Action)

	rec = doRequest(t, router, http.MethodPost, "/cache/reload")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.True(t, status.Reloaded)
	assert.Equal(t, 3, status.RecordCount)
}

func TestServeCacheUnknownAction(t *testing.T) {
	router := newRouter(newServerProcessor(t))

	rec := doRequest(t, router, http.MethodPost, "/cache/defrag")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "unknown cache action")
}

func TestShutdownGracefully(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := &http.Server{Handler: newRouter(newServerProcessor(t))}
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ln) }()

	shutdownGracefully(srv)
	assert.ErrorIs(t, <-done, http.ErrServerClosed)
}
