package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/house-money/internal/importer"
	"github.com/Veraticus/house-money/internal/metrics"
	"github.com/Veraticus/house-money/internal/testutil"
)

const twoRowCSV = "Date,Description,Amount\n2024-01-05,Coffee Shop,4.50\n2024-01-06,Rent,1500\n"

type testServer struct {
	db      *testutil.TestDB
	handler http.Handler
}

func newTestServer(t *testing.T, opts ...Option) *testServer {
	t.Helper()
	db := testutil.SetupTestDBWithOptions(t, testutil.TestDBOptions{Cached: true})
	srv := New(db.Storage, importer.NewOrchestrator(db.Storage), opts...)
	return &testServer{db: db, handler: srv.Handler()}
}

func (ts *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		if raw, ok := body.(string); ok {
			reader = strings.NewReader(raw)
		} else {
			payload, err := json.Marshal(body)
			require.NoError(t, err)
			reader = bytes.NewReader(payload)
		}
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func importBody(files ...uploadRequest) importRequest {
	return importRequest{Format: "standard", Files: files}
}

func csvFile(name, contents string) uploadRequest {
	return uploadRequest{Name: name, Contents: testutil.DataURL("text/csv", contents)}
}

// seed imports twoRowCSV and returns the listing, newest first.
func (ts *testServer) seed(t *testing.T) []transactionResponse {
	t.Helper()
	rec := ts.do(t, http.MethodPost, "/api/imports", importBody(csvFile("jan.csv", twoRowCSV)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return decode[importResponse](t, rec).Transactions
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[map[string]any](t, rec)
	assert.Equal(t, "ok", body["status"])
	assert.InDelta(t, 2, body["schema_version"], 0)
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))
}

func TestRequestIDIsKept(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)

	assert.Equal(t, "abc-123", rec.Header().Get(RequestIDHeader))
}

func TestMetricsEndpoint(t *testing.T) {
	rec := newTestServer(t).do(t, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code, "metrics are only served when configured")

	ts := newTestServer(t, WithMetrics(metrics.New()))
	rec = ts.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestCORSPreflight(t *testing.T) {
	ts := newTestServer(t, WithAllowedOrigins([]string{"http://localhost:8050"}))

	req := httptest.NewRequest(http.MethodOptions, "/api/transactions", nil)
	req.Header.Set("Origin", "http://localhost:8050")
	req.Header.Set("Access-Control-Request-Method", http.MethodPut)
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:8050", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/api/transactions", nil)
	req.Header.Set("Origin", "http://evil.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPut)
	rec = httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)

	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestStatusFor(t *testing.T) {
	rec := newTestServer(t).do(t, http.MethodGet, "/api/transactions/abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[errorResponse](t, rec).Error, "invalid id")

	rec = newTestServer(t).do(t, http.MethodPut, "/api/transactions/1/note", `{"nope": true}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "unknown fields are rejected")
}
