package sheets

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/Veraticus/house-money/internal/common"
	"github.com/Veraticus/house-money/internal/model"
)

// fakeSheetsAPI serves the handful of Sheets endpoints the writer calls.
type fakeSheetsAPI struct {
	failures map[string]int // Remaining 503s per operation
	denied   map[string]bool
	calls    []string
	cleared  []string
	written  [][]any
	mu       sync.Mutex
	batches  int
}

func (f *fakeSheetsAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := r.URL.Path
	var op string
	switch {
	case r.Method == http.MethodPost && path == "/v4/spreadsheets":
		op = "create"
	case r.Method == http.MethodGet && strings.HasPrefix(path, "/v4/spreadsheets/"):
		op = "get"
	case r.Method == http.MethodPost && strings.HasSuffix(path, ":clear"):
		op = "clear"
	case r.Method == http.MethodPut && strings.Contains(path, "/values/"):
		op = "update"
	case r.Method == http.MethodPost && strings.HasSuffix(path, ":batchUpdate"):
		op = "batchUpdate"
	default:
		http.NotFound(w, r)
		return
	}
	f.calls = append(f.calls, op)

	if f.denied[op] {
		writeAPIError(w, http.StatusForbidden, "permission denied")
		return
	}
	if f.failures[op] > 0 {
		f.failures[op]--
		writeAPIError(w, http.StatusServiceUnavailable, "backend unavailable")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	switch op {
	case "create":
		var req sheets.Spreadsheet
		_ = json.NewDecoder(r.Body).Decode(&req)
		_ = json.NewEncoder(w).Encode(sheets.Spreadsheet{
			SpreadsheetId:  "created-id",
			SpreadsheetUrl: "https://docs.google.com/spreadsheets/d/created-id",
			Properties:     req.Properties,
		})
	case "get":
		id := strings.TrimPrefix(path, "/v4/spreadsheets/")
		_ = json.NewEncoder(w).Encode(sheets.Spreadsheet{SpreadsheetId: id})
	case "clear":
		f.cleared = append(f.cleared, path)
		_, _ = w.Write([]byte("{}"))
	case "update":
		var vr sheets.ValueRange
		_ = json.NewDecoder(r.Body).Decode(&vr)
		for _, row := range vr.Values {
			f.written = append(f.written, row)
		}
		_, _ = w.Write([]byte("{}"))
	case "batchUpdate":
		f.batches++
		_, _ = w.Write([]byte("{}"))
	}
}

func writeAPIError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{"code": code, "message": message},
	})
}

func newTestWriter(t *testing.T, api *fakeSheetsAPI, cfg Config) *Writer {
	t.Helper()

	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	svc, err := sheets.NewService(context.Background(),
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()))
	require.NoError(t, err)

	cfg.RetryDelay = time.Millisecond
	return NewWriterWithService(svc, cfg, nil)
}

func sampleReport() *Report {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	return &Report{
		Generated: time.Date(2024, 2, 2, 9, 30, 0, 0, time.UTC),
		Start:     &start,
		End:       &end,
		Transactions: []model.Transaction{
			{
				ID:              2,
				Date:            time.Date(2024, 1, 7, 0, 0, 0, 0, time.UTC),
				Description:     "Paycheck",
				Amount:          decimal.RequireFromString("2500"),
				Tags:            []string{"Income"},
				FileFingerprint: "abc",
				SourceFile:      "jan.csv",
			},
			{
				ID:              1,
				Date:            time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC),
				Description:     "Coffee Shop",
				Amount:          decimal.RequireFromString("-4.5"),
				Tags:            []string{"Coffee", "Dining"},
				Notes:           "with Sam",
				FileFingerprint: model.ManualEntryFingerprint,
			},
		},
		ByTag: []model.TagSpending{
			{Tag: "Income", Total: decimal.RequireFromString("2500"), Count: 1},
			{Tag: "", Total: decimal.RequireFromString("-4.5"), Count: 1},
		},
		Monthly: []model.MonthlyTotal{
			{
				Month:    "2024-01",
				Income:   decimal.RequireFromString("2500"),
				Expenses: decimal.RequireFromString("-4.5"),
				Count:    2,
			},
		},
	}
}

func TestReport_TotalsAndPeriod(t *testing.T) {
	report := sampleReport()

	income, expenses := report.Totals()
	assert.Equal(t, "2500.00", income.StringFixed(2))
	assert.Equal(t, "-4.50", expenses.StringFixed(2))
	assert.Equal(t, "Jan 1, 2024 - Jan 31, 2024", report.period())

	report.End = nil
	assert.Equal(t, "Since Jan 1, 2024", report.period())

	report.Start = nil
	assert.Equal(t, "All transactions", report.period())
}

func TestPrepareReportData(t *testing.T) {
	values := prepareReportData(sampleReport())

	assert.Equal(t, []any{"House Money Report", "Jan 1, 2024 - Jan 31, 2024"}, values[0])
	assert.Equal(t, []any{"Total Income", "", "2500.00"}, values[3])
	assert.Equal(t, []any{"Total Expenses", "", "-4.50"}, values[4])
	assert.Equal(t, []any{"Net", "", "2495.50"}, values[5])
	assert.Equal(t, []any{"Transactions", 2}, values[6])
	assert.Equal(t, []any{"Generated", "2024-02-02T09:30:00Z"}, values[7])

	assert.Contains(t, values, []any{"(untagged)", 1, "-4.50"})
	assert.Contains(t, values, []any{"2024-01", 2, "2500.00", "-4.50", "2495.50"})

	last := values[len(values)-1]
	assert.Equal(t, []any{"2024-01-05", "Coffee Shop", "-4.50", "Coffee, Dining", "with Sam", "manual"}, last)
	assert.Equal(t, "jan.csv", values[len(values)-2][5])
}

func TestWriter_CreatesSpreadsheet(t *testing.T) {
	api := &fakeSheetsAPI{}
	cfg := DefaultConfig()
	cfg.BatchSize = 10
	w := newTestWriter(t, api, cfg)

	report := sampleReport()
	id, err := w.Write(context.Background(), report)
	require.NoError(t, err)

	assert.Equal(t, "created-id", id)
	assert.Equal(t, "create", api.calls[0])
	require.Len(t, api.cleared, 1)
	assert.Contains(t, api.cleared[0], "/v4/spreadsheets/created-id/values/")
	assert.Equal(t, 1, api.batches)

	expected := prepareReportData(report)
	require.Len(t, api.written, len(expected))
	assert.Equal(t, "House Money Report", api.written[0][0])
	assert.Equal(t, "Coffee Shop", api.written[len(api.written)-1][1])

	// The created spreadsheet is reused by the next push.
	_, err = w.Write(context.Background(), report)
	require.NoError(t, err)
	assert.Contains(t, api.calls, "get")
}

func TestWriter_ExistingSpreadsheet(t *testing.T) {
	api := &fakeSheetsAPI{}
	cfg := DefaultConfig()
	cfg.SpreadsheetID = "existing"
	cfg.EnableFormatting = false
	w := newTestWriter(t, api, cfg)

	id, err := w.Write(context.Background(), sampleReport())
	require.NoError(t, err)

	assert.Equal(t, "existing", id)
	assert.Equal(t, []string{"get", "clear", "update"}, api.calls)
	assert.Zero(t, api.batches)
}

func TestWriter_RetriesUnavailable(t *testing.T) {
	api := &fakeSheetsAPI{failures: map[string]int{"clear": 2}}
	cfg := DefaultConfig()
	cfg.SpreadsheetID = "existing"
	w := newTestWriter(t, api, cfg)

	_, err := w.Write(context.Background(), sampleReport())
	require.NoError(t, err)
	assert.Len(t, api.cleared, 1)
}

func TestWriter_GivesUpAfterRetries(t *testing.T) {
	api := &fakeSheetsAPI{failures: map[string]int{"update": 10}}
	cfg := DefaultConfig()
	cfg.SpreadsheetID = "existing"
	w := newTestWriter(t, api, cfg)

	_, err := w.Write(context.Background(), sampleReport())
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrMaxRetries)
}

func TestWriter_PermissionDeniedNotRetried(t *testing.T) {
	api := &fakeSheetsAPI{denied: map[string]bool{"get": true}}
	cfg := DefaultConfig()
	cfg.SpreadsheetID = "locked"
	w := newTestWriter(t, api, cfg)

	_, err := w.Write(context.Background(), sampleReport())
	require.Error(t, err)
	assert.NotErrorIs(t, err, common.ErrMaxRetries)
	assert.Equal(t, []string{"get"}, api.calls)
}

func TestWriter_FormattingFailureIsNotFatal(t *testing.T) {
	api := &fakeSheetsAPI{denied: map[string]bool{"batchUpdate": true}}
	cfg := DefaultConfig()
	cfg.SpreadsheetID = "existing"
	w := newTestWriter(t, api, cfg)

	id, err := w.Write(context.Background(), sampleReport())
	require.NoError(t, err)
	assert.Equal(t, "existing", id)
}
