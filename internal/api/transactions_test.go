package api

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListTransactions_Query(t *testing.T) {
	ts := newTestServer(t)
	ts.seed(t)

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{name: "default", query: "", want: []string{"Rent", "Coffee Shop"}},
		{name: "amount ascending", query: "?sort=amount&order=asc", want: []string{"Coffee Shop", "Rent"}},
		{name: "unknown sort falls back to date", query: "?sort=bogus", want: []string{"Rent", "Coffee Shop"}},
		{name: "search description", query: "?q=coffee", want: []string{"Coffee Shop"}},
		{name: "search amount", query: "?q=1500&on=amount", want: []string{"Rent"}},
		{name: "date range", query: "?start=2024-01-06&end=2024-01-07", want: []string{"Rent"}},
		{name: "tag filter", query: "?tag=Groceries", want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(t, http.MethodGet, "/api/transactions"+tt.query, nil)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

			got := []string{}
			for _, txn := range decode[[]transactionResponse](t, rec) {
				got = append(got, txn.Description)
			}
			assert.Equal(t, tt.want, got)
		})
	}

	rec := ts.do(t, http.MethodGet, "/api/transactions?start=yesterday", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/transactions?start=2024-02-01&end=2024-01-01", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateTagsAndNote(t *testing.T) {
	ts := newTestServer(t)
	txns := ts.seed(t)
	id := txns[1].ID

	groceries := ts.db.MustTagID("Groceries")
	dining := ts.db.MustTagID("Dining")

	rec := ts.do(t, http.MethodPut, fmt.Sprintf("/api/transactions/%d/tags", id),
		updateTagsRequest{TagIDs: []int64{groceries, dining}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, []string{"Dining", "Groceries"}, decode[transactionResponse](t, rec).Tags)

	rec = ts.do(t, http.MethodPut, fmt.Sprintf("/api/transactions/%d/note", id), updateNoteRequest{Note: "with Sam"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "with Sam", decode[transactionResponse](t, rec).Notes)

	rec = ts.do(t, http.MethodGet, "/api/transactions?tag=Dining", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	listed := decode[[]transactionResponse](t, rec)
	require.Len(t, listed, 1, "cached listings see the new tags")
	assert.Equal(t, "with Sam", listed[0].Notes)

	rec = ts.do(t, http.MethodPut, "/api/transactions/9999/tags", updateTagsRequest{TagIDs: []int64{groceries}})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodPut, "/api/transactions/9999/note", updateNoteRequest{Note: "x"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/transactions/9999", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateAndDeleteTransactions(t *testing.T) {
	ts := newTestServer(t)
	txns := ts.seed(t)

	rec := ts.do(t, http.MethodPost, "/api/transactions", map[string]any{
		"date":        "2024-02-01",
		"description": "Cash at market",
		"amount":      "-12.34",
		"notes":       "farmers market",
		"tag_ids":     []int64{ts.db.MustTagID("Groceries")},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	created := decode[transactionResponse](t, rec)
	assert.True(t, created.Manual)
	assert.Equal(t, "-12.34", created.Amount)
	assert.Equal(t, []string{"Groceries"}, created.Tags)
	assert.Empty(t, created.SourceFile)

	rec = ts.do(t, http.MethodPost, "/api/transactions", map[string]any{"date": "", "amount": "1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodDelete, "/api/transactions", deleteTransactionsRequest{IDs: []int64{txns[0].ID, created.ID}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]int{"deleted": 2}, decode[map[string]int](t, rec))

	rec = ts.do(t, http.MethodDelete, "/api/transactions", deleteTransactionsRequest{IDs: []int64{txns[0].ID}})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodDelete, "/api/transactions", deleteTransactionsRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/transactions", nil)
	require.Len(t, decode[[]transactionResponse](t, rec), 1)
}

func TestSummary(t *testing.T) {
	ts := newTestServer(t)
	txns := ts.seed(t)

	rec := ts.do(t, http.MethodPut, fmt.Sprintf("/api/transactions/%d/tags", txns[0].ID),
		updateTagsRequest{TagIDs: []int64{ts.db.MustTagID("Housing")}})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/summary", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[summaryResponse](t, rec)
	require.Len(t, resp.ByTag, 2)
	byTag := map[string]string{}
	for _, s := range resp.ByTag {
		byTag[s.Tag] = s.Total
	}
	assert.Equal(t, map[string]string{"": "4.50", "Housing": "1500.00"}, byTag)

	require.Len(t, resp.Monthly, 1)
	assert.Equal(t, "2024-01", resp.Monthly[0].Month)
	assert.Equal(t, "1504.50", resp.Monthly[0].Income)
	assert.Equal(t, "1504.50", resp.Monthly[0].Net)

	rec = ts.do(t, http.MethodGet, "/api/summary?start=2024-02-01", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp = decode[summaryResponse](t, rec)
	assert.Empty(t, resp.ByTag)
	assert.Empty(t, resp.Monthly)
}
