package api

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTags_CRUD(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/tags", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]tagResponse](t, rec), 16)

	rec = ts.do(t, http.MethodPost, "/api/tags", tagRequest{Name: "Pets", Color: "#123456"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	pets := decode[tagResponse](t, rec)
	assert.Equal(t, "Pets", pets.Name)

	rec = ts.do(t, http.MethodPost, "/api/tags", tagRequest{Name: "Groceries"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/tags", tagRequest{Name: "  "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodPut, fmt.Sprintf("/api/tags/%d", pets.ID), tagRequest{Name: " Animals ", Description: "vet and food"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Animals", decode[tagResponse](t, rec).Name)

	rec = ts.do(t, http.MethodPut, fmt.Sprintf("/api/tags/%d", pets.ID), tagRequest{Name: "Dining"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = ts.do(t, http.MethodDelete, fmt.Sprintf("/api/tags/%d", pets.ID), nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = ts.do(t, http.MethodDelete, fmt.Sprintf("/api/tags/%d", pets.ID), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodPut, "/api/tags/9999", tagRequest{Name: "Ghost"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTags_DeleteDetachesFromTransactions(t *testing.T) {
	ts := newTestServer(t)
	txns := ts.seed(t)

	dining := ts.db.MustTagID("Dining")
	rec := ts.do(t, http.MethodPut, fmt.Sprintf("/api/transactions/%d/tags", txns[1].ID), updateTagsRequest{TagIDs: []int64{dining}})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodDelete, fmt.Sprintf("/api/tags/%d", dining), nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = ts.do(t, http.MethodGet, fmt.Sprintf("/api/transactions/%d", txns[1].ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[transactionResponse](t, rec).Tags)
}
