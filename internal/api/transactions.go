package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/house-money/internal/common"
	"github.com/Veraticus/house-money/internal/importer"
	"github.com/Veraticus/house-money/internal/model"
	"github.com/Veraticus/house-money/internal/service"
)

type transactionResponse struct {
	ID          int64             `json:"id"`
	Date        string            `json:"date"`
	Description string            `json:"description"`
	Amount      string            `json:"amount"`
	Notes       string            `json:"notes"`
	Tags        []string          `json:"tags"`
	Extra       map[string]string `json:"extra,omitempty"`
	SourceFile  string            `json:"source_file,omitempty"`
	Manual      bool              `json:"manual"`
}

func toTransactionResponse(t *model.Transaction) transactionResponse {
	tags := t.Tags
	if tags == nil {
		tags = []string{}
	}
	return transactionResponse{
		ID:          t.ID,
		Date:        t.Date.Format(time.DateOnly),
		Description: t.Description,
		Amount:      t.Amount.StringFixed(2),
		Notes:       t.Notes,
		Tags:        tags,
		Extra:       t.Extra,
		SourceFile:  t.SourceFile,
		Manual:      t.IsManual(),
	}
}

func toTransactionResponses(txns []model.Transaction) []transactionResponse {
	out := make([]transactionResponse, 0, len(txns))
	for i := range txns {
		out = append(out, toTransactionResponse(&txns[i]))
	}
	return out
}

type createTransactionRequest struct {
	Date        string          `json:"date"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Notes       string          `json:"notes"`
	TagIDs      []int64         `json:"tag_ids"`
}

type updateTagsRequest struct {
	TagIDs []int64 `json:"tag_ids"`
}

type updateNoteRequest struct {
	Note string `json:"note"`
}

type deleteTransactionsRequest struct {
	IDs []int64 `json:"ids"`
}

// parseTransactionQuery reads sort=&order=&q=&on=&start=&end=&tag= from the URL.
func parseTransactionQuery(r *http.Request) (service.TransactionQuery, error) {
	v := r.URL.Query()
	q := service.TransactionQuery{
		SortBy:     service.ParseSortColumn(v.Get("sort")),
		Ascending:  v.Get("order") == "asc",
		SearchText: v.Get("q"),
		SearchOn:   service.ParseSortColumn(v.Get("on")),
		Tag:        v.Get("tag"),
	}
	if v.Get("on") == "" {
		q.SearchOn = service.ColumnDescription
	}

	var err error
	if q.StartDate, err = optionalDate(v.Get("start")); err != nil {
		return q, err
	}
	if q.EndDate, err = optionalDate(v.Get("end")); err != nil {
		return q, err
	}
	return q, nil
}

func optionalDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := importer.ParseDate(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrMalformedInput, err)
	}
	return &t, nil
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	q, err := parseTransactionQuery(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	txns, err := s.store.ListTransactions(r.Context(), q)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionResponses(txns))
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	txn, err := s.store.GetTransaction(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionResponse(txn))
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req createTransactionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	date, err := importer.ParseDate(req.Date)
	if err != nil {
		writeError(w, r, fmt.Errorf("%w: %w", common.ErrMalformedInput, err))
		return
	}

	id, err := s.store.CreateManualTransaction(r.Context(), model.ManualTransaction{
		Date:        date,
		Description: req.Description,
		Amount:      req.Amount,
		Notes:       req.Notes,
		TagIDs:      req.TagIDs,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	txn, err := s.store.GetTransaction(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTransactionResponse(txn))
}

func (s *Server) handleUpdateTags(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req updateTagsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	if err := s.store.UpdateTransactionTags(r.Context(), id, req.TagIDs); err != nil {
		writeError(w, r, err)
		return
	}
	s.respondWithTransaction(w, r, id)
}

func (s *Server) handleUpdateNote(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req updateNoteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	if err := s.store.UpdateTransactionNote(r.Context(), id, req.Note); err != nil {
		writeError(w, r, err)
		return
	}
	s.respondWithTransaction(w, r, id)
}

func (s *Server) handleDeleteTransactions(w http.ResponseWriter, r *http.Request) {
	var req deleteTransactionsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	deleted, err := s.store.DeleteTransactions(r.Context(), req.IDs)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"deleted": deleted})
}

func (s *Server) respondWithTransaction(w http.ResponseWriter, r *http.Request, id int64) {
	txn, err := s.store.GetTransaction(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionResponse(txn))
}
