package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/Veraticus/house-money/internal/common"
	"github.com/Veraticus/house-money/internal/storage"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to encode response", "error", err)
	}
}

// writeError maps err onto an HTTP status and writes it as JSON.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	writeJSON(w, status, errorResponse{Error: common.UserMessage(err)})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, common.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, common.ErrDuplicateEntry), errors.Is(err, common.ErrDuplicateFile):
		return http.StatusConflict
	case errors.Is(err, common.ErrMalformedInput),
		errors.Is(err, common.ErrUnknownFormat),
		errors.Is(err, common.ErrInvalidConfig),
		errors.Is(err, common.ErrNoFiles),
		errors.Is(err, storage.ErrEmptyString),
		errors.Is(err, storage.ErrEmptySlice),
		errors.Is(err, storage.ErrInvalidID),
		errors.Is(err, storage.ErrInvalidDateRange),
		errors.Is(err, storage.ErrInvalidManual):
		return http.StatusBadRequest
	case errors.Is(err, common.ErrDatabaseBusy):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSON reads the request body into v, rejecting unknown fields.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: invalid request body: %w", common.ErrMalformedInput, err)
	}
	return nil
}

func pathID(r *http.Request) (int64, error) {
	raw := r.PathValue("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid id %q", common.ErrMalformedInput, raw)
	}
	return id, nil
}
