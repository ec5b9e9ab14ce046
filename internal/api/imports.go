package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/Veraticus/house-money/internal/common"
	"github.com/Veraticus/house-money/internal/importer"
	"github.com/Veraticus/house-money/internal/model"
)

type uploadRequest struct {
	Name     string `json:"name"`
	Contents string `json:"contents"` // data URL: "<mime>;base64,<data>"
}

type importRequest struct {
	Format        string                 `json:"format"`
	Columns       importer.ColumnMapping `json:"columns"`
	Encoding      string                 `json:"encoding,omitempty"`
	MalformedRows string                 `json:"malformed_rows,omitempty"`
	Files         []uploadRequest        `json:"files"`
}

type fileOutcomeResponse struct {
	Name        string          `json:"name"`
	Fingerprint string          `json:"fingerprint,omitempty"`
	Status      importer.Status `json:"status"`
	Message     string          `json:"message"`
	Count       int             `json:"count"`
	Dropped     int             `json:"dropped"`
}

type importResponse struct {
	BatchID      string                `json:"batch_id"`
	Messages     []string              `json:"messages"`
	Files        []fileOutcomeResponse `json:"files"`
	Transactions []transactionResponse `json:"transactions"`
}

// options merges the request's import settings over the server defaults.
func (s *Server) options(req importRequest) (importer.Options, error) {
	opts := s.defaults
	opts.Columns = req.Columns

	if req.Format != "" {
		format, err := importer.ParseFormat(req.Format)
		if err != nil {
			return opts, err
		}
		opts.Format = format
	}
	if req.MalformedRows != "" {
		policy, err := importer.ParsePolicy(req.MalformedRows)
		if err != nil {
			return opts, err
		}
		opts.Policy = policy
	}
	if req.Encoding != "" {
		opts.Encoding = req.Encoding
	}
	return opts, nil
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImportBody)

	var req importRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if len(req.Files) == 0 {
		writeError(w, r, fmt.Errorf("%w: request has no files", common.ErrNoFiles))
		return
	}

	opts, err := s.options(req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	uploads := make([]importer.Upload, 0, len(req.Files))
	for _, f := range req.Files {
		uploads = append(uploads, importer.Upload{Name: f.Name, Payload: f.Contents})
	}

	result, err := s.importer.ImportBatch(r.Context(), uploads, opts)
	if err != nil {
		writeError(w, r, err)
		return
	}

	files := make([]fileOutcomeResponse, 0, len(result.Outcomes))
	for _, o := range result.Outcomes {
		files = append(files, fileOutcomeResponse{
			Name:        o.Name,
			Fingerprint: o.Fingerprint,
			Status:      o.Status,
			Message:     o.Message,
			Count:       o.Count,
			Dropped:     o.Dropped,
		})
	}

	writeJSON(w, http.StatusOK, importResponse{
		BatchID:      result.ID,
		Messages:     result.Messages(),
		Files:        files,
		Transactions: toTransactionResponses(result.Transactions),
	})
}

type uploadedFileResponse struct {
	ID               int64  `json:"id"`
	Filename         string `json:"filename"`
	Fingerprint      string `json:"fingerprint"`
	UploadedAt       string `json:"uploaded_at"`
	TransactionCount int    `json:"transaction_count"`
}

func toUploadedFileResponse(f *model.UploadedFile) uploadedFileResponse {
	return uploadedFileResponse{
		ID:               f.ID,
		Filename:         f.Filename,
		Fingerprint:      f.Fingerprint,
		UploadedAt:       f.UploadedAt.UTC().Format(time.RFC3339),
		TransactionCount: f.TransactionCount,
	}
}

func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	files, err := s.store.ListUploadedFiles(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	response := make([]uploadedFileResponse, 0, len(files))
	for i := range files {
		response = append(response, toUploadedFileResponse(&files[i]))
	}
	writeJSON(w, http.StatusOK, response)
}
