// Package importer turns uploaded bank files into persisted transactions:
// fingerprinting, deduplication, column mapping, row normalization and the
// per-file write, driven one file at a time by the Orchestrator.
package importer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Veraticus/house-money/internal/common"
	"github.com/Veraticus/house-money/internal/metrics"
	"github.com/Veraticus/house-money/internal/model"
	"github.com/Veraticus/house-money/internal/ofx"
	"github.com/Veraticus/house-money/internal/service"
)

// Upload is one file of a batch. Data holds the raw bytes; when Data is nil
// Payload is decoded as a "<mime>;base64,<data>" upload instead.
type Upload struct {
	Name    string
	Payload string
	Data    []byte
}

// Options apply to every file of a batch.
type Options struct {
	Format   Format
	Columns  ColumnMapping // Used by FormatCustom
	Policy   MalformedPolicy
	Encoding string
}

// releaseTimeout bounds the cleanup of a file whose import failed.
const releaseTimeout = 5 * time.Second

// Status is the outcome kind of one file.
type Status string

// File outcomes.
const (
	StatusImported Status = "imported"
	StatusSkipped  Status = "skipped"
	StatusFailed   Status = "failed"
)

// FileOutcome reports what happened to one file.
type FileOutcome struct {
	Err         error `json:"-"`
	Name        string
	Fingerprint string
	Status      Status
	Message     string
	Count       int
	Dropped     int
}

// BatchResult is the outcome of every file plus the reloaded transaction
// listing, newest first.
type BatchResult struct {
	ID           string
	Outcomes     []FileOutcome
	Transactions []model.Transaction
}

// Messages returns the status line of every file in input order.
func (r *BatchResult) Messages() []string {
	out := make([]string, len(r.Outcomes))
	for i, o := range r.Outcomes {
		out[i] = o.Message
	}
	return out
}

// Count returns how many files ended with status.
func (r *BatchResult) Count(status Status) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status == status {
			n++
		}
	}
	return n
}

// ProgressFunc is called after each file with the number of files done.
type ProgressFunc func(done, total int, outcome FileOutcome)

// Orchestrator drives the import pipeline across a batch of files.
type Orchestrator struct {
	store    service.Storage
	ofx      *ofx.Parser
	metrics  *metrics.Recorder
	progress ProgressFunc
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithMetrics records file outcomes on r.
func WithMetrics(r *metrics.Recorder) Option {
	return func(o *Orchestrator) { o.metrics = r }
}

// WithProgress reports each finished file to fn.
func WithProgress(fn ProgressFunc) Option {
	return func(o *Orchestrator) { o.progress = fn }
}

// NewOrchestrator creates an Orchestrator writing to store.
func NewOrchestrator(store service.Storage, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		store: store,
		ofx:   ofx.NewParser(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// ImportBatch imports files in order. A failing file never stops the batch:
// its problem is reported in its outcome. The error return is reserved for an
// unusable batch configuration and for failing to reload the final listing.
func (o *Orchestrator) ImportBatch(ctx context.Context, files []Upload, opts Options) (*BatchResult, error) {
	mapping, err := ResolveMapping(opts.Format, opts.Columns)
	if err != nil {
		return nil, err
	}
	policy := opts.Policy
	if policy == "" {
		policy = PolicyDrop
	}
	if _, err := decoderFor(opts.Encoding); err != nil {
		return nil, err
	}

	start := time.Now()
	result := &BatchResult{
		ID:       uuid.NewString(),
		Outcomes: make([]FileOutcome, 0, len(files)),
	}

	slog.Info("starting import batch", "batch_id", result.ID, "files", len(files), "format", opts.Format)

	for i, file := range files {
		outcome := o.importFile(ctx, file, mapping, policy, opts.Encoding)
		o.record(outcome)
		result.Outcomes = append(result.Outcomes, outcome)

		slog.Info("processed file",
			"batch_id", result.ID,
			"file", outcome.Name,
			"status", outcome.Status,
			"count", outcome.Count,
			"dropped", outcome.Dropped)

		if o.progress != nil {
			o.progress(i+1, len(files), outcome)
		}
	}

	o.metrics.BatchFinished(time.Since(start))

	txns, err := o.store.ListTransactions(ctx, service.TransactionQuery{})
	if err != nil {
		return result, fmt.Errorf("failed to reload transactions: %w", err)
	}
	result.Transactions = txns

	return result, nil
}

func (o *Orchestrator) importFile(ctx context.Context, file Upload, mapping ColumnMapping, policy MalformedPolicy, encoding string) FileOutcome {
	outcome := FileOutcome{Name: file.Name}

	if err := ctx.Err(); err != nil {
		return failed(outcome, err)
	}

	data := file.Data
	if data == nil {
		decoded, err := DecodePayload(file.Payload)
		if err != nil {
			return failed(outcome, err)
		}
		data = decoded
	}

	outcome.Fingerprint = Fingerprint(data)

	if _, err := o.store.RegisterFile(ctx, file.Name, outcome.Fingerprint); err != nil {
		if errors.Is(err, common.ErrDuplicateFile) {
			outcome.Status = StatusSkipped
			outcome.Message = fmt.Sprintf("%s was already uploaded, skipped", file.Name)
			return outcome
		}
		return failed(outcome, err)
	}

	rows, dropped, err := o.parse(ctx, file.Name, data, mapping, policy, encoding)
	if err == nil {
		err = o.store.SaveFileTransactions(ctx, outcome.Fingerprint, rows)
	}
	if err != nil {
		// Release the dedup slot so a corrected upload of the same bytes is accepted.
		// This must happen even when ctx was canceled mid-file.
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
		forgetErr := o.store.ForgetFile(releaseCtx, outcome.Fingerprint)
		cancel()
		if forgetErr != nil {
			slog.Warn("failed to release file after error",
				"file", file.Name,
				"fingerprint", outcome.Fingerprint,
				"error", forgetErr)
		}
		return failed(outcome, err)
	}

	outcome.Status = StatusImported
	outcome.Count = len(rows)
	outcome.Dropped = dropped
	outcome.Message = fmt.Sprintf("%s uploaded successfully (%d transactions)", file.Name, len(rows))
	if dropped > 0 {
		outcome.Message = fmt.Sprintf("%s uploaded successfully (%d transactions, %d malformed rows dropped)",
			file.Name, len(rows), dropped)
	}
	return outcome
}

// parse reads the file as OFX or CSV and returns its canonical rows.
func (o *Orchestrator) parse(ctx context.Context, name string, data []byte, mapping ColumnMapping, policy MalformedPolicy, encoding string) ([]model.ImportRow, int, error) {
	if ofx.IsOFXFile(name) {
		rows, err := o.ofx.ParseFile(ctx, bytes.NewReader(data))
		return rows, 0, err
	}

	table, err := ReadCSV(data, encoding)
	if err != nil {
		return nil, 0, err
	}
	normalized, err := Normalize(table, mapping, policy)
	if err != nil {
		return nil, 0, err
	}
	return normalized.Rows, normalized.Dropped, nil
}

func (o *Orchestrator) record(outcome FileOutcome) {
	switch outcome.Status {
	case StatusImported:
		o.metrics.FileImported(outcome.Count, outcome.Dropped)
	case StatusSkipped:
		o.metrics.FileSkipped()
	case StatusFailed:
		o.metrics.FileFailed()
	}
}

func failed(outcome FileOutcome, err error) FileOutcome {
	outcome.Status = StatusFailed
	outcome.Err = err
	outcome.Message = fmt.Sprintf("%s: error: %s", outcome.Name, strings.TrimSpace(common.UserMessage(err)))
	return outcome
}
