// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/Veraticus/house-money/internal/model"
)

// SortColumn names a column the transaction listing can be ordered by.
type SortColumn string

// Sortable and searchable transaction columns.
const (
	ColumnDate        SortColumn = "date"
	ColumnDescription SortColumn = "description"
	ColumnAmount      SortColumn = "amount"
)

// ParseSortColumn maps a column name onto a known column, defaulting to date.
func ParseSortColumn(name string) SortColumn {
	switch SortColumn(name) {
	case ColumnDescription, ColumnAmount:
		return SortColumn(name)
	default:
		return ColumnDate
	}
}

// TransactionQuery describes the sort and filter options of a transaction listing.
// The zero value lists every transaction, newest first. StartDate is
// inclusive and EndDate exclusive.
type TransactionQuery struct {
	StartDate  *time.Time
	EndDate    *time.Time
	SortBy     SortColumn
	SearchText string
	SearchOn   SortColumn
	Tag        string
	Ascending  bool
}

// IsDefault reports whether the query is the plain date-descending listing.
func (q TransactionQuery) IsDefault() bool {
	return (q.SortBy == "" || q.SortBy == ColumnDate) &&
		!q.Ascending &&
		q.SearchText == "" &&
		q.Tag == "" &&
		q.StartDate == nil &&
		q.EndDate == nil
}

// Storage defines the contract for our persistence layer.
type Storage interface {
	// Uploaded file operations
	RegisterFile(ctx context.Context, filename, fingerprint string) (*model.UploadedFile, error)
	ForgetFile(ctx context.Context, fingerprint string) error
	ListUploadedFiles(ctx context.Context) ([]model.UploadedFile, error)

	// Transaction operations
	SaveFileTransactions(ctx context.Context, fingerprint string, rows []model.ImportRow) error
	ListTransactions(ctx context.Context, query TransactionQuery) ([]model.Transaction, error)
	GetTransaction(ctx context.Context, id int64) (*model.Transaction, error)
	UpdateTransactionTags(ctx context.Context, transactionID int64, tagIDs []int64) error
	UpdateTransactionNote(ctx context.Context, transactionID int64, note string) error
	CreateManualTransaction(ctx context.Context, txn model.ManualTransaction) (int64, error)
	DeleteTransactions(ctx context.Context, ids []int64) (int, error)

	// Tag operations
	ListTags(ctx context.Context) ([]model.Tag, error)
	GetTagByName(ctx context.Context, name string) (*model.Tag, error)
	CreateTag(ctx context.Context, name, description, color string) (*model.Tag, error)
	UpdateTag(ctx context.Context, id int64, name, description, color string) error
	DeleteTag(ctx context.Context, id int64) error

	// Reporting
	SpendingByTag(ctx context.Context, start, end *time.Time) ([]model.TagSpending, error)
	MonthlyTotals(ctx context.Context, start, end *time.Time) ([]model.MonthlyTotal, error)

	// Database management
	Migrate(ctx context.Context) error
	SchemaVersion(ctx context.Context) (int, error)
	Reset(ctx context.Context) error
	Close() error
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
