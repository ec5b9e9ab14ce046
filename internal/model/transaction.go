// Package model defines the core domain models used throughout the application.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// ManualEntryFingerprint is the file fingerprint carried by transactions
// entered by hand rather than imported from a file.
const ManualEntryFingerprint = "manual_entry"

// Transaction represents a single persisted financial transaction.
type Transaction struct {
	Date            time.Time
	CreatedAt       time.Time
	Description     string
	Notes           string
	FileFingerprint string
	SourceFile      string   // Filename of the originating upload, empty for manual entries
	Tags            []string          // Tag names, sorted
	Extra           map[string]string // Unmapped columns of the source file
	Amount          decimal.Decimal
	ID              int64
}

// IsManual reports whether the transaction was entered by hand.
func (t *Transaction) IsManual() bool {
	return t.FileFingerprint == ManualEntryFingerprint
}

// HasTag reports whether the transaction carries the named tag.
func (t *Transaction) HasTag(name string) bool {
	for _, tag := range t.Tags {
		if tag == name {
			return true
		}
	}
	return false
}

// ManualTransaction holds the fields supplied when creating a transaction by hand.
type ManualTransaction struct {
	Date        time.Time
	Description string
	Notes       string
	TagIDs      []int64
	Amount      decimal.Decimal
}
