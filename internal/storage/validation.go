// Package storage provides the SQLite persistence layer for House Money.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/house-money/internal/model"
)

// Validation errors.
var (
	ErrNilContext       = errors.New("context cannot be nil")
	ErrEmptyString      = errors.New("string parameter cannot be empty")
	ErrEmptySlice       = errors.New("slice cannot be empty")
	ErrInvalidID        = errors.New("id must be positive")
	ErrInvalidDateRange = errors.New("start date must be before end date")
	ErrInvalidManual    = errors.New("invalid manual transaction")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

func validateID(id int64, paramName string) error {
	if id <= 0 {
		return fmt.Errorf("%w: %s=%d", ErrInvalidID, paramName, id)
	}
	return nil
}

func validateIDs(ids []int64, paramName string) error {
	if len(ids) == 0 {
		return fmt.Errorf("%w: %s", ErrEmptySlice, paramName)
	}
	for _, id := range ids {
		if err := validateID(id, paramName); err != nil {
			return err
		}
	}
	return nil
}

// validateManual checks a hand-entered transaction before insertion.
func validateManual(txn model.ManualTransaction) error {
	if txn.Date.IsZero() {
		return fmt.Errorf("%w: missing date", ErrInvalidManual)
	}
	for _, id := range txn.TagIDs {
		if err := validateID(id, "tagID"); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidManual, err)
		}
	}
	return nil
}
