package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/Veraticus/house-money/internal/cache"
	"github.com/Veraticus/house-money/internal/common"
	"github.com/Veraticus/house-money/internal/model"
)

// RegisterFile records a new upload with a zero transaction count. The unique
// fingerprint constraint is the dedup gate: a second registration of the same
// content fails with common.ErrDuplicateFile and changes nothing.
func (s *SQLiteStorage) RegisterFile(ctx context.Context, filename, fingerprint string) (*model.UploadedFile, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(fingerprint, "fingerprint"); err != nil {
		return nil, err
	}

	file := &model.UploadedFile{
		Filename:    filename,
		Fingerprint: fingerprint,
		UploadedAt:  time.Now().UTC(),
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `
			INSERT INTO uploaded_files (filename, content_fingerprint, upload_date, transaction_count)
			VALUES (?, ?, ?, 0)`,
			filename, fingerprint, file.UploadedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to register file: %w", err)
		}

		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get file ID: %w", err)
		}
		file.ID = id
		return nil
	})
	if errors.Is(err, common.ErrDuplicateEntry) {
		slog.Debug("file already registered", "filename", filename, "fingerprint", fingerprint)
		return nil, fmt.Errorf("%w: %s", common.ErrDuplicateFile, filename)
	}
	if err != nil {
		return nil, err
	}

	s.invalidate(cacheKeyUploadedFiles)
	slog.Debug("registered file", "filename", filename, "id", file.ID)
	return file, nil
}

// ForgetFile removes an upload record and any transactions that reference it,
// so the same content can be uploaded again.
func (s *SQLiteStorage) ForgetFile(ctx context.Context, fingerprint string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(fingerprint, "fingerprint"); err != nil {
		return err
	}
	if fingerprint == model.ManualEntryFingerprint {
		return fmt.Errorf("%w: the manual entry file cannot be removed", common.ErrMalformedInput)
	}

	var removed int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `DELETE FROM uploaded_files WHERE content_fingerprint = ?`, fingerprint)
		if err != nil {
			return fmt.Errorf("failed to remove file: %w", err)
		}
		removed, err = result.RowsAffected()
		return err
	})
	if err != nil {
		return err
	}
	if removed == 0 {
		return common.ErrNotFound
	}

	s.invalidate(cacheKeyUploadedFiles, cacheKeyTransactions)
	return nil
}

// ListUploadedFiles returns every upload, newest first. The manual entry
// placeholder is not listed.
func (s *SQLiteStorage) ListUploadedFiles(ctx context.Context) ([]model.UploadedFile, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	files, err := cache.Load(s.cache, cacheKeyUploadedFiles, s.cacheTTL, func() ([]model.UploadedFile, error) {
		var files []model.UploadedFile
		err := s.withRead(ctx, func(ctx context.Context) error {
			var err error
			files, err = s.queryUploadedFiles(ctx)
			return err
		})
		return files, err
	})
	if err != nil {
		return nil, err
	}
	return slices.Clone(files), nil
}

func (s *SQLiteStorage) queryUploadedFiles(ctx context.Context) ([]model.UploadedFile, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, filename, content_fingerprint, upload_date, transaction_count
		FROM uploaded_files
		WHERE content_fingerprint != ?
		ORDER BY upload_date DESC, id DESC`,
		model.ManualEntryFingerprint,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query uploaded files: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var files []model.UploadedFile
	for rows.Next() {
		var f model.UploadedFile
		if err := rows.Scan(&f.ID, &f.Filename, &f.Fingerprint, &f.UploadedAt, &f.TransactionCount); err != nil {
			return nil, fmt.Errorf("failed to scan uploaded file: %w", err)
		}
		files = append(files, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating uploaded files: %w", err)
	}

	return files, nil
}
