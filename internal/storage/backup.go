package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ErrBackupExists is returned when the backup destination is already taken.
var ErrBackupExists = errors.New("backup already exists")

// Backup writes a consistent copy of the database to destPath using
// VACUUM INTO.
func (s *SQLiteStorage) Backup(ctx context.Context, destPath string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if s.dbPath == InMemory {
		return fmt.Errorf("cannot back up an in-memory database")
	}

	destPath, err := filepath.Abs(destPath)
	if err != nil {
		return fmt.Errorf("invalid backup path: %w", err)
	}
	if strings.ContainsAny(destPath, `'";`) {
		return fmt.Errorf("invalid backup path: contains forbidden characters")
	}
	if _, err := os.Stat(destPath); err == nil {
		return fmt.Errorf("%w: %s", ErrBackupExists, destPath)
	}
	if err := os.MkdirAll(filepath.Dir(destPath), 0750); err != nil {
		return fmt.Errorf("failed to create backup directory: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return fmt.Errorf("failed to checkpoint WAL: %w", err)
	}

	// #nosec G201 - destPath is validated above
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf("VACUUM INTO '%s'", destPath)); err != nil {
		return fmt.Errorf("failed to back up database: %w", err)
	}

	slog.Info("backed up database", "path", destPath)
	return nil
}

// AutoBackup backs the database up next to itself under backups/, named
// after reason and the current time, and returns the path written.
func (s *SQLiteStorage) AutoBackup(ctx context.Context, reason string) (string, error) {
	name := fmt.Sprintf("hm-before-%s-%s.db", reason, time.Now().Format("2006-01-02-150405"))
	path := filepath.Join(filepath.Dir(s.dbPath), "backups", name)
	if err := s.Backup(ctx, path); err != nil {
		return "", err
	}
	return path, nil
}
