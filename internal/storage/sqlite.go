package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/Veraticus/house-money/internal/cache"
	"github.com/Veraticus/house-money/internal/common"
	"github.com/Veraticus/house-money/internal/service"

	"github.com/mattn/go-sqlite3" // SQLite driver
)

// Cache keys owned by the storage layer. Derived transaction listings live
// under the "transactions:" namespace.
const (
	cacheKeyTransactions  = "transactions"
	cacheKeyUploadedFiles = "uploaded_files"
	cacheKeyTags          = "tags"
)

// InMemory is the path that opens a private in-memory database.
const InMemory = ":memory:"

// DefaultRetryOptions is the busy-retry policy used when none is configured.
var DefaultRetryOptions = service.RetryOptions{
	MaxAttempts:  5,
	InitialDelay: 50 * time.Millisecond,
	MaxDelay:     2 * time.Second,
	Multiplier:   2.0,
}

// SQLiteStorage implements service.Storage using SQLite.
type SQLiteStorage struct {
	db             *sql.DB
	cache          *cache.Cache
	dbPath         string
	retry          service.RetryOptions
	cacheTTL       time.Duration
	connectTimeout time.Duration
}

// Option configures a SQLiteStorage.
type Option func(*SQLiteStorage)

// WithCache puts c in front of the read queries. Without it every read hits
// the database.
func WithCache(c *cache.Cache, ttl time.Duration) Option {
	return func(s *SQLiteStorage) {
		s.cache = c
		s.cacheTTL = ttl
	}
}

// WithRetry sets how busy and locked errors are retried.
func WithRetry(opts service.RetryOptions) Option {
	return func(s *SQLiteStorage) { s.retry = opts }
}

// WithConnectTimeout bounds how long an operation waits for a connection.
func WithConnectTimeout(d time.Duration) Option {
	return func(s *SQLiteStorage) { s.connectTimeout = d }
}

// NewSQLiteStorage opens (creating if needed) the database at dbPath.
func NewSQLiteStorage(dbPath string, opts ...Option) (*SQLiteStorage, error) {
	if err := validateString(dbPath, "dbPath"); err != nil {
		return nil, err
	}

	if dbPath != InMemory {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One connection serializes writers and keeps an in-memory database alive.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &SQLiteStorage{
		db:             db,
		dbPath:         dbPath,
		retry:          DefaultRetryOptions,
		connectTimeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}

	slog.Debug("opened database", "path", dbPath, "cached", s.cache != nil)
	return s, nil
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *SQLiteStorage) Path() string {
	return s.dbPath
}

// DB exposes the underlying handle for maintenance commands and tests.
func (s *SQLiteStorage) DB() *sql.DB {
	return s.db
}

// withTx runs fn inside a transaction, retrying the whole unit when SQLite
// reports the database busy or locked. The transaction is always rolled back
// unless fn and the commit both succeed.
func (s *SQLiteStorage) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	return common.WithRetry(ctx, func() error {
		return s.runTx(ctx, fn)
	}, s.retry)
}

func (s *SQLiteStorage) runTx(ctx context.Context, fn func(*sql.Tx) error) error {
	beginCtx := ctx
	if s.connectTimeout > 0 {
		var cancel context.CancelFunc
		beginCtx, cancel = context.WithTimeout(ctx, s.connectTimeout)
		defer cancel()
	}

	conn, err := s.db.Conn(beginCtx)
	if err != nil {
		return classifyError(fmt.Errorf("failed to acquire connection: %w", err))
	}
	defer func() { _ = conn.Close() }()

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return classifyError(fmt.Errorf("failed to begin transaction: %w", err))
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return classifyError(err)
	}

	if err := tx.Commit(); err != nil {
		return classifyError(fmt.Errorf("failed to commit transaction: %w", err))
	}
	return nil
}

// withRead runs a read-only query function, retrying busy errors.
func (s *SQLiteStorage) withRead(ctx context.Context, fn func(context.Context) error) error {
	return common.WithRetry(ctx, func() error {
		return classifyError(fn(ctx))
	}, s.retry)
}

// classifyError maps driver errors onto the application's sentinel errors.
func classifyError(err error) error {
	if err == nil {
		return nil
	}

	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return err
	}

	switch {
	case sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked:
		return &common.RetryableError{
			Err:       fmt.Errorf("%w: %w", common.ErrDatabaseBusy, err),
			Retryable: true,
		}
	case sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique,
		sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey:
		return fmt.Errorf("%w: %w", common.ErrDuplicateEntry, err)
	case sqliteErr.ExtendedCode == sqlite3.ErrConstraintForeignKey:
		return fmt.Errorf("%w: referenced row does not exist: %w", common.ErrNotFound, err)
	case sqliteErr.Code == sqlite3.ErrCorrupt || sqliteErr.Code == sqlite3.ErrNotADB:
		return fmt.Errorf("%w: %w", common.ErrDatabaseCorrupted, err)
	default:
		return err
	}
}

// invalidate drops the given cache namespaces.
func (s *SQLiteStorage) invalidate(keys ...string) {
	if s.cache == nil {
		return
	}
	for _, key := range keys {
		s.cache.Invalidate(key)
	}
}

// SchemaVersion returns the applied migration version.
func (s *SQLiteStorage) SchemaVersion(ctx context.Context) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get schema version: %w", err)
	}
	return version, nil
}

// Reset drops every table and re-applies the migrations, leaving an empty
// database with the default tags.
func (s *SQLiteStorage) Reset(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		for _, table := range []string{"transaction_tags", "transactions", "uploaded_files", "tags"} {
			// #nosec G202 - table names are constants
			if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+table); err != nil {
				return fmt.Errorf("failed to drop %s: %w", table, err)
			}
			slog.Debug("dropped table", "table", table)
		}
		if _, err := tx.ExecContext(ctx, "PRAGMA user_version = 0"); err != nil {
			return fmt.Errorf("failed to reset schema version: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if s.cache != nil {
		s.cache.Clear()
	}

	return s.Migrate(ctx)
}
