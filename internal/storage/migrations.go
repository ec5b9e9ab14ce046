package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/Veraticus/house-money/internal/model"
)

// ExpectedSchemaVersion is the latest schema version that the application expects.
// If the database cannot be migrated to this version, it's a fatal error.
const ExpectedSchemaVersion = 3

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

// DefaultTag is a tag seeded into every new database.
type DefaultTag struct {
	Name        string
	Description string
	Color       string
}

// DefaultTags are inserted by the second migration.
var DefaultTags = []DefaultTag{
	{"Groceries", "Food, household items, and daily essentials", "#FF9999"},
	{"Dining", "Restaurants, cafes, and takeout food", "#99FF99"},
	{"Transportation", "Gas, public transit, car maintenance, and rideshares", "#9999FF"},
	{"Shopping", "Retail purchases, clothing, and personal items", "#FFFF99"},
	{"Entertainment", "Movies, events, hobbies, and leisure activities", "#FF99FF"},
	{"Utilities", "Electricity, water, gas, internet, and phone bills", "#99FFFF"},
	{"Housing", "Rent, mortgage, property taxes, and home maintenance", "#FFB366"},
	{"Healthcare", "Medical expenses, prescriptions, and insurance", "#FF6666"},
	{"Education", "Tuition, books, courses, and educational materials", "#66B366"},
	{"Travel", "Vacations, business trips, and travel expenses", "#B366B3"},
	{"Gifts", "Gifts, donations, and charitable contributions", "#66B3B3"},
	{"Personal Care", "Haircuts, beauty products, and wellness services", "#B3B366"},
	{"Investments", "Savings, investments, and retirement contributions", "#4D4D4D"},
	{"Income", "Salary, bonuses, and other income sources", "#4CAF50"},
	{"Subscriptions", "Streaming services, software, and memberships", "#9C27B0"},
	{"Insurance", "Health, auto, home, and other insurance premiums", "#2196F3"},
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial schema",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS uploaded_files (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					filename TEXT NOT NULL,
					content_fingerprint TEXT NOT NULL UNIQUE,
					upload_date DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
					transaction_count INTEGER NOT NULL DEFAULT 0
				)`,

				`CREATE TABLE IF NOT EXISTS tags (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					name TEXT NOT NULL UNIQUE,
					description TEXT NOT NULL DEFAULT '',
					color TEXT NOT NULL DEFAULT '',
					created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
				)`,

				`CREATE TABLE IF NOT EXISTS transactions (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					date DATETIME NOT NULL,
					description TEXT NOT NULL DEFAULT '',
					amount DECIMAL(15,2) NOT NULL,
					notes TEXT NOT NULL DEFAULT '',
					file_fingerprint TEXT NOT NULL,
					created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
					FOREIGN KEY (file_fingerprint) REFERENCES uploaded_files(content_fingerprint) ON DELETE CASCADE
				)`,
				`CREATE INDEX idx_transactions_date ON transactions(date)`,
				`CREATE INDEX idx_transactions_file ON transactions(file_fingerprint)`,

				`CREATE TABLE IF NOT EXISTS transaction_tags (
					transaction_id INTEGER NOT NULL,
					tag_id INTEGER NOT NULL,
					created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
					PRIMARY KEY (transaction_id, tag_id),
					FOREIGN KEY (transaction_id) REFERENCES transactions(id) ON DELETE CASCADE,
					FOREIGN KEY (tag_id) REFERENCES tags(id) ON DELETE CASCADE
				)`,
				`CREATE INDEX idx_transaction_tags_tag ON transaction_tags(tag_id)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     2,
		Description: "Seed default tags and the manual entry file",
		Up: func(tx *sql.Tx) error {
			stmt, err := tx.Prepare(`INSERT OR IGNORE INTO tags (name, description, color) VALUES (?, ?, ?)`)
			if err != nil {
				return fmt.Errorf("failed to prepare tag insert: %w", err)
			}
			defer func() { _ = stmt.Close() }()

			for _, tag := range DefaultTags {
				if _, err := stmt.Exec(tag.Name, tag.Description, tag.Color); err != nil {
					return fmt.Errorf("failed to insert tag %q: %w", tag.Name, err)
				}
			}

			if _, err := tx.Exec(`
				INSERT OR IGNORE INTO uploaded_files (filename, content_fingerprint, transaction_count)
				VALUES (?, ?, 0)`,
				"Manual entries", model.ManualEntryFingerprint,
			); err != nil {
				return fmt.Errorf("failed to insert manual entry file: %w", err)
			}

			slog.Info("Seeded default tags", "count", len(DefaultTags))
			return nil
		},
	},
	{
		Version:     3,
		Description: "Keep unmapped source columns",
		Up: func(tx *sql.Tx) error {
			// JSON object of header -> value, empty when the file had none.
			if _, err := tx.Exec(`ALTER TABLE transactions ADD COLUMN extra TEXT NOT NULL DEFAULT ''`); err != nil {
				return fmt.Errorf("failed to add extra column: %w", err)
			}
			return nil
		},
	},
}

// Migrate applies all pending database migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	// Get current version
	var currentVersion int
	err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	// Apply migrations
	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("failed to begin transaction: %w", txErr)
		}

		if upErr := migration.Up(tx); upErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, upErr)
		}

		// Update version
		if _, execErr := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema version: %w", execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, commitErr)
		}

		slog.Info("Applied migration",
			"version", migration.Version,
			"description", migration.Description)
	}

	// Verify we're at the expected schema version
	var finalVersion int
	err = s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&finalVersion)
	if err != nil {
		return fmt.Errorf("failed to verify final schema version: %w", err)
	}

	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, finalVersion)
	}

	return nil
}
