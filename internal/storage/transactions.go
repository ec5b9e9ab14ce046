package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/Veraticus/house-money/internal/cache"
	"github.com/Veraticus/house-money/internal/common"
	"github.com/Veraticus/house-money/internal/model"
	"github.com/Veraticus/house-money/internal/service"
)

// tagSeparator joins tag names inside GROUP_CONCAT; it cannot occur in a name
// typed by a user.
const tagSeparator = "\x1f"

const transactionSelect = `
	SELECT t.id, t.date, t.description, t.amount, t.notes, t.file_fingerprint, t.created_at, t.extra,
	       COALESCE(f.filename, ''),
	       COALESCE(GROUP_CONCAT(tg.name, char(31)), '')
	FROM transactions t
	LEFT JOIN uploaded_files f ON f.content_fingerprint = t.file_fingerprint
	LEFT JOIN transaction_tags tt ON tt.transaction_id = t.id
	LEFT JOIN tags tg ON tg.id = tt.tag_id`

var sortExpressions = map[service.SortColumn]string{
	service.ColumnDate:        "t.date",
	service.ColumnDescription: "t.description",
	service.ColumnAmount:      "t.amount",
}

var searchExpressions = map[service.SortColumn]string{
	service.ColumnDate:        "t.date",
	service.ColumnDescription: "t.description",
	service.ColumnAmount:      "CAST(t.amount AS TEXT)",
}

// SaveFileTransactions writes the parsed rows of a registered file in one
// transaction: it back-fills the file's row count, inserts the rows, and links
// every tag name that matches an existing tag. Unknown tag names are ignored.
func (s *SQLiteStorage) SaveFileTransactions(ctx context.Context, fingerprint string, rows []model.ImportRow) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(fingerprint, "fingerprint"); err != nil {
		return err
	}

	var linked, unknown int
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		linked, unknown = 0, 0

		result, err := tx.ExecContext(ctx,
			`UPDATE uploaded_files SET transaction_count = ? WHERE content_fingerprint = ?`,
			len(rows), fingerprint,
		)
		if err != nil {
			return fmt.Errorf("failed to update file count: %w", err)
		}
		if err := requireAffected(result); err != nil {
			return fmt.Errorf("file %s is not registered: %w", fingerprint, err)
		}

		tagIDs, err := tagIDsByName(ctx, tx)
		if err != nil {
			return err
		}

		insert, err := tx.PrepareContext(ctx, `
			INSERT INTO transactions (date, description, amount, notes, file_fingerprint, created_at, extra)
			VALUES (?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer func() { _ = insert.Close() }()

		link, err := tx.PrepareContext(ctx, `
			INSERT OR IGNORE INTO transaction_tags (transaction_id, tag_id, created_at)
			VALUES (?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer func() { _ = link.Close() }()

		now := time.Now().UTC()
		for i := range rows {
			row := &rows[i]
			extra, err := encodeExtra(row.Extra)
			if err != nil {
				return fmt.Errorf("failed to encode row %d: %w", i+1, err)
			}
			res, err := insert.ExecContext(ctx, row.Date.UTC(), row.Description, row.Amount, row.Notes, fingerprint, now, extra)
			if err != nil {
				return fmt.Errorf("failed to insert row %d: %w", i+1, err)
			}
			id, err := res.LastInsertId()
			if err != nil {
				return fmt.Errorf("failed to get transaction ID: %w", err)
			}

			for _, name := range row.TagNames() {
				tagID, ok := tagIDs[name]
				if !ok {
					unknown++
					continue
				}
				if _, err := link.ExecContext(ctx, id, tagID, now); err != nil {
					return fmt.Errorf("failed to link tag %q: %w", name, err)
				}
				linked++
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.invalidate(cacheKeyTransactions, cacheKeyUploadedFiles)
	slog.Info("saved transactions",
		"fingerprint", fingerprint,
		"count", len(rows),
		"tag_links", linked,
		"unknown_tags", unknown)
	return nil
}

// ListTransactions returns transactions matching q. Results are cached per
// distinct query until a write touches the transaction namespace.
func (s *SQLiteStorage) ListTransactions(ctx context.Context, q service.TransactionQuery) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if q.StartDate != nil && q.EndDate != nil && q.EndDate.Before(*q.StartDate) {
		return nil, fmt.Errorf("%w: %s > %s", ErrInvalidDateRange,
			q.StartDate.Format(time.DateOnly), q.EndDate.Format(time.DateOnly))
	}

	txns, err := cache.Load(s.cache, transactionsCacheKey(q), s.cacheTTL, func() ([]model.Transaction, error) {
		query, args := buildTransactionQuery(q)
		var txns []model.Transaction
		err := s.withRead(ctx, func(ctx context.Context) error {
			var err error
			txns, err = s.queryTransactions(ctx, query, args...)
			return err
		})
		return txns, err
	})
	if err != nil {
		return nil, err
	}

	// Tags and Extra are shared with the cached entry unless copied too.
	out := slices.Clone(txns)
	for i := range out {
		out[i].Tags = slices.Clone(out[i].Tags)
		out[i].Extra = maps.Clone(out[i].Extra)
	}
	return out, nil
}

// GetTransaction returns one transaction by ID.
func (s *SQLiteStorage) GetTransaction(ctx context.Context, id int64) (*model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateID(id, "id"); err != nil {
		return nil, err
	}

	txns, err := s.queryTransactions(ctx, transactionSelect+` WHERE t.id = ? GROUP BY t.id`, id)
	if err != nil {
		return nil, err
	}
	if len(txns) == 0 {
		return nil, common.ErrNotFound
	}
	return &txns[0], nil
}

// UpdateTransactionTags replaces the tag set of a transaction.
func (s *SQLiteStorage) UpdateTransactionTags(ctx context.Context, transactionID int64, tagIDs []int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateID(transactionID, "transactionID"); err != nil {
		return err
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := transactionExists(ctx, tx, transactionID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM transaction_tags WHERE transaction_id = ?`, transactionID); err != nil {
			return fmt.Errorf("failed to clear tags: %w", err)
		}
		return linkTags(ctx, tx, transactionID, tagIDs)
	})
	if err != nil {
		return err
	}

	s.invalidate(cacheKeyTransactions)
	slog.Debug("updated transaction tags", "id", transactionID, "tags", len(tagIDs))
	return nil
}

// UpdateTransactionNote sets the free-text note of a transaction.
func (s *SQLiteStorage) UpdateTransactionNote(ctx context.Context, transactionID int64, note string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateID(transactionID, "transactionID"); err != nil {
		return err
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `UPDATE transactions SET notes = ? WHERE id = ?`, note, transactionID)
		if err != nil {
			return fmt.Errorf("failed to update note: %w", err)
		}
		return requireAffected(result)
	})
	if err != nil {
		return err
	}

	s.invalidate(cacheKeyTransactions)
	return nil
}

// CreateManualTransaction inserts a hand-entered transaction under the
// manual entry file and returns its ID.
func (s *SQLiteStorage) CreateManualTransaction(ctx context.Context, txn model.ManualTransaction) (int64, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	if err := validateManual(txn); err != nil {
		return 0, err
	}

	var id int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `
			INSERT INTO transactions (date, description, amount, notes, file_fingerprint, created_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			txn.Date.UTC(), txn.Description, txn.Amount, txn.Notes, model.ManualEntryFingerprint, time.Now().UTC(),
		)
		if err != nil {
			return fmt.Errorf("failed to insert manual transaction: %w", err)
		}
		if id, err = result.LastInsertId(); err != nil {
			return fmt.Errorf("failed to get transaction ID: %w", err)
		}
		return linkTags(ctx, tx, id, txn.TagIDs)
	})
	if err != nil {
		return 0, err
	}

	s.invalidate(cacheKeyTransactions)
	slog.Info("created manual transaction", "id", id, "amount", txn.Amount.String())
	return id, nil
}

// DeleteTransactions deletes the given transactions and their tag links and
// returns how many existed. Deleting only unknown IDs is common.ErrNotFound.
func (s *SQLiteStorage) DeleteTransactions(ctx context.Context, ids []int64) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	if err := validateIDs(ids, "ids"); err != nil {
		return 0, err
	}

	var deleted int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		deleted = 0
		stmt, err := tx.PrepareContext(ctx, `DELETE FROM transactions WHERE id = ?`)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer func() { _ = stmt.Close() }()

		for _, id := range ids {
			result, err := stmt.ExecContext(ctx, id)
			if err != nil {
				return fmt.Errorf("failed to delete transaction %d: %w", id, err)
			}
			n, err := result.RowsAffected()
			if err != nil {
				return err
			}
			deleted += n
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if deleted == 0 {
		return 0, common.ErrNotFound
	}

	s.invalidate(cacheKeyTransactions)
	slog.Info("deleted transactions", "requested", len(ids), "deleted", deleted)
	return int(deleted), nil
}

func (s *SQLiteStorage) queryTransactions(ctx context.Context, query string, args ...any) ([]model.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var txns []model.Transaction
	for rows.Next() {
		var (
			txn   model.Transaction
			extra string
			tags  string
		)
		if err := rows.Scan(
			&txn.ID, &txn.Date, &txn.Description, &txn.Amount, &txn.Notes,
			&txn.FileFingerprint, &txn.CreatedAt, &extra, &txn.SourceFile, &tags,
		); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		if extra != "" {
			if err := json.Unmarshal([]byte(extra), &txn.Extra); err != nil {
				return nil, fmt.Errorf("failed to decode columns of transaction %d: %w", txn.ID, err)
			}
		}
		if tags != "" {
			txn.Tags = strings.Split(tags, tagSeparator)
			slices.Sort(txn.Tags)
		}
		if txn.IsManual() {
			txn.SourceFile = ""
		}
		txns = append(txns, txn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}

	return txns, nil
}

// buildTransactionQuery renders q as SQL. Column names only ever come from
// the fixed expression maps; user text is always a bound parameter.
func buildTransactionQuery(q service.TransactionQuery) (string, []any) {
	var (
		where []string
		args  []any
	)

	if q.SearchText != "" {
		expr, ok := searchExpressions[q.SearchOn]
		if !ok {
			expr = searchExpressions[service.ColumnDescription]
		}
		where = append(where, expr+` LIKE ? ESCAPE '\'`)
		args = append(args, "%"+escapeLike(q.SearchText)+"%")
	}
	if q.StartDate != nil {
		where = append(where, "t.date >= ?")
		args = append(args, q.StartDate.UTC())
	}
	if q.EndDate != nil {
		where = append(where, "t.date < ?")
		args = append(args, q.EndDate.UTC())
	}
	if q.Tag != "" {
		where = append(where, `EXISTS (
			SELECT 1 FROM transaction_tags ft
			JOIN tags fg ON fg.id = ft.tag_id
			WHERE ft.transaction_id = t.id AND fg.name = ?)`)
		args = append(args, q.Tag)
	}

	var b strings.Builder
	b.WriteString(transactionSelect)
	if len(where) > 0 {
		b.WriteString("\n\tWHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}

	sortExpr, ok := sortExpressions[q.SortBy]
	if !ok {
		sortExpr = sortExpressions[service.ColumnDate]
	}
	direction := "DESC"
	if q.Ascending {
		direction = "ASC"
	}
	fmt.Fprintf(&b, "\n\tGROUP BY t.id\n\tORDER BY %s %s, t.id %s", sortExpr, direction, direction)

	return b.String(), args
}

func encodeExtra(extra map[string]string) (string, error) {
	if len(extra) == 0 {
		return "", nil
	}
	b, err := json.Marshal(extra)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// transactionsCacheKey returns "transactions" for the default listing and a
// key in its namespace for every other query. User supplied values are query
// escaped so they cannot forge another query's key.
func transactionsCacheKey(q service.TransactionQuery) string {
	if q.IsDefault() {
		return cacheKeyTransactions
	}

	sortBy := q.SortBy
	if _, ok := sortExpressions[sortBy]; !ok {
		sortBy = service.ColumnDate
	}
	order := "desc"
	if q.Ascending {
		order = "asc"
	}

	parts := []string{cacheKeyTransactions, "sort=" + string(sortBy), "order=" + order}
	if q.SearchText != "" {
		parts = append(parts, "on="+url.QueryEscape(string(q.SearchOn)), "q="+url.QueryEscape(q.SearchText))
	}
	if q.StartDate != nil {
		parts = append(parts, "start="+q.StartDate.UTC().Format(time.RFC3339))
	}
	if q.EndDate != nil {
		parts = append(parts, "end="+q.EndDate.UTC().Format(time.RFC3339))
	}
	if q.Tag != "" {
		parts = append(parts, "tag="+url.QueryEscape(q.Tag))
	}
	return strings.Join(parts, cache.NamespaceSeparator)
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func transactionExists(ctx context.Context, tx *sql.Tx, id int64) error {
	var one int
	err := tx.QueryRowContext(ctx, `SELECT 1 FROM transactions WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("transaction %d: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to look up transaction %d: %w", id, err)
	}
	return nil
}

func linkTags(ctx context.Context, tx *sql.Tx, transactionID int64, tagIDs []int64) error {
	if len(tagIDs) == 0 {
		return nil
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO transaction_tags (transaction_id, tag_id, created_at)
		VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	now := time.Now().UTC()
	for _, tagID := range tagIDs {
		if _, err := stmt.ExecContext(ctx, transactionID, tagID, now); err != nil {
			return fmt.Errorf("failed to link tag %d: %w", tagID, err)
		}
	}
	return nil
}
