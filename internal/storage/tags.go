package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/Veraticus/house-money/internal/cache"
	"github.com/Veraticus/house-money/internal/common"
	"github.com/Veraticus/house-money/internal/model"
)

// ListTags returns all tags ordered by name.
func (s *SQLiteStorage) ListTags(ctx context.Context) ([]model.Tag, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	tags, err := cache.Load(s.cache, cacheKeyTags, s.cacheTTL, func() ([]model.Tag, error) {
		var tags []model.Tag
		err := s.withRead(ctx, func(ctx context.Context) error {
			var err error
			tags, err = s.queryTags(ctx)
			return err
		})
		return tags, err
	})
	if err != nil {
		return nil, err
	}

	slog.Debug("retrieved tags", "count", len(tags))
	return slices.Clone(tags), nil
}

func (s *SQLiteStorage) queryTags(ctx context.Context) ([]model.Tag, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, description, color, created_at
		FROM tags
		ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query tags: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var tags []model.Tag
	for rows.Next() {
		var tag model.Tag
		if err := rows.Scan(&tag.ID, &tag.Name, &tag.Description, &tag.Color, &tag.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan tag: %w", err)
		}
		tags = append(tags, tag)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tags: %w", err)
	}

	return tags, nil
}

// GetTagByName returns the tag with exactly the given name.
func (s *SQLiteStorage) GetTagByName(ctx context.Context, name string) (*model.Tag, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(name, "name"); err != nil {
		return nil, err
	}

	var tag model.Tag
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, description, color, created_at
		FROM tags
		WHERE name = ?`, name,
	).Scan(&tag.ID, &tag.Name, &tag.Description, &tag.Color, &tag.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query tag: %w", err)
	}

	return &tag, nil
}

// CreateTag creates a new tag. A name already in use fails with
// common.ErrDuplicateEntry.
func (s *SQLiteStorage) CreateTag(ctx context.Context, name, description, color string) (*model.Tag, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if err := validateString(name, "name"); err != nil {
		return nil, err
	}

	tag := &model.Tag{
		Name:        name,
		Description: description,
		Color:       color,
		CreatedAt:   time.Now().UTC(),
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `
			INSERT INTO tags (name, description, color, created_at)
			VALUES (?, ?, ?, ?)`,
			tag.Name, tag.Description, tag.Color, tag.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to create tag %q: %w", name, err)
		}
		tag.ID, err = result.LastInsertId()
		return err
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(cacheKeyTags)
	slog.Info("created tag", "name", name, "id", tag.ID)
	return tag, nil
}

// UpdateTag renames and re-describes a tag. Transaction listings embed tag
// names, so their cache namespace is dropped too.
func (s *SQLiteStorage) UpdateTag(ctx context.Context, id int64, name, description, color string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateID(id, "id"); err != nil {
		return err
	}
	name = strings.TrimSpace(name)
	if err := validateString(name, "name"); err != nil {
		return err
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `
			UPDATE tags SET name = ?, description = ?, color = ?
			WHERE id = ?`,
			name, description, color, id,
		)
		if err != nil {
			return fmt.Errorf("failed to update tag %d: %w", id, err)
		}
		return requireAffected(result)
	})
	if err != nil {
		return err
	}

	s.invalidate(cacheKeyTags, cacheKeyTransactions)
	slog.Info("updated tag", "id", id, "name", name)
	return nil
}

// DeleteTag removes a tag and, by cascade, its links to transactions.
func (s *SQLiteStorage) DeleteTag(ctx context.Context, id int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateID(id, "id"); err != nil {
		return err
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `DELETE FROM tags WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("failed to delete tag %d: %w", id, err)
		}
		return requireAffected(result)
	})
	if err != nil {
		return err
	}

	s.invalidate(cacheKeyTags, cacheKeyTransactions)
	slog.Info("deleted tag", "id", id)
	return nil
}

// tagIDsByName loads the live name to ID mapping inside tx.
func tagIDsByName(ctx context.Context, tx *sql.Tx) (map[string]int64, error) {
	rows, err := tx.QueryContext(ctx, `SELECT id, name FROM tags`)
	if err != nil {
		return nil, fmt.Errorf("failed to query tag names: %w", err)
	}
	defer func() { _ = rows.Close() }()

	ids := make(map[string]int64)
	for rows.Next() {
		var (
			id   int64
			name string
		)
		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("failed to scan tag name: %w", err)
		}
		ids[name] = id
	}
	return ids, rows.Err()
}

// requireAffected turns a zero-row update or delete into common.ErrNotFound.
func requireAffected(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}
