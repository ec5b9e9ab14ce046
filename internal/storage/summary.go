package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Veraticus/house-money/internal/model"
)

// SpendingByTag totals amounts per tag within the optional date range. A
// transaction with several tags counts toward each; untagged transactions are
// grouped under the empty name. Ordered by total, most negative first.
func (s *SQLiteStorage) SpendingByTag(ctx context.Context, start, end *time.Time) ([]model.TagSpending, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	where, args := dateRange(start, end)
	query := `
		SELECT COALESCE(tg.name, '') AS tag, SUM(t.amount), COUNT(*)
		FROM transactions t
		LEFT JOIN transaction_tags tt ON tt.transaction_id = t.id
		LEFT JOIN tags tg ON tg.id = tt.tag_id` + where + `
		GROUP BY tag
		ORDER BY SUM(t.amount) ASC, tag ASC`

	var out []model.TagSpending
	err := s.withRead(ctx, func(ctx context.Context) error {
		out = nil
		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("failed to query spending by tag: %w", err)
		}
		defer func() { _ = rows.Close() }()

		for rows.Next() {
			var ts model.TagSpending
			if err := rows.Scan(&ts.Tag, &ts.Total, &ts.Count); err != nil {
				return fmt.Errorf("failed to scan tag spending: %w", err)
			}
			ts.Total = ts.Total.Round(2)
			out = append(out, ts)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// MonthlyTotals splits each calendar month into income and expenses.
func (s *SQLiteStorage) MonthlyTotals(ctx context.Context, start, end *time.Time) ([]model.MonthlyTotal, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	where, args := dateRange(start, end)
	query := `
		SELECT substr(t.date, 1, 7) AS month,
		       SUM(CASE WHEN t.amount > 0 THEN t.amount ELSE 0 END),
		       SUM(CASE WHEN t.amount < 0 THEN t.amount ELSE 0 END),
		       COUNT(*)
		FROM transactions t` + where + `
		GROUP BY month
		ORDER BY month ASC`

	var out []model.MonthlyTotal
	err := s.withRead(ctx, func(ctx context.Context) error {
		out = nil
		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("failed to query monthly totals: %w", err)
		}
		defer func() { _ = rows.Close() }()

		for rows.Next() {
			var mt model.MonthlyTotal
			if err := rows.Scan(&mt.Month, &mt.Income, &mt.Expenses, &mt.Count); err != nil {
				return fmt.Errorf("failed to scan monthly total: %w", err)
			}
			mt.Income = mt.Income.Round(2)
			mt.Expenses = mt.Expenses.Round(2)
			out = append(out, mt)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// dateRange renders an optional [start, end) filter on t.date.
func dateRange(start, end *time.Time) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if start != nil {
		conds = append(conds, "t.date >= ?")
		args = append(args, start.UTC())
	}
	if end != nil {
		conds = append(conds, "t.date < ?")
		args = append(args, end.UTC())
	}
	if len(conds) == 0 {
		return "", nil
	}
	return "\n\t\tWHERE " + strings.Join(conds, " AND "), args
}
