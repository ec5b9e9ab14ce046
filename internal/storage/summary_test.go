package storage

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpendingByTag(t *testing.T) {
	ctx := context.Background()
	store := createTestStorage(t)

	importFile(t, store, "jan.csv",
		row("2024-01-05", "Market", "-40.10", "Groceries"),
		row("2024-01-09", "Market", "-9.90", "Groceries"),
		row("2024-01-12", "Bistro", "-25", "Dining, Entertainment"),
		row("2024-01-20", "Transfer", "100", ""),
		row("2024-02-02", "Market", "-5", "Groceries"),
	)

	got, err := store.SpendingByTag(ctx, nil, nil)
	require.NoError(t, err)

	totals := make(map[string]string)
	counts := make(map[string]int)
	for _, s := range got {
		totals[s.Tag] = s.Total.StringFixed(2)
		counts[s.Tag] = s.Count
	}
	assert.Equal(t, "-55.00", totals["Groceries"])
	assert.Equal(t, 3, counts["Groceries"])
	assert.Equal(t, "-25.00", totals["Dining"])
	assert.Equal(t, "-25.00", totals["Entertainment"])
	assert.Equal(t, "100.00", totals[""], "untagged rows are grouped under the empty tag")
	assert.Equal(t, "Groceries", got[0].Tag, "most negative first")

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	january, err := store.SpendingByTag(ctx, &start, &end)
	require.NoError(t, err)
	for _, s := range january {
		if s.Tag == "Groceries" {
			assert.True(t, decimal.RequireFromString("-50").Equal(s.Total))
			assert.Equal(t, 2, s.Count)
		}
	}
}

func TestMonthlyTotals(t *testing.T) {
	ctx := context.Background()
	store := createTestStorage(t)

	importFile(t, store, "q1.csv",
		row("2024-01-05", "Salary", "3000", ""),
		row("2024-01-06", "Rent", "-1500", ""),
		row("2024-01-07", "Coffee", "-4.50", ""),
		row("2024-02-05", "Salary", "3000", ""),
		row("2024-03-01", "Refund", "20.25", ""),
	)

	got, err := store.MonthlyTotals(ctx, nil, nil)
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, "2024-01", got[0].Month)
	assert.Equal(t, "3000.00", got[0].Income.StringFixed(2))
	assert.Equal(t, "-1504.50", got[0].Expenses.StringFixed(2))
	assert.Equal(t, "1495.50", got[0].Net().StringFixed(2))
	assert.Equal(t, 3, got[0].Count)

	assert.Equal(t, "2024-02", got[1].Month)
	assert.Equal(t, "2024-03", got[2].Month)
	assert.True(t, got[2].Expenses.IsZero())

	start := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	ranged, err := store.MonthlyTotals(ctx, &start, nil)
	require.NoError(t, err)
	assert.Len(t, ranged, 2)
}
