package sample

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	start = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end   = time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
)

func TestRows(t *testing.T) {
	rows := NewGenerator(42, start, end).Rows(200)
	require.Len(t, rows, 200)

	known := make(map[string]category)
	for _, c := range categories {
		known[c.name] = c
	}

	prev := ""
	for _, r := range rows {
		c, ok := known[r.Tags]
		require.True(t, ok, "unknown tag %q", r.Tags)
		assert.Contains(t, c.merchants, r.Description)

		amount, err := decimal.NewFromString(r.Amount)
		require.NoError(t, err)
		abs := amount.Abs().InexactFloat64()
		assert.GreaterOrEqual(t, abs, c.min)
		assert.LessOrEqual(t, abs, c.max)
		assert.Equal(t, c.income, amount.IsPositive(), "%s %s", r.Tags, r.Amount)

		date, err := time.Parse(time.DateOnly, r.Date)
		require.NoError(t, err)
		assert.False(t, date.Before(start) || date.After(end), r.Date)
		assert.GreaterOrEqual(t, r.Date, prev, "rows are ordered by date")
		prev = r.Date
	}
}

func TestRows_SeedIsReproducible(t *testing.T) {
	a := NewGenerator(7, start, end).Rows(50)
	b := NewGenerator(7, start, end).Rows(50)
	assert.Equal(t, a, b)
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewGenerator(1, start, end).WriteCSV(&buf, 3))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "Date,Description,Amount,Tags", lines[0])

	assert.Error(t, NewGenerator(1, start, end).WriteCSV(&buf, 0))
}
