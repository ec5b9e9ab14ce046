package importer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/house-money/internal/common"
)

func TestReadCSV(t *testing.T) {
	t.Run("header and records", func(t *testing.T) {
		table, err := ReadCSV([]byte("Date, Description ,Amount\n2024-01-05,\"Coffee, Shop\",4.50\n\n2024-01-06,Rent,1500\n"), "")
		require.NoError(t, err)
		assert.Equal(t, []string{"Date", "Description", "Amount"}, table.Header)
		require.Len(t, table.Records, 2, "blank lines are skipped")
		assert.Equal(t, []string{"2024-01-05", "Coffee, Shop", "4.50"}, table.Records[0])
		assert.Equal(t, []int{2, 4}, table.Lines)
	})

	t.Run("lines count quoted newlines and whitespace rows", func(t *testing.T) {
		table, err := ReadCSV([]byte("Date,Description,Amount\n2024-01-05,\"Two\nLines\",1\n , ,\n2024-01-06,Rent,2\n"), "")
		require.NoError(t, err)
		require.Len(t, table.Records, 2)
		assert.Equal(t, "Two\nLines", table.Records[0][1])
		assert.Equal(t, []int{2, 5}, table.Lines)
		assert.Equal(t, 5, table.Line(1))
	})

	t.Run("byte order mark", func(t *testing.T) {
		table, err := ReadCSV([]byte("\xEF\xBB\xBFDate,Description,Amount\n2024-01-05,A,1\n"), "utf-8")
		require.NoError(t, err)
		assert.Equal(t, "Date", table.Header[0])
	})

	t.Run("ragged rows are fitted to the header", func(t *testing.T) {
		table, err := ReadCSV([]byte("Date,Description,Amount\n2024-01-05,A\n2024-01-06,B,2,extra\n"), "")
		require.NoError(t, err)
		assert.Equal(t, []string{"2024-01-05", "A", ""}, table.Records[0])
		assert.Equal(t, []string{"2024-01-06", "B", "2"}, table.Records[1])
	})

	t.Run("windows-1252", func(t *testing.T) {
		table, err := ReadCSV([]byte("Date,Description,Amount\n2024-01-05,Caf\xe9,4.50\n"), "windows-1252")
		require.NoError(t, err)
		assert.Equal(t, "Café", table.Records[0][1])
	})

	t.Run("latin1", func(t *testing.T) {
		table, err := ReadCSV([]byte("Date,Description,Amount\n2024-01-05,Se\xf1or,4.50\n"), "latin1")
		require.NoError(t, err)
		assert.Equal(t, "Señor", table.Records[0][1])
	})

	t.Run("unsupported encoding", func(t *testing.T) {
		_, err := ReadCSV([]byte("Date\n"), "ebcdic")
		require.ErrorIs(t, err, common.ErrInvalidConfig)
	})

	t.Run("empty file", func(t *testing.T) {
		_, err := ReadCSV(nil, "")
		require.ErrorIs(t, err, common.ErrMalformedInput)
	})

	t.Run("header only", func(t *testing.T) {
		table, err := ReadCSV([]byte("Date,Description,Amount\n"), "")
		require.NoError(t, err)
		assert.Empty(t, table.Records)
	})
}
