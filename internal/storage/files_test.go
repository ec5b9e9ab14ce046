package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/house-money/internal/common"
	"github.com/Veraticus/house-money/internal/model"
)

func TestRegisterFile(t *testing.T) {
	ctx := context.Background()
	store := createTestStorage(t)

	file, err := store.RegisterFile(ctx, "jan.csv", "abc123")
	require.NoError(t, err)
	assert.Positive(t, file.ID)
	assert.Equal(t, 0, file.TransactionCount)

	t.Run("duplicate content is rejected", func(t *testing.T) {
		_, err := store.RegisterFile(ctx, "renamed.csv", "abc123")
		require.ErrorIs(t, err, common.ErrDuplicateFile)

		files, err := store.ListUploadedFiles(ctx)
		require.NoError(t, err)
		require.Len(t, files, 1)
		assert.Equal(t, "jan.csv", files[0].Filename, "no state is mutated")
	})

	t.Run("empty fingerprint", func(t *testing.T) {
		_, err := store.RegisterFile(ctx, "x.csv", "")
		require.ErrorIs(t, err, ErrEmptyString)
	})
}

func TestForgetFile(t *testing.T) {
	ctx := context.Background()
	store := createTestStorage(t)

	fingerprint := importFile(t, store, "jan.csv", row("2024-01-05", "Coffee Shop", "4.50", ""))
	require.NoError(t, store.ForgetFile(ctx, fingerprint))

	txns, err := store.ListTransactions(ctx, defaultQuery())
	require.NoError(t, err)
	assert.Empty(t, txns, "rows of a forgotten file go with it")

	_, err = store.RegisterFile(ctx, "jan.csv", fingerprint)
	require.NoError(t, err, "content can be uploaded again")

	require.ErrorIs(t, store.ForgetFile(ctx, "unknown"), common.ErrNotFound)
	require.ErrorIs(t, store.ForgetFile(ctx, model.ManualEntryFingerprint), common.ErrMalformedInput)
}

func TestListUploadedFiles(t *testing.T) {
	ctx := context.Background()
	store, _ := createCachedStorage(t)

	files, err := store.ListUploadedFiles(ctx)
	require.NoError(t, err)
	assert.Empty(t, files, "manual entry file is hidden")

	importFile(t, store, "first.csv", row("2024-01-05", "A", "1", ""))
	importFile(t, store, "second.csv", row("2024-01-06", "B", "2", ""), row("2024-01-07", "C", "3", ""))

	files, err = store.ListUploadedFiles(ctx)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "second.csv", files[0].Filename, "newest first")
	assert.Equal(t, 2, files[0].TransactionCount)
	assert.Equal(t, "first.csv", files[1].Filename)
	assert.Equal(t, 1, files[1].TransactionCount)
}
