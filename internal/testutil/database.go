// Package testutil provides shared fixtures for tests that need a real,
// migrated database.
package testutil

import (
	"context"
	"encoding/base64"
	"testing"
	"time"

	"github.com/Veraticus/house-money/internal/cache"
	"github.com/Veraticus/house-money/internal/storage"
)

// TestDB represents a test database with associated test utilities.
type TestDB struct {
	Storage *storage.SQLiteStorage
	Cache   *cache.Cache // nil unless TestDBOptions.Cached
	t       *testing.T
}

// TestDBOptions provides configuration options for test database setup.
type TestDBOptions struct {
	CustomSetup func(context.Context, *storage.SQLiteStorage) error
	Tags        []string // Extra tags created after the defaults
	Cached      bool
}

// SetupTestDB creates a migrated in-memory database holding only the
// default tags. It is closed when the test ends.
//
// Example:
//
//	db := testutil.SetupTestDB(t)
//	id := db.MustTagID("Groceries")
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()
	return SetupTestDBWithOptions(t, TestDBOptions{})
}

// SetupTestDBWithOptions creates a test database with custom options.
func SetupTestDBWithOptions(t *testing.T, opts TestDBOptions) *TestDB {
	t.Helper()

	var (
		c        *cache.Cache
		storeOps []storage.Option
	)
	if opts.Cached {
		c = cache.New(time.Minute, cache.WithCleanupInterval(0))
		storeOps = append(storeOps, storage.WithCache(c, time.Minute))
	}

	store, err := storage.NewSQLiteStorage(storage.InMemory, storeOps...)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	ctx := context.Background()

	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	for _, name := range opts.Tags {
		if _, err := store.CreateTag(ctx, name, "", ""); err != nil {
			t.Fatalf("failed to seed tag %q: %v", name, err)
		}
	}

	if opts.CustomSetup != nil {
		if err := opts.CustomSetup(ctx, store); err != nil {
			t.Fatalf("custom setup failed: %v", err)
		}
	}

	t.Cleanup(func() {
		_ = store.Close()
		if c != nil {
			c.Close()
		}
	})

	return &TestDB{
		Storage: store,
		Cache:   c,
		t:       t,
	}
}

// MustTagID returns the ID of the named tag or fails the test.
func (db *TestDB) MustTagID(name string) int64 {
	db.t.Helper()
	tag, err := db.Storage.GetTagByName(context.Background(), name)
	if err != nil {
		db.t.Fatalf("tag %q not found: %v", name, err)
	}
	return tag.ID
}

// DataURL encodes contents the way a browser upload widget does.
func DataURL(mime, contents string) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString([]byte(contents))
}
