package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/Veraticus/house-money/internal/cache"
	"github.com/Veraticus/house-money/internal/cli"
	"github.com/Veraticus/house-money/internal/config"
	"github.com/Veraticus/house-money/internal/importer"
	"github.com/Veraticus/house-money/internal/metrics"
	"github.com/Veraticus/house-money/internal/service"
	"github.com/Veraticus/house-money/internal/storage"
)

// openStorage opens the configured database without migrating it.
// Lookups on the read cache are reported to rec when it is not nil.
func openStorage(cfg *config.Config, rec *metrics.Recorder) (*storage.SQLiteStorage, func(), error) {
	opts := []storage.Option{
		storage.WithRetry(service.RetryOptions{
			MaxAttempts:  cfg.Database.BusyRetries + 1,
			InitialDelay: cfg.Database.BusyBackoff,
			MaxDelay:     2 * time.Second,
			Multiplier:   2,
		}),
		storage.WithConnectTimeout(cfg.Database.ConnectTimeout),
	}

	var c *cache.Cache
	if cfg.Cache.Enabled {
		var cacheOpts []cache.Option
		if rec != nil {
			cacheOpts = append(cacheOpts, cache.WithObserver(rec))
		}
		c = cache.New(cfg.Cache.TTL, cacheOpts...)
		opts = append(opts, storage.WithCache(c, cfg.Cache.TTL))
	}

	store, err := storage.NewSQLiteStorage(cfg.Database.Path, opts...)
	if err != nil {
		if c != nil {
			c.Close()
		}
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}

	cleanup := func() {
		if err := store.Close(); err != nil {
			slog.Warn("failed to close database", "error", err)
		}
		if c != nil {
			c.Close()
		}
	}
	return store, cleanup, nil
}

// initStorage opens the configured database and brings its schema up to date.
func initStorage(ctx context.Context, cfg *config.Config, rec *metrics.Recorder) (*storage.SQLiteStorage, func(), error) {
	store, cleanup, err := openStorage(cfg, rec)
	if err != nil {
		return nil, nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return store, cleanup, nil
}

// importOptions turns the import section of the configuration into batch options.
func importOptions(cfg *config.Config) (importer.Options, error) {
	format, err := importer.ParseFormat(cfg.Import.Format)
	if err != nil {
		return importer.Options{}, err
	}
	policy, err := importer.ParsePolicy(cfg.Import.MalformedRows)
	if err != nil {
		return importer.Options{}, err
	}
	return importer.Options{
		Format:   format,
		Policy:   policy,
		Encoding: cfg.Import.Encoding,
	}, nil
}

// parseDateFlag parses an optional date flag value.
func parseDateFlag(name, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := importer.ParseDate(value)
	if err != nil {
		return nil, fmt.Errorf("invalid --%s: %w", name, err)
	}
	return &t, nil
}

// printf writes to w, logging instead of failing when the terminal is gone.
func printf(w io.Writer, format string, args ...any) {
	if _, err := fmt.Fprintf(w, format, args...); err != nil {
		slog.Error("failed to write output", "error", err)
	}
}

// confirm asks question on the command's terminal unless force is set.
func confirm(cmd *cobra.Command, force bool, question string) (bool, error) {
	if force {
		return true, nil
	}
	reader := cli.NewNonBlockingReader(cmd.InOrStdin())
	return cli.Confirm(cmd.Context(), reader, cmd.OutOrStdout(), question)
}
