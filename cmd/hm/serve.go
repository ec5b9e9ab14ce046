package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/Veraticus/house-money/internal/api"
	"github.com/Veraticus/house-money/internal/common"
	"github.com/Veraticus/house-money/internal/importer"
	"github.com/Veraticus/house-money/internal/metrics"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON API for the browser UI",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := appConfig

			defaults, err := importOptions(cfg)
			if err != nil {
				return err
			}

			rec := metrics.New()
			store, cleanup, err := initStorage(cmd.Context(), cfg, rec)
			if err != nil {
				return err
			}
			defer cleanup()

			orch := importer.NewOrchestrator(store, importer.WithMetrics(rec))
			server := api.New(store, orch,
				api.WithMetrics(rec),
				api.WithAllowedOrigins(cfg.Server.AllowedOrigins),
				api.WithImportRateLimit(cfg.Server.ImportRateLimit),
				api.WithImportDefaults(defaults),
			)

			httpServer := &http.Server{
				Addr:              cfg.Server.Addr,
				Handler:           server.Handler(),
				ReadHeaderTimeout: 10 * time.Second,
				ReadTimeout:       2 * time.Minute,
				WriteTimeout:      2 * time.Minute,
				IdleTimeout:       2 * time.Minute,
			}

			g, ctx := errgroup.WithContext(cmd.Context())
			g.Go(func() error {
				slog.Info("serving API", "addr", cfg.Server.Addr, "database", store.Path())
				if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("server failed: %w", err)
				}
				return nil
			})
			g.Go(func() error {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
				defer cancel()

				slog.Info("shutting down API server")
				if err := httpServer.Shutdown(shutdownCtx); err != nil {
					common.LogError(err, "graceful shutdown failed", common.Fields{"addr": cfg.Server.Addr})
					return err
				}
				return nil
			})

			return g.Wait()
		},
	}

	cmd.Flags().String("addr", "127.0.0.1:8050", "Address to listen on")
	_ = viper.BindPFlag("server.addr", cmd.Flags().Lookup("addr"))

	return cmd
}
