package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/Veraticus/house-money/internal/cli"
	"github.com/Veraticus/house-money/internal/config"
	"github.com/Veraticus/house-money/internal/storage"
)

func dbCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Manage the transaction database",
	}

	cmd.AddCommand(dbCreateCmd())
	cmd.AddCommand(dbResetCmd())
	cmd.AddCommand(dbDeleteCmd())
	cmd.AddCommand(dbMigrateCmd())
	cmd.AddCommand(dbBackupCmd())

	return cmd
}

func dbCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create",
		Short: "Create the database and its default tags",
		RunE: func(cmd *cobra.Command, _ []string) error {
			existed := config.DatabaseExists(appConfig.Database.Path)

			store, cleanup, err := initStorage(cmd.Context(), appConfig, nil)
			if err != nil {
				return err
			}
			defer cleanup()

			out := cmd.OutOrStdout()
			if existed {
				printf(out, "%s\n", cli.FormatInfo("Database already exists at "+store.Path()))
				return nil
			}
			printf(out, "%s\n", cli.FormatSuccess("Created database at "+store.Path()))
			return nil
		},
	}
}

func dbResetCmd() *cobra.Command {
	var (
		force    bool
		noBackup bool
	)

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete every transaction, file and tag",
		Long: `Reset drops all tables and recreates an empty database with the default tags.

A backup is written to the backups/ directory next to the database first,
unless --no-backup is given.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()

			ok, err := confirm(cmd, force, "This deletes every transaction, uploaded file and tag. Continue?")
			if err != nil {
				return err
			}
			if !ok {
				printf(out, "%s\n", cli.FormatInfo("Reset canceled."))
				return nil
			}

			store, cleanup, err := initStorage(cmd.Context(), appConfig, nil)
			if err != nil {
				return err
			}
			defer cleanup()

			if !noBackup {
				path, err := store.AutoBackup(cmd.Context(), "reset")
				if err != nil {
					return fmt.Errorf("failed to back up before reset: %w", err)
				}
				printf(out, "%s\n", cli.FormatInfo("Backup written to "+path))
			}

			if err := store.Reset(cmd.Context()); err != nil {
				return fmt.Errorf("failed to reset database: %w", err)
			}

			printf(out, "%s\n", cli.FormatSuccess("Database reset"))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Skip confirmation prompt")
	cmd.Flags().BoolVar(&noBackup, "no-backup", false, "Do not back up the database first")

	return cmd
}

func dbDeleteCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete the database file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			path := appConfig.Database.Path

			if !config.DatabaseExists(path) {
				printf(out, "%s\n", cli.FormatInfo("No database at "+path))
				return nil
			}

			ok, err := confirm(cmd, force, "Delete "+path+"?")
			if err != nil {
				return err
			}
			if !ok {
				printf(out, "%s\n", cli.FormatInfo("Delete canceled."))
				return nil
			}

			for _, name := range []string{path, path + "-wal", path + "-shm"} {
				if err := os.Remove(name); err != nil && !errors.Is(err, fs.ErrNotExist) {
					return fmt.Errorf("failed to remove %s: %w", name, err)
				}
			}

			printf(out, "%s\n", cli.FormatSuccess("Deleted "+path))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Skip confirmation prompt")

	return cmd
}

func dbMigrateCmd() *cobra.Command {
	var status bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long: `Initialize or update the database schema to the latest version.

This command ensures your local database has all the required
tables and indexes for the application to function properly.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()

			if status {
				store, cleanup, err := openStorage(appConfig, nil)
				if err != nil {
					return err
				}
				defer cleanup()

				current, err := store.SchemaVersion(cmd.Context())
				if err != nil {
					return fmt.Errorf("failed to read schema version: %w", err)
				}
				printf(out, "%s\n", cli.FormatTitle("Database Migration Status"))
				printf(out, "Database:        %s\n", store.Path())
				printf(out, "Current version: %d\n", current)
				printf(out, "Latest version:  %d\n", storage.ExpectedSchemaVersion)
				if current < storage.ExpectedSchemaVersion {
					printf(out, "%s\n", cli.FormatWarning("Migrations pending, run 'hm db migrate'"))
				}
				return nil
			}

			store, cleanup, err := initStorage(cmd.Context(), appConfig, nil)
			if err != nil {
				return err
			}
			defer cleanup()

			printf(out, "%s\n", cli.FormatSuccess(fmt.Sprintf("%s is at schema version %d", store.Path(), storage.ExpectedSchemaVersion)))
			return nil
		},
	}

	cmd.Flags().BoolVar(&status, "status", false, "Show current migration status without applying changes")

	return cmd
}

func dbBackupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backup [PATH]",
		Short: "Write a consistent copy of the database",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, cleanup, err := initStorage(cmd.Context(), appConfig, nil)
			if err != nil {
				return err
			}
			defer cleanup()

			var dest string
			if len(args) == 1 {
				dest = config.ExpandPath(args[0])
			} else {
				name := fmt.Sprintf("hm-%s.db", time.Now().Format("2006-01-02-150405"))
				dest = filepath.Join(filepath.Dir(store.Path()), "backups", name)
			}

			if err := store.Backup(cmd.Context(), dest); err != nil {
				return err
			}

			printf(cmd.OutOrStdout(), "%s\n", cli.FormatSuccess("Backup written to "+dest))
			return nil
		},
	}
}
