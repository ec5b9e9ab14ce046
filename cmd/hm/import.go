package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/house-money/internal/cli"
	"github.com/Veraticus/house-money/internal/common"
	"github.com/Veraticus/house-money/internal/importer"
)

// importExtensions are the file types picked up when a directory is imported.
var importExtensions = map[string]bool{
	".csv": true,
	".ofx": true,
	".qfx": true,
}

func importCmd() *cobra.Command {
	var (
		columns    importer.ColumnMapping
		noProgress bool
	)

	cmd := &cobra.Command{
		Use:   "import FILE...",
		Short: "Import bank CSV or OFX files",
		Long: `Import one or more bank exports into the local database.

Arguments may be files, glob patterns or directories; directories are
searched for .csv, .ofx and .qfx files. A file whose exact contents were
imported before is skipped. Files are processed in order and a failing
file never stops the rest of the batch.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, err := collectImportFiles(args)
			if err != nil {
				return err
			}

			opts, err := importOptions(appConfig)
			if err != nil {
				return err
			}
			opts.Columns = columns

			uploads := make([]importer.Upload, 0, len(paths))
			for _, path := range paths {
				data, err := os.ReadFile(path) // #nosec G304 - user supplied import paths
				if err != nil {
					return fmt.Errorf("failed to read %s: %w", path, err)
				}
				uploads = append(uploads, importer.Upload{Name: filepath.Base(path), Data: data})
			}

			store, cleanup, err := initStorage(cmd.Context(), appConfig, nil)
			if err != nil {
				return err
			}
			defer cleanup()

			out := cmd.OutOrStdout()
			ctx, stop := cli.NewInterruptHandler(out).HandleInterrupts(cmd.Context())
			defer stop()

			var orchOpts []importer.Option
			var progress *cli.Progress
			if noProgress {
				orchOpts = append(orchOpts, importer.WithProgress(func(_, _ int, outcome importer.FileOutcome) {
					printf(out, "%s\n", formatOutcome(outcome))
				}))
			} else {
				progress = cli.NewProgress(out, len(uploads), "Importing")
				orchOpts = append(orchOpts, importer.WithProgress(func(_, _ int, outcome importer.FileOutcome) {
					progress.Step(formatOutcome(outcome))
				}))
			}

			slog.Debug("importing files", "count", len(uploads), "format", opts.Format)

			result, err := importer.NewOrchestrator(store, orchOpts...).ImportBatch(ctx, uploads, opts)
			if progress != nil {
				progress.Finish()
			}
			if err != nil {
				return err
			}

			summary := fmt.Sprintf("Imported: %d\nSkipped:  %d\nFailed:   %d\nTotal transactions: %d",
				result.Count(importer.StatusImported),
				result.Count(importer.StatusSkipped),
				result.Count(importer.StatusFailed),
				len(result.Transactions))
			printf(out, "%s\n", cli.RenderBox("Import Summary", summary))

			if failed := result.Count(importer.StatusFailed); failed > 0 {
				return common.NewUserError(
					fmt.Sprintf("%d of %d files failed to import", failed, len(uploads)),
					fmt.Errorf("import batch %s had failures", result.ID))
			}
			return nil
		},
	}

	cmd.Flags().String("format", "standard", "Column layout of the CSV files (standard, bank, custom)")
	cmd.Flags().String("encoding", "utf-8", "Character encoding of the CSV files")
	cmd.Flags().String("malformed-rows", "drop", "What to do with unparseable rows (drop, reject)")
	cmd.Flags().StringVar(&columns.Date, "date-column", "", "Date column name for --format custom")
	cmd.Flags().StringVar(&columns.Description, "description-column", "", "Description column name for --format custom")
	cmd.Flags().StringVar(&columns.Amount, "amount-column", "", "Amount column name for --format custom")
	cmd.Flags().BoolVar(&noProgress, "no-progress", false, "Print one line per file instead of a progress bar")

	_ = viper.BindPFlag("import.format", cmd.Flags().Lookup("format"))
	_ = viper.BindPFlag("import.encoding", cmd.Flags().Lookup("encoding"))
	_ = viper.BindPFlag("import.malformed_rows", cmd.Flags().Lookup("malformed-rows"))

	return cmd
}

// collectImportFiles expands globs and directories into an ordered list of
// files. Directories contribute their importable files sorted by name.
func collectImportFiles(args []string) ([]string, error) {
	var files []string
	for _, pattern := range args {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %s: %w", pattern, err)
		}
		if len(matches) == 0 {
			slog.Warn("No files found matching pattern", "pattern", pattern)
			continue
		}

		for _, match := range matches {
			info, err := os.Stat(match)
			if err != nil {
				return nil, fmt.Errorf("failed to stat %s: %w", match, err)
			}
			if !info.IsDir() {
				files = append(files, match)
				continue
			}

			entries, err := os.ReadDir(match)
			if err != nil {
				return nil, fmt.Errorf("failed to read directory %s: %w", match, err)
			}
			var found []string
			for _, entry := range entries {
				if entry.IsDir() || !importExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
					continue
				}
				found = append(found, filepath.Join(match, entry.Name()))
			}
			sort.Strings(found)
			files = append(files, found...)
		}
	}

	if len(files) == 0 {
		return nil, common.ErrNoFiles
	}
	return files, nil
}

func formatOutcome(outcome importer.FileOutcome) string {
	switch outcome.Status {
	case importer.StatusImported:
		return cli.FormatSuccess(outcome.Message)
	case importer.StatusSkipped:
		return cli.FormatSkipped(outcome.Message)
	default:
		return cli.FormatError(outcome.Message)
	}
}
