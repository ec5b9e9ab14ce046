package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Veraticus/house-money/internal/cli"
	"github.com/Veraticus/house-money/internal/export"
	"github.com/Veraticus/house-money/internal/model"
)

func exportCmd() *cobra.Command {
	var (
		flags  queryFlags
		format string
	)

	cmd := &cobra.Command{
		Use:   "export OUT",
		Short: "Export transactions to CSV or XLSX",
		Long: `Export the filtered transaction listing to OUT. The format follows the file
extension unless --format is given; "-" writes CSV to standard output.
CSV exports use the standard import layout and can be imported again.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dest := args[0]

			fileFormat := export.FormatForPath(dest)
			if format != "" {
				var err error
				if fileFormat, err = export.ParseFormat(format); err != nil {
					return err
				}
			}

			query, err := flags.query()
			if err != nil {
				return err
			}

			store, cleanup, err := initStorage(cmd.Context(), appConfig, nil)
			if err != nil {
				return err
			}
			defer cleanup()

			txns, err := store.ListTransactions(cmd.Context(), query)
			if err != nil {
				return err
			}

			if dest == "-" {
				return export.Write(cmd.OutOrStdout(), fileFormat, txns)
			}

			if err := writeExportFile(dest, fileFormat, txns); err != nil {
				return err
			}
			printf(cmd.OutOrStdout(), "%s\n", cli.FormatSuccess(fmt.Sprintf("Exported %d transactions to %s", len(txns), dest)))
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&format, "format", "", "Output format (csv, xlsx)")

	return cmd
}

// writeExportFile writes txns to dest, removing the partial file on failure.
func writeExportFile(dest string, format export.Format, txns []model.Transaction) (err error) {
	f, err := os.Create(dest) // #nosec G304 - user supplied export path
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dest, err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close %s: %w", dest, closeErr)
		}
		if err != nil {
			_ = os.Remove(dest)
		}
	}()

	return export.Write(f, format, txns)
}
