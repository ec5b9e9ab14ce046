package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Veraticus/house-money/internal/cli"
	"github.com/Veraticus/house-money/internal/sample"
)

func sampleCmd() *cobra.Command {
	var (
		count int
		out   string
		seed  int64
		days  int
	)

	cmd := &cobra.Command{
		Use:   "sample",
		Short: "Generate a sample transactions CSV",
		Long: `Generate a CSV of made-up transactions in the standard import layout,
spread over the last --days days. The same --seed always produces the same file.`,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			if days <= 0 {
				return fmt.Errorf("--days must be positive, got %d", days)
			}

			end := time.Now().UTC().Truncate(24 * time.Hour)
			gen := sample.NewGenerator(seed, end.AddDate(0, 0, -days), end)

			f, err := os.Create(out) // #nosec G304 - user supplied output path
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", out, err)
			}
			defer func() {
				if closeErr := f.Close(); closeErr != nil && err == nil {
					err = closeErr
				}
			}()

			if err := gen.WriteCSV(f, count); err != nil {
				return err
			}

			printf(cmd.OutOrStdout(), "%s\n", cli.FormatSuccess(fmt.Sprintf("Wrote %d sample transactions to %s", count, out)))
			return nil
		},
	}

	cmd.Flags().IntVarP(&count, "count", "n", 200, "Number of transactions to generate")
	cmd.Flags().StringVarP(&out, "out", "o", "sample_transactions.csv", "Output file")
	cmd.Flags().Int64Var(&seed, "seed", 0, "Random seed (0 picks one)")
	cmd.Flags().IntVar(&days, "days", 365, "Number of days the transactions span")

	return cmd
}
