package main

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Veraticus/house-money/internal/cli"
)

func summaryCmd() *cobra.Command {
	var startDate, endDate string

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show totals by tag and by month",
		RunE: func(cmd *cobra.Command, _ []string) error {
			start, err := parseDateFlag("start", startDate)
			if err != nil {
				return err
			}
			end, err := parseDateFlag("end", endDate)
			if err != nil {
				return err
			}

			store, cleanup, err := initStorage(cmd.Context(), appConfig, nil)
			if err != nil {
				return err
			}
			defer cleanup()

			byTag, err := store.SpendingByTag(cmd.Context(), start, end)
			if err != nil {
				return err
			}
			monthly, err := store.MonthlyTotals(cmd.Context(), start, end)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(monthly) == 0 {
				printf(out, "%s\n", cli.FormatInfo("No transactions in range"))
				return nil
			}

			tagRows := make([][]string, 0, len(byTag))
			for _, s := range byTag {
				name := s.Tag
				if name == "" {
					name = "(untagged)"
				}
				tagRows = append(tagRows, []string{name, strconv.Itoa(s.Count), cli.FormatAmount(s.Total)})
			}
			printf(out, "%s\n", cli.FormatTitle("By tag"))
			printf(out, "%s\n\n", cli.RenderTable([]string{"Tag", "Count", "Total"}, tagRows))

			monthRows := make([][]string, 0, len(monthly))
			for _, m := range monthly {
				monthRows = append(monthRows, []string{
					m.Month,
					strconv.Itoa(m.Count),
					cli.FormatAmount(m.Income),
					cli.FormatAmount(m.Expenses),
					cli.FormatAmount(m.Net()),
				})
			}
			printf(out, "%s\n", cli.FormatTitle("By month"))
			printf(out, "%s\n", cli.RenderTable([]string{"Month", "Count", "Income", "Expenses", "Net"}, monthRows))
			return nil
		},
	}

	cmd.Flags().StringVar(&startDate, "start", "", "First date to include (YYYY-MM-DD)")
	cmd.Flags().StringVar(&endDate, "end", "", "Date to stop before (YYYY-MM-DD)")

	return cmd
}
