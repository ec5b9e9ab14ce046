package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/Veraticus/house-money/internal/cli"
	"github.com/Veraticus/house-money/internal/common"
	"github.com/Veraticus/house-money/internal/model"
	"github.com/Veraticus/house-money/internal/service"
)

func transactionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "transactions",
		Aliases: []string{"txn", "txns"},
		Short:   "List, tag, annotate and edit transactions",
	}

	cmd.AddCommand(transactionsListCmd())
	cmd.AddCommand(transactionsTagCmd())
	cmd.AddCommand(transactionsNoteCmd())
	cmd.AddCommand(transactionsAddCmd())
	cmd.AddCommand(transactionsDeleteCmd())

	return cmd
}

// queryFlags are the listing filters shared by the list and export commands.
type queryFlags struct {
	sortBy    string
	order     string
	search    string
	searchOn  string
	startDate string
	endDate   string
	tag       string
}

func (f *queryFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.sortBy, "sort", "date", "Sort column (date, description, amount)")
	cmd.Flags().StringVar(&f.order, "order", "desc", "Sort order (asc, desc)")
	cmd.Flags().StringVar(&f.search, "search", "", "Only show transactions containing this text")
	cmd.Flags().StringVar(&f.searchOn, "search-on", "description", "Column to search (date, description, amount)")
	cmd.Flags().StringVar(&f.startDate, "start", "", "First date to include (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.endDate, "end", "", "Date to stop before (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.tag, "tag", "", "Only show transactions with this tag")
}

func (f *queryFlags) query() (service.TransactionQuery, error) {
	start, err := parseDateFlag("start", f.startDate)
	if err != nil {
		return service.TransactionQuery{}, err
	}
	end, err := parseDateFlag("end", f.endDate)
	if err != nil {
		return service.TransactionQuery{}, err
	}

	var ascending bool
	switch strings.ToLower(f.order) {
	case "asc":
		ascending = true
	case "desc", "":
	default:
		return service.TransactionQuery{}, fmt.Errorf("%w: --order must be asc or desc", common.ErrInvalidConfig)
	}

	return service.TransactionQuery{
		StartDate:  start,
		EndDate:    end,
		SortBy:     service.ParseSortColumn(f.sortBy),
		SearchText: f.search,
		SearchOn:   service.ParseSortColumn(f.searchOn),
		Tag:        f.tag,
		Ascending:  ascending,
	}, nil
}

func transactionsListCmd() *cobra.Command {
	var (
		flags queryFlags
		limit int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List transactions",
		RunE: func(cmd *cobra.Command, _ []string) error {
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

			out := cmd.OutOrStdout()
			if len(txns) == 0 {
				printf(out, "%s\n", cli.FormatInfo("No transactions found"))
				return nil
			}

			total := len(txns)
			if limit > 0 && total > limit {
				txns = txns[:limit]
			}

			printf(out, "%s\n", cli.RenderTable(
				[]string{"ID", "Date", "Description", "Amount", "Tags", "Notes"},
				transactionRows(txns)))
			if len(txns) < total {
				printf(out, "%s\n", cli.FormatInfo(fmt.Sprintf("Showing %d of %d transactions", len(txns), total)))
			}
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Show at most this many transactions (0 for all)")

	return cmd
}

func transactionRows(txns []model.Transaction) [][]string {
	rows := make([][]string, 0, len(txns))
	for i := range txns {
		t := &txns[i]
		rows = append(rows, []string{
			strconv.FormatInt(t.ID, 10),
			t.Date.Format("2006-01-02"),
			t.Description,
			cli.FormatAmount(t.Amount),
			strings.Join(t.Tags, ", "),
			t.Notes,
		})
	}
	return rows
}

func transactionsTagCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tag ID [TAG...]",
		Short: "Replace the tags of a transaction",
		Long: `Replace the tags of a transaction with the named tags.
Giving no tags removes every tag from the transaction.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			store, cleanup, err := initStorage(cmd.Context(), appConfig, nil)
			if err != nil {
				return err
			}
			defer cleanup()

			tagIDs, err := resolveTags(cmd.Context(), store, args[1:])
			if err != nil {
				return err
			}

			if err := store.UpdateTransactionTags(cmd.Context(), id, tagIDs); err != nil {
				return transactionError(id, err)
			}

			printf(cmd.OutOrStdout(), "%s\n", cli.FormatSuccess(fmt.Sprintf("Updated tags of transaction %d", id)))
			return nil
		},
	}
}

func transactionsNoteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "note ID [TEXT...]",
		Short: "Set the note of a transaction",
		Long: `Set the note of a transaction. The remaining arguments are joined with spaces;
giving none clears the note.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			store, cleanup, err := initStorage(cmd.Context(), appConfig, nil)
			if err != nil {
				return err
			}
			defer cleanup()

			if err := store.UpdateTransactionNote(cmd.Context(), id, strings.Join(args[1:], " ")); err != nil {
				return transactionError(id, err)
			}

			printf(cmd.OutOrStdout(), "%s\n", cli.FormatSuccess(fmt.Sprintf("Updated note of transaction %d", id)))
			return nil
		},
	}
}

func transactionsAddCmd() *cobra.Command {
	var (
		date        string
		description string
		amount      string
		notes       string
		tags        []string
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a transaction by hand",
		RunE: func(cmd *cobra.Command, _ []string) error {
			when, err := parseDateFlag("date", date)
			if err != nil {
				return err
			}
			if when == nil {
				return fmt.Errorf("%w: --date is required", common.ErrMissingConfig)
			}
			value, err := decimal.NewFromString(amount)
			if err != nil {
				return fmt.Errorf("%w: invalid --amount %q", common.ErrMalformedInput, amount)
			}

			store, cleanup, err := initStorage(cmd.Context(), appConfig, nil)
			if err != nil {
				return err
			}
			defer cleanup()

			tagIDs, err := resolveTags(cmd.Context(), store, tags)
			if err != nil {
				return err
			}

			id, err := store.CreateManualTransaction(cmd.Context(), model.ManualTransaction{
				Date:        *when,
				Description: description,
				Amount:      value,
				Notes:       notes,
				TagIDs:      tagIDs,
			})
			if err != nil {
				return err
			}

			printf(cmd.OutOrStdout(), "%s\n", cli.FormatSuccess(fmt.Sprintf("Added transaction %d", id)))
			return nil
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "Transaction date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&description, "description", "", "Transaction description")
	cmd.Flags().StringVar(&amount, "amount", "", "Signed amount, negative for spending")
	cmd.Flags().StringVar(&notes, "notes", "", "Free-text note")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "Tag name (repeatable)")
	_ = cmd.MarkFlagRequired("date")
	_ = cmd.MarkFlagRequired("description")
	_ = cmd.MarkFlagRequired("amount")

	return cmd
}

func transactionsDeleteCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "delete ID...",
		Short: "Delete transactions",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]int64, 0, len(args))
			for _, arg := range args {
				id, err := parseID(arg)
				if err != nil {
					return err
				}
				ids = append(ids, id)
			}

			out := cmd.OutOrStdout()
			ok, err := confirm(cmd, force, fmt.Sprintf("Delete %d transaction(s)?", len(ids)))
			if err != nil {
				return err
			}
			if !ok {
				printf(out, "%s\n", cli.FormatInfo("Delete canceled."))
				return nil
			}

			store, cleanup, err := initStorage(cmd.Context(), appConfig, nil)
			if err != nil {
				return err
			}
			defer cleanup()

			deleted, err := store.DeleteTransactions(cmd.Context(), ids)
			if err != nil {
				if errors.Is(err, common.ErrNotFound) {
					return common.NewUserError("No matching transactions", err)
				}
				return err
			}

			printf(out, "%s\n", cli.FormatSuccess(fmt.Sprintf("Deleted %d transaction(s)", deleted)))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Skip confirmation prompt")

	return cmd
}

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid id %q", common.ErrMalformedInput, arg)
	}
	return id, nil
}

// resolveTags maps tag names onto their IDs.
func resolveTags(ctx context.Context, store service.Storage, names []string) ([]int64, error) {
	ids := make([]int64, 0, len(names))
	for _, name := range names {
		tag, err := store.GetTagByName(ctx, strings.TrimSpace(name))
		if err != nil {
			if errors.Is(err, common.ErrNotFound) {
				return nil, common.NewUserError(fmt.Sprintf("Unknown tag %q, create it with 'hm tags add'", name), err)
			}
			return nil, err
		}
		ids = append(ids, tag.ID)
	}
	return ids, nil
}

func transactionError(id int64, err error) error {
	if errors.Is(err, common.ErrNotFound) {
		return common.NewUserError(fmt.Sprintf("Transaction %d not found", id), err)
	}
	return err
}
