package main

import (
	"github.com/spf13/cobra"

	"github.com/Veraticus/house-money/internal/tui"
)

func browseCmd() *cobra.Command {
	var flags queryFlags

	cmd := &cobra.Command{
		Use:   "browse",
		Short: "Browse, search and tag transactions interactively",
		Long: `Open a full-screen transaction browser. Press / to search, s and o to change
the sort, t to edit tags, n to edit the note and ? for every key.`,
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

			return tui.Run(cmd.Context(), store, tui.WithQuery(query))
		},
	}

	flags.register(cmd)

	return cmd
}
