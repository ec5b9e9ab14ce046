package main

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Veraticus/house-money/internal/cli"
)

func filesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "files",
		Short: "List the uploaded files",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, cleanup, err := initStorage(cmd.Context(), appConfig, nil)
			if err != nil {
				return err
			}
			defer cleanup()

			files, err := store.ListUploadedFiles(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(files) == 0 {
				printf(out, "%s\n", cli.FormatInfo("No files uploaded yet"))
				return nil
			}

			rows := make([][]string, 0, len(files))
			for i := range files {
				f := &files[i]
				rows = append(rows, []string{
					strconv.FormatInt(f.ID, 10),
					f.Filename,
					f.ShortFingerprint(),
					strconv.Itoa(f.TransactionCount),
					f.UploadedAt.Local().Format("2006-01-02 15:04"),
				})
			}
			printf(out, "%s\n", cli.RenderTable([]string{"ID", "File", "Fingerprint", "Transactions", "Uploaded"}, rows))
			return nil
		},
	}
}
