package main

import (
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/Veraticus/house-money/internal/cli"
	"github.com/Veraticus/house-money/internal/common"
	"github.com/Veraticus/house-money/internal/config"
	"github.com/Veraticus/house-money/internal/service"
	"github.com/Veraticus/house-money/internal/sheets"
)

func sheetsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sheets",
		Short: "Push reports to Google Sheets",
	}

	cmd.AddCommand(sheetsAuthCmd())
	cmd.AddCommand(sheetsPushCmd())

	return cmd
}

func sheetsAuthCmd() *cobra.Command {
	var callbackAddr string

	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authorize House Money to write to Google Sheets",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := appConfig.Sheets
			if cfg.ClientID == "" || cfg.ClientSecret == "" {
				return common.NewUserError("Set sheets.client_id and sheets.client_secret before authorizing", common.ErrMissingConfig)
			}

			_, err := sheets.AuthenticateOAuth2Interactive(cmd.Context(), sheets.OAuth2Config{
				ClientID:     cfg.ClientID,
				ClientSecret: cfg.ClientSecret,
				TokenFile:    cfg.TokenFile,
				CallbackAddr: callbackAddr,
			}, cmd.OutOrStdout())
			if err != nil {
				return err
			}

			printf(cmd.OutOrStdout(), "%s\n", cli.FormatSuccess("Authorized, token saved to "+cfg.TokenFile))
			return nil
		},
	}

	cmd.Flags().StringVar(&callbackAddr, "callback", "127.0.0.1:8085", "Local address receiving the OAuth redirect")

	return cmd
}

func sheetsPushCmd() *cobra.Command {
	var startDate, endDate, spreadsheetID string

	cmd := &cobra.Command{
		Use:   "push",
		Short: "Write a summary and every transaction to a spreadsheet",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			start, err := parseDateFlag("start", startDate)
			if err != nil {
				return err
			}
			end, err := parseDateFlag("end", endDate)
			if err != nil {
				return err
			}

			cfg := sheetsConfig(appConfig.Sheets)
			if spreadsheetID != "" {
				cfg.SpreadsheetID = spreadsheetID
			}
			if err := cfg.Validate(); err != nil {
				return common.NewUserError("Google Sheets is not configured", err)
			}

			store, cleanup, err := initStorage(ctx, appConfig, nil)
			if err != nil {
				return err
			}
			defer cleanup()

			report := &sheets.Report{Generated: time.Now(), Start: start, End: end}
			report.Transactions, err = store.ListTransactions(ctx, service.TransactionQuery{StartDate: start, EndDate: end})
			if err != nil {
				return err
			}
			report.ByTag, err = store.SpendingByTag(ctx, start, end)
			if err != nil {
				return err
			}
			report.Monthly, err = store.MonthlyTotals(ctx, start, end)
			if err != nil {
				return err
			}

			writer, err := sheets.NewWriter(ctx, cfg, slog.Default())
			if err != nil {
				return err
			}

			id, err := writer.Write(ctx, report)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			printf(out, "%s\n", cli.FormatSuccess("Pushed report to Google Sheets"))
			printf(out, "  https://docs.google.com/spreadsheets/d/%s\n", id)
			return nil
		},
	}

	cmd.Flags().StringVar(&startDate, "start", "", "First date to include (YYYY-MM-DD)")
	cmd.Flags().StringVar(&endDate, "end", "", "Date to stop before (YYYY-MM-DD)")
	cmd.Flags().StringVar(&spreadsheetID, "spreadsheet-id", "", "Spreadsheet to overwrite (default: sheets.spreadsheet_id, or a new one)")

	return cmd
}

func sheetsConfig(c config.SheetsConfig) sheets.Config {
	cfg := sheets.DefaultConfig()
	cfg.ClientID = c.ClientID
	cfg.ClientSecret = c.ClientSecret
	cfg.RefreshToken = c.RefreshToken
	cfg.TokenFile = c.TokenFile
	cfg.ServiceAccountPath = c.ServiceAccountPath
	cfg.SpreadsheetID = c.SpreadsheetID
	if c.SpreadsheetName != "" {
		cfg.SpreadsheetName = c.SpreadsheetName
	}
	if c.TimeZone != "" {
		cfg.TimeZone = c.TimeZone
	}
	return cfg
}
