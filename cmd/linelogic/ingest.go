package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	ingestStart string
	ingestEnd   string
	ingestDate  string
)

func init() {
	ingestGamesCmd.Flags().StringVar(&ingestStart, "start", "", "First game day (YYYY-MM-DD)")
	ingestGamesCmd.Flags().StringVar(&ingestEnd, "end", "", "Last game day (YYYY-MM-DD), defaults to --start")
	ingestQuotesCmd.Flags().StringVarP(&ingestDate, "date", "d", "", "Slate date (YYYY-MM-DD), defaults to today")

	ingestCmd.AddCommand(ingestGamesCmd, ingestQuotesCmd)
}

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Fetch games or quotes from the providers and store them",
	Long: `Stores provider data so later runs can replay it. Quote snapshots are
append-only; the last one captured before tip-off is the closing line used
for CLV during settlement.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := rootCmd.PersistentPreRunE(cmd, args); err != nil {
			return err
		}
		if !cfg.Database.Enabled {
			appLog.Warn("Database disabled, ingested data is discarded when the process exits")
		}
		return nil
	},
}

var ingestGamesCmd = &cobra.Command{
	Use:   "games",
	Short: "Upsert games and final scores for a date range",
	RunE: func(cmd *cobra.Command, args []string) error {
		if ingestEnd == "" {
			ingestEnd = ingestStart
		}
		start, end, err := parseRange(ingestStart, ingestEnd, "", "")
		if err != nil {
			return err
		}

		stats, err := app.ingester().IngestGames(cmd.Context(), start, end)
		if err != nil {
			return err
		}
		fmt.Println(stats)
		return nil
	},
}

var ingestQuotesCmd = &cobra.Command{
	Use:   "quotes",
	Short: "Capture a moneyline snapshot for a slate",
	RunE: func(cmd *cobra.Command, args []string) error {
		day, err := parseDay(ingestDate)
		if err != nil {
			return err
		}

		stats, err := app.ingester().CaptureQuotes(cmd.Context(), day)
		if err != nil {
			return err
		}
		fmt.Println(stats)
		return nil
	},
}
