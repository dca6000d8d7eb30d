package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yourusername/linelogic/internal/models"
	"github.com/yourusername/linelogic/internal/settlement"
)

var settleDate string

func init() {
	settleCmd.Flags().StringVarP(&settleDate, "date", "d", "", "Settle open decisions through this date (YYYY-MM-DD), defaults to yesterday")
}

var settleCmd = &cobra.Command{
	Use:   "settle",
	Short: "Settle open decisions against final scores",
	RunE: func(cmd *cobra.Command, args []string) error {
		day, err := parseDay(settleDate)
		if err != nil {
			return err
		}
		if settleDate == "" {
			day = day.AddDate(0, 0, -1)
		}

		settler, err := app.settler()
		if err != nil {
			return err
		}
		summary, err := settler.SettleDate(cmd.Context(), day)
		if err != nil {
			return fmt.Errorf("settlement through %s failed: %w", day.Format(models.DateLayout), err)
		}

		bankroll, err := app.ledger.CurrentBankroll(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to read bankroll: %w", err)
		}

		printSettlement(summary)
		fmt.Printf("Bankroll:    $%s\n", bankroll.StringFixed(2))
		return nil
	},
}

func printSettlement(s *settlement.Summary) {
	fmt.Printf("Settlement through %s\n", s.Date.Format(models.DateLayout))
	fmt.Printf("Settled:     %d (%d pending)\n", s.Settled, s.Pending)
	fmt.Printf("Record:      %d-%d-%d\n", s.Wins, s.Losses, s.Pushes)
	fmt.Printf("Staked:      $%s\n", s.Staked.StringFixed(2))
	fmt.Printf("P/L:         $%s\n", s.ProfitLoss.StringFixed(2))
	fmt.Printf("ROI:         %.2f%%\n", s.ROI*100)
	if s.AverageCLV != nil {
		fmt.Printf("Average CLV: %+.4f\n", *s.AverageCLV)
	}
	if s.Forecast != nil {
		fmt.Printf("Brier:       %.4f\n", s.Forecast.Brier)
	}
}
