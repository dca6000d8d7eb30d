package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/linelogic/internal/models"
)

var (
	recommendDate string
	recommendJSON bool
)

func init() {
	recommendCmd.Flags().StringVarP(&recommendDate, "date", "d", "", "Slate date (YYYY-MM-DD), defaults to today")
	recommendCmd.Flags().BoolVar(&recommendJSON, "json", false, "Print the full report as JSON")
}

var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Produce stake decisions for a day's slate",
	RunE: func(cmd *cobra.Command, args []string) error {
		day, err := parseDay(recommendDate)
		if err != nil {
			return err
		}

		orch, err := app.orchestrator(cmd.Context())
		if err != nil {
			return err
		}

		report, err := orch.RecommendDate(cmd.Context(), day)
		if err != nil {
			return fmt.Errorf("recommendation run for %s failed: %w", day.Format(models.DateLayout), err)
		}

		appLog.WithFields(logrus.Fields{
			"date":      day.Format(models.DateLayout),
			"decisions": len(report.Decisions),
			"no_picks":  len(report.NoPicks),
			"skipped":   len(report.Skipped),
		}).Info("Recommendation run complete")

		if recommendJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		}
		fmt.Print(report.Summary())
		return nil
	},
}
