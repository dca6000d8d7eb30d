package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/linelogic/internal/features"
	"github.com/yourusername/linelogic/internal/models"
)

var (
	featuresStart  string
	featuresEnd    string
	featuresOutput string
)

func init() {
	featuresCmd.Flags().StringVar(&featuresStart, "start", "", "First game day (YYYY-MM-DD)")
	featuresCmd.Flags().StringVar(&featuresEnd, "end", "", "Last game day (YYYY-MM-DD)")
	featuresCmd.Flags().StringVarP(&featuresOutput, "output", "o", "", "JSONL output file, defaults to stdout")
}

// trainingRow is one engineered game in the export
type trainingRow struct {
	GameID   string                 `json:"game_id"`
	Date     string                 `json:"date"`
	HomeTeam string                 `json:"home_team"`
	AwayTeam string                 `json:"away_team"`
	HomeWin  *bool                  `json:"home_win"`
	Features features.FeatureVector `json:"features"`
}

var featuresCmd = &cobra.Command{
	Use:   "features",
	Short: "Export leak-free feature vectors for model training",
	Long: `Engineers every game in the range in date order. Each row only uses
games completed before it, so the export can train a logistic model without
look-ahead. Skipped records are logged and left out.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		start, end, err := parseRange(featuresStart, featuresEnd, "", "")
		if err != nil {
			return err
		}

		source, err := app.gameSource()
		if err != nil {
			return err
		}
		games, err := source.GamesBetween(cmd.Context(), start, end)
		if err != nil {
			return fmt.Errorf("failed to load games: %w", err)
		}
		tables, err := app.sources.SideTableSource().LoadSideTables(cmd.Context())
		if err != nil {
			appLog.WithError(err).Warn("Side tables unavailable, exporting without them")
			tables = nil
		}

		pipe := features.NewPipeline(cfg.Features, features.NewState(cfg.Rating.Config), tables, appLog)
		results, err := pipe.Engineer(games)
		if err != nil {
			return fmt.Errorf("feature engineering failed: %w", err)
		}

		var out io.Writer = os.Stdout
		if featuresOutput != "" {
			f, err := os.Create(featuresOutput)
			if err != nil {
				return fmt.Errorf("failed to create output file: %w", err)
			}
			defer f.Close()
			out = f
		}

		written, err := writeTrainingRows(out, results)
		if err != nil {
			return err
		}
		appLog.WithFields(logrus.Fields{
			"games":   len(games),
			"written": written,
			"skipped": len(results) - written,
		}).Info("Feature export complete")
		return nil
	},
}

func writeTrainingRows(w io.Writer, results []features.Result) (int, error) {
	buf := bufio.NewWriter(w)
	enc := json.NewEncoder(buf)
	written := 0
	for _, r := range results {
		if !r.OK() {
			continue
		}
		row := trainingRow{
			GameID:   r.Game.ID,
			Date:     r.Game.Date.Format(models.DateLayout),
			HomeTeam: r.Game.HomeTeam,
			AwayTeam: r.Game.AwayTeam,
			HomeWin:  r.HomeWin,
			Features: r.Vector,
		}
		if err := enc.Encode(row); err != nil {
			return written, fmt.Errorf("failed to write row for %s: %w", r.Game.Key(), err)
		}
		written++
	}
	return written, buf.Flush()
}
