package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/linelogic/internal/features"
	"github.com/yourusername/linelogic/internal/metrics"
	"github.com/yourusername/linelogic/internal/models"
	"github.com/yourusername/linelogic/internal/rating"
)

var (
	ratingsStart string
	ratingsEnd   string
	ratingsTop   int
)

func init() {
	ratingsRebuildCmd.Flags().StringVar(&ratingsStart, "start", "", "First game day to replay (YYYY-MM-DD)")
	ratingsRebuildCmd.Flags().StringVar(&ratingsEnd, "end", "", "Last game day to replay (YYYY-MM-DD), defaults to yesterday")
	ratingsShowCmd.Flags().IntVarP(&ratingsTop, "top", "n", 0, "Only show the top N teams")

	ratingsCmd.AddCommand(ratingsRebuildCmd, ratingsShowCmd)
}

var ratingsCmd = &cobra.Command{
	Use:   "ratings",
	Short: "Rebuild or inspect the Elo rating checkpoint",
}

var ratingsRebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Replay completed games from scratch and save a checkpoint",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		end, err := parseDay(ratingsEnd)
		if err != nil {
			return err
		}
		if ratingsEnd == "" {
			end = end.AddDate(0, 0, -1)
		}
		start := end.AddDate(0, 0, -cfg.Recommend.HistoryDays)
		if ratingsStart != "" {
			if start, err = models.ParseDate(ratingsStart); err != nil {
				return fmt.Errorf("invalid start date: %w", err)
			}
		}
		if start.After(end) {
			return fmt.Errorf("start date %s is after end date %s", start.Format(models.DateLayout), end.Format(models.DateLayout))
		}

		source, err := app.gameSource()
		if err != nil {
			return err
		}
		games, err := source.GamesBetween(ctx, start, end)
		if err != nil {
			return fmt.Errorf("failed to load games: %w", err)
		}
		tables, err := app.sources.SideTableSource().LoadSideTables(ctx)
		if err != nil {
			appLog.WithError(err).Warn("Side tables unavailable, rebuilding without them")
			tables = nil
		}

		started := time.Now()
		pipe := features.NewPipeline(cfg.Features, features.NewState(cfg.Rating.Config), tables, appLog)
		applied, err := pipe.Replay(games)
		if err != nil {
			return fmt.Errorf("replay failed after %d games: %w", applied, err)
		}
		metrics.RecordPipelineDuration("ratings_rebuild", time.Since(started).Seconds())

		cp := pipe.State().Ratings().Checkpoint()
		if err := app.checkpoints.Save(ctx, cp); err != nil {
			return fmt.Errorf("failed to save checkpoint: %w", err)
		}
		metrics.UpdateRatedTeams(len(cp.Ratings))

		appLog.WithFields(logrus.Fields{
			"start":   start.Format(models.DateLayout),
			"end":     end.Format(models.DateLayout),
			"games":   len(games),
			"applied": applied,
			"teams":   len(cp.Ratings),
		}).Info("Ratings rebuilt")

		printStandings(pipe.State().Ratings().Standings(), 10)
		return nil
	},
}

var ratingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the ratings in the latest checkpoint",
	RunE: func(cmd *cobra.Command, args []string) error {
		cp, err := app.checkpoints.Load(cmd.Context())
		if errors.Is(err, rating.ErrNoCheckpoint) {
			return fmt.Errorf("no checkpoint saved yet, run 'linelogic ratings rebuild' first")
		}
		if err != nil {
			return err
		}

		engine := rating.NewEngine(cfg.Rating.Config)
		if err := engine.Restore(cp); err != nil {
			// Still printable, but stale against the configured parameters.
			appLog.WithError(err).Warn("Checkpoint was built with different hyperparameters")
			engine = rating.NewEngine(cp.Config())
			if err := engine.Restore(cp); err != nil {
				return err
			}
		}

		fmt.Printf("Checkpoint saved %s (k=%.0f, home advantage=%.0f, margin multiplier=%.2f)\n",
			cp.SavedAt.Format(time.RFC3339), cp.KFactor, cp.HomeAdvantage, cp.MarginMultiplier)
		printStandings(engine.Standings(), ratingsTop)
		return nil
	},
}

func printStandings(standings []rating.Standing, top int) {
	if top > 0 && top < len(standings) {
		standings = standings[:top]
	}
	for i, s := range standings {
		fmt.Printf("%3d. %-28s %7.1f\n", i+1, s.Team, s.Rating)
	}
}
