package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/yourusername/linelogic/internal/rating"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show bankroll, storage, rating checkpoint and model A/B status",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
		defer cancel()

		fmt.Printf("linelogic %s (%s, mode %s)\n\n", Version, cfg.App.Environment, cfg.App.Mode)

		fmt.Println("Storage:")
		if app.db != nil {
			printCheck("  Postgres", app.db.Ping(ctx))
		} else {
			fmt.Println("  Postgres: disabled (in-memory ledger)")
		}
		if cfg.Redis.Enabled {
			if _, err := app.decisionSink(ctx); err != nil {
				printCheck("  Redis", err)
			} else {
				printCheck("  Redis", app.redis.Ping(ctx).Err())
			}
		}

		fmt.Println("\nBankroll:")
		bankroll, err := app.ledger.CurrentBankroll(ctx)
		if err != nil {
			fmt.Printf("  unavailable: %v\n", err)
		} else {
			fmt.Printf("  Starting: $%.2f\n  Current:  $%s\n", cfg.Staking.Bankroll, bankroll.StringFixed(2))
		}

		fmt.Println("\nRatings:")
		cp, err := app.checkpoints.Load(ctx)
		switch {
		case errors.Is(err, rating.ErrNoCheckpoint):
			fmt.Println("  No checkpoint saved")
		case err != nil:
			fmt.Printf("  unavailable: %v\n", err)
		default:
			fmt.Printf("  Teams: %d\n  Saved: %s\n", len(cp.Ratings), cp.SavedAt.Format(time.RFC3339))
		}

		router, err := app.predictor()
		if err != nil {
			return err
		}
		report, err := router.CompareVariants()
		if err != nil {
			return fmt.Errorf("failed to compare model variants: %w", err)
		}
		fmt.Println()
		fmt.Print(report)
		return nil
	},
}

func printCheck(name string, err error) {
	if err != nil {
		fmt.Printf("%s: UNAVAILABLE (%v)\n", name, err)
		return
	}
	fmt.Printf("%s: OK\n", name)
}
