package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/linelogic/internal/backtest"
	"github.com/yourusername/linelogic/internal/models"
	"github.com/yourusername/linelogic/internal/recommend"
)

var (
	backtestStart      string
	backtestEnd        string
	backtestWindows    int
	backtestMonteCarlo int
	backtestSeed       int64
	backtestOutput     string
)

func init() {
	f := backtestCmd.Flags()
	f.StringVar(&backtestStart, "start", "", "First replay day (YYYY-MM-DD), overrides backtest.start_date")
	f.StringVar(&backtestEnd, "end", "", "Last replay day (YYYY-MM-DD), overrides backtest.end_date")
	f.IntVar(&backtestWindows, "walk-forward", -1, "Walk-forward windows, 0 disables, overrides backtest.walk_forward_windows")
	f.IntVar(&backtestMonteCarlo, "monte-carlo", -1, "Monte Carlo iterations, 0 disables, overrides backtest.monte_carlo_runs")
	f.Int64Var(&backtestSeed, "seed", 0, "Monte Carlo seed, overrides backtest.seed")
	f.StringVarP(&backtestOutput, "output", "o", "", "Directory for report.json, equity.csv and metrics.csv")
}

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Replay completed games through the recommendation pipeline",
	Long: `Replays every day in the range through the same orchestrator used for live
recommendations, settles each decision against the final score and reports
ROI, drawdown and forecast calibration. Quotes come from stored snapshots.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		btCfg, err := buildBacktestConfig()
		if err != nil {
			return err
		}

		games, err := app.gameSource()
		if err != nil {
			return err
		}
		router, err := app.predictor()
		if err != nil {
			return err
		}

		engine, err := backtest.NewEngine(btCfg, recommend.ConfigFromApp(cfg), backtest.Dependencies{
			Games:      games,
			Quotes:     app.repos.Quote,
			SideTables: app.sources.SideTableSource(),
			Predictor:  router,
			Staking:    app.staking,
		}, appLog)
		if err != nil {
			return fmt.Errorf("failed to create backtest engine: %w", err)
		}

		state, historical, err := engine.Run(ctx, btCfg.StartDate, btCfg.EndDate)
		if err != nil {
			return fmt.Errorf("historical replay failed: %w", err)
		}

		var walkForward backtest.WalkForwardResult
		if btCfg.WalkForwardWindows > 0 {
			walkForward, err = backtest.RunWalkForward(ctx, engine, backtest.WalkForwardConfig{
				Windows:          btCfg.WalkForwardWindows,
				MinBetsPerWindow: btCfg.MinBetsPerWindow,
			})
			if err != nil {
				return fmt.Errorf("walk-forward validation failed: %w", err)
			}
		}

		var monteCarlo backtest.MonteCarloResult
		if btCfg.MonteCarloRuns > 0 && len(state.Bets) > 0 {
			monteCarlo, err = backtest.RunMonteCarlo(ctx, state.Bets, backtest.MonteCarloConfig{
				Iterations:      btCfg.MonteCarloRuns,
				Seed:            btCfg.Seed,
				InitialBankroll: btCfg.InitialBankroll,
			})
			if err != nil {
				return fmt.Errorf("monte carlo simulation failed: %w", err)
			}
		}

		result := backtest.AggregateResults(historical, monteCarlo, walkForward, backtest.DefaultWeights())
		fmt.Print(backtest.GenerateConsoleReport(result))

		if btCfg.OutputPath != "" {
			export := backtest.NewExport(state, result, backtestParameters(btCfg))
			if err := backtest.WriteOutputs(export, btCfg.OutputPath); err != nil {
				return err
			}
			appLog.WithFields(logrus.Fields{
				"output":         btCfg.OutputPath,
				"parameter_hash": export.Summary.ParameterHash,
			}).Info("Backtest outputs written")
		}
		return nil
	},
}

func buildBacktestConfig() (backtest.Config, error) {
	raw := cfg.Backtest
	if backtestStart != "" {
		raw.StartDate = backtestStart
	}
	if backtestEnd != "" {
		raw.EndDate = backtestEnd
	}
	if backtestWindows >= 0 {
		raw.WalkForwardWindows = backtestWindows
	}
	if backtestMonteCarlo >= 0 {
		raw.MonteCarloRuns = backtestMonteCarlo
	}
	if backtestSeed != 0 {
		raw.Seed = backtestSeed
	}
	if backtestOutput != "" {
		raw.OutputPath = backtestOutput
	}
	if raw.StartDate == "" || raw.EndDate == "" {
		return backtest.Config{}, fmt.Errorf("a start and end date are required (flags or backtest config)")
	}
	return backtest.FromConfig(&raw)
}

// backtestParameters are the inputs that determine a replay's result
func backtestParameters(bt backtest.Config) map[string]interface{} {
	return map[string]interface{}{
		"start":            bt.StartDate.Format(models.DateLayout),
		"end":              bt.EndDate.Format(models.DateLayout),
		"initial_bankroll": bt.InitialBankroll,
		"warmup_games":     bt.WarmupGames,
		"k_factor":         cfg.Rating.KFactor,
		"home_advantage":   cfg.Rating.HomeAdvantage,
		"initial_rating":   cfg.Rating.InitialRating,
		"kelly_fraction":   cfg.Staking.KellyFraction,
		"min_edge":         cfg.Staking.MinEdge,
		"history_days":     cfg.Recommend.HistoryDays,
		"model":            cfg.Predictor.Production.Type,
		"model_version":    cfg.Predictor.Production.Version,
	}
}
