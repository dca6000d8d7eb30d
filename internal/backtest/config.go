package backtest

import (
	"fmt"
	"time"

	"github.com/yourusername/linelogic/internal/config"
	"github.com/yourusername/linelogic/internal/models"
)

// Config extends core config with backtest-specific settings
type Config struct {
	StartDate          time.Time
	EndDate            time.Time
	InitialBankroll    float64
	WarmupGames        int
	WalkForwardWindows int
	MinBetsPerWindow   int
	MonteCarloRuns     int
	Seed               int64
	RiskFreeRate       float64
	OutputPath         string
}

// FromConfig converts app config to backtest config
func FromConfig(cfg *config.BacktestConfig) (Config, error) {
	if cfg == nil {
		return Config{}, fmt.Errorf("backtest config is required")
	}
	start, err := models.ParseDate(cfg.StartDate)
	if err != nil {
		return Config{}, fmt.Errorf("invalid start date: %w", err)
	}
	end, err := models.ParseDate(cfg.EndDate)
	if err != nil {
		return Config{}, fmt.Errorf("invalid end date: %w", err)
	}

	bt := Config{
		StartDate:          start,
		EndDate:            end,
		InitialBankroll:    cfg.InitialBankroll,
		WarmupGames:        cfg.WarmupGames,
		WalkForwardWindows: cfg.WalkForwardWindows,
		MinBetsPerWindow:   cfg.MinBetsPerWindow,
		MonteCarloRuns:     cfg.MonteCarloRuns,
		Seed:               cfg.Seed,
		OutputPath:         cfg.OutputPath,
	}

	return bt, bt.Validate()
}

// Validate validates backtest config parameters
func (c Config) Validate() error {
	if c.StartDate.After(c.EndDate) {
		return fmt.Errorf("start date must be before end date")
	}
	if c.InitialBankroll <= 0 {
		return fmt.Errorf("initial bankroll must be positive")
	}
	if c.WarmupGames < 0 {
		return fmt.Errorf("warmup games cannot be negative")
	}
	if c.WalkForwardWindows < 0 {
		return fmt.Errorf("walk forward windows cannot be negative")
	}
	if c.MonteCarloRuns < 0 {
		return fmt.Errorf("monte carlo runs cannot be negative")
	}
	return nil
}
