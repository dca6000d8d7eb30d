// Package backtest replays completed seasons through the recommendation
// pipeline and settles every decision against the final score.
package backtest

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/linelogic/internal/datasource"
	"github.com/yourusername/linelogic/internal/metrics"
	"github.com/yourusername/linelogic/internal/models"
	"github.com/yourusername/linelogic/internal/predict"
	"github.com/yourusername/linelogic/internal/recommend"
	"github.com/yourusername/linelogic/internal/repository"
	"github.com/yourusername/linelogic/internal/settlement"
	"github.com/yourusername/linelogic/internal/staking"
)

// Dependencies are the sources and models a replay runs against
type Dependencies struct {
	Games      datasource.GameSource
	Quotes     datasource.QuoteSource
	SideTables datasource.SideTableSource
	Predictor  predict.Predictor
	Staking    *staking.Engine
}

// Engine orchestrates backtesting runs
type Engine struct {
	config    Config
	recommend recommend.Config
	deps      Dependencies
	logger    *logrus.Logger
}

// NewEngine creates a new backtesting engine
func NewEngine(cfg Config, rec recommend.Config, deps Dependencies, logger *logrus.Logger) (*Engine, error) {
	if deps.Games == nil || deps.Quotes == nil {
		return nil, fmt.Errorf("game and quote sources are required")
	}
	if deps.Predictor == nil {
		return nil, fmt.Errorf("predictor is required")
	}
	if deps.Staking == nil {
		return nil, fmt.Errorf("staking engine is required")
	}
	if logger == nil {
		logger = logrus.New()
	}
	if rec.HistoryDays <= 0 {
		rec.HistoryDays = 120
	}
	// Sized against the replay bankroll, never a live one.
	rec.Bankroll = decimal.NewFromFloat(cfg.InitialBankroll)

	return &Engine{
		config:    cfg,
		recommend: rec,
		deps:      deps,
		logger:    logger,
	}, nil
}

// Config returns the backtest configuration
func (e *Engine) Config() Config {
	return e.config
}

// Run replays [startDate, endDate] and computes metrics
func (e *Engine) Run(ctx context.Context, startDate, endDate time.Time) (*State, Metrics, error) {
	started := time.Now()
	e.logger.WithFields(logrus.Fields{
		"start": startDate.Format(models.DateLayout),
		"end":   endDate.Format(models.DateLayout),
	}).Info("Starting backtest run")

	state, err := e.HistoricalReplay(ctx, startDate, endDate)
	if err != nil {
		metrics.RecordBacktestRun("replay", "error")
		return nil, Metrics{}, err
	}
	m := CalculateMetrics(state, startDate, endDate, e.config.RiskFreeRate)

	metrics.RecordBacktestRun("replay", "success")
	metrics.RecordBacktestResult("replay", m.ROI, m.Brier, time.Since(started).Seconds())

	e.logger.WithFields(logrus.Fields{
		"bets":         m.TotalBets,
		"roi":          m.ROI,
		"total_return": m.TotalReturn,
		"max_drawdown": m.MaxDrawdown,
		"brier":        m.Brier,
	}).Info("Backtest run complete")
	return state, m, nil
}

// HistoricalReplay walks forward one day at a time. Each day's slate is
// priced from ratings built only on earlier days, then settled against the
// final scores before the next day starts.
func (e *Engine) HistoricalReplay(ctx context.Context, startDate, endDate time.Time) (*State, error) {
	start, end := models.Day(startDate), models.Day(endDate)
	state := NewState(decimal.NewFromFloat(e.config.InitialBankroll), start)

	games, err := e.deps.Games.GamesBetween(ctx, start.AddDate(0, 0, -e.recommend.HistoryDays), end)
	if err != nil {
		return nil, fmt.Errorf("failed to load games from %s: %w", e.deps.Games.Name(), err)
	}

	store := repository.NewMemoryStore()
	valid := make([]models.GameRecord, 0, len(games))
	for _, g := range games {
		if err := g.Validate(); err != nil {
			state.SkippedGames++
			continue
		}
		valid = append(valid, g)
	}
	if err := store.Games().UpsertGames(ctx, valid); err != nil {
		return nil, fmt.Errorf("failed to stage games: %w", err)
	}

	warm := 0
	byDay := make(map[time.Time][]models.GameRecord)
	for _, g := range valid {
		if !g.IsCompleted() {
			continue
		}
		if g.Day().Before(start) {
			warm++
			continue
		}
		byDay[g.Day()] = append(byDay[g.Day()], g)
	}
	days := make([]time.Time, 0, len(byDay))
	for d := range byDay {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	orch, err := recommend.NewOrchestrator(e.recommend, recommend.Dependencies{
		Games:      store.Games(),
		Quotes:     e.deps.Quotes,
		SideTables: e.deps.SideTables,
		Predictor:  e.deps.Predictor,
		Staking:    e.deps.Staking,
		Bankroll:   state,
	}, e.logger)
	if err != nil {
		return nil, err
	}

	for _, day := range days {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("backtest cancelled: %w", err)
		}
		slate := byDay[day]
		if warm < e.config.WarmupGames {
			warm += len(slate)
			continue
		}
		if err := e.processDay(ctx, orch, day, slate, state); err != nil {
			return nil, err
		}
		warm += len(slate)
	}

	return state, nil
}

func (e *Engine) processDay(ctx context.Context, orch *recommend.Orchestrator, day time.Time, slate []models.GameRecord, state *State) error {
	report, err := orch.RecommendDate(ctx, day)
	if err != nil {
		return fmt.Errorf("failed to replay %s: %w", day.Format(models.DateLayout), err)
	}

	byKey := make(map[string]models.GameRecord, len(slate))
	for _, g := range slate {
		byKey[g.Key()] = g
	}
	state.SkippedGames += len(report.Skipped)

	for _, f := range homeForecasts(report) {
		g, ok := byKey[f.GameID]
		if !ok || *g.HomeScore == *g.AwayScore {
			continue
		}
		f.HomeWin = g.HomeWin()
		state.Forecasts = append(state.Forecasts, f)
	}

	for _, d := range report.Decisions {
		g, ok := byKey[d.GameID]
		if !ok {
			return fmt.Errorf("decision %s references unknown game %s", d.ID, d.GameID)
		}
		st, err := settlement.Settle(d, g, day)
		if err != nil {
			return fmt.Errorf("failed to settle decision %s: %w", d.ID, err)
		}
		state.Settle(Bet{Decision: d, Settlement: st})
	}
	state.CloseDay(day)

	e.logger.WithFields(logrus.Fields{
		"date":      day.Format(models.DateLayout),
		"games":     len(slate),
		"decisions": len(report.Decisions),
		"bankroll":  state.Bankroll.StringFixed(2),
	}).Debug("Backtest day settled")
	return nil
}

// homeForecasts recovers the home-win probability of every evaluated game.
// Each evaluated game carries exactly one home-side entry, either a decision
// or a declined selection; an away decision implies its complement.
func homeForecasts(report *recommend.Report) []Forecast {
	seen := make(map[string]bool)
	var out []Forecast
	add := func(id string, p float64) {
		if seen[id] {
			return
		}
		seen[id] = true
		out = append(out, Forecast{GameID: id, Prob: p})
	}
	for _, d := range report.Decisions {
		if d.Side == models.SideHome {
			add(d.GameID, d.ModelProb)
		}
	}
	for _, np := range report.NoPicks {
		if np.Side == models.SideHome {
			add(np.GameID, np.ModelProb)
		}
	}
	for _, d := range report.Decisions {
		if d.Side == models.SideAway {
			add(d.GameID, 1-d.ModelProb)
		}
	}
	return out
}
