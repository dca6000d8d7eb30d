package settlement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/linelogic/internal/datasource"
	"github.com/yourusername/linelogic/internal/eval"
	"github.com/yourusername/linelogic/internal/metrics"
	"github.com/yourusername/linelogic/internal/models"
	"github.com/yourusername/linelogic/internal/odds"
	"github.com/yourusername/linelogic/internal/repository"
)

// OutcomeLogger records realized outcomes against routed predictions.
type OutcomeLogger interface {
	LogOutcome(id string, prediction float64, actual *bool) error
}

// ClosingQuotes supplies the last quote captured before a game.
type ClosingQuotes interface {
	ClosingQuote(ctx context.Context, date time.Time, home, away string) (*models.MarketQuote, error)
}

// Settler settles open decisions once their games are final
type Settler struct {
	games       datasource.GameSource
	decisions   repository.DecisionRepository
	settlements repository.SettlementRepository
	closing     ClosingQuotes
	outcomes    OutcomeLogger
	logger      *logrus.Logger
	now         func() time.Time
}

// NewSettler creates a settler. closing and outcomes may be nil.
func NewSettler(
	games datasource.GameSource,
	decisions repository.DecisionRepository,
	settlements repository.SettlementRepository,
	closing ClosingQuotes,
	outcomes OutcomeLogger,
	logger *logrus.Logger,
) *Settler {
	if logger == nil {
		logger = logrus.New()
	}
	return &Settler{
		games:       games,
		decisions:   decisions,
		settlements: settlements,
		closing:     closing,
		outcomes:    outcomes,
		logger:      logger,
		now:         time.Now,
	}
}

// SettleDate settles every open decision for games on or before date. Games
// that are not final yet stay open and are counted as pending.
func (s *Settler) SettleDate(ctx context.Context, date time.Time) (*Summary, error) {
	through := models.Day(date)
	open, err := s.decisions.GetOpen(ctx, through)
	if err != nil {
		return nil, fmt.Errorf("failed to load open decisions: %w", err)
	}
	if len(open) == 0 {
		sum := Summarize(nil, nil)
		sum.Date = through
		return &sum, nil
	}

	earliest := open[0].GameDate
	for _, d := range open {
		if d.GameDate.Before(earliest) {
			earliest = d.GameDate
		}
	}
	games, err := s.games.GamesBetween(ctx, earliest, through)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch results from %s: %w", s.games.Name(), err)
	}
	byKey := make(map[string]models.GameRecord, len(games))
	for _, g := range games {
		byKey[g.Key()] = g
	}

	now := s.now()
	var settled []models.Settlement
	var graded []models.StakeDecision
	pending := 0
	for _, d := range open {
		g, ok := byKey[d.GameID]
		if !ok || !g.IsCompleted() {
			pending++
			continue
		}
		st, err := Settle(d, g, now)
		if err != nil {
			s.logger.WithFields(logrus.Fields{"decision": d.ID, "error": err}).Warn("Cannot settle decision")
			pending++
			continue
		}
		settled = append(settled, st)
		graded = append(graded, d)
	}

	if err := s.settlements.SaveSettlements(ctx, settled); err != nil {
		return nil, fmt.Errorf("failed to save settlements: %w", err)
	}

	sum := Summarize(graded, settled)
	sum.Date = through
	sum.Pending = pending
	sum.AverageCLV = s.averageCLV(ctx, graded)

	s.logOutcomes(graded, byKey)
	for _, st := range settled {
		metrics.RecordSettlement(string(st.Outcome))
	}
	if total, err := s.settlements.TotalProfitLoss(ctx); err == nil {
		metrics.UpdateRealizedPnL(total.InexactFloat64())
	}

	s.logger.WithFields(logrus.Fields{
		"through":     through.Format(models.DateLayout),
		"settled":     sum.Settled,
		"pending":     sum.Pending,
		"profit_loss": sum.ProfitLoss.StringFixed(2),
		"roi":         sum.ROI,
	}).Info("Settlement complete")

	return &sum, nil
}

// averageCLV compares each decision's fair probability with the closing
// line's. It returns nil when no closing quotes are available.
func (s *Settler) averageCLV(ctx context.Context, decisions []models.StakeDecision) *float64 {
	if s.closing == nil || len(decisions) == 0 {
		return nil
	}
	total, n := 0.0, 0
	for _, d := range decisions {
		home, away := d.Team, d.Opponent
		if d.Side == models.SideAway {
			home, away = d.Opponent, d.Team
		}
		q, err := s.closing.ClosingQuote(ctx, d.GameDate, home, away)
		if err != nil {
			if !errors.Is(err, models.ErrNotFound) {
				s.logger.WithError(err).Debug("Closing quote lookup failed")
			}
			continue
		}
		fairHome, fairAway, err := odds.RemoveVigTwoWay(
			odds.AmericanToImpliedProb(q.HomePrice), odds.AmericanToImpliedProb(q.AwayPrice))
		if err != nil {
			continue
		}
		closeProb := fairHome
		if d.Side == models.SideAway {
			closeProb = fairAway
		}
		total += eval.CLV(d.FairMarketProb, closeProb)
		n++
	}
	if n == 0 {
		return nil
	}
	avg := total / float64(n)
	return &avg
}

// logOutcomes writes one outcome per game in home-win terms.
func (s *Settler) logOutcomes(decisions []models.StakeDecision, games map[string]models.GameRecord) {
	if s.outcomes == nil {
		return
	}
	seen := make(map[string]struct{}, len(decisions))
	for _, d := range decisions {
		if _, ok := seen[d.GameID]; ok {
			continue
		}
		seen[d.GameID] = struct{}{}

		g := games[d.GameID]
		if *g.HomeScore == *g.AwayScore {
			continue
		}
		homeProb := d.ModelProb
		if d.Side == models.SideAway {
			homeProb = 1 - d.ModelProb
		}
		won := g.HomeWin()
		if err := s.outcomes.LogOutcome(d.GameID, homeProb, &won); err != nil {
			s.logger.WithError(err).Warn("Failed to log model outcome")
		}
	}
}

// Ledger derives the live bankroll from the starting bankroll and realized
// profit and loss.
type Ledger struct {
	initial     decimal.Decimal
	settlements repository.SettlementRepository
}

// NewLedger creates a ledger
func NewLedger(initial decimal.Decimal, settlements repository.SettlementRepository) *Ledger {
	return &Ledger{initial: initial, settlements: settlements}
}

// CurrentBankroll returns initial bankroll plus realized P/L.
func (l *Ledger) CurrentBankroll(ctx context.Context) (decimal.Decimal, error) {
	pnl, err := l.settlements.TotalProfitLoss(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	return l.initial.Add(pnl), nil
}
