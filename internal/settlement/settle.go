// Package settlement grades stake decisions against final scores and keeps
// the bankroll ledger.
package settlement

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/yourusername/linelogic/internal/eval"
	"github.com/yourusername/linelogic/internal/models"
)

var (
	// ErrGameNotFinal is returned when a game has no final score yet.
	ErrGameNotFinal = errors.New("game not final")
	// ErrGameMismatch is returned when a decision is settled against the wrong game.
	ErrGameMismatch = errors.New("decision does not belong to game")
)

// Grade returns the outcome of a selection given final scores. A tied final
// is a push.
func Grade(side models.Side, homeScore, awayScore int) models.Outcome {
	switch {
	case homeScore == awayScore:
		return models.OutcomePush
	case side == models.SideHome && homeScore > awayScore,
		side == models.SideAway && awayScore > homeScore:
		return models.OutcomeWin
	default:
		return models.OutcomeLoss
	}
}

// ProfitLoss returns the realized result of a stake at decimal odds, rounded
// to cents.
func ProfitLoss(outcome models.Outcome, stake decimal.Decimal, decimalOdds float64) decimal.Decimal {
	switch outcome {
	case models.OutcomeWin:
		return stake.Mul(decimal.NewFromFloat(decimalOdds - 1)).Round(2)
	case models.OutcomeLoss:
		return stake.Neg()
	default:
		return decimal.Zero
	}
}

// Settle grades d against its completed game.
func Settle(d models.StakeDecision, g models.GameRecord, at time.Time) (models.Settlement, error) {
	if g.Key() != d.GameID {
		return models.Settlement{}, fmt.Errorf("%w: decision %s is for %s, got %s", ErrGameMismatch, d.ID, d.GameID, g.Key())
	}
	if !g.IsCompleted() {
		return models.Settlement{}, fmt.Errorf("%w: %s", ErrGameNotFinal, g.Key())
	}

	hs, as := *g.HomeScore, *g.AwayScore
	outcome := Grade(d.Side, hs, as)
	return models.Settlement{
		ID:         uuid.New(),
		DecisionID: d.ID,
		Outcome:    outcome,
		HomeScore:  hs,
		AwayScore:  as,
		ProfitLoss: ProfitLoss(outcome, d.StakeAmount, d.DecimalOdds),
		SettledAt:  at.UTC(),
	}, nil
}

// Summary aggregates a set of settlements.
type Summary struct {
	Date        time.Time           `json:"date"`
	Settled     int                 `json:"settled"`
	Pending     int                 `json:"pending"`
	Wins        int                 `json:"wins"`
	Losses      int                 `json:"losses"`
	Pushes      int                 `json:"pushes"`
	Staked      decimal.Decimal     `json:"staked"`
	ProfitLoss  decimal.Decimal     `json:"profit_loss"`
	ROI         float64             `json:"roi"`
	WinRate     float64             `json:"win_rate"`
	AverageCLV  *float64            `json:"average_clv,omitempty"`
	Forecast    *eval.Summary       `json:"forecast,omitempty"`
	Settlements []models.Settlement `json:"settlements"`
}

// Summarize totals settlements against the decisions they settle. Decisions
// without a settlement are ignored. ROI is profit over amount staked; win
// rate excludes pushes.
func Summarize(decisions []models.StakeDecision, settlements []models.Settlement) Summary {
	byID := make(map[uuid.UUID]models.StakeDecision, len(decisions))
	for _, d := range decisions {
		byID[d.ID] = d
	}

	sum := Summary{
		Staked:      decimal.Zero,
		ProfitLoss:  decimal.Zero,
		Settlements: settlements,
	}
	var preds []float64
	var outcomes []bool
	for _, st := range settlements {
		d, ok := byID[st.DecisionID]
		if !ok {
			continue
		}
		sum.Settled++
		sum.Staked = sum.Staked.Add(d.StakeAmount)
		sum.ProfitLoss = sum.ProfitLoss.Add(st.ProfitLoss)
		switch st.Outcome {
		case models.OutcomeWin:
			sum.Wins++
		case models.OutcomeLoss:
			sum.Losses++
		default:
			sum.Pushes++
			continue
		}
		preds = append(preds, d.ModelProb)
		outcomes = append(outcomes, st.Outcome == models.OutcomeWin)
	}

	if sum.Staked.IsPositive() {
		sum.ROI = sum.ProfitLoss.Div(sum.Staked).InexactFloat64()
	}
	if decided := sum.Wins + sum.Losses; decided > 0 {
		sum.WinRate = float64(sum.Wins) / float64(decided)
	}
	if len(preds) > 0 {
		if f, err := eval.Summarize(preds, outcomes); err == nil {
			sum.Forecast = &f
		}
	}
	return sum
}
