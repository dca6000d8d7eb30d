package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Side identifies which team a selection backs.
type Side string

const (
	SideHome Side = "home"
	SideAway Side = "away"
)

// Outcome is the settled result of a decision.
type Outcome string

const (
	OutcomeWin  Outcome = "win"
	OutcomeLoss Outcome = "loss"
	OutcomePush Outcome = "push"
)

// StakeDecision is an emitted stake recommendation. It is never mutated after
// creation; settlement is recorded as a separate linked Settlement.
type StakeDecision struct {
	ID                   uuid.UUID       `db:"id" json:"id" validate:"required"`
	GameID               string          `db:"game_id" json:"game_id" validate:"required"`
	GameDate             time.Time       `db:"game_date" json:"game_date" validate:"required"`
	Selection            string          `db:"selection" json:"selection" validate:"required"`
	Side                 Side            `db:"side" json:"side" validate:"required,oneof=home away"`
	Team                 string          `db:"team" json:"team"`
	Opponent             string          `db:"opponent" json:"opponent"`
	ModelProb            float64         `db:"model_prob" json:"model_prob" validate:"gt=0,lt=1"`
	FairMarketProb       float64         `db:"fair_market_prob" json:"fair_market_prob" validate:"gt=0,lt=1"`
	MarketImpliedProb    float64         `db:"market_implied_prob" json:"market_implied_prob"`
	Edge                 float64         `db:"edge" json:"edge"`
	AmericanOdds         int             `db:"american_odds" json:"american_odds"`
	DecimalOdds          float64         `db:"decimal_odds" json:"decimal_odds" validate:"gt=1"`
	KellyFractionRaw     float64         `db:"kelly_fraction_raw" json:"kelly_fraction_raw"`
	KellyFractionApplied float64         `db:"kelly_fraction_applied" json:"kelly_fraction_applied"`
	StakeAmount          decimal.Decimal `db:"stake_amount" json:"stake_amount"`
	BankrollAtTime       decimal.Decimal `db:"bankroll_at_time" json:"bankroll_at_time"`
	ModelVersion         string          `db:"model_version" json:"model_version"`
	Notes                string          `db:"notes" json:"notes,omitempty"`
	CreatedAt            time.Time       `db:"created_at" json:"created_at"`
}

// PotentialProfit returns the profit if the selection wins.
func (d *StakeDecision) PotentialProfit() decimal.Decimal {
	return d.StakeAmount.Mul(decimal.NewFromFloat(d.DecimalOdds - 1)).Round(2)
}

// Settlement links a settled outcome to the decision that produced it.
type Settlement struct {
	ID         uuid.UUID       `db:"id" json:"id"`
	DecisionID uuid.UUID       `db:"decision_id" json:"decision_id" validate:"required"`
	Outcome    Outcome         `db:"outcome" json:"outcome" validate:"required,oneof=win loss push"`
	HomeScore  int             `db:"home_score" json:"home_score"`
	AwayScore  int             `db:"away_score" json:"away_score"`
	ProfitLoss decimal.Decimal `db:"profit_loss" json:"profit_loss"`
	SettledAt  time.Time       `db:"settled_at" json:"settled_at"`
}

// IsWin reports whether the settlement was a win.
func (s *Settlement) IsWin() bool {
	return s.Outcome == OutcomeWin
}
