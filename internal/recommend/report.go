package recommend

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/yourusername/linelogic/internal/models"
)

// Reason explains why a game or selection produced no decision.
type Reason string

const (
	ReasonNoQuote          Reason = "no_quote"
	ReasonInvalidQuote     Reason = "invalid_quote"
	ReasonMalformed        Reason = "malformed_record"
	ReasonPredictionFailed Reason = "prediction_failed"
	ReasonStakingFailed    Reason = "staking_failed"
	ReasonBelowThreshold   Reason = "edge_below_threshold"
	ReasonNoKelly          Reason = "non_positive_kelly"
	ReasonExposureLimit    Reason = "exposure_limit"
)

// NoPick is a selection that was evaluated and declined. Declining is a
// normal outcome, not a failure.
type NoPick struct {
	GameID    string      `json:"game_id"`
	Matchup   string      `json:"matchup"`
	Side      models.Side `json:"side"`
	ModelProb float64     `json:"model_prob"`
	FairProb  float64     `json:"fair_prob"`
	Edge      float64     `json:"edge"`
	Reason    Reason      `json:"reason"`
}

// Skipped is a game that could not be evaluated.
type Skipped struct {
	GameID  string `json:"game_id"`
	Matchup string `json:"matchup"`
	Reason  Reason `json:"reason"`
	Error   string `json:"error,omitempty"`
}

// Report is the outcome of one RecommendDate run.
type Report struct {
	Date         time.Time              `json:"date"`
	Bankroll     decimal.Decimal        `json:"bankroll"`
	HistoryGames int                    `json:"history_games"`
	SlateGames   int                    `json:"slate_games"`
	Decisions    []models.StakeDecision `json:"decisions"`
	NoPicks      []NoPick               `json:"no_picks"`
	Skipped      []Skipped              `json:"skipped"`
	TotalStaked  decimal.Decimal        `json:"total_staked"`
	AverageEdge  float64                `json:"average_edge"`
	Duration     time.Duration          `json:"duration"`
}

func newReport(day time.Time, bankroll decimal.Decimal) *Report {
	return &Report{
		Date:        day,
		Bankroll:    bankroll,
		Decisions:   []models.StakeDecision{},
		NoPicks:     []NoPick{},
		Skipped:     []Skipped{},
		TotalStaked: decimal.Zero,
	}
}

func (r *Report) skip(g models.GameRecord, reason Reason, err error) {
	s := Skipped{
		GameID:  g.Key(),
		Matchup: matchup(g),
		Reason:  reason,
	}
	if err != nil {
		s.Error = err.Error()
	}
	r.Skipped = append(r.Skipped, s)
}

func (r *Report) finalize() {
	r.TotalStaked = decimal.Zero
	r.AverageEdge = 0
	if len(r.Decisions) == 0 {
		return
	}
	sum := 0.0
	for _, d := range r.Decisions {
		r.TotalStaked = r.TotalStaked.Add(d.StakeAmount)
		sum += d.Edge
	}
	r.AverageEdge = sum / float64(len(r.Decisions))
}

// Exposure returns the share of bankroll staked across the report.
func (r *Report) Exposure() float64 {
	if !r.Bankroll.IsPositive() {
		return 0
	}
	return r.TotalStaked.Div(r.Bankroll).InexactFloat64()
}

// Summary renders a plain text digest for the CLI and logs.
func (r *Report) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Recommendations for %s\n", r.Date.Format(models.DateLayout))
	fmt.Fprintf(&b, "Bankroll: $%s  Games: %d  History: %d\n", r.Bankroll.StringFixed(2), r.SlateGames, r.HistoryGames)

	if len(r.Decisions) == 0 {
		b.WriteString("No bets today.\n")
	}
	for _, d := range r.Decisions {
		fmt.Fprintf(&b, "  %-28s %+5d  p=%.3f  fair=%.3f  edge=%+.1f%%  stake=$%s\n",
			d.Selection, d.AmericanOdds, d.ModelProb, d.FairMarketProb, d.Edge*100, d.StakeAmount.StringFixed(2))
	}
	if len(r.Decisions) > 0 {
		fmt.Fprintf(&b, "Total staked: $%s (%.1f%% of bankroll), average edge %+.1f%%\n",
			r.TotalStaked.StringFixed(2), r.Exposure()*100, r.AverageEdge*100)
	}
	if len(r.NoPicks) > 0 {
		fmt.Fprintf(&b, "Declined: %d\n", len(r.NoPicks))
	}
	for _, s := range r.Skipped {
		fmt.Fprintf(&b, "Skipped %s: %s\n", s.Matchup, s.Reason)
	}
	return b.String()
}

func matchup(g models.GameRecord) string {
	return g.AwayTeam + " @ " + g.HomeTeam
}
