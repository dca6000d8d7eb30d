package ingest

import (
	"fmt"
	"time"

	"github.com/yourusername/linelogic/internal/models"
)

// Validator checks provider records before they are stored
type Validator struct {
	now       func() time.Time
	maxScore  int
	maxAhead  time.Duration
	maxMargin float64
}

// NewValidator creates a validator with basketball limits
func NewValidator() *Validator {
	return &Validator{
		now:       time.Now,
		maxScore:  250,
		maxAhead:  365 * 24 * time.Hour,
		maxMargin: 0.25,
	}
}

// ValidateGame validates game data for required fields and constraints
func (v *Validator) ValidateGame(g models.GameRecord) []string {
	var errors []string

	if err := g.Validate(); err != nil {
		errors = append(errors, err.Error())
	}
	if g.HomeScore != nil && *g.HomeScore > v.maxScore {
		errors = append(errors, fmt.Sprintf("home score out of range (0-%d), got %d", v.maxScore, *g.HomeScore))
	}
	if g.AwayScore != nil && *g.AwayScore > v.maxScore {
		errors = append(errors, fmt.Sprintf("away score out of range (0-%d), got %d", v.maxScore, *g.AwayScore))
	}
	if (g.HomeScore == nil) != (g.AwayScore == nil) {
		errors = append(errors, "scores must be both set or both empty")
	}
	if g.Date.After(v.now().Add(v.maxAhead)) {
		errors = append(errors, "game scheduled more than 1 year in future")
	}

	return errors
}

// ValidateQuote validates a market snapshot
func (v *Validator) ValidateQuote(q models.MarketQuote) []string {
	var errors []string

	if q.Date.IsZero() {
		errors = append(errors, "date is required")
	}
	if q.HomeTeam == "" || q.AwayTeam == "" {
		errors = append(errors, "home and away teams are required")
	} else if q.HomeTeam == q.AwayTeam {
		errors = append(errors, fmt.Sprintf("team %q cannot play itself", q.HomeTeam))
	}
	if !validAmerican(q.HomePrice) {
		errors = append(errors, fmt.Sprintf("invalid home price %d", q.HomePrice))
	}
	if !validAmerican(q.AwayPrice) {
		errors = append(errors, fmt.Sprintf("invalid away price %d", q.AwayPrice))
	}
	if q.HomeImpliedProb <= 0 || q.HomeImpliedProb >= 1 || q.AwayImpliedProb <= 0 || q.AwayImpliedProb >= 1 {
		errors = append(errors, "implied probabilities must be in (0, 1)")
	} else if o := q.Overround(); o < 0 || o > v.maxMargin {
		errors = append(errors, fmt.Sprintf("overround out of range (0-%.2f), got %.4f", v.maxMargin, o))
	}
	if q.CapturedAt.IsZero() {
		errors = append(errors, "captured_at is required")
	}

	return errors
}

// American prices live outside (-100, 100).
func validAmerican(price int) bool {
	return price >= 100 || price <= -100
}
