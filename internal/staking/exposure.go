package staking

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/yourusername/linelogic/internal/models"
)

// ErrExposureLimit is returned when a candidate has no remaining capacity.
var ErrExposureLimit = errors.New("staking: exposure limit reached")

// ExposureCaps are limits as fractions of bankroll.
type ExposureCaps struct {
	MaxPerBet  float64 `mapstructure:"max_per_bet" json:"max_per_bet" validate:"gt=0,lte=1"`
	MaxPerGame float64 `mapstructure:"max_per_game" json:"max_per_game" validate:"gt=0,lte=1"`
	MaxPerDay  float64 `mapstructure:"max_per_day" json:"max_per_day" validate:"gt=0,lte=1"`
	MaxPerTeam float64 `mapstructure:"max_per_team" json:"max_per_team" validate:"gt=0,lte=1"`
}

// DefaultCaps returns 5% per bet, 10% per game, 20% per day and 10% per team.
func DefaultCaps() ExposureCaps {
	return ExposureCaps{
		MaxPerBet:  0.05,
		MaxPerGame: 0.10,
		MaxPerDay:  0.20,
		MaxPerTeam: 0.10,
	}
}

// Candidate identifies what a bet is exposed to.
type Candidate struct {
	GameID string
	Day    time.Time
	Team   string
	Player string
}

// Correlated reports whether c shares a game, team or player with any
// existing bet.
func Correlated(existing []Candidate, c Candidate) bool {
	for _, b := range existing {
		if c.GameID != "" && b.GameID == c.GameID {
			return true
		}
		if c.Team != "" && b.Team == c.Team {
			return true
		}
		if c.Player != "" && b.Player == c.Player {
			return true
		}
	}
	return false
}

// ExposureMetrics summarizes tracked exposure.
type ExposureMetrics struct {
	Bankroll      decimal.Decimal `json:"bankroll"`
	TotalExposure decimal.Decimal `json:"total_exposure"`
	Bets          int             `json:"bets"`
	Trimmed       int             `json:"trimmed"`
	Rejected      int             `json:"rejected"`
	LastUpdate    time.Time       `json:"last_update"`
}

// ExposureTracker enforces per-game, per-day and per-team caps across a batch
// of candidate bets.
type ExposureTracker struct {
	caps     ExposureCaps
	bankroll decimal.Decimal
	perGame  map[string]decimal.Decimal
	perDay   map[string]decimal.Decimal
	perTeam  map[string]decimal.Decimal
	total    decimal.Decimal
	placed   []Candidate
	trimmed  int
	rejected int
	mu       sync.RWMutex
	logger   *logrus.Logger
}

// NewExposureTracker creates a tracker for a bankroll.
func NewExposureTracker(caps ExposureCaps, bankroll decimal.Decimal, logger *logrus.Logger) *ExposureTracker {
	if logger == nil {
		logger = logrus.New()
	}
	return &ExposureTracker{
		caps:     caps,
		bankroll: bankroll,
		perGame:  make(map[string]decimal.Decimal),
		perDay:   make(map[string]decimal.Decimal),
		perTeam:  make(map[string]decimal.Decimal),
		logger:   logger,
	}
}

func (t *ExposureTracker) limit(frac float64) decimal.Decimal {
	return t.bankroll.Mul(decimal.NewFromFloat(frac)).Truncate(2)
}

func dayKey(d time.Time) string {
	return models.Day(d).Format(models.DateLayout)
}

// Remaining returns the largest stake c could still take.
func (t *ExposureTracker) Remaining(c Candidate) decimal.Decimal {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.remaining(c)
}

func (t *ExposureTracker) remaining(c Candidate) decimal.Decimal {
	room := t.limit(t.caps.MaxPerBet)
	if c.GameID != "" {
		room = decimal.Min(room, t.limit(t.caps.MaxPerGame).Sub(t.perGame[c.GameID]))
	}
	if !c.Day.IsZero() {
		room = decimal.Min(room, t.limit(t.caps.MaxPerDay).Sub(t.perDay[dayKey(c.Day)]))
	}
	if c.Team != "" {
		room = decimal.Min(room, t.limit(t.caps.MaxPerTeam).Sub(t.perTeam[c.Team]))
	}
	if room.IsNegative() {
		return decimal.Zero
	}
	return room
}

// Reserve records a stake against every cap c touches, trimming it to the
// remaining capacity. It returns the stake actually reserved, or
// ErrExposureLimit when nothing remains.
func (t *ExposureTracker) Reserve(c Candidate, stake decimal.Decimal) (decimal.Decimal, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	room := t.remaining(c)
	if !room.IsPositive() {
		t.rejected++
		t.logger.WithFields(logrus.Fields{
			"game_id":  c.GameID,
			"team":     c.Team,
			"proposed": stake.String(),
		}).Debug("Exposure limit reached, candidate rejected")
		return decimal.Zero, fmt.Errorf("%w: game=%s team=%s", ErrExposureLimit, c.GameID, c.Team)
	}

	allowed := stake
	if stake.GreaterThan(room) {
		allowed = room
		t.trimmed++
		t.logger.WithFields(logrus.Fields{
			"game_id":  c.GameID,
			"team":     c.Team,
			"proposed": stake.String(),
			"allowed":  allowed.String(),
		}).Debug("Stake trimmed to remaining exposure")
	}

	if c.GameID != "" {
		t.perGame[c.GameID] = t.perGame[c.GameID].Add(allowed)
	}
	if !c.Day.IsZero() {
		k := dayKey(c.Day)
		t.perDay[k] = t.perDay[k].Add(allowed)
	}
	if c.Team != "" {
		t.perTeam[c.Team] = t.perTeam[c.Team].Add(allowed)
	}
	t.total = t.total.Add(allowed)
	t.placed = append(t.placed, c)
	return allowed, nil
}

// Correlated reports whether c overlaps a bet already reserved.
func (t *ExposureTracker) Correlated(c Candidate) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return Correlated(t.placed, c)
}

// GetMetrics returns a snapshot for monitoring.
func (t *ExposureTracker) GetMetrics() ExposureMetrics {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return ExposureMetrics{
		Bankroll:      t.bankroll,
		TotalExposure: t.total,
		Bets:          len(t.placed),
		Trimmed:       t.trimmed,
		Rejected:      t.rejected,
		LastUpdate:    time.Now(),
	}
}
