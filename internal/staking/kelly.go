// Package staking sizes bets with fractional Kelly and enforces exposure caps.
package staking

import (
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

var (
	// ErrInvalidFraction is returned for a Kelly fraction outside (0, 1].
	ErrInvalidFraction = errors.New("staking: kelly fraction must be in (0, 1]")

	// ErrInvalidBankroll is returned for a negative bankroll.
	ErrInvalidBankroll = errors.New("staking: bankroll must not be negative")

	// ErrNonFinite is returned when a probability or price is NaN or infinite.
	ErrNonFinite = errors.New("staking: probability and odds must be finite")
)

// kellyNoise absorbs rounding at exactly break-even prices.
const kellyNoise = 1e-12

// ThresholdPolicy decides whether an edge equal to the minimum qualifies.
type ThresholdPolicy string

const (
	// ThresholdStrict requires edge > min edge.
	ThresholdStrict ThresholdPolicy = "strict"
	// ThresholdInclusive accepts edge >= min edge.
	ThresholdInclusive ThresholdPolicy = "inclusive"
)

// Config holds sizing parameters. The two haircuts are heuristics carried
// over from the paper-trading model, not derived from a loss function.
type Config struct {
	KellyFraction      float64         `mapstructure:"kelly_fraction" validate:"gt=0,lte=1"`
	MinEdge            float64         `mapstructure:"min_edge" validate:"gte=0,lt=1"`
	ThresholdPolicy    ThresholdPolicy `mapstructure:"threshold_policy" validate:"omitempty,threshold_policy"`
	PlusMoneyThreshold float64         `mapstructure:"plus_money_threshold" validate:"gte=1"`
	PlusMoneyHaircut   float64         `mapstructure:"plus_money_haircut" validate:"gt=0,lte=1"`
	MarginalKelly      float64         `mapstructure:"marginal_kelly" validate:"gte=0,lt=1"`
	MarginalHaircut    float64         `mapstructure:"marginal_haircut" validate:"gt=0,lte=1"`
	Caps               ExposureCaps    `mapstructure:"caps"`
}

// DefaultConfig returns quarter Kelly with a 1% strict edge floor.
func DefaultConfig() Config {
	return Config{
		KellyFraction:      0.25,
		MinEdge:            0.01,
		ThresholdPolicy:    ThresholdStrict,
		PlusMoneyThreshold: 2.0,
		PlusMoneyHaircut:   0.8,
		MarginalKelly:      0.05,
		MarginalHaircut:    0.5,
		Caps:               DefaultCaps(),
	}
}

// StakeResult explains how a stake was derived.
type StakeResult struct {
	FullKelly       float64         `json:"full_kelly"`
	FractionalKelly float64         `json:"fractional_kelly"`
	CappedFraction  float64         `json:"capped_fraction"`
	Capped          bool            `json:"capped"`
	Stake           decimal.Decimal `json:"stake"`
	Explanation     string          `json:"explanation"`
}

// Engine converts a win probability and price into a stake. It guarantees
// only the per-bet cap; cross-bet caps belong to ExposureTracker.
type Engine struct {
	cfg    Config
	logger *logrus.Logger
}

// NewEngine creates a staking engine.
func NewEngine(cfg Config, logger *logrus.Logger) *Engine {
	if logger == nil {
		logger = logrus.New()
	}
	if cfg.ThresholdPolicy == "" {
		cfg.ThresholdPolicy = ThresholdStrict
	}
	return &Engine{cfg: cfg, logger: logger}
}

// Config returns the engine configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// KellyFraction returns the full Kelly share of bankroll in [0, 1). Out of
// range or non-finite inputs and non-positive edges return 0, meaning no bet.
func (e *Engine) KellyFraction(pWin, decimalOdds float64) float64 {
	if !finite(pWin, decimalOdds) || pWin <= 0 || pWin >= 1 || decimalOdds <= 1 {
		return 0
	}

	// Kelly: f = (b*p - q) / b with b the net payout per unit staked
	b := decimalOdds - 1
	if decimalOdds > e.cfg.PlusMoneyThreshold {
		b *= e.cfg.PlusMoneyHaircut
	}
	q := 1 - pWin
	kelly := (pWin*b - q) / b

	if kelly < e.cfg.MarginalKelly {
		kelly *= e.cfg.MarginalHaircut
	}
	if kelly <= kellyNoise {
		return 0
	}
	return kelly
}

// FractionalKelly scales full Kelly by fraction.
func (e *Engine) FractionalKelly(pWin, decimalOdds, fraction float64) (float64, error) {
	if !(fraction > 0 && fraction <= 1) {
		return 0, fmt.Errorf("%w: got %v", ErrInvalidFraction, fraction)
	}
	return e.KellyFraction(pWin, decimalOdds) * fraction, nil
}

// CalculateStake applies fractional Kelly then the per-bet cap. The stake is
// truncated to cents so it never exceeds bankroll times caps.MaxPerBet.
func (e *Engine) CalculateStake(pWin, decimalOdds float64, bankroll decimal.Decimal, fraction float64, caps ExposureCaps) (StakeResult, error) {
	if bankroll.IsNegative() {
		return StakeResult{}, fmt.Errorf("%w: %s", ErrInvalidBankroll, bankroll)
	}
	if !finite(pWin, decimalOdds) {
		return StakeResult{}, fmt.Errorf("%w: p_win=%v decimal_odds=%v", ErrNonFinite, pWin, decimalOdds)
	}
	frac, err := e.FractionalKelly(pWin, decimalOdds, fraction)
	if err != nil {
		return StakeResult{}, err
	}
	full := e.KellyFraction(pWin, decimalOdds)

	capped := frac
	if caps.MaxPerBet >= 0 && capped > caps.MaxPerBet {
		capped = caps.MaxPerBet
	}

	stake := bankroll.Mul(decimal.NewFromFloat(capped)).Truncate(2)
	res := StakeResult{
		FullKelly:       full,
		FractionalKelly: frac,
		CappedFraction:  capped,
		Capped:          capped < frac,
		Stake:           stake,
	}
	res.Explanation = explain(res, fraction, caps.MaxPerBet)

	e.logger.WithFields(logrus.Fields{
		"p_win":            pWin,
		"decimal_odds":     decimalOdds,
		"bankroll":         bankroll.String(),
		"kelly_fraction":   full,
		"fractional_kelly": frac,
		"stake":            stake.String(),
	}).Debug("Stake calculated")

	return res, nil
}

func finite(values ...float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Stake sizes with the engine's configured fraction and caps.
func (e *Engine) Stake(pWin, decimalOdds float64, bankroll decimal.Decimal) (StakeResult, error) {
	return e.CalculateStake(pWin, decimalOdds, bankroll, e.cfg.KellyFraction, e.cfg.Caps)
}

// Qualifies reports whether edge clears the minimum under the threshold policy.
func (e *Engine) Qualifies(edge float64) bool {
	return Qualifies(edge, e.cfg.MinEdge, e.cfg.ThresholdPolicy)
}

// Qualifies applies a threshold policy to an edge.
func Qualifies(edge, minEdge float64, policy ThresholdPolicy) bool {
	if policy == ThresholdInclusive {
		return edge >= minEdge
	}
	return edge > minEdge
}

func explain(r StakeResult, fraction, maxPerBet float64) string {
	s := fmt.Sprintf("Full Kelly: %.1f%% -> Fractional (%gx): %.1f%% -> ",
		r.FullKelly*100, fraction, r.FractionalKelly*100)
	if r.Capped {
		return s + fmt.Sprintf("Capped at %.1f%%: $%s", maxPerBet*100, r.Stake.StringFixed(2))
	}
	return s + "$" + r.Stake.StringFixed(2)
}
