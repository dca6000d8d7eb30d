// Package odds converts between price formats, removes bookmaker margin and
// computes edge and expected value. All functions are pure.
package odds

import (
	"errors"
	"fmt"
	"math"
)

// ErrDomain is returned for inputs outside a function's valid domain.
var ErrDomain = errors.New("odds: value outside domain")

// DefaultProbabilityEpsilon keeps clamped probabilities away from 0 and 1.
const DefaultProbabilityEpsilon = 1e-15

// AmericanToImpliedProb converts American odds to implied probability.
// Zero is treated as even money.
func AmericanToImpliedProb(american int) float64 {
	o := float64(american)
	switch {
	case american > 0:
		return 100 / (o + 100)
	case american < 0:
		return -o / (-o + 100)
	default:
		return 0.5
	}
}

// ImpliedProbToAmerican converts a probability in (0,1) to American odds.
// Even money is reported as +100, never -100.
func ImpliedProbToAmerican(p float64) (int, error) {
	if err := checkProbability(p); err != nil {
		return 0, err
	}
	switch {
	case p == 0.5:
		return 100, nil
	case p < 0.5:
		return int(math.Round(100/p - 100)), nil
	default:
		return int(math.Round(-(100 * p) / (1 - p))), nil
	}
}

// DecimalToImpliedProb converts decimal odds to implied probability.
func DecimalToImpliedProb(decimalOdds float64) (float64, error) {
	if math.IsNaN(decimalOdds) || decimalOdds <= 1 {
		return 0, fmt.Errorf("%w: decimal odds must be > 1, got %v", ErrDomain, decimalOdds)
	}
	return 1 / decimalOdds, nil
}

// ImpliedProbToDecimal converts a probability in (0,1) to decimal odds.
func ImpliedProbToDecimal(p float64) (float64, error) {
	if err := checkProbability(p); err != nil {
		return 0, err
	}
	return 1 / p, nil
}

// AmericanToDecimal converts American odds to decimal odds. Prices strictly
// between -100 and +100 (other than 0) are not valid American odds.
func AmericanToDecimal(american int) (float64, error) {
	if american != 0 && american > -100 && american < 100 {
		return 0, fmt.Errorf("%w: american odds must satisfy |odds| >= 100, got %d", ErrDomain, american)
	}
	return ImpliedProbToDecimal(AmericanToImpliedProb(american))
}

// DecimalToAmerican converts decimal odds to American odds. Decimal 2.0 maps
// to +100, so -100 does not round-trip to itself.
func DecimalToAmerican(decimalOdds float64) (int, error) {
	p, err := DecimalToImpliedProb(decimalOdds)
	if err != nil {
		return 0, err
	}
	return ImpliedProbToAmerican(p)
}

// RemoveVigTwoWay normalizes two implied probabilities proportionally so the
// fair pair sums to one.
func RemoveVigTwoWay(probA, probB float64) (float64, float64, error) {
	if math.IsNaN(probA) || math.IsNaN(probB) || probA < 0 || probB < 0 {
		return 0, 0, fmt.Errorf("%w: implied probabilities must be non-negative, got %v and %v", ErrDomain, probA, probB)
	}
	total := probA + probB
	if total == 0 {
		return 0, 0, fmt.Errorf("%w: sum of probabilities cannot be zero", ErrDomain)
	}
	fairA := probA / total
	return fairA, 1 - fairA, nil
}

// Edge is the model probability minus the fair market probability.
func Edge(modelProb, fairMarketProb float64) float64 {
	return modelProb - fairMarketProb
}

// ExpectedValue returns p*payout - (1-p)*stake, where payout excludes the stake.
func ExpectedValue(pWin, payout, stake float64) float64 {
	return pWin*payout - (1-pWin)*stake
}

// BreakEvenWinRate is the win rate needed for zero return at the given price.
func BreakEvenWinRate(american int) float64 {
	return AmericanToImpliedProb(american)
}

// PayoutFromAmerican returns the profit, excluding stake, of a winning bet.
func PayoutFromAmerican(american int, stake float64) float64 {
	switch {
	case american > 0:
		return stake * float64(american) / 100
	case american < 0:
		return stake * 100 / -float64(american)
	default:
		return stake
	}
}

// ClampProbability pins p into [eps, 1-eps] so it is safe for logarithms.
func ClampProbability(p, eps float64) float64 {
	if eps <= 0 {
		eps = DefaultProbabilityEpsilon
	}
	return math.Max(eps, math.Min(1-eps, p))
}

// Logit returns log(p/(1-p)) after clamping p into the open unit interval.
func Logit(p float64) float64 {
	c := ClampProbability(p, DefaultProbabilityEpsilon)
	return math.Log(c / (1 - c))
}

func checkProbability(p float64) error {
	if math.IsNaN(p) || p <= 0 || p >= 1 {
		return fmt.Errorf("%w: probability must be between 0 and 1, got %v", ErrDomain, p)
	}
	return nil
}
