// Package eval scores probability forecasts against realized outcomes.
package eval

import (
	"errors"
	"fmt"
	"math"

	"github.com/yourusername/linelogic/internal/odds"
)

var (
	ErrLengthMismatch  = errors.New("eval: predictions and outcomes differ in length")
	ErrEmpty           = errors.New("eval: no predictions")
	ErrInvalidForecast = errors.New("eval: prediction outside [0, 1]")
)

func check(preds []float64, outcomes []bool) error {
	if len(preds) != len(outcomes) {
		return fmt.Errorf("%w: %d predictions, %d outcomes", ErrLengthMismatch, len(preds), len(outcomes))
	}
	if len(preds) == 0 {
		return ErrEmpty
	}
	for _, p := range preds {
		if math.IsNaN(p) || p < 0 || p > 1 {
			return fmt.Errorf("%w: %v", ErrInvalidForecast, p)
		}
	}
	return nil
}

func label(won bool) float64 {
	if won {
		return 1
	}
	return 0
}

// Brier is the mean squared error of the forecasts.
func Brier(preds []float64, outcomes []bool) (float64, error) {
	if err := check(preds, outcomes); err != nil {
		return 0, err
	}
	sum := 0.0
	for i, p := range preds {
		d := p - label(outcomes[i])
		sum += d * d
	}
	return sum / float64(len(preds)), nil
}

// LogLoss is the mean negative log likelihood, with forecasts clamped away
// from 0 and 1 before taking logs.
func LogLoss(preds []float64, outcomes []bool) (float64, error) {
	if err := check(preds, outcomes); err != nil {
		return 0, err
	}
	sum := 0.0
	for i, p := range preds {
		p = odds.ClampProbability(p, odds.DefaultProbabilityEpsilon)
		if outcomes[i] {
			sum -= math.Log(p)
		} else {
			sum -= math.Log(1 - p)
		}
	}
	return sum / float64(len(preds)), nil
}

// Accuracy is the share of forecasts on the right side of 0.5.
func Accuracy(preds []float64, outcomes []bool) (float64, error) {
	if err := check(preds, outcomes); err != nil {
		return 0, err
	}
	hits := 0
	for i, p := range preds {
		if (p > 0.5) == outcomes[i] {
			hits++
		}
	}
	return float64(hits) / float64(len(preds)), nil
}

// CalibrationBucket groups forecasts in [Min, Max).
type CalibrationBucket struct {
	Min          float64 `json:"min_prob"`
	Max          float64 `json:"max_prob"`
	AvgPredicted float64 `json:"avg_predicted"`
	Wins         int     `json:"wins"`
	Total        int     `json:"total"`
	WinRate      float64 `json:"empirical_win_rate"`
}

// Calibration splits [0, 1] into n equal buckets and reports non-empty ones.
// The last bucket includes 1.0.
func Calibration(preds []float64, outcomes []bool, n int) ([]CalibrationBucket, error) {
	if len(preds) != len(outcomes) {
		return nil, fmt.Errorf("%w: %d predictions, %d outcomes", ErrLengthMismatch, len(preds), len(outcomes))
	}
	if n <= 0 {
		n = 10
	}
	sums := make([]float64, n)
	wins := make([]int, n)
	totals := make([]int, n)
	for i, p := range preds {
		if math.IsNaN(p) || p < 0 || p > 1 {
			return nil, fmt.Errorf("%w: %v", ErrInvalidForecast, p)
		}
		b := int(p * float64(n))
		if b >= n {
			b = n - 1
		}
		sums[b] += p
		totals[b]++
		if outcomes[i] {
			wins[b]++
		}
	}

	var out []CalibrationBucket
	for b := 0; b < n; b++ {
		if totals[b] == 0 {
			continue
		}
		out = append(out, CalibrationBucket{
			Min:          float64(b) / float64(n),
			Max:          float64(b+1) / float64(n),
			AvgPredicted: sums[b] / float64(totals[b]),
			Wins:         wins[b],
			Total:        totals[b],
			WinRate:      float64(wins[b]) / float64(totals[b]),
		})
	}
	return out, nil
}

// CLV is closing line value for the backed side: positive when the market
// moved toward the selection after the bet.
func CLV(openProb, closeProb float64) float64 {
	return closeProb - openProb
}

// Summary bundles the headline scores for a set of forecasts.
type Summary struct {
	Count    int     `json:"count"`
	Brier    float64 `json:"brier"`
	LogLoss  float64 `json:"log_loss"`
	Accuracy float64 `json:"accuracy"`
}

// Summarize computes Brier, log loss and accuracy together.
func Summarize(preds []float64, outcomes []bool) (Summary, error) {
	brier, err := Brier(preds, outcomes)
	if err != nil {
		return Summary{}, err
	}
	ll, _ := LogLoss(preds, outcomes)
	acc, _ := Accuracy(preds, outcomes)
	return Summary{Count: len(preds), Brier: brier, LogLoss: ll, Accuracy: acc}, nil
}
