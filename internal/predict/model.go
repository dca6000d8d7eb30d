// Package predict provides home-win probability models over feature vectors.
package predict

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/yourusername/linelogic/internal/features"
	"github.com/yourusername/linelogic/internal/odds"
	"github.com/yourusername/linelogic/internal/rating"
)

var (
	// ErrInvalidPrediction indicates a model returned a value outside (0,1)
	ErrInvalidPrediction = errors.New("invalid prediction")

	// ErrModelUnavailable indicates a remote model could not be reached
	ErrModelUnavailable = errors.New("model unavailable")

	// ErrInvalidWeights indicates a malformed weights file
	ErrInvalidWeights = errors.New("invalid model weights")
)

// Model maps a feature vector to the probability that the home team wins.
type Model interface {
	Predict(ctx context.Context, v features.FeatureVector) (float64, error)
	Version() string
}

// checkProbability rejects NaN and values outside the open unit interval.
func checkProbability(p float64) error {
	if math.IsNaN(p) || p <= 0 || p >= 1 {
		return fmt.Errorf("%w: %v", ErrInvalidPrediction, p)
	}
	return nil
}

// EloModel predicts from the rating features alone.
type EloModel struct {
	homeAdvantage float64
	version       string
}

// NewEloModel creates an Elo baseline using the given home advantage.
func NewEloModel(homeAdvantage float64, version string) *EloModel {
	if version == "" {
		version = "elo"
	}
	return &EloModel{homeAdvantage: homeAdvantage, version: version}
}

// Predict returns the logistic expectation of the home rating plus home
// advantage against the away rating.
func (m *EloModel) Predict(ctx context.Context, v features.FeatureVector) (float64, error) {
	home, ok := v.Get(features.FeatHomeElo)
	if !ok {
		return 0, fmt.Errorf("%w: missing %s", ErrInvalidPrediction, features.FeatHomeElo)
	}
	away, ok := v.Get(features.FeatAwayElo)
	if !ok {
		return 0, fmt.Errorf("%w: missing %s", ErrInvalidPrediction, features.FeatAwayElo)
	}
	p := rating.ExpectedScore(home+m.homeAdvantage, away)
	return odds.ClampProbability(p, odds.DefaultProbabilityEpsilon), nil
}

// Version returns the model version
func (m *EloModel) Version() string {
	return m.version
}
