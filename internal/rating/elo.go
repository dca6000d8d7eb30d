// Package rating maintains Elo-style team strength ratings updated once per
// completed game.
package rating

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
)

var (
	// ErrInvalidScore is returned for negative or otherwise unusable scores.
	ErrInvalidScore = errors.New("rating: invalid score")

	// ErrInvalidTeam is returned for empty or identical team names.
	ErrInvalidTeam = errors.New("rating: invalid team")

	// ErrHyperparameterMismatch is returned when a checkpoint was produced with
	// different hyperparameters than the engine restoring it.
	ErrHyperparameterMismatch = errors.New("rating: checkpoint hyperparameter mismatch")
)

// Config holds the rating hyperparameters.
type Config struct {
	KFactor          float64 `mapstructure:"k_factor" json:"k_factor"`
	HomeAdvantage    float64 `mapstructure:"home_advantage" json:"home_advantage"`
	InitialRating    float64 `mapstructure:"initial_rating" json:"initial_rating"`
	MarginMultiplier float64 `mapstructure:"margin_multiplier" json:"margin_multiplier"`
}

// DefaultConfig returns the standard basketball settings.
func DefaultConfig() Config {
	return Config{
		KFactor:          20,
		HomeAdvantage:    100,
		InitialRating:    1500,
		MarginMultiplier: 1,
	}
}

// Engine stores one rating per team. It is not safe for concurrent use;
// callers that share an engine across goroutines must synchronize or Clone.
type Engine struct {
	cfg     Config
	ratings map[string]float64
}

// NewEngine creates an engine with no rated teams.
func NewEngine(cfg Config) *Engine {
	return &Engine{
		cfg:     cfg,
		ratings: make(map[string]float64),
	}
}

// Config returns the engine hyperparameters.
func (e *Engine) Config() Config {
	return e.cfg
}

// Rating returns the team's rating, inserting it at the initial rating when
// the team has not been seen before.
func (e *Engine) Rating(team string) float64 {
	r, ok := e.ratings[team]
	if !ok {
		r = e.cfg.InitialRating
		e.ratings[team] = r
	}
	return r
}

// Peek returns the team's rating without inserting unseen teams.
func (e *Engine) Peek(team string) float64 {
	if r, ok := e.ratings[team]; ok {
		return r
	}
	return e.cfg.InitialRating
}

// Known reports whether the team has a stored rating.
func (e *Engine) Known(team string) bool {
	_, ok := e.ratings[team]
	return ok
}

// ExpectedScore is the logistic win expectation of a rating a against b.
func ExpectedScore(ratingA, ratingB float64) float64 {
	return 1 / (1 + math.Pow(10, (ratingB-ratingA)/400))
}

// PredictHomeWin returns the home win probability including home advantage.
// It does not insert unseen teams.
func (e *Engine) PredictHomeWin(home, away string) float64 {
	return ExpectedScore(e.Peek(home)+e.cfg.HomeAdvantage, e.Peek(away))
}

// Update applies a completed game and returns the new home and away ratings.
// Input is validated before any rating is touched, and the away change is the
// exact negation of the home change.
func (e *Engine) Update(home, away string, homeScore, awayScore int) (float64, float64, error) {
	if strings.TrimSpace(home) == "" || strings.TrimSpace(away) == "" || home == away {
		return 0, 0, fmt.Errorf("%w: home=%q away=%q", ErrInvalidTeam, home, away)
	}
	if homeScore < 0 || awayScore < 0 {
		return 0, 0, fmt.Errorf("%w: %d-%d", ErrInvalidScore, homeScore, awayScore)
	}

	homeRating := e.Rating(home)
	awayRating := e.Rating(away)

	expectedHome := ExpectedScore(homeRating+e.cfg.HomeAdvantage, awayRating)
	actualHome := 0.0
	winning, losing := awayRating, homeRating
	if homeScore > awayScore {
		actualHome = 1.0
		winning, losing = homeRating, awayRating
	}

	margin := homeScore - awayScore
	if margin < 0 {
		margin = -margin
	}
	kEff := e.cfg.KFactor * e.marginFactor(margin, winning, losing)

	delta := kEff * (actualHome - expectedHome)
	newHome := homeRating + delta
	newAway := awayRating - delta

	e.ratings[home] = newHome
	e.ratings[away] = newAway
	return newHome, newAway, nil
}

// marginFactor scales K by log margin of victory, damped when the higher
// rated side wins.
func (e *Engine) marginFactor(margin int, winningRating, losingRating float64) float64 {
	if margin <= 0 {
		return 1.0
	}
	factor := math.Log(float64(margin)+1) * e.cfg.MarginMultiplier
	if gap := winningRating - losingRating; gap > 0 {
		factor *= 2.2 / (gap*0.001 + 2.2)
	}
	return factor
}

// Ratings returns a copy of all stored ratings.
func (e *Engine) Ratings() map[string]float64 {
	out := make(map[string]float64, len(e.ratings))
	for k, v := range e.ratings {
		out[k] = v
	}
	return out
}

// Standing is a team and its rating.
type Standing struct {
	Team   string  `json:"team"`
	Rating float64 `json:"rating"`
}

// Standings returns teams ordered by rating, highest first.
func (e *Engine) Standings() []Standing {
	out := make([]Standing, 0, len(e.ratings))
	for team, r := range e.ratings {
		out = append(out, Standing{Team: team, Rating: r})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Rating == out[j].Rating {
			return out[i].Team < out[j].Team
		}
		return out[i].Rating > out[j].Rating
	})
	return out
}

// Reset forgets every rating.
func (e *Engine) Reset() {
	e.ratings = make(map[string]float64)
}

// Clone returns an independent copy of the engine.
func (e *Engine) Clone() *Engine {
	return &Engine{cfg: e.cfg, ratings: e.Ratings()}
}
