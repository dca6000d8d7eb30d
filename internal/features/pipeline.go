// Package features turns an ordered stream of games into per-game feature
// vectors computed strictly from information available before each game.
package features

import (
	"errors"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"
	"github.com/yourusername/linelogic/internal/models"
	"github.com/yourusername/linelogic/internal/rating"
)

// ErrMalformedGame is returned for records missing a required field.
var ErrMalformedGame = models.ErrMalformedGame

// Isolation controls what a malformed record does to the rest of a batch.
type Isolation string

const (
	// IsolationRecord skips the bad record and keeps going.
	IsolationRecord Isolation = "record"
	// IsolationBatch aborts the batch at the first bad record.
	IsolationBatch Isolation = "batch"
)

// Config tunes the rolling windows and priors.
type Config struct {
	Window      int       `mapstructure:"window" validate:"min=1"`
	RestPrior   int       `mapstructure:"rest_prior" validate:"min=0"`
	MaxRestDays int       `mapstructure:"max_rest_days" validate:"min=0"`
	TopPlayers  int       `mapstructure:"top_players" validate:"min=0"`
	Isolation   Isolation `mapstructure:"isolation" validate:"omitempty,isolation"`
}

// DefaultConfig returns a ten game window with a fully rested prior.
func DefaultConfig() Config {
	return Config{
		Window:      10,
		RestPrior:   3,
		MaxRestDays: 7,
		TopPlayers:  3,
		Isolation:   IsolationRecord,
	}
}

// SkipReason explains why a record produced no vector.
type SkipReason string

const (
	SkipNone        SkipReason = ""
	SkipMalformed   SkipReason = "malformed_record"
	SkipUpdateError SkipReason = "state_update_failed"
)

// Result is the per-record outcome of Engineer.
type Result struct {
	Game   models.GameRecord
	Vector FeatureVector
	// HomeWin is set for completed games and is never part of Vector.
	HomeWin *bool
	Skip    SkipReason
	Err     error
}

// OK reports whether the record produced a vector.
func (r Result) OK() bool {
	return r.Skip == SkipNone
}

// Pipeline walks games forward through a State.
type Pipeline struct {
	cfg    Config
	state  *State
	tables *SideTables
	logger *logrus.Logger
}

// NewPipeline creates a pipeline. A nil state or tables is replaced by an
// empty one.
func NewPipeline(cfg Config, state *State, tables *SideTables, logger *logrus.Logger) *Pipeline {
	if cfg.Window <= 0 {
		cfg.Window = DefaultConfig().Window
	}
	if cfg.TopPlayers <= 0 {
		cfg.TopPlayers = DefaultConfig().TopPlayers
	}
	if cfg.Isolation == "" {
		cfg.Isolation = IsolationRecord
	}
	if tables == nil {
		tables = NewSideTables()
	}
	if logger == nil {
		logger = logrus.New()
	}
	if state == nil {
		state = NewState(rating.DefaultConfig())
	}
	return &Pipeline{cfg: cfg, state: state, tables: tables, logger: logger}
}

// State returns the pipeline's arena.
func (p *Pipeline) State() *State {
	return p.state
}

// Tables returns the side tables consulted during extraction.
func (p *Pipeline) Tables() *SideTables {
	return p.tables
}

// Engineer sorts games by day, then for each one extracts its vector before
// folding the game into state. Sorting is stable so same-day games keep their
// input order. Scheduled games are extracted but never update state.
func (p *Pipeline) Engineer(games []models.GameRecord) ([]Result, error) {
	ordered := sortedByDay(games)
	results := make([]Result, 0, len(ordered))

	for _, g := range ordered {
		vec, err := p.Extract(g)
		if err != nil {
			if p.cfg.Isolation == IsolationBatch {
				return results, err
			}
			p.logger.WithFields(logrus.Fields{"game": g.Key(), "error": err}).Warn("Skipping malformed game")
			results = append(results, Result{Game: g, Skip: SkipMalformed, Err: err})
			continue
		}

		res := Result{Game: g, Vector: vec}
		if g.IsCompleted() {
			won := g.HomeWin()
			res.HomeWin = &won
			if err := p.state.apply(g, p.tables); err != nil {
				err = fmt.Errorf("failed to apply game %s: %w", g.Key(), err)
				if p.cfg.Isolation == IsolationBatch {
					return results, err
				}
				p.logger.WithFields(logrus.Fields{"game": g.Key(), "error": err}).Warn("State update rejected")
				res = Result{Game: g, Skip: SkipUpdateError, Err: err}
			}
		}
		results = append(results, res)
	}
	return results, nil
}

// Replay folds completed games into state without extracting vectors. It is
// used to rebuild state from history before inference. It returns the number
// of games applied.
func (p *Pipeline) Replay(games []models.GameRecord) (int, error) {
	applied := 0
	for _, g := range sortedByDay(games) {
		if err := g.Validate(); err != nil {
			if p.cfg.Isolation == IsolationBatch {
				return applied, err
			}
			p.logger.WithFields(logrus.Fields{"game": g.Key(), "error": err}).Debug("Skipping malformed history record")
			continue
		}
		if !g.IsCompleted() {
			continue
		}
		if err := p.state.apply(g, p.tables); err != nil {
			if p.cfg.Isolation == IsolationBatch {
				return applied, fmt.Errorf("failed to apply game %s: %w", g.Key(), err)
			}
			continue
		}
		applied++
	}
	return applied, nil
}

// Apply folds a single completed game into state. Scheduled games are a
// no-op and report false.
func (p *Pipeline) Apply(g models.GameRecord) (bool, error) {
	if err := g.Validate(); err != nil {
		return false, err
	}
	if !g.IsCompleted() {
		return false, nil
	}
	if err := p.state.apply(g, p.tables); err != nil {
		return false, fmt.Errorf("failed to apply game %s: %w", g.Key(), err)
	}
	return true, nil
}

// Extract computes the vector for g from current state without mutating it.
// Calling it repeatedly without intervening updates returns identical output.
func (p *Pipeline) Extract(g models.GameRecord) (FeatureVector, error) {
	if err := g.Validate(); err != nil {
		return FeatureVector{}, err
	}

	home, away := g.HomeTeam, g.AwayTeam
	day := g.Day()
	season := SeasonFromDate(day)
	s := p.state
	b := newBuilder(64)

	homeElo := s.ratings.Peek(home)
	awayElo := s.ratings.Peek(away)
	b.set(FeatHomeElo, homeElo)
	b.set(FeatAwayElo, awayElo)
	b.set(FeatEloDiff, homeElo-awayElo)
	b.set(FeatIsHome, 1)

	b.set(FeatHomeWinRate, s.WinRate(home, p.cfg.Window))
	b.set(FeatAwayWinRate, s.WinRate(away, p.cfg.Window))
	b.set(FeatHomePointDiff, s.PointDiff(home, p.cfg.Window))
	b.set(FeatAwayPointDiff, s.PointDiff(away, p.cfg.Window))

	homeRest := s.RestDays(home, day, p.cfg.RestPrior, p.cfg.MaxRestDays)
	awayRest := s.RestDays(away, day, p.cfg.RestPrior, p.cfg.MaxRestDays)
	b.setInt(FeatHomeRestDays, homeRest)
	b.setInt(FeatAwayRestDays, awayRest)
	b.setInt(FeatHomeB2B, boolInt(homeRest == 0))
	b.setInt(FeatAwayB2B, boolInt(awayRest == 0))

	b.setInt(FeatH2HHomeWins, s.HeadToHeadWins(home, away))
	b.setInt(FeatHomeStreak, s.Streak(home))
	b.setInt(FeatAwayStreak, s.Streak(away))

	homeLineup, _ := p.tables.Starters(day, home)
	awayLineup, _ := p.tables.Starters(day, away)
	b.setInt(FeatHomeLineupOverlap, overlap(s.prevLineup[home], homeLineup))
	b.setInt(FeatAwayLineupOverlap, overlap(s.prevLineup[away], awayLineup))
	b.setInt(FeatHomeKeyOut, p.keyOut(season, home, homeLineup))
	b.setInt(FeatAwayKeyOut, p.keyOut(season, away, awayLineup))

	homeInj := p.tables.InjuryOn(day, home)
	awayInj := p.tables.InjuryOn(day, away)
	b.set(FeatHomeInjured, homeInj.Count)
	b.set(FeatAwayInjured, awayInj.Count)
	b.set(FeatHomeInjuredMinutes, homeInj.MinutesLost)
	b.set(FeatAwayInjuredMinutes, awayInj.MinutesLost)

	homeAdv := p.tables.Advanced(season, home)
	awayAdv := p.tables.Advanced(season, away)
	b.set(FeatHomePER, homeAdv.PER)
	b.set(FeatAwayPER, awayAdv.PER)
	b.set(FeatHomeBPM, homeAdv.BPM)
	b.set(FeatAwayBPM, awayAdv.BPM)
	b.set(FeatHomeWS48, homeAdv.WS48)
	b.set(FeatAwayWS48, awayAdv.WS48)
	b.set(FeatPERDiff, homeAdv.PER-awayAdv.PER)
	b.set(FeatBPMDiff, homeAdv.BPM-awayAdv.BPM)
	b.set(FeatWS48Diff, homeAdv.WS48-awayAdv.WS48)

	homeAvg := p.tables.Averages(season, home)
	awayAvg := p.tables.Averages(season, away)
	b.set(FeatHomeNetRating, homeAvg.NetRating)
	b.set(FeatAwayNetRating, awayAvg.NetRating)
	b.set(FeatNetRatingDiff, homeAvg.NetRating-awayAvg.NetRating)
	b.set(FeatHomePace, homeAvg.Pace)
	b.set(FeatAwayPace, awayAvg.Pace)
	b.set(FeatPaceDiff, homeAvg.Pace-awayAvg.Pace)
	b.set(FeatHomeOff3PA, homeAvg.Off3PARate)
	b.set(FeatAwayOff3PA, awayAvg.Off3PARate)
	b.set(FeatOff3PADiff, homeAvg.Off3PARate-awayAvg.Off3PARate)
	b.set(FeatHomeDefOpp3PA, homeAvg.DefOpp3PARate)
	b.set(FeatAwayDefOpp3PA, awayAvg.DefOpp3PARate)
	b.set(FeatDefOpp3PADiff, homeAvg.DefOpp3PARate-awayAvg.DefOpp3PARate)

	line := p.tables.OddsFor(day, home, away)
	b.set(FeatImpliedHomeProb, line.ImpliedHomeProb)
	b.set(FeatSpreadHome, line.SpreadHome)
	b.set(FeatTotal, line.Total)

	return b.build(), nil
}

// keyOut counts expected top players absent from today's lineup. An unknown
// lineup counts as nobody out.
func (p *Pipeline) keyOut(season int, team string, lineup []string) int {
	if len(lineup) == 0 {
		return 0
	}
	present := make(map[string]struct{}, len(lineup))
	for _, pl := range lineup {
		present[pl] = struct{}{}
	}
	out := 0
	for _, pl := range p.tables.TopPlayers(season, team, p.cfg.TopPlayers) {
		if _, ok := present[pl]; !ok {
			out++
		}
	}
	return out
}

func overlap(prev, today []string) int {
	if len(prev) == 0 {
		return 0
	}
	seen := make(map[string]struct{}, len(prev))
	for _, pl := range prev {
		seen[pl] = struct{}{}
	}
	n := 0
	counted := make(map[string]struct{}, len(today))
	for _, pl := range today {
		if _, dup := counted[pl]; dup {
			continue
		}
		counted[pl] = struct{}{}
		if _, ok := seen[pl]; ok {
			n++
		}
	}
	return n
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func sortedByDay(games []models.GameRecord) []models.GameRecord {
	ordered := make([]models.GameRecord, len(games))
	copy(ordered, games)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Day().Before(ordered[j].Day())
	})
	return ordered
}

// IsMalformed reports whether err came from a malformed record.
func IsMalformed(err error) bool {
	return errors.Is(err, ErrMalformedGame)
}
