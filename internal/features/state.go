package features

import (
	"time"

	"github.com/yourusername/linelogic/internal/models"
	"github.com/yourusername/linelogic/internal/rating"
)

// HistoryEntry is one team's participation in a completed game.
type HistoryEntry struct {
	Date          time.Time `json:"date"`
	Opponent      string    `json:"opponent"`
	PointsFor     int       `json:"points_for"`
	PointsAgainst int       `json:"points_against"`
	Won           bool      `json:"won"`
	WasHome       bool      `json:"was_home"`
}

// State is the mutable arena a pipeline walks forward: ratings, per-team
// history and the last known starting lineup per team. It has no internal
// locking; concurrent callers work on Clones.
type State struct {
	ratings    *rating.Engine
	history    map[string][]HistoryEntry
	prevLineup map[string][]string
	applied    int
}

// NewState creates an empty arena.
func NewState(cfg rating.Config) *State {
	return &State{
		ratings:    rating.NewEngine(cfg),
		history:    make(map[string][]HistoryEntry),
		prevLineup: make(map[string][]string),
	}
}

// NewStateFromEngine wraps an existing rating engine, for example one
// restored from a checkpoint.
func NewStateFromEngine(engine *rating.Engine) *State {
	return &State{
		ratings:    engine,
		history:    make(map[string][]HistoryEntry),
		prevLineup: make(map[string][]string),
	}
}

// Ratings exposes the rating engine backing this state.
func (s *State) Ratings() *rating.Engine {
	return s.ratings
}

// Applied returns the number of completed games folded into the state.
func (s *State) Applied() int {
	return s.applied
}

// History returns a copy of the team's history, oldest first.
func (s *State) History(team string) []HistoryEntry {
	h := s.history[team]
	out := make([]HistoryEntry, len(h))
	copy(out, h)
	return out
}

// PreviousLineup returns the team's last recorded starters.
func (s *State) PreviousLineup(team string) []string {
	l := s.prevLineup[team]
	out := make([]string, len(l))
	copy(out, l)
	return out
}

// Clone returns a deep copy so independent pipelines never share state.
func (s *State) Clone() *State {
	c := &State{
		ratings:    s.ratings.Clone(),
		history:    make(map[string][]HistoryEntry, len(s.history)),
		prevLineup: make(map[string][]string, len(s.prevLineup)),
		applied:    s.applied,
	}
	for team, h := range s.history {
		c.history[team] = append([]HistoryEntry(nil), h...)
	}
	for team, l := range s.prevLineup {
		c.prevLineup[team] = append([]string(nil), l...)
	}
	return c
}

// apply folds a completed game into the state. Ratings are updated first so a
// rejected score leaves history untouched.
func (s *State) apply(g models.GameRecord, tables *SideTables) error {
	hs, as := *g.HomeScore, *g.AwayScore
	if _, _, err := s.ratings.Update(g.HomeTeam, g.AwayTeam, hs, as); err != nil {
		return err
	}

	day := g.Day()
	s.history[g.HomeTeam] = append(s.history[g.HomeTeam], HistoryEntry{
		Date:          day,
		Opponent:      g.AwayTeam,
		PointsFor:     hs,
		PointsAgainst: as,
		Won:           hs > as,
		WasHome:       true,
	})
	s.history[g.AwayTeam] = append(s.history[g.AwayTeam], HistoryEntry{
		Date:          day,
		Opponent:      g.HomeTeam,
		PointsFor:     as,
		PointsAgainst: hs,
		Won:           as > hs,
		WasHome:       false,
	})

	if lineup, ok := tables.Starters(day, g.HomeTeam); ok {
		s.prevLineup[g.HomeTeam] = lineup
	}
	if lineup, ok := tables.Starters(day, g.AwayTeam); ok {
		s.prevLineup[g.AwayTeam] = lineup
	}
	s.applied++
	return nil
}

func (s *State) recent(team string, window int) []HistoryEntry {
	h := s.history[team]
	if window > 0 && len(h) > window {
		return h[len(h)-window:]
	}
	return h
}

// WinRate is the share of wins over the last window games, 0.5 without history.
func (s *State) WinRate(team string, window int) float64 {
	recent := s.recent(team, window)
	if len(recent) == 0 {
		return 0.5
	}
	wins := 0
	for _, e := range recent {
		if e.Won {
			wins++
		}
	}
	return float64(wins) / float64(len(recent))
}

// PointDiff is the mean scoring margin over the last window games.
func (s *State) PointDiff(team string, window int) float64 {
	recent := s.recent(team, window)
	if len(recent) == 0 {
		return 0
	}
	total := 0
	for _, e := range recent {
		total += e.PointsFor - e.PointsAgainst
	}
	return float64(total) / float64(len(recent))
}

// RestDays counts full days off before date, clamped to [0, maxRest]. A team
// with no previous game gets prior.
func (s *State) RestDays(team string, date time.Time, prior, maxRest int) int {
	h := s.history[team]
	if len(h) == 0 {
		return prior
	}
	last := h[len(h)-1].Date
	days := int(models.Day(date).Sub(last).Hours()/24) - 1
	if days < 0 {
		days = 0
	}
	if days > maxRest {
		days = maxRest
	}
	return days
}

// Streak is the signed length of the current run: positive for wins,
// negative for losses.
func (s *State) Streak(team string) int {
	h := s.history[team]
	if len(h) == 0 {
		return 0
	}
	last := h[len(h)-1].Won
	streak := 0
	for i := len(h) - 1; i >= 0 && h[i].Won == last; i-- {
		if last {
			streak++
		} else {
			streak--
		}
	}
	return streak
}

// HeadToHeadWins counts team's historical wins against opponent.
func (s *State) HeadToHeadWins(team, opponent string) int {
	wins := 0
	for _, e := range s.history[team] {
		if e.Opponent == opponent && e.Won {
			wins++
		}
	}
	return wins
}
