package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the calendar-day layout used for game dates and side-table keys.
const DateLayout = "2006-01-02"

// ErrMalformedGame is returned when a game record is missing a required field.
var ErrMalformedGame = errors.New("malformed game record")

// GameRecord represents a scheduled or completed contest between two teams.
// A record is completed only when both scores are present and positive.
type GameRecord struct {
	ID        string    `db:"game_id" json:"game_id"`
	Date      time.Time `db:"game_date" json:"date" validate:"required"`
	HomeTeam  string    `db:"home_team" json:"home_team" validate:"required"`
	AwayTeam  string    `db:"away_team" json:"away_team" validate:"required"`
	HomeScore *int      `db:"home_score" json:"home_score,omitempty"`
	AwayScore *int      `db:"away_score" json:"away_score,omitempty"`
}

// NewCompletedGame builds a scored game record.
func NewCompletedGame(id string, date time.Time, home, away string, homeScore, awayScore int) GameRecord {
	hs, as := homeScore, awayScore
	return GameRecord{
		ID:        id,
		Date:      date,
		HomeTeam:  home,
		AwayTeam:  away,
		HomeScore: &hs,
		AwayScore: &as,
	}
}

// NewScheduledGame builds an unplayed fixture.
func NewScheduledGame(id string, date time.Time, home, away string) GameRecord {
	return GameRecord{ID: id, Date: date, HomeTeam: home, AwayTeam: away}
}

// Day returns the game date truncated to a UTC calendar day.
func (g GameRecord) Day() time.Time {
	return Day(g.Date)
}

// IsCompleted reports whether both scores are present and positive.
func (g GameRecord) IsCompleted() bool {
	return g.HomeScore != nil && g.AwayScore != nil && *g.HomeScore > 0 && *g.AwayScore > 0
}

// HomeWin reports whether the home team won. Only meaningful for completed games.
func (g GameRecord) HomeWin() bool {
	if !g.IsCompleted() {
		return false
	}
	return *g.HomeScore > *g.AwayScore
}

// Key returns a stable identifier, falling back to date and matchup when the
// provider did not supply one.
func (g GameRecord) Key() string {
	if g.ID != "" {
		return g.ID
	}
	return MatchupKey(g.Date, g.HomeTeam, g.AwayTeam)
}

// Validate checks the required fields.
func (g GameRecord) Validate() error {
	if g.Date.IsZero() {
		return fmt.Errorf("%w: missing date for %s vs %s", ErrMalformedGame, g.HomeTeam, g.AwayTeam)
	}
	if strings.TrimSpace(g.HomeTeam) == "" || strings.TrimSpace(g.AwayTeam) == "" {
		return fmt.Errorf("%w: missing team name on %s", ErrMalformedGame, g.Date.Format(DateLayout))
	}
	if g.HomeTeam == g.AwayTeam {
		return fmt.Errorf("%w: team %q cannot play itself", ErrMalformedGame, g.HomeTeam)
	}
	if (g.HomeScore != nil && *g.HomeScore < 0) || (g.AwayScore != nil && *g.AwayScore < 0) {
		return fmt.Errorf("%w: negative score for %s vs %s", ErrMalformedGame, g.HomeTeam, g.AwayTeam)
	}
	return nil
}

// Day truncates a timestamp to its UTC calendar day.
func Day(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD string into a UTC day.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid date %q: %v", ErrMalformedGame, s, err)
	}
	return t, nil
}

// MatchupKey identifies a matchup on a given day.
func MatchupKey(date time.Time, home, away string) string {
	return Day(date).Format(DateLayout) + ":" + home + "@" + away
}
