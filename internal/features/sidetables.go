package features

import (
	"sort"
	"time"

	"github.com/yourusername/linelogic/internal/models"
)

// SeasonFromDate labels a date with the year its Aug-Jul season started.
func SeasonFromDate(date time.Time) int {
	d := date.UTC()
	if d.Month() >= time.August {
		return d.Year()
	}
	return d.Year() - 1
}

// AdvancedMetrics are minutes-weighted team efficiency ratings for a season.
type AdvancedMetrics struct {
	Season int     `json:"season"`
	Team   string  `json:"team"`
	PER    float64 `json:"team_weighted_PER"`
	BPM    float64 `json:"team_weighted_BPM"`
	WS48   float64 `json:"team_weighted_WS48"`
}

// TeamAverages are season-level pace and shot-profile figures.
type TeamAverages struct {
	Season        int     `json:"season"`
	Team          string  `json:"team"`
	NetRating     float64 `json:"net_rating"`
	Pace          float64 `json:"pace"`
	OffRating     float64 `json:"off_rating"`
	DefRating     float64 `json:"def_rating"`
	Off3PARate    float64 `json:"off_3pa_rate"`
	DefOpp3PARate float64 `json:"def_opp_3pa_rate"`
}

// PlayerGame is one player's line in one game.
type PlayerGame struct {
	Date    time.Time `json:"date"`
	Season  int       `json:"season"`
	Team    string    `json:"team"`
	Player  string    `json:"player"`
	Minutes float64   `json:"minutes"`
	Starter bool      `json:"starter"`
}

// Injury aggregates a team's unavailable players on a date.
type Injury struct {
	Date        time.Time `json:"date"`
	Team        string    `json:"team"`
	Count       float64   `json:"injured_count"`
	MinutesLost float64   `json:"injured_minutes_lost"`
}

// OddsLine is the market prior for a matchup.
type OddsLine struct {
	Date            time.Time `json:"date"`
	HomeTeam        string    `json:"home_team"`
	AwayTeam        string    `json:"away_team"`
	ImpliedHomeProb float64   `json:"implied_home_prob"`
	SpreadHome      float64   `json:"spread_home"`
	Total           float64   `json:"total"`
}

type seasonTeam struct {
	season int
	team   string
}

// seasonIndex remembers the latest season seen in a table.
type seasonIndex struct {
	latest int
	seen   bool
}

func (s *seasonIndex) observe(season int) {
	if !s.seen || season > s.latest {
		s.latest = season
		s.seen = true
	}
}

// fallback returns the season to retry with when the requested season is past
// the last one with data.
func (s seasonIndex) fallback(season int) (int, bool) {
	if s.seen && season > s.latest {
		return s.latest, true
	}
	return 0, false
}

// SideTables holds the optional lookup tables. Every lookup returns a typed
// neutral value when data is absent. Tables are written before a pipeline
// run and only read during it.
type SideTables struct {
	advanced   map[seasonTeam]AdvancedMetrics
	advSeasons seasonIndex
	averages   map[seasonTeam]TeamAverages
	avgSeasons seasonIndex
	starters   map[string][]string
	minutes    map[seasonTeam]map[string]float64
	minSeasons seasonIndex
	injuries   map[string]Injury
	odds       map[string]OddsLine
}

// NewSideTables returns empty tables.
func NewSideTables() *SideTables {
	return &SideTables{
		advanced: make(map[seasonTeam]AdvancedMetrics),
		averages: make(map[seasonTeam]TeamAverages),
		starters: make(map[string][]string),
		minutes:  make(map[seasonTeam]map[string]float64),
		injuries: make(map[string]Injury),
		odds:     make(map[string]OddsLine),
	}
}

func dateTeamKey(date time.Time, team string) string {
	return models.Day(date).Format(models.DateLayout) + "|" + team
}

// AddAdvancedMetrics stores one team-season row.
func (t *SideTables) AddAdvancedMetrics(m AdvancedMetrics) {
	t.advanced[seasonTeam{m.Season, m.Team}] = m
	t.advSeasons.observe(m.Season)
}

// AddTeamAverages stores one team-season row.
func (t *SideTables) AddTeamAverages(a TeamAverages) {
	t.averages[seasonTeam{a.Season, a.Team}] = a
	t.avgSeasons.observe(a.Season)
}

// AddPlayerGame records a player's minutes and, for starters, adds them to
// the team's lineup for that date.
func (t *SideTables) AddPlayerGame(p PlayerGame) {
	season := p.Season
	if season == 0 {
		season = SeasonFromDate(p.Date)
	}
	key := seasonTeam{season, p.Team}
	if t.minutes[key] == nil {
		t.minutes[key] = make(map[string]float64)
	}
	t.minutes[key][p.Player] += p.Minutes
	t.minSeasons.observe(season)

	if p.Starter {
		k := dateTeamKey(p.Date, p.Team)
		t.starters[k] = append(t.starters[k], p.Player)
	}
}

// AddInjury stores a team's injury aggregate for a date.
func (t *SideTables) AddInjury(i Injury) {
	t.injuries[dateTeamKey(i.Date, i.Team)] = i
}

// AddOdds stores the market prior for a matchup.
func (t *SideTables) AddOdds(o OddsLine) {
	t.odds[models.MatchupKey(o.Date, o.HomeTeam, o.AwayTeam)] = o
}

// WithOdds returns a copy of t with lines layered over its odds table. The
// other tables are shared, so t itself is left untouched.
func (t *SideTables) WithOdds(lines []OddsLine) *SideTables {
	cp := *t
	cp.odds = make(map[string]OddsLine, len(t.odds)+len(lines))
	for k, v := range t.odds {
		cp.odds[k] = v
	}
	for _, o := range lines {
		cp.odds[models.MatchupKey(o.Date, o.HomeTeam, o.AwayTeam)] = o
	}
	return &cp
}

// Advanced returns the team's metrics for season, falling back to the latest
// season on record when season is beyond it.
func (t *SideTables) Advanced(season int, team string) AdvancedMetrics {
	if m, ok := t.advanced[seasonTeam{season, team}]; ok {
		return m
	}
	if fb, ok := t.advSeasons.fallback(season); ok {
		if m, ok := t.advanced[seasonTeam{fb, team}]; ok {
			return m
		}
	}
	return AdvancedMetrics{Season: season, Team: team}
}

// Averages returns the team's season averages with the same fallback rule.
func (t *SideTables) Averages(season int, team string) TeamAverages {
	if a, ok := t.averages[seasonTeam{season, team}]; ok {
		return a
	}
	if fb, ok := t.avgSeasons.fallback(season); ok {
		if a, ok := t.averages[seasonTeam{fb, team}]; ok {
			return a
		}
	}
	return TeamAverages{Season: season, Team: team}
}

// Starters returns the team's starting lineup on date.
func (t *SideTables) Starters(date time.Time, team string) ([]string, bool) {
	l, ok := t.starters[dateTeamKey(date, team)]
	if !ok {
		return nil, false
	}
	return append([]string(nil), l...), true
}

// TopPlayers returns up to n players with the most season minutes for the
// team, ties broken by name.
func (t *SideTables) TopPlayers(season int, team string, n int) []string {
	mins, ok := t.minutes[seasonTeam{season, team}]
	if !ok {
		fb, has := t.minSeasons.fallback(season)
		if !has {
			return nil
		}
		if mins, ok = t.minutes[seasonTeam{fb, team}]; !ok {
			return nil
		}
	}
	players := make([]string, 0, len(mins))
	for p := range mins {
		players = append(players, p)
	}
	sort.Slice(players, func(i, j int) bool {
		if mins[players[i]] == mins[players[j]] {
			return players[i] < players[j]
		}
		return mins[players[i]] > mins[players[j]]
	})
	if len(players) > n {
		players = players[:n]
	}
	return players
}

// InjuryOn returns the team's injury aggregate on date, zero when unknown.
func (t *SideTables) InjuryOn(date time.Time, team string) Injury {
	if i, ok := t.injuries[dateTeamKey(date, team)]; ok {
		return i
	}
	return Injury{Date: models.Day(date), Team: team}
}

// OddsFor returns the market prior for a matchup, zero when unknown.
func (t *SideTables) OddsFor(date time.Time, home, away string) OddsLine {
	if o, ok := t.odds[models.MatchupKey(date, home, away)]; ok {
		return o
	}
	return OddsLine{Date: models.Day(date), HomeTeam: home, AwayTeam: away}
}

// Sizes reports row counts per table, keyed by table name.
func (t *SideTables) Sizes() map[string]int {
	return map[string]int{
		"advanced_metrics": len(t.advanced),
		"team_averages":    len(t.averages),
		"lineups":          len(t.starters),
		"player_seasons":   len(t.minutes),
		"injuries":         len(t.injuries),
		"odds":             len(t.odds),
	}
}
