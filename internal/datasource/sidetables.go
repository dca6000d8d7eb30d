package datasource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/yourusername/linelogic/internal/features"
	"github.com/yourusername/linelogic/internal/models"
)

// Side table file names inside a FileSideTables directory.
const (
	AdvancedMetricsFile = "advanced_metrics.json"
	TeamAveragesFile    = "team_averages.json"
	PlayerGamesFile     = "player_games.json"
	InjuriesFile        = "injuries.json"
	OddsFile            = "odds.json"
)

// FileSideTables loads side tables from JSON arrays in a directory. Missing
// files are logged and leave the table empty.
type FileSideTables struct {
	dir    string
	logger *logrus.Logger
}

// NewFileSideTables creates a loader for dir.
func NewFileSideTables(dir string, logger *logrus.Logger) *FileSideTables {
	if logger == nil {
		logger = logrus.New()
	}
	return &FileSideTables{dir: dir, logger: logger}
}

type playerGameRow struct {
	Date    string  `json:"date"`
	Season  int     `json:"season"`
	Team    string  `json:"team"`
	Player  string  `json:"player"`
	Minutes float64 `json:"minutes"`
	Starter bool    `json:"starter"`
}

type injuryRow struct {
	Date        string  `json:"date"`
	Team        string  `json:"team"`
	Count       float64 `json:"injured_count"`
	MinutesLost float64 `json:"injured_minutes_lost"`
}

type oddsRow struct {
	Date            string  `json:"date"`
	HomeTeam        string  `json:"home_team"`
	AwayTeam        string  `json:"away_team"`
	ImpliedHomeProb float64 `json:"implied_home_prob"`
	SpreadHome      float64 `json:"spread_home"`
	Total           float64 `json:"total"`
}

// LoadSideTables reads every known file. A malformed file is an error; an
// absent one is not.
func (s *FileSideTables) LoadSideTables(ctx context.Context) (*features.SideTables, error) {
	tables := features.NewSideTables()
	if s.dir == "" {
		return tables, nil
	}

	var adv []features.AdvancedMetrics
	if err := s.read(AdvancedMetricsFile, &adv); err != nil {
		return nil, err
	}
	for _, m := range adv {
		m.Team = CanonicalTeam(m.Team)
		tables.AddAdvancedMetrics(m)
	}

	var avgs []features.TeamAverages
	if err := s.read(TeamAveragesFile, &avgs); err != nil {
		return nil, err
	}
	for _, a := range avgs {
		a.Team = CanonicalTeam(a.Team)
		tables.AddTeamAverages(a)
	}

	var players []playerGameRow
	if err := s.read(PlayerGamesFile, &players); err != nil {
		return nil, err
	}
	for _, p := range players {
		d, err := models.ParseDate(p.Date)
		if err != nil {
			s.logger.WithFields(logrus.Fields{"file": PlayerGamesFile, "player": p.Player, "error": err}).Debug("Skipping row")
			continue
		}
		tables.AddPlayerGame(features.PlayerGame{Date: d, Season: p.Season, Team: CanonicalTeam(p.Team), Player: p.Player, Minutes: p.Minutes, Starter: p.Starter})
	}

	var injuries []injuryRow
	if err := s.read(InjuriesFile, &injuries); err != nil {
		return nil, err
	}
	for _, i := range injuries {
		d, err := models.ParseDate(i.Date)
		if err != nil || i.Team == "" {
			continue
		}
		tables.AddInjury(features.Injury{Date: d, Team: CanonicalTeam(i.Team), Count: i.Count, MinutesLost: i.MinutesLost})
	}

	var lines []oddsRow
	if err := s.read(OddsFile, &lines); err != nil {
		return nil, err
	}
	for _, o := range lines {
		d, err := models.ParseDate(o.Date)
		if err != nil || o.HomeTeam == "" || o.AwayTeam == "" {
			continue
		}
		tables.AddOdds(features.OddsLine{Date: d, HomeTeam: CanonicalTeam(o.HomeTeam), AwayTeam: CanonicalTeam(o.AwayTeam), ImpliedHomeProb: o.ImpliedHomeProb, SpreadHome: o.SpreadHome, Total: o.Total})
	}

	fields := logrus.Fields{"dir": s.dir}
	for k, v := range tables.Sizes() {
		fields[k] = v
	}
	s.logger.WithFields(fields).Info("Side tables loaded")
	return tables, nil
}

func (s *FileSideTables) read(name string, out interface{}) error {
	path := filepath.Join(s.dir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.logger.WithField("file", path).Info("Side table not found, using neutral defaults")
			return nil
		}
		return fmt.Errorf("failed to read side table %s: %w", path, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return NewDataSourceError("side_tables", ErrCodeInvalidData, "failed to parse "+name, err)
	}
	return nil
}

// StaticSideTables serves tables already in memory.
type StaticSideTables struct {
	Tables *features.SideTables
}

// LoadSideTables returns the held tables, or empty ones.
func (s StaticSideTables) LoadSideTables(ctx context.Context) (*features.SideTables, error) {
	if s.Tables == nil {
		return features.NewSideTables(), nil
	}
	return s.Tables, nil
}
