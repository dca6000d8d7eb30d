package datasource

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yourusername/linelogic/internal/models"
)

const (
	ballDontLieName    = "balldontlie"
	ballDontLieBaseURL = "https://api.balldontlie.io/v1"
	ballDontLiePerPage = 100
	// maxPages bounds cursor pagination for a single range query.
	maxPages = 200
)

// BallDontLie implements GameSource against the BALLDONTLIE games endpoint.
type BallDontLie struct {
	provider
	enabled bool
}

type bdlTeam struct {
	ID           int    `json:"id"`
	Name         string `json:"name"`
	FullName     string `json:"full_name"`
	Abbreviation string `json:"abbreviation"`
}

type bdlGame struct {
	ID               int     `json:"id"`
	Date             string  `json:"date"`
	Status           string  `json:"status"`
	HomeTeam         bdlTeam `json:"home_team"`
	VisitorTeam      bdlTeam `json:"visitor_team"`
	HomeTeamScore    int     `json:"home_team_score"`
	VisitorTeamScore int     `json:"visitor_team_score"`
}

type bdlGamesResponse struct {
	Data []bdlGame `json:"data"`
	Meta struct {
		NextCursor *int `json:"next_cursor"`
		PerPage    int  `json:"per_page"`
	} `json:"meta"`
}

// NewBallDontLie creates a games client. An empty baseURL uses the public API.
func NewBallDontLie(httpClient *RateLimitedHTTPClient, cache *ResponseCache, baseURL, apiKey string, enabled bool, logger *logrus.Logger) *BallDontLie {
	if baseURL == "" {
		baseURL = ballDontLieBaseURL
	}
	if logger == nil {
		logger = logrus.New()
	}
	headers := map[string]string{}
	if apiKey != "" {
		headers["Authorization"] = apiKey
	}
	return &BallDontLie{
		provider: provider{
			name:    ballDontLieName,
			http:    httpClient,
			cache:   cache,
			logger:  logger,
			baseURL: baseURL,
			headers: headers,
		},
		enabled: enabled,
	}
}

// Name returns the name of the data source
func (c *BallDontLie) Name() string {
	return ballDontLieName
}

// GamesBetween follows next_cursor until the range is exhausted.
func (c *BallDontLie) GamesBetween(ctx context.Context, start, end time.Time) ([]models.GameRecord, error) {
	if !c.enabled {
		return nil, NewDataSourceError(c.name, ErrCodeDisabled, "data source is disabled", nil)
	}

	params := url.Values{}
	params.Set("start_date", models.Day(start).Format(models.DateLayout))
	params.Set("end_date", models.Day(end).Format(models.DateLayout))
	params.Set("per_page", strconv.Itoa(ballDontLiePerPage))

	var games []models.GameRecord
	for page := 0; page < maxPages; page++ {
		var resp bdlGamesResponse
		if err := c.getJSON(ctx, "/games", params, &resp); err != nil {
			return nil, err
		}
		for _, g := range resp.Data {
			rec, err := convertBDLGame(g)
			if err != nil {
				c.logger.WithFields(logrus.Fields{"game_id": g.ID, "error": err}).Warn("Skipping unparseable game")
				continue
			}
			games = append(games, rec)
		}
		if resp.Meta.NextCursor == nil {
			break
		}
		params.Set("cursor", strconv.Itoa(*resp.Meta.NextCursor))
	}

	c.logger.WithFields(logrus.Fields{
		"source": c.name,
		"start":  params.Get("start_date"),
		"end":    params.Get("end_date"),
		"games":  len(games),
	}).Debug("Fetched games")
	return games, nil
}

func convertBDLGame(g bdlGame) (models.GameRecord, error) {
	if len(g.Date) < len(models.DateLayout) {
		return models.GameRecord{}, fmt.Errorf("%w: date %q", models.ErrMalformedGame, g.Date)
	}
	date, err := models.ParseDate(g.Date[:len(models.DateLayout)])
	if err != nil {
		return models.GameRecord{}, err
	}
	id := strconv.Itoa(g.ID)
	home, away := teamName(g.HomeTeam), teamName(g.VisitorTeam)
	if g.HomeTeamScore > 0 && g.VisitorTeamScore > 0 && g.Status == "Final" {
		return models.NewCompletedGame(id, date, home, away, g.HomeTeamScore, g.VisitorTeamScore), nil
	}
	return models.NewScheduledGame(id, date, home, away), nil
}

// teamName prefers the full name so games join with market quotes.
func teamName(t bdlTeam) string {
	if t.FullName != "" {
		return CanonicalTeam(t.FullName)
	}
	return CanonicalTeam(t.Name)
}
