package datasource

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yourusername/linelogic/internal/models"
	"github.com/yourusername/linelogic/internal/odds"
)

const (
	oddsAPIName    = "the_odds_api"
	oddsAPIBaseURL = "https://api.the-odds-api.com/v4"
	oddsAPISport   = "basketball_nba"
)

// OddsAPI implements QuoteSource against The Odds API v4.
type OddsAPI struct {
	provider
	apiKey    string
	bookmaker string
	regions   string
	location  *time.Location
	enabled   bool
}

type oddsOutcome struct {
	Name  string   `json:"name"`
	Price float64  `json:"price"`
	Point *float64 `json:"point"`
}

type oddsMarket struct {
	Key      string        `json:"key"`
	Outcomes []oddsOutcome `json:"outcomes"`
}

type oddsBookmaker struct {
	Key        string       `json:"key"`
	Title      string       `json:"title"`
	LastUpdate time.Time    `json:"last_update"`
	Markets    []oddsMarket `json:"markets"`
}

type oddsEvent struct {
	ID           string          `json:"id"`
	CommenceTime time.Time       `json:"commence_time"`
	HomeTeam     string          `json:"home_team"`
	AwayTeam     string          `json:"away_team"`
	Bookmakers   []oddsBookmaker `json:"bookmakers"`
}

// NewOddsAPI creates a quotes client. Games are assigned to calendar days in
// loc, which defaults to US Eastern time.
func NewOddsAPI(httpClient *RateLimitedHTTPClient, cache *ResponseCache, baseURL, apiKey, bookmaker, regions string, loc *time.Location, enabled bool, logger *logrus.Logger) *OddsAPI {
	if baseURL == "" {
		baseURL = oddsAPIBaseURL
	}
	if regions == "" {
		regions = "us"
	}
	if loc == nil {
		var err error
		if loc, err = time.LoadLocation("America/New_York"); err != nil {
			loc = time.UTC
		}
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &OddsAPI{
		provider: provider{
			name:    oddsAPIName,
			http:    httpClient,
			cache:   cache,
			logger:  logger,
			baseURL: baseURL,
		},
		apiKey:    apiKey,
		bookmaker: bookmaker,
		regions:   regions,
		location:  loc,
		enabled:   enabled,
	}
}

// Name returns the name of the data source
func (c *OddsAPI) Name() string {
	return oddsAPIName
}

// QuotesOn returns one quote per event starting on date, taken from the
// preferred bookmaker when it offers a moneyline, else the first one that does.
func (c *OddsAPI) QuotesOn(ctx context.Context, date time.Time) ([]models.MarketQuote, error) {
	if !c.enabled {
		return nil, NewDataSourceError(c.name, ErrCodeDisabled, "data source is disabled", nil)
	}

	day := models.Day(date)
	from := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, c.location)
	to := from.AddDate(0, 0, 1).Add(-time.Second)

	params := url.Values{}
	params.Set("apiKey", c.apiKey)
	params.Set("regions", c.regions)
	params.Set("markets", "h2h,spreads,totals")
	params.Set("oddsFormat", "american")
	params.Set("commenceTimeFrom", from.UTC().Format(time.RFC3339))
	params.Set("commenceTimeTo", to.UTC().Format(time.RFC3339))

	var events []oddsEvent
	if err := c.getJSON(ctx, "/sports/"+oddsAPISport+"/odds", params, &events); err != nil {
		return nil, err
	}

	quotes := make([]models.MarketQuote, 0, len(events))
	for _, ev := range events {
		q, ok := c.convert(ev, day)
		if !ok {
			c.logger.WithFields(logrus.Fields{"event_id": ev.ID, "home": ev.HomeTeam, "away": ev.AwayTeam}).Debug("No usable moneyline for event")
			continue
		}
		quotes = append(quotes, q)
	}
	return quotes, nil
}

func (c *OddsAPI) convert(ev oddsEvent, day time.Time) (models.MarketQuote, bool) {
	book, ok := c.pickBookmaker(ev)
	if !ok {
		return models.MarketQuote{}, false
	}

	q := models.MarketQuote{
		GameID:     ev.ID,
		Date:       day,
		HomeTeam:   CanonicalTeam(ev.HomeTeam),
		AwayTeam:   CanonicalTeam(ev.AwayTeam),
		Bookmaker:  book.Key,
		CapturedAt: book.LastUpdate,
	}
	for _, m := range book.Markets {
		switch m.Key {
		case "h2h":
			for _, o := range m.Outcomes {
				switch o.Name {
				case ev.HomeTeam:
					q.HomePrice = int(o.Price)
				case ev.AwayTeam:
					q.AwayPrice = int(o.Price)
				}
			}
		case "spreads":
			for _, o := range m.Outcomes {
				if o.Name == ev.HomeTeam && o.Point != nil {
					q.Spread = *o.Point
				}
			}
		case "totals":
			for _, o := range m.Outcomes {
				if strings.EqualFold(o.Name, "over") && o.Point != nil {
					q.Total = *o.Point
				}
			}
		}
	}
	if q.HomePrice == 0 || q.AwayPrice == 0 {
		return models.MarketQuote{}, false
	}
	q.HomeImpliedProb = odds.AmericanToImpliedProb(q.HomePrice)
	q.AwayImpliedProb = odds.AmericanToImpliedProb(q.AwayPrice)
	return q, true
}

func (c *OddsAPI) pickBookmaker(ev oddsEvent) (oddsBookmaker, bool) {
	hasH2H := func(b oddsBookmaker) bool {
		for _, m := range b.Markets {
			if m.Key == "h2h" {
				return true
			}
		}
		return false
	}
	if c.bookmaker != "" {
		for _, b := range ev.Bookmakers {
			if b.Key == c.bookmaker && hasH2H(b) {
				return b, true
			}
		}
	}
	for _, b := range ev.Bookmakers {
		if hasH2H(b) {
			return b, true
		}
	}
	return oddsBookmaker{}, false
}
