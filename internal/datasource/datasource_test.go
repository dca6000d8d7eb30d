package datasource

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/linelogic/internal/config"
	"github.com/yourusername/linelogic/internal/models"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func testClient() *RateLimitedHTTPClient {
	return NewRateLimitedHTTPClient(HTTPClientConfig{
		Timeout:           2 * time.Second,
		MaxRetries:        0,
		RetryWaitMin:      time.Millisecond,
		RetryWaitMax:      time.Millisecond,
		RateLimit:         1000,
		CircuitBreakerMax: 5,
	}, quietLogger())
}

func day(s string) time.Time {
	d, err := models.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestBallDontLiePagination(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/games", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("Authorization"))
		assert.Equal(t, "2024-01-15", r.URL.Query().Get("start_date"))
		assert.Equal(t, "2024-01-16", r.URL.Query().Get("end_date"))

		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("cursor") == "" {
			_, _ = io.WriteString(w, `{"data":[{"id":1,"date":"2024-01-15T00:00:00.000Z","status":"Final",
				"home_team":{"name":"Celtics","full_name":"Boston Celtics"},
				"visitor_team":{"name":"Knicks","full_name":"New York Knicks"},
				"home_team_score":110,"visitor_team_score":95}],
				"meta":{"next_cursor":7,"per_page":100}}`)
			return
		}
		assert.Equal(t, "7", r.URL.Query().Get("cursor"))
		_, _ = io.WriteString(w, `{"data":[{"id":2,"date":"2024-01-16","status":"7:30 pm ET",
			"home_team":{"name":"Lakers","full_name":"Los Angeles Lakers"},
			"visitor_team":{"name":"Nuggets","full_name":"Denver Nuggets"},
			"home_team_score":0,"visitor_team_score":0},
			{"id":3,"date":"bad","status":"Final","home_team":{},"visitor_team":{}}],
			"meta":{"next_cursor":null,"per_page":100}}`)
	}))
	defer srv.Close()

	src := NewBallDontLie(testClient(), nil, srv.URL, "secret", true, quietLogger())
	games, err := src.GamesBetween(context.Background(), day("2024-01-15"), day("2024-01-16"))
	require.NoError(t, err)

	assert.Equal(t, int32(2), calls.Load())
	require.Len(t, games, 2)

	assert.Equal(t, "1", games[0].ID)
	assert.Equal(t, "Boston Celtics", games[0].HomeTeam)
	assert.True(t, games[0].IsCompleted())
	assert.True(t, games[0].HomeWin())

	assert.Equal(t, "Los Angeles Lakers", games[1].HomeTeam)
	assert.False(t, games[1].IsCompleted())
	assert.Nil(t, games[1].HomeScore)
}

func TestStatusCodeMapping(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, ErrAuthenticationFailed},
		{http.StatusForbidden, ErrAuthenticationFailed},
		{http.StatusNotFound, ErrNotFound},
		{http.StatusTooManyRequests, ErrRateLimitExceeded},
		{http.StatusInternalServerError, ErrServerError},
		{http.StatusTeapot, ErrServerError},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			src := NewBallDontLie(testClient(), nil, srv.URL, "", true, quietLogger())
			_, err := src.GamesBetween(context.Background(), day("2024-01-15"), day("2024-01-15"))
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)

			var dsErr DataSourceError
			require.ErrorAs(t, err, &dsErr)
			assert.Equal(t, ballDontLieName, dsErr.Source)
		})
	}
}

func TestInvalidJSONIsNotCached(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = io.WriteString(w, `{"data":`)
	}))
	defer srv.Close()

	cache := NewResponseCache(time.Minute, 10)
	src := NewBallDontLie(testClient(), cache, srv.URL, "", true, quietLogger())

	_, err := src.GamesBetween(context.Background(), day("2024-01-15"), day("2024-01-15"))
	assert.ErrorIs(t, err, ErrInvalidData)
	assert.Equal(t, 0, cache.ItemCount())
}

func TestResponseCacheServesRepeatRequests(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = io.WriteString(w, `{"data":[],"meta":{"next_cursor":null}}`)
	}))
	defer srv.Close()

	cache := NewResponseCache(time.Minute, 10)
	src := NewBallDontLie(testClient(), cache, srv.URL, "", true, quietLogger())

	for i := 0; i < 3; i++ {
		_, err := src.GamesBetween(context.Background(), day("2024-01-15"), day("2024-01-15"))
		require.NoError(t, err)
	}

	assert.Equal(t, int32(1), calls.Load())
	hits, misses, ratio := cache.Stats()
	assert.Equal(t, uint64(2), hits)
	assert.Equal(t, uint64(1), misses)
	assert.InDelta(t, 2.0/3.0, ratio, 1e-9)

	cache.Clear()
	hits, _, _ = cache.Stats()
	assert.Zero(t, hits)
	assert.Zero(t, cache.ItemCount())
}

func TestCacheKeyDropsAPIKey(t *testing.T) {
	a := url.Values{"apiKey": {"one"}, "regions": {"us"}}
	b := url.Values{"apiKey": {"two"}, "regions": {"us"}}
	c := url.Values{"apiKey": {"one"}, "regions": {"eu"}}

	assert.Equal(t, Key("odds", "/x", a), Key("odds", "/x", b))
	assert.NotEqual(t, Key("odds", "/x", a), Key("odds", "/x", c))
	assert.NotContains(t, Key("odds", "/x", a), "one")
}

func TestDisabledSources(t *testing.T) {
	bdl := NewBallDontLie(testClient(), nil, "", "", false, quietLogger())
	_, err := bdl.GamesBetween(context.Background(), day("2024-01-15"), day("2024-01-15"))
	assert.ErrorIs(t, err, ErrDisabled)

	oa := NewOddsAPI(testClient(), nil, "", "key", "", "", time.UTC, false, quietLogger())
	_, err = oa.QuotesOn(context.Background(), day("2024-01-15"))
	assert.ErrorIs(t, err, ErrDisabled)
}

const oddsFixture = `[
  {"id":"evt1","commence_time":"2024-01-16T00:30:00Z","home_team":"Boston Celtics","away_team":"New York Knicks",
   "bookmakers":[
     {"key":"betmgm","title":"BetMGM","last_update":"2024-01-15T18:00:00Z","markets":[
       {"key":"h2h","outcomes":[{"name":"Boston Celtics","price":-160},{"name":"New York Knicks","price":140}]}]},
     {"key":"fanduel","title":"FanDuel","last_update":"2024-01-15T18:05:00Z","markets":[
       {"key":"h2h","outcomes":[{"name":"Boston Celtics","price":-150},{"name":"New York Knicks","price":130}]},
       {"key":"spreads","outcomes":[{"name":"Boston Celtics","price":-110,"point":-3.5},{"name":"New York Knicks","price":-110,"point":3.5}]},
       {"key":"totals","outcomes":[{"name":"Over","price":-110,"point":221.5},{"name":"Under","price":-110,"point":221.5}]}]}]},
  {"id":"evt2","commence_time":"2024-01-16T01:00:00Z","home_team":"Denver Nuggets","away_team":"Los Angeles Lakers",
   "bookmakers":[{"key":"fanduel","markets":[{"key":"totals","outcomes":[{"name":"Over","point":230}]}]}]}
]`

func TestOddsAPIQuotesOn(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/sports/basketball_nba/odds", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "key", q.Get("apiKey"))
		assert.Equal(t, "american", q.Get("oddsFormat"))
		assert.Equal(t, "2024-01-15T05:00:00Z", q.Get("commenceTimeFrom"))
		assert.Equal(t, "2024-01-16T04:59:59Z", q.Get("commenceTimeTo"))
		_, _ = io.WriteString(w, oddsFixture)
	}))
	defer srv.Close()

	src := NewOddsAPI(testClient(), nil, srv.URL, "key", "fanduel", "us", ny, true, quietLogger())
	quotes, err := src.QuotesOn(context.Background(), day("2024-01-15"))
	require.NoError(t, err)
	require.Len(t, quotes, 1)

	q := quotes[0]
	assert.Equal(t, "fanduel", q.Bookmaker)
	assert.Equal(t, day("2024-01-15"), q.Date)
	assert.Equal(t, -150, q.HomePrice)
	assert.Equal(t, 130, q.AwayPrice)
	assert.InDelta(t, 0.6, q.HomeImpliedProb, 1e-9)
	assert.InDelta(t, 100.0/230.0, q.AwayImpliedProb, 1e-9)
	assert.Equal(t, -3.5, q.Spread)
	assert.Equal(t, 221.5, q.Total)
	assert.Equal(t, models.MatchupKey(day("2024-01-15"), "Boston Celtics", "New York Knicks"), q.Key())
}

func TestOddsAPIFallsBackToFirstBookWithMoneyline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, oddsFixture)
	}))
	defer srv.Close()

	src := NewOddsAPI(testClient(), nil, srv.URL, "key", "pinnacle", "", time.UTC, true, quietLogger())
	quotes, err := src.QuotesOn(context.Background(), day("2024-01-15"))
	require.NoError(t, err)
	require.Len(t, quotes, 1)
	assert.Equal(t, "betmgm", quotes[0].Bookmaker)
	assert.Equal(t, -160, quotes[0].HomePrice)
	assert.Zero(t, quotes[0].Spread)
}

func TestCircuitBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	base := srv.URL
	srv.Close()

	client := NewRateLimitedHTTPClient(HTTPClientConfig{
		Timeout:               time.Second,
		RateLimit:             1000,
		CircuitBreakerMax:     2,
		CircuitBreakerCooloff: time.Hour,
	}, quietLogger())

	for i := 0; i < 2; i++ {
		_, err := client.Get(context.Background(), base)
		require.Error(t, err)
	}
	assert.True(t, client.IsOpen())

	_, err := client.Get(context.Background(), base)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNetworkError)
	assert.Contains(t, err.Error(), "circuit breaker open")
}

func TestCircuitBreakerCountsServerErrors(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewRateLimitedHTTPClient(HTTPClientConfig{
		Timeout:               time.Second,
		RateLimit:             1000,
		CircuitBreakerMax:     2,
		CircuitBreakerCooloff: time.Hour,
	}, quietLogger())

	for i := 0; i < 2; i++ {
		resp, err := client.Get(context.Background(), srv.URL)
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
		resp.Body.Close()
	}
	assert.True(t, client.IsOpen())

	_, err := client.Get(context.Background(), srv.URL)
	assert.ErrorIs(t, err, ErrNetworkError)
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

func writeJSON(t *testing.T, dir, name string, v interface{}) {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), data, 0o600))
}

func TestFileSideTables(t *testing.T) {
	dir := t.TempDir()
	writeJSON(t, dir, AdvancedMetricsFile, []map[string]interface{}{
		{"season": 2023, "team": "Boston Celtics", "team_weighted_PER": 16.2, "team_weighted_BPM": 4.1, "team_weighted_WS48": 0.14},
	})
	writeJSON(t, dir, PlayerGamesFile, []map[string]interface{}{
		{"date": "2024-01-15", "team": "Boston Celtics", "player": "Tatum", "minutes": 36, "starter": true},
		{"date": "not-a-date", "team": "Boston Celtics", "player": "Ghost", "minutes": 10},
	})
	writeJSON(t, dir, InjuriesFile, []map[string]interface{}{
		{"date": "2024-01-15", "team": "Boston Celtics", "injured_count": 2, "injured_minutes_lost": 48},
	})
	writeJSON(t, dir, OddsFile, []map[string]interface{}{
		{"date": "2024-01-15", "home_team": "Boston Celtics", "away_team": "New York Knicks", "implied_home_prob": 0.58, "spread_home": -3.5, "total": 221.5},
	})

	tables, err := NewFileSideTables(dir, quietLogger()).LoadSideTables(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 16.2, tables.Advanced(2023, "Boston Celtics").PER)
	starters, ok := tables.Starters(day("2024-01-15"), "Boston Celtics")
	require.True(t, ok)
	assert.Equal(t, []string{"Tatum"}, starters)
	assert.Equal(t, 2.0, tables.InjuryOn(day("2024-01-15"), "Boston Celtics").Count)
	assert.Equal(t, 0.58, tables.OddsFor(day("2024-01-15"), "Boston Celtics", "New York Knicks").ImpliedHomeProb)

	// team_averages.json was never written.
	assert.Zero(t, tables.Averages(2023, "Boston Celtics").NetRating)
}

func TestFileSideTablesMalformed(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, InjuriesFile), []byte("{not json"), 0o600))

	_, err := NewFileSideTables(dir, quietLogger()).LoadSideTables(context.Background())
	assert.ErrorIs(t, err, ErrInvalidData)
}

func TestStaticSideTablesNeverNil(t *testing.T) {
	tables, err := StaticSideTables{}.LoadSideTables(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, tables)
}

func TestFactory(t *testing.T) {
	cfg := config.Default()
	f := NewFactory(cfg, quietLogger())
	require.NotNil(t, f.Cache())

	games, err := f.GameSource()
	require.NoError(t, err)
	assert.Equal(t, ballDontLieName, games.Name())

	_, err = f.QuoteSource()
	assert.Error(t, err, "odds provider without an api key")

	cfg.Providers.Odds.APIKey = "key"
	quotes, err := f.QuoteSource()
	require.NoError(t, err)
	assert.Equal(t, oddsAPIName, quotes.Name())

	cfg.Providers.Games.Enabled = false
	_, err = f.GameSource()
	assert.ErrorIs(t, err, ErrDisabled)

	cfg.Providers.SideTablesDir = ""
	assert.IsType(t, StaticSideTables{}, f.SideTableSource())
}
