package ingest

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/linelogic/internal/models"
	"github.com/yourusername/linelogic/internal/odds"
	"github.com/yourusername/linelogic/internal/repository"
)

type MockGameSource struct{ mock.Mock }

func (m *MockGameSource) GamesBetween(ctx context.Context, start, end time.Time) ([]models.GameRecord, error) {
	args := m.Called(ctx, start, end)
	games, _ := args.Get(0).([]models.GameRecord)
	return games, args.Error(1)
}

func (m *MockGameSource) Name() string { return "mock_games" }

type MockQuoteSource struct{ mock.Mock }

func (m *MockQuoteSource) QuotesOn(ctx context.Context, date time.Time) ([]models.MarketQuote, error) {
	args := m.Called(ctx, date)
	quotes, _ := args.Get(0).([]models.MarketQuote)
	return quotes, args.Error(1)
}

func (m *MockQuoteSource) Name() string { return "mock_quotes" }

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

var day = time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

func quote(home, away string, homePrice, awayPrice int, at time.Time) models.MarketQuote {
	return models.MarketQuote{
		Date:            day,
		HomeTeam:        home,
		AwayTeam:        away,
		Bookmaker:       "draftkings",
		HomePrice:       homePrice,
		AwayPrice:       awayPrice,
		HomeImpliedProb: odds.AmericanToImpliedProb(homePrice),
		AwayImpliedProb: odds.AmericanToImpliedProb(awayPrice),
		CapturedAt:      at,
	}
}

func TestIngestGames(t *testing.T) {
	games := new(MockGameSource)
	store := repository.NewMemoryStore()
	svc := NewService(games, nil, store.Games(), store.Quotes(), quietLogger(), 2)

	final := models.NewCompletedGame("g1", day, "Boston Celtics", "New York Knicks", 110, 101)
	games.On("GamesBetween", mock.Anything, day, day).Return([]models.GameRecord{
		models.NewScheduledGame("g1", day, "Boston Celtics", "New York Knicks"),
		models.NewScheduledGame("g2", day, "Denver Nuggets", "Los Angeles Lakers"),
		{ID: "bad", Date: day, HomeTeam: "Utah Jazz", AwayTeam: "Utah Jazz"},
		final,
		models.NewScheduledGame("g3", day, "Miami Heat", "Orlando Magic"),
	}, nil)

	stats, err := svc.IngestGames(context.Background(), day, day)
	require.NoError(t, err)
	assert.Equal(t, 5, stats.Fetched)
	assert.Equal(t, 3, stats.Stored)
	assert.Equal(t, 1, stats.Duplicates)
	assert.Equal(t, 1, stats.ValidationErrors)
	assert.Zero(t, stats.Errors)

	stored, err := store.Games().GetByID(context.Background(), "g1")
	require.NoError(t, err)
	assert.True(t, stored.IsCompleted(), "the later final score replaces the scheduled record")
	games.AssertExpectations(t)
}

func TestIngestGamesFetchError(t *testing.T) {
	games := new(MockGameSource)
	store := repository.NewMemoryStore()
	svc := NewService(games, nil, store.Games(), store.Quotes(), quietLogger(), 0)

	games.On("GamesBetween", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("timeout"))

	stats, err := svc.IngestGames(context.Background(), day, day)
	require.Error(t, err)
	assert.Equal(t, 1, stats.Errors)
}

func TestCaptureQuotes(t *testing.T) {
	quotes := new(MockQuoteSource)
	store := repository.NewMemoryStore()
	svc := NewService(nil, quotes, store.Games(), store.Quotes(), quietLogger(), 0)

	early := time.Date(2024, 1, 15, 15, 0, 0, 0, time.UTC)
	late := early.Add(2 * time.Hour)
	quotes.On("QuotesOn", mock.Anything, day).Return([]models.MarketQuote{
		quote("Boston Celtics", "New York Knicks", -200, 170, early),
		quote("Boston Celtics", "New York Knicks", -220, 185, late),
		quote("Denver Nuggets", "Los Angeles Lakers", 50, -120, early),
	}, nil)

	stats, err := svc.CaptureQuotes(context.Background(), day)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Fetched)
	assert.Equal(t, 1, stats.Stored)
	assert.Equal(t, 1, stats.Duplicates)
	assert.Equal(t, 1, stats.ValidationErrors)

	stored, err := store.Quotes().QuotesOn(context.Background(), day)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, -220, stored[0].HomePrice, "the latest snapshot in a capture wins")
}

func TestCaptureDay(t *testing.T) {
	games := new(MockGameSource)
	quotes := new(MockQuoteSource)
	store := repository.NewMemoryStore()
	svc := NewService(games, quotes, store.Games(), store.Quotes(), quietLogger(), 0)

	games.On("GamesBetween", mock.Anything, day.AddDate(0, 0, -1), day).Return([]models.GameRecord{}, nil)
	quotes.On("QuotesOn", mock.Anything, day).Return(nil, errors.New("quota exceeded"))

	err := svc.CaptureDay(context.Background(), day)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
	games.AssertExpectations(t)
}

func TestValidateQuote(t *testing.T) {
	v := NewValidator()
	assert.Empty(t, v.ValidateQuote(quote("Boston Celtics", "New York Knicks", -150, 130, day)))

	q := quote("Boston Celtics", "Boston Celtics", -150, 130, day)
	q.CapturedAt = time.Time{}
	problems := v.ValidateQuote(q)
	assert.Len(t, problems, 2)

	// 1.0 + 1.0 implied: no book quotes this.
	wide := quote("Boston Celtics", "New York Knicks", -10000, -10000, day)
	assert.NotEmpty(t, v.ValidateQuote(wide))
}

func TestValidateGame(t *testing.T) {
	v := NewValidator()
	v.now = func() time.Time { return day }

	assert.Empty(t, v.ValidateGame(models.NewCompletedGame("g", day, "A", "B", 100, 90)))
	assert.NotEmpty(t, v.ValidateGame(models.NewCompletedGame("g", day, "A", "B", 400, 90)))
	assert.NotEmpty(t, v.ValidateGame(models.NewScheduledGame("g", day.AddDate(2, 0, 0), "A", "B")))

	hs := 100
	half := models.GameRecord{ID: "g", Date: day, HomeTeam: "A", AwayTeam: "B", HomeScore: &hs}
	assert.NotEmpty(t, v.ValidateGame(half))
}
