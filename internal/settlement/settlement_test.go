package settlement

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/linelogic/internal/models"
	"github.com/yourusername/linelogic/internal/repository"
)

var day = time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

func decisionFor(g models.GameRecord, side models.Side, american int, decimalOdds float64, stake int64) models.StakeDecision {
	team, opp := g.HomeTeam, g.AwayTeam
	if side == models.SideAway {
		team, opp = opp, team
	}
	return models.StakeDecision{
		ID:             uuid.New(),
		GameID:         g.Key(),
		GameDate:       g.Day(),
		Selection:      team + " ML",
		Side:           side,
		Team:           team,
		Opponent:       opp,
		ModelProb:      0.6,
		FairMarketProb: 0.5,
		AmericanOdds:   american,
		DecimalOdds:    decimalOdds,
		StakeAmount:    decimal.NewFromInt(stake),
		BankrollAtTime: decimal.NewFromInt(10000),
		ModelVersion:   "elo-v1",
	}
}

type recordingOutcomes struct {
	mu    sync.Mutex
	calls map[string]float64
}

func (r *recordingOutcomes) LogOutcome(id string, prediction float64, actual *bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.calls == nil {
		r.calls = map[string]float64{}
	}
	r.calls[id] = prediction
	return nil
}

func TestGrade(t *testing.T) {
	tests := []struct {
		side models.Side
		hs   int
		as   int
		want models.Outcome
	}{
		{models.SideHome, 110, 100, models.OutcomeWin},
		{models.SideHome, 90, 100, models.OutcomeLoss},
		{models.SideAway, 90, 100, models.OutcomeWin},
		{models.SideAway, 110, 100, models.OutcomeLoss},
		{models.SideHome, 100, 100, models.OutcomePush},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Grade(tt.side, tt.hs, tt.as), "%s %d-%d", tt.side, tt.hs, tt.as)
	}
}

func TestProfitLoss(t *testing.T) {
	stake := decimal.NewFromInt(100)

	assert.Equal(t, "150.00", ProfitLoss(models.OutcomeWin, stake, 2.5).StringFixed(2))
	assert.Equal(t, "90.91", ProfitLoss(models.OutcomeWin, stake, 1.0+100.0/110.0).StringFixed(2))
	assert.Equal(t, "-100.00", ProfitLoss(models.OutcomeLoss, stake, 2.5).StringFixed(2))
	assert.True(t, ProfitLoss(models.OutcomePush, stake, 2.5).IsZero())
}

func TestSettleRejectsUnfinishedOrWrongGame(t *testing.T) {
	g := models.NewScheduledGame("g1", day, "BOS", "NYK")
	d := decisionFor(g, models.SideHome, 150, 2.5, 100)

	_, err := Settle(d, g, day)
	assert.ErrorIs(t, err, ErrGameNotFinal)

	other := models.NewCompletedGame("g2", day, "LAL", "GSW", 1, 0)
	_, err = Settle(d, other, day)
	assert.ErrorIs(t, err, ErrGameMismatch)
}

func TestSummarize(t *testing.T) {
	g := models.NewCompletedGame("g1", day, "BOS", "NYK", 110, 100)
	win := decisionFor(g, models.SideHome, 150, 2.5, 100)
	loss := decisionFor(models.NewCompletedGame("g2", day, "LAL", "GSW", 100, 105), models.SideHome, -110, 1.9091, 200)

	stWin, err := Settle(win, g, day)
	require.NoError(t, err)
	stLoss, err := Settle(loss, models.NewCompletedGame("g2", day, "LAL", "GSW", 100, 105), day)
	require.NoError(t, err)

	sum := Summarize([]models.StakeDecision{win, loss}, []models.Settlement{stWin, stLoss})
	assert.Equal(t, 2, sum.Settled)
	assert.Equal(t, 1, sum.Wins)
	assert.Equal(t, 1, sum.Losses)
	assert.Equal(t, "300.00", sum.Staked.StringFixed(2))
	assert.Equal(t, "-50.00", sum.ProfitLoss.StringFixed(2))
	assert.InDelta(t, -50.0/300.0, sum.ROI, 1e-12)
	assert.InDelta(t, 0.5, sum.WinRate, 1e-12)
	require.NotNil(t, sum.Forecast)
	assert.Equal(t, 2, sum.Forecast.Count)
}

func TestSettleDate(t *testing.T) {
	ctx := context.Background()
	repos := repository.NewMemoryRepositories()

	final := models.NewCompletedGame("g1", day, "BOS", "NYK", 100, 110)
	pending := models.NewScheduledGame("g2", day, "LAL", "GSW")
	require.NoError(t, repos.Game.UpsertGames(ctx, []models.GameRecord{final, pending}))

	away := decisionFor(final, models.SideAway, 120, 2.2, 100)
	open := decisionFor(pending, models.SideHome, -150, 1.6667, 50)
	require.NoError(t, repos.Decision.SaveDecisions(ctx, []models.StakeDecision{away, open}))

	require.NoError(t, repos.Quote.InsertQuotes(ctx, []models.MarketQuote{{
		Date: day, HomeTeam: "BOS", AwayTeam: "NYK", Bookmaker: "draftkings",
		HomePrice: 100, AwayPrice: -120, CapturedAt: day.Add(23 * time.Hour),
	}}))

	outcomes := &recordingOutcomes{}
	s := NewSettler(repos.Game, repos.Decision, repos.Settlement, repos.Quote, outcomes, testLogger())
	s.now = func() time.Time { return day.Add(30 * time.Hour) }

	sum, err := s.SettleDate(ctx, day)
	require.NoError(t, err)

	assert.Equal(t, 1, sum.Settled)
	assert.Equal(t, 1, sum.Pending)
	assert.Equal(t, 1, sum.Wins)
	assert.Equal(t, "120.00", sum.ProfitLoss.StringFixed(2))
	require.NotNil(t, sum.AverageCLV)
	// Away closed at fair 0.5217 against 0.5 when staked.
	assert.InDelta(t, (120.0/220.0)/(0.5+120.0/220.0)-0.5, *sum.AverageCLV, 1e-9)
	assert.InDelta(t, 0.4, outcomes.calls["g1"], 1e-12, "logged in home-win terms")

	st, err := repos.Settlement.GetByDecisionID(ctx, away.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeWin, st.Outcome)
	assert.Equal(t, 100, st.HomeScore)

	// Settling again only touches what is still open.
	sum, err = s.SettleDate(ctx, day)
	require.NoError(t, err)
	assert.Equal(t, 0, sum.Settled)
	assert.Equal(t, 1, sum.Pending)

	ledger := NewLedger(decimal.NewFromInt(10000), repos.Settlement)
	bankroll, err := ledger.CurrentBankroll(ctx)
	require.NoError(t, err)
	assert.Equal(t, "10120.00", bankroll.StringFixed(2))
}

func TestSettleDateNothingOpen(t *testing.T) {
	repos := repository.NewMemoryRepositories()
	s := NewSettler(repos.Game, repos.Decision, repos.Settlement, nil, nil, testLogger())

	sum, err := s.SettleDate(context.Background(), day)
	require.NoError(t, err)
	assert.Equal(t, 0, sum.Settled)
	assert.Equal(t, day, sum.Date)
}
