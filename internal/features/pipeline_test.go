package features

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/linelogic/internal/models"
	"github.com/yourusername/linelogic/internal/rating"
)

func day(s string) time.Time {
	t, err := time.Parse(models.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

func newTestPipeline(tables *SideTables) *Pipeline {
	return NewPipeline(DefaultConfig(), NewState(rating.DefaultConfig()), tables, quietLogger())
}

func sampleSeason() []models.GameRecord {
	return []models.GameRecord{
		models.NewCompletedGame("1", day("2023-10-24"), "BOS", "NYK", 108, 104),
		models.NewCompletedGame("2", day("2023-10-25"), "LAL", "DEN", 107, 119),
		models.NewCompletedGame("3", day("2023-10-27"), "NYK", "BOS", 100, 98),
		models.NewCompletedGame("4", day("2023-10-28"), "BOS", "LAL", 121, 101),
		models.NewCompletedGame("5", day("2023-10-29"), "DEN", "BOS", 110, 112),
		models.NewCompletedGame("6", day("2023-11-02"), "BOS", "NYK", 115, 99),
	}
}

func TestFirstGameUsesPriors(t *testing.T) {
	p := newTestPipeline(nil)
	vec, err := p.Extract(models.NewScheduledGame("x", day("2023-10-24"), "BOS", "NYK"))
	require.NoError(t, err)

	assert.Equal(t, 0.5, vec.Value(FeatHomeWinRate))
	assert.Equal(t, 0.5, vec.Value(FeatAwayWinRate))
	assert.Equal(t, 0.0, vec.Value(FeatHomePointDiff))
	assert.Equal(t, 3.0, vec.Value(FeatHomeRestDays))
	assert.Equal(t, 0.0, vec.Value(FeatHomeB2B))
	assert.Equal(t, 0.0, vec.Value(FeatHomeStreak))
	assert.Equal(t, 1500.0, vec.Value(FeatHomeElo))
	assert.Equal(t, 0.0, vec.Value(FeatEloDiff))
	assert.Equal(t, 1.0, vec.Value(FeatIsHome))
	assert.Equal(t, 0.0, vec.Value(FeatImpliedHomeProb))

	assert.False(t, p.State().Ratings().Known("BOS"), "extraction must not insert teams")
}

func TestEngineerExtractsBeforeUpdate(t *testing.T) {
	p := newTestPipeline(nil)
	results, err := p.Engineer(sampleSeason())
	require.NoError(t, err)
	require.Len(t, results, 6)

	first := results[0]
	require.True(t, first.OK())
	assert.Equal(t, 1500.0, first.Vector.Value(FeatHomeElo))
	require.NotNil(t, first.HomeWin)
	assert.True(t, *first.HomeWin)
	_, hasLabel := first.Vector.Get("home_win")
	assert.False(t, hasLabel)

	// Game 3: NYK hosts BOS after one meeting that BOS won.
	third := results[2]
	assert.Equal(t, 0.0, third.Vector.Value(FeatHomeWinRate))
	assert.Equal(t, 1.0, third.Vector.Value(FeatAwayWinRate))
	assert.Equal(t, -4.0, third.Vector.Value(FeatHomePointDiff))
	assert.Equal(t, 0.0, third.Vector.Value(FeatH2HHomeWins))
	assert.Equal(t, -1.0, third.Vector.Value(FeatHomeStreak))
	assert.Equal(t, 1.0, third.Vector.Value(FeatAwayStreak))
	assert.Equal(t, 2.0, third.Vector.Value(FeatHomeRestDays))

	assert.Equal(t, 6, p.State().Applied())
}

func TestNoLookAhead(t *testing.T) {
	games := sampleSeason()
	target := 3

	full := newTestPipeline(nil)
	fullResults, err := full.Engineer(games)
	require.NoError(t, err)

	truncated := newTestPipeline(nil)
	truncResults, err := truncated.Engineer(games[:target+1])
	require.NoError(t, err)

	assert.True(t, fullResults[target].Vector.Equal(truncResults[target].Vector))

	// Same vector when the target game is unscored.
	prefix := newTestPipeline(nil)
	_, err = prefix.Engineer(games[:target])
	require.NoError(t, err)
	g := games[target]
	vec, err := prefix.Extract(models.NewScheduledGame(g.ID, g.Date, g.HomeTeam, g.AwayTeam))
	require.NoError(t, err)
	assert.True(t, fullResults[target].Vector.Equal(vec))
}

func TestExtractIsIdempotent(t *testing.T) {
	p := newTestPipeline(nil)
	_, err := p.Engineer(sampleSeason())
	require.NoError(t, err)

	g := models.NewScheduledGame("next", day("2023-11-04"), "NYK", "DEN")
	before := p.State().Ratings().Ratings()

	a, err := p.Extract(g)
	require.NoError(t, err)
	b, err := p.Extract(g)
	require.NoError(t, err)

	assert.True(t, a.Equal(b))
	assert.Equal(t, before, p.State().Ratings().Ratings())
}

func TestEngineerSortsStably(t *testing.T) {
	games := sampleSeason()
	reversed := make([]models.GameRecord, len(games))
	for i := range games {
		reversed[len(games)-1-i] = games[i]
	}

	sorted, err := newTestPipeline(nil).Engineer(games)
	require.NoError(t, err)
	unsorted, err := newTestPipeline(nil).Engineer(reversed)
	require.NoError(t, err)

	for i := range sorted {
		assert.Equal(t, sorted[i].Game.ID, unsorted[i].Game.ID)
		assert.True(t, sorted[i].Vector.Equal(unsorted[i].Vector))
	}
}

func TestEngineerSameDayGamesSeeEarlierInBatch(t *testing.T) {
	first := models.NewCompletedGame("a", day("2024-01-15"), "BOS", "NYK", 120, 100)
	second := models.NewCompletedGame("b", day("2024-01-15"), "BOS", "LAL", 110, 105)

	results, err := newTestPipeline(nil).Engineer([]models.GameRecord{first, second})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "b", results[1].Game.ID)
	assert.Greater(t, results[1].Vector.Value(FeatHomeElo), 1500.0)

	results, err = newTestPipeline(nil).Engineer([]models.GameRecord{second, first})
	require.NoError(t, err)
	assert.Equal(t, "b", results[0].Game.ID)
	assert.Equal(t, 1500.0, results[0].Vector.Value(FeatHomeElo))
}

func TestScheduledGamesDoNotUpdateState(t *testing.T) {
	p := newTestPipeline(nil)
	games := []models.GameRecord{
		models.NewCompletedGame("1", day("2024-01-01"), "A", "B", 100, 90),
		models.NewScheduledGame("2", day("2024-01-02"), "A", "B"),
	}
	results, err := p.Engineer(games)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Nil(t, results[1].HomeWin)
	assert.Equal(t, 1, p.State().Applied())
	assert.Len(t, p.State().History("A"), 1)
}

func TestMalformedRecordIsolation(t *testing.T) {
	games := []models.GameRecord{
		models.NewCompletedGame("1", day("2024-01-01"), "A", "B", 100, 90),
		models.NewCompletedGame("2", day("2024-01-02"), "", "B", 100, 90),
		models.NewCompletedGame("3", day("2024-01-03"), "A", "B", 95, 99),
	}

	t.Run("record", func(t *testing.T) {
		p := newTestPipeline(nil)
		results, err := p.Engineer(games)
		require.NoError(t, err)
		require.Len(t, results, 3)
		assert.Equal(t, SkipMalformed, results[1].Skip)
		assert.True(t, IsMalformed(results[1].Err))
		assert.True(t, results[2].OK())
		assert.Equal(t, 2, p.State().Applied())
	})

	t.Run("batch", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Isolation = IsolationBatch
		p := NewPipeline(cfg, nil, nil, quietLogger())
		results, err := p.Engineer(games)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrMalformedGame)
		assert.Len(t, results, 1)
	})
}

func TestRestDaysAndBackToBack(t *testing.T) {
	p := newTestPipeline(nil)
	_, err := p.Engineer([]models.GameRecord{
		models.NewCompletedGame("1", day("2024-01-01"), "A", "B", 100, 90),
	})
	require.NoError(t, err)

	cases := []struct {
		date string
		rest float64
		b2b  float64
	}{
		{"2024-01-02", 0, 1},
		{"2024-01-03", 1, 0},
		{"2024-01-05", 3, 0},
		{"2024-01-20", 7, 0},
	}
	for _, tc := range cases {
		t.Run(tc.date, func(t *testing.T) {
			vec, err := p.Extract(models.NewScheduledGame("", day(tc.date), "A", "C"))
			require.NoError(t, err)
			assert.Equal(t, tc.rest, vec.Value(FeatHomeRestDays))
			assert.Equal(t, tc.b2b, vec.Value(FeatHomeB2B))
			assert.Equal(t, 3.0, vec.Value(FeatAwayRestDays))
		})
	}
}

func TestWinRateWindow(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Window = 3
	p := NewPipeline(cfg, nil, nil, quietLogger())

	var games []models.GameRecord
	start := day("2024-01-01")
	scores := [][2]int{{100, 90}, {80, 90}, {80, 90}, {100, 90}, {110, 100}}
	for i, s := range scores {
		games = append(games, models.NewCompletedGame("", start.AddDate(0, 0, 2*i), "A", "B", s[0], s[1]))
	}
	_, err := p.Engineer(games)
	require.NoError(t, err)

	vec, err := p.Extract(models.NewScheduledGame("", day("2024-02-01"), "A", "B"))
	require.NoError(t, err)
	assert.InDelta(t, 2.0/3.0, vec.Value(FeatHomeWinRate), 1e-12)
	assert.InDelta(t, 10.0/3.0, vec.Value(FeatHomePointDiff), 1e-12)
	assert.Equal(t, 2.0, vec.Value(FeatHomeStreak))
	assert.Equal(t, -2.0, vec.Value(FeatAwayStreak))
	assert.Equal(t, 3.0, vec.Value(FeatH2HHomeWins))
}

func TestLineupContinuityAndKeyPlayers(t *testing.T) {
	tables := NewSideTables()
	d1, d2 := day("2024-01-10"), day("2024-01-12")
	for i, pl := range []string{"p1", "p2", "p3", "p4", "p5"} {
		tables.AddPlayerGame(PlayerGame{Date: d1, Team: "A", Player: pl, Minutes: float64(40 - i), Starter: true})
	}
	for _, pl := range []string{"p1", "p2", "p6", "p7", "p8"} {
		tables.AddPlayerGame(PlayerGame{Date: d2, Team: "A", Player: pl, Minutes: 10, Starter: true})
	}

	p := newTestPipeline(tables)

	first, err := p.Extract(models.NewScheduledGame("", d1, "A", "B"))
	require.NoError(t, err)
	assert.Equal(t, 0.0, first.Value(FeatHomeLineupOverlap))
	assert.Equal(t, 0.0, first.Value(FeatHomeKeyOut))

	_, err = p.Apply(models.NewCompletedGame("", d1, "A", "B", 100, 95))
	require.NoError(t, err)
	assert.Equal(t, []string{"p1", "p2", "p3", "p4", "p5"}, p.State().PreviousLineup("A"))

	second, err := p.Extract(models.NewScheduledGame("", d2, "A", "C"))
	require.NoError(t, err)
	assert.Equal(t, 2.0, second.Value(FeatHomeLineupOverlap))
	// Season top three by minutes are p1, p2, p3 (50, 49, 38); p3 is out.
	assert.Equal(t, 1.0, second.Value(FeatHomeKeyOut))
	// No lineup known for C.
	assert.Equal(t, 0.0, second.Value(FeatAwayKeyOut))
}

func TestSideTableFeatures(t *testing.T) {
	tables := NewSideTables()
	d := day("2024-03-01")
	tables.AddAdvancedMetrics(AdvancedMetrics{Season: 2023, Team: "A", PER: 16, BPM: 2, WS48: 0.12})
	tables.AddAdvancedMetrics(AdvancedMetrics{Season: 2023, Team: "B", PER: 14, BPM: -1, WS48: 0.09})
	tables.AddTeamAverages(TeamAverages{Season: 2023, Team: "A", NetRating: 5, Pace: 99})
	tables.AddInjury(Injury{Date: d, Team: "B", Count: 2, MinutesLost: 61.5})
	tables.AddOdds(OddsLine{Date: d, HomeTeam: "A", AwayTeam: "B", ImpliedHomeProb: 0.62, SpreadHome: -5.5, Total: 221.5})

	p := newTestPipeline(tables)
	vec, err := p.Extract(models.NewScheduledGame("", d, "A", "B"))
	require.NoError(t, err)

	assert.Equal(t, 16.0, vec.Value(FeatHomePER))
	assert.Equal(t, 2.0, vec.Value(FeatPERDiff))
	assert.Equal(t, 3.0, vec.Value(FeatBPMDiff))
	assert.Equal(t, 5.0, vec.Value(FeatNetRatingDiff))
	assert.Equal(t, 0.0, vec.Value(FeatAwayPace))
	assert.Equal(t, 2.0, vec.Value(FeatAwayInjured))
	assert.Equal(t, 61.5, vec.Value(FeatAwayInjuredMinutes))
	assert.Equal(t, 0.0, vec.Value(FeatHomeInjured))
	assert.Equal(t, 0.62, vec.Value(FeatImpliedHomeProb))
	assert.Equal(t, -5.5, vec.Value(FeatSpreadHome))
	assert.Equal(t, 221.5, vec.Value(FeatTotal))
}

func TestVectorJSONPreservesOrder(t *testing.T) {
	v := NewFeatureVector([]string{"b", "a"}, []float64{1.5, 2})
	data, err := json.Marshal(v)
	require.NoError(t, err)
	assert.Equal(t, `{"b":1.5,"a":2}`, string(data))

	names := v.Names()
	names[0] = "mutated"
	assert.Equal(t, []string{"b", "a"}, v.Names())
}

func TestStateCloneIsIndependent(t *testing.T) {
	p := newTestPipeline(nil)
	_, err := p.Engineer(sampleSeason())
	require.NoError(t, err)

	clone := p.State().Clone()
	cp := NewPipeline(DefaultConfig(), clone, nil, quietLogger())
	_, err = cp.Apply(models.NewCompletedGame("", day("2023-11-05"), "NYK", "DEN", 120, 80))
	require.NoError(t, err)

	assert.Len(t, p.State().History("NYK"), 3)
	assert.Len(t, clone.History("NYK"), 4)
	assert.NotEqual(t, p.State().Ratings().Peek("NYK"), clone.Ratings().Peek("NYK"))
}
