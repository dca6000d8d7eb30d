package staking

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExposureTrackerTrimsToRemainingCapacity(t *testing.T) {
	d := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	tr := NewExposureTracker(DefaultCaps(), decimal.NewFromInt(1000), nil)

	// per bet 50, per game 100, per day 200, per team 100
	got, err := tr.Reserve(Candidate{GameID: "g1", Day: d, Team: "BOS"}, decimal.NewFromInt(50))
	require.NoError(t, err)
	assert.True(t, got.Equal(decimal.NewFromInt(50)))

	got, err = tr.Reserve(Candidate{GameID: "g1", Day: d, Team: "NYK"}, decimal.NewFromInt(80))
	require.NoError(t, err)
	assert.True(t, got.Equal(decimal.NewFromInt(50)), "trimmed to per-bet and game room")

	_, err = tr.Reserve(Candidate{GameID: "g1", Day: d, Team: "LAL"}, decimal.NewFromInt(10))
	assert.ErrorIs(t, err, ErrExposureLimit)

	got, err = tr.Reserve(Candidate{GameID: "g2", Day: d, Team: "BOS"}, decimal.NewFromInt(50))
	require.NoError(t, err)
	assert.True(t, got.Equal(decimal.NewFromInt(50)))

	_, err = tr.Reserve(Candidate{GameID: "g3", Day: d, Team: "BOS"}, decimal.NewFromInt(5))
	assert.ErrorIs(t, err, ErrExposureLimit, "team cap exhausted")

	m := tr.GetMetrics()
	assert.Equal(t, 3, m.Bets)
	assert.Equal(t, 1, m.Trimmed)
	assert.Equal(t, 2, m.Rejected)
	assert.True(t, m.TotalExposure.Equal(decimal.NewFromInt(150)))
}

func TestExposureTrackerDailyCap(t *testing.T) {
	d := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	tr := NewExposureTracker(DefaultCaps(), decimal.NewFromInt(1000), nil)

	teams := []string{"A", "B", "C", "D", "E"}
	total := decimal.Zero
	for i, team := range teams {
		got, err := tr.Reserve(Candidate{GameID: team, Day: d, Team: team}, decimal.NewFromInt(50))
		if i < 4 {
			require.NoError(t, err)
			total = total.Add(got)
		} else {
			assert.ErrorIs(t, err, ErrExposureLimit)
		}
	}
	assert.True(t, total.Equal(decimal.NewFromInt(200)))

	next := d.AddDate(0, 0, 1)
	assert.True(t, tr.Remaining(Candidate{GameID: "F", Day: next, Team: "F"}).Equal(decimal.NewFromInt(50)))
}

func TestCorrelated(t *testing.T) {
	existing := []Candidate{{GameID: "LAL_BOS", Player: "LeBron"}}

	assert.True(t, Correlated(existing, Candidate{GameID: "LAL_BOS", Player: "Tatum"}))
	assert.True(t, Correlated(existing, Candidate{GameID: "LAL_GSW", Player: "LeBron"}))
	assert.False(t, Correlated(existing, Candidate{GameID: "NYK_MIA", Player: "Brunson"}))
	assert.False(t, Correlated(existing, Candidate{}))
	assert.True(t, Correlated([]Candidate{{Team: "BOS"}}, Candidate{Team: "BOS"}))

	tr := NewExposureTracker(DefaultCaps(), decimal.NewFromInt(1000), nil)
	_, err := tr.Reserve(Candidate{GameID: "g1", Team: "BOS"}, decimal.NewFromInt(10))
	require.NoError(t, err)
	assert.True(t, tr.Correlated(Candidate{GameID: "g2", Team: "BOS"}))
	assert.False(t, tr.Correlated(Candidate{GameID: "g2", Team: "NYK"}))
}
