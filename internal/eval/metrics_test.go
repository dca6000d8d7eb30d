package eval

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBrier(t *testing.T) {
	got, err := Brier([]float64{0.7, 0.3}, []bool{true, false})
	require.NoError(t, err)
	assert.InDelta(t, 0.09, got, 1e-12)

	got, err = Brier([]float64{1, 0}, []bool{true, false})
	require.NoError(t, err)
	assert.Zero(t, got)

	_, err = Brier([]float64{0.5}, []bool{true, false})
	assert.ErrorIs(t, err, ErrLengthMismatch)
	_, err = Brier(nil, nil)
	assert.ErrorIs(t, err, ErrEmpty)
	_, err = Brier([]float64{1.2}, []bool{true})
	assert.ErrorIs(t, err, ErrInvalidForecast)
}

func TestLogLossClampsExtremes(t *testing.T) {
	got, err := LogLoss([]float64{0.5, 0.5}, []bool{true, false})
	require.NoError(t, err)
	assert.InDelta(t, math.Ln2, got, 1e-12)

	got, err = LogLoss([]float64{0}, []bool{true})
	require.NoError(t, err)
	assert.False(t, math.IsInf(got, 0))
	assert.InDelta(t, -math.Log(1e-15), got, 1e-6)
}

func TestAccuracy(t *testing.T) {
	got, err := Accuracy([]float64{0.8, 0.4, 0.6, 0.5}, []bool{true, false, false, false})
	require.NoError(t, err)
	assert.InDelta(t, 0.75, got, 1e-12)
}

func TestCalibration(t *testing.T) {
	preds := []float64{0.52, 0.53, 0.57, 0.58, 0.62, 0.63, 0.67, 0.68, 1.0}
	outcomes := []bool{true, false, true, true, true, false, true, true, true}

	buckets, err := Calibration(preds, outcomes, 10)
	require.NoError(t, err)
	require.Len(t, buckets, 3)

	assert.InDelta(t, 0.5, buckets[0].Min, 1e-12)
	assert.Equal(t, 4, buckets[0].Total)
	assert.Equal(t, 3, buckets[0].Wins)
	assert.InDelta(t, 0.55, buckets[0].AvgPredicted, 1e-12)
	assert.InDelta(t, 0.75, buckets[0].WinRate, 1e-12)

	last := buckets[2]
	assert.InDelta(t, 0.9, last.Min, 1e-12)
	assert.Equal(t, 1, last.Total)

	empty, err := Calibration(nil, nil, 10)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestCLV(t *testing.T) {
	assert.InDelta(t, 0.048, CLV(0.476, 0.524), 1e-12)
	assert.Zero(t, CLV(0.5, 0.5))
	assert.Less(t, CLV(0.55, 0.5), 0.0)
}

func TestSummarize(t *testing.T) {
	s, err := Summarize([]float64{0.7, 0.3}, []bool{true, false})
	require.NoError(t, err)
	assert.Equal(t, 2, s.Count)
	assert.InDelta(t, 0.09, s.Brier, 1e-12)
	assert.InDelta(t, 1.0, s.Accuracy, 1e-12)
	assert.InDelta(t, -math.Log(0.7), s.LogLoss, 1e-12)
}
