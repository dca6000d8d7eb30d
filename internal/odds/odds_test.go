package odds

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAmericanToImpliedProb(t *testing.T) {
	tests := []struct {
		name     string
		american int
		expected float64
	}{
		{"favorite", -110, 0.5238},
		{"heavy favorite", -150, 0.6},
		{"underdog", 150, 0.4},
		{"even", 100, 0.5},
		{"zero is even money", 0, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, AmericanToImpliedProb(tt.american), 1e-4)
		})
	}
}

func TestImpliedProbToAmerican(t *testing.T) {
	got, err := ImpliedProbToAmerican(0.4)
	require.NoError(t, err)
	assert.Equal(t, 150, got)

	got, err = ImpliedProbToAmerican(0.6)
	require.NoError(t, err)
	assert.Equal(t, -150, got)

	got, err = ImpliedProbToAmerican(0.5)
	require.NoError(t, err)
	assert.Equal(t, 100, got)

	for _, p := range []float64{0, 1, -0.1, 1.2, math.NaN()} {
		_, err := ImpliedProbToAmerican(p)
		assert.True(t, errors.Is(err, ErrDomain), "expected domain error for %v", p)
	}
}

func TestDecimalConversions(t *testing.T) {
	p, err := DecimalToImpliedProb(2.5)
	require.NoError(t, err)
	assert.InDelta(t, 0.4, p, 1e-12)

	d, err := ImpliedProbToDecimal(0.4)
	require.NoError(t, err)
	assert.InDelta(t, 2.5, d, 1e-12)

	_, err = DecimalToImpliedProb(1.0)
	assert.ErrorIs(t, err, ErrDomain)
	_, err = DecimalToImpliedProb(0.5)
	assert.ErrorIs(t, err, ErrDomain)
	_, err = ImpliedProbToDecimal(0)
	assert.ErrorIs(t, err, ErrDomain)

	d, err = AmericanToDecimal(-110)
	require.NoError(t, err)
	assert.InDelta(t, 1.909, d, 1e-3)

	_, err = AmericanToDecimal(50)
	assert.ErrorIs(t, err, ErrDomain)
}

func TestEvenMoneyIsPlusHundred(t *testing.T) {
	for _, o := range []int{-100, 100} {
		d, err := AmericanToDecimal(o)
		require.NoError(t, err)
		assert.Equal(t, 2.0, d)

		back, err := DecimalToAmerican(d)
		require.NoError(t, err)
		assert.Equal(t, 100, back, "even money from %d", o)
	}

	american, err := ImpliedProbToAmerican(0.5)
	require.NoError(t, err)
	assert.Equal(t, 100, american)
}

func TestAmericanDecimalRoundTrip(t *testing.T) {
	for o := -2000; o <= 2000; o++ {
		// -100 and +100 are the same price; even money comes back as +100.
		if o >= -100 && o < 100 {
			continue
		}
		d, err := AmericanToDecimal(o)
		require.NoError(t, err)
		back, err := DecimalToAmerican(d)
		require.NoError(t, err)
		assert.LessOrEqual(t, absInt(back-o), 1, "round trip of %d gave %d", o, back)
	}
}

func TestRemoveVigTwoWay(t *testing.T) {
	a, b, err := RemoveVigTwoWay(0.5238, 0.5238)
	require.NoError(t, err)
	assert.Equal(t, 0.5, a)
	assert.Equal(t, 0.5, b)

	a, b, err = RemoveVigTwoWay(0.6, 0.45)
	require.NoError(t, err)
	assert.InDelta(t, 0.571, a, 1e-3)
	assert.InDelta(t, 0.429, b, 1e-3)

	_, _, err = RemoveVigTwoWay(0, 0)
	assert.ErrorIs(t, err, ErrDomain)
	_, _, err = RemoveVigTwoWay(-0.1, 0.5)
	assert.ErrorIs(t, err, ErrDomain)
}

func TestRemoveVigTwoWaySumsToOne(t *testing.T) {
	pairs := [][2]float64{
		{0.5238, 0.5238}, {0.91, 0.13}, {0.0001, 0.9999}, {1e-9, 3}, {0.33, 0.33}, {7, 11},
	}
	for _, pair := range pairs {
		a, b, err := RemoveVigTwoWay(pair[0], pair[1])
		require.NoError(t, err)
		assert.InDelta(t, 1.0, a+b, 1e-9)
	}
}

func TestEdgeAndExpectedValue(t *testing.T) {
	assert.InDelta(t, 0.1, Edge(0.6, 0.5), 1e-12)
	assert.InDelta(t, -0.02, Edge(0.48, 0.5), 1e-12)

	assert.InDelta(t, 15.5, ExpectedValue(0.55, 110, 100), 1e-9)
	assert.InDelta(t, 0.0, ExpectedValue(0.5, 100, 100), 1e-9)
	assert.InDelta(t, -10.0, ExpectedValue(0.45, 100, 100), 1e-9)
}

func TestBreakEvenAndPayout(t *testing.T) {
	assert.InDelta(t, 0.4, BreakEvenWinRate(150), 1e-9)
	assert.InDelta(t, 0.524, BreakEvenWinRate(-110), 1e-3)

	assert.InDelta(t, 150.0, PayoutFromAmerican(150, 100), 1e-9)
	assert.InDelta(t, 100.0, PayoutFromAmerican(-150, 150), 1e-9)
	assert.InDelta(t, 100.0, PayoutFromAmerican(100, 100), 1e-9)
	assert.InDelta(t, 100.0, PayoutFromAmerican(0, 100), 1e-9)
}

func TestClampProbability(t *testing.T) {
	assert.Equal(t, 1e-6, ClampProbability(0, 1e-6))
	assert.Equal(t, 1-1e-6, ClampProbability(1, 1e-6))
	assert.Equal(t, 0.3, ClampProbability(0.3, 1e-6))
	assert.False(t, math.IsInf(Logit(0), 0))
	assert.False(t, math.IsInf(Logit(1), 0))
	assert.InDelta(t, 0.0, Logit(0.5), 1e-12)
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
