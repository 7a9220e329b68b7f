package indicators

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSMALengthAndSentinels(t *testing.T) {
	series := []float64{1, 2, 3, 4, 5, 6}
	out := SMA(series, 3)

	require.Len(t, out, len(series))
	for i := 0; i < 2; i++ {
		assert.True(t, math.IsNaN(out[i]), "index %d should be NaN", i)
	}
	for i := 2; i < len(series); i++ {
		want := (series[i-2] + series[i-1] + series[i]) / 3
		assert.InDelta(t, want, out[i], 1e-9)
	}
}

func TestSMAWindowLargerThanSeries(t *testing.T) {
	out := SMA([]float64{1, 2}, 5)
	require.Len(t, out, 2)
	assert.True(t, math.IsNaN(out[0]))
	assert.True(t, math.IsNaN(out[1]))
}

func TestRSIMonotonicIncrease(t *testing.T) {
	series := make([]float64, 30)
	for i := range series {
		series[i] = float64(i + 1)
	}

	rsi, ok := RSI(series, 14)
	require.True(t, ok)
	assert.Equal(t, 100.0, rsi)
}

func TestRSIFlatSeriesIsNeutral(t *testing.T) {
	series := make([]float64, 30)
	for i := range series {
		series[i] = 42.0
	}

	rsi, ok := RSI(series, 14)
	require.True(t, ok)
	assert.InDelta(t, 50.0, rsi, 1e-9)
}

func TestRSITooFewPoints(t *testing.T) {
	series := []float64{1, 2, 3}
	_, ok := RSI(series, 14)
	assert.False(t, ok)

	// Exactly period points is still one short of the first delta window.
	series = make([]float64, 14)
	_, ok = RSI(series, 14)
	assert.False(t, ok)
}

func TestRSIStaysInRange(t *testing.T) {
	series := []float64{
		44.34, 44.09, 44.15, 43.61, 44.33, 44.83, 45.10, 45.42,
		45.84, 46.08, 45.89, 46.03, 45.61, 46.28, 46.28, 46.00,
		46.03, 46.41, 46.22, 45.64, 46.21, 46.25, 45.71, 46.45,
	}

	rsi, ok := RSI(series, 14)
	require.True(t, ok)
	assert.GreaterOrEqual(t, rsi, 0.0)
	assert.LessOrEqual(t, rsi, 100.0)
}

func TestRSIWilderSmoothing(t *testing.T) {
	// Hand-computed over a short series with period 2.
	series := []float64{10, 11, 10, 12}
	// deltas: +1, -1, +2
	// initial avgGain = (1+0)/2 = 0.5, avgLoss = (0+1)/2 = 0.5
	// step 3: avgGain = (0.5*1+2)/2 = 1.25, avgLoss = (0.5*1+0)/2 = 0.25
	// rs = 5, rsi = 100 - 100/6
	rsi, ok := RSI(series, 2)
	require.True(t, ok)
	assert.InDelta(t, 100-100.0/6.0, rsi, 1e-9)
}
