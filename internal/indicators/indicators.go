// Package indicators provides pure technical-indicator math over
// chronologically ordered price series.
package indicators

import "math"

// SMA computes the simple moving average over series. The output has
// the same length as the input; indices before period-1 hold NaN since
// the window is not yet full.
func SMA(series []float64, period int) []float64 {
	out := make([]float64, len(series))
	if period <= 0 {
		for i := range out {
			out[i] = math.NaN()
		}
		return out
	}

	var windowSum float64
	for i, v := range series {
		windowSum += v
		if i >= period {
			windowSum -= series[i-period]
		}
		if i >= period-1 {
			out[i] = windowSum / float64(period)
		} else {
			out[i] = math.NaN()
		}
	}
	return out
}

// RSI returns the latest relative strength index over series using
// Wilder smoothing. ok is false when fewer than period+1 data points
// exist. A series with zero average loss yields 100; a flat series
// (no gains and no losses) is neutral 50.
func RSI(series []float64, period int) (rsi float64, ok bool) {
	if period <= 0 || len(series) < period+1 {
		return 0, false
	}

	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		diff := series[i] - series[i-1]
		if diff >= 0 {
			avgGain += diff
		} else {
			avgLoss -= diff
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	for i := period + 1; i < len(series); i++ {
		diff := series[i] - series[i-1]
		gain, loss := 0.0, 0.0
		if diff >= 0 {
			gain = diff
		} else {
			loss = -diff
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
	}

	if avgLoss == 0 {
		if avgGain == 0 {
			return 50, true
		}
		return 100, true
	}

	rs := avgGain / avgLoss
	return 100 - 100/(1+rs), true
}
