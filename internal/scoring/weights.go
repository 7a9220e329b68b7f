package scoring

import (
	"os"
	"strconv"
)

// Weights holds every tunable constant of the ranking formula. The
// defaults are the reference configuration; each field can be
// overridden through its SCORING_* environment variable so weight
// experiments do not need a rebuild.
type Weights struct {
	HypeNews      float64
	HypeSentiment float64

	ValueAnalyst   float64
	ValueBeta      float64
	ValueValuation float64
	ValueEarnings  float64
	ValuePotential float64

	CompositeHype  float64
	CompositeValue float64

	AdmissionThreshold float64
	PerStyleLimit      int
}

func DefaultWeights() Weights {
	return Weights{
		HypeNews:      0.6,
		HypeSentiment: 0.4,

		ValueAnalyst:   0.3,
		ValueBeta:      0.2,
		ValueValuation: 0.2,
		ValueEarnings:  0.15,
		ValuePotential: 0.15,

		CompositeHype:  0.3,
		CompositeValue: 0.7,

		AdmissionThreshold: 8.0,
		PerStyleLimit:      5,
	}
}

// WeightsFromEnv returns the defaults with any SCORING_* overrides
// applied. Unparseable values are ignored.
func WeightsFromEnv() Weights {
	w := DefaultWeights()
	envFloat("SCORING_HYPE_NEWS", &w.HypeNews)
	envFloat("SCORING_HYPE_SENTIMENT", &w.HypeSentiment)
	envFloat("SCORING_VALUE_ANALYST", &w.ValueAnalyst)
	envFloat("SCORING_VALUE_BETA", &w.ValueBeta)
	envFloat("SCORING_VALUE_VALUATION", &w.ValueValuation)
	envFloat("SCORING_VALUE_EARNINGS", &w.ValueEarnings)
	envFloat("SCORING_VALUE_POTENTIAL", &w.ValuePotential)
	envFloat("SCORING_COMPOSITE_HYPE", &w.CompositeHype)
	envFloat("SCORING_COMPOSITE_VALUE", &w.CompositeValue)
	envFloat("SCORING_ADMISSION_THRESHOLD", &w.AdmissionThreshold)
	envInt("SCORING_PER_STYLE_LIMIT", &w.PerStyleLimit)
	return w
}

func envFloat(key string, dst *float64) {
	raw := os.Getenv(key)
	if raw == "" {
		return
	}
	if v, err := strconv.ParseFloat(raw, 64); err == nil {
		*dst = v
	}
}

func envInt(key string, dst *int) {
	raw := os.Getenv(key)
	if raw == "" {
		return
	}
	if v, err := strconv.Atoi(raw); err == nil && v > 0 {
		*dst = v
	}
}
