package scoring

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kts999jjang/themeradar/internal/models"
)

func candidate(ticker string, sub models.SubScores) models.ScoredCandidate {
	return models.ScoredCandidate{Ticker: ticker, CompanyName: ticker, SubScores: sub}
}

func uniformSubScores(v, marketCapMillions float64) models.SubScores {
	return models.SubScores{
		NewsScore:             v,
		SentimentScore:        v,
		BetaScore:             v,
		AnalystScore:          v,
		EarningsSurpriseScore: v,
		ValuationScore:        v,
		PotentialScore:        v,
		MarketCap:             marketCapMillions,
	}
}

func TestRankWeightMath(t *testing.T) {
	// newsScore 8, sentimentScore 5 must produce hypeScore 6.8 with the
	// reference weights.
	sub := models.SubScores{NewsScore: 8, SentimentScore: 5, MarketCap: 200_000}
	result := Rank("AI & Semiconductors", []models.ScoredCandidate{candidate("NVDA", sub)}, Weights{
		HypeNews: 0.6, HypeSentiment: 0.4,
		CompositeHype: 1.0, AdmissionThreshold: 0, PerStyleLimit: 5,
	})

	require.Len(t, result.Leading, 1)
	assert.InDelta(t, 6.8, result.Leading[0].HypeScore, 1e-9)
	assert.InDelta(t, 6.8, result.Leading[0].CompositeScore, 1e-9)
}

func TestRankAdmissionThresholdIsStrict(t *testing.T) {
	w := DefaultWeights()
	// Uniform sub-scores of 8 with a leading cap yield a composite of
	// exactly 8.0, which must not be admitted.
	exactly := candidate("MEH", uniformSubScores(8, 200_000))
	above := candidate("YES", uniformSubScores(10, 200_000))

	result := Rank("Cloud Computing", []models.ScoredCandidate{exactly, above}, w)

	require.Len(t, result.Leading, 1)
	assert.Equal(t, "YES", result.Leading[0].Ticker)
	assert.Empty(t, result.Growth)
}

func TestRankStyleSplitAndSmallCapBonus(t *testing.T) {
	w := DefaultWeights()
	big := candidate("BIG", uniformSubScores(10, 100_000)) // exactly $100B: leading
	tiny := candidate("TINY", uniformSubScores(10, 500))   // $500M: growth + bonus

	result := Rank("Clean Energy", []models.ScoredCandidate{big, tiny}, w)

	require.Len(t, result.Leading, 1)
	require.Len(t, result.Growth, 1)
	assert.Equal(t, "BIG", result.Leading[0].Ticker)
	assert.Equal(t, models.StyleLeading, result.Leading[0].Style)
	assert.InDelta(t, 10.0, result.Leading[0].CompositeScore, 1e-9)

	// bonus = (1 - 0.5e9/100e9) * 10 = 9.95 on top of the base 10.
	assert.Equal(t, models.StyleGrowth, result.Growth[0].Style)
	assert.InDelta(t, 19.95, result.Growth[0].CompositeScore, 1e-9)
}

func TestRankStableTieBreak(t *testing.T) {
	w := DefaultWeights()
	first := candidate("AAA", uniformSubScores(10, 200_000))
	second := candidate("BBB", uniformSubScores(10, 200_000))

	result := Rank("Biotech & Healthcare", []models.ScoredCandidate{first, second}, w)

	require.Len(t, result.Leading, 2)
	assert.Equal(t, "AAA", result.Leading[0].Ticker, "equal scores keep input order")
	assert.Equal(t, "BBB", result.Leading[1].Ticker)
}

func TestRankPerStyleLimitAndDisjointPartitions(t *testing.T) {
	w := DefaultWeights()
	var candidates []models.ScoredCandidate
	for i := 0; i < 8; i++ {
		candidates = append(candidates,
			candidate(fmt.Sprintf("L%d", i), uniformSubScores(10, 200_000)),
			candidate(fmt.Sprintf("G%d", i), uniformSubScores(10, 500)))
	}

	result := Rank("EV & Autonomous Driving", candidates, w)

	assert.Len(t, result.Leading, w.PerStyleLimit)
	assert.Len(t, result.Growth, w.PerStyleLimit)

	seen := make(map[string]bool)
	for _, c := range append(result.Leading, result.Growth...) {
		assert.False(t, seen[c.Ticker], "ticker %s appears in both partitions", c.Ticker)
		seen[c.Ticker] = true
	}
	for _, c := range result.Leading {
		assert.Equal(t, models.StyleLeading, c.Style)
	}
	for _, c := range result.Growth {
		assert.Equal(t, models.StyleGrowth, c.Style)
	}
}

func TestRankEmptyAfterAdmissionIsNotAnError(t *testing.T) {
	result := Rank("Metaverse & VR", []models.ScoredCandidate{
		candidate("LOW", uniformSubScores(1, 200_000)),
	}, DefaultWeights())

	assert.True(t, result.Empty())
	assert.Equal(t, "Metaverse & VR", result.ThemeName)
}
