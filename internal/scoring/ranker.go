package scoring

import (
	"sort"
	"time"

	"github.com/kts999jjang/themeradar/internal/models"
)

// leadingCapMillions is the style boundary: at or above $100B market
// cap a candidate counts as leading, below it as growth.
const leadingCapMillions = 100_000

// Rank computes hype/value/composite scores for each candidate,
// classifies style, applies the admission threshold and returns the
// per-style top lists. Pure function of its input: candidates arrive
// with identity and SubScores set, ties keep input order.
func Rank(themeName string, candidates []models.ScoredCandidate, w Weights) models.ThemeResult {
	admitted := make([]models.ScoredCandidate, 0, len(candidates))
	for _, c := range candidates {
		c.HypeScore = c.SubScores.NewsScore*w.HypeNews + c.SubScores.SentimentScore*w.HypeSentiment
		c.ValueScore = c.SubScores.AnalystScore*w.ValueAnalyst +
			c.SubScores.BetaScore*w.ValueBeta +
			c.SubScores.ValuationScore*w.ValueValuation +
			c.SubScores.EarningsSurpriseScore*w.ValueEarnings +
			c.SubScores.PotentialScore*w.ValuePotential
		c.CompositeScore = c.HypeScore*w.CompositeHype + c.ValueScore*w.CompositeValue

		if c.SubScores.MarketCap >= leadingCapMillions {
			c.Style = models.StyleLeading
		} else {
			c.Style = models.StyleGrowth
			c.CompositeScore += smallCapBonus(c.SubScores.MarketCap)
		}

		if c.CompositeScore > w.AdmissionThreshold {
			admitted = append(admitted, c)
		}
	}

	sort.SliceStable(admitted, func(i, j int) bool {
		return admitted[i].CompositeScore > admitted[j].CompositeScore
	})

	result := models.ThemeResult{ThemeName: themeName, AnalyzedAt: time.Now().UTC()}
	for _, c := range admitted {
		switch c.Style {
		case models.StyleLeading:
			if len(result.Leading) < w.PerStyleLimit {
				result.Leading = append(result.Leading, c)
			}
		case models.StyleGrowth:
			if len(result.Growth) < w.PerStyleLimit {
				result.Growth = append(result.Growth, c)
			}
		}
	}
	return result
}

// smallCapBonus rewards smaller companies: 10 points at zero cap,
// tapering to 0 at the $100B boundary.
func smallCapBonus(marketCapMillions float64) float64 {
	capUSD := marketCapMillions * 1e6
	if capUSD < 0 {
		capUSD = 0
	}
	if capUSD > 100e9 {
		capUSD = 100e9
	}
	return (1 - capUSD/100e9) * 10
}
