package scoring

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kts999jjang/themeradar/internal/models"
)

type fakeFundamentals struct {
	metric         *models.FinnhubMetric
	recommendation *models.FinnhubRecommendation
	surprises      []models.FinnhubEarningsSurprise
	quote          *models.FinnhubQuote
	err            error
}

func (f *fakeFundamentals) Metrics(context.Context, string) (*models.FinnhubMetric, error) {
	return f.metric, f.err
}

func (f *fakeFundamentals) RecommendationTrend(context.Context, string) (*models.FinnhubRecommendation, error) {
	return f.recommendation, f.err
}

func (f *fakeFundamentals) EarningsSurprises(context.Context, string) ([]models.FinnhubEarningsSurprise, error) {
	return f.surprises, f.err
}

func (f *fakeFundamentals) Quote(context.Context, string) (*models.FinnhubQuote, error) {
	return f.quote, f.err
}

func fp(v float64) *float64 { return &v }

func TestScoreComputesAllSubScores(t *testing.T) {
	scorer := NewScorer(&fakeFundamentals{
		metric: &models.FinnhubMetric{
			MarketCapitalization: fp(250_000),
			Beta:                 fp(0.75),
			PETTM:                fp(15),
			PBAnnual:             fp(1.5),
			High52Week:           fp(100),
			Low52Week:            fp(50),
		},
		recommendation: &models.FinnhubRecommendation{StrongBuy: 3, Buy: 4},
		surprises: []models.FinnhubEarningsSurprise{
			{Surprise: 0.12}, {Surprise: -0.05}, {Surprise: 0.3}, {Surprise: 0.01},
		},
		quote: &models.FinnhubQuote{Current: 60},
	})

	scores, err := scorer.Score(context.Background(), "NVDA", nil)
	require.NoError(t, err)

	assert.InDelta(t, 5.0, scores.BetaScore, 1e-9)
	assert.InDelta(t, 10.0, scores.AnalystScore, 1e-9)
	assert.InDelta(t, 7.5, scores.EarningsSurpriseScore, 1e-9)
	assert.InDelta(t, 5.0, scores.ValuationScore, 1e-9)
	assert.InDelta(t, 8.0, scores.PotentialScore, 1e-9)
	assert.InDelta(t, 250_000, scores.MarketCap, 1e-9)
}

func TestScoreDegradesOnProviderFailure(t *testing.T) {
	scorer := NewScorer(&fakeFundamentals{err: errors.New("upstream down")})

	scores, err := scorer.Score(context.Background(), "NVDA", nil)
	require.NoError(t, err, "provider failures must not fail the ticker")

	assert.Zero(t, scores.BetaScore, "missing beta defaults to 1.5, scoring 0")
	assert.Zero(t, scores.AnalystScore)
	assert.Zero(t, scores.EarningsSurpriseScore)
	assert.Zero(t, scores.ValuationScore)
	assert.Zero(t, scores.PotentialScore)
	assert.Zero(t, scores.MarketCap)
	assert.InDelta(t, 5.0, scores.SentimentScore, 1e-9, "no titles means neutral sentiment")
}

func TestSentimentScoreTracksPolarity(t *testing.T) {
	positive := sentimentScore([]string{
		"Company posts record profit, shares surge on great earnings",
	})
	negative := sentimentScore([]string{
		"Company crashes after terrible losses and layoffs",
	})

	assert.Greater(t, positive, 5.0)
	assert.Less(t, negative, 5.0)
	assert.GreaterOrEqual(t, positive, 0.0)
	assert.LessOrEqual(t, positive, 10.0)
}

func TestPotentialScoreClampsAndGuards(t *testing.T) {
	metric := &models.FinnhubMetric{High52Week: fp(100), Low52Week: fp(50)}

	assert.InDelta(t, 8.0, potentialScore(metric, &models.FinnhubQuote{Current: 60}), 1e-9)
	assert.InDelta(t, 10.0, potentialScore(metric, &models.FinnhubQuote{Current: 40}), 1e-9,
		"price below the 52-week low clamps to 10")
	assert.Zero(t, potentialScore(metric, &models.FinnhubQuote{Current: 120}),
		"price above the 52-week high clamps to 0")
	assert.Zero(t, potentialScore(&models.FinnhubMetric{High52Week: fp(50), Low52Week: fp(50)},
		&models.FinnhubQuote{Current: 50}), "degenerate range yields no signal")
	assert.Zero(t, potentialScore(nil, &models.FinnhubQuote{Current: 50}))
}
