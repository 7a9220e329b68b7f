package scoring

import (
	"context"
	"log/slog"
	"sync"

	"github.com/kts999jjang/themeradar/internal/models"
)

const (
	neutralBeta     = 1.5
	peUpperBound    = 30.0
	pbUpperBound    = 3.0
	surprisePoints  = 2.5
	strongBuyWeight = 2
)

// Fundamentals is the provider surface the scorer needs per ticker.
type Fundamentals interface {
	Metrics(ctx context.Context, symbol string) (*models.FinnhubMetric, error)
	RecommendationTrend(ctx context.Context, symbol string) (*models.FinnhubRecommendation, error)
	EarningsSurprises(ctx context.Context, symbol string) ([]models.FinnhubEarningsSurprise, error)
	Quote(ctx context.Context, symbol string) (*models.FinnhubQuote, error)
}

// Scorer gathers the per-ticker sub-scores. Sentiment is computed
// locally from the related article titles; the fundamentals provider
// contributes the rest. It never ranks.
type Scorer struct {
	fundamentals Fundamentals
}

func NewScorer(fundamentals Fundamentals) *Scorer {
	return &Scorer{fundamentals: fundamentals}
}

// Score fetches all provider-backed sub-scores for one ticker
// concurrently. A failed lookup degrades that sub-score to its
// zero/neutral value and never fails the ticker. NewsScore is left at
// zero for the caller to fill from mention counts.
func (s *Scorer) Score(ctx context.Context, ticker string, titles []string) (models.SubScores, error) {
	var (
		wg sync.WaitGroup

		metric         *models.FinnhubMetric
		recommendation *models.FinnhubRecommendation
		surprises      []models.FinnhubEarningsSurprise
		quote          *models.FinnhubQuote
	)

	fetch := func(name string, fn func() error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(); err != nil {
				slog.Warn("[Scorer] Sub-score lookup failed, defaulting to neutral",
					slog.String("ticker", ticker),
					slog.String("subScore", name),
					slog.String("error", err.Error()))
			}
		}()
	}

	fetch("metrics", func() (err error) {
		metric, err = s.fundamentals.Metrics(ctx, ticker)
		return err
	})
	fetch("analyst", func() (err error) {
		recommendation, err = s.fundamentals.RecommendationTrend(ctx, ticker)
		return err
	})
	fetch("earnings", func() (err error) {
		surprises, err = s.fundamentals.EarningsSurprises(ctx, ticker)
		return err
	})
	fetch("quote", func() (err error) {
		quote, err = s.fundamentals.Quote(ctx, ticker)
		return err
	})
	wg.Wait()

	if ctx.Err() != nil {
		return models.SubScores{}, ctx.Err()
	}

	scores := models.SubScores{
		SentimentScore:        sentimentScore(titles),
		BetaScore:             betaScore(metric),
		AnalystScore:          analystScore(recommendation),
		EarningsSurpriseScore: earningsSurpriseScore(surprises),
		ValuationScore:        valuationScore(metric),
		PotentialScore:        potentialScore(metric, quote),
	}
	if metric != nil && metric.MarketCapitalization != nil {
		scores.MarketCap = *metric.MarketCapitalization
	}
	return scores, nil
}

// betaScore rewards low volatility: 10 at beta 0, 0 at beta 1.5 and
// above. A missing beta is treated as 1.5.
func betaScore(metric *models.FinnhubMetric) float64 {
	beta := neutralBeta
	if metric != nil && metric.Beta != nil {
		beta = *metric.Beta
	}
	score := (neutralBeta - beta) / neutralBeta * 10
	if score < 0 {
		return 0
	}
	return score
}

func analystScore(recommendation *models.FinnhubRecommendation) float64 {
	if recommendation == nil {
		return 0
	}
	return float64(recommendation.StrongBuy*strongBuyWeight + recommendation.Buy)
}

func earningsSurpriseScore(surprises []models.FinnhubEarningsSurprise) float64 {
	positive := 0
	for _, s := range surprises {
		if s.Surprise > 0 {
			positive++
		}
	}
	return float64(positive) * surprisePoints
}

// valuationScore grants up to 5 points each for a P/E under 30 and a
// P/B under 3. Negative or missing ratios contribute nothing.
func valuationScore(metric *models.FinnhubMetric) float64 {
	if metric == nil {
		return 0
	}
	var score float64
	if metric.PETTM != nil && *metric.PETTM > 0 && *metric.PETTM < peUpperBound {
		score += (1 - *metric.PETTM/peUpperBound) * 5
	}
	if metric.PBAnnual != nil && *metric.PBAnnual > 0 && *metric.PBAnnual < pbUpperBound {
		score += (1 - *metric.PBAnnual/pbUpperBound) * 5
	}
	return score
}

// potentialScore measures how far the price sits below the 52-week
// high within the 52-week range, on a 0-10 scale.
func potentialScore(metric *models.FinnhubMetric, quote *models.FinnhubQuote) float64 {
	if metric == nil || quote == nil ||
		metric.High52Week == nil || metric.Low52Week == nil || quote.Current <= 0 {
		return 0
	}
	high, low := *metric.High52Week, *metric.Low52Week
	if high <= low {
		return 0
	}
	score := (high - quote.Current) / (high - low) * 10
	if score < 0 {
		return 0
	}
	if score > 10 {
		return 10
	}
	return score
}
