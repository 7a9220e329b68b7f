package scoring

import (
	"github.com/jonreiter/govader"

	"github.com/kts999jjang/themeradar/internal/extraction"
)

// Sentiment runs locally via VADER rather than through a generative
// model, so scoring stays deterministic and free of per-title API
// calls. The compound polarity in [-1, 1] maps onto a 0-10 scale
// centered at 5.
var vaderAnalyzer = govader.NewSentimentIntensityAnalyzer()

func sentimentScore(titles []string) float64 {
	if len(titles) == 0 {
		return 5.0
	}

	var total float64
	for _, title := range titles {
		plain := extraction.PlainText(title)
		total += vaderAnalyzer.PolarityScores(plain).Compound
	}
	avg := total / float64(len(titles))

	return 5 + avg*5
}
