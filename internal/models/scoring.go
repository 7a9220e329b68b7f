package models

import "time"

// SubScores holds the per-ticker signals gathered by the scorer. All
// values are on the scales described in the scoring package; a failed
// provider lookup leaves the corresponding field at its neutral default.
type SubScores struct {
	NewsScore             float64 `json:"newsScore"`
	SentimentScore        float64 `json:"sentimentScore"`
	BetaScore             float64 `json:"betaScore"`
	AnalystScore          float64 `json:"analystScore"`
	EarningsSurpriseScore float64 `json:"earningsSurpriseScore"`
	ValuationScore        float64 `json:"valuationScore"`
	PotentialScore        float64 `json:"potentialScore"`
	// MarketCap is in millions of USD, as reported by the fundamentals
	// provider.
	MarketCap float64 `json:"marketCap"`
}

// ScoredCandidate is one ranked ticker within a theme. Produced fresh
// each analysis run; only the final ranked lists are persisted.
type ScoredCandidate struct {
	Ticker           string    `json:"ticker"`
	CompanyName      string    `json:"companyName"`
	Style            Style     `json:"style"`
	SubScores        SubScores `json:"subScores"`
	HypeScore        float64   `json:"hypeScore"`
	ValueScore       float64   `json:"valueScore"`
	CompositeScore   float64   `json:"compositeScore"`
	RelevantArticles []Article `json:"relevantArticles,omitempty"`
}

// ThemeResult is the ranked outcome for a single investment theme.
type ThemeResult struct {
	ThemeName  string            `json:"themeName"`
	Leading    []ScoredCandidate `json:"leading"`
	Growth     []ScoredCandidate `json:"growth"`
	AnalyzedAt time.Time         `json:"analyzedAt"`
}

// Empty reports whether the theme produced no admitted candidates.
func (tr ThemeResult) Empty() bool {
	return len(tr.Leading) == 0 && len(tr.Growth) == 0
}

// RecommendationSet is the blob persisted per analysis period and
// served to the client, overwritten wholesale each run.
type RecommendationSet struct {
	Results    map[string]ThemeResult `json:"results"`
	AnalyzedAt time.Time              `json:"analyzedAt"`
}
