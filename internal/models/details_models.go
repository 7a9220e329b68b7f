package models

// ChartPoint is an indexed series point for the client charting layer.
type ChartPoint struct {
	X int     `json:"x"`
	Y float64 `json:"y"`
}

// TickerDetails is the read-side detail view for a single ticker.
type TickerDetails struct {
	Ticker           string         `json:"ticker"`
	CompanyName      string         `json:"companyName"`
	LatestPrice      float64        `json:"latestPrice"`
	ChartData        []ChartPoint   `json:"chartData"`
	Timestamps       []int64        `json:"timestamps"`
	SMAShortData     []ChartPoint   `json:"smaShortData"`
	SMALongData      []ChartPoint   `json:"smaLongData"`
	RSI              *float64       `json:"rsi"`
	TrendingTheme    string         `json:"trendingTheme,omitempty"`
	RelevantArticles []Article      `json:"relevantArticles"`
	DailyNewsStats   map[string]int `json:"dailyNewsStats"`
	TopKeywords      []string       `json:"topKeywords"`
}
