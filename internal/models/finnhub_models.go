package models

// FinnhubMetricsResponse carries the valuation/quality figures used by
// the scorer. Missing fields stay nil so the scorer can default them.
type FinnhubMetricsResponse = struct {
	Metric FinnhubMetric `json:"metric"`
}

type FinnhubMetric = struct {
	MarketCapitalization *float64 `json:"marketCapitalization"`
	Beta                 *float64 `json:"beta"`
	PETTM                *float64 `json:"peTTM"`
	PBAnnual             *float64 `json:"pbAnnual"`
	High52Week           *float64 `json:"52WeekHigh"`
	Low52Week            *float64 `json:"52WeekLow"`
}

type FinnhubQuote = struct {
	Current       float64 `json:"c"`
	High          float64 `json:"h"`
	Low           float64 `json:"l"`
	PreviousClose float64 `json:"pc"`
}

type FinnhubRecommendation = struct {
	Symbol     string `json:"symbol"`
	Period     string `json:"period"`
	StrongBuy  int    `json:"strongBuy"`
	Buy        int    `json:"buy"`
	Hold       int    `json:"hold"`
	Sell       int    `json:"sell"`
	StrongSell int    `json:"strongSell"`
}

type FinnhubEarningsSurprise = struct {
	Symbol   string  `json:"symbol"`
	Period   string  `json:"period"`
	Actual   float64 `json:"actual"`
	Estimate float64 `json:"estimate"`
	Surprise float64 `json:"surprise"`
}

type FinnhubSymbolSearchResponse = struct {
	Count  int                   `json:"count"`
	Result []FinnhubSymbolResult `json:"result"`
}

type FinnhubSymbolResult = struct {
	Symbol      string `json:"symbol"`
	Description string `json:"description"`
	Type        string `json:"type"`
}
