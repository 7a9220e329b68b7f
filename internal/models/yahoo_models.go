package models

type YahooChartResponse = struct {
	Chart struct {
		Result []YahooChartResult `json:"result"`
		Error  *YahooChartError   `json:"error"`
	} `json:"chart"`
}

type YahooChartError = struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type YahooChartResult = struct {
	Meta struct {
		Symbol             string  `json:"symbol"`
		RegularMarketPrice float64 `json:"regularMarketPrice"`
	} `json:"meta"`
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Close []*float64 `json:"close"`
		} `json:"quote"`
	} `json:"indicators"`
}

// YahooAlignedSeries flattens the first quote block, dropping null
// closes and their timestamps together the way the chart endpoint
// intermixes them on partial trading days. An index into the close
// series addresses its own timestamp.
func YahooAlignedSeries(r *YahooChartResult) ([]float64, []int64) {
	if r == nil || len(r.Indicators.Quote) == 0 {
		return nil, nil
	}
	raw := r.Indicators.Quote[0].Close
	closes := make([]float64, 0, len(raw))
	timestamps := make([]int64, 0, len(raw))
	for i, c := range raw {
		if c == nil {
			continue
		}
		closes = append(closes, *c)
		if i < len(r.Timestamp) {
			timestamps = append(timestamps, r.Timestamp[i])
		}
	}
	return closes, timestamps
}
