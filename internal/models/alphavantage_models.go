package models

// Alpha Vantage answers SYMBOL_SEARCH with numbered field names.
type AlphaVantageSearchResponse = struct {
	BestMatches []AlphaVantageMatch `json:"bestMatches"`
}

type AlphaVantageMatch = struct {
	Symbol     string `json:"1. symbol"`
	Name       string `json:"2. name"`
	Type       string `json:"3. type"`
	Region     string `json:"4. region"`
	Currency   string `json:"8. currency"`
	MatchScore string `json:"9. matchScore"`
}
