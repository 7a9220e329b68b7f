package models

// Style classifies a ticker by market capitalization.
type Style string

const (
	StyleLeading Style = "leading"
	StyleGrowth  Style = "growth"
)

// TickerRecord is the canonical identity for a resolved company.
// Created on first successful symbol resolution, updated in place when
// a style is recomputed from market cap.
type TickerRecord struct {
	Ticker      string   `json:"ticker"`
	CompanyName string   `json:"companyName"`
	Style       Style    `json:"style,omitempty"`
	Keywords    []string `json:"keywords,omitempty"`
}
