package domain

import "time"

// Candle represents a single OHLC candlestick data point.
type Candle struct {
	Timestamp time.Time `json:"timestamp"`
	Label     string    `json:"time"` // HH:MM display label for the chart axis
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
}

// MarketSnapshot is the result of one price-feed poll. Synthetic marks windows
// generated locally after a live-source failure; the monitor consumes both
// branches identically, callers that care (tests, UI badges) branch on the flag.
type MarketSnapshot struct {
	Symbol      string   `json:"symbol"`
	Candles     []Candle `json:"candles"`
	LatestPrice float64  `json:"latestPrice"`
	Synthetic   bool     `json:"synthetic"`
}
