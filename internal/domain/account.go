package domain

// AccountBalance is the perpetual-futures wallet state for a single asset.
// Simulated marks the deterministic fallback payload returned when the real
// balance could not be fetched; consumers distinguish real vs. simulated by
// this flag, never by error presence.
type AccountBalance struct {
	Asset           string  `json:"asset"`
	Balance         float64 `json:"balance"`
	Equity          float64 `json:"equity"`
	AvailableMargin float64 `json:"availableMargin"`
	UnrealizedPNL   float64 `json:"unrealizedPL"`
	Simulated       bool    `json:"isSimulated"`
}
