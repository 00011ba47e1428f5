package ports

import (
	"context"

	"bingxTerminal/internal/domain"
)

// StrategySuggestion is an advisory parameter set proposed by the AI service.
// It may prefill configuration fields but never triggers state transitions.
type StrategySuggestion struct {
	TPPercent float64 `json:"tp"`
	SLPercent float64 `json:"sl"`
	Leverage  int     `json:"leverage"`
	Reasoning string  `json:"reasoning"`
}

// StrategyAdvisor provides opportunistic AI critique and suggestions.
// Both operations are pure request/response and must degrade gracefully:
// no remote failure is ever surfaced as a panic or propagated error that
// would disturb the order state machine.
type StrategyAdvisor interface {
	// Critique returns a human-readable assessment of the configuration.
	// When the credential is absent or the remote call fails it returns a
	// fixed "unavailable" message instead of an error.
	Critique(ctx context.Context, cfg domain.TradeConfig, currentPrice float64) string

	// Suggest proposes TP/SL/leverage for a market observation.
	// Returns nil on missing credential, malformed response or remote failure.
	Suggest(ctx context.Context, observation string) (*StrategySuggestion, error)
}
