package ports

import (
	"context"

	"bingxTerminal/internal/domain"
)

// Credentials are the user-supplied API keys for the trading venue.
// They arrive with each command rather than at construction time because the
// dashboard user may connect, disconnect or swap accounts mid-session.
type Credentials struct {
	APIKey    string `json:"apiKey"`
	SecretKey string `json:"secretKey"`
}

// IsZero reports whether no credentials were supplied.
func (c Credentials) IsZero() bool {
	return c.APIKey == ""
}

// PlacementRequest describes a limit order with attached TP/SL triggers.
type PlacementRequest struct {
	Symbol     string
	Side       domain.OrderSide
	Price      float64
	AmountUSDT float64
	Leverage   int
	TPPrice    float64
	SLPrice    float64
}

// PlacementResult is the essential outcome of a successful placement.
type PlacementResult struct {
	ExternalID string
	Message    string
}

// ExecutionClient places orders on the external venue. Failures never block
// local order creation; the session degrades to simulation-only operation.
type ExecutionClient interface {
	// PlaceOrder submits a limit order with TP/SL triggers.
	PlaceOrder(ctx context.Context, creds Credentials, req PlacementRequest) (*PlacementResult, error)

	// SetLeverage updates the leverage for the symbol and side. Best effort:
	// callers are expected to log and swallow failures.
	SetLeverage(ctx context.Context, creds Credentials, symbol string, side domain.OrderSide, leverage int) error

	// FetchBalance retrieves the account balance. The returned balance is
	// never nil: on any network or auth failure it is the deterministic
	// simulated payload with Simulated=true, and the error carries the
	// diagnostic for the event log.
	FetchBalance(ctx context.Context, creds Credentials) (*domain.AccountBalance, error)
}
