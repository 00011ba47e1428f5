package ports

import "errors"

// Standard application-level errors.
// Adapters should wrap underlying infrastructure errors with these standard errors.
var (
	// General Errors
	ErrUnknown         = errors.New("unknown error occurred")
	ErrInvalidRequest  = errors.New("invalid request parameters or format")
	ErrTimeout         = errors.New("operation timed out")
	ErrContextCanceled = errors.New("operation canceled via context")

	// Exchange Specific Errors
	ErrConnectionFailed     = errors.New("failed to connect to the exchange")
	ErrAuthenticationFailed = errors.New("exchange authentication failed (check API keys)")
	ErrRateLimited          = errors.New("API rate limit exceeded")
	ErrOrderPlacementFailed = errors.New("failed to place order")

	// Session Errors
	ErrOrderActive   = errors.New("an order is already active")
	ErrNoActiveOrder = errors.New("no active order")
	ErrStaleOrder    = errors.New("order submission superseded by a newer session change")

	// Advisor Errors
	ErrAdvisorUnavailable = errors.New("strategy advisor unavailable")
)
