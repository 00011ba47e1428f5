package ports

import (
	"context"

	"bingxTerminal/internal/domain"
)

// MarketDataProvider supplies recent candles for a symbol from a live source.
// Implementations are allowed to fail; the feed service owns the synthetic
// fallback that keeps the monitor supplied with prices.
type MarketDataProvider interface {
	// FetchCandles retrieves up to limit recent candles, oldest first.
	FetchCandles(ctx context.Context, symbol string, limit int) ([]domain.Candle, error)
}

// PriceFeed is the contract consumed by the session: it never fails.
// When the live source is unavailable the returned snapshot is synthetic.
type PriceFeed interface {
	FetchLatest(ctx context.Context, symbol string) *domain.MarketSnapshot
}
