package feed

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"bingxTerminal/internal/domain"
	"bingxTerminal/internal/ports"
)

const (
	// syntheticVolatility is the per-candle price band of the random walk,
	// as a fraction of the current price.
	syntheticVolatility = 0.002
)

// Service implements ports.PriceFeed over a live MarketDataProvider with a
// synthetic random-walk fallback: the session always receives a usable
// snapshot, whatever the network does. Feed failures are therefore never
// surfaced to the user as errors, only as Synthetic=true snapshots.
type Service struct {
	provider       ports.MarketDataProvider
	logger         ports.Logger
	candleLimit    int
	candleInterval time.Duration

	mu        sync.Mutex
	rnd       *rand.Rand
	lastPrice float64
}

// Config holds configuration for the feed service.
type Config struct {
	Provider       ports.MarketDataProvider
	Logger         ports.Logger
	CandleLimit    int           // number of candles per window (e.g. 20)
	CandleInterval time.Duration // candle width for synthetic generation (e.g. 5m)
	InitialPrice   float64       // seed price for the synthetic walk before any live data
	Seed           int64         // random seed; 0 means time-based
}

// New creates a feed service.
func New(cfg Config) (*Service, error) {
	if cfg.Provider == nil || cfg.Logger == nil {
		return nil, fmt.Errorf("missing required dependencies for feed service")
	}
	if cfg.CandleLimit < 2 {
		return nil, fmt.Errorf("candle limit must be at least 2, got %d", cfg.CandleLimit)
	}
	if cfg.CandleInterval <= 0 {
		return nil, fmt.Errorf("candle interval must be positive")
	}
	if cfg.InitialPrice <= 0 {
		return nil, fmt.Errorf("initial price must be positive")
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	return &Service{
		provider:       cfg.Provider,
		logger:         cfg.Logger,
		candleLimit:    cfg.CandleLimit,
		candleInterval: cfg.CandleInterval,
		rnd:            rand.New(rand.NewSource(seed)),
		lastPrice:      cfg.InitialPrice,
	}, nil
}

// FetchLatest returns the freshest market window for the symbol. On any
// provider failure it generates a plausible synthetic window continuing the
// random walk from the last known price.
func (s *Service) FetchLatest(ctx context.Context, symbol string) *domain.MarketSnapshot {
	candles, err := s.provider.FetchCandles(ctx, symbol, s.candleLimit)
	if err != nil || len(candles) == 0 {
		if err != nil {
			s.logger.Debug(ctx, "live candles unavailable, generating synthetic window", map[string]interface{}{
				"symbol": symbol,
				"reason": err.Error(),
			})
		}
		return s.syntheticSnapshot(symbol)
	}

	latest := candles[len(candles)-1].Close

	s.mu.Lock()
	s.lastPrice = latest
	s.mu.Unlock()

	return &domain.MarketSnapshot{
		Symbol:      symbol,
		Candles:     candles,
		LatestPrice: latest,
		Synthetic:   false,
	}
}

// syntheticSnapshot builds a candle window from a random-walk price process.
// Each candle opens at the previous close, so the chain stays continuous
// across consecutive synthetic windows as well.
func (s *Service) syntheticSnapshot(symbol string) *domain.MarketSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	price := s.lastPrice
	now := time.Now().UTC()
	candles := make([]domain.Candle, 0, s.candleLimit)

	for i := s.candleLimit - 1; i >= 0; i-- {
		ts := now.Add(-time.Duration(i) * s.candleInterval)
		volatility := price * syntheticVolatility
		change := (s.rnd.Float64() - 0.5) * volatility

		open := price
		closePrice := price + change
		high := maxFloat(open, closePrice) + s.rnd.Float64()*volatility*0.5
		low := minFloat(open, closePrice) - s.rnd.Float64()*volatility*0.5

		candles = append(candles, domain.Candle{
			Timestamp: ts,
			Label:     ts.Format("15:04"),
			Open:      open,
			High:      high,
			Low:       low,
			Close:     closePrice,
		})
		price = closePrice
	}

	s.lastPrice = price

	return &domain.MarketSnapshot{
		Symbol:      symbol,
		Candles:     candles,
		LatestPrice: price,
		Synthetic:   true,
	}
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
