package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"bingxTerminal/internal/domain"
	"bingxTerminal/internal/eventlog"
	"bingxTerminal/internal/ports"
)

// Snapshot is the read-only view of the session handed to the presentation
// layer. Every slice and pointer in it is a copy; readers never alias live state.
type Snapshot struct {
	Symbol           string                  `json:"symbol"`
	CurrentPrice     float64                 `json:"currentPrice"`
	SyntheticFeed    bool                    `json:"syntheticFeed"`
	Candles          []domain.Candle         `json:"candles"`
	ActiveOrder      *domain.Order           `json:"activeOrder"`
	Logs             []domain.LogEntry       `json:"logs"`
	Balance          *domain.AccountBalance  `json:"balance"`
	ConnectionStatus domain.ConnectionStatus `json:"connectionStatus"`
}

// Session owns all mutable dashboard state: current price, candle window,
// the single active order, account balance, connection status and the event
// log. All mutations go through the mutex; the two timers and the user-action
// handlers are the only writers.
type Session struct {
	logger   ports.Logger
	feed     ports.PriceFeed
	exchange ports.ExecutionClient
	events   *eventlog.Log

	feedInterval    time.Duration
	monitorInterval time.Duration

	mu         sync.Mutex
	symbol     string
	price      float64
	synthetic  bool
	candles    []domain.Candle
	order      *domain.Order
	orderGen   uint64
	balance    *domain.AccountBalance
	connStatus domain.ConnectionStatus

	symbolChanged chan struct{}

	subMu   sync.Mutex
	subs    map[uint64]chan Snapshot
	nextSub uint64
}

// Config holds the dependencies and timing parameters of a session.
type Config struct {
	Symbol          string
	FeedInterval    time.Duration // candle poll cadence (e.g. 5s)
	MonitorInterval time.Duration // order evaluation cadence (e.g. 1s)
	Logger          ports.Logger
	Feed            ports.PriceFeed
	Exchange        ports.ExecutionClient
	Events          *eventlog.Log
}

// NewSession creates a new session instance.
func NewSession(cfg Config) (*Session, error) {
	if cfg.Logger == nil || cfg.Feed == nil || cfg.Exchange == nil || cfg.Events == nil {
		return nil, fmt.Errorf("missing required dependencies for session")
	}
	if cfg.Symbol == "" {
		return nil, fmt.Errorf("session symbol must be set")
	}
	if cfg.FeedInterval <= 0 || cfg.MonitorInterval <= 0 {
		return nil, fmt.Errorf("session intervals must be positive")
	}

	return &Session{
		logger:          cfg.Logger,
		feed:            cfg.Feed,
		exchange:        cfg.Exchange,
		events:          cfg.Events,
		feedInterval:    cfg.FeedInterval,
		monitorInterval: cfg.MonitorInterval,
		symbol:          cfg.Symbol,
		connStatus:      domain.ConnDisconnected,
		symbolChanged:   make(chan struct{}, 1),
		subs:            make(map[uint64]chan Snapshot),
	}, nil
}

// Run drives the two independent timers until the context is cancelled:
// the feed timer polls candles (restarted on symbol change) and the monitor
// timer evaluates the active order against the latest price snapshot.
func (s *Session) Run(ctx context.Context) error {
	s.logger.Info(ctx, "Starting session loops", map[string]interface{}{
		"symbol":          s.symbol,
		"feedInterval":    s.feedInterval.String(),
		"monitorInterval": s.monitorInterval.String(),
	})

	// Prime the price before the first monitor tick.
	s.refreshMarketData(ctx)

	feedTicker := time.NewTicker(s.feedInterval)
	defer feedTicker.Stop()
	monitorTicker := time.NewTicker(s.monitorInterval)
	defer monitorTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info(ctx, "Session loops stopped")
			return nil
		case <-s.symbolChanged:
			feedTicker.Reset(s.feedInterval)
			s.refreshMarketData(ctx)
		case <-feedTicker.C:
			s.refreshMarketData(ctx)
		case <-monitorTicker.C:
			s.tick(ctx)
		}
	}
}

// refreshMarketData polls the feed outside the lock and installs the completed
// snapshot under it. A snapshot for a symbol the user has since switched away
// from is discarded: last-value-wins, no partial results.
func (s *Session) refreshMarketData(ctx context.Context) {
	s.mu.Lock()
	symbol := s.symbol
	s.mu.Unlock()

	snap := s.feed.FetchLatest(ctx, symbol)
	if snap == nil || len(snap.Candles) == 0 {
		return
	}

	s.mu.Lock()
	if s.symbol != symbol {
		s.mu.Unlock()
		return
	}
	s.candles = snap.Candles
	s.price = snap.LatestPrice
	s.synthetic = snap.Synthetic
	s.mu.Unlock()

	s.notify()
}

// SelectSymbol switches the session to a new symbol and restarts the feed.
// The candle window is cleared while the first fetch is in flight.
func (s *Session) SelectSymbol(ctx context.Context, symbol string) error {
	if symbol == "" {
		return fmt.Errorf("%w: symbol must not be empty", ports.ErrInvalidRequest)
	}

	s.mu.Lock()
	if s.symbol == symbol {
		s.mu.Unlock()
		return nil
	}
	s.symbol = symbol
	s.candles = nil
	s.mu.Unlock()

	s.logEvent(ctx, fmt.Sprintf("Switched symbol to %s", symbol), domain.SeverityInfo)

	select {
	case s.symbolChanged <- struct{}{}:
	default:
	}

	s.notify()
	return nil
}

// StartOrder creates a new PENDING order from cfg and publishes it as the
// active order. When credentials are supplied the order is also submitted to
// the exchange; placement failure only degrades to simulation, it never blocks
// local creation. A generation counter guards the publish: if the user cancels
// or restarts while the placement round-trip is in flight, the stale result is
// discarded instead of clobbering the newer session state.
func (s *Session) StartOrder(ctx context.Context, cfg domain.TradeConfig, creds ports.Credentials) (*domain.Order, error) {
	s.mu.Lock()
	if s.order != nil && !s.order.IsTerminal() {
		s.mu.Unlock()
		return nil, ports.ErrOrderActive
	}
	// A finished order still occupying the slot is cleared first;
	// cancelled orders were already cleared by the cancel action itself.
	s.order = nil
	s.orderGen++
	gen := s.orderGen
	s.mu.Unlock()

	order := domain.NewOrder(cfg)

	if !creds.IsZero() {
		s.logEvent(ctx, fmt.Sprintf("Submitting %s order for %s to exchange...", cfg.Side, cfg.Symbol), domain.SeverityInfo)

		if err := s.exchange.SetLeverage(ctx, creds, cfg.Symbol, cfg.Side, cfg.Leverage); err != nil {
			// Best effort only.
			s.logger.Debug(ctx, "leverage update failed", map[string]interface{}{"error": err.Error()})
		}

		result, err := s.exchange.PlaceOrder(ctx, creds, ports.PlacementRequest{
			Symbol:     cfg.Symbol,
			Side:       cfg.Side,
			Price:      cfg.EntryPrice,
			AmountUSDT: cfg.AmountUSDT,
			Leverage:   cfg.Leverage,
			TPPrice:    order.TPPrice,
			SLPrice:    order.SLPrice,
		})
		if err != nil {
			s.logEvent(ctx, fmt.Sprintf("Exchange error: %v", err), domain.SeverityError)
			s.logEvent(ctx, "Continuing in simulation mode", domain.SeverityWarning)
		} else {
			order.ExternalOrderID = result.ExternalID
			s.logEvent(ctx, fmt.Sprintf("Order created on exchange, id %s", result.ExternalID), domain.SeveritySuccess)
		}
	} else {
		s.logEvent(ctx, "No API credentials supplied, running in SIMULATION mode", domain.SeverityWarning)
	}

	s.mu.Lock()
	if s.orderGen != gen {
		s.mu.Unlock()
		s.logEvent(ctx, "Discarding order result: session changed during submission", domain.SeverityWarning)
		return nil, ports.ErrStaleOrder
	}
	s.order = order
	s.mu.Unlock()

	s.notify()

	if !creds.IsZero() && order.ExternalOrderID != "" {
		s.RefreshBalance(ctx, creds)
	}
	return order.Clone(), nil
}

// CancelOrder transitions the active order to CANCELLED, freezes it and clears
// the active slot. Immediate and unconditional; also bumps the generation so
// any in-flight creation result becomes stale.
func (s *Session) CancelOrder(ctx context.Context) (*domain.Order, error) {
	s.mu.Lock()
	order := s.order
	if order == nil {
		s.mu.Unlock()
		return nil, ports.ErrNoActiveOrder
	}
	if !order.IsTerminal() {
		order.Status = domain.StatusCancelled
	}
	s.order = nil
	s.orderGen++
	s.mu.Unlock()

	s.logEvent(ctx, "Order reset / cancelled", domain.SeverityWarning)
	s.notify()
	return order.Clone(), nil
}

// RefreshBalance fetches the account balance and updates the connection
// status. The returned balance is never nil for non-empty credentials; a
// degraded fetch yields the simulated payload plus a diagnostic log entry.
func (s *Session) RefreshBalance(ctx context.Context, creds ports.Credentials) *domain.AccountBalance {
	if creds.IsZero() {
		s.mu.Lock()
		s.connStatus = domain.ConnDisconnected
		s.mu.Unlock()
		s.notify()
		return nil
	}

	s.mu.Lock()
	s.connStatus = domain.ConnConnecting
	s.mu.Unlock()
	s.notify()

	balance, err := s.exchange.FetchBalance(ctx, creds)
	if balance == nil {
		s.mu.Lock()
		s.connStatus = domain.ConnError
		s.mu.Unlock()
		s.logEvent(ctx, fmt.Sprintf("Balance fetch failed: %v", err), domain.SeverityError)
		s.notify()
		return nil
	}

	s.mu.Lock()
	s.balance = balance
	if balance.Simulated {
		s.connStatus = domain.ConnSimulated
	} else {
		s.connStatus = domain.ConnRealAccount
	}
	s.mu.Unlock()

	if balance.Simulated {
		msg := "API access restricted, using demo balance data."
		if err != nil {
			msg = err.Error()
		}
		s.logEvent(ctx, msg, domain.SeverityWarning)
	} else {
		s.logEvent(ctx, fmt.Sprintf("Connected to exchange account. Balance: %.2f %s", balance.Balance, balance.Asset), domain.SeveritySuccess)
	}

	s.notify()
	return balance
}

// Snapshot returns a copy of the current session state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	candles := make([]domain.Candle, len(s.candles))
	copy(candles, s.candles)

	var balance *domain.AccountBalance
	if s.balance != nil {
		b := *s.balance
		balance = &b
	}

	return Snapshot{
		Symbol:           s.symbol,
		CurrentPrice:     s.price,
		SyntheticFeed:    s.synthetic,
		Candles:          candles,
		ActiveOrder:      s.order.Clone(),
		Logs:             s.events.Entries(),
		Balance:          balance,
		ConnectionStatus: s.connStatus,
	}
}

// Subscribe registers a snapshot listener. The channel holds at most one
// pending snapshot: a slow consumer only ever misses intermediate states,
// never blocks the timers. The returned function unsubscribes.
func (s *Session) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)

	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	s.subMu.Unlock()

	return ch, func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

// notify pushes the latest snapshot to all subscribers, last-value-wins.
func (s *Session) notify() {
	snap := s.Snapshot()

	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- snap:
		default:
			// Drop the stale pending snapshot and retry once.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
}

// logEvent appends a dashboard notification and mirrors it to the logger.
func (s *Session) logEvent(ctx context.Context, message string, severity domain.Severity) {
	s.events.Append(message, severity)

	switch severity {
	case domain.SeverityError:
		s.logger.Error(ctx, nil, message)
	case domain.SeverityWarning:
		s.logger.Warn(ctx, message)
	default:
		s.logger.Info(ctx, message)
	}
}
