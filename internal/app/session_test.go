package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bingxTerminal/internal/domain"
	"bingxTerminal/internal/eventlog"
	"bingxTerminal/internal/ports"
)

// Mock implementations

type mockLogger struct {
	debugMsgs []string
	infoMsgs  []string
	warnMsgs  []string
	errorMsgs []string
}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {
	m.debugMsgs = append(m.debugMsgs, msg)
}

func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{}) {
	m.infoMsgs = append(m.infoMsgs, msg)
}

func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{}) {
	m.warnMsgs = append(m.warnMsgs, msg)
}

func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
	m.errorMsgs = append(m.errorMsgs, msg)
}

type mockFeed struct {
	snapshot *domain.MarketSnapshot
}

func (m *mockFeed) FetchLatest(ctx context.Context, symbol string) *domain.MarketSnapshot {
	if m.snapshot == nil {
		return &domain.MarketSnapshot{Symbol: symbol, Synthetic: true}
	}
	snap := *m.snapshot
	snap.Symbol = symbol
	return &snap
}

type mockExchange struct {
	placeResult *ports.PlacementResult
	placeErr    error
	leverageErr error
	balance     *domain.AccountBalance
	balanceErr  error

	placeCalls    int
	leverageCalls int

	// onPlaceOrder runs inside PlaceOrder, before returning. Used to
	// interleave session commands with an in-flight placement.
	onPlaceOrder func()
}

func (m *mockExchange) PlaceOrder(ctx context.Context, creds ports.Credentials, req ports.PlacementRequest) (*ports.PlacementResult, error) {
	m.placeCalls++
	if m.onPlaceOrder != nil {
		m.onPlaceOrder()
	}
	return m.placeResult, m.placeErr
}

func (m *mockExchange) SetLeverage(ctx context.Context, creds ports.Credentials, symbol string, side domain.OrderSide, leverage int) error {
	m.leverageCalls++
	return m.leverageErr
}

func (m *mockExchange) FetchBalance(ctx context.Context, creds ports.Credentials) (*domain.AccountBalance, error) {
	return m.balance, m.balanceErr
}

func newTestSession(t *testing.T, exchange ports.ExecutionClient) *Session {
	t.Helper()
	if exchange == nil {
		exchange = &mockExchange{}
	}
	s, err := NewSession(Config{
		Symbol:          "BTC-USDT",
		FeedInterval:    5 * time.Second,
		MonitorInterval: time.Second,
		Logger:          &mockLogger{},
		Feed:            &mockFeed{},
		Exchange:        exchange,
		Events:          eventlog.New(),
	})
	require.NoError(t, err)
	return s
}

// setPrice installs a price as if the feed had delivered it.
func setPrice(s *Session, price float64) {
	s.mu.Lock()
	s.price = price
	s.mu.Unlock()
}

func longConfig() domain.TradeConfig {
	return domain.TradeConfig{
		Symbol:     "BTC-USDT",
		EntryPrice: 100,
		Leverage:   5,
		AmountUSDT: 100,
		TPPercent:  2.5,
		SLPercent:  1.0,
		Side:       domain.Long,
	}
}

func TestNewSessionValidatesDependencies(t *testing.T) {
	_, err := NewSession(Config{})
	assert.Error(t, err)

	_, err = NewSession(Config{
		Symbol:          "",
		FeedInterval:    time.Second,
		MonitorInterval: time.Second,
		Logger:          &mockLogger{},
		Feed:            &mockFeed{},
		Exchange:        &mockExchange{},
		Events:          eventlog.New(),
	})
	assert.Error(t, err)
}

func TestStartOrderSimulationMode(t *testing.T) {
	exchange := &mockExchange{}
	s := newTestSession(t, exchange)

	order, err := s.StartOrder(context.Background(), longConfig(), ports.Credentials{})
	require.NoError(t, err)
	require.NotNil(t, order)

	assert.Equal(t, domain.StatusPending, order.Status)
	assert.Empty(t, order.ExternalOrderID)
	assert.Zero(t, exchange.placeCalls, "no placement without credentials")

	snap := s.Snapshot()
	require.NotNil(t, snap.ActiveOrder)
	assert.Equal(t, order.ID, snap.ActiveOrder.ID)

	// The simulation-mode warning must be in the event log.
	found := false
	for _, entry := range snap.Logs {
		if entry.Severity == domain.SeverityWarning {
			found = true
		}
	}
	assert.True(t, found, "expected a simulation-mode warning log entry")
}

func TestStartOrderWithCredentialsAttachesExternalID(t *testing.T) {
	exchange := &mockExchange{
		placeResult: &ports.PlacementResult{ExternalID: "12345"},
		balance:     &domain.AccountBalance{Asset: "USDT", Balance: 500, Simulated: false},
	}
	s := newTestSession(t, exchange)

	order, err := s.StartOrder(context.Background(), longConfig(), ports.Credentials{APIKey: "k", SecretKey: "s"})
	require.NoError(t, err)

	assert.Equal(t, "12345", order.ExternalOrderID)
	assert.Equal(t, domain.StatusPending, order.Status, "placement success does not change logical state")
	assert.Equal(t, 1, exchange.placeCalls)
	assert.Equal(t, 1, exchange.leverageCalls)

	snap := s.Snapshot()
	assert.Equal(t, domain.ConnRealAccount, snap.ConnectionStatus)
}

func TestStartOrderPlacementFailureDegradesToSimulation(t *testing.T) {
	exchange := &mockExchange{placeErr: errors.New("boom")}
	s := newTestSession(t, exchange)

	order, err := s.StartOrder(context.Background(), longConfig(), ports.Credentials{APIKey: "k", SecretKey: "s"})
	require.NoError(t, err, "placement failure must not block local creation")

	assert.Empty(t, order.ExternalOrderID)
	assert.Equal(t, domain.StatusPending, order.Status)
	require.NotNil(t, s.Snapshot().ActiveOrder)
}

func TestStartOrderRejectsWhileActive(t *testing.T) {
	s := newTestSession(t, nil)

	first, err := s.StartOrder(context.Background(), longConfig(), ports.Credentials{})
	require.NoError(t, err)

	_, err = s.StartOrder(context.Background(), longConfig(), ports.Credentials{})
	assert.ErrorIs(t, err, ports.ErrOrderActive)

	// The original order is untouched.
	snap := s.Snapshot()
	require.NotNil(t, snap.ActiveOrder)
	assert.Equal(t, first.ID, snap.ActiveOrder.ID)

	// Fill it and close it; then a new start must clear the finished order.
	setPrice(s, 100)
	s.tick(context.Background())
	setPrice(s, 102.5)
	s.tick(context.Background())
	require.Equal(t, domain.StatusClosedTP, s.Snapshot().ActiveOrder.Status)

	second, err := s.StartOrder(context.Background(), longConfig(), ports.Credentials{})
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, domain.StatusPending, s.Snapshot().ActiveOrder.Status)
}

func TestCancelOrder(t *testing.T) {
	s := newTestSession(t, nil)

	_, err := s.CancelOrder(context.Background())
	assert.ErrorIs(t, err, ports.ErrNoActiveOrder)

	_, err = s.StartOrder(context.Background(), longConfig(), ports.Credentials{})
	require.NoError(t, err)

	cancelled, err := s.CancelOrder(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, cancelled.Status)
	assert.Nil(t, s.Snapshot().ActiveOrder, "cancel clears the active slot")

	// A subsequent tick is a no-op.
	setPrice(s, 50)
	s.tick(context.Background())
	assert.Nil(t, s.Snapshot().ActiveOrder)
}

func TestCancelDuringPlacementDiscardsStaleResult(t *testing.T) {
	s := newTestSession(t, nil)
	exchange := &mockExchange{
		placeResult: &ports.PlacementResult{ExternalID: "late"},
	}
	// The user cancels while the placement round-trip is in flight. There is
	// no active order yet, so the cancel itself reports ErrNoActiveOrder, but
	// it still bumps the generation: restart-after-cancel behaves the same.
	exchange.onPlaceOrder = func() {
		s.mu.Lock()
		s.orderGen++
		s.mu.Unlock()
	}
	s.exchange = exchange

	_, err := s.StartOrder(context.Background(), longConfig(), ports.Credentials{APIKey: "k", SecretKey: "s"})
	assert.ErrorIs(t, err, ports.ErrStaleOrder)
	assert.Nil(t, s.Snapshot().ActiveOrder, "stale placement must not publish an order")
}

func TestRefreshBalance(t *testing.T) {
	t.Run("no credentials disconnects", func(t *testing.T) {
		s := newTestSession(t, nil)
		balance := s.RefreshBalance(context.Background(), ports.Credentials{})
		assert.Nil(t, balance)
		assert.Equal(t, domain.ConnDisconnected, s.Snapshot().ConnectionStatus)
	})

	t.Run("real balance", func(t *testing.T) {
		exchange := &mockExchange{
			balance: &domain.AccountBalance{Asset: "USDT", Balance: 1234.5, Simulated: false},
		}
		s := newTestSession(t, exchange)

		balance := s.RefreshBalance(context.Background(), ports.Credentials{APIKey: "k", SecretKey: "s"})
		require.NotNil(t, balance)
		assert.False(t, balance.Simulated)
		assert.Equal(t, domain.ConnRealAccount, s.Snapshot().ConnectionStatus)
	})

	t.Run("simulated balance with diagnostic", func(t *testing.T) {
		exchange := &mockExchange{
			balance:    &domain.AccountBalance{Asset: "USDT", Balance: 10000, Simulated: true},
			balanceErr: errors.New("signature rejected"),
		}
		s := newTestSession(t, exchange)

		balance := s.RefreshBalance(context.Background(), ports.Credentials{APIKey: "bad", SecretKey: "bad"})
		require.NotNil(t, balance)
		assert.True(t, balance.Simulated)

		snap := s.Snapshot()
		assert.Equal(t, domain.ConnSimulated, snap.ConnectionStatus)

		found := false
		for _, entry := range snap.Logs {
			if entry.Message == "signature rejected" {
				found = true
			}
		}
		assert.True(t, found, "diagnostic message must reach the event log")
	})
}

func TestSelectSymbolResetsCandles(t *testing.T) {
	s := newTestSession(t, nil)

	s.mu.Lock()
	s.candles = []domain.Candle{{Close: 1}}
	s.mu.Unlock()

	require.NoError(t, s.SelectSymbol(context.Background(), "ETH-USDT"))

	snap := s.Snapshot()
	assert.Equal(t, "ETH-USDT", snap.Symbol)
	assert.Empty(t, snap.Candles)

	assert.Error(t, s.SelectSymbol(context.Background(), ""))
}

func TestSubscribeReceivesSnapshots(t *testing.T) {
	s := newTestSession(t, nil)

	ch, unsubscribe := s.Subscribe()
	defer unsubscribe()

	_, err := s.StartOrder(context.Background(), longConfig(), ports.Credentials{})
	require.NoError(t, err)

	select {
	case snap := <-ch:
		require.NotNil(t, snap.ActiveOrder)
	case <-time.After(time.Second):
		t.Fatal("expected a snapshot notification")
	}
}

func TestRefreshMarketDataInstallsSnapshot(t *testing.T) {
	s := newTestSession(t, nil)
	s.feed = &mockFeed{snapshot: &domain.MarketSnapshot{
		Candles:     []domain.Candle{{Close: 101}, {Close: 102}},
		LatestPrice: 102,
		Synthetic:   false,
	}}

	s.refreshMarketData(context.Background())

	snap := s.Snapshot()
	assert.InDelta(t, 102, snap.CurrentPrice, 1e-9)
	assert.Len(t, snap.Candles, 2)
	assert.False(t, snap.SyntheticFeed)
}
