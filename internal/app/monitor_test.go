package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bingxTerminal/internal/domain"
	"bingxTerminal/internal/ports"
)

func startLong(t *testing.T, s *Session) *domain.Order {
	t.Helper()
	order, err := s.StartOrder(context.Background(), longConfig(), ports.Credentials{})
	require.NoError(t, err)
	return order
}

func activeStatus(s *Session) domain.OrderStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.order.Status
}

func activePNL(s *Session) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.order.PNL
}

func TestTickFillsLongExactlyAtEntry(t *testing.T) {
	s := newTestSession(t, nil)
	startLong(t, s)

	ctx := context.Background()

	// Above entry: still pending. At entry: filled. Below: stays filled.
	for _, step := range []struct {
		price float64
		want  domain.OrderStatus
	}{
		{101, domain.StatusPending},
		{100, domain.StatusFilled},
		{99.5, domain.StatusFilled},
	} {
		setPrice(s, step.price)
		s.tick(ctx)
		assert.Equal(t, step.want, activeStatus(s), "price %.2f", step.price)
	}
}

func TestTickClosesLongAtTakeProfit(t *testing.T) {
	s := newTestSession(t, nil)
	startLong(t, s)
	ctx := context.Background()

	setPrice(s, 100)
	s.tick(ctx)
	require.Equal(t, domain.StatusFilled, activeStatus(s))

	setPrice(s, 102.5)
	s.tick(ctx)
	assert.Equal(t, domain.StatusClosedTP, activeStatus(s))
	assert.InDelta(t, 12.5, activePNL(s), 1e-9)

	// Terminal orders are inert: a later price move changes nothing.
	setPrice(s, 90)
	s.tick(ctx)
	assert.Equal(t, domain.StatusClosedTP, activeStatus(s))
	assert.InDelta(t, 12.5, activePNL(s), 1e-9, "pnl frozen at close")
}

func TestTickClosesLongAtStopLoss(t *testing.T) {
	s := newTestSession(t, nil)
	startLong(t, s)
	ctx := context.Background()

	setPrice(s, 100)
	s.tick(ctx)

	setPrice(s, 99.0)
	s.tick(ctx)
	assert.Equal(t, domain.StatusClosedSL, activeStatus(s))
	assert.InDelta(t, -5.0, activePNL(s), 1e-9)
}

func TestTickGapSatisfyingBothThresholdsPrefersTakeProfit(t *testing.T) {
	s := newTestSession(t, nil)

	// SHORT with tp 97 and sl 103; a gap down to 96 satisfies TP only, while a
	// pathological evaluation order could check SL against a later price first.
	// The contract: when one tick's price satisfies both predicates, TP wins.
	cfg := domain.TradeConfig{
		Symbol:     "BTC-USDT",
		EntryPrice: 100,
		Leverage:   5,
		AmountUSDT: 100,
		TPPercent:  3.0,
		SLPercent:  3.0,
		Side:       domain.Short,
	}
	_, err := s.StartOrder(context.Background(), cfg, ports.Credentials{})
	require.NoError(t, err)

	ctx := context.Background()
	setPrice(s, 100)
	s.tick(ctx)
	require.Equal(t, domain.StatusFilled, activeStatus(s))

	setPrice(s, 96)
	s.tick(ctx)
	assert.Equal(t, domain.StatusClosedTP, activeStatus(s))
	assert.InDelta(t, 20.0, activePNL(s), 1e-9)
}

func TestTickRecomputesPNLWhileFilled(t *testing.T) {
	s := newTestSession(t, nil)
	startLong(t, s)
	ctx := context.Background()

	setPrice(s, 100)
	s.tick(ctx)

	setPrice(s, 101)
	s.tick(ctx)
	assert.Equal(t, domain.StatusFilled, activeStatus(s))
	assert.InDelta(t, 5.0, activePNL(s), 1e-9)

	setPrice(s, 99.5)
	s.tick(ctx)
	assert.Equal(t, domain.StatusFilled, activeStatus(s))
	assert.InDelta(t, -2.5, activePNL(s), 1e-9)
}

func TestTickSkipsWithoutPriceOrOrder(t *testing.T) {
	s := newTestSession(t, nil)
	ctx := context.Background()

	// No order: nothing to do.
	s.tick(ctx)
	assert.Nil(t, s.Snapshot().ActiveOrder)

	// Order but no price yet: the pending order must not fill against zero.
	startLong(t, s)
	s.tick(ctx)
	assert.Equal(t, domain.StatusPending, activeStatus(s))
}

func TestTickStalePendingReevaluationIsHarmless(t *testing.T) {
	s := newTestSession(t, nil)
	startLong(t, s)
	ctx := context.Background()

	// Multiple monitor ticks against the same unchanged price.
	setPrice(s, 101)
	for i := 0; i < 3; i++ {
		s.tick(ctx)
	}
	assert.Equal(t, domain.StatusPending, activeStatus(s))

	setPrice(s, 100)
	s.tick(ctx)
	s.tick(ctx)
	assert.Equal(t, domain.StatusFilled, activeStatus(s), "re-filling an already filled order is a no-op")
}
