package app

import (
	"context"
	"fmt"

	"bingxTerminal/internal/domain"
)

// tick performs one monitor evaluation of the active order against the latest
// price snapshot. It does no I/O and holds the lock for the whole evaluation,
// so each tick is atomic with respect to concurrent observers. Multiple ticks
// may run against the same price between feed refreshes; the transition rules
// are written so that re-evaluating a stale price is harmless.
func (s *Session) tick(ctx context.Context) {
	s.mu.Lock()

	order := s.order
	price := s.price

	// Terminal orders are inert: skip all further evaluation.
	if order == nil || order.IsTerminal() || price <= 0 {
		s.mu.Unlock()
		return
	}

	changed := s.evaluateLocked(ctx, order, price)
	s.mu.Unlock()

	if changed {
		s.notify()
	}
}

// evaluateLocked advances the order state machine for one tick.
// Caller must hold s.mu.
func (s *Session) evaluateLocked(ctx context.Context, order *domain.Order, price float64) bool {
	switch order.Status {
	case domain.StatusPending:
		if order.HitEntry(price) {
			order.Status = domain.StatusFilled
			s.logEvent(ctx, fmt.Sprintf("Entry filled @ %.4f", price), domain.SeveritySuccess)
			return true
		}
		return false

	case domain.StatusFilled:
		// Unrealized P&L is recomputed on every tick while filled, whether or
		// not a close condition fires below.
		order.PNL = order.UnrealizedPNL(price)

		// Take-profit is checked before stop-loss: on a gapped tick that
		// satisfies both thresholds, TP wins.
		if order.HitTakeProfit(price) {
			order.Status = domain.StatusClosedTP
			s.logEvent(ctx, fmt.Sprintf("Take profit hit! PnL: %.2f USDT", order.PNL), domain.SeveritySuccess)
			return true
		}
		if order.HitStopLoss(price) {
			order.Status = domain.StatusClosedSL
			s.logEvent(ctx, fmt.Sprintf("Stop loss hit. PnL: %.2f USDT", order.PNL), domain.SeverityError)
			return true
		}
		return true
	}

	return false
}
