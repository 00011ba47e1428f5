package domain

import (
	"time"

	"github.com/google/uuid"
)

// TradeConfig is the user's intent for a single pending limit order.
// It is immutable once submitted.
type TradeConfig struct {
	Symbol     string    `json:"symbol"`
	EntryPrice float64   `json:"entryPrice"`
	Leverage   int       `json:"leverage"`
	AmountUSDT float64   `json:"amountUSDT"`
	TPPercent  float64   `json:"tpPercent"`
	SLPercent  float64   `json:"slPercent"`
	Side       OrderSide `json:"side"`
}

// Order is the single active order tracked by the monitor. It is derived from
// a TradeConfig at creation; TPPrice and SLPrice are baked in at that point and
// never recomputed. Once the status is terminal no field mutates again.
type Order struct {
	TradeConfig

	ID        string      `json:"id"`
	Status    OrderStatus `json:"status"`
	CreatedAt time.Time   `json:"createdAt"`
	TPPrice   float64     `json:"tpPrice"`
	SLPrice   float64     `json:"slPrice"`

	// PNL is zero before the order fills, updated on every tick while filled
	// and frozen at the closing value once the order reaches CLOSED_TP/CLOSED_SL.
	PNL float64 `json:"pnl"`

	// ExternalOrderID is set only when the exchange accepted the placement.
	// Its presence does not affect the logical state machine.
	ExternalOrderID string `json:"externalOrderId,omitempty"`
}

// NewOrder derives a PENDING order from the supplied configuration.
// The absolute TP/SL prices are computed once here from the percentage offsets:
// for LONG tp is above entry and sl below, mirrored for SHORT. The caller is
// responsible for supplying percentages that make the thresholds sensible.
func NewOrder(cfg TradeConfig) *Order {
	var tpPrice, slPrice float64
	if cfg.Side == Long {
		tpPrice = cfg.EntryPrice * (1 + cfg.TPPercent/100)
		slPrice = cfg.EntryPrice * (1 - cfg.SLPercent/100)
	} else {
		tpPrice = cfg.EntryPrice * (1 - cfg.TPPercent/100)
		slPrice = cfg.EntryPrice * (1 + cfg.SLPercent/100)
	}

	return &Order{
		TradeConfig: cfg,
		ID:          uuid.NewString(),
		Status:      StatusPending,
		CreatedAt:   time.Now().UTC(),
		TPPrice:     tpPrice,
		SLPrice:     slPrice,
	}
}

// PositionSize returns the position quantity in base units
// (margin times leverage, converted at the entry price).
func (o *Order) PositionSize() float64 {
	return o.AmountUSDT * float64(o.Leverage) / o.EntryPrice
}

// UnrealizedPNL computes the profit or loss in USDT at the given price.
func (o *Order) UnrealizedPNL(price float64) float64 {
	size := o.PositionSize()
	if o.Side == Long {
		return (price - o.EntryPrice) * size
	}
	return (o.EntryPrice - price) * size
}

// HitEntry reports whether the price has reached the limit entry:
// at or below entry for LONG, at or above for SHORT.
func (o *Order) HitEntry(price float64) bool {
	if o.Side == Long {
		return price <= o.EntryPrice
	}
	return price >= o.EntryPrice
}

// HitTakeProfit reports whether the take-profit threshold is satisfied.
func (o *Order) HitTakeProfit(price float64) bool {
	if o.Side == Long {
		return price >= o.TPPrice
	}
	return price <= o.TPPrice
}

// HitStopLoss reports whether the stop-loss threshold is satisfied.
func (o *Order) HitStopLoss(price float64) bool {
	if o.Side == Long {
		return price <= o.SLPrice
	}
	return price >= o.SLPrice
}

// IsTerminal reports whether the order reached a terminal status.
func (o *Order) IsTerminal() bool {
	return o.Status.IsTerminal()
}

// Clone returns a shallow copy safe to hand to readers.
func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	c := *o
	return &c
}
