package analysis

import (
	"fmt"

	"bingxTerminal/internal/domain"
)

// SMA computes the Simple Moving Average of the closing prices over the last
// period candles.
func SMA(candles []domain.Candle, period int) (float64, error) {
	if period <= 0 {
		return 0, fmt.Errorf("SMA period must be positive, got %d", period)
	}
	if len(candles) < period {
		return 0, fmt.Errorf("not enough data (%d) to calculate SMA for period %d", len(candles), period)
	}

	total := 0.0
	for i := len(candles) - period; i < len(candles); i++ {
		total += candles[i].Close
	}
	return total / float64(period), nil
}

// RSI computes the Relative Strength Index of the closing prices using
// Wilder's smoothing method.
func RSI(candles []domain.Candle, period int) (float64, error) {
	if period <= 0 {
		return 0, fmt.Errorf("RSI period must be positive, got %d", period)
	}
	if len(candles) <= period {
		return 0, fmt.Errorf("not enough data (%d) to calculate RSI for period %d", len(candles), period)
	}

	changes := make([]float64, 0, len(candles)-1)
	for i := 1; i < len(candles); i++ {
		changes = append(changes, candles[i].Close-candles[i-1].Close)
	}

	var avgGain, avgLoss float64
	for i := 0; i < period; i++ {
		if changes[i] > 0 {
			avgGain += changes[i]
		} else {
			avgLoss -= changes[i]
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	for i := period; i < len(changes); i++ {
		if changes[i] > 0 {
			avgGain = (avgGain*float64(period-1) + changes[i]) / float64(period)
			avgLoss = (avgLoss * float64(period-1)) / float64(period)
		} else {
			avgGain = (avgGain * float64(period-1)) / float64(period)
			avgLoss = (avgLoss*float64(period-1) - changes[i]) / float64(period)
		}
	}

	if avgLoss == 0 {
		if avgGain == 0 {
			return 50, nil // Neutral if no change
		}
		return 100, nil // Max RSI if only gains
	}

	rs := avgGain / avgLoss
	rsi := 100 - (100 / (1 + rs))

	if rsi > 100 {
		rsi = 100
	} else if rsi < 0 {
		rsi = 0
	}
	return rsi, nil
}

// DescribeMarket builds a short textual observation of the candle window,
// suitable as input to the strategy advisor. It degrades to a plain price
// statement when the window is too short for the indicators.
func DescribeMarket(snapshot *domain.MarketSnapshot) string {
	if snapshot == nil || len(snapshot.Candles) == 0 {
		return "No market data available."
	}

	desc := fmt.Sprintf("%s last price %.4f over %d candles", snapshot.Symbol, snapshot.LatestPrice, len(snapshot.Candles))
	if snapshot.Synthetic {
		desc += " (synthetic feed)"
	}

	if sma, err := SMA(snapshot.Candles, 10); err == nil {
		trend := "above"
		if snapshot.LatestPrice < sma {
			trend = "below"
		}
		desc += fmt.Sprintf("; price is %s the 10-period SMA (%.4f)", trend, sma)
	}
	if rsi, err := RSI(snapshot.Candles, 14); err == nil {
		desc += fmt.Sprintf("; RSI(14) is %.1f", rsi)
	}
	return desc + "."
}
