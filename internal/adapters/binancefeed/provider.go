package binancefeed

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/adshao/go-binance/v2/futures"

	"bingxTerminal/internal/domain"
	"bingxTerminal/internal/ports"
)

const (
	baseURLProduction = "https://fapi.binance.com"
	baseURLTestnet    = "https://testnet.binancefuture.com"
)

// Provider implements ports.MarketDataProvider using Binance futures klines.
// It is an alternate market-data source for symbols also listed on Binance:
// public endpoints only, no credentials required.
type Provider struct {
	futuresClient *futures.Client
	logger        ports.Logger
	interval      string
}

// Config holds configuration specific to the Binance feed adapter.
type Config struct {
	UseTestnet bool
	Interval   string // kline interval, e.g. "5m"
	Logger     ports.Logger
}

// New creates a new Binance market-data provider.
func New(cfg Config) (*Provider, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for Binance feed provider")
	}
	interval := cfg.Interval
	if interval == "" {
		interval = "5m"
	}

	client := futures.NewClient("", "")
	if cfg.UseTestnet {
		client.BaseURL = baseURLTestnet
	} else {
		client.BaseURL = baseURLProduction
	}

	return &Provider{
		futuresClient: client,
		logger:        cfg.Logger,
		interval:      interval,
	}, nil
}

// FetchCandles retrieves up to limit recent candles, oldest first.
// Dashboard symbols use the "BTC-USDT" form; Binance wants "BTCUSDT".
func (p *Provider) FetchCandles(ctx context.Context, symbol string, limit int) ([]domain.Candle, error) {
	op := "FetchCandles"

	binanceSymbol := strings.ReplaceAll(strings.ReplaceAll(symbol, "-", ""), "/", "")
	klines, err := p.futuresClient.NewKlinesService().
		Symbol(binanceSymbol).
		Interval(p.interval).
		Limit(limit).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ports.ErrConnectionFailed, err)
	}

	candles := make([]domain.Candle, 0, len(klines))
	for _, k := range klines {
		open, err := strconv.ParseFloat(k.Open, 64)
		if err != nil {
			return nil, fmt.Errorf("%s: parse open price %q: %w", op, k.Open, err)
		}
		high, err := strconv.ParseFloat(k.High, 64)
		if err != nil {
			return nil, fmt.Errorf("%s: parse high price %q: %w", op, k.High, err)
		}
		low, err := strconv.ParseFloat(k.Low, 64)
		if err != nil {
			return nil, fmt.Errorf("%s: parse low price %q: %w", op, k.Low, err)
		}
		closePrice, err := strconv.ParseFloat(k.Close, 64)
		if err != nil {
			return nil, fmt.Errorf("%s: parse close price %q: %w", op, k.Close, err)
		}

		ts := time.UnixMilli(k.OpenTime).UTC()
		candles = append(candles, domain.Candle{
			Timestamp: ts,
			Label:     ts.Format("15:04"),
			Open:      open,
			High:      high,
			Low:       low,
			Close:     closePrice,
		})
	}
	return candles, nil
}
