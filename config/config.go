package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Feed source identifiers.
const (
	FeedSourceBingX   = "bingx"
	FeedSourceBinance = "binance"
)

// Config holds all application configuration.
type Config struct {
	Server struct {
		Addr string `envconfig:"SERVER_ADDR" default:":8080"`
	}

	BingX struct {
		BaseURL string        `envconfig:"BINGX_BASE_URL" default:"https://open-api.bingx.com"`
		Timeout time.Duration `envconfig:"BINGX_TIMEOUT" default:"10s"`
	}

	Binance struct {
		UseTestnet bool `envconfig:"BINANCE_TESTNET" default:"false"`
	}

	Gemini struct {
		APIKey  string        `envconfig:"GEMINI_API_KEY"`
		Model   string        `envconfig:"GEMINI_MODEL" default:"gemini-2.5-flash"`
		BaseURL string        `envconfig:"GEMINI_BASE_URL" default:"https://generativelanguage.googleapis.com"`
		Timeout time.Duration `envconfig:"GEMINI_TIMEOUT" default:"30s"`
	}

	Feed struct {
		Source         string        `envconfig:"FEED_SOURCE" default:"bingx"`
		Interval       time.Duration `envconfig:"FEED_INTERVAL" default:"5s"`
		CandleLimit    int           `envconfig:"CANDLE_LIMIT" default:"20"`
		CandleInterval time.Duration `envconfig:"CANDLE_INTERVAL" default:"5m"`
		InitialPrice   float64       `envconfig:"INITIAL_PRICE" default:"63500"`
	}

	Monitor struct {
		Interval time.Duration `envconfig:"MONITOR_INTERVAL" default:"1s"`
	}

	Trading struct {
		DefaultSymbol string `envconfig:"DEFAULT_SYMBOL" default:"BTC-USDT"`
	}

	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

// Load reads configuration from the environment (.env file supported).
func Load() (*Config, error) {
	// Load .env file, but don't fail if it doesn't exist (allow pure env vars).
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func validate(cfg *Config) error {
	var errs []string

	switch cfg.Feed.Source {
	case FeedSourceBingX, FeedSourceBinance:
	default:
		errs = append(errs, fmt.Sprintf("FEED_SOURCE must be %q or %q, got %q", FeedSourceBingX, FeedSourceBinance, cfg.Feed.Source))
	}
	if cfg.Feed.Interval <= 0 {
		errs = append(errs, "FEED_INTERVAL must be positive")
	}
	if cfg.Feed.CandleLimit < 2 {
		errs = append(errs, "CANDLE_LIMIT must be at least 2")
	}
	if cfg.Feed.CandleInterval <= 0 {
		errs = append(errs, "CANDLE_INTERVAL must be positive")
	}
	if cfg.Feed.InitialPrice <= 0 {
		errs = append(errs, "INITIAL_PRICE must be positive")
	}
	if cfg.Monitor.Interval <= 0 {
		errs = append(errs, "MONITOR_INTERVAL must be positive")
	}
	if cfg.Trading.DefaultSymbol == "" {
		errs = append(errs, "DEFAULT_SYMBOL must be set")
	}
	if cfg.BingX.Timeout <= 0 {
		errs = append(errs, "BINGX_TIMEOUT must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
