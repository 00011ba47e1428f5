package main

import (
	"context"
	"errors"
	"log" // Use standard log only for initial fatal errors before logger is set up
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bingxTerminal/config"
	"bingxTerminal/internal/adapters/binancefeed"
	"bingxTerminal/internal/adapters/bingx"
	"bingxTerminal/internal/adapters/gemini"
	"bingxTerminal/internal/adapters/logger"
	"bingxTerminal/internal/app"
	"bingxTerminal/internal/eventlog"
	"bingxTerminal/internal/feed"
	"bingxTerminal/internal/ports"
	"bingxTerminal/internal/server"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	// 2. Initialize Logger
	appLogger := logger.NewLogrusLogger(cfg.LogLevel)
	ctx := context.Background()
	appLogger.Info(ctx, "Logger initialized", map[string]interface{}{"level": cfg.LogLevel})

	// 3. Initialize BingX client (execution gateway + default market data)
	bingxClient, err := bingx.New(bingx.Config{
		BaseURL: cfg.BingX.BaseURL,
		Timeout: cfg.BingX.Timeout,
		Logger:  appLogger,
	})
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize BingX client")
		log.Fatalf("FATAL: Failed to initialize BingX client: %v", err)
	}
	appLogger.Info(ctx, "BingX client initialized", map[string]interface{}{"baseURL": cfg.BingX.BaseURL})

	// 4. Pick the market-data provider for the feed
	var provider ports.MarketDataProvider = bingxClient
	if cfg.Feed.Source == config.FeedSourceBinance {
		binanceProvider, err := binancefeed.New(binancefeed.Config{
			UseTestnet: cfg.Binance.UseTestnet,
			Logger:     appLogger,
		})
		if err != nil {
			appLogger.Error(ctx, err, "FATAL: Failed to initialize Binance feed provider")
			log.Fatalf("FATAL: Failed to initialize Binance feed provider: %v", err)
		}
		provider = binanceProvider
	}
	appLogger.Info(ctx, "Market-data provider selected", map[string]interface{}{"source": cfg.Feed.Source})

	// 5. Initialize the price feed with synthetic fallback
	priceFeed, err := feed.New(feed.Config{
		Provider:       provider,
		Logger:         appLogger,
		CandleLimit:    cfg.Feed.CandleLimit,
		CandleInterval: cfg.Feed.CandleInterval,
		InitialPrice:   cfg.Feed.InitialPrice,
	})
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize price feed")
		log.Fatalf("FATAL: Failed to initialize price feed: %v", err)
	}

	// 6. Initialize the session (event log + order monitor + timers)
	events := eventlog.New()
	session, err := app.NewSession(app.Config{
		Symbol:          cfg.Trading.DefaultSymbol,
		FeedInterval:    cfg.Feed.Interval,
		MonitorInterval: cfg.Monitor.Interval,
		Logger:          appLogger,
		Feed:            priceFeed,
		Exchange:        bingxClient,
		Events:          events,
	})
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize session")
		log.Fatalf("FATAL: Failed to initialize session: %v", err)
	}

	// 7. Initialize the strategy advisor
	advisor, err := gemini.New(gemini.Config{
		APIKey:  cfg.Gemini.APIKey,
		Model:   cfg.Gemini.Model,
		BaseURL: cfg.Gemini.BaseURL,
		Timeout: cfg.Gemini.Timeout,
		Logger:  appLogger,
	})
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize strategy advisor")
		log.Fatalf("FATAL: Failed to initialize strategy advisor: %v", err)
	}
	if cfg.Gemini.APIKey == "" {
		appLogger.Warn(ctx, "No Gemini API key configured, advisor will report unavailable")
	}

	// 8. Initialize the HTTP server
	srv, err := server.New(server.Config{
		Logger:  appLogger,
		Session: session,
		Advisor: advisor,
	})
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize HTTP server")
		log.Fatalf("FATAL: Failed to initialize HTTP server: %v", err)
	}

	// 9. Run everything until a shutdown signal arrives
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		appLogger.Info(runCtx, "Received shutdown signal", map[string]interface{}{"signal": sig.String()})
		cancel()
	}()

	sessionErrCh := make(chan error, 1)
	go func() {
		sessionErrCh <- session.Run(runCtx)
	}()

	httpServer := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: srv.Router(),
	}
	httpErrCh := make(chan error, 1)
	go func() {
		appLogger.Info(runCtx, "HTTP server listening", map[string]interface{}{"addr": cfg.Server.Addr})
		httpErrCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-runCtx.Done():
	case err := <-httpErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Error(runCtx, err, "HTTP server failed")
		}
		cancel()
	case err := <-sessionErrCh:
		if err != nil {
			appLogger.Error(runCtx, err, "Session loop failed")
		}
		cancel()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		appLogger.Error(shutdownCtx, err, "HTTP server shutdown error")
	}

	appLogger.Info(ctx, "Application finished gracefully.")
}
