package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"polymarket-weather-bot-go/internal/config"
	"polymarket-weather-bot-go/internal/database"
	"polymarket-weather-bot-go/internal/logger"
	"polymarket-weather-bot-go/internal/meteo"
	"polymarket-weather-bot-go/internal/polymarket"
	"polymarket-weather-bot-go/internal/store"
	"polymarket-weather-bot-go/internal/trader"

	"go.uber.org/zap"
)

func main() {
	// Load application configuration
	cfg, err := config.LoadConfig("./configs")
	if err != nil {
		// We can't use the logger here because it's not initialized yet.
		panic(fmt.Sprintf("could not load config: %v", err))
	}

	// Initialize logger
	log, err := logger.NewLogger(cfg.Logger.Level, cfg.Logger.Format)
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	log.Info("Configuration loaded", zap.Int("cities", len(cfg.Trading.Cities)))

	// Initialize database
	db, err := database.NewDatabase(cfg.Database.DSN)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	log.Info("Database connection successful and schema migrated.")
	st := store.New(db)

	// Provider clients
	forecasts := meteo.NewClient(cfg.Meteo.BaseURL, cfg.Meteo.RateLimit, cfg.Meteo.RateLimitBurst, log)
	markets := polymarket.NewClient(cfg.Polymarket.GammaURL, cfg.Polymarket.ClobURL,
		cfg.Polymarket.RateLimit, cfg.Polymarket.RateLimitBurst, log)

	var exchange polymarket.TradingClientInterface
	if cfg.Trading.Live {
		if cfg.Polymarket.ApiKey == "" {
			log.Fatal("Live trading enabled but no API credentials configured")
		}
		exchange = polymarket.NewTradingClient(cfg.Polymarket.ClobURL,
			cfg.Polymarket.ApiKey, cfg.Polymarket.Secret, cfg.Polymarket.Passphrase, log)
		log.Warn("Live trading enabled")
	}

	// Setup context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sigchan := make(chan os.Signal, 1)
		signal.Notify(sigchan, syscall.SIGINT, syscall.SIGTERM)
		<-sigchan
		log.Info("Shutdown signal received, gracefully shutting down...")
		cancel()
	}()

	// Initialize the engine and its dashboard API, then run the tick loop
	engine := trader.NewEngine(log, &cfg, st, forecasts, markets, exchange)
	apiServer := trader.NewAPIServer(engine, cfg.Server.Port, log)
	apiServer.Start()

	engine.Run(ctx)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := apiServer.Stop(shutdownCtx); err != nil {
		log.Error("API server shutdown failed", zap.Error(err))
	}

	log.Info("Bot has been shut down.")
}
