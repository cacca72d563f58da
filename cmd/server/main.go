// Package main is the entry point for the folio portfolio tracking service.
// It assembles the database, the market-data policy, the quote and
// exchange-rate clients, the portfolio modules, and the HTTP API.
package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/foliotrack/folio/internal/clients/exchangerate"
	"github.com/foliotrack/folio/internal/clients/quotes"
	"github.com/foliotrack/folio/internal/config"
	"github.com/foliotrack/folio/internal/database"
	"github.com/foliotrack/folio/internal/marketdata"
	"github.com/foliotrack/folio/internal/modules/assets"
	"github.com/foliotrack/folio/internal/modules/portfolio"
	"github.com/foliotrack/folio/internal/modules/recurring"
	"github.com/foliotrack/folio/internal/server"
	"github.com/foliotrack/folio/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Config failed before the real logger exists; use a fallback.
		fallbackLog := logger.New(logger.Config{Level: "info", Pretty: true})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(log)

	log.Info().
		Str("data_dir", cfg.DataDir).
		Int("port", cfg.Port).
		Bool("dev_mode", cfg.DevMode).
		Msg("Starting folio")

	db, err := database.New(database.Config{
		Path: filepath.Join(cfg.DataDir, "folio.db"),
		Name: "folio",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to migrate database")
	}

	// Market calendars and the fetch policy.
	markets := marketdata.NewService(log)

	// External data clients.
	quoteClient := quotes.NewClient(cfg.QuoteProviderURL, cfg.QuoteAPIKey, log)
	rates := exchangerate.NewClient(cfg.ExchangeRateURL, db.Conn(), log)

	// Assets: metadata, stored candles, policy-driven chart loading.
	assetRepo := assets.NewRepository(db.Conn(), log)
	assetService := assets.NewService(assetRepo, markets, quoteClient, log)

	// Portfolios: transactions and the holdings calculator.
	portfolioRepo := portfolio.NewRepository(db.Conn(), log)
	portfolioService := portfolio.NewService(portfolioRepo, assetRepo, assetRepo, rates, log)

	// Recurring plans on the cron scheduler.
	recurringRepo := recurring.NewRepository(db.Conn(), log)
	scheduler := recurring.NewScheduler(recurringRepo, portfolioRepo, log)
	if err := scheduler.Start(); err != nil {
		log.Fatal().Err(err).Msg("Failed to start recurring scheduler")
	}
	defer scheduler.Stop()

	srv := server.New(server.Config{
		Port:    cfg.Port,
		Log:     log,
		DB:      db,
		DevMode: cfg.DevMode,
		Handlers: []server.RouteRegistrar{
			assets.NewHandler(assetRepo, assetService, log),
			portfolio.NewHandler(portfolioRepo, portfolioService, log),
			recurring.NewHandler(recurringRepo, scheduler, log),
			marketdata.NewHandler(markets, log),
		},
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		log.Error().Err(err).Msg("HTTP server stopped")
	case sig := <-quit:
		log.Info().Str("signal", sig.String()).Msg("Shutting down")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Graceful shutdown failed")
	}

	log.Info().Msg("Folio stopped")
}
