// Package main is the entry point for the backtest runner. It loads
// configuration, wires the historical data store and strategy registry,
// and serves the backtest submission API until interrupted.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/quantrook/backreplay/api"
	"github.com/quantrook/backreplay/config"
	"github.com/quantrook/backreplay/historicaldata"
	"github.com/quantrook/backreplay/providers"
	"github.com/quantrook/backreplay/realtime"
	"github.com/quantrook/backreplay/strategy"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	log.Info().Msg("starting backtest runner")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	source, err := historicaldata.NewSQLiteSource(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open historical data store")
	}

	cache := historicaldata.NewGlobalCache()
	registry := strategy.NewDefaultRegistry()
	log.Info().Strs("strategies", registry.Names()).Msg("registered strategies")

	var backfiller *providers.BinanceBackfiller
	if cfg.BinanceAPIKey != "" {
		backfiller = providers.NewBinanceBackfiller(cfg.BinanceAPIKey, cfg.BinanceAPISecret)
		log.Info().Msg("binance backfill enabled")
	}

	wsManager := realtime.NewWebSocketManager()
	go wsManager.Run()

	router := api.NewRouter(cfg, registry, source, source, backfiller, cache, wsManager)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.ServerHost, cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Msgf("API server listening on %s:%d", cfg.ServerHost, cfg.ServerPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server...")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited gracefully")
}
