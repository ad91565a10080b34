package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"stratsim/internal/api"
	"stratsim/internal/config"
	"stratsim/internal/sim"
	"stratsim/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadAPIFromEnv()
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	tuning, err := config.LoadTuning(os.Getenv("STRATSIM_TUNING_FILE"))
	if err != nil {
		logger.Error("load tuning", "err", err)
		os.Exit(1)
	}

	st, err := store.Open(ctx, store.Config{
		Dialect:    cfg.DBDialect,
		DSN:        cfg.DatabaseURL,
		SQLitePath: cfg.SQLitePath,
	})
	if err != nil {
		logger.Error("store open failed", "err", err)
		os.Exit(1)
	}
	defer st.Close()

	simSvc := sim.NewService(st, sim.ServiceOptions{
		Tuning:        tuning,
		Volatility:    cfg.MarketVolatility,
		LiveQuotes:    cfg.LiveQuotes,
		QuoteEndpoint: cfg.QuoteEndpoint,
		QuoteTimeout:  cfg.QuoteTimeout,
	})

	server := api.New(cfg, logger, simSvc)
	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	logger.Info("stratsim api listening", "addr", cfg.Addr, "dialect", cfg.DBDialect)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server failed", "err", err)
		os.Exit(1)
	}
}
