package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"stratsim/internal/config"
	"stratsim/internal/sim"
	"stratsim/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadWorkerFromEnv()
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

	svc := sim.NewService(st, sim.ServiceOptions{Tuning: tuning})

	if cfg.RunOnce {
		advanced, err := svc.AdvanceAutopilotCampaigns(ctx, cfg.TurnsPerRun)
		if err != nil {
			logger.Error("autopilot advance failed", "err", err)
			os.Exit(1)
		}
		logger.Info("worker run-once completed", "campaigns", advanced)
		return
	}

	ticker := time.NewTicker(cfg.TickEvery)
	defer ticker.Stop()

	logger.Info("worker started", "tick_every", cfg.TickEvery.String(), "turns_per_run", cfg.TurnsPerRun)
	for {
		select {
		case <-ctx.Done():
			logger.Info("worker shutdown")
			return
		case <-ticker.C:
			advanced, err := svc.AdvanceAutopilotCampaigns(ctx, cfg.TurnsPerRun)
			if err != nil {
				logger.Error("autopilot advance failed", "err", err)
				continue
			}
			if advanced > 0 {
				logger.Info("autopilot tick complete", "campaigns", advanced)
			}
		}
	}
}
