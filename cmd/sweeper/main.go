package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"server/internal/adapter/repo"
	"server/internal/infra"
	"server/internal/service"
)

// The sweeper expires active subscriptions whose billing date passed the
// grace window without a paid invoice. It runs alongside the API and relies
// on per-day event identities, so overlapping or restarted sweeps are safe.
func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := infra.LoadConfig(ctx)
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv).With().Str("component", "sweeper").Logger()

	dbpool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer dbpool.Close()

	store := repo.NewStore(dbpool)
	lifecycle := service.NewLifecycleManager(store, nil, cfg.FrontendBaseURL, logger)

	sweep := func() {
		n, err := lifecycle.ExpireOverdue(ctx, cfg.BillingGracePeriod, cfg.SweepBatchSize)
		if err != nil {
			logger.Error().Err(err).Msg("sweep failed")
			return
		}
		if n > 0 {
			logger.Info().Int("expired", n).Msg("sweep expired overdue subscriptions")
		}
	}

	logger.Info().
		Dur("interval", cfg.SweepInterval).
		Dur("grace", cfg.BillingGracePeriod).
		Msg("sweeper started")
	sweep()

	ticker := time.NewTicker(cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			sweep()
		case <-ctx.Done():
			logger.Info().Msg("sweeper stopped")
			os.Exit(0)
		}
	}
}
