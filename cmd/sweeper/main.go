// The sweeper retries remote pushes for payments stuck in pending_push until
// they converge with the billing system or exhaust their retries.
package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/ablair264/splitfin/internal/billing"
	"github.com/ablair264/splitfin/internal/config"
	"github.com/ablair264/splitfin/internal/core"
	"github.com/ablair264/splitfin/internal/db"
	"github.com/ablair264/splitfin/internal/logger"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logger.Setup("info", "console")
		lg := logger.Get()
		lg.Fatal().Err(err).Msg("config")
	}
	logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log := logger.Get()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("database")
	}
	defer pool.Close()

	gateway := billing.NewClient(cfg.BillingBaseURL, cfg.BillingAuthToken, cfg.BillingOrgID)

	sweeper := core.NewSweeper(pool, gateway, log)
	sweeper.Interval = cfg.SweepInterval
	sweeper.BatchSize = cfg.SweepBatchSize
	sweeper.MaxRetries = cfg.SweepMaxRetries

	sweeper.Run(ctx)
}
