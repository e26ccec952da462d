package main

import (
	"context"
	"net/http"

	webAdapter "github.com/ablair264/splitfin/internal/adapters/web"
	"github.com/ablair264/splitfin/internal/app"
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

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("database")
	}
	defer pool.Close()

	if cfg.BillingAuthToken == "" {
		log.Warn().Msg("BILLING_AUTH_TOKEN is not set; remote billing calls will be unauthenticated")
	}
	gateway := billing.NewClient(cfg.BillingBaseURL, cfg.BillingAuthToken, cfg.BillingOrgID)

	notifier := core.NewNotifier(pool, log)
	invoiceService := core.NewInvoiceService(pool, gateway, log)
	paymentService := core.NewPaymentService(pool, gateway, notifier, log)
	convertService := core.NewConvertService(pool, gateway, invoiceService, notifier, log)
	settingsService := core.NewSettingsService(pool)

	svc := app.NewAppService(invoiceService, paymentService, convertService, settingsService, log)
	handler := webAdapter.NewHandler(svc, cfg.AllowedOrigins, cfg.WebhookSecret)

	log.Info().Str("port", cfg.ServerPort).Msg("server starting")
	if err := http.ListenAndServe(":"+cfg.ServerPort, handler); err != nil {
		log.Fatal().Err(err).Msg("server")
	}
}
