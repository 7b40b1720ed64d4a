package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"server/internal/adapter/repo"
	"server/internal/http/handlers"
	httpapi "server/internal/http/httpapi"
	"server/internal/infra"
	"server/internal/payment"
	"server/internal/service"
	"server/migrations"
)

func main() {
	_ = godotenv.Load()

	ctx := context.Background()
	cfg, err := infra.LoadConfig(ctx)
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	dbpool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer dbpool.Close()

	if err := infra.Migrate(ctx, dbpool, migrations.FS, logger); err != nil {
		logger.Fatal().Err(err).Msg("failed to apply migrations")
	}

	store := repo.NewStore(dbpool)
	provider := payment.NewClient(cfg.ProviderSecretKey)

	donations := service.NewDonationProcessor(store, logger)
	lifecycle := service.NewLifecycleManager(store, provider, cfg.FrontendBaseURL, logger)
	reconciler := service.NewReconciler(lifecycle, cfg.WebhookSigningSecret, logger)

	app := handlers.NewApp(donations, lifecycle, reconciler, logger)
	router := httpapi.NewRouter(app, cfg)
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
