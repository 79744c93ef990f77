package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.temporal.io/sdk/client"

	"artipub/internal/api"
	"artipub/internal/config"
	"artipub/internal/deprecation"
	"artipub/internal/logging"
	"artipub/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := logging.NewWithComponent(logging.Config{}, "api")
		boot.Fatal().Err(err).Msg("load config")
	}

	logger := logging.NewWithComponent(logging.Config{Level: cfg.LogLevel}, "api")
	logging.SetDefault(logger)
	deprecation.Default().SetLogger(logger)
	deprecation.Init(nil, cfg.WarningMode, nil)

	store, err := storage.NewPostgresStore(cfg.PostgresDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect postgres")
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := store.Ping(ctx); err != nil {
		logger.Fatal().Err(err).Msg("postgres ping")
	}

	temporalClient, err := client.Dial(client.Options{
		HostPort:  cfg.TemporalAddress,
		Namespace: cfg.TemporalNamespace,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("connect temporal")
	}
	defer temporalClient.Close()

	h := api.NewHandler(cfg, store, temporalClient, logger)
	router := api.NewRouter(h)

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info().Str("port", cfg.HTTPPort).Int("repositories", len(cfg.Repositories)).Msg("api listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
}
