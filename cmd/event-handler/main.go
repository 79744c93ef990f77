package main

import (
	"context"
	"os/signal"
	"sync"
	"syscall"

	"artipub/internal/config"
	"artipub/internal/credentials"
	"artipub/internal/deprecation"
	"artipub/internal/events"
	"artipub/internal/logging"
	"artipub/internal/maven"
	"artipub/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := logging.NewWithComponent(logging.Config{}, "event-handler")
		boot.Fatal().Err(err).Msg("load config")
	}

	logger := logging.NewWithComponent(logging.Config{Level: cfg.LogLevel}, "event-handler")
	logging.SetDefault(logger)
	deprecation.Default().SetLogger(logger)
	deprecation.Init(nil, cfg.WarningMode, nil)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	for _, repo := range cfg.Repositories {
		resolved, err := credentials.Resolve(credentials.Request{
			Repository: repo.Name,
			Explicit:   repo.Credentials,
			Profile:    repo.Profile,
		})
		if err != nil {
			logger.Fatal().Err(err).Str("repository", repo.Name).Msg("resolve credentials")
		}
		store, loc, err := storage.OpenRepository(ctx, repo, resolved.Credentials(), nil)
		if err != nil {
			logger.Fatal().Err(err).Str("repository", repo.Name).Msg("connect repository")
		}

		repoLogger := logger.With().Str("repository", repo.Name).Logger()
		source := events.NewMinioArtifactEventSource(store.Client(), loc.Bucket, maven.Layout{Prefix: loc.Prefix})
		verifier := events.NewSidecarVerifier(store, repoLogger)

		repoLogger.Info().Str("bucket", loc.Bucket).Str("prefix", loc.Prefix).Msg("listening for object-created events")
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := source.Run(ctx, verifier.Handle); err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
				cancel()
			}
		}()
	}
	wg.Wait()

	if firstErr != nil {
		logger.Fatal().Err(firstErr).Msg("event-handler stopped with error")
	}
}
