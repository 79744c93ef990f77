package main

import (
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"

	"artipub/internal/config"
	"artipub/internal/deprecation"
	"artipub/internal/logging"
	"artipub/internal/publish"
	"artipub/internal/storage"
	appTemporal "artipub/internal/temporal"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := logging.NewWithComponent(logging.Config{}, "worker")
		boot.Fatal().Err(err).Msg("load config")
	}

	logger := logging.NewWithComponent(logging.Config{Level: cfg.LogLevel}, "worker")
	logging.SetDefault(logger)
	deprecation.Default().SetLogger(logger)
	deprecation.Init(nil, cfg.WarningMode, nil)

	store, err := storage.NewPostgresStore(cfg.PostgresDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect postgres")
	}
	defer store.Close()

	temporalClient, err := client.Dial(client.Options{
		HostPort:  cfg.TemporalAddress,
		Namespace: cfg.TemporalNamespace,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("connect temporal")
	}
	defer temporalClient.Close()

	activities := &appTemporal.Activities{
		Ledger:       store,
		Repositories: cfg.Repositories,
		Open:         appTemporal.OpenMinio,
		Publish:      []publish.Option{publish.WithLogger(logger)},
	}

	w := worker.New(temporalClient, cfg.TemporalTaskQueue, worker.Options{})
	w.RegisterWorkflowWithOptions(appTemporal.PublishWorkflow, workflow.RegisterOptions{Name: appTemporal.PublishWorkflowName})
	w.RegisterActivity(activities.ResolveCredentialsActivity)
	w.RegisterActivity(activities.UploadArtifactActivity)
	w.RegisterActivity(activities.UploadDescriptorsActivity)
	w.RegisterActivity(activities.UpdateMetadataActivity)
	w.RegisterActivity(activities.RecordResultActivity)

	logger.Info().Str("task_queue", cfg.TemporalTaskQueue).Msg("worker running")
	if err := w.Run(worker.InterruptCh()); err != nil {
		logger.Fatal().Err(err).Msg("worker stopped with error")
	}
}
