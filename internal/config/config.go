package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"artipub/internal/deprecation"
	"artipub/internal/storage"
)

const (
	defaultHTTPPort        = "8080"
	defaultTemporalAddress = "localhost:7233"
	defaultTemporalNS      = "default"
	defaultTaskQueue       = "artipub-publish-task-queue"
	defaultRepositoryName  = "releases"
)

type Config struct {
	HTTPPort          string
	PostgresDSN       string
	TemporalAddress   string
	TemporalNamespace string
	TemporalTaskQueue string
	WorkflowIDPrefix  string
	LogLevel          string
	WarningMode       deprecation.WarningMode
	MaxRequestBytes   int64
	Repositories      []storage.Repository
}

func Load() (Config, error) {
	cfg := Config{
		HTTPPort:          getenv("HTTP_PORT", defaultHTTPPort),
		PostgresDSN:       os.Getenv("POSTGRES_DSN"),
		TemporalAddress:   getenv("TEMPORAL_ADDRESS", defaultTemporalAddress),
		TemporalNamespace: getenv("TEMPORAL_NAMESPACE", defaultTemporalNS),
		TemporalTaskQueue: getenv("TEMPORAL_TASK_QUEUE", defaultTaskQueue),
		WorkflowIDPrefix:  getenv("WORKFLOW_ID_PREFIX", "publish"),
		LogLevel:          getenv("LOG_LEVEL", "info"),
		MaxRequestBytes:   int64(getenvInt("MAX_REQUEST_BYTES", 1024*1024)),
	}

	if cfg.PostgresDSN == "" {
		return Config{}, fmt.Errorf("POSTGRES_DSN is required")
	}

	mode, err := deprecation.ParseWarningMode(os.Getenv("ARTIPUB_WARNING_MODE"))
	if err != nil {
		return Config{}, fmt.Errorf("ARTIPUB_WARNING_MODE: %w", err)
	}
	cfg.WarningMode = mode

	repos, err := loadRepositories()
	if err != nil {
		return Config{}, err
	}
	cfg.Repositories = repos
	return cfg, nil
}

// Repository returns the configured repository called name.
func (c Config) Repository(name string) (storage.Repository, bool) {
	for _, r := range c.Repositories {
		if r.Name == name {
			return r, true
		}
	}
	return storage.Repository{}, false
}

// loadRepositories reads REPOSITORIES_FILE (a YAML list) and adds the
// repository described by the REPOSITORY_* variables.
func loadRepositories() ([]storage.Repository, error) {
	var repos []storage.Repository
	if path := os.Getenv("REPOSITORIES_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read REPOSITORIES_FILE: %w", err)
		}
		if err := yaml.Unmarshal(data, &repos); err != nil {
			return nil, fmt.Errorf("parse REPOSITORIES_FILE: %w", err)
		}
	}

	if url := os.Getenv("REPOSITORY_URL"); url != "" {
		repos = append(repos, storage.Repository{
			Name:     getenv("REPOSITORY_NAME", defaultRepositoryName),
			URL:      url,
			Endpoint: os.Getenv("REPOSITORY_ENDPOINT"),
			Region:   os.Getenv("REPOSITORY_REGION"),
			Profile:  os.Getenv("REPOSITORY_PROFILE"),
		})
	}

	if len(repos) == 0 {
		return nil, fmt.Errorf("no repository configured: set REPOSITORY_URL or REPOSITORIES_FILE")
	}
	seen := make(map[string]struct{}, len(repos))
	for _, r := range repos {
		if r.Name == "" {
			return nil, fmt.Errorf("repository %q has no name", r.URL)
		}
		if _, dup := seen[r.Name]; dup {
			return nil, fmt.Errorf("repository %q is configured twice", r.Name)
		}
		seen[r.Name] = struct{}{}
		if _, err := storage.ParseURL(r.URL); err != nil {
			return nil, err
		}
	}
	return repos, nil
}

func getenv(key string, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
