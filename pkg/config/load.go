package config

import (
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Load reads configuration from the environment, optionally seeded from an
// .env file. A missing .env file is not an error.
func Load(envFilePath ...string) (*App, error) {
	logger := slog.Default()

	if len(envFilePath) == 0 {
		if err := godotenv.Load(); err != nil {
			logger.Warn("No .env file found in current directory")
		}
		return loadFromEnv()
	}

	for _, path := range envFilePath {
		if err := godotenv.Load(path); err != nil {
			logger.Debug("Environment file not found", "path", path, "error", err)
			continue
		}
		logger.Info("Environment loaded from file", "path", path)
		return loadFromEnv()
	}

	if err := godotenv.Load(); err != nil {
		logger.Warn("No .env file found in current directory")
	}
	return loadFromEnv()
}

func loadFromEnv() (*App, error) {
	var cfg App
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}

	if cfg.Env == "" {
		cfg.Env = "development"
	}

	logger := slog.Default()
	logger.Info("App config loaded",
		"env", cfg.Env,
		"db", maskValue(cfg.DB.Url),
		"default_provider", cfg.Banking.DefaultProvider,
		"sync_enabled", cfg.Banking.Sync.Enabled,
		"sync_staleness_threshold", cfg.Banking.Sync.StalenessThreshold,
		"sync_batch_size", cfg.Banking.Sync.BatchSize,
		"budget_insight_enabled", cfg.Banking.BudgetInsight.Enabled,
		"budget_insight_client_id", maskValue(cfg.Banking.BudgetInsight.ClientId),
		"bridge_enabled", cfg.Banking.Bridge.Enabled,
		"bridge_client_id", maskValue(cfg.Banking.Bridge.ClientId),
	)
	return &cfg, nil
}

func maskValue(key string) string {
	if len(key) <= 6 {
		return "****"
	}
	return key[:2] + "****" + key[len(key)-4:]
}
