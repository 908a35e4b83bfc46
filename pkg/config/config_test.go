package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("AUTH_JWT_SECRET", "unit-test-secret")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load(os.DevNull)
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, 100, cfg.RateLimit.MaxRequests)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window)

	assert.Equal(t, "budget-insight", cfg.Banking.DefaultProvider)
	assert.True(t, cfg.Banking.Sync.Enabled)
	assert.Equal(t, "0 */6 * * *", cfg.Banking.Sync.SweepSpec)
	assert.Equal(t, 6*time.Hour, cfg.Banking.Sync.StalenessThreshold)
	assert.Equal(t, 5, cfg.Banking.Sync.BatchSize)
	assert.Equal(t, 30, cfg.Banking.Sync.LookbackDays)

	// Integrations are opt-in.
	assert.False(t, cfg.Banking.BudgetInsight.Enabled)
	assert.False(t, cfg.Banking.Bridge.Enabled)
	assert.Equal(t, 30*time.Second, cfg.Banking.BudgetInsight.HTTPTimeout)
}

func TestLoadOverridesFromEnv(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("BANKING_SYNC_BATCH_SIZE", "12")
	t.Setenv("BANKING_SYNC_STALENESS_THRESHOLD", "45m")
	t.Setenv("BANKING_BRIDGE_ENABLED", "true")
	t.Setenv("BANKING_BRIDGE_API_URL", "https://api.bridge.example")
	t.Setenv("BANKING_BRIDGE_RESILIENCE_RETRY_MAX_ATTEMPTS", "7")

	cfg, err := Load(os.DevNull)
	require.NoError(t, err)

	assert.Equal(t, 12, cfg.Banking.Sync.BatchSize)
	assert.Equal(t, 45*time.Minute, cfg.Banking.Sync.StalenessThreshold)
	assert.True(t, cfg.Banking.Bridge.Enabled)
	assert.Equal(t, "https://api.bridge.example", cfg.Banking.Bridge.ApiUrl)
	assert.Equal(t, 7, cfg.Banking.Bridge.Resilience.Retry.MaxAttempts)
}

func TestLoadRequiresJwtSecret(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "")
	os.Unsetenv("AUTH_JWT_SECRET") //nolint:errcheck

	_, err := Load(os.DevNull)
	assert.Error(t, err)
}

func TestMaskValue(t *testing.T) {
	assert.Equal(t, "****", maskValue("short"))
	assert.Equal(t, "po****ars1", maskValue("postgres://user:hunter2@db/stars1"))
}
