package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yungbote/studydeck-backend/internal/pkg/logger"
	"github.com/yungbote/studydeck-backend/internal/pricing"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := LoadConfig(logger.Nop(), "")
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.HTTP.Addr)
	require.Equal(t, "postgres", cfg.DB.Driver)
	require.Equal(t, "local", cfg.Storage.Mode)
	require.Equal(t, 180*time.Second, cfg.AI.Timeout)
	require.Equal(t, pricing.DefaultUSDPerCredit, cfg.Pricing.USDPerCredit)
	require.True(t, cfg.Metrics.Enabled)
	require.Equal(t, 5*time.Minute, cfg.Jobs.StaleAfter)
	require.Equal(t, 2*time.Minute, cfg.Jobs.DrainTimeout)
	require.Less(t, cfg.Jobs.HeartbeatInterval, cfg.Jobs.StaleAfter)
}

func TestLoadConfigFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "studydeck.yaml")
	body := `
db:
  driver: sqlite
  sqlite_path: /tmp/x.db
ai:
  model: gpt-4.1-mini
  timeout: 30s
pricing:
  usd_per_credit: 0.02
  models:
    house-model:
      prompt_per_million: 1
      completion_per_million: 2
credits:
  signup_bonus: 25
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	t.Setenv("STUDYDECK_HTTP_ADDR", ":9090")
	t.Setenv("STUDYDECK_CREDITS_SIGNUP_BONUS", "40")

	cfg, err := LoadConfig(logger.Nop(), path)
	require.NoError(t, err)
	require.Equal(t, "sqlite", cfg.DB.Driver)
	require.Equal(t, "gpt-4.1-mini", cfg.AI.Model)
	require.Equal(t, 30*time.Second, cfg.AI.Timeout)
	require.Equal(t, 0.02, cfg.Pricing.USDPerCredit)
	require.Equal(t, pricing.ModelRate{PromptPerMillion: 1, CompletionPerMillion: 2}, cfg.Pricing.Models["house-model"])
	require.Equal(t, ":9090", cfg.HTTP.Addr)
	require.Equal(t, 40, cfg.Credits.SignupBonus)
}

func TestLoadConfigMissingExplicitFile(t *testing.T) {
	_, err := LoadConfig(logger.Nop(), filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	base := Config{
		DB:      DBConfig{Driver: "sqlite"},
		Storage: StorageConfig{Mode: "local"},
		Pricing: PricingConfig{USDPerCredit: 0.01},
	}
	require.NoError(t, base.Validate())

	bad := base
	bad.DB.Driver = "mysql"
	require.Error(t, bad.Validate())

	bad = base
	bad.Storage.Mode = "gcs"
	require.Error(t, bad.Validate())

	bad = base
	bad.Pricing.USDPerCredit = 0
	require.Error(t, bad.Validate())

	bad = base
	bad.Jobs = JobsConfig{StaleAfter: time.Minute, HeartbeatInterval: time.Minute}
	require.Error(t, bad.Validate())
}
