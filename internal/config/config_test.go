package config

import (
    "os"
    "path/filepath"
    "testing"

    "github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
    cfg, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
    require.NoError(t, err)
    require.Equal(t, "8080", cfg.Server.Port)
    require.Equal(t, "0 0 18 * * *", cfg.Sync.Schedule)
    require.Equal(t, 250, cfg.Providers.FMP.DailyLimit)
    require.Equal(t, 60, cfg.Providers.Finnhub.RequestsPerMinute)
    require.Equal(t, 5, cfg.Providers.AlphaVantage.RequestsPerMinute)
    require.True(t, cfg.Providers.Tradegate.Enabled)
}

func TestLoadFile(t *testing.T) {
    path := filepath.Join(t.TempDir(), "config.yml")
    doc := `
server:
  port: "9999"
ledger:
  budget_id: budget-42
sync:
  schedule: "@every 6h"
providers:
  fmp:
    daily_limit: 100
`
    require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

    cfg, err := Load(path)
    require.NoError(t, err)
    require.Equal(t, "9999", cfg.Server.Port)
    require.Equal(t, "budget-42", cfg.Ledger.BudgetID)
    require.Equal(t, "@every 6h", cfg.Sync.Schedule)
    require.Equal(t, 100, cfg.Providers.FMP.DailyLimit)
    // untouched sections keep their defaults
    require.Equal(t, "info", cfg.Log.Level)
}

func TestEnvOverrides(t *testing.T) {
    t.Setenv("PORT", "7777")
    t.Setenv("LEDGER_TOKEN", "secret")
    t.Setenv("FMP_API_KEY", "fmp-key")

    cfg, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
    require.NoError(t, err)
    require.Equal(t, "7777", cfg.Server.Port)
    require.Equal(t, "secret", cfg.Ledger.Token)
    require.Equal(t, "fmp-key", cfg.Providers.FMP.APIKey)
}

func TestBadYAMLFails(t *testing.T) {
    path := filepath.Join(t.TempDir(), "config.yml")
    require.NoError(t, os.WriteFile(path, []byte("{{{"), 0o600))
    _, err := Load(path)
    require.Error(t, err)
}
