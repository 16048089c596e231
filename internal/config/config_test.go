package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/hlwatch/internal/domain"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefaultsValidate(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, domain.DefaultSettings(), cfg.Monitor.Settings.Domain())
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	path := writeConfig(t, `
mode = "monitor"

[monitor]
poll_interval = "5s"
users = ["0x1234567890abcdef1234567890abcdef12345678"]

[monitor.settings]
enable_order_notifications = true
pnl_threshold = 2.5

[[monitor.price_alerts]]
id = "btc-100k"
coin = "BTC"
target_price = 100000
condition = "above"
enabled = true
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "monitor", cfg.Mode)
	assert.Equal(t, 5*time.Second, cfg.Monitor.PollInterval.Duration)
	assert.InDelta(t, 2.5, cfg.Monitor.Settings.PnLThreshold, 1e-9)
	assert.Equal(t, "https://api.hyperliquid.xyz", cfg.Hyperliquid.InfoURL)
	require.Len(t, cfg.Monitor.PriceAlerts, 1)
	assert.Equal(t, domain.AlertAbove, cfg.Monitor.PriceAlerts[0].Condition)
	assert.InDelta(t, 100000, cfg.Monitor.PriceAlerts[0].TargetPrice, 1e-9)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("HLWATCH_MODE", "full")
	t.Setenv("HLWATCH_MONITOR_POLL_INTERVAL", "1m")
	t.Setenv("HLWATCH_MONITOR_USERS", " 0xabc , ,0xdef")
	t.Setenv("HLWATCH_SERVER_PORT", "not-a-number")
	t.Setenv("HLWATCH_REDIS_TLS_ENABLED", "true")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "full", cfg.Mode)
	assert.Equal(t, time.Minute, cfg.Monitor.PollInterval.Duration)
	assert.Equal(t, []string{"0xabc", "0xdef"}, cfg.Monitor.Users)
	assert.Equal(t, 8000, cfg.Server.Port, "unparsable values are ignored")
	assert.True(t, cfg.Redis.TLSEnabled)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestValidateCollectsEveryProblem(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "trade"
	cfg.Monitor.PollInterval.Duration = 0
	cfg.Monitor.Settings.PnLThreshold = -1
	cfg.Notify.MinPriority = "urgent"
	cfg.Notify.Events = []string{"order_filled", "arb_detected"}

	err := cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{
		`unknown mode "trade"`,
		"poll_interval must be > 0",
		"pnlThreshold must be >= 0",
		`unknown min_priority "urgent"`,
		`unknown event "arb_detected"`,
	} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestRedactedConfig(t *testing.T) {
	cfg := Defaults()
	cfg.Supabase.Password = "hunter2"
	cfg.Server.APIKey = "key"
	cfg.Notify.TelegramToken = ""

	out := RedactedConfig(&cfg)
	assert.Equal(t, "***", out.Supabase.Password)
	assert.Equal(t, "***", out.Server.APIKey)
	assert.Empty(t, out.Notify.TelegramToken)
	assert.Equal(t, "hunter2", cfg.Supabase.Password)

	out.Server.CORSOrigins[0] = "mutated"
	assert.NotEqual(t, "mutated", cfg.Server.CORSOrigins[0])
}
