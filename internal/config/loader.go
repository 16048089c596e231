package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path (skipped when empty), merges it on top of the
// built-in defaults, applies HLWATCH_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, fmt.Errorf("config: decode %s: %w", path, err)
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known HLWATCH_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Hyperliquid ──
	setStr(&cfg.Hyperliquid.InfoURL, "HLWATCH_HYPERLIQUID_INFO_URL")
	setDuration(&cfg.Hyperliquid.Timeout, "HLWATCH_HYPERLIQUID_TIMEOUT")

	// ── Monitor ──
	setDuration(&cfg.Monitor.PollInterval, "HLWATCH_MONITOR_POLL_INTERVAL")
	setStringSlice(&cfg.Monitor.Users, "HLWATCH_MONITOR_USERS")
	setInt(&cfg.Monitor.RelayBuffer, "HLWATCH_MONITOR_RELAY_BUFFER")
	setFloat64(&cfg.Monitor.Settings.PnLThreshold, "HLWATCH_MONITOR_PNL_THRESHOLD")
	setBool(&cfg.Monitor.Settings.SoundEnabled, "HLWATCH_MONITOR_SOUND_ENABLED")
	setBool(&cfg.Monitor.Settings.DesktopEnabled, "HLWATCH_MONITOR_DESKTOP_ENABLED")

	// ── Supabase ──
	setStr(&cfg.Supabase.DSN, "HLWATCH_SUPABASE_DSN")
	setStr(&cfg.Supabase.DSN, "HLWATCH_SUPABASE_URL") // compatibility alias
	setStr(&cfg.Supabase.Host, "HLWATCH_SUPABASE_HOST")
	setInt(&cfg.Supabase.Port, "HLWATCH_SUPABASE_PORT")
	setStr(&cfg.Supabase.Database, "HLWATCH_SUPABASE_DATABASE")
	setStr(&cfg.Supabase.User, "HLWATCH_SUPABASE_USER")
	setStr(&cfg.Supabase.Password, "HLWATCH_SUPABASE_PASSWORD")
	setStr(&cfg.Supabase.SSLMode, "HLWATCH_SUPABASE_SSL_MODE")
	setInt(&cfg.Supabase.PoolMaxConns, "HLWATCH_SUPABASE_POOL_MAX_CONNS")
	setInt(&cfg.Supabase.PoolMinConns, "HLWATCH_SUPABASE_POOL_MIN_CONNS")
	setBool(&cfg.Supabase.RunMigrations, "HLWATCH_SUPABASE_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "HLWATCH_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "HLWATCH_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "HLWATCH_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "HLWATCH_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "HLWATCH_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "HLWATCH_REDIS_TLS_ENABLED")
	setDuration(&cfg.Redis.PriceTTL, "HLWATCH_REDIS_PRICE_TTL")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "HLWATCH_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "HLWATCH_S3_REGION")
	setStr(&cfg.S3.Bucket, "HLWATCH_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "HLWATCH_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "HLWATCH_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "HLWATCH_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "HLWATCH_S3_FORCE_PATH_STYLE")

	// ── Retention ──
	setBool(&cfg.Retention.Enabled, "HLWATCH_RETENTION_ENABLED")
	setDuration(&cfg.Retention.MaxAge, "HLWATCH_RETENTION_MAX_AGE")
	setDuration(&cfg.Retention.Interval, "HLWATCH_RETENTION_INTERVAL")
	setBool(&cfg.Retention.Archive, "HLWATCH_RETENTION_ARCHIVE")

	// ── Server ──
	setInt(&cfg.Server.Port, "HLWATCH_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "HLWATCH_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "HLWATCH_SERVER_API_KEY")
	setInt(&cfg.Server.RateLimit, "HLWATCH_SERVER_RATE_LIMIT")
	setDuration(&cfg.Server.RateWindow, "HLWATCH_SERVER_RATE_WINDOW")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "HLWATCH_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "HLWATCH_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "HLWATCH_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "HLWATCH_NOTIFY_EVENTS")
	setStr(&cfg.Notify.MinPriority, "HLWATCH_NOTIFY_MIN_PRIORITY")

	// ── Top-level ──
	setStr(&cfg.Mode, "HLWATCH_MODE")
	setStr(&cfg.LogLevel, "HLWATCH_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
