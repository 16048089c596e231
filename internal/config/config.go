// Package config defines the top-level configuration for hlwatch and
// provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/alanyoungcy/hlwatch/internal/domain"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by HLWATCH_* environment variables.
type Config struct {
	Hyperliquid HyperliquidConfig `toml:"hyperliquid"`
	Monitor     MonitorConfig     `toml:"monitor"`
	Supabase    SupabaseConfig    `toml:"supabase"`
	Redis       RedisConfig       `toml:"redis"`
	S3          S3Config          `toml:"s3"`
	Retention   RetentionConfig   `toml:"retention"`
	Server      ServerConfig      `toml:"server"`
	Notify      NotifyConfig      `toml:"notify"`
	Mode        string            `toml:"mode"`
	LogLevel    string            `toml:"log_level"`
}

// HyperliquidConfig holds the exchange info API endpoint.
type HyperliquidConfig struct {
	InfoURL string   `toml:"info_url"`
	Timeout duration `toml:"timeout"`
}

// MonitorConfig describes which users are monitored at startup and the
// notification settings the engine starts with.
type MonitorConfig struct {
	PollInterval duration            `toml:"poll_interval"`
	Users        []string            `toml:"users"`
	PriceAlerts  []domain.PriceAlert `toml:"price_alerts"`
	Settings     SettingsConfig      `toml:"settings"`
	// RelayBuffer is the queue size between the engine and the Redis/Postgres
	// relay.
	RelayBuffer int `toml:"relay_buffer"`
}

// SettingsConfig mirrors domain.NotificationSettings in TOML form.
type SettingsConfig struct {
	EnableOrderNotifications    bool    `toml:"enable_order_notifications"`
	EnablePositionNotifications bool    `toml:"enable_position_notifications"`
	EnablePnLNotifications      bool    `toml:"enable_pnl_notifications"`
	EnablePriceAlerts           bool    `toml:"enable_price_alerts"`
	EnableSystemNotifications   bool    `toml:"enable_system_notifications"`
	PnLThreshold                float64 `toml:"pnl_threshold"`
	MarginThreshold             float64 `toml:"margin_threshold"`
	SoundEnabled                bool    `toml:"sound_enabled"`
	DesktopEnabled              bool    `toml:"desktop_enabled"`
	EmailEnabled                bool    `toml:"email_enabled"`
}

// Domain converts the TOML settings block.
func (s SettingsConfig) Domain() domain.NotificationSettings {
	return domain.NotificationSettings{
		EnableOrderNotifications:    s.EnableOrderNotifications,
		EnablePositionNotifications: s.EnablePositionNotifications,
		EnablePnLNotifications:      s.EnablePnLNotifications,
		EnablePriceAlerts:           s.EnablePriceAlerts,
		EnableSystemNotifications:   s.EnableSystemNotifications,
		PnLThreshold:                s.PnLThreshold,
		MarginThreshold:             s.MarginThreshold,
		SoundEnabled:                s.SoundEnabled,
		DesktopEnabled:              s.DesktopEnabled,
		EmailEnabled:                s.EmailEnabled,
	}
}

func settingsConfigFrom(s domain.NotificationSettings) SettingsConfig {
	return SettingsConfig{
		EnableOrderNotifications:    s.EnableOrderNotifications,
		EnablePositionNotifications: s.EnablePositionNotifications,
		EnablePnLNotifications:      s.EnablePnLNotifications,
		EnablePriceAlerts:           s.EnablePriceAlerts,
		EnableSystemNotifications:   s.EnableSystemNotifications,
		PnLThreshold:                s.PnLThreshold,
		MarginThreshold:             s.MarginThreshold,
		SoundEnabled:                s.SoundEnabled,
		DesktopEnabled:              s.DesktopEnabled,
		EmailEnabled:                s.EmailEnabled,
	}
}

// SupabaseConfig holds PostgreSQL connection parameters.
type SupabaseConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr       string   `toml:"addr"`
	Password   string   `toml:"password"`
	DB         int      `toml:"db"`
	PoolSize   int      `toml:"pool_size"`
	MaxRetries int      `toml:"max_retries"`
	TLSEnabled bool     `toml:"tls_enabled"`
	PriceTTL   duration `toml:"price_ttl"`
}

// S3Config holds S3-compatible object storage parameters.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// RetentionConfig controls eviction of old notifications.
type RetentionConfig struct {
	Enabled  bool     `toml:"enabled"`
	MaxAge   duration `toml:"max_age"`
	Interval duration `toml:"interval"`
	// Archive exports evicted notifications to S3 before deleting them.
	Archive bool `toml:"archive"`
}

// duration wraps time.Duration so it can be decoded from a TOML string.
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	APIKey      string   `toml:"api_key"`
	// RateLimit is the number of requests per client per RateWindow; 0
	// disables limiting.
	RateLimit  int      `toml:"rate_limit"`
	RateWindow duration `toml:"rate_window"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
	MinPriority       string   `toml:"min_priority"`
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Hyperliquid: HyperliquidConfig{
			InfoURL: "https://api.hyperliquid.xyz",
			Timeout: duration{10 * time.Second},
		},
		Monitor: MonitorConfig{
			PollInterval: duration{30 * time.Second},
			Settings:     settingsConfigFrom(domain.DefaultSettings()),
			RelayBuffer:  256,
		},
		Supabase: SupabaseConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "postgres",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			PoolSize:   20,
			MaxRetries: 3,
			PriceTTL:   duration{5 * time.Minute},
		},
		S3: S3Config{
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "hlwatch-archive",
			ForcePathStyle: true,
		},
		Retention: RetentionConfig{
			Enabled:  true,
			MaxAge:   duration{7 * 24 * time.Hour},
			Interval: duration{time.Hour},
			Archive:  true,
		},
		Server: ServerConfig{
			Port:        8000,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
			RateLimit:   120,
			RateWindow:  duration{time.Minute},
		},
		Notify: NotifyConfig{
			Events:      []string{"order_filled", "price_alert", "pnl_update", "rate_limit_warning"},
			MinPriority: "high",
		},
		Mode:     "server",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"monitor": true,
	"server":  true,
	"full":    true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	// Mode
	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: monitor, server, full)", c.Mode))
	}

	// LogLevel
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Hyperliquid
	if c.Hyperliquid.InfoURL == "" {
		errs = append(errs, "hyperliquid: info_url must not be empty")
	}
	if c.Hyperliquid.Timeout.Duration <= 0 {
		errs = append(errs, "hyperliquid: timeout must be > 0")
	}

	// Monitor
	if c.Monitor.PollInterval.Duration <= 0 {
		errs = append(errs, "monitor: poll_interval must be > 0")
	}
	if c.Monitor.RelayBuffer < 1 {
		errs = append(errs, "monitor: relay_buffer must be >= 1")
	}
	if err := c.Monitor.Settings.Domain().Validate(); err != nil {
		errs = append(errs, "monitor.settings: "+err.Error())
	}
	for _, a := range c.Monitor.PriceAlerts {
		if err := a.Validate(); err != nil {
			errs = append(errs, "monitor.price_alerts: "+err.Error())
		}
	}

	full := strings.ToLower(c.Mode) == "full"

	// Supabase is only dialled in full mode.
	if full && strings.TrimSpace(c.Supabase.DSN) == "" {
		if c.Supabase.Host == "" {
			errs = append(errs, "supabase: host must not be empty (or set supabase.dsn)")
		}
		if c.Supabase.Port <= 0 || c.Supabase.Port > 65535 {
			errs = append(errs, fmt.Sprintf("supabase: port must be 1-65535, got %d", c.Supabase.Port))
		}
		if c.Supabase.Database == "" {
			errs = append(errs, "supabase: database must not be empty")
		}
	}
	if c.Supabase.PoolMaxConns < 1 {
		errs = append(errs, "supabase: pool_max_conns must be >= 1")
	}
	if c.Supabase.PoolMinConns < 0 {
		errs = append(errs, "supabase: pool_min_conns must be >= 0")
	}
	if c.Supabase.PoolMinConns > c.Supabase.PoolMaxConns {
		errs = append(errs, "supabase: pool_min_conns must not exceed pool_max_conns")
	}

	// Redis
	if c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must not be empty")
	}
	if c.Redis.PoolSize < 1 {
		errs = append(errs, "redis: pool_size must be >= 1")
	}

	// S3
	if full && c.Retention.Archive {
		if c.S3.Endpoint == "" {
			errs = append(errs, "s3: endpoint must not be empty")
		}
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty")
		}
	}

	// Retention
	if c.Retention.Enabled {
		if c.Retention.MaxAge.Duration <= 0 {
			errs = append(errs, "retention: max_age must be > 0 when enabled")
		}
		if c.Retention.Interval.Duration <= 0 {
			errs = append(errs, "retention: interval must be > 0 when enabled")
		}
	}

	// Server
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Server.RateLimit < 0 {
		errs = append(errs, "server: rate_limit must be >= 0")
	}
	if c.Server.RateLimit > 0 && c.Server.RateWindow.Duration <= 0 {
		errs = append(errs, "server: rate_window must be > 0 when rate_limit is set")
	}

	// Notify
	if c.Notify.MinPriority != "" && !domain.Priority(c.Notify.MinPriority).Valid() {
		errs = append(errs, fmt.Sprintf("notify: unknown min_priority %q", c.Notify.MinPriority))
	}
	for _, ev := range c.Notify.Events {
		if !domain.NotificationType(ev).Valid() {
			errs = append(errs, fmt.Sprintf("notify: unknown event %q", ev))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
