package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	s3blob "github.com/alanyoungcy/hlwatch/internal/blob/s3"
	"github.com/alanyoungcy/hlwatch/internal/cache/redis"
	"github.com/alanyoungcy/hlwatch/internal/config"
	"github.com/alanyoungcy/hlwatch/internal/domain"
	"github.com/alanyoungcy/hlwatch/internal/notification"
	"github.com/alanyoungcy/hlwatch/internal/notify"
	"github.com/alanyoungcy/hlwatch/internal/platform/hyperliquid"
	"github.com/alanyoungcy/hlwatch/internal/server/handler"
	"github.com/alanyoungcy/hlwatch/internal/store/postgres"
)

// Dependencies bundles every infrastructure dependency the modes use. It is
// constructed by Wire and torn down by the returned cleanup function.
type Dependencies struct {
	// Exchange
	Hyperliquid *hyperliquid.Client

	// Stores (full mode only)
	Archive  domain.NotificationArchive
	Settings domain.SettingsStore

	// Caches
	PriceCache  domain.PriceCache
	RateLimiter domain.RateLimiter
	LockManager domain.LockManager
	SignalBus   *redis.SignalBus

	// Blob storage (full mode with retention archiving only)
	Archiver *s3blob.Archiver

	// Notifications
	Notifier *notify.Notifier

	// HealthChecks probe every dialled backend.
	HealthChecks map[string]handler.HealthCheck
}

// needsPostgres returns true for modes that persist notifications.
func needsPostgres(mode string) bool {
	return mode == "full"
}

// needsS3 returns true when evicted notifications are exported.
func needsS3(cfg *config.Config) bool {
	return cfg.Mode == "full" && cfg.Retention.Enabled && cfg.Retention.Archive
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	mode := strings.ToLower(cfg.Mode)
	deps := &Dependencies{
		Hyperliquid:  hyperliquid.NewClient(cfg.Hyperliquid.InfoURL, cfg.Hyperliquid.Timeout.Duration),
		HealthChecks: make(map[string]handler.HealthCheck),
	}

	// --- PostgreSQL ---
	if needsPostgres(mode) {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Supabase.DSN,
			Host:     cfg.Supabase.Host,
			Port:     cfg.Supabase.Port,
			Database: cfg.Supabase.Database,
			User:     cfg.Supabase.User,
			Password: cfg.Supabase.Password,
			SSLMode:  cfg.Supabase.SSLMode,
			MaxConns: cfg.Supabase.PoolMaxConns,
			MinConns: cfg.Supabase.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Supabase.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}

		pool := pgClient.Pool()
		deps.Archive = postgres.NewNotificationStore(pool)
		deps.Settings = postgres.NewSettingsStore(pool)
		deps.HealthChecks["postgres"] = pgClient.Ping
	}

	// --- Redis ---
	redisClient, err := redis.New(ctx, redis.ClientConfig{
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		PoolSize:   cfg.Redis.PoolSize,
		MaxRetries: cfg.Redis.MaxRetries,
		TLSEnabled: cfg.Redis.TLSEnabled,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: redis: %w", err)
	}
	closers = append(closers, func() { _ = redisClient.Close() })

	deps.PriceCache = redis.NewPriceCache(redisClient, cfg.Redis.PriceTTL.Duration)
	deps.RateLimiter = redis.NewRateLimiter(redisClient)
	deps.LockManager = redis.NewLockManager(redisClient)
	deps.SignalBus = redis.NewSignalBus(redisClient)
	deps.HealthChecks["redis"] = redisClient.Ping

	// --- S3 blob storage ---
	if needsS3(cfg) {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		deps.Archiver = s3blob.NewArchiver(s3blob.NewWriter(s3Client))
		deps.HealthChecks["s3"] = s3Client.Health
	}

	// --- Notifications ---
	deps.Notifier = newNotifier(cfg.Notify, logger)

	return deps, cleanup, nil
}

func newNotifier(cfg config.NotifyConfig, logger *slog.Logger) *notify.Notifier {
	var senders []notify.Sender
	if cfg.TelegramToken != "" && cfg.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender("", cfg.TelegramToken, cfg.TelegramChatID))
	}
	if cfg.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.DiscordWebhookURL))
	}
	return notify.NewNotifier(senders, cfg.Events, cfg.MinPriority, logger)
}

// Compile-time interface check.
var _ notification.Fetcher = (*hyperliquid.Client)(nil)
