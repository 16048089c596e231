package app

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/hlwatch/internal/config"
	"github.com/alanyoungcy/hlwatch/internal/domain"
	"github.com/alanyoungcy/hlwatch/internal/metrics"
	"github.com/alanyoungcy/hlwatch/internal/notification"
	"github.com/alanyoungcy/hlwatch/internal/server"
	"github.com/alanyoungcy/hlwatch/internal/server/handler"
	"github.com/alanyoungcy/hlwatch/internal/server/ws"
	"github.com/alanyoungcy/hlwatch/internal/service"
)

// core is the engine plus the relay every mode runs.
type core struct {
	engine *notification.Service
	relay  *service.Relay
}

// MonitorMode runs the polling engine and the relay. No HTTP server is
// started; events reach consumers through Redis.
func (a *App) MonitorMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting monitor mode")

	g, ctx := errgroup.WithContext(ctx)
	c := a.startCore(ctx, g, deps)
	a.startConfiguredUsers(ctx, c.engine)
	return g.Wait()
}

// ServerMode runs monitor mode plus the HTTP API and WebSocket bridge.
func (a *App) ServerMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting server mode")

	g, ctx := errgroup.WithContext(ctx)
	c := a.startCore(ctx, g, deps)
	a.startHTTPServer(ctx, g, deps, c.engine)
	a.startConfiguredUsers(ctx, c.engine)
	return g.Wait()
}

// FullMode runs server mode with the Postgres archive, persisted settings and
// S3 export wired in by Wire.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode",
		slog.Bool("archive", deps.Archive != nil),
		slog.Bool("s3_export", deps.Archiver != nil),
	)
	return a.ServerMode(ctx, deps)
}

// startCore builds the engine and relay and adds their goroutines to g. The
// engine is shut down when ctx ends.
func (a *App) startCore(ctx context.Context, g *errgroup.Group, deps *Dependencies) core {
	metrics.Init()

	fetcher := service.NewCachingFetcher(deps.Hyperliquid, deps.PriceCache, a.logger)
	engine := notification.NewService(fetcher, a.logger,
		notification.WithSettings(a.initialSettings(ctx, deps)),
	)
	if err := metrics.RegisterSessions(func() int { return len(engine.MonitoredUsers()) }); err != nil {
		a.logger.WarnContext(ctx, "session gauge not registered", slog.String("error", err.Error()))
	}

	relayDeps := service.RelayDeps{
		Signals:  deps.SignalBus,
		Streams:  deps.SignalBus,
		Archive:  deps.Archive,
		Settings: deps.Settings,
	}
	if deps.Notifier.Enabled() {
		relayDeps.Forwarder = deps.Notifier
	}
	relay := service.NewRelay(engine.Events(), relayDeps, a.cfg.Monitor.RelayBuffer, a.logger)

	g.Go(func() error {
		return relay.Run(ctx)
	})
	g.Go(func() error {
		<-ctx.Done()
		engine.Shutdown()
		relay.Close()
		return nil
	})

	if a.cfg.Retention.Enabled {
		var exporter service.Exporter
		if deps.Archiver != nil {
			exporter = deps.Archiver
		}
		retention := service.NewRetention(engine, deps.Archive, exporter, deps.LockManager,
			service.RetentionConfig{
				MaxAge:   a.cfg.Retention.MaxAge.Duration,
				Interval: a.cfg.Retention.Interval.Duration,
				Export:   a.cfg.Retention.Archive,
			}, a.logger)
		g.Go(func() error {
			return retention.Run(ctx)
		})
	}

	return core{engine: engine, relay: relay}
}

// initialSettings returns the persisted settings when a settings store is
// wired and holds a record, and the configured defaults otherwise.
func (a *App) initialSettings(ctx context.Context, deps *Dependencies) domain.NotificationSettings {
	fallback := a.cfg.Monitor.Settings.Domain()
	if deps.Settings == nil {
		return fallback
	}
	s, err := deps.Settings.Load(ctx)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return fallback
	case err != nil:
		a.logger.WarnContext(ctx, "load persisted settings failed, using config",
			slog.String("error", err.Error()),
		)
		return fallback
	default:
		a.logger.InfoContext(ctx, "loaded persisted notification settings")
		return s
	}
}

// startConfiguredUsers begins monitoring every user listed in the config.
// A bad entry is logged and skipped.
func (a *App) startConfiguredUsers(ctx context.Context, engine *notification.Service) {
	for _, user := range a.cfg.Monitor.Users {
		norm, err := engine.StartMonitoring(monitorConfigFor(a.cfg.Monitor, user))
		if err != nil {
			a.logger.WarnContext(ctx, "start monitoring failed",
				slog.String("user", user),
				slog.String("error", err.Error()),
			)
			continue
		}
		a.logger.InfoContext(ctx, "monitoring user", slog.String("user", norm))
	}
}

func monitorConfigFor(cfg config.MonitorConfig, user string) domain.MonitorConfig {
	alerts := make([]domain.PriceAlert, len(cfg.PriceAlerts))
	copy(alerts, cfg.PriceAlerts)
	return domain.MonitorConfig{
		UserAddress:     user,
		PollingInterval: cfg.PollInterval.Duration,
		PriceAlerts:     alerts,
	}
}

// startHTTPServer adds the HTTP server and WebSocket hub to g. The server is
// shut down gracefully when ctx is cancelled.
func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, deps *Dependencies, engine *notification.Service) {
	hub := ws.NewHub(deps.SignalBus, a.logger, ws.Config{
		Channels:  service.RelayChannels,
		Mode:      a.cfg.Mode,
		StartedAt: time.Now().UTC(),
	})

	srv := server.NewServer(
		server.Config{
			Port:        a.cfg.Server.Port,
			CORSOrigins: a.cfg.Server.CORSOrigins,
			APIKey:      a.cfg.Server.APIKey,
			RateLimit:   a.cfg.Server.RateLimit,
			RateWindow:  a.cfg.Server.RateWindow.Duration,
		},
		server.Handlers{
			Health:        handler.NewHealthHandler(deps.HealthChecks, a.logger),
			Notifications: handler.NewNotificationHandler(engine, deps.Archive, deps.SignalBus, service.StreamNotifications, a.logger),
			Settings:      handler.NewSettingsHandler(engine, a.logger),
			Monitor:       handler.NewMonitorHandler(engine, a.cfg.Monitor.PollInterval.Duration, a.logger),
			Prices:        handler.NewPriceHandler(deps.PriceCache, a.logger),
		},
		hub,
		deps.RateLimiter,
		a.logger,
	)

	g.Go(func() error {
		return hub.Run(ctx)
	})
	g.Go(srv.Start)
	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})
}
