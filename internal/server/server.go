package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/alanyoungcy/hlwatch/internal/domain"
	"github.com/alanyoungcy/hlwatch/internal/server/handler"
	"github.com/alanyoungcy/hlwatch/internal/server/middleware"
	"github.com/alanyoungcy/hlwatch/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	APIKey      string // if empty, authentication is disabled

	// RateLimit requests per RateWindow per client IP. Zero disables it.
	RateLimit  int
	RateWindow time.Duration
}

// Handlers aggregates all HTTP handlers that the server needs to register.
// Prices may be nil when no price cache is configured.
type Handlers struct {
	Health        *handler.HealthHandler
	Notifications *handler.NotificationHandler
	Settings      *handler.SettingsHandler
	Monitor       *handler.MonitorHandler
	Prices        *handler.PriceHandler
}

// Server is the HTTP + WebSocket API for the notification engine.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	logger     *slog.Logger
}

// NewServer creates a Server with all routes registered on the ServeMux and
// the middleware chain applied. limiter and wsHub may be nil.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, limiter domain.RateLimiter, logger *slog.Logger) *Server {
	logger = logger.With(slog.String("component", "server"))
	mux := http.NewServeMux()
	registerRoutes(mux, handlers, wsHub)

	var h http.Handler = mux
	if limiter != nil && cfg.RateLimit > 0 {
		h = middleware.RateLimit(limiter, cfg.RateLimit, cfg.RateWindow, logger)(h)
	}
	h = middleware.Auth(cfg.APIKey, "/api/health", "/metrics")(h)
	h = middleware.Metrics(h)
	h = middleware.Logging(logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		mux:        mux,
		logger:     logger,
	}
}

func registerRoutes(mux *http.ServeMux, handlers Handlers, wsHub *ws.Hub) {
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)
	mux.Handle("GET /metrics", promhttp.Handler())

	n := handlers.Notifications
	mux.HandleFunc("GET /api/notifications", n.List)
	mux.HandleFunc("DELETE /api/notifications", n.Clear)
	mux.HandleFunc("GET /api/notifications/stats", n.Stats)
	mux.HandleFunc("GET /api/notifications/history", n.History)
	mux.HandleFunc("GET /api/notifications/replay", n.Replay)
	mux.HandleFunc("POST /api/notifications/read-all", n.MarkAllRead)
	mux.HandleFunc("POST /api/notifications/{id}/read", n.MarkRead)

	mux.HandleFunc("GET /api/settings", handlers.Settings.Get)
	mux.HandleFunc("PATCH /api/settings", handlers.Settings.Update)

	m := handlers.Monitor
	mux.HandleFunc("GET /api/monitor", m.List)
	mux.HandleFunc("POST /api/monitor", m.Start)
	mux.HandleFunc("DELETE /api/monitor/{user}", m.Stop)
	mux.HandleFunc("GET /api/monitor/{user}/alerts", m.Alerts)

	if handlers.Prices != nil {
		mux.HandleFunc("GET /api/prices/{coin}", handlers.Prices.Get)
	}
	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}
}

// Handler returns the root handler with middleware applied.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server starting", slog.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
