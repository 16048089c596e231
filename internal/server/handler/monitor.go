package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/hlwatch/internal/domain"
	"github.com/alanyoungcy/hlwatch/internal/notification"
)

// MonitorService controls monitoring sessions.
type MonitorService interface {
	StartMonitoring(cfg domain.MonitorConfig) (string, error)
	StopMonitoring(user string) bool
	MonitoredUsers() []string
	ActiveFeeds(user string) []notification.Feed
	PriceAlerts(user string) ([]domain.PriceAlert, bool)
}

// MonitorHandler serves the monitoring lifecycle endpoints.
type MonitorHandler struct {
	svc             MonitorService
	defaultInterval time.Duration
	logger          *slog.Logger
}

// NewMonitorHandler creates a MonitorHandler. defaultInterval is used when a
// start request omits pollingIntervalMs.
func NewMonitorHandler(svc MonitorService, defaultInterval time.Duration, logger *slog.Logger) *MonitorHandler {
	return &MonitorHandler{svc: svc, defaultInterval: defaultInterval, logger: logger}
}

type sessionView struct {
	User  string              `json:"user"`
	Feeds []notification.Feed `json:"feeds"`
}

// List returns every monitored user with its running feeds.
// GET /api/monitor
func (h *MonitorHandler) List(w http.ResponseWriter, r *http.Request) {
	users := h.svc.MonitoredUsers()
	sessions := make([]sessionView, 0, len(users))
	for _, u := range users {
		feeds := h.svc.ActiveFeeds(u)
		if feeds == nil {
			feeds = []notification.Feed{}
		}
		sessions = append(sessions, sessionView{User: u, Feeds: feeds})
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": sessions})
}

// startMonitorRequest carries an optional partial settings patch; fields
// left out of notificationSettings keep their current values.
type startMonitorRequest struct {
	UserAddress          string                `json:"userAddress"`
	PollingIntervalMs    int64                 `json:"pollingIntervalMs"`
	NotificationSettings *domain.SettingsPatch `json:"notificationSettings"`
	PriceAlerts          []domain.PriceAlert   `json:"priceAlerts"`
}

// Start begins (or restarts) monitoring a user.
// POST /api/monitor
func (h *MonitorHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req startMonitorRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	interval := h.defaultInterval
	if req.PollingIntervalMs != 0 {
		interval = time.Duration(req.PollingIntervalMs) * time.Millisecond
	}

	user, err := h.svc.StartMonitoring(domain.MonitorConfig{
		UserAddress:     req.UserAddress,
		PollingInterval: interval,
		Settings:        req.NotificationSettings,
		PriceAlerts:     req.PriceAlerts,
	})
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	h.logger.InfoContext(r.Context(), "handler: monitoring started",
		slog.String("user", user),
		slog.Duration("interval", interval),
	)
	writeJSON(w, http.StatusCreated, map[string]any{
		"user":              user,
		"pollingIntervalMs": interval.Milliseconds(),
		"feeds":             h.svc.ActiveFeeds(user),
	})
}

// Stop ends monitoring for a user.
// DELETE /api/monitor/{user}
func (h *MonitorHandler) Stop(w http.ResponseWriter, r *http.Request) {
	user := r.PathValue("user")
	if !h.svc.StopMonitoring(user) {
		writeError(w, http.StatusNotFound, "user is not being monitored")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": user, "stopped": true})
}

// Alerts returns the session's price alerts, consumed ones included.
// GET /api/monitor/{user}/alerts
func (h *MonitorHandler) Alerts(w http.ResponseWriter, r *http.Request) {
	alerts, ok := h.svc.PriceAlerts(r.PathValue("user"))
	if !ok {
		writeError(w, http.StatusNotFound, "user is not being monitored")
		return
	}
	if alerts == nil {
		alerts = []domain.PriceAlert{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"alerts": alerts})
}
