package handler

import (
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/hlwatch/internal/domain"
)

// SettingsService reads and patches notification settings.
type SettingsService interface {
	Settings() domain.NotificationSettings
	UpdateSettings(patch domain.SettingsPatch) (domain.NotificationSettings, error)
}

// SettingsHandler serves the settings endpoints.
type SettingsHandler struct {
	svc    SettingsService
	logger *slog.Logger
}

// NewSettingsHandler creates a SettingsHandler.
func NewSettingsHandler(svc SettingsService, logger *slog.Logger) *SettingsHandler {
	return &SettingsHandler{svc: svc, logger: logger}
}

// Get returns the current settings.
// GET /api/settings
func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Settings())
}

// Update merges a partial settings document into the current settings.
// PATCH /api/settings
func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var patch domain.SettingsPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	next, err := h.svc.UpdateSettings(patch)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	h.logger.InfoContext(r.Context(), "handler: settings updated")
	writeJSON(w, http.StatusOK, next)
}
