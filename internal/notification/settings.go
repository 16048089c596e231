package notification

import (
	"sync"

	"github.com/alanyoungcy/hlwatch/internal/domain"
)

// SettingsRegistry holds the current notification settings. Pollers read it
// on every cycle, so updates take effect on the next poll.
type SettingsRegistry struct {
	mu       sync.RWMutex
	settings domain.NotificationSettings
}

// NewSettingsRegistry creates a registry seeded with initial.
func NewSettingsRegistry(initial domain.NotificationSettings) *SettingsRegistry {
	return &SettingsRegistry{settings: initial}
}

// Get returns a copy of the current settings.
func (r *SettingsRegistry) Get() domain.NotificationSettings {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.settings
}

// Update merges patch into the current settings. An invalid result is
// rejected and leaves the registry unchanged.
func (r *SettingsRegistry) Update(patch domain.SettingsPatch) (domain.NotificationSettings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	next := patch.Apply(r.settings)
	if err := next.Validate(); err != nil {
		return r.settings, err
	}
	r.settings = next
	return next, nil
}
