package domain

import "fmt"

// NotificationSettings holds the user-configurable toggles and thresholds
// consulted by every poller before it emits.
type NotificationSettings struct {
	EnableOrderNotifications    bool    `json:"enableOrderNotifications"`
	EnablePositionNotifications bool    `json:"enablePositionNotifications"`
	EnablePnLNotifications      bool    `json:"enablePnlNotifications"`
	EnablePriceAlerts           bool    `json:"enablePriceAlerts"`
	EnableSystemNotifications   bool    `json:"enableSystemNotifications"`
	PnLThreshold                float64 `json:"pnlThreshold"`    // percent
	MarginThreshold             float64 `json:"marginThreshold"` // ratio
	SoundEnabled                bool    `json:"soundEnabled"`
	DesktopEnabled              bool    `json:"desktopEnabled"`
	EmailEnabled                bool    `json:"emailEnabled"` // no delivery path yet
}

// DefaultSettings returns the settings a fresh session starts with.
func DefaultSettings() NotificationSettings {
	return NotificationSettings{
		EnableOrderNotifications:    true,
		EnablePositionNotifications: true,
		EnablePnLNotifications:      true,
		EnablePriceAlerts:           true,
		EnableSystemNotifications:   true,
		PnLThreshold:                5,
		MarginThreshold:             0.8,
		SoundEnabled:                true,
		DesktopEnabled:              true,
		EmailEnabled:                false,
	}
}

// Validate rejects thresholds that cannot be compared against.
func (s NotificationSettings) Validate() error {
	if s.PnLThreshold < 0 {
		return fmt.Errorf("%w: pnlThreshold must be >= 0, got %v", ErrInvalidSettings, s.PnLThreshold)
	}
	if s.MarginThreshold < 0 {
		return fmt.Errorf("%w: marginThreshold must be >= 0, got %v", ErrInvalidSettings, s.MarginThreshold)
	}
	return nil
}

// SettingsPatch is a partial update; nil fields are left untouched.
type SettingsPatch struct {
	EnableOrderNotifications    *bool    `json:"enableOrderNotifications,omitempty"`
	EnablePositionNotifications *bool    `json:"enablePositionNotifications,omitempty"`
	EnablePnLNotifications      *bool    `json:"enablePnlNotifications,omitempty"`
	EnablePriceAlerts           *bool    `json:"enablePriceAlerts,omitempty"`
	EnableSystemNotifications   *bool    `json:"enableSystemNotifications,omitempty"`
	PnLThreshold                *float64 `json:"pnlThreshold,omitempty"`
	MarginThreshold             *float64 `json:"marginThreshold,omitempty"`
	SoundEnabled                *bool    `json:"soundEnabled,omitempty"`
	DesktopEnabled              *bool    `json:"desktopEnabled,omitempty"`
	EmailEnabled                *bool    `json:"emailEnabled,omitempty"`
}

// Apply merges the patch over s and returns the result.
func (p SettingsPatch) Apply(s NotificationSettings) NotificationSettings {
	setBool(&s.EnableOrderNotifications, p.EnableOrderNotifications)
	setBool(&s.EnablePositionNotifications, p.EnablePositionNotifications)
	setBool(&s.EnablePnLNotifications, p.EnablePnLNotifications)
	setBool(&s.EnablePriceAlerts, p.EnablePriceAlerts)
	setBool(&s.EnableSystemNotifications, p.EnableSystemNotifications)
	setFloat(&s.PnLThreshold, p.PnLThreshold)
	setFloat(&s.MarginThreshold, p.MarginThreshold)
	setBool(&s.SoundEnabled, p.SoundEnabled)
	setBool(&s.DesktopEnabled, p.DesktopEnabled)
	setBool(&s.EmailEnabled, p.EmailEnabled)
	return s
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

func setFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}
