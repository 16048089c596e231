package domain

import "time"

// MonitorConfig describes one monitoring session for a user. Settings, when
// set, is merged over the current settings; absent fields are kept.
type MonitorConfig struct {
	UserAddress     string         `json:"userAddress"`
	PollingInterval time.Duration  `json:"pollingInterval"`
	Settings        *SettingsPatch `json:"notificationSettings,omitempty"`
	PriceAlerts     []PriceAlert   `json:"priceAlerts,omitempty"`
}
