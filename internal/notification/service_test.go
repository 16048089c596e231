package notification

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/hlwatch/internal/domain"
)

func TestStartMonitoringValidation(t *testing.T) {
	svc := newTestService(newFakeFetcher())
	defer svc.Shutdown()

	_, err := svc.StartMonitoring(domain.MonitorConfig{UserAddress: "alice", PollingInterval: time.Second})
	assert.ErrorIs(t, err, domain.ErrInvalidAddress)

	_, err = svc.StartMonitoring(domain.MonitorConfig{UserAddress: testUser})
	assert.ErrorIs(t, err, domain.ErrInvalidInterval)

	_, err = svc.StartMonitoring(domain.MonitorConfig{
		UserAddress:     testUser,
		PollingInterval: time.Second,
		PriceAlerts:     []domain.PriceAlert{{Coin: "BTC", TargetPrice: 1, Condition: "sideways"}},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidAlert)
	assert.Empty(t, svc.MonitoredUsers())
}

func TestStartMonitoringIsIdempotent(t *testing.T) {
	svc := newTestService(newFakeFetcher())
	defer svc.Shutdown()

	cfg := domain.MonitorConfig{
		UserAddress:     "0x1234567890ABCDEF1234567890ABCDEF12345678",
		PollingInterval: time.Hour,
	}
	user, err := svc.StartMonitoring(cfg)
	require.NoError(t, err)
	assert.Equal(t, testUser, user)

	_, err = svc.StartMonitoring(cfg)
	require.NoError(t, err)

	assert.Equal(t, []string{testUser}, svc.MonitoredUsers())
	assert.Equal(t, Feeds, svc.ActiveFeeds(testUser))
	assert.Equal(t, len(Feeds), svc.monitor.Tasks())

	assert.True(t, svc.StopMonitoring(testUser))
	assert.Zero(t, svc.monitor.Tasks())
	assert.Empty(t, svc.ActiveFeeds(testUser))
	assert.False(t, svc.StopMonitoring(testUser))
}

func TestMonitoringPollsOnInterval(t *testing.T) {
	f := newFakeFetcher()
	f.setFills(fillAt(1))
	svc := newTestService(f)
	defer svc.Shutdown()

	_, err := svc.StartMonitoring(domain.MonitorConfig{UserAddress: testUser, PollingInterval: 5 * time.Millisecond})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		_, ok := svc.snapshots.FillWatermark(testUser)
		return ok
	}, time.Second, 5*time.Millisecond)

	f.setFills(fillAt(1), fillAt(2))
	require.Eventually(t, func() bool {
		return len(svc.Notifications(false)) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestStopKeepsSnapshotsAndNotifications(t *testing.T) {
	f := newFakeFetcher()
	svc := newTestService(f)
	svc.snapshots.AdvanceFillWatermark(testUser, time.UnixMilli(10))
	svc.store.Add(domain.Notification{User: testUser})

	_, err := svc.StartMonitoring(domain.MonitorConfig{UserAddress: testUser, PollingInterval: time.Hour})
	require.NoError(t, err)
	svc.StopMonitoring(testUser)

	_, ok := svc.snapshots.FillWatermark(testUser)
	assert.True(t, ok)
	assert.Len(t, svc.Notifications(false), 1)
}

func TestStartMonitoringMergesSettings(t *testing.T) {
	svc := newTestService(newFakeFetcher())
	defer svc.Shutdown()

	threshold, sound := 12.0, false
	patch := domain.SettingsPatch{PnLThreshold: &threshold, SoundEnabled: &sound}

	var updates []domain.NotificationSettings
	svc.Events().SettingsUpdated.Subscribe(func(s domain.NotificationSettings) { updates = append(updates, s) })

	_, err := svc.StartMonitoring(domain.MonitorConfig{UserAddress: testUser, PollingInterval: time.Hour, Settings: &patch})
	require.NoError(t, err)

	want := domain.DefaultSettings()
	want.PnLThreshold = 12
	want.SoundEnabled = false
	assert.Equal(t, want, svc.Settings())
	require.Len(t, updates, 1)
}

func TestRejectedStartLeavesSettingsUntouched(t *testing.T) {
	svc := newTestService(newFakeFetcher())
	defer svc.Shutdown()

	var updates int
	svc.Events().SettingsUpdated.Subscribe(func(domain.NotificationSettings) { updates++ })

	threshold := 50.0
	patch := domain.SettingsPatch{PnLThreshold: &threshold}

	tests := []struct {
		name string
		cfg  domain.MonitorConfig
		want error
	}{
		{"bad address", domain.MonitorConfig{UserAddress: "alice", PollingInterval: time.Second, Settings: &patch}, domain.ErrInvalidAddress},
		{"bad interval", domain.MonitorConfig{UserAddress: testUser, Settings: &patch}, domain.ErrInvalidInterval},
		{"bad alert", domain.MonitorConfig{
			UserAddress:     testUser,
			PollingInterval: time.Second,
			Settings:        &patch,
			PriceAlerts:     []domain.PriceAlert{{Coin: "BTC", TargetPrice: 1, Condition: "sideways"}},
		}, domain.ErrInvalidAlert},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.StartMonitoring(tt.cfg)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	negative := -1.0
	_, err := svc.StartMonitoring(domain.MonitorConfig{
		UserAddress:     testUser,
		PollingInterval: time.Second,
		Settings:        &domain.SettingsPatch{PnLThreshold: &negative},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidSettings)

	assert.Equal(t, domain.DefaultSettings(), svc.Settings())
	assert.Zero(t, updates)
	assert.Empty(t, svc.MonitoredUsers())
}

func TestSessionAlertsAreCopied(t *testing.T) {
	svc := newTestService(newFakeFetcher())
	defer svc.Shutdown()

	alerts := []domain.PriceAlert{{ID: "a", Coin: "BTC", TargetPrice: 1, Condition: domain.AlertAbove, Enabled: true}}
	_, err := svc.StartMonitoring(domain.MonitorConfig{UserAddress: testUser, PollingInterval: time.Hour, PriceAlerts: alerts})
	require.NoError(t, err)

	alerts[0].Coin = "ETH"
	got, ok := svc.PriceAlerts(testUser)
	require.True(t, ok)
	assert.Equal(t, "BTC", got[0].Coin)
}

func TestEmitOrder(t *testing.T) {
	svc := newTestService(newFakeFetcher())
	var events []Channel
	bus := svc.Events()
	bus.Notification.Subscribe(func(domain.Notification) { events = append(events, ChannelNotification) })
	bus.PlaySound.Subscribe(func(domain.Priority) { events = append(events, ChannelPlaySound) })
	bus.Desktop.Subscribe(func(domain.Notification) { events = append(events, ChannelDesktop) })

	_, ok := svc.emit(context.Background(), domain.Notification{Type: domain.NotificationPriceAlert})
	require.True(t, ok)
	assert.Equal(t, []Channel{ChannelNotification, ChannelPlaySound, ChannelDesktop}, events)

	off := false
	_, err := svc.UpdateSettings(domain.SettingsPatch{SoundEnabled: &off, DesktopEnabled: &off})
	require.NoError(t, err)
	events = nil
	svc.emit(context.Background(), domain.Notification{})
	assert.Equal(t, []Channel{ChannelNotification}, events)
}

func TestStoreMutationEvents(t *testing.T) {
	clk := &manualClock{t: time.UnixMilli(0)}
	svc := newTestService(newFakeFetcher(), WithClock(clk.now))
	bus := svc.Events()

	var read []string
	var allRead []int
	var cleared []Cleared
	bus.Read.Subscribe(func(id string) { read = append(read, id) })
	bus.AllRead.Subscribe(func(n int) { allRead = append(allRead, n) })
	bus.Cleared.Subscribe(func(c Cleared) { cleared = append(cleared, c) })

	n, _ := svc.emit(context.Background(), domain.Notification{})
	svc.emit(context.Background(), domain.Notification{})

	assert.False(t, svc.MarkAsRead("missing"))
	assert.True(t, svc.MarkAsRead(n.ID))
	assert.False(t, svc.MarkAsRead(n.ID))
	assert.Equal(t, []string{n.ID}, read)

	assert.Equal(t, 1, svc.MarkAllAsRead())
	assert.Equal(t, []int{1}, allRead)

	clk.advance(2 * time.Hour)
	hour := time.Hour
	assert.Equal(t, 2, svc.ClearNotifications(&hour))
	assert.Equal(t, []Cleared{{Removed: 2}}, cleared)

	st := svc.Statistics()
	assert.Zero(t, st.Total)
}

func TestUpdateSettingsRejectsInvalid(t *testing.T) {
	svc := newTestService(newFakeFetcher())
	neg := -1.0
	_, err := svc.UpdateSettings(domain.SettingsPatch{PnLThreshold: &neg})
	assert.ErrorIs(t, err, domain.ErrInvalidSettings)
	assert.Equal(t, domain.DefaultSettings(), svc.Settings())
}
