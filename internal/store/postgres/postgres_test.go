package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/hlwatch/internal/domain"
)

func TestDSN(t *testing.T) {
	assert.Equal(t, "postgres://custom", DSN(ClientConfig{DSN: "postgres://custom"}))
	assert.Equal(t,
		"postgres://u:p@db:5432/hl?sslmode=disable",
		DSN(ClientConfig{User: "u", Password: "p", Host: "db", Database: "hl"}),
	)
	assert.Equal(t,
		"postgres://u:p@db:6543/hl?sslmode=require",
		DSN(ClientConfig{User: "u", Password: "p", Host: "db", Port: 6543, Database: "hl", SSLMode: "require"}),
	)
}

func TestMigrationFilesOrdered(t *testing.T) {
	names, err := migrationFiles()
	require.NoError(t, err)
	assert.Equal(t, []string{"001_notifications.sql", "002_notification_settings.sql"}, names)
}

func TestListQuery(t *testing.T) {
	since := time.Unix(100, 0)
	query, args := listQuery("0xabc", domain.ListOpts{Since: &since, Limit: 20, Offset: 40})

	assert.Contains(t, query, "user_addr = $1")
	assert.Contains(t, query, "created_at >= $2")
	assert.Contains(t, query, "LIMIT $3")
	assert.Contains(t, query, "OFFSET $4")
	assert.NotContains(t, query, "created_at <=")
	assert.Equal(t, []any{"0xabc", since, 20, 40}, args)

	query, args = listQuery("", domain.ListOpts{})
	assert.NotContains(t, query, "$1")
	assert.Empty(t, args)
}

func TestDecodeSettingsKeepsDefaultsForMissingFields(t *testing.T) {
	s, err := decodeSettings([]byte(`{"pnlThreshold":9,"soundEnabled":false}`))
	require.NoError(t, err)
	assert.InDelta(t, 9, s.PnLThreshold, 1e-9)
	assert.False(t, s.SoundEnabled)
	assert.True(t, s.DesktopEnabled)
	assert.InDelta(t, 0.8, s.MarginThreshold, 1e-9)

	_, err = decodeSettings([]byte(`not json`))
	assert.Error(t, err)
}
