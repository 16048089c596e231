package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/hlwatch/internal/domain"
)

// SettingsStore implements domain.SettingsStore as a single JSONB row.
type SettingsStore struct {
	pool *pgxpool.Pool
}

// NewSettingsStore creates a new SettingsStore backed by the given pool.
func NewSettingsStore(pool *pgxpool.Pool) *SettingsStore {
	return &SettingsStore{pool: pool}
}

// Load returns the persisted settings, or domain.ErrNotFound when none have
// been saved yet.
func (s *SettingsStore) Load(ctx context.Context) (domain.NotificationSettings, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT settings FROM notification_settings WHERE id = 1`).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.NotificationSettings{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.NotificationSettings{}, fmt.Errorf("postgres: load settings: %w", err)
	}
	return decodeSettings(raw)
}

// decodeSettings overlays the stored JSON on the defaults, so fields added
// after the row was written keep their default value.
func decodeSettings(raw []byte) (domain.NotificationSettings, error) {
	settings := domain.DefaultSettings()
	if err := json.Unmarshal(raw, &settings); err != nil {
		return domain.NotificationSettings{}, fmt.Errorf("postgres: decode settings: %w", err)
	}
	return settings, nil
}

// Save upserts the settings row.
func (s *SettingsStore) Save(ctx context.Context, settings domain.NotificationSettings) error {
	raw, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("postgres: marshal settings: %w", err)
	}
	const query = `
		INSERT INTO notification_settings (id, settings, updated_at)
		VALUES (1, $1, NOW())
		ON CONFLICT (id) DO UPDATE SET settings = EXCLUDED.settings, updated_at = EXCLUDED.updated_at`
	if _, err := s.pool.Exec(ctx, query, raw); err != nil {
		return fmt.Errorf("postgres: save settings: %w", err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.SettingsStore = (*SettingsStore)(nil)
