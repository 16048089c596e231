package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination and filtering for list queries.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
}

// NotificationArchive persists every created notification and its read state
// beyond the lifetime of the in-memory store.
type NotificationArchive interface {
	Insert(ctx context.Context, n Notification) error
	MarkRead(ctx context.Context, id string) error
	MarkAllRead(ctx context.Context) (int64, error)
	List(ctx context.Context, user string, opts ListOpts) ([]Notification, error)
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// SettingsStore persists the notification settings record.
type SettingsStore interface {
	Load(ctx context.Context) (NotificationSettings, error)
	Save(ctx context.Context, s NotificationSettings) error
}
