package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/hlwatch/internal/domain"
)

// NotificationStore implements domain.NotificationArchive using PostgreSQL.
type NotificationStore struct {
	pool *pgxpool.Pool
}

// NewNotificationStore creates a new NotificationStore backed by the given
// connection pool.
func NewNotificationStore(pool *pgxpool.Pool) *NotificationStore {
	return &NotificationStore{pool: pool}
}

// Insert archives a notification. Re-inserting an existing id is ignored.
func (s *NotificationStore) Insert(ctx context.Context, n domain.Notification) error {
	var data []byte
	if n.Data != nil {
		var err error
		if data, err = json.Marshal(n.Data); err != nil {
			return fmt.Errorf("postgres: marshal notification data %s: %w", n.ID, err)
		}
	}
	var actionURL *string
	if n.ActionURL != "" {
		actionURL = &n.ActionURL
	}

	const query = `
		INSERT INTO notifications
			(id, user_addr, type, priority, title, message, data, action_url, read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO NOTHING`
	_, err := s.pool.Exec(ctx, query,
		n.ID, n.User, string(n.Type), string(n.Priority), n.Title, n.Message,
		data, actionURL, n.Read, n.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert notification %s: %w", n.ID, err)
	}
	return nil
}

// MarkRead sets read on one notification. Unknown ids are not an error.
func (s *NotificationStore) MarkRead(ctx context.Context, id string) error {
	if _, err := s.pool.Exec(ctx, `UPDATE notifications SET read = TRUE WHERE id = $1`, id); err != nil {
		return fmt.Errorf("postgres: mark notification %s read: %w", id, err)
	}
	return nil
}

// MarkAllRead sets read on every unread notification and returns how many
// rows changed.
func (s *NotificationStore) MarkAllRead(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx, `UPDATE notifications SET read = TRUE WHERE NOT read`)
	if err != nil {
		return 0, fmt.Errorf("postgres: mark all notifications read: %w", err)
	}
	return tag.RowsAffected(), nil
}

// listQuery builds the archive listing query. An empty user lists every user.
func listQuery(user string, opts domain.ListOpts) (string, []any) {
	var b strings.Builder
	b.WriteString(`SELECT id, user_addr, type, priority, title, message, data, action_url, read, created_at
		FROM notifications WHERE 1=1`)
	var args []any
	arg := func(clause string, v any) {
		args = append(args, v)
		fmt.Fprintf(&b, clause, len(args))
	}

	if user != "" {
		arg(" AND user_addr = $%d", user)
	}
	if opts.Since != nil {
		arg(" AND created_at >= $%d", *opts.Since)
	}
	if opts.Until != nil {
		arg(" AND created_at <= $%d", *opts.Until)
	}
	b.WriteString(" ORDER BY created_at DESC, id DESC")
	if opts.Limit > 0 {
		arg(" LIMIT $%d", opts.Limit)
	}
	if opts.Offset > 0 {
		arg(" OFFSET $%d", opts.Offset)
	}
	return b.String(), args
}

// List returns archived notifications, newest first.
func (s *NotificationStore) List(ctx context.Context, user string, opts domain.ListOpts) ([]domain.Notification, error) {
	query, args := listQuery(user, opts)
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list notifications: %w", err)
	}
	defer rows.Close()

	var out []domain.Notification
	for rows.Next() {
		var (
			n         domain.Notification
			typ, prio string
			data      []byte
			actionURL *string
		)
		if err := rows.Scan(&n.ID, &n.User, &typ, &prio, &n.Title, &n.Message, &data, &actionURL, &n.Read, &n.Timestamp); err != nil {
			return nil, fmt.Errorf("postgres: scan notification: %w", err)
		}
		n.Type = domain.NotificationType(typ)
		n.Priority = domain.Priority(prio)
		if len(data) > 0 {
			n.Data = json.RawMessage(data)
		}
		if actionURL != nil {
			n.ActionURL = *actionURL
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list notifications: %w", err)
	}
	return out, nil
}

// DeleteBefore removes notifications created before cutoff and returns how
// many rows were deleted.
func (s *NotificationStore) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM notifications WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete notifications before %s: %w", cutoff.Format(time.RFC3339), err)
	}
	return tag.RowsAffected(), nil
}

// Compile-time interface check.
var _ domain.NotificationArchive = (*NotificationStore)(nil)
