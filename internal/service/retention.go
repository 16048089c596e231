package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/hlwatch/internal/domain"
	"github.com/alanyoungcy/hlwatch/internal/metrics"
	"github.com/alanyoungcy/hlwatch/internal/notification"
)

const retentionLockKey = "retention"

// Exporter uploads notifications before they are deleted.
type Exporter interface {
	ArchiveNotifications(ctx context.Context, notes []domain.Notification) (string, error)
}

// RetentionConfig tunes the retention sweep.
type RetentionConfig struct {
	MaxAge   time.Duration
	Interval time.Duration
	Export   bool
}

// Retention periodically removes notifications older than MaxAge from the
// engine and the Postgres archive, exporting them to object storage first.
type Retention struct {
	engine   *notification.Service
	archive  domain.NotificationArchive
	exporter Exporter
	locks    domain.LockManager
	cfg      RetentionConfig
	logger   *slog.Logger
	now      func() time.Time
}

// NewRetention creates a Retention. archive, exporter and locks may be nil.
func NewRetention(
	engine *notification.Service,
	archive domain.NotificationArchive,
	exporter Exporter,
	locks domain.LockManager,
	cfg RetentionConfig,
	logger *slog.Logger,
) *Retention {
	return &Retention{
		engine:   engine,
		archive:  archive,
		exporter: exporter,
		locks:    locks,
		cfg:      cfg,
		logger:   logger.With(slog.String("component", "retention")),
		now:      time.Now,
	}
}

// Run sweeps every Interval until ctx is cancelled.
func (r *Retention) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := r.Sweep(ctx); err != nil && ctx.Err() == nil {
				r.logger.WarnContext(ctx, "retention sweep failed", slog.String("error", err.Error()))
			}
		}
	}
}

// Sweep runs one retention pass and returns the number of in-memory
// notifications removed. Another process holding the lock makes it a no-op.
// With export enabled, everything about to be deleted (archived rows and
// in-memory notifications alike) is uploaded first, and a failed export
// aborts the pass.
func (r *Retention) Sweep(ctx context.Context) (int, error) {
	if r.locks != nil {
		unlock, err := r.locks.Acquire(ctx, retentionLockKey, r.cfg.Interval)
		if errors.Is(err, domain.ErrLockHeld) {
			r.logger.DebugContext(ctx, "retention lock held elsewhere")
			return 0, nil
		}
		if err != nil {
			return 0, fmt.Errorf("retention: acquire lock: %w", err)
		}
		defer unlock()
	}

	cutoff := r.now().Add(-r.cfg.MaxAge)
	old := r.engine.NotificationsBefore(cutoff)

	if r.cfg.Export && r.exporter != nil {
		pending, err := r.expired(ctx, cutoff, old)
		if err != nil {
			return 0, err
		}
		if len(pending) > 0 {
			path, err := r.exporter.ArchiveNotifications(ctx, pending)
			if err != nil {
				return 0, fmt.Errorf("retention: export: %w", err)
			}
			r.logger.InfoContext(ctx, "notifications exported",
				slog.String("path", path),
				slog.Int("count", len(pending)),
			)
		}
	}

	if r.archive != nil {
		deleted, err := r.archive.DeleteBefore(ctx, cutoff)
		if err != nil {
			return 0, fmt.Errorf("retention: delete archived: %w", err)
		}
		if deleted > 0 {
			r.logger.InfoContext(ctx, "archived notifications deleted", slog.Int64("count", deleted))
		}
	}

	if len(old) == 0 {
		return 0, nil
	}
	removed := r.engine.ClearNotificationsBefore(cutoff)
	metrics.RetentionRemoved.Add(float64(removed))
	r.logger.InfoContext(ctx, "retention sweep complete", slog.Int("removed", removed))
	return removed, nil
}

// retentionPageSize bounds each archive read during a sweep.
const retentionPageSize = 1000

// expired returns every notification stamped before cutoff: the archived
// rows followed by in-memory ones the relay has not archived yet.
func (r *Retention) expired(ctx context.Context, cutoff time.Time, inMemory []domain.Notification) ([]domain.Notification, error) {
	if r.archive == nil {
		return inMemory, nil
	}

	var out []domain.Notification
	seen := make(map[string]bool)
	for offset := 0; ; offset += retentionPageSize {
		page, err := r.archive.List(ctx, "", domain.ListOpts{
			Limit:  retentionPageSize,
			Offset: offset,
			Until:  &cutoff,
		})
		if err != nil {
			return nil, fmt.Errorf("retention: list archived: %w", err)
		}
		for _, n := range page {
			if n.Timestamp.Before(cutoff) && !seen[n.ID] {
				seen[n.ID] = true
				out = append(out, n)
			}
		}
		if len(page) < retentionPageSize {
			break
		}
	}
	for _, n := range inMemory {
		if !seen[n.ID] {
			out = append(out, n)
		}
	}
	return out, nil
}
