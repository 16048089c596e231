package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/alanyoungcy/hlwatch/internal/domain"
)

// NotificationService is the part of the engine the notification endpoints
// use.
type NotificationService interface {
	Notifications(unreadOnly bool) []domain.Notification
	MarkAsRead(id string) bool
	MarkAllAsRead() int
	ClearNotifications(olderThan *time.Duration) int
	Statistics() domain.Statistics
}

// StreamReader replays the notification stream.
type StreamReader interface {
	StreamRead(ctx context.Context, stream, lastID string, count int) ([]domain.StreamMessage, error)
}

// NotificationHandler serves notification endpoints.
type NotificationHandler struct {
	svc        NotificationService
	archive    domain.NotificationArchive
	stream     StreamReader
	streamName string
	logger     *slog.Logger
}

// NewNotificationHandler creates a NotificationHandler. archive and stream
// may be nil, in which case history and replay answer 503.
func NewNotificationHandler(
	svc NotificationService,
	archive domain.NotificationArchive,
	stream StreamReader,
	streamName string,
	logger *slog.Logger,
) *NotificationHandler {
	return &NotificationHandler{
		svc:        svc,
		archive:    archive,
		stream:     stream,
		streamName: streamName,
		logger:     logger,
	}
}

type listNotificationsResponse struct {
	Notifications []domain.Notification `json:"notifications"`
	Count         int                   `json:"count"`
}

// List returns the in-memory notifications, newest first.
// GET /api/notifications?unread=true
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	unreadOnly, _ := strconv.ParseBool(r.URL.Query().Get("unread"))
	notes := h.svc.Notifications(unreadOnly)
	if notes == nil {
		notes = []domain.Notification{}
	}
	writeJSON(w, http.StatusOK, listNotificationsResponse{Notifications: notes, Count: len(notes)})
}

// MarkRead marks one notification read. Unknown and already-read ids are a
// no-op and still answer 200, with updated=false.
// POST /api/notifications/{id}/read
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "updated": h.svc.MarkAsRead(id)})
}

// MarkAllRead marks every notification read.
// POST /api/notifications/read-all
func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]int{"updated": h.svc.MarkAllAsRead()})
}

// Clear removes all notifications, or only those older than older_than.
// DELETE /api/notifications?older_than=24h
func (h *NotificationHandler) Clear(w http.ResponseWriter, r *http.Request) {
	var olderThan *time.Duration
	if v := r.URL.Query().Get("older_than"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			writeError(w, http.StatusBadRequest, "older_than must be a non-negative duration like 1h")
			return
		}
		olderThan = &d
	}
	writeJSON(w, http.StatusOK, map[string]int{"removed": h.svc.ClearNotifications(olderThan)})
}

// Stats returns counts by type and priority.
// GET /api/notifications/stats
func (h *NotificationHandler) Stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Statistics())
}

// History lists archived notifications for a user from Postgres.
// GET /api/notifications/history?user=0x...&limit=50&offset=0
func (h *NotificationHandler) History(w http.ResponseWriter, r *http.Request) {
	if h.archive == nil {
		writeError(w, http.StatusServiceUnavailable, "notification archive not configured")
		return
	}
	user := r.URL.Query().Get("user")
	if user == "" {
		writeError(w, http.StatusBadRequest, "user query parameter required")
		return
	}

	notes, err := h.archive.List(r.Context(), user, parseListOpts(r))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list archived notifications failed",
			slog.String("user", user),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list notification history")
		return
	}
	if notes == nil {
		notes = []domain.Notification{}
	}
	writeJSON(w, http.StatusOK, listNotificationsResponse{Notifications: notes, Count: len(notes)})
}

type replayEntry struct {
	ID      string `json:"id"`
	Payload any    `json:"payload"`
}

// Replay returns stream entries after the given id so reconnecting clients
// can catch up.
// GET /api/notifications/replay?after=1700000000000-0&count=100
func (h *NotificationHandler) Replay(w http.ResponseWriter, r *http.Request) {
	if h.stream == nil {
		writeError(w, http.StatusServiceUnavailable, "notification stream not configured")
		return
	}
	q := r.URL.Query()
	count := 100
	if v := q.Get("count"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "count must be a positive integer")
			return
		}
		count = min(n, 1000)
	}

	msgs, err := h.stream.StreamRead(r.Context(), h.streamName, q.Get("after"), count)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: stream read failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to read notification stream")
		return
	}

	entries := make([]replayEntry, 0, len(msgs))
	for _, m := range msgs {
		entries = append(entries, replayEntry{ID: m.ID, Payload: rawJSON(m.Payload)})
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

// rawJSON embeds payload verbatim when it is valid JSON and as a string
// otherwise.
func rawJSON(payload []byte) any {
	if json.Valid(payload) {
		return json.RawMessage(payload)
	}
	return string(payload)
}
