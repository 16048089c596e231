package s3blob

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/hlwatch/internal/domain"
)

type recordingWriter struct {
	paths       []string
	contentType string
	body        []byte
	multipart   bool
	err         error
}

func (w *recordingWriter) Put(_ context.Context, path string, data io.Reader, contentType string) error {
	if w.err != nil {
		return w.err
	}
	w.paths = append(w.paths, path)
	w.contentType = contentType
	w.body, _ = io.ReadAll(data)
	return nil
}

func (w *recordingWriter) PutMultipart(_ context.Context, path string, data io.Reader, _ int64) error {
	w.multipart = true
	return w.Put(context.Background(), path, data, "")
}

func TestArchiveNotifications(t *testing.T) {
	w := &recordingWriter{}
	a := NewArchiver(w)
	a.now = func() time.Time { return time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC) }

	notes := []domain.Notification{
		{ID: "1-a", Type: domain.NotificationOrderFilled, Message: "Bought <1> BTC"},
		{ID: "2-b", Type: domain.NotificationPriceAlert},
	}
	path, err := a.ArchiveNotifications(context.Background(), notes)
	require.NoError(t, err)
	assert.Equal(t, "notifications/2025/01/31/1738281600.jsonl", path)
	assert.Equal(t, jsonlContentType, w.contentType)
	assert.False(t, w.multipart)

	var got []domain.Notification
	sc := bufio.NewScanner(bytes.NewReader(w.body))
	for sc.Scan() {
		var n domain.Notification
		require.NoError(t, json.Unmarshal(sc.Bytes(), &n))
		got = append(got, n)
	}
	require.Len(t, got, 2)
	assert.Equal(t, "Bought <1> BTC", got[0].Message)
	assert.Contains(t, string(w.body), "<1>", "html is not escaped")
}

func TestArchiveNotificationsEmpty(t *testing.T) {
	w := &recordingWriter{}
	path, err := NewArchiver(w).ArchiveNotifications(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, path)
	assert.Empty(t, w.paths)
}

func TestArchiveNotificationsUploadError(t *testing.T) {
	w := &recordingWriter{err: errors.New("denied")}
	_, err := NewArchiver(w).ArchiveNotifications(context.Background(), []domain.Notification{{ID: "x"}})
	assert.ErrorContains(t, err, "denied")
}

func TestNormaliseEndpoint(t *testing.T) {
	assert.Equal(t, "https://s3.example.com", normaliseEndpoint("https://s3.example.com", false))
	assert.Equal(t, "http://minio:9000", normaliseEndpoint("minio:9000", false))
	assert.Equal(t, "https://minio:9000", normaliseEndpoint("minio:9000", true))
}
