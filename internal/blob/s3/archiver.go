package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/alanyoungcy/hlwatch/internal/domain"
)

const jsonlContentType = "application/x-ndjson"

// multipartThreshold is the payload size above which archives are uploaded
// in parts.
const multipartThreshold = 8 * 1024 * 1024

// Archiver exports notifications to object storage as JSON lines.
type Archiver struct {
	writer domain.BlobWriter
	now    func() time.Time
}

// NewArchiver creates an Archiver uploading through writer.
func NewArchiver(writer domain.BlobWriter) *Archiver {
	return &Archiver{writer: writer, now: time.Now}
}

// ArchiveNotifications uploads notes as one JSONL object and returns its key.
// Nothing is uploaded for an empty slice.
func (a *Archiver) ArchiveNotifications(ctx context.Context, notes []domain.Notification) (string, error) {
	if len(notes) == 0 {
		return "", nil
	}

	buf, err := marshalJSONL(notes)
	if err != nil {
		return "", fmt.Errorf("s3blob: archive notifications marshal: %w", err)
	}

	path := archivePath("notifications", a.now().UTC())
	if len(buf) > multipartThreshold {
		err = a.writer.PutMultipart(ctx, path, bytes.NewReader(buf), multipartThreshold)
	} else {
		err = a.writer.Put(ctx, path, bytes.NewReader(buf), jsonlContentType)
	}
	if err != nil {
		return "", fmt.Errorf("s3blob: archive notifications upload: %w", err)
	}
	return path, nil
}

// archivePath builds the object key for an export made at ts:
//
//	notifications/2025/01/31/1738281600.jsonl
func archivePath(kind string, ts time.Time) string {
	return fmt.Sprintf("%s/%s/%d.jsonl", kind, ts.Format("2006/01/02"), ts.Unix())
}

// marshalJSONL encodes records as newline-delimited JSON.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}
