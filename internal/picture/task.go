package picture

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nexelor/media-collector/internal/fileutil"
	"github.com/nexelor/media-collector/internal/httpclient"
	"github.com/nexelor/media-collector/internal/logging"
	"github.com/nexelor/media-collector/internal/metrics"
	"github.com/nexelor/media-collector/internal/scheduler"
	"github.com/nexelor/media-collector/internal/services"
	"github.com/nexelor/media-collector/internal/textutil"
)

// FetchPictureTask downloads one picture and records its metadata.
type FetchPictureTask struct {
	scheduler.Base
	fetcher *Fetcher
	req     Request
}

// Request returns the download request.
func (t *FetchPictureTask) Request() Request { return t.req }

func (t *FetchPictureTask) Record() scheduler.Record { return t.RecordWith(t.req) }

func (t *FetchPictureTask) Execute(ctx context.Context, res scheduler.Resources) error {
	logger := res.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	docs := res.Documents

	meta, found, err := loadMetadata(ctx, docs, t.req.URL)
	if err != nil {
		return fmt.Errorf("load picture metadata: %w", err)
	}
	now := time.Now().UTC()
	if found {
		if meta.Status == StatusCompleted && fileutil.MatchesDigest(meta.FilePath, meta.ContentHash) {
			logger.Info("picture already stored",
				logging.String("url", t.req.URL),
				logging.String("file_path", meta.FilePath),
			)
			return nil
		}
		meta.mergeRequest(t.req)
	} else {
		meta = newMetadata(t.req, now)
	}

	meta.Status = StatusDownloading
	meta.Error = ""
	meta.DownloadAttempts++
	meta.UpdatedAt = now
	if err := saveMetadata(ctx, docs, meta); err != nil {
		return fmt.Errorf("save picture metadata: %w", err)
	}

	payload, err := t.fetcher.client.FetchBytes(ctx, t.req.URL, httpclient.NewRequestConfig())
	if err != nil {
		return t.fail(ctx, docs, meta, err)
	}

	mimeType := mediaType(payload)
	fileName := t.fileName(mimeType)
	target := filepath.Join(t.targetDir(meta), fileName)
	digest, err := fileutil.WriteFileVerified(target, payload.Body, 0o644)
	if err != nil {
		return t.fail(ctx, docs, meta, services.Wrap(services.ErrTransient, "picture", "write file", target, err))
	}

	done := time.Now().UTC()
	meta.Status = StatusCompleted
	meta.FilePath = target
	meta.Filename = fileName
	meta.FileSize = int64(len(payload.Body))
	meta.MimeType = mimeType
	meta.ContentHash = digest
	meta.UpdatedAt = done
	meta.DownloadedAt = &done
	if err := saveMetadata(ctx, docs, meta); err != nil {
		return fmt.Errorf("save picture metadata: %w", err)
	}
	metrics.PictureBytesTotal.Add(float64(meta.FileSize))

	logger.Info("picture stored",
		logging.String(logging.FieldEventType, "picture_stored"),
		logging.String("url", t.req.URL),
		logging.String("file_path", target),
		logging.Int64("file_size", meta.FileSize),
		logging.String("mime_type", mimeType),
	)
	return nil
}

// fail records the failure on the metadata and returns cause for the worker.
func (t *FetchPictureTask) fail(ctx context.Context, docs scheduler.Documents, meta Metadata, cause error) error {
	meta.Status = StatusFailed
	meta.Error = cause.Error()
	meta.UpdatedAt = time.Now().UTC()
	if err := saveMetadata(ctx, docs, meta); err != nil {
		return fmt.Errorf("%w (metadata not saved: %v)", cause, err)
	}
	return cause
}

// fileName picks the stored name: the requested name, then the URL's last
// segment, then a random name. An extension from the content type is added
// when the chosen name has none.
func (t *FetchPictureTask) fileName(mimeType string) string {
	name := textutil.SanitizeFileName(t.req.Filename)
	if name == "" {
		name = textutil.FileNameFromURL(t.req.URL)
	}
	if name == "" {
		name = "picture_" + uuid.NewString()
	}
	if filepath.Ext(name) == "" {
		if exts, err := mime.ExtensionsByType(mimeType); err == nil && len(exts) > 0 {
			name += exts[0]
		}
	}
	return name
}

func (t *FetchPictureTask) targetDir(meta Metadata) string {
	if meta.EntityType == "" {
		return t.fetcher.dir
	}
	return filepath.Join(t.fetcher.dir, textutil.SanitizeToken(meta.EntityType), textutil.SanitizeToken(meta.EntityID))
}

func mediaType(payload httpclient.Payload) string {
	if ct := strings.TrimSpace(payload.ContentType); ct != "" {
		if parsed, _, err := mime.ParseMediaType(ct); err == nil {
			return parsed
		}
	}
	parsed, _, _ := mime.ParseMediaType(http.DetectContentType(payload.Body))
	return parsed
}
