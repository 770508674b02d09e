package picture

import (
	"context"
	"slices"
	"time"

	"github.com/nexelor/media-collector/internal/scheduler"
	"github.com/nexelor/media-collector/internal/store"
)

// Queue is the queue picture tasks run on.
const Queue = "pictures"

// TaskName identifies FetchPictureTask records.
const TaskName = "fetch_picture"

// Status is the download state stored in Metadata.
type Status string

const (
	StatusPending     Status = "pending"
	StatusDownloading Status = "downloading"
	StatusCompleted   Status = "completed"
	StatusFailed      Status = "failed"
)

// Metadata describes one picture, keyed by its source URL.
type Metadata struct {
	URL              string     `json:"url"`
	FilePath         string     `json:"file_path,omitempty"`
	Filename         string     `json:"filename,omitempty"`
	FileSize         int64      `json:"file_size"`
	MimeType         string     `json:"mime_type,omitempty"`
	Status           Status     `json:"status"`
	Error            string     `json:"error,omitempty"`
	Tags             []string   `json:"tags,omitempty"`
	EntityType       string     `json:"entity_type,omitempty"`
	EntityID         string     `json:"entity_id,omitempty"`
	DownloadAttempts int        `json:"download_attempts"`
	ContentHash      string     `json:"content_hash,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
	DownloadedAt     *time.Time `json:"downloaded_at,omitempty"`
}

// Request is the payload of a picture download.
type Request struct {
	URL        string   `json:"url"`
	Filename   string   `json:"filename,omitempty"`
	EntityType string   `json:"entity_type,omitempty"`
	EntityID   string   `json:"entity_id,omitempty"`
	Tags       []string `json:"tags,omitempty"`
}

func newMetadata(req Request, now time.Time) Metadata {
	return Metadata{
		URL:        req.URL,
		Status:     StatusPending,
		Tags:       req.Tags,
		EntityType: req.EntityType,
		EntityID:   req.EntityID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// mergeRequest folds request attributes into existing metadata. Tags
// accumulate; entity fields are only filled when missing.
func (m *Metadata) mergeRequest(req Request) {
	if m.EntityType == "" {
		m.EntityType = req.EntityType
	}
	if m.EntityID == "" {
		m.EntityID = req.EntityID
	}
	for _, tag := range req.Tags {
		if !slices.Contains(m.Tags, tag) {
			m.Tags = append(m.Tags, tag)
		}
	}
}

func loadMetadata(ctx context.Context, docs scheduler.Documents, url string) (Metadata, bool, error) {
	var meta Metadata
	found, err := docs.Get(ctx, store.CollectionPictures, url, &meta)
	return meta, found, err
}

func saveMetadata(ctx context.Context, docs scheduler.Documents, meta Metadata) error {
	return docs.Upsert(ctx, store.CollectionPictures, meta.URL, meta)
}
