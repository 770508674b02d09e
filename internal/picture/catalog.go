package picture

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/nexelor/media-collector/internal/scheduler"
	"github.com/nexelor/media-collector/internal/store"
)

// Documents is the store surface the catalog reads from.
type Documents interface {
	scheduler.Documents
	List(ctx context.Context, collection string, limit, offset int) ([]store.Document, error)
}

// Stats summarizes the picture catalog.
type Stats struct {
	Total      int            `json:"total"`
	ByStatus   map[Status]int `json:"by_status"`
	TotalBytes int64          `json:"total_bytes"`
}

// Catalog answers queries over stored picture metadata.
type Catalog struct {
	docs Documents
}

// NewCatalog returns a catalog over docs.
func NewCatalog(docs Documents) *Catalog {
	return &Catalog{docs: docs}
}

// Get returns the metadata for url.
func (c *Catalog) Get(ctx context.Context, url string) (Metadata, bool, error) {
	return loadMetadata(ctx, c.docs, url)
}

// List returns metadata newest first, optionally filtered by status. A limit
// of zero or less returns every match.
func (c *Catalog) List(ctx context.Context, status Status, limit int) ([]Metadata, error) {
	all, err := c.all(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Metadata, 0, len(all))
	for _, meta := range all {
		if status != "" && meta.Status != status {
			continue
		}
		out = append(out, meta)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// Stats counts pictures by status and sums the size of completed files.
func (c *Catalog) Stats(ctx context.Context) (Stats, error) {
	all, err := c.all(ctx)
	if err != nil {
		return Stats{}, err
	}
	stats := Stats{Total: len(all), ByStatus: make(map[Status]int)}
	for _, meta := range all {
		stats.ByStatus[meta.Status]++
		if meta.Status == StatusCompleted {
			stats.TotalBytes += meta.FileSize
		}
	}
	return stats, nil
}

// Delete removes the metadata for url and its file, if any. It reports
// whether metadata existed.
func (c *Catalog) Delete(ctx context.Context, url string) (bool, error) {
	meta, found, err := loadMetadata(ctx, c.docs, url)
	if err != nil || !found {
		return false, err
	}
	if meta.FilePath != "" {
		if err := os.Remove(meta.FilePath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return false, fmt.Errorf("remove picture file: %w", err)
		}
	}
	return c.docs.Delete(ctx, store.CollectionPictures, url)
}

func (c *Catalog) all(ctx context.Context) ([]Metadata, error) {
	docs, err := c.docs.List(ctx, store.CollectionPictures, 0, 0)
	if err != nil {
		return nil, err
	}
	out := make([]Metadata, 0, len(docs))
	for _, doc := range docs {
		var meta Metadata
		if err := doc.Decode(&meta); err != nil {
			return nil, err
		}
		out = append(out, meta)
	}
	return out, nil
}
