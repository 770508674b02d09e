package mal

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nexelor/media-collector/internal/anime/jikan"
	"github.com/nexelor/media-collector/internal/logging"
	"github.com/nexelor/media-collector/internal/picture"
	"github.com/nexelor/media-collector/internal/scheduler"
)

// Task names persisted in task records.
const (
	TaskFetch         = "fetch_anime_mal"
	TaskSearch        = "search_anime_mal"
	TaskUpdate        = "update_anime_mal"
	TaskBatch         = "batch_fetch_mal"
	TaskExtended      = "fetch_extended_mal"
	TaskAnimePictures = "fetch_anime_pictures"
)

// Collector builds MyAnimeList tasks bound to their clients. Pictures may be
// nil when the picture module is disabled; picture fan-out is then skipped.
type Collector struct {
	client   *Client
	jikan    *jikan.Client
	pictures *picture.Fetcher
}

// NewCollector wires the clients tasks will use.
func NewCollector(client *Client, jikanClient *jikan.Client, pictures *picture.Fetcher) *Collector {
	return &Collector{client: client, jikan: jikanClient, pictures: pictures}
}

// PicturesEnabled reports whether picture fan-out is available.
func (c *Collector) PicturesEnabled() bool { return c.pictures != nil }

// Register installs factories for every MyAnimeList task.
func Register(registry *scheduler.Registry, c *Collector) {
	registry.Register(TaskFetch, c.restoreFetch)
	registry.Register(TaskSearch, c.restoreSearch)
	registry.Register(TaskUpdate, c.restoreUpdate)
	registry.Register(TaskBatch, c.restoreBatch)
	registry.Register(TaskExtended, c.restoreExtended)
	registry.Register(TaskAnimePictures, c.restoreAnimePictures)
}

func submit(ctx context.Context, res scheduler.Resources, queue string, task scheduler.Task) error {
	if res.Submitter == nil {
		return fmt.Errorf("submit %s: no submitter available", task.Name())
	}
	return res.Submitter.Submit(ctx, queue, task)
}

func validateID(id int) error {
	if id <= 0 {
		return fmt.Errorf("invalid anime id %d", id)
	}
	return nil
}

func taskLogger(res scheduler.Resources) *slog.Logger {
	if res.Logger == nil {
		return logging.NewNop()
	}
	return res.Logger
}
