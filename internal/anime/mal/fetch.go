package mal

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/nexelor/media-collector/internal/anime"
	"github.com/nexelor/media-collector/internal/anime/jikan"
	"github.com/nexelor/media-collector/internal/logging"
	"github.com/nexelor/media-collector/internal/scheduler"
	"github.com/nexelor/media-collector/internal/services"
)

// FetchOptions selects what a fetch does beyond the MyAnimeList call.
// FullFetch implies WithJikan and WithPictures and also queues extended data.
type FetchOptions struct {
	AnimeID      int  `json:"anime_id"`
	WithJikan    bool `json:"with_jikan"`
	WithPictures bool `json:"with_pictures"`
	FullFetch    bool `json:"full_fetch"`
}

func (o FetchOptions) normalized() FetchOptions {
	if o.FullFetch {
		o.WithJikan = true
		o.WithPictures = true
	}
	return o
}

// FetchAnimeTask fetches one anime, optionally enriches it from Jikan, stores
// it, and queues follow-up work.
type FetchAnimeTask struct {
	scheduler.Base
	c    *Collector
	opts FetchOptions
}

// FetchTask builds a fetch for opts.AnimeID.
func (c *Collector) FetchTask(opts FetchOptions) (*FetchAnimeTask, error) {
	if err := validateID(opts.AnimeID); err != nil {
		return nil, services.Wrap(services.ErrValidation, "mal", "fetch", "", err)
	}
	base := scheduler.NewBase("mal_fetch_"+uuid.NewString(), TaskFetch, scheduler.PriorityNormal)
	return &FetchAnimeTask{Base: base, c: c, opts: opts.normalized()}, nil
}

func (c *Collector) restoreFetch(rec scheduler.Record) (scheduler.Task, error) {
	opts, err := scheduler.DecodePayload[FetchOptions](rec)
	if err != nil {
		return nil, err
	}
	if err := validateID(opts.AnimeID); err != nil {
		return nil, err
	}
	return &FetchAnimeTask{Base: scheduler.RestoreBase(rec), c: c, opts: opts.normalized()}, nil
}

// Options returns the effective fetch options.
func (t *FetchAnimeTask) Options() FetchOptions { return t.opts }

func (t *FetchAnimeTask) Record() scheduler.Record { return t.RecordWith(t.opts) }

func (t *FetchAnimeTask) Execute(ctx context.Context, res scheduler.Resources) error {
	logger := taskLogger(res)
	id := t.opts.AnimeID
	logger.Info("fetching anime from myanimelist",
		logging.Int("anime_id", id),
		logging.Bool("with_jikan", t.opts.WithJikan),
		logging.Bool("with_pictures", t.opts.WithPictures),
		logging.Bool("full_fetch", t.opts.FullFetch),
	)

	record, err := t.c.client.Anime(ctx, id)
	if err != nil {
		return err
	}
	a := ToAnime(record)

	if t.opts.WithJikan && t.c.jikan != nil {
		enriched, err := t.c.jikan.Anime(ctx, id)
		if err != nil {
			logging.WarnWithContext(logger, "jikan enrichment failed", "jikan_enrichment_failed",
				logging.Int("anime_id", id),
				logging.Error(err),
				logging.String(logging.FieldImpact, "record stored with myanimelist data only"),
			)
		} else {
			jikan.Merge(&a, enriched)
		}
	}

	prev, found, err := anime.LoadMAL(ctx, res.Documents, id)
	if err != nil {
		return fmt.Errorf("load stored anime %d: %w", id, err)
	}
	if found {
		carryForward(&a, prev)
	}
	if err := anime.SaveMAL(ctx, res.Documents, a); err != nil {
		return fmt.Errorf("store anime %d: %w", id, err)
	}
	logger.Info("anime stored",
		logging.String(logging.FieldEventType, "anime_stored"),
		logging.Int("anime_id", id),
		logging.String("title", a.PrimaryTitle()),
	)

	if t.opts.FullFetch {
		extended, err := t.c.ExtendedTask(ExtendedOptions{AnimeID: id})
		if err != nil {
			return err
		}
		if err := submit(ctx, res, anime.QueueMAL, extended); err != nil {
			return err
		}
	}
	if t.opts.WithPictures {
		if !t.c.PicturesEnabled() {
			logging.WarnWithContext(logger, "picture module disabled; skipping pictures", "pictures_skipped",
				logging.Int("anime_id", id),
			)
			return nil
		}
		// Extended data queued above runs first on the same queue, so the
		// picture pass sees character and staff images when present.
		if err := submit(ctx, res, anime.QueueMAL, t.c.AnimePicturesTask(id)); err != nil {
			return err
		}
	}
	return nil
}

// UpdateAnimeTask refreshes a stored anime from MyAnimeList, keeping data
// other sources contributed.
type UpdateAnimeTask struct {
	scheduler.Base
	c       *Collector
	animeID int
}

type updatePayload struct {
	AnimeID int `json:"anime_id"`
}

// UpdateTask builds an update for id. Updates run ahead of regular fetches.
func (c *Collector) UpdateTask(id int) (*UpdateAnimeTask, error) {
	if err := validateID(id); err != nil {
		return nil, services.Wrap(services.ErrValidation, "mal", "update", "", err)
	}
	base := scheduler.NewBase(fmt.Sprintf("mal_update_%d", id), TaskUpdate, scheduler.PriorityHigh)
	return &UpdateAnimeTask{Base: base, c: c, animeID: id}, nil
}

func (c *Collector) restoreUpdate(rec scheduler.Record) (scheduler.Task, error) {
	p, err := scheduler.DecodePayload[updatePayload](rec)
	if err != nil {
		return nil, err
	}
	if err := validateID(p.AnimeID); err != nil {
		return nil, err
	}
	return &UpdateAnimeTask{Base: scheduler.RestoreBase(rec), c: c, animeID: p.AnimeID}, nil
}

func (t *UpdateAnimeTask) Record() scheduler.Record {
	return t.RecordWith(updatePayload{AnimeID: t.animeID})
}

func (t *UpdateAnimeTask) Execute(ctx context.Context, res scheduler.Resources) error {
	logger := taskLogger(res)
	record, err := t.c.client.Anime(ctx, t.animeID)
	if err != nil {
		return err
	}
	a := ToAnime(record)

	prev, found, err := anime.LoadMAL(ctx, res.Documents, t.animeID)
	if err != nil {
		return fmt.Errorf("load stored anime %d: %w", t.animeID, err)
	}
	if found {
		carryForward(&a, prev)
		// Jikan images carry more sizes; keep them over the refreshed pair.
		if prev.Image.Small != "" {
			a.Image = prev.Image
		}
	}
	if err := anime.SaveMAL(ctx, res.Documents, a); err != nil {
		return fmt.Errorf("store anime %d: %w", t.animeID, err)
	}
	logger.Info("anime updated",
		logging.String(logging.FieldEventType, "anime_updated"),
		logging.Int("anime_id", t.animeID),
		logging.String("title", a.PrimaryTitle()),
		logging.Bool("existed", found),
	)
	return nil
}
