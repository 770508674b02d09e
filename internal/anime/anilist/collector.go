package anilist

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/google/uuid"

	"github.com/nexelor/media-collector/internal/anime"
	"github.com/nexelor/media-collector/internal/logging"
	"github.com/nexelor/media-collector/internal/picture"
	"github.com/nexelor/media-collector/internal/scheduler"
	"github.com/nexelor/media-collector/internal/services"
	"github.com/nexelor/media-collector/internal/textutil"
)

// Task names persisted in task records.
const (
	TaskFetch    = "fetch_anime_anilist"
	TaskSearch   = "search_anime_anilist"
	TaskPictures = "fetch_anime_pictures_anilist"
)

// DefaultSearchLimit is used when a search does not name a limit.
const DefaultSearchLimit = 10

// Collector builds AniList tasks. Pictures may be nil when the picture
// module is disabled.
type Collector struct {
	client   *Client
	pictures *picture.Fetcher
}

// NewCollector wires the client tasks will use.
func NewCollector(client *Client, pictures *picture.Fetcher) *Collector {
	return &Collector{client: client, pictures: pictures}
}

// Register installs factories for every AniList task.
func Register(registry *scheduler.Registry, c *Collector) {
	registry.Register(TaskFetch, c.restoreFetch)
	registry.Register(TaskSearch, c.restoreSearch)
	registry.Register(TaskPictures, c.restorePictures)
}

func taskLogger(res scheduler.Resources) *slog.Logger {
	if res.Logger == nil {
		return logging.NewNop()
	}
	return res.Logger
}

// FetchOptions identifies the anime by exactly one of AniListID or MALID.
type FetchOptions struct {
	AniListID    int  `json:"anilist_id,omitempty"`
	MALID        int  `json:"mal_id,omitempty"`
	WithPictures bool `json:"with_pictures"`
}

func (o FetchOptions) validate() error {
	switch {
	case o.AniListID < 0 || o.MALID < 0:
		return fmt.Errorf("ids must be positive")
	case o.AniListID > 0 && o.MALID > 0:
		return fmt.Errorf("give either anilist_id or mal_id, not both")
	case o.AniListID == 0 && o.MALID == 0:
		return fmt.Errorf("anilist_id or mal_id is required")
	}
	return nil
}

func (o FetchOptions) taskID() string {
	if o.MALID > 0 {
		return fmt.Sprintf("anilist_fetch_mal_%d", o.MALID)
	}
	return fmt.Sprintf("anilist_fetch_%d", o.AniListID)
}

// FetchAnimeTask fetches one anime from AniList and stores it keyed by its
// AniList id. A stored MyAnimeList record for the same show is linked.
type FetchAnimeTask struct {
	scheduler.Base
	c    *Collector
	opts FetchOptions
}

// FetchTask builds a fetch.
func (c *Collector) FetchTask(opts FetchOptions) (*FetchAnimeTask, error) {
	if err := opts.validate(); err != nil {
		return nil, services.Wrap(services.ErrValidation, "anilist", "fetch", "", err)
	}
	base := scheduler.NewBase(opts.taskID(), TaskFetch, scheduler.PriorityNormal)
	return &FetchAnimeTask{Base: base, c: c, opts: opts}, nil
}

func (c *Collector) restoreFetch(rec scheduler.Record) (scheduler.Task, error) {
	opts, err := scheduler.DecodePayload[FetchOptions](rec)
	if err != nil {
		return nil, err
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}
	return &FetchAnimeTask{Base: scheduler.RestoreBase(rec), c: c, opts: opts}, nil
}

// Options returns the fetch options.
func (t *FetchAnimeTask) Options() FetchOptions { return t.opts }

func (t *FetchAnimeTask) Record() scheduler.Record { return t.RecordWith(t.opts) }

func (t *FetchAnimeTask) Execute(ctx context.Context, res scheduler.Resources) error {
	logger := taskLogger(res)

	var (
		media Media
		err   error
	)
	if t.opts.MALID > 0 {
		media, err = t.c.client.MediaByMAL(ctx, t.opts.MALID)
	} else {
		media, err = t.c.client.Media(ctx, t.opts.AniListID)
	}
	if err != nil {
		return err
	}

	a := ToAnime(media)
	if err := anime.SaveAniList(ctx, res.Documents, a); err != nil {
		return fmt.Errorf("store anilist anime %d: %w", a.AniListID, err)
	}
	linked, err := linkMAL(ctx, res.Documents, a)
	if err != nil {
		return err
	}
	logger.Info("anilist anime stored",
		logging.String(logging.FieldEventType, "anime_stored"),
		logging.Int("anilist_id", a.AniListID),
		logging.Int("mal_id", a.MALID),
		logging.String("title", a.PrimaryTitle()),
		logging.Bool("linked_mal", linked),
	)

	if t.opts.WithPictures {
		if t.c.pictures == nil {
			logging.WarnWithContext(logger, "picture module disabled; skipping pictures", "pictures_skipped",
				logging.Int("anilist_id", a.AniListID),
			)
			return nil
		}
		if res.Submitter == nil {
			return fmt.Errorf("submit %s: no submitter available", TaskPictures)
		}
		if err := res.Submitter.Submit(ctx, anime.QueueAniList, t.c.PicturesTask(a.AniListID)); err != nil {
			return err
		}
	}
	return nil
}

// linkMAL records the AniList id and banner on a stored MyAnimeList record
// for the same show. It reports whether a record was updated.
func linkMAL(ctx context.Context, docs scheduler.Documents, a anime.Anime) (bool, error) {
	if a.MALID == 0 {
		return false, nil
	}
	stored, found, err := anime.LoadMAL(ctx, docs, a.MALID)
	if err != nil || !found {
		return false, err
	}
	stored.AniListID = a.AniListID
	if stored.Banner == "" {
		stored.Banner = a.Banner
	}
	stored.AddSource(anime.SourceAniList)
	if err := anime.SaveMAL(ctx, docs, stored); err != nil {
		return false, fmt.Errorf("link mal anime %d: %w", a.MALID, err)
	}
	return true, nil
}

// SearchParams is the payload of a search.
type SearchParams struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

func normalizeSearch(p SearchParams) (SearchParams, error) {
	p.Query = textutil.NormalizeQuery(p.Query)
	if p.Query == "" {
		return p, services.Wrap(services.ErrValidation, "anilist", "search", "query is required", nil)
	}
	if p.Limit <= 0 {
		p.Limit = DefaultSearchLimit
	}
	return p, nil
}

// SearchAnimeTask searches AniList, stores unseen results, and logs the
// closest title match.
type SearchAnimeTask struct {
	scheduler.Base
	c      *Collector
	params SearchParams
}

// SearchTask builds a search.
func (c *Collector) SearchTask(query string, limit int) (*SearchAnimeTask, error) {
	params, err := normalizeSearch(SearchParams{Query: query, Limit: limit})
	if err != nil {
		return nil, err
	}
	base := scheduler.NewBase("anilist_search_"+uuid.NewString(), TaskSearch, scheduler.PriorityNormal)
	return &SearchAnimeTask{Base: base, c: c, params: params}, nil
}

func (c *Collector) restoreSearch(rec scheduler.Record) (scheduler.Task, error) {
	p, err := scheduler.DecodePayload[SearchParams](rec)
	if err != nil {
		return nil, err
	}
	if p, err = normalizeSearch(p); err != nil {
		return nil, err
	}
	return &SearchAnimeTask{Base: scheduler.RestoreBase(rec), c: c, params: p}, nil
}

// Params returns the normalized search parameters.
func (t *SearchAnimeTask) Params() SearchParams { return t.params }

func (t *SearchAnimeTask) Record() scheduler.Record { return t.RecordWith(t.params) }

func (t *SearchAnimeTask) Execute(ctx context.Context, res scheduler.Resources) error {
	logger := taskLogger(res)
	results, err := t.c.client.Search(ctx, t.params.Query, t.params.Limit)
	if err != nil {
		return err
	}

	titles := make([][]string, 0, len(results))
	stored := 0
	for _, media := range results {
		a := ToAnime(media)
		titles = append(titles, a.TitleStrings())
		if a.AniListID <= 0 {
			continue
		}
		_, found, err := anime.LoadAniList(ctx, res.Documents, a.AniListID)
		if err != nil {
			return fmt.Errorf("load stored anilist anime %d: %w", a.AniListID, err)
		}
		if found {
			continue
		}
		if err := anime.SaveAniList(ctx, res.Documents, a); err != nil {
			return fmt.Errorf("store anilist anime %d: %w", a.AniListID, err)
		}
		stored++
	}

	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "search_completed"),
		logging.String("query", t.params.Query),
		logging.Int("results", len(results)),
		logging.Int("stored", stored),
	}
	if best, score := textutil.BestMatch(t.params.Query, titles); best >= 0 {
		attrs = append(attrs,
			logging.Int("best_anilist_id", results[best].ID),
			logging.Float64("best_score", score),
		)
	}
	logger.Info("search completed", logging.Args(attrs...)...)
	return nil
}

type picturesPayload struct {
	AniListID int `json:"anilist_id"`
}

// FetchPicturesTask queues downloads for the cover, banner, and cast images
// of a stored AniList anime.
type FetchPicturesTask struct {
	scheduler.Base
	c         *Collector
	aniListID int
}

// PicturesTask builds the picture fan-out for an AniList id.
func (c *Collector) PicturesTask(id int) *FetchPicturesTask {
	base := scheduler.NewBase(fmt.Sprintf("fetch_anime_pictures_anilist_%d", id), TaskPictures, scheduler.PriorityLow)
	return &FetchPicturesTask{Base: base, c: c, aniListID: id}
}

func (c *Collector) restorePictures(rec scheduler.Record) (scheduler.Task, error) {
	p, err := scheduler.DecodePayload[picturesPayload](rec)
	if err != nil {
		return nil, err
	}
	if p.AniListID <= 0 {
		return nil, fmt.Errorf("invalid anilist id %d", p.AniListID)
	}
	if c.pictures == nil {
		return nil, fmt.Errorf("picture module is not enabled")
	}
	return &FetchPicturesTask{Base: scheduler.RestoreBase(rec), c: c, aniListID: p.AniListID}, nil
}

func (t *FetchPicturesTask) Record() scheduler.Record {
	return t.RecordWith(picturesPayload{AniListID: t.aniListID})
}

func (t *FetchPicturesTask) Execute(ctx context.Context, res scheduler.Resources) error {
	if t.c.pictures == nil {
		return services.Wrap(services.ErrConfiguration, "anilist", "pictures", "picture module is not enabled", nil)
	}
	a, found, err := anime.LoadAniList(ctx, res.Documents, t.aniListID)
	if err != nil {
		return fmt.Errorf("load stored anilist anime %d: %w", t.aniListID, err)
	}
	if !found {
		return services.Wrap(services.ErrNotFound, "anilist", "pictures", fmt.Sprintf("anilist anime %d is not stored", t.aniListID), nil)
	}
	queued, err := t.c.pictures.SubmitAll(ctx, res.Submitter, PictureRequests(a))
	if err != nil {
		return err
	}
	taskLogger(res).Info("anilist pictures queued",
		logging.String(logging.FieldEventType, "pictures_queued"),
		logging.Int("anilist_id", t.aniListID),
		logging.Int("count", queued),
	)
	return nil
}

// PictureRequests lists the distinct image URLs of an AniList record: cover
// sizes, banner, characters, and voice actors.
func PictureRequests(a anime.Anime) []picture.Request {
	seen := make(map[string]struct{})
	var out []picture.Request
	add := func(url, entityType string, entityID int, tags ...string) {
		if url == "" {
			return
		}
		if _, dup := seen[url]; dup {
			return
		}
		seen[url] = struct{}{}
		out = append(out, picture.Request{
			URL:        url,
			EntityType: entityType,
			EntityID:   strconv.Itoa(entityID),
			Tags:       append([]string{"anilist"}, tags...),
		})
	}

	add(a.Image.Large, "anilist_anime", a.AniListID, "cover", "large")
	add(a.Image.Medium, "anilist_anime", a.AniListID, "cover", "medium")
	add(a.Image.Small, "anilist_anime", a.AniListID, "cover", "small")
	add(a.Banner, "anilist_anime", a.AniListID, "banner")
	for _, ch := range a.Characters {
		add(ch.Character.Image.Best(), "anilist_character", ch.Character.ID, "character")
		for _, va := range ch.VoiceActors {
			add(va.Person.Image.Best(), "anilist_person", va.Person.ID, "voice_actor")
		}
	}
	return out
}
