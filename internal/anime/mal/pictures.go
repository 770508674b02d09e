package mal

import (
	"context"
	"fmt"
	"slices"
	"strconv"

	"github.com/nexelor/media-collector/internal/anime"
	"github.com/nexelor/media-collector/internal/logging"
	"github.com/nexelor/media-collector/internal/picture"
	"github.com/nexelor/media-collector/internal/scheduler"
	"github.com/nexelor/media-collector/internal/services"
)

type animePicturesPayload struct {
	AnimeID int `json:"anime_id"`
}

// FetchAnimePicturesTask queues downloads for every image referenced by a
// stored anime: cover, artwork, characters, voice actors, and staff.
type FetchAnimePicturesTask struct {
	scheduler.Base
	c       *Collector
	animeID int
}

// AnimePicturesTask builds the picture fan-out for id.
func (c *Collector) AnimePicturesTask(id int) *FetchAnimePicturesTask {
	base := scheduler.NewBase(fmt.Sprintf("fetch_anime_pictures_%d", id), TaskAnimePictures, scheduler.PriorityLow)
	return &FetchAnimePicturesTask{Base: base, c: c, animeID: id}
}

func (c *Collector) restoreAnimePictures(rec scheduler.Record) (scheduler.Task, error) {
	p, err := scheduler.DecodePayload[animePicturesPayload](rec)
	if err != nil {
		return nil, err
	}
	if err := validateID(p.AnimeID); err != nil {
		return nil, err
	}
	if c.pictures == nil {
		return nil, fmt.Errorf("picture module is not enabled")
	}
	return &FetchAnimePicturesTask{Base: scheduler.RestoreBase(rec), c: c, animeID: p.AnimeID}, nil
}

func (t *FetchAnimePicturesTask) Record() scheduler.Record {
	return t.RecordWith(animePicturesPayload{AnimeID: t.animeID})
}

func (t *FetchAnimePicturesTask) Execute(ctx context.Context, res scheduler.Resources) error {
	if t.c.pictures == nil {
		return services.Wrap(services.ErrConfiguration, "mal", "pictures", "picture module is not enabled", nil)
	}
	a, found, err := anime.LoadMAL(ctx, res.Documents, t.animeID)
	if err != nil {
		return fmt.Errorf("load stored anime %d: %w", t.animeID, err)
	}
	if !found {
		return services.Wrap(services.ErrNotFound, "mal", "pictures", fmt.Sprintf("anime %d is not stored", t.animeID), nil)
	}

	reqs := PictureRequests(a)
	queued, err := t.c.pictures.SubmitAll(ctx, res.Submitter, reqs)
	if err != nil {
		return err
	}
	taskLogger(res).Info("anime pictures queued",
		logging.String(logging.FieldEventType, "pictures_queued"),
		logging.Int("anime_id", t.animeID),
		logging.Int("count", queued),
	)
	return nil
}

// PictureRequests lists every distinct image URL of a, tagged with what it
// depicts. Each URL appears once.
func PictureRequests(a anime.Anime) []picture.Request {
	seen := make(map[string]struct{})
	var out []picture.Request
	add := func(img anime.Image, entityType string, entityID int, tags ...string) {
		sizes := []struct{ url, tag string }{
			{img.Large, "large"},
			{img.Medium, "medium"},
			{img.Small, "small"},
		}
		for _, size := range sizes {
			if size.url == "" {
				continue
			}
			if _, dup := seen[size.url]; dup {
				continue
			}
			seen[size.url] = struct{}{}
			out = append(out, picture.Request{
				URL:        size.url,
				EntityType: entityType,
				EntityID:   strconv.Itoa(entityID),
				Tags:       slices.Concat([]string{"mal"}, tags, []string{size.tag}),
			})
		}
	}

	add(a.Image, "anime", a.MALID, "main")
	for i, img := range a.Pictures {
		add(img, "anime", a.MALID, "picture", strconv.Itoa(i))
	}
	for _, ch := range a.Characters {
		add(ch.Character.Image, "character", ch.Character.ID, "character")
		for _, va := range ch.VoiceActors {
			add(va.Person.Image, "person", va.Person.ID, "voice_actor")
		}
	}
	for _, s := range a.Staff {
		add(s.Person.Image, "person", s.Person.ID, "staff")
	}
	return out
}
