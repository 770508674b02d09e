package mal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nexelor/media-collector/internal/anime"
	"github.com/nexelor/media-collector/internal/anime/jikan"
	"github.com/nexelor/media-collector/internal/logging"
	"github.com/nexelor/media-collector/internal/scheduler"
	"github.com/nexelor/media-collector/internal/services"
)

// ExtendedOptions selects which Jikan resources to collect. With nothing
// selected, every resource is collected.
type ExtendedOptions struct {
	AnimeID    int  `json:"anime_id"`
	Characters bool `json:"fetch_characters"`
	Staff      bool `json:"fetch_staff"`
	Episodes   bool `json:"fetch_episodes"`
	Pictures   bool `json:"fetch_pictures"`
	Statistics bool `json:"fetch_statistics"`
}

func (o ExtendedOptions) normalized() ExtendedOptions {
	if !o.Characters && !o.Staff && !o.Episodes && !o.Pictures && !o.Statistics {
		o.Characters, o.Staff, o.Episodes, o.Pictures, o.Statistics = true, true, true, true, true
	}
	return o
}

// FetchExtendedTask adds characters, staff, episodes, artwork, and
// statistics from Jikan to a stored anime.
type FetchExtendedTask struct {
	scheduler.Base
	c    *Collector
	opts ExtendedOptions
}

// ExtendedTask builds an extended-data fetch. The anime must already be
// stored when the task runs.
func (c *Collector) ExtendedTask(opts ExtendedOptions) (*FetchExtendedTask, error) {
	if err := validateID(opts.AnimeID); err != nil {
		return nil, services.Wrap(services.ErrValidation, "mal", "extended", "", err)
	}
	if c.jikan == nil {
		return nil, services.Wrap(services.ErrConfiguration, "mal", "extended", "jikan source is not enabled", nil)
	}
	base := scheduler.NewBase(fmt.Sprintf("fetch_extended_%d", opts.AnimeID), TaskExtended, scheduler.PriorityLow)
	return &FetchExtendedTask{Base: base, c: c, opts: opts.normalized()}, nil
}

func (c *Collector) restoreExtended(rec scheduler.Record) (scheduler.Task, error) {
	opts, err := scheduler.DecodePayload[ExtendedOptions](rec)
	if err != nil {
		return nil, err
	}
	if err := validateID(opts.AnimeID); err != nil {
		return nil, err
	}
	if c.jikan == nil {
		return nil, fmt.Errorf("jikan source is not enabled")
	}
	return &FetchExtendedTask{Base: scheduler.RestoreBase(rec), c: c, opts: opts.normalized()}, nil
}

// Options returns the effective selection.
func (t *FetchExtendedTask) Options() ExtendedOptions { return t.opts }

func (t *FetchExtendedTask) Record() scheduler.Record { return t.RecordWith(t.opts) }

// Execute stores whatever was collected even when some resources fail; the
// failures are then reported together.
func (t *FetchExtendedTask) Execute(ctx context.Context, res scheduler.Resources) error {
	logger := taskLogger(res)
	id := t.opts.AnimeID

	a, found, err := anime.LoadMAL(ctx, res.Documents, id)
	if err != nil {
		return fmt.Errorf("load stored anime %d: %w", id, err)
	}
	if !found {
		return services.Wrap(services.ErrNotFound, "mal", "extended", fmt.Sprintf("anime %d is not stored; fetch it first", id), nil)
	}

	var errs []error
	collected := make([]string, 0, 5)
	record := func(part string, err error) {
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", part, err))
			return
		}
		collected = append(collected, part)
	}

	if t.opts.Characters {
		entries, err := t.c.jikan.Characters(ctx, id)
		if err == nil {
			a.Characters = jikan.ConvertCharacters(entries)
		}
		record("characters", err)
	}
	if t.opts.Staff {
		entries, err := t.c.jikan.Staff(ctx, id)
		if err == nil {
			a.Staff = jikan.ConvertStaff(entries)
		}
		record("staff", err)
	}
	if t.opts.Episodes {
		entries, err := t.c.jikan.Episodes(ctx, id)
		// A later page failing still yields the earlier pages.
		if len(entries) > 0 {
			a.Episodes = jikan.ConvertEpisodes(entries)
		}
		record("episodes", err)
	}
	if t.opts.Pictures {
		entries, err := t.c.jikan.Pictures(ctx, id)
		if err == nil {
			if pics := jikan.ConvertPictures(entries); len(pics) > 0 {
				a.Pictures = pics
			}
		}
		record("pictures", err)
	}
	if t.opts.Statistics {
		stats, err := t.c.jikan.Statistics(ctx, id)
		if err == nil {
			a.Statistics = jikan.ConvertStatistics(stats)
		}
		record("statistics", err)
	}

	if len(collected) > 0 || len(a.Episodes) > 0 {
		now := time.Now().UTC()
		a.ExtendedAt = &now
		a.AddSource(anime.SourceJikan)
		if err := anime.SaveMAL(ctx, res.Documents, a); err != nil {
			return fmt.Errorf("store anime %d: %w", id, err)
		}
	}

	logger.Info("extended data collected",
		logging.String(logging.FieldEventType, "extended_collected"),
		logging.Int("anime_id", id),
		logging.Any("collected", collected),
		logging.Int("characters", len(a.Characters)),
		logging.Int("staff", len(a.Staff)),
		logging.Int("episodes", len(a.Episodes)),
		logging.Int("failures", len(errs)),
	)
	return errors.Join(errs...)
}
