package mal

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/nexelor/media-collector/internal/anime"
	"github.com/nexelor/media-collector/internal/logging"
	"github.com/nexelor/media-collector/internal/scheduler"
	"github.com/nexelor/media-collector/internal/services"
	"github.com/nexelor/media-collector/internal/textutil"
)

// SearchParams is the payload of a search.
type SearchParams struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

// SearchAnimeTask searches MyAnimeList and stores results not already known.
type SearchAnimeTask struct {
	scheduler.Base
	c      *Collector
	params SearchParams
}

func normalizeSearch(p SearchParams) (SearchParams, error) {
	p.Query = textutil.NormalizeQuery(p.Query)
	if p.Query == "" {
		return p, services.Wrap(services.ErrValidation, "mal", "search", "query is required", nil)
	}
	if p.Limit <= 0 {
		p.Limit = DefaultSearchLimit
	}
	return p, nil
}

// SearchTask builds a search. An empty limit means DefaultSearchLimit.
func (c *Collector) SearchTask(query string, limit int) (*SearchAnimeTask, error) {
	params, err := normalizeSearch(SearchParams{Query: query, Limit: limit})
	if err != nil {
		return nil, err
	}
	base := scheduler.NewBase("mal_search_"+uuid.NewString(), TaskSearch, scheduler.PriorityNormal)
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

	stored := 0
	for _, result := range results {
		if validateID(result.ID) != nil {
			continue
		}
		_, found, err := anime.LoadMAL(ctx, res.Documents, result.ID)
		if err != nil {
			return fmt.Errorf("load stored anime %d: %w", result.ID, err)
		}
		if found {
			continue
		}
		if err := anime.SaveMAL(ctx, res.Documents, ToAnime(result)); err != nil {
			return fmt.Errorf("store anime %d: %w", result.ID, err)
		}
		stored++
	}
	logger.Info("search completed",
		logging.String(logging.FieldEventType, "search_completed"),
		logging.String("query", t.params.Query),
		logging.Int("results", len(results)),
		logging.Int("stored", stored),
	)
	return nil
}
