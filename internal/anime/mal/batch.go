package mal

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/nexelor/media-collector/internal/anime"
	"github.com/nexelor/media-collector/internal/logging"
	"github.com/nexelor/media-collector/internal/scheduler"
	"github.com/nexelor/media-collector/internal/services"
)

type batchPayload struct {
	AnimeIDs []int `json:"anime_ids"`
}

// BatchFetchTask queues one FetchAnimeTask per id. The fetches run as
// separate tasks so each gets its own record and retry accounting.
type BatchFetchTask struct {
	scheduler.Base
	c   *Collector
	ids []int
}

func dedupeIDs(ids []int) ([]int, error) {
	seen := make(map[int]struct{}, len(ids))
	out := make([]int, 0, len(ids))
	for _, id := range ids {
		if err := validateID(id); err != nil {
			return nil, err
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no anime ids")
	}
	return out, nil
}

// BatchTask builds a batch over ids. Duplicates are dropped.
func (c *Collector) BatchTask(ids []int) (*BatchFetchTask, error) {
	unique, err := dedupeIDs(ids)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "mal", "batch", "", err)
	}
	base := scheduler.NewBase("mal_batch_"+uuid.NewString(), TaskBatch, scheduler.PriorityLow)
	return &BatchFetchTask{Base: base, c: c, ids: unique}, nil
}

func (c *Collector) restoreBatch(rec scheduler.Record) (scheduler.Task, error) {
	p, err := scheduler.DecodePayload[batchPayload](rec)
	if err != nil {
		return nil, err
	}
	unique, err := dedupeIDs(p.AnimeIDs)
	if err != nil {
		return nil, err
	}
	return &BatchFetchTask{Base: scheduler.RestoreBase(rec), c: c, ids: unique}, nil
}

// IDs returns the anime ids in submission order.
func (t *BatchFetchTask) IDs() []int { return append([]int(nil), t.ids...) }

func (t *BatchFetchTask) Record() scheduler.Record {
	return t.RecordWith(batchPayload{AnimeIDs: t.ids})
}

func (t *BatchFetchTask) Execute(ctx context.Context, res scheduler.Resources) error {
	logger := taskLogger(res)
	for i, id := range t.ids {
		task, err := t.c.FetchTask(FetchOptions{AnimeID: id})
		if err != nil {
			return err
		}
		if err := submit(ctx, res, anime.QueueMAL, task); err != nil {
			return fmt.Errorf("queued %d of %d fetches: %w", i, len(t.ids), err)
		}
	}
	logger.Info("batch queued",
		logging.String(logging.FieldEventType, "batch_queued"),
		logging.Int("count", len(t.ids)),
	)
	return nil
}
