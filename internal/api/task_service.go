package api

import (
	"context"
	"errors"

	"github.com/nexelor/media-collector/internal/scheduler"
	"github.com/nexelor/media-collector/internal/store"
)

// TaskReader abstracts the record queries the API needs.
type TaskReader interface {
	ListTaskRecords(ctx context.Context, filter store.TaskFilter) ([]scheduler.Record, error)
	TaskRecord(ctx context.Context, id string) (scheduler.Record, error)
	TaskStats(ctx context.Context) (map[scheduler.State]int, error)
}

// TaskService exposes read-only task record operations returning API DTOs.
type TaskService struct {
	store TaskReader
}

// NewTaskService constructs a TaskService around the provided reader.
func NewTaskService(store TaskReader) *TaskService {
	if store == nil {
		return nil
	}
	return &TaskService{store: store}
}

// List returns records, newest first, optionally filtered by state.
func (s *TaskService) List(ctx context.Context, state scheduler.State, limit int) ([]Task, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	recs, err := s.store.ListTaskRecords(ctx, store.TaskFilter{State: state, Limit: limit})
	if err != nil {
		return nil, err
	}
	return FromRecords(recs), nil
}

// Stats returns record counts keyed by state name.
func (s *TaskService) Stats(ctx context.Context) (map[string]int, error) {
	if s == nil || s.store == nil {
		return MergeTaskStats(nil), nil
	}
	stats, err := s.store.TaskStats(ctx)
	if err != nil {
		return nil, err
	}
	return MergeTaskStats(stats), nil
}

// Describe fetches a single record. It returns nil when id is unknown.
func (s *TaskService) Describe(ctx context.Context, id string) (*Task, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	rec, err := s.store.TaskRecord(ctx, id)
	if errors.Is(err, store.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	dto := FromRecord(rec)
	return &dto, nil
}
