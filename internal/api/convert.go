package api

import (
	"github.com/nexelor/media-collector/internal/scheduler"
)

var taskStates = []scheduler.State{
	scheduler.StatePending,
	scheduler.StateRunning,
	scheduler.StateCompleted,
	scheduler.StateFailed,
}

// FromRecord converts a task record to its API representation.
func FromRecord(rec scheduler.Record) Task {
	dto := Task{
		ID:       rec.ID,
		Name:     rec.Name,
		Queue:    rec.Queue,
		Priority: rec.Priority.String(),
		Status:   string(rec.Status.State),
		Error:    rec.Status.Error,
	}
	if !rec.CreatedAt.IsZero() {
		dto.CreatedAt = rec.CreatedAt.UTC().Format(dateTimeFormat)
	}
	if !rec.UpdatedAt.IsZero() {
		dto.UpdatedAt = rec.UpdatedAt.UTC().Format(dateTimeFormat)
	}
	if len(rec.Payload) > 0 {
		dto.Payload = rec.Payload
	}
	return dto
}

// FromRecords converts a slice of records.
func FromRecords(recs []scheduler.Record) []Task {
	out := make([]Task, 0, len(recs))
	for _, rec := range recs {
		out = append(out, FromRecord(rec))
	}
	return out
}

// MergeTaskStats keys stats by state name, zero-filling missing states.
func MergeTaskStats(stats map[scheduler.State]int) map[string]int {
	out := make(map[string]int, len(taskStates))
	for _, state := range taskStates {
		out[string(state)] = stats[state]
	}
	for state, count := range stats {
		out[string(state)] = count
	}
	return out
}
