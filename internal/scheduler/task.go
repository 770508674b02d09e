package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Priority orders tasks within a queue. Higher values run first.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityNormal
	PriorityHigh
	PriorityCritical
)

var priorityNames = [...]string{"Low", "Normal", "High", "Critical"}

func (p Priority) String() string {
	if p < PriorityLow || p > PriorityCritical {
		return fmt.Sprintf("Priority(%d)", int(p))
	}
	return priorityNames[p]
}

// ParsePriority accepts a priority name, case-insensitively.
func ParsePriority(value string) (Priority, error) {
	for i, name := range priorityNames {
		if strings.EqualFold(strings.TrimSpace(value), name) {
			return Priority(i), nil
		}
	}
	return PriorityLow, fmt.Errorf("unknown priority %q", value)
}

func (p Priority) MarshalJSON() ([]byte, error) {
	if p < PriorityLow || p > PriorityCritical {
		return nil, fmt.Errorf("invalid priority %d", int(p))
	}
	return json.Marshal(p.String())
}

func (p *Priority) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return fmt.Errorf("priority: %w", err)
	}
	parsed, err := ParsePriority(name)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Task is a unit of work executed at most once by a queue's worker.
// Implementations are immutable after submission except for state private to
// Execute.
type Task interface {
	ID() string
	Name() string
	Priority() Priority
	CreatedAt() time.Time
	// Record returns the persisted projection of the task. The Status field
	// is owned by the worker and ignored.
	Record() Record
	Execute(ctx context.Context, res Resources) error
}

// Documents is the document-store port tasks persist results through.
type Documents interface {
	Upsert(ctx context.Context, collection, key string, doc any) error
	Get(ctx context.Context, collection, key string, dst any) (bool, error)
	Delete(ctx context.Context, collection, key string) (bool, error)
	Count(ctx context.Context, collection string) (int64, error)
}

// Submitter enqueues follow-up tasks onto a named queue.
type Submitter interface {
	Submit(ctx context.Context, queue string, task Task) error
}

// Resources are the shared collaborators handed to every Execute call.
type Resources struct {
	Documents Documents
	HTTP      *http.Client
	Submitter Submitter
	Logger    *slog.Logger
}

// Base carries the identity fields every task shares. Concrete tasks embed it.
type Base struct {
	id        string
	name      string
	priority  Priority
	createdAt time.Time
}

// NewBase stamps a task identity with the current time.
func NewBase(id, name string, priority Priority) Base {
	return Base{id: id, name: name, priority: priority, createdAt: time.Now().UTC()}
}

// RestoreBase rebuilds a task identity from a persisted record.
func RestoreBase(rec Record) Base {
	return Base{id: rec.ID, name: rec.Name, priority: rec.Priority, createdAt: rec.CreatedAt}
}

func (b Base) ID() string           { return b.id }
func (b Base) Name() string         { return b.name }
func (b Base) Priority() Priority   { return b.priority }
func (b Base) CreatedAt() time.Time { return b.createdAt }

// RecordWith builds a Pending record whose payload is params encoded as JSON.
func (b Base) RecordWith(params any) Record {
	payload, err := json.Marshal(params)
	if err != nil {
		payload = []byte("null")
	}
	return Record{
		ID:        b.id,
		Name:      b.name,
		Priority:  b.priority,
		Status:    Pending(),
		CreatedAt: b.createdAt,
		Payload:   payload,
	}
}
