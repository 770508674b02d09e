package scheduler

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrUnknownTask reports a record whose name has no registered factory.
var ErrUnknownTask = errors.New("unknown task name")

// Factory rebuilds a task from its persisted record.
type Factory func(rec Record) (Task, error)

// Registry maps task names to factories so Pending records left by a previous
// run can be re-admitted.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register installs the factory for name, replacing any previous one.
func (r *Registry) Register(name string, factory Factory) {
	if factory == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// Build reconstructs the task described by rec.
func (r *Registry) Build(rec Record) (Task, error) {
	r.mu.RLock()
	factory, ok := r.factories[rec.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTask, rec.Name)
	}
	task, err := factory(rec)
	if err != nil {
		return nil, fmt.Errorf("rebuild %s %s: %w", rec.Name, rec.ID, err)
	}
	return task, nil
}

// Names lists registered task names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
