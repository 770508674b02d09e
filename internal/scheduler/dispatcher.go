package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrUnknownQueue reports a submission to a queue the dispatcher does not own.
var ErrUnknownQueue = errors.New("unknown queue")

// Dispatcher routes submissions to named queues. It is the Submitter handed to
// tasks for fan-out.
type Dispatcher struct {
	mu     sync.RWMutex
	queues map[string]*Queue
}

var _ Submitter = (*Dispatcher)(nil)

// NewDispatcher creates a dispatcher over the given queues.
func NewDispatcher(queues ...*Queue) *Dispatcher {
	d := &Dispatcher{queues: make(map[string]*Queue, len(queues))}
	for _, q := range queues {
		d.Add(q)
	}
	return d
}

// Add registers q under its name.
func (d *Dispatcher) Add(q *Queue) {
	if q == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.queues[q.Name()] = q
}

// Queue returns the queue registered under name.
func (d *Dispatcher) Queue(name string) (*Queue, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	q, ok := d.queues[name]
	return q, ok
}

// Names lists queue names in sorted order.
func (d *Dispatcher) Names() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	names := make([]string, 0, len(d.queues))
	for name := range d.queues {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Submit enqueues task on the named queue.
func (d *Dispatcher) Submit(ctx context.Context, queue string, task Task) error {
	q, ok := d.Queue(queue)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownQueue, queue)
	}
	return q.Enqueue(ctx, task)
}

// Shutdown signals every queue to stop.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.RLock()
	queues := make([]*Queue, 0, len(d.queues))
	for _, q := range d.queues {
		queues = append(queues, q)
	}
	d.mu.RUnlock()

	var errs []error
	for _, q := range queues {
		if err := q.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown %s: %w", q.Name(), err))
		}
	}
	return errors.Join(errs...)
}
