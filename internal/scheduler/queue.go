package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/nexelor/media-collector/internal/services"
)

// ErrQueueClosed is returned by Enqueue after Shutdown.
var ErrQueueClosed = errors.New("queue closed")

// DefaultCapacity is the inbox size used when none is configured.
const DefaultCapacity = 1000

type envelope struct {
	task     Task
	shutdown bool
}

// Queue is the submission side of a queue/worker pair. Its bounded inbox is
// the only backpressure: Enqueue blocks while the inbox is full.
//
// A task running on this queue's worker that submits back to the same queue
// never touches the inbox. Its submissions are buffered on the worker side
// and admitted once Execute returns, so a fan-out larger than the inbox
// cannot wedge the worker on its own backpressure.
type Queue struct {
	name    string
	inbox   chan envelope
	closing chan struct{}
	once    sync.Once

	mu        sync.RWMutex
	closed    bool
	senders   sync.WaitGroup
	executing bool
	local     []Task
}

// NewQueue creates a queue whose inbox holds capacity pending submissions.
func NewQueue(name string, capacity int) *Queue {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Queue{
		name:    name,
		inbox:   make(chan envelope, capacity),
		closing: make(chan struct{}),
	}
}

// Name returns the queue name.
func (q *Queue) Name() string { return q.name }

// Pending returns the number of submissions not yet admitted by the worker.
func (q *Queue) Pending() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return len(q.inbox) + len(q.local)
}

// Enqueue hands task to the worker, transferring ownership.
func (q *Queue) Enqueue(ctx context.Context, task Task) error {
	if task == nil {
		return fmt.Errorf("queue %s: nil task", q.name)
	}
	if origin, ok := services.QueueFromContext(ctx); ok && origin == q.name {
		if handled, err := q.enqueueLocal(task); handled {
			return err
		}
	}

	q.mu.RLock()
	if q.closed {
		q.mu.RUnlock()
		return fmt.Errorf("queue %s: %w", q.name, ErrQueueClosed)
	}
	q.senders.Add(1)
	q.mu.RUnlock()
	defer q.senders.Done()

	select {
	case q.inbox <- envelope{task: task}:
		return nil
	case <-q.closing:
		return fmt.Errorf("queue %s: %w", q.name, ErrQueueClosed)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// enqueueLocal buffers task while the worker is executing. It reports false
// when the worker is idle and the inbox should be used instead.
func (q *Queue) enqueueLocal(task Task) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.executing {
		return false, nil
	}
	if q.closed {
		return true, fmt.Errorf("queue %s: %w", q.name, ErrQueueClosed)
	}
	q.local = append(q.local, task)
	return true, nil
}

// beginExecute marks the worker busy so self-submissions are buffered.
func (q *Queue) beginExecute() {
	q.mu.Lock()
	q.executing = true
	q.mu.Unlock()
}

// endExecute clears the busy mark and returns the buffered self-submissions
// in submission order.
func (q *Queue) endExecute() []Task {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.executing = false
	local := q.local
	q.local = nil
	return local
}

// Shutdown stops admission and signals the worker to stop after the
// submissions already in the inbox. Every Enqueue that returned nil lands in
// the inbox ahead of the stop signal. Tasks admitted but not yet executed are
// abandoned by the worker. Calling Shutdown again is a no-op.
func (q *Queue) Shutdown(ctx context.Context) error {
	var err error
	q.once.Do(func() {
		q.mu.Lock()
		q.closed = true
		close(q.closing)
		q.mu.Unlock()

		// In-flight senders either complete their send or observe closing.
		q.senders.Wait()

		select {
		case q.inbox <- envelope{shutdown: true}:
		case <-ctx.Done():
			err = ctx.Err()
		}
	})
	return err
}

// Closed reports whether Shutdown has been called.
func (q *Queue) Closed() bool {
	select {
	case <-q.closing:
		return true
	default:
		return false
	}
}
