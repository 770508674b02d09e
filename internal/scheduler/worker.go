package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/nexelor/media-collector/internal/logging"
	"github.com/nexelor/media-collector/internal/metrics"
	"github.com/nexelor/media-collector/internal/services"
	"github.com/nexelor/media-collector/internal/tracing"
)

// DefaultAdmitWindow is how long a worker with pending work waits for a new
// submission before executing the top of its heap.
const DefaultAdmitWindow = 10 * time.Millisecond

const interruptedMessage = "interrupted before completion"

// RecordStore persists task records. Writes are upserts keyed by record ID
// and must refuse backwards status transitions.
type RecordStore interface {
	SaveTaskRecord(ctx context.Context, queue string, rec Record) error
	UpdateTaskStatus(ctx context.Context, id string, status Status) error
	TaskRecordsByState(ctx context.Context, queue string, state State) ([]Record, error)
}

// Event describes a task that reached a terminal status.
type Event struct {
	Queue    string
	TaskID   string
	TaskName string
	Priority Priority
	Status   Status
	Duration time.Duration
	Err      error
}

// Listener observes finished tasks.
type Listener interface {
	TaskFinished(ctx context.Context, event Event)
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(ctx context.Context, event Event)

func (f ListenerFunc) TaskFinished(ctx context.Context, event Event) { f(ctx, event) }

// Worker is the single executor for one Queue. It admits submissions into a
// priority heap and runs one task at a time.
type Worker struct {
	queue       *Queue
	records     RecordStore
	resources   Resources
	registry    *Registry
	listener    Listener
	admitWindow time.Duration
	logger      *slog.Logger

	heap taskHeap
	seq  uint64
}

// WorkerOption configures a Worker.
type WorkerOption func(*Worker)

// WithRegistry enables restoring Pending records at startup.
func WithRegistry(registry *Registry) WorkerOption {
	return func(w *Worker) { w.registry = registry }
}

// WithListener registers a finished-task observer.
func WithListener(listener Listener) WorkerOption {
	return func(w *Worker) { w.listener = listener }
}

// WithAdmitWindow overrides DefaultAdmitWindow.
func WithAdmitWindow(d time.Duration) WorkerOption {
	return func(w *Worker) {
		if d > 0 {
			w.admitWindow = d
		}
	}
}

// WithLogger sets the worker logger.
func WithLogger(logger *slog.Logger) WorkerOption {
	return func(w *Worker) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// NewWorker pairs a worker with queue. records may be nil, in which case
// nothing is persisted.
func NewWorker(queue *Queue, records RecordStore, resources Resources, opts ...WorkerOption) *Worker {
	w := &Worker{
		queue:       queue,
		records:     records,
		resources:   resources,
		admitWindow: DefaultAdmitWindow,
		logger:      logging.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = logging.NewComponentLogger(w.logger, "scheduler").With(logging.String(logging.FieldQueue, queue.Name()))
	return w
}

// Run restores persisted state, then executes tasks until the queue's
// shutdown sentinel arrives (returns nil) or ctx is cancelled (returns
// ctx.Err()). Admitted tasks that have not started are abandoned either way
// and keep their Pending record.
func (w *Worker) Run(ctx context.Context) error {
	w.restore(ctx)
	w.logger.Info("worker started", logging.String(logging.FieldEventType, "worker_started"))

	for {
		if w.heap.Len() == 0 {
			select {
			case env := <-w.queue.inbox:
				if env.shutdown {
					w.stop("shutdown")
					return nil
				}
				w.admit(ctx, env.task)
			case <-ctx.Done():
				w.stop("context cancelled")
				return ctx.Err()
			}
			continue
		}

		timer := time.NewTimer(w.admitWindow)
		select {
		case env := <-w.queue.inbox:
			timer.Stop()
			if env.shutdown {
				w.stop("shutdown")
				return nil
			}
			w.admit(ctx, env.task)
			if w.drainInbox(ctx) {
				w.stop("shutdown")
				return nil
			}
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			w.stop("context cancelled")
			return ctx.Err()
		}

		task := w.heap.pop()
		metrics.QueueDepth.WithLabelValues(w.queue.Name()).Set(float64(w.heap.Len()))
		w.execute(ctx, task)
	}
}

// drainInbox admits everything already waiting without blocking. It reports
// whether the shutdown sentinel was seen.
func (w *Worker) drainInbox(ctx context.Context) bool {
	for {
		select {
		case env := <-w.queue.inbox:
			if env.shutdown {
				return true
			}
			w.admit(ctx, env.task)
		default:
			return false
		}
	}
}

func (w *Worker) admit(ctx context.Context, task Task) {
	w.push(task)
	w.persist(ctx, task, Pending())
	w.logger.Debug("task admitted",
		logging.String(logging.FieldEventType, "task_admitted"),
		logging.String(logging.FieldTaskID, task.ID()),
		logging.String(logging.FieldTaskName, task.Name()),
		logging.String("priority", task.Priority().String()),
		logging.Int("heap_size", w.heap.Len()),
	)
}

func (w *Worker) push(task Task) {
	w.seq++
	w.heap.push(task, w.seq)
	metrics.QueueDepth.WithLabelValues(w.queue.Name()).Set(float64(w.heap.Len()))
}

func (w *Worker) stop(reason string) {
	abandoned := w.heap.Len()
	if abandoned > 0 {
		metrics.TasksAbandoned.WithLabelValues(w.queue.Name()).Add(float64(abandoned))
		logging.WarnWithContext(w.logger, "worker stopping with admitted tasks", "tasks_abandoned",
			logging.Int("abandoned", abandoned),
			logging.String("reason", reason),
			logging.String(logging.FieldErrorHint, "abandoned tasks keep their Pending record and are restored on next start"),
			logging.String(logging.FieldImpact, "admitted tasks were not executed"),
		)
	}
	w.heap = nil
	metrics.QueueDepth.WithLabelValues(w.queue.Name()).Set(0)
	w.logger.Info("worker stopped",
		logging.String(logging.FieldEventType, "worker_stopped"),
		logging.String("reason", reason),
	)
}

func (w *Worker) execute(ctx context.Context, task Task) {
	ctx = services.WithQueue(ctx, w.queue.Name())
	ctx = services.WithTaskID(ctx, task.ID())
	ctx = services.WithTaskName(ctx, task.Name())
	ctx, span := tracing.TaskSpan(ctx, w.queue.Name(), task.ID(), task.Name())
	logger := logging.WithContext(ctx, logging.NewComponentLogger(w.resources.Logger, task.Name()))

	w.persist(ctx, task, Running())
	w.logger.Info("task started",
		logging.String(logging.FieldEventType, "task_started"),
		logging.String(logging.FieldTaskID, task.ID()),
		logging.String(logging.FieldTaskName, task.Name()),
		logging.String("priority", task.Priority().String()),
	)

	res := w.resources
	res.Logger = logger
	start := time.Now()
	w.queue.beginExecute()
	err := w.invoke(ctx, task, res)
	followUps := w.queue.endExecute()
	duration := time.Since(start)
	tracing.EndSpan(span, err)

	status := Completed()
	if err != nil {
		status = Failed(err.Error())
	}
	w.persist(ctx, task, status)

	metrics.TasksTotal.WithLabelValues(w.queue.Name(), task.Name(), string(status.State)).Inc()
	metrics.TaskDurationSeconds.WithLabelValues(w.queue.Name(), task.Name()).Observe(duration.Seconds())

	if err != nil {
		logging.ErrorWithContext(w.logger, "task failed", "task_failed",
			logging.String(logging.FieldTaskID, task.ID()),
			logging.String(logging.FieldTaskName, task.Name()),
			logging.Duration("duration", duration),
			logging.String("failure_kind", services.FailureKind(err)),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, failureHint(err)),
		)
	} else {
		w.logger.Info("task completed",
			logging.String(logging.FieldEventType, "task_completed"),
			logging.String(logging.FieldTaskID, task.ID()),
			logging.String(logging.FieldTaskName, task.Name()),
			logging.Duration("duration", duration),
		)
	}

	for _, next := range followUps {
		w.admit(ctx, next)
	}

	if w.listener != nil {
		w.listener.TaskFinished(ctx, Event{
			Queue:    w.queue.Name(),
			TaskID:   task.ID(),
			TaskName: task.Name(),
			Priority: task.Priority(),
			Status:   status,
			Duration: duration,
			Err:      err,
		})
	}
}

// invoke runs Execute, converting a panic into a failure.
func (w *Worker) invoke(ctx context.Context, task Task, res Resources) (err error) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("task panicked",
				logging.String(logging.FieldEventType, "task_panic"),
				logging.String(logging.FieldTaskID, task.ID()),
				logging.Any("panic", r),
				logging.String("stack", string(debug.Stack())),
			)
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()
	return task.Execute(ctx, res)
}

// persist writes the record best-effort; a store failure never stops the
// worker. Writes outlive cancellation of ctx so a task interrupted by
// shutdown still records its terminal status.
func (w *Worker) persist(ctx context.Context, task Task, status Status) {
	if w.records == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	rec := task.Record()
	rec.Status = status
	rec.Queue = w.queue.Name()
	if err := w.records.SaveTaskRecord(ctx, w.queue.Name(), rec); err != nil {
		logging.WarnWithContext(w.logger, "task record not persisted", "task_persist_failed",
			logging.String(logging.FieldTaskID, task.ID()),
			logging.String("status", status.String()),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check database access"),
			logging.String(logging.FieldImpact, "task audit record may be stale"),
		)
	}
}

// restore fails records left Running by a previous process and re-admits
// Pending ones that the registry can rebuild.
func (w *Worker) restore(ctx context.Context) {
	if w.records == nil {
		return
	}
	running, err := w.records.TaskRecordsByState(ctx, w.queue.Name(), StateRunning)
	if err != nil {
		logging.WarnWithContext(w.logger, "stale task scan failed", "task_restore_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "interrupted tasks keep Running status"),
		)
	}
	for _, rec := range running {
		if err := w.records.UpdateTaskStatus(ctx, rec.ID, Failed(interruptedMessage)); err != nil {
			w.logger.Warn("mark interrupted task failed", logging.String(logging.FieldTaskID, rec.ID), logging.Error(err))
		}
	}

	pending, err := w.records.TaskRecordsByState(ctx, w.queue.Name(), StatePending)
	if err != nil {
		logging.WarnWithContext(w.logger, "pending task scan failed", "task_restore_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "pending tasks from previous run are not restored"),
		)
		return
	}

	restored, auditOnly := 0, 0
	for _, rec := range pending {
		if w.registry == nil {
			auditOnly++
			continue
		}
		task, err := w.registry.Build(rec)
		if err != nil {
			if errors.Is(err, ErrUnknownTask) {
				auditOnly++
				continue
			}
			if updErr := w.records.UpdateTaskStatus(ctx, rec.ID, Failed(err.Error())); updErr != nil {
				w.logger.Warn("mark unrestorable task failed", logging.String(logging.FieldTaskID, rec.ID), logging.Error(updErr))
			}
			continue
		}
		w.push(task)
		restored++
	}

	if len(running) > 0 || len(pending) > 0 {
		w.logger.Info("persisted tasks scanned",
			logging.String(logging.FieldEventType, "task_restore"),
			logging.Int("interrupted", len(running)),
			logging.Int("pending", len(pending)),
			logging.Int("restored", restored),
			logging.Int("audit_only", auditOnly),
		)
	}
}

func failureHint(err error) string {
	switch services.FailureKind(err) {
	case "not_found":
		return "verify the requested id exists upstream"
	case "transient":
		return "upstream is throttling or unreachable; resubmit later"
	case "validation":
		return "upstream payload did not match the expected shape"
	default:
		return "check task logs for details"
	}
}
