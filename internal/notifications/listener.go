package notifications

import (
	"context"
	"log/slog"
	"time"

	"github.com/nexelor/media-collector/internal/logging"
	"github.com/nexelor/media-collector/internal/scheduler"
)

// Listener forwards finished tasks to a Service. Failures and completions
// are filtered independently.
type Listener struct {
	svc         Service
	failures    bool
	completions bool
	timeout     time.Duration
	logger      *slog.Logger
}

// NewListener wraps svc. A nil logger discards delivery errors.
func NewListener(svc Service, failures, completions bool, timeout time.Duration, logger *slog.Logger) *Listener {
	if logger == nil {
		logger = logging.NewNop()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Listener{svc: svc, failures: failures, completions: completions, timeout: timeout, logger: logger}
}

// TaskFinished implements scheduler.Listener.
func (l *Listener) TaskFinished(ctx context.Context, ev scheduler.Event) {
	var event Event
	switch {
	case ev.Status.State == scheduler.StateFailed && l.failures:
		event = EventTaskFailed
	case ev.Status.State == scheduler.StateCompleted && l.completions:
		event = EventTaskCompleted
	default:
		return
	}

	payload := Payload{
		"queue":     ev.Queue,
		"task_id":   ev.TaskID,
		"task_name": ev.TaskName,
		"priority":  ev.Priority.String(),
		"duration":  ev.Duration.Round(time.Millisecond).String(),
	}
	if ev.Err != nil {
		payload["error"] = ev.Err.Error()
	} else if ev.Status.Error != "" {
		payload["error"] = ev.Status.Error
	}

	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.timeout)
	defer cancel()
	if err := l.svc.Publish(sendCtx, event, payload); err != nil {
		logging.WarnWithContext(l.logger, "task notification failed", "notification_failed",
			logging.String("event", string(event)),
			logging.String(logging.FieldTaskID, ev.TaskID),
			logging.Error(err),
		)
	}
}
