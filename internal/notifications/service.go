package notifications

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/nexelor/media-collector/internal/config"
)

const userAgent = "media-collector/0.1.0"

// Event identifies the kind of notification being sent.
type Event string

const (
	EventTaskCompleted Event = "task_completed"
	EventTaskFailed    Event = "task_failed"
	EventTest          Event = "test"
)

// Payload carries event-specific data.
type Payload map[string]any

func (p Payload) text(key string) string {
	if p == nil {
		return ""
	}
	switch v := p[key].(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case fmt.Stringer:
		return strings.TrimSpace(v.String())
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

// Service publishes events.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds the configured sinks. The returned close function
// releases Redis connections and is safe to call when Redis is unused.
func NewService(cfg *config.Config) (Service, func() error, error) {
	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	var sinks multiService
	closeFn := func() error { return nil }
	if topic := strings.TrimSpace(cfg.Notifications.NtfyTopic); topic != "" {
		sinks = append(sinks, &ntfyService{endpoint: topic, client: &http.Client{Timeout: timeout}})
	}
	if url := strings.TrimSpace(cfg.Notifications.RedisURL); url != "" {
		redisSvc, err := newRedisService(url, cfg.Notifications.RedisChannel, timeout)
		if err != nil {
			return nil, nil, err
		}
		sinks = append(sinks, redisSvc)
		closeFn = redisSvc.Close
	}

	switch len(sinks) {
	case 0:
		return noopService{}, closeFn, nil
	case 1:
		return sinks[0], closeFn, nil
	default:
		return sinks, closeFn, nil
	}
}

type multiService []Service

func (m multiService) Publish(ctx context.Context, event Event, payload Payload) error {
	var errs []error
	for _, svc := range m {
		if err := svc.Publish(ctx, event, payload); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	msg, ok := format(event, payload)
	if !ok {
		return nil
	}
	return n.send(ctx, msg)
}

func format(event Event, payload Payload) (message, bool) {
	switch event {
	case EventTaskCompleted:
		body := fmt.Sprintf("✅ %s finished: %s", payload.text("task_name"), payload.text("task_id"))
		if d := payload.text("duration"); d != "" {
			body += " in " + d
		}
		return message{
			title: "media-collector - Task Complete",
			body:  body,
			tags:  []string{"media-collector", queueTag(payload), "completed"},
		}, true
	case EventTaskFailed:
		errText := payload.text("error")
		if errText == "" {
			errText = "unknown"
		}
		return message{
			title:    "media-collector - Task Failed",
			body:     fmt.Sprintf("❌ %s failed (%s): %s", payload.text("task_name"), payload.text("task_id"), errText),
			tags:     []string{"media-collector", queueTag(payload), "error"},
			priority: "high",
		}, true
	case EventTest:
		return message{
			title:    "media-collector - Test",
			body:     "🧪 Notification system test",
			tags:     []string{"media-collector", "test"},
			priority: "low",
		}, true
	default:
		return message{}, false
	}
}

func queueTag(payload Payload) string {
	if q := payload.text("queue"); q != "" {
		return q
	}
	return "task"
}

func (n *ntfyService) send(ctx context.Context, data message) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
