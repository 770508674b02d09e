package picture

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/nexelor/media-collector/internal/httpclient"
	"github.com/nexelor/media-collector/internal/scheduler"
	"github.com/nexelor/media-collector/internal/services"
)

// ErrInvalidURL reports a picture request without an absolute http(s) URL.
var ErrInvalidURL = errors.New("picture url must be an absolute http or https url")

// Fetcher builds picture tasks bound to an HTTP client and a storage root.
type Fetcher struct {
	client *httpclient.Client
	dir    string
}

// NewFetcher returns a fetcher that downloads through client into dir.
func NewFetcher(client *httpclient.Client, dir string) (*Fetcher, error) {
	if client == nil {
		return nil, fmt.Errorf("picture fetcher requires an http client")
	}
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("picture fetcher requires a storage directory")
	}
	return &Fetcher{client: client, dir: dir}, nil
}

// Dir returns the storage root.
func (f *Fetcher) Dir() string { return f.dir }

// NewTask validates req and returns a task ready for submission.
func (f *Fetcher) NewTask(req Request) (*FetchPictureTask, error) {
	req.URL = strings.TrimSpace(req.URL)
	if err := validateURL(req.URL); err != nil {
		return nil, err
	}
	base := scheduler.NewBase("fetch_picture_"+uuid.NewString(), TaskName, scheduler.PriorityLow)
	return &FetchPictureTask{Base: base, fetcher: f, req: req}, nil
}

// Submit queues one download and returns its task id.
func (f *Fetcher) Submit(ctx context.Context, submitter scheduler.Submitter, req Request) (string, error) {
	task, err := f.NewTask(req)
	if err != nil {
		return "", err
	}
	if err := submitter.Submit(ctx, Queue, task); err != nil {
		return "", fmt.Errorf("submit picture %s: %w", req.URL, err)
	}
	return task.ID(), nil
}

// SubmitAll queues every request with a non-empty URL and returns the number
// queued. It stops at the first submission error.
func (f *Fetcher) SubmitAll(ctx context.Context, submitter scheduler.Submitter, reqs []Request) (int, error) {
	queued := 0
	for _, req := range reqs {
		if strings.TrimSpace(req.URL) == "" {
			continue
		}
		if _, err := f.Submit(ctx, submitter, req); err != nil {
			return queued, err
		}
		queued++
	}
	return queued, nil
}

// restore rebuilds a task from a persisted record.
func (f *Fetcher) restore(rec scheduler.Record) (scheduler.Task, error) {
	req, err := scheduler.DecodePayload[Request](rec)
	if err != nil {
		return nil, err
	}
	if err := validateURL(req.URL); err != nil {
		return nil, err
	}
	return &FetchPictureTask{Base: scheduler.RestoreBase(rec), fetcher: f, req: req}, nil
}

// Register installs the picture task factory.
func Register(registry *scheduler.Registry, f *Fetcher) {
	registry.Register(TaskName, f.restore)
}

func validateURL(raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return services.Wrap(services.ErrValidation, "picture", "validate url", fmt.Sprintf("%q", raw), ErrInvalidURL)
	}
	return nil
}
