package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/nexelor/media-collector/internal/httpclient"
	"github.com/nexelor/media-collector/internal/ratelimit"
)

// clientRate keeps the CLI from hammering its own daemon.
const clientRate = 20

// Client talks to a running daemon's REST API.
type Client struct {
	http    *httpclient.Client
	baseURL string
	token   string
}

// NewClient builds a client for the daemon at bind ("host:port" or a full
// URL). Requests are not retried.
func NewClient(bind, token string, opts ...httpclient.Option) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(bind), "/")
	if base == "" {
		return nil, errors.New("api bind address is required")
	}
	if !strings.Contains(base, "://") {
		base = "http://" + base
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("parse api address: %w", err)
	}
	limiter, err := ratelimit.New("api-client", clientRate)
	if err != nil {
		return nil, err
	}
	opts = append([]httpclient.Option{httpclient.WithRetryPolicy(httpclient.RetryPolicy{})}, opts...)
	hc, err := httpclient.New("api-client", limiter, opts...)
	if err != nil {
		return nil, err
	}
	return &Client{http: hc, baseURL: base, token: strings.TrimSpace(token)}, nil
}

func (c *Client) request() httpclient.RequestConfig {
	rc := httpclient.NewRequestConfig()
	if c.token != "" {
		rc = rc.WithBearerToken(c.token)
	}
	return rc
}

// Enqueue posts body to path and returns the daemon's acknowledgement.
func (c *Client) Enqueue(ctx context.Context, path string, body any) (TaskQueuedResponse, error) {
	resp, err := httpclient.PostDecoded[TaskQueuedResponse](ctx, c.http, c.baseURL+path, body, c.request())
	return resp, daemonError(err)
}

// Health checks daemon liveness.
func (c *Client) Health(ctx context.Context) (HealthResponse, error) {
	resp, err := httpclient.FetchDecoded[HealthResponse](ctx, c.http, c.baseURL+"/health", c.request())
	return resp, daemonError(err)
}

// Stats fetches aggregate counters.
func (c *Client) Stats(ctx context.Context) (StatsResponse, error) {
	resp, err := httpclient.FetchDecoded[StatsResponse](ctx, c.http, c.baseURL+"/stats", c.request())
	return resp, daemonError(err)
}

// daemonError surfaces the daemon's ErrorResponse message when present.
func daemonError(err error) error {
	if err == nil {
		return nil
	}
	var reqErr *httpclient.Error
	if errors.As(err, &reqErr) && reqErr.Body != "" {
		var body ErrorResponse
		if json.Unmarshal([]byte(reqErr.Body), &body) == nil && body.Error != "" {
			return fmt.Errorf("daemon returned %d: %s: %w", reqErr.Status, body.Error, err)
		}
	}
	return err
}
