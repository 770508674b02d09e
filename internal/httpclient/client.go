package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/nexelor/media-collector/internal/logging"
	"github.com/nexelor/media-collector/internal/metrics"
	"github.com/nexelor/media-collector/internal/ratelimit"
	"github.com/nexelor/media-collector/internal/tracing"
)

const (
	// DefaultUserAgent identifies outbound requests.
	DefaultUserAgent = "media-collector/0.1.0"
	maxErrorBody     = 4096
)

// Client issues rate-limited GET/POST requests with classification-driven
// retry. Every attempt, including retries, first takes a permit from the
// shared limiter.
type Client struct {
	name       string
	limiter    *ratelimit.Limiter
	httpClient *http.Client
	policy     RetryPolicy
	userAgent  string
	headers    http.Header
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithRetryPolicy overrides the default retry policy.
func WithRetryPolicy(policy RetryPolicy) Option {
	return func(c *Client) {
		c.policy = policy
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(agent string) Option {
	return func(c *Client) {
		if agent = strings.TrimSpace(agent); agent != "" {
			c.userAgent = agent
		}
	}
}

// WithDefaultHeader adds a header sent on every request.
func WithDefaultHeader(key, value string) Option {
	return func(c *Client) {
		c.headers.Set(key, value)
	}
}

// WithLogger sets the logger used for attempt diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a client named for logs and metrics, gated by limiter.
func New(name string, limiter *ratelimit.Limiter, opts ...Option) (*Client, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("http client name required")
	}
	if limiter == nil {
		return nil, fmt.Errorf("http client %q: rate limiter required", name)
	}
	c := &Client{
		name:       name,
		limiter:    limiter,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		policy:     DefaultRetryPolicy(),
		userAgent:  DefaultUserAgent,
		headers:    http.Header{},
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logging.NewComponentLogger(c.logger, "http."+name)
	return c, nil
}

// Name returns the client name.
func (c *Client) Name() string { return c.name }

// Limiter returns the shared limiter gating this client.
func (c *Client) Limiter() *ratelimit.Limiter { return c.limiter }

// HTTPClient returns the underlying transport client.
func (c *Client) HTTPClient() *http.Client { return c.httpClient }

// Payload is a successful raw response.
type Payload struct {
	Body        []byte
	ContentType string
}

// FetchDecoded GETs url and decodes the JSON body into T.
func FetchDecoded[T any](ctx context.Context, c *Client, url string, rc RequestConfig) (T, error) {
	var out T
	payload, err := c.execute(ctx, http.MethodGet, url, nil, rc)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(payload.Body, &out); err != nil {
		return out, c.decodeError(http.MethodGet, url, err)
	}
	return out, nil
}

// PostDecoded POSTs body as JSON to url and decodes the JSON response into T.
func PostDecoded[T any](ctx context.Context, c *Client, url string, body any, rc RequestConfig) (T, error) {
	var out T
	encoded, err := json.Marshal(body)
	if err != nil {
		return out, fmt.Errorf("%s: encode request body: %w", c.name, err)
	}
	payload, err := c.execute(ctx, http.MethodPost, url, encoded, rc.WithHeader("Content-Type", "application/json"))
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(payload.Body, &out); err != nil {
		return out, c.decodeError(http.MethodPost, url, err)
	}
	return out, nil
}

// FetchBytes GETs url and returns the raw body.
func (c *Client) FetchBytes(ctx context.Context, url string, rc RequestConfig) (Payload, error) {
	return c.execute(ctx, http.MethodGet, url, nil, rc)
}

func (c *Client) decodeError(method, url string, err error) error {
	metrics.HTTPAttempts.WithLabelValues(c.name, string(KindDecode)).Inc()
	return &Error{Kind: KindDecode, Client: c.name, Method: method, URL: url, Status: http.StatusOK, Err: err}
}

func (c *Client) execute(ctx context.Context, method, url string, body []byte, rc RequestConfig) (Payload, error) {
	policy := c.policy
	if rc.policy != nil {
		policy = *rc.policy
	}
	logger := logging.WithContext(ctx, c.logger)

	retries := 0
	for attempt := 1; ; attempt++ {
		if err := c.limiter.Acquire(ctx); err != nil {
			return Payload{}, &Error{Kind: KindTransport, Client: c.name, Method: method, URL: url, Attempts: attempt - 1, Err: err}
		}

		resp, latency, err := c.send(ctx, method, url, body, rc, attempt)
		if err != nil {
			metrics.HTTPAttempts.WithLabelValues(c.name, string(KindTransport)).Inc()
			logger.Debug("http attempt failed",
				logging.String(logging.FieldEventType, "http_failure"),
				logging.String("url", url),
				logging.Int("attempt", attempt),
				logging.Duration("latency", latency),
				logging.Error(err),
			)
			return Payload{}, &Error{Kind: KindTransport, Client: c.name, Method: method, URL: url, Attempts: attempt, Err: err}
		}

		logger.Debug("http attempt",
			logging.String(logging.FieldEventType, "http_attempt"),
			logging.String("method", method),
			logging.String("url", url),
			logging.Int("attempt", attempt),
			logging.Int("status", resp.StatusCode),
			logging.Duration("latency", latency),
		)

		switch resp.StatusCode {
		case http.StatusOK:
			data, readErr := io.ReadAll(resp.Body)
			resp.Body.Close()
			if readErr != nil {
				metrics.HTTPAttempts.WithLabelValues(c.name, string(KindTransport)).Inc()
				return Payload{}, &Error{Kind: KindTransport, Client: c.name, Method: method, URL: url, Status: resp.StatusCode, Attempts: attempt, Err: fmt.Errorf("read body: %w", readErr)}
			}
			metrics.HTTPAttempts.WithLabelValues(c.name, "ok").Inc()
			return Payload{Body: data, ContentType: resp.Header.Get("Content-Type")}, nil

		case http.StatusNotFound:
			drain(resp)
			metrics.HTTPAttempts.WithLabelValues(c.name, string(KindNotFound)).Inc()
			return Payload{}, &Error{Kind: KindNotFound, Client: c.name, Method: method, URL: url, Status: resp.StatusCode, Attempts: attempt}

		case http.StatusTooManyRequests, http.StatusForbidden:
			retryAfter, hasHeader := parseRetryAfter(resp.Header.Get("Retry-After"), time.Now())
			drain(resp)
			metrics.HTTPAttempts.WithLabelValues(c.name, string(KindRateLimited)).Inc()
			retries++
			delay := policy.Backoff(retries)
			if hasHeader {
				delay = retryAfter
			}
			if retries > policy.MaxRetries {
				logging.WarnWithContext(logger, "rate limit retries exhausted", "http_rate_limited",
					logging.String("url", url),
					logging.Int("status", resp.StatusCode),
					logging.Int("attempts", attempt),
					logging.String(logging.FieldErrorHint, "lower the source rate_limit or raise http.retry.max_retries"),
					logging.String(logging.FieldImpact, "request abandoned"),
				)
				reqErr := &Error{Kind: KindRateLimited, Client: c.name, Method: method, URL: url, Status: resp.StatusCode, Attempts: attempt}
				if hasHeader {
					reqErr.RetryAfter = retryAfter
				}
				return Payload{}, reqErr
			}
			logger.Info("rate limited; retrying",
				logging.String(logging.FieldEventType, "http_retry"),
				logging.String("url", url),
				logging.Int("status", resp.StatusCode),
				logging.Int("retry", retries),
				logging.Duration("delay", delay),
				logging.Bool("retry_after_header", hasHeader),
			)
			if err := ratelimit.SleepWithContext(ctx, delay); err != nil {
				return Payload{}, &Error{Kind: KindTransport, Client: c.name, Method: method, URL: url, Attempts: attempt, Err: err}
			}

		default:
			snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
			drain(resp)
			metrics.HTTPAttempts.WithLabelValues(c.name, string(KindUnexpectedStatus)).Inc()
			return Payload{}, &Error{Kind: KindUnexpectedStatus, Client: c.name, Method: method, URL: url, Status: resp.StatusCode, Body: string(snippet), Attempts: attempt}
		}
	}
}

func (c *Client) send(ctx context.Context, method, url string, body []byte, rc RequestConfig, attempt int) (*http.Response, time.Duration, error) {
	ctx, span := tracing.HTTPAttemptSpan(ctx, c.name, method, url, attempt)
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		tracing.EndSpan(span, err)
		return nil, 0, fmt.Errorf("build request: %w", err)
	}
	for key, values := range c.headers {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	for key, values := range rc.headers {
		req.Header.Del(key)
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	req.Header.Set("User-Agent", c.userAgent)
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(start)
	metrics.HTTPRequestDurationSeconds.WithLabelValues(c.name).Observe(latency.Seconds())
	if err != nil {
		tracing.EndSpan(span, err)
		return nil, latency, err
	}
	tracing.SetHTTPStatus(span, resp.StatusCode)
	tracing.EndSpan(span, nil)
	return resp, latency, nil
}

// parseRetryAfter accepts delta-seconds or an HTTP date.
func parseRetryAfter(value string, now time.Time) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	if secs, err := strconv.ParseInt(value, 10, 64); err == nil {
		if secs < 0 {
			return 0, false
		}
		return time.Duration(secs) * time.Second, true
	}
	if when, err := http.ParseTime(value); err == nil {
		if d := when.Sub(now); d > 0 {
			return d, true
		}
		return 0, true
	}
	return 0, false
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	resp.Body.Close()
}
