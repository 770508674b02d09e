package httpclient

import (
	"encoding/base64"
	"math"
	"net/http"
	"time"
)

// RetryPolicy bounds retries of rate-limited responses.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// DefaultRetryPolicy returns 3 retries with 1s base and 60s ceiling.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: 3, BaseDelay: time.Second, MaxDelay: 60 * time.Second}
}

// Backoff returns min(BaseDelay * 2^(attempt-1), MaxDelay) for attempt >= 1.
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := p.BaseDelay
	for i := 1; i < attempt; i++ {
		if delay >= p.MaxDelay || delay > math.MaxInt64/2 {
			return p.MaxDelay
		}
		delay *= 2
	}
	if delay > p.MaxDelay {
		return p.MaxDelay
	}
	return delay
}

// RequestConfig carries per-call headers and an optional retry override.
// Builder methods return a modified copy.
type RequestConfig struct {
	headers http.Header
	policy  *RetryPolicy
}

// NewRequestConfig returns an empty request configuration.
func NewRequestConfig() RequestConfig {
	return RequestConfig{}
}

// WithHeader sets a request header.
func (rc RequestConfig) WithHeader(key, value string) RequestConfig {
	next := rc.clone()
	next.headers.Set(key, value)
	return next
}

// WithAPIKey sets the X-API-Key header.
func (rc RequestConfig) WithAPIKey(key string) RequestConfig {
	return rc.WithHeader("X-API-Key", key)
}

// WithBearerToken sets a bearer Authorization header.
func (rc RequestConfig) WithBearerToken(token string) RequestConfig {
	return rc.WithHeader("Authorization", "Bearer "+token)
}

// WithBasicAuth sets a basic Authorization header.
func (rc RequestConfig) WithBasicAuth(username, password string) RequestConfig {
	encoded := base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
	return rc.WithHeader("Authorization", "Basic "+encoded)
}

// WithRetryPolicy overrides the client's retry policy for this call.
func (rc RequestConfig) WithRetryPolicy(policy RetryPolicy) RequestConfig {
	next := rc.clone()
	next.policy = &policy
	return next
}

// Headers returns a copy of the configured headers.
func (rc RequestConfig) Headers() http.Header {
	if rc.headers == nil {
		return http.Header{}
	}
	return rc.headers.Clone()
}

func (rc RequestConfig) clone() RequestConfig {
	next := RequestConfig{policy: rc.policy}
	if rc.headers != nil {
		next.headers = rc.headers.Clone()
	} else {
		next.headers = http.Header{}
	}
	return next
}
