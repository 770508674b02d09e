package testsupport

import (
	"testing"
	"time"

	"github.com/nexelor/media-collector/internal/httpclient"
	"github.com/nexelor/media-collector/internal/ratelimit"
)

// NewHTTPClient returns a client with an effectively unthrottled limiter and
// a single fast retry, suitable for httptest servers.
func NewHTTPClient(t testing.TB, name string, opts ...httpclient.Option) *httpclient.Client {
	t.Helper()

	limiter, err := ratelimit.New(name+"-test", 1000)
	if err != nil {
		t.Fatalf("ratelimit.New: %v", err)
	}
	base := []httpclient.Option{httpclient.WithRetryPolicy(httpclient.RetryPolicy{
		MaxRetries: 1,
		BaseDelay:  time.Millisecond,
		MaxDelay:   5 * time.Millisecond,
	})}
	client, err := httpclient.New(name, limiter, append(base, opts...)...)
	if err != nil {
		t.Fatalf("httpclient.New: %v", err)
	}
	return client
}
