package httpclient

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/nexelor/media-collector/internal/config"
	"github.com/nexelor/media-collector/internal/ratelimit"
)

// Client names used for limiter registration, logs, and metrics.
const (
	NameDefault  = "default"
	NameMAL      = "mal"
	NameJikan    = "jikan"
	NameAniList  = "anilist"
	NamePictures = "pictures"
)

// Clients is the set of named clients the daemon shares across queues. All
// of them use one transport; each has its own limiter from the registry.
type Clients struct {
	Transport *http.Client
	Default   *Client
	MAL       *Client
	Jikan     *Client
	AniList   *Client
	Pictures  *Client
}

// NewClients builds every named client from configuration.
func NewClients(cfg *config.Config, limiters *ratelimit.Registry, logger *slog.Logger) (*Clients, error) {
	if cfg == nil || limiters == nil {
		return nil, fmt.Errorf("http clients require config and limiter registry")
	}
	transport := &http.Client{Timeout: cfg.HTTP.Timeout()}
	policy := RetryPolicy{
		MaxRetries: cfg.HTTP.Retry.MaxRetries,
		BaseDelay:  cfg.HTTP.Retry.BaseDelay(),
		MaxDelay:   cfg.HTTP.Retry.MaxDelay(),
	}

	build := func(name string, rate float64, extra ...Option) (*Client, error) {
		limiter, err := limiters.Get(name, rate)
		if err != nil {
			return nil, err
		}
		opts := []Option{
			WithHTTPClient(transport),
			WithRetryPolicy(policy),
			WithUserAgent(cfg.HTTP.UserAgent),
			WithLogger(logger),
		}
		return New(name, limiter, append(opts, extra...)...)
	}

	set := &Clients{Transport: transport}
	var err error
	if set.Default, err = build(NameDefault, cfg.HTTP.DefaultRateLimit); err != nil {
		return nil, err
	}
	var malOpts []Option
	if cfg.Sources.MAL.APIKey != "" {
		malOpts = append(malOpts, WithDefaultHeader("X-MAL-CLIENT-ID", cfg.Sources.MAL.APIKey))
	}
	if set.MAL, err = build(NameMAL, cfg.Sources.MAL.RateLimit, malOpts...); err != nil {
		return nil, err
	}
	if set.Jikan, err = build(NameJikan, cfg.Sources.Jikan.RateLimit); err != nil {
		return nil, err
	}
	if set.AniList, err = build(NameAniList, cfg.Sources.AniList.RateLimit); err != nil {
		return nil, err
	}
	if set.Pictures, err = build(NamePictures, cfg.Pictures.RateLimit); err != nil {
		return nil, err
	}
	return set, nil
}
