package testsupport

import (
	"path/filepath"
	"testing"

	"github.com/nexelor/media-collector/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Retry delays are shortened so retry paths finish quickly.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.PictureDir = filepath.Join(base, "pictures")
	cfgVal.API.Bind = "127.0.0.1:0"
	cfgVal.Sources.MAL.APIKey = "test"
	cfgVal.HTTP.Retry.BaseDelayMS = 1
	cfgVal.HTTP.Retry.MaxDelayMS = 5

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithMALKey sets the MyAnimeList client id on the test config.
func WithMALKey(key string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Sources.MAL.APIKey = key
	}
}

// WithSourceURLs points every source at baseURL, typically an httptest server.
func WithSourceURLs(baseURL string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Sources.MAL.BaseURL = baseURL
		b.cfg.Sources.Jikan.BaseURL = baseURL
		b.cfg.Sources.AniList.BaseURL = baseURL
	}
}

// WithFastRates raises every limiter so tests are not throttled.
func WithFastRates() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.HTTP.DefaultRateLimit = 1000
		b.cfg.Sources.MAL.RateLimit = 1000
		b.cfg.Sources.Jikan.RateLimit = 1000
		b.cfg.Sources.AniList.RateLimit = 1000
		b.cfg.Pictures.RateLimit = 1000
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
