package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeAPI()
	c.normalizeHTTP()
	c.normalizeSources()
	c.normalizeScheduler()
	c.normalizeLogging()
	c.normalizeNotifications()
	c.normalizeTracing()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.PictureDir) == "" {
		c.Paths.PictureDir = defaultPictureDir
	}
	if c.Paths.PictureDir, err = expandPath(c.Paths.PictureDir); err != nil {
		return fmt.Errorf("paths.picture_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeAPI() {
	c.API.Bind = strings.TrimSpace(c.API.Bind)
	if c.API.Bind == "" {
		c.API.Bind = defaultAPIBind
	}
	c.API.Token = strings.TrimSpace(c.API.Token)
	if c.API.Token == "" {
		if value, ok := os.LookupEnv("MEDIA_COLLECTOR_API_TOKEN"); ok {
			c.API.Token = strings.TrimSpace(value)
		}
	}
}

func (c *Config) normalizeHTTP() {
	if c.HTTP.TimeoutSeconds <= 0 {
		c.HTTP.TimeoutSeconds = defaultTimeoutSeconds
	}
	c.HTTP.UserAgent = strings.TrimSpace(c.HTTP.UserAgent)
	if c.HTTP.UserAgent == "" {
		c.HTTP.UserAgent = defaultUserAgent
	}
	if c.HTTP.DefaultRateLimit <= 0 {
		c.HTTP.DefaultRateLimit = defaultRateLimit
	}
	if c.HTTP.Retry.MaxRetries < 0 {
		c.HTTP.Retry.MaxRetries = 0
	}
	if c.HTTP.Retry.BaseDelayMS <= 0 {
		c.HTTP.Retry.BaseDelayMS = defaultBaseDelayMS
	}
	if c.HTTP.Retry.MaxDelayMS <= 0 {
		c.HTTP.Retry.MaxDelayMS = defaultMaxDelayMS
	}
	if c.Pictures.RateLimit <= 0 {
		c.Pictures.RateLimit = c.HTTP.DefaultRateLimit
	}
}

func (c *Config) normalizeSources() {
	normalizeSource(&c.Sources.MAL, defaultMALBaseURL, c.HTTP.DefaultRateLimit)
	normalizeSource(&c.Sources.Jikan, defaultJikanBaseURL, c.HTTP.DefaultRateLimit)
	normalizeSource(&c.Sources.AniList, defaultAniListBaseURL, c.HTTP.DefaultRateLimit)
	if c.Sources.MAL.APIKey == "" {
		if value, ok := os.LookupEnv("MAL_CLIENT_ID"); ok {
			c.Sources.MAL.APIKey = strings.TrimSpace(value)
		}
	}
}

func normalizeSource(src *Source, baseURL string, rate float64) {
	src.APIKey = strings.TrimSpace(src.APIKey)
	src.BaseURL = strings.TrimRight(strings.TrimSpace(src.BaseURL), "/")
	if src.BaseURL == "" {
		src.BaseURL = baseURL
	}
	if src.RateLimit <= 0 {
		src.RateLimit = rate
	}
}

func (c *Config) normalizeScheduler() {
	if c.Scheduler.InboxCapacity <= 0 {
		c.Scheduler.InboxCapacity = defaultInboxCapacity
	}
	if c.Scheduler.AdmitWindowMS <= 0 {
		c.Scheduler.AdmitWindowMS = defaultAdmitWindowMS
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	c.Notifications.RedisURL = strings.TrimSpace(c.Notifications.RedisURL)
	if c.Notifications.RedisURL == "" {
		if value, ok := os.LookupEnv("REDIS_URL"); ok {
			c.Notifications.RedisURL = strings.TrimSpace(value)
		}
	}
	c.Notifications.RedisChannel = strings.TrimSpace(c.Notifications.RedisChannel)
	if c.Notifications.RedisChannel == "" {
		c.Notifications.RedisChannel = defaultRedisChannel
	}
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyTimeout
	}
}

func (c *Config) normalizeTracing() {
	c.Tracing.Endpoint = strings.TrimSpace(c.Tracing.Endpoint)
	if c.Tracing.Endpoint == "" {
		c.Tracing.Endpoint = defaultTracingEndpoint
	}
	c.Tracing.ServiceName = strings.TrimSpace(c.Tracing.ServiceName)
	if c.Tracing.ServiceName == "" {
		c.Tracing.ServiceName = defaultServiceName
	}
	c.Tracing.Environment = strings.TrimSpace(c.Tracing.Environment)
	if c.Tracing.Environment == "" {
		c.Tracing.Environment = defaultEnvironment
	}
}
