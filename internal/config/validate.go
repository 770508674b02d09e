package config

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMissingAPIKey reports a source that requires a key but has none configured.
var ErrMissingAPIKey = errors.New("missing api key")

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateSources(); err != nil {
		return err
	}
	if err := c.validateHTTP(); err != nil {
		return err
	}
	if err := c.validateScheduler(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateSources() error {
	sources := []struct {
		name string
		src  Source
		env  string
	}{
		{"mal", c.Sources.MAL, "MAL_CLIENT_ID"},
		{"jikan", c.Sources.Jikan, ""},
		{"anilist", c.Sources.AniList, ""},
	}
	for _, entry := range sources {
		if !entry.src.Enabled {
			continue
		}
		if entry.src.RequiresAPIKey && entry.src.APIKey == "" {
			hint := ""
			if entry.env != "" {
				hint = fmt.Sprintf(" (or set %s)", entry.env)
			}
			return fmt.Errorf("sources.%s.api_key: %w%s", entry.name, ErrMissingAPIKey, hint)
		}
		if entry.src.RateLimit <= 0 {
			return fmt.Errorf("sources.%s.rate_limit must be positive", entry.name)
		}
		if !strings.HasPrefix(entry.src.BaseURL, "http://") && !strings.HasPrefix(entry.src.BaseURL, "https://") {
			return fmt.Errorf("sources.%s.base_url must be an http(s) URL, got %q", entry.name, entry.src.BaseURL)
		}
	}
	return nil
}

func (c *Config) validateHTTP() error {
	if c.HTTP.Retry.BaseDelayMS > c.HTTP.Retry.MaxDelayMS {
		return errors.New("http.retry.base_delay_ms must not exceed http.retry.max_delay_ms")
	}
	return nil
}

func (c *Config) validateScheduler() error {
	if c.Scheduler.InboxCapacity < 1 {
		return errors.New("scheduler.inbox_capacity must be >= 1")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error; got %q", c.Logging.Level)
	}
}
