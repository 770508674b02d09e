package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir    string `toml:"data_dir"`
	LogDir     string `toml:"log_dir"`
	PictureDir string `toml:"picture_dir"`
}

// API contains the REST listener configuration.
type API struct {
	Bind  string `toml:"bind"`
	Token string `toml:"token"`
}

// Retry contains the default retry policy applied by HTTP clients.
type Retry struct {
	MaxRetries  int `toml:"max_retries"`
	BaseDelayMS int `toml:"base_delay_ms"`
	MaxDelayMS  int `toml:"max_delay_ms"`
}

// BaseDelay returns the first backoff interval.
func (r Retry) BaseDelay() time.Duration {
	return time.Duration(r.BaseDelayMS) * time.Millisecond
}

// MaxDelay returns the backoff ceiling.
func (r Retry) MaxDelay() time.Duration {
	return time.Duration(r.MaxDelayMS) * time.Millisecond
}

// HTTP contains shared transport settings.
type HTTP struct {
	TimeoutSeconds   int     `toml:"timeout_seconds"`
	UserAgent        string  `toml:"user_agent"`
	DefaultRateLimit float64 `toml:"default_rate_limit"`
	Retry            Retry   `toml:"retry"`
}

// Timeout returns the per-request transport timeout.
func (h HTTP) Timeout() time.Duration {
	return time.Duration(h.TimeoutSeconds) * time.Second
}

// Source describes one external metadata API.
type Source struct {
	Enabled        bool    `toml:"enabled"`
	RateLimit      float64 `toml:"rate_limit"`
	APIKey         string  `toml:"api_key"`
	RequiresAPIKey bool    `toml:"requires_api_key"`
	BaseURL        string  `toml:"base_url"`
}

// Sources groups the metadata APIs.
type Sources struct {
	MAL     Source `toml:"mal"`
	Jikan   Source `toml:"jikan"`
	AniList Source `toml:"anilist"`
}

// Pictures contains configuration for picture downloads.
type Pictures struct {
	Enabled   bool    `toml:"enabled"`
	RateLimit float64 `toml:"rate_limit"`
}

// Scheduler contains task queue settings.
type Scheduler struct {
	InboxCapacity int  `toml:"inbox_capacity"`
	AdmitWindowMS int  `toml:"admit_window_ms"`
	ReplayPending bool `toml:"replay_pending"`
}

// AdmitWindow returns how long a worker with pending work waits for new
// submissions before executing the top task.
func (s Scheduler) AdmitWindow() time.Duration {
	return time.Duration(s.AdmitWindowMS) * time.Millisecond
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Notifications contains configuration for task event delivery.
type Notifications struct {
	NtfyTopic       string `toml:"ntfy_topic"`
	RedisURL        string `toml:"redis_url"`
	RedisChannel    string `toml:"redis_channel"`
	RequestTimeout  int    `toml:"request_timeout"`
	TaskFailures    bool   `toml:"task_failures"`
	TaskCompletions bool   `toml:"task_completions"`
}

// Tracing contains OpenTelemetry exporter settings.
type Tracing struct {
	Enabled     bool   `toml:"enabled"`
	Endpoint    string `toml:"endpoint"`
	ServiceName string `toml:"service_name"`
	Environment string `toml:"environment"`
}

// Config encapsulates all configuration values for media-collector.
//
// Configuration sections by subsystem:
//   - Paths: data, log, and picture directories
//   - API: REST bind address and bearer token
//   - HTTP: transport timeout, user agent, default rate, retry policy
//   - Sources: MyAnimeList, Jikan, and AniList clients
//   - Pictures: picture download module
//   - Scheduler: inbox capacity, admission window, restart replay
//   - Logging: log format, level, and retention
//   - Notifications: ntfy and Redis task events
//   - Tracing: OTLP span export
type Config struct {
	Paths         Paths         `toml:"paths"`
	API           API           `toml:"api"`
	HTTP          HTTP          `toml:"http"`
	Sources       Sources       `toml:"sources"`
	Pictures      Pictures      `toml:"pictures"`
	Scheduler     Scheduler     `toml:"scheduler"`
	Logging       Logging       `toml:"logging"`
	Notifications Notifications `toml:"notifications"`
	Tracing       Tracing       `toml:"tracing"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized. A .env file in the working directory is
// loaded first so its values act as environment fallbacks; existing environment
// variables win.
func Load(path string) (*Config, string, bool, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, "", false, err
	}

	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("media-collector.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.DataDir, c.Paths.LogDir}
	if c.Pictures.Enabled {
		dirs = append(dirs, c.Paths.PictureDir)
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the SQLite document store location.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "media-collector.db")
}

// LockPath returns the daemon single-instance lock file location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "media-collector.lock")
}

// PIDPath returns the daemon PID file location.
func (c *Config) PIDPath() string {
	return filepath.Join(c.Paths.DataDir, "media-collector.pid")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
