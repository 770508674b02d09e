package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/nexelor/media-collector/internal/config"
)

func TestLoadDefaultConfigUsesEnvMALKeyAndExpandsPaths(t *testing.T) {
	t.Setenv("MAL_CLIENT_ID", "test-client")
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantData := filepath.Join(tempHome, ".local", "share", "media-collector")
	if cfg.Paths.DataDir != wantData {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, wantData)
	}
	if cfg.DatabasePath() != filepath.Join(wantData, "media-collector.db") {
		t.Fatalf("unexpected database path: %q", cfg.DatabasePath())
	}
	if cfg.API.Bind != "127.0.0.1:8080" {
		t.Fatalf("unexpected api bind: %q", cfg.API.Bind)
	}
	if cfg.Sources.MAL.APIKey != "test-client" {
		t.Fatalf("expected MAL key from env, got %q", cfg.Sources.MAL.APIKey)
	}
	if cfg.Sources.MAL.RateLimit != 2 {
		t.Fatalf("expected MAL rate 2, got %v", cfg.Sources.MAL.RateLimit)
	}
	if cfg.HTTP.Retry.MaxRetries != 3 || cfg.HTTP.Retry.BaseDelay() != time.Second || cfg.HTTP.Retry.MaxDelay() != time.Minute {
		t.Fatalf("unexpected retry defaults: %+v", cfg.HTTP.Retry)
	}
	if cfg.HTTP.UserAgent != "media-collector/0.1.0" {
		t.Fatalf("unexpected user agent: %q", cfg.HTTP.UserAgent)
	}
	if cfg.Scheduler.AdmitWindow() != 10*time.Millisecond {
		t.Fatalf("unexpected admit window: %v", cfg.Scheduler.AdmitWindow())
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.DataDir, cfg.Paths.LogDir, cfg.Paths.PictureDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "media-collector.toml")

	type source struct {
		APIKey    string  `toml:"api_key"`
		RateLimit float64 `toml:"rate_limit"`
		BaseURL   string  `toml:"base_url"`
	}
	type payload struct {
		Sources struct {
			MAL source `toml:"mal"`
		} `toml:"sources"`
		Scheduler struct {
			InboxCapacity int `toml:"inbox_capacity"`
		} `toml:"scheduler"`
	}
	custom := payload{}
	custom.Sources.MAL = source{APIKey: "abc123", RateLimit: 0.5, BaseURL: "https://example.com/mal/"}
	custom.Scheduler.InboxCapacity = 16
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.Sources.MAL.APIKey != "abc123" {
		t.Fatalf("expected MAL key from file, got %q", cfg.Sources.MAL.APIKey)
	}
	if cfg.Sources.MAL.RateLimit != 0.5 {
		t.Fatalf("expected MAL rate 0.5, got %v", cfg.Sources.MAL.RateLimit)
	}
	if cfg.Sources.MAL.BaseURL != "https://example.com/mal" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.Sources.MAL.BaseURL)
	}
	if cfg.Scheduler.InboxCapacity != 16 {
		t.Fatalf("expected inbox capacity 16, got %d", cfg.Scheduler.InboxCapacity)
	}
	if cfg.Sources.Jikan.BaseURL != "https://api.jikan.moe/v4" {
		t.Fatalf("expected jikan default base url, got %q", cfg.Sources.Jikan.BaseURL)
	}
}

func TestLoadReadsDotEnv(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	t.Chdir(dir)
	os.Unsetenv("MAL_CLIENT_ID")
	os.Unsetenv("MEDIA_COLLECTOR_API_TOKEN")
	t.Cleanup(func() {
		os.Unsetenv("MAL_CLIENT_ID")
		os.Unsetenv("MEDIA_COLLECTOR_API_TOKEN")
	})
	env := "MAL_CLIENT_ID=dotenv-client\nMEDIA_COLLECTOR_API_TOKEN=secret\n"
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(env), 0o644); err != nil {
		t.Fatalf("write .env: %v", err)
	}

	cfg, _, _, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Sources.MAL.APIKey != "dotenv-client" {
		t.Fatalf("expected MAL key from .env, got %q", cfg.Sources.MAL.APIKey)
	}
	if cfg.API.Token != "secret" {
		t.Fatalf("expected api token from .env, got %q", cfg.API.Token)
	}
}

func TestLoadFailsWithoutRequiredKey(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())
	t.Setenv("MAL_CLIENT_ID", "")

	_, _, _, err := config.Load("")
	if err == nil {
		t.Fatal("expected error when MAL key missing")
	}
	if !errors.Is(err, config.ErrMissingAPIKey) {
		t.Fatalf("expected ErrMissingAPIKey, got %v", err)
	}
	if !strings.Contains(err.Error(), "MAL_CLIENT_ID") {
		t.Fatalf("expected env hint in error, got %v", err)
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}

	var cfg config.Config
	if err := toml.Unmarshal(contents, &cfg); err != nil {
		t.Fatalf("unmarshal sample: %v", err)
	}
	if !strings.Contains(cfg.Paths.DataDir, "media-collector") {
		t.Fatalf("expected data dir to contain media-collector, got %q", cfg.Paths.DataDir)
	}
	if cfg.Sources.MAL.RateLimit != 2 {
		t.Fatalf("expected sample MAL rate 2, got %v", cfg.Sources.MAL.RateLimit)
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	cfg := config.Default()
	cfg.Sources.MAL.APIKey = "key"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected defaults with key to validate, got %v", err)
	}

	cfg = config.Default()
	cfg.Sources.MAL.Enabled = false
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected disabled MAL without key to validate, got %v", err)
	}

	cfg = config.Default()
	cfg.Sources.MAL.APIKey = "key"
	cfg.HTTP.Retry.BaseDelayMS = 120000
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error when base delay exceeds max delay")
	}

	cfg = config.Default()
	cfg.Sources.MAL.APIKey = "key"
	cfg.Sources.AniList.BaseURL = "graphql.anilist.co"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for base url without scheme")
	}

	cfg = config.Default()
	cfg.Sources.MAL.APIKey = "key"
	cfg.Logging.Level = "verbose"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown log level")
	}
}
