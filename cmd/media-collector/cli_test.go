package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nexelor/media-collector/internal/config"
	"github.com/nexelor/media-collector/internal/scheduler"
	"github.com/nexelor/media-collector/internal/store"
)

type cliTestEnv struct {
	baseDir    string
	configPath string
	cfg        *config.Config
}

// setupCLITestEnv writes a config file with every source disabled so status
// never reaches the network. extra is appended to the TOML document.
func setupCLITestEnv(t *testing.T, extra string) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	t.Setenv("HOME", filepath.Join(base, "home"))
	t.Setenv("MAL_CLIENT_ID", "")
	t.Setenv("MEDIA_COLLECTOR_API_TOKEN", "")
	t.Chdir(base)

	doc := fmt.Sprintf(`[paths]
data_dir = %q
log_dir = %q
picture_dir = %q

[sources.mal]
enabled = false

[sources.jikan]
enabled = false

[sources.anilist]
enabled = false
%s`, filepath.Join(base, "data"), filepath.Join(base, "logs"), filepath.Join(base, "pictures"), extra)

	configPath := filepath.Join(base, "media-collector.toml")
	if err := os.WriteFile(configPath, []byte(doc), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	return &cliTestEnv{baseDir: base, configPath: configPath, cfg: cfg}
}

func runCLI(t *testing.T, env *cliTestEnv, args ...string) (string, string, error) {
	t.Helper()

	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	if env != nil {
		args = append([]string{"--config", env.configPath}, args...)
	}
	cmd.SetArgs(args)
	cmd.SetContext(context.Background())
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("expected output to contain %q\n%s", needle, haystack)
	}
}

func seedRecords(t *testing.T, env *cliTestEnv) {
	t.Helper()

	st, err := store.Open(env.cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	defer st.Close()

	ctx := context.Background()
	created := time.Now().Add(-time.Hour).UTC()
	records := []struct {
		id     string
		queue  string
		status scheduler.Status
	}{
		{"mal_fetch_1", "mal", scheduler.Completed()},
		{"mal_fetch_2", "mal", scheduler.Failed("mal returned 404")},
		{"anilist_fetch_3", "anilist", scheduler.Pending()},
	}
	for i, r := range records {
		rec := scheduler.Record{
			ID:        r.id,
			Name:      "fetch_anime",
			Priority:  scheduler.PriorityNormal,
			Status:    scheduler.Pending(),
			CreatedAt: created.Add(time.Duration(i) * time.Minute),
			Payload:   json.RawMessage(`{"anime_id":1}`),
		}
		if err := st.SaveTaskRecord(ctx, r.queue, rec); err != nil {
			t.Fatalf("SaveTaskRecord: %v", err)
		}
		if r.status.State != scheduler.StatePending {
			if err := st.UpdateTaskStatus(ctx, r.id, scheduler.Running()); err != nil {
				t.Fatalf("UpdateTaskStatus running: %v", err)
			}
			if err := st.UpdateTaskStatus(ctx, r.id, r.status); err != nil {
				t.Fatalf("UpdateTaskStatus: %v", err)
			}
		}
	}
}
