package daemonrun

import (
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/nexelor/media-collector/internal/anime"
	"github.com/nexelor/media-collector/internal/notifications"
	"github.com/nexelor/media-collector/internal/picture"
	"github.com/nexelor/media-collector/internal/testsupport"
)

func TestAssembleCreatesQueuePerEnabledModule(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	notifier, closeFn, err := notifications.NewService(cfg)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	defer closeFn()

	comps, err := assemble(cfg, st, notifier, nil)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	want := []string{anime.QueueAniList, anime.QueueMAL, picture.Queue}
	if got := comps.Dispatcher.Names(); !slices.Equal(got, want) {
		t.Fatalf("unexpected queues: %v", got)
	}
	if len(comps.Workers) != 3 {
		t.Fatalf("expected 3 workers, got %d", len(comps.Workers))
	}
	if comps.MAL == nil || comps.AniList == nil || comps.Pictures == nil {
		t.Fatalf("expected all collectors, got %+v", comps)
	}

	cfg.Sources.AniList.Enabled = false
	cfg.Pictures.Enabled = false
	comps, err = assemble(cfg, st, notifier, nil)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if got := comps.Dispatcher.Names(); !slices.Equal(got, []string{anime.QueueMAL}) {
		t.Fatalf("unexpected queues: %v", got)
	}
	if comps.AniList != nil || comps.Pictures != nil {
		t.Fatal("expected disabled collectors to be nil")
	}

	cfg.Sources.MAL.Enabled = false
	if _, err := assemble(cfg, st, notifier, nil); err == nil {
		t.Fatal("expected error with every module disabled")
	}
}

func TestEnsureCurrentLogPointer(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "media-collector-1.log")
	if err := os.WriteFile(target, []byte("log\n"), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	if err := ensureCurrentLogPointer(dir, target); err != nil {
		t.Fatalf("ensureCurrentLogPointer: %v", err)
	}
	if err := ensureCurrentLogPointer(dir, target); err != nil {
		t.Fatalf("second ensureCurrentLogPointer: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "media-collector.log"))
	if err != nil || string(data) != "log\n" {
		t.Fatalf("expected pointer to resolve to target, got %q (%v)", data, err)
	}
}
