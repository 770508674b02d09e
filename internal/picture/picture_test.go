package picture_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/nexelor/media-collector/internal/fileutil"
	"github.com/nexelor/media-collector/internal/logging"
	"github.com/nexelor/media-collector/internal/picture"
	"github.com/nexelor/media-collector/internal/scheduler"
	"github.com/nexelor/media-collector/internal/services"
	"github.com/nexelor/media-collector/internal/store"
	"github.com/nexelor/media-collector/internal/testsupport"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDRfake-image-data")

type fixture struct {
	server  *httptest.Server
	hits    *atomic.Int32
	fetcher *picture.Fetcher
	store   *store.Store
	dir     string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	hits := &atomic.Int32{}
	mux := http.NewServeMux()
	mux.HandleFunc("/images/cover.jpg", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write([]byte("jpeg-bytes"))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		hits.Add(1)
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(pngBytes)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	client := testsupport.NewHTTPClient(t, "pictures")
	fetcher, err := picture.NewFetcher(client, cfg.Paths.PictureDir)
	if err != nil {
		t.Fatalf("NewFetcher: %v", err)
	}
	return &fixture{server: server, hits: hits, fetcher: fetcher, store: st, dir: cfg.Paths.PictureDir}
}

func (f *fixture) run(t *testing.T, req picture.Request) error {
	t.Helper()
	task, err := f.fetcher.NewTask(req)
	if err != nil {
		t.Fatalf("NewTask: %v", err)
	}
	res := scheduler.Resources{Documents: f.store, Logger: logging.NewNop()}
	return task.Execute(context.Background(), res)
}

func TestFetchPictureStoresFileAndMetadata(t *testing.T) {
	f := newFixture(t)
	url := f.server.URL + "/images/cover.jpg"
	req := picture.Request{URL: url, EntityType: "anime", EntityID: "1", Tags: []string{"mal", "main"}}

	if err := f.run(t, req); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	meta, found, err := picture.NewCatalog(f.store).Get(context.Background(), url)
	if err != nil || !found {
		t.Fatalf("expected metadata, found=%v err=%v", found, err)
	}
	if meta.Status != picture.StatusCompleted {
		t.Fatalf("expected completed, got %s (%s)", meta.Status, meta.Error)
	}
	wantPath := filepath.Join(f.dir, "anime", "1", "cover.jpg")
	if meta.FilePath != wantPath || meta.Filename != "cover.jpg" {
		t.Fatalf("unexpected file location %q (%q)", meta.FilePath, meta.Filename)
	}
	if meta.MimeType != "image/jpeg" || meta.FileSize != int64(len("jpeg-bytes")) {
		t.Fatalf("unexpected file attributes: %+v", meta)
	}
	if meta.DownloadAttempts != 1 || meta.DownloadedAt == nil {
		t.Fatalf("unexpected bookkeeping: attempts=%d downloaded_at=%v", meta.DownloadAttempts, meta.DownloadedAt)
	}
	if !fileutil.MatchesDigest(meta.FilePath, meta.ContentHash) {
		t.Fatalf("stored hash %q does not match file", meta.ContentHash)
	}
	data, err := os.ReadFile(wantPath)
	if err != nil || string(data) != "jpeg-bytes" {
		t.Fatalf("unexpected file content %q err=%v", data, err)
	}
}

func TestFetchPictureSkipsCompletedDownload(t *testing.T) {
	f := newFixture(t)
	req := picture.Request{URL: f.server.URL + "/images/cover.jpg"}

	if err := f.run(t, req); err != nil {
		t.Fatalf("first Execute: %v", err)
	}
	if err := f.run(t, req); err != nil {
		t.Fatalf("second Execute: %v", err)
	}
	if got := f.hits.Load(); got != 1 {
		t.Fatalf("expected one download, got %d", got)
	}
}

func TestFetchPictureRedownloadsMissingFile(t *testing.T) {
	f := newFixture(t)
	url := f.server.URL + "/images/cover.jpg"
	req := picture.Request{URL: url}

	if err := f.run(t, req); err != nil {
		t.Fatalf("first Execute: %v", err)
	}
	catalog := picture.NewCatalog(f.store)
	meta, _, _ := catalog.Get(context.Background(), url)
	if err := os.Remove(meta.FilePath); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := f.run(t, req); err != nil {
		t.Fatalf("second Execute: %v", err)
	}
	if got := f.hits.Load(); got != 2 {
		t.Fatalf("expected re-download, got %d requests", got)
	}
	meta, _, _ = catalog.Get(context.Background(), url)
	if meta.DownloadAttempts != 2 {
		t.Fatalf("expected 2 attempts, got %d", meta.DownloadAttempts)
	}
}

func TestFetchPictureFallsBackToGeneratedName(t *testing.T) {
	f := newFixture(t)
	url := f.server.URL + "/"

	if err := f.run(t, picture.Request{URL: url}); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	meta, _, _ := picture.NewCatalog(f.store).Get(context.Background(), url)
	if filepath.Ext(meta.Filename) != ".png" {
		t.Fatalf("expected .png extension, got %q", meta.Filename)
	}
	if filepath.Dir(meta.FilePath) != f.dir {
		t.Fatalf("expected file in storage root, got %q", meta.FilePath)
	}
}

func TestFetchPictureRequestedFilenameIsSanitized(t *testing.T) {
	f := newFixture(t)
	url := f.server.URL + "/images/cover.jpg"

	if err := f.run(t, picture.Request{URL: url, Filename: "../bebop: cover?.jpg"}); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	meta, _, _ := picture.NewCatalog(f.store).Get(context.Background(), url)
	if meta.Filename != "-bebop- cover.jpg" {
		t.Fatalf("unexpected sanitized name %q", meta.Filename)
	}
	if filepath.Dir(meta.FilePath) != f.dir {
		t.Fatalf("file escaped storage root: %q", meta.FilePath)
	}
}

func TestFetchPictureRecordsFailure(t *testing.T) {
	f := newFixture(t)
	url := f.server.URL + "/missing.png"

	err := f.run(t, picture.Request{URL: url})
	if err == nil {
		t.Fatal("expected error for missing picture")
	}
	meta, found, _ := picture.NewCatalog(f.store).Get(context.Background(), url)
	if !found || meta.Status != picture.StatusFailed {
		t.Fatalf("expected failed metadata, got %+v", meta)
	}
	if meta.Error == "" || meta.DownloadAttempts != 1 {
		t.Fatalf("expected error and one attempt, got %+v", meta)
	}
}

func TestNewTaskRejectsInvalidURL(t *testing.T) {
	f := newFixture(t)
	for _, raw := range []string{"", "ftp://example.com/a.png", "not a url", "/relative.png"} {
		_, err := f.fetcher.NewTask(picture.Request{URL: raw})
		if !errors.Is(err, picture.ErrInvalidURL) {
			t.Fatalf("%q: expected ErrInvalidURL, got %v", raw, err)
		}
		if !errors.Is(err, services.ErrValidation) {
			t.Fatalf("%q: expected validation marker, got %v", raw, err)
		}
	}
}

func TestSubmitAllSkipsEmptyURLs(t *testing.T) {
	f := newFixture(t)
	sub := &testsupport.Submitter{}
	reqs := []picture.Request{
		{URL: "https://cdn.example.com/a.jpg"},
		{URL: "  "},
		{URL: "https://cdn.example.com/b.jpg", Tags: []string{"banner"}},
	}

	queued, err := f.fetcher.SubmitAll(context.Background(), sub, reqs)
	if err != nil {
		t.Fatalf("SubmitAll: %v", err)
	}
	subs := sub.Submissions()
	if queued != 2 || len(subs) != 2 {
		t.Fatalf("expected 2 submissions, got %d", queued)
	}
	for _, s := range subs {
		if s.Queue != picture.Queue {
			t.Fatalf("expected pictures queue, got %q", s.Queue)
		}
		task := s.Task
		if task.Name() != picture.TaskName || task.Priority() != scheduler.PriorityLow {
			t.Fatalf("unexpected task identity %s/%s", task.Name(), task.Priority())
		}
	}
}

func TestRegisterRestoresTask(t *testing.T) {
	f := newFixture(t)
	task, err := f.fetcher.NewTask(picture.Request{URL: "https://cdn.example.com/a.jpg", EntityType: "anime", EntityID: "5"})
	if err != nil {
		t.Fatalf("NewTask: %v", err)
	}
	registry := scheduler.NewRegistry()
	picture.Register(registry, f.fetcher)

	rebuilt, err := registry.Build(task.Record())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	restored, ok := rebuilt.(*picture.FetchPictureTask)
	if !ok {
		t.Fatalf("unexpected task type %T", rebuilt)
	}
	if restored.ID() != task.ID() || restored.Request().EntityID != "5" {
		t.Fatalf("restored task mismatch: %s %+v", restored.ID(), restored.Request())
	}
}

func TestCatalogListStatsAndDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	good := f.server.URL + "/images/cover.jpg"
	bad := f.server.URL + "/missing.png"

	if err := f.run(t, picture.Request{URL: good}); err != nil {
		t.Fatalf("Execute good: %v", err)
	}
	_ = f.run(t, picture.Request{URL: bad})

	catalog := picture.NewCatalog(f.store)
	stats, err := catalog.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Total != 2 || stats.ByStatus[picture.StatusCompleted] != 1 || stats.ByStatus[picture.StatusFailed] != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if stats.TotalBytes != int64(len("jpeg-bytes")) {
		t.Fatalf("unexpected total bytes %d", stats.TotalBytes)
	}

	failed, err := catalog.List(ctx, picture.StatusFailed, 10)
	if err != nil || len(failed) != 1 || failed[0].URL != bad {
		t.Fatalf("unexpected failed list %+v err=%v", failed, err)
	}
	all, err := catalog.List(ctx, "", 1)
	if err != nil || len(all) != 1 {
		t.Fatalf("expected limit to apply, got %d err=%v", len(all), err)
	}

	meta, _, _ := catalog.Get(ctx, good)
	deleted, err := catalog.Delete(ctx, good)
	if err != nil || !deleted {
		t.Fatalf("Delete: deleted=%v err=%v", deleted, err)
	}
	if _, err := os.Stat(meta.FilePath); !os.IsNotExist(err) {
		t.Fatalf("expected file removed, stat err=%v", err)
	}
	if _, found, _ := catalog.Get(ctx, good); found {
		t.Fatal("expected metadata removed")
	}
	deleted, err = catalog.Delete(ctx, good)
	if err != nil || deleted {
		t.Fatalf("second Delete: deleted=%v err=%v", deleted, err)
	}
}
