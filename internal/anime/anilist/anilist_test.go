package anilist_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/nexelor/media-collector/internal/anime"
	"github.com/nexelor/media-collector/internal/anime/anilist"
	"github.com/nexelor/media-collector/internal/logging"
	"github.com/nexelor/media-collector/internal/picture"
	"github.com/nexelor/media-collector/internal/scheduler"
	"github.com/nexelor/media-collector/internal/services"
	"github.com/nexelor/media-collector/internal/store"
	"github.com/nexelor/media-collector/internal/testsupport"
)

const bebopMedia = `{
	"id": 1,
	"idMal": 1,
	"title": {"romaji": "Cowboy Bebop", "english": "Cowboy Bebop", "native": "カウボーイビバップ"},
	"format": "TV",
	"status": "FINISHED",
	"description": "In the year 2071,<br><br>\nbounty hunters &amp; <i>friends</i>.",
	"startDate": {"year": 1998, "month": 4, "day": 3},
	"endDate": {"year": 1999, "month": 4, "day": null},
	"season": "SPRING",
	"seasonYear": 1998,
	"episodes": 26,
	"duration": 24,
	"source": "ORIGINAL",
	"coverImage": {"extraLarge": "https://img.example.com/xl.jpg", "large": "https://img.example.com/l.jpg", "medium": "https://img.example.com/m.jpg"},
	"bannerImage": "https://img.example.com/banner.jpg",
	"genres": ["Action", "Sci-Fi"],
	"synonyms": ["CB"],
	"averageScore": 86,
	"popularity": 300000,
	"favourites": 40000,
	"siteUrl": "https://anilist.co/anime/1",
	"characters": {"edges": [{
		"role": "MAIN",
		"node": {"id": 1, "name": {"full": "Spike Spiegel"}, "image": {"large": "https://img.example.com/spike.jpg"}},
		"voiceActors": [{"id": 95, "name": {"full": "Kouichi Yamadera"}, "language": "Japanese", "image": {"large": "https://img.example.com/koichi.jpg"}}]
	}]},
	"staff": {"edges": [
		{"role": "Director", "node": {"id": 10, "name": {"full": "Shinichiro Watanabe"}}},
		{"role": "Storyboard", "node": {"id": 10, "name": {"full": "Shinichiro Watanabe"}}}
	]},
	"studios": {"edges": [{"isMain": true, "node": {"id": 14, "name": "Sunrise"}}, {"isMain": false, "node": {"id": 23, "name": "Bandai Visual"}}]}
}`

type gqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type fixture struct {
	collector *anilist.Collector
	store     *store.Store
	sub       *testsupport.Submitter
	requests  chan gqlRequest
}

func newFixture(t *testing.T, withPictures bool) *fixture {
	t.Helper()
	f := &fixture{sub: &testsupport.Submitter{}, requests: make(chan gqlRequest, 8)}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("unexpected content type %q", ct)
		}
		var req gqlRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		f.requests <- req
		w.Header().Set("Content-Type", "application/json")

		switch {
		case strings.Contains(req.Query, "Page("):
			fmt.Fprint(w, `{"data": {"Page": {"media": [
				{"id": 1, "title": {"romaji": "Cowboy Bebop"}},
				{"id": 5, "title": {"romaji": "Cowboy Bebop: Tengoku no Tobira"}}
			]}}}`)
		case req.Variables["id"] == float64(1), req.Variables["malId"] == float64(1):
			fmt.Fprintf(w, `{"data": {"Media": %s}}`, bebopMedia)
		default:
			fmt.Fprint(w, `{"data": {"Media": null}, "errors": [{"message": "Not Found.", "status": 404}, {"message": "second"}]}`)
		}
	}))
	t.Cleanup(server.Close)

	cfg := testsupport.NewConfig(t)
	f.store = testsupport.MustOpenStore(t, cfg)

	var fetcher *picture.Fetcher
	if withPictures {
		var err error
		fetcher, err = picture.NewFetcher(testsupport.NewHTTPClient(t, "pictures"), cfg.Paths.PictureDir)
		if err != nil {
			t.Fatalf("NewFetcher: %v", err)
		}
	}
	f.collector = anilist.NewCollector(anilist.NewClient(testsupport.NewHTTPClient(t, "anilist"), server.URL), fetcher)
	return f
}

func (f *fixture) resources() scheduler.Resources {
	return scheduler.Resources{Documents: f.store, Submitter: f.sub, Logger: logging.NewNop()}
}

func TestFetchByAniListIDStoresConvertedRecord(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	task, err := f.collector.FetchTask(anilist.FetchOptions{AniListID: 1, WithPictures: true})
	if err != nil {
		t.Fatalf("FetchTask: %v", err)
	}
	if task.ID() != "anilist_fetch_1" || task.Priority() != scheduler.PriorityNormal {
		t.Fatalf("unexpected identity %s/%s", task.ID(), task.Priority())
	}
	if err := task.Execute(ctx, f.resources()); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if req := <-f.requests; req.Variables["id"] != float64(1) {
		t.Fatalf("unexpected variables %v", req.Variables)
	}

	a, found, err := anime.LoadAniList(ctx, f.store, 1)
	if err != nil || !found {
		t.Fatalf("LoadAniList: found=%v err=%v", found, err)
	}
	if a.Synopsis != "In the year 2071,\n\nbounty hunters & friends." {
		t.Fatalf("unexpected synopsis %q", a.Synopsis)
	}
	if a.MediaType != "TV" || a.Status != "Finished" || a.Season != "Spring" {
		t.Fatalf("unexpected labels %q %q %q", a.MediaType, a.Status, a.Season)
	}
	if a.Duration != 1440 || a.Score != 8.6 || a.AiredFrom != "1998-04-03" || a.AiredTo != "1999-04" {
		t.Fatalf("unexpected numbers: duration=%d score=%v aired=%s..%s", a.Duration, a.Score, a.AiredFrom, a.AiredTo)
	}
	if len(a.Titles) != 3 || a.Titles[0].Type != "Romaji" {
		t.Fatalf("unexpected titles %+v", a.Titles)
	}
	if len(a.Studios) != 1 || a.Studios[0].Name != "Sunrise" {
		t.Fatalf("expected only main studio, got %+v", a.Studios)
	}
	if len(a.Staff) != 1 || len(a.Staff[0].Positions) != 2 {
		t.Fatalf("expected staff roles folded, got %+v", a.Staff)
	}
	if a.Image.Large != "https://img.example.com/xl.jpg" || a.Image.Small != "https://img.example.com/m.jpg" {
		t.Fatalf("unexpected cover %+v", a.Image)
	}

	subs := f.sub.Submissions()
	if len(subs) != 1 || subs[0].Queue != anime.QueueAniList || subs[0].Task.Name() != anilist.TaskPictures {
		t.Fatalf("expected picture fan-out on anilist queue, got %+v", subs)
	}
}

func TestFetchByMALIDLinksStoredRecord(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	if err := anime.SaveMAL(ctx, f.store, anime.Anime{MALID: 1, Sources: []string{anime.SourceMAL}}); err != nil {
		t.Fatalf("SaveMAL: %v", err)
	}

	task, err := f.collector.FetchTask(anilist.FetchOptions{MALID: 1, WithPictures: true})
	if err != nil {
		t.Fatalf("FetchTask: %v", err)
	}
	if task.ID() != "anilist_fetch_mal_1" {
		t.Fatalf("unexpected id %s", task.ID())
	}
	if err := task.Execute(ctx, f.resources()); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if req := <-f.requests; req.Variables["malId"] != float64(1) {
		t.Fatalf("unexpected variables %v", req.Variables)
	}

	linked, _, err := anime.LoadMAL(ctx, f.store, 1)
	if err != nil {
		t.Fatalf("LoadMAL: %v", err)
	}
	if linked.AniListID != 1 || linked.Banner != "https://img.example.com/banner.jpg" {
		t.Fatalf("expected link fields, got %+v", linked)
	}
	if len(linked.Sources) != 2 || linked.Sources[1] != anime.SourceAniList {
		t.Fatalf("unexpected sources %v", linked.Sources)
	}
	if len(f.sub.Submissions()) != 0 {
		t.Fatal("expected pictures skipped when module disabled")
	}
}

func TestFetchGraphQLErrorsFailTask(t *testing.T) {
	f := newFixture(t, false)
	task, _ := f.collector.FetchTask(anilist.FetchOptions{AniListID: 999})

	err := task.Execute(context.Background(), f.resources())
	if !errors.Is(err, anilist.ErrGraphQL) {
		t.Fatalf("expected ErrGraphQL, got %v", err)
	}
	if !strings.Contains(err.Error(), "AniList GraphQL errors: Not Found., second") {
		t.Fatalf("unexpected message %q", err)
	}
	if _, found, _ := anime.LoadAniList(context.Background(), f.store, 999); found {
		t.Fatal("expected nothing stored")
	}
}

func TestFetchTaskValidatesIDs(t *testing.T) {
	f := newFixture(t, false)
	cases := []anilist.FetchOptions{{}, {AniListID: 1, MALID: 1}, {AniListID: -2}}
	for _, opts := range cases {
		if _, err := f.collector.FetchTask(opts); !errors.Is(err, services.ErrValidation) {
			t.Fatalf("%+v: expected validation error, got %v", opts, err)
		}
	}
}

func TestSearchStoresUnseenResults(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	if err := anime.SaveAniList(ctx, f.store, anime.Anime{AniListID: 1, Synopsis: "kept"}); err != nil {
		t.Fatalf("SaveAniList: %v", err)
	}

	task, err := f.collector.SearchTask("Cowboy  Bebop", 0)
	if err != nil {
		t.Fatalf("SearchTask: %v", err)
	}
	if err := task.Execute(ctx, f.resources()); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	req := <-f.requests
	if req.Variables["search"] != "Cowboy Bebop" || req.Variables["perPage"] != float64(anilist.DefaultSearchLimit) {
		t.Fatalf("unexpected variables %v", req.Variables)
	}

	kept, _, _ := anime.LoadAniList(ctx, f.store, 1)
	if kept.Synopsis != "kept" {
		t.Fatalf("search overwrote stored record: %+v", kept)
	}
	count, err := f.store.Count(ctx, store.CollectionAnimeAniList)
	if err != nil || count != 2 {
		t.Fatalf("expected 2 stored records, got %d err=%v", count, err)
	}
}

func TestPicturesTaskFansOutCoverBannerAndCast(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	fetch, _ := f.collector.FetchTask(anilist.FetchOptions{AniListID: 1})
	if err := fetch.Execute(ctx, f.resources()); err != nil {
		t.Fatalf("fetch: %v", err)
	}

	if err := f.collector.PicturesTask(1).Execute(ctx, f.resources()); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	subs := f.sub.Submissions()
	// xl, l, m cover sizes, banner, character, voice actor
	if len(subs) != 6 {
		t.Fatalf("expected 6 picture tasks, got %d", len(subs))
	}
	banner := subs[3].Task.(*picture.FetchPictureTask).Request()
	if banner.URL != "https://img.example.com/banner.jpg" || banner.Tags[1] != "banner" || banner.EntityType != "anilist_anime" {
		t.Fatalf("unexpected banner request %+v", banner)
	}
	for _, s := range subs {
		if s.Queue != picture.Queue {
			t.Fatalf("unexpected queue %s", s.Queue)
		}
	}

	err := f.collector.PicturesTask(42).Execute(ctx, f.resources())
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown anime, got %v", err)
	}
}

func TestRegisterRestoresTasks(t *testing.T) {
	f := newFixture(t, true)
	registry := scheduler.NewRegistry()
	anilist.Register(registry, f.collector)

	fetch, _ := f.collector.FetchTask(anilist.FetchOptions{MALID: 7, WithPictures: true})
	search, _ := f.collector.SearchTask("bebop", 4)
	for _, task := range []scheduler.Task{fetch, search, f.collector.PicturesTask(3)} {
		rebuilt, err := registry.Build(task.Record())
		if err != nil {
			t.Fatalf("Build(%s): %v", task.Name(), err)
		}
		if rebuilt.ID() != task.ID() || string(rebuilt.Record().Payload) != string(task.Record().Payload) {
			t.Fatalf("%s: restored task mismatch", task.Name())
		}
	}
}
