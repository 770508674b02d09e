package mal_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/nexelor/media-collector/internal/anime"
	"github.com/nexelor/media-collector/internal/anime/jikan"
	"github.com/nexelor/media-collector/internal/anime/mal"
	"github.com/nexelor/media-collector/internal/logging"
	"github.com/nexelor/media-collector/internal/picture"
	"github.com/nexelor/media-collector/internal/scheduler"
	"github.com/nexelor/media-collector/internal/services"
	"github.com/nexelor/media-collector/internal/store"
	"github.com/nexelor/media-collector/internal/testsupport"
)

const malDetail = `{
	"id": 1,
	"title": "Cowboy Bebop",
	"main_picture": {"medium": "https://cdn.example.com/1m.jpg", "large": "https://cdn.example.com/1l.jpg"},
	"alternative_titles": {"synonyms": ["Bebop"], "en": "Cowboy Bebop", "ja": "カウボーイビバップ"},
	"start_date": "1998-04-03",
	"end_date": "1999-04-24",
	"synopsis": "Space bounty hunters.",
	"mean": 8.75,
	"rank": 46,
	"popularity": 43,
	"num_list_users": 1900000,
	"num_scoring_users": 1000000,
	"genres": [{"id": 1, "name": "Action"}],
	"media_type": "tv",
	"status": "finished_airing",
	"num_episodes": 26,
	"start_season": {"year": 1998, "season": "spring"},
	"source": "original",
	"average_episode_duration": 1440,
	"rating": "r",
	"studios": [{"id": 14, "name": "Sunrise"}],
	"statistics": {"num_list_users": 1900000, "status": {"watching": "100", "completed": "1500000", "on_hold": "50", "dropped": "20", "plan_to_watch": "300"}}
}`

const jikanFull = `{"data": {
	"mal_id": 1,
	"url": "https://myanimelist.net/anime/1/Cowboy_Bebop",
	"images": {"jpg": {"image_url": "https://cdn.example.com/j.jpg", "small_image_url": "https://cdn.example.com/js.jpg", "large_image_url": "https://cdn.example.com/jl.jpg"}},
	"favorites": 80000
}}`

type fixture struct {
	collector   *mal.Collector
	store       *store.Store
	sub         *testsupport.Submitter
	jikanFails  *atomic.Bool
	pageTwoFail *atomic.Bool
	queries     chan string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		sub:         &testsupport.Submitter{},
		jikanFails:  &atomic.Bool{},
		pageTwoFail: &atomic.Bool{},
		queries:     make(chan string, 4),
	}
	writeJSON := func(body string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, body)
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/mal/anime/1", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("fields") == "" {
			t.Errorf("expected fields parameter")
		}
		writeJSON(malDetail)(w, r)
	})
	mux.HandleFunc("/mal/anime", func(w http.ResponseWriter, r *http.Request) {
		f.queries <- r.URL.Query().Get("q") + "|" + r.URL.Query().Get("limit")
		writeJSON(`{"data": [
			{"node": {"id": 1, "title": "Cowboy Bebop (search)"}},
			{"node": {"id": 5, "title": "Cowboy Bebop: Tengoku no Tobira", "media_type": "movie"}}
		]}`)(w, r)
	})
	mux.HandleFunc("/jikan/anime/1/full", func(w http.ResponseWriter, r *http.Request) {
		if f.jikanFails.Load() {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		writeJSON(jikanFull)(w, r)
	})
	mux.HandleFunc("/jikan/anime/1/characters", writeJSON(`{"data": [{
		"character": {"mal_id": 1, "name": "Spike Spiegel", "images": {"jpg": {"image_url": "https://cdn.example.com/spike.jpg"}}},
		"role": "Main",
		"voice_actors": [{"person": {"mal_id": 11, "name": "Koichi Yamadera", "images": {"jpg": {"image_url": "https://cdn.example.com/koichi.jpg"}}}, "language": "Japanese"}]
	}]}`))
	mux.HandleFunc("/jikan/anime/1/staff", writeJSON(`{"data": [{"person": {"mal_id": 20, "name": "Shinichiro Watanabe"}, "positions": ["Director"]}]}`))
	mux.HandleFunc("/jikan/anime/1/pictures", writeJSON(`{"data": [{"jpg": {"image_url": "https://cdn.example.com/p1.jpg"}}]}`))
	mux.HandleFunc("/jikan/anime/1/statistics", writeJSON(`{"data": {"watching": 1, "completed": 2, "total": 3}}`))
	mux.HandleFunc("/jikan/anime/1/episodes", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "1" {
			writeJSON(`{"pagination": {"has_next_page": true}, "data": [{"mal_id": 1, "title": "Asteroid Blues"}]}`)(w, r)
			return
		}
		if f.pageTwoFail.Load() {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		writeJSON(`{"pagination": {"has_next_page": false}, "data": [{"mal_id": 2, "title": "Stray Dog Strut"}]}`)(w, r)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	cfg := testsupport.NewConfig(t)
	f.store = testsupport.MustOpenStore(t, cfg)

	fetcher, err := picture.NewFetcher(testsupport.NewHTTPClient(t, "pictures"), cfg.Paths.PictureDir)
	if err != nil {
		t.Fatalf("NewFetcher: %v", err)
	}
	f.collector = mal.NewCollector(
		mal.NewClient(testsupport.NewHTTPClient(t, "mal"), server.URL+"/mal"),
		jikan.NewClient(testsupport.NewHTTPClient(t, "jikan"), server.URL+"/jikan"),
		fetcher,
	)
	return f
}

func (f *fixture) resources() scheduler.Resources {
	return scheduler.Resources{Documents: f.store, Submitter: f.sub, Logger: logging.NewNop()}
}

func (f *fixture) load(t *testing.T, id int) anime.Anime {
	t.Helper()
	a, found, err := anime.LoadMAL(context.Background(), f.store, id)
	if err != nil || !found {
		t.Fatalf("LoadMAL(%d): found=%v err=%v", id, found, err)
	}
	return a
}

func TestFetchStoresConvertedAnimeWithJikan(t *testing.T) {
	f := newFixture(t)
	task, err := f.collector.FetchTask(mal.FetchOptions{AnimeID: 1, WithJikan: true})
	if err != nil {
		t.Fatalf("FetchTask: %v", err)
	}
	if task.Priority() != scheduler.PriorityNormal || task.Name() != mal.TaskFetch {
		t.Fatalf("unexpected identity %s/%s", task.Name(), task.Priority())
	}
	if err := task.Execute(context.Background(), f.resources()); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	a := f.load(t, 1)
	if a.PrimaryTitle() != "Cowboy Bebop" || len(a.Titles) != 3 {
		t.Fatalf("unexpected titles: %+v", a.Titles)
	}
	if a.MediaType != "TV" || a.Status != "Finished Airing" || a.Season != "Spring" || a.Year != 1998 {
		t.Fatalf("unexpected labels: %q %q %q %d", a.MediaType, a.Status, a.Season, a.Year)
	}
	if a.Rating != "R - 17+ (violence & profanity)" {
		t.Fatalf("unexpected rating %q", a.Rating)
	}
	if a.Statistics == nil || a.Statistics.Completed != 1500000 || a.Statistics.Total != 1900000 {
		t.Fatalf("unexpected statistics: %+v", a.Statistics)
	}
	if a.Image.Small != "https://cdn.example.com/js.jpg" || a.Favorites != 80000 {
		t.Fatalf("expected jikan enrichment, got image=%+v favorites=%d", a.Image, a.Favorites)
	}
	if len(a.Sources) != 2 || a.Sources[0] != anime.SourceMAL || a.Sources[1] != anime.SourceJikan {
		t.Fatalf("unexpected sources: %v", a.Sources)
	}
	if len(f.sub.Submissions()) != 0 {
		t.Fatalf("expected no fan-out, got %d", len(f.sub.Submissions()))
	}
}

func TestFetchContinuesWhenJikanFails(t *testing.T) {
	f := newFixture(t)
	f.jikanFails.Store(true)
	task, _ := f.collector.FetchTask(mal.FetchOptions{AnimeID: 1, WithJikan: true})

	if err := task.Execute(context.Background(), f.resources()); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	a := f.load(t, 1)
	if len(a.Sources) != 1 || a.Image.Large != "https://cdn.example.com/1l.jpg" {
		t.Fatalf("expected myanimelist-only record, got sources=%v image=%+v", a.Sources, a.Image)
	}
}

func TestFetchMissingAnimeFails(t *testing.T) {
	f := newFixture(t)
	task, _ := f.collector.FetchTask(mal.FetchOptions{AnimeID: 2})

	if err := task.Execute(context.Background(), f.resources()); err == nil {
		t.Fatal("expected error for missing anime")
	}
	if _, found, _ := anime.LoadMAL(context.Background(), f.store, 2); found {
		t.Fatal("expected nothing stored")
	}
}

func TestFullFetchQueuesExtendedThenPictures(t *testing.T) {
	f := newFixture(t)
	task, _ := f.collector.FetchTask(mal.FetchOptions{AnimeID: 1, FullFetch: true})
	if opts := task.Options(); !opts.WithJikan || !opts.WithPictures {
		t.Fatalf("full fetch should imply jikan and pictures: %+v", opts)
	}

	if err := task.Execute(context.Background(), f.resources()); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	subs := f.sub.Submissions()
	if len(subs) != 2 {
		t.Fatalf("expected 2 follow-up tasks, got %d", len(subs))
	}
	if subs[0].Queue != anime.QueueMAL || subs[0].Task.ID() != "fetch_extended_1" {
		t.Fatalf("unexpected first follow-up %s on %s", subs[0].Task.ID(), subs[0].Queue)
	}
	if subs[1].Task.ID() != "fetch_anime_pictures_1" || subs[1].Task.Priority() != scheduler.PriorityLow {
		t.Fatalf("unexpected second follow-up %s", subs[1].Task.ID())
	}
}

func TestFetchSkipsPicturesWhenModuleDisabled(t *testing.T) {
	f := newFixture(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, malDetail)
	}))
	t.Cleanup(server.Close)
	collector := mal.NewCollector(mal.NewClient(testsupport.NewHTTPClient(t, "mal"), server.URL), nil, nil)

	task, _ := collector.FetchTask(mal.FetchOptions{AnimeID: 1, WithPictures: true})
	if err := task.Execute(context.Background(), f.resources()); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(f.sub.Submissions()) != 0 {
		t.Fatal("expected picture fan-out to be skipped")
	}
	if collector.PicturesEnabled() {
		t.Fatal("expected pictures disabled")
	}
}

func TestSearchNormalizesQueryAndKeepsStoredRecords(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	existing := anime.Anime{MALID: 1, Synopsis: "full record"}
	existing.AddTitle("Default", "Cowboy Bebop")
	if err := anime.SaveMAL(ctx, f.store, existing); err != nil {
		t.Fatalf("SaveMAL: %v", err)
	}

	task, err := f.collector.SearchTask("  ｃｏｗｂｏｙ   bebop ", 0)
	if err != nil {
		t.Fatalf("SearchTask: %v", err)
	}
	if task.Params().Limit != mal.DefaultSearchLimit {
		t.Fatalf("expected default limit, got %d", task.Params().Limit)
	}
	if err := task.Execute(ctx, f.resources()); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if got := <-f.queries; got != "cowboy bebop|10" {
		t.Fatalf("unexpected upstream query %q", got)
	}
	if a := f.load(t, 1); a.Synopsis != "full record" {
		t.Fatalf("search overwrote stored record: %+v", a)
	}
	if a := f.load(t, 5); a.MediaType != "Movie" {
		t.Fatalf("unexpected new record: %+v", a)
	}

	if _, err := f.collector.SearchTask("   ", 5); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for blank query, got %v", err)
	}
}

func TestUpdateKeepsExtendedData(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	prev := anime.Anime{
		MALID:      1,
		AniListID:  1,
		Characters: []anime.Character{{Character: anime.Person{ID: 1, Name: "Spike Spiegel"}}},
		Image:      anime.Image{Large: "l", Medium: "m", Small: "s"},
		Sources:    []string{anime.SourceMAL, anime.SourceAniList},
	}
	if err := anime.SaveMAL(ctx, f.store, prev); err != nil {
		t.Fatalf("SaveMAL: %v", err)
	}

	task, err := f.collector.UpdateTask(1)
	if err != nil {
		t.Fatalf("UpdateTask: %v", err)
	}
	if task.ID() != "mal_update_1" || task.Priority() != scheduler.PriorityHigh {
		t.Fatalf("unexpected identity %s/%s", task.ID(), task.Priority())
	}
	if err := task.Execute(ctx, f.resources()); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	a := f.load(t, 1)
	if a.NumEpisodes != 26 || a.PrimaryTitle() != "Cowboy Bebop" {
		t.Fatalf("expected refreshed fields, got %+v", a)
	}
	if len(a.Characters) != 1 || a.AniListID != 1 || a.Image.Small != "s" {
		t.Fatalf("expected carried-forward data, got %+v", a)
	}
	if len(a.Sources) != 2 {
		t.Fatalf("unexpected sources %v", a.Sources)
	}
}

func TestBatchFansOutOneFetchPerID(t *testing.T) {
	f := newFixture(t)
	task, err := f.collector.BatchTask([]int{1, 5, 1, 9})
	if err != nil {
		t.Fatalf("BatchTask: %v", err)
	}
	if task.Priority() != scheduler.PriorityLow {
		t.Fatalf("unexpected priority %s", task.Priority())
	}
	if err := task.Execute(context.Background(), f.resources()); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	subs := f.sub.Submissions()
	if len(subs) != 3 {
		t.Fatalf("expected 3 fetches, got %d", len(subs))
	}
	for i, want := range []int{1, 5, 9} {
		fetch, ok := subs[i].Task.(*mal.FetchAnimeTask)
		if !ok {
			t.Fatalf("unexpected task type %T", subs[i].Task)
		}
		if fetch.Options().AnimeID != want || subs[i].Queue != anime.QueueMAL {
			t.Fatalf("submission %d: got id %d on %s", i, fetch.Options().AnimeID, subs[i].Queue)
		}
	}

	if _, err := f.collector.BatchTask(nil); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for empty batch, got %v", err)
	}
}

func TestExtendedRequiresStoredAnime(t *testing.T) {
	f := newFixture(t)
	task, err := f.collector.ExtendedTask(mal.ExtendedOptions{AnimeID: 1})
	if err != nil {
		t.Fatalf("ExtendedTask: %v", err)
	}
	err = task.Execute(context.Background(), f.resources())
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestExtendedCollectsSelectedResources(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if err := anime.SaveMAL(ctx, f.store, anime.Anime{MALID: 1, Titles: []anime.Title{{Type: "Default", Title: "Cowboy Bebop"}}}); err != nil {
		t.Fatalf("SaveMAL: %v", err)
	}

	task, _ := f.collector.ExtendedTask(mal.ExtendedOptions{AnimeID: 1})
	if opts := task.Options(); !opts.Characters || !opts.Statistics {
		t.Fatalf("expected all resources when none selected: %+v", opts)
	}
	if err := task.Execute(ctx, f.resources()); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	a := f.load(t, 1)
	if len(a.Characters) != 1 || len(a.Characters[0].VoiceActors) != 1 {
		t.Fatalf("unexpected characters: %+v", a.Characters)
	}
	if len(a.Staff) != 1 || a.Staff[0].Positions[0] != "Director" {
		t.Fatalf("unexpected staff: %+v", a.Staff)
	}
	if len(a.Episodes) != 2 || len(a.Pictures) != 1 || a.Statistics == nil || a.Statistics.Total != 3 {
		t.Fatalf("unexpected extended data: episodes=%d pictures=%d stats=%+v", len(a.Episodes), len(a.Pictures), a.Statistics)
	}
	if a.ExtendedAt == nil {
		t.Fatal("expected extended_at to be set")
	}
}

func TestExtendedKeepsPartialEpisodes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.pageTwoFail.Store(true)
	if err := anime.SaveMAL(ctx, f.store, anime.Anime{MALID: 1}); err != nil {
		t.Fatalf("SaveMAL: %v", err)
	}

	task, _ := f.collector.ExtendedTask(mal.ExtendedOptions{AnimeID: 1, Episodes: true})
	if err := task.Execute(ctx, f.resources()); err == nil {
		t.Fatal("expected error from failing episode page")
	}
	a := f.load(t, 1)
	if len(a.Episodes) != 1 || a.Episodes[0].Title != "Asteroid Blues" {
		t.Fatalf("expected partial episodes stored, got %+v", a.Episodes)
	}
	if len(a.Characters) != 0 {
		t.Fatal("characters were not selected")
	}
}

func TestAnimePicturesFanOut(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := anime.Anime{
		MALID:    1,
		Image:    anime.Image{Large: "https://cdn.example.com/l.jpg", Medium: "https://cdn.example.com/m.jpg"},
		Pictures: []anime.Image{{Large: "https://cdn.example.com/l.jpg"}, {Medium: "https://cdn.example.com/p.jpg"}},
		Characters: []anime.Character{{
			Character:   anime.Person{ID: 7, Image: anime.Image{Medium: "https://cdn.example.com/c.jpg"}},
			VoiceActors: []anime.VoiceActor{{Person: anime.Person{ID: 8}}},
		}},
	}
	if err := anime.SaveMAL(ctx, f.store, a); err != nil {
		t.Fatalf("SaveMAL: %v", err)
	}

	if err := f.collector.AnimePicturesTask(1).Execute(ctx, f.resources()); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	subs := f.sub.Submissions()
	if len(subs) != 4 {
		t.Fatalf("expected 4 distinct pictures, got %d", len(subs))
	}
	last, ok := subs[3].Task.(*picture.FetchPictureTask)
	if !ok || subs[3].Queue != picture.Queue {
		t.Fatalf("unexpected submission %T on %s", subs[3].Task, subs[3].Queue)
	}
	req := last.Request()
	if req.EntityType != "character" || req.EntityID != "7" {
		t.Fatalf("unexpected character picture request %+v", req)
	}

	reqs := mal.PictureRequests(a)
	if reqs[0].Tags[0] != "mal" || reqs[0].Tags[1] != "main" || reqs[0].Tags[2] != "large" {
		t.Fatalf("unexpected tags %v", reqs[0].Tags)
	}
}

func TestAnimePicturesRequiresStoredAnime(t *testing.T) {
	f := newFixture(t)
	err := f.collector.AnimePicturesTask(3).Execute(context.Background(), f.resources())
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRegisterRestoresEveryTask(t *testing.T) {
	f := newFixture(t)
	registry := scheduler.NewRegistry()
	mal.Register(registry, f.collector)

	fetch, _ := f.collector.FetchTask(mal.FetchOptions{AnimeID: 1, WithJikan: true})
	search, _ := f.collector.SearchTask("bebop", 3)
	update, _ := f.collector.UpdateTask(1)
	batch, _ := f.collector.BatchTask([]int{1, 2})
	extended, _ := f.collector.ExtendedTask(mal.ExtendedOptions{AnimeID: 1, Staff: true})
	tasks := []scheduler.Task{fetch, search, update, batch, extended, f.collector.AnimePicturesTask(1)}

	for _, task := range tasks {
		rebuilt, err := registry.Build(task.Record())
		if err != nil {
			t.Fatalf("Build(%s): %v", task.Name(), err)
		}
		if rebuilt.ID() != task.ID() || rebuilt.Priority() != task.Priority() {
			t.Fatalf("%s: identity mismatch", task.Name())
		}
		if string(rebuilt.Record().Payload) != string(task.Record().Payload) {
			t.Fatalf("%s: payload mismatch %s vs %s", task.Name(), rebuilt.Record().Payload, task.Record().Payload)
		}
	}
	if len(registry.Names()) != 6 {
		t.Fatalf("expected 6 registered names, got %v", registry.Names())
	}
}
