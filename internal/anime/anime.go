package anime

import (
	"context"
	"slices"
	"strconv"
	"time"

	"github.com/nexelor/media-collector/internal/scheduler"
	"github.com/nexelor/media-collector/internal/store"
)

// Queue names owned by the anime collectors.
const (
	QueueMAL     = "mal"
	QueueAniList = "anilist"
)

// Source identifiers recorded in Anime.Sources.
const (
	SourceMAL     = "mal"
	SourceJikan   = "jikan"
	SourceAniList = "anilist"
)

// Title is one name of an anime, tagged with its kind (Default, English,
// Japanese, Synonym, Romaji, Native).
type Title struct {
	Type  string `json:"type"`
	Title string `json:"title"`
}

// Entity is a named upstream object such as a genre or studio.
type Entity struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Image is a set of URLs for one picture at different sizes.
type Image struct {
	Large  string `json:"large,omitempty"`
	Medium string `json:"medium,omitempty"`
	Small  string `json:"small,omitempty"`
}

// Best returns the largest available URL.
func (i Image) Best() string {
	switch {
	case i.Large != "":
		return i.Large
	case i.Medium != "":
		return i.Medium
	default:
		return i.Small
	}
}

// Person is a character, voice actor, or staff member.
type Person struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	URL   string `json:"url,omitempty"`
	Image Image  `json:"image"`
}

// Character is a cast entry with its voice actors.
type Character struct {
	Character   Person       `json:"character"`
	Role        string       `json:"role"`
	VoiceActors []VoiceActor `json:"voice_actors,omitempty"`
}

// VoiceActor is a performer for a character in one language.
type VoiceActor struct {
	Person   Person `json:"person"`
	Language string `json:"language"`
}

// StaffMember is a production credit.
type StaffMember struct {
	Person    Person   `json:"person"`
	Positions []string `json:"positions"`
}

// Episode is one broadcast episode.
type Episode struct {
	Number   int     `json:"number"`
	Title    string  `json:"title"`
	Aired    string  `json:"aired,omitempty"`
	Score    float64 `json:"score,omitempty"`
	Filler   bool    `json:"filler"`
	Recap    bool    `json:"recap"`
	ForumURL string  `json:"forum_url,omitempty"`
}

// Statistics are list-status counts.
type Statistics struct {
	Watching    int `json:"watching"`
	Completed   int `json:"completed"`
	OnHold      int `json:"on_hold"`
	Dropped     int `json:"dropped"`
	PlanToWatch int `json:"plan_to_watch"`
	Total       int `json:"total"`
}

// Anime is the unified record persisted by every source.
type Anime struct {
	MALID       int           `json:"mal_id,omitempty"`
	AniListID   int           `json:"anilist_id,omitempty"`
	URL         string        `json:"url,omitempty"`
	Titles      []Title       `json:"titles"`
	Synopsis    string        `json:"synopsis,omitempty"`
	Background  string        `json:"background,omitempty"`
	MediaType   string        `json:"media_type,omitempty"`
	Status      string        `json:"status,omitempty"`
	Source      string        `json:"source,omitempty"`
	Rating      string        `json:"rating,omitempty"`
	NumEpisodes int           `json:"num_episodes"`
	Duration    int           `json:"duration_seconds,omitempty"`
	Score       float64       `json:"score,omitempty"`
	ScoredBy    int           `json:"scored_by,omitempty"`
	Rank        int           `json:"rank,omitempty"`
	Popularity  int           `json:"popularity,omitempty"`
	Members     int           `json:"members,omitempty"`
	Favorites   int           `json:"favorites,omitempty"`
	Season      string        `json:"season,omitempty"`
	Year        int           `json:"year,omitempty"`
	AiredFrom   string        `json:"aired_from,omitempty"`
	AiredTo     string        `json:"aired_to,omitempty"`
	Genres      []Entity      `json:"genres,omitempty"`
	Studios     []Entity      `json:"studios,omitempty"`
	Image       Image         `json:"image"`
	Banner      string        `json:"banner,omitempty"`
	Pictures    []Image       `json:"pictures,omitempty"`
	Characters  []Character   `json:"characters,omitempty"`
	Staff       []StaffMember `json:"staff,omitempty"`
	Episodes    []Episode     `json:"episodes,omitempty"`
	Statistics  *Statistics   `json:"statistics,omitempty"`
	Sources     []string      `json:"sources"`
	FetchedAt   time.Time     `json:"fetched_at"`
	ExtendedAt  *time.Time    `json:"extended_at,omitempty"`
}

// PrimaryTitle returns the Default title, or the first title of any kind.
func (a Anime) PrimaryTitle() string {
	for _, t := range a.Titles {
		if t.Type == "Default" {
			return t.Title
		}
	}
	if len(a.Titles) > 0 {
		return a.Titles[0].Title
	}
	return ""
}

// TitleStrings returns every title, used for search ranking.
func (a Anime) TitleStrings() []string {
	out := make([]string, 0, len(a.Titles))
	for _, t := range a.Titles {
		out = append(out, t.Title)
	}
	return out
}

// AddSource records that source contributed to the record.
func (a *Anime) AddSource(source string) {
	if !slices.Contains(a.Sources, source) {
		a.Sources = append(a.Sources, source)
	}
}

// AddTitle appends a title unless the same text is already present.
func (a *Anime) AddTitle(kind, title string) {
	if title == "" {
		return
	}
	for _, t := range a.Titles {
		if t.Title == title {
			return
		}
	}
	a.Titles = append(a.Titles, Title{Type: kind, Title: title})
}

// Key returns the document key for a numeric id.
func Key(id int) string {
	return strconv.Itoa(id)
}

// LoadMAL reads the MyAnimeList-keyed record for id.
func LoadMAL(ctx context.Context, docs scheduler.Documents, id int) (Anime, bool, error) {
	var a Anime
	found, err := docs.Get(ctx, store.CollectionAnimeMAL, Key(id), &a)
	return a, found, err
}

// SaveMAL stores a keyed by its MyAnimeList id.
func SaveMAL(ctx context.Context, docs scheduler.Documents, a Anime) error {
	return docs.Upsert(ctx, store.CollectionAnimeMAL, Key(a.MALID), a)
}

// LoadAniList reads the AniList-keyed record for id.
func LoadAniList(ctx context.Context, docs scheduler.Documents, id int) (Anime, bool, error) {
	var a Anime
	found, err := docs.Get(ctx, store.CollectionAnimeAniList, Key(id), &a)
	return a, found, err
}

// SaveAniList stores a keyed by its AniList id.
func SaveAniList(ctx context.Context, docs scheduler.Documents, a Anime) error {
	return docs.Upsert(ctx, store.CollectionAnimeAniList, Key(a.AniListID), a)
}
