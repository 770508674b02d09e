// Package mal collects anime from the MyAnimeList v2 API, enriching records
// with Jikan data and fanning out extended-data and picture work.
package mal

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/nexelor/media-collector/internal/httpclient"
)

// DefaultBaseURL is the MyAnimeList v2 API root.
const DefaultBaseURL = "https://api.myanimelist.net/v2"

// DefaultSearchLimit is used when a search does not name a limit.
const DefaultSearchLimit = 10

const detailFields = "id,title,main_picture,alternative_titles,start_date,end_date,synopsis,mean,rank," +
	"popularity,num_list_users,num_scoring_users,nsfw,genres,created_at,updated_at,media_type,status," +
	"num_episodes,start_season,broadcast,source,average_episode_duration,rating,studios,pictures," +
	"background,related_anime,related_manga,statistics"

// Client reads anime from MyAnimeList. The client id header is carried by
// the underlying HTTP client.
type Client struct {
	http    *httpclient.Client
	baseURL string
}

// NewClient returns a client rooted at baseURL, or DefaultBaseURL when empty.
func NewClient(http *httpclient.Client, baseURL string) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{http: http, baseURL: baseURL}
}

// flexInt accepts numbers encoded either as JSON numbers or strings; the
// statistics block uses the latter.
type flexInt int

func (f *flexInt) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(string(data), `"`)
	if raw == "" || raw == "null" {
		*f = 0
		return nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fmt.Errorf("integer value %s: %w", data, err)
	}
	*f = flexInt(n)
	return nil
}

// Picture is a MyAnimeList image pair.
type Picture struct {
	Large  string `json:"large"`
	Medium string `json:"medium"`
}

// Entity is a genre or studio reference.
type Entity struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// AlternativeTitles carries English, Japanese, and synonym titles.
type AlternativeTitles struct {
	Synonyms []string `json:"synonyms"`
	En       string   `json:"en"`
	Ja       string   `json:"ja"`
}

// Season is the premiere season.
type Season struct {
	Year   int    `json:"year"`
	Season string `json:"season"`
}

// Broadcast is the weekly airing slot.
type Broadcast struct {
	DayOfTheWeek string `json:"day_of_the_week"`
	StartTime    string `json:"start_time"`
}

// Statistics are list-status counts.
type Statistics struct {
	NumListUsers flexInt `json:"num_list_users"`
	Status       struct {
		Watching    flexInt `json:"watching"`
		Completed   flexInt `json:"completed"`
		OnHold      flexInt `json:"on_hold"`
		Dropped     flexInt `json:"dropped"`
		PlanToWatch flexInt `json:"plan_to_watch"`
	} `json:"status"`
}

// Anime is the MyAnimeList anime resource.
type Anime struct {
	ID                     int                `json:"id"`
	Title                  string             `json:"title"`
	MainPicture            *Picture           `json:"main_picture"`
	AlternativeTitles      *AlternativeTitles `json:"alternative_titles"`
	StartDate              string             `json:"start_date"`
	EndDate                string             `json:"end_date"`
	Synopsis               string             `json:"synopsis"`
	Background             string             `json:"background"`
	Mean                   float64            `json:"mean"`
	Rank                   int                `json:"rank"`
	Popularity             int                `json:"popularity"`
	NumListUsers           int                `json:"num_list_users"`
	NumScoringUsers        int                `json:"num_scoring_users"`
	NSFW                   string             `json:"nsfw"`
	Genres                 []Entity           `json:"genres"`
	MediaType              string             `json:"media_type"`
	Status                 string             `json:"status"`
	NumEpisodes            int                `json:"num_episodes"`
	StartSeason            *Season            `json:"start_season"`
	Broadcast              *Broadcast         `json:"broadcast"`
	Source                 string             `json:"source"`
	AverageEpisodeDuration int                `json:"average_episode_duration"`
	Rating                 string             `json:"rating"`
	Studios                []Entity           `json:"studios"`
	Pictures               []Picture          `json:"pictures"`
	Statistics             *Statistics        `json:"statistics"`
	RelatedAnime           json.RawMessage    `json:"related_anime,omitempty"`
}

type searchResponse struct {
	Data []struct {
		Node Anime `json:"node"`
	} `json:"data"`
}

// Anime fetches the full resource for id.
func (c *Client) Anime(ctx context.Context, id int) (Anime, error) {
	endpoint := fmt.Sprintf("%s/anime/%d?fields=%s", c.baseURL, id, detailFields)
	return httpclient.FetchDecoded[Anime](ctx, c.http, endpoint, httpclient.NewRequestConfig())
}

// Search returns up to limit matches for query.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]Anime, error) {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	params := url.Values{}
	params.Set("q", query)
	params.Set("limit", strconv.Itoa(limit))
	params.Set("fields", detailFields)
	endpoint := c.baseURL + "/anime?" + params.Encode()

	resp, err := httpclient.FetchDecoded[searchResponse](ctx, c.http, endpoint, httpclient.NewRequestConfig())
	if err != nil {
		return nil, err
	}
	out := make([]Anime, 0, len(resp.Data))
	for _, item := range resp.Data {
		out = append(out, item.Node)
	}
	return out, nil
}
