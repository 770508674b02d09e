// Package jikan reads the Jikan v4 REST API, an unofficial MyAnimeList
// mirror that needs no client key, and merges its richer data into unified
// anime records.
package jikan

import (
	"context"
	"fmt"
	"strings"

	"github.com/nexelor/media-collector/internal/httpclient"
)

// DefaultBaseURL is the public Jikan endpoint.
const DefaultBaseURL = "https://api.jikan.moe/v4"

// maxEpisodePages bounds pagination for very long series.
const maxEpisodePages = 100

// Client wraps a rate-limited HTTP client with Jikan endpoints.
type Client struct {
	http    *httpclient.Client
	baseURL string
}

// NewClient returns a Client rooted at baseURL (DefaultBaseURL when empty).
func NewClient(http *httpclient.Client, baseURL string) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{http: http, baseURL: strings.TrimRight(baseURL, "/")}
}

type envelope[T any] struct {
	Data T `json:"data"`
}

type imageSet struct {
	ImageURL      string `json:"image_url"`
	SmallImageURL string `json:"small_image_url"`
	LargeImageURL string `json:"large_image_url"`
}

// Images are the JPG and WebP renditions of one picture.
type Images struct {
	JPG  imageSet `json:"jpg"`
	WebP imageSet `json:"webp"`
}

type named struct {
	MalID int    `json:"mal_id"`
	Name  string `json:"name"`
	URL   string `json:"url"`
}

type person struct {
	MalID  int    `json:"mal_id"`
	URL    string `json:"url"`
	Name   string `json:"name"`
	Images Images `json:"images"`
}

// Anime is the /anime/{id}/full payload, trimmed to the fields merged.
type Anime struct {
	MalID  int    `json:"mal_id"`
	URL    string `json:"url"`
	Images Images `json:"images"`
	Titles []struct {
		Type  string `json:"type"`
		Title string `json:"title"`
	} `json:"titles"`
	Type       string  `json:"type"`
	Source     string  `json:"source"`
	Episodes   int     `json:"episodes"`
	Status     string  `json:"status"`
	Rating     string  `json:"rating"`
	Score      float64 `json:"score"`
	ScoredBy   int     `json:"scored_by"`
	Rank       int     `json:"rank"`
	Members    int     `json:"members"`
	Favorites  int     `json:"favorites"`
	Popularity int     `json:"popularity"`
	Synopsis   string  `json:"synopsis"`
	Background string  `json:"background"`
	Season     string  `json:"season"`
	Year       int     `json:"year"`
	Aired      struct {
		From string `json:"from"`
		To   string `json:"to"`
	} `json:"aired"`
	Genres  []named `json:"genres"`
	Studios []named `json:"studios"`
}

// CharacterEntry is one /characters row.
type CharacterEntry struct {
	Character   person `json:"character"`
	Role        string `json:"role"`
	VoiceActors []struct {
		Person   person `json:"person"`
		Language string `json:"language"`
	} `json:"voice_actors"`
}

// StaffEntry is one /staff row.
type StaffEntry struct {
	Person    person   `json:"person"`
	Positions []string `json:"positions"`
}

// EpisodeEntry is one /episodes row.
type EpisodeEntry struct {
	MalID    int     `json:"mal_id"`
	Title    string  `json:"title"`
	Aired    string  `json:"aired"`
	Score    float64 `json:"score"`
	Filler   bool    `json:"filler"`
	Recap    bool    `json:"recap"`
	ForumURL string  `json:"forum_url"`
}

type episodePage struct {
	Pagination struct {
		LastVisiblePage int  `json:"last_visible_page"`
		HasNextPage     bool `json:"has_next_page"`
	} `json:"pagination"`
	Data []EpisodeEntry `json:"data"`
}

// Statistics is the /statistics payload.
type Statistics struct {
	Watching    int `json:"watching"`
	Completed   int `json:"completed"`
	OnHold      int `json:"on_hold"`
	Dropped     int `json:"dropped"`
	PlanToWatch int `json:"plan_to_watch"`
	Total       int `json:"total"`
}

func (c *Client) url(format string, args ...any) string {
	return c.baseURL + fmt.Sprintf(format, args...)
}

// Anime fetches the full record for a MyAnimeList id.
func (c *Client) Anime(ctx context.Context, id int) (Anime, error) {
	resp, err := httpclient.FetchDecoded[envelope[Anime]](ctx, c.http, c.url("/anime/%d/full", id), httpclient.NewRequestConfig())
	return resp.Data, err
}

// Characters fetches the cast list.
func (c *Client) Characters(ctx context.Context, id int) ([]CharacterEntry, error) {
	resp, err := httpclient.FetchDecoded[envelope[[]CharacterEntry]](ctx, c.http, c.url("/anime/%d/characters", id), httpclient.NewRequestConfig())
	return resp.Data, err
}

// Staff fetches production credits.
func (c *Client) Staff(ctx context.Context, id int) ([]StaffEntry, error) {
	resp, err := httpclient.FetchDecoded[envelope[[]StaffEntry]](ctx, c.http, c.url("/anime/%d/staff", id), httpclient.NewRequestConfig())
	return resp.Data, err
}

// Pictures fetches additional artwork.
func (c *Client) Pictures(ctx context.Context, id int) ([]Images, error) {
	resp, err := httpclient.FetchDecoded[envelope[[]Images]](ctx, c.http, c.url("/anime/%d/pictures", id), httpclient.NewRequestConfig())
	return resp.Data, err
}

// Statistics fetches list-status counts.
func (c *Client) Statistics(ctx context.Context, id int) (Statistics, error) {
	resp, err := httpclient.FetchDecoded[envelope[Statistics]](ctx, c.http, c.url("/anime/%d/statistics", id), httpclient.NewRequestConfig())
	return resp.Data, err
}

// Episodes walks every episode page. A failure on the first page is returned;
// a failure on a later page stops pagination and returns the episodes
// gathered so far together with the error.
func (c *Client) Episodes(ctx context.Context, id int) ([]EpisodeEntry, error) {
	var episodes []EpisodeEntry
	for page := 1; page <= maxEpisodePages; page++ {
		resp, err := httpclient.FetchDecoded[episodePage](ctx, c.http, c.url("/anime/%d/episodes?page=%d", id, page), httpclient.NewRequestConfig())
		if err != nil {
			return episodes, fmt.Errorf("episodes page %d: %w", page, err)
		}
		episodes = append(episodes, resp.Data...)
		if !resp.Pagination.HasNextPage {
			break
		}
	}
	return episodes, nil
}
