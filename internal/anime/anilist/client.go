// Package anilist collects anime from the AniList GraphQL API.
package anilist

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nexelor/media-collector/internal/httpclient"
	"github.com/nexelor/media-collector/internal/services"
)

// DefaultBaseURL is the AniList GraphQL endpoint.
const DefaultBaseURL = "https://graphql.anilist.co"

// ErrGraphQL marks a response whose errors array was non-empty.
var ErrGraphQL = errors.New("graphql error")

// Client posts GraphQL queries to AniList.
type Client struct {
	http     *httpclient.Client
	endpoint string
}

// NewClient returns a client for endpoint, or DefaultBaseURL when empty.
func NewClient(http *httpclient.Client, endpoint string) *Client {
	endpoint = strings.TrimRight(strings.TrimSpace(endpoint), "/")
	if endpoint == "" {
		endpoint = DefaultBaseURL
	}
	return &Client{http: http, endpoint: endpoint}
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphQLError struct {
	Message string `json:"message"`
	Status  int    `json:"status,omitempty"`
}

type graphQLResponse[T any] struct {
	Data   *T             `json:"data"`
	Errors []graphQLError `json:"errors"`
}

// Name is a person's display names.
type Name struct {
	Full   string `json:"full"`
	Native string `json:"native"`
}

// Image is an AniList image set.
type Image struct {
	ExtraLarge string `json:"extraLarge,omitempty"`
	Large      string `json:"large"`
	Medium     string `json:"medium"`
	Color      string `json:"color,omitempty"`
}

// FuzzyDate is a date whose parts may be unknown.
type FuzzyDate struct {
	Year  *int `json:"year"`
	Month *int `json:"month"`
	Day   *int `json:"day"`
}

// String renders the known prefix as YYYY, YYYY-MM, or YYYY-MM-DD.
func (d FuzzyDate) String() string {
	if d.Year == nil {
		return ""
	}
	out := fmt.Sprintf("%04d", *d.Year)
	if d.Month == nil {
		return out
	}
	out += fmt.Sprintf("-%02d", *d.Month)
	if d.Day == nil {
		return out
	}
	return out + fmt.Sprintf("-%02d", *d.Day)
}

// PersonNode is a character or staff member.
type PersonNode struct {
	ID       int    `json:"id"`
	Name     Name   `json:"name"`
	Image    Image  `json:"image"`
	SiteURL  string `json:"siteUrl"`
	Language string `json:"language,omitempty"`
}

// Media is the AniList anime resource, trimmed to the fields collected.
type Media struct {
	ID    int `json:"id"`
	IDMal int `json:"idMal"`
	Title struct {
		Romaji        string `json:"romaji"`
		English       string `json:"english"`
		Native        string `json:"native"`
		UserPreferred string `json:"userPreferred"`
	} `json:"title"`
	Format       string    `json:"format"`
	Status       string    `json:"status"`
	Description  string    `json:"description"`
	StartDate    FuzzyDate `json:"startDate"`
	EndDate      FuzzyDate `json:"endDate"`
	Season       string    `json:"season"`
	SeasonYear   int       `json:"seasonYear"`
	Episodes     int       `json:"episodes"`
	Duration     int       `json:"duration"`
	Source       string    `json:"source"`
	CoverImage   Image     `json:"coverImage"`
	BannerImage  string    `json:"bannerImage"`
	Genres       []string  `json:"genres"`
	Synonyms     []string  `json:"synonyms"`
	AverageScore int       `json:"averageScore"`
	Popularity   int       `json:"popularity"`
	Favourites   int       `json:"favourites"`
	SiteURL      string    `json:"siteUrl"`
	Characters   struct {
		Edges []struct {
			Role        string       `json:"role"`
			Node        PersonNode   `json:"node"`
			VoiceActors []PersonNode `json:"voiceActors"`
		} `json:"edges"`
	} `json:"characters"`
	Staff struct {
		Edges []struct {
			Role string     `json:"role"`
			Node PersonNode `json:"node"`
		} `json:"edges"`
	} `json:"staff"`
	Studios struct {
		Edges []struct {
			IsMain bool `json:"isMain"`
			Node   struct {
				ID   int    `json:"id"`
				Name string `json:"name"`
			} `json:"node"`
		} `json:"edges"`
	} `json:"studios"`
}

type mediaData struct {
	Media *Media `json:"Media"`
}

type pageData struct {
	Page struct {
		Media []Media `json:"media"`
	} `json:"Page"`
}

// query posts q and unwraps the GraphQL envelope. A non-empty errors array
// fails the call even when partial data is present.
func query[T any](ctx context.Context, c *Client, q string, vars map[string]any) (T, error) {
	var zero T
	resp, err := httpclient.PostDecoded[graphQLResponse[T]](ctx, c.http, c.endpoint,
		graphQLRequest{Query: q, Variables: vars},
		httpclient.NewRequestConfig().WithHeader("Accept", "application/json"))
	if err != nil {
		return zero, err
	}
	if len(resp.Errors) > 0 {
		messages := make([]string, 0, len(resp.Errors))
		for _, e := range resp.Errors {
			messages = append(messages, e.Message)
		}
		return zero, fmt.Errorf("%w: %w: AniList GraphQL errors: %s", services.ErrExternalTool, ErrGraphQL, strings.Join(messages, ", "))
	}
	if resp.Data == nil {
		return zero, services.Wrap(services.ErrExternalTool, "anilist", "query", "no data returned from AniList", nil)
	}
	return *resp.Data, nil
}

func single(data mediaData, what string) (Media, error) {
	if data.Media == nil {
		return Media{}, services.Wrap(services.ErrNotFound, "anilist", "media", what+" not found", nil)
	}
	return *data.Media, nil
}

// Media fetches an anime by AniList id.
func (c *Client) Media(ctx context.Context, id int) (Media, error) {
	data, err := query[mediaData](ctx, c, mediaByIDQuery, map[string]any{"id": id})
	if err != nil {
		return Media{}, err
	}
	return single(data, fmt.Sprintf("anilist id %d", id))
}

// MediaByMAL fetches an anime by its MyAnimeList id.
func (c *Client) MediaByMAL(ctx context.Context, malID int) (Media, error) {
	data, err := query[mediaData](ctx, c, mediaByMALQuery, map[string]any{"malId": malID})
	if err != nil {
		return Media{}, err
	}
	return single(data, fmt.Sprintf("mal id %d", malID))
}

// Search returns up to perPage matches, most popular first.
func (c *Client) Search(ctx context.Context, search string, perPage int) ([]Media, error) {
	data, err := query[pageData](ctx, c, searchQuery, map[string]any{"search": search, "page": 1, "perPage": perPage})
	if err != nil {
		return nil, err
	}
	return data.Page.Media, nil
}
