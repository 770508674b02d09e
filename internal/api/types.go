package api

import "encoding/json"

// Version is reported by GET /health and the CLI.
const Version = "0.1.0"

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// TaskQueuedResponse acknowledges an accepted enqueue request.
type TaskQueuedResponse struct {
	Message  string `json:"message"`
	TaskType string `json:"task_type"`
	TaskID   string `json:"task_id,omitempty"`
	Queued   int    `json:"queued,omitempty"`
}

// ErrorResponse carries a failure message.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse answers GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// ModuleStats reports which collector modules are enabled.
type ModuleStats struct {
	MALEnabled     bool `json:"mal_enabled"`
	AniListEnabled bool `json:"anilist_enabled"`
	PictureEnabled bool `json:"picture_enabled"`
}

// StatsResponse answers GET /stats.
type StatsResponse struct {
	Tasks     map[string]int `json:"tasks"`
	Documents map[string]int `json:"documents"`
	Inbox     map[string]int `json:"inbox"`
	Modules   ModuleStats    `json:"modules"`
}

// Task describes a persisted task record.
type Task struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Queue     string          `json:"queue"`
	Priority  string          `json:"priority"`
	Status    string          `json:"status"`
	Error     string          `json:"error,omitempty"`
	CreatedAt string          `json:"created_at,omitempty"`
	UpdatedAt string          `json:"updated_at,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// TaskListResponse wraps a collection of task records.
type TaskListResponse struct {
	Tasks []Task `json:"tasks"`
}

// AnimeFetchRequest is the body of POST /api/anime/fetch.
type AnimeFetchRequest struct {
	AnimeID      int  `json:"anime_id"`
	WithJikan    bool `json:"with_jikan"`
	WithPictures bool `json:"with_pictures"`
	FullFetch    bool `json:"full_fetch"`
}

// SearchRequest is the body of both search endpoints.
type SearchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

// AnimeUpdateRequest is the body of POST /api/anime/update.
type AnimeUpdateRequest struct {
	AnimeID int `json:"anime_id"`
}

// AnimeBatchRequest is the body of POST /api/anime/batch.
type AnimeBatchRequest struct {
	AnimeIDs []int `json:"anime_ids"`
}

// AnimeExtendedRequest is the body of POST /api/anime/extended.
type AnimeExtendedRequest struct {
	AnimeID         int  `json:"anime_id"`
	FetchCharacters bool `json:"fetch_characters"`
	FetchStaff      bool `json:"fetch_staff"`
	FetchEpisodes   bool `json:"fetch_episodes"`
	FetchPictures   bool `json:"fetch_pictures"`
	FetchStatistics bool `json:"fetch_statistics"`
}

// AniListFetchRequest is the body of POST /api/anime/anilist/fetch. Exactly
// one of AniListID and MALID is set.
type AniListFetchRequest struct {
	AniListID    int  `json:"anilist_id,omitempty"`
	MALID        int  `json:"mal_id,omitempty"`
	WithPictures bool `json:"with_pictures"`
}

// PictureFetchRequest is the body of POST /api/picture/fetch.
type PictureFetchRequest struct {
	URL      string `json:"url"`
	Filename string `json:"filename,omitempty"`
}

// PictureBatchRequest is the body of POST /api/picture/batch.
type PictureBatchRequest struct {
	URLs []string `json:"urls"`
}

// DeletedResponse answers DELETE requests.
type DeletedResponse struct {
	Deleted bool `json:"deleted"`
}
