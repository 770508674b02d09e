package preflight

import (
	"context"
	"net/http"
	"strings"

	"github.com/nexelor/media-collector/internal/config"
)

const anilistProbeQuery = `{"query":"query { Media(id: 1, type: ANIME) { id } }"}`

// CheckMALFromConfig evaluates MyAnimeList status from config and connectivity.
func CheckMALFromConfig(ctx context.Context, cfg *config.Config) Result {
	const name = "MyAnimeList"

	if cfg == nil {
		return Result{Name: name, Detail: "Unknown"}
	}
	src := cfg.Sources.MAL
	if !src.Enabled {
		return Result{Name: name, Passed: true, Detail: "Disabled"}
	}
	if src.RequiresAPIKey && strings.TrimSpace(src.APIKey) == "" {
		return Result{Name: name, Detail: "Missing API key"}
	}
	return CheckEndpoint(ctx, name, Probe{
		URL:     src.BaseURL + "/anime/1?fields=id",
		Headers: map[string]string{"X-MAL-CLIENT-ID": src.APIKey},
	})
}

// CheckJikanFromConfig evaluates Jikan status from config and connectivity.
func CheckJikanFromConfig(ctx context.Context, cfg *config.Config) Result {
	const name = "Jikan"

	if cfg == nil {
		return Result{Name: name, Detail: "Unknown"}
	}
	if !cfg.Sources.Jikan.Enabled {
		return Result{Name: name, Passed: true, Detail: "Disabled"}
	}
	return CheckEndpoint(ctx, name, Probe{URL: cfg.Sources.Jikan.BaseURL + "/anime/1"})
}

// CheckAniListFromConfig evaluates AniList status from config and connectivity.
func CheckAniListFromConfig(ctx context.Context, cfg *config.Config) Result {
	const name = "AniList"

	if cfg == nil {
		return Result{Name: name, Detail: "Unknown"}
	}
	if !cfg.Sources.AniList.Enabled {
		return Result{Name: name, Passed: true, Detail: "Disabled"}
	}
	return CheckEndpoint(ctx, name, Probe{
		Method:  http.MethodPost,
		URL:     cfg.Sources.AniList.BaseURL,
		Body:    anilistProbeQuery,
		Headers: map[string]string{"Content-Type": "application/json", "Accept": "application/json"},
	})
}
