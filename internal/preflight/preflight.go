package preflight

import (
	"context"

	"github.com/nexelor/media-collector/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes the directory checks followed by one check per source.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
	}
	if cfg.Pictures.Enabled {
		results = append(results, CheckDirectoryAccess("Picture directory", cfg.Paths.PictureDir))
	}
	results = append(results,
		CheckMALFromConfig(ctx, cfg),
		CheckJikanFromConfig(ctx, cfg),
		CheckAniListFromConfig(ctx, cfg),
	)
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}
