package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// RetentionTarget names files in Dir matching Pattern that expire after
// MaxAge. Paths in Exclude are never removed. A zero MaxAge falls back to
// the retention passed to CleanupOldLogs.
type RetentionTarget struct {
	Dir     string
	Pattern string
	Exclude []string
	MaxAge  time.Duration
}

// CleanupOldLogs prunes rotated log files and other expiring artifacts such as
// abandoned picture downloads. retentionDays <= 0 disables pruning for
// targets without their own MaxAge. It returns the number of files removed.
func CleanupOldLogs(logger *slog.Logger, retentionDays int, targets ...RetentionTarget) int {
	var fallback time.Duration
	if retentionDays > 0 {
		fallback = time.Duration(retentionDays) * 24 * time.Hour
	}
	now := time.Now()

	removed := 0
	for _, target := range targets {
		maxAge := target.MaxAge
		if maxAge <= 0 {
			maxAge = fallback
		}
		if maxAge <= 0 {
			continue
		}
		removed += pruneTarget(logger, target, now.Add(-maxAge))
	}
	return removed
}

func pruneTarget(logger *slog.Logger, target RetentionTarget, cutoff time.Time) int {
	dir := strings.TrimSpace(target.Dir)
	if dir == "" {
		return 0
	}
	matches, err := filepath.Glob(filepath.Join(dir, patternOrAll(target.Pattern)))
	if err != nil {
		return 0
	}

	excluded := make(map[string]struct{}, len(target.Exclude))
	for _, path := range target.Exclude {
		if abs := absPath(path); abs != "" {
			excluded[abs] = struct{}{}
		}
	}

	removed := 0
	for _, match := range matches {
		path := absPath(match)
		if _, skip := excluded[path]; skip {
			continue
		}
		info, err := os.Lstat(path)
		if err != nil || info.IsDir() || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(path); err != nil {
			WarnWithContext(logger, "retention remove failed; file remains", "retention_failed",
				String("path", path),
				Error(err),
				String(FieldErrorHint, "check file permissions on "+dir),
				String(FieldImpact, "expired file remains on disk"),
			)
			continue
		}
		removed++
		if logger != nil {
			logger.Debug("expired file pruned",
				String("path", path),
				String(FieldEventType, "retention_pruned"),
			)
		}
	}
	return removed
}

func patternOrAll(pattern string) string {
	if p := strings.TrimSpace(pattern); p != "" {
		return p
	}
	return "*"
}

func absPath(path string) string {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return ""
	}
	if abs, err := filepath.Abs(trimmed); err == nil {
		return abs
	}
	return filepath.Clean(trimmed)
}
