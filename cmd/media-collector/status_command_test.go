package main

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/nexelor/media-collector/internal/preflight"
	"github.com/nexelor/media-collector/internal/store"
)

func TestRenderStatusLineNoColor(t *testing.T) {
	got := renderStatusLine("media-collector", statusError, "Not running", false)
	want := "  media-collector:     [ERROR] Not running"
	if got != want {
		t.Fatalf("renderStatusLine mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestRenderStatusLineWithColor(t *testing.T) {
	got := renderStatusLine("API", statusOK, "healthy", true)
	if !strings.HasPrefix(got, statusStyles[statusOK].color) {
		t.Fatalf("expected green prefix, got %q", got)
	}
	if !strings.HasSuffix(got, ansiReset) {
		t.Fatalf("expected reset suffix, got %q", got)
	}
}

func TestPreflightLines(t *testing.T) {
	lines := preflightLines([]preflight.Result{
		{Name: "Data directory", Passed: true, Detail: "/data (read/write ok)"},
		{Name: "Jikan", Passed: true, Detail: "Disabled"},
		{Name: "AniList", Detail: "server error (502)"},
	}, false)
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if !strings.Contains(lines[0], "[OK]") || !strings.Contains(lines[1], "[INFO] Disabled") || !strings.Contains(lines[2], "[ERROR] server error (502)") {
		t.Fatalf("unexpected lines: %q", lines)
	}
}

func TestStoreHealthLine(t *testing.T) {
	line := storeHealthLine(store.DatabaseHealth{IntegrityCheck: false}, nil, false)
	if !strings.Contains(line, "[WARN] integrity check failed") {
		t.Fatalf("unexpected line: %q", line)
	}
	line = storeHealthLine(store.DatabaseHealth{}, errors.New("ping database: closed"), false)
	if !strings.Contains(line, "[ERROR] ping database: closed") {
		t.Fatalf("unexpected line: %q", line)
	}
}

func TestShouldColorizeNonFile(t *testing.T) {
	if shouldColorize(io.Discard) {
		t.Fatalf("expected non-file writer to disable color")
	}
}

func TestStatusWithoutDaemon(t *testing.T) {
	env := setupCLITestEnv(t, "")
	seedRecords(t, env)

	out, _, err := runCLI(t, env, "status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "[ERROR] Not running")
	requireContains(t, out, "== Preflight ==")
	requireContains(t, out, "Data directory")
	requireContains(t, out, "[INFO] Disabled")
	requireContains(t, out, "== Tasks ==")
	requireContains(t, out, "0 documents, 3 task records")
	if !strings.Contains(out, "Failed:") || !strings.Contains(out, "[ERROR] 1") {
		t.Fatalf("expected failed task count in output:\n%s", out)
	}

	out, _, err = runCLI(t, env, "status", "--skip-preflight")
	if err != nil {
		t.Fatalf("status --skip-preflight: %v", err)
	}
	if strings.Contains(out, "== Preflight ==") {
		t.Fatalf("expected preflight to be skipped:\n%s", out)
	}
}
