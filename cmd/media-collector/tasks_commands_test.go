package main

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/nexelor/media-collector/internal/api"
)

func TestTasksListAndShow(t *testing.T) {
	env := setupCLITestEnv(t, "")
	seedRecords(t, env)

	out, _, err := runCLI(t, env, "tasks", "list")
	if err != nil {
		t.Fatalf("tasks list: %v", err)
	}
	for _, id := range []string{"mal_fetch_1", "mal_fetch_2", "anilist_fetch_3"} {
		requireContains(t, out, id)
	}

	out, _, err = runCLI(t, env, "tasks", "list", "--status", "failed", "--json")
	if err != nil {
		t.Fatalf("tasks list --json: %v", err)
	}
	var resp api.TaskListResponse
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("decode json output: %v\n%s", err, out)
	}
	if len(resp.Tasks) != 1 || resp.Tasks[0].ID != "mal_fetch_2" || resp.Tasks[0].Error != "mal returned 404" {
		t.Fatalf("unexpected tasks: %+v", resp.Tasks)
	}

	out, _, err = runCLI(t, env, "tasks", "list", "--queue", "anilist")
	if err != nil {
		t.Fatalf("tasks list --queue: %v", err)
	}
	if strings.Contains(out, "mal_fetch_1") || !strings.Contains(out, "anilist_fetch_3") {
		t.Fatalf("queue filter not applied:\n%s", out)
	}

	if _, _, err := runCLI(t, env, "tasks", "list", "--status", "sleeping"); err == nil {
		t.Fatal("expected error for unknown status")
	}

	out, _, err = runCLI(t, env, "tasks", "show", "mal_fetch_2")
	if err != nil {
		t.Fatalf("tasks show: %v", err)
	}
	requireContains(t, out, "mal returned 404")
	requireContains(t, out, `{"anime_id":1}`)

	if _, _, err := runCLI(t, env, "tasks", "show", "missing"); err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestTasksPrune(t *testing.T) {
	env := setupCLITestEnv(t, "")
	seedRecords(t, env)

	out, _, err := runCLI(t, env, "tasks", "prune")
	if err != nil {
		t.Fatalf("tasks prune: %v", err)
	}
	requireContains(t, out, "Pruned 0 task records")

	out, _, err = runCLI(t, env, "tasks", "prune", "--older-than", "0s", "--status", "failed")
	if err != nil {
		t.Fatalf("tasks prune failed: %v", err)
	}
	requireContains(t, out, "Pruned 1 task records")

	out, _, err = runCLI(t, env, "tasks", "prune", "--older-than", "0s")
	if err != nil {
		t.Fatalf("tasks prune terminal: %v", err)
	}
	requireContains(t, out, "Pruned 1 task records")

	out, _, err = runCLI(t, env, "tasks", "list", "--json")
	if err != nil {
		t.Fatalf("tasks list: %v", err)
	}
	var resp api.TaskListResponse
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("decode json output: %v", err)
	}
	if len(resp.Tasks) != 1 || resp.Tasks[0].ID != "anilist_fetch_3" {
		t.Fatalf("expected only the pending record to remain, got %+v", resp.Tasks)
	}
}
