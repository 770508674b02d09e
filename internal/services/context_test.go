package services_test

import (
	"context"
	"testing"

	"github.com/nexelor/media-collector/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithTaskID(ctx, "mal_update_42")
	ctx = services.WithTaskName(ctx, "update_anime_mal")
	ctx = services.WithQueue(ctx, "anime")
	ctx = services.WithRequestID(ctx, "req-123")

	if id, ok := services.TaskIDFromContext(ctx); !ok || id != "mal_update_42" {
		t.Fatalf("unexpected task id: %v %v", id, ok)
	}
	if name, ok := services.TaskNameFromContext(ctx); !ok || name != "update_anime_mal" {
		t.Fatalf("unexpected task name: %v %v", name, ok)
	}
	if queue, ok := services.QueueFromContext(ctx); !ok || queue != "anime" {
		t.Fatalf("unexpected queue: %v %v", queue, ok)
	}
	if rid, ok := services.RequestIDFromContext(ctx); !ok || rid != "req-123" {
		t.Fatalf("unexpected request id: %v %v", rid, ok)
	}
}

func TestQueueBlankPreservesContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithQueue(ctx, "")
	if _, ok := services.QueueFromContext(ctx); ok {
		t.Fatal("expected no queue value")
	}
}
