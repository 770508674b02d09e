package testsupport

import (
	"context"
	"testing"

	"github.com/nexelor/media-collector/internal/config"
	"github.com/nexelor/media-collector/internal/scheduler"
	"github.com/nexelor/media-collector/internal/store"
)

// MustOpenStore opens a store.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

// MustGetRecord loads a task record or fails the test.
func MustGetRecord(t testing.TB, st *store.Store, id string) scheduler.Record {
	t.Helper()

	rec, err := st.TaskRecord(context.Background(), id)
	if err != nil {
		t.Fatalf("store.TaskRecord(%s): %v", id, err)
	}
	return rec
}
