package testsupport

import (
	"context"
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"

	"clipflow/internal/config"
	"clipflow/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewItem inserts a discovered work item for tests using the provided store.
func NewItem(t testing.TB, store *queue.Store, id, title string, priority int64) *queue.Item {
	t.Helper()

	item := &queue.Item{
		ID:        id,
		Title:     title,
		SourceURL: "https://www.youtube.com/watch?v=" + id,
		Priority:  priority,
	}
	if err := store.Insert(context.Background(), item); err != nil {
		t.Fatalf("store.Insert: %v", err)
	}
	return item
}

// CorruptItemStatus rewrites an item's status column to an arbitrary value,
// bypassing the store's validation. Used to simulate on-disk corruption.
func CorruptItemStatus(t testing.TB, store *queue.Store, id, status string) {
	t.Helper()

	db, err := sql.Open("sqlite", store.Path())
	if err != nil {
		t.Fatalf("open raw db: %v", err)
	}
	defer db.Close()

	if _, err := db.Exec(`UPDATE work_items SET status = ? WHERE id = ?`, status, id); err != nil {
		t.Fatalf("corrupt item %s: %v", id, err)
	}
}
