package scheduler

import (
	"sort"

	"clipflow/internal/queue"
)

// Less orders work items for selection: higher priority first, then older
// creation time, then lexicographic ID. The chain is total, so selection
// order is deterministic across invocations.
func Less(a, b *queue.Item) bool {
	if a.Priority != b.Priority {
		return a.Priority > b.Priority
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}

// SortItems sorts items in selection order.
func SortItems(items []*queue.Item) {
	sort.SliceStable(items, func(i, j int) bool { return Less(items[i], items[j]) })
}
