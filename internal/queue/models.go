package queue

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Status represents the lifecycle of a work item.
type Status string

const (
	StatusDiscovered  Status = "discovered"
	StatusFetched     Status = "fetched"
	StatusTransformed Status = "transformed"
	StatusCompleted   Status = "completed"
	StatusFailed      Status = "failed"
)

var allStatuses = []Status{
	StatusDiscovered,
	StatusFetched,
	StatusTransformed,
	StatusCompleted,
	StatusFailed,
}

// statusOrdinal positions each status on the forward-only lifecycle.
// Failed sits outside the chain; it is reachable from any non-terminal state.
var statusOrdinal = map[Status]int{
	StatusDiscovered:  0,
	StatusFetched:     1,
	StatusTransformed: 2,
	StatusCompleted:   3,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsTerminal reports whether a status admits no further transitions.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Ordinal returns the position of a status in the forward chain, or -1 for
// Failed and unknown values.
func (s Status) Ordinal() int {
	if ord, ok := statusOrdinal[s]; ok {
		return ord
	}
	return -1
}

// CanTransition reports whether moving from one status to another respects the
// forward-only lifecycle: one step along the chain, failure from any
// non-terminal state, or a same-status payload update.
func CanTransition(from, to Status) bool {
	if _, ok := statusSet[to]; !ok {
		return false
	}
	if from == to {
		return true
	}
	if from.IsTerminal() {
		return false
	}
	if to == StatusFailed {
		return true
	}
	fromOrd, okFrom := statusOrdinal[from]
	toOrd, okTo := statusOrdinal[to]
	return okFrom && okTo && toOrd == fromOrd+1
}

// Segment is one derived output unit of a work item, created by the transform
// stage. The segment list is immutable once stamped; publish only reads it.
type Segment struct {
	Index    int     `json:"index"`
	Start    float64 `json:"start"`
	Duration float64 `json:"duration"`
	Artifact string  `json:"artifact,omitempty"`
}

// Item represents a work item persisted in SQLite.
type Item struct {
	ID            string
	Title         string
	SourceURL     string
	Priority      int64
	Status        Status
	FetchedFile   string
	Segments      []Segment
	PublishedRefs map[int]string
	RetryCount    int
	LastError     string
	CreatedAt     time.Time
	UpdatedAt     time.Time

	// Revision increments on every successful Update; a mismatch on write
	// means another invocation advanced the record first.
	Revision int64
}

// SetFailed marks the item as failed with the given error message.
func (i *Item) SetFailed(message string) {
	i.Status = StatusFailed
	i.LastError = message
}

// UnpublishedSegments returns the segments with no published ref yet, in
// ascending index order.
func (i *Item) UnpublishedSegments() []Segment {
	if len(i.Segments) == 0 {
		return nil
	}
	pending := make([]Segment, 0, len(i.Segments))
	for _, seg := range i.Segments {
		if _, ok := i.PublishedRefs[seg.Index]; ok {
			continue
		}
		pending = append(pending, seg)
	}
	sort.Slice(pending, func(a, b int) bool { return pending[a].Index < pending[b].Index })
	return pending
}

// AllSegmentsPublished reports whether every segment carries a published ref.
func (i *Item) AllSegmentsPublished() bool {
	if len(i.Segments) == 0 {
		return false
	}
	for _, seg := range i.Segments {
		if _, ok := i.PublishedRefs[seg.Index]; !ok {
			return false
		}
	}
	return true
}

func marshalSegments(segments []Segment) (string, error) {
	if len(segments) == 0 {
		return "", nil
	}
	data, err := json.Marshal(segments)
	if err != nil {
		return "", fmt.Errorf("marshal segments: %w", err)
	}
	return string(data), nil
}

func parseSegments(raw string) ([]Segment, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var segments []Segment
	if err := json.Unmarshal([]byte(raw), &segments); err != nil {
		return nil, fmt.Errorf("parse segments: %w", err)
	}
	sort.Slice(segments, func(a, b int) bool { return segments[a].Index < segments[b].Index })
	return segments, nil
}

// Published refs serialize as a JSON object keyed by the decimal segment
// index, keeping the on-disk form readable and order-independent.
func marshalPublishedRefs(refs map[int]string) (string, error) {
	if len(refs) == 0 {
		return "", nil
	}
	byKey := make(map[string]string, len(refs))
	for index, remoteID := range refs {
		byKey[strconv.Itoa(index)] = remoteID
	}
	data, err := json.Marshal(byKey)
	if err != nil {
		return "", fmt.Errorf("marshal published refs: %w", err)
	}
	return string(data), nil
}

func parsePublishedRefs(raw string) (map[int]string, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var byKey map[string]string
	if err := json.Unmarshal([]byte(raw), &byKey); err != nil {
		return nil, fmt.Errorf("parse published refs: %w", err)
	}
	refs := make(map[int]string, len(byKey))
	for key, remoteID := range byKey {
		index, err := strconv.Atoi(key)
		if err != nil {
			return nil, fmt.Errorf("parse published ref index %q: %w", key, err)
		}
		refs[index] = remoteID
	}
	return refs, nil
}
