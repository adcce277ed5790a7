package queue

import "errors"

var (
	// ErrNotFound indicates the requested item does not exist.
	ErrNotFound = errors.New("item not found")
	// ErrStaleWrite indicates the item was modified by another invocation
	// since it was loaded; the caller should skip the item and defer to the
	// next scheduled run.
	ErrStaleWrite = errors.New("stale write")
	// ErrInvalidTransition indicates an update attempted to move a status
	// backward or skip a lifecycle step.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrRecordCorrupt indicates a persisted record could not be parsed.
	// Corrupt records are surfaced, never silently dropped.
	ErrRecordCorrupt = errors.New("record corrupt")
)
