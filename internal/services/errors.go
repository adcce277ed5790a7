package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrTransient marks failures worth retrying on a later invocation
	// (network errors, tool timeouts, flaky endpoints).
	ErrTransient = errors.New("transient failure")
	// ErrPermanent marks failures that no retry can fix (unplayable source,
	// rejected media). Items fail immediately regardless of retry budget.
	ErrPermanent = errors.New("permanent failure")
	// ErrQuotaDenied signals the local quota ledger refused a reservation.
	// Not a failure; the scheduler stops issuing publish work for the run.
	ErrQuotaDenied = errors.New("quota denied")
)

// FailureKind classifies a stage error for scheduler bookkeeping.
type FailureKind int

const (
	KindTransient FailureKind = iota
	KindPermanent
	KindQuotaDenied
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Classify maps a stage error onto the failure taxonomy. Unmarked errors are
// treated as transient so an unexpected failure is retried rather than
// discarding the item.
func Classify(err error) FailureKind {
	switch {
	case errors.Is(err, ErrPermanent):
		return KindPermanent
	case errors.Is(err, ErrQuotaDenied):
		return KindQuotaDenied
	default:
		return KindTransient
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
