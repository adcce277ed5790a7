package transform_test

import (
	"testing"

	"clipflow/internal/transform"
)

func TestPlanSegmentsEvenSplit(t *testing.T) {
	segments := transform.PlanSegments(180, 60, 10, 10)
	if len(segments) != 3 {
		t.Fatalf("expected 3 segments, got %d", len(segments))
	}
	for i, seg := range segments {
		if seg.Index != i+1 {
			t.Fatalf("segment %d has index %d", i, seg.Index)
		}
		if seg.Duration != 60 {
			t.Fatalf("segment %d has duration %f", i, seg.Duration)
		}
		if seg.Start != float64(i)*60 {
			t.Fatalf("segment %d starts at %f", i, seg.Start)
		}
	}
}

func TestPlanSegmentsTailRule(t *testing.T) {
	// A 15 second tail clears the 10 second minimum and becomes its own part.
	segments := transform.PlanSegments(135, 60, 10, 10)
	if len(segments) != 3 {
		t.Fatalf("expected tail segment, got %d segments", len(segments))
	}
	last := segments[len(segments)-1]
	if last.Start != 120 || last.Duration != 15 {
		t.Fatalf("unexpected tail segment: %+v", last)
	}

	// A 5 second tail is discarded.
	segments = transform.PlanSegments(125, 60, 10, 10)
	if len(segments) != 2 {
		t.Fatalf("expected short tail to be dropped, got %d segments", len(segments))
	}
}

func TestPlanSegmentsCap(t *testing.T) {
	segments := transform.PlanSegments(3600, 60, 10, 10)
	if len(segments) != 10 {
		t.Fatalf("expected cap at 10 segments, got %d", len(segments))
	}
}

func TestPlanSegmentsTooShort(t *testing.T) {
	if segments := transform.PlanSegments(5, 60, 10, 10); segments != nil {
		t.Fatalf("expected nil plan for too-short video, got %#v", segments)
	}
	if segments := transform.PlanSegments(0, 60, 10, 10); segments != nil {
		t.Fatalf("expected nil plan for zero duration, got %#v", segments)
	}
}

func TestPlanSegmentsShortVideoSingleSegment(t *testing.T) {
	// Shorter than one segment but above the tail minimum: one short part.
	segments := transform.PlanSegments(45, 60, 10, 10)
	if len(segments) != 1 {
		t.Fatalf("expected single segment, got %d", len(segments))
	}
	if segments[0].Start != 0 || segments[0].Duration != 45 {
		t.Fatalf("unexpected segment: %+v", segments[0])
	}
}
