package publishing_test

import (
	"strings"
	"testing"

	"clipflow/internal/publishing"
)

func TestSegmentTitleMultiPart(t *testing.T) {
	got := publishing.SegmentTitle("my great video", 2, 3, "#shorts")
	want := "My Great Video - Part 2 #shorts"
	if got != want {
		t.Fatalf("SegmentTitle = %q, want %q", got, want)
	}
}

func TestSegmentTitleSinglePartOmitsMarker(t *testing.T) {
	got := publishing.SegmentTitle("solo clip", 1, 1, "#shorts")
	if strings.Contains(got, "Part") {
		t.Fatalf("single part title should not carry a part marker: %q", got)
	}
}

func TestSegmentTitleTruncatesLongTitles(t *testing.T) {
	long := strings.Repeat("word ", 40)
	got := publishing.SegmentTitle(long, 3, 5, "#shorts")
	if !strings.Contains(got, "- Part 3") {
		t.Fatalf("part marker lost during truncation: %q", got)
	}
	base := strings.TrimSuffix(got, " #shorts")
	if len(base) > 95 {
		t.Fatalf("base title exceeds limit: %d chars", len(base))
	}
}

func TestSegmentDescriptionTemplate(t *testing.T) {
	template := "{title} - Part {part}/{total}\n\nFull video: {url}"
	got := publishing.SegmentDescription(template, "My Video", 2, 3, "https://example.test/watch?v=abc")
	want := "My Video - Part 2/3\n\nFull video: https://example.test/watch?v=abc"
	if got != want {
		t.Fatalf("SegmentDescription = %q, want %q", got, want)
	}
}
