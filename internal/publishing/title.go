package publishing

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// maxTitleLength leaves room inside the platform's 100-character limit for the
// configured suffix.
const maxTitleLength = 95

var titleCaser = cases.Title(language.English)

// SegmentTitle builds the published title for one segment. Multi-part videos
// get a part marker; the source title is truncated so the marker and suffix
// always fit.
func SegmentTitle(sourceTitle string, part, total int, suffix string) string {
	base := titleCaser.String(strings.TrimSpace(sourceTitle))
	if total > 1 {
		marker := fmt.Sprintf(" - Part %d", part)
		if len(base)+len(marker) > maxTitleLength {
			base = strings.TrimSpace(base[:maxTitleLength-len(marker)])
		}
		base += marker
	} else if len(base) > maxTitleLength {
		base = strings.TrimSpace(base[:maxTitleLength])
	}

	if suffix = strings.TrimSpace(suffix); suffix != "" {
		base += " " + suffix
	}
	return base
}

// SegmentDescription renders the configured description template. Supported
// placeholders are {title}, {part}, {total}, and {url}.
func SegmentDescription(template, sourceTitle string, part, total int, sourceURL string) string {
	replacer := strings.NewReplacer(
		"{title}", sourceTitle,
		"{part}", fmt.Sprintf("%d", part),
		"{total}", fmt.Sprintf("%d", total),
		"{url}", sourceURL,
	)
	return replacer.Replace(template)
}
