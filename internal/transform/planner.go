package transform

import "clipflow/internal/queue"

// PlanSegments splits a video of the given total duration into fixed-length
// segments. A trailing remainder becomes its own segment only when it is at
// least minTail seconds long; shorter tails are discarded. The plan is capped
// at maxSegments so a very long video cannot flood the publish queue.
func PlanSegments(totalSeconds float64, segmentSeconds, minTailSeconds, maxSegments int) []queue.Segment {
	if totalSeconds <= 0 || segmentSeconds <= 0 {
		return nil
	}

	segDur := float64(segmentSeconds)
	parts := int(totalSeconds / segDur)
	remainder := totalSeconds - float64(parts)*segDur
	if remainder >= float64(minTailSeconds) {
		parts++
	}
	if maxSegments > 0 && parts > maxSegments {
		parts = maxSegments
	}
	if parts <= 0 {
		return nil
	}

	segments := make([]queue.Segment, 0, parts)
	for i := 1; i <= parts; i++ {
		start := float64(i-1) * segDur
		duration := segDur
		if start+duration > totalSeconds {
			duration = totalSeconds - start
		}
		segments = append(segments, queue.Segment{
			Index:    i,
			Start:    start,
			Duration: duration,
		})
	}
	return segments
}
