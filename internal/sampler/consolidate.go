package sampler

import (
	"sort"
)

// Consolidate reduces time-ordered change points to at most maxFrames.
//
// Points closer than minInterval to the last kept point are treated as the
// same transition and only the higher scoring one survives. If more than
// maxFrames remain, the highest scoring are kept. Output is always in
// timestamp order.
func Consolidate(points []ChangePoint, minInterval float64, maxFrames int) []ChangePoint {
	if len(points) == 0 {
		return []ChangePoint{}
	}

	merged := make([]ChangePoint, 0, len(points))
	for _, p := range points {
		if len(merged) == 0 {
			merged = append(merged, p)
			continue
		}
		last := &merged[len(merged)-1]
		if p.Timestamp-last.Timestamp < minInterval {
			if p.Score > last.Score {
				*last = p
			}
			continue
		}
		merged = append(merged, p)
	}

	return capByScore(merged, maxFrames)
}

// capByScore keeps the maxFrames highest scoring points of a time-ordered
// slice, breaking ties by earlier timestamp, and returns them in time order
func capByScore(points []ChangePoint, maxFrames int) []ChangePoint {
	if maxFrames < 0 {
		maxFrames = 0
	}
	if len(points) <= maxFrames {
		return points
	}

	ranked := make([]ChangePoint, len(points))
	copy(ranked, points)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	kept := ranked[:maxFrames]
	sortByTime(kept)
	return kept
}

func sortByTime(points []ChangePoint) {
	sort.SliceStable(points, func(i, j int) bool {
		return points[i].Timestamp < points[j].Timestamp
	})
}
