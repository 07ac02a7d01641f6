package sampler

import (
	"math"
)

// Intervals returns count points evenly spaced strictly inside
// (0, duration), at i*duration/(count+1) for i in 1..count, with score 0
func Intervals(duration float64, count int) []ChangePoint {
	if count <= 0 || !(duration > 0) {
		return []ChangePoint{}
	}

	points := make([]ChangePoint, count)
	for i := range points {
		points[i] = ChangePoint{Timestamp: float64(i+1) * duration / float64(count+1)}
	}
	return points
}

// BackfillOptions configures Backfill
type BackfillOptions struct {
	MinFrames int
	MaxFrames int
	// Precision is the number of decimals used to decide whether a
	// timestamp is already represented
	Precision int
}

// Backfill merges evenly spaced points into detected ones. Only spaced
// points whose rounded timestamp is not already present are added. The
// result is time ordered and capped at opts.MaxFrames, dropping spaced
// points before detected ones.
func Backfill(points []ChangePoint, duration float64, opts BackfillOptions) []ChangePoint {
	count := min(opts.MinFrames, opts.MaxFrames)

	scale := math.Pow(10, float64(opts.Precision))
	key := func(t float64) int64 {
		return int64(math.Round(t * scale))
	}

	seen := make(map[int64]struct{}, len(points))
	out := make([]ChangePoint, 0, len(points)+count)
	for _, p := range points {
		seen[key(p.Timestamp)] = struct{}{}
		out = append(out, p)
	}

	// Spaced points are distinct by construction and are only checked
	// against detected ones
	for _, p := range Intervals(duration, count) {
		if _, ok := seen[key(p.Timestamp)]; ok {
			continue
		}
		out = append(out, p)
	}

	sortByTime(out)
	return capByScore(out, opts.MaxFrames)
}
