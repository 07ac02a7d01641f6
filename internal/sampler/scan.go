package sampler

import (
	"context"
	"fmt"
	"image"

	"github.com/keagan/stepsnap/internal/video"
)

// ScanOptions configures a single scan pass
type ScanOptions struct {
	Interval    float64
	Width       int
	Height      int
	Sensitivity float64
	OnProgress  ProgressFunc
}

// scanSession holds the comparison state of one scan pass
type scanSession struct {
	prev, cur *image.RGBA
	seeded    bool
}

func newScanSession(w, h int) *scanSession {
	return &scanSession{
		prev: image.NewRGBA(image.Rect(0, 0, w, h)),
		cur:  image.NewRGBA(image.Rect(0, 0, w, h)),
	}
}

// observe renders the source's current frame and scores it against the
// previous one. The first call only seeds the session.
func (s *scanSession) observe(ctx context.Context, src video.Source) (float64, bool, error) {
	if err := src.Render(ctx, s.cur); err != nil {
		return 0, false, err
	}

	if !s.seeded {
		s.seeded = true
		s.prev, s.cur = s.cur, s.prev
		return 0, false, nil
	}

	score, err := Diff(s.prev, s.cur)
	if err != nil {
		return 0, false, err
	}
	s.prev, s.cur = s.cur, s.prev
	return score, true, nil
}

// scanTimes returns i*interval for every i with i*interval < duration
func scanTimes(duration, interval float64) []float64 {
	var times []float64
	for i := 0; ; i++ {
		t := float64(i) * interval
		if t >= duration {
			break
		}
		times = append(times, t)
	}
	return times
}

// Scan walks src at a fixed cadence and returns every timestamp whose
// frame differs from the previously scanned one by at least
// opts.Sensitivity. Points are returned in increasing timestamp order.
func Scan(ctx context.Context, src video.Source, opts ScanOptions) ([]ChangePoint, error) {
	if !(opts.Interval > 0) || opts.Width <= 0 || opts.Height <= 0 {
		return nil, fmt.Errorf("%w: scan needs a positive interval and size", ErrInvalidArgument)
	}

	times := scanTimes(src.Duration(), opts.Interval)
	session := newScanSession(opts.Width, opts.Height)
	var points []ChangePoint

	for i, t := range times {
		if err := src.Seek(ctx, t); err != nil {
			return nil, err
		}

		score, ok, err := session.observe(ctx, src)
		if err != nil {
			return nil, err
		}
		if ok && score >= opts.Sensitivity {
			points = append(points, ChangePoint{Timestamp: t, Score: score})
		}

		if opts.OnProgress != nil {
			opts.OnProgress(100 * float64(i+1) / float64(len(times)))
		}
	}

	return points, nil
}
