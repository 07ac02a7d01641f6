package sampler

import (
	"context"
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/keagan/stepsnap/internal/video"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solid(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return img
}

var (
	black = color.RGBA{0, 0, 0, 255}
	white = color.RGBA{255, 255, 255, 255}
	gray  = color.RGBA{128, 128, 128, 255}
)

// sequence builds a 1 fps source whose frame i has colors[i]
func sequence(t *testing.T, colors ...color.RGBA) *video.Sequence {
	t.Helper()
	frames := make([]image.Image, len(colors))
	for i, c := range colors {
		frames[i] = solid(32, 18, c)
	}
	seq, err := video.NewSequence(1, frames...)
	require.NoError(t, err)
	return seq
}

func repeat(c color.RGBA, n int) []color.RGBA {
	out := make([]color.RGBA, n)
	for i := range out {
		out[i] = c
	}
	return out
}

func TestDiffIdentical(t *testing.T) {
	a := solid(16, 9, gray)
	b := solid(16, 9, gray)

	score, err := Diff(a, b)
	require.NoError(t, err)
	assert.Equal(t, 0.0, score)
}

func TestDiffBlackWhite(t *testing.T) {
	score, err := Diff(solid(16, 9, black), solid(16, 9, white))
	require.NoError(t, err)
	assert.Equal(t, 1.0, score)
}

func TestDiffIgnoresAlpha(t *testing.T) {
	a := solid(4, 4, color.RGBA{10, 20, 30, 255})
	b := solid(4, 4, color.RGBA{10, 20, 30, 0})

	score, err := Diff(a, b)
	require.NoError(t, err)
	assert.Equal(t, 0.0, score)
}

func TestDiffPartial(t *testing.T) {
	a := solid(2, 1, black)
	b := solid(2, 1, black)
	// One of two pixels fully white on one channel
	b.Pix[0] = 255

	score, err := Diff(a, b)
	require.NoError(t, err)
	assert.InDelta(t, 1.0/6.0, score, 1e-12)
}

func TestDiffSubImage(t *testing.T) {
	parent := solid(8, 8, black)
	sub := parent.SubImage(image.Rect(2, 2, 6, 6)).(*image.RGBA)

	score, err := Diff(sub, solid(4, 4, white))
	require.NoError(t, err)
	assert.Equal(t, 1.0, score)
}

func TestDiffMismatchedSize(t *testing.T) {
	_, err := Diff(solid(16, 9, black), solid(8, 9, black))
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = Diff(image.NewRGBA(image.Rect(0, 0, 0, 0)), image.NewRGBA(image.Rect(0, 0, 0, 0)))
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestScanSingleChange(t *testing.T) {
	src := sequence(t, append(repeat(black, 5), repeat(white, 5)...)...)

	points, err := Scan(context.Background(), src, ScanOptions{
		Interval:    0.5,
		Width:       16,
		Height:      9,
		Sensitivity: 0.1,
	})
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.InDelta(t, 5.0, points[0].Timestamp, 0.5)
	assert.InDelta(t, 1.0, points[0].Score, 1e-9)

	consolidated := Consolidate(points, 1.0, 10)
	require.Len(t, consolidated, 1)
	assert.Equal(t, points[0], consolidated[0])
}

func TestScanFirstFrameOnlySeeds(t *testing.T) {
	// A single-frame video has nothing to compare against
	src := sequence(t, white)

	var calls []float64
	points, err := Scan(context.Background(), src, ScanOptions{
		Interval:    0.5,
		Width:       8,
		Height:      8,
		Sensitivity: 0.01,
		OnProgress:  func(p float64) { calls = append(calls, p) },
	})
	require.NoError(t, err)
	assert.Empty(t, points)
	assert.Equal(t, []float64{50, 100}, calls)
}

func TestScanOrderAndProgress(t *testing.T) {
	src := sequence(t, black, white, black, white, black, white)

	var last float64
	var calls int
	points, err := Scan(context.Background(), src, ScanOptions{
		Interval:    0.5,
		Width:       8,
		Height:      8,
		Sensitivity: 0.5,
		OnProgress: func(p float64) {
			assert.GreaterOrEqual(t, p, last)
			last = p
			calls++
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 12, calls)
	assert.Equal(t, 100.0, last)

	require.Len(t, points, 5)
	for i, p := range points {
		assert.Equal(t, float64(i+1), p.Timestamp)
	}
}

func TestScanInvalidOptions(t *testing.T) {
	_, err := Scan(context.Background(), sequence(t, black), ScanOptions{Width: 8, Height: 8})
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestScanTimes(t *testing.T) {
	assert.Equal(t, []float64{0, 0.5, 1, 1.5}, scanTimes(2, 0.5))
	assert.Equal(t, []float64{0, 0.5, 1, 1.5, 2}, scanTimes(2.1, 0.5))
	assert.Empty(t, scanTimes(0, 0.5))
}

func TestConsolidateMergeKeepsHigherScore(t *testing.T) {
	in := []ChangePoint{
		{Timestamp: 2.0, Score: 0.3},
		{Timestamp: 2.5, Score: 0.8},
		{Timestamp: 3.0, Score: 0.4},
		{Timestamp: 6.0, Score: 0.2},
	}

	out := Consolidate(in, 1.0, 10)
	assert.Equal(t, []ChangePoint{
		{Timestamp: 2.5, Score: 0.8},
		{Timestamp: 6.0, Score: 0.2},
	}, out)
}

func TestConsolidateDropsLowerDuplicate(t *testing.T) {
	in := []ChangePoint{
		{Timestamp: 4.0, Score: 0.9},
		{Timestamp: 4.5, Score: 0.2},
	}

	out := Consolidate(in, 1.0, 10)
	assert.Equal(t, []ChangePoint{{Timestamp: 4.0, Score: 0.9}}, out)
}

func TestConsolidateCapByScore(t *testing.T) {
	in := []ChangePoint{
		{Timestamp: 1, Score: 0.2},
		{Timestamp: 3, Score: 0.9},
		{Timestamp: 5, Score: 0.4},
		{Timestamp: 7, Score: 0.7},
		{Timestamp: 9, Score: 0.1},
	}

	out := Consolidate(in, 1.0, 3)
	assert.Equal(t, []ChangePoint{
		{Timestamp: 3, Score: 0.9},
		{Timestamp: 5, Score: 0.4},
		{Timestamp: 7, Score: 0.7},
	}, out)

	// Input is left untouched
	assert.Equal(t, 0.2, in[0].Score)
}

func TestConsolidateEmpty(t *testing.T) {
	out := Consolidate(nil, 1.0, 5)
	assert.NotNil(t, out)
	assert.Empty(t, out)
}

func TestConsolidateDeterministic(t *testing.T) {
	in := []ChangePoint{
		{Timestamp: 0.5, Score: 0.5},
		{Timestamp: 2.0, Score: 0.5},
		{Timestamp: 3.5, Score: 0.5},
		{Timestamp: 5.0, Score: 0.5},
	}

	first := Consolidate(in, 1.0, 2)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Consolidate(in, 1.0, 2))
	}
	// Equal scores resolve to the earliest points
	assert.Equal(t, []ChangePoint{{0.5, 0.5}, {2.0, 0.5}}, first)
}

func TestIntervals(t *testing.T) {
	assert.Equal(t, []ChangePoint{{3, 0}, {6, 0}, {9, 0}}, Intervals(12, 3))

	out := Intervals(7, 6)
	require.Len(t, out, 6)
	for i, p := range out {
		assert.Equal(t, float64(i+1)*7/7, p.Timestamp)
		assert.Zero(t, p.Score)
	}

	assert.Empty(t, Intervals(10, 0))
	assert.Empty(t, Intervals(0, 3))
}

func TestBackfillDedup(t *testing.T) {
	detected := []ChangePoint{{Timestamp: 5.0, Score: 0.9}}

	out := Backfill(detected, 10, BackfillOptions{MinFrames: 3, MaxFrames: 10, Precision: 1})
	assert.Equal(t, []ChangePoint{
		{Timestamp: 2.5},
		{Timestamp: 5.0, Score: 0.9},
		{Timestamp: 7.5},
	}, out)
}

func TestBackfillPrecision(t *testing.T) {
	detected := []ChangePoint{{Timestamp: 5.04, Score: 0.9}}

	coarse := Backfill(detected, 10, BackfillOptions{MinFrames: 3, MaxFrames: 10, Precision: 1})
	assert.Len(t, coarse, 3)

	fine := Backfill(detected, 10, BackfillOptions{MinFrames: 3, MaxFrames: 10, Precision: 2})
	assert.Len(t, fine, 4)
}

func TestBackfillWholeSecondPrecisionKeepsSpacedPoints(t *testing.T) {
	out := Backfill(nil, 3, BackfillOptions{MinFrames: 3, MaxFrames: 5, Precision: 0})
	assert.Equal(t, []ChangePoint{{Timestamp: 0.75}, {Timestamp: 1.5}, {Timestamp: 2.25}}, out)

	detected := []ChangePoint{{Timestamp: 1.4, Score: 0.7}}
	out = Backfill(detected, 3, BackfillOptions{MinFrames: 3, MaxFrames: 5, Precision: 0})
	assert.Equal(t, []ChangePoint{
		{Timestamp: 0.75},
		{Timestamp: 1.4, Score: 0.7},
		{Timestamp: 2.25},
	}, out)
}

func TestBackfillCapKeepsDetected(t *testing.T) {
	detected := []ChangePoint{
		{Timestamp: 8.0, Score: 0.6},
		{Timestamp: 9.0, Score: 0.3},
	}

	out := Backfill(detected, 10, BackfillOptions{MinFrames: 3, MaxFrames: 3, Precision: 1})
	assert.Equal(t, []ChangePoint{
		{Timestamp: 2.5},
		{Timestamp: 8.0, Score: 0.6},
		{Timestamp: 9.0, Score: 0.3},
	}, out)
}

func TestBackfillUsesSmallerOfFloorAndCap(t *testing.T) {
	out := Backfill(nil, 20, BackfillOptions{MinFrames: 3, MaxFrames: 2, Precision: 1})
	assert.Equal(t, []ChangePoint{{Timestamp: 20.0 / 3}, {Timestamp: 40.0 / 3}}, out)
}

func TestPolicyResolveDefaults(t *testing.T) {
	p, err := Policy{}.Resolve()
	require.NoError(t, err)
	assert.Equal(t, ModeAuto, p.Mode)
	assert.Equal(t, DefaultMaxFrames, p.MaxFrames)
	assert.Equal(t, DefaultSensitivity, p.Sensitivity)

	p, err = Policy{Mode: ModeManual, MaxFrames: 4, Sensitivity: 1}.Resolve()
	require.NoError(t, err)
	assert.Equal(t, ModeManual, p.Mode)
	assert.Equal(t, 4, p.MaxFrames)
	assert.Equal(t, 1.0, p.Sensitivity)
}

func TestPolicyResolveInvalid(t *testing.T) {
	invalid := []Policy{
		{MaxFrames: -1},
		{Sensitivity: -0.1},
		{Sensitivity: 1.5},
		{Sensitivity: math.NaN()},
		{Mode: "smart"},
	}
	for _, p := range invalid {
		_, err := p.Resolve()
		assert.ErrorIs(t, err, ErrInvalidArgument, "%+v", p)
	}
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeAuto, m)

	m, err = ParseMode("manual")
	require.NoError(t, err)
	assert.Equal(t, ModeManual, m)

	_, err = ParseMode("Manual")
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	broken := []func(*Config){
		func(c *Config) { c.ScanInterval = 0 },
		func(c *Config) { c.ScanWidth = 0 },
		func(c *Config) { c.MinInterval = -1 },
		func(c *Config) { c.MinFrames = -1 },
		func(c *Config) { c.DedupPrecision = 9 },
		func(c *Config) { c.ScanProgressShare = 120 },
	}
	for i, mutate := range broken {
		cfg := DefaultConfig()
		mutate(&cfg)
		assert.ErrorIs(t, cfg.Validate(), ErrInvalidArgument, "case %d", i)
	}
}
