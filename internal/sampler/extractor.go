package sampler

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"math"

	"github.com/keagan/stepsnap/internal/video"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Extractor selects and captures step frames from video sources
type Extractor struct {
	logger  zerolog.Logger
	config  Config
	encoder video.Encoder
	tracer  trace.Tracer
}

// NewExtractor creates an extractor. A nil encoder selects JPEG at the
// default quality.
func NewExtractor(logger zerolog.Logger, cfg Config, enc video.Encoder) *Extractor {
	if enc == nil {
		enc = video.NewJPEGEncoder(video.DefaultJPEGQuality)
	}
	return &Extractor{
		logger:  logger.With().Str("component", "sampler").Logger(),
		config:  cfg,
		encoder: enc,
		tracer:  otel.Tracer("sampler"),
	}
}

// Result carries the frames of a run together with what the selection
// phase observed
type Result struct {
	Frames       []Frame
	Mode         Mode
	Duration     float64
	ChangePoints int
	Backfilled   bool
}

// Extract selects timestamps from src according to policy and captures
// each at native resolution. Extract takes ownership of src and closes it
// before returning. On error no frames are returned.
func (e *Extractor) Extract(ctx context.Context, src video.Source, policy Policy) ([]Frame, error) {
	res, err := e.Run(ctx, src, policy)
	if err != nil {
		return nil, err
	}
	return res.Frames, nil
}

// Run is Extract with selection details
func (e *Extractor) Run(ctx context.Context, src video.Source, policy Policy) (res *Result, err error) {
	ctx, span := e.tracer.Start(ctx, "Extractor.Run")
	defer func() {
		if cerr := src.Close(); cerr != nil {
			e.logger.Warn().Err(cerr).Msg("failed to close video source")
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			res = nil
		}
		span.End()
	}()

	// Step 1: Resolve policy and check the source
	if err := e.config.Validate(); err != nil {
		return nil, err
	}
	policy, err = policy.Resolve()
	if err != nil {
		return nil, err
	}

	duration := src.Duration()
	width, height := src.Size()
	if !(duration > 0) || math.IsInf(duration, 0) {
		return nil, fmt.Errorf("%w: duration %v", video.ErrLoad, duration)
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: frame size %dx%d", video.ErrLoad, width, height)
	}

	span.SetAttributes(
		attribute.String("mode", string(policy.Mode)),
		attribute.Int("max_frames", policy.MaxFrames),
		attribute.Float64("duration", duration),
	)

	e.logger.Info().
		Str("mode", string(policy.Mode)).
		Int("max_frames", policy.MaxFrames).
		Float64("sensitivity", policy.Sensitivity).
		Float64("duration", duration).
		Int("width", width).
		Int("height", height).
		Msg("starting extraction")

	res = &Result{Mode: policy.Mode, Duration: duration}

	// Step 2: Select timestamps
	var selected []ChangePoint
	captureStart := 0.0
	switch policy.Mode {
	case ModeAuto:
		selected, err = e.selectAuto(ctx, src, policy, res)
		captureStart = e.config.ScanProgressShare
	case ModeManual:
		selected = e.selectManual(duration, policy)
	default:
		err = fmt.Errorf("%w: unknown mode %q", ErrInvalidArgument, policy.Mode)
	}
	if err != nil {
		return nil, err
	}

	// Step 3: Capture at native resolution
	frames, err := e.capture(ctx, src, selected, width, height, func(done, total int) {
		if policy.OnProgress == nil {
			return
		}
		policy.OnProgress(captureStart + (100-captureStart)*float64(done)/float64(total))
	})
	if err != nil {
		return nil, err
	}
	if len(frames) == 0 && policy.OnProgress != nil {
		policy.OnProgress(100)
	}

	res.Frames = frames

	e.logger.Info().
		Int("frames", len(frames)).
		Int("change_points", res.ChangePoints).
		Bool("backfilled", res.Backfilled).
		Msg("extraction complete")

	return res, nil
}

func (e *Extractor) selectAuto(ctx context.Context, src video.Source, policy Policy, res *Result) ([]ChangePoint, error) {
	ctx, span := e.tracer.Start(ctx, "scan")
	defer span.End()

	share := e.config.ScanProgressShare
	raw, err := Scan(ctx, src, ScanOptions{
		Interval:    e.config.ScanInterval,
		Width:       e.config.ScanWidth,
		Height:      e.config.ScanHeight,
		Sensitivity: policy.Sensitivity,
		OnProgress: func(percent float64) {
			if policy.OnProgress != nil {
				policy.OnProgress(percent * share / 100)
			}
		},
	})
	if err != nil {
		return nil, fmt.Errorf("scan failed: %w", err)
	}
	res.ChangePoints = len(raw)

	for _, p := range raw {
		e.logger.Debug().Float64("t", p.Timestamp).Float64("score", p.Score).Msg("change detected")
	}

	points := Consolidate(raw, e.config.MinInterval, policy.MaxFrames)

	if floor := min(e.config.MinFrames, policy.MaxFrames); len(points) < floor {
		e.logger.Info().
			Int("detected", len(points)).
			Int("floor", floor).
			Msg("too few changes, backfilling evenly spaced frames")
		points = Backfill(points, src.Duration(), BackfillOptions{
			MinFrames: e.config.MinFrames,
			MaxFrames: policy.MaxFrames,
			Precision: e.config.DedupPrecision,
		})
		res.Backfilled = true
	}

	span.SetAttributes(
		attribute.Int("raw_points", len(raw)),
		attribute.Int("selected", len(points)),
	)
	return points, nil
}

func (e *Extractor) selectManual(duration float64, policy Policy) []ChangePoint {
	return Intervals(duration, policy.MaxFrames)
}

func (e *Extractor) capture(ctx context.Context, src video.Source, points []ChangePoint, width, height int, progress func(done, total int)) ([]Frame, error) {
	ctx, span := e.tracer.Start(ctx, "capture")
	defer span.End()
	span.SetAttributes(attribute.Int("frames", len(points)))

	canvas := image.NewRGBA(image.Rect(0, 0, width, height))
	frames := make([]Frame, 0, len(points))

	for i, p := range points {
		if err := src.Seek(ctx, p.Timestamp); err != nil {
			return nil, fmt.Errorf("capture failed: %w", err)
		}
		if err := src.Render(ctx, canvas); err != nil {
			return nil, fmt.Errorf("capture failed: %w", err)
		}

		var buf bytes.Buffer
		if err := e.encoder.Encode(&buf, canvas); err != nil {
			return nil, fmt.Errorf("encode frame at %.3fs: %w", p.Timestamp, err)
		}

		frames = append(frames, Frame{
			Timestamp: p.Timestamp,
			Image:     buf.Bytes(),
			Score:     p.Score,
			Width:     width,
			Height:    height,
		})

		e.logger.Debug().
			Int("index", i).
			Float64("t", p.Timestamp).
			Float64("score", p.Score).
			Int("bytes", buf.Len()).
			Msg("captured frame")

		progress(i+1, len(points))
	}

	return frames, nil
}
