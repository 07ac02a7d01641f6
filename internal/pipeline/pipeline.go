package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/keagan/stepsnap/internal/config"
	"github.com/keagan/stepsnap/internal/ffmpeg"
	"github.com/keagan/stepsnap/internal/metrics"
	"github.com/keagan/stepsnap/internal/sampler"
	"github.com/keagan/stepsnap/internal/storage"
	"github.com/keagan/stepsnap/internal/video"
	"github.com/keagan/stepsnap/pkg/util"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Pipeline turns input videos into stored step frames and a manifest
type Pipeline struct {
	logger    zerolog.Logger
	config    *Config
	ffmpeg    *ffmpeg.Executor
	ffmpegErr error
	extractor *sampler.Extractor
	encoder   video.Encoder
	sink      storage.Sink
	tracer    trace.Tracer
}

// New creates a new pipeline instance. A missing ffmpeg install only
// fails runs on video files; directories of stills still work.
func New(logger zerolog.Logger, appCfg *config.Config, sink storage.Sink) (*Pipeline, error) {
	if appCfg == nil {
		appCfg = config.Default()
	}
	if sink == nil {
		return nil, fmt.Errorf("output sink is required")
	}

	cfg := &Config{
		Workers:     appCfg.Workers,
		SequenceFPS: appCfg.Sampling.SequenceFPS,
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}

	ffmpegExec, ffmpegErr := ffmpeg.New(logger, ffmpeg.Options{
		FFmpegBinary:  appCfg.FFmpeg.BinaryPath,
		FFprobeBinary: appCfg.FFmpeg.ProbePath,
		Threads:       appCfg.FFmpeg.Threads,
	})
	if ffmpegErr != nil {
		logger.Warn().Err(ffmpegErr).Msg("ffmpeg unavailable, only image directories can be processed")
	}

	encoder := video.NewJPEGEncoder(appCfg.Sampling.JPEGQuality)

	return &Pipeline{
		logger:    logger.With().Str("component", "pipeline").Logger(),
		config:    cfg,
		ffmpeg:    ffmpegExec,
		ffmpegErr: ffmpegErr,
		extractor: sampler.NewExtractor(logger, appCfg.SamplerConfig(), encoder),
		encoder:   encoder,
		sink:      sink,
		tracer:    otel.Tracer("pipeline"),
	}, nil
}

// openSource opens a directory of stills or a video file
func (p *Pipeline) openSource(ctx context.Context, input string) (video.Source, error) {
	if util.IsDir(input) {
		return video.LoadSequence(input, p.config.SequenceFPS)
	}
	if p.ffmpeg == nil {
		return nil, fmt.Errorf("%w: %s: %w", video.ErrLoad, input, p.ffmpegErr)
	}
	return video.OpenFile(ctx, p.logger, p.ffmpeg, input)
}

// Extract runs one input end to end and returns the stored manifest
func (p *Pipeline) Extract(ctx context.Context, input string, policy sampler.Policy) (manifest *Manifest, err error) {
	if input == "" {
		return nil, fmt.Errorf("input path cannot be empty")
	}

	start := time.Now()
	runID := uuid.New().String()
	ctx, span := p.tracer.Start(ctx, "Pipeline.Extract", trace.WithAttributes(
		attribute.String("input", input),
		attribute.String("run_id", runID),
	))
	logger := p.logger.With().Str("input", input).Str("run", runID).Logger()

	mode := policy.Mode
	if mode == "" {
		mode = sampler.ModeAuto
	}
	defer func() {
		status := "success"
		if err != nil {
			status = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			logger.Error().Err(err).Msg("extraction failed")
		}
		metrics.ExtractionsTotal.WithLabelValues(string(mode), status).Inc()
		metrics.ExtractionDuration.WithLabelValues("total").Observe(time.Since(start).Seconds())
		span.End()
	}()

	logger.Info().Str("mode", string(mode)).Msg("starting extraction pipeline")

	// Stage 1: Open source
	src, err := p.openSource(ctx, input)
	if err != nil {
		return nil, err
	}
	width, height := src.Size()

	// Stage 2: Select and capture frames
	extractStart := time.Now()
	res, err := p.extractor.Run(ctx, src, policy)
	if err != nil {
		return nil, err
	}
	metrics.ExtractionDuration.WithLabelValues("extract").Observe(time.Since(extractStart).Seconds())
	metrics.ChangePointsTotal.Add(float64(res.ChangePoints))
	metrics.FramesExtractedTotal.Add(float64(len(res.Frames)))
	if res.Backfilled {
		metrics.BackfillTotal.Inc()
	}

	// Stage 3: Store frames and manifest
	storeStart := time.Now()
	prefix := runPrefix(input, runID)
	manifest = &Manifest{
		RunID:        runID,
		Input:        input,
		Mode:         res.Mode,
		Duration:     res.Duration,
		Width:        width,
		Height:       height,
		ChangePoints: res.ChangePoints,
		Backfilled:   res.Backfilled,
		Frames:       make([]ManifestFrame, 0, len(res.Frames)),
		CreatedAt:    time.Now().UTC(),
	}

	for i, f := range res.Frames {
		key := fmt.Sprintf("%s/step_%03d%s", prefix, i+1, p.encoder.Extension())
		if err := p.sink.Put(ctx, key, f.Image, p.encoder.ContentType()); err != nil {
			return nil, fmt.Errorf("failed to store frame %d: %w", i+1, err)
		}
		manifest.Frames = append(manifest.Frames, ManifestFrame{
			Index:     i + 1,
			Timestamp: f.Timestamp,
			Time:      util.FormatSeconds(f.Timestamp),
			Score:     f.Score,
			Key:       key,
			Location:  p.sink.Location(key),
			Bytes:     len(f.Image),
		})
	}

	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode manifest: %w", err)
	}
	if err := p.sink.Put(ctx, prefix+"/manifest.json", data, "application/json"); err != nil {
		return nil, fmt.Errorf("failed to store manifest: %w", err)
	}
	metrics.ExtractionDuration.WithLabelValues("store").Observe(time.Since(storeStart).Seconds())

	logger.Info().
		Int("frames", len(manifest.Frames)).
		Int("change_points", manifest.ChangePoints).
		Bool("backfilled", manifest.Backfilled).
		Str("location", p.sink.Location(prefix)).
		Dur("elapsed", time.Since(start)).
		Msg("extraction pipeline complete")

	return manifest, nil
}

// ExtractAll runs inputs concurrently on a bounded worker pool. Each input
// gets its own source. Progress callbacks are not shared across workers,
// so policy.OnProgress is ignored. Results keep the order of inputs.
func (p *Pipeline) ExtractAll(ctx context.Context, inputs []string, policy sampler.Policy) []Result {
	policy.OnProgress = nil
	results := make([]Result, len(inputs))

	jobs := make(chan int)
	workers := min(p.config.Workers, len(inputs))

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				metrics.ActiveWorkers.Inc()
				m, err := p.Extract(ctx, inputs[i], policy)
				metrics.ActiveWorkers.Dec()
				results[i] = Result{Input: inputs[i], Manifest: m, Err: err}
			}
		}()
	}

	for i := range inputs {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return results
}

// runPrefix names a run's output folder after its input
func runPrefix(input, runID string) string {
	base := filepath.Base(strings.TrimRight(input, `/\`))
	base = strings.TrimSuffix(base, filepath.Ext(base))

	var b strings.Builder
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	name := b.String()
	if name == "" || strings.Trim(name, "_") == "" {
		name = "video"
	}
	return name + "-" + runID[:8]
}
