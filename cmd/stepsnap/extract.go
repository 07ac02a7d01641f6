package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/keagan/stepsnap/internal/config"
	"github.com/keagan/stepsnap/internal/logging"
	"github.com/keagan/stepsnap/internal/metrics"
	"github.com/keagan/stepsnap/internal/pipeline"
	"github.com/keagan/stepsnap/internal/sampler"
	"github.com/keagan/stepsnap/internal/storage"
	"github.com/keagan/stepsnap/internal/tracing"
	"github.com/rs/zerolog/log"
	"github.com/schollz/progressbar/v2"
	"github.com/spf13/cobra"
)

var extractCmd = &cobra.Command{
	Use:   "extract [video or image dir]...",
	Short: "Extract step frames from one or more videos",
	Args:  cobra.MinimumNArgs(1),
}

// runExtract is attached to extractCmd in init to avoid an initialization
// cycle (extractOne reads extractCmd's flags).
func runExtract(cmd *cobra.Command, args []string) error {
	cfg := config.FromContext(cmd.Context())
	if err := applyExtractFlags(cmd, cfg); err != nil {
		return err
	}

	ctx := cmd.Context()

	tp, err := tracing.InitTracer(ctx, cfg.Tracing.OTLPEndpoint)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = tp.Shutdown(shutdownCtx)
	}()

	if cfg.Metrics.Addr != "" {
		srv := metrics.StartMetricsServer(cfg.Metrics.Addr, logging.WithComponent("metrics"))
		defer srv.Close()
	}

	sink, err := buildSink(ctx, cfg)
	if err != nil {
		return err
	}

	pipe, err := pipeline.New(log.Logger, cfg, sink)
	if err != nil {
		return err
	}

	policy, err := cfg.Policy()
	if err != nil {
		return err
	}

	if len(args) == 1 {
		return extractOne(ctx, pipe, args[0], policy)
	}
	return extractMany(ctx, pipe, args, policy)
}

func init() {
	extractCmd.RunE = runExtract
	f := extractCmd.Flags()
	f.String("mode", "", "sampling mode: auto or manual")
	f.Int("max-frames", 0, "maximum number of step frames")
	f.Float64("sensitivity", 0, "minimum change score in (0,1] that counts as a new step")
	f.String("out", "", "output directory for the local storage backend")
	f.Int("workers", 0, "videos processed concurrently")
	f.String("metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9100")
	f.Bool("no-progress", false, "disable the progress bar")
}

// applyExtractFlags overrides config values with flags the user set
func applyExtractFlags(cmd *cobra.Command, cfg *config.Config) error {
	f := cmd.Flags()
	if f.Changed("mode") {
		cfg.Sampling.Mode, _ = f.GetString("mode")
	}
	if f.Changed("max-frames") {
		cfg.Sampling.MaxFrames, _ = f.GetInt("max-frames")
	}
	if f.Changed("sensitivity") {
		cfg.Sampling.Sensitivity, _ = f.GetFloat64("sensitivity")
	}
	if f.Changed("out") {
		cfg.Output.Dir, _ = f.GetString("out")
		cfg.Storage.Backend = config.BackendLocal
	}
	if f.Changed("workers") {
		cfg.Workers, _ = f.GetInt("workers")
	}
	if f.Changed("metrics-addr") {
		cfg.Metrics.Addr, _ = f.GetString("metrics-addr")
	}
	return cfg.Validate()
}

func buildSink(ctx context.Context, cfg *config.Config) (storage.Sink, error) {
	switch cfg.Storage.Backend {
	case config.BackendMinIO:
		m := cfg.Storage.MinIO
		sink, err := storage.NewMinioSink(storage.MinioConfig{
			Endpoint:  m.Endpoint,
			AccessKey: m.AccessKey,
			SecretKey: m.SecretKey,
			UseSSL:    m.UseSSL,
			Bucket:    m.Bucket,
		})
		if err != nil {
			return nil, err
		}
		if err := sink.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		return sink, nil
	default:
		return storage.NewLocalSink(cfg.Output.Dir)
	}
}

func extractOne(ctx context.Context, pipe *pipeline.Pipeline, input string, policy sampler.Policy) error {
	noProgress, _ := extractCmd.Flags().GetBool("no-progress")
	if !noProgress {
		bar := progressbar.NewOptions(100,
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSetDescription("extracting"),
		)
		policy.OnProgress = func(percent float64) {
			_ = bar.Set(int(percent))
		}
		defer func() {
			_ = bar.Finish()
			fmt.Fprintln(os.Stderr)
		}()
	}

	m, err := pipe.Extract(ctx, input, policy)
	if err != nil {
		return err
	}

	for _, f := range m.Frames {
		fmt.Printf("%3d  %s  score=%.3f  %s\n", f.Index, f.Time, f.Score, f.Location)
	}
	return nil
}

func extractMany(ctx context.Context, pipe *pipeline.Pipeline, inputs []string, policy sampler.Policy) error {
	results := pipe.ExtractAll(ctx, inputs, policy)

	var errs []error
	for _, r := range results {
		if r.Err != nil {
			fmt.Printf("FAIL  %s: %v\n", r.Input, r.Err)
			errs = append(errs, fmt.Errorf("%s: %w", r.Input, r.Err))
			continue
		}
		fmt.Printf("ok    %s: %d frames (%s)\n", r.Input, len(r.Manifest.Frames), r.Manifest.RunID)
	}

	if len(errs) > 0 {
		return fmt.Errorf("%d of %d inputs failed: %w", len(errs), len(inputs), errors.Join(errs...))
	}
	return nil
}
