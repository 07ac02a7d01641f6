package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"github.com/keagan/stepsnap/internal/sampler"
	"github.com/keagan/stepsnap/internal/video"
	"gopkg.in/yaml.v3"
)

type contextKey string

const configKey contextKey = "config"

// Storage backends
const (
	BackendLocal = "local"
	BackendMinIO = "minio"
)

// Config holds all application configuration
type Config struct {
	// Core settings
	LogLevel string `yaml:"log_level" env:"STEPSNAP_LOG_LEVEL"`
	Workers  int    `yaml:"workers" env:"STEPSNAP_WORKERS"`

	Sampling SamplingConfig `yaml:"sampling"`
	FFmpeg   FFmpegConfig   `yaml:"ffmpeg"`
	Output   OutputConfig   `yaml:"output"`
	Storage  StorageConfig  `yaml:"storage"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Tracing  TracingConfig  `yaml:"tracing"`
}

// SamplingConfig controls frame selection
type SamplingConfig struct {
	Mode           string  `yaml:"mode" env:"STEPSNAP_MODE"`
	MaxFrames      int     `yaml:"max_frames" env:"STEPSNAP_MAX_FRAMES"`
	Sensitivity    float64 `yaml:"sensitivity" env:"STEPSNAP_SENSITIVITY"`
	ScanInterval   float64 `yaml:"scan_interval" env:"STEPSNAP_SCAN_INTERVAL"`
	ScanWidth      int     `yaml:"scan_width" env:"STEPSNAP_SCAN_WIDTH"`
	ScanHeight     int     `yaml:"scan_height" env:"STEPSNAP_SCAN_HEIGHT"`
	MinInterval    float64 `yaml:"min_interval" env:"STEPSNAP_MIN_INTERVAL"`
	MinFrames      int     `yaml:"min_frames" env:"STEPSNAP_MIN_FRAMES"`
	DedupPrecision int     `yaml:"dedup_precision" env:"STEPSNAP_DEDUP_PRECISION"`
	JPEGQuality    int     `yaml:"jpeg_quality" env:"STEPSNAP_JPEG_QUALITY"`
	// SequenceFPS is the rate stills are shown at when the input is a
	// directory of images
	SequenceFPS float64 `yaml:"sequence_fps" env:"STEPSNAP_SEQUENCE_FPS"`
}

type FFmpegConfig struct {
	BinaryPath string `yaml:"binary_path" env:"STEPSNAP_FFMPEG"`
	ProbePath  string `yaml:"probe_path" env:"STEPSNAP_FFPROBE"`
	Threads    int    `yaml:"threads" env:"STEPSNAP_FFMPEG_THREADS"`
}

type OutputConfig struct {
	Dir string `yaml:"dir" env:"STEPSNAP_OUTPUT_DIR"`
}

type StorageConfig struct {
	Backend string      `yaml:"backend" env:"STEPSNAP_STORAGE"`
	MinIO   MinIOConfig `yaml:"minio"`
}

type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint" env:"MINIO_ENDPOINT"`
	AccessKey string `yaml:"access_key" env:"MINIO_ACCESS_KEY"`
	SecretKey string `yaml:"secret_key" env:"MINIO_SECRET_KEY"`
	UseSSL    bool   `yaml:"use_ssl" env:"MINIO_USE_SSL"`
	Bucket    string `yaml:"bucket" env:"MINIO_BUCKET"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr" env:"STEPSNAP_METRICS_ADDR"`
}

type TracingConfig struct {
	OTLPEndpoint string `yaml:"otlp_endpoint" env:"OTEL_EXPORTER_OTLP_TRACES_ENDPOINT"`
}

// Load reads configuration from file, applies environment overrides and
// validates the result
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	if path == "" {
		path = findConfigFile()
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, err
		}
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse %s: %w", path, err)
			}
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes configuration to file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	return os.WriteFile(path, data, 0644)
}

// Validate checks values that would otherwise fail deep inside a run
func (c *Config) Validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if _, err := c.Policy(); err != nil {
		return fmt.Errorf("sampling: %w", err)
	}
	if err := c.SamplerConfig().Validate(); err != nil {
		return fmt.Errorf("sampling: %w", err)
	}
	if c.Sampling.SequenceFPS <= 0 {
		return fmt.Errorf("sampling: sequence fps must be positive")
	}

	switch c.Storage.Backend {
	case BackendLocal:
	case BackendMinIO:
		if c.Storage.MinIO.Endpoint == "" || c.Storage.MinIO.Bucket == "" {
			return fmt.Errorf("storage: minio needs an endpoint and a bucket")
		}
	default:
		return fmt.Errorf("storage: unknown backend %q", c.Storage.Backend)
	}
	return nil
}

// SamplerConfig returns the engine tuning
func (c *Config) SamplerConfig() sampler.Config {
	sc := sampler.DefaultConfig()
	sc.ScanInterval = c.Sampling.ScanInterval
	sc.ScanWidth = c.Sampling.ScanWidth
	sc.ScanHeight = c.Sampling.ScanHeight
	sc.MinInterval = c.Sampling.MinInterval
	sc.MinFrames = c.Sampling.MinFrames
	sc.DedupPrecision = c.Sampling.DedupPrecision
	return sc
}

// Policy returns the resolved per-run extraction policy
func (c *Config) Policy() (sampler.Policy, error) {
	return sampler.Policy{
		Mode:        sampler.Mode(c.Sampling.Mode),
		MaxFrames:   c.Sampling.MaxFrames,
		Sensitivity: c.Sampling.Sensitivity,
	}.Resolve()
}

func defaultConfig() *Config {
	sc := sampler.DefaultConfig()
	return &Config{
		LogLevel: "info",
		Workers:  2,
		Sampling: SamplingConfig{
			Mode:           string(sampler.ModeAuto),
			MaxFrames:      sampler.DefaultMaxFrames,
			Sensitivity:    sampler.DefaultSensitivity,
			ScanInterval:   sc.ScanInterval,
			ScanWidth:      sc.ScanWidth,
			ScanHeight:     sc.ScanHeight,
			MinInterval:    sc.MinInterval,
			MinFrames:      sc.MinFrames,
			DedupPrecision: sc.DedupPrecision,
			JPEGQuality:    video.DefaultJPEGQuality,
			SequenceFPS:    1,
		},
		FFmpeg: FFmpegConfig{
			BinaryPath: "ffmpeg",
			ProbePath:  "ffprobe",
			Threads:    0,
		},
		Output: OutputConfig{
			Dir: "./steps",
		},
		Storage: StorageConfig{
			Backend: BackendLocal,
			MinIO: MinIOConfig{
				Endpoint:  "localhost:9000",
				AccessKey: "minioadmin",
				SecretKey: "minioadmin",
				Bucket:    "stepsnap",
			},
		},
	}
}

// Default returns the built-in configuration
func Default() *Config {
	return defaultConfig()
}

func findConfigFile() string {
	candidates := []string{
		"./stepsnap.yaml",
		"./stepsnap.yml",
		filepath.Join(os.Getenv("HOME"), ".stepsnap", "config.yaml"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// WithConfig stores config in context
func WithConfig(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey, cfg)
}

// FromContext retrieves config from context
func FromContext(ctx context.Context) *Config {
	if cfg, ok := ctx.Value(configKey).(*Config); ok {
		return cfg
	}
	return defaultConfig()
}
