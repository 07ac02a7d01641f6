// Package sampler decides which moments of a video become manual steps.
//
// Automatic mode scans the video at a coarse cadence, scores consecutive
// low-resolution frames by pixel difference, merges nearby detections and
// backfills evenly spaced points when too few changes are found. Manual
// mode samples evenly spaced points only. Selected timestamps are then
// captured at native resolution.
package sampler

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidArgument reports a contract violation by the caller
var ErrInvalidArgument = errors.New("invalid argument")

// ChangePoint is a candidate step: a timestamp in seconds and the change
// score in [0,1] that selected it. Synthesized points carry score 0.
type ChangePoint struct {
	Timestamp float64
	Score     float64
}

// Frame is a captured step frame.
// Score is 0 for frames chosen by even spacing, which means "not measured"
// rather than "no change".
type Frame struct {
	Timestamp float64
	Image     []byte
	Score     float64
	Width     int
	Height    int
}

// Mode selects the sampling algorithm
type Mode string

const (
	ModeAuto   Mode = "auto"
	ModeManual Mode = "manual"
)

// ParseMode converts a user supplied mode name
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "":
		return ModeAuto, nil
	case ModeAuto, ModeManual:
		return Mode(s), nil
	}
	return "", fmt.Errorf("%w: unknown mode %q", ErrInvalidArgument, s)
}

// ProgressFunc receives overall progress as a percentage in [0,100].
// It is called synchronously from the extracting goroutine.
type ProgressFunc func(percent float64)

// DefaultSensitivity is the minimum change score that counts as a step
// change when a policy does not set one.
const DefaultSensitivity = 0.15

// DefaultMaxFrames caps the number of extracted frames when a policy does
// not set one.
const DefaultMaxFrames = 10

// Policy is the per-run extraction request. Zero fields take defaults:
// MaxFrames == 0 means DefaultMaxFrames and Sensitivity == 0 means
// DefaultSensitivity. Only negative MaxFrames or a sensitivity outside
// [0,1] is rejected with ErrInvalidArgument.
type Policy struct {
	Mode        Mode
	MaxFrames   int
	Sensitivity float64
	OnProgress  ProgressFunc
}

// DefaultPolicy returns the policy used for zero-valued fields
func DefaultPolicy() Policy {
	return Policy{
		Mode:        ModeAuto,
		MaxFrames:   DefaultMaxFrames,
		Sensitivity: DefaultSensitivity,
	}
}

// Resolve merges p over DefaultPolicy and validates the result
func (p Policy) Resolve() (Policy, error) {
	out := DefaultPolicy()
	out.OnProgress = p.OnProgress

	if p.Mode != "" {
		mode, err := ParseMode(string(p.Mode))
		if err != nil {
			return Policy{}, err
		}
		out.Mode = mode
	}

	switch {
	case p.MaxFrames < 0:
		return Policy{}, fmt.Errorf("%w: max frames must be positive, got %d", ErrInvalidArgument, p.MaxFrames)
	case p.MaxFrames > 0:
		out.MaxFrames = p.MaxFrames
	}

	switch {
	case math.IsNaN(p.Sensitivity) || p.Sensitivity < 0 || p.Sensitivity > 1:
		return Policy{}, fmt.Errorf("%w: sensitivity must be in (0,1], got %v", ErrInvalidArgument, p.Sensitivity)
	case p.Sensitivity > 0:
		out.Sensitivity = p.Sensitivity
	}

	return out, nil
}

// Config holds engine tuning shared by every run of an Extractor
type Config struct {
	// ScanInterval is the spacing between scanned timestamps in seconds
	ScanInterval float64
	// ScanWidth and ScanHeight are the size of the raster scanned frames are
	// rendered to before differencing
	ScanWidth  int
	ScanHeight int
	// MinInterval is the window within which detections are merged
	MinInterval float64
	// MinFrames is the floor automatic mode backfills up to
	MinFrames int
	// DedupPrecision is the number of decimals timestamps are rounded to
	// when backfill checks whether a point is already represented
	DedupPrecision int
	// ScanProgressShare is the share of overall progress given to scanning
	ScanProgressShare float64
}

// DefaultConfig returns the standard engine tuning
func DefaultConfig() Config {
	return Config{
		ScanInterval:      0.5,
		ScanWidth:         160,
		ScanHeight:        90,
		MinInterval:       1.0,
		MinFrames:         3,
		DedupPrecision:    1,
		ScanProgressShare: 30,
	}
}

// Validate checks the tuning values
func (c Config) Validate() error {
	switch {
	case !(c.ScanInterval > 0):
		return fmt.Errorf("%w: scan interval must be positive", ErrInvalidArgument)
	case c.ScanWidth <= 0 || c.ScanHeight <= 0:
		return fmt.Errorf("%w: scan size must be positive, got %dx%d", ErrInvalidArgument, c.ScanWidth, c.ScanHeight)
	case c.MinInterval < 0:
		return fmt.Errorf("%w: min interval must not be negative", ErrInvalidArgument)
	case c.MinFrames < 0:
		return fmt.Errorf("%w: min frames must not be negative", ErrInvalidArgument)
	case c.DedupPrecision < 0 || c.DedupPrecision > 6:
		return fmt.Errorf("%w: dedup precision must be within 0..6", ErrInvalidArgument)
	case c.ScanProgressShare < 0 || c.ScanProgressShare > 100:
		return fmt.Errorf("%w: scan progress share must be within 0..100", ErrInvalidArgument)
	}
	return nil
}
