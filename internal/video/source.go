// Package video provides the decoded-frame sources the sampler reads from.
package video

import (
	"context"
	"errors"
	"image"
	"io"
)

var (
	// ErrLoad reports that a source could not be opened or has no usable
	// duration or frame size.
	ErrLoad = errors.New("video load failed")

	// ErrSeek reports that positioning or rendering failed at a timestamp.
	ErrSeek = errors.New("video seek failed")
)

// Source is a seekable video that renders its current frame into a caller
// supplied raster. Implementations are used by one goroutine at a time.
type Source interface {
	// Duration returns the length of the video in seconds.
	Duration() float64

	// Size returns the native frame size in pixels.
	Size() (width, height int)

	// Seek positions the source at t seconds.
	Seek(ctx context.Context, t float64) error

	// Render draws the frame at the current position into dst, scaled to
	// dst's bounds.
	Render(ctx context.Context, dst *image.RGBA) error

	// Close releases the source.
	Close() error
}

// Encoder serialises a captured frame.
type Encoder interface {
	Encode(w io.Writer, img image.Image) error
	ContentType() string
	Extension() string
}
