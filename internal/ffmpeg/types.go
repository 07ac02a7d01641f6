package ffmpeg

import (
	"io"
	"time"
)

// VideoInfo contains metadata about a video file
type VideoInfo struct {
	FilePath   string
	Duration   time.Duration
	Width      int
	Height     int
	FPS        float64
	FrameCount int
	VideoCodec string
	HasAudio   bool
}

// RunOptions configures ffmpeg execution. LogHandler receives every
// output line and raises ffmpeg's log level to info.
type RunOptions struct {
	Args       []string
	Stdout     io.Writer
	LogHandler func(line string)
}

// Raw frame output format used for single-frame grabs
const (
	RawPixelFormat = "rgba"
	BytesPerPixel  = 4
)
