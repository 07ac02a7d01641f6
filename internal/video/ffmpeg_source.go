package video

import (
	"context"
	"fmt"
	"image"

	"github.com/keagan/stepsnap/internal/ffmpeg"
	"github.com/rs/zerolog"
)

// Decoder is the subset of the ffmpeg executor a FFmpegSource needs
type Decoder interface {
	ProbeVideo(ctx context.Context, filePath string) (*ffmpeg.VideoInfo, error)
	GrabFrame(ctx context.Context, input string, at float64, width, height int, dst []byte) error
}

// FFmpegSource reads frames from a video file through ffmpeg, one
// process per rendered frame
type FFmpegSource struct {
	logger  zerolog.Logger
	decoder Decoder
	info    *ffmpeg.VideoInfo
	pos     float64
	scratch []byte
	closed  bool
}

// OpenFile probes path and returns a source positioned at 0
func OpenFile(ctx context.Context, logger zerolog.Logger, decoder Decoder, path string) (*FFmpegSource, error) {
	info, err := decoder.ProbeVideo(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrLoad, path, err)
	}

	if info.Duration <= 0 {
		return nil, fmt.Errorf("%w: %s: no duration", ErrLoad, path)
	}
	if info.Width <= 0 || info.Height <= 0 {
		return nil, fmt.Errorf("%w: %s: invalid frame size %dx%d", ErrLoad, path, info.Width, info.Height)
	}

	src := &FFmpegSource{
		logger:  logger.With().Str("component", "video").Str("file", path).Logger(),
		decoder: decoder,
		info:    info,
	}

	src.logger.Debug().
		Str("codec", info.VideoCodec).
		Float64("fps", info.FPS).
		Int("frames", info.FrameCount).
		Bool("audio", info.HasAudio).
		Float64("duration", src.Duration()).
		Msg("opened video")

	return src, nil
}

func (s *FFmpegSource) Duration() float64 {
	return s.info.Duration.Seconds()
}

func (s *FFmpegSource) Size() (int, int) {
	return s.info.Width, s.info.Height
}

func (s *FFmpegSource) Seek(ctx context.Context, t float64) error {
	if s.closed {
		return fmt.Errorf("%w: source closed", ErrSeek)
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrSeek, err)
	}
	if t < 0 || t >= s.Duration() {
		return fmt.Errorf("%w: %.3fs outside [0, %.3f)", ErrSeek, t, s.Duration())
	}
	s.pos = t
	return nil
}

func (s *FFmpegSource) Render(ctx context.Context, dst *image.RGBA) error {
	if s.closed {
		return fmt.Errorf("%w: source closed", ErrSeek)
	}
	w, h := dst.Rect.Dx(), dst.Rect.Dy()
	n := w * h * ffmpeg.BytesPerPixel

	// Tightly packed rasters can be filled in place
	buf := s.scratch
	packed := dst.Stride == w*ffmpeg.BytesPerPixel && len(dst.Pix) >= n
	if packed {
		buf = dst.Pix[:n]
	} else if len(buf) != n {
		buf = make([]byte, n)
		s.scratch = buf
	}

	if err := s.decoder.GrabFrame(ctx, s.info.FilePath, s.pos, w, h, buf); err != nil {
		return fmt.Errorf("%w: render at %.3fs: %w", ErrSeek, s.pos, err)
	}

	if !packed {
		rowLen := w * ffmpeg.BytesPerPixel
		for y := 0; y < h; y++ {
			copy(dst.Pix[y*dst.Stride:y*dst.Stride+rowLen], buf[y*rowLen:(y+1)*rowLen])
		}
	}

	s.logger.Trace().Float64("t", s.pos).Int("w", w).Int("h", h).Msg("rendered frame")
	return nil
}

func (s *FFmpegSource) Close() error {
	s.closed = true
	s.scratch = nil
	return nil
}
