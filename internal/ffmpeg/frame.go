package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/keagan/stepsnap/pkg/util"
)

// GrabFrame decodes the frame shown at the given timestamp (seconds),
// scales it to width x height and writes raw RGBA pixels into dst.
// dst must hold exactly width*height*4 bytes.
func (e *Executor) GrabFrame(ctx context.Context, input string, at float64, width, height int, dst []byte) error {
	if input == "" {
		return fmt.Errorf("input path is required")
	}
	if width <= 0 || height <= 0 {
		return fmt.Errorf("invalid frame size %dx%d", width, height)
	}
	want := width * height * BytesPerPixel
	if len(dst) != want {
		return fmt.Errorf("destination holds %d bytes, need %d", len(dst), want)
	}

	filter := NewFilterBuilder().
		Scale(width, height).
		Format(RawPixelFormat).
		Build()

	// Input seeking before -i keeps each grab independent of stream position
	args := []string{
		"-ss", util.FormatDuration(time.Duration(at * float64(time.Second))),
		"-i", input,
		"-an",
		"-frames:v", "1",
		"-vf", filter,
		"-pix_fmt", RawPixelFormat,
		"-f", "rawvideo",
		"pipe:1",
	}

	buf := bytes.NewBuffer(make([]byte, 0, want))
	err := e.Run(ctx, RunOptions{
		Args:       args,
		Stdout:     buf,
		LogHandler: e.traceOutput(),
	})
	if err != nil {
		return err
	}

	if buf.Len() < want {
		return fmt.Errorf("no frame decoded at %.3fs (got %d of %d bytes)", at, buf.Len(), want)
	}
	copy(dst, buf.Bytes()[:want])
	return nil
}
