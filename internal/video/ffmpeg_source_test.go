package video_test

import (
	"context"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/keagan/stepsnap/internal/ffmpeg"
	"github.com/keagan/stepsnap/internal/sampler"
	"github.com/keagan/stepsnap/internal/video"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func skipIfNoFFmpeg(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not found in PATH - install with: brew install ffmpeg")
	}
	if _, err := exec.LookPath("ffprobe"); err != nil {
		t.Skip("ffprobe not found in PATH - install with: brew install ffmpeg")
	}
}

func TestFFmpegSourceExtract(t *testing.T) {
	skipIfNoFFmpeg(t)

	ctx := context.Background()
	logger := zerolog.Nop()
	executor, err := ffmpeg.New(logger, ffmpeg.Options{Threads: 1})
	require.NoError(t, err)

	// 6s clip: 3s dark slide then 3s light slide
	input := filepath.Join(t.TempDir(), "slides.mp4")
	err = executor.Run(ctx, ffmpeg.RunOptions{
		Args: []string{
			"-f", "lavfi", "-i", "color=c=0x202020:s=160x90:r=10:d=3",
			"-f", "lavfi", "-i", "color=c=0xe0e0e0:s=160x90:r=10:d=3",
			"-filter_complex", "[0:v][1:v]concat=n=2:v=1:a=0",
			"-pix_fmt", "yuv420p",
			input,
		},
	})
	require.NoError(t, err)

	src, err := video.OpenFile(ctx, logger, executor, input)
	require.NoError(t, err)
	assert.InDelta(t, 6.0, src.Duration(), 0.2)

	ext := sampler.NewExtractor(logger, sampler.DefaultConfig(), nil)
	res, err := ext.Run(ctx, src, sampler.Policy{Sensitivity: 0.3})
	require.NoError(t, err)

	assert.GreaterOrEqual(t, res.ChangePoints, 1)
	assert.GreaterOrEqual(t, len(res.Frames), 3)

	var detected []sampler.Frame
	for _, f := range res.Frames {
		assert.Equal(t, 160, f.Width)
		assert.NotEmpty(t, f.Image)
		if f.Score > 0 {
			detected = append(detected, f)
		}
	}
	require.Len(t, detected, 1)
	assert.InDelta(t, 3.0, detected[0].Timestamp, 0.5)
}

func TestOpenFileMissing(t *testing.T) {
	skipIfNoFFmpeg(t)

	executor, err := ffmpeg.New(zerolog.Nop(), ffmpeg.Options{})
	require.NoError(t, err)

	_, err = video.OpenFile(context.Background(), zerolog.Nop(), executor, filepath.Join(t.TempDir(), "missing.mp4"))
	assert.ErrorIs(t, err, video.ErrLoad)
}
