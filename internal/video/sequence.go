package video

import (
	"context"
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/nfnt/resize"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// Sequence is a source backed by still images shown at a fixed rate.
// Frame i covers [i/fps, (i+1)/fps).
type Sequence struct {
	frames []image.Image
	fps    float64
	width  int
	height int
	pos    int
	closed bool
}

// NewSequence builds a source from frames shown at fps frames per second.
// The native size is taken from the first frame.
func NewSequence(fps float64, frames ...image.Image) (*Sequence, error) {
	if fps <= 0 || math.IsNaN(fps) || math.IsInf(fps, 0) {
		return nil, fmt.Errorf("%w: invalid frame rate %v", ErrLoad, fps)
	}
	if len(frames) == 0 {
		return nil, fmt.Errorf("%w: empty sequence", ErrLoad)
	}
	b := frames[0].Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, fmt.Errorf("%w: invalid frame size %dx%d", ErrLoad, b.Dx(), b.Dy())
	}

	return &Sequence{
		frames: frames,
		fps:    fps,
		width:  b.Dx(),
		height: b.Dy(),
	}, nil
}

// LoadSequence decodes every PNG, JPEG, BMP and WebP image in dir in
// lexical file name order
func LoadSequence(dir string, fps float64) (*Sequence, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoad, err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".png", ".jpg", ".jpeg", ".bmp", ".webp":
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	frames := make([]image.Image, 0, len(names))
	for _, name := range names {
		img, err := decodeFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoad, name, err)
		}
		frames = append(frames, img)
	}

	return NewSequence(fps, frames...)
}

func decodeFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	return img, err
}

func (s *Sequence) Duration() float64 {
	return float64(len(s.frames)) / s.fps
}

func (s *Sequence) Size() (int, int) {
	return s.width, s.height
}

func (s *Sequence) Seek(ctx context.Context, t float64) error {
	if s.closed {
		return fmt.Errorf("%w: source closed", ErrSeek)
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrSeek, err)
	}
	if t < 0 || t >= s.Duration() || math.IsNaN(t) {
		return fmt.Errorf("%w: %.3fs outside [0, %.3f)", ErrSeek, t, s.Duration())
	}

	idx := int(math.Floor(t * s.fps))
	if idx >= len(s.frames) {
		idx = len(s.frames) - 1
	}
	s.pos = idx
	return nil
}

func (s *Sequence) Render(ctx context.Context, dst *image.RGBA) error {
	if s.closed {
		return fmt.Errorf("%w: source closed", ErrSeek)
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrSeek, err)
	}

	src := s.frames[s.pos]
	w, h := dst.Rect.Dx(), dst.Rect.Dy()
	sb := src.Bounds()
	if sb.Dx() != w || sb.Dy() != h {
		src = resize.Resize(uint(w), uint(h), src, resize.Bilinear)
		sb = src.Bounds()
	}

	draw.Draw(dst, dst.Rect, src, sb.Min, draw.Src)
	return nil
}

func (s *Sequence) Close() error {
	s.closed = true
	return nil
}
