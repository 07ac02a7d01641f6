package sampler

import (
	"fmt"
	"image"
)

// Diff returns the mean absolute RGB difference between two equally sized
// rasters, normalised to [0,1]. Alpha is ignored.
func Diff(a, b *image.RGBA) (float64, error) {
	w, h := a.Rect.Dx(), a.Rect.Dy()
	if w != b.Rect.Dx() || h != b.Rect.Dy() {
		return 0, fmt.Errorf("%w: raster sizes differ: %dx%d vs %dx%d",
			ErrInvalidArgument, w, h, b.Rect.Dx(), b.Rect.Dy())
	}
	if w == 0 || h == 0 {
		return 0, fmt.Errorf("%w: empty raster", ErrInvalidArgument)
	}

	var sum uint64
	for y := 0; y < h; y++ {
		ra := a.Pix[y*a.Stride : y*a.Stride+w*4]
		rb := b.Pix[y*b.Stride : y*b.Stride+w*4]
		for i := 0; i < len(ra); i += 4 {
			sum += absDiff(ra[i], rb[i])
			sum += absDiff(ra[i+1], rb[i+1])
			sum += absDiff(ra[i+2], rb[i+2])
		}
	}

	return float64(sum) / (3 * 255 * float64(w*h)), nil
}

func absDiff(x, y uint8) uint64 {
	if x > y {
		return uint64(x - y)
	}
	return uint64(y - x)
}
