package video

import (
	"image"
	"image/jpeg"
	"io"
)

// DefaultJPEGQuality is the quality used for captured step frames
const DefaultJPEGQuality = 80

// JPEGEncoder encodes frames as baseline JPEG
type JPEGEncoder struct {
	Quality int
}

// NewJPEGEncoder returns an encoder with the given quality, or the default
// when quality is outside 1..100
func NewJPEGEncoder(quality int) JPEGEncoder {
	if quality < 1 || quality > 100 {
		quality = DefaultJPEGQuality
	}
	return JPEGEncoder{Quality: quality}
}

func (e JPEGEncoder) Encode(w io.Writer, img image.Image) error {
	return jpeg.Encode(w, img, &jpeg.Options{Quality: e.Quality})
}

func (e JPEGEncoder) ContentType() string { return "image/jpeg" }

func (e JPEGEncoder) Extension() string { return ".jpg" }
