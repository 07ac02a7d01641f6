package annotate

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func blank(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 0xff
	}
	return img
}

var opaqueBlack = color.RGBA{A: 0xff}

func TestBoxRect(t *testing.T) {
	bounds := image.Rect(0, 0, 1000, 500)

	r := Box{100, 200, 300, 400}.Rect(bounds)
	assert.Equal(t, image.Rect(200, 50, 400, 150), r)

	// Reversed and out of range values are normalised
	r = Box{300, 1200, 100, -50}.Rect(bounds)
	assert.Equal(t, image.Rect(0, 50, 1000, 150), r)
}

func TestBoxRectOffsetBounds(t *testing.T) {
	r := Box{0, 0, 1000, 1000}.Rect(image.Rect(10, 20, 110, 70))
	assert.Equal(t, image.Rect(10, 20, 110, 70), r)
}

func TestDrawStrokeAndLabelAbove(t *testing.T) {
	canvas := blank(1000, 500)
	Draw(canvas, Box{200, 200, 600, 400})

	// Box spans x 200..400, y 100..300
	assert.Equal(t, strokeColor, canvas.RGBAAt(300, 100), "top edge")
	assert.Equal(t, strokeColor, canvas.RGBAAt(300, 299), "bottom edge")
	assert.Equal(t, strokeColor, canvas.RGBAAt(200, 200), "left edge")
	assert.Equal(t, strokeColor, canvas.RGBAAt(401, 200), "right edge")
	assert.Equal(t, opaqueBlack, canvas.RGBAAt(300, 200), "interior untouched")
	assert.Equal(t, opaqueBlack, canvas.RGBAAt(300, 320), "below box untouched")

	// Label background sits just above the top edge
	assert.Equal(t, strokeColor, canvas.RGBAAt(199, 80))
}

func TestDrawLabelBelowNearTop(t *testing.T) {
	canvas := blank(1000, 500)
	Draw(canvas, Box{0, 200, 100, 400})

	// Box spans y 0..50, label goes under it
	assert.Equal(t, strokeColor, canvas.RGBAAt(199, 54))
	assert.Equal(t, opaqueBlack, canvas.RGBAAt(300, 25))
}

func TestDrawLabelStaysOnCanvas(t *testing.T) {
	canvas := blank(200, 100)
	// Full-frame box leaves no room above or below
	Draw(canvas, Box{0, 900, 1000, 1000})

	found := false
	for x := 0; x < 200 && !found; x++ {
		for y := 0; y < 100; y++ {
			if canvas.RGBAAt(x, y) == labelColor {
				found = true
				break
			}
		}
	}
	assert.True(t, found, "label text should be drawn inside the canvas")
}

func TestDrawNilCanvas(t *testing.T) {
	assert.NotPanics(t, func() {
		Draw(nil, Box{0, 0, 1000, 1000})
	})
	assert.NotPanics(t, func() {
		var canvas *image.RGBA
		Draw(canvas, Box{0, 0, 1000, 1000})
	})
	assert.NotPanics(t, func() {
		Draw(image.NewRGBA(image.Rectangle{}), Box{0, 0, 1000, 1000})
	})
}

func TestAnnotateCopies(t *testing.T) {
	src := blank(100, 100)
	out := Annotate(src, Box{250, 250, 750, 750})

	assert.Equal(t, opaqueBlack, src.RGBAAt(25, 25))
	assert.Equal(t, strokeColor, out.RGBAAt(50, 25))
}

func TestParseBox(t *testing.T) {
	b, err := ParseBox("120, 40,380,960")
	require.NoError(t, err)
	assert.Equal(t, Box{120, 40, 380, 960}, b)

	_, err = ParseBox("1,2,3")
	assert.Error(t, err)

	_, err = ParseBox("1,2,x,4")
	assert.Error(t, err)
}
