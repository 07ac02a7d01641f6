// Package annotate highlights a UI element on a captured step frame.
package annotate

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"strconv"
	"strings"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Scale is the coordinate range boxes are expressed in
const Scale = 1000

// Label is drawn next to every box
const Label = "Click here"

const (
	strokeWidth  = 4
	labelPadX    = 4
	labelPadY    = 3
	labelAscent  = 11
	labelLineGap = 13
)

var (
	strokeColor = color.RGBA{R: 0xef, G: 0x44, B: 0x44, A: 0xff}
	labelColor  = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
)

// Box is a region as [ymin, xmin, ymax, xmax] on a 0..1000 scale
type Box [4]float64

// ParseBox reads "ymin,xmin,ymax,xmax"
func ParseBox(s string) (Box, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return Box{}, fmt.Errorf("box needs 4 comma separated values, got %d", len(parts))
	}

	var b Box
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return Box{}, fmt.Errorf("box value %d: %w", i, err)
		}
		b[i] = v
	}
	return b, nil
}

// Rect maps the box onto bounds. Coordinates are clamped to the scale and
// swapped when given in reverse order.
func (b Box) Rect(bounds image.Rectangle) image.Rectangle {
	ymin, xmin := clamp(b[0]), clamp(b[1])
	ymax, xmax := clamp(b[2]), clamp(b[3])
	if ymin > ymax {
		ymin, ymax = ymax, ymin
	}
	if xmin > xmax {
		xmin, xmax = xmax, xmin
	}

	w, h := float64(bounds.Dx()), float64(bounds.Dy())
	return image.Rect(
		bounds.Min.X+int(math.Round(xmin/Scale*w)),
		bounds.Min.Y+int(math.Round(ymin/Scale*h)),
		bounds.Min.X+int(math.Round(xmax/Scale*w)),
		bounds.Min.Y+int(math.Round(ymax/Scale*h)),
	)
}

func clamp(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(Scale, v))
}

// Draw outlines box on canvas and labels it. The label sits above the
// box, or below it when there is no room above. A nil canvas, including
// a nil *image.RGBA, is ignored.
func Draw(canvas draw.Image, box Box) {
	if canvas == nil {
		return
	}
	if rgba, ok := canvas.(*image.RGBA); ok && rgba == nil {
		return
	}
	bounds := canvas.Bounds()
	if bounds.Empty() {
		return
	}

	r := box.Rect(bounds)
	stroke := image.NewUniform(strokeColor)

	edges := []image.Rectangle{
		image.Rect(r.Min.X-strokeWidth/2, r.Min.Y-strokeWidth/2, r.Max.X+strokeWidth/2, r.Min.Y+strokeWidth/2),
		image.Rect(r.Min.X-strokeWidth/2, r.Max.Y-strokeWidth/2, r.Max.X+strokeWidth/2, r.Max.Y+strokeWidth/2),
		image.Rect(r.Min.X-strokeWidth/2, r.Min.Y-strokeWidth/2, r.Min.X+strokeWidth/2, r.Max.Y+strokeWidth/2),
		image.Rect(r.Max.X-strokeWidth/2, r.Min.Y-strokeWidth/2, r.Max.X+strokeWidth/2, r.Max.Y+strokeWidth/2),
	}
	for _, e := range edges {
		draw.Draw(canvas, e.Intersect(bounds), stroke, image.Point{}, draw.Src)
	}

	drawLabel(canvas, bounds, r)
}

func drawLabel(canvas draw.Image, bounds, box image.Rectangle) {
	face := basicfont.Face7x13
	textW := font.MeasureString(face, Label).Ceil()
	w := textW + 2*labelPadX
	h := labelLineGap + 2*labelPadY

	x := box.Min.X - strokeWidth/2
	if x+w > bounds.Max.X {
		x = bounds.Max.X - w
	}
	if x < bounds.Min.X {
		x = bounds.Min.X
	}

	y := box.Min.Y - strokeWidth/2 - h
	if y < bounds.Min.Y {
		y = box.Max.Y + strokeWidth/2
	}
	if y+h > bounds.Max.Y {
		// No room below either, keep it inside the box's top edge
		y = max(bounds.Min.Y, box.Min.Y+strokeWidth/2)
	}

	bg := image.Rect(x, y, x+w, y+h).Intersect(bounds)
	draw.Draw(canvas, bg, image.NewUniform(strokeColor), image.Point{}, draw.Src)

	d := &font.Drawer{
		Dst:  canvas,
		Src:  image.NewUniform(labelColor),
		Face: face,
		Dot:  fixed.P(x+labelPadX, y+labelPadY+labelAscent),
	}
	d.DrawString(Label)
}

// Annotate returns an RGBA copy of img with box drawn on it
func Annotate(img image.Image, box Box) *image.RGBA {
	b := img.Bounds()
	out := image.NewRGBA(b)
	draw.Draw(out, b, img, b.Min, draw.Src)
	Draw(out, box)
	return out
}
