package capture

import (
	"fmt"
	"image"
	"image/color"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"faceattend/internal/service/recognition"
)

var (
	knownColor   = color.RGBA{R: 0, G: 200, B: 0, A: 255}
	unknownColor = color.RGBA{R: 220, G: 0, B: 0, A: 255}
	labelText    = color.RGBA{R: 255, G: 255, B: 255, A: 255}
)

const (
	boxThickness = 2
	labelHeight  = 16
)

// Annotate returns a copy of frame with a box and a name label drawn for
// every result. frame itself is left untouched.
func Annotate(frame image.Image, results []recognition.Result) *image.RGBA {
	b := frame.Bounds()
	dst := image.NewRGBA(b)
	draw.Draw(dst, b, frame, b.Min, draw.Src)

	for _, r := range results {
		c := unknownColor
		if r.Known {
			c = knownColor
		}
		rect := r.Box.Rect().Intersect(b)
		if rect.Empty() {
			continue
		}
		drawBox(dst, rect, c)
		drawLabel(dst, rect, label(r), c)
	}
	return dst
}

func label(r recognition.Result) string {
	if !r.Known {
		return r.Name
	}
	return fmt.Sprintf("%s (%.0f%%)", r.Name, r.Confidence*100)
}

func drawBox(dst *image.RGBA, r image.Rectangle, c color.Color) {
	src := image.NewUniform(c)
	edges := []image.Rectangle{
		image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+boxThickness),
		image.Rect(r.Min.X, r.Max.Y-boxThickness, r.Max.X, r.Max.Y),
		image.Rect(r.Min.X, r.Min.Y, r.Min.X+boxThickness, r.Max.Y),
		image.Rect(r.Max.X-boxThickness, r.Min.Y, r.Max.X, r.Max.Y),
	}
	for _, e := range edges {
		draw.Draw(dst, e.Intersect(dst.Bounds()), src, image.Point{}, draw.Src)
	}
}

// drawLabel fills a strip along the bottom of the box and writes text into it.
func drawLabel(dst *image.RGBA, r image.Rectangle, text string, c color.Color) {
	strip := image.Rect(r.Min.X, r.Max.Y-labelHeight, r.Max.X, r.Max.Y).Intersect(dst.Bounds())
	draw.Draw(dst, strip, image.NewUniform(c), image.Point{}, draw.Src)

	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(labelText),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(strip.Min.X+4, strip.Max.Y-3),
	}
	d.DrawString(text)
}
