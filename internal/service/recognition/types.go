// Package recognition turns camera frames into matched identities: it holds the
// enrolled gallery, the nearest-neighbour matcher and the frame-sampling pipeline.
package recognition

import (
	"image"
)

// UnknownName labels a face that matched nobody in the gallery.
const UnknownName = "Unknown"

// Embedding is a fixed-length face descriptor. Distances between embeddings of
// the same person are small.
type Embedding []float64

// Box is a face bounding box in pixel coordinates, stored as top, right, bottom, left.
type Box struct {
	Top    int `json:"top"`
	Right  int `json:"right"`
	Bottom int `json:"bottom"`
	Left   int `json:"left"`
}

// BoxFromRect converts an image.Rectangle into a Box.
func BoxFromRect(r image.Rectangle) Box {
	return Box{Top: r.Min.Y, Right: r.Max.X, Bottom: r.Max.Y, Left: r.Min.X}
}

// Rect converts b back into an image.Rectangle.
func (b Box) Rect() image.Rectangle {
	return image.Rect(b.Left, b.Top, b.Right, b.Bottom)
}

// Scale multiplies every coordinate by f and then shifts by offset.
func (b Box) Scale(f int, offset image.Point) Box {
	return Box{
		Top:    b.Top*f + offset.Y,
		Right:  b.Right*f + offset.X,
		Bottom: b.Bottom*f + offset.Y,
		Left:   b.Left*f + offset.X,
	}
}

// Face is one detected face with its embedding.
type Face struct {
	Box       Box
	Embedding Embedding
}

// Encoder finds faces in an image and computes their embeddings in one pass.
type Encoder interface {
	Recognize(img image.Image) ([]Face, error)
}

// Result is the outcome of recognising one face in a frame. Box is in the
// coordinates of the frame handed to Pipeline.Recognize.
type Result struct {
	Box        Box     `json:"box"`
	StudentID  string  `json:"student_id,omitempty"`
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
	Known      bool    `json:"known"`
}
