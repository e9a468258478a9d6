// Package camera provides frame sources for the capture loop.
package camera

import (
	"errors"
	"fmt"
	"image"
)

var (
	// ErrCameraUnavailable is returned by Open when the device cannot be opened.
	ErrCameraUnavailable = errors.New("camera unavailable")
	// ErrNoFrame is returned by Read when the device produced no usable frame
	// this time. The caller may keep reading.
	ErrNoFrame = errors.New("no frame")
)

const (
	BackendOpenCV = "opencv"
	BackendV4L2   = "v4l2"
)

// Source is a camera device. Read blocks until a frame is available; errors
// other than ErrNoFrame are fatal for the session. Every returned image is
// freshly allocated and owned by the caller.
type Source interface {
	Open(index, width, height int) error
	Read() (image.Image, error)
	Release() error
}

// New returns an unopened source for the named backend.
func New(backend string) (Source, error) {
	switch backend {
	case "", BackendOpenCV:
		return NewOpenCV(), nil
	case BackendV4L2:
		return NewV4L2(), nil
	default:
		return nil, fmt.Errorf("unknown camera backend %q", backend)
	}
}
