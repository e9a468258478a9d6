package camera

import (
	"fmt"
	"image"
	"sync"

	"gocv.io/x/gocv"
)

// OpenCV reads frames through an OpenCV VideoCapture.
type OpenCV struct {
	capture *gocv.VideoCapture
	mat     gocv.Mat
	mu      sync.Mutex
}

// NewOpenCV creates an unopened OpenCV source.
func NewOpenCV() *OpenCV {
	return &OpenCV{}
}

// Open opens the device at index and requests the given resolution.
func (c *OpenCV) Open(index, width, height int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	capture, err := gocv.OpenVideoCapture(index)
	if err != nil {
		return fmt.Errorf("%w: device %d: %v", ErrCameraUnavailable, index, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return fmt.Errorf("%w: device %d did not open", ErrCameraUnavailable, index)
	}

	capture.Set(gocv.VideoCaptureFrameWidth, float64(width))
	capture.Set(gocv.VideoCaptureFrameHeight, float64(height))

	c.capture = capture
	c.mat = gocv.NewMat()
	return nil
}

// Read grabs the next frame and converts it to an RGBA image.
func (c *OpenCV) Read() (image.Image, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.capture == nil {
		return nil, fmt.Errorf("camera not open")
	}
	if ok := c.capture.Read(&c.mat); !ok {
		if !c.capture.IsOpened() {
			return nil, fmt.Errorf("camera closed while reading")
		}
		return nil, ErrNoFrame
	}
	if c.mat.Empty() {
		return nil, ErrNoFrame
	}

	img, err := c.mat.ToImage()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoFrame, err)
	}
	return img, nil
}

// Release closes the device.
func (c *OpenCV) Release() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.capture == nil {
		return nil
	}
	err := c.capture.Close()
	c.mat.Close()
	c.capture = nil
	return err
}
