package camera

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"sync"

	"github.com/blackjack/webcam"
	"github.com/pkg/errors"
)

// pixelFormatMJPEG is the V4L2 fourcc for motion JPEG.
const pixelFormatMJPEG webcam.PixelFormat = 0x47504A4D

// frameTimeout is how long Read waits for the driver, in seconds.
const frameTimeout = 1

// V4L2 reads MJPEG frames directly from /dev/videoN.
type V4L2 struct {
	cam *webcam.Webcam
	mu  sync.Mutex
}

// NewV4L2 creates an unopened V4L2 source.
func NewV4L2() *V4L2 {
	return &V4L2{}
}

// Open opens /dev/video<index>, selects MJPEG at the given size and starts streaming.
func (c *V4L2) Open(index, width, height int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	device := fmt.Sprintf("/dev/video%d", index)
	cam, err := webcam.Open(device)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCameraUnavailable, errors.Wrap(err, "can not open "+device))
	}

	if _, ok := cam.GetSupportedFormats()[pixelFormatMJPEG]; !ok {
		cam.Close()
		return fmt.Errorf("%w: %s does not support MJPEG", ErrCameraUnavailable, device)
	}
	if _, _, _, err := cam.SetImageFormat(pixelFormatMJPEG, uint32(width), uint32(height)); err != nil {
		cam.Close()
		return fmt.Errorf("%w: %v", ErrCameraUnavailable, errors.Wrap(err, "can not set image format"))
	}
	if err := cam.StartStreaming(); err != nil {
		cam.Close()
		return fmt.Errorf("%w: %v", ErrCameraUnavailable, errors.Wrap(err, "can not start streaming"))
	}

	c.cam = cam
	return nil
}

// Read waits for the next frame and decodes it.
func (c *V4L2) Read() (image.Image, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cam == nil {
		return nil, errors.New("camera not open")
	}

	err := c.cam.WaitForFrame(frameTimeout)
	switch err.(type) {
	case nil:
	case *webcam.Timeout:
		return nil, ErrNoFrame
	default:
		return nil, errors.Wrap(err, "frame wait failed")
	}

	frame, err := c.cam.ReadFrame()
	if err != nil {
		return nil, errors.Wrap(err, "read frame failed")
	}
	if len(frame) == 0 {
		return nil, ErrNoFrame
	}

	img, err := jpeg.Decode(bytes.NewReader(frame))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoFrame, err)
	}
	return img, nil
}

// Release stops streaming and closes the device.
func (c *V4L2) Release() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cam == nil {
		return nil
	}
	c.cam.StopStreaming()
	err := c.cam.Close()
	c.cam = nil
	return errors.Wrap(err, "close failed")
}
