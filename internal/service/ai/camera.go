package ai

import (
	"fmt"

	"gocv.io/x/gocv"
)

// Camera is a local capture device.
type Camera struct {
	index   int
	capture *gocv.VideoCapture
}

// OpenCamera opens the capture device at index.
func OpenCamera(index int) (*Camera, error) {
	capture, err := gocv.OpenVideoCapture(index)
	if err != nil {
		return nil, fmt.Errorf("failed to open camera %d: %w", index, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return nil, fmt.Errorf("failed to open camera %d: device not available", index)
	}
	return &Camera{index: index, capture: capture}, nil
}

// Read grabs the next frame into dst.
func (c *Camera) Read(dst *gocv.Mat) error {
	if ok := c.capture.Read(dst); !ok {
		return fmt.Errorf("failed to read frame from camera %d", c.index)
	}
	if dst.Empty() {
		return fmt.Errorf("empty frame from camera %d", c.index)
	}
	return nil
}

// Close releases the device.
func (c *Camera) Close() error {
	return c.capture.Close()
}
