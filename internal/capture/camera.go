// Package capture reads video frames from a webcam or a recorded clip.
package capture

import (
	"errors"
	"fmt"
	"strconv"
	"sync"

	"gocv.io/x/gocv"

	"github.com/ayusman/fitlock/internal/logger"
)

// Capture defaults.
const (
	DefaultFPS    = 15
	DefaultWidth  = 640
	DefaultHeight = 480
)

var (
	// ErrCameraNotOpen is returned when reading from a camera that is not open.
	ErrCameraNotOpen = errors.New("camera is not open")
	// ErrNoFrame is returned when the source produced no usable frame,
	// including the end of a recorded clip.
	ErrNoFrame = errors.New("no frame available")
)

// Camera is a source of BGR frames.
type Camera interface {
	Open() error
	Close() error
	// ReadFrame returns the next frame. The caller owns the returned Mat.
	ReadFrame() (*gocv.Mat, error)
	SetFPS(fps int)
	FPS() int
	IsOpen() bool
}

// Source identifies what a VideoCamera opens: a device index such as "0"
// or a path to a video file.
type Source string

// DeviceSource returns the Source for a webcam index.
func DeviceSource(id int) Source {
	return Source(strconv.Itoa(id))
}

func (s Source) open() (*gocv.VideoCapture, error) {
	if id, err := strconv.Atoi(string(s)); err == nil {
		return gocv.OpenVideoCapture(id)
	}
	return gocv.VideoCaptureFile(string(s))
}

// VideoCamera reads frames through gocv.VideoCapture.
type VideoCamera struct {
	source  Source
	width   int
	height  int
	mu      sync.Mutex
	capture *gocv.VideoCapture
	fps     int
}

// NewCamera returns a closed VideoCamera for source at the default
// resolution and frame rate.
func NewCamera(source Source) *VideoCamera {
	return &VideoCamera{
		source: source,
		width:  DefaultWidth,
		height: DefaultHeight,
		fps:    DefaultFPS,
	}
}

// Open starts capturing. Opening an open camera is a no-op.
func (c *VideoCamera) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.capture != nil {
		return nil
	}

	vc, err := c.source.open()
	if err != nil {
		return fmt.Errorf("open video source %q: %w", c.source, err)
	}

	vc.Set(gocv.VideoCaptureFrameWidth, float64(c.width))
	vc.Set(gocv.VideoCaptureFrameHeight, float64(c.height))
	vc.Set(gocv.VideoCaptureFPS, float64(c.fps))
	c.capture = vc

	logger.Logger().Infow("Camera opened", "source", c.source, "fps", c.fps)
	return nil
}

// Close releases the capture device.
func (c *VideoCamera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.capture == nil {
		return nil
	}

	err := c.capture.Close()
	c.capture = nil
	logger.Logger().Infow("Camera closed", "source", c.source)
	return err
}

// ReadFrame grabs the next frame.
func (c *VideoCamera) ReadFrame() (*gocv.Mat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.capture == nil {
		return nil, ErrCameraNotOpen
	}

	mat := gocv.NewMat()
	if ok := c.capture.Read(&mat); !ok || mat.Empty() {
		mat.Close()
		return nil, ErrNoFrame
	}
	return &mat, nil
}

// SetFPS changes the requested capture rate. Non-positive values are ignored.
func (c *VideoCamera) SetFPS(fps int) {
	if fps <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.fps = fps
	if c.capture != nil {
		c.capture.Set(gocv.VideoCaptureFPS, float64(fps))
	}
}

// FPS returns the requested capture rate.
func (c *VideoCamera) FPS() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fps
}

// IsOpen reports whether the camera is capturing.
func (c *VideoCamera) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.capture != nil
}
