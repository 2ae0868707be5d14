package detector

import (
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/fitlock/internal/pose"
)

// Detector defines the interface for body pose landmark providers.
type Detector interface {
	// Detect analyzes a video frame and returns the tracked joints.
	// A frame without a body yields a sample with Detected set to false.
	Detect(frame *gocv.Mat) (pose.JointSample, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds configuration options for pose detection.
type Config struct {
	// Side selects which body side to track: left, right or auto.
	Side pose.Side

	// MinDetectionConfidence is the minimum pose detection confidence (0.0-1.0).
	MinDetectionConfidence float64

	// MinTrackingConfidence is the minimum landmark tracking confidence (0.0-1.0).
	MinTrackingConfidence float64

	// MinVisibility drops landmarks whose visibility is below this value.
	// Zero keeps every landmark the service reports.
	MinVisibility float64

	// ScriptPath is the pose service script. Empty means search the usual locations.
	ScriptPath string

	// PythonPath is the interpreter used to run ScriptPath. Empty means a
	// virtualenv python if one is found, else python3.
	PythonPath string

	// IdleTimeout stops the pose service after this long without frames.
	IdleTimeout time.Duration
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		Side:                   pose.SideLeft,
		MinDetectionConfidence: 0.5,
		MinTrackingConfidence:  0.5,
		IdleTimeout:            30 * time.Second,
	}
}
