package detector

import (
	"sync"

	"gocv.io/x/gocv"

	"github.com/ayusman/fitlock/internal/pose"
)

// MockDetector is a test implementation of the Detector interface.
// It replays a scripted sequence of samples; once the script is exhausted
// the last sample is repeated.
type MockDetector struct {
	mu      sync.Mutex
	samples []pose.JointSample
	next    int
	calls   int
	err     error
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetSamples replaces the scripted samples and rewinds the script.
func (m *MockDetector) SetSamples(samples ...pose.JointSample) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.samples = samples
	m.next = 0
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns how many times Detect has been called.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Detect returns the next scripted sample or the configured error.
func (m *MockDetector) Detect(frame *gocv.Mat) (pose.JointSample, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if m.err != nil {
		return pose.JointSample{}, m.err
	}
	if len(m.samples) == 0 {
		return pose.NoDetection(), nil
	}

	s := m.samples[m.next]
	if m.next < len(m.samples)-1 {
		m.next++
	}
	return s, nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

func plankSample(shoulder, elbow, wrist, hip, ankle pose.Point2D) pose.JointSample {
	return pose.JointSample{
		Detected: true,
		Side:     pose.SideLeft,
		Joints: map[pose.Joint]pose.Point2D{
			pose.Shoulder: shoulder,
			pose.Elbow:    elbow,
			pose.Wrist:    wrist,
			pose.Hip:      hip,
			pose.Ankle:    ankle,
		},
	}
}

// PlankUpSample returns a side view of a straight plank with locked arms
// (elbow angle 180, body angle ~179).
func PlankUpSample() pose.JointSample {
	return plankSample(
		pose.Point2D{X: 0.30, Y: 0.45},
		pose.Point2D{X: 0.30, Y: 0.60},
		pose.Point2D{X: 0.30, Y: 0.75},
		pose.Point2D{X: 0.55, Y: 0.47},
		pose.Point2D{X: 0.85, Y: 0.50},
	)
}

// PlankDownSample returns the bottom of a clean push-up
// (elbow angle ~59, body angle ~171).
func PlankDownSample() pose.JointSample {
	return plankSample(
		pose.Point2D{X: 0.32, Y: 0.62},
		pose.Point2D{X: 0.42, Y: 0.72},
		pose.Point2D{X: 0.30, Y: 0.75},
		pose.Point2D{X: 0.57, Y: 0.64},
		pose.Point2D{X: 0.85, Y: 0.62},
	)
}

// SaggingDownSample returns the bottom of a push-up with dropped hips
// (elbow angle ~59, body angle ~128).
func SaggingDownSample() pose.JointSample {
	return plankSample(
		pose.Point2D{X: 0.32, Y: 0.62},
		pose.Point2D{X: 0.42, Y: 0.72},
		pose.Point2D{X: 0.30, Y: 0.75},
		pose.Point2D{X: 0.57, Y: 0.75},
		pose.Point2D{X: 0.85, Y: 0.62},
	)
}

// MidRangeSample returns a half-bent position inside the dead zone
// (elbow angle ~108, body angle ~179).
func MidRangeSample() pose.JointSample {
	return plankSample(
		pose.Point2D{X: 0.31, Y: 0.54},
		pose.Point2D{X: 0.38, Y: 0.66},
		pose.Point2D{X: 0.30, Y: 0.75},
		pose.Point2D{X: 0.56, Y: 0.56},
		pose.Point2D{X: 0.85, Y: 0.58},
	)
}
