// Package counter implements the push-up repetition state machine.
//
// Each processed frame supplies an elbow angle and a body alignment verdict.
// Two thresholds leave a dead zone between "extended" and "bent" so noisy
// angle estimates cannot flip the stage back and forth, and a rep is
// attributed only on the up-to-down edge, after checking that the body is
// straight at that instant.
package counter

import (
	"fmt"
	"sync"

	"github.com/ayusman/fitlock/internal/pose"
)

// Feedback messages shown to the user.
const (
	FeedbackGoDown     = "Good! Now go down"
	FeedbackPerfectRep = "Perfect rep!"
	FeedbackStraighten = "Keep your body straight!"
)

// Default thresholds in degrees.
const (
	DefaultUpAngle      = 160.0
	DefaultDownAngle    = 90.0
	DefaultAlignmentMin = pose.AlignmentMinAngle
)

// State is the rep counter state of one session.
type State struct {
	Count    int    `json:"count"`
	Stage    Stage  `json:"stage"`
	Feedback string `json:"feedback"`
}

// Thresholds configures the state machine.
type Thresholds struct {
	// Up is the elbow angle above which the arms count as extended.
	Up float64
	// Down is the elbow angle below which the arms count as bent.
	Down float64
	// AlignmentMin is the smallest shoulder-hip-ankle angle accepted as straight.
	AlignmentMin float64
}

// DefaultThresholds returns the 160/90/160 degree thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Up:           DefaultUpAngle,
		Down:         DefaultDownAngle,
		AlignmentMin: DefaultAlignmentMin,
	}
}

// Validate checks that the thresholds are in range and that the up and down
// ranges do not overlap, so at most one transition rule can fire per frame.
func (t Thresholds) Validate() error {
	for name, v := range map[string]float64{"up": t.Up, "down": t.Down, "alignment_min": t.AlignmentMin} {
		if !(v >= 0 && v <= 180) {
			return fmt.Errorf("%w: %s angle %.1f outside [0,180]", ErrInvalidThresholds, name, v)
		}
	}
	if !(t.Up > t.Down) {
		return fmt.Errorf("%w: up angle %.1f must be greater than down angle %.1f", ErrInvalidThresholds, t.Up, t.Down)
	}
	return nil
}

// Step applies one frame to s and returns the new state.
// Both rules are evaluated independently; with valid thresholds their angle
// ranges are disjoint, so the second rule always sees the stage left by the
// previous frame.
func Step(s State, elbowAngle float64, aligned bool, th Thresholds) State {
	if elbowAngle > th.Up {
		s.Stage = StageUp
		s.Feedback = FeedbackGoDown
	}

	if elbowAngle < th.Down && s.Stage == StageUp {
		s.Stage = StageDown
		if aligned {
			s.Count++
			s.Feedback = FeedbackPerfectRep
		} else {
			s.Feedback = FeedbackStraighten
		}
	}

	return s
}

// Result is the outcome of processing one sample.
type Result struct {
	State    State   `json:"state"`
	Angle    float64 `json:"angle"`
	Aligned  bool    `json:"aligned"`
	Detected bool    `json:"detected"`
}

// Counter owns the state of one session. All methods are safe for
// concurrent use; every read-modify-write of the state happens under one lock.
type Counter struct {
	thresholds Thresholds
	mu         sync.Mutex
	state      State
}

// New creates a Counter in the initial state.
func New(th Thresholds) (*Counter, error) {
	if err := th.Validate(); err != nil {
		return nil, err
	}
	return &Counter{thresholds: th}, nil
}

// ProcessSample advances the state machine with one frame of landmarks.
//
// Frames without a detection leave the state untouched. Frames with a
// detection but missing joints also leave it untouched and return the
// current state together with an error wrapping ErrIncompleteSample.
func (c *Counter) ProcessSample(sample pose.JointSample) (Result, error) {
	if !sample.Detected {
		return Result{State: c.Snapshot()}, nil
	}

	if missing := sample.Missing(pose.RequiredJoints...); len(missing) > 0 {
		return Result{State: c.Snapshot(), Detected: true},
			fmt.Errorf("%w: missing %v", ErrIncompleteSample, missing)
	}

	j := sample.Joints
	angle := pose.Angle(j[pose.Shoulder], j[pose.Elbow], j[pose.Wrist])
	aligned := pose.AlignedWithin(j[pose.Shoulder], j[pose.Hip], j[pose.Ankle], c.thresholds.AlignmentMin)

	c.mu.Lock()
	c.state = Step(c.state, angle, aligned, c.thresholds)
	state := c.state
	c.mu.Unlock()

	return Result{
		State:    state,
		Angle:    angle,
		Aligned:  aligned,
		Detected: true,
	}, nil
}

// Reset returns the counter to {0, None, ""}.
func (c *Counter) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = State{}
}

// Snapshot returns a copy of the current state.
func (c *Counter) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Thresholds returns the thresholds the counter was built with.
func (c *Counter) Thresholds() Thresholds {
	return c.thresholds
}
