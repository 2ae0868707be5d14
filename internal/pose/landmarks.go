// Package pose provides body landmark types and the joint geometry used for rep counting.
package pose

// Joint identifies a tracked body landmark on one side of the body.
type Joint string

// Joints tracked for push-up counting.
const (
	Shoulder Joint = "shoulder"
	Elbow    Joint = "elbow"
	Wrist    Joint = "wrist"
	Hip      Joint = "hip"
	Ankle    Joint = "ankle"
)

// RequiredJoints lists every joint a sample needs for the elbow angle and
// the body alignment check.
var RequiredJoints = []Joint{Shoulder, Elbow, Wrist, Hip, Ankle}

// Side selects which half of the body a sample was taken from.
type Side string

const (
	SideLeft  Side = "left"
	SideRight Side = "right"
	// SideAuto lets the landmark provider pick the better visible side.
	SideAuto Side = "auto"
)

// Valid reports whether s is a known side.
func (s Side) Valid() bool {
	switch s {
	case SideLeft, SideRight, SideAuto:
		return true
	}
	return false
}

// Point2D is a landmark position normalized to [0,1] on both axes,
// with Y growing downward as in image coordinates.
type Point2D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// JointSample is the landmark set reported for a single frame.
// A joint missing from Joints is absent for that frame.
type JointSample struct {
	Detected bool              `json:"detected"`
	Side     Side              `json:"side,omitempty"`
	Joints   map[Joint]Point2D `json:"joints,omitempty"`
}

// NoDetection returns a sample for a frame where no body was found.
func NoDetection() JointSample {
	return JointSample{}
}

// Point returns the position of j and whether it is present.
func (s JointSample) Point(j Joint) (Point2D, bool) {
	p, ok := s.Joints[j]
	return p, ok
}

// Missing returns the joints from required that the sample lacks, in order.
func (s JointSample) Missing(required ...Joint) []Joint {
	var missing []Joint
	for _, j := range required {
		if _, ok := s.Joints[j]; !ok {
			missing = append(missing, j)
		}
	}
	return missing
}
