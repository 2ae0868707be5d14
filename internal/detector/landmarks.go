// Package detector provides body pose landmark providers for rep counting.
package detector

import "github.com/ayusman/fitlock/internal/pose"

// Pose landmark indices following the MediaPipe Pose convention.
// See: https://developers.google.com/mediapipe/solutions/vision/pose_landmarker
const (
	LeftShoulder     = 11
	RightShoulder    = 12
	LeftElbow        = 13
	RightElbow       = 14
	LeftWrist        = 15
	RightWrist       = 16
	LeftHip          = 23
	RightHip         = 24
	LeftAnkle        = 27
	RightAnkle       = 28
	NumPoseLandmarks = 33
)

// sideIndices maps the tracked joints to landmark indices for each side.
var sideIndices = map[pose.Side]map[pose.Joint]int{
	pose.SideLeft: {
		pose.Shoulder: LeftShoulder,
		pose.Elbow:    LeftElbow,
		pose.Wrist:    LeftWrist,
		pose.Hip:      LeftHip,
		pose.Ankle:    LeftAnkle,
	},
	pose.SideRight: {
		pose.Shoulder: RightShoulder,
		pose.Elbow:    RightElbow,
		pose.Wrist:    RightWrist,
		pose.Hip:      RightHip,
		pose.Ankle:    RightAnkle,
	},
}

// Landmark is one raw pose landmark as reported by the pose service.
type Landmark struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Z          float64 `json:"z"`
	Visibility float64 `json:"visibility"`
}

// ToSample converts a full landmark list into a JointSample for the given side.
// An empty list means no body was detected. Landmarks whose visibility is
// below minVisibility are left out of the sample. SideAuto picks the side
// with the higher mean visibility, preferring left on ties.
func ToSample(landmarks []Landmark, side pose.Side, minVisibility float64) pose.JointSample {
	if len(landmarks) == 0 {
		return pose.NoDetection()
	}

	if side == pose.SideAuto || side == "" {
		side = pose.SideLeft
		if meanVisibility(landmarks, pose.SideRight) > meanVisibility(landmarks, pose.SideLeft) {
			side = pose.SideRight
		}
	}

	sample := pose.JointSample{
		Detected: true,
		Side:     side,
		Joints:   make(map[pose.Joint]pose.Point2D, len(pose.RequiredJoints)),
	}

	for joint, idx := range sideIndices[side] {
		if idx >= len(landmarks) {
			continue
		}
		lm := landmarks[idx]
		if lm.Visibility < minVisibility {
			continue
		}
		sample.Joints[joint] = pose.Point2D{X: lm.X, Y: lm.Y}
	}

	return sample
}

func meanVisibility(landmarks []Landmark, side pose.Side) float64 {
	var sum float64
	var n int
	for _, idx := range sideIndices[side] {
		if idx < len(landmarks) {
			sum += landmarks[idx].Visibility
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
