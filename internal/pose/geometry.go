package pose

import "math"

// AlignmentMinAngle is the smallest shoulder-hip-ankle angle accepted as a straight plank.
const AlignmentMinAngle = 160.0

// Angle returns the interior angle in degrees at vertex b formed by the
// segments b->a and b->c. The result is always in [0,180].
//
// Coincident points are not special-cased: atan2(0,0) is 0, so a zero-length
// segment is treated as pointing along +X. NaN coordinates yield 0.
func Angle(a, b, c Point2D) float64 {
	radians := math.Atan2(c.Y-b.Y, c.X-b.X) - math.Atan2(a.Y-b.Y, a.X-b.X)
	angle := math.Abs(radians * 180.0 / math.Pi)

	if angle > 180.0 {
		angle = 360.0 - angle
	}
	if math.IsNaN(angle) {
		return 0
	}

	return angle
}

// IsAligned reports whether shoulder, hip and ankle form a straight plank,
// i.e. the angle at the hip lies in [160,180].
func IsAligned(shoulder, hip, ankle Point2D) bool {
	return AlignedWithin(shoulder, hip, ankle, AlignmentMinAngle)
}

// AlignedWithin is IsAligned with a configurable lower bound.
func AlignedWithin(shoulder, hip, ankle Point2D, minAngle float64) bool {
	angle := Angle(shoulder, hip, ankle)
	return angle >= minAngle && angle <= 180.0
}
