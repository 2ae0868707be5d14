// Package testdata builds synthetic frames and rep scripts for tests.
package testdata

import (
	"image/color"

	"gocv.io/x/gocv"

	"github.com/ayusman/fitlock/internal/detector"
	"github.com/ayusman/fitlock/internal/frame"
	"github.com/ayusman/fitlock/internal/pose"
)

// Frame size used by the fixtures.
const (
	FrameWidth  = 160
	FrameHeight = 120
)

// SolidFrame returns a frame filled with c. The caller must Close it.
func SolidFrame(c color.RGBA) gocv.Mat {
	img := gocv.NewMatWithSize(FrameHeight, FrameWidth, gocv.MatTypeCV8UC3)
	img.SetTo(gocv.NewScalar(float64(c.B), float64(c.G), float64(c.R), 0))
	return img
}

// MotionFrames returns n frames alternating black and white, so every
// frame after the first differs from its predecessor.
func MotionFrames(n int) []*gocv.Mat {
	frames := make([]*gocv.Mat, 0, n)
	for i := range n {
		c := color.RGBA{}
		if i%2 == 1 {
			c = color.RGBA{R: 255, G: 255, B: 255}
		}
		f := SolidFrame(c)
		frames = append(frames, &f)
	}
	return frames
}

// CloseAll releases frames.
func CloseAll(frames []*gocv.Mat) {
	for _, f := range frames {
		f.Close()
	}
}

// FrameDataURL returns a grey JPEG frame as a data URL.
func FrameDataURL() (string, error) {
	img := SolidFrame(color.RGBA{R: 128, G: 128, B: 128})
	defer img.Close()
	return frame.EncodeDataURL(img)
}

// RepScript returns the samples for one push-up per entry in downs:
// a locked-arm plank followed by the given bottom position.
func RepScript(downs ...pose.JointSample) []pose.JointSample {
	script := make([]pose.JointSample, 0, 2*len(downs))
	for _, d := range downs {
		script = append(script, detector.PlankUpSample(), d)
	}
	return script
}
