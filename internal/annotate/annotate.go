// Package annotate draws rep counter state and the tracked skeleton onto frames.
package annotate

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/ayusman/fitlock/internal/counter"
	"github.com/ayusman/fitlock/internal/pose"
)

// Colors are RGBA; gocv converts them to BGR when drawing.
var (
	colorWhite   = color.RGBA{R: 255, G: 255, B: 255, A: 0}
	colorGreen   = color.RGBA{G: 255, A: 0}
	colorRed     = color.RGBA{R: 255, A: 0}
	colorCyan    = color.RGBA{G: 255, B: 255, A: 0}
	colorMagenta = color.RGBA{R: 255, B: 255, A: 0}
	colorLimb    = color.RGBA{R: 66, G: 117, B: 245, A: 0}
	colorJoint   = color.RGBA{R: 230, G: 66, B: 245, A: 0}
)

const (
	limbThickness = 2
	jointRadius   = 4
)

// limbs are the segments drawn between tracked joints.
var limbs = [][2]pose.Joint{
	{pose.Shoulder, pose.Elbow},
	{pose.Elbow, pose.Wrist},
	{pose.Shoulder, pose.Hip},
	{pose.Hip, pose.Ankle},
}

// Overlay is everything drawn for one frame.
type Overlay struct {
	Result counter.Result
	Sample pose.JointSample
	// Err, when set, replaces the status text with an error line.
	Err error
}

// TextLine is one line of status text.
type TextLine struct {
	Text      string
	Origin    image.Point
	Scale     float64
	Color     color.RGBA
	Thickness int
}

// Lines lays out the status text for o.
func Lines(o Overlay) []TextLine {
	if o.Err != nil {
		return []TextLine{{
			Text: "Error: " + o.Err.Error(), Origin: image.Pt(50, 50),
			Scale: 0.7, Color: colorRed, Thickness: 2,
		}}
	}

	state := o.Result.State
	count := TextLine{
		Text: fmt.Sprintf("Count: %d", state.Count), Origin: image.Pt(50, 100),
		Scale: 1.5, Color: colorGreen, Thickness: 3,
	}
	if !o.Result.Detected {
		return []TextLine{count}
	}

	body := TextLine{Text: "Body: Aligned", Origin: image.Pt(50, 250), Scale: 0.8, Color: colorGreen, Thickness: 2}
	if !o.Result.Aligned {
		body.Text = "Body: Not Straight!"
		body.Color = colorRed
	}

	return []TextLine{
		{Text: fmt.Sprintf("Angle: %d", int(o.Result.Angle)), Origin: image.Pt(50, 50), Scale: 1, Color: colorWhite, Thickness: 2},
		count,
		{Text: state.Feedback, Origin: image.Pt(50, 150), Scale: 0.8, Color: colorCyan, Thickness: 2},
		{Text: "Stage: " + state.Stage.String(), Origin: image.Pt(50, 200), Scale: 1, Color: colorMagenta, Thickness: 2},
		body,
	}
}

// Draw renders o onto img in place.
func Draw(img *gocv.Mat, o Overlay) {
	if img == nil || img.Empty() {
		return
	}

	if o.Err == nil && o.Result.Detected {
		drawSkeleton(img, o.Sample)
	}

	for _, l := range Lines(o) {
		if l.Text == "" {
			continue
		}
		gocv.PutTextWithParams(img, l.Text, l.Origin, gocv.FontHersheySimplex, l.Scale, l.Color, l.Thickness, gocv.LineAA, false)
	}
}

func drawSkeleton(img *gocv.Mat, s pose.JointSample) {
	w, h := img.Cols(), img.Rows()
	toPixel := func(p pose.Point2D) image.Point {
		return image.Pt(int(p.X*float64(w)), int(p.Y*float64(h)))
	}

	for _, limb := range limbs {
		a, okA := s.Point(limb[0])
		b, okB := s.Point(limb[1])
		if okA && okB {
			gocv.Line(img, toPixel(a), toPixel(b), colorLimb, limbThickness)
		}
	}
	for _, j := range pose.RequiredJoints {
		if p, ok := s.Point(j); ok {
			gocv.Circle(img, toPixel(p), jointRadius, colorJoint, -1)
		}
	}
}
