package capture

import (
	"image"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

const (
	blurKernel    = 21
	diffThreshold = 25
)

// MotionGate decides whether a frame is worth running pose inference on.
// It compares blurred grayscale frames and stays open for hold after the
// last frame whose changed-pixel fraction exceeded threshold.
type MotionGate struct {
	mu         sync.Mutex
	threshold  float64
	hold       time.Duration
	prev       gocv.Mat
	primed     bool
	lastMotion time.Time
	now        func() time.Time
}

// NewMotionGate creates a gate. threshold is a fraction of pixels in (0,1].
func NewMotionGate(threshold float64, hold time.Duration) *MotionGate {
	return &MotionGate{
		threshold: threshold,
		hold:      hold,
		prev:      gocv.NewMat(),
		now:       time.Now,
	}
}

// Observe feeds a frame and reports whether the gate is open along with the
// fraction of pixels that changed since the previous frame. The first frame
// only primes the baseline.
func (g *MotionGate) Observe(frame *gocv.Mat) (bool, float64) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if frame == nil || frame.Empty() {
		return g.openLocked(), 0
	}

	gray := gocv.NewMat()
	defer gray.Close()
	if frame.Channels() > 1 {
		gocv.CvtColor(*frame, &gray, gocv.ColorBGRToGray)
	} else {
		frame.CopyTo(&gray)
	}

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(gray, &blurred, image.Pt(blurKernel, blurKernel), 0, 0, gocv.BorderDefault)

	if !g.primed || g.prev.Rows() != blurred.Rows() || g.prev.Cols() != blurred.Cols() {
		blurred.CopyTo(&g.prev)
		g.primed = true
		return g.openLocked(), 0
	}

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(blurred, g.prev, &diff)
	gocv.Threshold(diff, &diff, diffThreshold, 255, gocv.ThresholdBinary)

	changed := float64(gocv.CountNonZero(diff)) / float64(diff.Rows()*diff.Cols())
	blurred.CopyTo(&g.prev)

	if changed > g.threshold {
		g.lastMotion = g.now()
	}
	return g.openLocked(), changed
}

func (g *MotionGate) openLocked() bool {
	return !g.lastMotion.IsZero() && g.now().Sub(g.lastMotion) <= g.hold
}

// Reset forgets the baseline and closes the gate.
func (g *MotionGate) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.primed = false
	g.lastMotion = time.Time{}
}

// Close releases the baseline frame.
func (g *MotionGate) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prev.Close()
	g.prev = gocv.NewMat()
	g.primed = false
}
