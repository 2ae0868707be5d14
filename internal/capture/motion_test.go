package capture

import (
	"testing"
	"time"

	"gocv.io/x/gocv"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestGate(threshold float64, hold time.Duration) (*MotionGate, *fakeClock) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	g := NewMotionGate(threshold, hold)
	g.now = clock.now
	return g, clock
}

func solidFrame(value float64) gocv.Mat {
	m := gocv.NewMatWithSize(120, 160, gocv.MatTypeCV8UC3)
	m.SetTo(gocv.NewScalar(value, value, value, 0))
	return m
}

func TestMotionGate_FirstFramePrimes(t *testing.T) {
	g, _ := newTestGate(0.01, time.Second)
	defer g.Close()

	frame := solidFrame(0)
	defer frame.Close()

	open, changed := g.Observe(&frame)
	if open || changed != 0 {
		t.Errorf("first frame = (%v, %f), want (false, 0)", open, changed)
	}
}

func TestMotionGate_StillFramesStayClosed(t *testing.T) {
	g, _ := newTestGate(0.01, time.Second)
	defer g.Close()

	frame := solidFrame(40)
	defer frame.Close()

	g.Observe(&frame)
	open, changed := g.Observe(&frame)
	if open {
		t.Errorf("identical frames opened the gate, changed = %f", changed)
	}
}

func TestMotionGate_MotionOpensAndHolds(t *testing.T) {
	g, clock := newTestGate(0.01, 2*time.Second)
	defer g.Close()

	black := solidFrame(0)
	defer black.Close()
	white := solidFrame(255)
	defer white.Close()

	g.Observe(&black)
	open, changed := g.Observe(&white)
	if !open {
		t.Fatalf("black to white should open the gate, changed = %f", changed)
	}
	if changed < 0.5 {
		t.Errorf("changed = %f, want most pixels", changed)
	}

	clock.advance(time.Second)
	if open, _ := g.Observe(&white); !open {
		t.Error("gate should stay open within hold")
	}

	clock.advance(3 * time.Second)
	if open, _ := g.Observe(&white); open {
		t.Error("gate should close after hold expires")
	}
}

func TestMotionGate_Reset(t *testing.T) {
	g, _ := newTestGate(0.01, time.Minute)
	defer g.Close()

	black := solidFrame(0)
	defer black.Close()
	white := solidFrame(255)
	defer white.Close()

	g.Observe(&black)
	g.Observe(&white)
	g.Reset()

	if open, changed := g.Observe(&black); open || changed != 0 {
		t.Errorf("after Reset = (%v, %f), want primed baseline only", open, changed)
	}
}

func TestMotionGate_EmptyFrame(t *testing.T) {
	g, _ := newTestGate(0.01, time.Second)
	defer g.Close()

	empty := gocv.NewMat()
	defer empty.Close()

	if open, changed := g.Observe(&empty); open || changed != 0 {
		t.Errorf("empty frame = (%v, %f), want (false, 0)", open, changed)
	}
	if open, _ := g.Observe(nil); open {
		t.Error("nil frame should not open the gate")
	}
}

func TestMotionGate_CloseTwice(t *testing.T) {
	g := NewMotionGate(0.01, time.Second)
	g.Close()
	g.Close()
}
