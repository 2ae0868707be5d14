package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/fitlock/internal/annotate"
	"github.com/ayusman/fitlock/internal/counter"
	"github.com/ayusman/fitlock/internal/detector"
	"github.com/ayusman/fitlock/internal/logger"
	"github.com/ayusman/fitlock/internal/metrics"
	"github.com/ayusman/fitlock/internal/session"
)

// Outcome is the result of processing one video frame.
type Outcome struct {
	Result counter.Result
	// Warning is set for frames that were detected but could not be counted.
	Warning string
	// Overlay is what was drawn on Annotated.
	Overlay annotate.Overlay
	// Annotated is a copy of the input frame with the overlay drawn on it.
	// It is always a valid Mat, empty when there was nothing to draw on,
	// and the caller must Close it.
	Annotated gocv.Mat
}

// Processor runs detection, counting and annotation for single frames.
type Processor struct {
	detector detector.Detector
	metrics  *metrics.Manager
}

// NewProcessor creates a Processor. A nil metrics manager selects the
// process-wide one.
func NewProcessor(d detector.Detector, m *metrics.Manager) *Processor {
	if m == nil {
		m = metrics.Default()
	}
	return &Processor{detector: d, metrics: m}
}

// ProcessFrame counts frame into sess and draws the result.
//
// A detector failure is returned as an error; the outcome still carries an
// annotated frame showing the error. An incomplete body is not an error:
// the state is left alone, Outcome.Warning says which joints were missing
// and the frame shows that message instead of measurements.
func (p *Processor) ProcessFrame(ctx context.Context, sess *session.Session, frame *gocv.Mat) (Outcome, error) {
	if frame == nil || frame.Empty() {
		return Outcome{Annotated: gocv.NewMat()}, errors.New("empty frame")
	}

	start := time.Now()
	sample, err := p.detector.Detect(frame)
	p.metrics.RecordDetectLatency(float64(time.Since(start).Microseconds()) / 1000)

	annotated := frame.Clone()
	if err != nil {
		p.metrics.RecordFrame(metrics.OutcomeError)
		overlay := annotate.Overlay{Err: err}
		annotate.Draw(&annotated, overlay)
		return Outcome{Result: counter.Result{State: sess.Snapshot()}, Overlay: overlay, Annotated: annotated},
			fmt.Errorf("detect pose: %w", err)
	}

	res, err := sess.ProcessSample(ctx, sample)
	out := Outcome{Result: res, Overlay: annotate.Overlay{Result: res, Sample: sample}, Annotated: annotated}
	if err != nil {
		if !errors.Is(err, counter.ErrIncompleteSample) {
			return out, err
		}
		out.Warning = err.Error()
		out.Overlay = annotate.Overlay{Result: res, Err: err}
		logger.DebugKV(ctx, "incomplete pose", "session", sess.ID, "warning", out.Warning)
	}

	annotate.Draw(&out.Annotated, out.Overlay)
	return out, nil
}

// Close releases the detector.
func (p *Processor) Close() error {
	return p.detector.Close()
}
