package app

import (
	"context"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/fitlock/internal/annotate"
	"github.com/ayusman/fitlock/internal/capture"
	"github.com/ayusman/fitlock/internal/counter"
	"github.com/ayusman/fitlock/internal/frame"
	"github.com/ayusman/fitlock/internal/logger"
	"github.com/ayusman/fitlock/internal/metrics"
	"github.com/ayusman/fitlock/internal/session"
)

// Pipeline defaults.
const (
	IdleFPS     = 5
	ActiveFPS   = 15
	IdleTimeout = 2 * time.Second
)

// PipelineConfig tunes the live camera loop.
type PipelineConfig struct {
	IdleFPS         int
	ActiveFPS       int
	IdleTimeout     time.Duration
	MotionThreshold float64
}

// DefaultPipelineConfig returns the defaults.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		IdleFPS:         IdleFPS,
		ActiveFPS:       ActiveFPS,
		IdleTimeout:     IdleTimeout,
		MotionThreshold: 0.02,
	}
}

// Pipeline reads the camera, counts reps into one session and keeps the
// latest annotated JPEG for the video feed.
//
// It idles at IdleFPS without pose inference. Motion switches it to
// ActiveFPS with inference until nothing has moved for IdleTimeout.
type Pipeline struct {
	cfg     PipelineConfig
	camera  capture.Camera
	gate    *capture.MotionGate
	proc    *Processor
	session *session.Session
	metrics *metrics.Manager

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}

	latestMu sync.RWMutex
	latest   []byte
	seq      uint64
}

// NewPipeline creates a stopped Pipeline.
func NewPipeline(cfg PipelineConfig, cam capture.Camera, proc *Processor, sess *session.Session, m *metrics.Manager) *Pipeline {
	def := DefaultPipelineConfig()
	if cfg.IdleFPS <= 0 {
		cfg.IdleFPS = def.IdleFPS
	}
	if cfg.ActiveFPS <= 0 {
		cfg.ActiveFPS = def.ActiveFPS
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = def.IdleTimeout
	}
	if cfg.MotionThreshold <= 0 {
		cfg.MotionThreshold = def.MotionThreshold
	}
	if m == nil {
		m = metrics.Default()
	}

	return &Pipeline{
		cfg:     cfg,
		camera:  cam,
		gate:    capture.NewMotionGate(cfg.MotionThreshold, cfg.IdleTimeout),
		proc:    proc,
		session: sess,
		metrics: m,
	}
}

// Start opens the camera and starts the loop. Starting twice is a no-op.
func (p *Pipeline) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancel != nil {
		return nil
	}
	if err := p.camera.Open(); err != nil {
		return err
	}
	p.camera.SetFPS(p.cfg.IdleFPS)
	p.metrics.SetCameraFPS(p.cfg.IdleFPS)

	ctx, p.cancel = context.WithCancel(context.WithoutCancel(ctx))
	p.done = make(chan struct{})
	go p.run(ctx)

	logger.InfoKV(ctx, "live pipeline started", "idle_fps", p.cfg.IdleFPS, "active_fps", p.cfg.ActiveFPS)
	return nil
}

// Stop halts the loop and closes the camera.
func (p *Pipeline) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancel == nil {
		return
	}
	p.cancel()
	<-p.done
	p.cancel = nil

	if err := p.camera.Close(); err != nil {
		logger.Logger().Warnw("closing camera", "error", err)
	}
	p.gate.Close()
	logger.Logger().Info("live pipeline stopped")
}

// Latest returns the most recent annotated JPEG and its sequence number.
// The sequence is zero until the first frame is ready.
func (p *Pipeline) Latest() ([]byte, uint64) {
	p.latestMu.RLock()
	defer p.latestMu.RUnlock()
	return p.latest, p.seq
}

func (p *Pipeline) publish(jpeg []byte) {
	p.latestMu.Lock()
	p.latest = jpeg
	p.seq++
	p.latestMu.Unlock()
}

func (p *Pipeline) run(ctx context.Context) {
	defer close(p.done)

	active := false
	ticker := time.NewTicker(time.Second / time.Duration(p.cfg.IdleFPS))
	defer ticker.Stop()

	setRate := func(fps int) {
		p.camera.SetFPS(fps)
		p.metrics.SetCameraFPS(fps)
		ticker.Reset(time.Second / time.Duration(fps))
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		img, err := p.camera.ReadFrame()
		if err != nil {
			logger.DebugKV(ctx, "reading frame", "error", err)
			continue
		}

		moving, _ := p.gate.Observe(img)
		switch {
		case moving && !active:
			active = true
			setRate(p.cfg.ActiveFPS)
			logger.DebugKV(ctx, "switched to active mode")
		case !moving && active:
			active = false
			setRate(p.cfg.IdleFPS)
			logger.DebugKV(ctx, "switched to idle mode")
		}

		out := img.Clone()
		if active {
			res, perr := p.proc.ProcessFrame(ctx, p.session, img)
			if perr != nil {
				logger.WarnKV(ctx, "processing frame", "error", perr)
			}
			out = pickFrame(out, res.Annotated)
		} else {
			annotate.Draw(&out, annotate.Overlay{Result: counter.Result{State: p.session.Snapshot()}})
		}
		img.Close()

		jpeg, err := frame.EncodeJPEG(out)
		out.Close()
		if err != nil {
			logger.DebugKV(ctx, "encoding frame", "error", err)
			continue
		}
		p.publish(jpeg)
	}
}

// pickFrame returns annotated unless it is empty, in which case fallback is
// returned. The Mat not returned is closed.
func pickFrame(fallback, annotated gocv.Mat) gocv.Mat {
	if annotated.Empty() {
		annotated.Close()
		return fallback
	}
	fallback.Close()
	return annotated
}
