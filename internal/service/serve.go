package service

import (
	"context"
	"fmt"
	"time"

	"github.com/ayusman/fitlock/internal/app"
	"github.com/ayusman/fitlock/internal/capture"
	"github.com/ayusman/fitlock/internal/logger"
	"github.com/ayusman/fitlock/internal/pose"
	"github.com/ayusman/fitlock/internal/server"
	"github.com/ayusman/fitlock/internal/tray"
)

const trayRefresh = 500 * time.Millisecond

// ServeOptions controls the API server process.
type ServeOptions struct {
	Common
	// Addr overrides the configured listen address.
	Addr string
	// Camera forces the server-side camera loop on.
	Camera bool
	// Tray shows the system tray menu.
	Tray bool
}

// Serve runs the API server until ctx is done.
func Serve(ctx context.Context, opts *ServeOptions) error {
	ctx = logger.WithName(ctx, "fitlock-server")

	cfg, err := loadConfig(ctx, opts.Common)
	if err != nil {
		return err
	}
	if opts.Addr != "" {
		cfg.Addr = opts.Addr
	}
	if opts.Camera {
		cfg.Camera.Enabled = true
	}

	c, err := newCore(ctx, cfg)
	if err != nil {
		return err
	}
	defer c.close(ctx)

	srvCfg := server.Config{
		StaticDir: cfg.StaticDir,
		Sessions:  c.sessions,
		Processor: c.processor,
		Side:      pose.Side(cfg.Detector.Side),
		StreamFPS: cfg.Stream.FPS,
		Metrics:   c.metrics,
	}

	if cfg.Camera.Enabled {
		cam := capture.NewCamera(capture.DeviceSource(cfg.Camera.DeviceID))
		pipeline := app.NewPipeline(app.PipelineConfig{
			ActiveFPS:       cfg.Stream.FPS,
			MotionThreshold: cfg.Camera.MotionThreshold,
		}, cam, c.processor, c.sessions.Default(), c.metrics)
		if err := pipeline.Start(ctx); err != nil {
			return fmt.Errorf("start camera: %w", err)
		}
		defer pipeline.Stop()
		srvCfg.Live = pipeline
	}

	if cfg.Session.IdleTTL > 0 {
		go c.sessions.RunSweeper(ctx, cfg.Session.SweepInterval)
	}

	srv := server.New(srvCfg)
	if !opts.Tray {
		return srv.ListenAndServe(ctx, cfg.Addr)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	t := tray.New()
	t.OnReset(c.sessions.Default().Reset)
	t.OnQuit(cancel)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe(ctx, cfg.Addr)
		t.Quit()
	}()
	go func() {
		ticker := time.NewTicker(trayRefresh)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				t.SetState(c.sessions.Default().Snapshot())
			}
		}
	}()

	t.Run()
	cancel()
	return <-errCh
}
