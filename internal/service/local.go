package service

import (
	"context"

	"github.com/ayusman/fitlock/internal/app"
	"github.com/ayusman/fitlock/internal/capture"
	"github.com/ayusman/fitlock/internal/logger"
)

// LocalOptions controls the local window process.
type LocalOptions struct {
	Common
	// Source is a camera index or a video file; empty uses camera.device_id.
	Source string
}

// RunLocal shows annotated camera frames in a desktop window until the user
// quits, the video ends, or ctx is done.
func RunLocal(ctx context.Context, opts *LocalOptions) error {
	ctx = logger.WithName(ctx, "fitlock-local")

	cfg, err := loadConfig(ctx, opts.Common)
	if err != nil {
		return err
	}

	c, err := newCore(ctx, cfg)
	if err != nil {
		return err
	}
	defer c.close(ctx)

	src := capture.Source(opts.Source)
	if src == "" {
		src = capture.DeviceSource(cfg.Camera.DeviceID)
	}

	sess := c.sessions.Default()
	if err := app.RunWindow(ctx, capture.NewCamera(src), c.processor, sess); err != nil {
		return err
	}

	logger.InfoKV(ctx, "workout finished", "count", sess.Snapshot().Count)
	return nil
}
