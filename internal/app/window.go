package app

import (
	"context"
	"errors"

	"gocv.io/x/gocv"

	"github.com/ayusman/fitlock/internal/capture"
	"github.com/ayusman/fitlock/internal/logger"
	"github.com/ayusman/fitlock/internal/session"
)

// WindowTitle is the title of the local preview window.
const WindowTitle = "FitLock Push-up Counter"

// RunWindow shows annotated camera frames in a desktop window until ctx is
// done, the user presses q, or a recorded clip ends. Pressing r resets sess.
func RunWindow(ctx context.Context, cam capture.Camera, proc *Processor, sess *session.Session) error {
	if err := cam.Open(); err != nil {
		return err
	}
	defer cam.Close()

	window := gocv.NewWindow(WindowTitle)
	defer window.Close()

	logger.InfoKV(ctx, "local window started", "keys", "r=reset q=quit")

	for ctx.Err() == nil {
		img, err := cam.ReadFrame()
		if errors.Is(err, capture.ErrNoFrame) {
			logger.InfoKV(ctx, "video source ended", "count", sess.Snapshot().Count)
			return nil
		}
		if err != nil {
			return err
		}

		out, err := proc.ProcessFrame(ctx, sess, img)
		img.Close()
		if err != nil {
			logger.WarnKV(ctx, "processing frame", "error", err)
		}
		if !out.Annotated.Empty() {
			window.IMShow(out.Annotated)
		}
		out.Annotated.Close()

		switch window.WaitKey(1) {
		case 'q', 'Q':
			return nil
		case 'r', 'R':
			sess.Reset()
			logger.InfoKV(ctx, "counter reset")
		}
	}
	return nil
}
