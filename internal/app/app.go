// Package app wires capture, pose detection, rep counting and annotation
// into the frame loops used by the server and the local window.
package app

import (
	"context"
	"errors"

	"github.com/ayusman/fitlock/internal/config"
	"github.com/ayusman/fitlock/internal/detector"
	"github.com/ayusman/fitlock/internal/logger"
	"github.com/ayusman/fitlock/internal/pose"
)

// DetectorConfig converts the detector section of the config.
func DetectorConfig(c config.DetectorConfig) detector.Config {
	return detector.Config{
		Side:                   pose.Side(c.Side),
		MinDetectionConfidence: c.MinDetectionConfidence,
		MinTrackingConfidence:  c.MinTrackingConfidence,
		MinVisibility:          c.MinVisibility,
		ScriptPath:             c.ScriptPath,
		PythonPath:             c.PythonPath,
		IdleTimeout:            c.IdleTimeout,
	}
}

// OpenDetector returns the MediaPipe detector, or a mock that never detects
// anyone when the pose service script is not installed.
func OpenDetector(ctx context.Context, cfg detector.Config) (detector.Detector, error) {
	mp, err := detector.NewMediaPipeDetector(cfg)
	switch {
	case err == nil:
		logger.InfoKV(ctx, "using MediaPipe pose detection", "side", cfg.Side)
		return mp, nil
	case errors.Is(err, detector.ErrScriptNotFound):
		logger.WarnKV(ctx, "MediaPipe not available, using mock detector", "error", err)
		return detector.NewMockDetector(), nil
	default:
		return nil, err
	}
}
