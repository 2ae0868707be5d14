// Package service assembles the fitlock components into the running
// processes: the API server and the local camera window.
package service

import (
	"context"
	"fmt"

	"github.com/ayusman/fitlock/internal/app"
	"github.com/ayusman/fitlock/internal/config"
	"github.com/ayusman/fitlock/internal/hook"
	"github.com/ayusman/fitlock/internal/logger"
	"github.com/ayusman/fitlock/internal/metrics"
	"github.com/ayusman/fitlock/internal/session"
)

// Common holds the options shared by every command.
type Common struct {
	// ConfigPath is the YAML config file; empty uses $FITLOCK_CONFIG or defaults.
	ConfigPath string
	// LogLevel overrides log_level when set.
	LogLevel string
}

// loadConfig loads the configuration, applies command line overrides and
// configures the global logger.
func loadConfig(ctx context.Context, opts Common) (*config.Config, error) {
	cfg, err := config.Load(ctx, opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if opts.LogLevel != "" {
		cfg.LogLevel = opts.LogLevel
	}
	if err := logger.Configure(cfg.LogLevel, cfg.LogFormat); err != nil {
		return nil, fmt.Errorf("configure logger: %w", err)
	}
	return cfg, nil
}

// core is what both processes share: sessions with the goal hook attached,
// and a frame processor.
type core struct {
	metrics   *metrics.Manager
	sessions  *session.Manager
	processor *app.Processor
}

func newCore(ctx context.Context, cfg *config.Config) (*core, error) {
	m := metrics.Default()

	goalHook := hook.NewExecutor(cfg.Hooks.GoalCommand, cfg.Hooks.Timeout, m)
	if goalHook.Enabled() {
		logger.InfoKV(ctx, "goal hook enabled", "command", cfg.Hooks.GoalCommand)
	}

	sessions, err := session.New(session.Config{
		Thresholds:  cfg.Thresholds(),
		DefaultGoal: cfg.Session.DefaultGoal,
		IdleTTL:     cfg.Session.IdleTTL,
	}, session.WithNotifier(goalHook), session.WithMetrics(m))
	if err != nil {
		return nil, fmt.Errorf("create sessions: %w", err)
	}

	det, err := app.OpenDetector(ctx, app.DetectorConfig(cfg.Detector))
	if err != nil {
		return nil, fmt.Errorf("open detector: %w", err)
	}

	return &core{
		metrics:   m,
		sessions:  sessions,
		processor: app.NewProcessor(det, m),
	}, nil
}

func (c *core) close(ctx context.Context) {
	if err := c.processor.Close(); err != nil {
		logger.WarnKV(ctx, "closing detector", "error", err)
	}
}
