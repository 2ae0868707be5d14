// Package config defines the fitlock configuration and its defaults.
package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ayusman/fitlock/internal/counter"
	"github.com/ayusman/fitlock/internal/logger"
	"github.com/ayusman/fitlock/internal/pose"
)

// Config is the complete process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level" yaml:"log_level"`

	// LogFormat is console or json.
	LogFormat string `koanf:"log_format" yaml:"log_format"`

	// Addr is the HTTP listen address, e.g. ":5000".
	Addr string `koanf:"addr" yaml:"addr"`

	// StaticDir, when set, is served at / instead of the JSON index.
	StaticDir string `koanf:"static_dir" yaml:"static_dir"`

	Camera   CameraConfig   `koanf:"camera" yaml:"camera"`
	Detector DetectorConfig `koanf:"detector" yaml:"detector"`
	Counter  CounterConfig  `koanf:"counter" yaml:"counter"`
	Session  SessionConfig  `koanf:"session" yaml:"session"`
	Hooks    HooksConfig    `koanf:"hooks" yaml:"hooks"`
	Stream   StreamConfig   `koanf:"stream" yaml:"stream"`
}

// CameraConfig controls the server-side capture loop.
type CameraConfig struct {
	Enabled         bool    `koanf:"enabled" yaml:"enabled"`
	DeviceID        int     `koanf:"device_id" yaml:"device_id"`
	MotionThreshold float64 `koanf:"motion_threshold" yaml:"motion_threshold"`
}

// DetectorConfig controls the pose service.
type DetectorConfig struct {
	Side                   string        `koanf:"side" yaml:"side"`
	MinDetectionConfidence float64       `koanf:"min_detection_confidence" yaml:"min_detection_confidence"`
	MinTrackingConfidence  float64       `koanf:"min_tracking_confidence" yaml:"min_tracking_confidence"`
	MinVisibility          float64       `koanf:"min_visibility" yaml:"min_visibility"`
	ScriptPath             string        `koanf:"script_path" yaml:"script_path"`
	PythonPath             string        `koanf:"python_path" yaml:"python_path"`
	IdleTimeout            time.Duration `koanf:"idle_timeout" yaml:"idle_timeout"`
}

// CounterConfig holds the rep thresholds in degrees.
type CounterConfig struct {
	UpAngle      float64 `koanf:"up_angle" yaml:"up_angle"`
	DownAngle    float64 `koanf:"down_angle" yaml:"down_angle"`
	AlignmentMin float64 `koanf:"alignment_min" yaml:"alignment_min"`
}

// SessionConfig controls session lifetime.
type SessionConfig struct {
	DefaultGoal   int           `koanf:"default_goal" yaml:"default_goal"`
	IdleTTL       time.Duration `koanf:"idle_ttl" yaml:"idle_ttl"`
	SweepInterval time.Duration `koanf:"sweep_interval" yaml:"sweep_interval"`
}

// HooksConfig configures the goal-reached command.
type HooksConfig struct {
	GoalCommand string        `koanf:"goal_command" yaml:"goal_command"`
	Timeout     time.Duration `koanf:"timeout" yaml:"timeout"`
}

// StreamConfig controls the MJPEG feed.
type StreamConfig struct {
	FPS int `koanf:"fps" yaml:"fps"`
}

// New returns a Config populated with defaults.
func New() *Config {
	th := counter.DefaultThresholds()
	return &Config{
		LogLevel:  "info",
		LogFormat: logger.FormatConsole,
		Addr:      ":5000",
		Camera: CameraConfig{
			DeviceID:        0,
			MotionThreshold: 0.02,
		},
		Detector: DetectorConfig{
			Side:                   string(pose.SideLeft),
			MinDetectionConfidence: 0.5,
			MinTrackingConfidence:  0.5,
			IdleTimeout:            30 * time.Second,
		},
		Counter: CounterConfig{
			UpAngle:      th.Up,
			DownAngle:    th.Down,
			AlignmentMin: th.AlignmentMin,
		},
		Session: SessionConfig{
			DefaultGoal:   20,
			IdleTTL:       30 * time.Minute,
			SweepInterval: time.Minute,
		},
		Hooks: HooksConfig{
			Timeout: 10 * time.Second,
		},
		Stream: StreamConfig{
			FPS: 15,
		},
	}
}

// Thresholds converts the counter section into counter thresholds.
func (c *Config) Thresholds() counter.Thresholds {
	return counter.Thresholds{
		Up:           c.Counter.UpAngle,
		Down:         c.Counter.DownAngle,
		AlignmentMin: c.Counter.AlignmentMin,
	}
}

// Validate reports the first invalid setting, wrapped in ErrInvalidConfig.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	if _, ok := logger.ParseLogLevel(c.LogLevel); !ok {
		return fmt.Errorf("%w: unknown log_level %q", ErrInvalidConfig, c.LogLevel)
	}
	if c.LogFormat != logger.FormatConsole && c.LogFormat != logger.FormatJSON {
		return fmt.Errorf("%w: log_format must be console or json, got %q", ErrInvalidConfig, c.LogFormat)
	}
	if err := c.Thresholds().Validate(); err != nil {
		return fmt.Errorf("%w: counter: %w", ErrInvalidConfig, err)
	}
	if !pose.Side(c.Detector.Side).Valid() {
		return fmt.Errorf("%w: detector.side must be left, right or auto, got %q", ErrInvalidConfig, c.Detector.Side)
	}
	for name, v := range map[string]float64{
		"detector.min_detection_confidence": c.Detector.MinDetectionConfidence,
		"detector.min_tracking_confidence":  c.Detector.MinTrackingConfidence,
		"detector.min_visibility":           c.Detector.MinVisibility,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("%w: %s must be within [0,1], got %v", ErrInvalidConfig, name, v)
		}
	}
	if c.Camera.DeviceID < 0 {
		return fmt.Errorf("%w: camera.device_id must not be negative", ErrInvalidConfig)
	}
	if c.Session.DefaultGoal <= 0 {
		return fmt.Errorf("%w: session.default_goal must be positive", ErrInvalidConfig)
	}
	if c.Session.SweepInterval <= 0 {
		return fmt.Errorf("%w: session.sweep_interval must be positive", ErrInvalidConfig)
	}
	if c.Stream.FPS <= 0 {
		return fmt.Errorf("%w: stream.fps must be positive", ErrInvalidConfig)
	}
	return nil
}

// Dump renders cfg as YAML.
func Dump(cfg *Config) ([]byte, error) {
	out, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return out, nil
}
