package detector

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/fitlock/internal/logger"
	"github.com/ayusman/fitlock/internal/pose"
)

const poseScriptName = "pose_service.py"

// ErrScriptNotFound is returned when the pose service script cannot be located.
var ErrScriptNotFound = errors.New(poseScriptName + " not found")

// MediaPipeDetector implements Detector using a Python MediaPipe Pose subprocess.
//
// Each frame is written to the service's stdin as a 4-byte big-endian length
// followed by JPEG bytes. The service answers with one JSON line:
// {"landmarks":[{"x":..,"y":..,"z":..,"visibility":..}, ...]}, with an empty
// list when no body is visible.
type MediaPipeDetector struct {
	config     Config
	scriptPath string
	cmd        *exec.Cmd
	stdin      io.WriteCloser
	stdout     *bufio.Reader
	mu         sync.Mutex
	started    bool
	lastUsed   time.Time
	idleTimer  *time.Timer
}

// NewMediaPipeDetector creates a new MediaPipe pose detector.
// The Python process is started lazily on first detection.
func NewMediaPipeDetector(config Config) (*MediaPipeDetector, error) {
	scriptPath := config.ScriptPath
	if scriptPath == "" {
		scriptPath = findPoseScript()
	}
	if scriptPath == "" {
		return nil, ErrScriptNotFound
	}
	if !config.Side.Valid() {
		return nil, fmt.Errorf("invalid side %q", config.Side)
	}

	return &MediaPipeDetector{
		config:     config,
		scriptPath: scriptPath,
	}, nil
}

// Detect analyzes a frame and returns the tracked joints.
func (d *MediaPipeDetector) Detect(frame *gocv.Mat) (pose.JointSample, error) {
	if frame == nil || frame.Empty() {
		return pose.JointSample{}, errors.New("empty frame")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.ensureStarted(); err != nil {
		return pose.JointSample{}, err
	}

	landmarks, err := d.roundTrip(frame)
	if err != nil {
		return pose.JointSample{}, err
	}

	d.lastUsed = time.Now()
	d.resetIdleTimer()

	return ToSample(landmarks, d.config.Side, d.config.MinVisibility), nil
}

// serviceReply is one JSON line written by the pose service.
type serviceReply struct {
	Landmarks []Landmark `json:"landmarks"`
	Error     string     `json:"error,omitempty"`
}

// roundTrip sends one length-prefixed JPEG and reads the reply line. Broken
// pipes kill the service so the next call starts a fresh one.
func (d *MediaPipeDetector) roundTrip(frame *gocv.Mat) ([]Landmark, error) {
	jpeg, err := gocv.IMEncode(gocv.JPEGFileExt, *frame)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	defer jpeg.Close()

	payload := jpeg.GetBytes()
	msg := make([]byte, 4+len(payload))
	binary.BigEndian.PutUint32(msg, uint32(len(payload)))
	copy(msg[4:], payload)

	if _, err := d.stdin.Write(msg); err != nil {
		d.abort()
		return nil, fmt.Errorf("send frame: %w", err)
	}

	line, err := d.stdout.ReadBytes('\n')
	if err != nil {
		d.abort()
		return nil, fmt.Errorf("read reply: %w", err)
	}

	var reply serviceReply
	if err := json.Unmarshal(line, &reply); err != nil {
		return nil, fmt.Errorf("decode reply: %w", err)
	}
	if reply.Error != "" {
		return nil, fmt.Errorf("pose service: %s", reply.Error)
	}
	return reply.Landmarks, nil
}

// Close shuts down the Python process.
func (d *MediaPipeDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.shutdown()
}

func (d *MediaPipeDetector) ensureStarted() error {
	if d.started {
		return nil
	}

	pythonPath := d.config.PythonPath
	if pythonPath == "" {
		pythonPath = findVenvPython()
	}
	if pythonPath == "" {
		pythonPath = "python3"
	}

	d.cmd = exec.Command(pythonPath, d.scriptPath)
	d.cmd.Env = append(os.Environ(),
		"FITLOCK_POSE_MIN_DETECTION_CONFIDENCE="+strconv.FormatFloat(d.config.MinDetectionConfidence, 'f', -1, 64),
		"FITLOCK_POSE_MIN_TRACKING_CONFIDENCE="+strconv.FormatFloat(d.config.MinTrackingConfidence, 'f', -1, 64),
	)

	stdin, err := d.cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("create stdin pipe: %w", err)
	}

	stdout, err := d.cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("create stdout pipe: %w", err)
	}

	d.cmd.Stderr = os.Stderr

	if err := d.cmd.Start(); err != nil {
		return fmt.Errorf("start pose service: %w", err)
	}

	d.stdin = stdin
	d.stdout = bufio.NewReader(stdout)
	d.started = true
	d.lastUsed = time.Now()

	logger.Logger().Infow("Pose service started", "script", d.scriptPath, "pid", d.cmd.Process.Pid)

	return nil
}

// abort kills a service that broke the protocol so the next frame restarts it.
func (d *MediaPipeDetector) abort() {
	if d.cmd != nil && d.cmd.Process != nil {
		_ = d.cmd.Process.Kill()
	}
	_ = d.shutdown()
}

func (d *MediaPipeDetector) shutdown() error {
	if !d.started {
		return nil
	}

	if d.idleTimer != nil {
		d.idleTimer.Stop()
		d.idleTimer = nil
	}

	if d.stdin != nil {
		d.stdin.Close()
	}

	err := d.cmd.Wait()
	d.started = false
	d.cmd = nil
	d.stdin = nil
	d.stdout = nil

	logger.Logger().Infow("Pose service stopped", "idle_since", d.lastUsed)

	return err
}

func (d *MediaPipeDetector) resetIdleTimer() {
	if d.config.IdleTimeout <= 0 {
		return
	}
	if d.idleTimer != nil {
		d.idleTimer.Stop()
	}
	d.idleTimer = time.AfterFunc(d.config.IdleTimeout, func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		d.shutdown()
	})
}

// installDirs lists where a pose script or its virtualenv may live, most
// specific first: the working directory, its parent, the binary's directory
// and ~/.fitlock.
func installDirs() []string {
	dirs := []string{".", ".."}
	if exe, err := os.Executable(); err == nil {
		dirs = append(dirs, filepath.Dir(exe))
	}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, ".fitlock"))
	}
	return dirs
}

func findPoseScript() string {
	return locate(filepath.Join("scripts", poseScriptName))
}

func findVenvPython() string {
	return locate(filepath.Join("venv", "bin", "python"))
}

// locate returns the absolute path of the first existing dir/rel.
func locate(rel string) string {
	for _, dir := range installDirs() {
		candidate := filepath.Join(dir, rel)
		if _, err := os.Stat(candidate); err != nil {
			continue
		}
		if abs, err := filepath.Abs(candidate); err == nil {
			return abs
		}
		return candidate
	}
	return ""
}
