package hook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/ayusman/fitlock/internal/logger"
	"github.com/ayusman/fitlock/internal/metrics"
	"github.com/ayusman/fitlock/internal/session"
)

var (
	// ErrTimeout is returned when the hook outlives its timeout.
	ErrTimeout = errors.New("hook timed out")
	// ErrFailed is returned when the hook exits non-zero or reports failure.
	ErrFailed = errors.New("hook failed")
)

// Executor runs the goal hook command.
type Executor struct {
	argv    []string
	timeout time.Duration
	metrics *metrics.Manager
}

// NewExecutor parses command into program and arguments. An empty command
// yields an Executor whose GoalReached does nothing.
func NewExecutor(command string, timeout time.Duration, m *metrics.Manager) *Executor {
	if m == nil {
		m = metrics.Default()
	}
	return &Executor{
		argv:    strings.Fields(command),
		timeout: timeout,
		metrics: m,
	}
}

// Enabled reports whether a command is configured.
func (e *Executor) Enabled() bool {
	return len(e.argv) > 0
}

// GoalReached implements session.GoalNotifier.
func (e *Executor) GoalReached(ctx context.Context, ev session.GoalEvent) error {
	if !e.Enabled() {
		return nil
	}

	resp, err := e.Run(ctx, Event{
		Event:      EventGoalReached,
		SessionID:  ev.SessionID,
		Count:      ev.Count,
		Goal:       ev.Goal,
		UnlockApps: ev.UnlockApps,
		ReachedAt:  ev.ReachedAt.UTC().Format(time.RFC3339),
	})
	if err != nil {
		e.metrics.RecordHookRun("error")
		return err
	}

	e.metrics.RecordHookRun("ok")
	logger.InfoKV(ctx, "goal hook ran", "session", ev.SessionID, "unlock_apps", ev.UnlockApps, "data", string(resp.Data))
	return nil
}

// Run sends ev to the command on stdin and parses its stdout.
func (e *Executor) Run(ctx context.Context, ev Event) (*Response, error) {
	if !e.Enabled() {
		return nil, fmt.Errorf("%w: no command configured", ErrFailed)
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}

	cmd := exec.CommandContext(ctx, e.argv[0], e.argv[1:]...)
	cmd.Stdin = bytes.NewReader(payload)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = time.Second

	err = cmd.Run()
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return nil, fmt.Errorf("%w after %s", ErrTimeout, e.timeout)
	}
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%w: %w: %s", ErrFailed, err, msg)
		}
		return nil, fmt.Errorf("%w: %w", ErrFailed, err)
	}

	var resp Response
	if err := json.Unmarshal(stdout.Bytes(), &resp); err != nil {
		return nil, fmt.Errorf("%w: parse response: %w, stdout: %s", ErrFailed, err, stdout.String())
	}
	if !resp.Success {
		return &resp, fmt.Errorf("%w: %s", ErrFailed, resp.Error)
	}
	return &resp, nil
}
