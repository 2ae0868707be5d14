package hook

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ayusman/fitlock/internal/metrics"
	"github.com/ayusman/fitlock/internal/session"
)

func writeScript(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("skipping test on Windows")
	}
	path := filepath.Join(t.TempDir(), "hook.sh")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatalf("failed to write script: %v", err)
	}
	return path
}

func testMetrics() *metrics.Manager {
	return metrics.NewManager(metrics.WithPrometheusRegistry(prometheus.NewRegistry()))
}

func goalEvent() session.GoalEvent {
	return session.GoalEvent{
		SessionID:  "abc",
		Count:      20,
		Goal:       20,
		UnlockApps: []string{"instagram", "tiktok"},
		ReachedAt:  time.Date(2026, 3, 1, 7, 30, 0, 0, time.UTC),
	}
}

func TestExecutor_Disabled(t *testing.T) {
	e := NewExecutor("  ", time.Second, testMetrics())

	if e.Enabled() {
		t.Error("blank command should disable the executor")
	}
	if err := e.GoalReached(context.Background(), goalEvent()); err != nil {
		t.Errorf("GoalReached() on a disabled executor = %v, want nil", err)
	}
	if _, err := e.Run(context.Background(), Event{}); !errors.Is(err, ErrFailed) {
		t.Errorf("Run() on a disabled executor = %v, want ErrFailed", err)
	}
}

func TestExecutor_ReceivesEvent(t *testing.T) {
	script := writeScript(t, `INPUT=$(cat)
echo "{\"success\":true,\"data\":$INPUT}"
`)
	e := NewExecutor(script, 5*time.Second, testMetrics())

	ev := goalEvent()
	resp, err := e.Run(context.Background(), Event{
		Event:      EventGoalReached,
		SessionID:  ev.SessionID,
		Count:      ev.Count,
		Goal:       ev.Goal,
		UnlockApps: ev.UnlockApps,
	})
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}

	var got Event
	if err := json.Unmarshal(resp.Data, &got); err != nil {
		t.Fatalf("failed to unmarshal echoed event: %v", err)
	}
	if got.Event != EventGoalReached || got.SessionID != "abc" || got.Count != 20 {
		t.Errorf("echoed event = %+v", got)
	}
	if len(got.UnlockApps) != 2 || got.UnlockApps[1] != "tiktok" {
		t.Errorf("unlock apps = %v", got.UnlockApps)
	}
}

func TestExecutor_GoalReached(t *testing.T) {
	script := writeScript(t, `cat >/dev/null
echo '{"success":true}'
`)
	if err := NewExecutor(script, 5*time.Second, testMetrics()).GoalReached(context.Background(), goalEvent()); err != nil {
		t.Errorf("GoalReached() = %v", err)
	}

	var _ session.GoalNotifier = (*Executor)(nil)
}

func TestExecutor_CommandArguments(t *testing.T) {
	script := writeScript(t, `cat >/dev/null
echo "{\"success\":true,\"data\":\"$1\"}"
`)
	resp, err := NewExecutor(script+" unlock-all", 5*time.Second, testMetrics()).Run(context.Background(), Event{})
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	if string(resp.Data) != `"unlock-all"` {
		t.Errorf("data = %s, want the first argument", resp.Data)
	}
}

func TestExecutor_Failures(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		timeout time.Duration
		want    error
	}{
		{
			name: "reports failure",
			body: "cat >/dev/null\necho '{\"success\":false,\"error\":\"device locked\"}'\n",
			want: ErrFailed,
		},
		{
			name: "non-zero exit",
			body: "echo boom >&2\nexit 3\n",
			want: ErrFailed,
		},
		{
			name: "garbage output",
			body: "cat >/dev/null\necho not-json\n",
			want: ErrFailed,
		},
		{
			name:    "timeout",
			body:    "exec sleep 5\n",
			timeout: 100 * time.Millisecond,
			want:    ErrTimeout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			timeout := tt.timeout
			if timeout == 0 {
				timeout = 5 * time.Second
			}
			e := NewExecutor(writeScript(t, tt.body), timeout, testMetrics())

			err := e.GoalReached(context.Background(), goalEvent())
			if !errors.Is(err, tt.want) {
				t.Errorf("GoalReached() = %v, want %v", err, tt.want)
			}
		})
	}
}
