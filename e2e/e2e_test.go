package e2e

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/fitlock/internal/app"
	"github.com/ayusman/fitlock/internal/capture"
	"github.com/ayusman/fitlock/internal/counter"
	"github.com/ayusman/fitlock/internal/detector"
	"github.com/ayusman/fitlock/internal/frame"
	"github.com/ayusman/fitlock/internal/hook"
	"github.com/ayusman/fitlock/internal/metrics"
	"github.com/ayusman/fitlock/internal/pose"
	"github.com/ayusman/fitlock/internal/server"
	"github.com/ayusman/fitlock/internal/session"
	"github.com/ayusman/fitlock/testdata"
)

type stack struct {
	sessions *session.Manager
	detector *detector.MockDetector
	proc     *app.Processor
}

func newStack(t *testing.T, opts ...session.Option) *stack {
	t.Helper()

	m := metrics.Default()
	sessions, err := session.New(session.Config{Thresholds: counter.DefaultThresholds()},
		append([]session.Option{session.WithMetrics(m)}, opts...)...)
	if err != nil {
		t.Fatalf("session.New() error = %v", err)
	}
	det := detector.NewMockDetector()
	return &stack{sessions: sessions, detector: det, proc: app.NewProcessor(det, m)}
}

// start serves the stack on a loopback port and returns its base URL.
func (s *stack) start(t *testing.T, live server.FrameSource) string {
	t.Helper()

	cfg := server.Config{
		Sessions:     s.sessions,
		Processor:    s.proc,
		Side:         pose.SideLeft,
		StreamFPS:    50,
		LiveInterval: 10 * time.Millisecond,
	}
	if live != nil {
		cfg.Live = live
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = server.New(cfg).Serve(ctx, ln)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return "http://" + ln.Addr().String()
}

func post(t *testing.T, url, sessionID string, body, out any) int {
	t.Helper()

	data, _ := json.Marshal(body)
	req, _ := http.NewRequest(http.MethodPost, url, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	if sessionID != "" {
		req.Header.Set("X-Session-ID", sessionID)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("POST %s error = %v", url, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp.StatusCode
}

func TestE2E_FrameWorkflow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	st := newStack(t)
	st.detector.SetSamples(testdata.RepScript(
		detector.PlankDownSample(),
		detector.SaggingDownSample(),
		detector.PlankDownSample(),
	)...)
	base := st.start(t, nil)

	frameURL, err := testdata.FrameDataURL()
	if err != nil {
		t.Fatalf("FrameDataURL() error = %v", err)
	}

	var last struct {
		Count          int    `json:"count"`
		Stage          string `json:"stage"`
		Feedback       string `json:"feedback"`
		ProcessedFrame string `json:"processed_frame"`
	}
	for i := range 6 {
		if code := post(t, base+"/api/process-frame", "", map[string]string{"frame": frameURL}, &last); code != http.StatusOK {
			t.Fatalf("frame %d: status = %d", i, code)
		}
	}

	if last.Count != 2 || last.Stage != "down" || last.Feedback != counter.FeedbackPerfectRep {
		t.Errorf("after six frames: %+v", last)
	}

	img, err := frame.DecodeDataURL(last.ProcessedFrame)
	if err != nil {
		t.Fatalf("processed_frame does not decode: %v", err)
	}
	defer img.Close()
	if img.Cols() != testdata.FrameWidth || img.Rows() != testdata.FrameHeight {
		t.Errorf("processed frame is %dx%d", img.Cols(), img.Rows())
	}

	t.Run("CountMatches", func(t *testing.T) {
		resp, err := http.Get(base + "/api/count")
		if err != nil {
			t.Fatalf("GET /api/count error = %v", err)
		}
		defer resp.Body.Close()

		var count struct {
			Count int `json:"count"`
		}
		json.NewDecoder(resp.Body).Decode(&count)
		if count.Count != 2 {
			t.Errorf("count = %d, want 2", count.Count)
		}
	})

	t.Run("MetricsExposed", func(t *testing.T) {
		resp, err := http.Get(base + "/metrics")
		if err != nil {
			t.Fatalf("GET /metrics error = %v", err)
		}
		defer resp.Body.Close()

		var buf bytes.Buffer
		buf.ReadFrom(resp.Body)
		for _, want := range []string{"fitlock_reps_total", "fitlock_reps_misaligned_total", `endpoint="/api/process-frame"`} {
			if !strings.Contains(buf.String(), want) {
				t.Errorf("metrics missing %q", want)
			}
		}
	})
}

func TestE2E_LiveCamera(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	st := newStack(t)
	st.detector.SetSamples(testdata.RepScript(detector.PlankDownSample())...)

	frames := testdata.MotionFrames(2)
	defer testdata.CloseAll(frames)
	cam := capture.NewMockCamera(frames, true)
	defer cam.Release()

	pipeline := app.NewPipeline(app.PipelineConfig{IdleFPS: 50, ActiveFPS: 50}, cam, st.proc, st.sessions.Default(), nil)
	if err := pipeline.Start(context.Background()); err != nil {
		t.Fatalf("pipeline.Start() error = %v", err)
	}
	defer pipeline.Stop()

	base := st.start(t, pipeline)

	t.Run("LiveSeesTheRep", func(t *testing.T) {
		conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(base, "http")+"/api/live", nil)
		if err != nil {
			t.Fatalf("Dial() error = %v", err)
		}
		defer conn.Close()

		deadline := time.Now().Add(5 * time.Second)
		for {
			_ = conn.SetReadDeadline(deadline)
			var msg server.LiveMessage
			if err := conn.ReadJSON(&msg); err != nil {
				t.Fatalf("no rep seen: %v", err)
			}
			if msg.Count == 1 {
				break
			}
		}
	})

	t.Run("VideoFeedStreams", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		req, _ := http.NewRequestWithContext(ctx, http.MethodGet, base+"/api/video-feed", nil)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("GET /api/video-feed error = %v", err)
		}
		defer resp.Body.Close()

		line, err := bufio.NewReader(resp.Body).ReadString('\n')
		if err != nil {
			t.Fatalf("read boundary: %v", err)
		}
		if strings.TrimSpace(line) != "--frame" {
			t.Errorf("first line = %q, want --frame", line)
		}
	})
}

func TestE2E_GoalHook(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}
	if runtime.GOOS == "windows" {
		t.Skip("skipping test on Windows")
	}

	dir := t.TempDir()
	out := filepath.Join(dir, "event.json")
	script := filepath.Join(dir, "unlock.sh")
	body := "#!/bin/sh\ncat > " + out + "\necho '{\"success\": true}'\n"
	if err := os.WriteFile(script, []byte(body), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}

	st := newStack(t, session.WithNotifier(hook.NewExecutor(script, 5*time.Second, nil)))
	base := st.start(t, nil)

	var started struct {
		SessionID string `json:"session_id"`
	}
	post(t, base+"/api/session/start", "", map[string]any{"goal": 1, "unlock_apps": []string{"youtube"}}, &started)

	post(t, base+"/api/samples", started.SessionID, detector.PlankUpSample(), nil)
	post(t, base+"/api/samples", started.SessionID, detector.PlankDownSample(), nil)

	var ev hook.Event
	deadline := time.Now().Add(5 * time.Second)
	for {
		data, err := os.ReadFile(out)
		if err == nil && json.Unmarshal(data, &ev) == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("goal hook did not run")
		}
		time.Sleep(20 * time.Millisecond)
	}

	if ev.Event != hook.EventGoalReached || ev.SessionID != started.SessionID || ev.Count != 1 {
		t.Errorf("unexpected event %+v", ev)
	}
	if len(ev.UnlockApps) != 1 || ev.UnlockApps[0] != "youtube" {
		t.Errorf("unlock apps = %v", ev.UnlockApps)
	}
}
