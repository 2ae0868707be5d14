package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"gocv.io/x/gocv"

	"github.com/ayusman/fitlock/internal/app"
	"github.com/ayusman/fitlock/internal/counter"
	"github.com/ayusman/fitlock/internal/detector"
	"github.com/ayusman/fitlock/internal/frame"
	"github.com/ayusman/fitlock/internal/metrics"
	"github.com/ayusman/fitlock/internal/pose"
	"github.com/ayusman/fitlock/internal/session"
)

type testEnv struct {
	sessions *session.Manager
	detector *detector.MockDetector
	counter  *CounterHandler
	session  *SessionHandler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	m := metrics.NewManager(metrics.WithPrometheusRegistry(prometheus.NewRegistry()))
	sessions, err := session.New(session.Config{Thresholds: counter.DefaultThresholds()}, session.WithMetrics(m))
	if err != nil {
		t.Fatalf("session.New: %v", err)
	}
	det := detector.NewMockDetector()

	return &testEnv{
		sessions: sessions,
		detector: det,
		counter:  NewCounterHandler(sessions, app.NewProcessor(det, m), pose.SideLeft),
		session:  NewSessionHandler(sessions),
	}
}

func do(t *testing.T, h http.Handler, method, target, sessionID string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	if sessionID != "" {
		req.Header.Set(SessionHeader, sessionID)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func testFrameURL(t *testing.T) string {
	t.Helper()
	img := gocv.NewMatWithSize(60, 80, gocv.MatTypeCV8UC3)
	defer img.Close()
	url, err := frame.EncodeDataURL(img)
	if err != nil {
		t.Fatalf("EncodeDataURL: %v", err)
	}
	return url
}

func TestCounterHandler_Count(t *testing.T) {
	env := newTestEnv(t)

	rec := do(t, env.counter, http.MethodGet, "/api/count", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected Content-Type application/json, got %s", ct)
	}

	got := decode[map[string]any](t, rec)
	if got["count"] != float64(0) {
		t.Errorf("expected count 0, got %v", got["count"])
	}
	if stage, ok := got["stage"]; !ok || stage != nil {
		t.Errorf("expected stage null, got %v", stage)
	}
	if got["feedback"] != "" {
		t.Errorf("expected empty feedback, got %v", got["feedback"])
	}
}

func TestCounterHandler_MethodNotAllowed(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/api/count"},
		{http.MethodGet, "/api/reset"},
		{http.MethodGet, "/api/process-frame"},
		{http.MethodPut, "/api/samples"},
	}
	for _, tt := range tests {
		rec := do(t, env.counter, tt.method, tt.path, "", nil)
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("%s %s: expected status %d, got %d", tt.method, tt.path, http.StatusMethodNotAllowed, rec.Code)
		}
	}
}

func TestCounterHandler_UnknownSession(t *testing.T) {
	env := newTestEnv(t)

	rec := do(t, env.counter, http.MethodGet, "/api/count", "nope", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/count?session=nope", nil)
	rec = httptest.NewRecorder()
	env.counter.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("query parameter: expected status %d, got %d", http.StatusNotFound, rec.Code)
	}
}

func TestCounterHandler_ProcessFrame(t *testing.T) {
	t.Run("counts a rep and returns the annotated frame", func(t *testing.T) {
		env := newTestEnv(t)
		env.detector.SetSamples(detector.PlankUpSample(), detector.PlankDownSample())
		body := map[string]string{"frame": testFrameURL(t)}

		rec := do(t, env.counter, http.MethodPost, "/api/process-frame", "", body)
		if rec.Code != http.StatusOK {
			t.Fatalf("first frame: expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body)
		}

		rec = do(t, env.counter, http.MethodPost, "/api/process-frame", "", body)
		resp := decode[frameResponse](t, rec)

		if resp.Count != 1 || resp.Stage != counter.StageDown || resp.Feedback != counter.FeedbackPerfectRep {
			t.Errorf("unexpected state %+v", resp)
		}
		if !resp.Detected || resp.Aligned == nil || !*resp.Aligned || resp.Angle == nil {
			t.Errorf("expected detected and aligned, got %+v", resp)
		}
		if resp.SessionID != session.DefaultID {
			t.Errorf("expected default session, got %q", resp.SessionID)
		}
		if !strings.HasPrefix(resp.ProcessedFrame, "data:image/jpeg;base64,") {
			t.Errorf("unexpected processed_frame prefix %.30q", resp.ProcessedFrame)
		}
	})

	t.Run("bare base64 is accepted", func(t *testing.T) {
		env := newTestEnv(t)
		url := testFrameURL(t)
		raw := url[strings.IndexByte(url, ',')+1:]

		rec := do(t, env.counter, http.MethodPost, "/api/process-frame", "", map[string]string{"frame": raw})
		if rec.Code != http.StatusOK {
			t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
		}
	})

	tests := []struct {
		name    string
		body    any
		wantErr string
	}{
		{name: "missing frame", body: map[string]string{}, wantErr: "No frame provided"},
		{name: "empty body", body: nil, wantErr: "No frame provided"},
		{name: "not an image", body: map[string]string{"frame": "aGVsbG8gd29ybGQ="}, wantErr: "Invalid frame data"},
		{name: "not base64", body: map[string]string{"frame": "%%%"}, wantErr: "Invalid frame data"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			rec := do(t, env.counter, http.MethodPost, "/api/process-frame", "", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
			}
			if got := decode[errorResponse](t, rec).Error; got != tt.wantErr {
				t.Errorf("expected error %q, got %q", tt.wantErr, got)
			}
		})
	}

	t.Run("detector failure is a server error", func(t *testing.T) {
		env := newTestEnv(t)
		env.detector.SetError(detector.ErrScriptNotFound)

		rec := do(t, env.counter, http.MethodPost, "/api/process-frame", "", map[string]string{"frame": testFrameURL(t)})
		if rec.Code != http.StatusInternalServerError {
			t.Errorf("expected status %d, got %d", http.StatusInternalServerError, rec.Code)
		}
	})
}

func TestCounterHandler_Samples(t *testing.T) {
	t.Run("joint samples drive the counter", func(t *testing.T) {
		env := newTestEnv(t)

		do(t, env.counter, http.MethodPost, "/api/samples", "", detector.PlankUpSample())
		rec := do(t, env.counter, http.MethodPost, "/api/samples", "", detector.SaggingDownSample())

		resp := decode[frameResponse](t, rec)
		if resp.Count != 0 || resp.Feedback != counter.FeedbackStraighten {
			t.Errorf("sagging rep should not count, got %+v", resp)
		}
		if resp.ProcessedFrame != "" {
			t.Error("samples must not return a frame")
		}
	})

	t.Run("raw landmarks are mapped to joints", func(t *testing.T) {
		env := newTestEnv(t)
		landmarks := make([]detector.Landmark, detector.NumPoseLandmarks)
		for i := range landmarks {
			landmarks[i].Visibility = 1
		}

		rec := do(t, env.counter, http.MethodPost, "/api/samples", "", map[string]any{"landmarks": landmarks})
		if rec.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body)
		}
		if resp := decode[frameResponse](t, rec); !resp.Detected {
			t.Errorf("expected detection, got %+v", resp)
		}
	})

	t.Run("incomplete sample is a warning", func(t *testing.T) {
		env := newTestEnv(t)
		partial := detector.PlankUpSample()
		delete(partial.Joints, pose.Hip)

		rec := do(t, env.counter, http.MethodPost, "/api/samples", "", partial)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
		}
		if strings.Contains(rec.Body.String(), `"angle"`) || strings.Contains(rec.Body.String(), `"aligned"`) {
			t.Errorf("unmeasured frame must not report angle or alignment: %s", rec.Body)
		}
		resp := decode[frameResponse](t, rec)
		if resp.Warning == "" {
			t.Error("expected a warning")
		}
		if !resp.Detected || resp.Angle != nil || resp.Aligned != nil {
			t.Errorf("unexpected measurements %+v", resp)
		}
	})

	t.Run("invalid side", func(t *testing.T) {
		env := newTestEnv(t)
		body := map[string]any{"side": "both", "landmarks": make([]detector.Landmark, 1)}

		rec := do(t, env.counter, http.MethodPost, "/api/samples", "", body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
		}
	})
}

func TestCounterHandler_Reset(t *testing.T) {
	env := newTestEnv(t)
	do(t, env.counter, http.MethodPost, "/api/samples", "", detector.PlankUpSample())
	do(t, env.counter, http.MethodPost, "/api/samples", "", detector.PlankDownSample())

	rec := do(t, env.counter, http.MethodPost, "/api/reset", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	resp := decode[statusResponse](t, rec)
	if resp.Status != "success" || resp.Message != "Counter reset to 0" {
		t.Errorf("unexpected response %+v", resp)
	}
	if st := env.sessions.Default().Snapshot(); st != (counter.State{}) {
		t.Errorf("expected initial state after reset, got %+v", st)
	}
}
