package server

import (
	"bufio"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ayusman/fitlock/internal/metrics"
)

type fakeSource struct {
	mu   sync.Mutex
	jpeg []byte
	seq  uint64
}

func (f *fakeSource) Latest() ([]byte, uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.jpeg, f.seq
}

func (f *fakeSource) set(b []byte) {
	f.mu.Lock()
	f.jpeg = b
	f.seq++
	f.mu.Unlock()
}

func testMetrics() *metrics.Manager {
	return metrics.NewManager(metrics.WithPrometheusRegistry(prometheus.NewRegistry()))
}

func TestStreamHandler(t *testing.T) {
	t.Run("only allows GET method", func(t *testing.T) {
		h := NewStreamHandler(&fakeSource{}, 30, testMetrics())
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/video-feed", nil))
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected status %d, got %d", http.StatusMethodNotAllowed, rec.Code)
		}
	})

	t.Run("writes multipart jpeg parts", func(t *testing.T) {
		src := &fakeSource{}
		src.set([]byte("\xff\xd8first\xff\xd9"))

		ts := httptest.NewServer(NewStreamHandler(src, 100, testMetrics()))
		defer ts.Close()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		req, _ := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL, nil)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("GET error = %v", err)
		}
		defer resp.Body.Close()

		if ct := resp.Header.Get("Content-Type"); ct != "multipart/x-mixed-replace; boundary=frame" {
			t.Errorf("unexpected Content-Type %q", ct)
		}

		r := bufio.NewReader(resp.Body)
		readPart := func() string {
			t.Helper()
			boundary, err := r.ReadString('\n')
			if err != nil || strings.TrimSpace(boundary) != "--frame" {
				t.Fatalf("boundary = %q, err = %v", boundary, err)
			}
			hdr, err := textproto.NewReader(r).ReadMIMEHeader()
			if err != nil {
				t.Fatalf("read part header: %v", err)
			}
			if hdr.Get("Content-Type") != "image/jpeg" {
				t.Errorf("unexpected part type %q", hdr.Get("Content-Type"))
			}
			n, _ := strconv.Atoi(hdr.Get("Content-Length"))
			body := make([]byte, n+2)
			if _, err := io.ReadFull(r, body); err != nil {
				t.Fatalf("read part body: %v", err)
			}
			return string(body[:n])
		}

		if got := readPart(); got != "\xff\xd8first\xff\xd9" {
			t.Errorf("first part = %q", got)
		}

		src.set([]byte("\xff\xd8second\xff\xd9"))
		if got := readPart(); got != "\xff\xd8second\xff\xd9" {
			t.Errorf("second part = %q", got)
		}
	})
}
