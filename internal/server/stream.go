package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/ayusman/fitlock/internal/capture"
	"github.com/ayusman/fitlock/internal/logger"
	"github.com/ayusman/fitlock/internal/metrics"
)

// StreamHandler serves the live loop's annotated frames as MJPEG.
type StreamHandler struct {
	source  FrameSource
	fps     int
	metrics *metrics.Manager
}

// NewStreamHandler creates a StreamHandler. A nil source answers 503.
func NewStreamHandler(source FrameSource, fps int, m *metrics.Manager) *StreamHandler {
	if fps <= 0 {
		fps = capture.DefaultFPS
	}
	return &StreamHandler{source: source, fps: fps, metrics: m}
}

// ServeHTTP streams MJPEG frames to connected clients.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.source == nil {
		http.Error(w, "Live camera is disabled", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	h.metrics.AddStreamClients("mjpeg", 1)
	defer h.metrics.AddStreamClients("mjpeg", -1)

	flusher, _ := w.(http.Flusher)
	ticker := time.NewTicker(time.Second / time.Duration(h.fps))
	defer ticker.Stop()

	var last uint64
	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}

		jpeg, seq := h.source.Latest()
		if seq == last || len(jpeg) == 0 {
			continue
		}
		last = seq

		if _, err := fmt.Fprintf(w, "--frame\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", len(jpeg)); err != nil {
			return
		}
		if _, err := w.Write(jpeg); err != nil {
			return
		}
		if _, err := fmt.Fprint(w, "\r\n"); err != nil {
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
		logger.Logger().Debugw("mjpeg frame sent", "seq", seq, "bytes", len(jpeg))
	}
}
