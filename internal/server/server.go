// Package server provides the HTTP server for the FitLock rep counter.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ayusman/fitlock/internal/logger"
	"github.com/ayusman/fitlock/internal/metrics"
	"github.com/ayusman/fitlock/internal/pose"
	"github.com/ayusman/fitlock/internal/server/api"
	"github.com/ayusman/fitlock/internal/session"
)

const shutdownTimeout = 5 * time.Second

// FrameSource supplies the latest annotated JPEG of the live camera loop.
type FrameSource interface {
	Latest() ([]byte, uint64)
}

// Config holds the server configuration.
type Config struct {
	StaticDir string
	Sessions  *session.Manager
	Processor api.FrameProcessor
	// Side is used for raw landmarks posted to /api/samples.
	Side pose.Side
	// Live, when set, backs /api/video-feed.
	Live      FrameSource
	StreamFPS int
	// LiveInterval is how often /api/live clients are checked for changes.
	LiveInterval time.Duration
	Metrics      *metrics.Manager
}

// Server represents the HTTP server for the FitLock application.
type Server struct {
	config  Config
	mux     *http.ServeMux
	handler http.Handler
	live    *LiveHandler
	start   time.Time
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	if config.Metrics == nil {
		config.Metrics = metrics.Default()
	}
	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
	}
	s.setupRoutes()
	s.handler = CORSMiddleware(s.mux)
	return s
}

func (s *Server) handle(pattern string, h http.Handler) {
	s.mux.Handle(pattern, MetricsMiddleware(h, pattern, s.config.Metrics))
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.handle("/api/health", http.HandlerFunc(s.handleHealth))
	s.mux.Handle("/metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}))

	if s.config.Sessions != nil {
		if s.config.Processor != nil {
			counter := api.NewCounterHandler(s.config.Sessions, s.config.Processor, s.config.Side)
			for _, p := range []string{"/api/count", "/api/reset", "/api/process-frame", "/api/samples"} {
				s.handle(p, counter)
			}
		}

		sessions := api.NewSessionHandler(s.config.Sessions)
		for _, p := range []string{"/api/session/start", "/api/session/complete", "/api/session/end"} {
			s.handle(p, sessions)
		}

		s.live = NewLiveHandler(s.config.Sessions, s.config.LiveInterval, s.config.Metrics)
		s.handle("/api/live", s.live)
	}

	s.handle("/api/video-feed", NewStreamHandler(s.config.Live, s.config.StreamFPS, s.config.Metrics))

	if s.config.StaticDir != "" {
		s.mux.Handle("/", http.FileServer(http.Dir(s.config.StaticDir)))
	} else {
		s.handle("/{$}", http.HandlerFunc(s.handleIndex))
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// handleIndex describes the API at / when no web client is served.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, map[string]any{
		"status":  "running",
		"message": "FitLock API Server",
		"endpoints": map[string]string{
			"GET /api/count":             "Get current pushup count",
			"POST /api/reset":            "Reset pushup counter",
			"POST /api/process-frame":    "Process video frame",
			"POST /api/samples":          "Process on-device pose landmarks",
			"POST /api/session/start":    "Start a workout session",
			"POST /api/session/complete": "Check if session is complete",
			"POST /api/session/end":      "End a workout session",
			"GET /api/video-feed":        "MJPEG stream of the server camera",
			"GET /api/live":              "WebSocket of counter updates",
		},
	})
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	resp := map[string]any{
		"status": "ok",
		"uptime": time.Since(s.start).String(),
	}
	if s.config.Sessions != nil {
		resp["sessions"] = s.config.Sessions.Len()
	}
	writeJSON(w, resp)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// ListenAndServe serves on addr until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done, then shuts down.
// Request contexts derive from ctx, so streaming handlers end with it.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	if s.live != nil {
		go s.live.Run(ctx)
	}

	srv := &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		errCh <- srv.Shutdown(shutdownCtx)
	}()

	logger.InfoKV(ctx, "HTTP server listening", "addr", ln.Addr().String())
	if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return <-errCh
}
