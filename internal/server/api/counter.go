package api

import (
	"context"
	"errors"
	"net/http"

	"gocv.io/x/gocv"

	"github.com/ayusman/fitlock/internal/app"
	"github.com/ayusman/fitlock/internal/counter"
	"github.com/ayusman/fitlock/internal/detector"
	"github.com/ayusman/fitlock/internal/frame"
	"github.com/ayusman/fitlock/internal/logger"
	"github.com/ayusman/fitlock/internal/pose"
	"github.com/ayusman/fitlock/internal/session"
)

// FrameProcessor counts one video frame into a session.
type FrameProcessor interface {
	ProcessFrame(ctx context.Context, sess *session.Session, frame *gocv.Mat) (app.Outcome, error)
}

// CounterHandler serves the rep counter endpoints:
// /api/count, /api/reset, /api/process-frame and /api/samples.
type CounterHandler struct {
	sessions  *session.Manager
	processor FrameProcessor
	side      pose.Side
}

// NewCounterHandler creates a CounterHandler. side selects the body side
// used when /api/samples receives raw landmarks.
func NewCounterHandler(sessions *session.Manager, processor FrameProcessor, side pose.Side) *CounterHandler {
	if !side.Valid() {
		side = pose.SideLeft
	}
	return &CounterHandler{sessions: sessions, processor: processor, side: side}
}

// ServeHTTP routes to the endpoint named by the request path.
func (h *CounterHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var (
		method string
		serve  func(http.ResponseWriter, *http.Request, *session.Session)
	)
	switch r.URL.Path {
	case "/api/count":
		method, serve = http.MethodGet, h.count
	case "/api/reset":
		method, serve = http.MethodPost, h.reset
	case "/api/process-frame":
		method, serve = http.MethodPost, h.processFrame
	case "/api/samples":
		method, serve = http.MethodPost, h.samples
	default:
		http.NotFound(w, r)
		return
	}

	if r.Method != method {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sess, err := h.sessions.Resolve(sessionID(r))
	if err != nil {
		writeSessionError(w, err)
		return
	}
	serve(w, r, sess)
}

type countResponse struct {
	Count    int           `json:"count"`
	Stage    counter.Stage `json:"stage"`
	Feedback string        `json:"feedback"`
}

type frameRequest struct {
	Frame string `json:"frame"`
}

// sampleRequest carries either tracked joints or raw MediaPipe landmarks.
type sampleRequest struct {
	pose.JointSample
	Landmarks []detector.Landmark `json:"landmarks,omitempty"`
}

type frameResponse struct {
	SessionID      string        `json:"session_id"`
	Count          int           `json:"count"`
	Stage          counter.Stage `json:"stage"`
	Feedback       string        `json:"feedback"`
	Angle          *float64      `json:"angle,omitempty"`
	Aligned        *bool         `json:"aligned,omitempty"`
	Detected       bool          `json:"detected"`
	ProcessedFrame string        `json:"processed_frame,omitempty"`
	Warning        string        `json:"warning,omitempty"`
}

type statusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// toFrameResponse reports angle and alignment only for frames where they
// were measured; no detection or a warning leaves them out.
func toFrameResponse(id string, res counter.Result, warning string) frameResponse {
	resp := frameResponse{
		SessionID: id,
		Count:     res.State.Count,
		Stage:     res.State.Stage,
		Feedback:  res.State.Feedback,
		Detected:  res.Detected,
		Warning:   warning,
	}
	if res.Detected && warning == "" {
		resp.Angle = &res.Angle
		resp.Aligned = &res.Aligned
	}
	return resp
}

// count handles GET /api/count.
func (h *CounterHandler) count(w http.ResponseWriter, _ *http.Request, sess *session.Session) {
	st := sess.Snapshot()
	writeJSON(w, http.StatusOK, countResponse{Count: st.Count, Stage: st.Stage, Feedback: st.Feedback})
}

// reset handles POST /api/reset.
func (h *CounterHandler) reset(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	sess.Reset()
	logger.InfoKV(r.Context(), "counter reset", "session", sess.ID)
	writeJSON(w, http.StatusOK, statusResponse{Status: "success", Message: "Counter reset to 0"})
}

// processFrame handles POST /api/process-frame.
func (h *CounterHandler) processFrame(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	var req frameRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	img, err := frame.DecodeDataURL(req.Frame)
	switch {
	case errors.Is(err, frame.ErrEmptyFrame):
		writeError(w, http.StatusBadRequest, "No frame provided")
		return
	case err != nil:
		writeError(w, http.StatusBadRequest, "Invalid frame data")
		return
	}
	defer img.Close()

	out, err := h.processor.ProcessFrame(r.Context(), sess, &img)
	defer out.Annotated.Close()
	if err != nil {
		logger.WarnKV(r.Context(), "processing frame", "session", sess.ID, "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := toFrameResponse(sess.ID, out.Result, out.Warning)
	if resp.ProcessedFrame, err = frame.EncodeDataURL(out.Annotated); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// samples handles POST /api/samples for clients that run pose detection
// on-device and upload joints or landmarks instead of frames.
func (h *CounterHandler) samples(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	var req sampleRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	sample := req.JointSample
	if len(req.Landmarks) > 0 {
		side := req.Side
		if side == "" {
			side = h.side
		}
		if !side.Valid() {
			writeError(w, http.StatusBadRequest, "Invalid side")
			return
		}
		sample = detector.ToSample(req.Landmarks, side, 0)
	}

	res, err := sess.ProcessSample(r.Context(), sample)
	var warning string
	if err != nil {
		if !errors.Is(err, counter.ErrIncompleteSample) {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		warning = err.Error()
	}
	writeJSON(w, http.StatusOK, toFrameResponse(sess.ID, res, warning))
}
