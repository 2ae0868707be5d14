package api

import (
	"net/http"

	"github.com/ayusman/fitlock/internal/logger"
	"github.com/ayusman/fitlock/internal/session"
)

// SessionHandler serves /api/session/start, /api/session/complete and
// /api/session/end.
type SessionHandler struct {
	sessions *session.Manager
}

// NewSessionHandler creates a SessionHandler.
func NewSessionHandler(sessions *session.Manager) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// ServeHTTP routes to the endpoint named by the request path.
func (h *SessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	switch r.URL.Path {
	case "/api/session/start":
		h.start(w, r)
	case "/api/session/complete":
		h.complete(w, r)
	case "/api/session/end":
		h.end(w, r)
	default:
		http.NotFound(w, r)
	}
}

type startSessionRequest struct {
	Goal       int      `json:"goal"`
	LockedApps []string `json:"locked_apps"`
	UnlockApps []string `json:"unlock_apps"`
}

type startSessionResponse struct {
	Status     string   `json:"status"`
	Message    string   `json:"message"`
	SessionID  string   `json:"session_id"`
	Goal       int      `json:"goal"`
	LockedApps []string `json:"locked_apps"`
	UnlockApps []string `json:"unlock_apps"`
}

type completeSessionRequest struct {
	Goal int `json:"goal"`
}

// start handles POST /api/session/start. The new session starts at zero; a
// caller that names no session also gets the default session reset, so
// clients that never send a session ID keep working.
func (h *SessionHandler) start(w http.ResponseWriter, r *http.Request) {
	var req startSessionRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	sess, err := h.sessions.Start(r.Context(), session.StartOptions{
		Goal:       req.Goal,
		LockedApps: req.LockedApps,
		UnlockApps: req.UnlockApps,
	})
	if err != nil {
		writeSessionError(w, err)
		return
	}
	if sessionID(r) == "" {
		h.sessions.Default().Reset()
	}

	writeJSON(w, http.StatusOK, startSessionResponse{
		Status:     "success",
		Message:    "Session started",
		SessionID:  sess.ID,
		Goal:       sess.Goal,
		LockedApps: nonNil(sess.LockedApps),
		UnlockApps: nonNil(sess.UnlockApps),
	})
}

// complete handles POST /api/session/complete.
func (h *SessionHandler) complete(w http.ResponseWriter, r *http.Request) {
	var req completeSessionRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.Goal < 0 {
		writeSessionError(w, session.ErrInvalidGoal)
		return
	}

	sess, err := h.sessions.Resolve(sessionID(r))
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.Progress(req.Goal))
}

// end handles POST /api/session/end.
func (h *SessionHandler) end(w http.ResponseWriter, r *http.Request) {
	id := sessionID(r)
	if id == "" {
		id = session.DefaultID
	}
	if err := h.sessions.End(r.Context(), id); err != nil {
		writeSessionError(w, err)
		return
	}
	logger.DebugKV(r.Context(), "session end requested", "session", id)
	writeJSON(w, http.StatusOK, statusResponse{Status: "success", Message: "Session ended"})
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
