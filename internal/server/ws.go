package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/fitlock/internal/counter"
	"github.com/ayusman/fitlock/internal/logger"
	"github.com/ayusman/fitlock/internal/metrics"
	"github.com/ayusman/fitlock/internal/server/api"
	"github.com/ayusman/fitlock/internal/session"
)

// DefaultLiveInterval is how often live clients are checked for changes.
const DefaultLiveInterval = 66 * time.Millisecond // ~15 FPS

const writeWait = time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // mobile and web clients are cross-origin
	},
}

// LiveMessage is pushed to /api/live clients whenever their session changes.
type LiveMessage struct {
	SessionID string        `json:"session_id"`
	Count     int           `json:"count"`
	Stage     counter.Stage `json:"stage"`
	Feedback  string        `json:"feedback"`
	Timestamp int64         `json:"timestamp"`
}

type liveClient struct {
	session *session.Session
	last    counter.State
	sent    bool
}

// LiveHandler broadcasts counter state via WebSocket.
type LiveHandler struct {
	sessions *session.Manager
	interval time.Duration
	metrics  *metrics.Manager
	clients  map[*websocket.Conn]*liveClient
	mu       sync.Mutex
}

// NewLiveHandler creates a LiveHandler. Run must be called to start pushing.
func NewLiveHandler(sessions *session.Manager, interval time.Duration, m *metrics.Manager) *LiveHandler {
	if interval <= 0 {
		interval = DefaultLiveInterval
	}
	return &LiveHandler{
		sessions: sessions,
		interval: interval,
		metrics:  m,
		clients:  make(map[*websocket.Conn]*liveClient),
	}
}

// ServeHTTP handles WebSocket upgrade requests. The session is chosen at
// connect time the same way as for the REST endpoints.
func (h *LiveHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := r.Header.Get(api.SessionHeader)
	if id == "" {
		id = r.URL.Query().Get("session")
	}
	sess, err := h.sessions.Resolve(id)
	if err != nil {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.WarnKV(r.Context(), "websocket upgrade error", "error", err)
		return
	}
	defer conn.Close()

	h.mu.Lock()
	h.clients[conn] = &liveClient{session: sess}
	h.mu.Unlock()
	h.metrics.AddStreamClients("live", 1)

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
		h.metrics.AddStreamClients("live", -1)
	}()

	// Keep connection alive by reading messages
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

// Run pushes changed state to every client until ctx is done.
func (h *LiveHandler) Run(ctx context.Context) {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case <-ticker.C:
			h.broadcast(ctx)
		}
	}
}

func (h *LiveHandler) broadcast(ctx context.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()

	now := time.Now().UnixMilli()
	for conn, c := range h.clients {
		st := c.session.Snapshot()
		if c.sent && st == c.last {
			continue
		}

		msg, err := json.Marshal(LiveMessage{
			SessionID: c.session.ID,
			Count:     st.Count,
			Stage:     st.Stage,
			Feedback:  st.Feedback,
			Timestamp: now,
		})
		if err != nil {
			continue
		}

		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			logger.DebugKV(ctx, "live client write failed", "session", c.session.ID, "error", err)
			conn.Close()
			delete(h.clients, conn)
			continue
		}
		c.last, c.sent = st, true
	}
}

func (h *LiveHandler) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.clients {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(writeWait))
		conn.Close()
	}
}
