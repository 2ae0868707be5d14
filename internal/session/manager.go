// Package session keeps rep-counting sessions keyed by ID.
//
// Every client that does not name a session shares the default session,
// which matches a single-user deployment. Named sessions are created with
// Start and are swept after sitting idle.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/fitlock/internal/counter"
	"github.com/ayusman/fitlock/internal/logger"
	"github.com/ayusman/fitlock/internal/metrics"
)

// DefaultID is the ID of the default session.
const DefaultID = "default"

// DefaultGoal is used when neither the config nor the caller sets a goal.
const DefaultGoal = 20

// Config configures a Manager.
type Config struct {
	Thresholds  counter.Thresholds
	DefaultGoal int
	// IdleTTL ends named sessions idle for longer. Zero disables sweeping.
	IdleTTL time.Duration
}

// StartOptions describes a new session.
type StartOptions struct {
	Goal       int
	LockedApps []string
	UnlockApps []string
}

// Option configures a Manager.
type Option func(*Manager)

// WithNotifier sets the goal notifier used by every session.
func WithNotifier(n GoalNotifier) Option {
	return func(m *Manager) {
		m.notifier = n
	}
}

// WithMetrics records to mgr instead of the process-wide metrics.
func WithMetrics(mgr *metrics.Manager) Option {
	return func(m *Manager) {
		if mgr != nil {
			m.metrics = mgr
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// Manager owns every live session.
type Manager struct {
	cfg      Config
	notifier GoalNotifier
	metrics  *metrics.Manager
	now      func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
	def      *Session
}

// New creates a Manager holding only the default session.
func New(cfg Config, opts ...Option) (*Manager, error) {
	if err := cfg.Thresholds.Validate(); err != nil {
		return nil, err
	}
	if cfg.DefaultGoal < 0 {
		return nil, ErrInvalidGoal
	}
	if cfg.DefaultGoal == 0 {
		cfg.DefaultGoal = DefaultGoal
	}

	m := &Manager{
		cfg:      cfg,
		metrics:  metrics.Default(),
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
	for _, opt := range opts {
		opt(m)
	}

	def, err := m.newSession(DefaultID, StartOptions{Goal: cfg.DefaultGoal})
	if err != nil {
		return nil, err
	}
	m.def = def
	m.sessions[DefaultID] = def
	m.metrics.SetActiveSessions(len(m.sessions))
	return m, nil
}

func (m *Manager) newSession(id string, opts StartOptions) (*Session, error) {
	c, err := counter.New(m.cfg.Thresholds)
	if err != nil {
		return nil, err
	}
	now := m.now()
	return &Session{
		ID:         id,
		Goal:       opts.Goal,
		LockedApps: append([]string{}, opts.LockedApps...),
		UnlockApps: append([]string{}, opts.UnlockApps...),
		CreatedAt:  now,
		counter:    c,
		notifier:   m.notifier,
		metrics:    m.metrics,
		now:        m.now,
		lastActive: now,
	}, nil
}

// Start creates a session with a fresh counter.
func (m *Manager) Start(ctx context.Context, opts StartOptions) (*Session, error) {
	if opts.Goal < 0 {
		return nil, ErrInvalidGoal
	}
	if opts.Goal == 0 {
		opts.Goal = m.cfg.DefaultGoal
	}

	s, err := m.newSession(uuid.NewString(), opts)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.sessions[s.ID] = s
	n := len(m.sessions)
	m.mu.Unlock()

	m.metrics.SetActiveSessions(n)
	logger.InfoKV(ctx, "session started", "session", s.ID, "goal", s.Goal, "unlock_apps", s.UnlockApps)
	return s, nil
}

// Get returns the session with id.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return s, nil
}

// Resolve returns the session with id, or the default session for an empty id.
func (m *Manager) Resolve(id string) (*Session, error) {
	if id == "" {
		return m.def, nil
	}
	return m.Get(id)
}

// Default returns the default session.
func (m *Manager) Default() *Session {
	return m.def
}

// End removes a named session.
func (m *Manager) End(ctx context.Context, id string) error {
	if id == DefaultID {
		return ErrDefaultSession
	}

	m.mu.Lock()
	_, ok := m.sessions[id]
	delete(m.sessions, id)
	n := len(m.sessions)
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	m.metrics.SetActiveSessions(n)
	logger.InfoKV(ctx, "session ended", "session", id)
	return nil
}

// Len returns the number of live sessions, the default one included.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sweep ends named sessions idle for longer than IdleTTL. The default
// session is left alone. It returns how many sessions were ended.
func (m *Manager) Sweep(ctx context.Context, now time.Time) int {
	if m.cfg.IdleTTL <= 0 {
		return 0
	}

	m.mu.Lock()
	var ended []string
	for id, s := range m.sessions {
		if id == DefaultID || now.Sub(s.LastActive()) <= m.cfg.IdleTTL {
			continue
		}
		delete(m.sessions, id)
		ended = append(ended, id)
	}
	n := len(m.sessions)
	m.mu.Unlock()

	if len(ended) > 0 {
		m.metrics.SetActiveSessions(n)
		logger.InfoKV(ctx, "idle sessions swept", "count", len(ended), "sessions", ended)
	}
	return len(ended)
}

// RunSweeper calls Sweep every interval until ctx is done.
func (m *Manager) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep(ctx, m.now())
		}
	}
}
