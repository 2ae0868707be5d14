package session

import (
	"context"
	"sync"
	"time"

	"github.com/ayusman/fitlock/internal/counter"
	"github.com/ayusman/fitlock/internal/logger"
	"github.com/ayusman/fitlock/internal/metrics"
	"github.com/ayusman/fitlock/internal/pose"
)

// GoalEvent describes a session reaching its goal.
type GoalEvent struct {
	SessionID  string    `json:"session_id"`
	Count      int       `json:"count"`
	Goal       int       `json:"goal"`
	UnlockApps []string  `json:"unlock_apps"`
	ReachedAt  time.Time `json:"reached_at"`
}

// GoalNotifier is told when a session first reaches its goal. It fires at
// most once between resets and runs off the frame path.
type GoalNotifier interface {
	GoalReached(ctx context.Context, ev GoalEvent) error
}

// Progress reports how far a session is from a goal.
type Progress struct {
	Complete  bool `json:"complete"`
	Count     int  `json:"count"`
	Goal      int  `json:"goal"`
	Remaining int  `json:"remaining"`
}

// Session is one workout: a rep counter plus the goal and the apps it unlocks.
type Session struct {
	ID         string
	Goal       int
	LockedApps []string
	UnlockApps []string
	CreatedAt  time.Time

	counter  *counter.Counter
	notifier GoalNotifier
	metrics  *metrics.Manager
	now      func() time.Time

	mu         sync.Mutex
	lastActive time.Time
	goalFired  bool
}

// ProcessSample advances the counter with one frame's joints.
// An incomplete sample returns the unchanged result along with an error
// wrapping counter.ErrIncompleteSample.
func (s *Session) ProcessSample(ctx context.Context, sample pose.JointSample) (counter.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastActive = s.now()
	before := s.counter.Snapshot()

	res, err := s.counter.ProcessSample(sample)
	switch {
	case err != nil:
		s.metrics.RecordFrame(metrics.OutcomeIncomplete)
		return res, err
	case !res.Detected:
		s.metrics.RecordFrame(metrics.OutcomeNoPose)
		return res, nil
	}
	s.metrics.RecordFrame(metrics.OutcomeDetected)

	after := res.State
	if after.Count > before.Count {
		s.metrics.RecordRep()
		logger.DebugKV(ctx, "rep counted", "session", s.ID, "count", after.Count, "angle", res.Angle)
	} else if before.Stage == counter.StageUp && after.Stage == counter.StageDown {
		s.metrics.RecordMisalignedRep()
		logger.DebugKV(ctx, "rep rejected, body not straight", "session", s.ID, "angle", res.Angle)
	}

	if s.Goal > 0 && after.Count >= s.Goal && !s.goalFired {
		s.goalFired = true
		s.fireGoal(ctx, after.Count)
	}
	return res, nil
}

func (s *Session) fireGoal(ctx context.Context, count int) {
	s.metrics.RecordGoalReached()
	logger.InfoKV(ctx, "goal reached", "session", s.ID, "count", count, "goal", s.Goal)

	if s.notifier == nil {
		return
	}
	ev := GoalEvent{
		SessionID:  s.ID,
		Count:      count,
		Goal:       s.Goal,
		UnlockApps: append([]string(nil), s.UnlockApps...),
		ReachedAt:  s.now(),
	}
	notifyCtx := context.WithoutCancel(ctx)
	go func() {
		if err := s.notifier.GoalReached(notifyCtx, ev); err != nil {
			logger.ErrorKV(notifyCtx, "goal notifier failed", "session", ev.SessionID, "error", err)
		}
	}()
}

// Reset zeroes the counter and re-arms the goal notification.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.counter.Reset()
	s.goalFired = false
	s.lastActive = s.now()
}

// Snapshot returns the current counter state.
func (s *Session) Snapshot() counter.State {
	return s.counter.Snapshot()
}

// Progress compares the count against goal, or against the session goal
// when goal is not positive.
func (s *Session) Progress(goal int) Progress {
	if goal <= 0 {
		goal = s.Goal
	}
	count := s.counter.Snapshot().Count
	return Progress{
		Complete:  count >= goal,
		Count:     count,
		Goal:      goal,
		Remaining: max(0, goal-count),
	}
}

// LastActive returns when the session last processed a frame or was reset.
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}
