package handler

import (
	"strings"
	"sync"
	"time"

	"github.com/DoctorReid/ZenlessZoneZero-OneDragon-sub002/internal/operation"
)

// Match is the result of a successful scene evaluation.
type Match struct {
	Scene           *SceneHandler
	Operations      []operation.AtomicOp
	Trace           []operation.TraceEntry
	InterruptStates []string
}

// NewTask builds a task for the match. trigger is the state that fired the
// evaluation, empty for the main loop.
func (m *Match) NewTask(trigger string, opts ...operation.Option) *operation.Task {
	base := []operation.Option{
		operation.WithTrigger(trigger),
		operation.WithTrace(m.Trace),
		operation.WithInterruptStates(m.InterruptStates...),
	}
	if m.Scene != nil {
		base = append(base, operation.WithPriority(m.Scene.Priority))
	}
	return operation.NewTask(m.Operations, append(base, opts...)...)
}

// OpNames returns the names of the matched operations.
func (m *Match) OpNames() []string {
	names := make([]string, len(m.Operations))
	for i, op := range m.Operations {
		names[i] = op.Name()
	}
	return names
}

// SceneHandler is a compiled scene: triggers, rate limit, priority and the
// ordered handler list.
type SceneHandler struct {
	Name     string
	Triggers []string
	Interval time.Duration
	Priority operation.Priority
	Handlers []*StateHandler

	mu        sync.Mutex
	lastEval  time.Time
	evaluated bool
}

// IsMainLoop reports whether the scene has no triggers.
func (s *SceneHandler) IsMainLoop() bool {
	return len(s.Triggers) == 0
}

// HasTrigger reports whether an update of the named state fires the scene.
func (s *SceneHandler) HasTrigger(name string) bool {
	for _, t := range s.Triggers {
		if t == name {
			return true
		}
	}
	return false
}

// TriggerDisplay renders the triggers, or "main" for the main loop.
func (s *SceneHandler) TriggerDisplay() string {
	if s.IsMainLoop() {
		return operation.MainTrigger
	}
	return strings.Join(s.Triggers, ", ")
}

// Match evaluates the handlers at now without touching the rate limit.
func (s *SceneHandler) Match(now time.Time) (*Match, bool) {
	m, ok := matchFirst(s.Handlers, now, nil, nil)
	if !ok {
		return nil, false
	}
	m.Scene = s
	return m, true
}

// Ready reports whether Interval has passed since the last evaluation.
func (s *SceneHandler) Ready(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready(now)
}

func (s *SceneHandler) ready(now time.Time) bool {
	return !s.evaluated || now.Sub(s.lastEval) >= s.Interval
}

// MarkEvaluated records now as the last evaluation time.
func (s *SceneHandler) MarkEvaluated(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastEval = now
	s.evaluated = true
}

// Evaluate matches the scene if the rate limit allows it. The second result
// is false both when the scene was rate limited and when nothing matched.
func (s *SceneHandler) Evaluate(now time.Time) (*Match, bool) {
	s.mu.Lock()
	if !s.ready(now) {
		s.mu.Unlock()
		return nil, false
	}
	s.lastEval = now
	s.evaluated = true
	s.mu.Unlock()

	return s.Match(now)
}

// ResetRateLimit forgets the last evaluation.
func (s *SceneHandler) ResetRateLimit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evaluated = false
	s.lastEval = time.Time{}
}
