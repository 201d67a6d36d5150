package ops

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/DoctorReid/ZenlessZoneZero-OneDragon-sub002/internal/operation"
)

// Wait sleeps for a fixed duration. Stop and task cancellation end it early.
type Wait struct {
	duration time.Duration
	lc       operation.Lifecycle
}

func NewWait(d time.Duration) *Wait {
	return &Wait{duration: d}
}

func (w *Wait) Name() string { return OpWait }
func (w *Wait) Async() bool  { return false }
func (w *Wait) Stop()        { w.lc.Stop() }

func (w *Wait) Duration() time.Duration { return w.duration }

func (w *Wait) Execute(ctx context.Context) error {
	runCtx, end := w.lc.Begin(ctx)
	defer end()

	if w.duration <= 0 {
		return nil
	}
	timer := time.NewTimer(w.duration)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-runCtx.Done():
		return runCtx.Err()
	}
}

// Log writes its message at info level.
type Log struct {
	message string
	logger  *slog.Logger
}

func NewLog(message string, logger *slog.Logger) *Log {
	return &Log{message: message, logger: logger}
}

func (l *Log) Name() string { return OpLog }
func (l *Log) Async() bool  { return false }
func (l *Log) Stop()        {}

func (l *Log) Execute(context.Context) error {
	l.logger.Info(l.message, "op", OpLog)
	return nil
}

// SetState records a state through the sink at the current time.
type SetState struct {
	sink     StateSink
	state    string
	value    float64
	hasValue bool
	now      func() time.Time
}

func NewSetState(sink StateSink, name string, now func() time.Time) *SetState {
	return &SetState{sink: sink, state: name, now: now}
}

// WithValue makes the op record v along with the timestamp.
func (s *SetState) WithValue(v float64) *SetState {
	s.value = v
	s.hasValue = true
	return s
}

func (s *SetState) Name() string { return OpSetState }
func (s *SetState) Async() bool  { return false }
func (s *SetState) Stop()        {}

func (s *SetState) Execute(context.Context) error {
	t := s.now()
	var accepted bool
	if s.hasValue {
		accepted = s.sink.RecordValue(s.state, t, s.value)
	} else {
		accepted = s.sink.Record(s.state, t)
	}
	if !accepted {
		return fmt.Errorf("set %s: update at %s is older than the latest record", s.state, t.Format(time.RFC3339Nano))
	}
	return nil
}

// ClearState forgets a state through the sink.
type ClearState struct {
	sink  StateSink
	state string
}

func NewClearState(sink StateSink, name string) *ClearState {
	return &ClearState{sink: sink, state: name}
}

func (c *ClearState) Name() string { return OpClearState }
func (c *ClearState) Async() bool  { return false }
func (c *ClearState) Stop()        {}

func (c *ClearState) Execute(context.Context) error {
	c.sink.Clear(c.state)
	return nil
}

// Placeholder stands in for an operation whose implementation is not
// available. It logs and succeeds.
type Placeholder struct {
	name   string
	logger *slog.Logger
}

func NewPlaceholder(name string, logger *slog.Logger) *Placeholder {
	return &Placeholder{name: name, logger: logger}
}

func (p *Placeholder) Name() string { return p.name }
func (p *Placeholder) Async() bool  { return false }
func (p *Placeholder) Stop()        {}

func (p *Placeholder) Execute(context.Context) error {
	p.logger.Debug("placeholder operation", "op", p.name)
	return nil
}
