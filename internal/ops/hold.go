package ops

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/DoctorReid/ZenlessZoneZero-OneDragon-sub002/internal/operation"
)

// Hold presses a key and keeps it pressed after Execute returns. Each
// Execute holds the key for its own duration, until the op is stopped or
// until the owning task is stopped. Overlapping runs share one press: the
// key goes down with the first run and comes up once the last run ends.
type Hold struct {
	input    Input
	key      string
	duration time.Duration
	logger   *slog.Logger
	lc       operation.Lifecycle

	mu      sync.Mutex
	holders int
}

func NewHold(input Input, key string, d time.Duration, logger *slog.Logger) *Hold {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hold{input: input, key: key, duration: d, logger: logger}
}

func (h *Hold) Name() string { return OpHold }
func (h *Hold) Async() bool  { return true }
func (h *Hold) Stop()        { h.lc.Stop() }

// Held reports whether the key is currently pressed by this op.
func (h *Hold) Held() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.holders > 0
}

func (h *Hold) Execute(ctx context.Context) error {
	runCtx, end := h.lc.Begin(ctx)

	h.mu.Lock()
	if h.holders == 0 {
		if err := h.input.Press(h.key); err != nil {
			h.mu.Unlock()
			end()
			return err
		}
	}
	h.holders++
	h.mu.Unlock()

	go h.releaseLater(runCtx, end)
	return nil
}

func (h *Hold) releaseLater(ctx context.Context, end func()) {
	defer end()

	timer := time.NewTimer(h.duration)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.holders--
	if h.holders > 0 {
		return
	}
	if err := h.input.Release(h.key); err != nil {
		h.logger.Error("release failed", "op", OpHold, "key", h.key, "error", err)
	}
}

// LogInput is an Input that only logs. Used when simulating configs.
type LogInput struct {
	Logger *slog.Logger
}

func (in LogInput) Press(key string) error {
	in.logger().Info("press", "key", key)
	return nil
}

func (in LogInput) Release(key string) error {
	in.logger().Info("release", "key", key)
	return nil
}

func (in LogInput) logger() *slog.Logger {
	if in.Logger == nil {
		return slog.Default()
	}
	return in.Logger
}
