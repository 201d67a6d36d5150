package ops

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/DoctorReid/ZenlessZoneZero-OneDragon-sub002/internal/scene"
	"github.com/DoctorReid/ZenlessZoneZero-OneDragon-sub002/internal/state"
)

// Builtin op names.
const (
	OpWait       = "wait"
	OpLog        = "log"
	OpSetState   = "set_state"
	OpClearState = "clear_state"
	OpHold       = "hold"
)

// Builtin parameter names.
const (
	ParamSeconds = "seconds"
	ParamMessage = "message"
	ParamState   = "state"
	ParamValue   = "value"
	ParamKey     = "key"
)

// ParamError reports an invalid operation parameter as a config error.
func ParamError(ref *scene.OpRef, format string, args ...any) error {
	return &scene.ConfigError{
		Code:    scene.ErrCodeUnknownOperation,
		Path:    ref.Path,
		Message: fmt.Sprintf("%s: %s", ref.Name, fmt.Sprintf(format, args...)),
	}
}

func durationParam(ref *scene.OpRef, key string, required bool) (time.Duration, error) {
	raw, present := ref.Params[key]
	if !present || raw == nil {
		if required {
			return 0, ParamError(ref, "%s is required", key)
		}
		return 0, nil
	}
	secs, ok := scene.ParamFloat(ref.Params, key)
	if !ok || secs < 0 || math.IsNaN(secs) || secs > scene.MaxSeconds {
		return 0, ParamError(ref, "%s must be a non-negative number, got %v", key, raw)
	}
	return time.Duration(secs * float64(time.Second)), nil
}

func stringParam(ref *scene.OpRef, key string, required bool) (string, error) {
	raw, present := ref.Params[key]
	if !present || raw == nil {
		if required {
			return "", ParamError(ref, "%s is required", key)
		}
		return "", nil
	}
	s, ok := raw.(string)
	if !ok {
		return "", ParamError(ref, "%s must be a string", key)
	}
	if key == ParamState {
		s = state.CanonicalName(s)
	} else {
		s = strings.TrimSpace(s)
	}
	if required && s == "" {
		return "", ParamError(ref, "%s must not be empty", key)
	}
	return s, nil
}
