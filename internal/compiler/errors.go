package compiler

import (
	"errors"
	"fmt"

	"github.com/DoctorReid/ZenlessZoneZero-OneDragon-sub002/internal/scene"
)

// ErrTemplateNotFound is returned by template getters for unknown names.
var ErrTemplateNotFound = errors.New("template not found")

func configError(code scene.ErrorCode, path, template, format string, args ...any) *scene.ConfigError {
	return &scene.ConfigError{
		Code:     code,
		Path:     path,
		Template: template,
		Message:  fmt.Sprintf(format, args...),
	}
}

// annotate fills in the template context of a config error raised while
// expanding a template, or wraps a foreign error under code.
func annotate(err error, code scene.ErrorCode, path, template string) error {
	var ce *scene.ConfigError
	if errors.As(err, &ce) {
		if ce.Template == "" {
			ce.Template = template
		}
		return ce
	}
	return configError(code, path, template, "%v", err)
}
