package loader

import (
	"errors"
	"fmt"
)

// Error code constants for file-level problems. Scene validation problems
// are reported as *scene.ConfigError instead.
const (
	ErrCodeGeneric       = "E001" // generic/unknown error
	ErrCodeScanError     = "E002" // directory scan error
	ErrCodeNoFiles       = "E003" // no config files found
	ErrCodeParseFailed   = "E004" // YAML or CUE syntax error
	ErrCodeNotFound      = "E005" // path not found
	ErrCodeBuildFailed   = "E006" // CUE evaluation or export failed
	ErrCodeUnsupported   = "E007" // unsupported file extension
	ErrCodeInvalidLayout = "E008" // root is not a config directory
)

// LoadError represents a problem reading a config file.
type LoadError struct {
	Code    string
	Path    string
	Message string
}

func (e *LoadError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s: %s", e.Path, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsLoadError returns true if err is or wraps a *LoadError.
func IsLoadError(err error) bool {
	var le *LoadError
	return errors.As(err, &le)
}

func loadError(code, path, format string, args ...any) *LoadError {
	return &LoadError{Code: code, Path: path, Message: fmt.Sprintf(format, args...)}
}
