package loader

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"
)

// Supported config file extensions.
const (
	ExtYML  = ".yml"
	ExtYAML = ".yaml"
	ExtCUE  = ".cue"
)

// Supported reports whether path has a supported extension.
func Supported(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ExtYML, ExtYAML, ExtCUE:
		return true
	}
	return false
}

// ReadFile reads a YAML or CUE file into a generic mapping.
//
// CUE files are evaluated and must be concrete; their value is exported to
// JSON and decoded with json.Number for numbers.
func ReadFile(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, loadError(ErrCodeNotFound, path, "file not found")
		}
		return nil, loadError(ErrCodeGeneric, path, "read: %v", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ExtYML, ExtYAML:
		return decodeYAML(path, data)
	case ExtCUE:
		return decodeCUE(path, data)
	default:
		return nil, loadError(ErrCodeUnsupported, path, "unsupported extension %q", filepath.Ext(path))
	}
}

func decodeYAML(path string, data []byte) (map[string]any, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, loadError(ErrCodeParseFailed, path, "parse YAML: %v", err)
	}
	if raw == nil {
		raw = map[string]any{}
	}
	return raw, nil
}

func decodeCUE(path string, data []byte) (map[string]any, error) {
	ctx := cuecontext.New()
	value := ctx.CompileBytes(data, cue.Filename(path))
	if err := value.Err(); err != nil {
		return nil, loadError(ErrCodeParseFailed, path, "compile CUE: %v", err)
	}
	if err := value.Validate(cue.Concrete(true)); err != nil {
		return nil, loadError(ErrCodeBuildFailed, path, "CUE value is not concrete: %v", err)
	}

	js, err := value.MarshalJSON()
	if err != nil {
		return nil, loadError(ErrCodeBuildFailed, path, "export CUE: %v", err)
	}

	dec := json.NewDecoder(bytes.NewReader(js))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, loadError(ErrCodeBuildFailed, path, "CUE value is not a struct: %v", err)
	}
	return raw, nil
}
