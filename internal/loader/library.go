package loader

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/DoctorReid/ZenlessZoneZero-OneDragon-sub002/internal/compiler"
	"github.com/DoctorReid/ZenlessZoneZero-OneDragon-sub002/internal/scene"
)

var extensions = []string{ExtYML, ExtYAML, ExtCUE}

// Library serves templates from a config root and caches decoded templates.
// Its getters satisfy compiler.StateTemplateGetter and
// compiler.OperationTemplateGetter.
//
// Thread-safety: safe for concurrent use.
type Library struct {
	layout Layout

	mu     sync.Mutex
	states map[string]scene.StateTemplate
	ops    map[string]scene.OperationTemplate
}

// NewLibrary creates a library for the given layout.
func NewLibrary(layout Layout) *Library {
	return &Library{
		layout: layout,
		states: make(map[string]scene.StateTemplate),
		ops:    make(map[string]scene.OperationTemplate),
	}
}

// StateTemplate returns the named state template.
func (l *Library) StateTemplate(name string) (scene.StateTemplate, error) {
	l.mu.Lock()
	if t, ok := l.states[name]; ok {
		l.mu.Unlock()
		return t, nil
	}
	l.mu.Unlock()

	path, err := l.find(StateTemplatesDir, name)
	if err != nil {
		return scene.StateTemplate{}, fmt.Errorf("state template %q: %w", name, err)
	}
	raw, err := ReadFile(path)
	if err != nil {
		return scene.StateTemplate{}, err
	}
	t, err := scene.DecodeStateTemplate(name, raw)
	if err != nil {
		return scene.StateTemplate{}, withFile(err, path)
	}

	l.mu.Lock()
	l.states[name] = t
	l.mu.Unlock()
	return t, nil
}

// OperationTemplate returns the named operation template.
func (l *Library) OperationTemplate(name string) (scene.OperationTemplate, error) {
	l.mu.Lock()
	if t, ok := l.ops[name]; ok {
		l.mu.Unlock()
		return t, nil
	}
	l.mu.Unlock()

	path, err := l.find(OperationTemplatesDir, name)
	if err != nil {
		return scene.OperationTemplate{}, fmt.Errorf("operation template %q: %w", name, err)
	}
	raw, err := ReadFile(path)
	if err != nil {
		return scene.OperationTemplate{}, err
	}
	t, err := scene.DecodeOperationTemplate(name, raw)
	if err != nil {
		return scene.OperationTemplate{}, withFile(err, path)
	}

	l.mu.Lock()
	l.ops[name] = t
	l.mu.Unlock()
	return t, nil
}

// StateTemplates decodes every state template file, sorted by file name.
func (l *Library) StateTemplates() ([]scene.StateTemplate, error) {
	files, err := FindFiles(l.layout.Dir(StateTemplatesDir))
	if err != nil {
		return nil, err
	}
	out := make([]scene.StateTemplate, 0, len(files))
	for _, f := range files {
		t, err := l.StateTemplate(templateName(f))
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// OperationTemplates decodes every operation template file, sorted by file name.
func (l *Library) OperationTemplates() ([]scene.OperationTemplate, error) {
	files, err := FindFiles(l.layout.Dir(OperationTemplatesDir))
	if err != nil {
		return nil, err
	}
	out := make([]scene.OperationTemplate, 0, len(files))
	for _, f := range files {
		t, err := l.OperationTemplate(templateName(f))
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// find returns the first existing file for name in sub. Names that would
// escape the directory are never found.
func (l *Library) find(sub, name string) (string, error) {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", compiler.ErrTemplateNotFound
	}
	for _, ext := range extensions {
		path := filepath.Join(l.layout.Dir(sub), name+ext)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", loadError(ErrCodeGeneric, path, "stat: %v", err)
		}
	}
	return "", compiler.ErrTemplateNotFound
}

// withFile prefixes the path of a config error with the file it came from.
func withFile(err error, file string) error {
	var ce *scene.ConfigError
	if errors.As(err, &ce) {
		if ce.Path == "" {
			ce.Path = file
		} else {
			ce.Path = file + ": " + ce.Path
		}
	}
	return err
}
