package loader

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/DoctorReid/ZenlessZoneZero-OneDragon-sub002/internal/scene"
)

// Subdirectories of a config root.
const (
	ScenesDir             = "scenes"
	StateTemplatesDir     = "state_templates"
	OperationTemplatesDir = "operation_templates"
)

// Layout locates the files of a config root:
//
//	<root>/scenes/*.yml               scene documents or single scenes
//	<root>/state_templates/<name>.yml
//	<root>/operation_templates/<name>.yml
//
// Any of .yml, .yaml and .cue may be used.
type Layout struct {
	Root string
}

// Dir returns the path of a subdirectory.
func (l Layout) Dir(sub string) string {
	return filepath.Join(l.Root, sub)
}

// Check verifies that the root exists and is a directory.
func (l Layout) Check() error {
	info, err := os.Stat(l.Root)
	if os.IsNotExist(err) {
		return loadError(ErrCodeNotFound, l.Root, "config directory not found")
	}
	if err != nil {
		return loadError(ErrCodeNotFound, l.Root, "error accessing config directory: %v", err)
	}
	if !info.IsDir() {
		return loadError(ErrCodeInvalidLayout, l.Root, "not a directory")
	}
	return nil
}

// FindFiles walks dir and returns all supported files, sorted.
// A missing directory yields no files.
func FindFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) && path == dir {
				return fs.SkipDir
			}
			return err
		}
		if !d.IsDir() && Supported(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, loadError(ErrCodeScanError, dir, "scan: %v", err)
	}
	sort.Strings(files)
	return files, nil
}

// templateName derives a template name from its file name.
func templateName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// LoadDocument reads one scene file. A file with a top-level scenes list is
// a whole document; any other mapping is a single scene.
func LoadDocument(path string) (scene.Document, error) {
	raw, err := ReadFile(path)
	if err != nil {
		return scene.Document{}, err
	}
	return decodeDocument(path, raw)
}

func decodeDocument(path string, raw map[string]any) (scene.Document, error) {
	if _, ok := raw[scene.FieldScenes]; ok {
		doc, err := scene.DecodeDocument(raw)
		if err != nil {
			return scene.Document{}, withFile(err, path)
		}
		return doc, nil
	}
	sc, err := scene.DecodeScene(raw, "")
	if err != nil {
		return scene.Document{}, withFile(err, path)
	}
	return scene.Document{Scenes: []scene.Scene{sc}}, nil
}

// LoadScenes reads every file under <root>/scenes into one document.
func (l Layout) LoadScenes() (scene.Document, error) {
	if err := l.Check(); err != nil {
		return scene.Document{}, err
	}
	files, err := FindFiles(l.Dir(ScenesDir))
	if err != nil {
		return scene.Document{}, err
	}
	if len(files) == 0 {
		return scene.Document{}, loadError(ErrCodeNoFiles, l.Dir(ScenesDir), "no scene files found")
	}

	var doc scene.Document
	for _, f := range files {
		part, err := LoadDocument(f)
		if err != nil {
			return scene.Document{}, err
		}
		doc.Scenes = append(doc.Scenes, part.Scenes...)
	}
	return doc, nil
}
