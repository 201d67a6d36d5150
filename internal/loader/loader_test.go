package loader

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoctorReid/ZenlessZoneZero-OneDragon-sub002/internal/compiler"
	"github.com/DoctorReid/ZenlessZoneZero-OneDragon-sub002/internal/scene"
)

func writeFile(t *testing.T, root, rel, content string) string {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// TestReadFile_YAML tests decoding a YAML file into a mapping.
func TestReadFile_YAML(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "a.yml", "name: main\ninterval: 0.5\n")

	raw, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "main", raw["name"])
	assert.Equal(t, 0.5, raw["interval"])
}

// TestReadFile_EmptyYAML tests that an empty YAML file yields an empty mapping.
func TestReadFile_EmptyYAML(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "empty.yaml", "")

	raw, err := ReadFile(path)
	require.NoError(t, err)
	assert.Empty(t, raw)
}

// TestReadFile_CUE tests evaluating a CUE file and exporting its value.
func TestReadFile_CUE(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "scene.cue", `
_base: 0.25
name:     "combat"
interval: _base * 2
triggers: ["enemy"]
`)

	raw, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "combat", raw["name"])
	assert.Equal(t, []any{"enemy"}, raw["triggers"])
	assert.NotContains(t, raw, "_base")

	f, ok := scene.ParamFloat(raw, "interval")
	require.True(t, ok)
	assert.InDelta(t, 0.5, f, 1e-9)
}

// TestReadFile_Errors tests the error codes reported for bad files.
func TestReadFile_Errors(t *testing.T) {
	dir := t.TempDir()
	badYAML := writeFile(t, dir, "bad.yml", "name: [unclosed\n")
	badCUE := writeFile(t, dir, "bad.cue", "name: {\n")
	openCUE := writeFile(t, dir, "open.cue", "name: string\n")
	txt := writeFile(t, dir, "notes.txt", "hello")

	tests := []struct {
		name string
		path string
		code string
	}{
		{"missing file", filepath.Join(dir, "nope.yml"), ErrCodeNotFound},
		{"yaml syntax", badYAML, ErrCodeParseFailed},
		{"cue syntax", badCUE, ErrCodeParseFailed},
		{"cue not concrete", openCUE, ErrCodeBuildFailed},
		{"unsupported extension", txt, ErrCodeUnsupported},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadFile(tt.path)
			require.Error(t, err)
			var le *LoadError
			require.True(t, errors.As(err, &le))
			assert.Equal(t, tt.code, le.Code)
			assert.True(t, IsLoadError(err))
		})
	}
}

// TestFindFiles_SortedAndFiltered tests that only config files are returned, sorted.
func TestFindFiles_SortedAndFiltered(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.yml", "")
	writeFile(t, dir, "a.cue", "")
	writeFile(t, dir, "nested/c.yaml", "")
	writeFile(t, dir, "README.md", "")

	files, err := FindFiles(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.cue"),
		filepath.Join(dir, "b.yml"),
		filepath.Join(dir, "nested", "c.yaml"),
	}, files)
}

// TestFindFiles_MissingDir tests that a missing directory yields no files.
func TestFindFiles_MissingDir(t *testing.T) {
	files, err := FindFiles(filepath.Join(t.TempDir(), "absent"))
	require.NoError(t, err)
	assert.Empty(t, files)
}

// TestLoadDocument_SingleScene tests that a bare scene mapping becomes a one-scene document.
func TestLoadDocument_SingleScene(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "main.yml", `
interval: 0.2
handlers:
  - states: "[A]"
    operations: [a]
`)

	doc, err := LoadDocument(path)
	require.NoError(t, err)
	require.Len(t, doc.Scenes, 1)
	assert.Equal(t, "main", doc.Scenes[0].Name)
	assert.True(t, doc.Scenes[0].IsMainLoop())
}

// TestLoadDocument_ConfigErrorCarriesFile tests that decode errors name the file.
func TestLoadDocument_ConfigErrorCarriesFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "broken.yml", `
handlers:
  - operations: [a]
`)

	_, err := LoadDocument(path)
	require.Error(t, err)
	assert.Equal(t, scene.ErrCodeMissingStates, scene.CodeOf(err))
	assert.Contains(t, err.Error(), path)
}

// TestLoad_MergesSceneFiles tests that every scene file contributes to the document.
func TestLoad_MergesSceneFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "scenes/10_main.yml", `
handlers:
  - states: "[A]"
    operations: [a]
`)
	writeFile(t, root, "scenes/20_triggers.yml", `
scenes:
  - triggers: [enemy]
    priority: 5
    handlers:
      - states: "[enemy]"
        operations: [dodge]
  - triggers: [boss]
    handlers:
      - states: "[boss]"
        operations: [flee]
`)

	p, err := Load(root)
	require.NoError(t, err)
	require.Len(t, p.Document.Scenes, 3)
	assert.Equal(t, "main", p.Document.Scenes[0].Name)
	assert.Equal(t, "enemy", p.Document.Scenes[1].Name)
	assert.Equal(t, "boss", p.Document.Scenes[2].Name)
	require.NotNil(t, p.Document.Scenes[1].Priority)
	assert.Equal(t, 5, *p.Document.Scenes[1].Priority)
}

// TestLoad_Errors tests layout-level failures.
func TestLoad_Errors(t *testing.T) {
	root := t.TempDir()
	file := writeFile(t, root, "file.yml", "")

	_, err := Load(filepath.Join(root, "missing"))
	assertCode(t, err, ErrCodeNotFound)

	_, err = Load(file)
	assertCode(t, err, ErrCodeInvalidLayout)

	_, err = Load(root)
	assertCode(t, err, ErrCodeNoFiles)
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	var le *LoadError
	require.True(t, errors.As(err, &le), "want *LoadError, got %v", err)
	assert.Equal(t, code, le.Code)
}

// TestLibrary_StateTemplate tests loading and caching a state template.
func TestLibrary_StateTemplate(t *testing.T) {
	root := t.TempDir()
	path := writeFile(t, root, "state_templates/dodge.yml", `
handlers:
  - states: "[enemy]"
    operations: [dodge]
`)
	lib := NewLibrary(Layout{Root: root})

	tpl, err := lib.StateTemplate("dodge")
	require.NoError(t, err)
	assert.Equal(t, "dodge", tpl.Name)
	require.Len(t, tpl.Handlers, 1)

	// Served from cache once loaded.
	require.NoError(t, os.Remove(path))
	again, err := lib.StateTemplate("dodge")
	require.NoError(t, err)
	assert.Equal(t, tpl, again)
}

// TestLibrary_OperationTemplateCUE tests loading an operation template from CUE.
func TestLibrary_OperationTemplateCUE(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "operation_templates/combo.cue", `
operations: [
	"attack",
	{op_name: "wait", seconds: 0.1},
]
`)
	lib := NewLibrary(Layout{Root: root})

	tpl, err := lib.OperationTemplate("combo")
	require.NoError(t, err)
	require.Len(t, tpl.Operations, 2)
	ref, ok := tpl.Operations[1].(*scene.OpRef)
	require.True(t, ok)
	assert.Equal(t, "wait", ref.Name)
	secs, ok := scene.ParamFloat(ref.Params, "seconds")
	require.True(t, ok)
	assert.InDelta(t, 0.1, secs, 1e-9)
}

// TestLibrary_NotFound tests that unknown and path-like names are not found.
func TestLibrary_NotFound(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "secret.yml", "handlers: []\n")
	lib := NewLibrary(Layout{Root: root})

	for _, name := range []string{"absent", "../secret", "a/b", ""} {
		_, err := lib.StateTemplate(name)
		assert.ErrorIs(t, err, compiler.ErrTemplateNotFound, name)
		_, err = lib.OperationTemplate(name)
		assert.ErrorIs(t, err, compiler.ErrTemplateNotFound, name)
	}
}

// TestLibrary_Listings tests that every template file is listed in name order.
func TestLibrary_Listings(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "state_templates/b.yml", "handlers:\n  - states: \"[B]\"\n    operations: [b]\n")
	writeFile(t, root, "state_templates/a.yaml", "handlers:\n  - states: \"[A]\"\n    operations: [a]\n")
	writeFile(t, root, "operation_templates/x.yml", "operations: [x]\n")
	lib := NewLibrary(Layout{Root: root})

	states, err := lib.StateTemplates()
	require.NoError(t, err)
	require.Len(t, states, 2)
	assert.Equal(t, "a", states[0].Name)
	assert.Equal(t, "b", states[1].Name)

	ops, err := lib.OperationTemplates()
	require.NoError(t, err)
	require.Len(t, ops, 1)
	assert.Equal(t, "x", ops[0].Name)
}

// TestLibrary_CompilesProject tests the library as template source for the compiler.
func TestLibrary_CompilesProject(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "scenes/main.yml", `
handlers:
  - state_template: combat
`)
	writeFile(t, root, "state_templates/combat.yml", `
handlers:
  - states: "[enemy]"
    operations:
      - operation_template: strike
`)
	writeFile(t, root, "operation_templates/strike.yml", "operations: [attack, retreat]\n")

	p, err := Load(root)
	require.NoError(t, err)

	r := &compiler.Resolver{
		StateTemplates:     p.Library.StateTemplate,
		OperationTemplates: p.Library.OperationTemplate,
	}
	resolved, err := r.ResolveHandlers(p.Document.Scenes[0].Handlers)
	require.NoError(t, err)
	require.Len(t, resolved, 1)
	require.Len(t, resolved[0].Operations, 2)
	assert.Equal(t, "attack", resolved[0].Operations[0].Name)
	assert.Equal(t, "retreat", resolved[0].Operations[1].Name)
}
