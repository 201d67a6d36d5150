package cli

import (
	"errors"
	"log/slog"
	"time"

	"github.com/DoctorReid/ZenlessZoneZero-OneDragon-sub002/internal/compiler"
	"github.com/DoctorReid/ZenlessZoneZero-OneDragon-sub002/internal/handler"
	"github.com/DoctorReid/ZenlessZoneZero-OneDragon-sub002/internal/loader"
	"github.com/DoctorReid/ZenlessZoneZero-OneDragon-sub002/internal/ops"
	"github.com/DoctorReid/ZenlessZoneZero-OneDragon-sub002/internal/scene"
	"github.com/DoctorReid/ZenlessZoneZero-OneDragon-sub002/internal/state"
)

// ErrCodeGeneric is reported for errors that carry no code of their own.
const ErrCodeGeneric = loader.ErrCodeGeneric

// compiledProject is a config root compiled against placeholder ops.
type compiledProject struct {
	project            *loader.Project
	stateTemplates     []scene.StateTemplate
	operationTemplates []scene.OperationTemplate
	cycles             []compiler.TemplateCycle
	scenes             []*handler.SceneHandler
	states             *state.Registry
}

// compileProject loads a config root, reports template cycles and compiles
// every scene. Domain ops are replaced by logging placeholders so configs can
// be checked without their runtime. A non-nil project is returned whenever
// loading succeeded, so callers can report cycles and compile errors together.
func compileProject(root string, logger *slog.Logger) (*compiledProject, error) {
	project, err := loader.Load(root)
	if err != nil {
		return nil, err
	}

	cp := &compiledProject{project: project, states: state.NewRegistry()}

	cp.stateTemplates, err = project.Library.StateTemplates()
	if err != nil {
		return cp, err
	}
	cp.operationTemplates, err = project.Library.OperationTemplates()
	if err != nil {
		return cp, err
	}
	cp.cycles = compiler.AnalyzeTemplateCycles(cp.stateTemplates, cp.operationTemplates)

	registry := ops.NewRegistry(ops.WithPlaceholder(), ops.WithLogger(logger))
	ops.RegisterBuiltins(registry, ops.Deps{
		Sink:   registrySink{states: cp.states},
		Input:  ops.LogInput{Logger: logger},
		Logger: logger,
	})

	c := &compiler.Compiler{
		States:             cp.states.Get,
		Ops:                registry.Build,
		StateTemplates:     project.Library.StateTemplate,
		OperationTemplates: project.Library.OperationTemplate,
		Logger:             logger,
	}
	cp.scenes, err = c.CompileDocument(project.Document)
	if err != nil {
		return cp, err
	}
	return cp, nil
}

// registrySink writes state ops straight into a registry.
type registrySink struct {
	states *state.Registry
}

func (s registrySink) Record(name string, t time.Time) bool {
	return s.states.Get(state.CanonicalName(name)).Record(t)
}

func (s registrySink) RecordValue(name string, t time.Time, v float64) bool {
	return s.states.Get(state.CanonicalName(name)).RecordValue(t, v)
}

func (s registrySink) Clear(name string) {
	s.states.Get(state.CanonicalName(name)).Clear()
}

// issueOf converts an error into an Issue, keeping codes of load and config
// errors.
func issueOf(err error) Issue {
	var ce *scene.ConfigError
	if errors.As(err, &ce) {
		return Issue{Code: string(ce.Code), Path: ce.Path, Template: ce.Template, Message: ce.Message}
	}
	var le *loader.LoadError
	if errors.As(err, &le) {
		return Issue{Code: le.Code, Path: le.Path, Message: le.Message}
	}
	return Issue{Code: ErrCodeGeneric, Message: err.Error()}
}
