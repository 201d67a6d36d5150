package scene

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/DoctorReid/ZenlessZoneZero-OneDragon-sub002/internal/state"
)

var (
	sceneFields = map[string]bool{
		FieldName: true, FieldTriggers: true, FieldInterval: true,
		FieldPriority: true, FieldHandlers: true, "description": true,
	}
	handlerFields = map[string]bool{
		FieldStates: true, FieldDebugName: true, FieldInterruptStates: true,
		FieldOperations: true, FieldSubStates: true, FieldStateTemplate: true,
	}
)

// DecodeDocument decodes a whole configuration. Unknown top-level fields are
// ignored so documents can carry metadata such as author or version.
func DecodeDocument(raw map[string]any) (Document, error) {
	scenesRaw, ok := raw[FieldScenes]
	if !ok {
		return Document{}, newError(ErrCodeInvalidSceneField, FieldScenes, "field is required")
	}
	list, ok := scenesRaw.([]any)
	if !ok {
		return Document{}, newError(ErrCodeInvalidFieldType, FieldScenes, "want a list, got %s", typeName(scenesRaw))
	}

	doc := Document{Scenes: make([]Scene, 0, len(list))}
	mainPath := ""
	for i, item := range list {
		path := fmt.Sprintf("%s[%d]", FieldScenes, i)
		m, ok := item.(map[string]any)
		if !ok {
			return Document{}, newError(ErrCodeInvalidFieldType, path, "want a mapping, got %s", typeName(item))
		}
		sc, err := DecodeScene(m, path)
		if err != nil {
			return Document{}, err
		}
		if sc.IsMainLoop() {
			if mainPath != "" {
				return Document{}, newError(ErrCodeDuplicateMainScene, path,
					"scene without triggers already declared at %s", mainPath)
			}
			mainPath = path
		}
		doc.Scenes = append(doc.Scenes, sc)
	}
	return doc, nil
}

// DecodeScene decodes one scene mapping.
func DecodeScene(raw map[string]any, path string) (Scene, error) {
	if err := checkFields(raw, sceneFields, path); err != nil {
		return Scene{}, err
	}

	sc := Scene{Interval: DefaultInterval, Path: path}

	triggers, err := stringList(raw, FieldTriggers, path)
	if err != nil {
		return Scene{}, err
	}
	for _, tr := range triggers {
		name := state.CanonicalName(tr)
		if name == "" {
			return Scene{}, newError(ErrCodeInvalidSceneField, join(path, FieldTriggers), "empty trigger name")
		}
		sc.Triggers = append(sc.Triggers, name)
	}

	name, err := optionalString(raw, FieldName, path)
	if err != nil {
		return Scene{}, err
	}
	switch {
	case name != "":
		sc.Name = name
	case sc.IsMainLoop():
		sc.Name = "main"
	default:
		sc.Name = strings.Join(sc.Triggers, ",")
	}

	if v, ok := raw[FieldInterval]; ok && v != nil {
		secs, ok := toFloat(v)
		if !ok {
			return Scene{}, newError(ErrCodeInvalidFieldType, join(path, FieldInterval), "want seconds, got %s", typeName(v))
		}
		if secs < 0 || math.IsNaN(secs) || secs > MaxSeconds {
			return Scene{}, newError(ErrCodeInvalidSceneField, join(path, FieldInterval), "interval must be a finite non-negative number")
		}
		sc.Interval = time.Duration(secs * float64(time.Second))
	}

	if v, ok := raw[FieldPriority]; ok && v != nil {
		f, ok := toFloat(v)
		if !ok || f != math.Trunc(f) {
			return Scene{}, newError(ErrCodeInvalidSceneField, join(path, FieldPriority), "want an integer or null, got %v", v)
		}
		if f < math.MinInt32 || f > math.MaxInt32 {
			return Scene{}, newError(ErrCodeInvalidSceneField, join(path, FieldPriority), "priority %v out of range", v)
		}
		p := int(f)
		sc.Priority = &p
	}

	handlersRaw, ok := raw[FieldHandlers]
	if !ok || handlersRaw == nil {
		return Scene{}, newError(ErrCodeInvalidSceneField, join(path, FieldHandlers), "field is required")
	}
	sc.Handlers, err = DecodeHandlers(handlersRaw, join(path, FieldHandlers))
	if err != nil {
		return Scene{}, err
	}
	if len(sc.Handlers) == 0 {
		return Scene{}, newError(ErrCodeInvalidSceneField, join(path, FieldHandlers), "at least one handler is required")
	}
	return sc, nil
}

// DecodeHandlers decodes a list of handler mappings.
func DecodeHandlers(raw any, path string) ([]HandlerNode, error) {
	list, ok := raw.([]any)
	if !ok {
		return nil, newError(ErrCodeInvalidFieldType, path, "want a list, got %s", typeName(raw))
	}
	nodes := make([]HandlerNode, 0, len(list))
	for i, item := range list {
		itemPath := fmt.Sprintf("%s[%d]", path, i)
		m, ok := item.(map[string]any)
		if !ok {
			return nil, newError(ErrCodeInvalidFieldType, itemPath, "want a mapping, got %s", typeName(item))
		}
		n, err := DecodeHandler(m, itemPath)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

// DecodeHandler decodes one handler mapping into exactly one of the three
// handler node kinds.
func DecodeHandler(raw map[string]any, path string) (HandlerNode, error) {
	if err := checkFields(raw, handlerFields, path); err != nil {
		return nil, err
	}

	if v, ok := raw[FieldStateTemplate]; ok {
		name, isString := v.(string)
		if !isString {
			return nil, newError(ErrCodeInvalidFieldType, join(path, FieldStateTemplate), "want a string, got %s", typeName(v))
		}
		name = state.CanonicalName(name)
		if name == "" {
			return nil, newError(ErrCodeEmptyTemplateName, join(path, FieldStateTemplate), "template name is empty")
		}
		for _, other := range []string{FieldStates, FieldOperations, FieldSubStates} {
			if _, has := raw[other]; has {
				return nil, newError(ErrCodeAmbiguousHandler, path, "%s cannot be combined with %s", FieldStateTemplate, other)
			}
		}
		return &TemplateRefNode{Template: name, Path: path}, nil
	}

	states, err := optionalString(raw, FieldStates, path)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(states) == "" {
		return nil, newError(ErrCodeMissingStates, join(path, FieldStates), "states expression is required")
	}

	debugName, err := optionalString(raw, FieldDebugName, path)
	if err != nil {
		return nil, err
	}
	interrupts, err := stringList(raw, FieldInterruptStates, path)
	if err != nil {
		return nil, err
	}
	for i := range interrupts {
		interrupts[i] = state.CanonicalName(interrupts[i])
	}

	meta := HandlerMeta{
		States:          states,
		DebugName:       debugName,
		InterruptStates: interrupts,
		Path:            path,
	}

	opsRaw, hasOps := raw[FieldOperations]
	subRaw, hasSub := raw[FieldSubStates]

	switch {
	case hasOps && hasSub:
		return nil, newError(ErrCodeAmbiguousHandler, path, "set either %s or %s, not both", FieldOperations, FieldSubStates)

	case hasSub:
		subs, err := DecodeHandlers(subRaw, join(path, FieldSubStates))
		if err != nil {
			return nil, err
		}
		if len(subs) == 0 {
			return nil, newError(ErrCodeEmptySubStates, join(path, FieldSubStates), "sub_states must not be empty")
		}
		return &SubStatesNode{HandlerMeta: meta, SubStates: subs}, nil

	case hasOps:
		ops, err := DecodeOperations(opsRaw, join(path, FieldOperations))
		if err != nil {
			return nil, err
		}
		if len(ops) == 0 {
			return nil, newError(ErrCodeNoOperations, join(path, FieldOperations), "operations must not be empty")
		}
		return &OperationsNode{HandlerMeta: meta, Operations: ops}, nil

	default:
		return nil, newError(ErrCodeNoOperations, path, "handler needs %s or %s", FieldOperations, FieldSubStates)
	}
}

// DecodeOperations decodes an operation list. Entries are either a bare
// operation name, a mapping with op_name and parameters, or a mapping with
// operation_template.
func DecodeOperations(raw any, path string) ([]OperationDef, error) {
	list, ok := raw.([]any)
	if !ok {
		return nil, newError(ErrCodeInvalidFieldType, path, "want a list, got %s", typeName(raw))
	}

	defs := make([]OperationDef, 0, len(list))
	for i, item := range list {
		itemPath := fmt.Sprintf("%s[%d]", path, i)
		def, err := decodeOperation(item, itemPath)
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	return defs, nil
}

func decodeOperation(raw any, path string) (OperationDef, error) {
	switch v := raw.(type) {
	case string:
		name := strings.TrimSpace(v)
		if name == "" {
			return nil, newError(ErrCodeUnknownOperation, path, "operation name is empty")
		}
		return &OpRef{Name: name, Path: path}, nil

	case map[string]any:
		if t, ok := v[FieldOperationTemplate]; ok {
			name, isString := t.(string)
			if !isString {
				return nil, newError(ErrCodeInvalidFieldType, join(path, FieldOperationTemplate), "want a string, got %s", typeName(t))
			}
			name = state.CanonicalName(name)
			if name == "" {
				return nil, newError(ErrCodeEmptyTemplateName, join(path, FieldOperationTemplate), "template name is empty")
			}
			if len(v) > 1 {
				return nil, newError(ErrCodeInvalidFieldType, path, "%s takes no other fields", FieldOperationTemplate)
			}
			return &OpTemplateRef{Template: name, Path: path}, nil
		}

		n, ok := v[FieldOpName]
		if !ok {
			return nil, newError(ErrCodeUnknownOperation, path, "operation needs %s or %s", FieldOpName, FieldOperationTemplate)
		}
		name, isString := n.(string)
		if !isString || strings.TrimSpace(name) == "" {
			return nil, newError(ErrCodeUnknownOperation, join(path, FieldOpName), "operation name must be a non-empty string")
		}
		params := make(map[string]any, len(v)-1)
		for k, pv := range v {
			if k != FieldOpName {
				params[k] = pv
			}
		}
		return &OpRef{Name: strings.TrimSpace(name), Params: params, Path: path}, nil

	default:
		return nil, newError(ErrCodeInvalidFieldType, path, "want an operation name or mapping, got %s", typeName(raw))
	}
}

// DecodeStateTemplate decodes a state template document: a mapping with a
// handlers list.
func DecodeStateTemplate(name string, raw map[string]any) (StateTemplate, error) {
	name = state.CanonicalName(name)
	handlers, ok := raw[FieldHandlers]
	if !ok || handlers == nil {
		return StateTemplate{}, &ConfigError{
			Code: ErrCodeInvalidSceneField, Path: FieldHandlers, Template: name,
			Message: "field is required",
		}
	}
	nodes, err := DecodeHandlers(handlers, FieldHandlers)
	if err != nil {
		return StateTemplate{}, withTemplate(err, name)
	}
	return StateTemplate{Name: name, Handlers: nodes}, nil
}

// DecodeOperationTemplate decodes an operation template document: a mapping
// with an operations list.
func DecodeOperationTemplate(name string, raw map[string]any) (OperationTemplate, error) {
	name = state.CanonicalName(name)
	opsRaw, ok := raw[FieldOperations]
	if !ok || opsRaw == nil {
		return OperationTemplate{}, &ConfigError{
			Code: ErrCodeNoOperations, Path: FieldOperations, Template: name,
			Message: "field is required",
		}
	}
	ops, err := DecodeOperations(opsRaw, FieldOperations)
	if err != nil {
		return OperationTemplate{}, withTemplate(err, name)
	}
	return OperationTemplate{Name: name, Operations: ops}, nil
}

func withTemplate(err error, name string) error {
	if ce, ok := err.(*ConfigError); ok && ce.Template == "" {
		ce.Template = name
	}
	return err
}

func checkFields(raw map[string]any, known map[string]bool, path string) error {
	var unknown []string
	for k := range raw {
		if !known[k] {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	sort.Strings(unknown)
	return newError(ErrCodeInvalidFieldType, join(path, unknown[0]), "unknown field")
}

func optionalString(raw map[string]any, field, path string) (string, error) {
	v, ok := raw[field]
	if !ok || v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", newError(ErrCodeInvalidFieldType, join(path, field), "want a string, got %s", typeName(v))
	}
	return s, nil
}

// stringList accepts a single string or a list of strings.
func stringList(raw map[string]any, field, path string) ([]string, error) {
	v, ok := raw[field]
	if !ok || v == nil {
		return nil, nil
	}
	switch val := v.(type) {
	case string:
		return []string{val}, nil
	case []any:
		out := make([]string, 0, len(val))
		for i, item := range val {
			s, ok := item.(string)
			if !ok {
				return nil, newError(ErrCodeInvalidFieldType, fmt.Sprintf("%s[%d]", join(path, field), i), "want a string, got %s", typeName(item))
			}
			out = append(out, s)
		}
		return out, nil
	case []string:
		return append([]string(nil), val...), nil
	default:
		return nil, newError(ErrCodeInvalidFieldType, join(path, field), "want a string or list, got %s", typeName(v))
	}
}

// toFloat converts the numeric types produced by YAML, JSON and CUE decoders.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// ParamFloat reads a numeric operation parameter.
func ParamFloat(params map[string]any, key string) (float64, bool) {
	v, ok := params[key]
	if !ok || v == nil {
		return 0, false
	}
	return toFloat(v)
}

func join(path, field string) string {
	if path == "" {
		return field
	}
	return path + "." + field
}

func typeName(v any) string {
	if v == nil {
		return "null"
	}
	switch v.(type) {
	case string:
		return "string"
	case []any:
		return "list"
	case map[string]any:
		return "mapping"
	case bool:
		return "bool"
	}
	if _, ok := toFloat(v); ok {
		return "number"
	}
	return fmt.Sprintf("%T", v)
}
