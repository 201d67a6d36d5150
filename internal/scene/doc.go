// Package scene defines the declarative model of reactive scenes.
//
// Scene data arrives from the environment as already-parsed nested maps
// (decoded from YAML or CUE by package loader). The Decode functions validate
// those maps exhaustively and turn them into explicit tagged-union node types:
//
//	HandlerNode   = *OperationsNode | *SubStatesNode | *TemplateRefNode
//	OperationDef  = *OpRef | *OpTemplateRef
//
// Nothing in this package knows a concrete state or operation vocabulary.
// Template references stay unresolved here; package compiler expands them.
//
// Every structural problem is reported as a *ConfigError carrying the field
// path of the offending node.
package scene
