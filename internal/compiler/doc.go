// Package compiler turns declarative scene nodes into runtime handler trees.
//
// Compilation happens entirely at load time in two passes:
//
//  1. Resolve: expand state_template and operation_template references in
//     place, validating handler shape and detecting template cycles.
//  2. Build: parse every states expression into a condition tree bound to
//     the injected state getter, and turn every operation reference into an
//     executable op through the injected op getter.
//
// Any error aborts the whole scene; no partially built tree is returned.
// AnalyzeTemplateCycles inspects a whole template library at once and is used
// by static validation.
package compiler
