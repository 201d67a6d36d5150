// Package condition implements the immutable boolean trees that gate state
// handlers.
//
// A tree is parsed once from a declarative expression when a scene is loaded.
// Leaves are bound to their state recorders at parse time, so evaluation never
// looks a name up again; Eval is a pure function of the tree, the recorders'
// current values and the explicit evaluation instant.
//
// Expression syntax:
//
//	[name]                 observed within the last second
//	[name, max]            observed within the last max seconds
//	[name, min, max]       last observed between min and max seconds ago
//	[name]{v}              ... and the last value equals v
//	[name]{lo, hi}         ... and the last value lies in [lo, hi]
//	!x   x & y   x | y     not, and, or (highest to lowest precedence)
//	( x )                  grouping
//
// Full-width punctuation (［］（）｛｝，！＆｜) is accepted and folded to its
// ASCII form before parsing.
package condition
