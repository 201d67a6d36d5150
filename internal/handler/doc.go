// Package handler holds the runtime handler trees built from scene config.
//
// A SceneHandler owns an ordered list of StateHandlers. Matching walks the
// tree depth-first in declared order and the first handler whose condition
// holds and whose subtree yields operations wins. A parent whose condition
// holds but none of whose children match yields nothing, and evaluation
// continues with the parent's next sibling.
//
// Trees are immutable after construction. Only the scene's rate-limit
// bookkeeping changes at run time.
package handler
