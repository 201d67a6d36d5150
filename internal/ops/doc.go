// Package ops provides vocabulary-free builtin operations and the registry
// that turns declarative operation references into executable ops.
//
// Builtins:
//
//	wait         seconds          sleep, interruptible
//	log          message          write an info log line
//	set_state    state, [value]   record a state through the StateSink
//	clear_state  state            forget a state through the StateSink
//	hold         key, seconds     press an input and release it later (async)
//
// Domain-specific ops are added with Registry.Register.
package ops
