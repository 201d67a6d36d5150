// Package state stores the latest observation of each named state fact.
//
// A state fact is pushed by an external producer (a detector running at
// screenshot rate, an operation that sets a custom state, ...) and read by
// condition evaluation. Every fact has its own Recorder with its own lock so
// that unrelated facts updating at high frequency never serialize each other.
//
// Thread-safety model:
//   - Recorder: safe for concurrent writers and readers
//   - Registry: safe for concurrent use; its lock only guards recorder creation
//
// Names are canonicalized with CanonicalName before they are used as keys, so
// configuration text typed with full-width punctuation or decomposed Unicode
// still refers to the same fact.
package state
