package state

import (
	"sort"
	"sync"
)

// Registry maps canonical state names to their recorders.
//
// Get is the state getter handed to the condition parser and the handler
// compiler: it creates recorders on demand, so a condition may reference a
// fact that no producer has emitted yet (it simply evaluates false).
type Registry struct {
	mu        sync.RWMutex
	recorders map[string]*Recorder
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{recorders: make(map[string]*Recorder)}
}

// Get returns the recorder for name, creating it if needed.
func (g *Registry) Get(name string) *Recorder {
	key := CanonicalName(name)

	g.mu.RLock()
	r, ok := g.recorders[key]
	g.mu.RUnlock()
	if ok {
		return r
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if r, ok := g.recorders[key]; ok {
		return r
	}
	r = NewRecorder(key)
	g.recorders[key] = r
	return r
}

// Lookup returns the recorder for name without creating one.
func (g *Registry) Lookup(name string) (*Recorder, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	r, ok := g.recorders[CanonicalName(name)]
	return r, ok
}

// Names returns all known state names in sorted order.
func (g *Registry) Names() []string {
	g.mu.RLock()
	names := make([]string, 0, len(g.recorders))
	for name := range g.recorders {
		names = append(names, name)
	}
	g.mu.RUnlock()

	sort.Strings(names)
	return names
}

// Snapshot returns the latest record of every observed state, keyed by name.
// Used for diagnostics; condition evaluation reads recorders directly.
func (g *Registry) Snapshot() map[string]Record {
	g.mu.RLock()
	recorders := make([]*Recorder, 0, len(g.recorders))
	for _, r := range g.recorders {
		recorders = append(recorders, r)
	}
	g.mu.RUnlock()

	out := make(map[string]Record, len(recorders))
	for _, r := range recorders {
		if rec, ok := r.Last(); ok {
			out[r.Name()] = rec
		}
	}
	return out
}
