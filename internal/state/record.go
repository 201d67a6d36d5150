package state

import (
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

// Record is one immutable observation of a state fact.
type Record struct {
	Name     string
	Time     time.Time
	Value    float64
	HasValue bool
}

// Observed reports whether the record holds an observation.
// The zero Record means "never observed".
func (r Record) Observed() bool {
	return !r.Time.IsZero()
}

// CanonicalName normalizes a state or template name.
//
// Surrounding space is trimmed, full-width and half-width forms are folded to
// their canonical width, and the result is NFC normalized.
func CanonicalName(name string) string {
	return norm.NFC.String(width.Fold.String(strings.TrimSpace(name)))
}
