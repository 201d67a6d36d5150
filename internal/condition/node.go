package condition

import (
	"strconv"
	"strings"
	"time"

	"github.com/DoctorReid/ZenlessZoneZero-OneDragon-sub002/internal/state"
)

// DefaultWindow is the recency window of a leaf written without bounds.
const DefaultWindow = time.Second

// Node is one node of a condition tree.
type Node interface {
	// Eval reports whether the condition holds at now.
	Eval(now time.Time) bool
	// String renders the node in canonical expression syntax.
	String() string
}

// And is true when every child is true. Evaluation stops at the first false child.
type And struct {
	Children []Node
}

func (n *And) Eval(now time.Time) bool {
	for _, c := range n.Children {
		if !c.Eval(now) {
			return false
		}
	}
	return true
}

func (n *And) String() string {
	return joinChildren(n.Children, " & ")
}

// Or is true when any child is true. Evaluation stops at the first true child.
type Or struct {
	Children []Node
}

func (n *Or) Eval(now time.Time) bool {
	for _, c := range n.Children {
		if c.Eval(now) {
			return true
		}
	}
	return false
}

func (n *Or) String() string {
	return joinChildren(n.Children, " | ")
}

// Not negates its child.
type Not struct {
	Child Node
}

func (n *Not) Eval(now time.Time) bool {
	return !n.Child.Eval(now)
}

func (n *Not) String() string {
	switch n.Child.(type) {
	case *And, *Or:
		return "!(" + n.Child.String() + ")"
	}
	return "!" + n.Child.String()
}

// ValueRange constrains the last recorded value of a leaf to [Min, Max].
// An exact match is expressed with Min == Max.
type ValueRange struct {
	Min float64
	Max float64
}

func (v ValueRange) contains(x float64) bool {
	return v.Min <= x && x <= v.Max
}

// Leaf tests one state recorder.
//
// A leaf is true when the state has been observed, its age at evaluation time
// lies within [MinAge, MaxAge], and, if Value is set, the last observation
// carried a value inside the range. Ages are clamped at zero: an observation
// stamped slightly after the evaluation instant counts as fresh.
type Leaf struct {
	Recorder *state.Recorder
	MinAge   time.Duration
	MaxAge   time.Duration
	Value    *ValueRange
}

func (n *Leaf) Eval(now time.Time) bool {
	rec, ok := n.Recorder.Last()
	if !ok {
		return false
	}

	age := now.Sub(rec.Time)
	if age < 0 {
		age = 0
	}
	if age < n.MinAge || age > n.MaxAge {
		return false
	}

	if n.Value == nil {
		return true
	}
	return rec.HasValue && n.Value.contains(rec.Value)
}

// StateName returns the name of the state this leaf tests.
func (n *Leaf) StateName() string {
	return n.Recorder.Name()
}

func (n *Leaf) String() string {
	var b strings.Builder
	b.WriteString("[")
	b.WriteString(n.Recorder.Name())
	if n.MinAge != 0 || n.MaxAge != DefaultWindow {
		b.WriteString(", ")
		b.WriteString(formatSeconds(n.MinAge))
		b.WriteString(", ")
		b.WriteString(formatSeconds(n.MaxAge))
	}
	b.WriteString("]")
	if n.Value != nil {
		b.WriteString("{")
		b.WriteString(formatFloat(n.Value.Min))
		if n.Value.Max != n.Value.Min {
			b.WriteString(", ")
			b.WriteString(formatFloat(n.Value.Max))
		}
		b.WriteString("}")
	}
	return b.String()
}

// StateNames returns the distinct state names referenced by a tree, in the
// order they first appear.
func StateNames(n Node) []string {
	var names []string
	seen := make(map[string]bool)

	var walk func(Node)
	walk = func(n Node) {
		switch v := n.(type) {
		case *And:
			for _, c := range v.Children {
				walk(c)
			}
		case *Or:
			for _, c := range v.Children {
				walk(c)
			}
		case *Not:
			walk(v.Child)
		case *Leaf:
			name := v.StateName()
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	walk(n)
	return names
}

func joinChildren(children []Node, sep string) string {
	parts := make([]string, len(children))
	for i, c := range children {
		s := c.String()
		if _, isLeaf := c.(*Leaf); !isLeaf {
			if _, isNot := c.(*Not); !isNot {
				s = "(" + s + ")"
			}
		}
		parts[i] = s
	}
	return strings.Join(parts, sep)
}

func formatSeconds(d time.Duration) string {
	return formatFloat(d.Seconds())
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
