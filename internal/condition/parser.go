package condition

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/width"

	"github.com/DoctorReid/ZenlessZoneZero-OneDragon-sub002/internal/state"
)

// StateGetter resolves a state name to its recorder.
// state.Registry.Get satisfies it.
type StateGetter func(name string) *state.Recorder

// SyntaxError reports an invalid condition expression.
type SyntaxError struct {
	Expr    string
	Pos     int // byte offset in the folded expression
	Message string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("condition %q: position %d: %s", e.Expr, e.Pos, e.Message)
}

// Parse builds a condition tree from expr, binding every leaf to the recorder
// returned by get.
func Parse(expr string, get StateGetter) (Node, error) {
	if get == nil {
		return nil, fmt.Errorf("condition %q: state getter is required", expr)
	}

	p := &parser{
		expr: expr,
		src:  width.Fold.String(expr),
		get:  get,
	}

	p.skipSpace()
	if p.eof() {
		return nil, p.errorf("empty expression")
	}

	n, err := p.parseOr()
	if err != nil {
		return nil, err
	}

	p.skipSpace()
	if !p.eof() {
		return nil, p.errorf("unexpected %q", p.peek())
	}
	return n, nil
}

// MustParse is like Parse but panics on error. Intended for tests.
func MustParse(expr string, get StateGetter) Node {
	n, err := Parse(expr, get)
	if err != nil {
		panic(err)
	}
	return n
}

type parser struct {
	expr string
	src  string
	pos  int
	get  StateGetter
}

func (p *parser) eof() bool {
	return p.pos >= len(p.src)
}

func (p *parser) peek() byte {
	return p.src[p.pos]
}

func (p *parser) skipSpace() {
	for !p.eof() {
		switch p.peek() {
		case ' ', '\t', '\n', '\r':
			p.pos++
		default:
			return
		}
	}
}

func (p *parser) errorf(format string, args ...any) *SyntaxError {
	return &SyntaxError{Expr: p.expr, Pos: p.pos, Message: fmt.Sprintf(format, args...)}
}

func (p *parser) accept(c byte) bool {
	p.skipSpace()
	if !p.eof() && p.peek() == c {
		p.pos++
		return true
	}
	return false
}

func (p *parser) parseOr() (Node, error) {
	first, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	children := []Node{first}
	for p.accept('|') {
		n, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		children = append(children, n)
	}
	if len(children) == 1 {
		return first, nil
	}
	return &Or{Children: children}, nil
}

func (p *parser) parseAnd() (Node, error) {
	first, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	children := []Node{first}
	for p.accept('&') {
		n, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		children = append(children, n)
	}
	if len(children) == 1 {
		return first, nil
	}
	return &And{Children: children}, nil
}

func (p *parser) parseUnary() (Node, error) {
	p.skipSpace()
	if p.eof() {
		return nil, p.errorf("unexpected end of expression")
	}

	switch p.peek() {
	case '!':
		p.pos++
		child, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &Not{Child: child}, nil
	case '(':
		p.pos++
		n, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if !p.accept(')') {
			return nil, p.errorf("missing ')'")
		}
		return n, nil
	case '[':
		return p.parseLeaf()
	default:
		return nil, p.errorf("unexpected %q, want '[', '(' or '!'", p.peek())
	}
}

func (p *parser) parseLeaf() (Node, error) {
	start := p.pos
	p.pos++ // '['

	body, ok := p.readUntil(']')
	if !ok {
		p.pos = start
		return nil, p.errorf("missing ']'")
	}

	parts := splitTrim(body)
	name := state.CanonicalName(parts[0])
	if name == "" {
		p.pos = start
		return nil, p.errorf("empty state name")
	}

	leaf := &Leaf{
		Recorder: p.get(name),
		MaxAge:   DefaultWindow,
	}
	if leaf.Recorder == nil {
		p.pos = start
		return nil, p.errorf("unknown state %q", name)
	}

	bounds, err := p.parseNumbers(parts[1:], start)
	if err != nil {
		return nil, err
	}
	switch len(bounds) {
	case 0:
	case 1:
		leaf.MaxAge = seconds(bounds[0])
	case 2:
		leaf.MinAge = seconds(bounds[0])
		leaf.MaxAge = seconds(bounds[1])
	default:
		p.pos = start
		return nil, p.errorf("state %q: at most two time bounds allowed", name)
	}
	if leaf.MinAge < 0 || leaf.MaxAge < leaf.MinAge {
		p.pos = start
		return nil, p.errorf("state %q: invalid time window [%s, %s]", name,
			formatSeconds(leaf.MinAge), formatSeconds(leaf.MaxAge))
	}

	p.skipSpace()
	if !p.eof() && p.peek() == '{' {
		vstart := p.pos
		p.pos++
		body, ok := p.readUntil('}')
		if !ok {
			p.pos = vstart
			return nil, p.errorf("missing '}'")
		}
		values, err := p.parseNumbers(splitTrim(body), vstart)
		if err != nil {
			return nil, err
		}
		switch len(values) {
		case 1:
			leaf.Value = &ValueRange{Min: values[0], Max: values[0]}
		case 2:
			if values[1] < values[0] {
				p.pos = vstart
				return nil, p.errorf("state %q: invalid value range {%s, %s}", name,
					formatFloat(values[0]), formatFloat(values[1]))
			}
			leaf.Value = &ValueRange{Min: values[0], Max: values[1]}
		default:
			p.pos = vstart
			return nil, p.errorf("state %q: value constraint needs one or two numbers", name)
		}
	}

	return leaf, nil
}

// readUntil consumes up to and including the closing byte and returns the
// text in between.
func (p *parser) readUntil(closing byte) (string, bool) {
	idx := strings.IndexByte(p.src[p.pos:], closing)
	if idx < 0 {
		return "", false
	}
	body := p.src[p.pos : p.pos+idx]
	p.pos += idx + 1
	return body, true
}

func (p *parser) parseNumbers(parts []string, at int) ([]float64, error) {
	out := make([]float64, 0, len(parts))
	for _, s := range parts {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			p.pos = at
			return nil, p.errorf("invalid number %q", s)
		}
		out = append(out, f)
	}
	return out, nil
}

func splitTrim(s string) []string {
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func seconds(f float64) time.Duration {
	return time.Duration(f * float64(time.Second))
}
