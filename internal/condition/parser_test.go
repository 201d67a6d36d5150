package condition

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoctorReid/ZenlessZoneZero-OneDragon-sub002/internal/state"
)

func TestParse_Canonical(t *testing.T) {
	tests := []struct {
		expr string
		want string
	}{
		{"[A]", "[A]"},
		{" [ A ] ", "[A]"},
		{"[A, 2]", "[A, 0, 2]"},
		{"[A, 0.5, 2]", "[A, 0.5, 2]"},
		{"[A]{3}", "[A]{3}"},
		{"[A]{1, 2.5}", "[A]{1, 2.5}"},
		{"[A] & [B] & [C]", "[A] & [B] & [C]"},
		{"[A] | [B] & [C]", "[A] | ([B] & [C])"},
		{"([A] | [B]) & [C]", "([A] | [B]) & [C]"},
		{"!![A]", "!![A]"},
		{"!([A] & [B])", "!([A] & [B])"},
		{"［A，0，2］｛1｝ ＆ ！［B］", "[A, 0, 2]{1} & ![B]"},
		{"[按键可用-终结技] & ![前台-艾莲]", "[按键可用-终结技] & ![前台-艾莲]"},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			n, err := Parse(tt.expr, state.NewRegistry().Get)
			require.NoError(t, err)
			assert.Equal(t, tt.want, n.String())
		})
	}
}

func TestParse_Precedence(t *testing.T) {
	reg := state.NewRegistry()
	// !A & B | C  ==  ((!A) & B) | C
	n := MustParse("![A] & [B] | [C]", reg.Get)

	or, ok := n.(*Or)
	require.True(t, ok)
	require.Len(t, or.Children, 2)
	and, ok := or.Children[0].(*And)
	require.True(t, ok)
	_, ok = and.Children[0].(*Not)
	assert.True(t, ok)

	now := at(10)
	reg.Get("C").Record(now)
	assert.True(t, n.Eval(now))
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		expr string
	}{
		{"empty", ""},
		{"blank", "   "},
		{"missing bracket", "[A"},
		{"missing paren", "([A]"},
		{"empty name", "[ ]"},
		{"bad number", "[A, x]"},
		{"too many bounds", "[A, 1, 2, 3]"},
		{"inverted window", "[A, 3, 1]"},
		{"negative window", "[A, -1, 1]"},
		{"missing brace", "[A]{1"},
		{"empty value", "[A]{}"},
		{"inverted value", "[A]{3, 1}"},
		{"dangling operator", "[A] &"},
		{"trailing garbage", "[A] [B]"},
		{"bare word", "A"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.expr, state.NewRegistry().Get)
			require.Error(t, err)
			var se *SyntaxError
			assert.True(t, errors.As(err, &se), "want *SyntaxError, got %T", err)
		})
	}
}

func TestParse_NilGetter(t *testing.T) {
	_, err := Parse("[A]", nil)
	assert.Error(t, err)
}

func TestParse_UnknownState(t *testing.T) {
	get := func(string) *state.Recorder { return nil }
	_, err := Parse("[A]", get)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown state "A"`)
}

func TestParse_DefaultWindow(t *testing.T) {
	n := MustParse("[A]", state.NewRegistry().Get)
	leaf, ok := n.(*Leaf)
	require.True(t, ok)
	assert.Equal(t, time.Duration(0), leaf.MinAge)
	assert.Equal(t, DefaultWindow, leaf.MaxAge)
	assert.Nil(t, leaf.Value)
}
