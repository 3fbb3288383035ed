package grammar_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/tmnsur/jsip-sub002/internal/errorutil"
	"github.com/tmnsur/jsip-sub002/internal/grammar"
)

func TestIsToken(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want bool
	}{
		{"", false},
		{"INVITE", true},
		{"branch", true},
		{"z9hG4bK-1.2!%*_+`'~", true},
		{"a b", false},
		{"a=b", false},
		{"a;b", false},
		{`"q"`, false},
	}

	for _, c := range cases {
		t.Run(c.in, func(t *testing.T) {
			t.Parallel()

			if got := grammar.IsToken(c.in); got != c.want {
				t.Errorf("grammar.IsToken(%q) = %v, want %v", c.in, got, c.want)
			}
		})
	}
}

func TestIsHost(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want bool
	}{
		{"", false},
		{"a.com", true},
		{"example.com.", true},
		{"localhost", true},
		{"host-1.example.org", true},
		{"192.168.0.1", true},
		{"[::1]", true},
		{"::1", true},
		{"[::1", false},
		{"1.2.3", false},
		{"a_b.com", false},
		{"a b", false},
	}

	for _, c := range cases {
		t.Run(c.in, func(t *testing.T) {
			t.Parallel()

			if got := grammar.IsHost(c.in); got != c.want {
				t.Errorf("grammar.IsHost(%q) = %v, want %v", c.in, got, c.want)
			}
		})
	}
}

func TestIsCallID(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]bool{
		"1@a.com":         true,
		"f81d4fae-7dec":   true,
		"a@b@c":           false,
		"":                false,
		"abc@":            false,
		"a<b>:c/d[e]?{f}": true,
	} {
		if got := grammar.IsCallID(in); got != want {
			t.Errorf("grammar.IsCallID(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestQuoteUnquote(t *testing.T) {
	t.Parallel()

	cases := []struct {
		raw, quoted string
	}{
		{"", `""`},
		{"Bob", `"Bob"`},
		{`say "hi"`, `"say \"hi\""`},
		{`back\slash`, `"back\\slash"`},
	}

	for _, c := range cases {
		t.Run(c.raw, func(t *testing.T) {
			t.Parallel()

			if got := grammar.Quote(c.raw); got != c.quoted {
				t.Errorf("grammar.Quote(%q) = %q, want %q", c.raw, got, c.quoted)
			}
			if !grammar.IsQuoted(c.quoted) {
				t.Errorf("grammar.IsQuoted(%q) = false, want true", c.quoted)
			}
			if got := grammar.Unquote(c.quoted); got != c.raw {
				t.Errorf("grammar.Unquote(%q) = %q, want %q", c.quoted, got, c.raw)
			}
		})
	}

	if got := grammar.Unquote("bare"); got != "bare" {
		t.Errorf("grammar.Unquote(bare) = %q, want %q", got, "bare")
	}
	if grammar.IsQuoted(`"unterminated\"`) {
		t.Errorf("grammar.IsQuoted(unterminated) = true, want false")
	}
}

func TestEscapeUnescape(t *testing.T) {
	t.Parallel()

	if got, want := grammar.Escape("alice smith@x", grammar.IsUserChar), "alice%20smith%40x"; got != want {
		t.Errorf("grammar.Escape() = %q, want %q", got, want)
	}

	cases := []struct {
		in      string
		want    string
		wantErr error
	}{
		{"plain", "plain", nil},
		{"a%20b", "a b", nil},
		{"%41%62", "Ab", nil},
		{"%4", "", grammar.ErrMalformedInput},
		{"%zz", "", grammar.ErrMalformedInput},
	}

	for _, c := range cases {
		t.Run(c.in, func(t *testing.T) {
			t.Parallel()

			got, err := grammar.Unescape(c.in)
			if diff := cmp.Diff(err, c.wantErr, cmpopts.EquateErrors()); diff != "" {
				t.Errorf("grammar.Unescape(%q) error = %v, want %v\ndiff (-got +want):\n%v", c.in, err, c.wantErr, diff)
			}
			if got != c.want {
				t.Errorf("grammar.Unescape(%q) = %q, want %q", c.in, got, c.want)
			}
			if err != nil && !errorutil.IsGrammarErr(err) {
				t.Errorf("errorutil.IsGrammarErr(%v) = false, want true", err)
			}
		})
	}
}

func TestIsTelNum(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]bool{
		"+1-212-555-0101": true,
		"7042":            true,
		"+":               false,
		"":                false,
		"12a":             true,
		"+12a":            false,
		"1 2":             false,
	} {
		if got := grammar.IsTelNum(in); got != want {
			t.Errorf("grammar.IsTelNum(%q) = %v, want %v", in, got, want)
		}
	}
}
