package syntax_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/tmnsur/jsip-sub002/internal/errorutil"
	"github.com/tmnsur/jsip-sub002/internal/grammar"
	"github.com/tmnsur/jsip-sub002/syntax"
)

func TestLexer_LookAhead(t *testing.T) {
	t.Parallel()

	l := syntax.NewLexer("ab")
	if got := l.LookAhead(1); got != 'b' {
		t.Errorf("l.LookAhead(1) = %q, want 'b'", got)
	}
	if got := l.LookAhead(5); got != 0 {
		t.Errorf("l.LookAhead(5) = %q, want 0", got)
	}
	l.Advance(2)
	if !l.EOF() {
		t.Error("l.EOF() = false, want true")
	}
	if got := l.Peek(); got != 0 {
		t.Errorf("l.Peek() at EOF = %q, want 0", got)
	}
	if got := l.LookAhead(-10); got != 0 {
		t.Errorf("l.LookAhead(-10) = %q, want 0", got)
	}
}

func TestLexer_Next(t *testing.T) {
	t.Parallel()

	l := syntax.NewLexer(`Digest  realm="a\"b";x`)
	var got []syntax.Token
	for {
		tok := l.Next()
		if tok.Kind == syntax.TokenEOF {
			break
		}
		got = append(got, tok)
	}

	want := []syntax.Token{
		{Kind: syntax.TokenIdent, Text: "Digest", Pos: 0},
		{Kind: syntax.TokenSpace, Text: "  ", Pos: 6},
		{Kind: syntax.TokenIdent, Text: "realm", Pos: 8},
		{Kind: syntax.TokenSep, Text: "=", Pos: 13},
		{Kind: syntax.TokenQuoted, Text: `a"b`, Pos: 14},
		{Kind: syntax.TokenSep, Text: ";", Pos: 20},
		{Kind: syntax.TokenIdent, Text: "x", Pos: 21},
	}
	if diff := cmp.Diff(got, want); diff != "" {
		t.Errorf("tokens mismatch\ndiff (-got +want):\n%v", diff)
	}
}

func TestLexer_SelectMode(t *testing.T) {
	t.Parallel()

	in := "alice;x=1@a.com"
	l := syntax.NewLexer(in)
	tok, err := l.Match(syntax.TokenIdent)
	if err != nil {
		t.Fatalf("l.Match(ident) error = %v, want nil", err)
	}
	if tok.Text != "alice" {
		t.Errorf("token mode ident = %q, want \"alice\"", tok.Text)
	}

	l.Rewind(0)
	if prev := l.SelectMode(syntax.ModeUser); prev != syntax.ModeToken {
		t.Errorf("l.SelectMode() = %v, want %v", prev, syntax.ModeToken)
	}
	user, err := l.Ident()
	if err != nil {
		t.Fatalf("l.Ident() error = %v, want nil", err)
	}
	if user != "alice;x=1" {
		t.Errorf("user mode ident = %q, want \"alice;x=1\"", user)
	}
}

func TestLexer_Match(t *testing.T) {
	t.Parallel()

	l := syntax.NewLexer("INVITE sip")
	if _, err := l.Match(syntax.TokenIdent); err != nil {
		t.Fatalf("l.Match(ident) error = %v, want nil", err)
	}

	_, err := l.Match(syntax.TokenIdent)
	var serr *syntax.Error
	if !errors.As(err, &serr) {
		t.Fatalf("l.Match(ident) error = %v, want *syntax.Error", err)
	}
	if serr.Pos != 6 {
		t.Errorf("error offset = %d, want 6", serr.Pos)
	}
	if l.Pos() != 6 {
		t.Errorf("l.Pos() after failed match = %d, want 6", l.Pos())
	}
	if !errorutil.IsGrammarErr(err) {
		t.Error("errorutil.IsGrammarErr(err) = false, want true")
	}
	if !errors.Is(err, grammar.ErrMalformedInput) {
		t.Error("errors.Is(err, grammar.ErrMalformedInput) = false, want true")
	}

	if err := l.MatchByte(' '); err != nil {
		t.Errorf("l.MatchByte(' ') error = %v, want nil", err)
	}
	if err := l.MatchString("SIP"); err != nil {
		t.Errorf("l.MatchString(\"SIP\") error = %v, want nil", err)
	}
	if err := l.MatchByte(':'); err == nil {
		t.Error("l.MatchByte(':') at EOF error = nil, want error")
	}
}

func TestLexer_MarkRewind(t *testing.T) {
	t.Parallel()

	l := syntax.NewLexer("abc;def")
	m := l.Mark()
	if _, err := l.Ident(); err != nil {
		t.Fatalf("l.Ident() error = %v, want nil", err)
	}
	if got := l.Rest(); got != ";def" {
		t.Errorf("l.Rest() = %q, want \";def\"", got)
	}
	l.Rewind(m)
	if got := l.Rest(); got != "abc;def" {
		t.Errorf("l.Rest() after rewind = %q, want \"abc;def\"", got)
	}
}

func TestLexer_QuotedString(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		in      string
		want    string
		wantPos int
		wantErr bool
	}{
		{"simple", `"Bob"`, "Bob", 5, false},
		{"quoted pair", `"a\\b\"c" rest`, `a\b"c`, 9, false},
		{"utf8", `"Агент"`, "Агент", len(`"Агент"`), false},
		{"folded", "\"a\r\n b\"", "a b", 7, false},
		{"unterminated", `"abc`, "", 0, true},
		{"bare line break", "\"a\r\nb\"", "", 0, true},
		{"not quoted", `abc`, "", 0, true},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()

			l := syntax.NewLexer(c.in)
			got, err := l.QuotedString()
			if (err != nil) != c.wantErr {
				t.Fatalf("l.QuotedString() error = %v, want error %v", err, c.wantErr)
			}
			if got != c.want {
				t.Errorf("l.QuotedString() = %q, want %q", got, c.want)
			}
			if l.Pos() != c.wantPos {
				t.Errorf("l.Pos() = %d, want %d", l.Pos(), c.wantPos)
			}
		})
	}
}

func TestLexer_EscapedTriplet(t *testing.T) {
	t.Parallel()

	l := syntax.NewLexer("%41%4x")
	b, err := l.EscapedTriplet()
	if err != nil || b != 'A' {
		t.Fatalf("l.EscapedTriplet() = %q, %v, want 'A', nil", b, err)
	}
	if _, err := l.EscapedTriplet(); err == nil {
		t.Errorf("l.EscapedTriplet() on %q error = nil, want error", "%4x")
	}
	if l.Pos() != 3 {
		t.Errorf("l.Pos() = %d, want 3", l.Pos())
	}
}

func TestLexer_Unescaped(t *testing.T) {
	t.Parallel()

	l := syntax.NewLexer("bob%20smith@host")
	l.SelectMode(syntax.ModeUser)
	got, err := l.Unescaped()
	if err != nil {
		t.Fatalf("l.Unescaped() error = %v, want nil", err)
	}
	if got != "bob smith" {
		t.Errorf("l.Unescaped() = %q, want \"bob smith\"", got)
	}
	if l.Peek() != '@' {
		t.Errorf("l.Peek() = %q, want '@'", l.Peek())
	}

	l = syntax.NewLexer("bad%zz")
	l.SelectMode(syntax.ModeUser)
	if _, err := l.Unescaped(); err == nil {
		t.Error("l.Unescaped() on bad escape error = nil, want error")
	}
	if l.Pos() != 0 {
		t.Errorf("l.Pos() after failure = %d, want 0", l.Pos())
	}
}

func TestLexer_Sep(t *testing.T) {
	t.Parallel()

	l := syntax.NewLexer("a \r\n ; b")
	l.Advance(1)
	if !l.Sep(';') {
		t.Fatal("l.Sep(';') = false, want true")
	}
	if got := l.Rest(); got != "b" {
		t.Errorf("l.Rest() = %q, want \"b\"", got)
	}

	l = syntax.NewLexer("a ;b")
	l.SelectMode(syntax.ModeParam)
	l.Advance(1)
	if l.Sep(';') {
		t.Error("l.Sep(';') in URI mode with whitespace = true, want false")
	}
	if l.Pos() != 1 {
		t.Errorf("l.Pos() = %d, want 1", l.Pos())
	}
}

func TestLexer_ExpectEOF(t *testing.T) {
	t.Parallel()

	l := syntax.NewLexer("abc  ")
	l.Advance(3)
	if err := l.ExpectEOF(); err != nil {
		t.Errorf("l.ExpectEOF() error = %v, want nil", err)
	}

	l = syntax.NewLexer("abc x")
	l.Advance(3)
	if err := l.ExpectEOF(); err == nil {
		t.Error("l.ExpectEOF() error = nil, want error")
	}
}
