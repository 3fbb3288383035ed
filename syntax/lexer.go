// Package syntax implements the recursive-descent building blocks of the SIP grammar:
// a mode-switching [Lexer] with lookahead and backtracking, and the primitives
// shared by the header and URI parsers (name-value pairs, parameter lists, addresses).
package syntax

//go:generate go tool errtrace -w .

import (
	"fmt"
	"strings"

	"github.com/tmnsur/jsip-sub002/internal/grammar"
	"github.com/tmnsur/jsip-sub002/internal/util"
)

// TokenKind is a kind of a lexical token.
type TokenKind uint8

const (
	TokenEOF TokenKind = iota
	// TokenIdent is a run of identifier characters of the current mode.
	TokenIdent
	// TokenQuoted is a quoted string, the text is unquoted.
	TokenQuoted
	// TokenSpace is a run of linear whitespace.
	TokenSpace
	// TokenSep is any other single byte.
	TokenSep
)

func (k TokenKind) String() string {
	switch k {
	case TokenEOF:
		return "EOF"
	case TokenIdent:
		return "identifier"
	case TokenQuoted:
		return "quoted string"
	case TokenSpace:
		return "whitespace"
	case TokenSep:
		return "separator"
	default:
		return "unknown"
	}
}

// Token is a lexical token produced by the [Lexer].
type Token struct {
	Kind TokenKind
	Text string
	// Pos is the byte offset of the token in the input.
	Pos int
}

// Error is a grammar error tagged with the byte offset it happened at.
type Error struct {
	Pos   int
	Msg   string
	Input string
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("syntax error at offset %d: %s (near %q)", e.Pos, e.Msg, near(e.Input, e.Pos))
}

func (*Error) Grammar() bool { return true }

func (*Error) Unwrap() error { return grammar.ErrMalformedInput }

func near(s string, pos int) string {
	start, end := max(pos-10, 0), min(pos+10, len(s))
	if start > end {
		return ""
	}
	return s[start:end]
}

// Lexer is a cursor over an immutable input.
//
// Only the Match* methods and the productions built on them fail,
// lookahead never fails and returns 0 past the end of input.
// A Lexer is not safe for concurrent use.
type Lexer struct {
	in   string
	pos  int
	mode Mode
}

// NewLexer returns a lexer positioned at the start of s in [ModeToken].
func NewLexer[T ~string | ~[]byte](s T) *Lexer { return &Lexer{in: string(s)} }

// Mode returns the current mode.
func (l *Lexer) Mode() Mode { return l.mode }

// SelectMode switches the mode and returns the previous one.
func (l *Lexer) SelectMode(m Mode) Mode {
	prev := l.mode
	l.mode = m
	return prev
}

// Pos returns the current byte offset.
func (l *Lexer) Pos() int { return l.pos }

// Input returns the whole input.
func (l *Lexer) Input() string { return l.in }

// EOF reports whether the whole input is consumed.
func (l *Lexer) EOF() bool { return l.pos >= len(l.in) }

// Remaining returns the number of bytes left.
func (l *Lexer) Remaining() int { return max(len(l.in)-l.pos, 0) }

// Rest returns the unconsumed input without consuming it.
func (l *Lexer) Rest() string {
	if l.EOF() {
		return ""
	}
	return l.in[l.pos:]
}

// Mark returns the current position for a later [Lexer.Rewind].
func (l *Lexer) Mark() int { return l.pos }

// Rewind moves the cursor back to the mark.
func (l *Lexer) Rewind(mark int) { l.pos = min(max(mark, 0), len(l.in)) }

// Advance skips n bytes.
func (l *Lexer) Advance(n int) { l.pos = min(l.pos+n, len(l.in)) }

// Peek returns the current byte or 0 at the end of input.
func (l *Lexer) Peek() byte { return l.LookAhead(0) }

// LookAhead returns the byte k positions ahead of the cursor or 0 past the end of input.
func (l *Lexer) LookAhead(k int) byte {
	if i := l.pos + k; i >= 0 && i < len(l.in) {
		return l.in[i]
	}
	return 0
}

// ScanAny returns the first byte of chars found within limit bytes ahead of the cursor
// and its distance from the cursor. It returns 0 and -1 when none is found.
// A limit <= 0 scans up to the end of input.
func (l *Lexer) ScanAny(chars string, limit int) (byte, int) {
	rest := l.Rest()
	if limit > 0 && limit < len(rest) {
		rest = rest[:limit]
	}
	if i := strings.IndexAny(rest, chars); i >= 0 {
		return rest[i], i
	}
	return 0, -1
}

// Errorf returns a grammar error at the current position.
func (l *Lexer) Errorf(format string, args ...any) *Error {
	return &Error{Pos: l.pos, Msg: fmt.Sprintf(format, args...), Input: l.in}
}

// Next consumes and returns the next token according to the current mode.
func (l *Lexer) Next() Token {
	start := l.pos
	c := l.Peek()
	switch {
	case l.EOF():
		return Token{Kind: TokenEOF, Pos: start}
	case c == '"' && l.mode.Quotable():
		if s, err := l.QuotedString(); err == nil {
			return Token{Kind: TokenQuoted, Text: s, Pos: start}
		}
		l.Rewind(start)
		l.pos++
		return Token{Kind: TokenSep, Text: `"`, Pos: start}
	case l.mode.Accepts(c):
		return Token{Kind: TokenIdent, Text: l.run(l.mode), Pos: start}
	case grammar.IsWS(c):
		for grammar.IsWS(l.Peek()) {
			l.pos++
		}
		return Token{Kind: TokenSpace, Text: l.in[start:l.pos], Pos: start}
	default:
		l.pos++
		return Token{Kind: TokenSep, Text: l.in[start:l.pos], Pos: start}
	}
}

// Match consumes the next token and fails if it is not of the expected kind.
// On failure the cursor is not moved.
func (l *Lexer) Match(kind TokenKind) (Token, error) {
	start := l.pos
	tok := l.Next()
	if tok.Kind != kind {
		l.Rewind(start)
		return Token{}, l.Errorf("expected %s, got %s %q", kind, tok.Kind, tok.Text) //errtrace:skip
	}
	return tok, nil
}

// MatchByte consumes the expected byte.
func (l *Lexer) MatchByte(b byte) error {
	if l.Peek() != b || l.EOF() {
		return l.Errorf("expected %q", b) //errtrace:skip
	}
	l.pos++
	return nil
}

// MatchString consumes the expected string, compared case-insensitively.
func (l *Lexer) MatchString(s string) error {
	if !util.HasPrefixFold(l.Rest(), s) {
		return l.Errorf("expected %q", s) //errtrace:skip
	}
	l.pos += len(s)
	return nil
}

// Accept consumes b if it is the current byte.
func (l *Lexer) Accept(b byte) bool {
	if l.EOF() || l.Peek() != b {
		return false
	}
	l.pos++
	return true
}

func (l *Lexer) run(m Mode) string {
	start := l.pos
	for l.pos < len(l.in) && m.Accepts(l.in[l.pos]) {
		l.pos++
	}
	return l.in[start:l.pos]
}

// Ident consumes a non-empty run of identifier characters of the current mode.
// Escapes are returned as is, see [Lexer.Unescaped].
func (l *Lexer) Ident() (string, error) {
	if s := l.run(l.mode); s != "" {
		return s, nil
	}
	return "", l.Errorf("expected %s", l.mode) //errtrace:skip
}

// Unescaped consumes a non-empty identifier of the current mode decoding "%" HEX HEX escapes.
func (l *Lexer) Unescaped() (string, error) {
	start := l.pos
	if !l.mode.Escaped() {
		return l.Ident() //errtrace:skip
	}

	var sb *strings.Builder
	from := l.pos
	for !l.EOF() && l.mode.Accepts(l.Peek()) {
		if l.Peek() != '%' {
			l.pos++
			continue
		}
		if sb == nil {
			sb = util.GetStringBuilder()
			defer util.FreeStringBuilder(sb)
		}
		sb.WriteString(l.in[from:l.pos])
		b, err := l.EscapedTriplet()
		if err != nil {
			l.Rewind(start)
			return "", err //errtrace:skip
		}
		sb.WriteByte(b)
		from = l.pos
	}
	if l.pos == start {
		return "", l.Errorf("expected %s", l.mode) //errtrace:skip
	}
	if sb == nil {
		return l.in[start:l.pos], nil
	}
	sb.WriteString(l.in[from:l.pos])
	return sb.String(), nil
}

// EscapedTriplet consumes exactly "%" HEX HEX and returns the decoded byte.
func (l *Lexer) EscapedTriplet() (byte, error) {
	if l.Peek() != '%' || !grammar.IsHexDigit(l.LookAhead(1)) || !grammar.IsHexDigit(l.LookAhead(2)) {
		return 0, l.Errorf("malformed escape sequence") //errtrace:skip
	}
	b := grammar.UnhexPair(l.LookAhead(1), l.LookAhead(2))
	l.pos += 3
	return b, nil
}

// QuotedString consumes a quoted string and returns its unquoted content.
// Quoted pairs are resolved.
func (l *Lexer) QuotedString() (string, error) {
	start := l.pos
	if err := l.MatchByte('"'); err != nil {
		return "", err //errtrace:skip
	}

	sb := util.GetStringBuilder()
	defer util.FreeStringBuilder(sb)
	for {
		c := l.Peek()
		switch {
		case l.EOF():
			l.Rewind(start)
			return "", l.Errorf("unterminated quoted string") //errtrace:skip
		case c == '"':
			l.pos++
			return sb.String(), nil
		case c == '\\':
			n := l.LookAhead(1)
			if l.Remaining() < 2 || n == '\r' || n == '\n' || n > 0x7f {
				err := l.Errorf("malformed quoted pair")
				l.Rewind(start)
				return "", err //errtrace:skip
			}
			sb.WriteByte(n)
			l.pos += 2
		case grammar.IsQDText(c) || grammar.IsWS(c):
			sb.WriteByte(c)
			l.pos++
		case c == '\r' || c == '\n':
			// folded line inside the quoted string
			m := l.pos
			if l.skipFold() {
				sb.WriteByte(' ')
				continue
			}
			l.Rewind(m)
			err := l.Errorf("unexpected line break in quoted string")
			l.Rewind(start)
			return "", err //errtrace:skip
		default:
			err := l.Errorf("unexpected byte %q in quoted string", c)
			l.Rewind(start)
			return "", err //errtrace:skip
		}
	}
}

// SkipWS skips spaces and tabs and returns the number of skipped bytes.
func (l *Lexer) SkipWS() int {
	start := l.pos
	for grammar.IsWS(l.Peek()) {
		l.pos++
	}
	return l.pos - start
}

// skipFold consumes a line break followed by whitespace.
func (l *Lexer) skipFold() bool {
	m := l.pos
	if l.Accept('\r') {
		l.Accept('\n')
	} else if !l.Accept('\n') {
		return false
	}
	if l.SkipWS() == 0 {
		l.Rewind(m)
		return false
	}
	return true
}

// SkipLWS skips linear whitespace including folded continuation lines.
func (l *Lexer) SkipLWS() int {
	start := l.pos
	for l.SkipWS() > 0 || l.skipFold() { //nolint:revive
	}
	return l.pos - start
}

// Sep consumes the separator byte b.
// In modes allowing whitespace the byte may be surrounded by linear whitespace.
// On failure the cursor is not moved.
func (l *Lexer) Sep(b byte) bool {
	m := l.pos
	lws := l.mode.LWS()
	if lws {
		l.SkipLWS()
	}
	if !l.Accept(b) {
		l.Rewind(m)
		return false
	}
	if lws {
		l.SkipLWS()
	}
	return true
}

// Digits consumes a non-empty run of decimal digits.
func (l *Lexer) Digits() (string, error) {
	if s := l.run(ModeDigit); s != "" {
		return s, nil
	}
	return "", l.Errorf("expected digits") //errtrace:skip
}

// ExpectEOF fails if any input except trailing whitespace is left.
func (l *Lexer) ExpectEOF() error {
	m := l.pos
	l.SkipLWS()
	if !l.EOF() {
		err := l.Errorf("unexpected trailing input %q", util.Ellipsis(l.Rest(), 20))
		l.Rewind(m)
		return err //errtrace:skip
	}
	return nil
}
