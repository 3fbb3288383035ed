package syntax

import (
	"strconv"

	"braces.dev/errtrace"

	"github.com/tmnsur/jsip-sub002/internal/grammar"
	"github.com/tmnsur/jsip-sub002/internal/types"
)

// ParseNameValue parses "name [sep value]" where value is a quoted string or
// an identifier of the lexer's mode.
//
// Without the separator the result is a flag parameter.
// When the value after the separator fails to parse, the cursor is left just after the separator
// and a name-only parameter is returned without an error, so lenient senders are still understood.
func ParseNameValue(l *Lexer, sep byte) (types.NameValue, error) {
	start := l.Mark()
	name, err := l.Unescaped()
	if err != nil {
		l.Rewind(start)
		return types.NameValue{}, errtrace.Wrap(err)
	}
	if !l.Sep(sep) {
		return types.Flag(name), nil
	}

	afterSep := l.Mark()
	mode := l.mode
	if mode.Quotable() && l.Peek() == '"' {
		if v, err := l.QuotedString(); err == nil {
			return types.QuotedPair(name, v), nil
		}
		l.Rewind(afterSep)
		return types.NameValue{Name: name}, nil
	}

	l.SelectMode(mode.valueMode())
	v, err := l.Unescaped()
	l.SelectMode(mode)
	if err != nil {
		l.Rewind(afterSep)
		return types.NameValue{Name: name}, nil
	}
	return types.Pair(name, v), nil
}

// ParseParams parses "*( lead name-value )", e.g. ";transport=tcp;lr".
// Names are case-insensitive and the last value of a repeated name wins.
// Parsing stops before the first lead byte that isn't followed by a parameter name.
func ParseParams(l *Lexer, lead, sep byte) (types.Params, error) {
	var ps types.Params
	for {
		m := l.Mark()
		if !l.Sep(lead) {
			return ps, nil
		}
		nv, err := ParseNameValue(l, sep)
		if err != nil {
			l.Rewind(m)
			return ps, errtrace.Wrap(err)
		}
		ps = ps.Set(nv)
	}
}

// ParseMultiParams parses "[lead] name-value *( delim name-value )" keeping repeated names,
// e.g. "?a=1&a=2" (lead '?', delim '&') or `realm="x", nonce="y"` (no lead, delim ',').
// A zero lead means the list starts right at the cursor.
func ParseMultiParams(l *Lexer, lead, delim, sep byte) (types.MultiParams, error) {
	start := l.Mark()
	if lead != 0 && !l.Sep(lead) {
		return nil, nil
	}

	var ps types.MultiParams
	for {
		nv, err := ParseNameValue(l, sep)
		if err != nil {
			l.Rewind(start)
			return nil, errtrace.Wrap(err)
		}
		ps = ps.Add(nv)
		if !l.Sep(delim) {
			return ps, nil
		}
	}
}

// ParseHostPort parses "host [ ':' port ]" where host is a hostname, an IPv4 address or
// a bracketed IPv6 reference.
func ParseHostPort(l *Lexer) (types.Addr, error) {
	start := l.Mark()

	var host string
	if l.Peek() == '[' {
		end := l.Mark()
		for l.Peek() != ']' && !l.EOF() {
			l.Advance(1)
		}
		if !l.Accept(']') {
			l.Rewind(start)
			return types.Addr{}, errtrace.Wrap(l.Errorf("unterminated IPv6 reference"))
		}
		host = l.Input()[end:l.Pos()]
	} else {
		for c := l.Peek(); grammar.IsAlphanum(c) || c == '-' || c == '.'; c = l.Peek() {
			l.Advance(1)
		}
		host = l.Input()[start:l.Pos()]
	}

	addr := types.Host(host)
	if !addr.IsValid() {
		l.Rewind(start)
		return types.Addr{}, errtrace.Wrap(l.Errorf("invalid host %q", host))
	}

	if l.Accept(':') {
		digits, err := l.Digits()
		if err != nil {
			l.Rewind(start)
			return types.Addr{}, errtrace.Wrap(err)
		}
		port, err := strconv.ParseUint(digits, 10, 16)
		if err != nil {
			l.Rewind(start)
			return types.Addr{}, errtrace.Wrap(l.Errorf("invalid port %q", digits))
		}
		addr = addr.WithPort(uint16(port))
	}
	return addr, nil
}

// ParseUint parses a non-empty run of digits as an unsigned integer of the given bit size.
func ParseUint(l *Lexer, bitSize int) (uint64, error) {
	start := l.Mark()
	digits, err := l.Digits()
	if err != nil {
		return 0, errtrace.Wrap(err)
	}
	n, err := strconv.ParseUint(digits, 10, bitSize)
	if err != nil {
		l.Rewind(start)
		return 0, errtrace.Wrap(l.Errorf("number %q out of range", digits))
	}
	return n, nil
}
