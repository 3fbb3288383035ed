package syntax

import (
	"strings"

	"braces.dev/errtrace"
)

// AddrForm is a form of an address production.
type AddrForm uint8

const (
	AddrFormUnknown AddrForm = iota
	// AddrFormNameAddr is "[ display-name ] < URI >".
	AddrFormNameAddr
	// AddrFormAddrSpec is a bare URI.
	AddrFormAddrSpec
)

// addrScanLimit bounds the lookahead of [ScanAddress].
const addrScanLimit = 1024

// ScanAddress classifies the address starting at the cursor without consuming input.
// It looks for the first of '<', '"', ':' or '/': the first two start a name-addr,
// the others a bare URI.
func ScanAddress(l *Lexer) AddrForm {
	switch c, _ := l.ScanAny(`<":/`, addrScanLimit); c {
	case '<', '"':
		return AddrFormNameAddr
	case ':', '/':
		return AddrFormAddrSpec
	default:
		return AddrFormUnknown
	}
}

// Address is a name-addr or addr-spec split into the display name and the raw URI text.
type Address struct {
	Display       string
	DisplayQuoted bool
	URI           string
	// Bracketed is true for the name-addr form.
	Bracketed bool
}

// ParseAddress parses a name-addr or addr-spec.
// The URI of the bare form ends before the first ';', ',' or whitespace,
// the following parameters belong to the enclosing header.
func ParseAddress(l *Lexer) (Address, error) {
	start := l.Mark()
	l.SkipLWS()

	switch ScanAddress(l) {
	case AddrFormNameAddr:
		addr, err := parseNameAddr(l)
		if err != nil {
			l.Rewind(start)
			return Address{}, errtrace.Wrap(err)
		}
		return addr, nil
	case AddrFormAddrSpec:
		from := l.Mark()
		for c := l.Peek(); !l.EOF() && !strings.ContainsRune(";, \t\r\n", rune(c)); c = l.Peek() {
			l.Advance(1)
		}
		uri := l.Input()[from:l.Pos()]
		if uri == "" {
			l.Rewind(start)
			return Address{}, errtrace.Wrap(l.Errorf("empty URI"))
		}
		return Address{URI: uri}, nil
	default:
		err := l.Errorf("expected name-addr or addr-spec")
		l.Rewind(start)
		return Address{}, errtrace.Wrap(err)
	}
}

func parseNameAddr(l *Lexer) (Address, error) {
	var addr Address
	addr.Bracketed = true

	prev := l.SelectMode(ModeToken)
	defer l.SelectMode(prev)

	if l.Peek() == '"' {
		display, err := l.QuotedString()
		if err != nil {
			return Address{}, errtrace.Wrap(err)
		}
		addr.Display, addr.DisplayQuoted = display, true
		l.SkipLWS()
	} else {
		var words []string
		for l.Peek() != '<' {
			w, err := l.Ident()
			if err != nil {
				return Address{}, errtrace.Wrap(err)
			}
			words = append(words, w)
			l.SkipLWS()
		}
		addr.Display = strings.Join(words, " ")
	}

	if err := l.MatchByte('<'); err != nil {
		return Address{}, errtrace.Wrap(err)
	}
	from := l.Mark()
	for l.Peek() != '>' {
		if l.EOF() || l.Peek() == '<' {
			return Address{}, errtrace.Wrap(l.Errorf("unterminated URI, expected '>'"))
		}
		l.Advance(1)
	}
	addr.URI = l.Input()[from:l.Pos()]
	l.Advance(1)
	if addr.URI == "" {
		return Address{}, errtrace.Wrap(l.Errorf("empty URI"))
	}
	return addr, nil
}
