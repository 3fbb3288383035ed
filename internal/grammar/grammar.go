// Package grammar contains character classes and validation helpers of the SIP grammar (RFC 3261 section 25).
package grammar

//go:generate go tool errtrace -w .

import (
	"net"
	"strings"

	"github.com/miekg/dns"

	"github.com/tmnsur/jsip-sub002/internal/util"
)

// Error is a grammar error.
// Any error with a Grammar() method returning true is a grammar error, see [errorutil.IsGrammarErr].
type Error string

func (e Error) Error() string { return string(e) }

func (Error) Grammar() bool { return true }

const (
	ErrEmptyInput     Error = "empty input"
	ErrMalformedInput Error = "malformed input"
)

func IsToken[T ~string | ~[]byte](s T) bool {
	if len(s) == 0 {
		return false
	}
	for i := range len(s) {
		if !IsTokenChar(s[i]) {
			return false
		}
	}
	return true
}

func IsWord[T ~string | ~[]byte](s T) bool {
	if len(s) == 0 {
		return false
	}
	for i := range len(s) {
		if !IsWordChar(s[i]) {
			return false
		}
	}
	return true
}

// IsCallID reports whether s matches "word [ @ word ]".
func IsCallID[T ~string | ~[]byte](s T) bool {
	word, host, found := strings.Cut(string(s), "@")
	return IsWord(word) && (!found || IsWord(host))
}

// IsHost reports whether s is a hostname, an IPv4 address or an IPv6 reference.
func IsHost[T ~string | ~[]byte](s T) bool {
	h := string(s)
	if h == "" {
		return false
	}
	if h[0] == '[' {
		return len(h) > 2 && h[len(h)-1] == ']' && net.ParseIP(h[1:len(h)-1]) != nil
	}
	if net.ParseIP(h) != nil {
		return true
	}
	for i := range len(h) {
		if c := h[i]; !IsAlphanum(c) && c != '-' && c != '.' {
			return false
		}
	}
	// the top label of a hostname must start with a letter
	top := strings.TrimSuffix(h, ".")
	if i := strings.LastIndexByte(top, '.'); i >= 0 {
		top = top[i+1:]
	}
	if top == "" || !IsAlpha(top[0]) {
		return false
	}
	_, ok := dns.IsDomainName(h)
	return ok
}

func IsQuoted[T ~string | ~[]byte](s T) bool {
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return false
	}
	for i := 1; i < len(s)-1; i++ {
		c := s[i]
		switch {
		case c == '\\':
			if i++; i >= len(s)-1 || s[i] == '\r' || s[i] == '\n' || s[i] > 0x7f {
				return false
			}
		case !IsQDText(c):
			return false
		}
	}
	return true
}

// Quote wraps s into double quotes escaping backslashes and quotes.
func Quote(s string) string {
	sb := util.GetStringBuilder()
	defer util.FreeStringBuilder(sb)

	sb.WriteByte('"')
	for i := range len(s) {
		if s[i] == '"' || s[i] == '\\' {
			sb.WriteByte('\\')
		}
		sb.WriteByte(s[i])
	}
	sb.WriteByte('"')
	return sb.String()
}

// Unquote removes surrounding double quotes and resolves quoted pairs.
// If s is not a valid quoted string, it is returned as is.
func Unquote(s string) string {
	if !IsQuoted(s) {
		return s
	}
	s = s[1 : len(s)-1]
	if strings.IndexByte(s, '\\') < 0 {
		return s
	}

	sb := util.GetStringBuilder()
	defer util.FreeStringBuilder(sb)
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			i++
		}
		sb.WriteByte(s[i])
	}
	return sb.String()
}

// NeedsQuote reports whether s can't be written as a bare token and must be quoted.
func NeedsQuote(s string) bool { return !IsToken(s) }

// IsTelNum reports whether s looks like a global ("+" digits) or local telephone number
// with optional visual separators.
func IsTelNum[T ~string | ~[]byte](s T) bool {
	if len(s) == 0 {
		return false
	}
	start, digits := 0, 0
	if s[0] == '+' {
		start = 1
	}
	for i := start; i < len(s); i++ {
		switch c := s[i]; {
		case IsDigit(c):
			digits++
		case c == '-' || c == '.' || c == '(' || c == ')':
		case start == 0 && (IsHexDigit(c) || c == '*' || c == '#'):
			digits++
		default:
			return false
		}
	}
	return digits > 0
}
