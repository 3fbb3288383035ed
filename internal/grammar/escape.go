package grammar

import (
	"github.com/tmnsur/jsip-sub002/internal/util"
)

const upperHex = "0123456789ABCDEF"

// Escape percent-encodes every byte of s that is not accepted by keep.
func Escape(s string, keep func(byte) bool) string {
	n := 0
	for i := range len(s) {
		if !keep(s[i]) {
			n++
		}
	}
	if n == 0 {
		return s
	}

	sb := util.GetStringBuilder()
	defer util.FreeStringBuilder(sb)
	sb.Grow(len(s) + 2*n)
	for i := range len(s) {
		c := s[i]
		if keep(c) {
			sb.WriteByte(c)
			continue
		}
		sb.WriteByte('%')
		sb.WriteByte(upperHex[c>>4])
		sb.WriteByte(upperHex[c&0x0f])
	}
	return sb.String()
}

// Unescape decodes all "%" HEX HEX triplets of s.
// It fails with [ErrMalformedInput] on a truncated or non-hex triplet.
func Unescape(s string) (string, error) {
	var n int
	for i := 0; i < len(s); i++ {
		if s[i] != '%' {
			continue
		}
		if i+2 >= len(s) || !IsHexDigit(s[i+1]) || !IsHexDigit(s[i+2]) {
			return "", ErrMalformedInput //errtrace:skip
		}
		n++
		i += 2
	}
	if n == 0 {
		return s, nil
	}

	b := make([]byte, 0, len(s)-2*n)
	for i := 0; i < len(s); i++ {
		if s[i] == '%' {
			b = append(b, UnhexPair(s[i+1], s[i+2]))
			i += 2
			continue
		}
		b = append(b, s[i])
	}
	return string(b), nil
}

// UnhexPair decodes two hex digits into a byte. Both digits must be valid.
func UnhexPair(hi, lo byte) byte { return unhex(hi)<<4 | unhex(lo) }

func unhex(c byte) byte {
	switch {
	case '0' <= c && c <= '9':
		return c - '0'
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10
	default:
		return c - 'A' + 10
	}
}
