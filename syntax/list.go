package syntax

import "strings"

// SplitList splits a header value by the delimiter skipping delimiters
// inside quoted strings, angle brackets and parentheses.
// Parts are trimmed, empty parts are dropped.
func SplitList(s string, delim byte) []string {
	var (
		parts         []string
		quoted        bool
		angle, parens int
		from          int
	)
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quoted && c == '\\':
			i++
		case c == '"':
			quoted = !quoted
		case quoted:
		case c == '<':
			angle++
		case c == '>' && angle > 0:
			angle--
		case c == '(':
			parens++
		case c == ')' && parens > 0:
			parens--
		case c == delim && angle == 0 && parens == 0:
			if p := strings.TrimSpace(s[from:i]); p != "" {
				parts = append(parts, p)
			}
			from = i + 1
		}
	}
	if p := strings.TrimSpace(s[from:]); p != "" {
		parts = append(parts, p)
	}
	return parts
}
