package syntax

import "github.com/tmnsur/jsip-sub002/internal/grammar"

// Mode selects which bytes the [Lexer] treats as identifier characters.
type Mode uint8

const (
	// ModeToken accepts RFC 3261 token characters.
	ModeToken Mode = iota
	// ModeGenValue accepts token and host characters, used for generic parameter values.
	ModeGenValue
	// ModeWord accepts Call-ID word characters.
	ModeWord
	// ModeHost accepts hostname, IPv4 and bracketed IPv6 characters.
	ModeHost
	// ModeUser accepts URI userinfo characters and escapes.
	ModeUser
	// ModePassword accepts URI password characters and escapes.
	ModePassword
	// ModeParam accepts URI parameter characters and escapes.
	ModeParam
	// ModeHeaderChar accepts URI header characters and escapes.
	ModeHeaderChar
	// ModeDigit accepts decimal digits.
	ModeDigit
	// ModeMethod accepts request method characters.
	ModeMethod
	// ModeText accepts everything except CR and LF.
	ModeText
)

var modeNames = [...]string{
	ModeToken:      "token",
	ModeGenValue:   "gen-value",
	ModeWord:       "word",
	ModeHost:       "host",
	ModeUser:       "user",
	ModePassword:   "password",
	ModeParam:      "param",
	ModeHeaderChar: "header-char",
	ModeDigit:      "digit",
	ModeMethod:     "method",
	ModeText:       "text",
}

func (m Mode) String() string {
	if int(m) < len(modeNames) {
		return modeNames[m]
	}
	return "unknown"
}

// Accepts reports whether c is an identifier character in the mode.
func (m Mode) Accepts(c byte) bool {
	switch m {
	case ModeToken, ModeMethod:
		return grammar.IsTokenChar(c)
	case ModeGenValue:
		return grammar.IsTokenChar(c) || c == ':' || c == '[' || c == ']'
	case ModeWord:
		return grammar.IsWordChar(c)
	case ModeHost:
		return grammar.IsHostChar(c)
	case ModeUser:
		return grammar.IsUserChar(c) || c == '%'
	case ModePassword:
		return grammar.IsPasswordChar(c) || c == '%'
	case ModeParam:
		return grammar.IsParamChar(c) || c == '%'
	case ModeHeaderChar:
		return grammar.IsHeaderChar(c) || c == '%'
	case ModeDigit:
		return grammar.IsDigit(c)
	case ModeText:
		return c != '\r' && c != '\n'
	default:
		return false
	}
}

// Escaped reports whether identifiers of the mode may contain "%" HEX HEX escapes.
func (m Mode) Escaped() bool {
	switch m {
	case ModeUser, ModePassword, ModeParam, ModeHeaderChar:
		return true
	default:
		return false
	}
}

// LWS reports whether linear whitespace may surround separators in the mode.
// URI modes don't allow any whitespace.
func (m Mode) LWS() bool {
	switch m {
	case ModeToken, ModeGenValue, ModeWord, ModeMethod, ModeText:
		return true
	default:
		return false
	}
}

// Quotable reports whether values of the mode may be written as quoted strings.
func (m Mode) Quotable() bool { return m == ModeToken || m == ModeGenValue }

// valueMode returns the mode used for the value of a name-value pair.
func (m Mode) valueMode() Mode {
	if m == ModeToken {
		return ModeGenValue
	}
	return m
}
