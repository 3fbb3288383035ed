package grammar

type charClass uint16

const (
	clsAlpha charClass = 1 << iota
	clsDigit
	clsHex
	clsMark
	clsReserved
	clsToken
	clsWord
	clsUserUnreserved
	clsPasswordExtra
	clsParamUnreserved
	clsHnvUnreserved
	clsWS
)

var charClasses [256]charClass

func setClass(cls charClass, chars string) {
	for i := range len(chars) {
		charClasses[chars[i]] |= cls
	}
}

func init() {
	for c := 'a'; c <= 'z'; c++ {
		charClasses[c] |= clsAlpha
		charClasses[c-'a'+'A'] |= clsAlpha
	}
	for c := '0'; c <= '9'; c++ {
		charClasses[c] |= clsDigit | clsHex
	}
	setClass(clsHex, "abcdefABCDEF")
	setClass(clsMark, "-_.!~*'()")
	setClass(clsReserved, ";/?:@&=+$,")
	setClass(clsToken, "-.!%*_+`'~")
	setClass(clsWord, "-.!%*_+`'~()<>:\\\"/[]?{}")
	setClass(clsUserUnreserved, "&=+$,;?/")
	setClass(clsPasswordExtra, "&=+$,")
	setClass(clsParamUnreserved, "[]/:&+$")
	setClass(clsHnvUnreserved, "[]/?:+$")
	setClass(clsWS, " \t")
}

func is(c byte, cls charClass) bool { return charClasses[c]&cls != 0 }

func IsAlpha(c byte) bool { return is(c, clsAlpha) }

func IsDigit(c byte) bool { return is(c, clsDigit) }

func IsHexDigit(c byte) bool { return is(c, clsHex) }

func IsAlphanum(c byte) bool { return is(c, clsAlpha|clsDigit) }

// IsMark reports whether c is one of the RFC 3261 "mark" characters.
func IsMark(c byte) bool { return is(c, clsMark) }

// IsUnreserved reports whether c is alphanum or mark.
func IsUnreserved(c byte) bool { return is(c, clsAlpha|clsDigit|clsMark) }

func IsReserved(c byte) bool { return is(c, clsReserved) }

// IsTokenChar reports whether c may appear inside a token.
func IsTokenChar(c byte) bool { return is(c, clsAlpha|clsDigit|clsToken) }

// IsWordChar reports whether c may appear inside a word (Call-ID grammar).
func IsWordChar(c byte) bool { return is(c, clsAlpha|clsDigit|clsWord) }

func IsUserChar(c byte) bool { return is(c, clsAlpha|clsDigit|clsMark|clsUserUnreserved) }

func IsPasswordChar(c byte) bool { return is(c, clsAlpha|clsDigit|clsMark|clsPasswordExtra) }

func IsParamChar(c byte) bool { return is(c, clsAlpha|clsDigit|clsMark|clsParamUnreserved) }

func IsHeaderChar(c byte) bool { return is(c, clsAlpha|clsDigit|clsMark|clsHnvUnreserved) }

// IsHostChar reports whether c may appear in a hostname or an IP literal.
func IsHostChar(c byte) bool {
	return IsAlphanum(c) || c == '-' || c == '.' || c == ':' || c == '[' || c == ']'
}

func IsWS(c byte) bool { return is(c, clsWS) }

// IsQDText reports whether c may appear unescaped inside a quoted string.
func IsQDText(c byte) bool {
	return c == ' ' || c == '\t' || c == 0x21 || (c >= 0x23 && c <= 0x5b) || (c >= 0x5d && c <= 0x7e) || c >= 0x80
}
