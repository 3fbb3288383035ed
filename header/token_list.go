package header

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"braces.dev/errtrace"
	"github.com/samber/lo"

	"github.com/tmnsur/jsip-sub002/internal/grammar"
	"github.com/tmnsur/jsip-sub002/internal/util"
)

// TokenList implements comma-separated token headers: Allow, Supported, Require,
// Proxy-Require, Unsupported and Accept-Encoding.
type TokenList struct {
	HeaderName Name
	Tokens     []string
}

// NewTokenList returns a token list header with the canonical form of name.
func NewTokenList(name string, tokens ...string) *TokenList {
	return &TokenList{HeaderName: CanonicName(name), Tokens: tokens}
}

func (hdr *TokenList) CanonicName() Name { return CanonicName(hdr.HeaderName) }

func (hdr *TokenList) CompactName() Name { return CompactNameOf(hdr.HeaderName) }

func (hdr *TokenList) RenderTo(w io.Writer, opts *RenderOptions) (num int, err error) {
	if hdr == nil {
		return 0, nil
	}
	return errtrace.Wrap2(renderHdr(w, hdr, opts, func(w io.Writer) (int, error) {
		return errtrace.Wrap2(io.WriteString(w, hdr.RenderValue()))
	}))
}

func (hdr *TokenList) Render(opts *RenderOptions) string {
	if hdr == nil {
		return ""
	}
	return renderHdrString(hdr, opts)
}

func (hdr *TokenList) String() string { return hdr.RenderValue() }

func (hdr *TokenList) RenderValue() string {
	if hdr == nil {
		return ""
	}
	return strings.Join(hdr.Tokens, ", ")
}

func (hdr *TokenList) Format(f fmt.State, verb rune) {
	type hideMethods TokenList
	type TokenList hideMethods
	formatHdr(f, verb, hdr, (*TokenList)(hdr))
}

func (hdr *TokenList) Clone() Header {
	if hdr == nil {
		return nil
	}
	return &TokenList{HeaderName: hdr.HeaderName, Tokens: slices.Clone(hdr.Tokens)}
}

// Contains reports whether the list has the token, tokens are case-insensitive.
func (hdr *TokenList) Contains(tok string) bool {
	return hdr != nil && lo.ContainsBy(hdr.Tokens, func(t string) bool { return util.EqFold(t, tok) })
}

// Equal compares header names and token sets ignoring case and order.
func (hdr *TokenList) Equal(val any) bool {
	var other *TokenList
	switch v := val.(type) {
	case TokenList:
		other = &v
	case *TokenList:
		other = v
	default:
		return false
	}

	if hdr == other {
		return true
	} else if hdr == nil || other == nil {
		return false
	}
	if hdr.CanonicName() != other.CanonicName() {
		return false
	}
	s1 := lo.Uniq(lo.Map(hdr.Tokens, func(t string, _ int) string { return util.LCase(t) }))
	s2 := lo.Uniq(lo.Map(other.Tokens, func(t string, _ int) string { return util.LCase(t) }))
	return len(s1) == len(s2) && lo.Every(s1, s2)
}

// Match reports whether the header contains all template tokens.
func (hdr *TokenList) Match(tmpl any) bool {
	var t *TokenList
	switch v := tmpl.(type) {
	case nil:
		return true
	case TokenList:
		t = &v
	case *TokenList:
		t = v
	default:
		return false
	}
	if t == nil {
		return true
	} else if hdr == nil {
		return false
	}
	if t.HeaderName != "" && hdr.CanonicName() != t.CanonicName() {
		return false
	}
	return lo.EveryBy(t.Tokens, hdr.Contains)
}

// MergeFrom appends tokens missing in the list.
func (hdr *TokenList) MergeFrom(other any) {
	o, ok := other.(*TokenList)
	if hdr == nil || !ok || o == nil {
		return
	}
	if hdr.HeaderName == "" {
		hdr.HeaderName = o.HeaderName
	}
	for _, t := range o.Tokens {
		if !hdr.Contains(t) {
			hdr.Tokens = append(hdr.Tokens, t)
		}
	}
}

func (hdr *TokenList) IsValid() bool {
	return hdr != nil && grammar.IsToken(hdr.HeaderName) && lo.EveryBy(hdr.Tokens, grammar.IsToken[string])
}

// parseTokenList parses "token *( ',' token )", an empty value is an empty list.
func parseTokenList(name Name, value string) (Header, error) {
	hdr := &TokenList{HeaderName: name}
	l := newLexer(value)
	if l.EOF() {
		return hdr, nil
	}
	for {
		tok, err := l.Ident()
		if err != nil {
			return nil, errtrace.Wrap(err)
		}
		hdr.Tokens = append(hdr.Tokens, tok)
		if !l.Sep(',') {
			break
		}
	}
	if err := l.ExpectEOF(); err != nil {
		return nil, errtrace.Wrap(err)
	}
	return hdr, nil
}
