package header

import (
	"slices"
	"strconv"
	"strings"
	"sync"

	"braces.dev/errtrace"
	"github.com/samber/lo"

	"github.com/tmnsur/jsip-sub002/internal/grammar"
	"github.com/tmnsur/jsip-sub002/internal/util"
	"github.com/tmnsur/jsip-sub002/syntax"
)

// Parser parses a header value. The name is the canonical header name.
type Parser func(name Name, value string) (Header, error)

// ErrMalformedHeader is returned for a header line that can't be split into a name and a value.
const ErrMalformedHeader grammar.Error = "malformed header"

var builtinParsers = map[Name]Parser{
	"Accept-Encoding":     parseTokenList,
	"Allow":               parseTokenList,
	"Authorization":       parseAuth,
	"Call-ID":             parseCallID,
	"Contact":             parseContact,
	"Content-Length":      parseContentLength,
	"Content-Type":        parseContentType,
	"CSeq":                parseCSeq,
	"Expires":             parseExpires,
	"From":                parseFrom,
	"Max-Forwards":        parseMaxForwards,
	"Proxy-Authenticate":  parseAuth,
	"Proxy-Authorization": parseAuth,
	"Proxy-Require":       parseTokenList,
	"Record-Route":        parseRecordRoute,
	"Require":             parseTokenList,
	"Route":               parseRoute,
	"Supported":           parseTokenList,
	"To":                  parseTo,
	"Unsupported":         parseTokenList,
	"Via":                 parseVia,
	"WWW-Authenticate":    parseAuth,
}

var customParsers sync.Map // map[Name]Parser

// Register registers a header parser under the given name and optional compact aliases.
// Registered parsers take precedence over the built-in ones, so they also can be used to
// override parsing of standard headers.
func Register(name string, parser Parser, aliases ...string) {
	n := CanonicName(name)
	customParsers.Store(n, parser)
	for _, a := range aliases {
		extNames.Store(util.LCase(util.TrimSP(a)), n)
	}
}

// Unregister removes a previously registered parser and its aliases.
// Built-in parsers can't be removed.
func Unregister(name string) {
	n := CanonicName(name)
	customParsers.Delete(n)
	extNames.Range(func(k, v any) bool {
		if v.(Name) == n { //nolint:forcetypeassert
			extNames.Delete(k)
		}
		return true
	})
}

// Lookup returns the parser for the header name, name can be in any case or in the compact form.
func Lookup(name string) (Parser, bool) {
	n := CanonicName(name)
	if p, ok := customParsers.Load(n); ok {
		return p.(Parser), true //nolint:forcetypeassert
	}
	p, ok := builtinParsers[n]
	return p, ok
}

// Names returns the sorted canonical names of all known headers.
func Names() []Name {
	names := lo.Keys(builtinParsers)
	customParsers.Range(func(k, _ any) bool {
		names = append(names, k.(Name)) //nolint:forcetypeassert
		return true
	})
	names = lo.Uniq(names)
	slices.Sort(names)
	return names
}

// Parse parses a single unfolded header line "name: value".
// A line without a colon is parsed as a "name=value" pair into [Any].
//
// Example usage:
//
//	hdr, err := header.Parse("From: <sip:alice@example.com;foo>;tag=qwerty")
func Parse[T ~string | ~[]byte](line T) (Header, error) {
	s := string(line)
	i := strings.IndexByte(s, ':')
	if i < 0 {
		return errtrace.Wrap2(parseNameValueLine(s))
	}

	name := util.TrimSP(s[:i])
	if !grammar.IsToken(name) {
		return nil, errtrace.Wrap(&syntax.Error{Msg: "invalid header name " + strconv.Quote(util.Ellipsis(name, 20)), Input: s})
	}
	return errtrace.Wrap2(ParseValue(name, s[i+1:]))
}

func parseNameValueLine(s string) (Header, error) {
	l := syntax.NewLexer(strings.TrimSpace(s))
	nv, err := syntax.ParseNameValue(l, '=')
	if err != nil {
		return nil, errtrace.Wrap(err)
	}
	if err := l.ExpectEOF(); err != nil {
		return nil, errtrace.Wrap(err)
	}
	return &Any{Name: nv.Name, Value: nv.Value}, nil
}

// ParseValue parses the header value using the parser registered for the name.
// Headers without a parser are returned as [Any].
func ParseValue(name, value string) (Header, error) {
	n := CanonicName(name)
	value = util.TrimSP(value)
	p, ok := Lookup(string(n))
	if !ok {
		return &Any{Name: string(n), Value: value}, nil
	}

	hdr, err := p(n, value)
	if err != nil {
		return nil, errtrace.Wrap(err)
	}
	return hdr, nil
}

// newLexer returns a lexer over a header value in the token mode.
func newLexer(value string) *syntax.Lexer { return syntax.NewLexer(value) }
