package header

import (
	"fmt"
	"io"
	"slices"
	"strconv"
	"time"

	"braces.dev/errtrace"

	"github.com/tmnsur/jsip-sub002/internal/grammar"
	"github.com/tmnsur/jsip-sub002/internal/ioutil"
	"github.com/tmnsur/jsip-sub002/syntax"
	"github.com/tmnsur/jsip-sub002/uri"
)

// NameAddr is a name-addr or addr-spec with header parameters.
// It is the value of From, To, Contact, Route and Record-Route headers.
type NameAddr struct {
	DisplayName string
	URI         uri.URI
	Params      Params
}

// RenderTo writes the address in the name-addr form.
func (addr NameAddr) RenderTo(w io.Writer) (num int, err error) {
	cw := ioutil.GetCountingWriter(w)
	defer ioutil.FreeCountingWriter(cw)
	if addr.DisplayName != "" {
		if grammar.NeedsQuote(addr.DisplayName) {
			cw.WriteString(grammar.Quote(addr.DisplayName))
		} else {
			cw.WriteString(addr.DisplayName)
		}
		cw.WriteString(" ")
	}
	cw.WriteString("<")
	if addr.URI != nil {
		cw.Call(func(w io.Writer) (int, error) { return errtrace.Wrap2(addr.URI.RenderTo(w, nil)) })
	}
	cw.WriteString(">")
	cw.Call(func(w io.Writer) (int, error) { return errtrace.Wrap2(addr.Params.RenderTo(w, ";")) })
	return errtrace.Wrap2(cw.Result())
}

func (addr NameAddr) String() string { return renderToString(addr.RenderTo) }

func (addr NameAddr) Format(f fmt.State, verb rune) {
	switch verb {
	case 's':
		fmt.Fprint(f, addr.String())
	case 'q':
		fmt.Fprint(f, strconv.Quote(addr.String()))
	default:
		type hideMethods NameAddr
		type NameAddr hideMethods
		fmt.Fprintf(f, fmt.FormatString(f, verb), NameAddr(addr))
	}
}

// Equal compares display names, URIs and parameters.
func (addr NameAddr) Equal(val any) bool {
	var other NameAddr
	switch v := val.(type) {
	case NameAddr:
		other = v
	case *NameAddr:
		if v == nil {
			return false
		}
		other = *v
	default:
		return false
	}
	return addr.DisplayName == other.DisplayName &&
		equalURI(addr.URI, other.URI) &&
		addr.Params.Equal(other.Params)
}

func equalURI(u1, u2 uri.URI) bool {
	if u1 == nil || u2 == nil {
		return u1 == nil && u2 == nil
	}
	return u1.Equal(u2)
}

// Match reports whether the address matches the template,
// an empty display name and a nil URI of the template match anything.
func (addr NameAddr) Match(tmpl NameAddr) bool {
	if tmpl.DisplayName != "" && addr.DisplayName != tmpl.DisplayName {
		return false
	}
	if tmpl.URI != nil && (addr.URI == nil || !addr.URI.Match(tmpl.URI)) {
		return false
	}
	return addr.Params.Match(tmpl.Params)
}

// Merge returns a copy of the address with missing fields taken from other.
func (addr NameAddr) Merge(other NameAddr) NameAddr {
	addr = addr.Clone()
	if addr.DisplayName == "" {
		addr.DisplayName = other.DisplayName
	}
	switch {
	case addr.URI == nil && other.URI != nil:
		addr.URI = other.URI.Clone()
	case addr.URI != nil && other.URI != nil:
		addr.URI.MergeFrom(other.URI)
	}
	addr.Params = addr.Params.Merge(other.Params)
	return addr
}

func (addr NameAddr) IsValid() bool {
	return addr.URI != nil && addr.URI.IsValid() && addr.Params.IsValid()
}

func (addr NameAddr) IsZero() bool {
	return addr.DisplayName == "" && addr.URI == nil && len(addr.Params) == 0
}

func (addr NameAddr) Clone() NameAddr {
	if addr.URI != nil {
		addr.URI = addr.URI.Clone()
	}
	addr.Params = addr.Params.Clone()
	return addr
}

// Tag returns the tag parameter.
func (addr NameAddr) Tag() (string, bool) { return addr.Params.Value("tag") }

// Expires returns the expires parameter.
func (addr NameAddr) Expires() (time.Duration, bool) {
	v, ok := addr.Params.Value("expires")
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseUint(v, 10, 32)
	if err != nil {
		return 0, false
	}
	return time.Duration(n) * time.Second, true
}

// ParseNameAddr parses a name-addr or addr-spec followed by header parameters.
func ParseNameAddr[T ~string | ~[]byte](s T) (NameAddr, error) {
	l := newLexer(string(s))
	addr, err := parseNameAddr(l)
	if err != nil {
		return NameAddr{}, errtrace.Wrap(err)
	}
	if err := l.ExpectEOF(); err != nil {
		return NameAddr{}, errtrace.Wrap(err)
	}
	return addr, nil
}

func parseNameAddr(l *syntax.Lexer) (NameAddr, error) {
	a, err := syntax.ParseAddress(l)
	if err != nil {
		return NameAddr{}, errtrace.Wrap(err)
	}
	u, err := uri.Parse(a.URI)
	if err != nil {
		return NameAddr{}, errtrace.Wrap(err)
	}
	ps, err := syntax.ParseParams(l, ';', '=')
	if err != nil {
		return NameAddr{}, errtrace.Wrap(err)
	}
	return NameAddr{DisplayName: a.Display, URI: u, Params: ps}, nil
}

func parseNameAddrList(value string) ([]NameAddr, error) {
	l := newLexer(value)
	var addrs []NameAddr
	for {
		addr, err := parseNameAddr(l)
		if err != nil {
			return nil, errtrace.Wrap(err)
		}
		addrs = append(addrs, addr)
		if !l.Sep(',') {
			break
		}
	}
	if err := l.ExpectEOF(); err != nil {
		return nil, errtrace.Wrap(err)
	}
	return addrs, nil
}

func cloneNameAddrs(addrs []NameAddr) []NameAddr {
	if addrs == nil {
		return nil
	}
	out := make([]NameAddr, len(addrs))
	for i := range addrs {
		out[i] = addrs[i].Clone()
	}
	return out
}

func equalNameAddrs(a1, a2 []NameAddr) bool {
	return slices.EqualFunc(a1, a2, func(a, b NameAddr) bool { return a.Equal(b) })
}

func validNameAddrs(addrs []NameAddr) bool {
	return len(addrs) > 0 && !slices.ContainsFunc(addrs, func(a NameAddr) bool { return !a.IsValid() })
}

func mergeNameAddrs(addrs, other []NameAddr) []NameAddr {
	return mergeHdrEntries(addrs, other, func(a *NameAddr, o NameAddr) { *a = a.Merge(o) }, NameAddr.Clone)
}
