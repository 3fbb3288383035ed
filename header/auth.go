package header

import (
	"fmt"
	"io"
	"strings"

	"braces.dev/errtrace"

	"github.com/tmnsur/jsip-sub002/internal/grammar"
	"github.com/tmnsur/jsip-sub002/internal/ioutil"
	"github.com/tmnsur/jsip-sub002/internal/types"
	"github.com/tmnsur/jsip-sub002/internal/util"
	"github.com/tmnsur/jsip-sub002/syntax"
)

// Auth implements the credentials and challenge headers: Authorization, Proxy-Authorization,
// WWW-Authenticate and Proxy-Authenticate.
//
// The value is an auth scheme followed by either comma-separated parameters
// (Digest) or a single token68 blob (Basic, Bearer).
type Auth struct {
	HeaderName Name
	Scheme     string
	Params     types.MultiParams
	Token68    string
}

func (hdr *Auth) CanonicName() Name { return CanonicName(hdr.HeaderName) }

func (hdr *Auth) CompactName() Name { return CanonicName(hdr.HeaderName) }

func (hdr *Auth) RenderTo(w io.Writer, opts *RenderOptions) (num int, err error) {
	if hdr == nil {
		return 0, nil
	}
	return errtrace.Wrap2(renderHdr(w, hdr, opts, hdr.renderValueTo))
}

func (hdr *Auth) renderValueTo(w io.Writer) (num int, err error) {
	cw := ioutil.GetCountingWriter(w)
	defer ioutil.FreeCountingWriter(cw)
	cw.WriteString(hdr.Scheme)
	if hdr.Token68 != "" {
		cw.WriteString(" ")
		cw.WriteString(hdr.Token68)
	} else {
		cw.Call(func(w io.Writer) (int, error) { return errtrace.Wrap2(hdr.Params.RenderTo(w, " ", ", ")) })
	}
	return errtrace.Wrap2(cw.Result())
}

func (hdr *Auth) Render(opts *RenderOptions) string {
	if hdr == nil {
		return ""
	}
	return renderHdrString(hdr, opts)
}

func (hdr *Auth) String() string { return hdr.RenderValue() }

func (hdr *Auth) RenderValue() string {
	if hdr == nil {
		return ""
	}
	return renderToString(hdr.renderValueTo)
}

func (hdr *Auth) Format(f fmt.State, verb rune) {
	type hideMethods Auth
	type Auth hideMethods
	formatHdr(f, verb, hdr, (*Auth)(hdr))
}

func (hdr *Auth) Clone() Header {
	if hdr == nil {
		return nil
	}
	hdr2 := *hdr
	hdr2.Params = hdr.Params.Clone()
	return &hdr2
}

// Equal compares header names and schemes case-insensitively, parameters and token68 exactly.
func (hdr *Auth) Equal(val any) bool {
	var other *Auth
	switch v := val.(type) {
	case Auth:
		other = &v
	case *Auth:
		other = v
	default:
		return false
	}

	if hdr == other {
		return true
	} else if hdr == nil || other == nil {
		return false
	}
	return hdr.CanonicName() == other.CanonicName() &&
		util.EqFold(hdr.Scheme, other.Scheme) &&
		hdr.Token68 == other.Token68 &&
		hdr.Params.Equal(other.Params)
}

func (hdr *Auth) Match(tmpl any) bool {
	var t *Auth
	switch v := tmpl.(type) {
	case nil:
		return true
	case Auth:
		t = &v
	case *Auth:
		t = v
	default:
		return false
	}
	if t == nil {
		return true
	} else if hdr == nil {
		return false
	}
	return (t.HeaderName == "" || hdr.CanonicName() == t.CanonicName()) &&
		(t.Scheme == "" || util.EqFold(hdr.Scheme, t.Scheme)) &&
		(t.Token68 == "" || hdr.Token68 == t.Token68) &&
		hdr.Params.Match(t.Params)
}

func (hdr *Auth) MergeFrom(other any) {
	o, ok := other.(*Auth)
	if hdr == nil || !ok || o == nil {
		return
	}
	if hdr.HeaderName == "" {
		hdr.HeaderName = o.HeaderName
	}
	if hdr.Scheme == "" {
		hdr.Scheme = o.Scheme
	}
	if hdr.Token68 == "" && len(hdr.Params) == 0 {
		hdr.Token68 = o.Token68
	}
	if hdr.Token68 == "" {
		hdr.Params = hdr.Params.Merge(o.Params)
	}
}

func (hdr *Auth) IsValid() bool {
	return hdr != nil && grammar.IsToken(hdr.HeaderName) && grammar.IsToken(hdr.Scheme) && hdr.Params.IsValid()
}

// Param returns the first value of the auth parameter.
func (hdr *Auth) Param(name string) (string, bool) {
	if hdr == nil {
		return "", false
	}
	return hdr.Params.Value(name)
}

func parseAuth(name Name, value string) (Header, error) {
	l := newLexer(value)
	scheme, err := l.Ident()
	if err != nil {
		return nil, errtrace.Wrap(err)
	}
	hdr := &Auth{HeaderName: name, Scheme: scheme}
	if l.SkipLWS() == 0 {
		if err := l.ExpectEOF(); err != nil {
			return nil, errtrace.Wrap(err)
		}
		return hdr, nil
	}

	rest := l.Mark()
	if ps, err := syntax.ParseMultiParams(l, 0, ',', '='); err == nil && l.ExpectEOF() == nil &&
		!(len(ps) == 1 && !ps[0].HasValue()) {
		hdr.Params = ps
		return hdr, nil
	}

	l.Rewind(rest)
	tok := strings.TrimSpace(l.Rest())
	if tok == "" || strings.ContainsAny(tok, " \t,") {
		return nil, errtrace.Wrap(l.Errorf("malformed auth parameters"))
	}
	hdr.Token68 = tok
	return hdr, nil
}
