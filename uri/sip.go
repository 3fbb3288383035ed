package uri

import (
	"fmt"
	"io"
	"strconv"

	"braces.dev/errtrace"

	"github.com/tmnsur/jsip-sub002/internal/errorutil"
	"github.com/tmnsur/jsip-sub002/internal/ioutil"
	"github.com/tmnsur/jsip-sub002/internal/types"
	"github.com/tmnsur/jsip-sub002/internal/util"
	"github.com/tmnsur/jsip-sub002/syntax"
)

// SIP represents a SIP or SIPS URI.
type SIP struct {
	User    UserInfo
	Addr    Addr
	Params  Params
	Headers Headers
	Secured bool
}

// Clone returns a deep copy of the SIP URI.
func (u *SIP) Clone() URI {
	if u == nil {
		return nil
	}
	u2 := *u
	u2.Addr = u.Addr.Clone()
	u2.Params = u.Params.Clone()
	u2.Headers = u.Headers.Clone()
	return &u2
}

// Scheme returns "sip" or "sips".
func (u *SIP) Scheme() string {
	if u == nil {
		return ""
	}
	if u.Secured {
		return "sips"
	}
	return "sip"
}

// RenderTo writes the SIP URI to the provided writer.
// Parameters and headers are written in their order.
func (u *SIP) RenderTo(w io.Writer, _ *RenderOptions) (int, error) {
	if u == nil {
		return 0, nil
	}

	cw := ioutil.GetCountingWriter(w)
	defer ioutil.FreeCountingWriter(cw)
	cw.WriteString(u.Scheme())
	cw.WriteString(":")
	if !u.User.IsZero() {
		cw.Call(u.User.RenderTo)
		cw.WriteString("@")
	}
	cw.WriteString(u.Addr.String())
	for _, p := range u.Params {
		cw.WriteString(";")
		cw.WriteString(escapeParam(p.Name))
		if p.HasValue() {
			cw.WriteString("=")
			cw.WriteString(escapeParam(p.Value))
		}
	}
	for i, h := range u.Headers {
		if i == 0 {
			cw.WriteString("?")
		} else {
			cw.WriteString("&")
		}
		cw.WriteString(escapeHeader(h.Name))
		cw.WriteString("=")
		cw.WriteString(escapeHeader(h.Value))
	}
	return errtrace.Wrap2(cw.Result())
}

// Render returns the string representation of the SIP URI.
func (u *SIP) Render(opts *RenderOptions) string {
	if u == nil {
		return ""
	}
	sb := util.GetStringBuilder()
	defer util.FreeStringBuilder(sb)
	u.RenderTo(sb, opts) //nolint:errcheck
	return sb.String()
}

func (u *SIP) String() string { return u.Render(nil) }

// Format implements fmt.Formatter for custom formatting of the SIP URI.
func (u *SIP) Format(f fmt.State, verb rune) {
	switch verb {
	case 's':
		fmt.Fprint(f, u.String())
		return
	case 'q':
		fmt.Fprint(f, strconv.Quote(u.String()))
		return
	default:
		type hideMethods SIP
		type SIP hideMethods
		fmt.Fprintf(f, fmt.FormatString(f, verb), (*SIP)(u))
		return
	}
}

// Equal compares this SIP URI with another for equality according to RFC 3261 Section 19.1.4.
func (u *SIP) Equal(val any) bool {
	var other *SIP
	switch v := val.(type) {
	case SIP:
		other = &v
	case *SIP:
		other = v
	default:
		return false
	}

	if u == other {
		return true
	} else if u == nil || other == nil {
		return false
	}

	return u.Secured == other.Secured &&
		u.User.Equal(other.User) &&
		u.Addr.Equal(other.Addr) &&
		compareSIPParams(u.Params, other.Params) &&
		u.Headers.Equal(other.Headers)
}

var sipURISpecParams = []string{"transport", "user", "method", "maddr", "ttl", "lr"}

// compareSIPParams compares parameters present in both lists,
// special parameters must be present in both lists, others appearing in one list are ignored.
func compareSIPParams(ps1, ps2 Params) bool {
	for _, p1 := range ps1 {
		if p2, ok := ps2.Get(p1.Name); ok && !p1.Equal(p2) {
			return false
		}
	}
	for _, name := range sipURISpecParams {
		if ps1.Has(name) != ps2.Has(name) {
			return false
		}
	}
	return true
}

// Match reports whether the URI matches the template.
// Zero fields of the template are wildcards, template parameters and headers must be present.
func (u *SIP) Match(tmpl any) bool {
	var t *SIP
	switch v := tmpl.(type) {
	case SIP:
		t = &v
	case *SIP:
		if v == nil {
			return true
		}
		t = v
	default:
		return false
	}
	if u == nil {
		return false
	}

	return (!t.Secured || u.Secured) &&
		(t.User.Username == "" || u.User.Username == t.User.Username) &&
		(!t.User.HasPassword || u.User.Password == t.User.Password) &&
		u.Addr.Match(t.Addr) &&
		u.Params.Match(t.Params) &&
		u.Headers.Match(t.Headers)
}

// MergeFrom fills zero fields of the URI from other, which must be a SIP URI.
// Missing parameters and headers are added, present ones are kept.
func (u *SIP) MergeFrom(other any) {
	var o *SIP
	switch v := other.(type) {
	case SIP:
		o = &v
	case *SIP:
		o = v
	}
	if u == nil || o == nil {
		return
	}

	if u.User.IsZero() {
		u.User = o.User
	}
	u.Addr = u.Addr.Merge(o.Addr)
	u.Params = u.Params.Merge(o.Params)
	u.Headers = u.Headers.Merge(o.Headers)
}

// IsValid checks whether the SIP URI is syntactically valid.
func (u *SIP) IsValid() bool {
	return u != nil && u.Addr.IsValid() && (u.User.IsZero() || u.User.IsValid())
}

func (u *SIP) MarshalText() ([]byte, error) {
	return []byte(u.String()), nil
}

func (u *SIP) UnmarshalText(text []byte) error {
	u1, err := ParseSIP(text)
	if err != nil {
		*u = SIP{}
		return errtrace.Wrap(err)
	}
	*u = *u1
	return nil
}

func (u *SIP) Transport() (types.TransportProto, bool) {
	tp, ok := u.Params.Value("transport")
	return types.TransportProto(tp), ok
}

func (u *SIP) UserType() (string, bool) { return u.Params.Value("user") }

func (u *SIP) MAddr() (string, bool) { return u.Params.Value("maddr") }

func (u *SIP) LR() bool { return u.Params.Has("lr") }

// ParseSIP parses a SIP or SIPS URI from the given input src (string or []byte).
func ParseSIP[T ~string | ~[]byte](src T) (*SIP, error) {
	l := syntax.NewLexer(src)
	u, err := parseSIP(l)
	if err != nil {
		return nil, errtrace.Wrap(err)
	}
	if err := l.ExpectEOF(); err != nil {
		return nil, errtrace.Wrap(err)
	}
	return u, nil
}

func parseSIP(l *syntax.Lexer) (*SIP, error) {
	u := new(SIP)
	switch {
	case l.MatchString("sips:") == nil:
		u.Secured = true
	case l.MatchString("sip:") == nil:
	default:
		return nil, errtrace.Wrap(errorutil.NewWrapperError(ErrInvalidURI, l.Errorf("expected sip or sips scheme")))
	}

	prev := l.SelectMode(syntax.ModeUser)
	defer l.SelectMode(prev)

	if _, i := l.ScanAny("@", 0); i >= 0 {
		name, err := l.Unescaped()
		if err != nil {
			return nil, errtrace.Wrap(err)
		}
		u.User.Username = name
		if l.Accept(':') {
			l.SelectMode(syntax.ModePassword)
			u.User.HasPassword = true
			if l.Peek() != '@' {
				if u.User.Password, err = l.Unescaped(); err != nil {
					return nil, errtrace.Wrap(err)
				}
			}
		}
		if err := l.MatchByte('@'); err != nil {
			return nil, errtrace.Wrap(err)
		}
	}

	var err error
	if u.Addr, err = syntax.ParseHostPort(l); err != nil {
		return nil, errtrace.Wrap(err)
	}

	l.SelectMode(syntax.ModeParam)
	if u.Params, err = syntax.ParseParams(l, ';', '='); err != nil {
		return nil, errtrace.Wrap(err)
	}

	l.SelectMode(syntax.ModeHeaderChar)
	if u.Headers, err = syntax.ParseMultiParams(l, '?', '&', '='); err != nil {
		return nil, errtrace.Wrap(err)
	}
	return u, nil
}
