package uri

import (
	"fmt"
	"io"
	"net/url"
	"strconv"

	"braces.dev/errtrace"

	"github.com/tmnsur/jsip-sub002/internal/errorutil"
	"github.com/tmnsur/jsip-sub002/internal/util"
)

// Any implements any URI (usually not SIP or tel).
type Any struct {
	url.URL
}

// Clone returns a deep copy of the Any URI.
func (u *Any) Clone() URI {
	if u == nil {
		return nil
	}
	u2 := *u
	if u.User != nil {
		if pwd, ok := u.User.Password(); ok {
			u2.User = url.UserPassword(u.User.Username(), pwd)
		} else {
			u2.User = url.User(u.User.Username())
		}
	}
	return &u2
}

func (u *Any) Scheme() string {
	if u == nil {
		return ""
	}
	return u.URL.Scheme
}

func (u *Any) RenderTo(w io.Writer, _ *RenderOptions) (int, error) {
	if u == nil {
		return 0, nil
	}
	return errtrace.Wrap2(io.WriteString(w, u.URL.String()))
}

func (u *Any) Render(opts *RenderOptions) string {
	if u == nil {
		return ""
	}
	sb := util.GetStringBuilder()
	defer util.FreeStringBuilder(sb)
	u.RenderTo(sb, opts) //nolint:errcheck
	return sb.String()
}

func (u *Any) String() string { return u.Render(nil) }

func (u *Any) Format(f fmt.State, verb rune) {
	switch verb {
	case 's':
		fmt.Fprint(f, u.String())
		return
	case 'q':
		fmt.Fprint(f, strconv.Quote(u.String()))
		return
	default:
		type hideMethods Any
		type Any hideMethods
		fmt.Fprintf(f, fmt.FormatString(f, verb), (*Any)(u))
		return
	}
}

// Equal compares URIs by their string form, the scheme and host are case-insensitive.
func (u *Any) Equal(val any) bool {
	var other *Any
	switch v := val.(type) {
	case Any:
		other = &v
	case *Any:
		other = v
	default:
		return false
	}

	if u == other {
		return true
	} else if u == nil || other == nil {
		return false
	}

	u1, u2 := u.URL, other.URL
	u1.Scheme, u2.Scheme = util.LCase(u1.Scheme), util.LCase(u2.Scheme)
	u1.Host, u2.Host = util.LCase(u1.Host), util.LCase(u2.Host)
	return u1.String() == u2.String()
}

// Match reports whether the URI matches the template, the zero template matches any URI.
func (u *Any) Match(tmpl any) bool {
	var t *Any
	switch v := tmpl.(type) {
	case Any:
		t = &v
	case *Any:
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
	if t.URL == (url.URL{}) {
		return true
	}
	if t.Opaque == "" && t.Host == "" && t.Path == "" {
		return util.EqFold(u.URL.Scheme, t.URL.Scheme)
	}
	return u.Equal(t)
}

func (u *Any) MergeFrom(other any) {
	var o *Any
	switch v := other.(type) {
	case Any:
		o = &v
	case *Any:
		o = v
	}
	if u == nil || o == nil || u.URL != (url.URL{}) {
		return
	}
	if c, ok := o.Clone().(*Any); ok {
		*u = *c
	}
}

func (u *Any) IsValid() bool { return u != nil && u.URL.Scheme != "" }

func (u *Any) MarshalText() ([]byte, error) {
	return []byte(u.String()), nil
}

func (u *Any) UnmarshalText(text []byte) error {
	u1, err := ParseAny(text)
	if err != nil {
		*u = Any{}
		return errtrace.Wrap(err)
	}
	*u = *u1
	return nil
}

// ParseAny parses an absolute URI of any scheme.
func ParseAny[T ~string | ~[]byte](src T) (*Any, error) {
	u, err := url.Parse(string(src))
	if err != nil {
		return nil, errtrace.Wrap(errorutil.NewWrapperError(ErrInvalidURI, err))
	}
	if u.Scheme == "" {
		return nil, errtrace.Wrap(errorutil.NewWrapperError(ErrInvalidURI, "missing scheme in %q", string(src)))
	}
	return &Any{URL: *u}, nil
}
