package uri

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"braces.dev/errtrace"

	"github.com/tmnsur/jsip-sub002/internal/errorutil"
	"github.com/tmnsur/jsip-sub002/internal/grammar"
	"github.com/tmnsur/jsip-sub002/internal/ioutil"
	"github.com/tmnsur/jsip-sub002/internal/util"
	"github.com/tmnsur/jsip-sub002/syntax"
)

// Tel implements "tel" URI for Telephone Numbers (RFC 3966).
type Tel struct {
	// Telephone number with optional visual separators. Required.
	Number string
	// A local number must have at least the "phone-context" parameter.
	Params Params
}

// IsGlob checks whether the telephone number is global, RFC 3966 Section 5.1.4.
func (u *Tel) IsGlob() bool { return u != nil && strings.HasPrefix(u.Number, "+") }

func (u *Tel) Clone() URI {
	if u == nil {
		return nil
	}
	u2 := *u
	u2.Params = u.Params.Clone()
	return &u2
}

func (u *Tel) Scheme() string {
	if u == nil {
		return ""
	}
	return "tel"
}

func (u *Tel) RenderTo(w io.Writer, _ *RenderOptions) (int, error) {
	if u == nil {
		return 0, nil
	}

	cw := ioutil.GetCountingWriter(w)
	defer ioutil.FreeCountingWriter(cw)
	cw.WriteString("tel:")
	cw.WriteString(u.Number)
	for _, p := range u.Params {
		cw.WriteString(";")
		cw.WriteString(escapeParam(p.Name))
		if p.HasValue() {
			cw.WriteString("=")
			cw.WriteString(escapeParam(p.Value))
		}
	}
	return errtrace.Wrap2(cw.Result())
}

func (u *Tel) Render(opts *RenderOptions) string {
	if u == nil {
		return ""
	}
	sb := util.GetStringBuilder()
	defer util.FreeStringBuilder(sb)
	u.RenderTo(sb, opts) //nolint:errcheck
	return sb.String()
}

func (u *Tel) String() string { return u.Render(nil) }

func (u *Tel) Format(f fmt.State, verb rune) {
	switch verb {
	case 's':
		fmt.Fprint(f, u.String())
		return
	case 'q':
		fmt.Fprint(f, strconv.Quote(u.String()))
		return
	default:
		type hideMethods Tel
		type Tel hideMethods
		fmt.Fprintf(f, fmt.FormatString(f, verb), (*Tel)(u))
		return
	}
}

// number returns the number without visual separators.
func (u *Tel) number() string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '-', '.', '(', ')', ' ':
			return -1
		default:
			return r
		}
	}, u.Number)
}

// Equal compares telephone URIs according to RFC 3966 Section 4:
// numbers are compared without visual separators, parameters ignoring order.
func (u *Tel) Equal(val any) bool {
	var other *Tel
	switch v := val.(type) {
	case Tel:
		other = &v
	case *Tel:
		other = v
	default:
		return false
	}

	if u == other {
		return true
	} else if u == nil || other == nil {
		return false
	}
	return util.EqFold(u.number(), other.number()) && u.Params.Equal(other.Params)
}

// Match reports whether the URI matches the template, an empty template number matches any number.
func (u *Tel) Match(tmpl any) bool {
	var t *Tel
	switch v := tmpl.(type) {
	case Tel:
		t = &v
	case *Tel:
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
	return (t.Number == "" || util.EqFold(u.number(), t.number())) && u.Params.Match(t.Params)
}

func (u *Tel) MergeFrom(other any) {
	var o *Tel
	switch v := other.(type) {
	case Tel:
		o = &v
	case *Tel:
		o = v
	}
	if u == nil || o == nil {
		return
	}
	if u.Number == "" {
		u.Number = o.Number
	}
	u.Params = u.Params.Merge(o.Params)
}

func (u *Tel) IsValid() bool {
	if u == nil || !grammar.IsTelNum(u.Number) {
		return false
	}
	if u.IsGlob() {
		return true
	}
	_, ok := u.PhoneContext()
	return ok
}

func (u *Tel) MarshalText() ([]byte, error) {
	return []byte(u.String()), nil
}

func (u *Tel) UnmarshalText(text []byte) error {
	u1, err := ParseTel(text)
	if err != nil {
		*u = Tel{}
		return errtrace.Wrap(err)
	}
	*u = *u1
	return nil
}

func (u *Tel) PhoneContext() (string, bool) { return u.Params.Value("phone-context") }

func (u *Tel) Extension() (string, bool) { return u.Params.Value("ext") }

// ParseTel parses a telephone URI from the given input src (string or []byte).
func ParseTel[T ~string | ~[]byte](src T) (*Tel, error) {
	l := syntax.NewLexer(src)
	if err := l.MatchString("tel:"); err != nil {
		return nil, errtrace.Wrap(errorutil.NewWrapperError(ErrInvalidURI, err))
	}

	from := l.Pos()
	for !l.EOF() && l.Peek() != ';' {
		l.Advance(1)
	}
	u := &Tel{Number: l.Input()[from:l.Pos()]}
	if !grammar.IsTelNum(u.Number) {
		l.Rewind(from)
		return nil, errtrace.Wrap(l.Errorf("invalid telephone number %q", u.Number))
	}

	l.SelectMode(syntax.ModeParam)
	var err error
	if u.Params, err = syntax.ParseParams(l, ';', '='); err != nil {
		return nil, errtrace.Wrap(err)
	}
	if err := l.ExpectEOF(); err != nil {
		return nil, errtrace.Wrap(err)
	}
	return u, nil
}
