package header

import (
	"fmt"
	"io"

	"braces.dev/errtrace"

	"github.com/tmnsur/jsip-sub002/internal/grammar"
	"github.com/tmnsur/jsip-sub002/internal/ioutil"
	"github.com/tmnsur/jsip-sub002/internal/util"
	"github.com/tmnsur/jsip-sub002/syntax"
)

// ContentType represents the Content-Type header field.
// The Content-Type header field indicates the media type of the message-body sent to the recipient.
type ContentType struct {
	Type    string
	Subtype string
	Params  Params
}

func (*ContentType) CanonicName() Name { return "Content-Type" }

func (*ContentType) CompactName() Name { return "c" }

func (hdr *ContentType) RenderTo(w io.Writer, opts *RenderOptions) (num int, err error) {
	if hdr == nil {
		return 0, nil
	}
	return errtrace.Wrap2(renderHdr(w, hdr, opts, hdr.renderValueTo))
}

func (hdr *ContentType) renderValueTo(w io.Writer) (num int, err error) {
	cw := ioutil.GetCountingWriter(w)
	defer ioutil.FreeCountingWriter(cw)
	cw.WriteString(hdr.Type)
	cw.WriteString("/")
	cw.WriteString(hdr.Subtype)
	cw.Call(func(w io.Writer) (int, error) { return errtrace.Wrap2(hdr.Params.RenderTo(w, ";")) })
	return errtrace.Wrap2(cw.Result())
}

func (hdr *ContentType) Render(opts *RenderOptions) string {
	if hdr == nil {
		return ""
	}
	return renderHdrString(hdr, opts)
}

func (hdr *ContentType) String() string { return hdr.RenderValue() }

func (hdr *ContentType) RenderValue() string {
	if hdr == nil {
		return ""
	}
	return renderToString(hdr.renderValueTo)
}

func (hdr *ContentType) Format(f fmt.State, verb rune) {
	type hideMethods ContentType
	type ContentType hideMethods
	formatHdr(f, verb, hdr, (*ContentType)(hdr))
}

func (hdr *ContentType) Clone() Header {
	if hdr == nil {
		return nil
	}
	hdr2 := *hdr
	hdr2.Params = hdr.Params.Clone()
	return &hdr2
}

// MediaType returns "type/subtype" in lower case.
func (hdr *ContentType) MediaType() string {
	if hdr == nil {
		return ""
	}
	return util.LCase(hdr.Type + "/" + hdr.Subtype)
}

// Equal compares media types case-insensitively and parameters.
func (hdr *ContentType) Equal(val any) bool {
	var other *ContentType
	switch v := val.(type) {
	case ContentType:
		other = &v
	case *ContentType:
		other = v
	default:
		return false
	}

	if hdr == other {
		return true
	} else if hdr == nil || other == nil {
		return false
	}
	return util.EqFold(hdr.Type, other.Type) && util.EqFold(hdr.Subtype, other.Subtype) && hdr.Params.Equal(other.Params)
}

func (hdr *ContentType) Match(tmpl any) bool {
	var t *ContentType
	switch v := tmpl.(type) {
	case nil:
		return true
	case ContentType:
		t = &v
	case *ContentType:
		t = v
	default:
		return false
	}
	if t == nil {
		return true
	} else if hdr == nil {
		return false
	}
	return (t.Type == "" || util.EqFold(hdr.Type, t.Type)) &&
		(t.Subtype == "" || util.EqFold(hdr.Subtype, t.Subtype)) &&
		hdr.Params.Match(t.Params)
}

func (hdr *ContentType) MergeFrom(other any) {
	o, ok := other.(*ContentType)
	if hdr == nil || !ok || o == nil {
		return
	}
	if hdr.Type == "" {
		hdr.Type = o.Type
	}
	if hdr.Subtype == "" {
		hdr.Subtype = o.Subtype
	}
	hdr.Params = hdr.Params.Merge(o.Params)
}

func (hdr *ContentType) IsValid() bool {
	return hdr != nil && grammar.IsToken(hdr.Type) && grammar.IsToken(hdr.Subtype) && hdr.Params.IsValid()
}

func parseContentType(_ Name, value string) (Header, error) {
	l := newLexer(value)
	typ, err := l.Ident()
	if err != nil {
		return nil, errtrace.Wrap(err)
	}
	if !l.Sep('/') {
		return nil, errtrace.Wrap(l.Errorf("expected '/' in media type"))
	}
	sub, err := l.Ident()
	if err != nil {
		return nil, errtrace.Wrap(err)
	}
	ps, err := syntax.ParseParams(l, ';', '=')
	if err != nil {
		return nil, errtrace.Wrap(err)
	}
	if err := l.ExpectEOF(); err != nil {
		return nil, errtrace.Wrap(err)
	}
	return &ContentType{Type: typ, Subtype: sub, Params: ps}, nil
}
