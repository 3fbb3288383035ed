package header

import (
	"fmt"
	"io"

	"braces.dev/errtrace"

	"github.com/tmnsur/jsip-sub002/internal/grammar"
	"github.com/tmnsur/jsip-sub002/internal/ioutil"
	"github.com/tmnsur/jsip-sub002/internal/util"
)

// Any implements a generic header.
// It is used for headers without a registered parser and for header lines that
// are a bare "name=value" pair.
type Any struct {
	Name  string
	Value string
}

func (hdr *Any) CanonicName() Name { return CanonicName(hdr.Name) }

func (hdr *Any) CompactName() Name { return CanonicName(hdr.Name) }

func (hdr *Any) RenderTo(w io.Writer, _ *RenderOptions) (num int, err error) {
	if hdr == nil {
		return 0, nil
	}
	cw := ioutil.GetCountingWriter(w)
	defer ioutil.FreeCountingWriter(cw)
	cw.WriteString(string(hdr.CanonicName()))
	cw.WriteString(": ")
	cw.WriteString(hdr.Value)
	return errtrace.Wrap2(cw.Result())
}

func (hdr *Any) Render(opts *RenderOptions) string {
	if hdr == nil {
		return ""
	}
	return renderHdrString(hdr, opts)
}

func (hdr *Any) String() string { return hdr.RenderValue() }

// RenderValue returns the header value without the name prefix.
func (hdr *Any) RenderValue() string {
	if hdr == nil {
		return ""
	}
	return hdr.Value
}

func (hdr *Any) Format(f fmt.State, verb rune) {
	type hideMethods Any
	type Any hideMethods
	formatHdr(f, verb, hdr, (*Any)(hdr))
}

func (hdr *Any) Clone() Header {
	if hdr == nil {
		return nil
	}
	hdr2 := *hdr
	return &hdr2
}

// Equal compares names case-insensitively and values exactly.
func (hdr *Any) Equal(val any) bool {
	var other *Any
	switch v := val.(type) {
	case Any:
		other = &v
	case *Any:
		other = v
	default:
		return false
	}

	if hdr == other {
		return true
	} else if hdr == nil || other == nil {
		return false
	}
	return hdr.CanonicName() == other.CanonicName() && hdr.Value == other.Value
}

// Match reports whether the header matches the template, an empty template value matches any value.
func (hdr *Any) Match(tmpl any) bool {
	var t *Any
	switch v := tmpl.(type) {
	case nil:
		return true
	case Any:
		t = &v
	case *Any:
		t = v
	default:
		return false
	}

	if t == nil {
		return true
	} else if hdr == nil {
		return false
	}
	return (t.Name == "" || util.EqFold(hdr.CanonicName(), t.CanonicName())) &&
		(t.Value == "" || hdr.Value == t.Value)
}

// MergeFrom fills the empty value from the header with the same name.
func (hdr *Any) MergeFrom(other any) {
	o, ok := other.(*Any)
	if hdr == nil || !ok || o == nil {
		return
	}
	if hdr.Name == "" {
		hdr.Name = o.Name
	}
	if hdr.Value == "" && hdr.CanonicName() == o.CanonicName() {
		hdr.Value = o.Value
	}
}

func (hdr *Any) IsValid() bool { return hdr != nil && grammar.IsToken(hdr.Name) }
