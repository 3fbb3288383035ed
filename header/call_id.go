package header

import (
	"fmt"
	"io"

	"braces.dev/errtrace"

	"github.com/tmnsur/jsip-sub002/internal/errorutil"
	"github.com/tmnsur/jsip-sub002/internal/grammar"
	"github.com/tmnsur/jsip-sub002/internal/util"
)

// CallID represents the Call-ID header field.
// The Call-ID header field uniquely identifies a particular invitation or all registrations of a particular client.
type CallID string

func (*CallID) CanonicName() Name { return "Call-ID" }

func (*CallID) CompactName() Name { return "i" }

func (hdr *CallID) RenderTo(w io.Writer, opts *RenderOptions) (num int, err error) {
	if hdr == nil {
		return 0, nil
	}
	return errtrace.Wrap2(renderHdr(w, hdr, opts, func(w io.Writer) (int, error) {
		return errtrace.Wrap2(io.WriteString(w, string(*hdr)))
	}))
}

func (hdr *CallID) Render(opts *RenderOptions) string {
	if hdr == nil {
		return ""
	}
	return renderHdrString(hdr, opts)
}

func (hdr *CallID) String() string { return hdr.RenderValue() }

func (hdr *CallID) RenderValue() string {
	if hdr == nil {
		return ""
	}
	return string(*hdr)
}

func (hdr *CallID) Format(f fmt.State, verb rune) {
	formatHdr(f, verb, hdr, hdr.RenderValue())
}

func (hdr *CallID) Clone() Header {
	if hdr == nil {
		return nil
	}
	hdr2 := *hdr
	return &hdr2
}

// Equal compares Call-IDs byte by byte, they are case-sensitive.
func (hdr *CallID) Equal(val any) bool {
	var other *CallID
	switch v := val.(type) {
	case CallID:
		other = &v
	case *CallID:
		other = v
	default:
		return false
	}

	if hdr == other {
		return true
	} else if hdr == nil || other == nil {
		return false
	}
	return *hdr == *other
}

func (hdr *CallID) Match(tmpl any) bool {
	var t *CallID
	switch v := tmpl.(type) {
	case nil:
		return true
	case CallID:
		t = &v
	case *CallID:
		t = v
	default:
		return false
	}
	if t == nil || *t == "" {
		return true
	}
	return hdr != nil && *hdr == *t
}

func (hdr *CallID) MergeFrom(other any) {
	if o, ok := other.(*CallID); ok && o != nil && hdr != nil && *hdr == "" {
		*hdr = *o
	}
}

func (hdr *CallID) IsValid() bool { return hdr != nil && grammar.IsCallID(*hdr) }

func parseCallID(_ Name, value string) (Header, error) {
	if !grammar.IsCallID(value) {
		return nil, errtrace.Wrap(errorutil.NewWrapperError(ErrMalformedHeader, "invalid Call-ID %q", util.Ellipsis(value, 32)))
	}
	hdr := CallID(value)
	return &hdr, nil
}
