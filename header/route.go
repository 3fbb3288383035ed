package header

import (
	"fmt"
	"io"

	"braces.dev/errtrace"
)

// Route represents the Route header field.
// The Route header field is used to force routing for a request through the listed set of proxies.
type Route []NameAddr

func (*Route) CanonicName() Name { return "Route" }

func (*Route) CompactName() Name { return "Route" }

func (hdr *Route) RenderTo(w io.Writer, opts *RenderOptions) (num int, err error) {
	if hdr == nil {
		return 0, nil
	}
	return errtrace.Wrap2(renderHdr(w, hdr, opts, hdr.renderValueTo))
}

func (hdr *Route) renderValueTo(w io.Writer) (num int, err error) {
	return errtrace.Wrap2(renderHdrEntries(w, *hdr))
}

func (hdr *Route) Render(opts *RenderOptions) string {
	if hdr == nil {
		return ""
	}
	return renderHdrString(hdr, opts)
}

func (hdr *Route) String() string { return hdr.RenderValue() }

func (hdr *Route) RenderValue() string {
	if hdr == nil {
		return ""
	}
	return renderToString(hdr.renderValueTo)
}

func (hdr *Route) Format(f fmt.State, verb rune) {
	type hideMethods Route
	type Route hideMethods
	formatHdr(f, verb, hdr, (*Route)(hdr))
}

func (hdr *Route) Clone() Header {
	if hdr == nil {
		return nil
	}
	hdr2 := Route(cloneNameAddrs(*hdr))
	return &hdr2
}

func (hdr *Route) Equal(val any) bool {
	var other *Route
	switch v := val.(type) {
	case Route:
		other = &v
	case *Route:
		other = v
	default:
		return false
	}

	if hdr == other {
		return true
	} else if hdr == nil || other == nil {
		return false
	}
	return equalNameAddrs(*hdr, *other)
}

func (hdr *Route) Match(tmpl any) bool {
	var t *Route
	switch v := tmpl.(type) {
	case nil:
		return true
	case Route:
		t = &v
	case *Route:
		t = v
	default:
		return false
	}
	if t == nil {
		return true
	} else if hdr == nil {
		return false
	}
	return matchHdrEntries(*hdr, *t, NameAddr.Match)
}

func (hdr *Route) MergeFrom(other any) {
	if o, ok := other.(*Route); ok && o != nil && hdr != nil {
		*hdr = mergeNameAddrs(*hdr, *o)
	}
}

func (hdr *Route) IsValid() bool { return hdr != nil && validNameAddrs(*hdr) }

func parseRoute(_ Name, value string) (Header, error) {
	addrs, err := parseNameAddrList(value)
	if err != nil {
		return nil, errtrace.Wrap(err)
	}
	hdr := Route(addrs)
	return &hdr, nil
}

// RecordRoute represents the Record-Route header field.
// The Record-Route header field is inserted by proxies in a request to force future requests in the dialog to be routed through the proxy.
type RecordRoute []NameAddr

func (*RecordRoute) CanonicName() Name { return "Record-Route" }

func (*RecordRoute) CompactName() Name { return "Record-Route" }

func (hdr *RecordRoute) RenderTo(w io.Writer, opts *RenderOptions) (num int, err error) {
	if hdr == nil {
		return 0, nil
	}
	return errtrace.Wrap2(renderHdr(w, hdr, opts, hdr.renderValueTo))
}

func (hdr *RecordRoute) renderValueTo(w io.Writer) (num int, err error) {
	return errtrace.Wrap2(renderHdrEntries(w, *hdr))
}

func (hdr *RecordRoute) Render(opts *RenderOptions) string {
	if hdr == nil {
		return ""
	}
	return renderHdrString(hdr, opts)
}

func (hdr *RecordRoute) String() string { return hdr.RenderValue() }

func (hdr *RecordRoute) RenderValue() string {
	if hdr == nil {
		return ""
	}
	return renderToString(hdr.renderValueTo)
}

func (hdr *RecordRoute) Format(f fmt.State, verb rune) {
	type hideMethods RecordRoute
	type RecordRoute hideMethods
	formatHdr(f, verb, hdr, (*RecordRoute)(hdr))
}

func (hdr *RecordRoute) Clone() Header {
	if hdr == nil {
		return nil
	}
	hdr2 := RecordRoute(cloneNameAddrs(*hdr))
	return &hdr2
}

func (hdr *RecordRoute) Equal(val any) bool {
	var other *RecordRoute
	switch v := val.(type) {
	case RecordRoute:
		other = &v
	case *RecordRoute:
		other = v
	default:
		return false
	}

	if hdr == other {
		return true
	} else if hdr == nil || other == nil {
		return false
	}
	return equalNameAddrs(*hdr, *other)
}

func (hdr *RecordRoute) Match(tmpl any) bool {
	var t *RecordRoute
	switch v := tmpl.(type) {
	case nil:
		return true
	case RecordRoute:
		t = &v
	case *RecordRoute:
		t = v
	default:
		return false
	}
	if t == nil {
		return true
	} else if hdr == nil {
		return false
	}
	return matchHdrEntries(*hdr, *t, NameAddr.Match)
}

func (hdr *RecordRoute) MergeFrom(other any) {
	if o, ok := other.(*RecordRoute); ok && o != nil && hdr != nil {
		*hdr = mergeNameAddrs(*hdr, *o)
	}
}

func (hdr *RecordRoute) IsValid() bool { return hdr != nil && validNameAddrs(*hdr) }

func parseRecordRoute(_ Name, value string) (Header, error) {
	addrs, err := parseNameAddrList(value)
	if err != nil {
		return nil, errtrace.Wrap(err)
	}
	hdr := RecordRoute(addrs)
	return &hdr, nil
}
