package header

import (
	"fmt"
	"io"

	"braces.dev/errtrace"
)

// From represents the From header field.
// The From header field indicates the initiator of the request.
type From NameAddr

func (*From) CanonicName() Name { return "From" }

func (*From) CompactName() Name { return "f" }

func (hdr *From) RenderTo(w io.Writer, opts *RenderOptions) (num int, err error) {
	if hdr == nil {
		return 0, nil
	}
	return errtrace.Wrap2(renderHdr(w, hdr, opts, NameAddr(*hdr).RenderTo))
}

func (hdr *From) Render(opts *RenderOptions) string {
	if hdr == nil {
		return ""
	}
	return renderHdrString(hdr, opts)
}

func (hdr *From) String() string { return hdr.RenderValue() }

func (hdr *From) RenderValue() string {
	if hdr == nil {
		return ""
	}
	return NameAddr(*hdr).String()
}

func (hdr *From) Format(f fmt.State, verb rune) {
	type hideMethods From
	type From hideMethods
	formatHdr(f, verb, hdr, (*From)(hdr))
}

func (hdr *From) Clone() Header {
	if hdr == nil {
		return nil
	}
	hdr2 := From(NameAddr(*hdr).Clone())
	return &hdr2
}

func (hdr *From) Equal(val any) bool {
	var other *From
	switch v := val.(type) {
	case From:
		other = &v
	case *From:
		other = v
	default:
		return false
	}

	if hdr == other {
		return true
	} else if hdr == nil || other == nil {
		return false
	}
	return NameAddr(*hdr).Equal(NameAddr(*other))
}

func (hdr *From) Match(tmpl any) bool {
	var t *From
	switch v := tmpl.(type) {
	case nil:
		return true
	case From:
		t = &v
	case *From:
		t = v
	default:
		return false
	}
	if t == nil {
		return true
	} else if hdr == nil {
		return false
	}
	return NameAddr(*hdr).Match(NameAddr(*t))
}

func (hdr *From) MergeFrom(other any) {
	if o, ok := other.(*From); ok && o != nil && hdr != nil {
		*hdr = From(NameAddr(*hdr).Merge(NameAddr(*o)))
	}
}

func (hdr *From) IsValid() bool { return hdr != nil && NameAddr(*hdr).IsValid() }

// Tag returns the tag parameter.
func (hdr *From) Tag() (string, bool) {
	if hdr == nil {
		return "", false
	}
	return NameAddr(*hdr).Tag()
}

func parseFrom(_ Name, value string) (Header, error) {
	addr, err := ParseNameAddr(value)
	if err != nil {
		return nil, errtrace.Wrap(err)
	}
	hdr := From(addr)
	return &hdr, nil
}

// To represents the To header field.
// The To header field specifies the logical recipient of the request.
type To NameAddr

func (*To) CanonicName() Name { return "To" }

func (*To) CompactName() Name { return "t" }

func (hdr *To) RenderTo(w io.Writer, opts *RenderOptions) (num int, err error) {
	if hdr == nil {
		return 0, nil
	}
	return errtrace.Wrap2(renderHdr(w, hdr, opts, NameAddr(*hdr).RenderTo))
}

func (hdr *To) Render(opts *RenderOptions) string {
	if hdr == nil {
		return ""
	}
	return renderHdrString(hdr, opts)
}

func (hdr *To) String() string { return hdr.RenderValue() }

func (hdr *To) RenderValue() string {
	if hdr == nil {
		return ""
	}
	return NameAddr(*hdr).String()
}

func (hdr *To) Format(f fmt.State, verb rune) {
	type hideMethods To
	type To hideMethods
	formatHdr(f, verb, hdr, (*To)(hdr))
}

func (hdr *To) Clone() Header {
	if hdr == nil {
		return nil
	}
	hdr2 := To(NameAddr(*hdr).Clone())
	return &hdr2
}

func (hdr *To) Equal(val any) bool {
	var other *To
	switch v := val.(type) {
	case To:
		other = &v
	case *To:
		other = v
	default:
		return false
	}

	if hdr == other {
		return true
	} else if hdr == nil || other == nil {
		return false
	}
	return NameAddr(*hdr).Equal(NameAddr(*other))
}

func (hdr *To) Match(tmpl any) bool {
	var t *To
	switch v := tmpl.(type) {
	case nil:
		return true
	case To:
		t = &v
	case *To:
		t = v
	default:
		return false
	}
	if t == nil {
		return true
	} else if hdr == nil {
		return false
	}
	return NameAddr(*hdr).Match(NameAddr(*t))
}

func (hdr *To) MergeFrom(other any) {
	if o, ok := other.(*To); ok && o != nil && hdr != nil {
		*hdr = To(NameAddr(*hdr).Merge(NameAddr(*o)))
	}
}

func (hdr *To) IsValid() bool { return hdr != nil && NameAddr(*hdr).IsValid() }

// Tag returns the tag parameter.
func (hdr *To) Tag() (string, bool) {
	if hdr == nil {
		return "", false
	}
	return NameAddr(*hdr).Tag()
}

func parseTo(_ Name, value string) (Header, error) {
	addr, err := ParseNameAddr(value)
	if err != nil {
		return nil, errtrace.Wrap(err)
	}
	hdr := To(addr)
	return &hdr, nil
}
