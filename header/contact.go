package header

import (
	"fmt"
	"io"

	"braces.dev/errtrace"

	"github.com/tmnsur/jsip-sub002/internal/util"
)

// Contact represents the Contact header field.
// A Contact header field value provides a URI whose meaning depends on the type of request or response it is in.
type Contact []NameAddr

func (*Contact) CanonicName() Name { return "Contact" }

func (*Contact) CompactName() Name { return "m" }

func (hdr *Contact) RenderTo(w io.Writer, opts *RenderOptions) (num int, err error) {
	if hdr == nil {
		return 0, nil
	}
	return errtrace.Wrap2(renderHdr(w, hdr, opts, hdr.renderValueTo))
}

func (hdr *Contact) renderValueTo(w io.Writer) (num int, err error) {
	return errtrace.Wrap2(renderHdrEntries(w, *hdr))
}

func (hdr *Contact) Render(opts *RenderOptions) string {
	if hdr == nil {
		return ""
	}
	return renderHdrString(hdr, opts)
}

func (hdr *Contact) String() string { return hdr.RenderValue() }

func (hdr *Contact) RenderValue() string {
	if hdr == nil {
		return ""
	}
	return renderToString(hdr.renderValueTo)
}

func (hdr *Contact) Format(f fmt.State, verb rune) {
	type hideMethods Contact
	type Contact hideMethods
	formatHdr(f, verb, hdr, (*Contact)(hdr))
}

func (hdr *Contact) Clone() Header {
	if hdr == nil {
		return nil
	}
	hdr2 := Contact(cloneNameAddrs(*hdr))
	return &hdr2
}

func (hdr *Contact) Equal(val any) bool {
	var other *Contact
	switch v := val.(type) {
	case Contact:
		other = &v
	case *Contact:
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

func (hdr *Contact) Match(tmpl any) bool {
	var t *Contact
	switch v := tmpl.(type) {
	case nil:
		return true
	case Contact:
		t = &v
	case *Contact:
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

func (hdr *Contact) MergeFrom(other any) {
	if o, ok := other.(*Contact); ok && o != nil && hdr != nil {
		*hdr = mergeNameAddrs(*hdr, *o)
	}
}

func (hdr *Contact) IsValid() bool { return hdr != nil && validNameAddrs(*hdr) }

// parseContact parses the list of contacts. The "*" form used to remove all registrations
// has no address, it is returned as [Any].
func parseContact(name Name, value string) (Header, error) {
	if util.TrimSP(value) == "*" {
		return &Any{Name: string(name), Value: "*"}, nil
	}
	addrs, err := parseNameAddrList(value)
	if err != nil {
		return nil, errtrace.Wrap(err)
	}
	hdr := Contact(addrs)
	return &hdr, nil
}
