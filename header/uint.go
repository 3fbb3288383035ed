package header

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"braces.dev/errtrace"

	"github.com/tmnsur/jsip-sub002/syntax"
)

// ContentLength represents the Content-Length header field.
// The Content-Length header field indicates the size of the message body in octets.
type ContentLength uint

func (*ContentLength) CanonicName() Name { return "Content-Length" }

func (*ContentLength) CompactName() Name { return "l" }

func (hdr *ContentLength) RenderTo(w io.Writer, opts *RenderOptions) (num int, err error) {
	if hdr == nil {
		return 0, nil
	}
	return errtrace.Wrap2(renderUint(w, hdr, opts, uint(*hdr)))
}

func (hdr *ContentLength) Render(opts *RenderOptions) string {
	if hdr == nil {
		return ""
	}
	return renderHdrString(hdr, opts)
}

func (hdr *ContentLength) String() string { return hdr.RenderValue() }

func (hdr *ContentLength) RenderValue() string {
	if hdr == nil {
		return ""
	}
	return strconv.FormatUint(uint64(*hdr), 10)
}

func (hdr *ContentLength) Format(f fmt.State, verb rune) { formatHdr(f, verb, hdr, hdr.RenderValue()) }

func (hdr *ContentLength) Clone() Header {
	if hdr == nil {
		return nil
	}
	hdr2 := *hdr
	return &hdr2
}

func (hdr *ContentLength) Equal(val any) bool {
	o, ok := uintOf[ContentLength](val)
	return ok && hdr != nil && *hdr == o
}

// Match only compares a non-nil template.
func (hdr *ContentLength) Match(tmpl any) bool {
	if isNilTmpl[ContentLength](tmpl) {
		return true
	}
	return hdr.Equal(tmpl)
}

// MergeFrom does nothing: zero is a meaningful length.
func (*ContentLength) MergeFrom(any) {}

func (hdr *ContentLength) IsValid() bool { return hdr != nil }

// MaxForwards represents the Max-Forwards header field.
// The Max-Forwards header field limits the number of proxies or gateways that can forward the request.
type MaxForwards uint

func (*MaxForwards) CanonicName() Name { return "Max-Forwards" }

func (*MaxForwards) CompactName() Name { return "Max-Forwards" }

func (hdr *MaxForwards) RenderTo(w io.Writer, opts *RenderOptions) (num int, err error) {
	if hdr == nil {
		return 0, nil
	}
	return errtrace.Wrap2(renderUint(w, hdr, opts, uint(*hdr)))
}

func (hdr *MaxForwards) Render(opts *RenderOptions) string {
	if hdr == nil {
		return ""
	}
	return renderHdrString(hdr, opts)
}

func (hdr *MaxForwards) String() string { return hdr.RenderValue() }

func (hdr *MaxForwards) RenderValue() string {
	if hdr == nil {
		return ""
	}
	return strconv.FormatUint(uint64(*hdr), 10)
}

func (hdr *MaxForwards) Format(f fmt.State, verb rune) { formatHdr(f, verb, hdr, hdr.RenderValue()) }

func (hdr *MaxForwards) Clone() Header {
	if hdr == nil {
		return nil
	}
	hdr2 := *hdr
	return &hdr2
}

func (hdr *MaxForwards) Equal(val any) bool {
	o, ok := uintOf[MaxForwards](val)
	return ok && hdr != nil && *hdr == o
}

func (hdr *MaxForwards) Match(tmpl any) bool {
	if isNilTmpl[MaxForwards](tmpl) {
		return true
	}
	return hdr.Equal(tmpl)
}

func (*MaxForwards) MergeFrom(any) {}

// IsValid checks the 0-255 range.
func (hdr *MaxForwards) IsValid() bool { return hdr != nil && *hdr <= 255 }

// Expires represents the Expires header field.
// The value is a relative time in seconds.
type Expires uint

func (*Expires) CanonicName() Name { return "Expires" }

func (*Expires) CompactName() Name { return "Expires" }

func (hdr *Expires) RenderTo(w io.Writer, opts *RenderOptions) (num int, err error) {
	if hdr == nil {
		return 0, nil
	}
	return errtrace.Wrap2(renderUint(w, hdr, opts, uint(*hdr)))
}

func (hdr *Expires) Render(opts *RenderOptions) string {
	if hdr == nil {
		return ""
	}
	return renderHdrString(hdr, opts)
}

func (hdr *Expires) String() string { return hdr.RenderValue() }

func (hdr *Expires) RenderValue() string {
	if hdr == nil {
		return ""
	}
	return strconv.FormatUint(uint64(*hdr), 10)
}

func (hdr *Expires) Format(f fmt.State, verb rune) { formatHdr(f, verb, hdr, hdr.RenderValue()) }

func (hdr *Expires) Clone() Header {
	if hdr == nil {
		return nil
	}
	hdr2 := *hdr
	return &hdr2
}

func (hdr *Expires) Equal(val any) bool {
	o, ok := uintOf[Expires](val)
	return ok && hdr != nil && *hdr == o
}

func (hdr *Expires) Match(tmpl any) bool {
	if isNilTmpl[Expires](tmpl) {
		return true
	}
	return hdr.Equal(tmpl)
}

func (*Expires) MergeFrom(any) {}

func (hdr *Expires) IsValid() bool { return hdr != nil }

// Duration returns the expiration interval.
func (hdr *Expires) Duration() time.Duration {
	if hdr == nil {
		return 0
	}
	return time.Duration(*hdr) * time.Second
}

func renderUint(w io.Writer, hdr Header, opts *RenderOptions, v uint) (int, error) {
	return errtrace.Wrap2(renderHdr(w, hdr, opts, func(w io.Writer) (int, error) {
		return errtrace.Wrap2(io.WriteString(w, strconv.FormatUint(uint64(v), 10)))
	}))
}

func uintOf[T ~uint](val any) (T, bool) {
	switch v := val.(type) {
	case T:
		return v, true
	case *T:
		if v == nil {
			return 0, false
		}
		return *v, true
	default:
		return 0, false
	}
}

func isNilTmpl[T any](tmpl any) bool {
	switch v := tmpl.(type) {
	case nil:
		return true
	case *T:
		return v == nil
	default:
		return false
	}
}

func parseUintValue(value string, bitSize int) (uint64, error) {
	l := newLexer(value)
	n, err := syntax.ParseUint(l, bitSize)
	if err != nil {
		return 0, errtrace.Wrap(err)
	}
	if err := l.ExpectEOF(); err != nil {
		return 0, errtrace.Wrap(err)
	}
	return n, nil
}

func parseContentLength(_ Name, value string) (Header, error) {
	n, err := parseUintValue(value, 32)
	if err != nil {
		return nil, errtrace.Wrap(err)
	}
	hdr := ContentLength(n)
	return &hdr, nil
}

func parseMaxForwards(_ Name, value string) (Header, error) {
	n, err := parseUintValue(value, 8)
	if err != nil {
		return nil, errtrace.Wrap(err)
	}
	hdr := MaxForwards(n)
	return &hdr, nil
}

func parseExpires(_ Name, value string) (Header, error) {
	n, err := parseUintValue(value, 32)
	if err != nil {
		return nil, errtrace.Wrap(err)
	}
	hdr := Expires(n)
	return &hdr, nil
}
