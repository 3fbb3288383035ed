package header

import (
	"fmt"
	"io"
	"slices"

	"braces.dev/errtrace"

	"github.com/tmnsur/jsip-sub002/internal/ioutil"
	"github.com/tmnsur/jsip-sub002/syntax"
)

// Via represents the Via header field.
// The Via header field indicates the path taken by the request so far and indicates the path
// that should be followed in routing responses.
type Via []ViaHop

func (*Via) CanonicName() Name { return "Via" }

func (*Via) CompactName() Name { return "v" }

func (hdr *Via) RenderTo(w io.Writer, opts *RenderOptions) (num int, err error) {
	if hdr == nil {
		return 0, nil
	}
	return errtrace.Wrap2(renderHdr(w, hdr, opts, hdr.renderValueTo))
}

func (hdr *Via) renderValueTo(w io.Writer) (num int, err error) {
	return errtrace.Wrap2(renderHdrEntries(w, *hdr))
}

func (hdr *Via) Render(opts *RenderOptions) string {
	if hdr == nil {
		return ""
	}
	return renderHdrString(hdr, opts)
}

func (hdr *Via) String() string { return hdr.RenderValue() }

func (hdr *Via) RenderValue() string {
	if hdr == nil {
		return ""
	}
	return renderToString(hdr.renderValueTo)
}

func (hdr *Via) Format(f fmt.State, verb rune) {
	type hideMethods Via
	type Via hideMethods
	formatHdr(f, verb, hdr, (*Via)(hdr))
}

func (hdr *Via) Clone() Header {
	if hdr == nil {
		return nil
	}
	hdr2 := make(Via, len(*hdr))
	for i := range *hdr {
		hdr2[i] = (*hdr)[i].Clone()
	}
	return &hdr2
}

// Equal compares hops pairwise in order.
func (hdr *Via) Equal(val any) bool {
	var other *Via
	switch v := val.(type) {
	case Via:
		other = &v
	case *Via:
		other = v
	default:
		return false
	}

	if hdr == other {
		return true
	} else if hdr == nil || other == nil {
		return false
	}
	return slices.EqualFunc(*hdr, *other, func(h1, h2 ViaHop) bool { return h1.Equal(h2) })
}

// Match reports whether every template hop matches a distinct hop of the header.
func (hdr *Via) Match(tmpl any) bool {
	var t *Via
	switch v := tmpl.(type) {
	case nil:
		return true
	case Via:
		t = &v
	case *Via:
		t = v
	default:
		return false
	}
	if t == nil {
		return true
	} else if hdr == nil {
		return false
	}
	return matchHdrEntries(*hdr, *t, ViaHop.Match)
}

// MergeFrom fills missing fields hop by hop, hops missing in the header are appended.
func (hdr *Via) MergeFrom(other any) {
	o, ok := other.(*Via)
	if hdr == nil || !ok || o == nil {
		return
	}
	*hdr = mergeHdrEntries(*hdr, *o, func(h *ViaHop, o ViaHop) { *h = h.Merge(o) }, ViaHop.Clone)
}

func (hdr *Via) IsValid() bool {
	return hdr != nil && len(*hdr) > 0 && !slices.ContainsFunc(*hdr, func(h ViaHop) bool { return !h.IsValid() })
}

// ViaHop is a single via-parm entry of the [Via] header.
type ViaHop struct {
	Proto     ProtoInfo
	Transport TransportProto
	Addr      Addr
	Params    Params
}

func (hop ViaHop) RenderTo(w io.Writer) (num int, err error) {
	cw := ioutil.GetCountingWriter(w)
	defer ioutil.FreeCountingWriter(cw)
	cw.WriteString(hop.Proto.String())
	cw.WriteString("/")
	cw.WriteString(string(hop.Transport))
	cw.WriteString(" ")
	cw.WriteString(hop.Addr.String())
	cw.Call(func(w io.Writer) (int, error) { return errtrace.Wrap2(hop.Params.RenderTo(w, ";")) })
	return errtrace.Wrap2(cw.Result())
}

func (hop ViaHop) String() string { return renderToString(hop.RenderTo) }

func (hop ViaHop) Clone() ViaHop {
	hop.Addr = hop.Addr.Clone()
	hop.Params = hop.Params.Clone()
	return hop
}

// Equal compares hops, the transport is case-insensitive.
func (hop ViaHop) Equal(val any) bool {
	var other ViaHop
	switch v := val.(type) {
	case ViaHop:
		other = v
	case *ViaHop:
		if v == nil {
			return false
		}
		other = *v
	default:
		return false
	}
	return hop.Proto.Equal(other.Proto) &&
		hop.Transport.Equal(other.Transport) &&
		hop.Addr.Equal(other.Addr) &&
		hop.Params.Equal(other.Params)
}

// Match reports whether the hop matches the template, zero template fields match anything.
func (hop ViaHop) Match(tmpl ViaHop) bool {
	return hop.Proto.Match(tmpl.Proto) &&
		(tmpl.Transport == "" || hop.Transport.Equal(tmpl.Transport)) &&
		hop.Addr.Match(tmpl.Addr) &&
		hop.Params.Match(tmpl.Params)
}

// Merge returns the hop with zero fields taken from other.
func (hop ViaHop) Merge(other ViaHop) ViaHop {
	hop.Proto = hop.Proto.Merge(other.Proto)
	if hop.Transport == "" {
		hop.Transport = other.Transport
	}
	hop.Addr = hop.Addr.Merge(other.Addr)
	hop.Params = hop.Params.Clone().Merge(other.Params)
	return hop
}

func (hop ViaHop) IsValid() bool {
	return hop.Proto.IsValid() && hop.Transport.IsValid() && hop.Addr.IsValid() && hop.Params.IsValid()
}

// Branch returns the branch parameter.
func (hop ViaHop) Branch() (string, bool) { return hop.Params.Value("branch") }

// Received returns the received parameter.
func (hop ViaHop) Received() (string, bool) { return hop.Params.Value("received") }

// RPort returns the rport parameter, the value is empty in requests.
func (hop ViaHop) RPort() (string, bool) { return hop.Params.Value("rport") }

// IsRFC3261 reports whether the branch starts with the RFC 3261 magic cookie.
func (hop ViaHop) IsRFC3261() bool {
	b, _ := hop.Branch()
	return len(b) > 7 && b[:7] == "z9hG4bK"
}

func parseVia(_ Name, value string) (Header, error) {
	l := newLexer(value)
	var hdr Via
	for {
		hop, err := parseViaHop(l)
		if err != nil {
			return nil, errtrace.Wrap(err)
		}
		hdr = append(hdr, hop)
		if !l.Sep(',') {
			break
		}
	}
	if err := l.ExpectEOF(); err != nil {
		return nil, errtrace.Wrap(err)
	}
	return &hdr, nil
}

func parseViaHop(l *syntax.Lexer) (ViaHop, error) {
	var (
		hop   ViaHop
		parts [3]string
	)
	for i := range parts {
		if i > 0 && !l.Sep('/') {
			return ViaHop{}, errtrace.Wrap(l.Errorf("expected '/' in sent-protocol"))
		}
		s, err := l.Ident()
		if err != nil {
			return ViaHop{}, errtrace.Wrap(err)
		}
		parts[i] = s
	}
	if l.SkipLWS() == 0 {
		return ViaHop{}, errtrace.Wrap(l.Errorf("expected whitespace after sent-protocol"))
	}
	hop.Proto = ProtoInfo{Name: parts[0], Version: parts[1]}
	hop.Transport = TransportProto(parts[2])

	addr, err := syntax.ParseHostPort(l)
	if err != nil {
		return ViaHop{}, errtrace.Wrap(err)
	}
	hop.Addr = addr

	if hop.Params, err = syntax.ParseParams(l, ';', '='); err != nil {
		return ViaHop{}, errtrace.Wrap(err)
	}
	return hop, nil
}
