package header

//go:generate go tool errtrace -w .

import (
	"fmt"
	"io"
	"net/textproto"
	"strconv"
	"sync"

	"braces.dev/errtrace"

	"github.com/tmnsur/jsip-sub002/internal/grammar"
	"github.com/tmnsur/jsip-sub002/internal/ioutil"
	"github.com/tmnsur/jsip-sub002/internal/types"
	"github.com/tmnsur/jsip-sub002/internal/util"
)

// Addr represents a network address consisting of a host and optional port.
type Addr = types.Addr

// Params is a single-valued header parameter list.
type Params = types.Params

// ProtoInfo represents SIP protocol information (name and version).
type ProtoInfo = types.ProtoInfo

// TransportProto represents a transport protocol (UDP, TCP, TLS, SCTP, WS, WSS).
type TransportProto = types.TransportProto

// RequestMethod represents a SIP request method (INVITE, ACK, BYE, etc.).
type RequestMethod = types.RequestMethod

// RenderOptions contains options for rendering headers and URIs.
type RenderOptions = types.RenderOptions

// Header represents a generic SIP header.
type Header interface {
	types.Renderer
	types.Cloneable[Header]
	types.ValidFlag
	types.Equalable
	types.Matcher
	types.Merger
	CanonicName() Name
	CompactName() Name
	RenderValue() string
}

// Name represents a SIP header name.
type Name string

// ToCanonic converts the Name to its canonical form.
func (n Name) ToCanonic() Name { return CanonicName(n) }

// IsValid checks whether the Name is syntactically valid.
func (n Name) IsValid() bool { return grammar.IsToken(n) }

// Equal compares names in canonical form.
func (n Name) Equal(val any) bool {
	var other Name
	switch v := val.(type) {
	case Name:
		other = v
	case *Name:
		if v == nil {
			return false
		}
		other = *v
	default:
		return false
	}
	return CanonicName(n) == CanonicName(other)
}

var hdrNames = map[string]Name{
	"c":                "Content-Type",
	"e":                "Content-Encoding",
	"f":                "From",
	"i":                "Call-ID",
	"k":                "Supported",
	"l":                "Content-Length",
	"m":                "Contact",
	"s":                "Subject",
	"t":                "To",
	"v":                "Via",
	"Call-Id":          "Call-ID",
	"Cseq":             "CSeq",
	"Mime-Version":     "MIME-Version",
	"Www-Authenticate": "WWW-Authenticate",
}

var compactNames = map[Name]Name{
	"Content-Type":     "c",
	"Content-Encoding": "e",
	"From":             "f",
	"Call-ID":          "i",
	"Supported":        "k",
	"Content-Length":   "l",
	"Contact":          "m",
	"Subject":          "s",
	"To":               "t",
	"Via":              "v",
}

// extNames holds compact aliases of registered extension headers, lower-cased alias -> Name.
var extNames sync.Map

// CanonicName converts name to the canonical form.
// The canonicalization converts the first letter and any letter following a hyphen to upper case;
// the rest are converted to lowercase. For example, the canonical name for "accept-encoding" is "Accept-Encoding".
// Also, any compact name is converted to its full canonical form. For example, "c" converts to "Content-Type".
func CanonicName[T ~string](name T) Name {
	s := string(util.TrimSP(name))
	if n, ok := hdrNames[s]; ok {
		return n
	}
	if n, ok := extNames.Load(util.LCase(s)); ok {
		return n.(Name) //nolint:forcetypeassert
	}

	s = textproto.CanonicalMIMEHeaderKey(s)
	if n, ok := hdrNames[s]; ok {
		return n
	}
	return Name(s)
}

// CompactNameOf returns the compact form of the header name or the canonical name when it has none.
func CompactNameOf[T ~string](name T) Name {
	n := CanonicName(name)
	if c, ok := compactNames[n]; ok {
		return c
	}
	return n
}

func hdrName(hdr Header, opts *RenderOptions) Name {
	if opts != nil && opts.Compact {
		return hdr.CompactName()
	}
	return hdr.CanonicName()
}

// renderHdr writes "Name: value" using the value renderer.
func renderHdr(w io.Writer, hdr Header, opts *RenderOptions, value func(io.Writer) (int, error)) (int, error) {
	cw := ioutil.GetCountingWriter(w)
	defer ioutil.FreeCountingWriter(cw)
	cw.WriteString(string(hdrName(hdr, opts)))
	cw.WriteString(": ")
	cw.Call(value)
	return errtrace.Wrap2(cw.Result())
}

// formatHdr implements fmt.Formatter for headers:
// %s prints the value, %+s the whole header, %q and %+q the quoted forms.
// Other verbs print plain, which must be the header converted to a type without methods.
func formatHdr(f fmt.State, verb rune, hdr Header, plain any) {
	switch verb {
	case 's':
		if f.Flag('+') {
			hdr.RenderTo(f, nil) //nolint:errcheck
			return
		}
		fmt.Fprint(f, hdr.RenderValue())
	case 'q':
		if f.Flag('+') {
			fmt.Fprint(f, strconv.Quote(hdr.Render(nil)))
			return
		}
		fmt.Fprint(f, strconv.Quote(hdr.RenderValue()))
	default:
		fmt.Fprintf(f, fmt.FormatString(f, verb), plain)
	}
}

func renderToString(fn func(io.Writer) (int, error)) string {
	sb := util.GetStringBuilder()
	defer util.FreeStringBuilder(sb)
	fn(sb) //nolint:errcheck
	return sb.String()
}

func renderHdrString(hdr Header, opts *RenderOptions) string {
	return renderToString(func(w io.Writer) (int, error) { return hdr.RenderTo(w, opts) })
}

func renderHdrEntries[E interface{ RenderTo(io.Writer) (int, error) }](w io.Writer, entries []E) (int, error) {
	cw := ioutil.GetCountingWriter(w)
	defer ioutil.FreeCountingWriter(cw)
	for i := range entries {
		if i > 0 {
			cw.WriteString(", ")
		}
		cw.Call(entries[i].RenderTo)
	}
	return errtrace.Wrap2(cw.Result())
}

// matchHdrEntries reports whether every template entry matches a distinct entry of the list.
func matchHdrEntries[E any](entries, tmpl []E, match func(e, t E) bool) bool {
	used := make([]bool, len(entries))
	for _, t := range tmpl {
		found := false
		for i, e := range entries {
			if !used[i] && match(e, t) {
				used[i], found = true, true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// mergeHdrEntries merges entries pairwise by position and appends missing ones.
func mergeHdrEntries[E any](entries, other []E, merge func(e *E, o E), clone func(E) E) []E {
	for i := range min(len(entries), len(other)) {
		merge(&entries[i], other[i])
	}
	for i := len(entries); i < len(other); i++ {
		entries = append(entries, clone(other[i]))
	}
	return entries
}
