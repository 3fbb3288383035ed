package uri

//go:generate go tool errtrace -w .

import (
	"braces.dev/errtrace"

	"github.com/tmnsur/jsip-sub002/internal/grammar"
	"github.com/tmnsur/jsip-sub002/internal/types"
	"github.com/tmnsur/jsip-sub002/internal/util"
)

// Addr represents a network address consisting of a host and optional port.
type Addr = types.Addr

// Host creates an Addr from a hostname without a port.
func Host(host string) Addr { return types.Host(host) }

// HostPort creates an Addr from a hostname and port.
func HostPort(host string, port uint16) Addr { return types.HostPort(host, port) }

// Params is a single-valued URI parameter list.
type Params = types.Params

// Headers is a multi-valued URI header list.
type Headers = types.MultiParams

// RenderOptions contains options for rendering URIs.
type RenderOptions = types.RenderOptions

// URI represents generic URI (SIP, SIPS, Tel, ...etc).
type URI interface {
	types.Renderer
	types.Cloneable[URI]
	types.ValidFlag
	types.Equalable
	types.Matcher
	types.Merger
	Scheme() string
}

// ErrInvalidURI is returned when the input is not a URI at all.
const ErrInvalidURI grammar.Error = "invalid URI"

// Parse parses any URI (sip, sips, tel, ...etc.) from a given input s (string or []byte).
//
// Parsing of:
//   - sip/sips returns [SIP];
//   - tel URI returns [Tel];
//   - any other URI returns [Any].
func Parse[T ~string | ~[]byte](s T) (URI, error) {
	switch {
	case util.HasPrefixFold(s, "sip:"), util.HasPrefixFold(s, "sips:"):
		return errtrace.Wrap2(ParseSIP(s))
	case util.HasPrefixFold(s, "tel:"):
		return errtrace.Wrap2(ParseTel(s))
	default:
		return errtrace.Wrap2(ParseAny(s))
	}
}

// GetAddr returns the address part of the URI: host and port of SIP URIs,
// the number of Tel URIs and host with path of other URIs.
func GetAddr(u URI) string {
	switch u := u.(type) {
	case *SIP:
		if u == nil {
			return ""
		}
		return u.Addr.String()
	case *Tel:
		if u == nil {
			return ""
		}
		return u.Number
	case *Any:
		if u == nil {
			return ""
		}
		return u.Host + u.Path
	default:
		return ""
	}
}

func escapeParam(s string) string { return grammar.Escape(s, grammar.IsParamChar) }

func escapeHeader(s string) string { return grammar.Escape(s, grammar.IsHeaderChar) }
