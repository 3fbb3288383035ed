// Package uri implements the URIs carried by SIP messages: SIP and SIPS URIs (RFC 3261),
// telephone URIs (RFC 3966) and a generic fallback for any other scheme.
//
// All URI types implement the [URI] interface and provide rendering, deep copying,
// RFC equality, partial template matching and merging:
//
//	u, err := uri.Parse("sip:alice@example.com;transport=tcp")
//	if err != nil {
//	    return err
//	}
//	tmpl := &uri.SIP{Addr: uri.Host("example.com")}
//	u.Match(tmpl) // true
//
// URI types are not safe for concurrent modification, use Clone to share them.
package uri
