// Package header implements SIP header fields and the registry that maps header names
// to their parsers.
//
// Every header type implements [Header]: rendering in full or compact form, deep copying,
// equality, partial matching against a template and merging of missing fields.
// Names are case-insensitive and compact forms ("v", "i", "l", ...) are resolved to
// canonical names. Headers without a registered parser are parsed into [Any], so an unknown
// or extension header never fails a message:
//
//	hdr, err := header.Parse("Via: SIP/2.0/TCP a.example.com;branch=z9hG4bK776")
//
// Extension parsers can be added at runtime with [Register].
package header
