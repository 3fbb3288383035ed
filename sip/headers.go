package sip

import (
	"io"
	"slices"

	"braces.dev/errtrace"
	"github.com/samber/lo"

	"github.com/tmnsur/jsip-sub002/header"
	"github.com/tmnsur/jsip-sub002/internal/errorutil"
	"github.com/tmnsur/jsip-sub002/internal/ioutil"
	"github.com/tmnsur/jsip-sub002/internal/types"
)

// Header is a SIP header, see [header.Header].
type Header = header.Header

// HeaderName is a SIP header name, see [header.Name].
type HeaderName = header.Name

// RenderOptions contains options for rendering messages.
type RenderOptions = types.RenderOptions

// Headers is an ordered list of message headers. Repeated names are allowed.
type Headers []Header

func hdrIs(name HeaderName) func(Header, int) bool {
	n := header.CanonicName(name)
	return func(h Header, _ int) bool { return h != nil && h.CanonicName() == n }
}

// Append adds headers to the end of the list.
func (hs *Headers) Append(hdrs ...Header) *Headers {
	*hs = append(*hs, lo.Compact(hdrs)...)
	return hs
}

// Prepend adds headers to the beginning of the list.
func (hs *Headers) Prepend(hdrs ...Header) *Headers {
	*hs = slices.Insert(*hs, 0, lo.Compact(hdrs)...)
	return hs
}

// Set replaces all headers with the same name by hdr, keeping the position of the first one.
func (hs *Headers) Set(hdr Header) *Headers {
	if hdr == nil {
		return hs
	}
	i := slices.IndexFunc(*hs, func(h Header) bool { return hdrIs(hdr.CanonicName())(h, 0) })
	if i < 0 {
		return hs.Append(hdr)
	}
	hs.Del(hdr.CanonicName())
	*hs = slices.Insert(*hs, min(i, len(*hs)), hdr)
	return hs
}

// Del removes all headers with the name.
func (hs *Headers) Del(name HeaderName) *Headers {
	is := hdrIs(name)
	*hs = slices.DeleteFunc(*hs, func(h Header) bool { return is(h, 0) })
	return hs
}

// Get returns all headers with the name in order of appearance.
// The name can be in any case or in the compact form.
func (hs Headers) Get(name HeaderName) []Header { return lo.Filter(hs, hdrIs(name)) }

// First returns the first header with the name.
func (hs Headers) First(name HeaderName) (Header, bool) {
	h, _, ok := lo.FindIndexOf(hs, func(h Header) bool { return hdrIs(name)(h, 0) })
	return h, ok
}

// Has reports whether the list contains a header with the name.
func (hs Headers) Has(name HeaderName) bool {
	return lo.ContainsBy(hs, func(h Header) bool { return hdrIs(name)(h, 0) })
}

// Names returns distinct header names in order of first appearance.
func (hs Headers) Names() []HeaderName {
	return lo.Uniq(lo.Map(hs, func(h Header, _ int) HeaderName { return h.CanonicName() }))
}

func firstAs[T Header](hs Headers, name HeaderName) (T, bool) {
	var zero T
	h, ok := hs.First(name)
	if !ok {
		return zero, false
	}
	t, ok := h.(T)
	return t, ok
}

// CallID returns the value of the first Call-ID header.
func (hs Headers) CallID() (string, bool) {
	h, ok := firstAs[*header.CallID](hs, "Call-ID")
	if !ok || h == nil {
		return "", false
	}
	return string(*h), true
}

// CSeq returns the first CSeq header.
func (hs Headers) CSeq() (*header.CSeq, bool) { return firstAs[*header.CSeq](hs, "CSeq") }

// From returns the first From header.
func (hs Headers) From() (*header.From, bool) { return firstAs[*header.From](hs, "From") }

// To returns the first To header.
func (hs Headers) To() (*header.To, bool) { return firstAs[*header.To](hs, "To") }

// ContentType returns the first Content-Type header.
func (hs Headers) ContentType() (*header.ContentType, bool) {
	return firstAs[*header.ContentType](hs, "Content-Type")
}

// ContentLength returns the value of the first Content-Length header.
func (hs Headers) ContentLength() (uint, bool) {
	h, ok := firstAs[*header.ContentLength](hs, "Content-Length")
	if !ok || h == nil {
		return 0, false
	}
	return uint(*h), true
}

// Via returns all Via hops in order of appearance, across all Via headers.
func (hs Headers) Via() []header.ViaHop {
	var hops []header.ViaHop
	for _, h := range hs.Get("Via") {
		if via, ok := h.(*header.Via); ok && via != nil {
			hops = append(hops, *via...)
		}
	}
	return hops
}

// RenderTo writes each header followed by CRLF.
func (hs Headers) RenderTo(w io.Writer, opts *RenderOptions) (num int, err error) {
	cw := ioutil.GetCountingWriter(w)
	defer ioutil.FreeCountingWriter(cw)
	for _, h := range hs {
		if h == nil {
			continue
		}
		cw.Call(func(w io.Writer) (int, error) { return errtrace.Wrap2(h.RenderTo(w, opts)) })
		cw.WriteString("\r\n")
	}
	return errtrace.Wrap2(cw.Result())
}

// Clone returns a deep copy of the list.
func (hs Headers) Clone() Headers {
	if hs == nil {
		return nil
	}
	return lo.Map(hs, func(h Header, _ int) Header {
		if h == nil {
			return nil
		}
		return h.Clone()
	})
}

// Equal compares header lists.
// The relative order of headers with different names is insignificant,
// headers with the same name must go in the same order.
func (hs Headers) Equal(val any) bool {
	var other Headers
	switch v := val.(type) {
	case Headers:
		other = v
	case *Headers:
		if v == nil {
			return false
		}
		other = *v
	default:
		return false
	}

	if len(hs) != len(other) {
		return false
	}
	for _, n := range hs.Names() {
		if !slices.EqualFunc(hs.Get(n), other.Get(n), func(h1, h2 Header) bool { return h1.Equal(h2) }) {
			return false
		}
	}
	return true
}

// Match reports whether every template header matches a distinct header of the list with the same name.
func (hs Headers) Match(tmpl any) bool {
	var t Headers
	switch v := tmpl.(type) {
	case nil:
		return true
	case Headers:
		t = v
	case *Headers:
		if v == nil {
			return true
		}
		t = *v
	default:
		return false
	}

	used := make([]bool, len(hs))
	for _, th := range t {
		if th == nil {
			continue
		}
		found := false
		for i, h := range hs {
			if !used[i] && h != nil && h.CanonicName() == th.CanonicName() && h.Match(th) {
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

// MergeFrom merges headers of other into the list.
// Headers of the same name are merged pairwise in order, the rest are appended as copies.
func (hs *Headers) MergeFrom(other any) {
	var o Headers
	switch v := other.(type) {
	case Headers:
		o = v
	case *Headers:
		if v == nil {
			return
		}
		o = *v
	default:
		return
	}

	for _, n := range o.Names() {
		mine, theirs := hs.Get(n), o.Get(n)
		for i, h := range theirs {
			if i < len(mine) {
				mine[i].MergeFrom(h)
				continue
			}
			hs.Append(h.Clone())
		}
	}
}

// Validate reports invalid headers, all problems are joined into a single error.
func (hs Headers) Validate() error {
	var errs []error
	for _, h := range hs {
		if h != nil && !h.IsValid() {
			errs = append(errs, errorutil.Errorf("invalid %s header %q", h.CanonicName(), h.RenderValue()))
		}
	}
	return errtrace.Wrap(errorutil.JoinPrefix("invalid headers", errs...))
}
