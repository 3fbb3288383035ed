package sip

import (
	"io"
	"log/slog"
	"slices"

	"braces.dev/errtrace"

	"github.com/tmnsur/jsip-sub002/header"
	"github.com/tmnsur/jsip-sub002/internal/errorutil"
	"github.com/tmnsur/jsip-sub002/internal/ioutil"
	"github.com/tmnsur/jsip-sub002/internal/types"
	"github.com/tmnsur/jsip-sub002/internal/util"
	"github.com/tmnsur/jsip-sub002/uri"
)

// URI represents a generic URI, see [uri.URI].
type URI = uri.URI

// ProtoInfo is a protocol name and version, see [types.ProtoInfo].
type ProtoInfo = types.ProtoInfo

// RequestMethod represents a SIP request method.
// See [types.RequestMethod].
type RequestMethod = types.RequestMethod

// Request method constants.
// See [types.RequestMethod].
const (
	RequestMethodAck       = types.RequestMethodAck
	RequestMethodBye       = types.RequestMethodBye
	RequestMethodCancel    = types.RequestMethodCancel
	RequestMethodInfo      = types.RequestMethodInfo
	RequestMethodInvite    = types.RequestMethodInvite
	RequestMethodMessage   = types.RequestMethodMessage
	RequestMethodNotify    = types.RequestMethodNotify
	RequestMethodOptions   = types.RequestMethodOptions
	RequestMethodPrack     = types.RequestMethodPrack
	RequestMethodPublish   = types.RequestMethodPublish
	RequestMethodRefer     = types.RequestMethodRefer
	RequestMethodRegister  = types.RequestMethodRegister
	RequestMethodSubscribe = types.RequestMethodSubscribe
	RequestMethodUpdate    = types.RequestMethodUpdate
)

// ResponseStatus is a SIP response status code, see [types.ResponseStatus].
type ResponseStatus = types.ResponseStatus

// Message represents a SIP message, a [*Request] or a [*Response].
type Message interface {
	types.Renderer
	types.Cloneable[Message]
	types.ValidFlag
	types.Equalable
	types.Matcher
	types.Merger
	// StartLine returns the first line of the message without CRLF.
	StartLine() string
	// MessageHeaders returns the message header list.
	MessageHeaders() Headers
	// SetMessageHeaders replaces the message header list.
	SetMessageHeaders(hdrs Headers)
	// MessageBody returns the message body.
	MessageBody() []byte
	// SetMessageBody replaces the message body.
	SetMessageBody(body []byte)
	// ParseErrors returns errors of headers that were kept unparsed.
	ParseErrors() []error
	// Validate returns an error describing every problem of the message.
	Validate() error
}

// renderMsg writes the start line, headers and body.
// Content-Length is always rendered with the actual body length,
// it is appended to the headers when missing.
func renderMsg(w io.Writer, startLine func(io.Writer) (int, error), hdrs Headers, body []byte, opts *RenderOptions) (num int, err error) {
	cw := ioutil.GetCountingWriter(w)
	defer ioutil.FreeCountingWriter(cw)
	cw.Call(startLine)
	cw.WriteString("\r\n")

	cl := header.ContentLength(len(body))
	var hasCL bool
	for _, h := range hdrs {
		if h == nil {
			continue
		}
		if h.CanonicName() == "Content-Length" {
			if hasCL {
				continue
			}
			h, hasCL = &cl, true
		}
		cw.Call(func(w io.Writer) (int, error) { return errtrace.Wrap2(h.RenderTo(w, opts)) })
		cw.WriteString("\r\n")
	}
	if !hasCL {
		cw.Call(func(w io.Writer) (int, error) { return errtrace.Wrap2(cl.RenderTo(w, opts)) })
		cw.WriteString("\r\n")
	}
	cw.WriteString("\r\n")
	cw.Write(body)
	return errtrace.Wrap2(cw.Result())
}

func renderMsgString(m interface {
	RenderTo(io.Writer, *RenderOptions) (int, error)
}, opts *RenderOptions,
) string {
	sb := util.GetStringBuilder()
	defer util.FreeStringBuilder(sb)
	m.RenderTo(sb, opts) //nolint:errcheck
	return sb.String()
}

func msgLogAttrs(attrs []slog.Attr, hdrs Headers, body []byte) []slog.Attr {
	if hops := hdrs.Via(); len(hops) > 0 {
		attrs = append(attrs, slog.String("Via", hops[0].String()))
	}
	if from, ok := hdrs.From(); ok {
		attrs = append(attrs, slog.String("From", from.RenderValue()))
	}
	if to, ok := hdrs.To(); ok {
		attrs = append(attrs, slog.String("To", to.RenderValue()))
	}
	if callID, ok := hdrs.CallID(); ok {
		attrs = append(attrs, slog.String("Call-ID", callID))
	}
	if cseq, ok := hdrs.CSeq(); ok {
		attrs = append(attrs, slog.String("CSeq", cseq.RenderValue()))
	}
	return append(attrs, slog.Int("body_len", len(body)))
}

var msgMandatoryHdrs = []HeaderName{"Via", "From", "To", "Call-ID", "CSeq"}

func validateMsg(errs []error, hdrs Headers, body []byte) []error {
	if err := hdrs.Validate(); err != nil {
		errs = append(errs, err)
	}
	for _, n := range msgMandatoryHdrs {
		if !hdrs.Has(n) {
			errs = append(errs, errorutil.Errorf("missing mandatory header %q", n))
		}
	}
	if cl, ok := hdrs.ContentLength(); ok && int(cl) != len(body) {
		errs = append(errs, errorutil.Errorf("content length mismatch: got %d, want %d", cl, len(body)))
	}
	return errs
}

func matchBody(body, tmpl []byte) bool { return tmpl == nil || slices.Equal(body, tmpl) }
