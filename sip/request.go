package sip

import (
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strconv"

	"braces.dev/errtrace"

	"github.com/tmnsur/jsip-sub002/internal/errorutil"
	"github.com/tmnsur/jsip-sub002/internal/ioutil"
	"github.com/tmnsur/jsip-sub002/internal/types"
	"github.com/tmnsur/jsip-sub002/internal/util"
)

// Request represents a SIP request message.
type Request struct {
	Method  RequestMethod `json:"method"`
	URI     URI           `json:"uri"`
	Proto   ProtoInfo     `json:"proto"`
	Headers Headers       `json:"headers"`
	Body    []byte        `json:"body"`

	parseErrs []error
}

// RenderTo renders the SIP request to the given writer.
func (req *Request) RenderTo(w io.Writer, opts *RenderOptions) (num int, err error) {
	if req == nil {
		return 0, nil
	}
	return errtrace.Wrap2(renderMsg(w, func(w io.Writer) (int, error) {
		return errtrace.Wrap2(req.renderStartLine(w, opts))
	}, req.Headers, req.Body, opts))
}

func (req *Request) renderStartLine(w io.Writer, opts *RenderOptions) (num int, err error) {
	cw := ioutil.GetCountingWriter(w)
	defer ioutil.FreeCountingWriter(cw)
	cw.WriteString(string(req.Method))
	cw.WriteString(" ")
	if req.URI != nil {
		cw.Call(func(w io.Writer) (int, error) {
			return errtrace.Wrap2(req.URI.RenderTo(w, opts))
		})
	}
	cw.WriteString(" ")
	cw.WriteString(req.Proto.String())
	return errtrace.Wrap2(cw.Result())
}

// Render renders the SIP request to a string.
func (req *Request) Render(opts *RenderOptions) string {
	if req == nil {
		return ""
	}
	return renderMsgString(req, opts)
}

// StartLine returns the request line.
func (req *Request) StartLine() string {
	if req == nil {
		return ""
	}
	sb := util.GetStringBuilder()
	defer util.FreeStringBuilder(sb)
	req.renderStartLine(sb, nil) //nolint:errcheck
	return sb.String()
}

// String returns a short string representation of the request.
func (req *Request) String() string {
	if req == nil {
		return "<nil>"
	}
	return req.StartLine()
}

// Format implements [fmt.Formatter] for custom formatting.
func (req *Request) Format(f fmt.State, verb rune) {
	switch verb {
	case 's':
		if f.Flag('+') {
			req.RenderTo(f, nil) //nolint:errcheck
			return
		}
		f.Write([]byte(req.String()))
		return
	case 'q':
		if f.Flag('+') {
			fmt.Fprint(f, strconv.Quote(req.Render(nil)))
			return
		}
		f.Write([]byte(strconv.Quote(req.String())))
		return
	default:
		type hideMethods Request
		type Request hideMethods
		fmt.Fprintf(f, fmt.FormatString(f, verb), (*Request)(req))
		return
	}
}

// LogValue implements [slog.LogValuer] for structured logging.
func (req *Request) LogValue() slog.Value {
	if req == nil {
		return slog.Value{}
	}

	attrs := make([]slog.Attr, 0, 8)
	attrs = append(attrs, slog.String("method", string(req.Method)))
	if req.URI != nil {
		attrs = append(attrs, slog.String("uri", req.URI.Render(nil)))
	}
	return slog.GroupValue(msgLogAttrs(attrs, req.Headers, req.Body)...)
}

// MessageHeaders returns the request headers.
func (req *Request) MessageHeaders() Headers {
	if req == nil {
		return nil
	}
	return req.Headers
}

// SetMessageHeaders replaces the request headers.
func (req *Request) SetMessageHeaders(hdrs Headers) {
	if req != nil {
		req.Headers = hdrs
	}
}

// MessageBody returns the request body.
func (req *Request) MessageBody() []byte {
	if req == nil {
		return nil
	}
	return req.Body
}

// SetMessageBody replaces the request body.
func (req *Request) SetMessageBody(body []byte) {
	if req != nil {
		req.Body = body
	}
}

// ParseErrors returns errors of the headers that were kept as [header.Any] during parsing.
func (req *Request) ParseErrors() []error {
	if req == nil {
		return nil
	}
	return req.parseErrs
}

// Clone returns a deep copy of the request.
func (req *Request) Clone() Message {
	if req == nil {
		return nil
	}

	req2 := *req
	if req.URI != nil {
		req2.URI = req.URI.Clone()
	}
	req2.Headers = req.Headers.Clone()
	req2.Body = slices.Clone(req.Body)
	req2.parseErrs = slices.Clone(req.parseErrs)
	return &req2
}

// Equal returns whether the request is equal to another value.
func (req *Request) Equal(val any) bool {
	var other *Request
	switch v := val.(type) {
	case Request:
		other = &v
	case *Request:
		other = v
	default:
		return false
	}

	if req == other {
		return true
	} else if req == nil || other == nil {
		return false
	}

	return req.Method.Equal(other.Method) &&
		req.Proto.Equal(other.Proto) &&
		equalURI(req.URI, other.URI) &&
		req.Headers.Equal(other.Headers) &&
		slices.Equal(req.Body, other.Body)
}

// Match reports whether the request matches the template.
// Empty fields of the template match anything, template headers must match
// distinct headers of the request.
func (req *Request) Match(tmpl any) bool {
	var t *Request
	switch v := tmpl.(type) {
	case nil:
		return true
	case Request:
		t = &v
	case *Request:
		if v == nil {
			return true
		}
		t = v
	default:
		return false
	}
	if req == nil {
		return false
	}

	return (t.Method == "" || req.Method.Equal(t.Method)) &&
		(t.URI == nil || (req.URI != nil && req.URI.Match(t.URI))) &&
		req.Proto.Match(t.Proto) &&
		req.Headers.Match(t.Headers) &&
		matchBody(req.Body, t.Body)
}

// MergeFrom fills empty fields of the request from other.
func (req *Request) MergeFrom(other any) {
	var o *Request
	switch v := other.(type) {
	case Request:
		o = &v
	case *Request:
		o = v
	}
	if req == nil || o == nil {
		return
	}

	if req.Method == "" {
		req.Method = o.Method
	}
	switch {
	case req.URI == nil && o.URI != nil:
		req.URI = o.URI.Clone()
	case req.URI != nil && o.URI != nil:
		req.URI.MergeFrom(o.URI)
	}
	req.Proto = req.Proto.Merge(o.Proto)
	req.Headers.MergeFrom(o.Headers)
	if req.Body == nil {
		req.Body = slices.Clone(o.Body)
	}
}

// IsValid returns whether the request is valid.
func (req *Request) IsValid() bool { return req.Validate() == nil }

// Validate validates the request and returns an error if invalid.
func (req *Request) Validate() error {
	if req == nil {
		return errtrace.Wrap(errorutil.NewInvalidArgumentError("invalid request"))
	}

	errs := make([]error, 0, 10)
	if !req.Method.IsValid() {
		errs = append(errs, errorutil.Errorf("invalid method %q", req.Method))
	}
	if !types.IsValid(req.URI) {
		errs = append(errs, errorutil.Errorf("invalid URI %q", req.URI))
	}
	if !req.Proto.IsValid() {
		errs = append(errs, errorutil.Errorf("invalid protocol %q", req.Proto))
	}
	if !req.Headers.Has("Max-Forwards") {
		errs = append(errs, errorutil.Errorf("missing mandatory header %q", "Max-Forwards"))
	}
	errs = validateMsg(errs, req.Headers, req.Body)

	if len(errs) > 0 {
		return errtrace.Wrap(errorutil.NewWrapperError(ErrInvalidMessage, errorutil.JoinPrefix("invalid request", errs...)))
	}
	return nil
}

func equalURI(u1, u2 URI) bool {
	if u1 == nil || u2 == nil {
		return u1 == nil && u2 == nil
	}
	return u1.Equal(u2)
}
