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

// Response status constants.
// See [types.ResponseStatus].
const (
	ResponseStatusTrying              = types.ResponseStatusTrying
	ResponseStatusRinging             = types.ResponseStatusRinging
	ResponseStatusOK                  = types.ResponseStatusOK
	ResponseStatusBadRequest          = types.ResponseStatusBadRequest
	ResponseStatusNotFound            = types.ResponseStatusNotFound
	ResponseStatusServerInternalError = types.ResponseStatusServerInternalError
)

// Response represents a SIP response message.
type Response struct {
	Proto   ProtoInfo      `json:"proto"`
	Status  ResponseStatus `json:"status"`
	Reason  string         `json:"reason"`
	Headers Headers        `json:"headers"`
	Body    []byte         `json:"body"`

	parseErrs []error
}

// RenderTo renders the SIP response to the given writer.
func (res *Response) RenderTo(w io.Writer, opts *RenderOptions) (num int, err error) {
	if res == nil {
		return 0, nil
	}
	return errtrace.Wrap2(renderMsg(w, res.renderStartLine, res.Headers, res.Body, opts))
}

func (res *Response) renderStartLine(w io.Writer) (num int, err error) {
	cw := ioutil.GetCountingWriter(w)
	defer ioutil.FreeCountingWriter(cw)
	cw.WriteString(res.Proto.String())
	cw.WriteString(" ")
	cw.WriteString(res.Status.String())
	cw.WriteString(" ")
	cw.WriteString(res.reason())
	return errtrace.Wrap2(cw.Result())
}

// reason returns the reason phrase, standard one is used when empty.
func (res *Response) reason() string {
	if res.Reason != "" {
		return res.Reason
	}
	return res.Status.Reason()
}

// Render renders the SIP response to a string.
func (res *Response) Render(opts *RenderOptions) string {
	if res == nil {
		return ""
	}
	return renderMsgString(res, opts)
}

// StartLine returns the status line.
func (res *Response) StartLine() string {
	if res == nil {
		return ""
	}
	sb := util.GetStringBuilder()
	defer util.FreeStringBuilder(sb)
	res.renderStartLine(sb) //nolint:errcheck
	return sb.String()
}

// String returns a short string representation of the response.
func (res *Response) String() string {
	if res == nil {
		return "<nil>"
	}
	return res.StartLine()
}

// Format implements [fmt.Formatter] for custom formatting.
func (res *Response) Format(f fmt.State, verb rune) {
	switch verb {
	case 's':
		if f.Flag('+') {
			res.RenderTo(f, nil) //nolint:errcheck
			return
		}
		f.Write([]byte(res.String()))
		return
	case 'q':
		if f.Flag('+') {
			fmt.Fprint(f, strconv.Quote(res.Render(nil)))
			return
		}
		f.Write([]byte(strconv.Quote(res.String())))
		return
	default:
		type hideMethods Response
		type Response hideMethods
		fmt.Fprintf(f, fmt.FormatString(f, verb), (*Response)(res))
		return
	}
}

// LogValue implements [slog.LogValuer] for structured logging.
func (res *Response) LogValue() slog.Value {
	if res == nil {
		return slog.Value{}
	}

	attrs := make([]slog.Attr, 0, 8)
	attrs = append(attrs, slog.Uint64("status", uint64(res.Status)), slog.String("reason", res.reason()))
	return slog.GroupValue(msgLogAttrs(attrs, res.Headers, res.Body)...)
}

// MessageHeaders returns the response headers.
func (res *Response) MessageHeaders() Headers {
	if res == nil {
		return nil
	}
	return res.Headers
}

// SetMessageHeaders replaces the response headers.
func (res *Response) SetMessageHeaders(hdrs Headers) {
	if res != nil {
		res.Headers = hdrs
	}
}

// MessageBody returns the response body.
func (res *Response) MessageBody() []byte {
	if res == nil {
		return nil
	}
	return res.Body
}

// SetMessageBody replaces the response body.
func (res *Response) SetMessageBody(body []byte) {
	if res != nil {
		res.Body = body
	}
}

// ParseErrors returns errors of the headers that were kept as [header.Any] during parsing.
func (res *Response) ParseErrors() []error {
	if res == nil {
		return nil
	}
	return res.parseErrs
}

// Clone returns a deep copy of the response.
func (res *Response) Clone() Message {
	if res == nil {
		return nil
	}

	res2 := *res
	res2.Headers = res.Headers.Clone()
	res2.Body = slices.Clone(res.Body)
	res2.parseErrs = slices.Clone(res.parseErrs)
	return &res2
}

// Equal returns whether the response is equal to another value.
// Reason phrases are compared case-sensitively.
func (res *Response) Equal(val any) bool {
	var other *Response
	switch v := val.(type) {
	case Response:
		other = &v
	case *Response:
		other = v
	default:
		return false
	}

	if res == other {
		return true
	} else if res == nil || other == nil {
		return false
	}

	return res.Status == other.Status &&
		res.Reason == other.Reason &&
		res.Proto.Equal(other.Proto) &&
		res.Headers.Equal(other.Headers) &&
		slices.Equal(res.Body, other.Body)
}

// Match reports whether the response matches the template.
func (res *Response) Match(tmpl any) bool {
	var t *Response
	switch v := tmpl.(type) {
	case nil:
		return true
	case Response:
		t = &v
	case *Response:
		if v == nil {
			return true
		}
		t = v
	default:
		return false
	}
	if res == nil {
		return false
	}

	return (t.Status == 0 || res.Status == t.Status) &&
		(t.Reason == "" || res.Reason == t.Reason) &&
		res.Proto.Match(t.Proto) &&
		res.Headers.Match(t.Headers) &&
		matchBody(res.Body, t.Body)
}

// MergeFrom fills empty fields of the response from other.
func (res *Response) MergeFrom(other any) {
	var o *Response
	switch v := other.(type) {
	case Response:
		o = &v
	case *Response:
		o = v
	}
	if res == nil || o == nil {
		return
	}

	if res.Status == 0 {
		res.Status = o.Status
	}
	if res.Reason == "" {
		res.Reason = o.Reason
	}
	res.Proto = res.Proto.Merge(o.Proto)
	res.Headers.MergeFrom(o.Headers)
	if res.Body == nil {
		res.Body = slices.Clone(o.Body)
	}
}

// IsValid returns whether the response is valid.
func (res *Response) IsValid() bool { return res.Validate() == nil }

// Validate validates the response and returns an error if invalid.
func (res *Response) Validate() error {
	if res == nil {
		return errtrace.Wrap(errorutil.NewInvalidArgumentError("invalid response"))
	}

	errs := make([]error, 0, 10)
	if !res.Status.IsValid() {
		errs = append(errs, errorutil.Errorf("invalid status %d", res.Status))
	}
	if !res.Proto.IsValid() {
		errs = append(errs, errorutil.Errorf("invalid protocol %q", res.Proto))
	}
	errs = validateMsg(errs, res.Headers, res.Body)

	if len(errs) > 0 {
		return errtrace.Wrap(errorutil.NewWrapperError(ErrInvalidMessage, errorutil.JoinPrefix("invalid response", errs...)))
	}
	return nil
}
