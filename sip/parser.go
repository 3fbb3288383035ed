package sip

import (
	"bytes"
	"strconv"
	"strings"

	"braces.dev/errtrace"

	"github.com/tmnsur/jsip-sub002/header"
	"github.com/tmnsur/jsip-sub002/internal/errorutil"
	"github.com/tmnsur/jsip-sub002/internal/grammar"
	"github.com/tmnsur/jsip-sub002/internal/util"
	"github.com/tmnsur/jsip-sub002/uri"
)

// MalformedHeaderPolicy defines what happens to a message with a header that failed to parse.
type MalformedHeaderPolicy int

const (
	// KeepRaw keeps the header as [header.Any] and delivers the message,
	// the error is available from [Message.ParseErrors].
	KeepRaw MalformedHeaderPolicy = iota
	// DropMessage drops the whole message.
	DropMessage
)

func (p MalformedHeaderPolicy) String() string {
	switch p {
	case KeepRaw:
		return "keep-raw"
	case DropMessage:
		return "drop-message"
	default:
		return "MalformedHeaderPolicy(" + strconv.Itoa(int(p)) + ")"
	}
}

func (p MalformedHeaderPolicy) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

// UnmarshalText accepts "keep-raw" and "drop-message" in any case.
func (p *MalformedHeaderPolicy) UnmarshalText(text []byte) error {
	switch s := util.LCase(util.TrimSP(string(text))); s {
	case "", "keep-raw":
		*p = KeepRaw
	case "drop-message":
		*p = DropMessage
	default:
		return errtrace.Wrap(errorutil.NewInvalidArgumentError("unknown malformed header policy %q", s))
	}
	return nil
}

// ParseOptions are options of [ParseRaw] and [ParseMessage].
type ParseOptions struct {
	// MalformedHeaderPolicy defines handling of malformed headers.
	// Default: [KeepRaw].
	MalformedHeaderPolicy MalformedHeaderPolicy `json:"malformed_header_policy,omitempty"`
}

func (o *ParseOptions) policy() MalformedHeaderPolicy {
	if o == nil {
		return KeepRaw
	}
	return o.MalformedHeaderPolicy
}

// ParseRaw parses a framed message.
//
// The body is taken as is, Content-Length of the headers must be equal to its length.
func ParseRaw(raw *RawMessage, opts *ParseOptions) (Message, error) {
	if raw == nil {
		return nil, errtrace.Wrap(errorutil.NewInvalidArgumentError("invalid raw message"))
	}
	return errtrace.Wrap2(parseMsg(raw.Head, raw.Body, true, opts))
}

// ParseMessage parses a complete message from a single packet.
//
// The body is everything after the blank line. When the message has a Content-Length header,
// its value must be equal to the body length.
func ParseMessage(data []byte, opts *ParseOptions) (Message, error) {
	head, body, ok := splitHeadBody(data)
	if !ok {
		return nil, errtrace.Wrap(&ParseError{
			Err:   errorutil.NewWrapperError(ErrMalformedStartLine, "missing blank line after headers"),
			State: ParseStateHeaders,
			Buf:   data,
		})
	}
	return errtrace.Wrap2(parseMsg(head, body, false, opts))
}

func splitHeadBody(data []byte) (head, body []byte, ok bool) {
	for i := 0; i < len(data); i++ {
		if data[i] != '\n' && data[i] != '\r' {
			continue
		}
		// line end at i, check whether the next line is empty
		j := i + 1
		if data[i] == '\r' && j < len(data) && data[j] == '\n' {
			j++
		}
		switch {
		case j < len(data) && data[j] == '\n':
			return data[:i], data[j+1:], true
		case j+1 < len(data) && data[j] == '\r' && data[j+1] == '\n':
			return data[:i], data[j+2:], true
		case j < len(data) && data[j] == '\r':
			return data[:i], data[j+1:], true
		}
		i = j - 1
	}
	return nil, nil, false
}

func parseMsg(head, body []byte, framed bool, opts *ParseOptions) (Message, error) {
	lines := unfoldLines(head)
	if len(lines) == 0 {
		return nil, errtrace.Wrap(&ParseError{
			Err:   errorutil.NewWrapperError(ErrMalformedStartLine, "empty message"),
			State: ParseStateStart,
		})
	}

	msg, err := parseStartLine(lines[0])
	if err != nil {
		return nil, errtrace.Wrap(&ParseError{Err: err, State: ParseStateStart, Buf: []byte(lines[0])})
	}

	hdrs := make(Headers, 0, len(lines)-1)
	var parseErrs []error
	for _, line := range lines[1:] {
		hdr, err := header.Parse(line)
		if err != nil {
			perr := &ParseError{Err: err, State: ParseStateHeaders, Buf: []byte(line)}
			if opts.policy() == DropMessage {
				return nil, errtrace.Wrap(perr)
			}
			parseErrs = append(parseErrs, perr)
			hdr = rawHeader(line)
		}
		hdrs = append(hdrs, hdr)
	}

	if cl, ok := hdrs.ContentLength(); ok && int(cl) != len(body) {
		return nil, errtrace.Wrap(&ParseError{
			Err:   errorutil.NewWrapperError(ErrBodyLengthMismatch, "Content-Length is %d, body has %d bytes", cl, len(body)),
			State: ParseStateBody,
			Buf:   body,
		})
	}
	if !framed {
		body = bytes.Clone(body)
	}

	switch m := msg.(type) {
	case *Request:
		m.Headers, m.Body, m.parseErrs = hdrs, body, parseErrs
	case *Response:
		m.Headers, m.Body, m.parseErrs = hdrs, body, parseErrs
	}
	return msg, nil
}

// rawHeader keeps an unparsable header line as is.
func rawHeader(line string) Header {
	name, value, ok := strings.Cut(line, ":")
	if !ok {
		return &header.Any{Name: util.TrimSP(line)}
	}
	return &header.Any{Name: util.TrimSP(name), Value: util.TrimSP(value)}
}

// unfoldLines splits the head by line terminators and joins folded lines.
func unfoldLines(head []byte) []string {
	var lines []string
	for len(head) > 0 {
		i := bytes.IndexAny(head, "\r\n")
		var line []byte
		if i < 0 {
			line, head = head, nil
		} else {
			line = head[:i]
			if head[i] == '\r' && i+1 < len(head) && head[i+1] == '\n' {
				i++
			}
			head = head[i+1:]
		}

		if len(lines) > 1 && len(line) > 0 && (line[0] == ' ' || line[0] == '\t') {
			lines[len(lines)-1] += " " + strings.TrimLeft(string(line), " \t")
			continue
		}
		if len(line) == 0 && len(lines) == 0 {
			continue
		}
		lines = append(lines, string(line))
	}
	return lines
}

func parseStartLine(line string) (Message, error) {
	if util.HasPrefixFold(line, "SIP/") {
		return errtrace.Wrap2(parseStatusLine(line))
	}
	return errtrace.Wrap2(parseRequestLine(line))
}

func parseRequestLine(line string) (*Request, error) {
	parts := strings.Split(line, " ")
	if len(parts) != 3 {
		return nil, errtrace.Wrap(errorutil.NewWrapperError(ErrMalformedStartLine, "request line %q", util.Ellipsis(line, 40)))
	}

	method := RequestMethod(parts[0])
	if !method.IsValid() {
		return nil, errtrace.Wrap(errorutil.NewWrapperError(ErrMalformedStartLine, "invalid method %q", parts[0]))
	}
	if m := method.ToUpper(); knownMethods[m] {
		method = m
	}
	u, err := uri.Parse(parts[1])
	if err != nil {
		return nil, errtrace.Wrap(errorutil.NewWrapperError(ErrMalformedStartLine, err))
	}
	proto, err := parseProto(parts[2])
	if err != nil {
		return nil, errtrace.Wrap(err)
	}
	return &Request{Method: method, URI: u, Proto: proto}, nil
}

func parseStatusLine(line string) (*Response, error) {
	parts := strings.SplitN(line, " ", 3)
	if len(parts) < 2 {
		return nil, errtrace.Wrap(errorutil.NewWrapperError(ErrMalformedStartLine, "status line %q", util.Ellipsis(line, 40)))
	}

	proto, err := parseProto(parts[0])
	if err != nil {
		return nil, errtrace.Wrap(err)
	}
	code, err := strconv.ParseUint(parts[1], 10, 16)
	if err != nil || len(parts[1]) != 3 || !ResponseStatus(code).IsValid() {
		return nil, errtrace.Wrap(errorutil.NewWrapperError(ErrMalformedStartLine, "invalid status code %q", parts[1]))
	}
	res := &Response{Proto: proto, Status: ResponseStatus(code)}
	if len(parts) == 3 {
		res.Reason = parts[2]
	}
	return res, nil
}

func parseProto(s string) (ProtoInfo, error) {
	name, ver, ok := strings.Cut(s, "/")
	if !ok || !grammar.IsToken(name) || !grammar.IsToken(ver) {
		return ProtoInfo{}, errtrace.Wrap(errorutil.NewWrapperError(ErrMalformedStartLine, "invalid protocol %q", s))
	}
	return ProtoInfo{Name: util.UCase(name), Version: ver}, nil
}

var knownMethods = map[RequestMethod]bool{
	RequestMethodAck:       true,
	RequestMethodBye:       true,
	RequestMethodCancel:    true,
	RequestMethodInfo:      true,
	RequestMethodInvite:    true,
	RequestMethodMessage:   true,
	RequestMethodNotify:    true,
	RequestMethodOptions:   true,
	RequestMethodPrack:     true,
	RequestMethodPublish:   true,
	RequestMethodRefer:     true,
	RequestMethodRegister:  true,
	RequestMethodSubscribe: true,
	RequestMethodUpdate:    true,
}
