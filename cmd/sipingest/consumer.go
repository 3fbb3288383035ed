package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"braces.dev/errtrace"
	"github.com/pion/sdp/v3"

	"github.com/tmnsur/jsip-sub002/internal/util"
	"github.com/tmnsur/jsip-sub002/sip"
)

// logConsumer logs every delivered message.
type logConsumer struct {
	log *slog.Logger
}

func (c *logConsumer) DeliverMessage(ctx context.Context, msg sip.Message) error {
	attrs := []slog.Attr{slog.Any("message", msg)}
	switch sum, err := summarizeSDP(msg); {
	case err != nil:
		attrs = append(attrs, slog.Any("sdp_error", err))
	case sum != nil:
		attrs = append(attrs, slog.Any("sdp", sum))
	}
	for _, perr := range msg.ParseErrors() {
		attrs = append(attrs, slog.Any("parse_error", perr))
	}
	c.log.LogAttrs(ctx, slog.LevelInfo, "message received", attrs...)
	return nil
}

func (*logConsumer) SendKeepAliveResponse(ctx context.Context) error {
	return errtrace.Wrap(sip.WriteKeepAliveResponse(ctx))
}

// sdpSummary describes an SDP body in a single log entry.
type sdpSummary struct {
	Session string
	Origin  string
	Media   []string
}

func (s *sdpSummary) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("session", s.Session),
		slog.String("origin", s.Origin),
		slog.Any("media", s.Media),
	)
}

func (s *sdpSummary) String() string {
	return fmt.Sprintf("session=%q origin=%s media=[%s]", s.Session, s.Origin, strings.Join(s.Media, "; "))
}

// summarizeSDP parses the application/sdp body of the message.
// It returns nil for messages without an SDP body.
func summarizeSDP(msg sip.Message) (*sdpSummary, error) {
	body := msg.MessageBody()
	ct, ok := msg.MessageHeaders().ContentType()
	if !ok || len(body) == 0 || !util.EqFold(ct.Type, "application") || !util.EqFold(ct.Subtype, "sdp") {
		return nil, nil
	}

	var sd sdp.SessionDescription
	if err := sd.Unmarshal(body); err != nil {
		return nil, errtrace.Wrap(err)
	}

	sum := &sdpSummary{
		Session: string(sd.SessionName),
		Origin:  sd.Origin.UnicastAddress,
	}
	for _, md := range sd.MediaDescriptions {
		sum.Media = append(sum.Media, fmt.Sprintf("%s %d %s %s",
			md.MediaName.Media,
			md.MediaName.Port.Value,
			strings.Join(md.MediaName.Protos, "/"),
			strings.Join(md.MediaName.Formats, " "),
		))
	}
	return sum, nil
}

// msgPrinter prints delivered and dropped messages, it is used by the parse command.
type msgPrinter struct {
	mu      sync.Mutex
	w       io.Writer
	full    bool
	n       int
	dropped int
}

func (p *msgPrinter) DeliverMessage(_ context.Context, msg sip.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.n++
	if p.full {
		fmt.Fprintf(p.w, "#%d\n%s\n", p.n, msg.Render(nil))
	} else {
		fmt.Fprintf(p.w, "#%d %s\n", p.n, msg.StartLine())
	}
	for _, perr := range msg.ParseErrors() {
		fmt.Fprintf(p.w, "  malformed: %v\n", perr)
	}
	switch sum, err := summarizeSDP(msg); {
	case err != nil:
		fmt.Fprintf(p.w, "  sdp error: %v\n", err)
	case sum != nil:
		fmt.Fprintf(p.w, "  sdp: %s\n", sum)
	}
	return nil
}

func (*msgPrinter) SendKeepAliveResponse(context.Context) error { return nil }

func (*msgPrinter) BeforeMessage(context.Context, *sip.RawMessage) {}

func (p *msgPrinter) AfterMessage(_ context.Context, raw *sip.RawMessage, err error) {
	if err == nil {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.dropped++
	fmt.Fprintf(p.w, "dropped message #%d (Call-ID %q): %v\n", raw.Seq, raw.CallID, err)
}

func (p *msgPrinter) summary() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return fmt.Sprintf("%d delivered, %d dropped", p.n, p.dropped)
}
