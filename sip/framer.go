package sip

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"sync/atomic"
	"time"

	"braces.dev/errtrace"
	"github.com/qmuntal/stateless"

	"github.com/tmnsur/jsip-sub002/internal/errorutil"
	"github.com/tmnsur/jsip-sub002/internal/log"
	"github.com/tmnsur/jsip-sub002/internal/timeutil"
	"github.com/tmnsur/jsip-sub002/internal/util"
)

// FramerState is a state of the [Framer].
type FramerState string

// Framer states.
const (
	// FramerStateHeaders reads the start line and header lines, it is the initial state.
	FramerStateHeaders FramerState = "headers"
	// FramerStateBody reads exactly Content-Length bytes of the body.
	FramerStateBody FramerState = "body"
	// FramerStateFailed is the terminal state after a [FramingError].
	FramerStateFailed FramerState = "failed"
)

func (s FramerState) String() string { return string(s) }

const (
	frmEvtHeadDone = "head_done"
	frmEvtBodyDone = "body_done"
	frmEvtFail     = "fail"
)

// FrameHandler receives the output of a [Framer].
type FrameHandler interface {
	// OnMessage is called for every framed message.
	// A returned error fails the framer.
	OnMessage(raw *RawMessage) error
	// PongReceived is called for a single CRLF received between messages.
	PongReceived()
	// KeepAlive is called for a double CRLF received between messages,
	// the peer expects a single CRLF in reply.
	KeepAlive()
}

// FrameHandlerFuncs adapts functions to the [FrameHandler] interface.
// Nil functions are ignored.
type FrameHandlerFuncs struct {
	OnMessageFunc    func(raw *RawMessage) error
	PongReceivedFunc func()
	KeepAliveFunc    func()
}

func (h FrameHandlerFuncs) OnMessage(raw *RawMessage) error {
	if h.OnMessageFunc == nil {
		return nil
	}
	return errtrace.Wrap(h.OnMessageFunc(raw))
}

func (h FrameHandlerFuncs) PongReceived() {
	if h.PongReceivedFunc != nil {
		h.PongReceivedFunc()
	}
}

func (h FrameHandlerFuncs) KeepAlive() {
	if h.KeepAliveFunc != nil {
		h.KeepAliveFunc()
	}
}

// FramerOptions are options of the [Framer].
type FramerOptions struct {
	// MaxMessageSize limits the number of bytes of a single message,
	// including the keep-alive CRLFs received before it.
	// Zero means unbounded.
	MaxMessageSize int `json:"max_message_size,omitempty"`
	// StarvationTimeout is the maximum time [Framer.ReadFrom] waits for body bytes.
	// Zero means 8s, negative disables the timeout.
	StarvationTimeout time.Duration `json:"starvation_timeout,omitempty"`
	// Source names the stream in logs and in framed messages.
	Source string `json:"source,omitempty"`
	// Log is used to log framer events.
	// If nil, [log.Default] is used.
	Log *slog.Logger `json:"-"`
}

const defStarvationTimeout = 8 * time.Second

// maxContentLength limits Content-Length even when the message size is unbounded.
const maxContentLength = 1<<31 - 1

func (o *FramerOptions) maxSize() int {
	if o == nil || o.MaxMessageSize < 0 {
		return 0
	}
	return o.MaxMessageSize
}

func (o *FramerOptions) starvation() time.Duration {
	if o == nil || o.StarvationTimeout == 0 {
		return defStarvationTimeout
	}
	return max(o.StarvationTimeout, 0)
}

func (o *FramerOptions) source() string {
	if o == nil {
		return ""
	}
	return o.Source
}

func (o *FramerOptions) log() *slog.Logger {
	if o == nil || o.Log == nil {
		return log.Default()
	}
	return o.Log
}

// Framer splits a byte stream into messages.
//
// Lines may end with CRLF, LF or CR. Bytes are accepted either in arbitrary chunks with [Framer.Feed]
// or read from a reader with [Framer.ReadFrom], the produced messages don't depend on the chunking.
// The Framer is not safe for concurrent use.
type Framer struct {
	hdlr    FrameHandler
	fsm     *stateless.StateMachine
	log     *slog.Logger
	src     string
	maxSize int
	starve  time.Duration

	line      []byte
	pendingCR bool
	prevCRLF  bool
	head      bytes.Buffer
	body      []byte
	need      int
	cl        int
	hasCL     bool
	callID    string
	hasCallID bool

	used   int
	offset int64
	seq    uint64
	err    *FramingError

	starved atomic.Bool
	wdog    *timeutil.Watchdog
}

// NewFramer creates a framer passing its output to the handler.
func NewFramer(hdlr FrameHandler, opts *FramerOptions) *Framer {
	if hdlr == nil {
		hdlr = FrameHandlerFuncs{}
	}
	f := &Framer{
		hdlr:    hdlr,
		log:     opts.log(),
		src:     opts.source(),
		maxSize: opts.maxSize(),
		starve:  opts.starvation(),
	}
	f.initFSM()
	return f
}

func (f *Framer) initFSM() {
	f.fsm = stateless.NewStateMachine(FramerStateHeaders)

	f.fsm.Configure(FramerStateHeaders).
		Permit(frmEvtHeadDone, FramerStateBody).
		Permit(frmEvtFail, FramerStateFailed)

	f.fsm.Configure(FramerStateBody).
		OnEntry(f.actBody).
		OnExit(f.actBodyExit).
		Permit(frmEvtBodyDone, FramerStateHeaders).
		Permit(frmEvtFail, FramerStateFailed)

	f.fsm.Configure(FramerStateFailed).
		OnEntry(f.actFailed)
}

func (f *Framer) actBody(context.Context, ...any) error {
	f.wdog.Kick()
	return nil
}

func (f *Framer) actBodyExit(context.Context, ...any) error {
	f.wdog.Pause()
	return nil
}

func (f *Framer) actFailed(ctx context.Context, _ ...any) error {
	f.wdog.Stop()
	f.log.LogAttrs(ctx, slog.LevelWarn, "framing failed",
		slog.String("source", f.src),
		slog.Int64("offset", f.offset),
		slog.Any("error", f.err),
	)
	return nil
}

// State returns the current state of the framer.
func (f *Framer) State() FramerState { return f.fsm.MustState().(FramerState) } //nolint:forcetypeassert

// Offset returns the number of consumed bytes.
func (f *Framer) Offset() int64 { return f.offset }

// Err returns the error that failed the framer.
func (f *Framer) Err() error {
	if f.err == nil {
		return nil
	}
	return f.err
}

// Idle reports whether the framer is between messages.
func (f *Framer) Idle() bool {
	return f.State() == FramerStateHeaders && f.head.Len() == 0 && len(f.line) == 0 && !f.pendingCR
}

// Feed consumes the next chunk of the stream.
// An incomplete trailing line is kept until the next chunk.
// Every returned error is a [*FramingError], the framer can't be used after it.
func (f *Framer) Feed(chunk []byte) error {
	if f.err != nil {
		return errtrace.Wrap(errorutil.NewWrapperError(ErrFramerFailed, f.err))
	}
	if f.starved.Load() {
		return errtrace.Wrap(f.fail(errorutil.NewWrapperError(ErrStarvation, "no body bytes for %s", f.starve)))
	}

	for len(chunk) > 0 {
		var (
			n   int
			err error
		)
		if f.State() == FramerStateBody {
			n, err = f.feedBody(chunk)
		} else {
			n, err = f.feedHeaders(chunk)
		}
		chunk = chunk[n:]
		if err != nil {
			return errtrace.Wrap(f.fail(err))
		}
	}
	return nil
}

func (f *Framer) consume(n int) error {
	f.offset += int64(n)
	f.used += n
	if f.maxSize > 0 && f.used > f.maxSize {
		return errtrace.Wrap(errorutil.NewWrapperError(ErrMessageTooLarge, "message exceeds %d bytes", f.maxSize))
	}
	return nil
}

func (f *Framer) feedHeaders(chunk []byte) (int, error) {
	if f.pendingCR {
		f.pendingCR = false
		var n int
		if chunk[0] == '\n' {
			n = 1
			if err := f.consume(n); err != nil {
				return n, errtrace.Wrap(err)
			}
		}
		return n, errtrace.Wrap(f.endLine())
	}

	i := bytes.IndexAny(chunk, "\r\n")
	if i < 0 {
		if err := f.consume(len(chunk)); err != nil {
			return len(chunk), errtrace.Wrap(err)
		}
		f.line = append(f.line, chunk...)
		return len(chunk), nil
	}

	n := i + 1
	if err := f.consume(n); err != nil {
		return n, errtrace.Wrap(err)
	}
	f.line = append(f.line, chunk[:i]...)
	if chunk[i] == '\r' {
		if n == len(chunk) {
			// LF may arrive with the next chunk
			f.pendingCR = true
			return n, nil
		}
		if chunk[n] == '\n' {
			n++
			if err := f.consume(1); err != nil {
				return n, errtrace.Wrap(err)
			}
		}
	}
	return n, errtrace.Wrap(f.endLine())
}

func (f *Framer) endLine() error {
	line := f.line
	f.line = f.line[:0]

	if len(line) == 0 {
		if f.head.Len() == 0 {
			f.keepAliveLine()
			return nil
		}
		return errtrace.Wrap(f.endHead())
	}

	f.prevCRLF = false
	f.head.Write(line)
	f.head.WriteString("\r\n")
	return errtrace.Wrap(f.scanLine(line))
}

func (f *Framer) keepAliveLine() {
	if f.prevCRLF {
		f.prevCRLF = false
		f.log.LogAttrs(context.Background(), slog.LevelDebug, "keep-alive ping received", slog.String("source", f.src))
		f.hdlr.KeepAlive()
		return
	}
	f.prevCRLF = true
	f.hdlr.PongReceived()
}

// scanLine picks Content-Length and Call-ID from a header line.
func (f *Framer) scanLine(line []byte) error {
	name, value, ok := bytes.Cut(line, []byte{':'})
	if !ok || len(name) == 0 || name[0] == ' ' || name[0] == '\t' {
		return nil
	}

	n := util.TrimSP(string(name))
	switch {
	case !f.hasCL && (util.EqFold(n, "Content-Length") || util.EqFold(n, "l")):
		v := util.TrimSP(string(value))
		cl, err := strconv.Atoi(v)
		if err != nil || cl < 0 {
			return errtrace.Wrap(errorutil.NewWrapperError(ErrBadContentLength, "%q", util.Ellipsis(v, 20)))
		}
		if cl > maxContentLength {
			return errtrace.Wrap(errorutil.NewWrapperError(ErrMessageTooLarge, "Content-Length %d exceeds %d bytes", cl, maxContentLength))
		}
		if f.maxSize > 0 && cl > f.maxSize-f.used {
			return errtrace.Wrap(errorutil.NewWrapperError(ErrMessageTooLarge, "Content-Length %d exceeds %d bytes", cl, f.maxSize))
		}
		f.cl, f.hasCL = cl, true
	case !f.hasCallID && (util.EqFold(n, "Call-ID") || util.EqFold(n, "i")):
		f.callID, f.hasCallID = util.TrimSP(string(value)), true
	}
	return nil
}

func (f *Framer) endHead() error {
	if f.cl == 0 {
		return errtrace.Wrap(f.emit())
	}
	f.need = f.cl
	f.body = make([]byte, 0, min(f.cl, readBufSize))
	return errtrace.Wrap(f.fsm.Fire(frmEvtHeadDone))
}

func (f *Framer) feedBody(chunk []byte) (int, error) {
	n := min(len(chunk), f.need)
	if err := f.consume(n); err != nil {
		return n, errtrace.Wrap(err)
	}
	f.body = append(f.body, chunk[:n]...)
	f.need -= n
	if f.need > 0 {
		f.wdog.Kick()
		return n, nil
	}
	if err := f.fsm.Fire(frmEvtBodyDone); err != nil {
		return n, errtrace.Wrap(err)
	}
	return n, errtrace.Wrap(f.emit())
}

func (f *Framer) emit() error {
	f.seq++
	raw := &RawMessage{
		Head:          bytes.Clone(f.head.Bytes()),
		Body:          f.body,
		CallID:        f.callID,
		ContentLength: f.cl,
		Seq:           f.seq,
		Source:        f.src,
	}

	f.head.Reset()
	f.body = nil
	f.need, f.cl, f.hasCL = 0, 0, false
	f.callID, f.hasCallID = "", false
	f.used = 0
	f.prevCRLF = false

	return errtrace.Wrap(f.hdlr.OnMessage(raw))
}

func (f *Framer) fail(err error) *FramingError {
	var ferr *FramingError
	if !errors.As(err, &ferr) {
		ferr = &FramingError{Err: err, State: f.State(), Offset: f.offset}
	}
	f.err = ferr
	f.line, f.body = nil, nil
	f.head = bytes.Buffer{}
	if f.State() != FramerStateFailed {
		f.fsm.Fire(frmEvtFail) //nolint:errcheck
	}
	return ferr
}

const readBufSize = 64 << 10

// watchStarvation starts the watchdog failing body reads that take longer than the starvation timeout.
// The onFire is called from the watchdog goroutine, the next [Framer.Feed] returns the starvation error.
func (f *Framer) watchStarvation(onFire func()) {
	if f.starve <= 0 || f.wdog != nil {
		return
	}
	f.wdog = timeutil.NewWatchdog(f.starve, func() {
		f.starved.Store(true)
		if onFire != nil {
			onFire()
		}
	})
	if f.State() == FramerStateBody {
		f.wdog.Kick()
	}
}

// endStream resolves a CR left at the very end of the stream as a line end.
func (f *Framer) endStream() error {
	if !f.pendingCR || f.err != nil {
		return nil
	}
	f.pendingCR = false
	if err := f.endLine(); err != nil {
		return errtrace.Wrap(f.fail(err))
	}
	return nil
}

// ReadFrom reads the stream until EOF, context cancellation or a framing error.
//
// While a body is being read every read must return within the starvation timeout.
// The deadline is set with SetReadDeadline when the reader supports it,
// otherwise the reader is closed if it implements [io.Closer].
// EOF in the middle of a message is a [*FramingError].
func (f *Framer) ReadFrom(ctx context.Context, r io.Reader) error {
	dl, hasDL := r.(interface{ SetReadDeadline(time.Time) error })
	if !hasDL {
		f.watchStarvation(func() {
			if c, ok := r.(io.Closer); ok {
				c.Close() //nolint:errcheck
			}
		})
		defer f.wdog.Stop()
	}

	stop := context.AfterFunc(ctx, func() {
		switch {
		case hasDL:
			dl.SetReadDeadline(time.Now()) //nolint:errcheck
		default:
			if c, ok := r.(io.Closer); ok {
				c.Close() //nolint:errcheck
			}
		}
	})
	defer stop()

	buf := make([]byte, readBufSize)
	var armed bool
	for {
		if hasDL && f.starve > 0 {
			switch inBody := f.State() == FramerStateBody; {
			case inBody:
				dl.SetReadDeadline(time.Now().Add(f.starve)) //nolint:errcheck
				armed = true
			case armed:
				dl.SetReadDeadline(time.Time{}) //nolint:errcheck
				armed = false
			}
		}
		if err := ctx.Err(); err != nil {
			return errtrace.Wrap(err)
		}

		n, err := r.Read(buf)
		if n > 0 {
			if ferr := f.Feed(buf[:n]); ferr != nil {
				return errtrace.Wrap(ferr)
			}
		}
		if err == nil {
			continue
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return errtrace.Wrap(ctxErr)
		}
		if f.starved.Load() || (armed && errorutil.IsTimeoutErr(err)) {
			return errtrace.Wrap(f.fail(errorutil.NewWrapperError(ErrStarvation, err)))
		}
		if errors.Is(err, io.EOF) {
			if err := f.endStream(); err != nil {
				return errtrace.Wrap(err)
			}
			if f.Idle() {
				return nil
			}
			return errtrace.Wrap(f.fail(io.ErrUnexpectedEOF))
		}
		return errtrace.Wrap(err)
	}
}
