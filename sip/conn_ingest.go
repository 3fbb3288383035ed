package sip

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"braces.dev/errtrace"

	"github.com/tmnsur/jsip-sub002/internal/errorutil"
	"github.com/tmnsur/jsip-sub002/internal/log"
	"github.com/tmnsur/jsip-sub002/internal/timeutil"
	"github.com/tmnsur/jsip-sub002/internal/types"
)

// ConnOptions are options of connection ingestion.
type ConnOptions struct {
	// MaxMessageSize limits the size of a single message.
	// Zero means unbounded.
	MaxMessageSize int `json:"max_message_size,omitempty" yaml:"max_message_size,omitempty"`
	// StarvationTimeout is the maximum time to wait for body bytes.
	// Zero means 8s, negative disables the timeout.
	StarvationTimeout time.Duration `json:"starvation_timeout,omitempty" yaml:"starvation_timeout,omitempty"`
	// MutexTimeout is the maximum time a message waits for its turn.
	// Zero means 30s, negative means no limit.
	MutexTimeout time.Duration `json:"mutex_timeout,omitempty" yaml:"mutex_timeout,omitempty"`
	// IdleTimeout closes a connection that has not read or written anything for the duration.
	// A [ChunkSession] counts its chunks as reads.
	// Zero disables the timeout.
	IdleTimeout time.Duration `json:"idle_timeout,omitempty" yaml:"idle_timeout,omitempty"`
	// MalformedHeaderPolicy defines handling of messages with malformed headers.
	// Default: [KeepRaw].
	MalformedHeaderPolicy MalformedHeaderPolicy `json:"malformed_header_policy,omitempty" yaml:"malformed_header_policy,omitempty"`
	// Executor runs dispatch tasks, it is shared by all connections.
	// If nil, messages are delivered on the connection goroutine.
	Executor Executor `json:"-" yaml:"-"`
	// Interceptor is called around every message.
	Interceptor Interceptor `json:"-" yaml:"-"`
	// OnPong is called for a single CRLF received between messages.
	// A keep-alive sender uses it to stop waiting for the pong, the context carries the
	// connection writer, see [ReplyWriterFromContext].
	OnPong func(ctx context.Context) `json:"-" yaml:"-"`
	// Log is used to log connection events.
	// If nil, [log.Default] is used.
	Log *slog.Logger `json:"-" yaml:"-"`
	// Metrics records ingestion metrics.
	Metrics *Metrics `json:"-" yaml:"-"`
}

func (o *ConnOptions) log() *slog.Logger {
	if o == nil || o.Log == nil {
		return log.Default()
	}
	return o.Log
}

func (o *ConnOptions) metrics() *Metrics {
	if o == nil {
		return nil
	}
	return o.Metrics
}

func (o *ConnOptions) onPong() func(context.Context) {
	if o == nil {
		return nil
	}
	return o.OnPong
}

func (o *ConnOptions) idleTimeout() time.Duration {
	if o == nil {
		return 0
	}
	return o.IdleTimeout
}

func (o *ConnOptions) framerOpts(src string) *FramerOptions {
	fo := &FramerOptions{Source: src, Log: o.log()}
	if o != nil {
		fo.MaxMessageSize = o.MaxMessageSize
		fo.StarvationTimeout = o.StarvationTimeout
	}
	return fo
}

func (o *ConnOptions) dispatcherOpts() *DispatcherOptions {
	do := &DispatcherOptions{Log: o.log(), Metrics: o.metrics()}
	if o != nil {
		do.Executor = o.Executor
		do.MutexTimeout = o.MutexTimeout
		do.MalformedHeaderPolicy = o.MalformedHeaderPolicy
		do.Interceptor = o.Interceptor
	}
	return do
}

const replyWriterCtxKey types.ContextKey = "reply_writer"

// ContextWithReplyWriter returns a context carrying the writer of the connection a message came from.
func ContextWithReplyWriter(ctx context.Context, w io.Writer) context.Context {
	return context.WithValue(ctx, replyWriterCtxKey, w)
}

// ReplyWriterFromContext returns the connection writer stored in the context.
func ReplyWriterFromContext(ctx context.Context) (io.Writer, bool) {
	w, ok := ctx.Value(replyWriterCtxKey).(io.Writer)
	return w, ok && w != nil
}

var crlf = []byte("\r\n")

// WriteKeepAliveResponse writes the single CRLF keep-alive response to the connection of the context.
// A [Consumer] can use it to implement [Consumer.SendKeepAliveResponse].
func WriteKeepAliveResponse(ctx context.Context) error {
	w, ok := ReplyWriterFromContext(ctx)
	if !ok {
		return errtrace.Wrap(errorutil.NewInvalidArgumentError("no reply writer in context"))
	}
	_, err := w.Write(crlf)
	return errtrace.Wrap(err)
}

// ingest connects a framer to a dispatcher.
type ingest struct {
	ctx      context.Context
	consumer Consumer
	disp     *Dispatcher
	log      *slog.Logger
	metrics  *Metrics
	onPong   func(context.Context)
	src      string
}

func newIngest(ctx context.Context, consumer Consumer, w io.Writer, src string, opts *ConnOptions) *ingest {
	if consumer == nil {
		consumer = ConsumerFuncs{}
	}
	ctx = ContextWithReplyWriter(ctx, w)
	return &ingest{
		ctx:      ctx,
		consumer: consumer,
		disp:     NewDispatcher(ctx, consumer, opts.dispatcherOpts()),
		log:      opts.log(),
		metrics:  opts.metrics(),
		onPong:   opts.onPong(),
		src:      src,
	}
}

func (in *ingest) OnMessage(raw *RawMessage) error {
	in.metrics.framed()
	if raw.CallID == "" {
		return errtrace.Wrap(errorutil.NewWrapperError(ErrMissingCallID, "message #%d", raw.Seq))
	}
	return errtrace.Wrap(in.disp.Dispatch(raw))
}

func (in *ingest) PongReceived() {
	in.log.LogAttrs(in.ctx, slog.LevelDebug, "keep-alive pong received", slog.String("source", in.src))
	if in.onPong != nil {
		in.onPong(in.ctx)
	}
}

func (in *ingest) KeepAlive() {
	in.metrics.keepAlive()
	if err := in.consumer.SendKeepAliveResponse(in.ctx); err != nil {
		in.log.LogAttrs(in.ctx, slog.LevelWarn, "failed to send keep-alive response",
			slog.String("source", in.src),
			slog.Any("error", err),
		)
	}
}

func (in *ingest) close(err error) {
	if errorutil.IsFramingErr(err) {
		in.metrics.framingError()
	}
	in.disp.Close() //nolint:errcheck
}

// ServeConn reads messages from the connection and delivers them to the consumer
// until EOF, context cancellation or a framing error.
//
// Messages of the same call are delivered in order. The keep-alive ping is passed
// to [Consumer.SendKeepAliveResponse], the connection is available to it with [ReplyWriterFromContext].
// The connection is closed on return. A clean EOF between messages returns nil.
func ServeConn(ctx context.Context, conn net.Conn, consumer Consumer, opts *ConnOptions) (err error) {
	conn = newCloseOnceConn(newIdleConn(conn, opts.idleTimeout()))
	defer conn.Close()

	src := conn.RemoteAddr().String()
	in := newIngest(ctx, consumer, conn, src, opts)
	defer func() { in.close(err) }()

	in.log.LogAttrs(ctx, slog.LevelDebug, "begin serving the connection", slog.Any("connection", conn))
	defer in.log.LogAttrs(ctx, slog.LevelDebug, "serving the connection finished", slog.Any("connection", conn))

	f := NewFramer(in, opts.framerOpts(src))
	if err := f.ReadFrom(ctx, conn); err != nil {
		if errors.Is(err, net.ErrClosed) && ctx.Err() != nil {
			return errtrace.Wrap(ctx.Err())
		}
		return errtrace.Wrap(err)
	}
	return nil
}

// ChunkSession ingests a connection delivering data in chunks, for example from an event loop.
// Write and Close may be called from different goroutines.
//
// The session guards body reads with the starvation timeout and the whole connection
// with the idle timeout of [ConnOptions]. When either expires the session fails: the writer
// is closed if it implements [io.Closer] and the next Write returns the [*FramingError].
type ChunkSession struct {
	mu     sync.Mutex
	in     *ingest
	framer *Framer
	w      io.Writer
	idle   *timeutil.Watchdog
	cancel context.CancelFunc
	closed bool
}

// NewChunkSession creates a session for the connection.
// The writer is used for keep-alive responses, src names the connection in logs.
func NewChunkSession(ctx context.Context, w io.Writer, src string, consumer Consumer, opts *ConnOptions) *ChunkSession {
	ctx, cancel := context.WithCancel(ctx)
	s := &ChunkSession{w: w, cancel: cancel}
	s.idle = timeutil.NewWatchdog(opts.idleTimeout(), func() {
		s.expire(errorutil.NewWrapperError(ErrIdleTimeout, "no traffic for %s", opts.idleTimeout()))
	})
	var rw io.Writer
	if w != nil {
		rw = kickWriter{w, s.idle}
	}
	s.in = newIngest(ctx, consumer, rw, src, opts)
	s.framer = NewFramer(s.in, opts.framerOpts(src))
	s.framer.watchStarvation(func() { s.expire(nil) })
	s.idle.Kick()
	return s
}

// kickWriter kicks the idle watchdog on every write.
type kickWriter struct {
	io.Writer
	wdog *timeutil.Watchdog
}

func (w kickWriter) Write(p []byte) (int, error) {
	n, err := w.Writer.Write(p)
	if n > 0 {
		w.wdog.Kick()
	}
	return n, errtrace.Wrap(err)
}

// Write feeds the next chunk of the connection.
// A returned [*FramingError] means the connection must be closed.
func (s *ChunkSession) Write(chunk []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, errtrace.Wrap(net.ErrClosed)
	}
	s.idle.Kick()
	if err := s.framer.Feed(chunk); err != nil {
		return 0, errtrace.Wrap(err)
	}
	return len(chunk), nil
}

// expire fails the session on a watchdog timeout.
// A nil cause means body starvation, it is reported by the framer itself.
func (s *ChunkSession) expire(cause error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.framer.Err() != nil {
		return
	}
	var err error
	if cause == nil {
		err = s.framer.Feed(nil)
	} else {
		err = s.framer.fail(cause)
	}
	s.in.log.LogAttrs(s.in.ctx, slog.LevelDebug, "connection expired",
		slog.String("source", s.in.src),
		slog.Any("error", err),
	)
	if c, ok := s.w.(io.Closer); ok {
		c.Close() //nolint:errcheck
	}
}

// Err returns the error that failed the session.
func (s *ChunkSession) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return errtrace.Wrap(s.framer.Err())
}

// Close cancels delivery of queued messages and releases the session.
func (s *ChunkSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	s.idle.Stop()
	s.framer.wdog.Stop()
	s.cancel()
	s.in.close(s.framer.Err())
	return nil
}
