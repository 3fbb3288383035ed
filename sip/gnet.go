package sip

import (
	"context"
	"log/slog"
	"slices"

	"braces.dev/errtrace"
	"github.com/panjf2000/gnet/v2"
	"github.com/sourcegraph/conc"
)

// GnetServerOptions are options of the [GnetServer].
type GnetServerOptions struct {
	ConnOptions
	// Multicore runs an event loop per CPU.
	Multicore bool `json:"multicore,omitempty" yaml:"multicore,omitempty"`
	// NumEventLoop sets the number of event loops, zero lets gnet decide.
	NumEventLoop int `json:"num_event_loop,omitempty" yaml:"num_event_loop,omitempty"`
	// ReusePort enables SO_REUSEPORT.
	ReusePort bool `json:"reuse_port,omitempty" yaml:"reuse_port,omitempty"`
}

func (o *GnetServerOptions) connOpts() *ConnOptions {
	if o == nil {
		return nil
	}
	return &o.ConnOptions
}

// GnetServer ingests TCP connections served by a gnet event loop.
// Each connection is a [ChunkSession] fed from the event loop.
type GnetServer struct {
	gnet.BuiltinEventEngine

	addr     string
	consumer Consumer
	opts     GnetServerOptions
	log      *slog.Logger

	ctx     context.Context
	engine  gnet.Engine
	closers conc.WaitGroup
	booted  chan struct{}
	done    chan struct{}
}

// NewGnetServer creates a server listening on the TCP address addr.
func NewGnetServer(addr string, consumer Consumer, opts *GnetServerOptions) *GnetServer {
	s := &GnetServer{
		addr:     addr,
		consumer: consumer,
		log:      opts.connOpts().log(),
		booted:   make(chan struct{}),
		done:     make(chan struct{}),
	}
	if opts != nil {
		s.opts = *opts
	}
	return s
}

// Serve runs the event loops until the context is done or [GnetServer.Stop] is called.
// It returns [ErrListenerClosed] when stopped by the context.
// Serve waits for the sessions of closed connections to be released.
func (s *GnetServer) Serve(ctx context.Context) error {
	defer close(s.done)
	defer s.closers.Wait()

	s.ctx = ctx
	stop := context.AfterFunc(ctx, func() { s.Stop(context.Background()) }) //nolint:errcheck
	defer stop()

	options := []gnet.Option{
		gnet.WithMulticore(s.opts.Multicore),
		gnet.WithReusePort(s.opts.ReusePort),
		gnet.WithTCPNoDelay(gnet.TCPNoDelay),
	}
	if s.opts.NumEventLoop > 0 {
		options = append(options, gnet.WithNumEventLoop(s.opts.NumEventLoop))
	}

	err := gnet.Run(s, "tcp://"+s.addr, options...)
	if ctx.Err() != nil {
		return ErrListenerClosed //errtrace:skip
	}
	return errtrace.Wrap(err)
}

// Stop stops the event loops and closes all connections.
func (s *GnetServer) Stop(ctx context.Context) error {
	select {
	case <-s.booted:
	case <-s.done:
		return nil
	case <-ctx.Done():
		return errtrace.Wrap(ctx.Err())
	}
	return errtrace.Wrap(s.engine.Stop(ctx))
}

func (s *GnetServer) OnBoot(eng gnet.Engine) gnet.Action {
	s.engine = eng
	close(s.booted)
	s.log.LogAttrs(s.ctx, slog.LevelInfo, "gnet server is listening",
		slog.String("addr", s.addr),
		slog.Bool("multicore", s.opts.Multicore),
	)
	return gnet.None
}

func (s *GnetServer) OnOpen(c gnet.Conn) ([]byte, gnet.Action) {
	src := c.RemoteAddr().String()
	c.SetContext(NewChunkSession(s.ctx, &gnetWriter{c}, src, s.consumer, &s.opts.ConnOptions))
	s.log.LogAttrs(s.ctx, slog.LevelDebug, "connection opened", slog.String("remote_addr", src))
	return nil, gnet.None
}

func (s *GnetServer) OnClose(c gnet.Conn, err error) gnet.Action {
	if sess, ok := c.Context().(*ChunkSession); ok {
		// Close waits for running deliveries, it must not block the event loop
		s.closers.Go(func() { sess.Close() }) //nolint:errcheck
	}
	if err != nil {
		s.log.LogAttrs(s.ctx, slog.LevelDebug, "connection closed with error",
			slog.String("remote_addr", c.RemoteAddr().String()),
			slog.Any("error", err),
		)
	}
	return gnet.None
}

func (s *GnetServer) OnTraffic(c gnet.Conn) gnet.Action {
	sess, ok := c.Context().(*ChunkSession)
	if !ok {
		return gnet.Close
	}

	buf, err := c.Next(-1)
	if err != nil {
		return gnet.Close
	}
	if _, err := sess.Write(buf); err != nil {
		s.log.LogAttrs(s.ctx, slog.LevelWarn, "closing connection",
			slog.String("remote_addr", c.RemoteAddr().String()),
			slog.Any("error", err),
		)
		return gnet.Close
	}
	return gnet.None
}

// gnetWriter writes to and closes a gnet connection from any goroutine.
type gnetWriter struct {
	c gnet.Conn
}

func (w *gnetWriter) Write(p []byte) (int, error) {
	if err := w.c.AsyncWrite(slices.Clone(p), nil); err != nil {
		return 0, errtrace.Wrap(err)
	}
	return len(p), nil
}

func (w *gnetWriter) Close() error {
	return errtrace.Wrap(w.c.CloseWithCallback(nil))
}
