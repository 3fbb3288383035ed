package sip

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"braces.dev/errtrace"

	"github.com/tmnsur/jsip-sub002/internal/util"
)

type closeOnceListener struct {
	net.Listener
	closeOnce sync.Once
	closeErr  error
}

func newCloseOnceListener(ls net.Listener) *closeOnceListener {
	if ls, ok := ls.(*closeOnceListener); ok {
		return ls
	}
	return &closeOnceListener{Listener: ls}
}

func (l *closeOnceListener) Close() error {
	l.closeOnce.Do(func() { l.closeErr = l.Listener.Close() })
	return errtrace.Wrap(l.closeErr)
}

type closeOnceConn struct {
	net.Conn
	closeOnce sync.Once
	closeErr  error
}

func newCloseOnceConn(c net.Conn) *closeOnceConn {
	if c, ok := c.(*closeOnceConn); ok {
		return c
	}
	return &closeOnceConn{Conn: c}
}

func (c *closeOnceConn) Close() error {
	c.closeOnce.Do(func() { c.closeErr = c.Conn.Close() })
	return errtrace.Wrap(c.closeErr)
}

// idleConn closes the connection when nothing was read or written for the TTL.
type idleConn struct {
	net.Conn
	ttl time.Duration
	tmr atomic.Pointer[time.Timer]
}

func newIdleConn(conn net.Conn, ttl time.Duration) net.Conn {
	if ttl <= 0 {
		return conn
	}
	if c, ok := conn.(*idleConn); ok {
		return c
	}
	c := &idleConn{Conn: conn, ttl: ttl}
	c.resetTmr()
	return c
}

func (c *idleConn) resetTmr() {
	if tmr := c.tmr.Load(); tmr == nil {
		c.tmr.Store(time.AfterFunc(c.ttl, func() { c.Close() }))
	} else if !tmr.Reset(c.ttl) {
		// timer was already expired
		tmr.Stop()
	}
}

func (c *idleConn) Read(p []byte) (int, error) {
	n, err := c.Conn.Read(p)
	if n > 0 {
		c.resetTmr()
	}
	return n, errtrace.Wrap(err)
}

func (c *idleConn) Write(p []byte) (int, error) {
	n, err := c.Conn.Write(p)
	if err != nil {
		return n, errtrace.Wrap(err)
	}
	c.resetTmr()
	return n, nil
}

func (c *idleConn) Close() error {
	if tmr := c.tmr.Swap(nil); tmr != nil {
		tmr.Stop()
	}
	return errtrace.Wrap(c.Conn.Close())
}

type logListener struct {
	net.Listener
	log *slog.Logger
}

func newLogListener(ls net.Listener, log *slog.Logger) *logListener {
	if ls, ok := ls.(*logListener); ok {
		return ls
	}
	return &logListener{Listener: ls, log: log.With("listener", ls)}
}

func (ls *logListener) Accept() (net.Conn, error) {
	conn, err := ls.Listener.Accept()
	if err != nil {
		return nil, errtrace.Wrap(err)
	}
	ls.log.LogAttrs(context.Background(), slog.LevelDebug, "connection accepted", slog.Any("connection", conn))
	return conn, nil
}

func (ls *logListener) Close() error {
	if err := ls.Listener.Close(); err != nil {
		ls.log.LogAttrs(context.Background(), slog.LevelDebug, "listener closed with error", slog.Any("error", err))
		return errtrace.Wrap(err)
	}
	ls.log.LogAttrs(context.Background(), slog.LevelDebug, "listener closed")
	return nil
}

type logConn struct {
	net.Conn
	log *slog.Logger
}

func newLogConn(c net.Conn, log *slog.Logger) *logConn {
	if c, ok := c.(*logConn); ok {
		return c
	}
	return &logConn{Conn: c, log: log.With("connection", c)}
}

func (c *logConn) Read(b []byte) (int, error) {
	n, err := c.Conn.Read(b)
	if n > 0 && c.log.Enabled(context.Background(), slog.LevelDebug) {
		c.log.LogAttrs(context.Background(), slog.LevelDebug,
			fmt.Sprintf("connection read buffer %s -> %s", c.RemoteAddr(), c.LocalAddr()),
			slog.Group("buffer",
				slog.Int("size", n),
				slog.String("data", util.Ellipsis(string(b[:n]), 1000)),
			),
		)
	}
	return n, errtrace.Wrap(err)
}

func (c *logConn) Write(b []byte) (n int, err error) {
	n, err = c.Conn.Write(b)
	if err != nil {
		return n, errtrace.Wrap(err)
	}
	c.log.LogAttrs(context.Background(), slog.LevelDebug,
		fmt.Sprintf("connection wrote buffer %s -> %s", c.LocalAddr(), c.RemoteAddr()),
		slog.Group("buffer",
			slog.Int("size", n),
			slog.String("data", util.Ellipsis(string(b[:n]), 1000)),
		),
	)
	return n, nil
}

func (c *logConn) Close() error {
	if err := c.Conn.Close(); err != nil {
		c.log.LogAttrs(context.Background(), slog.LevelDebug, "connection closed with error", slog.Any("error", err))
		return errtrace.Wrap(err)
	}
	c.log.LogAttrs(context.Background(), slog.LevelDebug, "connection closed")
	return nil
}
