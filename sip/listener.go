package sip

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"time"

	"braces.dev/errtrace"
	"github.com/sourcegraph/conc"

	"github.com/tmnsur/jsip-sub002/internal/errorutil"
)

// Listener serves connections accepted from a [net.Listener].
type Listener struct {
	consumer Consumer
	opts     *ConnOptions
	log      *slog.Logger
}

// NewListener creates a listener delivering messages of all connections to the consumer.
func NewListener(consumer Consumer, opts *ConnOptions) *Listener {
	return &Listener{consumer: consumer, opts: opts, log: opts.log()}
}

// Serve accepts connections and serves each of them with [ServeConn] in its own goroutine.
// Temporary accept errors are retried with a growing delay.
//
// Serve returns when the context is done or the listener fails, it closes the listener
// and waits for all connections to finish.
// It returns [ErrListenerClosed] when stopped by the context.
func (l *Listener) Serve(ctx context.Context, ls net.Listener) error {
	ls = newCloseOnceListener(newLogListener(ls, l.log))
	ctx, cancel := context.WithCancel(ctx)

	var wg conc.WaitGroup
	defer wg.Wait()
	defer cancel()
	defer ls.Close()
	stop := context.AfterFunc(ctx, func() { ls.Close() })
	defer stop()

	l.log.LogAttrs(ctx, slog.LevelDebug, "begin serving the listener", slog.Any("listener", ls))
	defer l.log.LogAttrs(ctx, slog.LevelDebug, "serving the listener finished", slog.Any("listener", ls))

	var tempDelay time.Duration
	for {
		conn, err := ls.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return ErrListenerClosed //errtrace:skip
			}
			if !errorutil.IsTemporaryErr(err) {
				return errtrace.Wrap(err)
			}

			if tempDelay == 0 {
				tempDelay = 5 * time.Millisecond
			} else {
				tempDelay *= 2
			}
			if v := time.Minute; tempDelay > v {
				tempDelay = v
			}

			l.log.LogAttrs(ctx, slog.LevelDebug,
				"failed to accept connection due to the temporary error, continue serving after delay...",
				slog.Any("error", err),
				slog.Duration("delay", tempDelay),
			)

			tmr := time.NewTimer(tempDelay)
			select {
			case <-ctx.Done():
				tmr.Stop()
				return ErrListenerClosed //errtrace:skip
			case <-tmr.C:
			}
			continue
		}
		tempDelay = 0

		conn = newLogConn(conn, l.log)
		wg.Go(func() {
			err := ServeConn(ctx, conn, l.consumer, l.opts)
			if err == nil || errors.Is(err, context.Canceled) {
				return
			}
			lvl := slog.LevelWarn
			if errorutil.IsNetError(err) && !errorutil.IsFramingErr(err) {
				lvl = slog.LevelDebug
			}
			l.log.LogAttrs(ctx, lvl, "failed to serve the connection",
				slog.Any("connection", conn),
				slog.Any("error", err),
			)
		})
	}
}
