// Package log provides the slog handlers and value helpers shared by the ingestion packages.
package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync/atomic"
	"time"

	"github.com/golang-cz/devslog"
	"github.com/phsym/console-slog"
	slogformatter "github.com/samber/slog-formatter"
)

var newHandler = slogformatter.NewFormatterHandler(
	slogformatter.ErrorFormatter("error"),
	slogformatter.FormatByType(func(ls net.Listener) slog.Value {
		return slog.GroupValue(
			slog.String("type", fmt.Sprintf("%T", ls)),
			slog.String("ptr", fmt.Sprintf("%p", ls)),
			slog.Any("local_addr", ls.Addr()),
		)
	}),
	slogformatter.FormatByType(func(c net.Conn) slog.Value {
		return slog.GroupValue(
			slog.String("type", fmt.Sprintf("%T", c)),
			slog.String("ptr", fmt.Sprintf("%p", c)),
			slog.Any("local_addr", c.LocalAddr()),
			slog.Any("remote_addr", c.RemoteAddr()),
		)
	}),
)

// Def returns a console logger writing to w.
func Def(w io.Writer, lvl slog.Leveler) *slog.Logger {
	return New(console.NewHandler(w, &console.HandlerOptions{
		Level:      lvl,
		TimeFormat: time.RFC3339Nano,
	}))
}

// Dev returns a developer logger writing to w, it adds the source position to records.
func Dev(w io.Writer, lvl slog.Leveler) *slog.Logger {
	return New(devslog.NewHandler(w, &devslog.Options{
		HandlerOptions: &slog.HandlerOptions{
			AddSource: true,
			Level:     lvl,
		},
		SortKeys:   true,
		TimeFormat: time.RFC3339Nano,
	}))
}

type noopHandler struct{}

func (noopHandler) Enabled(context.Context, slog.Level) bool { return false }

func (noopHandler) Handle(context.Context, slog.Record) error { return nil }

func (h noopHandler) WithAttrs([]slog.Attr) slog.Handler { return h }

func (h noopHandler) WithGroup(string) slog.Handler { return h }

// Noop is a noop logger.
var Noop = slog.New(noopHandler{})

var def atomic.Pointer[slog.Logger]

func init() { def.Store(Noop) }

// Default returns the package-wide fallback logger used by options without a logger.
// It is [Noop] until replaced with [SetDefault].
func Default() *slog.Logger { return def.Load() }

// SetDefault replaces the fallback logger, nil restores [Noop].
func SetDefault(l *slog.Logger) {
	if l == nil {
		l = Noop
	}
	def.Store(l)
}

// New wraps the handler into the formatter chain used by [Def] and [Dev].
func New(h slog.Handler) *slog.Logger { return slog.New(newHandler(h)) }

type stringValue[T ~string | ~[]byte] struct {
	v T
}

func (v stringValue[T]) LogValue() slog.Value {
	return slog.StringValue(string(v.v))
}

// StringValue returns a value logger that formats v as string.
func StringValue[T ~string | ~[]byte](v T) slog.LogValuer { return stringValue[T]{v} }
