// Package ioutil contains writer helpers used by the model renderers.
package ioutil

import (
	"fmt"
	"io"
	"sync"

	"braces.dev/errtrace"
)

// CountingWriter wraps an [io.Writer], sums the number of written bytes and
// remembers the first write error. Once an error happened, all later writes are no-op.
// It lets RenderTo implementations chain writes without checking every return.
type CountingWriter struct {
	w   io.Writer
	num int
	err error
}

// NewCountingWriter creates a new CountingWriter wrapping the given writer.
func NewCountingWriter(w io.Writer) *CountingWriter {
	return &CountingWriter{w: w}
}

func (cw *CountingWriter) track(n int, err error) (int, error) {
	cw.num += n
	if err != nil {
		cw.err = errtrace.Wrap(err)
	}
	return n, cw.err //errtrace:skip
}

// Write implements [io.Writer].
func (cw *CountingWriter) Write(p []byte) (int, error) {
	if cw.err != nil {
		return 0, cw.err //errtrace:skip
	}
	return cw.track(cw.w.Write(p)) //errtrace:skip
}

// WriteString implements [io.StringWriter].
func (cw *CountingWriter) WriteString(s string) (int, error) {
	if cw.err != nil {
		return 0, cw.err //errtrace:skip
	}
	return cw.track(io.WriteString(cw.w, s)) //errtrace:skip
}

// Fprint writes operands using [fmt.Fprint] formatting.
func (cw *CountingWriter) Fprint(args ...any) (int, error) {
	if cw.err != nil {
		return 0, cw.err //errtrace:skip
	}
	return cw.track(fmt.Fprint(cw.w, args...)) //errtrace:skip
}

// Fprintf writes operands using [fmt.Fprintf] formatting.
func (cw *CountingWriter) Fprintf(format string, args ...any) (int, error) {
	if cw.err != nil {
		return 0, cw.err //errtrace:skip
	}
	return cw.track(fmt.Fprintf(cw.w, format, args...)) //errtrace:skip
}

// Call invokes a RenderTo-like function against the underlying writer.
func (cw *CountingWriter) Call(fn func(io.Writer) (int, error)) *CountingWriter {
	if cw.err == nil {
		cw.track(fn(cw.w)) //nolint:errcheck
	}
	return cw
}

// Result returns the total number of bytes written and the first write error.
func (cw *CountingWriter) Result() (int, error) { return cw.num, errtrace.Wrap(cw.err) }

// Err returns the first write error.
func (cw *CountingWriter) Err() error { return errtrace.Wrap(cw.err) }

// Count returns the total number of bytes written.
func (cw *CountingWriter) Count() int { return cw.num }

var cntWrtPool = &sync.Pool{
	New: func() any { return &CountingWriter{} },
}

// GetCountingWriter returns a pooled [CountingWriter] wrapping w.
// Return it with [FreeCountingWriter] once rendering is done.
func GetCountingWriter(w io.Writer) *CountingWriter {
	cw := cntWrtPool.Get().(*CountingWriter) //nolint:forcetypeassert
	cw.w = w
	return cw
}

func FreeCountingWriter(cw *CountingWriter) {
	*cw = CountingWriter{}
	cntWrtPool.Put(cw)
}
