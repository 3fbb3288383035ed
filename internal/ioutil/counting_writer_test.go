package ioutil_test

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/tmnsur/jsip-sub002/internal/ioutil"
)

var errWrite = errors.New("write failed")

type limitWriter struct {
	buf   bytes.Buffer
	limit int
}

func (w *limitWriter) Write(p []byte) (int, error) {
	if room := w.limit - w.buf.Len(); len(p) > room {
		w.buf.Write(p[:room])
		return room, errWrite
	}
	return w.buf.Write(p)
}

func TestCountingWriter(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		limit   int
		wantNum int
		wantOut string
		wantErr error
	}{
		{"all written", 100, 20, "Via: SIP/2.0/TCP a;x", nil},
		{"short write", 8, 8, "Via: SIP", errWrite},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()

			w := &limitWriter{limit: c.limit}
			cw := ioutil.GetCountingWriter(w)
			defer ioutil.FreeCountingWriter(cw)

			cw.WriteString("Via: ")
			cw.Fprint("SIP/", "2.0")
			cw.Fprintf("/%s ", "TCP")
			cw.Write([]byte("a"))
			cw.Call(func(w io.Writer) (int, error) { return io.WriteString(w, ";x") })

			num, err := cw.Result()
			if diff := cmp.Diff(err, c.wantErr, cmpopts.EquateErrors()); diff != "" {
				t.Errorf("cw.Result() error = %v, want %v\ndiff (-got +want):\n%v", err, c.wantErr, diff)
			}
			if num != c.wantNum {
				t.Errorf("cw.Result() num = %d, want %d", num, c.wantNum)
			}
			if got := w.buf.String(); got != c.wantOut {
				t.Errorf("written = %q, want %q", got, c.wantOut)
			}
		})
	}
}
