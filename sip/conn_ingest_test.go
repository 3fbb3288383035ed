package sip_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"slices"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/mock/gomock"

	"github.com/tmnsur/jsip-sub002/internal/errorutil"
	"github.com/tmnsur/jsip-sub002/internal/log"
	"github.com/tmnsur/jsip-sub002/internal/testutil/netmock"
	"github.com/tmnsur/jsip-sub002/sip"
)

type deliveries struct {
	mu   sync.Mutex
	msgs []sip.Message
	ch   chan sip.Message
}

func newDeliveries() *deliveries { return &deliveries{ch: make(chan sip.Message, 16)} }

func (d *deliveries) consumer() sip.ConsumerFuncs {
	return sip.ConsumerFuncs{
		DeliverMessageFunc: func(_ context.Context, msg sip.Message) error {
			d.mu.Lock()
			d.msgs = append(d.msgs, msg)
			d.mu.Unlock()
			select {
			case d.ch <- msg:
			default:
			}
			return nil
		},
	}
}

func (d *deliveries) seqs() []uint {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]uint, 0, len(d.msgs))
	for _, m := range d.msgs {
		out = append(out, seqOf(m))
	}
	return out
}

func (d *deliveries) wait(t *testing.T) sip.Message {
	t.Helper()
	select {
	case msg := <-d.ch:
		return msg
	case <-time.After(5 * time.Second):
		t.Fatal("no message delivered")
		return nil
	}
}

func sipMsg(callID string, seq int, body string) string {
	return "MESSAGE sip:bob@b.com SIP/2.0\r\n" +
		"Call-ID: " + callID + "\r\n" +
		"CSeq: " + strconv.Itoa(seq) + " MESSAGE\r\n" +
		"Content-Length: " + strconv.Itoa(len(body)) + "\r\n" +
		"\r\n" + body
}

func TestServeConn(t *testing.T) {
	t.Parallel()

	srv, cli := net.Pipe()
	dlv := newDeliveries()
	done := make(chan error, 1)
	go func() {
		done <- sip.ServeConn(t.Context(), srv, dlv.consumer(), &sip.ConnOptions{Log: log.Noop})
	}()

	if _, err := cli.Write([]byte(sipMsg("c1", 1, "hello") + "\r\n\r\n")); err != nil {
		t.Fatalf("cli.Write() error = %v, want nil", err)
	}
	reply := make([]byte, 2)
	if _, err := io.ReadFull(cli, reply); err != nil {
		t.Fatalf("io.ReadFull() error = %v, want nil", err)
	}
	if string(reply) != "\r\n" {
		t.Errorf("keep-alive reply = %q, want %q", reply, "\r\n")
	}

	if _, err := cli.Write([]byte(sipMsg("c1", 2, "") + sipMsg("c1", 3, "x"))); err != nil {
		t.Fatalf("cli.Write() error = %v, want nil", err)
	}
	cli.Close()

	if err := <-done; err != nil {
		t.Fatalf("sip.ServeConn() error = %v, want nil", err)
	}
	if got, want := dlv.seqs(), []uint{1, 2, 3}; !slices.Equal(got, want) {
		t.Errorf("delivered %v, want %v", got, want)
	}
	if body := dlv.msgs[0].MessageBody(); string(body) != "hello" {
		t.Errorf("first body = %q, want %q", body, "hello")
	}
}

func TestServeConn_MissingCallID(t *testing.T) {
	t.Parallel()

	srv, cli := net.Pipe()
	defer cli.Close()

	metrics := sip.NewMetrics(prometheus.NewRegistry())
	done := make(chan error, 1)
	go func() {
		done <- sip.ServeConn(t.Context(), srv, newDeliveries().consumer(), &sip.ConnOptions{Log: log.Noop, Metrics: metrics})
	}()

	if _, err := cli.Write([]byte("OPTIONS sip:bob@b.com SIP/2.0\r\nCSeq: 1 OPTIONS\r\n\r\n")); err != nil {
		t.Fatalf("cli.Write() error = %v, want nil", err)
	}

	err := <-done
	if !errors.Is(err, sip.ErrMissingCallID) || !errorutil.IsFramingErr(err) {
		t.Fatalf("sip.ServeConn() error = %v, want %v", err, sip.ErrMissingCallID)
	}
	if got := testutil.ToFloat64(metrics.FramingErrors); got != 1 {
		t.Errorf("framing errors = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.Framed); got != 1 {
		t.Errorf("framed = %v, want 1", got)
	}
}

func TestServeConn_ContextCancel(t *testing.T) {
	t.Parallel()

	srv, cli := net.Pipe()
	defer cli.Close()

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() {
		done <- sip.ServeConn(ctx, srv, newDeliveries().consumer(), &sip.ConnOptions{Log: log.Noop})
	}()
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("sip.ServeConn() error = %v, want %v", err, context.Canceled)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("sip.ServeConn() did not return after cancel")
	}
}

func TestChunkSession(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	dlv := newDeliveries()
	sess := sip.NewChunkSession(t.Context(), &out, "chunk", dlv.consumer(), &sip.ConnOptions{Log: log.Noop})

	data := []byte(sipMsg("c1", 1, "abc") + "\r\n\r\n" + sipMsg("c2", 2, "") + sipMsg("c1", 3, "de"))
	for i := range data {
		if _, err := sess.Write(data[i : i+1]); err != nil {
			t.Fatalf("sess.Write() error = %v, want nil", err)
		}
	}

	if got, want := dlv.seqs(), []uint{1, 2, 3}; !slices.Equal(got, want) {
		t.Errorf("delivered %v, want %v", got, want)
	}
	if got := out.String(); got != "\r\n" {
		t.Errorf("keep-alive reply = %q, want %q", got, "\r\n")
	}

	if err := sess.Close(); err != nil {
		t.Fatalf("sess.Close() error = %v, want nil", err)
	}
	if _, err := sess.Write([]byte("\r\n")); !errors.Is(err, net.ErrClosed) {
		t.Errorf("sess.Write() after Close error = %v, want %v", err, net.ErrClosed)
	}
}

type closeRecorder struct {
	once   sync.Once
	closed chan struct{}
}

func newCloseRecorder() *closeRecorder { return &closeRecorder{closed: make(chan struct{})} }

func (*closeRecorder) Write(p []byte) (int, error) { return len(p), nil }

func (w *closeRecorder) Close() error {
	w.once.Do(func() { close(w.closed) })
	return nil
}

func TestChunkSession_Timeouts(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		opts    sip.ConnOptions
		in      string
		wantErr error
	}{
		{
			"body starvation",
			sip.ConnOptions{StarvationTimeout: 20 * time.Millisecond, Log: log.Noop},
			"MESSAGE sip:bob@b.com SIP/2.0\r\nCall-ID: c1\r\nContent-Length: 10\r\n\r\nabc",
			sip.ErrStarvation,
		},
		{
			"idle connection",
			sip.ConnOptions{IdleTimeout: 20 * time.Millisecond, Log: log.Noop},
			"MESSAGE sip:bob@b.com SIP/2.0\r\nCall-ID: c1\r\n",
			sip.ErrIdleTimeout,
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()

			w := newCloseRecorder()
			dlv := newDeliveries()
			sess := sip.NewChunkSession(t.Context(), w, "chunk", dlv.consumer(), &c.opts)
			defer sess.Close()

			if _, err := sess.Write([]byte(c.in)); err != nil {
				t.Fatalf("sess.Write() error = %v, want nil", err)
			}
			select {
			case <-w.closed:
			case <-time.After(5 * time.Second):
				t.Fatal("writer was not closed after timeout")
			}

			if err := sess.Err(); !errors.Is(err, c.wantErr) || !errorutil.IsFramingErr(err) {
				t.Errorf("sess.Err() = %v, want %v", err, c.wantErr)
			}
			if _, err := sess.Write([]byte("d")); !errors.Is(err, c.wantErr) {
				t.Errorf("sess.Write() after timeout error = %v, want %v", err, c.wantErr)
			}
			if got := len(dlv.seqs()); got != 0 {
				t.Errorf("delivered %d messages, want 0", got)
			}
		})
	}
}

func TestChunkSession_OnPong(t *testing.T) {
	t.Parallel()

	var (
		pongs     int
		hasWriter bool
	)
	opts := &sip.ConnOptions{
		Log: log.Noop,
		OnPong: func(ctx context.Context) {
			pongs++
			_, hasWriter = sip.ReplyWriterFromContext(ctx)
		},
	}
	sess := sip.NewChunkSession(t.Context(), io.Discard, "chunk", newDeliveries().consumer(), opts)
	defer sess.Close()

	if _, err := sess.Write([]byte("\r\n\r\n\r\n")); err != nil {
		t.Fatalf("sess.Write() error = %v, want nil", err)
	}
	if pongs != 2 {
		t.Errorf("pongs = %d, want 2", pongs)
	}
	if !hasWriter {
		t.Error("OnPong context has no reply writer")
	}
}

func TestChunkSession_NameValueBlock(t *testing.T) {
	t.Parallel()

	dlv := newDeliveries()
	sess := sip.NewChunkSession(t.Context(), io.Discard, "chunk", dlv.consumer(), &sip.ConnOptions{Log: log.Noop})
	defer sess.Close()

	if _, err := sess.Write([]byte("a=b\r\n")); err != nil {
		t.Fatalf("sess.Write() error = %v, want nil", err)
	}
	_, err := sess.Write([]byte("\r\n"))
	if !errors.Is(err, sip.ErrMissingCallID) {
		t.Fatalf("sess.Write() error = %v, want %v", err, sip.ErrMissingCallID)
	}
	if got := len(dlv.seqs()); got != 0 {
		t.Errorf("delivered %d messages, want 0", got)
	}
}

func TestListener_Serve(t *testing.T) {
	t.Parallel()

	ls, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("net.Listen() error = %v, want nil", err)
	}

	dlv := newDeliveries()
	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	pool := sip.NewPool(2)
	defer pool.Wait()

	l := sip.NewListener(dlv.consumer(), &sip.ConnOptions{Log: log.Noop, Executor: pool})
	done := make(chan error, 1)
	go func() { done <- l.Serve(ctx, ls) }()

	conn, err := net.Dial("tcp", ls.Addr().String())
	if err != nil {
		t.Fatalf("net.Dial() error = %v, want nil", err)
	}
	defer conn.Close()

	if _, err := conn.Write([]byte(sipMsg("tcp-1", 1, "payload"))); err != nil {
		t.Fatalf("conn.Write() error = %v, want nil", err)
	}
	msg := dlv.wait(t)
	if got := callIDOf(msg); got != "tcp-1" {
		t.Errorf("delivered Call-ID = %q, want %q", got, "tcp-1")
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, sip.ErrListenerClosed) {
			t.Errorf("l.Serve() error = %v, want %v", err, sip.ErrListenerClosed)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("l.Serve() did not return after cancel")
	}
}

type tempErr struct{}

func (tempErr) Error() string   { return "temporary" }
func (tempErr) Timeout() bool   { return false }
func (tempErr) Temporary() bool { return true }

func TestListener_TemporaryAcceptError(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	ls := netmock.NewMockListener(ctrl)
	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	ls.EXPECT().Addr().Return(&net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 5060}).AnyTimes()
	gomock.InOrder(
		ls.EXPECT().Accept().Return(nil, tempErr{}).Times(2),
		ls.EXPECT().Accept().DoAndReturn(func() (net.Conn, error) {
			cancel()
			return nil, net.ErrClosed
		}),
	)
	ls.EXPECT().Close().Return(nil).Times(1)

	l := sip.NewListener(nil, &sip.ConnOptions{Log: log.Noop})
	if err := l.Serve(ctx, ls); !errors.Is(err, sip.ErrListenerClosed) {
		t.Errorf("l.Serve() error = %v, want %v", err, sip.ErrListenerClosed)
	}
}

func TestListener_AcceptFailure(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	ls := netmock.NewMockListener(ctrl)
	errAccept := errors.New("accept failed")

	ls.EXPECT().Addr().Return(&net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 5060}).AnyTimes()
	ls.EXPECT().Accept().Return(nil, errAccept).Times(1)
	ls.EXPECT().Close().Return(nil).Times(1)

	l := sip.NewListener(nil, &sip.ConnOptions{Log: log.Noop})
	if err := l.Serve(t.Context(), ls); !errors.Is(err, errAccept) {
		t.Errorf("l.Serve() error = %v, want %v", err, errAccept)
	}
}
