package sip_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/mock/gomock"

	"github.com/tmnsur/jsip-sub002/internal/log"
	"github.com/tmnsur/jsip-sub002/internal/testutil/sipmock"
	"github.com/tmnsur/jsip-sub002/sip"
)

func newRaw(callID string, seq int) *sip.RawMessage {
	return &sip.RawMessage{
		Head: []byte("MESSAGE sip:bob@b.com SIP/2.0\r\n" +
			"Call-ID: " + callID + "\r\n" +
			fmt.Sprintf("CSeq: %d MESSAGE\r\n", seq)),
		CallID: callID,
		Seq:    uint64(seq),
		Source: "test",
	}
}

func seqOf(msg sip.Message) uint {
	cseq, ok := msg.MessageHeaders().CSeq()
	if !ok {
		return 0
	}
	return cseq.SeqNum
}

func callIDOf(msg sip.Message) string {
	id, _ := msg.MessageHeaders().CallID()
	return id
}

func TestDispatcher_SameCallOrder(t *testing.T) {
	t.Parallel()

	const (
		calls    = 4
		perCall  = 50
		poolSize = 8
	)

	var (
		mu       sync.Mutex
		got      = make(map[string][]uint)
		inflight = make(map[string]*atomic.Int32)
		overlap  atomic.Bool
	)
	for i := range calls {
		inflight[fmt.Sprintf("call-%d", i)] = new(atomic.Int32)
	}

	consumer := sip.ConsumerFuncs{
		DeliverMessageFunc: func(_ context.Context, msg sip.Message) error {
			id := callIDOf(msg)
			if inflight[id].Add(1) > 1 {
				overlap.Store(true)
			}
			defer inflight[id].Add(-1)

			if seqOf(msg)%7 == 0 {
				time.Sleep(time.Millisecond)
			}

			mu.Lock()
			got[id] = append(got[id], seqOf(msg))
			mu.Unlock()
			return nil
		},
	}

	pool := sip.NewPool(poolSize)
	d := sip.NewDispatcher(t.Context(), consumer, &sip.DispatcherOptions{
		Executor:     pool,
		MutexTimeout: -1,
		Log:          log.Noop,
	})

	for seq := 1; seq <= perCall; seq++ {
		for i := range calls {
			if err := d.Dispatch(newRaw(fmt.Sprintf("call-%d", i), seq)); err != nil {
				t.Fatalf("d.Dispatch() error = %v, want nil", err)
			}
		}
	}
	pool.Wait()

	if got := d.ActiveCalls(); got != 0 {
		t.Errorf("d.ActiveCalls() = %d, want 0", got)
	}
	if err := d.Close(); err != nil {
		t.Fatalf("d.Close() error = %v, want nil", err)
	}
	if overlap.Load() {
		t.Error("messages of the same call were delivered concurrently")
	}

	want := make([]uint, perCall)
	for i := range want {
		want[i] = uint(i + 1)
	}
	for i := range calls {
		id := fmt.Sprintf("call-%d", i)
		if diff := cmp.Diff(got[id], want); diff != "" {
			t.Errorf("call %s: delivery order mismatch\ndiff (-got +want):\n%v", id, diff)
		}
	}
}

func TestDispatcher_Sync(t *testing.T) {
	t.Parallel()

	var delivered []uint
	d := sip.NewDispatcher(t.Context(), sip.ConsumerFuncs{
		DeliverMessageFunc: func(_ context.Context, msg sip.Message) error {
			delivered = append(delivered, seqOf(msg))
			return nil
		},
	}, &sip.DispatcherOptions{Log: log.Noop})
	defer d.Close()

	for seq := 1; seq <= 3; seq++ {
		if err := d.Dispatch(newRaw("sync", seq)); err != nil {
			t.Fatalf("d.Dispatch() error = %v, want nil", err)
		}
		if got := len(delivered); got != seq {
			t.Fatalf("delivered %d messages after Dispatch returned, want %d", got, seq)
		}
	}
	if got := d.ActiveCalls(); got != 0 {
		t.Errorf("d.ActiveCalls() = %d, want 0", got)
	}

	if err := d.Dispatch(nil); !errors.Is(err, sip.ErrInvalidArgument) {
		t.Errorf("d.Dispatch(nil) error = %v, want %v", err, sip.ErrInvalidArgument)
	}
	if err := d.Dispatch(newRaw("", 1)); !errors.Is(err, sip.ErrMissingCallID) {
		t.Errorf("d.Dispatch(no Call-ID) error = %v, want %v", err, sip.ErrMissingCallID)
	}
}

func TestDispatcher_Hooks(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	consumer := sipmock.NewMockConsumer(ctrl)
	icpt := sipmock.NewMockInterceptor(ctrl)

	errBoom := errors.New("boom")
	ok, failed := newRaw("c1", 1), newRaw("c2", 1)
	malformed := &sip.RawMessage{Head: []byte("HELLO\r\n"), CallID: "c3", Seq: 3}

	consumer.EXPECT().DeliverMessage(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, msg sip.Message) error {
			if callIDOf(msg) == "c2" {
				return errBoom
			}
			return nil
		}).
		Times(2)

	for _, raw := range []*sip.RawMessage{ok, failed, malformed} {
		icpt.EXPECT().BeforeMessage(gomock.Any(), raw).Times(1)
	}
	icpt.EXPECT().AfterMessage(gomock.Any(), ok, gomock.Nil()).Times(1)
	icpt.EXPECT().AfterMessage(gomock.Any(), failed, gomock.Any()).
		Do(func(_ context.Context, _ *sip.RawMessage, err error) {
			if !errors.Is(err, errBoom) {
				t.Errorf("AfterMessage() error = %v, want %v", err, errBoom)
			}
		}).
		Times(1)
	icpt.EXPECT().AfterMessage(gomock.Any(), malformed, gomock.Any()).
		Do(func(_ context.Context, _ *sip.RawMessage, err error) {
			if !errors.Is(err, sip.ErrMalformedStartLine) {
				t.Errorf("AfterMessage() error = %v, want %v", err, sip.ErrMalformedStartLine)
			}
		}).
		Times(1)

	reg := prometheus.NewRegistry()
	metrics := sip.NewMetrics(reg)
	d := sip.NewDispatcher(t.Context(), consumer, &sip.DispatcherOptions{
		Interceptor: icpt,
		Log:         log.Noop,
		Metrics:     metrics,
	})
	for _, raw := range []*sip.RawMessage{ok, failed, malformed} {
		if err := d.Dispatch(raw); err != nil {
			t.Fatalf("d.Dispatch() error = %v, want nil", err)
		}
	}
	if err := d.Close(); err != nil {
		t.Fatalf("d.Close() error = %v, want nil", err)
	}

	if got := testutil.ToFloat64(metrics.Delivered); got != 1 {
		t.Errorf("delivered = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.Dropped.WithLabelValues("consumer_error")); got != 1 {
		t.Errorf("dropped consumer_error = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.Dropped.WithLabelValues("parse_error")); got != 1 {
		t.Errorf("dropped parse_error = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.ActiveCalls); got != 0 {
		t.Errorf("active calls = %v, want 0", got)
	}
}

func TestDispatcher_ConsumerPanic(t *testing.T) {
	t.Parallel()

	var (
		delivered []uint
		afterErrs []error
	)
	d := sip.NewDispatcher(t.Context(), sip.ConsumerFuncs{
		DeliverMessageFunc: func(_ context.Context, msg sip.Message) error {
			if seqOf(msg) == 1 {
				panic("consumer bug")
			}
			delivered = append(delivered, seqOf(msg))
			return nil
		},
		AfterMessageFunc: func(_ context.Context, _ *sip.RawMessage, err error) {
			afterErrs = append(afterErrs, err)
		},
	}, &sip.DispatcherOptions{Log: log.Noop})
	defer d.Close()

	for seq := 1; seq <= 2; seq++ {
		if err := d.Dispatch(newRaw("panic", seq)); err != nil {
			t.Fatalf("d.Dispatch() error = %v, want nil", err)
		}
	}

	if diff := cmp.Diff(delivered, []uint{2}); diff != "" {
		t.Errorf("delivered mismatch\ndiff (-got +want):\n%v", diff)
	}
	if len(afterErrs) != 2 || afterErrs[0] == nil || !strings.Contains(afterErrs[0].Error(), "consumer bug") || afterErrs[1] != nil {
		t.Errorf("AfterMessage errors = %v, want [panic error, nil]", afterErrs)
	}
}

func TestDispatcher_GateTimeout(t *testing.T) {
	t.Parallel()

	var (
		release  = make(chan struct{})
		started  = make(chan struct{})
		timedOut = make(chan *sip.RawMessage, 1)

		mu        sync.Mutex
		delivered []uint
	)
	consumer := sip.ConsumerFuncs{
		DeliverMessageFunc: func(_ context.Context, msg sip.Message) error {
			if seqOf(msg) == 1 {
				close(started)
				<-release
			}
			mu.Lock()
			delivered = append(delivered, seqOf(msg))
			mu.Unlock()
			return nil
		},
		AfterMessageFunc: func(_ context.Context, raw *sip.RawMessage, err error) {
			if errors.Is(err, sip.ErrGateTimeout) {
				timedOut <- raw
			}
		},
	}

	reg := prometheus.NewRegistry()
	metrics := sip.NewMetrics(reg)
	d := sip.NewDispatcher(t.Context(), consumer, &sip.DispatcherOptions{
		Executor:     sip.ExecutorFunc(func(task func()) { go task() }),
		MutexTimeout: 50 * time.Millisecond,
		Log:          log.Noop,
		Metrics:      metrics,
	})

	if err := d.Dispatch(newRaw("slow", 1)); err != nil {
		t.Fatalf("d.Dispatch() error = %v, want nil", err)
	}
	<-started
	second := newRaw("slow", 2)
	if err := d.Dispatch(second); err != nil {
		t.Fatalf("d.Dispatch() error = %v, want nil", err)
	}

	select {
	case raw := <-timedOut:
		if raw != second {
			t.Errorf("timed out message #%d, want #2", raw.Seq)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no gate timeout reported")
	}
	close(release)

	if err := d.Close(); err != nil {
		t.Fatalf("d.Close() error = %v, want nil", err)
	}
	if diff := cmp.Diff(delivered, []uint{1}); diff != "" {
		t.Errorf("delivered mismatch\ndiff (-got +want):\n%v", diff)
	}
	if got := testutil.ToFloat64(metrics.Dropped.WithLabelValues("gate_timeout")); got != 1 {
		t.Errorf("dropped gate_timeout = %v, want 1", got)
	}
	if got := d.ActiveCalls(); got != 0 {
		t.Errorf("d.ActiveCalls() = %d, want 0", got)
	}
}

func TestDispatcher_Close(t *testing.T) {
	t.Parallel()

	var (
		mu    sync.Mutex
		tasks []func()
		after = make(map[*sip.RawMessage][]error)
	)
	exec := sip.ExecutorFunc(func(task func()) {
		mu.Lock()
		tasks = append(tasks, task)
		mu.Unlock()
	})
	consumer := sip.ConsumerFuncs{
		DeliverMessageFunc: func(context.Context, sip.Message) error {
			t.Error("message delivered after Close")
			return nil
		},
		AfterMessageFunc: func(_ context.Context, raw *sip.RawMessage, err error) {
			mu.Lock()
			after[raw] = append(after[raw], err)
			mu.Unlock()
		},
	}

	d := sip.NewDispatcher(t.Context(), consumer, &sip.DispatcherOptions{Executor: exec, Log: log.Noop})
	raws := []*sip.RawMessage{newRaw("a", 1), newRaw("a", 2), newRaw("a", 3), newRaw("b", 1)}
	for _, raw := range raws {
		if err := d.Dispatch(raw); err != nil {
			t.Fatalf("d.Dispatch() error = %v, want nil", err)
		}
	}
	if got := d.ActiveCalls(); got != 2 {
		t.Fatalf("d.ActiveCalls() = %d, want 2", got)
	}

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		d.Close() //nolint:errcheck
	}()
	for d.ActiveCalls() > 0 {
		time.Sleep(time.Millisecond)
	}

	mu.Lock()
	pending := tasks
	mu.Unlock()
	for _, task := range pending {
		task()
	}
	<-closed

	for _, raw := range raws {
		errs := after[raw]
		if len(errs) != 1 || !errors.Is(errs[0], sip.ErrDispatcherClosed) {
			t.Errorf("AfterMessage errors of #%d in %s = %v, want one %v", raw.Seq, raw.CallID, errs, sip.ErrDispatcherClosed)
		}
	}
	if err := d.Dispatch(newRaw("a", 4)); !errors.Is(err, sip.ErrDispatcherClosed) {
		t.Errorf("d.Dispatch() after Close error = %v, want %v", err, sip.ErrDispatcherClosed)
	}
}

func TestDispatcher_HooksWrapDeliveredMessage(t *testing.T) {
	t.Parallel()

	var (
		tasks  []func()
		events []string
	)
	consumer := sip.ConsumerFuncs{
		DeliverMessageFunc: func(_ context.Context, msg sip.Message) error {
			events = append(events, fmt.Sprintf("deliver#%d", seqOf(msg)))
			return nil
		},
		BeforeMessageFunc: func(_ context.Context, raw *sip.RawMessage) {
			events = append(events, fmt.Sprintf("before#%d", raw.Seq))
		},
		AfterMessageFunc: func(_ context.Context, raw *sip.RawMessage, _ error) {
			events = append(events, fmt.Sprintf("after#%d", raw.Seq))
		},
	}
	// tasks start in the reverse order of submission
	exec := sip.ExecutorFunc(func(task func()) { tasks = append(tasks, task) })

	d := sip.NewDispatcher(t.Context(), consumer, &sip.DispatcherOptions{Executor: exec, Log: log.Noop})
	defer d.Close()

	for seq := 1; seq <= 3; seq++ {
		if err := d.Dispatch(newRaw("rev", seq)); err != nil {
			t.Fatalf("d.Dispatch() error = %v, want nil", err)
		}
	}
	for i := len(tasks) - 1; i >= 0; i-- {
		tasks[i]()
	}

	want := []string{
		"before#1", "deliver#1", "after#1",
		"before#2", "deliver#2", "after#2",
		"before#3", "deliver#3", "after#3",
	}
	if diff := cmp.Diff(events, want); diff != "" {
		t.Errorf("events mismatch\ndiff (-got +want):\n%v", diff)
	}
}

func TestDispatcher_GateTimeoutHooks(t *testing.T) {
	t.Parallel()

	var (
		release = make(chan struct{})
		started = make(chan struct{})
		done    = make(chan struct{})

		mu     sync.Mutex
		events []string
	)
	record := func(s string) {
		mu.Lock()
		events = append(events, s)
		mu.Unlock()
	}
	consumer := sip.ConsumerFuncs{
		DeliverMessageFunc: func(_ context.Context, msg sip.Message) error {
			if seqOf(msg) == 1 {
				close(started)
				<-release
			}
			return nil
		},
		BeforeMessageFunc: func(_ context.Context, raw *sip.RawMessage) {
			record(fmt.Sprintf("before#%d", raw.Seq))
		},
		AfterMessageFunc: func(_ context.Context, raw *sip.RawMessage, err error) {
			record(fmt.Sprintf("after#%d", raw.Seq))
			if errors.Is(err, sip.ErrGateTimeout) {
				close(done)
			}
		},
	}

	d := sip.NewDispatcher(t.Context(), consumer, &sip.DispatcherOptions{
		Executor:     sip.ExecutorFunc(func(task func()) { go task() }),
		MutexTimeout: 20 * time.Millisecond,
		Log:          log.Noop,
	})

	if err := d.Dispatch(newRaw("slow", 1)); err != nil {
		t.Fatalf("d.Dispatch() error = %v, want nil", err)
	}
	<-started
	if err := d.Dispatch(newRaw("slow", 2)); err != nil {
		t.Fatalf("d.Dispatch() error = %v, want nil", err)
	}
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("no gate timeout reported")
	}
	close(release)
	if err := d.Close(); err != nil {
		t.Fatalf("d.Close() error = %v, want nil", err)
	}

	want := []string{"before#1", "before#2", "after#2", "after#1"}
	if diff := cmp.Diff(events, want); diff != "" {
		t.Errorf("events mismatch\ndiff (-got +want):\n%v", diff)
	}
}
