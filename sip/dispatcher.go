package sip

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"braces.dev/errtrace"

	"github.com/tmnsur/jsip-sub002/internal/errorutil"
	"github.com/tmnsur/jsip-sub002/internal/log"
	"github.com/tmnsur/jsip-sub002/internal/syncutil"
)

// DispatcherOptions are options of the [Dispatcher].
type DispatcherOptions struct {
	// Executor runs dispatch tasks.
	// If nil, messages are parsed and delivered on the goroutine calling [Dispatcher.Dispatch].
	Executor Executor `json:"-"`
	// MutexTimeout is the maximum time a message waits for its turn,
	// the message is dropped when the time is over.
	// Zero means 30s, negative means no limit.
	MutexTimeout time.Duration `json:"mutex_timeout,omitempty"`
	// MalformedHeaderPolicy defines handling of messages with malformed headers.
	// Default: [KeepRaw].
	MalformedHeaderPolicy MalformedHeaderPolicy `json:"malformed_header_policy,omitempty"`
	// Interceptor is called around every message.
	// If nil and the consumer implements [Interceptor], the consumer is used.
	Interceptor Interceptor `json:"-"`
	// Log is used to log dispatch events.
	// If nil, [log.Default] is used.
	Log *slog.Logger `json:"-"`
	// Metrics records dispatch metrics.
	Metrics *Metrics `json:"-"`
}

const defMutexTimeout = 30 * time.Second

func (o *DispatcherOptions) executor() Executor {
	if o == nil {
		return nil
	}
	return o.Executor
}

func (o *DispatcherOptions) mutexTimeout() time.Duration {
	if o == nil || o.MutexTimeout == 0 {
		return defMutexTimeout
	}
	return max(o.MutexTimeout, 0)
}

func (o *DispatcherOptions) parseOpts() *ParseOptions {
	if o == nil {
		return nil
	}
	return &ParseOptions{MalformedHeaderPolicy: o.MalformedHeaderPolicy}
}

func (o *DispatcherOptions) interceptor() Interceptor {
	if o == nil {
		return nil
	}
	return o.Interceptor
}

func (o *DispatcherOptions) log() *slog.Logger {
	if o == nil || o.Log == nil {
		return log.Default()
	}
	return o.Log
}

func (o *DispatcherOptions) metrics() *Metrics {
	if o == nil {
		return nil
	}
	return o.Metrics
}

// Dispatcher delivers raw messages to the consumer grouped by Call-ID.
//
// Messages of the same call are parsed and delivered one at a time in the order
// they were dispatched. Different calls are processed concurrently by the executor.
type Dispatcher struct {
	consumer  Consumer
	icpt      Interceptor
	exec      Executor
	timeout   time.Duration
	parseOpts *ParseOptions
	log       *slog.Logger
	metrics   *Metrics

	ctx    context.Context
	cancel context.CancelFunc
	calls  *syncutil.ShardMap[string, *callQueue]
	wg     sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// NewDispatcher creates a dispatcher delivering messages to the consumer.
// The context is passed to the consumer, the dispatcher stops when it is done.
func NewDispatcher(ctx context.Context, consumer Consumer, opts *DispatcherOptions) *Dispatcher {
	if consumer == nil {
		consumer = ConsumerFuncs{}
	}
	icpt := opts.interceptor()
	if icpt == nil {
		icpt, _ = consumer.(Interceptor)
	}

	d := &Dispatcher{
		consumer:  consumer,
		icpt:      icpt,
		exec:      opts.executor(),
		timeout:   opts.mutexTimeout(),
		parseOpts: opts.parseOpts(),
		log:       opts.log(),
		metrics:   opts.metrics(),
		calls:     syncutil.NewShardMap[string, *callQueue](),
	}
	d.ctx, d.cancel = context.WithCancel(ctx)
	return d
}

// Dispatch queues the message and submits a task delivering the next message of its call.
// It may block when the executor has no free goroutines.
func (d *Dispatcher) Dispatch(raw *RawMessage) error {
	if raw == nil {
		return errtrace.Wrap(errorutil.NewInvalidArgumentError("invalid raw message"))
	}
	if raw.CallID == "" {
		return errtrace.Wrap(errorutil.NewWrapperError(ErrMissingCallID, "message #%d from %q", raw.Seq, raw.Source))
	}

	d.mu.RLock()
	if d.closed {
		d.mu.RUnlock()
		return ErrDispatcherClosed //errtrace:skip
	}
	raw.queued = time.Now()
	cq := d.calls.Compute(raw.CallID, func(cq *callQueue, ok bool) *callQueue {
		if !ok {
			cq = newCallQueue(raw.CallID)
			d.metrics.callOpened()
		}
		cq.msgs.Append(raw)
		return cq
	})
	d.wg.Add(1)
	d.mu.RUnlock()

	task := d.newTask(cq)
	if d.exec == nil {
		task()
		return nil
	}
	d.exec.Go(task)
	return nil
}

// newTask returns a task delivering the next message of the call.
// The task does not necessarily deliver the message it was submitted for,
// the interceptor hooks always wrap the message being processed.
func (d *Dispatcher) newTask(cq *callQueue) func() {
	return func() {
		defer d.wg.Done()
		defer d.releaseCall(cq)

		if err := cq.acquire(d.ctx, d.timeout); err != nil {
			if d.ctx.Err() != nil {
				err = errorutil.NewWrapperError(ErrDispatcherClosed, err)
			}
			if raw, ok := cq.abandonNewest(); ok {
				d.drop(raw, err, dropGateTimeout)
				d.skipped(raw, err)
			}
			return
		}
		defer cq.release()

		d.deliverHead(cq)
	}
}

// deliverHead parses and delivers the head of the queue, it must be called by the gate holder.
func (d *Dispatcher) deliverHead(cq *callQueue) {
	raw, ok := cq.claimHead()
	if !ok {
		return
	}
	defer cq.msgs.PopFirst()

	d.beforeMessage(raw)
	var err error
	defer func() { d.afterMessage(raw, err) }()

	var msg Message
	if msg, err = ParseRaw(raw, d.parseOpts); err != nil {
		d.drop(raw, err, dropParseError)
		return
	}
	for _, perr := range msg.ParseErrors() {
		d.log.LogAttrs(d.ctx, slog.LevelDebug, "malformed header kept raw",
			slog.Any("message", raw),
			slog.Any("error", perr),
		)
	}

	if err = d.deliver(msg); err != nil {
		d.drop(raw, err, dropConsumerError)
		return
	}
	d.metrics.delivered(raw.queued)
}

// skipped notifies the interceptor about a message that will never be delivered.
func (d *Dispatcher) skipped(raw *RawMessage, err error) {
	d.beforeMessage(raw)
	d.afterMessage(raw, err)
}

func (d *Dispatcher) deliver(msg Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("consumer panic: %v", r) //errtrace:skip
		}
	}()
	return errtrace.Wrap(d.consumer.DeliverMessage(d.ctx, msg))
}

func (d *Dispatcher) beforeMessage(raw *RawMessage) {
	if d.icpt == nil {
		return
	}
	defer d.recoverHook("before")
	d.icpt.BeforeMessage(d.ctx, raw)
}

func (d *Dispatcher) afterMessage(raw *RawMessage, err error) {
	if d.icpt == nil {
		return
	}
	defer d.recoverHook("after")
	d.icpt.AfterMessage(d.ctx, raw, err)
}

func (d *Dispatcher) recoverHook(name string) {
	if r := recover(); r != nil {
		d.log.LogAttrs(d.ctx, slog.LevelError, "interceptor panic",
			slog.String("hook", name),
			slog.Any("panic", r),
		)
	}
}

func (d *Dispatcher) drop(raw *RawMessage, err error, reason string) {
	lvl := slog.LevelWarn
	if errors.Is(err, ErrDispatcherClosed) {
		lvl, reason = slog.LevelDebug, dropClosed
	}
	d.log.LogAttrs(d.ctx, lvl, "message dropped",
		slog.String("reason", reason),
		slog.Any("message", raw),
		slog.Any("error", err),
	)
	d.metrics.dropped(reason)
}

// releaseCall removes the call queue once it has nothing to process.
func (d *Dispatcher) releaseCall(cq *callQueue) {
	if d.calls.DeleteIf(cq.key, func(q *callQueue) bool { return q == cq && q.idle() }) {
		d.metrics.callsClosed(1)
	}
}

// ActiveCalls returns the number of calls with queued messages.
func (d *Dispatcher) ActiveCalls() int { return d.calls.Size() }

// Close stops the dispatcher.
//
// Tasks waiting for their turn are cancelled, queued messages are dropped and
// the interceptor is notified about them with [ErrDispatcherClosed].
// Close waits for running deliveries, the consumer should return once its context is done.
func (d *Dispatcher) Close() error {
	d.cancel()

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	d.mu.Unlock()

	queues := d.calls.Clear()
	d.metrics.callsClosed(len(queues))
	var dropped int
	for _, cq := range queues {
		for _, raw := range cq.drain() {
			dropped++
			d.drop(raw, ErrDispatcherClosed, dropClosed)
			d.skipped(raw, ErrDispatcherClosed)
		}
	}
	if dropped > 0 {
		d.log.LogAttrs(context.Background(), slog.LevelDebug, "dispatcher closed",
			slog.Int("calls", len(queues)),
			slog.Int("dropped", dropped),
		)
	}

	d.wg.Wait()
	return nil
}
