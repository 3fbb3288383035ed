package sip

import (
	"context"
	"time"

	"braces.dev/errtrace"

	"github.com/tmnsur/jsip-sub002/internal/types"
)

// callQueue holds pending messages of a single call.
//
// The gate is a binary semaphore, blocked senders are served in FIFO order.
// Only the gate holder claims and pops messages.
type callQueue struct {
	key  string
	gate chan struct{}
	msgs types.Deque[*RawMessage]
}

func newCallQueue(key string) *callQueue {
	return &callQueue{key: key, gate: make(chan struct{}, 1)}
}

// acquire waits for the gate.
// A zero or negative timeout waits until the context is done.
func (q *callQueue) acquire(ctx context.Context, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return errtrace.Wrap(err)
	}
	select {
	case q.gate <- struct{}{}:
		return nil
	default:
	}

	var expired <-chan time.Time
	if timeout > 0 {
		tmr := time.NewTimer(timeout)
		defer tmr.Stop()
		expired = tmr.C
	}
	select {
	case q.gate <- struct{}{}:
		return nil
	case <-ctx.Done():
		return errtrace.Wrap(ctx.Err())
	case <-expired:
		return ErrGateTimeout //errtrace:skip
	}
}

func (q *callQueue) release() { <-q.gate }

func (q *callQueue) busy() bool { return len(q.gate) > 0 }

// claimHead drops abandoned messages from the front and claims the first pending one.
// It must be called by the gate holder.
func (q *callQueue) claimHead() (*RawMessage, bool) {
	for {
		q.msgs.PopFirstIf((*RawMessage).abandoned)
		raw, ok := q.msgs.PeekFirst()
		if !ok {
			return nil, false
		}
		if raw.claim() {
			return raw, true
		}
	}
}

// abandonNewest marks the newest pending message as abandoned.
// It is used by a task that gave up waiting for the gate: the task takes
// one pending message out of processing so that every remaining task still has one.
func (q *callQueue) abandonNewest() (*RawMessage, bool) {
	return q.msgs.ScanLast((*RawMessage).abandon)
}

// idle reports whether the queue has nothing to process and nobody holds the gate.
func (q *callQueue) idle() bool {
	if q.busy() {
		return false
	}
	q.msgs.PopFirstIf((*RawMessage).abandoned)
	return q.msgs.IsEmpty()
}

// drain abandons all pending messages and returns them.
// Claimed messages are left to their holders.
func (q *callQueue) drain() []*RawMessage {
	var out []*RawMessage
	for _, raw := range q.msgs.Drain() {
		if raw.abandon() {
			out = append(out, raw)
		}
	}
	return out
}
