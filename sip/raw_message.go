package sip

import (
	"log/slog"
	"sync/atomic"
	"time"
)

// RawMessage is a framed but not yet parsed message.
//
// Head holds the start line and the header lines, each terminated by CRLF
// regardless of the line terminators used on the wire. The blank line that ends
// the header block is not included.
type RawMessage struct {
	Head          []byte
	Body          []byte
	CallID        string
	ContentLength int
	// Seq is the number of the message in its stream, starting from 1.
	Seq uint64
	// Source names the stream the message was read from, usually the remote address.
	Source string

	state  atomic.Int32
	queued time.Time
}

// States of a queued message.
const (
	rawPending int32 = iota
	rawClaimed
	rawAbandoned
)

func (raw *RawMessage) claim() bool { return raw.state.CompareAndSwap(rawPending, rawClaimed) }

func (raw *RawMessage) abandon() bool { return raw.state.CompareAndSwap(rawPending, rawAbandoned) }

func (raw *RawMessage) abandoned() bool { return raw.state.Load() == rawAbandoned }

// Size returns the number of head and body bytes.
func (raw *RawMessage) Size() int {
	if raw == nil {
		return 0
	}
	return len(raw.Head) + len(raw.Body)
}

// LogValue implements [slog.LogValuer] for structured logging.
func (raw *RawMessage) LogValue() slog.Value {
	if raw == nil {
		return slog.Value{}
	}
	return slog.GroupValue(
		slog.String("call_id", raw.CallID),
		slog.Uint64("seq", raw.Seq),
		slog.Int("size", raw.Size()),
		slog.String("source", raw.Source),
	)
}
