package sip

import (
	"context"

	"braces.dev/errtrace"
)

// Consumer receives parsed messages.
type Consumer interface {
	// DeliverMessage is called for every message, messages of the same call
	// are delivered one at a time in the order of arrival.
	DeliverMessage(ctx context.Context, msg Message) error
	// SendKeepAliveResponse is called when the peer sent a double CRLF keep-alive ping.
	SendKeepAliveResponse(ctx context.Context) error
}

// Interceptor observes messages around their delivery.
type Interceptor interface {
	// BeforeMessage is called when the message gets its turn, before it is parsed and delivered.
	// A message dropped while waiting gets both calls back to back.
	BeforeMessage(ctx context.Context, raw *RawMessage)
	// AfterMessage is called exactly once for every dispatched message,
	// err is nil when the message was delivered.
	AfterMessage(ctx context.Context, raw *RawMessage, err error)
}

// ConsumerFuncs adapts functions to the [Consumer] and [Interceptor] interfaces.
// Nil functions are ignored, except SendKeepAliveResponseFunc: when it is nil, the CRLF response
// is written to the connection from the context, see [ReplyWriterFromContext].
type ConsumerFuncs struct {
	DeliverMessageFunc        func(ctx context.Context, msg Message) error
	SendKeepAliveResponseFunc func(ctx context.Context) error
	BeforeMessageFunc         func(ctx context.Context, raw *RawMessage)
	AfterMessageFunc          func(ctx context.Context, raw *RawMessage, err error)
}

func (c ConsumerFuncs) DeliverMessage(ctx context.Context, msg Message) error {
	if c.DeliverMessageFunc == nil {
		return nil
	}
	return errtrace.Wrap(c.DeliverMessageFunc(ctx, msg))
}

func (c ConsumerFuncs) SendKeepAliveResponse(ctx context.Context) error {
	if c.SendKeepAliveResponseFunc == nil {
		if _, ok := ReplyWriterFromContext(ctx); !ok {
			return nil
		}
		return errtrace.Wrap(WriteKeepAliveResponse(ctx))
	}
	return errtrace.Wrap(c.SendKeepAliveResponseFunc(ctx))
}

func (c ConsumerFuncs) BeforeMessage(ctx context.Context, raw *RawMessage) {
	if c.BeforeMessageFunc != nil {
		c.BeforeMessageFunc(ctx, raw)
	}
}

func (c ConsumerFuncs) AfterMessage(ctx context.Context, raw *RawMessage, err error) {
	if c.AfterMessageFunc != nil {
		c.AfterMessageFunc(ctx, raw, err)
	}
}
