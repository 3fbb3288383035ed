package sip

import (
	"fmt"

	"github.com/tmnsur/jsip-sub002/internal/errorutil"
	"github.com/tmnsur/jsip-sub002/internal/grammar"
)

// Error represents a SIP error.
// See [errorutil.Error].
type Error = errorutil.Error

// Common errors.
const (
	ErrInvalidArgument = errorutil.ErrInvalidArgument
	// ErrDispatcherClosed is returned when dispatching to a closed dispatcher.
	ErrDispatcherClosed Error = "dispatcher closed"
	// ErrGateTimeout is reported for a message dropped because its call stayed busy for too long.
	ErrGateTimeout Error = "call gate wait timed out"
	// ErrIdleTimeout is returned for a connection that has not received anything for too long.
	ErrIdleTimeout Error = "connection idle timeout"
	// ErrListenerClosed is returned by servers stopped with their context.
	ErrListenerClosed Error = "listener closed"
)

// Framing errors.
const (
	// ErrFraming matches every [FramingError] with [errors.Is].
	ErrFraming Error = "framing error"
	// ErrMessageTooLarge is returned when a message exceeds the byte budget.
	ErrMessageTooLarge Error = "message too large"
	// ErrMissingCallID is returned for a framed message without a Call-ID.
	ErrMissingCallID Error = "missing Call-ID"
	// ErrBadContentLength is returned for an unparsable Content-Length.
	ErrBadContentLength Error = "bad Content-Length"
	// ErrFramerFailed is returned when feeding a framer that has already failed.
	ErrFramerFailed Error = "framer failed"
	// ErrStarvation is returned when a body doesn't arrive in time.
	ErrStarvation Error = "body read starved"
)

// Message errors.
const (
	ErrInvalidMessage Error = "invalid message"
	// ErrMalformedStartLine is returned for a start line that is neither a request nor a status line.
	ErrMalformedStartLine grammar.Error = "malformed start line"
	// ErrBodyLengthMismatch is returned when the body length differs from Content-Length.
	ErrBodyLengthMismatch grammar.Error = "body length mismatch"
)

// FramingError is a fatal error of a byte stream.
// The connection the bytes were read from can't be used anymore.
type FramingError struct {
	Err    error
	State  FramerState
	Offset int64
}

func (err *FramingError) Error() string {
	if err == nil {
		return "<nil>"
	}
	return fmt.Sprintf("framing error in state %s at offset %d: %v", err.State, err.Offset, err.Err)
}

func (err *FramingError) Unwrap() error { return err.Err }

func (*FramingError) Framing() bool { return true }

func (*FramingError) Is(target error) bool { return target == ErrFraming } //nolint:errorlint

func (err *FramingError) Timeout() bool { return errorutil.IsTimeoutErr(err.Err) }

// ParseError represents an error that occurred during parsing.
//
// It contains the error that occurred, the current parsing state and the bytes that caused the error.
type ParseError struct {
	Err   error
	State ParseState
	Buf   []byte
}

func (err *ParseError) Error() string {
	if err == nil {
		return "<nil>"
	}
	return fmt.Sprintf("parse error in %s: %v", err.State, err.Err)
}

func (err *ParseError) Unwrap() error { return err.Err }

func (err *ParseError) Grammar() bool { return errorutil.IsGrammarErr(err.Err) }

// ParseState is the message part a [ParseError] happened in.
type ParseState int

const (
	ParseStateStart   ParseState = iota // parsing message start line
	ParseStateHeaders                   // parsing message headers
	ParseStateBody                      // parsing message body
)

func (s ParseState) String() string {
	switch s {
	case ParseStateStart:
		return "start line"
	case ParseStateHeaders:
		return "headers"
	case ParseStateBody:
		return "body"
	default:
		return fmt.Sprintf("ParseState(%d)", int(s))
	}
}
