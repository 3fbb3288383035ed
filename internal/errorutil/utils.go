package errorutil

import (
	"errors"
	"net"
)

// IsTemporaryErr returns true if the error is temporary.
func IsTemporaryErr(err error) bool {
	var e interface{ Temporary() bool }
	return errors.As(err, &e) && e.Temporary()
}

// IsTimeoutErr returns true if the error is a timeout error.
func IsTimeoutErr(err error) bool {
	var e interface{ Timeout() bool }
	return errors.As(err, &e) && e.Timeout()
}

// IsGrammarErr returns true if the error is a grammar error.
// Grammar errors are scoped to a single header or message and never break the stream.
func IsGrammarErr(err error) bool {
	var e interface{ Grammar() bool }
	return errors.As(err, &e) && e.Grammar()
}

// IsFramingErr returns true if the error is a framing error.
// Framing errors are fatal for the connection the bytes were read from.
func IsFramingErr(err error) bool {
	var e interface{ Framing() bool }
	return errors.As(err, &e) && e.Framing()
}

// IsNetError returns true if the error is a network error.
func IsNetError(err error) bool {
	var e net.Error
	return errors.As(err, &e)
}
