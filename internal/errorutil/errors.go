// Package errorutil provides sentinel error helpers and error class predicates.
package errorutil

//go:generate go tool errtrace -w .

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tmnsur/jsip-sub002/internal/util"
)

// Error is a string type that implements the error interface.
type Error string

func (s Error) Error() string { return string(s) }

func Errorf(format string, args ...any) error {
	return Error(fmt.Sprintf(format, args...)) //errtrace:skip
}

// NewWrapperError creates or wraps an error with a sentinel error.
// It supports the following argument patterns:
//   - no args: returns sentinel;
//   - error arg: wraps it with sentinel (unless already wrapped);
//   - string arg, optionally followed by format args: formats message and wraps it with sentinel.
func NewWrapperError(sentinel error, args ...any) error {
	if len(args) == 0 {
		return sentinel //errtrace:skip
	}
	switch v := args[0].(type) {
	case error:
		if errors.Is(v, sentinel) {
			return v //errtrace:skip
		}
		return fmt.Errorf("%w: %w", sentinel, v) //errtrace:skip
	case string:
		if len(args) > 1 {
			v = fmt.Sprintf(v, args[1:]...)
		}
		return fmt.Errorf("%w: %s", sentinel, v) //errtrace:skip
	default:
		return sentinel //errtrace:skip
	}
}

// ErrInvalidArgument is an error returned when an invalid argument is provided.
const ErrInvalidArgument Error = "invalid argument"

// NewInvalidArgumentError creates a new error with [ErrInvalidArgument] or
// wraps provided error with [ErrInvalidArgument].
func NewInvalidArgumentError(args ...any) error {
	return NewWrapperError(ErrInvalidArgument, args...) //errtrace:skip
}

// JoinPrefix joins non-nil errs under the common prefix.
// It returns nil if all errs are nil.
func JoinPrefix(prefix string, errs ...error) error {
	var nonNil []error
	for _, err := range errs {
		if err != nil {
			nonNil = append(nonNil, err)
		}
	}
	switch len(nonNil) {
	case 0:
		return nil
	case 1:
		return fmt.Errorf("%s: %w", strings.TrimRight(prefix, ": "), nonNil[0]) //errtrace:skip
	default:
		return &multiError{prefix: prefix, errs: nonNil} //errtrace:skip
	}
}

type multiError struct {
	prefix string
	errs   []error
}

func (e *multiError) Error() string {
	sb := util.GetStringBuilder()
	defer util.FreeStringBuilder(sb)

	sb.WriteString(strings.TrimRight(e.prefix, ": "))
	sb.WriteString(":")
	for _, err := range e.errs {
		sb.WriteString("\n  - ")
		sb.WriteString(strings.ReplaceAll(err.Error(), "\n", "\n    "))
	}
	return sb.String()
}

func (e *multiError) Unwrap() []error { return e.errs }
