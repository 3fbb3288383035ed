package errorutil_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/tmnsur/jsip-sub002/internal/errorutil"
)

const errSentinel errorutil.Error = "sentinel"

func TestNewWrapperError(t *testing.T) {
	t.Parallel()

	base := errors.New("base")
	cases := []struct {
		name    string
		args    []any
		wantMsg string
	}{
		{"no args", nil, "sentinel"},
		{"error", []any{base}, "sentinel: base"},
		{"wrapped error", []any{fmt.Errorf("ctx: %w", errSentinel)}, "ctx: sentinel"},
		{"string", []any{"bad thing"}, "sentinel: bad thing"},
		{"format", []any{"bad %s #%d", "thing", 2}, "sentinel: bad thing #2"},
		{"unknown", []any{42}, "sentinel"},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()

			err := errorutil.NewWrapperError(errSentinel, c.args...)
			if got := err.Error(); got != c.wantMsg {
				t.Errorf("err.Error() = %q, want %q", got, c.wantMsg)
			}
			if diff := cmp.Diff(err, error(errSentinel), cmpopts.EquateErrors()); diff != "" {
				t.Errorf("errors.Is(err, sentinel) = false\ndiff (-got +want):\n%v", diff)
			}
		})
	}
}

func TestJoinPrefix(t *testing.T) {
	t.Parallel()

	if err := errorutil.JoinPrefix("parse", nil, nil); err != nil {
		t.Fatalf("errorutil.JoinPrefix(nils) = %v, want nil", err)
	}

	e1, e2 := errors.New("one"), errors.New("two")
	err := errorutil.JoinPrefix("parse", e1)
	if got, want := err.Error(), "parse: one"; got != want {
		t.Errorf("err.Error() = %q, want %q", got, want)
	}

	err = errorutil.JoinPrefix("parse headers", e1, nil, e2)
	if got, want := err.Error(), "parse headers:\n  - one\n  - two"; got != want {
		t.Errorf("err.Error() = %q, want %q", got, want)
	}
	if !errors.Is(err, e1) || !errors.Is(err, e2) {
		t.Errorf("errors.Is(err, e1|e2) = false, want true")
	}
}

type classErr struct{ grammar, framing bool }

func (classErr) Error() string   { return "class" }
func (e classErr) Grammar() bool { return e.grammar }
func (e classErr) Framing() bool { return e.framing }
func (classErr) Timeout() bool   { return true }
func (classErr) Temporary() bool { return false }

func TestErrorClasses(t *testing.T) {
	t.Parallel()

	gerr := fmt.Errorf("wrap: %w", classErr{grammar: true})
	ferr := fmt.Errorf("wrap: %w", classErr{framing: true})

	if !errorutil.IsGrammarErr(gerr) || errorutil.IsFramingErr(gerr) {
		t.Errorf("grammar error classified wrong")
	}
	if errorutil.IsGrammarErr(ferr) || !errorutil.IsFramingErr(ferr) {
		t.Errorf("framing error classified wrong")
	}
	if !errorutil.IsTimeoutErr(gerr) || errorutil.IsTemporaryErr(gerr) {
		t.Errorf("timeout/temporary classified wrong")
	}
	if errorutil.IsGrammarErr(errors.New("plain")) {
		t.Errorf("plain error classified as grammar error")
	}
}
