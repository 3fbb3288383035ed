package util_test

import (
	"testing"

	"github.com/tmnsur/jsip-sub002/internal/util"
)

func TestHasPrefixFold(t *testing.T) {
	t.Parallel()

	cases := []struct {
		s, prefix string
		want      bool
	}{
		{"Content-Length: 10", "content-length:", true},
		{"CALL-ID: abc", "call-id:", true},
		{"l: 0", "l:", true},
		{"Cont", "content-length:", false},
		{"Via: SIP/2.0/UDP", "call-id:", false},
		{"", "", true},
	}

	for _, c := range cases {
		t.Run(c.s, func(t *testing.T) {
			t.Parallel()

			if got := util.HasPrefixFold(c.s, c.prefix); got != c.want {
				t.Errorf("util.HasPrefixFold(%q, %q) = %v, want %v", c.s, c.prefix, got, c.want)
			}
			if got := util.HasPrefixFold([]byte(c.s), c.prefix); got != c.want {
				t.Errorf("util.HasPrefixFold([]byte(%q), %q) = %v, want %v", c.s, c.prefix, got, c.want)
			}
		})
	}
}

func TestEllipsis(t *testing.T) {
	t.Parallel()

	if got, want := util.Ellipsis("abcdef", 3), "abc..."; got != want {
		t.Errorf("util.Ellipsis() = %q, want %q", got, want)
	}
	if got, want := util.Ellipsis("abc", 3), "abc"; got != want {
		t.Errorf("util.Ellipsis() = %q, want %q", got, want)
	}
}
