package types_test

import (
	"fmt"
	"testing"

	"github.com/tmnsur/jsip-sub002/internal/types"
)

func TestAddr_String(t *testing.T) {
	t.Parallel()

	cases := []struct {
		addr types.Addr
		want string
	}{
		{types.Host("example.com"), "example.com"},
		{types.HostPort("example.com", 5060), "example.com:5060"},
		{types.Host("127.0.0.1"), "127.0.0.1"},
		{types.Host("[::1]"), "[::1]"},
		{types.HostPort("::1", 5061), "[::1]:5061"},
		{types.Addr{}, ""},
	}

	for _, c := range cases {
		t.Run(c.want, func(t *testing.T) {
			t.Parallel()

			if got := c.addr.String(); got != c.want {
				t.Errorf("addr.String() = %q, want %q", got, c.want)
			}
			if got := fmt.Sprintf("%s", c.addr); got != c.want {
				t.Errorf("fmt.Sprintf(%%s) = %q, want %q", got, c.want)
			}
		})
	}
}

func TestAddr_Equal(t *testing.T) {
	t.Parallel()

	a := types.HostPort("Example.COM", 5060)
	if !a.Equal(types.HostPort("example.com", 5060)) {
		t.Error("host comparison must be case-insensitive")
	}
	if a.Equal(types.Host("example.com")) {
		t.Error("port presence must be compared")
	}
	ip := types.Host("::1")
	if !ip.Equal(types.Host("0:0:0:0:0:0:0:1")) {
		t.Error("IPv6 literals must be compared by value")
	}
	if ip.Equal(types.Host("localhost")) {
		t.Error("IP literal must not equal a hostname")
	}
	if ip.Equal((*types.Addr)(nil)) {
		t.Error("nil pointer must not be equal")
	}
}

func TestAddr_MatchMerge(t *testing.T) {
	t.Parallel()

	a := types.HostPort("a.com", 5060)
	if !a.Match(types.Host("A.com")) {
		t.Error("a.Match(host only) = false, want true")
	}
	if !a.Match(types.Addr{}.WithPort(5060)) {
		t.Error("a.Match(port only) = false, want true")
	}
	if a.Match(types.HostPort("a.com", 5070)) {
		t.Error("a.Match(other port) = true, want false")
	}
	if types.Host("a.com").Match(types.HostPort("a.com", 5060)) {
		t.Error("missing port must not match template port")
	}

	got := types.Host("b.com").Merge(a)
	if want := types.HostPort("b.com", 5060); !got.Equal(want) {
		t.Errorf("Merge() = %v, want %v", got, want)
	}
	if got := (types.Addr{}).Merge(a); !got.Equal(a) {
		t.Errorf("zero.Merge(a) = %v, want %v", got, a)
	}
}

func TestAddr_IsValid(t *testing.T) {
	t.Parallel()

	cases := []struct {
		addr types.Addr
		want bool
	}{
		{types.Host("example.com"), true},
		{types.Host("10.0.0.1"), true},
		{types.Host("[2001:db8::1]"), true},
		{types.Host("bad host"), false},
		{types.Addr{}, false},
	}

	for _, c := range cases {
		if got := c.addr.IsValid(); got != c.want {
			t.Errorf("Addr(%q).IsValid() = %v, want %v", c.addr, got, c.want)
		}
	}
}
